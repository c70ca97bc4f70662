package skafferi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cognicore/skafferi/pkg/skafferi/alias"
	"github.com/cognicore/skafferi/pkg/skafferi/config"
	"github.com/cognicore/skafferi/pkg/skafferi/fuzzy"
	"github.com/cognicore/skafferi/pkg/skafferi/internalerr"
	"github.com/cognicore/skafferi/pkg/skafferi/normalize"
	"github.com/cognicore/skafferi/pkg/skafferi/store"
)

// Engine is the ingredient matching and list engine facade. It keeps no
// state between calls beyond its collaborators and is safe for concurrent
// use; the catalog is read from the store on every call.
type Engine struct {
	store store.Store
	cfg   config.Engine
	norm  *normalize.Normalizer
	log   *zap.Logger
	now   func() time.Time
}

// Options configures an Engine
type Options struct {
	Store  store.Store
	Config config.Engine // zero value means config.DefaultEngine()
	Logger *zap.Logger   // nil disables logging
	Now    func() time.Time
}

// New creates an Engine with the given dependencies
func New(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("skafferi: nil store")
	}
	cfg := opts.Config
	if cfg == (config.Engine{}) {
		cfg = config.DefaultEngine()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Engine{
		store: opts.Store,
		cfg:   cfg,
		norm:  normalize.NewFromString(cfg.Locale),
		log:   log,
		now:   now,
	}, nil
}

// Close cleanly shuts down the engine and its store
func (e *Engine) Close() error {
	return e.store.Close()
}

// Config returns the engine configuration in effect
func (e *Engine) Config() config.Engine {
	return e.cfg
}

// catalog is a per-call snapshot of foods and units with their match indexes.
type catalog struct {
	arena *alias.Arena
	foods *fuzzy.Index
	units map[string]store.Unit
	unitx *fuzzy.Index
}

func (e *Engine) loadCatalog(ctx context.Context, withUnits bool) (*catalog, error) {
	foods, err := e.store.ListFoods(ctx)
	if err != nil {
		return nil, storeErr("list foods", err)
	}

	cands := make([]fuzzy.Candidate, 0, len(foods))
	for _, f := range foods {
		// Pending and rejected foods exist for the approval workflow only.
		if f.Status != store.StatusApproved {
			continue
		}
		cands = append(cands, fuzzy.Candidate{ID: f.ID, Fields: []string{f.Name}, Canonical: !f.IsAlias()})
	}
	cat := &catalog{
		arena: alias.NewArena(foods),
		foods: fuzzy.NewIndex(e.norm, cands),
	}
	if !withUnits {
		return cat, nil
	}

	units, err := e.store.ListUnits(ctx)
	if err != nil {
		return nil, storeErr("list units", err)
	}
	cat.units = make(map[string]store.Unit, len(units))
	ucands := make([]fuzzy.Candidate, len(units))
	for i, u := range units {
		cat.units[u.ID] = u
		ucands[i] = fuzzy.Candidate{ID: u.ID, Fields: []string{u.Name, u.Plural, u.Abbreviation}, Canonical: true}
	}
	cat.unitx = fuzzy.NewIndex(e.norm, ucands)
	return cat, nil
}

// resolve follows id's alias chain, logging catalog damage. Unknown ids
// come back unchanged with ok false.
func (e *Engine) resolve(cat *catalog, id string) (alias.Resolution, bool) {
	res, err := cat.arena.Resolve(id)
	if err != nil {
		return alias.Resolution{}, false
	}
	if res.Cycle {
		e.log.Warn("alias cycle in catalog", zap.String("food_id", id), zap.String("stopped_at", res.Food.ID))
	}
	if res.Broken != "" {
		e.log.Warn("alias points at missing food", zap.String("food_id", id), zap.String("missing", res.Broken))
	}
	return res, true
}

// canonicalID maps id to its canonical food id; unknown ids pass through.
func (e *Engine) canonicalID(cat *catalog, id string) string {
	if res, ok := e.resolve(cat, id); ok {
		return res.Food.ID
	}
	return id
}

// storeErr prefixes a store failure with op. Failures that are not one of
// the store's own sentinel errors are also marked ErrStoreUnavailable, and
// the original message is kept.
func storeErr(op string, err error) error {
	switch {
	case errors.Is(err, internalerr.ErrNotFound),
		errors.Is(err, internalerr.ErrInvalidInput),
		errors.Is(err, internalerr.ErrDuplicate),
		errors.Is(err, internalerr.ErrStoreUnavailable):
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, internalerr.ErrStoreUnavailable, err)
}
