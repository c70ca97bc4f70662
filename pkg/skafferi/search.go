package skafferi

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cognicore/skafferi/pkg/skafferi/fuzzy"
	"github.com/cognicore/skafferi/pkg/skafferi/internalerr"
	"github.com/cognicore/skafferi/pkg/skafferi/store"
)

// RankedFood is a food search hit. When the matched food is an alias,
// AliasOf and CanonicalName describe the food it stands for.
type RankedFood struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Rank          float64          `json:"rank"`
	Status        store.FoodStatus `json:"status"`
	IsAlias       bool             `json:"is_alias"`
	AliasOf       string           `json:"alias_of,omitempty"`
	CanonicalName string           `json:"canonical_name,omitempty"`
}

// RankedUnit is a unit search hit
type RankedUnit struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Plural       string  `json:"plural"`
	Abbreviation string  `json:"abbreviation"`
	Rank         float64 `json:"rank"`
}

// SearchFood ranks approved foods against query. Results are not filtered
// by the acceptance threshold; callers that need a resolution use
// fuzzy.Accept on the rank.
func (e *Engine) SearchFood(ctx context.Context, query string, limit int) ([]RankedFood, error) {
	cat, err := e.loadCatalog(ctx, false)
	if err != nil {
		return nil, err
	}
	return e.searchFood(cat, query, e.cfg.ClampLimit(limit)), nil
}

func (e *Engine) searchFood(cat *catalog, query string, limit int) []RankedFood {
	hits := cat.foods.Match(query, limit)
	out := make([]RankedFood, 0, len(hits))
	for _, h := range hits {
		f, _ := cat.arena.Get(h.ID)
		rf := RankedFood{ID: f.ID, Name: f.Name, Rank: h.Rank, Status: f.Status}
		if f.IsAlias() {
			rf.IsAlias = true
			if res, ok := e.resolve(cat, f.ID); ok && res.Alias {
				rf.AliasOf = res.Food.ID
				rf.CanonicalName = res.Food.Name
			}
		}
		out = append(out, rf)
	}
	return out
}

// SearchUnit ranks units against query on name, plural and abbreviation.
func (e *Engine) SearchUnit(ctx context.Context, query string, limit int) ([]RankedUnit, error) {
	cat, err := e.loadCatalog(ctx, true)
	if err != nil {
		return nil, err
	}
	return searchUnit(cat, query, e.cfg.ClampLimit(limit)), nil
}

func searchUnit(cat *catalog, query string, limit int) []RankedUnit {
	hits := cat.unitx.Match(query, limit)
	out := make([]RankedUnit, 0, len(hits))
	for _, h := range hits {
		u := cat.units[h.ID]
		out = append(out, RankedUnit{
			ID:           u.ID,
			Name:         u.Name,
			Plural:       u.Plural,
			Abbreviation: u.Abbreviation,
			Rank:         h.Rank,
		})
	}
	return out
}

// ResolveMention fills in FoodID and UnitID of an authored ingredient from
// its raw text. Only matches above the acceptance threshold are used, and an
// alias food is replaced by its canonical food, including one already set
// on m. The raw strings are never modified.
func (e *Engine) ResolveMention(ctx context.Context, m store.IngredientMention) (store.IngredientMention, error) {
	cat, err := e.loadCatalog(ctx, true)
	if err != nil {
		return m, err
	}
	return e.resolveMention(cat, m), nil
}

func (e *Engine) resolveMention(cat *catalog, m store.IngredientMention) store.IngredientMention {
	if m.FoodID == nil && strings.TrimSpace(m.Name) != "" {
		if best, ok := fuzzy.Best(cat.foods.Match(m.Name, 1), e.cfg.AcceptThreshold); ok {
			id := e.canonicalID(cat, best.ID)
			m.FoodID = &id
			e.log.Debug("resolved ingredient", zap.String("text", m.Name), zap.String("food_id", id), zap.Float64("rank", best.Rank))
		} else {
			e.log.Debug("ingredient left unresolved", zap.String("text", m.Name))
		}
	} else if m.FoodID != nil {
		id := e.canonicalID(cat, *m.FoodID)
		m.FoodID = &id
	}

	if m.UnitID == nil && strings.TrimSpace(m.Measurement) != "" {
		if best, ok := fuzzy.Best(cat.unitx.Match(m.Measurement, 1), e.cfg.AcceptThreshold); ok {
			id := best.ID
			m.UnitID = &id
		}
	}
	return m
}

// ImportRecipe resolves every ingredient of r and stores it.
func (e *Engine) ImportRecipe(ctx context.Context, r store.Recipe) (store.Recipe, error) {
	if strings.TrimSpace(r.Name) == "" {
		return store.Recipe{}, fmt.Errorf("recipe name is empty: %w", internalerr.ErrInvalidInput)
	}
	cat, err := e.loadCatalog(ctx, true)
	if err != nil {
		return store.Recipe{}, err
	}

	ings := make([]store.IngredientMention, len(r.Ingredients))
	resolved := 0
	for i, m := range r.Ingredients {
		ings[i] = e.resolveMention(cat, m)
		if ings[i].FoodID != nil {
			resolved++
		}
	}
	r.Ingredients = ings
	r.UpdatedAt = e.now()

	saved, err := e.store.UpsertRecipe(ctx, r)
	if err != nil {
		return store.Recipe{}, storeErr("store recipe", err)
	}
	e.log.Info("recipe imported",
		zap.String("recipe_id", saved.ID),
		zap.Int("ingredients", len(ings)),
		zap.Int("resolved", resolved))
	return saved, nil
}
