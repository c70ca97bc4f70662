package config

import (
	"context"
	"fmt"

	"github.com/cognicore/skafferi/pkg/skafferi/internalerr"
	"github.com/cognicore/skafferi/pkg/skafferi/normalize"
	"github.com/cognicore/skafferi/pkg/skafferi/store"
)

// Loader loads all configuration files
type Loader struct {
	EnginePath  string
	CatalogPath string
}

// Components holds all loaded configuration components
type Components struct {
	Engine  Engine
	Catalog *Catalog // nil when no catalog path is set
}

// Load reads all configuration files. Empty paths fall back to defaults.
func (l *Loader) Load() (*Components, error) {
	comp := &Components{Engine: DefaultEngine()}

	if l.EnginePath != "" {
		eng, err := LoadEngine(l.EnginePath)
		if err != nil {
			return nil, fmt.Errorf("load engine config: %w", err)
		}
		comp.Engine = eng
	}

	if l.CatalogPath != "" {
		cat, err := LoadCatalog(l.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
		comp.Catalog = cat
	}

	return comp, nil
}

// SeedResult counts rows written by Seed
type SeedResult struct {
	Foods   int
	Aliases int
	Units   int
}

// Seed writes cat into st, folding names with norm (the default locale
// when nil). Foods and units already present under the same folded name
// keep their ids, so seeding twice does not duplicate rows. Aliases are
// stored as foods pointing at their canonical food; an alias that names a
// canonical food, or one claimed by two foods, is rejected.
func Seed(ctx context.Context, st store.Store, cat *Catalog, norm *normalize.Normalizer) (SeedResult, error) {
	var res SeedResult
	if cat == nil {
		return res, nil
	}
	if norm == nil {
		norm = normalize.New(normalize.DefaultLocale)
	}
	key := norm.ForMatching

	foods, err := st.ListFoods(ctx)
	if err != nil {
		return res, fmt.Errorf("list foods: %w", err)
	}
	foodIDs := make(map[string]string, len(foods))
	canonical := make(map[string]bool, len(foods))
	for _, f := range foods {
		k := key(f.Name)
		foodIDs[k] = f.ID
		canonical[k] = !f.IsAlias()
	}
	aliasOwner := make(map[string]string) // alias key -> food name, this run

	for _, cf := range cat.Foods {
		k := key(cf.Name)
		if owner, ok := aliasOwner[k]; ok {
			return res, fmt.Errorf("food %q is also listed as an alias of %q: %w", cf.Name, owner, internalerr.ErrInvalidConfig)
		}
		food, err := st.UpsertFood(ctx, store.Food{
			ID:     foodIDs[k],
			Name:   cf.Name,
			Status: cf.Status,
		})
		if err != nil {
			return res, fmt.Errorf("seed food %q: %w", cf.Name, err)
		}
		foodIDs[k] = food.ID
		canonical[k] = true
		res.Foods++

		for _, name := range cf.Aliases {
			ak := key(name)
			if ak == "" || ak == k {
				continue
			}
			if owner, ok := aliasOwner[ak]; ok {
				if owner == cf.Name {
					continue
				}
				return res, fmt.Errorf("alias %q claimed by both %q and %q: %w", name, owner, cf.Name, internalerr.ErrInvalidConfig)
			}
			if canonical[ak] {
				return res, fmt.Errorf("alias %q of %q names an existing food: %w", name, cf.Name, internalerr.ErrInvalidConfig)
			}
			target := food.ID
			alias, err := st.UpsertFood(ctx, store.Food{
				ID:              foodIDs[ak],
				Name:            name,
				Status:          cf.Status,
				CanonicalFoodID: &target,
			})
			if err != nil {
				return res, fmt.Errorf("seed alias %q of %q: %w", name, cf.Name, err)
			}
			foodIDs[ak] = alias.ID
			aliasOwner[ak] = cf.Name
			res.Aliases++
		}
	}

	units, err := st.ListUnits(ctx)
	if err != nil {
		return res, fmt.Errorf("list units: %w", err)
	}
	unitIDs := make(map[string]string, len(units))
	for _, u := range units {
		unitIDs[key(u.Name)] = u.ID
	}

	for _, cu := range cat.Units {
		k := key(cu.Name)
		u, err := st.UpsertUnit(ctx, store.Unit{
			ID:           unitIDs[k],
			Name:         cu.Name,
			Plural:       cu.Plural,
			Abbreviation: cu.Abbreviation,
		})
		if err != nil {
			return res, fmt.Errorf("seed unit %q: %w", cu.Name, err)
		}
		unitIDs[k] = u.ID
		res.Units++
	}

	return res, nil
}
