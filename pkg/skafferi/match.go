package skafferi

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cognicore/skafferi/pkg/skafferi/internalerr"
	"github.com/cognicore/skafferi/pkg/skafferi/score"
	"github.com/cognicore/skafferi/pkg/skafferi/store"
)

// recipeLoadConcurrency bounds parallel GetRecipe calls while scoring.
const recipeLoadConcurrency = 8

// RankedRecipe is a recipe scored against a pantry
type RankedRecipe struct {
	RecipeID   string    `json:"recipe_id"`
	Name       string    `json:"name"`
	OwnerID    string    `json:"owner_id"`
	UpdatedAt  time.Time `json:"updated_at"`
	Percentage float64   `json:"percentage"`
	Matching   int       `json:"matching"`
	Total      int       `json:"total"`
	Missing    []string  `json:"missing"`
}

// MatchRecipeToPantry scores how well pantryFoodIDs cover a recipe. With a
// recipeID only that recipe is scored; an empty recipeID scores every recipe.
// Results below minPercentage are dropped.
func (e *Engine) MatchRecipeToPantry(ctx context.Context, recipeID string, pantryFoodIDs []string, minPercentage float64, limit int) ([]RankedRecipe, error) {
	if err := checkPercentage(minPercentage); err != nil {
		return nil, err
	}

	var refs []store.RecipeRef
	if recipeID != "" {
		r, err := e.store.GetRecipe(ctx, recipeID)
		if err != nil {
			return nil, storeErr("get recipe", err)
		}
		refs = []store.RecipeRef{{ID: r.ID, OwnerID: r.OwnerID, Name: r.Name, UpdatedAt: r.UpdatedAt}}
	} else {
		var err error
		if refs, err = e.store.ListRecipes(ctx, ""); err != nil {
			return nil, storeErr("list recipes", err)
		}
	}
	return e.rankRecipes(ctx, refs, pantryFoodIDs, minPercentage, limit)
}

// MatchPantryToFoodIDs ranks recipes by how many of their ingredients are
// among foodIDs. An empty ownerFilter considers every owner's recipes.
func (e *Engine) MatchPantryToFoodIDs(ctx context.Context, foodIDs []string, minPercentage float64, ownerFilter string, limit int) ([]RankedRecipe, error) {
	if err := checkPercentage(minPercentage); err != nil {
		return nil, err
	}
	refs, err := e.store.ListRecipes(ctx, ownerFilter)
	if err != nil {
		return nil, storeErr("list recipes", err)
	}
	return e.rankRecipes(ctx, refs, foodIDs, minPercentage, limit)
}

func checkPercentage(p float64) error {
	if math.IsNaN(p) || p < 0 || p > 100 {
		return fmt.Errorf("min percentage %v outside [0, 100]: %w", p, internalerr.ErrInvalidInput)
	}
	return nil
}

// rankRecipes loads refs concurrently, scores them with alias ids folded
// onto their canonical foods on both sides, and ranks the results.
func (e *Engine) rankRecipes(ctx context.Context, refs []store.RecipeRef, pantryFoodIDs []string, minPercentage float64, limit int) ([]RankedRecipe, error) {
	if len(refs) == 0 {
		return []RankedRecipe{}, nil
	}
	cat, err := e.loadCatalog(ctx, false)
	if err != nil {
		return nil, err
	}

	canon := make([]string, len(pantryFoodIDs))
	for i, id := range pantryFoodIDs {
		canon[i] = e.canonicalID(cat, id)
	}
	pantry := score.PantrySet(canon)

	scored := make([]score.Scored, len(refs))
	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(recipeLoadConcurrency)
	for i, ref := range refs {
		eg.Go(func() error {
			r, err := e.store.GetRecipe(egctx, ref.ID)
			if err != nil {
				return storeErr(fmt.Sprintf("load recipe %q", ref.ID), err)
			}
			ids := make([]*string, len(r.Ingredients))
			for j, ing := range r.Ingredients {
				if ing.FoodID == nil {
					continue
				}
				id := e.canonicalID(cat, *ing.FoodID)
				ids[j] = &id
			}
			scored[i] = score.Scored{Recipe: ref, Result: score.Score(ids, pantry)}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	ranked := score.Rank(scored, minPercentage, e.cfg.ClampLimit(limit))
	out := make([]RankedRecipe, len(ranked))
	for i, s := range ranked {
		out[i] = RankedRecipe{
			RecipeID:   s.Recipe.ID,
			Name:       s.Recipe.Name,
			OwnerID:    s.Recipe.OwnerID,
			UpdatedAt:  s.Recipe.UpdatedAt,
			Percentage: s.Result.Percentage,
			Matching:   s.Result.Matching,
			Total:      s.Result.Total,
			Missing:    s.Result.Missing,
		}
	}
	return out, nil
}
