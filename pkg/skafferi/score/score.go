package score

import (
	"math"
	"sort"

	"github.com/cognicore/skafferi/pkg/skafferi/store"
)

// Result is how well a pantry covers one recipe.
type Result struct {
	Percentage float64  // Raw rounded to a whole percent, for display
	Raw        float64  // matching/total*100, unrounded
	Matching   int      // resolved ingredients present in the pantry
	Total      int      // resolved ingredients
	Missing    []string // absent food ids in recipe order, first occurrence only; never nil
}

// Score compares a recipe's ingredient food ids with a pantry. Ingredients
// without a food id are left out entirely; a recipe with none scores 0.
func Score(ingredientFoodIDs []*string, pantry map[string]struct{}) Result {
	res := Result{Missing: []string{}}
	seenMissing := make(map[string]struct{})
	for _, id := range ingredientFoodIDs {
		if id == nil || *id == "" {
			continue
		}
		res.Total++
		if _, ok := pantry[*id]; ok {
			res.Matching++
			continue
		}
		if _, dup := seenMissing[*id]; dup {
			continue
		}
		seenMissing[*id] = struct{}{}
		res.Missing = append(res.Missing, *id)
	}
	if res.Total == 0 {
		return res
	}
	res.Raw = float64(res.Matching) / float64(res.Total) * 100
	res.Percentage = math.Round(res.Raw)
	return res
}

// PantrySet builds the lookup set Score expects.
func PantrySet(foodIDs []string) map[string]struct{} {
	set := make(map[string]struct{}, len(foodIDs))
	for _, id := range foodIDs {
		if id == "" {
			continue
		}
		set[id] = struct{}{}
	}
	return set
}

// Scored pairs a recipe with its result.
type Scored struct {
	Recipe store.RecipeRef
	Result Result
}

// Rank keeps results whose unrounded percentage reaches minPercentage, orders
// them by percentage descending and then by most recently updated, and
// truncates to limit (limit <= 0 keeps all).
func Rank(in []Scored, minPercentage float64, limit int) []Scored {
	out := make([]Scored, 0, len(in))
	for _, s := range in {
		if s.Result.Raw >= minPercentage {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Result.Raw != out[j].Result.Raw {
			return out[i].Result.Raw > out[j].Result.Raw
		}
		return out[i].Recipe.UpdatedAt.After(out[j].Recipe.UpdatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
