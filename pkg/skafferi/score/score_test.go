package score

import (
	"reflect"
	"testing"
	"time"

	"github.com/cognicore/skafferi/pkg/skafferi/store"
)

func ids(vals ...string) []*string {
	out := make([]*string, len(vals))
	for i, v := range vals {
		if v == "" {
			continue
		}
		v := v
		out[i] = &v
	}
	return out
}

func TestScore(t *testing.T) {
	tests := []struct {
		name       string
		recipe     []*string
		pantry     []string
		percentage float64
		matching   int
		total      int
		missing    []string
	}{
		{
			name:       "full coverage",
			recipe:     ids("egg", "milk", "flour"),
			pantry:     []string{"egg", "milk", "flour", "salt"},
			percentage: 100, matching: 3, total: 3,
			missing: []string{},
		},
		{
			name:       "partial keeps recipe order",
			recipe:     ids("flour", "egg", "butter", "milk"),
			pantry:     []string{"egg"},
			percentage: 25, matching: 1, total: 4,
			missing: []string{"flour", "butter", "milk"},
		},
		{
			name:       "unresolved ingredients excluded",
			recipe:     ids("egg", "", "", "milk"),
			pantry:     []string{"egg"},
			percentage: 50, matching: 1, total: 2,
			missing: []string{"milk"},
		},
		{
			name:       "nothing resolvable",
			recipe:     ids("", ""),
			pantry:     []string{"egg"},
			percentage: 0, matching: 0, total: 0,
			missing: []string{},
		},
		{
			name:       "empty recipe",
			recipe:     nil,
			pantry:     nil,
			percentage: 0, matching: 0, total: 0,
			missing: []string{},
		},
		{
			name:       "rounded for display",
			recipe:     ids("a", "b", "c"),
			pantry:     []string{"a"},
			percentage: 33, matching: 1, total: 3,
			missing: []string{"b", "c"},
		},
		{
			name:       "duplicate missing reported once",
			recipe:     ids("salt", "egg", "salt"),
			pantry:     nil,
			percentage: 0, matching: 0, total: 3,
			missing: []string{"salt", "egg"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Score(tc.recipe, PantrySet(tc.pantry))
			if got.Percentage != tc.percentage {
				t.Errorf("percentage = %v; want %v", got.Percentage, tc.percentage)
			}
			if got.Matching != tc.matching || got.Total != tc.total {
				t.Errorf("matching/total = %d/%d; want %d/%d", got.Matching, got.Total, tc.matching, tc.total)
			}
			if !reflect.DeepEqual(got.Missing, tc.missing) {
				t.Errorf("missing = %v; want %v", got.Missing, tc.missing)
			}
		})
	}
}

func TestScoreRawIsUnrounded(t *testing.T) {
	got := Score(ids("a", "b", "c"), PantrySet([]string{"a", "b"}))
	if got.Raw <= 66.6 || got.Raw >= 66.7 {
		t.Errorf("raw = %v; want 66.66...", got.Raw)
	}
	if got.Percentage != 67 {
		t.Errorf("percentage = %v; want 67", got.Percentage)
	}
}

func TestRank(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	in := []Scored{
		{Recipe: store.RecipeRef{ID: "old-full", UpdatedAt: now.Add(-48 * time.Hour)}, Result: Result{Raw: 100}},
		{Recipe: store.RecipeRef{ID: "half", UpdatedAt: now}, Result: Result{Raw: 50}},
		{Recipe: store.RecipeRef{ID: "new-full", UpdatedAt: now}, Result: Result{Raw: 100}},
		{Recipe: store.RecipeRef{ID: "low", UpdatedAt: now}, Result: Result{Raw: 10}},
		{Recipe: store.RecipeRef{ID: "edge", UpdatedAt: now}, Result: Result{Raw: 49.9}},
	}

	got := Rank(in, 50, 0)
	var order []string
	for _, s := range got {
		order = append(order, s.Recipe.ID)
	}
	want := []string{"new-full", "old-full", "half"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("order = %v; want %v", order, want)
	}

	if got := Rank(in, 0, 2); len(got) != 2 {
		t.Errorf("limit 2 returned %d", len(got))
	}
}
