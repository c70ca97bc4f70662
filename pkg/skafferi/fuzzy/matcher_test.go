package fuzzy

import (
	"math"
	"testing"

	"github.com/cognicore/skafferi/pkg/skafferi/normalize"
)

func swedishUnits() []Candidate {
	return []Candidate{
		{ID: "u-msk", Fields: []string{"matsked", "matskedar", "msk"}, Canonical: true},
		{ID: "u-tsk", Fields: []string{"tesked", "teskedar", "tsk"}, Canonical: true},
		{ID: "u-krm", Fields: []string{"kryddmått", "kryddmått", "krm"}, Canonical: true},
		{ID: "u-dl", Fields: []string{"deciliter", "deciliter", "dl"}, Canonical: true},
		{ID: "u-l", Fields: []string{"liter", "liter", "l"}, Canonical: true},
		{ID: "u-g", Fields: []string{"gram", "gram", "g"}, Canonical: true},
		{ID: "u-kg", Fields: []string{"kilogram", "kilogram", "kg"}, Canonical: true},
		{ID: "u-st", Fields: []string{"stycken", "stycken", "st"}, Canonical: true},
		{ID: "u-fp", Fields: []string{"förpackning", "förpackningar", "förp"}, Canonical: true},
	}
}

func swedishFoods() []Candidate {
	return []Candidate{
		{ID: "f-agg", Fields: []string{"Ägg"}, Canonical: true},
		{ID: "f-mjolk", Fields: []string{"Mjölk"}, Canonical: true},
		{ID: "f-mjol", Fields: []string{"Vetemjöl"}, Canonical: true},
		{ID: "f-smor", Fields: []string{"Smör"}, Canonical: true},
		{ID: "f-gradde", Fields: []string{"Vispgrädde"}, Canonical: true},
		{ID: "f-gradde-alias", Fields: []string{"Grädde"}, Canonical: false},
		{ID: "f-tomat", Fields: []string{"Tomat"}, Canonical: true},
		{ID: "f-krossad", Fields: []string{"Krossade tomater"}, Canonical: true},
	}
}

func TestAbbreviationResolvesToUnit(t *testing.T) {
	idx := NewIndex(normalize.New(normalize.DefaultLocale), swedishUnits())

	tests := []struct {
		query string
		want  string
	}{
		{"msk", "matsked"},
		{"dl", "deciliter"},
		{"tsk", "tesked"},
		{"g", "gram"},
		{"st", "stycken"},
		{"krm", "kryddmått"},
		{"MSK", "matsked"},
		{"Matskedar", "matsked"},
	}

	for _, tc := range tests {
		got, ok := Best(idx.Match(tc.query, 5), DefaultThreshold)
		if !ok {
			t.Errorf("query %q: no accepted match", tc.query)
			continue
		}
		if got.Name != tc.want {
			t.Errorf("query %q: got %q (rank %.3f); want %q", tc.query, got.Name, got.Rank, tc.want)
		}
	}
}

func TestAccentedQueryMatchesCanonicalName(t *testing.T) {
	idx := NewIndex(normalize.New(normalize.DefaultLocale), swedishFoods())

	for _, q := range []string{"ägg", "ÄGG", "Ägg", "Ägg"} {
		res := idx.Match(q, 3)
		if len(res) == 0 {
			t.Fatalf("query %q: no results", q)
		}
		if res[0].Name != "Ägg" {
			t.Errorf("query %q: top result %q; want %q", q, res[0].Name, "Ägg")
		}
		if res[0].Rank != 1 {
			t.Errorf("query %q: rank %v; want exact match 1", q, res[0].Rank)
		}
	}
}

func TestGibberishHasNoAcceptedMatch(t *testing.T) {
	cands := append(swedishFoods(), swedishUnits()...)
	res := Match("xyzqwrtyuioplkjhgfds", cands, 10)
	if _, ok := Best(res, DefaultThreshold); ok {
		t.Errorf("gibberish query accepted a match: %+v", res[0])
	}
	for _, r := range res {
		if Accept(r, DefaultThreshold) {
			t.Errorf("result %q rank %.3f should not clear threshold", r.Name, r.Rank)
		}
	}
}

func TestEmptyQueries(t *testing.T) {
	cands := swedishFoods()
	for _, q := range []string{"", "   ", "\t\n", "(ingenting)"} {
		if res := Match(q, cands, 10); len(res) != 0 {
			t.Errorf("query %q: expected no results, got %d", q, len(res))
		}
	}
}

func TestSingleCharacterIsPrefixOnly(t *testing.T) {
	cands := []Candidate{
		{ID: "1", Fields: []string{"Salt"}, Canonical: true},
		{ID: "2", Fields: []string{"Socker"}, Canonical: true},
		{ID: "3", Fields: []string{"Basilika"}, Canonical: true}, // contains "s" but not as prefix
	}

	res := Match("s", cands, 10)
	if len(res) != 2 {
		t.Fatalf("expected 2 prefix matches, got %d: %+v", len(res), res)
	}
	for _, r := range res {
		if r.ID == "3" {
			t.Error("single-character query must not match inside a word")
		}
	}
	// Shorter name gets the higher rank
	if res[0].Name != "Salt" {
		t.Errorf("expected Salt first, got %q", res[0].Name)
	}
}

func TestTieBreakPrefersCanonicalThenShorter(t *testing.T) {
	cands := []Candidate{
		{ID: "alias", Fields: []string{"Lök"}, Canonical: false},
		{ID: "canon", Fields: []string{"Lök"}, Canonical: true},
	}
	res := Match("lök", cands, 10)
	if len(res) != 2 || res[0].ID != "canon" {
		t.Fatalf("expected canonical first, got %+v", res)
	}

	// "aaaa" and "aab" both yield four trigrams, so the two names tie on rank.
	cands = []Candidate{
		{ID: "long", Fields: []string{"Gul lök aaaa"}, Canonical: true},
		{ID: "short", Fields: []string{"Gul lök aab"}, Canonical: true},
	}
	res = Match("gul lök", cands, 10)
	if len(res) != 2 || res[0].Rank != res[1].Rank {
		t.Fatalf("expected two equally ranked results, got %+v", res)
	}
	if res[0].ID != "short" {
		t.Errorf("expected shorter name first on equal rank, got %q", res[0].ID)
	}
}

func TestBestFieldCounts(t *testing.T) {
	cands := []Candidate{{ID: "u", Fields: []string{"förpackning", "förpackningar", "förp"}, Canonical: true}}
	res := Match("förp", cands, 1)
	if len(res) != 1 || res[0].Field != 2 || res[0].Rank != 1 {
		t.Errorf("expected abbreviation field to win with rank 1, got %+v", res)
	}
}

func TestLimit(t *testing.T) {
	res := Match("ma", swedishUnits(), 1)
	if len(res) > 1 {
		t.Errorf("limit 1 returned %d results", len(res))
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"ägg", "ägg", 1},
		{"abc", "xyz", 0},
		// {"  a"," ab","abc","bc "} vs {"  a"," ab","abd","bd "}: 2 shared of 6
		{"abc", "abd", 2.0 / 6.0},
		{"", "abc", 0},
	}
	for _, tc := range tests {
		if got := Similarity(tc.a, tc.b); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("Similarity(%q, %q) = %v; want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestRanksWithinUnitInterval(t *testing.T) {
	cands := append(swedishFoods(), swedishUnits()...)
	for _, q := range []string{"mjöl", "tomater", "grädde", "k", "liter"} {
		for _, r := range Match(q, cands, 0) {
			if r.Rank <= 0 || r.Rank > 1 {
				t.Errorf("query %q: rank %v out of (0,1] for %q", q, r.Rank, r.Name)
			}
		}
	}
}
