package fuzzy

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/cognicore/skafferi/pkg/skafferi/normalize"
)

// DefaultThreshold is the rank a match must exceed before import and
// normalization callers may treat it as a resolution.
const DefaultThreshold = 0.5

// Candidate is one catalog entry offered to the matcher.
// Fields holds its text forms; Fields[0] is the display name and the
// remaining ones (plural, abbreviation) are alternative spellings.
type Candidate struct {
	ID        string
	Fields    []string
	Canonical bool
}

// Ranked is a candidate scored against a query.
type Ranked struct {
	ID        string
	Name      string  // Fields[0] of the candidate, unmodified
	Rank      float64 // similarity in [0,1]
	Field     int     // index of the best-matching field
	Canonical bool
}

// Accept reports whether r clears threshold. Ranks equal to the threshold
// do not.
func Accept(r Ranked, threshold float64) bool {
	return r.Rank > threshold
}

// Best returns the first ranked match that clears threshold.
// Results from Match are already sorted, so that is the top entry or nothing.
func Best(results []Ranked, threshold float64) (Ranked, bool) {
	if len(results) == 0 || !Accept(results[0], threshold) {
		return Ranked{}, false
	}
	return results[0], true
}

type entry struct {
	cand  Candidate
	keys  []string
	grams []trigramSet
}

// Index holds candidates with their comparison keys and trigram sets
// precomputed. It is read-only after construction and safe for concurrent use.
type Index struct {
	norm    *normalize.Normalizer
	entries []entry
}

// NewIndex folds every candidate field with n and precomputes trigrams.
// Empty fields are ignored.
func NewIndex(n *normalize.Normalizer, cands []Candidate) *Index {
	idx := &Index{norm: n, entries: make([]entry, 0, len(cands))}
	for _, c := range cands {
		e := entry{cand: c}
		for _, f := range c.Fields {
			key := n.ForMatching(f)
			if key == "" {
				e.keys = append(e.keys, "")
				e.grams = append(e.grams, nil)
				continue
			}
			e.keys = append(e.keys, key)
			e.grams = append(e.grams, trigrams(key))
		}
		idx.entries = append(idx.entries, e)
	}
	return idx
}

// Len returns the number of indexed candidates.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Match ranks the indexed candidates against query and returns at most
// limit results (limit <= 0 means all). Candidates that share nothing with
// the query are omitted. No threshold is applied here; see Accept.
//
// Single-character queries only prefix-match, since one character carries
// too few trigrams to rank on.
func (idx *Index) Match(query string, limit int) []Ranked {
	q := idx.norm.ForMatching(query)
	if q == "" {
		return nil
	}

	var results []Ranked
	if utf8.RuneCountInString(q) == 1 {
		results = idx.prefixMatch(q)
	} else {
		results = idx.similarityMatch(q)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return less(results[i], results[j])
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

func (idx *Index) similarityMatch(q string) []Ranked {
	qg := trigrams(q)
	var results []Ranked
	for _, e := range idx.entries {
		best, bestField := 0.0, -1
		for i, key := range e.keys {
			if key == "" {
				continue
			}
			var rank float64
			if key == q {
				rank = 1
			} else {
				rank = similarity(qg, e.grams[i])
			}
			if rank > best {
				best, bestField = rank, i
			}
		}
		if bestField < 0 {
			continue
		}
		results = append(results, e.ranked(best, bestField))
	}
	return results
}

func (idx *Index) prefixMatch(q string) []Ranked {
	var results []Ranked
	for _, e := range idx.entries {
		best, bestField := 0.0, -1
		for i, key := range e.keys {
			if key == "" || !strings.HasPrefix(key, q) {
				continue
			}
			rank := 1 / float64(utf8.RuneCountInString(key))
			if rank > best {
				best, bestField = rank, i
			}
		}
		if bestField < 0 {
			continue
		}
		results = append(results, e.ranked(best, bestField))
	}
	return results
}

func (e entry) ranked(rank float64, field int) Ranked {
	r := Ranked{
		ID:        e.cand.ID,
		Rank:      rank,
		Field:     field,
		Canonical: e.cand.Canonical,
	}
	if len(e.cand.Fields) > 0 {
		r.Name = e.cand.Fields[0]
	}
	return r
}

// less orders by rank, then canonical before alias, then shorter name,
// then id so equal inputs always produce the same order.
func less(a, b Ranked) bool {
	if a.Rank != b.Rank {
		return a.Rank > b.Rank
	}
	if a.Canonical != b.Canonical {
		return a.Canonical
	}
	la, lb := utf8.RuneCountInString(a.Name), utf8.RuneCountInString(b.Name)
	if la != lb {
		return la < lb
	}
	return a.ID < b.ID
}

// Match is a convenience wrapper that indexes cands and matches query in
// one call, using the default locale.
func Match(query string, cands []Candidate, limit int) []Ranked {
	return NewIndex(normalize.NewFromString(""), cands).Match(query, limit)
}
