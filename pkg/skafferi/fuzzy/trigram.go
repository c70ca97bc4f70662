package fuzzy

import (
	"strings"
	"unicode"
)

// trigramSet is the set of padded character trigrams of a string.
type trigramSet map[string]struct{}

// trigrams splits s into words of letters and digits and collects the
// trigrams of each word padded with two leading blanks and one trailing
// blank, the way PostgreSQL's pg_trgm does. s is expected to be folded.
//
//	"ägg" -> {"  ä", " äg", "ägg", "gg "}
func trigrams(s string) trigramSet {
	set := make(trigramSet)
	words := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		padded := make([]rune, 0, len(w)+3)
		padded = append(padded, ' ', ' ')
		padded = append(padded, []rune(w)...)
		padded = append(padded, ' ')
		for i := 0; i+3 <= len(padded); i++ {
			set[string(padded[i:i+3])] = struct{}{}
		}
	}
	return set
}

// similarity is the Jaccard index of two trigram sets, in [0,1].
func similarity(a, b trigramSet) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	shared := 0
	for g := range small {
		if _, ok := large[g]; ok {
			shared++
		}
	}
	union := len(a) + len(b) - shared
	return float64(shared) / float64(union)
}

// Similarity returns the trigram similarity of two already-folded strings.
func Similarity(a, b string) float64 {
	if a == b && a != "" {
		return 1
	}
	return similarity(trigrams(a), trigrams(b))
}
