package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// DefaultLocale is the catalog locale used by the package-level helpers.
var DefaultLocale = language.Swedish

// Normalizer folds free-text ingredient and unit mentions into the form used
// for comparison. The folding is done here instead of relying on the
// collation of whatever store holds the catalog: some collations do not
// case-fold Å/Ä/Ö, so "ÄGG" and "ägg" would compare unequal.
//
// A Normalizer is safe for concurrent use.
type Normalizer struct {
	tag language.Tag
}

// New creates a Normalizer for the given locale.
func New(tag language.Tag) *Normalizer {
	return &Normalizer{tag: tag}
}

// NewFromString parses a BCP 47 locale such as "sv" or "en-GB".
// Unknown or malformed locales fall back to DefaultLocale.
func NewFromString(locale string) *Normalizer {
	tag, err := language.Parse(locale)
	if err != nil || locale == "" {
		tag = DefaultLocale
	}
	return New(tag)
}

// Locale returns the locale the normalizer folds with.
func (n *Normalizer) Locale() language.Tag {
	return n.tag
}

// Fold composes the string to NFC and lower-cases it with the locale's rules.
// Diacritics are kept: in Swedish å, ä and ö are letters of their own.
func (n *Normalizer) Fold(s string) string {
	// cases.Caser keeps state, so each call gets its own.
	lower := cases.Lower(n.tag)
	return lower.String(norm.NFC.String(s))
}

// ForMatching returns the comparison key for s: folded, with parenthetical
// modifiers removed and whitespace collapsed. The phrase is kept whole.
//
//	"Mjölk (3%)"        -> "mjölk"
//	"  Crème  fraîche " -> "crème fraîche"
func (n *Normalizer) ForMatching(s string) string {
	s = StripParentheticals(s)
	s = n.Fold(s)
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}

// StripParentheticals removes "(...)" groups, including nested ones.
// An unbalanced "(" drops the rest of the string; a stray ")" is dropped.
func StripParentheticals(s string) string {
	if !strings.ContainsAny(s, "()") {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	depth := 0
	for _, r := range s {
		switch {
		case r == '(':
			depth++
			sb.WriteByte(' ')
		case r == ')':
			if depth > 0 {
				depth--
			}
		case depth == 0:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

var defaultNormalizer = New(DefaultLocale)

// Fold folds s with the default locale.
func Fold(s string) string {
	return defaultNormalizer.Fold(s)
}

// ForMatching returns the comparison key for s with the default locale.
func ForMatching(s string) string {
	return defaultNormalizer.ForMatching(s)
}
