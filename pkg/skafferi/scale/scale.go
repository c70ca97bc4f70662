package scale

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cognicore/skafferi/pkg/skafferi/internalerr"
)

// plainDecimal accepts "4", "1.5" and ".5"; fractions, ranges and words
// do not parse.
var plainDecimal = regexp.MustCompile(`^(\d+(\.\d+)?|\.\d+)$`)

// ParseQuantity parses a raw recipe quantity. Anything that is not a plain
// decimal number counts as 1.
func ParseQuantity(raw string) float64 {
	s := strings.TrimSpace(raw)
	if !plainDecimal.MatchString(s) {
		return 1
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 1
	}
	return v
}

// ValidateYield rejects a recipe yield that cannot be scaled from.
// Callers check it before calling Scale.
func ValidateYield(originalYield float64) error {
	if !(originalYield > 0) {
		return fmt.Errorf("yield %v: %w", originalYield, internalerr.ErrInvalidYield)
	}
	return nil
}

// Factor returns target/originalYield, or exactly 1 when target is nil or
// equal to the yield.
func Factor(originalYield float64, target *float64) float64 {
	if target == nil || *target == originalYield {
		return 1
	}
	return *target / originalYield
}

// Scale parses raw and multiplies it by Factor. When no scaling applies the
// parsed value is returned untouched.
//
//	Scale("3", 4, ptr(6)) == 4.5
//	Scale("1/2", 4, ptr(8)) == 2   // "1/2" does not parse, counts as 1
func Scale(raw string, originalYield float64, target *float64) float64 {
	q := ParseQuantity(raw)
	if target == nil || *target == originalYield {
		return q
	}
	return q * (*target / originalYield)
}
