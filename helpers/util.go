package helpers

import (
	"math"
	"regexp"
	"strings"
)

var repeatedSpace = regexp.MustCompile(`\s\s+`)

// Round2 rounds to two decimal places, half away from zero
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// CompactMarkup drops whitespace runs and newlines from raw markup so that
// text nodes between tags do not survive as noise.
func CompactMarkup(raw string) string {
	return strings.ReplaceAll(repeatedSpace.ReplaceAllString(raw, ""), "\n", "")
}
