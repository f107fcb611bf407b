package scoring

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// ReadingAccuracy compares what the user read back with the reference text.
// The result is the case-insensitive Ratcliff/Obershelp similarity ratio
// scaled to [0, 100] and rounded to two decimals. An empty reference scores 0.
func ReadingAccuracy(reference, observed string) float64 {
	if reference == "" {
		return 0
	}

	matcher := difflib.NewMatcher(
		splitRunes(strings.ToLower(reference)),
		splitRunes(strings.ToLower(observed)),
	)
	return Round(matcher.Ratio()*100, 2)
}

func splitRunes(s string) []string {
	runes := make([]string, 0, len(s))
	for _, r := range s {
		runes = append(runes, string(r))
	}
	return runes
}
