package resolve

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Scorer rates the similarity of two normalized names in [0, 1]. The exact
// formula is a strategy: the resolver only depends on the threshold contract.
type Scorer interface {
	Score(a, b string) float64
}

// LevenshteinScorer scores by normalized edit distance.
type LevenshteinScorer struct{}

// Score returns 1 - distance/maxLen over runes. Identical strings score 1,
// fully dissimilar strings score 0.
func (LevenshteinScorer) Score(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	if longest == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}

// Normalize canonicalizes a mention surface form: lowercase, collapsed
// whitespace. Both the entity registry's unique key and all scoring run over
// this form.
func Normalize(surface string) string {
	return strings.Join(strings.Fields(strings.ToLower(surface)), " ")
}
