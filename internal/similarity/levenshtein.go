// Package similarity scores and annotates differences between two texts.
package similarity

import (
	"doc-compare/internal/models"
)

// Levenshtein returns the edit distance between a and b counted over runes,
// with unit cost for insertion, deletion and substitution.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) < len(rb) {
		ra, rb = rb, ra
	}
	if len(rb) == 0 {
		return len(ra)
	}

	// Two rows over the shorter string keep memory at O(min(len(a), len(b))).
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}

// Compute scores a against b. Similarity is 1 - distance/max(len) and 0 when
// both texts are empty.
func Compute(a, b string) models.Score {
	la, lb := len([]rune(a)), len([]rune(b))
	distance := Levenshtein(a, b)

	var sim float64
	if longest := max(la, lb); longest > 0 {
		sim = 1 - float64(distance)/float64(longest)
	}

	return models.Score{
		Distance:   distance,
		Similarity: sim,
		LengthA:    la,
		LengthB:    lb,
	}
}
