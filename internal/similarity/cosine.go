package similarity

import (
	"math"
	"strings"
	"unicode"
)

// Cosine returns the cosine similarity of the word-count vectors of a and b.
// Words are lower-cased runs of letters and digits. Returns 0 if either text has no words.
func Cosine(a, b string) float64 {
	va, vb := wordCounts(a), wordCounts(b)
	if len(va) == 0 || len(vb) == 0 {
		return 0
	}

	var dot, na, nb float64
	for w, ca := range va {
		na += float64(ca * ca)
		if cb, ok := vb[w]; ok {
			dot += float64(ca * cb)
		}
	}
	for _, cb := range vb {
		nb += float64(cb * cb)
	}

	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func wordCounts(text string) map[string]int {
	counts := make(map[string]int)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		// single characters carry no signal, as with a default CountVectorizer
		if len([]rune(w)) < 2 {
			continue
		}
		counts[w]++
	}
	return counts
}
