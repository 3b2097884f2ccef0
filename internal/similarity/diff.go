package similarity

import (
	"strings"

	"doc-compare/internal/models"
)

// RenderDiff aligns the whitespace-separated tokens of a and b with a longest
// common subsequence and tags each token as equal, removed from a, or added in b.
func RenderDiff(a, b string) []models.DiffToken {
	return diffTokens(strings.Fields(a), strings.Fields(b))
}

// RenderLineDiff is RenderDiff over lines instead of tokens.
func RenderLineDiff(a, b string) []models.DiffToken {
	return diffTokens(splitLines(a), splitLines(b))
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// diffTokens keeps the common prefix and suffix as equal tokens and aligns
// the rest with Hirschberg's algorithm, which needs memory linear in len(b).
func diffTokens(a, b []string) []models.DiffToken {
	tokens := make([]models.DiffToken, 0, max(len(a), len(b)))

	prefix := 0
	for prefix < len(a) && prefix < len(b) && a[prefix] == b[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(a)-prefix && suffix < len(b)-prefix && a[len(a)-1-suffix] == b[len(b)-1-suffix] {
		suffix++
	}

	tokens = appendOp(tokens, models.DiffEqual, a[:prefix])
	tokens = hirschberg(tokens, a[prefix:len(a)-suffix], b[prefix:len(b)-suffix])
	return appendOp(tokens, models.DiffEqual, a[len(a)-suffix:])
}

func hirschberg(tokens []models.DiffToken, a, b []string) []models.DiffToken {
	switch {
	case len(a) == 0:
		return appendOp(tokens, models.DiffAdded, b)
	case len(b) == 0:
		return appendOp(tokens, models.DiffRemoved, a)
	case len(a) == 1:
		for j, t := range b {
			if t == a[0] {
				tokens = appendOp(tokens, models.DiffAdded, b[:j])
				tokens = append(tokens, models.DiffToken{Op: models.DiffEqual, Text: t})
				return appendOp(tokens, models.DiffAdded, b[j+1:])
			}
		}
		tokens = append(tokens, models.DiffToken{Op: models.DiffRemoved, Text: a[0]})
		return appendOp(tokens, models.DiffAdded, b)
	}

	mid := len(a) / 2
	head := lcsPrefixRow(a[:mid], b)
	tail := lcsSuffixRow(a[mid:], b)

	split, best := 0, -1
	for k := range head {
		if v := head[k] + tail[k]; v > best {
			split, best = k, v
		}
	}

	tokens = hirschberg(tokens, a[:mid], b[:split])
	return hirschberg(tokens, a[mid:], b[split:])
}

// lcsPrefixRow returns row with row[k] = LCS length of a and b[:k].
func lcsPrefixRow(a, b []string) []int {
	row := make([]int, len(b)+1)
	for _, x := range a {
		diag := 0
		for j := 1; j <= len(b); j++ {
			up := row[j]
			if x == b[j-1] {
				row[j] = diag + 1
			} else {
				row[j] = max(row[j], row[j-1])
			}
			diag = up
		}
	}
	return row
}

// lcsSuffixRow returns row with row[k] = LCS length of a and b[k:].
func lcsSuffixRow(a, b []string) []int {
	row := make([]int, len(b)+1)
	for i := len(a) - 1; i >= 0; i-- {
		diag := 0
		for j := len(b) - 1; j >= 0; j-- {
			down := row[j]
			if a[i] == b[j] {
				row[j] = diag + 1
			} else {
				row[j] = max(row[j], row[j+1])
			}
			diag = down
		}
	}
	return row
}

func appendOp(tokens []models.DiffToken, op models.DiffOp, texts []string) []models.DiffToken {
	for _, t := range texts {
		tokens = append(tokens, models.DiffToken{Op: op, Text: t})
	}
	return tokens
}
