// Package render presents diff tokens and comparison results for terminals and browsers.
package render

import (
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"
	"text/tabwriter"

	"doc-compare/internal/models"

	"github.com/microcosm-cc/bluemonday"
)

const (
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
	ansiReset = "\x1b[0m"
)

// Terminal writes word tokens separated by spaces, removed tokens as
// [-text-] and added ones as {+text+}, colored when color is set.
func Terminal(w io.Writer, tokens []models.DiffToken, color bool) error {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = mark(t, color)
	}
	_, err := fmt.Fprintln(w, strings.Join(parts, " "))
	return err
}

// TerminalLines writes one line per token, prefixed like a unified diff.
func TerminalLines(w io.Writer, tokens []models.DiffToken, color bool) error {
	for _, t := range tokens {
		prefix, start, end := "  ", "", ""
		switch t.Op {
		case models.DiffRemoved:
			prefix, start = "- ", ansiRed
		case models.DiffAdded:
			prefix, start = "+ ", ansiGreen
		}
		if !color || start == "" {
			start = ""
		} else {
			end = ansiReset
		}
		if _, err := fmt.Fprintf(w, "%s%s%s%s\n", start, prefix, t.Text, end); err != nil {
			return err
		}
	}
	return nil
}

func mark(t models.DiffToken, color bool) string {
	switch t.Op {
	case models.DiffRemoved:
		if color {
			return ansiRed + "[-" + t.Text + "-]" + ansiReset
		}
		return "[-" + t.Text + "-]"
	case models.DiffAdded:
		if color {
			return ansiGreen + "{+" + t.Text + "+}" + ansiReset
		}
		return "{+" + t.Text + "+}"
	default:
		return t.Text
	}
}

var policy = newPolicy()

// newPolicy allows nothing but span elements with one of the diff classes.
func newPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^(del|ins)$`)).OnElements("span")
	return p
}

// HTML renders word tokens as sanitized markup: removed tokens in
// <span class="del">, added ones in <span class="ins">.
func HTML(tokens []models.DiffToken) string {
	return policy.Sanitize(markup(tokens, " "))
}

// HTMLLines renders line tokens, one per line, for use inside a <pre> block.
func HTMLLines(tokens []models.DiffToken) string {
	return policy.Sanitize(markup(tokens, "\n"))
}

func markup(tokens []models.DiffToken, sep string) string {
	var sb strings.Builder
	for i, t := range tokens {
		if i > 0 {
			sb.WriteString(sep)
		}
		text := html.EscapeString(t.Text)
		switch t.Op {
		case models.DiffRemoved:
			sb.WriteString(`<span class="del">` + text + `</span>`)
		case models.DiffAdded:
			sb.WriteString(`<span class="ins">` + text + `</span>`)
		default:
			sb.WriteString(text)
		}
	}
	return sb.String()
}

// Report writes a plain text summary of a comparison.
func Report(w io.Writer, r *models.ComparisonResult) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "A:\t%s\t(%s, %s, %d paragraphs, %d sections)\n",
		r.DocumentA.Name, r.DocumentA.Format, r.DocumentA.Method, r.DocumentA.Paragraphs, r.DocumentA.Sections)
	fmt.Fprintf(tw, "B:\t%s\t(%s, %s, %d paragraphs, %d sections)\n",
		r.DocumentB.Name, r.DocumentB.Format, r.DocumentB.Method, r.DocumentB.Paragraphs, r.DocumentB.Sections)
	fmt.Fprintf(tw, "Strategy:\t%s\n", r.Strategy)
	fmt.Fprintf(tw, "Document:\tdistance %d\tsimilarity %.2f%%\n", r.Distance, r.Similarity*100)
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(r.UnitResults) == 0 {
		_, err := fmt.Fprintln(w, "\nNo common sections.")
		if err != nil {
			return err
		}
	} else {
		fmt.Fprintln(w)
		fmt.Fprintln(tw, "SECTION\tDISTANCE\tSIMILARITY\tCOSINE")
		for _, u := range r.UnitResults {
			fmt.Fprintf(tw, "%s\t%d\t%.2f%%\t%.2f\n", u.Key, u.Distance, u.Similarity*100, u.Cosine)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(r.OnlyInA) > 0 {
		fmt.Fprintf(w, "Only in A: %s\n", joinKeys(r.OnlyInA))
	}
	if len(r.OnlyInB) > 0 {
		fmt.Fprintf(w, "Only in B: %s\n", joinKeys(r.OnlyInB))
	}

	if n := len(r.ParagraphResults); n > 0 {
		identical := 0
		for _, p := range r.ParagraphResults {
			if p.Distance == 0 {
				identical++
			}
		}
		_, err := fmt.Fprintf(w, "Paragraphs: %d aligned, %d identical\n", n, identical)
		return err
	}
	return nil
}

func joinKeys(keys []models.SectionKey) string {
	s := make([]string, len(keys))
	for i, k := range keys {
		s[i] = string(k)
	}
	return strings.Join(s, ", ")
}
