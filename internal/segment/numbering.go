package segment

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"doc-compare/internal/models"
)

// headingRe matches "1 Title", "2.1. Title", "  3.4.5 Title".
var headingRe = regexp.MustCompile(`^\s*(\d+(?:\.\d+)*)\.?\s+(.*)$`)

// Numbering segments plain text on numbered heading lines
type Numbering struct{}

// NewNumbering creates the numbering-pattern segmenter
func NewNumbering() *Numbering { return &Numbering{} }

func (*Numbering) Strategy() Strategy { return StrategyNumbering }

// Segment scans lines in order. A heading opens a section keyed by its
// numeric path and seeded with the rest of the heading line; other lines are
// appended to the open section. Lines before the first heading are dropped.
// A repeated key replaces the earlier section.
func (*Numbering) Segment(_ context.Context, in Input) (Result, error) {
	res := Result{Sections: models.SectionMap{}}

	var key models.SectionKey
	var lines []string
	open := false

	flush := func() {
		if open {
			res.Sections[key] = strings.Join(lines, "\n")
		}
	}

	for _, line := range strings.Split(in.Text, "\n") {
		line = strings.TrimSuffix(line, "\r")

		if m := headingRe.FindStringSubmatch(line); m != nil {
			flush()
			key = models.SectionKey(m[1])
			lines = []string{m[2]}
			open = true
			continue
		}

		if startsWithDigit(line) {
			// looked like a heading but did not parse; kept as body text
			res.Skipped++
		}
		if open {
			lines = append(lines, line)
		}
	}
	flush()

	return res, nil
}

func startsWithDigit(line string) bool {
	trimmed := strings.TrimLeftFunc(line, unicode.IsSpace)
	return trimmed != "" && trimmed[0] >= '0' && trimmed[0] <= '9'
}
