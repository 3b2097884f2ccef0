package segment

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"doc-compare/internal/config"
	"doc-compare/internal/models"
	"doc-compare/internal/textlayout"
)

// layoutHeadingRe is the numbering pattern with an optional prefix word
// ("Article 3", "Chapitre 2.1.") and an optional title.
var layoutHeadingRe = regexp.MustCompile(`^\s*(?:\p{L}+\.?\s+)?(\d+(?:\.\d+)*)\.?(?:\s+(.*))?$`)

// Heading is a heading candidate found by layout analysis
type Heading struct {
	Page   int
	Y      float64
	Text   string
	Number string
	Title  string
	// Size is the average size of the glyphs of the number.
	Size float64
}

// Layout segments a positioned glyph stream on large numbered lines
type Layout struct {
	cfg config.LayoutConfig
}

// NewLayout creates the typographic layout segmenter
func NewLayout(cfg config.LayoutConfig) *Layout {
	return &Layout{cfg: cfg}
}

func (*Layout) Strategy() Strategy { return StrategyLayout }

// DetectHeadings returns heading candidates in reading order, duplicates included.
func (l *Layout) DetectHeadings(spans []models.PositionedSpan) []Heading {
	var headings []Heading
	for _, line := range textlayout.GroupLines(spans, l.cfg.LineTolerance) {
		if h, ok := l.heading(line); ok {
			headings = append(headings, h)
		}
	}
	return headings
}

func (l *Layout) heading(line textlayout.Line) (Heading, bool) {
	text := line.Text()
	m := layoutHeadingRe.FindStringSubmatchIndex(text)
	if m == nil {
		return Heading{}, false
	}
	numStart, numEnd := m[2], m[3]

	// average the sizes of the glyphs that make up the number and its trailing dot
	if numEnd < len(text) && text[numEnd] == '.' {
		numEnd++
	}
	// spans may be multi-glyph runs; each is weighted by the runes it shares with the number
	var sum float64
	var n int
	offset := 0
	for _, s := range line.Spans {
		lo, hi := max(offset, numStart), min(offset+len(s.Text), numEnd)
		if lo < hi {
			runes := utf8.RuneCountInString(text[lo:hi])
			sum += s.Size * float64(runes)
			n += runes
		}
		offset += len(s.Text)
	}
	if n == 0 || sum/float64(n) < l.cfg.HeadingMinSize {
		return Heading{}, false
	}

	h := Heading{
		Page:   line.Page,
		Y:      line.Y,
		Text:   text,
		Number: text[m[2]:m[3]],
		Size:   sum / float64(n),
	}
	if m[4] >= 0 {
		h.Title = strings.TrimSpace(text[m[4]:m[5]])
	}
	return h, true
}

// Segment assigns the synthetic keys "1.", "2.", ... to successive heading
// candidates. Each section holds the heading title followed by the lines up
// to the next candidate; lines before the first candidate are dropped.
func (l *Layout) Segment(_ context.Context, in Input) (Result, error) {
	res := Result{Sections: models.SectionMap{}}

	var key models.SectionKey
	var lines []string
	count := 0

	flush := func() {
		if count > 0 {
			res.Sections[key] = strings.Join(lines, "\n")
		}
	}

	for _, line := range textlayout.GroupLines(in.Spans, l.cfg.LineTolerance) {
		if h, ok := l.heading(line); ok {
			flush()
			count++
			key = models.SectionKey(fmt.Sprintf("%d.", count))
			lines = nil
			if h.Title != "" {
				lines = append(lines, h.Title)
			}
			continue
		}
		if count > 0 {
			lines = append(lines, line.Text())
		}
	}
	flush()

	return res, nil
}
