// Package textlayout rebuilds text lines from a positioned glyph stream.
package textlayout

import (
	"math"
	"sort"
	"strings"

	"doc-compare/internal/models"
)

// Line is a run of spans sharing a page and a rounded vertical position,
// sorted left to right.
type Line struct {
	Page  int
	Y     float64
	Spans []models.PositionedSpan
}

// Text concatenates the spans of the line.
func (l Line) Text() string {
	var sb strings.Builder
	for _, s := range l.Spans {
		sb.WriteString(s.Text)
	}
	return sb.String()
}

type lineKey struct {
	page int
	y    int64
}

// GroupLines buckets spans by page and by Y rounded to the given tolerance
// (1 rounds to the nearest integer). Lines come back in reading order:
// by page, then top to bottom.
func GroupLines(spans []models.PositionedSpan, tolerance float64) []Line {
	if len(spans) == 0 {
		return nil
	}
	if tolerance <= 0 {
		tolerance = 1
	}

	buckets := make(map[lineKey]*Line)
	var order []lineKey
	for _, s := range spans {
		k := lineKey{page: s.Page, y: int64(math.Round(s.Y / tolerance))}
		line, ok := buckets[k]
		if !ok {
			line = &Line{Page: s.Page, Y: float64(k.y) * tolerance}
			buckets[k] = line
			order = append(order, k)
		}
		line.Spans = append(line.Spans, s)
	}

	lines := make([]Line, 0, len(order))
	for _, k := range order {
		line := buckets[k]
		sort.SliceStable(line.Spans, func(i, j int) bool { return line.Spans[i].X < line.Spans[j].X })
		lines = append(lines, *line)
	}

	sort.SliceStable(lines, func(i, j int) bool {
		if lines[i].Page != lines[j].Page {
			return lines[i].Page < lines[j].Page
		}
		return lines[i].Y < lines[j].Y
	})

	return lines
}
