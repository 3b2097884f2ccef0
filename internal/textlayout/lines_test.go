package textlayout

import (
	"testing"

	"doc-compare/internal/models"
)

func glyph(s string, page int, x, y float64) models.PositionedSpan {
	return models.PositionedSpan{TextSpan: models.TextSpan{Text: s, Size: 10, Page: page}, X: x, Y: y}
}

func TestGroupLines(t *testing.T) {
	spans := []models.PositionedSpan{
		glyph("b", 1, 20, 100.2),
		glyph("d", 2, 10, 50),
		glyph("a", 1, 10, 99.9),
		glyph("y", 1, 20, 80),
		glyph("x", 1, 10, 80.4),
	}

	lines := GroupLines(spans, 1)
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}

	want := []string{"xy", "ab", "d"}
	for i, l := range lines {
		if l.Text() != want[i] {
			t.Errorf("line %d = %q, want %q", i, l.Text(), want[i])
		}
	}
	if lines[2].Page != 2 {
		t.Errorf("last line page = %d, want 2", lines[2].Page)
	}
}

func TestGroupLinesEmpty(t *testing.T) {
	if lines := GroupLines(nil, 1); lines != nil {
		t.Errorf("expected nil, got %v", lines)
	}
}
