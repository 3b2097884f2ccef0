package render

import (
	"bytes"
	"strings"
	"testing"

	"doc-compare/internal/models"
)

var tokens = []models.DiffToken{
	{Op: models.DiffEqual, Text: "foo"},
	{Op: models.DiffRemoved, Text: "bar"},
	{Op: models.DiffAdded, Text: "baz"},
}

func TestTerminal(t *testing.T) {
	var buf bytes.Buffer
	if err := Terminal(&buf, tokens, false); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.String(), "foo [-bar-] {+baz+}\n"; got != want {
		t.Errorf("Terminal = %q, want %q", got, want)
	}

	buf.Reset()
	if err := Terminal(&buf, tokens, true); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "\x1b[31m[-bar-]\x1b[0m") {
		t.Errorf("colored output missing red removal: %q", buf.String())
	}
}

func TestTerminalLines(t *testing.T) {
	var buf bytes.Buffer
	if err := TerminalLines(&buf, tokens, false); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.String(), "  foo\n- bar\n+ baz\n"; got != want {
		t.Errorf("TerminalLines = %q, want %q", got, want)
	}
}

func TestHTML(t *testing.T) {
	got := HTML(tokens)
	want := `foo <span class="del">bar</span> <span class="ins">baz</span>`
	if got != want {
		t.Errorf("HTML = %q, want %q", got, want)
	}
}

func TestHTML_EscapesContent(t *testing.T) {
	got := HTML([]models.DiffToken{
		{Op: models.DiffAdded, Text: `<script>alert(1)</script>`},
		{Op: models.DiffEqual, Text: `<b onclick="x">`},
	})
	if strings.Contains(got, "<script>") || strings.Contains(got, "<b ") {
		t.Errorf("HTML let markup through: %q", got)
	}
	if !strings.HasPrefix(got, `<span class="ins">`) {
		t.Errorf("HTML lost the diff span: %q", got)
	}
}

func TestReport(t *testing.T) {
	r := &models.ComparisonResult{
		Strategy: "numbering",
		Score:    models.Score{Distance: 1, Similarity: 0.9375, LengthA: 16, LengthB: 16},
		UnitResults: []models.UnitResult{
			{Key: "1", Score: models.Score{Distance: 1, Similarity: 0.9}, Cosine: 0.5},
		},
		ParagraphResults: []models.UnitResult{{Key: "1"}, {Key: "2", Score: models.Score{Distance: 3}}},
		OnlyInB:          []models.SectionKey{"2", "3"},
		DocumentA:        models.DocumentInfo{Name: "a.txt", Format: "txt", Method: models.MethodNative},
		DocumentB:        models.DocumentInfo{Name: "b.txt", Format: "txt", Method: models.MethodNative},
	}

	var buf bytes.Buffer
	if err := Report(&buf, r); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"a.txt", "similarity 93.75%", "SECTION", "90.00%", "Only in B: 2, 3", "Paragraphs: 2 aligned, 1 identical"} {
		if !strings.Contains(out, want) {
			t.Errorf("report is missing %q:\n%s", want, out)
		}
	}
}
