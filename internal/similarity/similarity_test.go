package similarity

import (
	"math"
	"runtime"
	"strconv"
	"testing"
	"testing/quick"

	"doc-compare/internal/models"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"foo bar", "foo baz", 1},
		{"résumé", "resume", 2},
		{"Intro\nfoo bar", "Intro\nfoo baz", 1},
	}

	for _, tt := range tests {
		if got := Levenshtein(tt.a, tt.b); got != tt.want {
			t.Errorf("Levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestLevenshteinSymmetric(t *testing.T) {
	f := func(a, b string) bool {
		return Compute(a, b).Distance == Compute(b, a).Distance
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

func TestComputeIdentity(t *testing.T) {
	f := func(a string) bool {
		s := Compute(a, a)
		if a == "" {
			// both empty: similarity is defined as 0
			return s.Distance == 0 && s.Similarity == 0
		}
		return s.Distance == 0 && s.Similarity == 1.0
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

func TestComputeLengthLowerBound(t *testing.T) {
	f := func(a, b string) bool {
		s := Compute(a, b)
		diff := s.LengthA - s.LengthB
		if diff < 0 {
			diff = -diff
		}
		return s.Distance >= diff && s.Similarity >= 0 && s.Similarity <= 1
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

func TestComputeSimilarity(t *testing.T) {
	s := Compute("foo bar", "foo baz")
	if s.Distance != 1 || s.LengthA != 7 || s.LengthB != 7 {
		t.Fatalf("unexpected score %+v", s)
	}
	if want := 1 - 1.0/7.0; math.Abs(s.Similarity-want) > 1e-9 {
		t.Errorf("similarity = %f, want %f", s.Similarity, want)
	}

	empty := Compute("", "")
	if empty != (models.Score{}) {
		t.Errorf("empty score = %+v, want zero value", empty)
	}
}

func TestCosine(t *testing.T) {
	if got := Cosine("the quick fox", "the quick fox"); math.Abs(got-1) > 1e-9 {
		t.Errorf("identical texts cosine = %f, want 1", got)
	}
	if got := Cosine("alpha beta", "gamma delta"); got != 0 {
		t.Errorf("disjoint texts cosine = %f, want 0", got)
	}
	if got := Cosine("", "anything"); got != 0 {
		t.Errorf("empty text cosine = %f, want 0", got)
	}
	got := Cosine("Fichier PDF d'exemple", "Fichier PDF d'exemple2")
	if got <= 0 || got >= 1 {
		t.Errorf("partial overlap cosine = %f, want in (0,1)", got)
	}
}

func TestRenderDiff(t *testing.T) {
	tokens := RenderDiff("the quick brown fox", "the slow brown fox jumps")

	want := []models.DiffToken{
		{Op: models.DiffEqual, Text: "the"},
		{Op: models.DiffRemoved, Text: "quick"},
		{Op: models.DiffAdded, Text: "slow"},
		{Op: models.DiffEqual, Text: "brown"},
		{Op: models.DiffEqual, Text: "fox"},
		{Op: models.DiffAdded, Text: "jumps"},
	}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens %+v, want %d", len(tokens), tokens, len(want))
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Errorf("token %d = %+v, want %+v", i, tokens[i], want[i])
		}
	}
}

func TestRenderDiffReconstructsInputs(t *testing.T) {
	// Equal+removed tokens rebuild a, equal+added tokens rebuild b.
	f := func(a, b []string) bool {
		tokens := diffTokens(a, b)
		var gotA, gotB []string
		for _, tok := range tokens {
			switch tok.Op {
			case models.DiffEqual:
				gotA = append(gotA, tok.Text)
				gotB = append(gotB, tok.Text)
			case models.DiffRemoved:
				gotA = append(gotA, tok.Text)
			case models.DiffAdded:
				gotB = append(gotB, tok.Text)
			}
		}
		return equalSlices(gotA, a) && equalSlices(gotB, b)
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

func TestRenderDiff_LargeInputLinearMemory(t *testing.T) {
	// changes spread over the whole text defeat prefix and suffix trimming
	const n = 3000
	a := make([]string, n)
	b := make([]string, n)
	for i := range a {
		a[i] = "w" + strconv.Itoa(i)
		b[i] = a[i]
		if i%50 == 25 {
			b[i] = "changed" + strconv.Itoa(i)
		}
	}

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	tokens := diffTokens(a, b)
	runtime.ReadMemStats(&after)

	// a full LCS table for this pair would take about 72 MB
	if alloc := after.TotalAlloc - before.TotalAlloc; alloc > 16<<20 {
		t.Errorf("diff allocated %d bytes, want under 16 MB", alloc)
	}

	var equal, removed, added int
	for _, tok := range tokens {
		switch tok.Op {
		case models.DiffEqual:
			equal++
		case models.DiffRemoved:
			removed++
		case models.DiffAdded:
			added++
		}
	}
	if changed := n / 50; equal != n-changed || removed != changed || added != changed {
		t.Errorf("equal=%d removed=%d added=%d, want %d/%d/%d", equal, removed, added, n-changed, changed, changed)
	}
}

func TestRenderLineDiff(t *testing.T) {
	tokens := RenderLineDiff("Intro\nfoo bar", "Intro\nfoo baz")
	if len(tokens) != 3 {
		t.Fatalf("got %d tokens, want 3: %+v", len(tokens), tokens)
	}
	if tokens[0].Op != models.DiffEqual || tokens[1].Op != models.DiffRemoved || tokens[2].Op != models.DiffAdded {
		t.Errorf("unexpected ops: %+v", tokens)
	}
}

func equalSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
