package align

import (
	"testing"

	"doc-compare/internal/models"
)

func TestAlignIntersection(t *testing.T) {
	a := models.SectionMap{"1": "intro A", "2": "scope A", "3": "only in A"}
	b := models.SectionMap{"1": "intro B", "2": "scope B", "4": "only in B"}

	res := Diff(a, b)

	if len(res.Pairs) != 2 {
		t.Fatalf("got %d pairs, want 2", len(res.Pairs))
	}
	for _, p := range res.Pairs {
		if _, ok := a[p.Key]; !ok {
			t.Errorf("key %q not in A", p.Key)
		}
		if _, ok := b[p.Key]; !ok {
			t.Errorf("key %q not in B", p.Key)
		}
		if p.ContentA != a[p.Key] || p.ContentB != b[p.Key] {
			t.Errorf("pair %q has wrong content: %+v", p.Key, p)
		}
	}
	if len(res.OnlyInA) != 1 || res.OnlyInA[0] != "3" {
		t.Errorf("OnlyInA = %v, want [3]", res.OnlyInA)
	}
	if len(res.OnlyInB) != 1 || res.OnlyInB[0] != "4" {
		t.Errorf("OnlyInB = %v, want [4]", res.OnlyInB)
	}
}

func TestAlignExactKeysOnly(t *testing.T) {
	// "1" and "1.0" or "01" denote different labels; no fuzzy matching.
	a := models.SectionMap{"1": "x", "2.1": "y"}
	b := models.SectionMap{"1.0": "x", "2.10": "y", "01": "z"}

	if pairs := Align(a, b); len(pairs) != 0 {
		t.Errorf("expected no pairs, got %+v", pairs)
	}
}

func TestAlignEmpty(t *testing.T) {
	if pairs := Align(models.SectionMap{}, models.SectionMap{"1": "x"}); len(pairs) != 0 {
		t.Errorf("expected no pairs, got %+v", pairs)
	}
	if pairs := Align(nil, nil); len(pairs) != 0 {
		t.Errorf("expected no pairs, got %+v", pairs)
	}
}

func TestSortKeys(t *testing.T) {
	keys := []models.SectionKey{"10", "annex", "2.1", "2", "1.2.3", "1", "Appendix", "10.", "3."}
	SortKeys(keys)

	want := []models.SectionKey{"1", "1.2.3", "2", "2.1", "3.", "10", "10.", "Appendix", "annex"}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("SortKeys = %v, want %v", keys, want)
		}
	}
}

func TestAlignOrder(t *testing.T) {
	a := models.SectionMap{"10": "", "2": "", "2.1": "", "1": ""}
	b := models.SectionMap{"10": "", "2": "", "2.1": "", "1": ""}

	pairs := Align(a, b)
	want := []models.SectionKey{"1", "2", "2.1", "10"}
	if len(pairs) != len(want) {
		t.Fatalf("got %d pairs, want %d", len(pairs), len(want))
	}
	for i, p := range pairs {
		if p.Key != want[i] {
			t.Errorf("pair %d key = %q, want %q", i, p.Key, want[i])
		}
	}
}
