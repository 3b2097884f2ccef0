// Package align matches structural units of two documents by exact key.
package align

import (
	"sort"
	"strconv"
	"strings"

	"doc-compare/internal/models"
)

// Alignment is the result of matching two section maps
type Alignment struct {
	Pairs   []models.AlignedPair
	OnlyInA []models.SectionKey
	OnlyInB []models.SectionKey
}

// Align returns one pair per key present in both maps, in key order.
func Align(a, b models.SectionMap) []models.AlignedPair {
	return Diff(a, b).Pairs
}

// Diff aligns a and b and also reports the keys found on one side only.
func Diff(a, b models.SectionMap) Alignment {
	var res Alignment

	for key, contentA := range a {
		if contentB, ok := b[key]; ok {
			res.Pairs = append(res.Pairs, models.AlignedPair{Key: key, ContentA: contentA, ContentB: contentB})
		} else {
			res.OnlyInA = append(res.OnlyInA, key)
		}
	}
	for key := range b {
		if _, ok := a[key]; !ok {
			res.OnlyInB = append(res.OnlyInB, key)
		}
	}

	sort.Slice(res.Pairs, func(i, j int) bool { return Less(res.Pairs[i].Key, res.Pairs[j].Key) })
	SortKeys(res.OnlyInA)
	SortKeys(res.OnlyInB)

	return res
}

// SortKeys sorts keys in document order.
func SortKeys(keys []models.SectionKey) {
	sort.Slice(keys, func(i, j int) bool { return Less(keys[i], keys[j]) })
}

// Less orders keys by their dot-separated integer components ("2" < "2.1" < "10").
// Keys that are not fully numeric sort after numeric ones, by plain string order.
func Less(a, b models.SectionKey) bool {
	pa, okA := parseKey(a)
	pb, okB := parseKey(b)

	switch {
	case okA && okB:
		for i := 0; i < len(pa) && i < len(pb); i++ {
			if pa[i] != pb[i] {
				return pa[i] < pb[i]
			}
		}
		if len(pa) != len(pb) {
			return len(pa) < len(pb)
		}
		// "1" and "1." parse alike
		return a < b
	case okA:
		return true
	case okB:
		return false
	default:
		return a < b
	}
}

// parseKey splits a key into integers. A single trailing dot is ignored so
// synthetic ordinals ("10.") sort numerically.
func parseKey(key models.SectionKey) ([]int, bool) {
	s := strings.TrimSuffix(string(key), ".")
	if s == "" {
		return nil, false
	}

	parts := strings.Split(s, ".")
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || p[0] == '+' || p[0] == '-' {
			return nil, false
		}
		nums[i] = n
	}
	return nums, true
}
