package database

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"doc-compare/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	ctx := context.Background()
	store, err := NewSQLiteStore(ctx, ":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return store
}

func sampleResult() *models.ComparisonResult {
	return &models.ComparisonResult{
		Strategy: "numbering",
		Score:    models.Score{Distance: 1, Similarity: 15.0 / 16.0, LengthA: 16, LengthB: 16},
		UnitResults: []models.UnitResult{
			{Key: "1", Score: models.Score{Distance: 1, Similarity: 12.0 / 13.0, LengthA: 13, LengthB: 13}, Cosine: 0.5},
			{Key: "2.1", Score: models.Score{Similarity: 1, LengthA: 4, LengthB: 4}, Cosine: 1},
		},
		ParagraphResults: []models.UnitResult{
			{Key: "1", Score: models.Score{Similarity: 1, LengthA: 8, LengthB: 8}, Cosine: 1},
		},
		OnlyInA:   []models.SectionKey{"3"},
		DocumentA: models.DocumentInfo{Name: "a.txt", Format: "txt", Method: models.MethodNative, Paragraphs: 1, Sections: 3},
		DocumentB: models.DocumentInfo{Name: "b.txt", Format: "txt", Method: models.MethodNative, Paragraphs: 1, Sections: 2},
	}
}

func TestSQLiteStore_SaveAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	result := sampleResult()
	if err := store.SaveComparison(ctx, result); err != nil {
		t.Fatalf("SaveComparison: %v", err)
	}
	if result.ID == "" || result.CreatedAt.IsZero() {
		t.Fatalf("SaveComparison should assign an id and a time, got %q %v", result.ID, result.CreatedAt)
	}

	got, err := store.GetComparison(ctx, result.ID)
	if err != nil {
		t.Fatalf("GetComparison: %v", err)
	}
	if !got.CreatedAt.Equal(result.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, result.CreatedAt)
	}
	got.CreatedAt = result.CreatedAt
	if !reflect.DeepEqual(got, result) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, result)
	}
}

func TestSQLiteStore_NotFound(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.GetComparison(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetComparison(missing) error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_List(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		r := sampleResult()
		r.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		r.DocumentA.Name = []string{"first", "second", "third"}[i]
		if err := store.SaveComparison(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	list, err := store.ListComparisons(ctx, 2)
	if err != nil {
		t.Fatalf("ListComparisons: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d summaries, want 2", len(list))
	}
	if list[0].NameA != "third" || list[1].NameA != "second" {
		t.Errorf("order = %q, %q; want newest first", list[0].NameA, list[1].NameA)
	}
	if list[0].NameB != "b.txt" || list[0].Distance != 1 || list[0].Strategy != "numbering" {
		t.Errorf("summary = %+v", list[0])
	}
}

func TestOpen_SQLitePath(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	if _, ok := store.(*SQLiteStore); !ok {
		t.Errorf("Open(path) = %T, want *SQLiteStore", store)
	}
	if err := store.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	// idempotent
	if err := store.Initialize(ctx); err != nil {
		t.Fatalf("second Initialize: %v", err)
	}
}
