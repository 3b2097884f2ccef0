// Package database stores the history of comparisons in PostgreSQL or SQLite.
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"doc-compare/internal/models"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no comparison has the requested id
var ErrNotFound = errors.New("comparison not found")

// Unit kinds in the unit_results table
const (
	kindSection   = "section"
	kindParagraph = "paragraph"
)

// Store persists comparison results
type Store interface {
	Initialize(ctx context.Context) error
	// SaveComparison assigns an id and a creation time when they are missing.
	SaveComparison(ctx context.Context, result *models.ComparisonResult) error
	GetComparison(ctx context.Context, id string) (*models.ComparisonResult, error)
	ListComparisons(ctx context.Context, limit int) ([]models.ComparisonSummary, error)
	Close()
}

// Open returns a PostgresStore for postgres:// URLs and a SQLiteStore for
// anything else, which is taken as a file path.
func Open(ctx context.Context, dsn string) (Store, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return NewPostgresStore(ctx, dsn)
	}
	return NewSQLiteStore(ctx, dsn)
}

// details holds the parts of a result kept as a JSON document
type details struct {
	OnlyInA   []models.SectionKey `json:"only_in_a,omitempty"`
	OnlyInB   []models.SectionKey `json:"only_in_b,omitempty"`
	DocumentA models.DocumentInfo `json:"document_a"`
	DocumentB models.DocumentInfo `json:"document_b"`
}

// prepare fills the id and creation time and encodes the details document.
func prepare(result *models.ComparisonResult) ([]byte, error) {
	if result.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("failed to generate comparison id: %w", err)
		}
		result.ID = id.String()
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(details{
		OnlyInA:   result.OnlyInA,
		OnlyInB:   result.OnlyInB,
		DocumentA: result.DocumentA,
		DocumentB: result.DocumentB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode comparison details: %w", err)
	}
	return data, nil
}

func applyDetails(result *models.ComparisonResult, data []byte) error {
	var d details
	if err := json.Unmarshal(data, &d); err != nil {
		return fmt.Errorf("failed to decode comparison details: %w", err)
	}
	result.OnlyInA = d.OnlyInA
	result.OnlyInB = d.OnlyInB
	result.DocumentA = d.DocumentA
	result.DocumentB = d.DocumentB
	return nil
}

// unitRow is one row of unit_results
type unitRow struct {
	kind string
	ord  int
	unit models.UnitResult
}

func unitRows(result *models.ComparisonResult) []unitRow {
	rows := make([]unitRow, 0, len(result.UnitResults)+len(result.ParagraphResults))
	for i, u := range result.UnitResults {
		rows = append(rows, unitRow{kind: kindSection, ord: i, unit: u})
	}
	for i, u := range result.ParagraphResults {
		rows = append(rows, unitRow{kind: kindParagraph, ord: i, unit: u})
	}
	return rows
}

func addUnit(result *models.ComparisonResult, kind string, u models.UnitResult) {
	if kind == kindParagraph {
		result.ParagraphResults = append(result.ParagraphResults, u)
		return
	}
	result.UnitResults = append(result.UnitResults, u)
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 1000 {
		return 50
	}
	return limit
}
