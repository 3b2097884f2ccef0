package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"doc-compare/internal/models"

	_ "modernc.org/sqlite"
)

// fixed-width so that created_at sorts as text
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore keeps the comparison history in a SQLite file
type SQLiteStore struct {
	DB *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path. ":memory:" works for tests.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// one connection keeps ":memory:" databases alive and serializes writers
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &SQLiteStore{DB: db}, nil
}

// Initialize sets up the database tables and indices
func (db *SQLiteStore) Initialize(ctx context.Context) error {
	_, err := db.DB.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS comparisons (
            id TEXT PRIMARY KEY,
            created_at TEXT NOT NULL,
            strategy TEXT NOT NULL,
            name_a TEXT NOT NULL,
            name_b TEXT NOT NULL,
            distance INTEGER NOT NULL,
            similarity REAL NOT NULL,
            length_a INTEGER NOT NULL,
            length_b INTEGER NOT NULL,
            details TEXT NOT NULL
        )
    `)
	if err != nil {
		return fmt.Errorf("failed to create comparisons table: %w", err)
	}

	_, err = db.DB.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS unit_results (
            comparison_id TEXT NOT NULL REFERENCES comparisons(id) ON DELETE CASCADE,
            kind TEXT NOT NULL,
            ord INTEGER NOT NULL,
            unit_key TEXT NOT NULL,
            distance INTEGER NOT NULL,
            similarity REAL NOT NULL,
            length_a INTEGER NOT NULL,
            length_b INTEGER NOT NULL,
            cosine REAL NOT NULL,
            PRIMARY KEY (comparison_id, kind, ord)
        )
    `)
	if err != nil {
		return fmt.Errorf("failed to create unit_results table: %w", err)
	}

	_, err = db.DB.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS comparisons_created_idx ON comparisons (created_at DESC)`)
	if err != nil {
		return fmt.Errorf("failed to create comparisons index: %w", err)
	}

	return nil
}

// SaveComparison stores a result and its unit rows in one transaction
func (db *SQLiteStore) SaveComparison(ctx context.Context, result *models.ComparisonResult) error {
	detailsJSON, err := prepare(result)
	if err != nil {
		return err
	}

	tx, err := db.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
        INSERT INTO comparisons (
            id, created_at, strategy, name_a, name_b,
            distance, similarity, length_a, length_b, details
        )
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `,
		result.ID,
		result.CreatedAt.UTC().Format(sqliteTimeLayout),
		result.Strategy,
		result.DocumentA.Name,
		result.DocumentB.Name,
		result.Distance,
		result.Similarity,
		result.LengthA,
		result.LengthB,
		string(detailsJSON))
	if err != nil {
		return fmt.Errorf("failed to insert comparison: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO unit_results (
            comparison_id, kind, ord, unit_key, distance,
            similarity, length_a, length_b, cosine
        )
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
    `)
	if err != nil {
		return fmt.Errorf("failed to prepare unit insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range unitRows(result) {
		if _, err := stmt.ExecContext(ctx, result.ID, row.kind, row.ord, string(row.unit.Key), row.unit.Distance,
			row.unit.Similarity, row.unit.LengthA, row.unit.LengthB, row.unit.Cosine); err != nil {
			return fmt.Errorf("failed to insert unit result: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit comparison: %w", err)
	}
	return nil
}

// GetComparison loads one result with its unit rows
func (db *SQLiteStore) GetComparison(ctx context.Context, id string) (*models.ComparisonResult, error) {
	var result models.ComparisonResult
	var createdAt, detailsJSON string

	err := db.DB.QueryRowContext(ctx, `
        SELECT id, created_at, strategy, distance, similarity, length_a, length_b, details
        FROM comparisons
        WHERE id = ?
    `, id).Scan(
		&result.ID,
		&createdAt,
		&result.Strategy,
		&result.Distance,
		&result.Similarity,
		&result.LengthA,
		&result.LengthB,
		&detailsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query comparison: %w", err)
	}
	if result.CreatedAt, err = time.Parse(sqliteTimeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if err := applyDetails(&result, []byte(detailsJSON)); err != nil {
		return nil, err
	}

	rows, err := db.DB.QueryContext(ctx, `
        SELECT kind, unit_key, distance, similarity, length_a, length_b, cosine
        FROM unit_results
        WHERE comparison_id = ?
        ORDER BY kind, ord
    `, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query unit results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind, key string
		var u models.UnitResult
		if err := rows.Scan(&kind, &key, &u.Distance, &u.Similarity, &u.LengthA, &u.LengthB, &u.Cosine); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		u.Key = models.SectionKey(key)
		addUnit(&result, kind, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return &result, nil
}

// ListComparisons returns the most recent comparisons first
func (db *SQLiteStore) ListComparisons(ctx context.Context, limit int) ([]models.ComparisonSummary, error) {
	rows, err := db.DB.QueryContext(ctx, `
        SELECT id, created_at, strategy, name_a, name_b, distance, similarity
        FROM comparisons
        ORDER BY created_at DESC, id DESC
        LIMIT ?
    `, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query comparisons: %w", err)
	}
	defer rows.Close()

	var summaries []models.ComparisonSummary
	for rows.Next() {
		var s models.ComparisonSummary
		var createdAt string
		if err := rows.Scan(&s.ID, &createdAt, &s.Strategy, &s.NameA, &s.NameB, &s.Distance, &s.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if s.CreatedAt, err = time.Parse(sqliteTimeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return summaries, nil
}

// Close closes the database connection
func (db *SQLiteStore) Close() {
	db.DB.Close()
}
