package database

import (
	"context"
	"errors"
	"fmt"

	"doc-compare/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps the comparison history in PostgreSQL
type PostgresStore struct {
	Pool *pgxpool.Pool
}

// NewPostgresStore creates a new database connection
func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{Pool: pool}, nil
}

// Initialize sets up the database tables and indices
func (db *PostgresStore) Initialize(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS comparisons (
            id TEXT PRIMARY KEY,
            created_at TIMESTAMPTZ NOT NULL,
            strategy TEXT NOT NULL,
            name_a TEXT NOT NULL,
            name_b TEXT NOT NULL,
            distance INTEGER NOT NULL,
            similarity DOUBLE PRECISION NOT NULL,
            length_a INTEGER NOT NULL,
            length_b INTEGER NOT NULL,
            details JSONB NOT NULL
        )
    `)
	if err != nil {
		return fmt.Errorf("failed to create comparisons table: %w", err)
	}

	_, err = db.Pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS unit_results (
            comparison_id TEXT NOT NULL REFERENCES comparisons(id) ON DELETE CASCADE,
            kind TEXT NOT NULL,
            ord INTEGER NOT NULL,
            unit_key TEXT NOT NULL,
            distance INTEGER NOT NULL,
            similarity DOUBLE PRECISION NOT NULL,
            length_a INTEGER NOT NULL,
            length_b INTEGER NOT NULL,
            cosine DOUBLE PRECISION NOT NULL,
            PRIMARY KEY (comparison_id, kind, ord)
        )
    `)
	if err != nil {
		return fmt.Errorf("failed to create unit_results table: %w", err)
	}

	_, err = db.Pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS comparisons_created_idx ON comparisons (created_at DESC)`)
	if err != nil {
		return fmt.Errorf("failed to create comparisons index: %w", err)
	}

	return nil
}

// SaveComparison stores a result and its unit rows in one transaction
func (db *PostgresStore) SaveComparison(ctx context.Context, result *models.ComparisonResult) error {
	detailsJSON, err := prepare(result)
	if err != nil {
		return err
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
        INSERT INTO comparisons (
            id, created_at, strategy, name_a, name_b,
            distance, similarity, length_a, length_b, details
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `,
		result.ID,
		result.CreatedAt,
		result.Strategy,
		result.DocumentA.Name,
		result.DocumentB.Name,
		result.Distance,
		result.Similarity,
		result.LengthA,
		result.LengthB,
		detailsJSON)
	if err != nil {
		return fmt.Errorf("failed to insert comparison: %w", err)
	}

	batch := &pgx.Batch{}
	for _, row := range unitRows(result) {
		batch.Queue(`
            INSERT INTO unit_results (
                comparison_id, kind, ord, unit_key, distance,
                similarity, length_a, length_b, cosine
            )
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        `, result.ID, row.kind, row.ord, string(row.unit.Key), row.unit.Distance,
			row.unit.Similarity, row.unit.LengthA, row.unit.LengthB, row.unit.Cosine)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert unit results: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit comparison: %w", err)
	}
	return nil
}

// GetComparison loads one result with its unit rows
func (db *PostgresStore) GetComparison(ctx context.Context, id string) (*models.ComparisonResult, error) {
	var result models.ComparisonResult
	var detailsJSON []byte

	err := db.Pool.QueryRow(ctx, `
        SELECT id, created_at, strategy, distance, similarity, length_a, length_b, details
        FROM comparisons
        WHERE id = $1
    `, id).Scan(
		&result.ID,
		&result.CreatedAt,
		&result.Strategy,
		&result.Distance,
		&result.Similarity,
		&result.LengthA,
		&result.LengthB,
		&detailsJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query comparison: %w", err)
	}
	if err := applyDetails(&result, detailsJSON); err != nil {
		return nil, err
	}

	rows, err := db.Pool.Query(ctx, `
        SELECT kind, unit_key, distance, similarity, length_a, length_b, cosine
        FROM unit_results
        WHERE comparison_id = $1
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
func (db *PostgresStore) ListComparisons(ctx context.Context, limit int) ([]models.ComparisonSummary, error) {
	rows, err := db.Pool.Query(ctx, `
        SELECT id, created_at, strategy, name_a, name_b, distance, similarity
        FROM comparisons
        ORDER BY created_at DESC, id DESC
        LIMIT $1
    `, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query comparisons: %w", err)
	}
	defer rows.Close()

	var summaries []models.ComparisonSummary
	for rows.Next() {
		var s models.ComparisonSummary
		if err := rows.Scan(&s.ID, &s.CreatedAt, &s.Strategy, &s.NameA, &s.NameB, &s.Distance, &s.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return summaries, nil
}

// Close closes the database connection
func (db *PostgresStore) Close() {
	db.Pool.Close()
}
