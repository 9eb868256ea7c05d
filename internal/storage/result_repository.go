package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/fredmontagnon/arianeegeo/internal/model"
)

// ResultRepository persists one row per (query, provider, run_date). All
// writes are full-row upserts on that natural key — no read-modify-write,
// so reruns and overlapping invocations stay safe.
type ResultRepository interface {
	Upsert(ctx context.Context, res *model.Result) error
	ListByDate(ctx context.Context, date string) ([]model.Result, error)
	CountByDate(ctx context.Context, date string) (int64, error)
	ListRange(ctx context.Context, from, to string) ([]model.Result, error)
	LastRunDate(ctx context.Context) (string, error)
}

type sqliteResultRepository struct {
	db *sqlx.DB
}

// NewResultRepository creates a SQLite-backed ResultRepository.
func NewResultRepository(db *sqlx.DB) ResultRepository {
	return &sqliteResultRepository{db: db}
}

func (r *sqliteResultRepository) Upsert(ctx context.Context, res *model.Result) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO llm_results
			(query_id, llm_name, run_date, response_text, is_mentioned, mention_rank, sentiment, error, duration_ms)
		VALUES
			(:query_id, :llm_name, :run_date, :response_text, :is_mentioned, :mention_rank, :sentiment, :error, :duration_ms)
		ON CONFLICT (query_id, llm_name, run_date) DO UPDATE SET
			response_text = excluded.response_text,
			is_mentioned = excluded.is_mentioned,
			mention_rank = excluded.mention_rank,
			sentiment = excluded.sentiment,
			error = excluded.error,
			duration_ms = excluded.duration_ms,
			created_at = CURRENT_TIMESTAMP
	`, res)
	if err != nil {
		return fmt.Errorf("upserting result %s/%s/%s: %w", res.QueryID, res.Provider, res.RunDate, err)
	}
	return nil
}

func (r *sqliteResultRepository) ListByDate(ctx context.Context, date string) ([]model.Result, error) {
	var results []model.Result
	err := r.db.SelectContext(ctx, &results,
		"SELECT * FROM llm_results WHERE run_date = ?", date)
	if err != nil {
		return nil, fmt.Errorf("listing results for %s: %w", date, err)
	}
	return results, nil
}

func (r *sqliteResultRepository) CountByDate(ctx context.Context, date string) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM llm_results WHERE run_date = ?", date)
	return count, err
}

func (r *sqliteResultRepository) ListRange(ctx context.Context, from, to string) ([]model.Result, error) {
	var results []model.Result
	err := r.db.SelectContext(ctx, &results,
		"SELECT * FROM llm_results WHERE run_date >= ? AND run_date <= ? ORDER BY run_date ASC", from, to)
	if err != nil {
		return nil, fmt.Errorf("listing results %s..%s: %w", from, to, err)
	}
	return results, nil
}

// LastRunDate returns the most recent date with any stored result, or ""
// when the store is empty.
func (r *sqliteResultRepository) LastRunDate(ctx context.Context) (string, error) {
	var date string
	err := r.db.GetContext(ctx, &date,
		"SELECT COALESCE(MAX(run_date), '') FROM llm_results")
	if err != nil {
		return "", fmt.Errorf("finding last run date: %w", err)
	}
	return date, nil
}
