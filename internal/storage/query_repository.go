package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/fredmontagnon/arianeegeo/internal/model"
)

// QueryRepository reads and seeds the monitored question set. The core only
// ever reads active queries in sort order; writes happen through the seed
// command.
type QueryRepository interface {
	ListActive(ctx context.Context) ([]model.Query, error)
	Upsert(ctx context.Context, q *model.Query) error
	Count(ctx context.Context) (int64, error)
}

type sqliteQueryRepository struct {
	db *sqlx.DB
}

// NewQueryRepository creates a SQLite-backed QueryRepository.
func NewQueryRepository(db *sqlx.DB) QueryRepository {
	return &sqliteQueryRepository{db: db}
}

func (r *sqliteQueryRepository) ListActive(ctx context.Context) ([]model.Query, error) {
	var queries []model.Query
	err := r.db.SelectContext(ctx, &queries,
		"SELECT * FROM llm_queries WHERE is_active = 1 ORDER BY sort_order ASC")
	if err != nil {
		return nil, fmt.Errorf("listing active queries: %w", err)
	}
	return queries, nil
}

func (r *sqliteQueryRepository) Upsert(ctx context.Context, q *model.Query) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO llm_queries (id, query_text, topic, topic_label, sort_order, is_active)
		VALUES (:id, :query_text, :topic, :topic_label, :sort_order, :is_active)
		ON CONFLICT (id) DO UPDATE SET
			query_text = excluded.query_text,
			topic = excluded.topic,
			topic_label = excluded.topic_label,
			sort_order = excluded.sort_order,
			is_active = excluded.is_active
	`, q)
	if err != nil {
		return fmt.Errorf("upserting query %s: %w", q.ID, err)
	}
	return nil
}

func (r *sqliteQueryRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM llm_queries")
	return count, err
}
