package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/fredmontagnon/arianeegeo/internal/model"
)

// ErrNotFound is returned when no row exists for the requested key.
// Go uses sentinel errors instead of exception types; callers check with
// errors.Is(err, storage.ErrNotFound).
var ErrNotFound = errors.New("not found")

// RecommendationRepository persists the daily action plan, one row per run
// date, upsert semantics. The recommendations and the stats snapshot they
// were generated from are stored as JSON columns — nothing ever joins on
// their contents.
type RecommendationRepository interface {
	Upsert(ctx context.Context, set *model.RecommendationSet) error
	GetByDate(ctx context.Context, date string) (*model.RecommendationSet, error)
}

type sqliteRecommendationRepository struct {
	db *sqlx.DB
}

// NewRecommendationRepository creates a SQLite-backed RecommendationRepository.
func NewRecommendationRepository(db *sqlx.DB) RecommendationRepository {
	return &sqliteRecommendationRepository{db: db}
}

// recommendationRow is the raw table shape; JSON columns are (un)marshalled
// at the repository boundary so the rest of the code only sees model types.
type recommendationRow struct {
	RunDate         string    `db:"run_date"`
	Recommendations string    `db:"recommendations"`
	SummaryStats    string    `db:"summary_stats"`
	ModelUsed       string    `db:"model_used"`
	TokensUsed      int       `db:"tokens_used"`
	GeneratedAt     time.Time `db:"generated_at"`
}

func (r *sqliteRecommendationRepository) Upsert(ctx context.Context, set *model.RecommendationSet) error {
	recJSON, err := json.Marshal(set.Recommendations)
	if err != nil {
		return fmt.Errorf("marshaling recommendations: %w", err)
	}
	statsJSON, err := json.Marshal(set.SummaryStats)
	if err != nil {
		return fmt.Errorf("marshaling summary stats: %w", err)
	}

	row := recommendationRow{
		RunDate:         set.RunDate,
		Recommendations: string(recJSON),
		SummaryStats:    string(statsJSON),
		ModelUsed:       set.ModelUsed,
		TokensUsed:      set.TokensUsed,
		GeneratedAt:     set.GeneratedAt,
	}

	_, err = r.db.NamedExecContext(ctx, `
		INSERT INTO llm_daily_recommendations
			(run_date, recommendations, summary_stats, model_used, tokens_used, generated_at)
		VALUES
			(:run_date, :recommendations, :summary_stats, :model_used, :tokens_used, :generated_at)
		ON CONFLICT (run_date) DO UPDATE SET
			recommendations = excluded.recommendations,
			summary_stats = excluded.summary_stats,
			model_used = excluded.model_used,
			tokens_used = excluded.tokens_used,
			generated_at = excluded.generated_at
	`, row)
	if err != nil {
		return fmt.Errorf("upserting recommendations for %s: %w", set.RunDate, err)
	}
	return nil
}

func (r *sqliteRecommendationRepository) GetByDate(ctx context.Context, date string) (*model.RecommendationSet, error) {
	var row recommendationRow
	err := r.db.GetContext(ctx, &row,
		"SELECT * FROM llm_daily_recommendations WHERE run_date = ?", date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting recommendations for %s: %w", date, err)
	}

	set := &model.RecommendationSet{
		RunDate:     row.RunDate,
		ModelUsed:   row.ModelUsed,
		TokensUsed:  row.TokensUsed,
		GeneratedAt: row.GeneratedAt,
	}
	if err := json.Unmarshal([]byte(row.Recommendations), &set.Recommendations); err != nil {
		return nil, fmt.Errorf("unmarshaling recommendations for %s: %w", date, err)
	}
	if err := json.Unmarshal([]byte(row.SummaryStats), &set.SummaryStats); err != nil {
		return nil, fmt.Errorf("unmarshaling summary stats for %s: %w", date, err)
	}
	return set, nil
}
