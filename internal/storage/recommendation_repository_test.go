package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fredmontagnon/arianeegeo/internal/model"
)

func testRecommendationSet(date string) *model.RecommendationSet {
	return &model.RecommendationSet{
		RunDate: date,
		Recommendations: []model.Recommendation{
			{
				Title:           "Publish a DPP vendor comparison page",
				Description:     "Cover the providers topic head-on.",
				Priority:        model.PriorityHigh,
				TargetTopic:     "providers",
				EstimatedImpact: "+5% to +10%",
				ActionItems:     []string{"draft", "review", "publish"},
			},
		},
		SummaryStats: model.SummaryStats{
			Date:        date,
			GlobalScore: 37,
		},
		ModelUsed:   "test-model",
		TokensUsed:  1234,
		GeneratedAt: time.Date(2026, 8, 31, 8, 0, 0, 0, time.UTC),
	}
}

func TestRecommendationRepository_RoundTrip(t *testing.T) {
	deps := setupTestDB(t)
	ctx := context.Background()

	if err := deps.recoRepo.Upsert(ctx, testRecommendationSet("2026-08-31")); err != nil {
		t.Fatalf("upserting: %v", err)
	}

	got, err := deps.recoRepo.GetByDate(ctx, "2026-08-31")
	if err != nil {
		t.Fatalf("getting: %v", err)
	}

	if len(got.Recommendations) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(got.Recommendations))
	}
	rec := got.Recommendations[0]
	if rec.Title != "Publish a DPP vendor comparison page" || rec.Priority != model.PriorityHigh {
		t.Errorf("unexpected recommendation %+v", rec)
	}
	if len(rec.ActionItems) != 3 {
		t.Errorf("expected 3 action items, got %d", len(rec.ActionItems))
	}
	if got.SummaryStats.GlobalScore != 37 {
		t.Errorf("expected the frozen stats snapshot, got %+v", got.SummaryStats)
	}
	if got.ModelUsed != "test-model" || got.TokensUsed != 1234 {
		t.Errorf("unexpected metadata: %+v", got)
	}
}

func TestRecommendationRepository_UpsertReplaces(t *testing.T) {
	deps := setupTestDB(t)
	ctx := context.Background()

	if err := deps.recoRepo.Upsert(ctx, testRecommendationSet("2026-08-31")); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	replacement := testRecommendationSet("2026-08-31")
	replacement.Recommendations[0].Title = "Regenerated plan"
	replacement.TokensUsed = 99
	if err := deps.recoRepo.Upsert(ctx, replacement); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := deps.recoRepo.GetByDate(ctx, "2026-08-31")
	if err != nil {
		t.Fatalf("getting: %v", err)
	}
	if got.Recommendations[0].Title != "Regenerated plan" || got.TokensUsed != 99 {
		t.Errorf("expected the regenerated set, got %+v", got)
	}
}

func TestRecommendationRepository_NotFound(t *testing.T) {
	deps := setupTestDB(t)

	_, err := deps.recoRepo.GetByDate(context.Background(), "1999-01-01")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
