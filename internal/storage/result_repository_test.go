package storage

import (
	"context"
	"testing"

	"github.com/fredmontagnon/arianeegeo/internal/model"
)

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func TestResultRepository_UpsertLastWriteWins(t *testing.T) {
	deps := setupTestDB(t)
	ctx := context.Background()

	first := &model.Result{
		QueryID:      "q1",
		Provider:     model.ProviderChatGPT,
		RunDate:      "2026-08-31",
		ResponseText: strPtr("first answer"),
		IsMentioned:  false,
	}
	if err := deps.resultRepo.Upsert(ctx, first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	sentiment := model.SentimentPositive
	second := &model.Result{
		QueryID:      "q1",
		Provider:     model.ProviderChatGPT,
		RunDate:      "2026-08-31",
		ResponseText: strPtr("rerun answer"),
		IsMentioned:  true,
		MentionRank:  intPtr(1),
		Sentiment:    &sentiment,
	}
	if err := deps.resultRepo.Upsert(ctx, second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	rows, err := deps.resultRepo.ListByDate(ctx, "2026-08-31")
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row for the natural key, got %d", len(rows))
	}
	got := rows[0]
	if *got.ResponseText != "rerun answer" || !got.IsMentioned {
		t.Errorf("expected the rerun to win, got %+v", got)
	}
	if got.MentionRank == nil || *got.MentionRank != 1 {
		t.Errorf("expected rank 1, got %v", got.MentionRank)
	}
	if got.Sentiment == nil || *got.Sentiment != model.SentimentPositive {
		t.Errorf("expected positive sentiment, got %v", got.Sentiment)
	}
}

func TestResultRepository_ErrorOnlyRow(t *testing.T) {
	deps := setupTestDB(t)
	ctx := context.Background()

	row := &model.Result{
		QueryID:  "q1",
		Provider: model.ProviderGemini,
		RunDate:  "2026-08-31",
		Error:    strPtr("gemini timeout after 45s"),
	}
	if err := deps.resultRepo.Upsert(ctx, row); err != nil {
		t.Fatalf("upserting error row: %v", err)
	}

	rows, err := deps.resultRepo.ListByDate(ctx, "2026-08-31")
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if len(rows) != 1 || rows[0].HasResponse() {
		t.Fatalf("expected one error-only row, got %+v", rows)
	}
	if rows[0].Error == nil || *rows[0].Error != "gemini timeout after 45s" {
		t.Errorf("expected the error text persisted, got %v", rows[0].Error)
	}
}

func TestResultRepository_RangeAndLastRunDate(t *testing.T) {
	deps := setupTestDB(t)
	ctx := context.Background()

	for _, date := range []string{"2026-08-01", "2026-08-15", "2026-08-31"} {
		row := &model.Result{
			QueryID:      "q1",
			Provider:     model.ProviderChatGPT,
			RunDate:      date,
			ResponseText: strPtr("answer"),
		}
		if err := deps.resultRepo.Upsert(ctx, row); err != nil {
			t.Fatalf("upserting %s: %v", date, err)
		}
	}

	rows, err := deps.resultRepo.ListRange(ctx, "2026-08-10", "2026-08-31")
	if err != nil {
		t.Fatalf("range query: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("expected 2 rows in range, got %d", len(rows))
	}
	if len(rows) == 2 && rows[0].RunDate != "2026-08-15" {
		t.Errorf("expected ascending order, first is %s", rows[0].RunDate)
	}

	last, err := deps.resultRepo.LastRunDate(ctx)
	if err != nil {
		t.Fatalf("last run date: %v", err)
	}
	if last != "2026-08-31" {
		t.Errorf("expected 2026-08-31, got %q", last)
	}

	count, err := deps.resultRepo.CountByDate(ctx, "2026-08-15")
	if err != nil {
		t.Fatalf("counting: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 row on 2026-08-15, got %d", count)
	}
}

func TestResultRepository_LastRunDateEmpty(t *testing.T) {
	deps := setupTestDB(t)

	last, err := deps.resultRepo.LastRunDate(context.Background())
	if err != nil {
		t.Fatalf("last run date on empty store: %v", err)
	}
	if last != "" {
		t.Errorf("expected empty string, got %q", last)
	}
}
