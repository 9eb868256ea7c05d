// Go testing basics:
// - Test files must end with _test.go (they're excluded from production builds)
// - Test functions must start with Test and take *testing.T
// - Run with: go test ./internal/storage/ -v
// - t.Fatal stops the test immediately; t.Error continues to find more failures
package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fredmontagnon/arianeegeo/internal/model"
)

// setupTestDB creates a temporary SQLite database for testing.
// Go's testing.T has a TempDir() method that creates a temp directory
// automatically cleaned up after the test — no manual teardown needed.
func setupTestDB(t *testing.T) *testDeps {
	t.Helper() // marks this as a helper so error line numbers point to the caller

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	db, err := NewDatabase(dbPath)
	if err != nil {
		t.Fatalf("creating test database: %v", err)
	}

	// t.Cleanup registers a function to run when the test finishes.
	// Similar to defer, but scoped to the test lifecycle.
	t.Cleanup(func() {
		db.Close()
		os.Remove(dbPath)
	})

	return &testDeps{
		queryRepo:  NewQueryRepository(db),
		resultRepo: NewResultRepository(db),
		recoRepo:   NewRecommendationRepository(db),
	}
}

type testDeps struct {
	queryRepo  QueryRepository
	resultRepo ResultRepository
	recoRepo   RecommendationRepository
}

func testQuery(id string, order int, active bool) *model.Query {
	return &model.Query{
		ID:         id,
		Text:       "What is a digital product passport? (" + id + ")",
		Topic:      model.TopicRegulation,
		TopicLabel: "Regulation",
		SortOrder:  order,
		IsActive:   active,
	}
}

func TestQueryRepository_ListActiveOrdered(t *testing.T) {
	deps := setupTestDB(t)
	ctx := context.Background()

	// Inserted out of order, one inactive.
	for _, q := range []*model.Query{
		testQuery("q3", 3, true),
		testQuery("q1", 1, true),
		testQuery("q2", 2, false),
	} {
		if err := deps.queryRepo.Upsert(ctx, q); err != nil {
			t.Fatalf("upserting %s: %v", q.ID, err)
		}
	}

	active, err := deps.queryRepo.ListActive(ctx)
	if err != nil {
		t.Fatalf("listing active queries: %v", err)
	}

	if len(active) != 2 {
		t.Fatalf("expected 2 active queries, got %d", len(active))
	}
	if active[0].ID != "q1" || active[1].ID != "q3" {
		t.Errorf("expected sort_order ordering q1,q3 — got %s,%s", active[0].ID, active[1].ID)
	}
}

func TestQueryRepository_UpsertOverwrites(t *testing.T) {
	deps := setupTestDB(t)
	ctx := context.Background()

	if err := deps.queryRepo.Upsert(ctx, testQuery("q1", 1, true)); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	updated := testQuery("q1", 5, false)
	updated.Text = "Rewritten question"
	if err := deps.queryRepo.Upsert(ctx, updated); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	count, err := deps.queryRepo.Count(ctx)
	if err != nil {
		t.Fatalf("counting: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 row after upsert on the same id, got %d", count)
	}

	active, _ := deps.queryRepo.ListActive(ctx)
	if len(active) != 0 {
		t.Errorf("deactivated query must not be listed, got %d", len(active))
	}
}
