// Package storage handles data persistence for the monitor: SQLite via sqlx.
package storage

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // Blank import: registers the SQLite driver.
)

// Schema is embedded directly in the binary — no migration files need to
// exist at runtime.
//
// llm_results carries the natural key (query_id, llm_name, run_date) as a
// UNIQUE constraint: every write is a full-row upsert on that key, which is
// what makes reruns and overlapping invocations safe (last write wins).
const schema = `
CREATE TABLE IF NOT EXISTS llm_queries (
    id          TEXT PRIMARY KEY,
    query_text  TEXT NOT NULL,
    topic       TEXT NOT NULL,
    topic_label TEXT NOT NULL DEFAULT '',
    sort_order  INTEGER NOT NULL DEFAULT 0,
    is_active   BOOLEAN NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS llm_results (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    query_id      TEXT NOT NULL,
    llm_name      TEXT NOT NULL,
    run_date      TEXT NOT NULL,
    response_text TEXT,
    is_mentioned  BOOLEAN NOT NULL DEFAULT 0,
    mention_rank  INTEGER,
    sentiment     TEXT,
    error         TEXT,
    duration_ms   INTEGER,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (query_id, llm_name, run_date)
);

CREATE TABLE IF NOT EXISTS llm_daily_recommendations (
    run_date        TEXT PRIMARY KEY,
    recommendations TEXT NOT NULL,
    summary_stats   TEXT NOT NULL,
    model_used      TEXT NOT NULL DEFAULT '',
    tokens_used     INTEGER NOT NULL DEFAULT 0,
    generated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_llm_results_run_date ON llm_results(run_date);
CREATE INDEX IF NOT EXISTS idx_llm_results_query ON llm_results(query_id);
CREATE INDEX IF NOT EXISTS idx_llm_queries_active ON llm_queries(is_active, sort_order);
`

// NewDatabase creates a new SQLite connection and runs migrations.
// sqlx wraps database/sql with convenience methods like StructScan and NamedExec.
func NewDatabase(dbPath string) (*sqlx.DB, error) {
	// WAL for concurrent reads during a run, busy_timeout instead of
	// immediate lock errors.
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000", dbPath)

	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Ping actually opens the connection (Open is lazy in database/sql)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// SQLite performs best with a single writer connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return db, nil
}
