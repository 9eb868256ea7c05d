package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fredmontagnon/arianeegeo/internal/config"
	"github.com/fredmontagnon/arianeegeo/internal/model"
	"github.com/fredmontagnon/arianeegeo/internal/provider"
	"github.com/fredmontagnon/arianeegeo/internal/storage"
)

// ErrNoActiveQueries is returned when a run is triggered with an empty
// query set. A configuration problem, not a crash: surfaced to the caller,
// nothing persisted.
var ErrNoActiveQueries = errors.New("no active queries configured")

// ErrNoResults is returned when recommendations are requested for a date
// with no stored results.
var ErrNoResults = errors.New("no results stored for date")

// RunOptions selects what one orchestrator invocation processes.
// Batch 0 means the whole query set; 1..N selects one fixed-size chunk so
// callers can split a scan across invocations that each fit a platform
// execution-time limit.
type RunOptions struct {
	Date  string
	Batch int
}

// RunReport summarizes one invocation for the caller.
type RunReport struct {
	Date                 string        `json:"date"`
	Batch                int           `json:"batch"`
	TotalBatches         int           `json:"total_batches"`
	QueriesProcessed     int           `json:"queries_processed"`
	QueriesTotal         int           `json:"queries_total"`
	TotalMentions        int           `json:"total_mentions"`
	TotalErrors          int           `json:"total_errors"`
	RecommendationsCount int           `json:"recommendations_count"`
	Duration             time.Duration `json:"-"`
	DurationSec          float64       `json:"duration_sec"`
}

// Monitor is the run orchestrator: it drives a batch of questions through
// fan-out → analysis → persistence under a wall-clock budget, and triggers
// recommendation generation after the final chunk.
type Monitor struct {
	coordinator *provider.Coordinator
	analyzer    *Analyzer
	recommender *Recommender
	aggregator  *Aggregator
	queryRepo   storage.QueryRepository
	resultRepo  storage.ResultRepository
	recoRepo    storage.RecommendationRepository
	runCfg      config.RunConfig
	judgeModel  string
	logger      *zap.Logger
	now         func() time.Time // injectable clock for budget tests
}

// NewMonitor wires the orchestrator together.
func NewMonitor(
	coordinator *provider.Coordinator,
	analyzer *Analyzer,
	recommender *Recommender,
	aggregator *Aggregator,
	queryRepo storage.QueryRepository,
	resultRepo storage.ResultRepository,
	recoRepo storage.RecommendationRepository,
	runCfg config.RunConfig,
	judgeModel string,
	logger *zap.Logger,
) *Monitor {
	if runCfg.ChunkSize <= 0 {
		runCfg.ChunkSize = 5
	}
	if runCfg.BudgetSeconds <= 0 {
		runCfg.BudgetSeconds = 250
	}
	if runCfg.MinResultsMultiplier <= 0 {
		runCfg.MinResultsMultiplier = 2
	}
	return &Monitor{
		coordinator: coordinator,
		analyzer:    analyzer,
		recommender: recommender,
		aggregator:  aggregator,
		queryRepo:   queryRepo,
		resultRepo:  resultRepo,
		recoRepo:    recoRepo,
		runCfg:      runCfg,
		judgeModel:  judgeModel,
		logger:      logger,
		now:         time.Now,
	}
}

// Run executes one monitoring invocation. Results are persisted
// incrementally per query, so a budget abort or a later fatal error never
// loses already-processed work.
func (m *Monitor) Run(ctx context.Context, opts RunOptions) (*RunReport, error) {
	start := m.now()

	date := opts.Date
	if date == "" {
		date = start.Format("2006-01-02")
	}

	queries, err := m.queryRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading active queries: %w", err)
	}
	if len(queries) == 0 {
		return nil, ErrNoActiveQueries
	}

	totalBatches := (len(queries) + m.runCfg.ChunkSize - 1) / m.runCfg.ChunkSize

	toProcess := queries
	if opts.Batch >= 1 && opts.Batch <= totalBatches {
		startIdx := (opts.Batch - 1) * m.runCfg.ChunkSize
		endIdx := min(startIdx+m.runCfg.ChunkSize, len(queries))
		toProcess = queries[startIdx:endIdx]
		m.logger.Info("processing batch",
			zap.Int("batch", opts.Batch),
			zap.Int("total_batches", totalBatches),
			zap.Int("queries", len(toProcess)),
			zap.String("date", date),
		)
	} else {
		m.logger.Info("processing all queries",
			zap.Int("queries", len(queries)),
			zap.String("date", date),
		)
	}

	report := &RunReport{
		Date:         date,
		Batch:        opts.Batch,
		TotalBatches: totalBatches,
		QueriesTotal: len(toProcess),
	}

	for _, query := range toProcess {
		// Budget check before starting each query: abort the remainder of
		// this invocation, keep everything already persisted.
		if elapsed := m.now().Sub(start); elapsed > m.runCfg.Budget() {
			m.logger.Warn("wall-clock budget exhausted, stopping early",
				zap.Int("processed", report.QueriesProcessed),
				zap.Duration("elapsed", elapsed),
			)
			break
		}

		m.processQuery(ctx, date, query, report)
		report.QueriesProcessed++
	}

	// Recommendations only after the final chunk, and only with enough
	// accumulated data to make headline stats meaningful.
	isLastBatch := opts.Batch == 0 || opts.Batch == totalBatches
	if isLastBatch && report.QueriesProcessed > 0 {
		count, err := m.maybeRecommend(ctx, date, queries)
		if err != nil {
			// Best effort: a failed recommendation pass never fails the run.
			m.logger.Error("recommendation generation failed", zap.Error(err))
		}
		report.RecommendationsCount = count
	}

	report.Duration = m.now().Sub(start)
	report.DurationSec = report.Duration.Seconds()
	m.logger.Info("run finished",
		zap.String("date", date),
		zap.Int("queries_processed", report.QueriesProcessed),
		zap.Int("mentions", report.TotalMentions),
		zap.Int("errors", report.TotalErrors),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

// processQuery fans one question out, analyzes the valid answers, and
// upserts one row per provider — error-only rows included, for audit and
// trend exclusion.
func (m *Monitor) processQuery(ctx context.Context, date string, query model.Query, report *RunReport) {
	m.logger.Info("querying providers",
		zap.String("query_id", query.ID),
		zap.String("query", truncateRunes(query.Text, 50)),
	)

	responses := m.coordinator.QueryAll(ctx, query.Text)

	var valid []ValidResponse
	for _, r := range responses {
		if r.Valid() {
			valid = append(valid, ValidResponse{Provider: r.Provider, Text: *r.Response})
		}
	}

	var analyses []model.Analysis
	if len(valid) > 0 {
		analyses = m.analyzer.Analyze(ctx, query.Text, valid)
	}
	byProvider := make(map[model.Provider]model.Analysis, len(analyses))
	for _, a := range analyses {
		byProvider[a.Provider] = a
	}

	for _, resp := range responses {
		row := &model.Result{
			QueryID:      query.ID,
			Provider:     resp.Provider,
			RunDate:      date,
			ResponseText: resp.Response,
			Error:        resp.Err,
		}
		if resp.Duration > 0 {
			ms := resp.Duration.Milliseconds()
			row.DurationMs = &ms
		}
		if a, ok := byProvider[resp.Provider]; ok {
			row.IsMentioned = a.IsMentioned
			row.MentionRank = a.MentionRank
			row.Sentiment = a.Sentiment
		}

		if err := m.resultRepo.Upsert(ctx, row); err != nil {
			// Best-effort continuation: log, count, move on.
			m.logger.Error("persisting result",
				zap.String("query_id", query.ID),
				zap.String("provider", string(resp.Provider)),
				zap.Error(err),
			)
			report.TotalErrors++
			continue
		}
		if row.IsMentioned {
			report.TotalMentions++
		}
		if resp.Err != nil && !resp.Valid() {
			report.TotalErrors++
		}
	}
}

// maybeRecommend generates and stores the daily action plan when the
// date's accumulated result count clears the configured floor.
func (m *Monitor) maybeRecommend(ctx context.Context, date string, queries []model.Query) (int, error) {
	count, err := m.resultRepo.CountByDate(ctx, date)
	if err != nil {
		return 0, fmt.Errorf("counting results: %w", err)
	}

	floor := int64(m.runCfg.MinResultsMultiplier * len(queries))
	if count < floor {
		m.logger.Info("skipping recommendations, not enough results yet",
			zap.Int64("count", count),
			zap.Int64("floor", floor),
		)
		return 0, nil
	}

	set, err := m.generateRecommendations(ctx, date, queries)
	if err != nil {
		return 0, err
	}
	return len(set.Recommendations), nil
}

// generateRecommendations computes the stats snapshot, asks the judge for
// the plan, and upserts the frozen set for the date.
func (m *Monitor) generateRecommendations(ctx context.Context, date string, queries []model.Query) (*model.RecommendationSet, error) {
	results, err := m.resultRepo.ListByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("loading results: %w", err)
	}
	if len(results) == 0 {
		return nil, ErrNoResults
	}

	stats := m.aggregator.Summarize(date, queries, results)
	m.logger.Info("generating recommendations",
		zap.String("date", date),
		zap.Int("global_score", stats.GlobalScore),
	)

	recommendations, tokensUsed := m.recommender.Recommend(ctx, stats)

	set := &model.RecommendationSet{
		RunDate:         date,
		Recommendations: recommendations,
		SummaryStats:    stats,
		ModelUsed:       m.judgeModel,
		TokensUsed:      tokensUsed,
		GeneratedAt:     m.now().UTC(),
	}
	if err := m.recoRepo.Upsert(ctx, set); err != nil {
		return nil, fmt.Errorf("saving recommendations: %w", err)
	}
	return set, nil
}

// RegenerateRecommendations rebuilds the action plan for a date from stored
// results, outside of a run. Used by the dedicated endpoint and the CLI.
func (m *Monitor) RegenerateRecommendations(ctx context.Context, date string) (*model.RecommendationSet, error) {
	if date == "" {
		date = m.now().Format("2006-01-02")
	}

	queries, err := m.queryRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading active queries: %w", err)
	}
	if len(queries) == 0 {
		return nil, ErrNoActiveQueries
	}

	return m.generateRecommendations(ctx, date, queries)
}

// SetClock replaces the orchestrator's clock. Test hook.
func (m *Monitor) SetClock(now func() time.Time) { m.now = now }
