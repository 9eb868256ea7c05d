package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fredmontagnon/arianeegeo/internal/model"
	"github.com/fredmontagnon/arianeegeo/internal/storage"
)

// ResultCell is one provider's slot in a query row of the dashboard grid.
// Empty cells (provider never ran for this query/date) have no response,
// no error and a zero analysis.
type ResultCell struct {
	Provider     model.Provider   `json:"llm_name"`
	ResponseText *string          `json:"response_text"`
	IsMentioned  bool             `json:"is_mentioned"`
	MentionRank  *int             `json:"mention_rank"`
	Sentiment    *model.Sentiment `json:"sentiment"`
	Error        *string          `json:"error"`
}

// QueryResults is one dashboard grid row: a question and one cell per
// provider in canonical order.
type QueryResults struct {
	Query   model.Query  `json:"query"`
	Results []ResultCell `json:"results"`
}

// Scores pairs the selected date's provider scores with the previous
// day's, for the dashboard's delta arrows.
type Scores struct {
	Today     map[model.Provider]int `json:"today"`
	Yesterday map[model.Provider]int `json:"yesterday"`
}

// DashboardData is the full read-side payload for one date.
type DashboardData struct {
	Date            string                   `json:"date"`
	LastScanDate    string                   `json:"last_scan_date"`
	GlobalScore     int                      `json:"global_score"`
	Scores          Scores                   `json:"scores"`
	Queries         []QueryResults           `json:"queries"`
	Stats           model.SummaryStats       `json:"stats"`
	History         []model.TrendPoint       `json:"history"`
	Recommendations *model.RecommendationSet `json:"recommendations"`
}

// Dashboard assembles the read model: grid, scores, 30-day history and the
// stored recommendation set. All aggregates are recomputed from rows on
// every call; nothing here writes.
type Dashboard struct {
	aggregator *Aggregator
	queryRepo  storage.QueryRepository
	resultRepo storage.ResultRepository
	recoRepo   storage.RecommendationRepository
	now        func() time.Time
}

// NewDashboard builds the read service.
func NewDashboard(
	aggregator *Aggregator,
	queryRepo storage.QueryRepository,
	resultRepo storage.ResultRepository,
	recoRepo storage.RecommendationRepository,
) *Dashboard {
	return &Dashboard{
		aggregator: aggregator,
		queryRepo:  queryRepo,
		resultRepo: resultRepo,
		recoRepo:   recoRepo,
		now:        time.Now,
	}
}

// Load returns the dashboard payload for date (today when empty). A date
// with no results is not an error: the grid is all empty cells and every
// score is the no-data sentinel.
func (d *Dashboard) Load(ctx context.Context, date string) (*DashboardData, error) {
	today := d.now()
	if date == "" {
		date = today.Format("2006-01-02")
	}

	queries, err := d.queryRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading queries: %w", err)
	}

	results, err := d.resultRepo.ListByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("loading results: %w", err)
	}

	parsed, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}
	yesterday := parsed.AddDate(0, 0, -1).Format("2006-01-02")
	yesterdayResults, err := d.resultRepo.ListByDate(ctx, yesterday)
	if err != nil {
		return nil, fmt.Errorf("loading previous day results: %w", err)
	}

	historyStart := parsed.AddDate(0, 0, -29).Format("2006-01-02")
	rangeResults, err := d.resultRepo.ListRange(ctx, historyStart, date)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	recommendations, err := d.recoRepo.GetByDate(ctx, date)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("loading recommendations: %w", err)
	}

	lastScan, err := d.resultRepo.LastRunDate(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading last run date: %w", err)
	}

	stats := d.aggregator.Summarize(date, queries, results)

	return &DashboardData{
		Date:            date,
		LastScanDate:    lastScan,
		GlobalScore:     stats.GlobalScore,
		Scores: Scores{
			Today:     stats.ProviderScores,
			Yesterday: d.aggregator.ProviderScores(yesterdayResults),
		},
		Queries:         buildGrid(queries, results),
		Stats:           stats,
		History:         fillHistory(d.aggregator.History(rangeResults), historyStart, date),
		Recommendations: recommendations,
	}, nil
}

// buildGrid lays results out per query, one cell per provider in canonical
// order, empty cells where a provider has no row.
func buildGrid(queries []model.Query, results []model.Result) []QueryResults {
	type key struct {
		queryID  string
		provider model.Provider
	}
	byKey := make(map[key]model.Result, len(results))
	for _, r := range results {
		byKey[key{r.QueryID, r.Provider}] = r
	}

	grid := make([]QueryResults, 0, len(queries))
	for _, q := range queries {
		row := QueryResults{Query: q, Results: make([]ResultCell, 0, len(model.AllProviders))}
		for _, p := range model.AllProviders {
			cell := ResultCell{Provider: p}
			if r, ok := byKey[key{q.ID, p}]; ok {
				cell.ResponseText = r.ResponseText
				cell.IsMentioned = r.IsMentioned
				cell.MentionRank = r.MentionRank
				cell.Sentiment = r.Sentiment
				cell.Error = r.Error
			}
			row.Results = append(row.Results, cell)
		}
		grid = append(grid, row)
	}
	return grid
}

// fillHistory zero-fills the series so every calendar day between from and
// to appears exactly once, even with no stored rows at all.
func fillHistory(points []model.TrendPoint, from, to string) []model.TrendPoint {
	byDate := make(map[string]model.TrendPoint, len(points))
	for _, p := range points {
		byDate[p.Date] = p
	}

	start, err := time.Parse("2006-01-02", from)
	if err != nil {
		return points
	}
	end, err := time.Parse("2006-01-02", to)
	if err != nil {
		return points
	}

	var filled []model.TrendPoint
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		date := day.Format("2006-01-02")
		if p, ok := byDate[date]; ok {
			filled = append(filled, p)
			continue
		}
		scores := make(map[model.Provider]int, len(model.AllProviders))
		for _, prov := range model.AllProviders {
			scores[prov] = 0
		}
		filled = append(filled, model.TrendPoint{Date: date, Scores: scores})
	}
	return filled
}
