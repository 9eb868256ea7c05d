package service

import (
	"math"
	"sort"

	"github.com/fredmontagnon/arianeegeo/internal/model"
)

// Aggregator computes mention-rate statistics over persisted results.
// It never mutates rows; SummaryStats and trend series are recomputed from
// scratch on every call.
//
// One rule applies everywhere: rows without response text are error-only
// rows and are excluded from every numerator and denominator. An unanswered
// question says nothing about brand presence — errors must not be conflated
// with confirmed absence.
type Aggregator struct {
	weights map[model.Provider]float64
}

// NewAggregator creates an Aggregator with the given market-share weight
// table. Weights come from configuration so tests can pin them.
func NewAggregator(weights map[string]float64) *Aggregator {
	w := make(map[model.Provider]float64, len(weights))
	for name, weight := range weights {
		w[model.Provider(name)] = weight
	}
	return &Aggregator{weights: w}
}

type mentionCount struct {
	mentioned int
	total     int
}

func (c mentionCount) pct() int {
	if c.total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(c.mentioned) / float64(c.total)))
}

// ProviderScores returns the mention rate per provider over valid rows, for
// every canonical provider. A provider with zero valid rows scores the
// NoDataScore sentinel — "no data" is not "confirmed 0%".
func (a *Aggregator) ProviderScores(results []model.Result) map[model.Provider]int {
	counts := make(map[model.Provider]mentionCount)
	for _, r := range results {
		if !r.HasResponse() {
			continue
		}
		c := counts[r.Provider]
		c.total++
		if r.IsMentioned {
			c.mentioned++
		}
		counts[r.Provider] = c
	}

	scores := make(map[model.Provider]int, len(model.AllProviders))
	for _, p := range model.AllProviders {
		if c, ok := counts[p]; ok && c.total > 0 {
			scores[p] = c.pct()
		} else {
			scores[p] = model.NoDataScore
		}
	}
	return scores
}

// GlobalScore is the market-share-weighted mean of per-provider scores.
// Providers at the sentinel are excluded from numerator and denominator;
// if every provider is at the sentinel, so is the global score.
func (a *Aggregator) GlobalScore(scores map[model.Provider]int) int {
	var weightedSum, totalWeight float64
	for p, score := range scores {
		if score < 0 {
			continue
		}
		w := a.weights[p]
		weightedSum += float64(score) * w
		totalWeight += w
	}
	if totalWeight == 0 {
		return model.NoDataScore
	}
	return int(math.Round(weightedSum / totalWeight))
}

// Summarize builds the full statistics snapshot for one date.
func (a *Aggregator) Summarize(date string, queries []model.Query, results []model.Result) model.SummaryStats {
	providerScores := a.ProviderScores(results)

	queryByID := make(map[string]model.Query, len(queries))
	for _, q := range queries {
		queryByID[q.ID] = q
	}

	topicCounts := make(map[model.Topic]mentionCount)
	absentByQuery := make(map[string][]model.Provider)
	totalMentions := 0

	for _, r := range results {
		if r.IsMentioned {
			totalMentions++
		}
		if !r.HasResponse() {
			continue
		}

		q, ok := queryByID[r.QueryID]
		if ok {
			c := topicCounts[q.Topic]
			c.total++
			if r.IsMentioned {
				c.mentioned++
			}
			topicCounts[q.Topic] = c
		}

		if !r.IsMentioned {
			absentByQuery[r.QueryID] = append(absentByQuery[r.QueryID], r.Provider)
		}
	}

	topicScores := make(map[model.Topic]model.TopicScore, len(topicCounts))
	for topic, c := range topicCounts {
		topicScores[topic] = model.TopicScore{Mentioned: c.mentioned, Total: c.total, Pct: c.pct()}
	}

	// Absent details in query display order, so the judge prompt and the
	// gap-analysis view are stable across runs.
	var absentDetails []model.AbsentDetail
	for _, q := range queries {
		providers, ok := absentByQuery[q.ID]
		if !ok {
			continue
		}
		absentDetails = append(absentDetails, model.AbsentDetail{
			Query:      q.Text,
			TopicLabel: q.TopicLabel,
			AbsentFrom: providers,
		})
	}

	return model.SummaryStats{
		Date:           date,
		GlobalScore:    a.GlobalScore(providerScores),
		TotalQueries:   len(queries),
		TotalResults:   len(results),
		TotalMentions:  totalMentions,
		ProviderScores: providerScores,
		TopicScores:    topicScores,
		AbsentDetails:  absentDetails,
	}
}

// History turns a date-range result set into one trend point per date, with
// a mention rate for every canonical provider. Providers with no valid rows
// on a date score 0 rather than being omitted, so chart series have no gaps.
func (a *Aggregator) History(results []model.Result) []model.TrendPoint {
	type key struct {
		date     string
		provider model.Provider
	}
	counts := make(map[key]mentionCount)
	dates := make(map[string]bool)

	for _, r := range results {
		if !r.HasResponse() {
			continue
		}
		dates[r.RunDate] = true
		k := key{r.RunDate, r.Provider}
		c := counts[k]
		c.total++
		if r.IsMentioned {
			c.mentioned++
		}
		counts[k] = c
	}

	ordered := make([]string, 0, len(dates))
	for d := range dates {
		ordered = append(ordered, d)
	}
	sort.Strings(ordered)

	points := make([]model.TrendPoint, 0, len(ordered))
	for _, d := range ordered {
		scores := make(map[model.Provider]int, len(model.AllProviders))
		for _, p := range model.AllProviders {
			scores[p] = counts[key{d, p}].pct()
		}
		points = append(points, model.TrendPoint{Date: d, Scores: scores})
	}
	return points
}
