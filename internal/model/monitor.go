// Package model defines the core data types for the visibility monitor.
// In Go, we use structs instead of classes. Struct tags (the `json:"..."` and
// `db:"..."` annotations) tell serialization libraries how to map fields.
package model

import "time"

// Provider identifies one of the monitored LLM vendors.
// Go doesn't have enums — we use typed constants with explicit values.
// Keeping the set closed lets aggregation and rendering code switch
// exhaustively over it.
type Provider string

const (
	ProviderChatGPT    Provider = "chatgpt"
	ProviderGemini     Provider = "gemini"
	ProviderMistral    Provider = "mistral"
	ProviderGrok       Provider = "grok"
	ProviderClaude     Provider = "claude"
	ProviderPerplexity Provider = "perplexity"
)

// AllProviders is the canonical provider order. Fan-out results, score maps
// and dashboard rows are always emitted in this order regardless of which
// call finished first.
var AllProviders = []Provider{
	ProviderChatGPT,
	ProviderGemini,
	ProviderMistral,
	ProviderGrok,
	ProviderClaude,
	ProviderPerplexity,
}

// ValidProvider checks if a string is a known Provider.
func ValidProvider(s string) bool {
	for _, p := range AllProviders {
		if Provider(s) == p {
			return true
		}
	}
	return false
}

// Topic is the thematic bloc a monitored question belongs to.
type Topic string

const (
	TopicRegulation     Topic = "regulation"
	TopicCompliance     Topic = "compliance"
	TopicTechnology     Topic = "technology"
	TopicProviders      Topic = "providers"
	TopicIndustry       Topic = "industry"
	TopicSustainability Topic = "sustainability"
)

// AllTopics lists every topic in display order.
var AllTopics = []Topic{
	TopicRegulation,
	TopicCompliance,
	TopicTechnology,
	TopicProviders,
	TopicIndustry,
	TopicSustainability,
}

// ValidTopic checks if a string names one of the monitored topics.
func ValidTopic(s string) bool {
	for _, t := range AllTopics {
		if Topic(s) == t {
			return true
		}
	}
	return false
}

// Sentiment is the 5-level tone the judge assigns to a brand mention.
type Sentiment string

const (
	SentimentVeryPositive Sentiment = "very_positive"
	SentimentPositive     Sentiment = "positive"
	SentimentNeutral      Sentiment = "neutral"
	SentimentNegative     Sentiment = "negative"
	SentimentVeryNegative Sentiment = "very_negative"
)

// ValidSentiment checks if a string is one of the five sentiment levels.
func ValidSentiment(s string) bool {
	switch Sentiment(s) {
	case SentimentVeryPositive, SentimentPositive, SentimentNeutral,
		SentimentNegative, SentimentVeryNegative:
		return true
	default:
		return false
	}
}

// Priority ranks a recommendation.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Query is one monitored question. Queries are configuration: the core only
// reads active queries ordered by sort_order.
type Query struct {
	ID         string `db:"id" json:"id"`
	Text       string `db:"query_text" json:"query_text"`
	Topic      Topic  `db:"topic" json:"topic"`
	TopicLabel string `db:"topic_label" json:"topic_label"`
	SortOrder  int    `db:"sort_order" json:"sort_order"`
	IsActive   bool   `db:"is_active" json:"is_active"`
}

// ProviderResponse is the uniform result shape every adapter produces,
// success or failure. Exactly one of Response/Err drives downstream logic:
// a response is valid only when Response is non-nil, even if an advisory
// error string is also attached (degraded-call-path case).
type ProviderResponse struct {
	Provider Provider
	Response *string
	Err      *string
	Duration time.Duration
}

// Valid reports whether the response carries usable text.
func (r ProviderResponse) Valid() bool {
	return r.Response != nil
}

// Analysis is the judge's verdict for one (query, provider) pair.
// MentionRank is nil when the brand is absent or the rank is unknown;
// Sentiment is nil only when the brand is absent.
type Analysis struct {
	Provider    Provider   `json:"llm_name"`
	IsMentioned bool       `json:"is_mentioned"`
	MentionRank *int       `json:"mention_rank"`
	Sentiment   *Sentiment `json:"sentiment"`
}

// Result is the durable row for one (query, provider, run_date) key.
// Reruns upsert over the same key — last write wins.
type Result struct {
	ID           int64      `db:"id" json:"-"`
	QueryID      string     `db:"query_id" json:"query_id"`
	Provider     Provider   `db:"llm_name" json:"llm_name"`
	RunDate      string     `db:"run_date" json:"run_date"`
	ResponseText *string    `db:"response_text" json:"response_text"`
	IsMentioned  bool       `db:"is_mentioned" json:"is_mentioned"`
	MentionRank  *int       `db:"mention_rank" json:"mention_rank"`
	Sentiment    *Sentiment `db:"sentiment" json:"sentiment"`
	Error        *string    `db:"error" json:"error"`
	DurationMs   *int64     `db:"duration_ms" json:"duration_ms,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"-"`
}

// HasResponse distinguishes answered rows from error-only rows. Error-only
// rows are persisted for audit but excluded from every score.
func (r Result) HasResponse() bool {
	return r.ResponseText != nil && *r.ResponseText != ""
}

// Recommendation is one judge-drafted action item. Fields beyond the
// structural shape are passed through as the judge produced them.
type Recommendation struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Priority        Priority `json:"priority"`
	TargetTopic     string   `json:"target_topic,omitempty"`
	EstimatedImpact string   `json:"estimated_impact,omitempty"`
	ActionItems     []string `json:"action_items"`
}

// RecommendationSet is the durable daily action plan, keyed by run date,
// frozen together with the stats snapshot it was generated from.
type RecommendationSet struct {
	RunDate         string           `json:"run_date"`
	Recommendations []Recommendation `json:"recommendations"`
	SummaryStats    SummaryStats     `json:"summary_stats"`
	ModelUsed       string           `json:"model_used"`
	TokensUsed      int              `json:"tokens_used"`
	GeneratedAt     time.Time        `json:"generated_at"`
}

// NoDataScore is the sentinel meaning "no valid rows", as opposed to a
// confirmed 0% mention rate.
const NoDataScore = -1

// TopicScore is the mention rate within one thematic bloc.
type TopicScore struct {
	Mentioned int `json:"mentioned"`
	Total     int `json:"total"`
	Pct       int `json:"pct"`
}

// AbsentDetail lists the providers that answered a question without
// mentioning the brand — the raw material for gap analysis.
type AbsentDetail struct {
	Query      string     `json:"query"`
	TopicLabel string     `json:"topic"`
	AbsentFrom []Provider `json:"absent_from"`
}

// SummaryStats is the ephemeral aggregate over one date's results. It is
// recomputed on demand; the only persisted copy is the snapshot frozen
// inside a RecommendationSet.
type SummaryStats struct {
	Date           string               `json:"date"`
	GlobalScore    int                  `json:"global_score"`
	TotalQueries   int                  `json:"total_queries"`
	TotalResults   int                  `json:"total_results"`
	TotalMentions  int                  `json:"total_mentions"`
	ProviderScores map[Provider]int     `json:"llm_scores"`
	TopicScores    map[Topic]TopicScore `json:"topic_scores"`
	AbsentDetails  []AbsentDetail       `json:"absent_details"`
}

// TrendPoint is one day of the 30-day history series. Providers without
// valid rows on that date score 0 so the series has no gaps.
type TrendPoint struct {
	Date   string           `json:"date"`
	Scores map[Provider]int `json:"scores"`
}
