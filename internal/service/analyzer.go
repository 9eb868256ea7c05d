package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fredmontagnon/arianeegeo/internal/llm"
	"github.com/fredmontagnon/arianeegeo/internal/model"
)

// ValidResponse is one provider answer with usable text, as handed to the
// analyzer. Error-only responses never reach this stage.
type ValidResponse struct {
	Provider model.Provider
	Text     string
}

// Analyzer asks the judge LLM whether the brand appears in each provider
// response, at what rank, and with what sentiment — then verifies the
// verdict deterministically. The judge can miss a verbatim mention; a
// case-insensitive substring scan cannot. Trust, but verify.
type Analyzer struct {
	judge    llm.Client
	brand    string // display name used in the judge prompt
	token    string // lowercase token scanned for in response texts
	truncate int
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// NewAnalyzer creates an Analyzer. judge may be unconfigured — analysis then
// degrades to all-empty verdicts rather than failing the run.
func NewAnalyzer(judge llm.Client, brand, token string, truncateChars int, limiter *rate.Limiter, logger *zap.Logger) *Analyzer {
	if truncateChars <= 0 {
		truncateChars = 3000
	}
	return &Analyzer{
		judge:    judge,
		brand:    brand,
		token:    strings.ToLower(token),
		truncate: truncateChars,
		limiter:  limiter,
		logger:   logger,
	}
}

// judgeEntry is the wire shape the judge is instructed to return, one per
// provider.
type judgeEntry struct {
	LLMName     string  `json:"llm_name"`
	IsMentioned bool    `json:"is_mentioned"`
	MentionRank *int    `json:"mention_rank"`
	Sentiment   *string `json:"sentiment"`
}

// Analyze classifies each valid response. It always returns exactly one
// Analysis per input response, in input order, whatever the judge does.
func (a *Analyzer) Analyze(ctx context.Context, queryText string, responses []ValidResponse) []model.Analysis {
	if len(responses) == 0 {
		return nil
	}

	// No judge credential: degrade gracefully to empty verdicts rather
	// than failing the run.
	if a.judge == nil || !a.judge.Configured() {
		out := make([]model.Analysis, 0, len(responses))
		for _, r := range responses {
			out = append(out, model.Analysis{Provider: r.Provider})
		}
		return out
	}

	entries, err := a.callJudge(ctx, queryText, responses)
	if err != nil {
		a.logger.Error("judge analysis failed, using textual heuristic",
			zap.String("query", truncateRunes(queryText, 80)),
			zap.Error(err),
		)
		return a.heuristic(responses)
	}

	// Index judge entries by lowercased provider name. Entries naming a
	// provider we did not send are a data-quality gap: logged and dropped.
	byName := make(map[string]judgeEntry, len(entries))
	known := make(map[string]bool, len(responses))
	for _, r := range responses {
		known[strings.ToLower(string(r.Provider))] = true
	}
	for _, e := range entries {
		key := strings.ToLower(e.LLMName)
		if !known[key] {
			a.logger.Warn("judge returned entry for unknown provider, dropping",
				zap.String("llm_name", e.LLMName),
			)
			continue
		}
		byName[key] = e
	}

	out := make([]model.Analysis, 0, len(responses))
	for _, r := range responses {
		analysis := model.Analysis{Provider: r.Provider}
		if e, ok := byName[strings.ToLower(string(r.Provider))]; ok {
			analysis.IsMentioned = e.IsMentioned
			analysis.MentionRank = e.MentionRank
			if e.Sentiment != nil && model.ValidSentiment(*e.Sentiment) {
				s := model.Sentiment(*e.Sentiment)
				analysis.Sentiment = &s
			}
		}
		out = append(out, a.finalize(analysis, r.Text))
	}
	return out
}

// callJudge builds the analysis prompt, sends it, and parses the array.
func (a *Analyzer) callJudge(ctx context.Context, queryText string, responses []ValidResponse) ([]judgeEntry, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("judge rate limit wait: %w", err)
		}
	}

	comp, err := a.judge.Complete(ctx, a.buildPrompt(queryText, responses))
	if err != nil {
		return nil, fmt.Errorf("judge call: %w", err)
	}

	var entries []judgeEntry
	if err := decodeJudgeArray(comp.Text, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (a *Analyzer) buildPrompt(queryText string, responses []ValidResponse) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Analyze these LLM responses to the question: %q\n\n", queryText)

	names := make([]string, 0, len(responses))
	for _, r := range responses {
		names = append(names, string(r.Provider))
		fmt.Fprintf(&sb, "--- %s ---\n%s\n\n", strings.ToUpper(string(r.Provider)), truncateRunes(r.Text, a.truncate))
	}

	fmt.Fprintf(&sb, `For EACH LLM (%s), determine:

1. **is_mentioned** (true/false): does the word %q appear VERBATIM in the response?
   IMPORTANT: if the word %q appears anywhere in the text this is ALWAYS true, even if the context is vague. We check for TEXTUAL PRESENCE of the word, not relevance of the context.

2. **mention_rank** (number|null): if %s is mentioned, at what rank is it cited among the solutions/companies mentioned? (1=first cited, 2=second, etc.). null if absent.

3. **sentiment**: the tone associated with %s in the response. Allowed values EXACTLY:
   - "very_positive": praise, strongly favorable framing, market leader
   - "positive": favorable mention
   - "neutral": factual mention, neither positive nor negative
   - "negative": critical mention, unfavorable framing
   - "very_negative": strong criticism
   - null: if absent from the response

Respond ONLY with valid JSON, no backticks, no markdown:
[
`, strings.Join(names, ", "), a.brand, a.brand, a.brand, a.brand)

	for i, n := range names {
		sep := ","
		if i == len(names)-1 {
			sep = ""
		}
		fmt.Fprintf(&sb, "  { \"llm_name\": %q, \"is_mentioned\": true_or_false, \"mention_rank\": number_or_null, \"sentiment\": \"value_or_null\" }%s\n", n, sep)
	}
	sb.WriteString("]")

	return sb.String()
}

// heuristic is the last-resort tier: pure textual detection, neutral
// sentiment, no rank.
func (a *Analyzer) heuristic(responses []ValidResponse) []model.Analysis {
	out := make([]model.Analysis, 0, len(responses))
	for _, r := range responses {
		out = append(out, a.finalize(model.Analysis{Provider: r.Provider}, r.Text))
	}
	return out
}

// finalize applies the safety override and the structural invariants.
// The override only strengthens true positives: a judge-asserted mention is
// never downgraded, but a missed verbatim occurrence of the brand token is
// forced to mentioned with neutral sentiment.
func (a *Analyzer) finalize(analysis model.Analysis, responseText string) model.Analysis {
	if a.token != "" && strings.Contains(strings.ToLower(responseText), a.token) {
		if !analysis.IsMentioned {
			a.logger.Info("override: brand found verbatim, forcing mentioned",
				zap.String("provider", string(analysis.Provider)),
			)
			analysis.IsMentioned = true
		}
		if analysis.Sentiment == nil {
			neutral := model.SentimentNeutral
			analysis.Sentiment = &neutral
		}
	}

	// Never a rank or sentiment on an absent mention.
	if !analysis.IsMentioned {
		analysis.MentionRank = nil
		analysis.Sentiment = nil
	}

	return analysis
}
