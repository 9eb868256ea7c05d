package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fredmontagnon/arianeegeo/internal/llm"
	"github.com/fredmontagnon/arianeegeo/internal/model"
)

// Recommender feeds the daily statistics snapshot to the judge LLM and
// parses back a prioritized five-item action plan. It never returns an
// error to its caller: every failure mode resolves to a placeholder
// recommendation describing what went wrong.
type Recommender struct {
	judge   llm.Client
	brand   string
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewRecommender creates a Recommender. judge may be unconfigured.
func NewRecommender(judge llm.Client, brand string, limiter *rate.Limiter, logger *zap.Logger) *Recommender {
	return &Recommender{judge: judge, brand: brand, limiter: limiter, logger: logger}
}

// Recommend returns the action list plus the judge's output-token count.
func (r *Recommender) Recommend(ctx context.Context, stats model.SummaryStats) ([]model.Recommendation, int) {
	if r.judge == nil || !r.judge.Configured() {
		return []model.Recommendation{{
			Title:       "Configure the judge API key",
			Description: "Set the judge credential (ANTHROPIC_API_KEY) to enable AI-generated recommendations.",
			Priority:    model.PriorityHigh,
			ActionItems: []string{"Add ANTHROPIC_API_KEY to the environment"},
		}}, 0
	}

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			r.logger.Error("judge rate limit wait", zap.Error(err))
			return r.diagnostic(fmt.Sprintf("rate limit wait aborted: %v", err)), 0
		}
	}

	prompt, err := r.buildPrompt(stats)
	if err != nil {
		r.logger.Error("building recommendation prompt", zap.Error(err))
		return r.diagnostic(err.Error()), 0
	}

	comp, err := r.judge.Complete(ctx, prompt)
	if err != nil {
		r.logger.Error("judge recommendation call failed", zap.Error(err))
		return r.diagnostic(fmt.Sprintf("judge call failed: %v", err)), 0
	}

	var recommendations []model.Recommendation
	if err := decodeJudgeArray(comp.Text, &recommendations); err != nil {
		r.logger.Error("parsing judge recommendations",
			zap.Error(err),
			zap.String("raw", truncateRunes(comp.Text, 500)),
		)
		return r.diagnostic(fmt.Sprintf("could not parse judge output (%d chars)", len(comp.Text))), comp.OutputTokens
	}

	// Malformed individual fields pass through as-is — the structural parse
	// is the only validation performed on judge output.
	return recommendations, comp.OutputTokens
}

func (r *Recommender) buildPrompt(stats model.SummaryStats) (string, error) {
	statsJSON, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling stats: %w", err)
	}

	return fmt.Sprintf(`You are an expert consultant in GEO (Generative Engine Optimization) and B2B tech marketing.

CONTEXT:
%[1]s is a French leader in blockchain-based Digital Product Passports (DPP). The company helps brands (luxury, fashion, watchmaking, electronics) create product passports compliant with the European ESPR regulation (Ecodesign for Sustainable Products Regulation).
We monitor %[1]s's daily visibility in the answers of 6 major LLMs (ChatGPT, Gemini, Mistral, Grok, Claude, Perplexity) across thematic DPP/ESPR questions.

MONITORING RESULTS:
%[2]s

MISSION:
Produce an action plan of exactly 5 prioritized tasks to improve %[1]s's global AI visibility score on DPP/ESPR queries.

RULES:
- Each task must be SPECIFIC and ACTIONABLE (no generalities)
- Prioritize thematic topics at 0%% (maximum marginal gain)
- Estimate the potential impact of each action on the global score
- The title must start with an infinitive verb
- action_items are concrete steps to carry out
- target_topic is the thematic topic targeted (or "global" if cross-cutting)

Respond ONLY with valid JSON, no backticks, no markdown:
[
  {
    "title": "Short actionable title",
    "description": "Detailed explanation of WHY and HOW",
    "priority": "high",
    "target_topic": "providers",
    "estimated_impact": "+5%% to +10%%",
    "action_items": ["step 1", "step 2", "step 3"]
  }
]`, r.brand, string(statsJSON)), nil
}

// diagnostic is the total-failure placeholder: a single low-priority item
// telling the operator how to retry.
func (r *Recommender) diagnostic(reason string) []model.Recommendation {
	return []model.Recommendation{{
		Title:       "Regenerate recommendations",
		Description: fmt.Sprintf("Recommendation generation failed: %s. Retry via POST /api/v1/monitor/recommendations.", reason),
		Priority:    model.PriorityLow,
		ActionItems: []string{"Check the server logs", "Retry via POST /api/v1/monitor/recommendations"},
	}}
}
