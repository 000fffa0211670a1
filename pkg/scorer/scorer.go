// Package scorer implements EvidenceScorer: it asks the LLM for a
// structured evaluation of a hypothesis's gathered evidence, then
// recomputes a local confidence score from the documented factor
// weights so the numeric confidence never depends solely on the model's
// arithmetic (SPEC_FULL.md §4.10). Delegation shape mirrors the
// teacher's ScoringAgent (pkg/agent/scoring_agent.go).
package scorer

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sreinvestigator/investigator/pkg/llm"
	"github.com/sreinvestigator/investigator/pkg/model"
)

// Weights are the documented point values for each evidence factor.
const (
	WeightChainDepthMax        = 30
	WeightCorroboratingMax     = 40
	WeightContradictingEach    = -25
	WeightTemporalCorrelation  = 15
	WeightHistoricalPattern    = 15
	WeightDirectEvidence       = 20
	TemporalCorrelationWindow  = 5 * time.Minute
)

// Factors are the raw signals fed into the local confidence computation,
// extracted from the LLM's structured evaluation plus the caller's own
// bookkeeping (e.g. timestamps the LLM doesn't see directly).
type Factors struct {
	EvidenceChainDepth     int  // number of corroborating query results in the chain, capped contribution at 30
	CorroboratingStrong    int  // count of strong corroborating signals, capped contribution at 40
	ContradictingCount     int  // count of contradicting signals, -25 each
	TemporalCorrelated     bool // symptom and evidence timestamps within TemporalCorrelationWindow
	HistoricalPatternMatch bool // matches a known incident pattern from knowledge retrieval
	DirectEvidence         bool // evidence directly names the root cause rather than correlating with it
}

// Score computes a 0-100 confidence score from Factors, clamped to range.
func Score(f Factors) int {
	total := 0.0
	total += math.Min(float64(f.EvidenceChainDepth)*6, WeightChainDepthMax)
	total += math.Min(float64(f.CorroboratingStrong)*10, WeightCorroboratingMax)
	total += float64(f.ContradictingCount) * WeightContradictingEach
	if f.TemporalCorrelated {
		total += WeightTemporalCorrelation
	}
	if f.HistoricalPatternMatch {
		total += WeightHistoricalPattern
	}
	if f.DirectEvidence {
		total += WeightDirectEvidence
	}
	if total < 0 {
		total = 0
	}
	if total > 100 {
		total = 100
	}
	return int(math.Round(total))
}

// Level buckets a numeric confidence score per SPEC_FULL.md's thresholds:
// high >= 70, medium >= 40, else low.
func Level(confidence int) model.ConfidenceLevel {
	switch {
	case confidence >= 70:
		return model.ConfidenceHigh
	case confidence >= 40:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}

// llmVerdict is the structured shape the LLM is asked to produce; it
// supplies the qualitative factors the local Score function can't infer
// from raw tool output alone.
type llmVerdict struct {
	EvidenceStrength       model.EvidenceStrength  `json:"evidenceStrength"`
	Reasoning              string                  `json:"reasoning"`
	Action                 model.EvaluationAction  `json:"action"`
	Findings               []string                `json:"findings"`
	CorroboratingStrong    int                     `json:"corroboratingStrongCount"`
	ContradictingCount     int                     `json:"contradictingCount"`
	HistoricalPatternMatch bool                    `json:"historicalPatternMatch"`
	DirectEvidence         bool                    `json:"directEvidence"`
}

// Scorer evaluates a hypothesis's gathered evidence.
type Scorer struct {
	client llm.Client
}

// New creates a Scorer delegating structured evaluation to client.
func New(client llm.Client) *Scorer {
	return &Scorer{client: client}
}

// Evaluate asks the LLM to judge h's accumulated query results, then
// recomputes confidence locally from the returned factors plus temporal
// correlation and chain-depth signals the caller already has.
func (s *Scorer) Evaluate(ctx context.Context, h *model.Hypothesis, temporalCorrelated bool) (model.EvidenceEvaluation, error) {
	system := "You are evaluating evidence gathered for a single root-cause hypothesis during an incident investigation. " +
		"Respond with a single JSON object matching the requested schema. Do not include any text outside the JSON object."
	user := buildEvaluationPrompt(h)

	resp, err := s.client.Chat(ctx, system, user, nil)
	if err != nil {
		return model.EvidenceEvaluation{}, fmt.Errorf("evaluating hypothesis %s: %w", h.ID, err)
	}

	var verdict llmVerdict
	if err := llm.ParseStructured(resp.Content, &verdict); err != nil {
		return model.EvidenceEvaluation{}, fmt.Errorf("parsing evaluation for hypothesis %s: %w", h.ID, err)
	}

	confidence := Score(Factors{
		EvidenceChainDepth:     len(h.QueryResults),
		CorroboratingStrong:    verdict.CorroboratingStrong,
		ContradictingCount:     verdict.ContradictingCount,
		TemporalCorrelated:     temporalCorrelated,
		HistoricalPatternMatch: verdict.HistoricalPatternMatch,
		DirectEvidence:         verdict.DirectEvidence,
	})

	return model.EvidenceEvaluation{
		HypothesisID:     h.ID,
		EvidenceStrength: verdict.EvidenceStrength,
		Confidence:       confidence,
		Reasoning:        verdict.Reasoning,
		Action:           verdict.Action,
		Findings:         verdict.Findings,
	}, nil
}

func buildEvaluationPrompt(h *model.Hypothesis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hypothesis: %s\nCategory: %s\n\nGathered evidence (%d queries):\n", h.Statement, h.Category, len(h.QueryResults))
	for qid, result := range h.QueryResults {
		fmt.Fprintf(&b, "- query %s: %v\n", qid, result)
	}
	b.WriteString("\nSchema: {\"evidenceStrength\": \"strong|weak|none|contradicting\", \"reasoning\": string, " +
		"\"action\": \"confirm|prune|branch|continue\", \"findings\": [string], \"corroboratingStrongCount\": int, " +
		"\"contradictingCount\": int, \"historicalPatternMatch\": bool, \"directEvidence\": bool}")
	return b.String()
}
