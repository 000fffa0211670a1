package compactor

import (
	"strings"

	"github.com/sreinvestigator/investigator/pkg/model"
)

// Preset names the three documented weighting presets.
type Preset string

const (
	PresetIncident Preset = "incident"
	PresetResearch Preset = "research"
	PresetBalanced Preset = "balanced"
)

// Weights controls how heavily each scoring factor counts toward a
// result's importance (higher score = more likely to stay full).
type Weights struct {
	Recency         float64
	AffectedService float64
	ErrorSignal     float64
	HypothesisMatch float64
	Health          float64
}

// WeightsFor returns the documented weights for a preset, defaulting to
// balanced for an unrecognized or empty preset name.
func WeightsFor(p Preset) Weights {
	switch p {
	case PresetIncident:
		return Weights{Recency: 0.15, AffectedService: 0.3, ErrorSignal: 0.3, HypothesisMatch: 0.15, Health: 0.1}
	case PresetResearch:
		return Weights{Recency: 0.35, AffectedService: 0.1, ErrorSignal: 0.1, HypothesisMatch: 0.35, Health: 0.1}
	default: // balanced
		return Weights{Recency: 0.25, AffectedService: 0.2, ErrorSignal: 0.2, HypothesisMatch: 0.2, Health: 0.15}
	}
}

// Context bundles everything the compactor needs besides the results
// themselves.
type Context struct {
	AffectedServices  []string
	CurrentHypothesis string // statement text, for token-overlap relevance
	KeepToolUses      int    // most-recent N results always kept full; default 5
	TokenBudget       int
	Preset            Preset
}

// Tier is the outcome for a single result.
type Tier struct {
	ResultID string
	Tier     model.ToolResultTierKind
	Score    float64
}

// Plan is the full set of per-result tier decisions.
type Plan struct {
	Tiers         []Tier
	EstimatedTokens int
}

// ResultInput is one candidate for scoring: the compact summary plus
// (when still available) the full body text and its position in the
// insertion order.
type ResultInput struct {
	Compact  model.CompactToolResult
	FullBody string
	Position int // 0 = oldest
	Total    int
}

// BuildPlan scores every result and classifies it into keep-full,
// keep-compact, or clear. The most recent KeepToolUses results are always
// kept full, and their full bodies always count toward the token total.
// Every other result is taken in descending score order and kept full if
// its body still fits within TokenBudget, else compact if its summary
// fits, else cleared — so the total exceeds TokenBudget by at most the
// cost of the keep-full floor.
func BuildPlan(inputs []ResultInput, ctx Context) Plan {
	keepToolUses := ctx.KeepToolUses
	if keepToolUses <= 0 {
		keepToolUses = 5
	}
	weights := WeightsFor(ctx.Preset)

	scored := make([]struct {
		in    ResultInput
		score float64
	}, len(inputs))
	for i, in := range inputs {
		scored[i].in = in
		scored[i].score = score(in, ctx, weights)
	}

	// Sort by score descending, stable, so ties keep insertion order.
	for i := 1; i < len(scored); i++ {
		for j := i; j > 0 && scored[j].score > scored[j-1].score; j-- {
			scored[j], scored[j-1] = scored[j-1], scored[j]
		}
	}

	plan := Plan{}
	budget := ctx.TokenBudget
	if budget <= 0 {
		budget = 100_000
	}
	used := 0

	tierByID := make(map[string]model.ToolResultTierKind, len(inputs))
	for _, in := range inputs {
		recent := in.Total-in.Position <= keepToolUses
		if recent {
			tierByID[in.Compact.ResultID] = model.TierFull
		}
	}

	for _, s := range scored {
		id := s.in.Compact.ResultID
		if tier, forced := tierByID[id]; forced {
			plan.Tiers = append(plan.Tiers, Tier{ResultID: id, Tier: tier, Score: s.score})
			used += EstimateTokens(s.in.FullBody)
			continue
		}

		fullCost := EstimateTokens(s.in.FullBody)
		compactCost := EstimateTokens(s.in.Compact.Summary)

		switch {
		case used+fullCost <= budget:
			plan.Tiers = append(plan.Tiers, Tier{ResultID: id, Tier: model.TierFull, Score: s.score})
			used += fullCost
		case used+compactCost <= budget:
			plan.Tiers = append(plan.Tiers, Tier{ResultID: id, Tier: model.TierCompact, Score: s.score})
			used += compactCost
		default:
			plan.Tiers = append(plan.Tiers, Tier{ResultID: id, Tier: model.TierCleared, Score: s.score})
		}
	}

	plan.EstimatedTokens = used
	return plan
}

func score(in ResultInput, ctx Context, w Weights) float64 {
	var total float64

	if in.Total > 1 {
		recency := float64(in.Position) / float64(in.Total-1)
		total += w.Recency * recency
	} else {
		total += w.Recency
	}

	for _, svc := range in.Compact.Services {
		if containsFold(ctx.AffectedServices, svc) {
			total += w.AffectedService
			break
		}
	}

	if in.Compact.IsError {
		total += w.ErrorSignal
	}

	if ctx.CurrentHypothesis != "" && tokenOverlap(ctx.CurrentHypothesis, in.Compact.Summary) > 0 {
		total += w.HypothesisMatch * tokenOverlap(ctx.CurrentHypothesis, in.Compact.Summary)
	}

	switch in.Compact.HealthStatus {
	case model.HealthCritical:
		total += w.Health
	case model.HealthDegraded:
		total += w.Health * 0.5
	}

	return total
}

func containsFold(list []string, target string) bool {
	for _, s := range list {
		if strings.EqualFold(s, target) {
			return true
		}
	}
	return false
}

// tokenOverlap returns the Jaccard overlap of the whitespace-token sets
// of a and b, used to approximate relevance to the current hypothesis.
func tokenOverlap(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	intersect := 0
	for tok := range setA {
		if setB[tok] {
			intersect++
		}
	}
	union := len(setA) + len(setB) - intersect
	if union == 0 {
		return 0
	}
	return float64(intersect) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		set[tok] = true
	}
	return set
}
