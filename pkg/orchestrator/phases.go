package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/sreinvestigator/investigator/pkg/cache"
	"github.com/sreinvestigator/investigator/pkg/compactor"
	"github.com/sreinvestigator/investigator/pkg/events"
	"github.com/sreinvestigator/investigator/pkg/executor"
	"github.com/sreinvestigator/investigator/pkg/knowledge"
	"github.com/sreinvestigator/investigator/pkg/llm"
	"github.com/sreinvestigator/investigator/pkg/metrics"
	"github.com/sreinvestigator/investigator/pkg/model"
	"github.com/sreinvestigator/investigator/pkg/scratchpad"
	"github.com/sreinvestigator/investigator/pkg/statemachine"
	"github.com/sreinvestigator/investigator/pkg/tool"
)

// cachedTool wraps a Tool with a cache lookup keyed on (name, canonical
// args): a hit skips Execute entirely, and a successful (non-error) miss
// is stored for subsequent identical calls. Non-cacheable tool names
// (per tool.IsNonCacheable) bypass the cache in both directions. m may
// be nil, in which case hit/miss counters are skipped.
type cachedTool struct {
	inner   tool.Tool
	cache   *cache.Cache
	metrics *metrics.Metrics
	name    string
}

func (c *cachedTool) Name() string                  { return c.inner.Name() }
func (c *cachedTool) Description() string           { return c.inner.Description() }
func (c *cachedTool) ParametersSchema() tool.Schema { return c.inner.ParametersSchema() }

func (c *cachedTool) Execute(ctx context.Context, args map[string]any) (*tool.Result, error) {
	if c.cache == nil {
		return c.inner.Execute(ctx, args)
	}
	if cached, ok := c.cache.Get(c.name, args); ok {
		c.metrics.RecordCacheHit(c.name)
		return cached, nil
	}
	c.metrics.RecordCacheMiss(c.name)
	result, err := c.inner.Execute(ctx, args)
	if err == nil {
		c.cache.Set(c.name, args, result)
	}
	return result, err
}

type triageVerdict struct {
	Summary          string   `json:"summary"`
	AffectedServices []string `json:"affectedServices"`
	Symptoms         []string `json:"symptoms"`
	ErrorMessages    []string `json:"errorMessages"`
	Severity         string   `json:"severity"`
}

// triage asks the LLM for an initial assessment of query, enriched with
// any knowledge-retriever hits, and records it to the scratchpad.
func (o *Orchestrator) triage(ctx context.Context, query string, sp *scratchpad.Scratchpad, emitter *events.Emitter) (model.TriageResult, error) {
	var related string
	if o.knowledge != nil {
		res, err := o.knowledge.Retrieve(ctx, knowledge.Query{Query: query})
		if err == nil && !res.IsEmpty() {
			related = summarizeKnowledge(res)
			emitter.Emit(events.TypeKnowledgeRetrieved, map[string]any{"runbooks": len(res.Runbooks), "postmortems": len(res.Postmortems)})
		}
	}

	system := "You triage an incident report. Respond with a single JSON object: " +
		"{\"summary\": string, \"affectedServices\": [string], \"symptoms\": [string], " +
		"\"errorMessages\": [string], \"severity\": \"low|medium|high|critical\"}. No text outside the JSON."
	user := query
	if related != "" {
		user += "\n\nRelated knowledge:\n" + related
	}

	ctx, span := o.tracer.StartLLMCall(ctx, "triage")
	start := time.Now()
	resp, err := o.llmClient.Chat(ctx, system, user, nil)
	o.metrics.RecordLLMRequest("triage", llmStatus(err), time.Since(start).Seconds())
	if err != nil {
		o.tracer.RecordError(span, err)
		span.End()
		return model.TriageResult{}, fmt.Errorf("triage chat: %w", err)
	}
	span.End()
	var v triageVerdict
	if err := llm.ParseStructured(resp.Content, &v); err != nil {
		return model.TriageResult{}, fmt.Errorf("parsing triage: %w", err)
	}

	now := time.Now()
	result := model.TriageResult{
		Summary:          v.Summary,
		AffectedServices: v.AffectedServices,
		Symptoms:         v.Symptoms,
		ErrorMessages:    v.ErrorMessages,
		Severity:         model.Severity(v.Severity),
		TimeWindow:       model.TimeWindow{Start: now.Add(-30 * time.Minute), End: now},
		RelatedKnowledge: related,
	}
	_, appendSpan := o.tracer.StartScratchpadAppend(ctx, string(model.EntryInit))
	_ = sp.Append(model.ScratchpadEntry{
		Type:    model.EntryInit,
		Message: "triage complete",
		Data:    map[string]any{"summary": result.Summary, "severity": result.Severity},
	})
	appendSpan.End()
	return result, nil
}

func summarizeKnowledge(res knowledge.Result) string {
	var out string
	for _, doc := range res.Runbooks {
		out += "runbook: " + doc.Title + "\n"
	}
	for _, doc := range res.KnownIssues {
		out += "known issue: " + doc.Title + "\n"
	}
	return out
}

type hypothesisProposal struct {
	Statement string `json:"statement"`
	Category  string `json:"category"`
	Priority  int    `json:"priority"`
	Reasoning string `json:"reasoning"`
}

type hypothesisProposalSet struct {
	Hypotheses []hypothesisProposal `json:"hypotheses"`
}

// seedHypotheses asks the LLM for root hypotheses given the triage
// result and registers them with the state machine.
func (o *Orchestrator) seedHypotheses(ctx context.Context, machine *statemachine.Machine, triage model.TriageResult, sp *scratchpad.Scratchpad, emitter *events.Emitter) error {
	system := "Propose up to 5 distinct root-cause hypotheses for this incident, ordered by likelihood " +
		"(priority 1 = most likely). Respond with a single JSON object: " +
		"{\"hypotheses\": [{\"statement\": string, \"category\": \"infrastructure|application|dependency|configuration|capacity\", " +
		"\"priority\": int, \"reasoning\": string}]}. No text outside the JSON."
	user := fmt.Sprintf("Summary: %s\nAffected services: %v\nSymptoms: %v\nError messages: %v\nSeverity: %s",
		triage.Summary, triage.AffectedServices, triage.Symptoms, triage.ErrorMessages, triage.Severity)

	ctx, span := o.tracer.StartLLMCall(ctx, "hypothesize")
	start := time.Now()
	resp, err := o.llmClient.Chat(ctx, system, user, nil)
	o.metrics.RecordLLMRequest("hypothesize", llmStatus(err), time.Since(start).Seconds())
	if err != nil {
		o.tracer.RecordError(span, err)
		span.End()
		return fmt.Errorf("hypothesize chat: %w", err)
	}
	span.End()
	var set hypothesisProposalSet
	if err := llm.ParseStructured(resp.Content, &set); err != nil {
		return fmt.Errorf("parsing hypotheses: %w", err)
	}

	for _, p := range set.Hypotheses {
		h := &model.Hypothesis{
			ID:        newID("hyp"),
			Statement: p.Statement,
			Category:  model.HypothesisCategory(p.Category),
			Priority:  p.Priority,
			Reasoning: p.Reasoning,
			Status:    model.StatusPending,
		}
		if err := machine.AddHypothesis(h, ""); err != nil {
			// Cap reached: stop seeding further roots, the remaining
			// proposals are dropped rather than erroring the whole phase.
			break
		}
		o.metrics.RecordHypothesis(string(h.Category), "seeded")
		_ = sp.Append(model.ScratchpadEntry{
			Type: model.EntryHypothesisFormed, HypothesisID: h.ID,
			Message: h.Statement,
		})
	}
	return nil
}

// investigate plans and runs h's causal queries, recording each result.
func (o *Orchestrator) investigate(ctx context.Context, machine *statemachine.Machine, h *model.Hypothesis, triage model.TriageResult, sp *scratchpad.Scratchpad, emitter *events.Emitter) {
	queries := o.planner.Plan(h, triage)
	h.PlannedQueries = queries

	var pairs []executor.Pair
	for _, q := range queries {
		t, err := o.tools.Get(q.ToolName)
		if err != nil {
			machine.RecordError(fmt.Errorf("query %s: %w", q.ID, err))
			continue
		}
		check := sp.CanCallTool(q.ToolName, cache.CanonicalArgs(q.Parameters))
		if check.Warning != "" {
			emitter.Emit(events.TypeToolLimit, map[string]any{"tool": q.ToolName, "warning": check.Warning})
		}
		pairs = append(pairs, executor.Pair{
			Call: tool.Call{ID: q.ID, ToolName: q.ToolName, Args: q.Parameters},
			Tool: &cachedTool{inner: t, cache: o.cache, metrics: o.metrics, name: q.ToolName},
		})
	}
	if len(pairs) == 0 {
		return
	}

	ctx, span := o.tracer.StartToolCall(ctx, fmt.Sprintf("batch[%d]", len(pairs)))
	defer span.End()

	emitter.Emit(events.TypeToolStart, map[string]any{"hypothesisId": h.ID, "count": len(pairs)})
	results := o.exec.RunBatch(ctx, pairs)

	byID := make(map[string]model.CausalQuery, len(queries))
	for _, q := range queries {
		byID[q.ID] = q
	}
	for _, r := range results {
		q := byID[r.CallID]
		status := "success"
		switch {
		case r.TimedOut:
			status = "timeout"
		case r.Err != nil:
			status = "error"
		}
		o.metrics.RecordToolCall(q.ToolName, status, r.Duration.Seconds())
		if r.Err != nil {
			emitter.Emit(events.TypeToolError, map[string]any{"tool": q.ToolName, "error": r.Err.Error()})
			machine.RecordError(fmt.Errorf("query %s: %w", q.ID, r.Err))
			continue
		}
		compact := o.summarizers.Summarize(q.ToolName, q.Parameters, r.Result)
		fullBody := fmt.Sprintf("%v", r.Result.Content)
		resultID, err := sp.AppendToolResult(h.ID, cache.CanonicalArgs(q.Parameters), fullBody, compact)
		if err != nil {
			machine.RecordError(err)
			continue
		}
		_ = machine.RecordQueryResult(h.ID, q.ID, compact.Summary)
		emitter.Emit(events.TypeToolEnd, map[string]any{"tool": q.ToolName, "resultId": resultID, "hypothesisId": h.ID})
	}
}

// compact runs the context compactor over the scratchpad's tiered
// results and applies the resulting plan, keeping the current
// hypothesis's evidence chain fully legible while bounding total tokens.
func (o *Orchestrator) compact(machine *statemachine.Machine, sp *scratchpad.Scratchpad, h *model.Hypothesis) {
	ids := sp.ResultIDsOldestFirst()
	tiered := sp.GetTieredResults()
	inputs := make([]compactor.ResultInput, 0, len(ids))
	for i, id := range ids {
		t, ok := tiered[id]
		if !ok {
			continue
		}
		inputs = append(inputs, compactor.ResultInput{
			Compact:  t.Compact,
			FullBody: t.FullBody,
			Position: i,
			Total:    len(ids),
		})
	}
	plan := compactor.BuildPlan(inputs, compactor.Context{
		AffectedServices:  machine.State().Triage.AffectedServices,
		CurrentHypothesis: h.Statement,
		KeepToolUses:      o.cfg.KeepToolUses,
		TokenBudget:       o.cfg.TokenBudget,
		Preset:            o.cfg.CompactionPreset,
	})
	decisions := make([]scratchpad.CompactionDecision, 0, len(plan.Tiers))
	for _, t := range plan.Tiers {
		decisions = append(decisions, scratchpad.CompactionDecision{ResultID: t.ResultID, Tier: t.Tier})
	}
	sp.ApplyCompactionPlan(decisions)
}

func (o *Orchestrator) concludeConfirmed(machine *statemachine.Machine, h *model.Hypothesis, eval model.EvidenceEvaluation) {
	o.metrics.RecordHypothesis(string(h.Category), "confirmed")
	machine.SetConclusion(model.Conclusion{
		RootCause:             h.Statement,
		Confidence:            confidenceLevel(eval.Confidence),
		ConfirmedHypothesisID: h.ID,
		AffectedServices:      machine.State().Triage.AffectedServices,
		EvidenceChain:         []model.EvidenceChainEntry{{Finding: eval.Reasoning, Source: "evaluation", Strength: eval.EvidenceStrength}},
	})
}

func (o *Orchestrator) concludeInconclusive(machine *statemachine.Machine) {
	var unknowns []string
	for _, h := range machine.ActiveHypotheses() {
		if h.Status != model.StatusConfirmed {
			unknowns = append(unknowns, h.Statement)
		}
	}
	machine.SetConclusion(model.Conclusion{
		RootCause:  "inconclusive: no hypothesis reached sufficient confidence within the investigation budget",
		Confidence: model.ConfidenceLow,
		Unknowns:   unknowns,
	})
}

func confidenceLevel(c int) model.ConfidenceLevel {
	switch {
	case c >= 70:
		return model.ConfidenceHigh
	case c >= 40:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}

func llmStatus(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
