// Package orchestrator implements the outer investigation loop: triage,
// hypothesize, investigate/evaluate cycles, conclude, and remediate.
// Loop shape and per-iteration bookkeeping are grounded on the teacher's
// IteratingController (pkg/agent/controller/iterating.go), adapted from
// a single conversational tool-calling loop to a hypothesis-tree driven
// cycle with an explicit state machine as the sole mutator.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sreinvestigator/investigator/pkg/cache"
	"github.com/sreinvestigator/investigator/pkg/compactor"
	"github.com/sreinvestigator/investigator/pkg/events"
	"github.com/sreinvestigator/investigator/pkg/executor"
	"github.com/sreinvestigator/investigator/pkg/knowledge"
	"github.com/sreinvestigator/investigator/pkg/llm"
	"github.com/sreinvestigator/investigator/pkg/metrics"
	"github.com/sreinvestigator/investigator/pkg/model"
	"github.com/sreinvestigator/investigator/pkg/planner"
	"github.com/sreinvestigator/investigator/pkg/scorer"
	"github.com/sreinvestigator/investigator/pkg/scratchpad"
	"github.com/sreinvestigator/investigator/pkg/statemachine"
	"github.com/sreinvestigator/investigator/pkg/summarizer"
	"github.com/sreinvestigator/investigator/pkg/telemetry"
	"github.com/sreinvestigator/investigator/pkg/tool"
)

// Config bounds one investigation run.
type Config struct {
	MaxIterations       int
	MaxHypothesesPerRun int
	CompactionPreset    compactor.Preset
	TokenBudget         int
	KeepToolUses        int
}

// DefaultConfig returns the orchestrator's default bounds, the same
// values config.Defaults sets for the orchestrator and for compaction.
func DefaultConfig() Config {
	return Config{
		MaxIterations:       25,
		MaxHypothesesPerRun: statemachine.MaxHypotheses,
		CompactionPreset:    compactor.PresetIncident,
		TokenBudget:         60_000,
		KeepToolUses:        5,
	}
}

// Orchestrator drives one investigation end to end.
type Orchestrator struct {
	cfg         Config
	llmClient   llm.Client
	tools       *tool.Registry
	knowledge   knowledge.Retriever
	cache       *cache.Cache
	exec        *executor.Executor
	summarizers *summarizer.Registry
	planner     *planner.Planner
	metrics     *metrics.Metrics
	tracer      *telemetry.Tracer
}

// New wires an Orchestrator from its collaborator ports. planner should
// be constructed with the names of the tools registered in tools. m and
// tr may be nil; a nil m skips instrumentation, a nil tr falls back to
// a no-op tracer so call sites never need a nil check.
func New(cfg Config, llmClient llm.Client, tools *tool.Registry, retriever knowledge.Retriever, c *cache.Cache, exec *executor.Executor, summarizers *summarizer.Registry, pl *planner.Planner, m *metrics.Metrics, tr *telemetry.Tracer) *Orchestrator {
	if tr == nil {
		tr, _ = telemetry.New(telemetry.Config{})
	}
	return &Orchestrator{
		cfg:         cfg,
		llmClient:   llmClient,
		tools:       tools,
		knowledge:   retriever,
		cache:       c,
		exec:        exec,
		summarizers: summarizers,
		planner:     pl,
		metrics:     m,
		tracer:      tr,
	}
}

// Run executes a full investigation against query, emitting events to
// emitter and durably logging every step to sp. It returns the final
// investigation state; a non-nil error only indicates an unrecoverable
// failure (a phase transition the state machine rejected) — ordinary
// investigation-time failures are recorded in state.Errors and surfaced
// through the TypeError event instead of returned.
func (o *Orchestrator) Run(ctx context.Context, query string, sp *scratchpad.Scratchpad, emitter *events.Emitter) (*model.InvestigationState, error) {
	id := sp.SessionID()
	machine := statemachine.New(id, query, o.cfg.MaxIterations, emitter)
	emitter.Emit(events.TypeInit, map[string]any{"investigationId": id, "query": query})

	ctx, span := o.tracer.Start(ctx, "investigation.run", trace.SpanKindServer, attribute.String("investigator.id", id))
	defer span.End()
	o.metrics.InvestigationStarted()

	if err := o.transitionTo(machine, model.PhaseTriage, "starting investigation"); err != nil {
		o.tracer.RecordError(span, err)
		o.metrics.InvestigationFinished("error")
		return machine.State(), fmt.Errorf("orchestrator: %w", err)
	}
	triage, err := o.triage(ctx, query, sp, emitter)
	if err != nil {
		machine.RecordError(fmt.Errorf("triage: %w", err))
		emitter.Emit(events.TypeError, map[string]any{"phase": "triage", "error": err.Error()})
	} else {
		machine.SetTriage(triage)
	}
	if o.planner == nil {
		o.planner = planner.New(o.tools.Names(), "")
	}

	if triage.Severity == "" || len(triage.AffectedServices) == 0 {
		// Triage produced nothing actionable: conclude immediately rather
		// than hypothesizing over an empty picture.
		if err := o.transitionTo(machine, model.PhaseConclude, "triage produced no actionable signal"); err == nil {
			o.concludeInconclusive(machine)
		}
		o.finish(machine, emitter)
		return machine.State(), nil
	}

	if err := o.transitionTo(machine, model.PhaseHypothesize, "triage complete"); err != nil {
		return machine.State(), fmt.Errorf("orchestrator: %w", err)
	}
	if err := o.seedHypotheses(ctx, machine, triage, sp, emitter); err != nil {
		machine.RecordError(fmt.Errorf("hypothesize: %w", err))
		emitter.Emit(events.TypeError, map[string]any{"phase": "hypothesize", "error": err.Error()})
	}

	for machine.CanContinue() {
		h := machine.NextHypothesis()
		if h == nil {
			break
		}
		machine.Tick()

		if err := o.transitionTo(machine, model.PhaseInvestigate, "investigating "+h.ID); err != nil {
			machine.RecordError(err)
			break
		}
		if err := machine.SetCurrentHypothesis(h.ID); err != nil {
			machine.RecordError(err)
			continue
		}

		o.investigate(ctx, machine, h, triage, sp, emitter)

		if err := o.transitionTo(machine, model.PhaseEvaluate, "evaluating "+h.ID); err != nil {
			machine.RecordError(err)
			break
		}
		evalCtx, evalSpan := o.tracer.StartLLMCall(ctx, "evaluate")
		evalStart := time.Now()
		eval, err := scorer.New(o.llmClient).Evaluate(evalCtx, h, temporalCorrelation(h, triage))
		o.metrics.RecordLLMRequest("evaluate", llmStatus(err), time.Since(evalStart).Seconds())
		if err != nil {
			o.tracer.RecordError(evalSpan, err)
			machine.RecordError(fmt.Errorf("evaluating %s: %w", h.ID, err))
			eval = model.EvidenceEvaluation{HypothesisID: h.ID, Action: model.ActionPrune, Reasoning: "evaluation failed: " + err.Error()}
		}
		evalSpan.End()
		if err := machine.ApplyEvaluation(eval); err != nil {
			machine.RecordError(err)
		}
		if eval.Action == model.ActionPrune {
			o.metrics.RecordHypothesis(string(h.Category), "pruned")
		}

		o.compact(machine, sp, h)

		if eval.Action == model.ActionConfirm {
			if err := o.transitionTo(machine, model.PhaseConclude, "hypothesis confirmed: "+h.ID); err == nil {
				o.concludeConfirmed(machine, h, eval)
			}
			break
		}
		if err := o.transitionTo(machine, model.PhaseHypothesize, "continuing after "+h.ID); err != nil {
			machine.RecordError(err)
			break
		}
	}

	if machine.State().Conclusion == nil {
		if err := o.transitionTo(machine, model.PhaseConclude, "exhausted iteration budget"); err == nil {
			o.concludeInconclusive(machine)
		}
	}

	o.finish(machine, emitter)
	return machine.State(), nil
}

func (o *Orchestrator) finish(machine *statemachine.Machine, emitter *events.Emitter) {
	if machine.State().Phase != model.PhaseComplete {
		_ = o.transitionTo(machine, model.PhaseComplete, "investigation finished")
	}
	emitter.Emit(events.TypeDone, map[string]any{"investigationId": machine.State().ID})

	outcome := "inconclusive"
	if c := machine.State().Conclusion; c != nil && c.ConfirmedHypothesisID != "" {
		outcome = "confirmed"
	}
	o.metrics.InvestigationFinished(outcome)
}

// transitionTo moves machine to phase, instrumenting the transition with
// a trace span (open for the phase's duration up to this call returning)
// and a Prometheus counter/histogram pair. Tracing a phase's true extent
// would require carrying the span across every intervening call; instead
// each transition gets a short marker span plus a duration histogram
// seeded from the machine's own phase-history timestamps, which is
// sufficient to see phase-level latency without threading a span through
// every collaborator.
func (o *Orchestrator) transitionTo(machine *statemachine.Machine, phase model.Phase, reason string) error {
	from := machine.State().Phase
	entered := machine.State().StartedAt
	if history := machine.State().PhaseHistory; len(history) > 0 {
		entered = history[len(history)-1].Timestamp
	}
	_, span := o.tracer.StartPhase(context.Background(), string(phase))
	err := machine.TransitionTo(phase, reason)
	if err != nil {
		o.tracer.RecordError(span, err)
		span.End()
		return err
	}
	span.End()
	o.metrics.RecordPhaseTransition(string(from), string(phase))
	o.metrics.ObservePhaseDuration(string(from), time.Since(entered).Seconds())
	return nil
}

func temporalCorrelation(h *model.Hypothesis, triage model.TriageResult) bool {
	if triage.TimeWindow.Start.IsZero() {
		return false
	}
	d := h.UpdatedAt.Sub(triage.TimeWindow.End)
	if d < 0 {
		d = -d
	}
	return d <= scorer.TemporalCorrelationWindow
}

func newID(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString()[:8])
}
