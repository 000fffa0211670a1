// Package statemachine implements InvestigationStateMachine: the sole
// mutator of a model.InvestigationState, enforcing phase transitions and
// hypothesis-tree invariants (SPEC_FULL.md §4.9). Mirrors the teacher's
// single-owner mutation style in pkg/agent/controller/iterating.go, where
// one goroutine drives state and every external effect is observed
// through an emitted event rather than inferred from shared memory.
package statemachine

import (
	"fmt"
	"time"

	"github.com/sreinvestigator/investigator/pkg/events"
	"github.com/sreinvestigator/investigator/pkg/model"
)

const (
	MaxDepth       = 4
	MaxHypotheses  = 10
)

// transitions is the allowed phase-transition table. A transition not
// listed here is rejected by transitionTo.
var transitions = map[model.Phase][]model.Phase{
	model.PhaseIdle:        {model.PhaseTriage},
	model.PhaseTriage:      {model.PhaseHypothesize, model.PhaseConclude},
	model.PhaseHypothesize: {model.PhaseInvestigate, model.PhaseConclude},
	model.PhaseInvestigate: {model.PhaseEvaluate},
	model.PhaseEvaluate:    {model.PhaseHypothesize, model.PhaseInvestigate, model.PhaseConclude},
	model.PhaseConclude:    {model.PhaseRemediate, model.PhaseComplete},
	model.PhaseRemediate:   {model.PhaseComplete},
	model.PhaseComplete:    {},
}

// InvalidTransitionError is returned when a requested phase change isn't
// in the transition table.
type InvalidTransitionError struct {
	From, To model.Phase
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid-transition: %s -> %s", e.From, e.To)
}

// LimitError is returned when a hypothesis-tree cap (depth or count)
// would be exceeded.
type LimitError struct {
	Limit string
	Value int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("hypothesis limit exceeded: %s (%d)", e.Limit, e.Value)
}

// Machine is the sole mutator of one InvestigationState.
type Machine struct {
	state    *model.InvestigationState
	emitter  *events.Emitter
	parentOf map[string]string
	byID     map[string]*model.Hypothesis
}

// New creates a Machine wrapping a freshly initialized state for query.
func New(id, query string, maxIterations int, emitter *events.Emitter) *Machine {
	now := time.Now()
	state := &model.InvestigationState{
		ID:            id,
		Query:         query,
		Phase:         model.PhaseIdle,
		StartedAt:     now,
		UpdatedAt:     now,
		MaxIterations: maxIterations,
	}
	return &Machine{
		state:    state,
		emitter:  emitter,
		parentOf: make(map[string]string),
		byID:     make(map[string]*model.Hypothesis),
	}
}

// State returns the underlying aggregate. Callers must not mutate it
// directly; all mutation goes through Machine methods.
func (m *Machine) State() *model.InvestigationState { return m.state }

// TransitionTo moves the investigation to phase `to`, recording the
// transition in PhaseHistory and emitting TypePhaseChange. Returns an
// *InvalidTransitionError if the move isn't allowed from the current phase.
func (m *Machine) TransitionTo(to model.Phase, reason string) error {
	allowed := transitions[m.state.Phase]
	ok := false
	for _, p := range allowed {
		if p == to {
			ok = true
			break
		}
	}
	if !ok {
		return &InvalidTransitionError{From: m.state.Phase, To: to}
	}

	from := m.state.Phase
	m.state.Phase = to
	m.state.UpdatedAt = time.Now()
	m.state.PhaseHistory = append(m.state.PhaseHistory, model.PhaseTransition{
		From: from, To: to, Reason: reason, Timestamp: m.state.UpdatedAt,
	})
	if to == model.PhaseComplete {
		now := m.state.UpdatedAt
		m.state.CompletedAt = &now
	}
	if m.emitter != nil {
		m.emitter.Emit(events.TypePhaseChange, map[string]any{"from": from, "to": to, "reason": reason})
	}
	return nil
}

// SetTriage records the triage result.
func (m *Machine) SetTriage(t model.TriageResult) {
	m.state.Triage = &t
	m.state.UpdatedAt = time.Now()
}

// AddHypothesis appends a hypothesis to the tree under parentID (empty
// for a root), enforcing MaxDepth and MaxHypotheses. Returns a
// *LimitError without mutating state if either cap would be exceeded.
func (m *Machine) AddHypothesis(h *model.Hypothesis, parentID string) error {
	if len(m.state.Hypotheses) >= MaxHypotheses {
		return &LimitError{Limit: "max-hypotheses", Value: len(m.state.Hypotheses)}
	}
	depth := 0
	if parentID != "" {
		if _, ok := m.byID[parentID]; !ok {
			return fmt.Errorf("unknown parent hypothesis %q", parentID)
		}
		depth = model.Depth(parentID, m.parentOf) + 1
		if depth >= MaxDepth {
			return &LimitError{Limit: "max-depth", Value: depth}
		}
	}

	now := time.Now()
	h.CreatedAt = now
	h.UpdatedAt = now
	if h.Status == "" {
		h.Status = model.StatusPending
	}
	if h.QueryResults == nil {
		h.QueryResults = model.NewQueryResults()
	}
	h.ParentID = parentID

	m.state.Hypotheses = append(m.state.Hypotheses, h)
	m.byID[h.ID] = h
	if parentID == "" {
		m.state.RootHypothesisIDs = append(m.state.RootHypothesisIDs, h.ID)
	} else {
		m.parentOf[h.ID] = parentID
		parent := m.byID[parentID]
		parent.Children = append(parent.Children, h.ID)
	}
	m.state.UpdatedAt = now

	if m.emitter != nil {
		m.emitter.Emit(events.TypeHypothesisFormed, map[string]any{
			"hypothesisId": h.ID, "statement": h.Statement, "parentId": parentID,
		})
	}
	return nil
}

// FindHypothesis looks up a hypothesis by ID.
func (m *Machine) FindHypothesis(id string) (*model.Hypothesis, bool) {
	h, ok := m.byID[id]
	return h, ok
}

// ActiveHypotheses returns all hypotheses not yet pruned.
func (m *Machine) ActiveHypotheses() []*model.Hypothesis {
	var active []*model.Hypothesis
	for _, h := range m.state.Hypotheses {
		if h.Status != model.StatusPruned {
			active = append(active, h)
		}
	}
	return active
}

// NextHypothesis picks the next hypothesis to investigate: pending
// before investigating, shallower before deeper, higher priority
// (lower number) first, ties broken by insertion order.
func (m *Machine) NextHypothesis() *model.Hypothesis {
	var best *model.Hypothesis
	var bestDepth int
	for _, h := range m.state.Hypotheses {
		if h.Status != model.StatusPending && h.Status != model.StatusInvestigating {
			continue
		}
		depth := model.Depth(h.ID, m.parentOf)
		if best == nil || betterCandidate(h, depth, best, bestDepth) {
			best, bestDepth = h, depth
		}
	}
	return best
}

func betterCandidate(h *model.Hypothesis, depth int, best *model.Hypothesis, bestDepth int) bool {
	if (h.Status == model.StatusPending) != (best.Status == model.StatusPending) {
		return h.Status == model.StatusPending
	}
	if depth != bestDepth {
		return depth < bestDepth
	}
	if h.Priority != best.Priority {
		return h.Priority < best.Priority
	}
	return false
}

// SetCurrentHypothesis marks h as under active investigation.
func (m *Machine) SetCurrentHypothesis(id string) error {
	h, ok := m.byID[id]
	if !ok {
		return fmt.Errorf("unknown hypothesis %q", id)
	}
	h.Status = model.StatusInvestigating
	h.UpdatedAt = time.Now()
	m.state.CurrentHypothesisID = id
	return nil
}

// RecordQueryResult stores a query's result under the owning hypothesis,
// keyed by query ID.
func (m *Machine) RecordQueryResult(hypothesisID, queryID string, result any) error {
	h, ok := m.byID[hypothesisID]
	if !ok {
		return fmt.Errorf("unknown hypothesis %q", hypothesisID)
	}
	if h.QueryResults == nil {
		h.QueryResults = model.NewQueryResults()
	}
	h.QueryResults[queryID] = result
	h.UpdatedAt = time.Now()
	m.state.ToolCallCount++
	return nil
}

// ApplyEvaluation applies an evidence evaluation's action to its
// hypothesis: confirm marks it confirmed (sibling branches keep their
// status), prune marks it and all descendants pruned, branch leaves it investigating and expects the
// caller to add child hypotheses next, continue leaves status untouched
// pending more evidence.
func (m *Machine) ApplyEvaluation(eval model.EvidenceEvaluation) error {
	h, ok := m.byID[eval.HypothesisID]
	if !ok {
		return fmt.Errorf("unknown hypothesis %q", eval.HypothesisID)
	}
	h.EvidenceStrength = eval.EvidenceStrength
	h.Confidence = eval.Confidence
	h.Reasoning = eval.Reasoning
	h.UpdatedAt = time.Now()
	m.state.Evaluations = append(m.state.Evaluations, eval)

	switch eval.Action {
	case model.ActionConfirm:
		h.Status = model.StatusConfirmed
		if m.emitter != nil {
			m.emitter.Emit(events.TypeHypothesisConfirmed, map[string]any{"hypothesisId": h.ID})
		}
	case model.ActionPrune:
		m.pruneSubtree(h.ID)
		if m.emitter != nil {
			m.emitter.Emit(events.TypeHypothesisPruned, map[string]any{"hypothesisId": h.ID, "reason": eval.Reasoning})
		}
	case model.ActionBranch:
		// status stays investigating; caller adds children next.
	case model.ActionContinue:
		// no status change; more evidence needed before a verdict.
	}
	if m.emitter != nil {
		m.emitter.Emit(events.TypeEvidenceGathered, map[string]any{
			"hypothesisId": h.ID, "findings": eval.Findings, "action": eval.Action,
		})
	}
	return nil
}

func (m *Machine) pruneSubtree(id string) {
	h, ok := m.byID[id]
	if !ok {
		return
	}
	h.Status = model.StatusPruned
	h.UpdatedAt = time.Now()
	for _, childID := range h.Children {
		m.pruneSubtree(childID)
	}
}

// SetConclusion records the final root-cause determination.
func (m *Machine) SetConclusion(c model.Conclusion) {
	m.state.Conclusion = &c
	m.state.UpdatedAt = time.Now()
	if m.emitter != nil {
		m.emitter.Emit(events.TypeConclusionReached, map[string]any{"rootCause": c.RootCause, "confidence": c.Confidence})
	}
}

// SetRemediationPlan records the proposed remediation steps.
func (m *Machine) SetRemediationPlan(p model.RemediationPlan) {
	m.state.RemediationPlan = &p
	m.state.UpdatedAt = time.Now()
	if m.emitter != nil {
		m.emitter.Emit(events.TypeRemediationStarted, map[string]any{"stepCount": len(p.Steps)})
	}
}

// UpdateRemediationStep updates one step's status/result by ID.
func (m *Machine) UpdateRemediationStep(stepID string, status model.RemediationStepStatus, result, errMsg string) error {
	if m.state.RemediationPlan == nil {
		return fmt.Errorf("no remediation plan in progress")
	}
	for i := range m.state.RemediationPlan.Steps {
		step := &m.state.RemediationPlan.Steps[i]
		if step.ID != stepID {
			continue
		}
		step.Status = status
		step.Result = result
		step.Error = errMsg
		m.state.UpdatedAt = time.Now()
		if m.emitter != nil && status == model.StepCompleted {
			m.emitter.Emit(events.TypeStepCompleted, map[string]any{"stepId": stepID, "result": result})
		}
		return nil
	}
	return fmt.Errorf("unknown remediation step %q", stepID)
}

// RecordError appends a non-fatal error message to the investigation's
// error log, for surfacing in the final response without aborting.
func (m *Machine) RecordError(err error) {
	m.state.Errors = append(m.state.Errors, err.Error())
	m.state.UpdatedAt = time.Now()
}

// CanContinue reports whether the investigation has budget left to keep
// iterating: under MaxIterations and not already complete.
func (m *Machine) CanContinue() bool {
	if m.state.Phase == model.PhaseComplete {
		return false
	}
	return m.state.MaxIterations <= 0 || m.state.IterationCount < m.state.MaxIterations
}

// Tick increments the iteration counter, called once per orchestrator
// loop pass.
func (m *Machine) Tick() {
	m.state.IterationCount++
	m.state.UpdatedAt = time.Now()
}
