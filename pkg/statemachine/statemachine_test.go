package statemachine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sreinvestigator/investigator/pkg/events"
	"github.com/sreinvestigator/investigator/pkg/model"
)

func newMachine(t *testing.T) *Machine {
	t.Helper()
	emitter := events.NewEmitter("test-session", 32)
	return New("test-session", "why is checkout slow", 20, emitter)
}

// TestTransitionTable_LegalPath walks the one legal path from idle to
// complete via confirm, asserting every hop succeeds and phase history
// matches the sequence of calls exactly (phase invariant / event total
// order from spec.md §8).
func TestTransitionTable_LegalPath(t *testing.T) {
	m := newMachine(t)
	require.Equal(t, model.PhaseIdle, m.State().Phase)

	path := []model.Phase{
		model.PhaseTriage,
		model.PhaseHypothesize,
		model.PhaseInvestigate,
		model.PhaseEvaluate,
		model.PhaseConclude,
		model.PhaseComplete,
	}
	for _, to := range path {
		require.NoError(t, m.TransitionTo(to, "test"))
	}
	require.Equal(t, model.PhaseComplete, m.State().Phase)
	require.NotNil(t, m.State().CompletedAt)

	require.Len(t, m.State().PhaseHistory, len(path))
	prev := model.PhaseIdle
	for i, to := range path {
		assert.Equal(t, prev, m.State().PhaseHistory[i].From)
		assert.Equal(t, to, m.State().PhaseHistory[i].To)
		prev = to
	}
}

// TestTransitionTable_RejectsIllegalMoves asserts that any transition not
// present in the table is rejected with InvalidTransitionError and never
// mutates phase or phase history.
func TestTransitionTable_RejectsIllegalMoves(t *testing.T) {
	illegal := []struct {
		from, to model.Phase
	}{
		{model.PhaseIdle, model.PhaseInvestigate},
		{model.PhaseIdle, model.PhaseConclude},
		{model.PhaseTriage, model.PhaseInvestigate},
		{model.PhaseHypothesize, model.PhaseIdle},
		{model.PhaseInvestigate, model.PhaseHypothesize},
		{model.PhaseComplete, model.PhaseTriage},
	}
	for _, tc := range illegal {
		m := newMachine(t)
		// drive to `from` via whatever legal prefix gets us there, skipping
		// when `from` is idle (the starting phase already).
		driveTo(t, m, tc.from)
		before := m.State().Phase
		beforeLen := len(m.State().PhaseHistory)

		err := m.TransitionTo(tc.to, "illegal")
		require.Error(t, err)
		var invalidErr *InvalidTransitionError
		require.ErrorAs(t, err, &invalidErr)
		assert.Equal(t, tc.from, invalidErr.From)
		assert.Equal(t, tc.to, invalidErr.To)

		assert.Equal(t, before, m.State().Phase, "phase must not change on a rejected transition")
		assert.Len(t, m.State().PhaseHistory, beforeLen, "phase history must not grow on a rejected transition")
	}
}

// driveTo walks a machine from idle to `to` along the one legal path,
// for tests that need to exercise an illegal move from a non-idle phase.
func driveTo(t *testing.T, m *Machine, to model.Phase) {
	t.Helper()
	legalPrefix := map[model.Phase][]model.Phase{
		model.PhaseIdle:        {},
		model.PhaseTriage:      {model.PhaseTriage},
		model.PhaseHypothesize: {model.PhaseTriage, model.PhaseHypothesize},
		model.PhaseInvestigate: {model.PhaseTriage, model.PhaseHypothesize, model.PhaseInvestigate},
		model.PhaseComplete:    {model.PhaseTriage, model.PhaseHypothesize, model.PhaseConclude, model.PhaseComplete},
	}
	for _, p := range legalPrefix[to] {
		require.NoError(t, m.TransitionTo(p, "setup"))
	}
}

// TestAddHypothesis_MaxHypothesesCap asserts total hypothesis count never
// exceeds MaxHypotheses.
func TestAddHypothesis_MaxHypothesesCap(t *testing.T) {
	m := newMachine(t)
	for i := 0; i < MaxHypotheses; i++ {
		h := &model.Hypothesis{ID: idFor(i), Statement: "root cause candidate"}
		require.NoError(t, m.AddHypothesis(h, ""))
	}
	require.Len(t, m.State().Hypotheses, MaxHypotheses)

	overflow := &model.Hypothesis{ID: "overflow", Statement: "one too many"}
	err := m.AddHypothesis(overflow, "")
	require.Error(t, err)
	var limitErr *LimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, "max-hypotheses", limitErr.Limit)
	assert.Len(t, m.State().Hypotheses, MaxHypotheses, "rejected add must not mutate state")
}

// TestAddHypothesis_MaxDepthCap asserts hypothesis depth never exceeds
// MaxDepth, by building a chain of parent/child hypotheses.
func TestAddHypothesis_MaxDepthCap(t *testing.T) {
	m := newMachine(t)
	root := &model.Hypothesis{ID: "h0", Statement: "root"}
	require.NoError(t, m.AddHypothesis(root, ""))

	parentID := root.ID
	for depth := 1; depth < MaxDepth; depth++ {
		h := &model.Hypothesis{ID: idFor(depth), Statement: "child"}
		require.NoError(t, m.AddHypothesis(h, parentID))
		parentID = h.ID
	}

	tooDeep := &model.Hypothesis{ID: "too-deep", Statement: "exceeds max depth"}
	err := m.AddHypothesis(tooDeep, parentID)
	require.Error(t, err)
	var limitErr *LimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, "max-depth", limitErr.Limit)
}

// TestApplyEvaluation_PruneCascadesToDescendants asserts pruning a
// hypothesis recursively prunes every descendant (tree invariant).
func TestApplyEvaluation_PruneCascadesToDescendants(t *testing.T) {
	m := newMachine(t)
	root := &model.Hypothesis{ID: "root", Statement: "root"}
	require.NoError(t, m.AddHypothesis(root, ""))
	child := &model.Hypothesis{ID: "child", Statement: "child"}
	require.NoError(t, m.AddHypothesis(child, root.ID))
	grandchild := &model.Hypothesis{ID: "grandchild", Statement: "grandchild"}
	require.NoError(t, m.AddHypothesis(grandchild, child.ID))
	sibling := &model.Hypothesis{ID: "sibling", Statement: "unrelated root, must survive"}
	require.NoError(t, m.AddHypothesis(sibling, ""))

	require.NoError(t, m.ApplyEvaluation(model.EvidenceEvaluation{HypothesisID: root.ID, Action: model.ActionPrune}))

	rootH, _ := m.FindHypothesis(root.ID)
	childH, _ := m.FindHypothesis(child.ID)
	grandchildH, _ := m.FindHypothesis(grandchild.ID)
	siblingH, _ := m.FindHypothesis(sibling.ID)

	assert.Equal(t, model.StatusPruned, rootH.Status)
	assert.Equal(t, model.StatusPruned, childH.Status)
	assert.Equal(t, model.StatusPruned, grandchildH.Status)
	assert.NotEqual(t, model.StatusPruned, siblingH.Status, "pruning a branch must not affect unrelated roots")

	active := m.ActiveHypotheses()
	require.Len(t, active, 1)
	assert.Equal(t, sibling.ID, active[0].ID)
}

// TestNextHypothesis_PrefersPendingThenShallowerThenPriority asserts the
// documented NextHypothesis ordering.
func TestNextHypothesis_PrefersPendingThenShallowerThenPriority(t *testing.T) {
	m := newMachine(t)
	investigating := &model.Hypothesis{ID: "investigating", Statement: "already in progress", Status: model.StatusInvestigating, Priority: 1}
	require.NoError(t, m.AddHypothesis(investigating, ""))
	pendingLowPriority := &model.Hypothesis{ID: "pending-low", Statement: "pending, low priority", Priority: 5}
	require.NoError(t, m.AddHypothesis(pendingLowPriority, ""))
	pendingHighPriority := &model.Hypothesis{ID: "pending-high", Statement: "pending, high priority", Priority: 1}
	require.NoError(t, m.AddHypothesis(pendingHighPriority, ""))

	next := m.NextHypothesis()
	require.NotNil(t, next)
	assert.Equal(t, "pending-high", next.ID, "pending beats investigating, and lower priority number wins among pending")
}

func idFor(i int) string {
	return fmt.Sprintf("h%d", i)
}
