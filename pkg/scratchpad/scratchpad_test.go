package scratchpad

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sreinvestigator/investigator/pkg/model"
)

// TestAppend_ThenReplay_ReconstructsHistory is the scratchpad durability
// property: reopening a session id after a successful Append replays an
// equivalent in-memory history from disk.
func TestAppend_ThenReplay_ReconstructsHistory(t *testing.T) {
	dir := t.TempDir()
	sessionID := "sess-durability"

	sp, err := New(dir, sessionID, Config{})
	require.NoError(t, err)

	require.NoError(t, sp.Append(model.ScratchpadEntry{Type: model.EntryInit, Message: "investigation started"}))
	require.NoError(t, sp.Append(model.ScratchpadEntry{Type: model.EntryToolResult, ToolName: "metrics", ResultID: "r1"}))
	require.NoError(t, sp.Append(model.ScratchpadEntry{Type: model.EntryHypothesisFormed, HypothesisID: "h1"}))
	require.NoError(t, sp.Close())

	reopened, err := New(dir, sessionID, Config{})
	require.NoError(t, err)
	defer reopened.Close()

	entries := reopened.GetEntries()
	require.Len(t, entries, 3)
	assert.Equal(t, model.EntryInit, entries[0].Type)
	assert.Equal(t, "investigation started", entries[0].Message)
	assert.Equal(t, model.EntryToolResult, entries[1].Type)
	assert.Equal(t, "r1", entries[1].ResultID)
	assert.Equal(t, model.EntryHypothesisFormed, entries[2].Type)
	assert.Equal(t, "h1", entries[2].HypothesisID)
}

// TestAppend_ContinuesAfterReplay asserts a reopened scratchpad appends
// new entries after, not instead of, the replayed history.
func TestAppend_ContinuesAfterReplay(t *testing.T) {
	dir := t.TempDir()
	sessionID := "sess-continue"

	sp, err := New(dir, sessionID, Config{})
	require.NoError(t, err)
	require.NoError(t, sp.Append(model.ScratchpadEntry{Type: model.EntryInit, Message: "first"}))
	require.NoError(t, sp.Close())

	reopened, err := New(dir, sessionID, Config{})
	require.NoError(t, err)
	defer reopened.Close()
	require.NoError(t, reopened.Append(model.ScratchpadEntry{Type: model.EntryThinking, Message: "second"}))

	entries := reopened.GetEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, "first", entries[0].Message)
	assert.Equal(t, "second", entries[1].Message)
}

// TestCanCallTool_NeverBlocks is the graceful-limit property: CanCallTool
// always returns Allowed true, even once the soft cap is exceeded.
func TestCanCallTool_NeverBlocks(t *testing.T) {
	dir := t.TempDir()
	sp, err := New(dir, "sess-limit", Config{ToolLimits: map[string]int{"metrics": 2}})
	require.NoError(t, err)
	defer sp.Close()

	for i := 0; i < 5; i++ {
		check := sp.CanCallTool("metrics", "service=checkout-api")
		assert.True(t, check.Allowed, "CanCallTool must never disallow a call")
	}
}

// TestCanCallTool_WarnsPastSoftCap asserts a warning appears once the
// per-tool call count reaches its configured limit.
func TestCanCallTool_WarnsPastSoftCap(t *testing.T) {
	dir := t.TempDir()
	sp, err := New(dir, "sess-cap", Config{ToolLimits: map[string]int{"metrics": 2}})
	require.NoError(t, err)
	defer sp.Close()

	first := sp.CanCallTool("metrics", "a")
	assert.Empty(t, first.Warning)
	second := sp.CanCallTool("metrics", "b")
	assert.Empty(t, second.Warning)
	third := sp.CanCallTool("metrics", "c")
	assert.NotEmpty(t, third.Warning, "exceeding the soft cap must produce a warning")
}

// TestCanCallTool_WarnsOnRepetitiveArgs covers end-to-end scenario 6: the
// same tool-call arguments repeated across iterations trigger a
// retry-loop warning without ever blocking execution.
func TestCanCallTool_WarnsOnRepetitiveArgs(t *testing.T) {
	dir := t.TempDir()
	sp, err := New(dir, "sess-retry", Config{})
	require.NoError(t, err)
	defer sp.Close()

	args := `{"service":"checkout-api","window":"15m"}`
	first := sp.CanCallTool("metrics", args)
	assert.Empty(t, first.Warning)

	for i := 0; i < 3; i++ {
		check := sp.CanCallTool("metrics", args)
		assert.True(t, check.Allowed)
		assert.Contains(t, check.Warning, "retry loop", "identical repeated args must be flagged as a likely retry loop")
	}
}

// TestCanCallTool_DissimilarArgsNeverWarn asserts clearly distinct
// argument sets for the same tool never trigger the retry-loop warning.
func TestCanCallTool_DissimilarArgsNeverWarn(t *testing.T) {
	dir := t.TempDir()
	sp, err := New(dir, "sess-distinct", Config{})
	require.NoError(t, err)
	defer sp.Close()

	check1 := sp.CanCallTool("metrics", "service checkout-api window 15m")
	assert.Empty(t, check1.Warning)
	check2 := sp.CanCallTool("metrics", "service payments-api window 60m region us-east")
	assert.Empty(t, check2.Warning, "dissimilar argument sets must not be flagged as a retry loop")
}
