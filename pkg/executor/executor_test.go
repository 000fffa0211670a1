package executor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sreinvestigator/investigator/pkg/tool"
)

// concurrencyProbe is a tool.Tool that tracks the peak number of
// concurrently in-flight Execute calls, and sleeps for a fixed duration
// to give overlapping calls a chance to race.
type concurrencyProbe struct {
	sleep      time.Duration
	inFlight   int32
	peak       int32
	mu         sync.Mutex
	calls      int32
}

func (p *concurrencyProbe) Name() string                          { return "probe" }
func (p *concurrencyProbe) Description() string                   { return "concurrency probe" }
func (p *concurrencyProbe) ParametersSchema() tool.Schema          { return tool.Schema{} }
func (p *concurrencyProbe) Execute(ctx context.Context, args map[string]any) (*tool.Result, error) {
	atomic.AddInt32(&p.calls, 1)
	n := atomic.AddInt32(&p.inFlight, 1)
	defer atomic.AddInt32(&p.inFlight, -1)

	p.mu.Lock()
	if n > p.peak {
		p.peak = n
	}
	p.mu.Unlock()

	select {
	case <-time.After(p.sleep):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &tool.Result{Content: map[string]any{"ok": true}}, nil
}

func callPair(id string, t tool.Tool) Pair {
	return Pair{Call: tool.Call{ID: id, ToolName: t.Name(), Args: map[string]any{}}, Tool: t}
}

// TestRunBatch_NeverExceedsMaxConcurrent asserts the in-flight count never
// exceeds Config.MaxConcurrent under a batch larger than that bound.
func TestRunBatch_NeverExceedsMaxConcurrent(t *testing.T) {
	probe := &concurrencyProbe{sleep: 20 * time.Millisecond}
	ex := New(Config{MaxConcurrent: 3, Timeout: time.Second})

	pairs := make([]Pair, 0, 9)
	for i := 0; i < 9; i++ {
		pairs = append(pairs, callPair(fmt.Sprintf("c%d", i), probe))
	}

	results := ex.RunBatchIndependent(context.Background(), pairs)
	require.Len(t, results, 9)
	for _, r := range results {
		assert.NoError(t, r.Err)
	}
	assert.LessOrEqual(t, probe.peak, int32(3), "in-flight calls must never exceed MaxConcurrent")
}

// TestRunBatch_AlwaysReturnsOneResultPerCall asserts every dispatched call
// produces exactly one CallResult, including on timeout.
func TestRunBatch_AlwaysReturnsOneResultPerCall(t *testing.T) {
	fast := &concurrencyProbe{sleep: 5 * time.Millisecond}
	slow := &concurrencyProbe{sleep: 500 * time.Millisecond}
	ex := New(Config{MaxConcurrent: 3, Timeout: 100 * time.Millisecond})

	pairs := []Pair{callPair("a", fast), callPair("b", fast), callPair("c", slow)}
	start := time.Now()
	results := ex.RunBatch(context.Background(), pairs)
	elapsed := time.Since(start)

	require.Len(t, results, 3)
	assert.Less(t, elapsed, 300*time.Millisecond, "batch must not wait longer than the per-call timeout plus slack")

	byID := map[string]CallResult{}
	for _, r := range results {
		byID[r.CallID] = r
	}
	assert.False(t, byID["a"].TimedOut)
	assert.False(t, byID["b"].TimedOut)
	assert.True(t, byID["c"].TimedOut, "the slow call must be marked timed out")
	assert.Error(t, byID["c"].Err)
}

// TestRunBatch_ContextCancellationBoundsWait asserts a cancelled parent
// context yields a bounded result set instead of hanging, with every pair
// still represented in the output.
func TestRunBatch_ContextCancellationBoundsWait(t *testing.T) {
	slow := &concurrencyProbe{sleep: 2 * time.Second}
	ex := New(Config{MaxConcurrent: 1, Timeout: 5 * time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	pairs := []Pair{callPair("x", slow), callPair("y", slow), callPair("z", slow)}

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	done := make(chan []CallResult, 1)
	go func() { done <- ex.RunBatch(ctx, pairs) }()

	select {
	case results := <-done:
		assert.Len(t, results, 3, "every pair must still produce a result after cancellation")
	case <-time.After(3 * time.Second):
		t.Fatal("RunBatch did not return promptly after context cancellation")
	}
}

// resourceKeyTool tags its calls with a fixed resource signature via its
// tool name, used to assert same-signature serialization.
type resourceKeyTool struct {
	*concurrencyProbe
	name string
}

func (r *resourceKeyTool) Name() string { return r.name }

// TestGroupByResourceSignature_SerializesSameResource asserts calls
// sharing a resource signature land in a single group, which the
// executor's per-group loop runs sequentially.
func TestGroupByResourceSignature_SerializesSameResource(t *testing.T) {
	probe := &concurrencyProbe{sleep: 20 * time.Millisecond}
	same := &resourceKeyTool{concurrencyProbe: probe, name: "remediation_execute"}

	pairs := []Pair{
		{Call: tool.Call{ID: "1", ToolName: same.Name(), Args: map[string]any{"service": "checkout-api"}}, Tool: same},
		{Call: tool.Call{ID: "2", ToolName: same.Name(), Args: map[string]any{"service": "checkout-api"}}, Tool: same},
		{Call: tool.Call{ID: "3", ToolName: same.Name(), Args: map[string]any{"service": "checkout-api"}}, Tool: same},
	}

	groups := GroupByResourceSignature(pairs)
	// Calls sharing a resource signature must land in a single group so
	// the executor's per-group sequential loop serializes them.
	require.Len(t, groups, 1)
	require.Len(t, groups[0], 3)
}
