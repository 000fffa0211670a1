package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sreinvestigator/investigator/pkg/tool"
)

func okResult(v string) *tool.Result {
	return &tool.Result{Content: map[string]any{"value": v}}
}

// TestGet_HitAfterSet covers the cache law: two successive gets between
// which a matching set occurred, within TTL, return the stored value.
func TestGet_HitAfterSet(t *testing.T) {
	c := New(Config{MaxSize: 10})
	args := map[string]any{"service": "checkout-api"}

	c.Set("metrics", args, okResult("cpu=80%"))

	got, ok := c.Get("metrics", args)
	require.True(t, ok)
	assert.Equal(t, "cpu=80%", got.Content["value"])

	got2, ok2 := c.Get("metrics", args)
	require.True(t, ok2)
	assert.Equal(t, got.Content["value"], got2.Content["value"])

	assert.Equal(t, 2, c.Stats().Hits)
}

// TestGet_MissWhenNeverSet covers the miss half of the cache law.
func TestGet_MissWhenNeverSet(t *testing.T) {
	c := New(Config{MaxSize: 10})
	_, ok := c.Get("metrics", map[string]any{"service": "unknown"})
	assert.False(t, ok)
	assert.Equal(t, 1, c.Stats().Misses)
}

// TestSet_NeverStoresErrorResults asserts tool-level error results are
// never cached, even though the Go error return was nil.
func TestSet_NeverStoresErrorResults(t *testing.T) {
	c := New(Config{MaxSize: 10})
	args := map[string]any{"service": "checkout-api"}
	c.Set("metrics", args, &tool.Result{Error: "upstream 500"})

	_, ok := c.Get("metrics", args)
	assert.False(t, ok, "error results must never be stored")
}

// TestSet_NeverStoresNilResults asserts a nil result is never cached.
func TestSet_NeverStoresNilResults(t *testing.T) {
	c := New(Config{MaxSize: 10})
	args := map[string]any{"service": "checkout-api"}
	c.Set("metrics", args, nil)

	_, ok := c.Get("metrics", args)
	assert.False(t, ok)
}

// TestNonCacheableTool_BypassesCacheBothWays asserts a non-cacheable
// tool name never stores and never hits.
func TestNonCacheableTool_BypassesCacheBothWays(t *testing.T) {
	c := New(Config{MaxSize: 10})
	args := map[string]any{"cmd": "restart"}
	c.Set("run_command", args, okResult("restarted"))

	_, ok := c.Get("run_command", args)
	assert.False(t, ok, "non-cacheable tools must bypass the cache")
}

// TestGet_ExpiresAfterTTL asserts an entry older than its TTL is treated
// as a miss and evicted.
func TestGet_ExpiresAfterTTL(t *testing.T) {
	c := New(Config{MaxSize: 10, TTLFor: func(string) time.Duration { return time.Nanosecond }})
	args := map[string]any{"service": "checkout-api"}
	c.Set("metrics", args, okResult("cpu=80%"))

	time.Sleep(time.Millisecond)

	_, ok := c.Get("metrics", args)
	assert.False(t, ok, "entries older than their TTL must not be returned")
	assert.Equal(t, 0, c.Stats().Size, "expired entry must be evicted on lookup")
}

// TestInvalidateTool_RemovesOnlyMatchingEntries asserts invalidate(T)
// leaves no T-keyed entry returnable, without disturbing other tools.
func TestInvalidateTool_RemovesOnlyMatchingEntries(t *testing.T) {
	c := New(Config{MaxSize: 10})
	c.Set("metrics", map[string]any{"a": 1}, okResult("m"))
	c.Set("logs", map[string]any{"a": 1}, okResult("l"))

	c.InvalidateTool("metrics")

	_, ok := c.Get("metrics", map[string]any{"a": 1})
	assert.False(t, ok)
	_, ok2 := c.Get("logs", map[string]any{"a": 1})
	assert.True(t, ok2, "invalidating one tool must not affect another")
}

// TestSet_EvictsLeastRecentlyUsedOnOverflow is the LRU-eviction-on-
// overflow half of the cache law.
func TestSet_EvictsLeastRecentlyUsedOnOverflow(t *testing.T) {
	c := New(Config{MaxSize: 2})
	c.Set("metrics", map[string]any{"k": "a"}, okResult("a"))
	c.Set("metrics", map[string]any{"k": "b"}, okResult("b"))

	// touch "a" so "b" becomes the least-recently-used entry.
	_, ok := c.Get("metrics", map[string]any{"k": "a"})
	require.True(t, ok)

	c.Set("metrics", map[string]any{"k": "c"}, okResult("c"))

	_, bOK := c.Get("metrics", map[string]any{"k": "b"})
	assert.False(t, bOK, "least-recently-used entry must be evicted once MaxSize is exceeded")

	_, aOK := c.Get("metrics", map[string]any{"k": "a"})
	assert.True(t, aOK)
	_, cOK := c.Get("metrics", map[string]any{"k": "c"})
	assert.True(t, cOK)

	assert.Equal(t, 2, c.Stats().Size)
	assert.Equal(t, 1, c.Stats().Evictions)
}

// TestHitRate_ComputesFraction covers Stats.HitRate's math, including
// the zero-lookups edge case.
func TestHitRate_ComputesFraction(t *testing.T) {
	var empty Stats
	assert.Equal(t, float64(0), empty.HitRate())

	s := Stats{Hits: 3, Misses: 1}
	assert.InDelta(t, 0.75, s.HitRate(), 0.0001)
}
