package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestCanonicalArgs_KeyOrderIndependent asserts two semantically-equal
// maps with different insertion order canonicalize identically.
func TestCanonicalArgs_KeyOrderIndependent(t *testing.T) {
	a := map[string]any{"service": "checkout-api", "window": "15m"}
	b := map[string]any{"window": "15m", "service": "checkout-api"}

	assert.Equal(t, CanonicalArgs(a), CanonicalArgs(b))
	assert.Equal(t, Key("metrics", a), Key("metrics", b))
}

// TestCanonicalArgs_ArrayOrderSignificant asserts reordering a nested
// array changes the canonical form and the derived key.
func TestCanonicalArgs_ArrayOrderSignificant(t *testing.T) {
	a := map[string]any{"services": []any{"checkout-api", "payments-api"}}
	b := map[string]any{"services": []any{"payments-api", "checkout-api"}}

	assert.NotEqual(t, CanonicalArgs(a), CanonicalArgs(b))
	assert.NotEqual(t, Key("metrics", a), Key("metrics", b))
}

// TestCanonicalArgs_NestedStructures asserts recursive canonicalization
// of maps nested inside arrays and vice versa.
func TestCanonicalArgs_NestedStructures(t *testing.T) {
	a := map[string]any{
		"filters": []any{
			map[string]any{"b": 2, "a": 1},
		},
	}
	b := map[string]any{
		"filters": []any{
			map[string]any{"a": 1, "b": 2},
		},
	}
	assert.Equal(t, CanonicalArgs(a), CanonicalArgs(b))
}

// TestCanonicalArgs_NilSerializesAsNull asserts a nil value canonicalizes
// to the literal "null" rather than an empty string or panic.
func TestCanonicalArgs_NilSerializesAsNull(t *testing.T) {
	got := CanonicalArgs(map[string]any{"cursor": nil})
	assert.Contains(t, got, `"cursor":null`)
}

// TestKey_DifferentToolNamesDifferentKeys asserts the tool name is part
// of the key, so identical args for different tools never collide.
func TestKey_DifferentToolNamesDifferentKeys(t *testing.T) {
	args := map[string]any{"service": "checkout-api"}
	assert.NotEqual(t, Key("metrics", args), Key("logs", args))
}

// TestKey_Deterministic asserts repeated calls with equal inputs produce
// the same key (required for the cache's get/set round trip to work at
// all).
func TestKey_Deterministic(t *testing.T) {
	args := map[string]any{"service": "checkout-api", "severity": "high"}
	assert.Equal(t, Key("metrics", args), Key("metrics", args))
}
