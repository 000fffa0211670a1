// Package cache implements ToolCache: a bounded LRU over (tool,
// canonical-args) keyed results, with per-tool TTLs and a non-cacheable
// bypass set.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// CanonicalArgs serializes an argument map deterministically: map keys
// are sorted recursively, arrays are walked in their given order (array
// order is considered semantically meaningful unless the caller has
// already normalized it), and nested structures are flattened into a
// stable string so that two semantically equal maps always produce the
// same text.
func CanonicalArgs(args map[string]any) string {
	return canonicalValue(args)
}

func canonicalValue(v any) string {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := "{"
		for i, k := range keys {
			if i > 0 {
				out += ","
			}
			out += fmt.Sprintf("%q:%s", k, canonicalValue(val[k]))
		}
		return out + "}"
	case []any:
		out := "["
		for i, item := range val {
			if i > 0 {
				out += ","
			}
			out += canonicalValue(item)
		}
		return out + "]"
	case string:
		return fmt.Sprintf("%q", val)
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%v", val)
	}
}

// Key returns the cache key for a (tool, args) pair: the tool name plus
// a SHA-256 hash of the canonical argument serialization, so keys stay a
// fixed, short length regardless of argument size.
func Key(toolName string, args map[string]any) string {
	sum := sha256.Sum256([]byte(canonicalValue(args)))
	return toolName + ":" + hex.EncodeToString(sum[:])
}
