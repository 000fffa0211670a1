package executor

import (
	"fmt"
	"sort"
)

// resourceArgKeys are the argument names inspected when building a
// resource signature, in the priority order spec.md lists them.
var resourceArgKeys = []string{"service", "services", "log_group", "logGroup", "cluster", "namespace", "region"}

// resourceSignature returns the heuristic signature used to group calls
// that likely contend on the same external resource: the tool name plus
// the sorted string forms of any of the well-known resource-ish args
// present. Calls with an identical signature are serialized against each
// other; distinct signatures run in parallel.
func resourceSignature(p Pair) string {
	var parts []string
	for _, key := range resourceArgKeys {
		if v, ok := p.Call.Args[key]; ok {
			parts = append(parts, fmt.Sprintf("%s=%v", key, v))
		}
	}
	sort.Strings(parts)
	sig := p.Call.ToolName
	for _, part := range parts {
		sig += "|" + part
	}
	return sig
}

// GroupByResourceSignature partitions a batch into groups that must run
// sequentially internally (same signature) while different groups run
// concurrently with each other. Group order is not meaningful; callers
// that want to bypass grouping entirely (e.g. an orchestrator trusting
// LLM-declared independence) can instead wrap each pair in its own
// single-element group before calling RunBatch's underlying primitives.
func GroupByResourceSignature(pairs []Pair) [][]Pair {
	order := make([]string, 0)
	groups := make(map[string][]Pair)
	for _, p := range pairs {
		sig := resourceSignature(p)
		if _, ok := groups[sig]; !ok {
			order = append(order, sig)
		}
		groups[sig] = append(groups[sig], p)
	}
	out := make([][]Pair, 0, len(order))
	for _, sig := range order {
		out = append(out, groups[sig])
	}
	return out
}

// Ungrouped wraps each pair in its own singleton group, for callers that
// want to bypass resource-signature dependency grouping and run every
// call fully in parallel (subject only to MaxConcurrent).
func Ungrouped(pairs []Pair) [][]Pair {
	out := make([][]Pair, len(pairs))
	for i, p := range pairs {
		out[i] = []Pair{p}
	}
	return out
}
