package scratchpad

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sreinvestigator/investigator/pkg/model"
)

// AppendToolResult records a tool result: assigns it a stable result ID
// (via compact.ResultID, computed by the caller's summarizer), stores
// both the full and compact forms, tiers it "full", and appends a
// tool_result scratchpad entry. Returns the result ID.
func (sp *Scratchpad) AppendToolResult(hypothesisID, argsText, fullBody string, compact model.CompactToolResult) (string, error) {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	tiered := &model.TieredResult{
		Compact:      compact,
		Tier:         model.TierFull,
		FullBody:     fullBody,
		HypothesisID: hypothesisID,
		ArgsText:     argsText,
	}
	sp.results[compact.ResultID] = tiered
	sp.order = append(sp.order, compact.ResultID)

	entry := model.ScratchpadEntry{
		Type:         model.EntryToolResult,
		ToolName:     compact.ToolName,
		ResultID:     compact.ResultID,
		HypothesisID: hypothesisID,
		Data: map[string]any{
			"summary":   compact.Summary,
			"itemCount": compact.ItemCount,
			"isError":   compact.IsError,
		},
	}
	if err := sp.appendLocked(entry); err != nil {
		return "", err
	}
	return compact.ResultID, nil
}

// GetToolResults returns all compact summaries, insertion order.
func (sp *Scratchpad) GetToolResults() []model.CompactToolResult {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	out := make([]model.CompactToolResult, 0, len(sp.order))
	for _, id := range sp.order {
		out = append(out, sp.results[id].Compact)
	}
	return out
}

// GetTieredResults returns a snapshot of every tiered result, keyed by
// result ID.
func (sp *Scratchpad) GetTieredResults() map[string]model.TieredResult {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	out := make(map[string]model.TieredResult, len(sp.results))
	for id, r := range sp.results {
		out[id] = *r
	}
	return out
}

// GetFullResult returns the full body for a result ID while it is in the
// "full" or "compact" tier; a cleared result has no body left. This backs the first-class get_full_result tool
// (SPEC_FULL.md §9) exposed to the LLM for drill-down.
func (sp *Scratchpad) GetFullResult(resultID string) (string, bool) {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	r, ok := sp.results[resultID]
	if !ok || r.Tier == model.TierCleared {
		return "", false
	}
	return r.FullBody, true
}

// BuildTieredContext renders the current tiered results into prompt text:
// full-tier results show their full body, compact-tier results show
// their summary (the body stays retrievable by result ID via
// get_full_result), cleared-tier results show only the metadata header.
func (sp *Scratchpad) BuildTieredContext() string {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	var b strings.Builder
	for _, id := range sp.order {
		r := sp.results[id]
		switch r.Tier {
		case model.TierFull:
			fmt.Fprintf(&b, "[%s] %s (full)\n%s\n\n", r.Compact.ResultID, r.Compact.ToolName, r.FullBody)
		case model.TierCompact:
			fmt.Fprintf(&b, "[%s] %s (compact): %s\n\n", r.Compact.ResultID, r.Compact.ToolName, r.Compact.Summary)
		case model.TierCleared:
			fmt.Fprintf(&b, "[%s] %s (cleared, %d items, full body no longer retained)\n\n",
				r.Compact.ResultID, r.Compact.ToolName, r.Compact.ItemCount)
		}
	}
	return b.String()
}

// ApplyTier sets the tier for a result ID, clearing the full body when
// moved to TierCleared. Metadata (the Compact summary) is always kept.
func (sp *Scratchpad) ApplyTier(resultID string, tier model.ToolResultTierKind) {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	r, ok := sp.results[resultID]
	if !ok {
		return
	}
	r.Tier = tier
	if tier == model.TierCleared {
		r.FullBody = ""
	}
}

// ClearOldestToolResults demotes all but the most recent `keep` full-tier
// results to "cleared", as a naive fallback when no ContextCompactor is
// configured.
func (sp *Scratchpad) ClearOldestToolResults(keep int) {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	fullIDs := make([]string, 0, len(sp.order))
	for _, id := range sp.order {
		if sp.results[id].Tier == model.TierFull {
			fullIDs = append(fullIDs, id)
		}
	}
	if len(fullIDs) <= keep {
		return
	}
	toClear := fullIDs[:len(fullIDs)-keep]
	for _, id := range toClear {
		r := sp.results[id]
		r.Tier = model.TierCleared
		r.FullBody = ""
	}
}

// CompactionDecision is one result's target tier, produced by a
// pkg/compactor.CompactionPlan and applied here.
type CompactionDecision struct {
	ResultID string
	Tier     model.ToolResultTierKind
}

// ApplyCompactionPlan applies a batch of tier decisions atomically with
// respect to other scratchpad mutations.
func (sp *Scratchpad) ApplyCompactionPlan(decisions []CompactionDecision) {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	for _, d := range decisions {
		r, ok := sp.results[d.ResultID]
		if !ok {
			continue
		}
		r.Tier = d.Tier
		if d.Tier == model.TierCleared {
			r.FullBody = ""
		}
	}
}

// ResultIDsOldestFirst returns result IDs in insertion order, for
// compactor scoring that weighs recency.
func (sp *Scratchpad) ResultIDsOldestFirst() []string {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	out := make([]string, len(sp.order))
	copy(out, sp.order)
	return out
}

// sortedKeys is a small helper kept for deterministic iteration where a
// map needs stable ordering (e.g. tests comparing rendered context).
func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
