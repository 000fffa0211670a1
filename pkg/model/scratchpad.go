package model

import "time"

// ScratchpadEntryType tags the variant of a ScratchpadEntry.
type ScratchpadEntryType string

const (
	EntryInit                  ScratchpadEntryType = "init"
	EntryThinking               ScratchpadEntryType = "thinking"
	EntryToolResult             ScratchpadEntryType = "tool_result"
	EntryHypothesisFormed       ScratchpadEntryType = "hypothesis_formed"
	EntryHypothesisPruned       ScratchpadEntryType = "hypothesis_pruned"
	EntryHypothesisConfirmed    ScratchpadEntryType = "hypothesis_confirmed"
	EntryEvidenceGathered       ScratchpadEntryType = "evidence_gathered"
	EntryRemediationProposed    ScratchpadEntryType = "remediation_proposed"
	EntryRemediationStepStarted ScratchpadEntryType = "remediation_step_started"
	EntryRemediationStepDone    ScratchpadEntryType = "remediation_step_completed"
)

// ScratchpadEntry is one append-only line in a session's NDJSON log.
// Type governs which of the optional fields are populated; any structured
// payload beyond the typed fields travels in Data. JSON fields outside
// this struct are dropped on unmarshal.
type ScratchpadEntry struct {
	Type      ScratchpadEntryType `json:"type"`
	Timestamp time.Time           `json:"timestamp"`

	SessionID string `json:"sessionId,omitempty"`

	// tool_result fields
	ToolName string `json:"toolName,omitempty"`
	ResultID string `json:"resultId,omitempty"`

	// hypothesis_* fields
	HypothesisID string `json:"hypothesisId,omitempty"`

	// free-form message/body for thinking/init/evidence entries
	Message string `json:"message,omitempty"`

	// Data carries the full structured payload for this entry (tool args,
	// result body, evaluation, remediation step, ...). Kept as a generic
	// map so new entry shapes don't require a schema migration.
	Data map[string]any `json:"data,omitempty"`
}

// ToolResultTierKind is the storage tier a tool result currently occupies.
type ToolResultTierKind string

const (
	TierFull    ToolResultTierKind = "full"
	TierCompact ToolResultTierKind = "compact"
	TierCleared ToolResultTierKind = "cleared"
)

// CompactToolResult is the summarized form of a tool result, always kept
// in memory regardless of tier (it's what "compact" and "cleared" read
// from; "cleared" additionally drops the full body).
type CompactToolResult struct {
	ResultID      string            `json:"resultId"`
	ToolName      string            `json:"toolName"`
	Summary       string            `json:"summary"`
	Highlights    map[string]string `json:"highlights,omitempty"`
	ItemCount     int               `json:"itemCount"`
	IsError       bool              `json:"isError"`
	Services      []string          `json:"services,omitempty"`
	HealthStatus  HealthStatus      `json:"healthStatus"`
	CreatedAt     time.Time         `json:"createdAt"`
}

// HealthStatus is the best-effort health signal extracted from a tool result.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthCritical HealthStatus = "critical"
	HealthUnknown  HealthStatus = "unknown"
)

// TieredResult is the in-memory record for one tool invocation: its
// compact summary (always retained) plus the tier it currently sits in
// and, for full/compact tiers, the raw body.
type TieredResult struct {
	Compact  CompactToolResult
	Tier     ToolResultTierKind
	FullBody string // emptied when Tier == TierCleared
	HypothesisID string
	ArgsText string // canonical text of the call args, for Jaccard overlap checks
}
