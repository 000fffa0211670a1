package api

// SubmitInvestigationRequest is the HTTP request body for POST /api/v1/investigations.
type SubmitInvestigationRequest struct {
	Query         string `json:"query" binding:"required"`
	Mode          string `json:"mode,omitempty"` // "incident" (default) or "freeform"
	CompactionPreset string `json:"compactionPreset,omitempty"`
}
