// Package knowledge defines the KnowledgeRetriever port consumed by the
// orchestrator and agent loop for runbook/postmortem/architecture
// grounding. Concrete retrieval backends (vector stores, search indices)
// are injected by the caller.
package knowledge

import (
	"context"
	"time"
)

// DocumentType classifies a retrieved knowledge item.
type DocumentType string

const (
	DocRunbook      DocumentType = "runbook"
	DocPostmortem   DocumentType = "postmortem"
	DocArchitecture DocumentType = "architecture"
	DocKnownIssue   DocumentType = "known_issue"
)

// Document is one retrieved knowledge item.
type Document struct {
	ID         string
	DocumentID string
	Title      string
	Content    string
	Type       DocumentType
	Services   []string
	Score      float64
	SourceURL  string
}

// Query bundles everything a retriever might use to narrow results.
type Query struct {
	Query         string
	IncidentID    string
	Services      []string
	Symptoms      []string
	ErrorMessages []string
	TimeWindow    *TimeWindow
}

// TimeWindow bounds a knowledge query to a time range.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// Result groups retrieved documents by type.
type Result struct {
	Runbooks     []Document
	Postmortems  []Document
	Architecture []Document
	KnownIssues  []Document
}

// IsEmpty reports whether the result carries no documents at all.
func (r Result) IsEmpty() bool {
	return len(r.Runbooks) == 0 && len(r.Postmortems) == 0 &&
		len(r.Architecture) == 0 && len(r.KnownIssues) == 0
}

// Retriever is the KnowledgeRetriever port.
type Retriever interface {
	Retrieve(ctx context.Context, q Query) (Result, error)
}
