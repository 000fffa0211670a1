package model

import "time"

// Phase is a stage in the investigation lifecycle.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseTriage      Phase = "triage"
	PhaseHypothesize Phase = "hypothesize"
	PhaseInvestigate Phase = "investigate"
	PhaseEvaluate    Phase = "evaluate"
	PhaseConclude    Phase = "conclude"
	PhaseRemediate   Phase = "remediate"
	PhaseComplete    Phase = "complete"
)

// Severity is the triage-assessed incident severity.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// TimeWindow bounds a query or incident to a time range.
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// TriageResult captures the initial assessment of an incident or query.
type TriageResult struct {
	IncidentID        string     `json:"incidentId,omitempty"`
	Summary           string     `json:"summary"`
	AffectedServices  []string   `json:"affectedServices"`
	Symptoms          []string   `json:"symptoms"`
	ErrorMessages     []string   `json:"errorMessages"`
	Severity          Severity   `json:"severity"`
	TimeWindow        TimeWindow `json:"timeWindow"`
	RelatedKnowledge  string     `json:"relatedKnowledge,omitempty"`
}

// QueryType classifies the intent of a causal query.
type QueryType string

const (
	QueryExploratory QueryType = "exploratory"
	QueryConfirming  QueryType = "confirming"
	QueryRefuting    QueryType = "refuting"
)

// CausalQuery is a planned tool invocation expressly chosen to confirm or
// refute a specific hypothesis.
type CausalQuery struct {
	ID              string         `json:"id"`
	HypothesisID    string         `json:"hypothesisId"`
	QueryType       QueryType      `json:"queryType"`
	ToolName        string         `json:"toolName"`
	Parameters      map[string]any `json:"parameters"`
	ExpectedOutcome string         `json:"expectedOutcome,omitempty"`
	RelevanceScore  float64        `json:"relevanceScore"` // 0..1
}

// EvaluationAction is the disposition the evaluator assigns a hypothesis.
type EvaluationAction string

const (
	ActionBranch   EvaluationAction = "branch"
	ActionPrune    EvaluationAction = "prune"
	ActionConfirm  EvaluationAction = "confirm"
	ActionContinue EvaluationAction = "continue"
)

// EvidenceEvaluation is the verdict produced after executing a
// hypothesis's queries and scoring the results.
type EvidenceEvaluation struct {
	HypothesisID     string           `json:"hypothesisId"`
	EvidenceStrength EvidenceStrength `json:"evidenceStrength"`
	Confidence       int              `json:"confidence"`
	Reasoning        string           `json:"reasoning"`
	Action           EvaluationAction `json:"action"`
	Findings         []string         `json:"findings,omitempty"`
}

// ConfidenceLevel buckets a numeric confidence score.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// EvidenceChainEntry is one link in a conclusion's supporting evidence.
type EvidenceChainEntry struct {
	Finding  string           `json:"finding"`
	Source   string           `json:"source"`
	Strength EvidenceStrength `json:"strength"`
}

// Conclusion is the final root-cause determination of an investigation.
type Conclusion struct {
	RootCause               string                `json:"rootCause"`
	Confidence              ConfidenceLevel       `json:"confidence"`
	ConfirmedHypothesisID   string                `json:"confirmedHypothesisId,omitempty"`
	AffectedServices        []string              `json:"affectedServices,omitempty"`
	EvidenceChain           []EvidenceChainEntry  `json:"evidenceChain,omitempty"`
	AlternativeExplanations []string              `json:"alternativeExplanations,omitempty"`
	Unknowns                []string              `json:"unknowns,omitempty"`
}

// RiskLevel classifies how dangerous a remediation step is.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// RemediationStepStatus tracks execution progress of a single step.
type RemediationStepStatus string

const (
	StepPending   RemediationStepStatus = "pending"
	StepApproved  RemediationStepStatus = "approved"
	StepExecuting RemediationStepStatus = "executing"
	StepCompleted RemediationStepStatus = "completed"
	StepFailed    RemediationStepStatus = "failed"
	StepSkipped   RemediationStepStatus = "skipped"
)

// RemediationStep is one action in a proposed remediation plan.
type RemediationStep struct {
	ID                string                 `json:"id"`
	Action            string                 `json:"action"`
	Description       string                 `json:"description"`
	Command           string                 `json:"command,omitempty"`
	RollbackCommand   string                 `json:"rollbackCommand,omitempty"`
	CodeReference     string                 `json:"codeReference,omitempty"`
	RiskLevel         RiskLevel              `json:"riskLevel"`
	RequiresApproval  bool                   `json:"requiresApproval"`
	Status            RemediationStepStatus  `json:"status"`
	MatchingSkill     string                 `json:"matchingSkill,omitempty"`
	MatchingRunbook   string                 `json:"matchingRunbook,omitempty"`
	Result            string                 `json:"result,omitempty"`
	Error             string                 `json:"error,omitempty"`
}

// RemediationPlan is the ordered set of steps proposed to fix the
// confirmed root cause.
type RemediationPlan struct {
	Steps []RemediationStep `json:"steps"`
}

// PhaseTransition records one phase change with its justification.
type PhaseTransition struct {
	From      Phase     `json:"from"`
	To        Phase     `json:"to"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// InvestigationState is the aggregate root owned by exactly one state
// machine instance. It is mutated only through state-machine methods and
// must never be shared mutably across goroutines without serialization.
type InvestigationState struct {
	ID    string `json:"id"`
	Query string `json:"query"`

	Phase Phase `json:"phase"`

	StartedAt   time.Time  `json:"startedAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	Triage *TriageResult `json:"triage,omitempty"`

	Hypotheses        []*Hypothesis `json:"hypotheses"`
	RootHypothesisIDs []string      `json:"rootHypothesisIds"`
	CurrentHypothesisID string      `json:"currentHypothesisId,omitempty"`

	Evaluations []EvidenceEvaluation `json:"evaluations,omitempty"`

	Conclusion      *Conclusion      `json:"conclusion,omitempty"`
	RemediationPlan *RemediationPlan `json:"remediationPlan,omitempty"`

	PhaseHistory []PhaseTransition `json:"phaseHistory"`

	IterationCount int `json:"iterationCount"`
	MaxIterations  int `json:"maxIterations"`
	ToolCallCount  int `json:"toolCallCount"`

	Errors []string `json:"errors,omitempty"`
}
