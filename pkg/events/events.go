// Package events defines the external event surface emitted by the
// orchestrator and agent loop, and a single-subscriber-channel emitter
// that replaces the source system's implicit global event-bus dispatch
// (see SPEC_FULL.md §9 design notes).
package events

import "time"

// Type tags the kind of event on the external surface.
type Type string

const (
	TypeInit               Type = "init"
	TypeThinking           Type = "thinking"
	TypeToolStart          Type = "tool_start"
	TypeToolProgress       Type = "tool_progress"
	TypeToolEnd            Type = "tool_end"
	TypeToolError          Type = "tool_error"
	TypeToolLimit          Type = "tool_limit"
	TypeContextCleared     Type = "context_cleared"
	TypeKnowledgeRetrieved Type = "knowledge_retrieved"
	TypeHypothesisFormed   Type = "hypothesis_formed"
	TypeHypothesisPruned   Type = "hypothesis_pruned"
	TypeHypothesisConfirmed Type = "hypothesis_confirmed"
	TypeEvidenceGathered   Type = "evidence_gathered"
	TypeAnswerStart        Type = "answer_start"
	TypePhaseChange        Type = "phase_change"
	TypeConclusionReached  Type = "conclusion_reached"
	TypeRemediationStarted Type = "remediation_started"
	TypeStepCompleted      Type = "step_completed"
	TypeError              Type = "error"
	TypeDone               Type = "done"
)

// Event is one entry in the finite, totally-ordered event stream a
// single investigation or agent run produces.
type Event struct {
	Seq           int            `json:"seq"`
	Type          Type           `json:"type"`
	Timestamp     time.Time      `json:"timestamp"`
	InvestigationID string       `json:"investigationId"`
	Payload       map[string]any `json:"payload,omitempty"`
}

// Emitter delivers events to a single subscriber channel and, optionally,
// a list of in-process observers (e.g. a persistence sink). It never
// blocks the producer indefinitely: the subscriber channel is buffered,
// and when it is full the event being emitted is left out of the channel
// (observers still receive it) rather than stalling the investigation.
// The drop is reported as a TypeError event to observers, and to the
// channel only if it has room by then.
type Emitter struct {
	ch        chan Event
	observers []Observer
	seq       int
	invID     string
}

// Observer receives every event synchronously, in emission order, before
// it is handed to the channel. Intended for durable persistence (the
// scratchpad append or a store write), not for slow consumers — block
// there and you block the investigation.
type Observer func(Event)

// NewEmitter creates an emitter for one investigation/agent run. bufSize
// is the subscriber channel's capacity.
func NewEmitter(investigationID string, bufSize int) *Emitter {
	return &Emitter{
		ch:    make(chan Event, bufSize),
		invID: investigationID,
	}
}

// Subscribe returns the read-only event channel. Only one subscriber is
// supported per Emitter, matching the "single subscriber channel" design
// (callers wanting fan-out should consume once and fan out themselves).
func (e *Emitter) Subscribe() <-chan Event { return e.ch }

// Observe registers an observer invoked synchronously on every Emit.
func (e *Emitter) Observe(obs Observer) { e.observers = append(e.observers, obs) }

// Emit appends a new event to the stream: assigns the next sequence
// number, timestamps it, runs observers, then delivers it to the
// subscriber channel (non-blocking; drops with a synthetic error event
// on overflow rather than stalling the caller).
func (e *Emitter) Emit(typ Type, payload map[string]any) Event {
	e.seq++
	ev := Event{
		Seq:             e.seq,
		Type:            typ,
		Timestamp:       time.Now(),
		InvestigationID: e.invID,
		Payload:         payload,
	}
	for _, obs := range e.observers {
		obs(ev)
	}
	select {
	case e.ch <- ev:
	default:
		e.seq++
		drop := Event{
			Seq:             e.seq,
			Type:            TypeError,
			Timestamp:       time.Now(),
			InvestigationID: e.invID,
			Payload:         map[string]any{"error": "event channel full, event dropped", "dropped_type": string(typ)},
		}
		for _, obs := range e.observers {
			obs(drop)
		}
		select {
		case e.ch <- drop:
		default:
		}
	}
	return ev
}

// Close closes the subscriber channel. Callers must emit a terminal
// TypeDone event before calling Close so subscribers see it.
func (e *Emitter) Close() { close(e.ch) }
