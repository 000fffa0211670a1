package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sreinvestigator/investigator/pkg/model"
)

// ErrSessionNotFound is returned by GetSession when no row matches the id.
var ErrSessionNotFound = errors.New("store: session not found")

// SaveSession upserts the full investigation state as a single JSONB
// document, keyed by session ID. The engine's durability guarantee
// lives in the scratchpad's NDJSON log (SPEC_FULL.md §4.3); this table
// is the queryable projection used by the HTTP API and dashboards.
func (s *Store) SaveSession(ctx context.Context, state *model.InvestigationState) error {
	body, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("store: marshaling session %s: %w", state.ID, err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO investigation_sessions (id, query, phase, state, started_at, updated_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			phase = EXCLUDED.phase,
			state = EXCLUDED.state,
			updated_at = EXCLUDED.updated_at,
			completed_at = EXCLUDED.completed_at
	`, state.ID, state.Query, string(state.Phase), body, state.StartedAt, state.UpdatedAt, state.CompletedAt)
	if err != nil {
		return fmt.Errorf("store: saving session %s: %w", state.ID, err)
	}
	return nil
}

// GetSession loads a session's full state by ID.
func (s *Store) GetSession(ctx context.Context, id string) (*model.InvestigationState, error) {
	var body []byte
	err := s.pool.QueryRow(ctx, `SELECT state FROM investigation_sessions WHERE id = $1`, id).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: loading session %s: %w", id, err)
	}
	var state model.InvestigationState
	if err := json.Unmarshal(body, &state); err != nil {
		return nil, fmt.Errorf("store: decoding session %s: %w", id, err)
	}
	return &state, nil
}

// SessionSummary is a lightweight row for list views.
type SessionSummary struct {
	ID        string
	Query     string
	Phase     model.Phase
	StartedAt time.Time
	UpdatedAt time.Time
}

// ListSessions returns the most recently updated sessions, newest first.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]SessionSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, query, phase, started_at, updated_at
		FROM investigation_sessions
		ORDER BY updated_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: listing sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var row SessionSummary
		var phase string
		if err := rows.Scan(&row.ID, &row.Query, &phase, &row.StartedAt, &row.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: scanning session row: %w", err)
		}
		row.Phase = model.Phase(phase)
		out = append(out, row)
	}
	return out, rows.Err()
}

// LLMInteraction is one logged request/response pair, for the
// investigation trace view.
type LLMInteraction struct {
	SessionID       string
	Phase           string
	SystemPrompt    string
	UserPrompt      string
	ResponseContent string
	Duration        time.Duration
	CreatedAt       time.Time
}

// RecordLLMInteraction logs one LLM call for the session's trace.
func (s *Store) RecordLLMInteraction(ctx context.Context, i LLMInteraction) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO llm_interactions (session_id, phase, system_prompt, user_prompt, response_content, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, i.SessionID, i.Phase, i.SystemPrompt, i.UserPrompt, i.ResponseContent, i.Duration.Milliseconds(), i.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: recording llm interaction for session %s: %w", i.SessionID, err)
	}
	return nil
}

// RecordEvent persists one investigation event for durable event-stream
// replay (e.g. a client reconnecting to GET /investigations/:id/events
// after missing live events).
func (s *Store) RecordEvent(ctx context.Context, sessionID string, seq int, eventType string, payload map[string]any) error {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("store: marshaling event payload: %w", err)
		}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO investigation_events (session_id, seq, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_id, seq) DO NOTHING
	`, sessionID, seq, eventType, body, time.Now())
	if err != nil {
		return fmt.Errorf("store: recording event for session %s: %w", sessionID, err)
	}
	return nil
}

// RecordedEvent is one row read back from investigation_events, for
// replaying a stream to a client that reconnects after the run finished.
type RecordedEvent struct {
	Seq       int
	EventType string
	Payload   map[string]any
	CreatedAt time.Time
}

// ListEvents returns every recorded event for sessionID in sequence order.
func (s *Store) ListEvents(ctx context.Context, sessionID string) ([]RecordedEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT seq, event_type, payload, created_at
		FROM investigation_events
		WHERE session_id = $1
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("store: listing events for session %s: %w", sessionID, err)
	}
	defer rows.Close()

	var out []RecordedEvent
	for rows.Next() {
		var row RecordedEvent
		var body []byte
		if err := rows.Scan(&row.Seq, &row.EventType, &body, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scanning event row: %w", err)
		}
		if len(body) > 0 {
			if err := json.Unmarshal(body, &row.Payload); err != nil {
				return nil, fmt.Errorf("store: decoding event payload: %w", err)
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
