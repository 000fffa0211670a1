package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sreinvestigator/investigator/pkg/events"
	"github.com/sreinvestigator/investigator/pkg/scratchpad"
)

const eventBufferSize = 256

// submitInvestigationHandler handles POST /api/v1/investigations. It
// creates the session's scratchpad and event stream, starts the run in
// the background, and returns immediately with the session id — mirroring
// the teacher's submitAlertHandler "pending, poll for result" contract.
func (s *Server) submitInvestigationHandler(c *gin.Context) {
	var req SubmitInvestigationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	sessionID := scratchpad.GenerateSessionID()
	sp, err := scratchpad.New(s.cfg.Scratchpad.BaseDir, sessionID, scratchpad.Config{
		ToolLimits: s.cfg.Scratchpad.ToolLimits,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	emitter := events.NewEmitter(sessionID, eventBufferSize)
	emitter.Observe(func(ev events.Event) {
		payload := ev.Payload
		if err := s.store.RecordEvent(context.Background(), sessionID, ev.Seq, string(ev.Type), payload); err != nil {
			slog.Error("recording investigation event", "session", sessionID, "error", err)
		}
	})
	s.reg.start(sessionID, emitter)

	go s.runInvestigation(sessionID, req, sp, emitter)

	c.JSON(http.StatusAccepted, SubmitInvestigationResponse{
		ID:      sessionID,
		Status:  "queued",
		Message: "investigation submitted",
	})
}

// runInvestigation drives one run to completion in the background. It is
// deliberately detached from the submitting request's context: a client
// disconnecting must not cancel an in-flight investigation.
func (s *Server) runInvestigation(sessionID string, req SubmitInvestigationRequest, sp *scratchpad.Scratchpad, emitter *events.Emitter) {
	defer s.reg.finish(sessionID)
	defer emitter.Close()
	defer sp.Close()

	ctx := context.Background()

	if req.Mode == "freeform" {
		answer, err := s.loop.Run(ctx, req.Query, sp, emitter)
		if err != nil {
			slog.Error("freeform run failed", "session", sessionID, "error", err)
			return
		}
		slog.Info("freeform run complete", "session", sessionID, "toolCalls", answer.ToolCallCount)
		return
	}

	state, err := s.orch.Run(ctx, req.Query, sp, emitter)
	if err != nil {
		slog.Error("investigation run failed", "session", sessionID, "error", err)
		if state == nil {
			return
		}
	}
	if saveErr := s.store.SaveSession(ctx, state); saveErr != nil {
		slog.Error("saving investigation session", "session", sessionID, "error", saveErr)
	}
}

// getInvestigationHandler handles GET /api/v1/investigations/:id.
func (s *Server) getInvestigationHandler(c *gin.Context) {
	id := c.Param("id")

	if _, running := s.reg.get(id); running {
		c.JSON(http.StatusOK, gin.H{"id": id, "status": "running"})
		return
	}

	state, err := s.store.GetSession(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// listInvestigationsHandler handles GET /api/v1/investigations.
func (s *Server) listInvestigationsHandler(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	rows, err := s.store.ListSessions(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]InvestigationSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, InvestigationSummary{
			ID:        r.ID,
			Query:     r.Query,
			Phase:     string(r.Phase),
			StartedAt: r.StartedAt,
			UpdatedAt: r.UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, out)
}
