package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sreinvestigator/investigator/pkg/events"
)

// streamEventsHandler handles GET /api/v1/investigations/:id/events as
// Server-Sent Events. A running investigation streams live from its
// Emitter; a finished (or not-yet-started) one replays its durable log
// from Postgres and closes the stream.
func (s *Server) streamEventsHandler(c *gin.Context) {
	id := c.Param("id")

	if emitter, ok := s.reg.get(id); ok {
		s.streamLive(c, emitter)
		return
	}
	s.streamRecorded(c, id)
}

// streamLive attaches to the emitter's buffered channel. Because an
// Emitter supports exactly one subscriber for its whole lifetime (events
// emitted before Subscribe is called are already sitting in the buffer),
// the first caller to reach this path sees the investigation's complete
// event history followed by every subsequent event, without a separate
// replay step. Every client that connects while the investigation is
// running attaches to that same channel, so concurrent clients split the
// events between them instead of each receiving the full stream; only
// after the run has finished do new clients get streamRecorded's replay.
func (s *Server) streamLive(c *gin.Context, emitter *events.Emitter) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Status(http.StatusOK)

	ch := emitter.Subscribe()
	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case ev, open := <-ch:
			if !open {
				return false
			}
			writeSSE(w, ev.Seq, string(ev.Type), ev.Payload)
			return string(ev.Type) != "done"
		case <-ctx.Done():
			return false
		}
	})
}

func (s *Server) streamRecorded(c *gin.Context, id string) {
	recorded, err := s.store.ListEvents(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Status(http.StatusOK)
	for _, ev := range recorded {
		writeSSE(c.Writer, ev.Seq, ev.EventType, ev.Payload)
	}
}

func writeSSE(w io.Writer, seq int, typ string, payload map[string]any) {
	body, err := json.Marshal(payload)
	if err != nil || payload == nil {
		body = []byte("{}")
	}
	fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", seq, typ, body)
}
