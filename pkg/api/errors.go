package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sreinvestigator/investigator/pkg/store"
)

// writeError maps a service-layer error to an HTTP status and JSON body,
// mirroring the teacher's mapServiceError dispatch.
func writeError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "investigation not found"})
		return
	}
	if errors.Is(err, errInvestigationRunning) {
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
		return
	}

	slog.Error("unexpected api error", "error", err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

var errInvestigationRunning = errors.New("investigation is still running")
