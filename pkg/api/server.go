// Package api provides the HTTP surface for submitting investigations,
// polling their state, and streaming their event log. Route layout,
// the health-check shape, and the error-mapping convention are grounded
// on the teacher's pkg/api (server.go, handler_health.go, errors.go),
// adapted from Echo v5 to gin — this module's actual HTTP stack —
// the teacher's go.mod dependency that other example repos in the pack
// also use for request routing.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sreinvestigator/investigator/pkg/agentloop"
	"github.com/sreinvestigator/investigator/pkg/config"
	"github.com/sreinvestigator/investigator/pkg/orchestrator"
	"github.com/sreinvestigator/investigator/pkg/store"
	"github.com/sreinvestigator/investigator/pkg/version"
)

// Server is the HTTP API server.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server

	cfg   *config.Config
	store *store.Store
	orch  *orchestrator.Orchestrator
	loop  *agentloop.Loop
	reg   *registry
}

// NewServer creates a new API server and registers its routes.
func NewServer(cfg *config.Config, st *store.Store, orch *orchestrator.Orchestrator, loop *agentloop.Loop) *Server {
	gin.SetMode(gin.ReleaseMode)
	e := gin.New()
	e.Use(gin.Recovery(), requestLogger(), securityHeaders())

	s := &Server{
		engine: e,
		cfg:    cfg,
		store:  st,
		orch:   orch,
		loop:   loop,
		reg:    newRegistry(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes registers every HTTP route.
func (s *Server) setupRoutes() {
	s.engine.GET("/healthz", s.healthHandler)

	v1 := s.engine.Group("/api/v1")
	v1.POST("/investigations", s.submitInvestigationHandler)
	v1.GET("/investigations", s.listInvestigationsHandler)
	v1.GET("/investigations/:id", s.getInvestigationHandler)
	v1.GET("/investigations/:id/events", s.streamEventsHandler)
}

// Start starts the HTTP server on addr (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	slog.Info("shutting down api server")
	return s.httpServer.Shutdown(ctx)
}

// healthHandler handles GET /healthz. Only this process's own dependency
// (the database) is checked — external tool/LLM backends are excluded so
// a flaky downstream never triggers a restart loop.
func (s *Server) healthHandler(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]HealthCheck{}
	status := "healthy"

	dbHealth, err := s.store.Health(reqCtx)
	if err != nil {
		status = "unhealthy"
		checks["database"] = HealthCheck{Status: "unhealthy", Message: err.Error()}
	} else {
		checks["database"] = HealthCheck{Status: dbHealth.Status}
	}

	httpStatus := http.StatusOK
	if status == "unhealthy" {
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthResponse{
		Status:  status,
		Version: version.Full(),
		Checks:  checks,
	})
}
