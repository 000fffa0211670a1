package api

import (
	"sync"

	"github.com/sreinvestigator/investigator/pkg/events"
)

// registry tracks the live emitter for each in-flight investigation, so
// GET /api/v1/investigations/:id/events can attach to a running run's
// event stream. Completed or not-yet-started investigations fall back
// to the durable event log in Postgres.
type registry struct {
	mu      sync.Mutex
	running map[string]*events.Emitter
}

func newRegistry() *registry {
	return &registry{running: make(map[string]*events.Emitter)}
}

func (r *registry) start(id string, em *events.Emitter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running[id] = em
}

func (r *registry) finish(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.running, id)
}

func (r *registry) get(id string) (*events.Emitter, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	em, ok := r.running[id]
	return em, ok
}
