package session

import (
	"context"
	"sync"
	"time"

	"silverlink/internal/models"
	"silverlink/internal/observability"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Factory builds the options for a new session with the given id.
type Factory func(id string) Options

type entry struct {
	session  *Session
	lastSeen time.Time
}

// Registry holds the live sessions of the process.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	factory  Factory
	clock    clockwork.Clock
}

// NewRegistry creates an empty registry. clock stamps session access for
// idle sweeping; nil uses the wall clock.
func NewRegistry(factory Factory, clock clockwork.Clock) *Registry {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Registry{
		sessions: make(map[string]*entry),
		factory:  factory,
		clock:    clock,
	}
}

// Create starts a session with a fresh id.
func (r *Registry) Create(ctx context.Context) (*Session, error) {
	id := uuid.NewString()
	opts := r.factory(id)
	opts.ID = id
	s, err := New(ctx, opts)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.sessions[id] = &entry{session: s, lastSeen: r.clock.Now()}
	r.mu.Unlock()
	observability.ActiveSessions.Inc()
	return s, nil
}

// Get returns the session with id or a not-found error. A successful
// lookup counts as activity.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	e, ok := r.sessions[id]
	if ok {
		e.lastSeen = r.clock.Now()
	}
	r.mu.Unlock()
	if !ok {
		return nil, models.NewNotFoundError("Session", id)
	}
	return e.session, nil
}

// Delete closes and removes a session.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	e, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return models.NewNotFoundError("Session", id)
	}
	e.session.Close()
	observability.ActiveSessions.Dec()
	return nil
}

// Sweep closes and removes sessions not looked up for longer than idle.
// Sessions for which inUse reports true are kept and marked active. It
// returns the removed ids.
func (r *Registry) Sweep(idle time.Duration, inUse func(id string) bool) []string {
	if idle <= 0 {
		return nil
	}
	now := r.clock.Now()
	var expired []*Session
	var ids []string

	r.mu.Lock()
	for id, e := range r.sessions {
		if now.Sub(e.lastSeen) <= idle {
			continue
		}
		if inUse != nil && inUse(id) {
			e.lastSeen = now
			continue
		}
		delete(r.sessions, id)
		expired = append(expired, e.session)
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, s := range expired {
		s.Close()
		observability.ActiveSessions.Dec()
		observability.SessionsExpired.Inc()
	}
	return ids
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CloseAll closes every session.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*entry)
	r.mu.Unlock()
	for _, e := range sessions {
		e.session.Close()
		observability.ActiveSessions.Dec()
	}
}
