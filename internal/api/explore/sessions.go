// Package explore serves the Datastar endpoints behind the map page: the
// per-visit session stream plus the action posts that mutate session
// state and patch fragments back.
package explore

import (
	"sync"

	"github.com/MU-CMAP/narrative-geographies/internal/atlas"
)

// Sessions indexes the live explore sessions by id. The stream handler
// adds a session when its SSE connection opens and removes it when the
// loop exits; action handlers look sessions up per request.
type Sessions struct {
	mu   sync.RWMutex
	byID map[string]*atlas.Session
}

// NewSessions returns an empty registry.
func NewSessions() *Sessions {
	return &Sessions{byID: make(map[string]*atlas.Session)}
}

// Add registers a session, replacing any previous one under the same id.
// Replacement covers stream reconnects racing the dying loop's removal.
func (r *Sessions) Add(s *atlas.Session) {
	r.mu.Lock()
	r.byID[s.ID()] = s
	r.mu.Unlock()
}

// Get returns the session registered under id.
func (r *Sessions) Get(id string) (*atlas.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	return s, ok
}

// Remove drops the registration for id, but only when it still points at
// s: a reconnect may already have replaced the entry.
func (r *Sessions) Remove(id string, s *atlas.Session) {
	r.mu.Lock()
	if r.byID[id] == s {
		delete(r.byID, id)
	}
	r.mu.Unlock()
}

// Count returns the number of live sessions.
func (r *Sessions) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
