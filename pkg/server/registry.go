package server

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Registry is the authoritative set of currently connected sessions.
//
// It is the only globally shared mutable resource in the server: every
// connection goroutine mutates it through Add/Remove and reads it through
// Snapshot. All access goes through one RWMutex so that no add or remove
// is lost and a snapshot never observes a half-inserted session. Fan-out
// always iterates a snapshot slice, never the live map, so delivery to a
// slow peer cannot stall admission or removal of other sessions.
type Registry struct {
	mu       sync.RWMutex
	seq      uint64
	sessions map[uuid.UUID]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[uuid.UUID]*Session),
	}
}

// Add inserts a session. It fails only if a session with the same ID is
// already present, which indicates a broken caller rather than a
// recoverable condition.
func (r *Registry) Add(sess *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[sess.ID]; ok {
		return fmt.Errorf("registry: duplicate session %s", sess.ID)
	}
	r.seq++
	sess.seq = r.seq
	r.sessions[sess.ID] = sess
	return nil
}

// Remove deletes a session if present. Removing an absent session is a
// no-op, so concurrent teardown paths can both call it safely.
func (r *Registry) Remove(sess *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sess.ID)
}

// Get retrieves a session by ID, or nil.
func (r *Registry) Get(id uuid.UUID) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[id]
}

// FindByNickname returns the earliest-admitted session with the given
// nickname, or nil. Nicknames are not unique; when several sessions share
// a name the oldest one wins.
func (r *Registry) FindByNickname(name string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var found *Session
	for _, s := range r.sessions {
		if s.Nickname == name && (found == nil || s.seq < found.seq) {
			found = s
		}
	}
	return found
}

// Snapshot returns a point-in-time view of all sessions in admission
// order. The slice is safe to iterate without holding any registry lock.
func (r *Registry) Snapshot() []*Session {
	r.mu.RLock()
	result := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		result = append(result, s)
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool { return result[i].seq < result[j].seq })
	return result
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
