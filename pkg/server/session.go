package server

import (
	"bufio"
	"net"
	"sync"
	"time"

	"github.com/NicolasHaas/gorelay/pkg/model"
	"github.com/google/uuid"
)

// Session is the server-side state for one connected client.
//
// The partner of a private link is stored as a session ID, not a pointer:
// it is resolved through the Registry at send time, so a partner that
// already disconnected resolves to "gone" instead of a dangling reference.
type Session struct {
	ID       uuid.UUID
	Nickname string
	JoinedAt time.Time

	conn net.Conn

	// writeMu serializes outbound lines: two lines sent to this session
	// never interleave and arrive in the order they were enqueued.
	writeMu sync.Mutex
	out     *bufio.Writer

	mu        sync.Mutex
	state     model.State
	partnerID uuid.UUID // uuid.Nil when no private link is active

	closeOnce sync.Once

	// seq is the admission sequence number, assigned by Registry.Add.
	// It makes snapshot iteration and nickname lookup deterministic.
	seq uint64
}

// NewSession wraps an accepted transport connection. The session starts in
// the Naming state; the nickname is filled in during admission.
func NewSession(conn net.Conn) *Session {
	return &Session{
		ID:       uuid.New(),
		JoinedAt: time.Now(),
		conn:     conn,
		out:      bufio.NewWriter(conn),
		state:    model.StateNaming,
	}
}

// Send writes one line to the remote peer. A slow or blocked peer stalls
// only deliveries to this session; the caller's other targets are written
// on their own sessions. A failed send is never retried.
func (s *Session) Send(line string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.out.WriteString(line + "\n"); err != nil {
		return err
	}
	return s.out.Flush()
}

// State returns the session's lifecycle state.
func (s *Session) State() model.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(st model.State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Partner returns the private-link partner ID, if any.
func (s *Session) Partner() (uuid.UUID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.partnerID, s.partnerID != uuid.Nil
}

// SetPartner establishes or replaces the private link on this side.
// Pairing writes each side separately with no cross-session lock, so two
// racing /privado requests against a shared target are resolved
// best-effort; callers must not assume the two writes are atomic.
func (s *Session) SetPartner(id uuid.UUID) {
	s.mu.Lock()
	s.partnerID = id
	s.mu.Unlock()
}

// ClearPartner drops the private link on this side.
func (s *Session) ClearPartner() {
	s.mu.Lock()
	s.partnerID = uuid.Nil
	s.mu.Unlock()
}

// RemoteAddr reports the peer address for logging.
func (s *Session) RemoteAddr() string {
	if s.conn == nil {
		return ""
	}
	return s.conn.RemoteAddr().String()
}
