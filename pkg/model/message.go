package model

// Scope describes how a message is routed.
type Scope int

const (
	ScopeBroadcast Scope = iota // delivered to every registered session
	ScopePrivate                // delivered to the sender and its partner
	ScopeSystem                 // delivered to exactly one session
	ScopeDirectory              // directory listing, delivered to the requester
)

func (s Scope) String() string {
	switch s {
	case ScopeBroadcast:
		return "broadcast"
	case ScopePrivate:
		return "private"
	case ScopeSystem:
		return "system"
	case ScopeDirectory:
		return "directory"
	default:
		return "unknown"
	}
}

// Message is a transient unit of routing. It is never persisted; it exists
// only between the moment a line is read from a session and the moment the
// rendered text has been handed to the target sessions.
type Message struct {
	Sender string
	Body   string
	Scope  Scope
}

// Render produces the wire line for the message. Broadcast and private
// messages carry the sender prefix; system and directory lines are
// rendered upstream and pass through as-is.
func (m Message) Render() string {
	switch m.Scope {
	case ScopeBroadcast:
		return BroadcastLine(m.Sender, m.Body)
	case ScopePrivate:
		return PrivateLine(m.Sender, m.Body)
	default:
		return m.Body
	}
}
