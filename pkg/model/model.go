// Package model defines the core domain types for GoRelay.
package model

// State represents a session's position in its lifecycle.
type State int

const (
	StateConnecting State = iota // transport accepted, streams not yet wrapped
	StateNaming                  // prompt sent, waiting for the nickname line
	StateActive                  // admitted, receive loop running
	StateClosing                 // teardown in progress
	StateClosed                  // transport released, removed from the registry
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateNaming:
		return "naming"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
