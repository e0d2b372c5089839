package server

import (
	"log/slog"
	"strings"

	"github.com/NicolasHaas/gorelay/pkg/model"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Client commands, matched case-sensitively on the line prefix.
const (
	cmdQuit    = "/chao"
	cmdUsers   = "/usuarios"
	cmdPrivate = "/privado"
)

// routeLine interprets one line received from an active session and
// reports whether the session should transition to Closing.
//
// Priority order: quit, directory, pairing request, private message when a
// link is active, broadcast otherwise. Empty and whitespace-only lines are
// not filtered; they route as normal messages with their body as-is.
func (s *Server) routeLine(sess *Session, line string) (closing bool) {
	switch {
	case strings.HasPrefix(line, cmdQuit):
		// The departure notice is broadcast by the close sequence so
		// that a read error racing this command cannot produce two.
		return true

	case strings.HasPrefix(line, cmdUsers):
		s.sendDirectory(sess)

	case strings.HasPrefix(line, cmdPrivate):
		s.establishPrivate(sess, line)

	default:
		msg := model.Message{Sender: sess.Nickname, Body: line}
		if partnerID, linked := sess.Partner(); linked {
			msg.Scope = model.ScopePrivate
			s.deliverPrivate(sess, partnerID, msg)
		} else {
			msg.Scope = model.ScopeBroadcast
			s.broadcast(msg.Render())
			s.metrics.BroadcastMessages.Add(1)
		}
	}
	return false
}

// broadcast delivers one line to every session in the current registry
// snapshot, including the sender. Membership is observed as of one
// snapshot: a session joining mid-broadcast may or may not receive it.
func (s *Server) broadcast(line string) {
	for _, member := range s.registry.Snapshot() {
		if err := member.Send(line); err != nil {
			// The member is closing or its transport broke; its own
			// teardown path handles removal. No retry.
			slog.Debug("broadcast delivery failed", "session", member.ID, "err", err)
		}
	}
}

// sendDirectory replies to /usuarios with one line per registered session,
// directed only at the requester. Order follows the registry snapshot.
func (s *Server) sendDirectory(sess *Session) {
	entries := lo.Map(s.registry.Snapshot(), func(member *Session, _ int) string {
		return model.DirectoryEntry(member.Nickname)
	})
	for _, entry := range entries {
		if err := sess.Send(entry); err != nil {
			return
		}
	}
	s.metrics.DirectoryRequests.Add(1)
}

// establishPrivate handles "/privado <name>": it links the requester and
// the target both ways and confirms to each side. The two partner writes
// are not atomic; a racing /privado on the target can interleave.
func (s *Server) establishPrivate(sess *Session, line string) {
	parts := strings.SplitN(line, " ", 2)
	if len(parts) != 2 || parts[1] == "" {
		_ = sess.Send(model.PrivateUsage)
		return
	}

	target := s.registry.FindByNickname(parts[1])
	if target == nil {
		_ = sess.Send(model.ErrUserNotFound)
		s.metrics.UnknownTargets.Add(1)
		return
	}

	sess.SetPartner(target.ID)
	target.SetPartner(sess.ID)
	_ = sess.Send(model.PrivateConfirm(target.Nickname))
	_ = target.Send(model.PrivateConfirm(sess.Nickname))
	s.metrics.PairingsEstablished.Add(1)

	slog.Debug("private link established",
		"from", sess.Nickname, "to", target.Nickname)
}

// deliverPrivate routes a line over an active private link. The partner is
// resolved through the registry at send time; if it already left, the
// requester is told so and the stale link is dropped on this side.
func (s *Server) deliverPrivate(sess *Session, partnerID uuid.UUID, msg model.Message) {
	partner := s.registry.Get(partnerID)
	if partner == nil {
		sess.ClearPartner()
		_ = sess.Send(model.PartnerGone)
		return
	}

	line := msg.Render()
	_ = sess.Send(line) // self-echo is part of the protocol
	_ = partner.Send(line)
	s.metrics.PrivateMessages.Add(1)
}
