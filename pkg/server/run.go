package server

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NicolasHaas/gorelay/pkg/model"
)

// Run starts the server and blocks until a shutdown signal arrives or the
// listener fails fatally.
func (s *Server) Run() error {
	if err := s.Start(); err != nil {
		return err
	}

	// Periodic metrics logging (every 60s)
	s.metrics.StartPeriodicLog(60*time.Second, s.ctx.Done())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		slog.Info("shutdown signal received")
	case <-s.ctx.Done():
		// accept loop failed fatally and triggered shutdown itself
	}

	s.Shutdown()
	return nil
}

// Start binds the listeners and launches the accept loops. It does not
// block; use Run for the signal-driven lifecycle.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("server: listen: %w", err)
	}
	s.listener = ln
	slog.Info("chat relay listening", "addr", ln.Addr().String())

	go s.acceptLoop(ln)

	if err := s.startWebSocket(); err != nil {
		_ = ln.Close()
		return err
	}
	s.StartMetricsHTTP()
	return nil
}

// Shutdown drains the relay: stop accepting, close every registered
// session, then release the listening transports. Safe to call more than
// once and concurrently with a failing accept loop.
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		s.cancel()
		if s.listener != nil {
			_ = s.listener.Close()
		}
		for _, sess := range s.registry.Snapshot() {
			s.closeSession(sess)
		}
		if s.wsServer != nil {
			_ = s.wsServer.Close()
		}
		slog.Info("chat relay stopped")
	})
}

// acceptLoop admits transport connections until the context is cancelled.
// A listener-level failure is fatal to the whole server.
func (s *Server) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				s.Shutdown()
				return
			}
			slog.Error("accept failed", "err", err)
			s.Shutdown()
			return
		}
		go s.handleConn(conn)
	}
}

// handleConn runs one session's full lifecycle on its own goroutine:
// admission handshake, receive loop, teardown.
func (s *Server) handleConn(conn net.Conn) {
	sess := NewSession(conn)
	defer s.closeSession(sess)

	s.metrics.TotalConnections.Add(1)
	s.metrics.ActiveConnections.Add(1)
	slog.Debug("new connection", "remote", sess.RemoteAddr(), "session", sess.ID)

	in := bufio.NewScanner(conn)

	// Naming: the next line is the nickname, verbatim. No validation and
	// no retry; an empty line is accepted as an empty nickname.
	if err := sess.Send(model.NamePrompt); err != nil {
		return
	}
	if !in.Scan() {
		return
	}
	sess.Nickname = in.Text()
	sess.setState(model.StateActive)

	if err := s.registry.Add(sess); err != nil {
		slog.Error("session admission failed", "session", sess.ID, "err", err)
		return
	}
	s.broadcast(model.JoinNotice(sess.Nickname))
	slog.Info("client joined",
		"nickname", sess.Nickname, "session", sess.ID, "remote", sess.RemoteAddr())

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		if !in.Scan() {
			if err := in.Err(); err != nil && !isClosedErr(err) {
				slog.Debug("read failed", "nickname", sess.Nickname, "err", err)
			}
			return
		}
		if s.routeLine(sess, in.Text()) {
			return
		}
	}
}

// closeSession runs the release-and-remove sequence at most once per
// session, no matter how many paths race into it (read error, /chao,
// server shutdown). The departure notice goes out while the leaver is
// still registered, so it receives its own notice like everyone else.
func (s *Server) closeSession(sess *Session) {
	sess.closeOnce.Do(func() {
		admitted := sess.State() == model.StateActive
		sess.setState(model.StateClosing)

		if admitted && s.ctx.Err() == nil {
			s.broadcast(model.LeaveNotice(sess.Nickname))
		}

		s.registry.Remove(sess)
		_ = sess.conn.Close()
		sess.setState(model.StateClosed)

		s.metrics.ActiveConnections.Add(-1)
		s.metrics.TotalDisconnects.Add(1)
		if admitted {
			slog.Info("client disconnected", "nickname", sess.Nickname, "session", sess.ID)
		} else {
			slog.Debug("connection closed before admission", "session", sess.ID)
		}
	})
}

func isClosedErr(err error) bool {
	return err == io.EOF || errors.Is(err, net.ErrClosed)
}
