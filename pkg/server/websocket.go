package server

import (
	"bytes"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// The WebSocket listener bridges browser clients into the same session
// handler as raw TCP: one WS text message carries exactly one line, in
// both directions. Everything past the transport adapter is shared.

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The relay carries no credentials and no per-origin state, so
	// cross-origin pages are allowed to connect.
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// startWebSocket binds the optional WebSocket listener. Disabled when
// Config.WSAddr is empty.
func (s *Server) startWebSocket() error {
	if s.cfg.WSAddr == "" {
		return nil
	}

	ln, err := net.Listen("tcp", s.cfg.WSAddr)
	if err != nil {
		return fmt.Errorf("server: listen websocket: %w", err)
	}
	s.wsListener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWSUpgrade)
	s.wsServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("websocket listening", "addr", ln.Addr().String())
		if err := s.wsServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("websocket server error", "err", err)
		}
	}()
	return nil
}

func (s *Server) handleWSUpgrade(w http.ResponseWriter, r *http.Request) {
	ws, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	// The upgrade handler goroutine becomes the session's connection
	// goroutine, same as one spawned by the TCP accept loop.
	s.handleConn(newWSLineConn(ws))
}

// wsLineConn adapts a WebSocket connection to net.Conn with newline
// framing: each inbound text message is surfaced as "<payload>\n", and
// outbound bytes are split on '\n' into one text message per line.
type wsLineConn struct {
	ws   *websocket.Conn
	rbuf []byte
	wbuf []byte
}

func newWSLineConn(ws *websocket.Conn) *wsLineConn {
	return &wsLineConn{ws: ws}
}

func (c *wsLineConn) Read(p []byte) (int, error) {
	for len(c.rbuf) == 0 {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			return 0, err
		}
		if msgType != websocket.TextMessage {
			continue
		}
		c.rbuf = append(data, '\n')
	}
	n := copy(p, c.rbuf)
	c.rbuf = c.rbuf[n:]
	return n, nil
}

func (c *wsLineConn) Write(p []byte) (int, error) {
	c.wbuf = append(c.wbuf, p...)
	for {
		i := bytes.IndexByte(c.wbuf, '\n')
		if i < 0 {
			break
		}
		if err := c.ws.WriteMessage(websocket.TextMessage, c.wbuf[:i]); err != nil {
			return 0, err
		}
		c.wbuf = c.wbuf[i+1:]
	}
	return len(p), nil
}

func (c *wsLineConn) Close() error         { return c.ws.Close() }
func (c *wsLineConn) LocalAddr() net.Addr  { return c.ws.LocalAddr() }
func (c *wsLineConn) RemoteAddr() net.Addr { return c.ws.RemoteAddr() }

func (c *wsLineConn) SetDeadline(t time.Time) error {
	if err := c.ws.SetReadDeadline(t); err != nil {
		return err
	}
	return c.ws.SetWriteDeadline(t)
}
func (c *wsLineConn) SetReadDeadline(t time.Time) error  { return c.ws.SetReadDeadline(t) }
func (c *wsLineConn) SetWriteDeadline(t time.Time) error { return c.ws.SetWriteDeadline(t) }
