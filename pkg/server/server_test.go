package server

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/NicolasHaas/gorelay/pkg/model"
)

func startTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	cfg.WSAddr = ""
	cfg.MetricsAddr = ""
	srv := New(cfg)
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(srv.Shutdown)
	return srv, srv.listener.Addr().String()
}

type testClient struct {
	t    *testing.T
	conn net.Conn
	in   *bufio.Scanner
}

func dialTestClient(t *testing.T, addr string) *testClient {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &testClient{t: t, conn: conn, in: bufio.NewScanner(conn)}
}

func (c *testClient) readLine() string {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if !c.in.Scan() {
		c.t.Fatalf("readLine: connection closed or timed out: %v", c.in.Err())
	}
	return c.in.Text()
}

func (c *testClient) expect(want string) {
	c.t.Helper()
	if got := c.readLine(); got != want {
		c.t.Fatalf("expect: got %q, want %q", got, want)
	}
}

func (c *testClient) send(line string) {
	c.t.Helper()
	if _, err := c.conn.Write([]byte(line + "\n")); err != nil {
		c.t.Fatalf("send %q: %v", line, err)
	}
}

// join performs the admission handshake and consumes this client's own
// join notice.
func (c *testClient) join(nickname string) {
	c.t.Helper()
	c.expect("Por favor ingrese un nombre de usuario: ")
	c.send(nickname)
	c.expect(nickname + " se unio al chat.")
}

func TestEndToEndScenario(t *testing.T) {
	_, addr := startTestServer(t)

	alice := dialTestClient(t, addr)
	alice.join("alice")

	bob := dialTestClient(t, addr)
	bob.join("bob")
	alice.expect("bob se unio al chat.")

	// Broadcast, self-echo included.
	alice.send("hello")
	alice.expect("alice: hello")
	bob.expect("alice: hello")

	// Private pairing, usable from both sides.
	bob.send("/privado alice")
	bob.expect("Te has conectado a un chat privado con alice")
	alice.expect("Te has conectado a un chat privado con bob")

	bob.send("hi")
	bob.expect("bob(privado): hi")
	alice.expect("bob(privado): hi")

	// Unknown target leaves both partner states untouched.
	bob.send("/privado ghost")
	bob.expect("El usuario no existe.")

	bob.send("still here?")
	bob.expect("bob(privado): still here?")
	alice.expect("bob(privado): still here?")
}

func TestDirectoryOverWire(t *testing.T) {
	_, addr := startTestServer(t)

	alice := dialTestClient(t, addr)
	alice.join("alice")
	bob := dialTestClient(t, addr)
	bob.join("bob")
	alice.expect("bob se unio al chat.")

	alice.send("/usuarios")
	got := map[string]bool{alice.readLine(): true, alice.readLine(): true}
	if len(got) != 2 ||
		!got["El usuario alice esta conectado."] ||
		!got["El usuario bob esta conectado."] {
		t.Fatalf("directory listing mismatch: %v", got)
	}
}

func TestQuitBroadcastsDeparture(t *testing.T) {
	srv, addr := startTestServer(t)

	alice := dialTestClient(t, addr)
	alice.join("alice")
	bob := dialTestClient(t, addr)
	bob.join("bob")
	alice.expect("bob se unio al chat.")

	alice.send("/chao")
	// The leaver is still registered when the notice goes out, so both
	// sides see it.
	alice.expect("alice se fue del chat.")
	bob.expect("alice se fue del chat.")

	deadline := time.Now().Add(2 * time.Second)
	for srv.registry.Len() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("registry still has %d sessions, want 1", srv.registry.Len())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestIdempotentDisconnect(t *testing.T) {
	srv := New(Config{})
	t.Cleanup(srv.Shutdown)

	alice, _ := newPipeSession(t, "alice")
	alice.setState(model.StateActive)
	bob, bobLines := newPipeSession(t, "bob")
	bob.setState(model.StateActive)
	if err := srv.registry.Add(alice); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := srv.registry.Add(bob); err != nil {
		t.Fatalf("Add: %v", err)
	}

	// Simulate a read error racing an explicit /chao: both paths invoke
	// the close sequence.
	srv.closeSession(alice)
	srv.closeSession(alice)

	if got := recvLine(t, bobLines); got != "alice se fue del chat." {
		t.Fatalf("departure notice: got %q", got)
	}
	requireNoLine(t, bobLines) // exactly one notice

	if srv.registry.Len() != 1 {
		t.Fatalf("registry: got %d sessions, want 1", srv.registry.Len())
	}
}

func TestShutdownClosesSessions(t *testing.T) {
	srv, addr := startTestServer(t)

	alice := dialTestClient(t, addr)
	alice.join("alice")

	srv.Shutdown()

	// The transport must be released: reads drain to EOF.
	_ = alice.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for alice.in.Scan() {
	}
	if err := alice.in.Err(); err != nil && strings.Contains(err.Error(), "timeout") {
		t.Fatalf("connection not closed by shutdown: %v", err)
	}

	if srv.registry.Len() != 0 {
		t.Fatalf("registry not drained: %d sessions left", srv.registry.Len())
	}

	// New connections are refused after shutdown.
	if conn, err := net.Dial("tcp", addr); err == nil {
		_ = conn.Close()
		t.Fatalf("listener still accepting after shutdown")
	}
}
