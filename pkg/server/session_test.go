package server

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// Per-session outbound order: lines enqueued by one sender arrive intact
// and in enqueue order, even with several senders writing concurrently.
func TestSessionSendSerialized(t *testing.T) {
	serverSide, clientSide := net.Pipe()
	defer serverSide.Close()
	defer clientSide.Close()

	sess := NewSession(serverSide)
	sess.Nickname = "alice"

	const senders = 4
	const perSender = 25

	received := make(chan string, senders*perSender)
	go func() {
		in := bufio.NewScanner(clientSide)
		for in.Scan() {
			received <- in.Text()
		}
		close(received)
	}()

	var wg sync.WaitGroup
	for g := 0; g < senders; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perSender; i++ {
				if err := sess.Send(fmt.Sprintf("g%d %d", g, i)); err != nil {
					t.Errorf("Send: %v", err)
					return
				}
			}
		}(g)
	}
	wg.Wait()
	_ = serverSide.Close()

	lastSeen := make([]int, senders)
	for i := range lastSeen {
		lastSeen[i] = -1
	}
	count := 0
	for line := range received {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			t.Fatalf("corrupted line %q: lines must never interleave", line)
		}
		g, err1 := strconv.Atoi(strings.TrimPrefix(fields[0], "g"))
		n, err2 := strconv.Atoi(fields[1])
		if err1 != nil || err2 != nil {
			t.Fatalf("unparseable line %q", line)
		}
		if n <= lastSeen[g] {
			t.Fatalf("sender %d out of order: saw %d after %d", g, n, lastSeen[g])
		}
		lastSeen[g] = n
		count++
	}
	if count != senders*perSender {
		t.Fatalf("received %d lines, want %d", count, senders*perSender)
	}
}

func TestSessionPartnerLifecycle(t *testing.T) {
	serverSide, clientSide := net.Pipe()
	defer serverSide.Close()
	defer clientSide.Close()

	sess := NewSession(serverSide)
	if _, linked := sess.Partner(); linked {
		t.Fatalf("new session must not be linked")
	}

	other := NewSession(serverSide)
	sess.SetPartner(other.ID)
	id, linked := sess.Partner()
	if !linked || id != other.ID {
		t.Fatalf("Partner: want %s, got %s (linked=%v)", other.ID, id, linked)
	}

	sess.ClearPartner()
	if _, linked := sess.Partner(); linked {
		t.Fatalf("ClearPartner: link must be dropped")
	}
}
