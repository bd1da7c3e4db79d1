package network

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/heraldnet/herald/pkg/dispatch"
	"github.com/heraldnet/herald/pkg/protocol"
)

// startDirectListener runs a listener on a loopback port and tears it down
// with the test.
func startDirectListener(t *testing.T, auth, template string) (addr string, stats *Stats) {
	t.Helper()

	l, err := ListenDirect("127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenDirect() error: %v", err)
	}

	stats = NewStats()
	l.Auth = auth
	l.Engine = &dispatch.Engine{Template: template}
	l.Stats = stats

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.Serve(stop)
	}()
	t.Cleanup(func() {
		close(stop)
		<-done
	})

	return l.Addr().String(), stats
}

// waitForFile polls until path exists with content or the deadline passes.
func waitForFile(t *testing.T, path string) string {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if b, err := os.ReadFile(path); err == nil && len(b) > 0 {
			return strings.TrimSpace(string(b))
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("no content written to %s", path)
	return ""
}

func TestDirectSendAndDispatch(t *testing.T) {
	out := filepath.Join(t.TempDir(), "received")
	addr, stats := startDirectListener(t, "", fmt.Sprintf("echo {} >> %s", out))

	if err := DirectSend(addr, &protocol.Envelope{Message: "hello"}); err != nil {
		t.Fatalf("DirectSend() error: %v", err)
	}

	if got := waitForFile(t, out); got != "hello" {
		t.Errorf("dispatched message = %q, want %q", got, "hello")
	}
	if snap := stats.Snapshot(); snap.Received != 1 || snap.Dispatched != 1 {
		t.Errorf("stats = %+v, want received=1 dispatched=1", snap)
	}
}

func TestDirectAuthAccepted(t *testing.T) {
	out := filepath.Join(t.TempDir(), "received")
	addr, _ := startDirectListener(t, "secret", fmt.Sprintf("echo {} >> %s", out))

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("AUTH:secret\nhello\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	resp, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		t.Fatalf("read ack: %v", err)
	}
	if resp != "OK\n" {
		t.Errorf("ack = %q, want %q", resp, "OK\n")
	}
	if got := waitForFile(t, out); got != "hello" {
		t.Errorf("dispatched message = %q, want %q", got, "hello")
	}
}

func TestDirectAuthRejected(t *testing.T) {
	tests := []struct {
		name string
		wire string
	}{
		{name: "wrong token", wire: "AUTH:wrong\nhello\n"},
		{name: "missing auth line", wire: "hello\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "received")
			addr, stats := startDirectListener(t, "secret", fmt.Sprintf("echo {} >> %s", out))

			conn, err := net.Dial("tcp", addr)
			if err != nil {
				t.Fatalf("dial: %v", err)
			}
			defer conn.Close()

			if _, err := conn.Write([]byte(tt.wire)); err != nil {
				t.Fatalf("write: %v", err)
			}

			resp, err := bufio.NewReader(conn).ReadString('\n')
			if err != nil {
				t.Fatalf("read ack: %v", err)
			}
			if resp != "ERR:AUTH\n" {
				t.Errorf("ack = %q, want %q", resp, "ERR:AUTH\n")
			}
			if _, err := os.Stat(out); !os.IsNotExist(err) {
				t.Error("command ran despite auth rejection")
			}
			if snap := stats.Snapshot(); snap.AuthFailures != 1 {
				t.Errorf("auth failures = %d, want 1", snap.AuthFailures)
			}
		})
	}
}

func TestDirectSenderSurfacesRejection(t *testing.T) {
	addr, _ := startDirectListener(t, "secret", "true")

	err := DirectSend(addr, &protocol.Envelope{Auth: "wrong", Message: "hello"})
	if !errors.Is(err, ErrAuth) {
		t.Errorf("DirectSend() error = %v, want ErrAuth", err)
	}
}

func TestDirectNoAuthPassThrough(t *testing.T) {
	// A listener without a token treats the first line as the message even
	// when it looks like an auth line.
	out := filepath.Join(t.TempDir(), "received")
	addr, _ := startDirectListener(t, "", fmt.Sprintf("echo '{}' >> %s", out))

	if err := DirectSend(addr, &protocol.Envelope{Message: "AUTH:oops"}); err != nil {
		t.Fatalf("DirectSend() error: %v", err)
	}
	if got := waitForFile(t, out); got != "AUTH:oops" {
		t.Errorf("dispatched message = %q, want %q", got, "AUTH:oops")
	}
}

func TestDirectMalformedDropsSilently(t *testing.T) {
	out := filepath.Join(t.TempDir(), "received")
	addr, stats := startDirectListener(t, "secret", fmt.Sprintf("echo {} >> %s", out))

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Auth line only, then EOF on the write side.
	if _, err := conn.Write([]byte("AUTH:secret\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	conn.(*net.TCPConn).CloseWrite()

	// The listener drops the exchange: no acknowledgment, just EOF.
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err == nil || line != "" {
		t.Errorf("got response %q (err=%v), want bare EOF", line, err)
	}
	if snap := stats.Snapshot(); snap.Received != 0 || snap.Dispatched != 0 {
		t.Errorf("stats = %+v, want nothing received", snap)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("command ran for a truncated envelope")
	}
}

func TestDirectSequentialProcessing(t *testing.T) {
	// A slow command blocks the accept loop; a second connection queues at
	// the OS backlog and is acknowledged only after the first finishes.
	addr, _ := startDirectListener(t, "", "sleep 1")

	var mu sync.Mutex
	var acked []time.Time

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if err := DirectSend(addr, &protocol.Envelope{Message: fmt.Sprintf("m%d", n)}); err != nil {
				t.Errorf("DirectSend(m%d) error: %v", n, err)
				return
			}
			mu.Lock()
			acked = append(acked, time.Now())
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	if len(acked) != 2 {
		t.Fatalf("acknowledged %d sends, want 2", len(acked))
	}
	gap := acked[1].Sub(acked[0])
	if gap < 0 {
		gap = -gap
	}
	if gap < 900*time.Millisecond {
		t.Errorf("acknowledgment gap = %s, want at least one sleep interval", gap)
	}
}

func TestListenDirectBindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	_, err = ListenDirect(ln.Addr().String())
	if !errors.Is(err, ErrConnect) {
		t.Errorf("ListenDirect() error = %v, want ErrConnect", err)
	}
}

func TestDirectSendConnectFailure(t *testing.T) {
	// A listener bound then closed leaves a port nothing is listening on.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	err = DirectSend(addr, &protocol.Envelope{Message: "hello"})
	if !errors.Is(err, ErrConnect) {
		t.Errorf("DirectSend() error = %v, want ErrConnect", err)
	}
}
