package client_test

import (
	"bufio"
	"context"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/omochice/linechat/internal/chat"
	"github.com/omochice/linechat/internal/client"
	"github.com/omochice/linechat/internal/transport/tcp"
	"github.com/omochice/linechat/pkg/protocol"
)

const testTimeout = 2 * time.Second

// peer is the server side of a piped session connection.
type peer struct {
	conn net.Conn
	r    *bufio.Reader
}

func (p *peer) readLine(t *testing.T) string {
	t.Helper()
	p.conn.SetReadDeadline(time.Now().Add(testTimeout))
	line, err := p.r.ReadString('\n')
	if err != nil {
		t.Fatalf("peer read error: %v", err)
	}
	return line
}

func (p *peer) send(t *testing.T, line string) {
	t.Helper()
	p.conn.SetWriteDeadline(time.Now().Add(testTimeout))
	if _, err := p.conn.Write([]byte(line)); err != nil {
		t.Fatalf("peer write error: %v", err)
	}
}

// pipeDialer returns a dialer that connects sessions over net.Pipe and
// hands the server side of each connection to the test.
func pipeDialer() (client.Dialer, <-chan *peer) {
	peers := make(chan *peer, 8)
	d := client.DialerFunc(func(ctx context.Context, ep client.Endpoint) (chat.Conn, error) {
		srv, cli := net.Pipe()
		peers <- &peer{conn: srv, r: bufio.NewReader(srv)}
		return tcp.NewConn(cli), nil
	})
	return d, peers
}

// blockingDialer never connects until the dial context is done.
func blockingDialer() client.Dialer {
	return client.DialerFunc(func(ctx context.Context, ep client.Endpoint) (chat.Conn, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
}

func acceptPeer(t *testing.T, peers <-chan *peer) *peer {
	t.Helper()
	select {
	case p := <-peers:
		t.Cleanup(func() { p.conn.Close() })
		return p
	case <-time.After(testTimeout):
		t.Fatal("timeout waiting for dial")
		return nil
	}
}

// brokenWriteConn delivers queued lines to the reader while every write
// fails.
type brokenWriteConn struct {
	lines     chan string
	writeErr  error
	closed    chan struct{}
	closeOnce sync.Once
}

func newBrokenWriteConn(writeErr error) *brokenWriteConn {
	return &brokenWriteConn{
		lines:    make(chan string, 10),
		writeErr: writeErr,
		closed:   make(chan struct{}),
	}
}

func (c *brokenWriteConn) ReadLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-c.closed:
		return "", io.EOF
	case line := <-c.lines:
		return line, nil
	}
}

func (c *brokenWriteConn) WriteLine(ctx context.Context, line []byte) error {
	return c.writeErr
}

func (c *brokenWriteConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *brokenWriteConn) RemoteAddr() string {
	return "broken"
}

type stater interface {
	State() client.ConnectionState
}

func waitState(t *testing.T, s stater, want client.ConnectionState) {
	t.Helper()
	deadline := time.Now().Add(testTimeout)
	for {
		got := s.State()
		if got == want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("State() = %v, want %v", got, want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func waitEvents(t *testing.T, poll func() []protocol.Event, n int) []protocol.Event {
	t.Helper()
	var events []protocol.Event
	deadline := time.Now().Add(testTimeout)
	for len(events) < n {
		events = append(events, poll()...)
		if len(events) >= n {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("got %d events %v, want %d", len(events), events, n)
		}
		time.Sleep(5 * time.Millisecond)
	}
	return events
}

func waitDone(t *testing.T, s *client.Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(testTimeout):
		t.Fatal("session goroutines did not finish")
	}
}

type notifyCounter struct {
	n atomic.Int64
}

func (c *notifyCounter) notify() {
	c.n.Add(1)
}

func (c *notifyCounter) count() int64 {
	return c.n.Load()
}
