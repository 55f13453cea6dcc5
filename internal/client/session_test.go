package client_test

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/omochice/linechat/internal/chat"
	"github.com/omochice/linechat/internal/client"
	"github.com/omochice/linechat/pkg/protocol"
)

func openPiped(t *testing.T, cfg client.ConnectionConfig, opts ...client.Option) (*client.Session, *peer) {
	t.Helper()
	d, peers := pipeDialer()
	s := client.Open(cfg, append([]client.Option{client.WithDialer(d)}, opts...)...)
	t.Cleanup(s.Close)
	return s, acceptPeer(t, peers)
}

func aliceConfig() client.ConnectionConfig {
	return client.ConnectionConfig{Server: "127.0.0.1", Name: "alice"}
}

func TestSession_OpenStartsLoading(t *testing.T) {
	s := client.Open(aliceConfig(), client.WithDialer(blockingDialer()))
	defer s.Close()

	if got := s.State(); got != client.Loading {
		t.Errorf("State() = %v, want LOADING", got)
	}
	if events := s.Poll(); len(events) != 0 {
		t.Errorf("Poll() = %v, want empty", events)
	}
	if err := s.Err(); err != nil {
		t.Errorf("Err() = %v, want nil", err)
	}
	if s.Config() != aliceConfig() {
		t.Errorf("Config() = %+v", s.Config())
	}
}

func TestSession_HandshakeBeforeUserTraffic(t *testing.T) {
	d, peers := pipeDialer()
	s := client.Open(aliceConfig(), client.WithDialer(d))
	defer s.Close()

	// Queued before the connection exists.
	if err := s.Send("hello"); err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	p := acceptPeer(t, peers)
	if got := p.readLine(t); got != "alice\n" {
		t.Errorf("first line = %q, want handshake", got)
	}
	if got := p.readLine(t); got != "m hello\n" {
		t.Errorf("second line = %q, want %q", got, "m hello\n")
	}
}

func TestSession_OutboundOrder(t *testing.T) {
	s, p := openPiped(t, aliceConfig())
	p.readLine(t)

	for _, text := range []string{"a", "b", "c"} {
		if err := s.Send(text); err != nil {
			t.Fatalf("Send(%q) error: %v", text, err)
		}
	}

	for _, want := range []string{"m a\n", "m b\n", "m c\n"} {
		if got := p.readLine(t); got != want {
			t.Errorf("line = %q, want %q", got, want)
		}
	}
}

func TestSession_SlashCommand(t *testing.T) {
	s, p := openPiped(t, aliceConfig())
	p.readLine(t)

	if err := s.Send("/n bob"); err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if got := p.readLine(t); got != "n bob\n" {
		t.Errorf("line = %q, want %q", got, "n bob\n")
	}
}

func TestSession_ReceivesEvents(t *testing.T) {
	s, p := openPiped(t, aliceConfig())
	p.readLine(t)

	p.send(t, "m bob hi there\nc carol\r\nd dave\nr bob robert\n")

	events := waitEvents(t, s.Poll, 4)
	want := []protocol.Event{
		protocol.Message{Sender: "bob", Body: "hi there"},
		protocol.PresenceJoined{Name: "carol"},
		protocol.PresenceLeft{Name: "dave"},
		protocol.Renamed{OldName: "bob", NewName: "robert"},
	}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d", len(events), len(want))
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event %d = %#v, want %#v", i, events[i], want[i])
		}
	}

	if got := s.State(); got != client.Connected {
		t.Errorf("State() = %v, want CONNECTED", got)
	}
}

func TestSession_FailedWhenClosedBeforeAnyLine(t *testing.T) {
	s, p := openPiped(t, aliceConfig())
	p.readLine(t)
	p.conn.Close()

	waitDone(t, s)

	if got := s.State(); got != client.Failed {
		t.Errorf("State() = %v, want FAILED", got)
	}
	var ioErr *client.IOError
	if !errors.As(s.Err(), &ioErr) {
		t.Fatalf("Err() = %v, want *IOError", s.Err())
	}
	if !errors.Is(s.Err(), io.ErrUnexpectedEOF) {
		t.Errorf("Err() = %v, want unexpected EOF", s.Err())
	}
}

func TestSession_DisconnectedAfterDecodedLine(t *testing.T) {
	s, p := openPiped(t, aliceConfig())
	p.readLine(t)

	p.send(t, "c bob\n")
	waitState(t, s, client.Connected)
	p.conn.Close()

	waitDone(t, s)

	if got := s.State(); got != client.Disconnected {
		t.Errorf("State() = %v, want DISCONNECTED", got)
	}
	if err := s.Err(); err != nil {
		t.Errorf("Err() = %v, want nil", err)
	}

	// Events received before termination are still delivered.
	events := s.Poll()
	if len(events) != 1 || events[0] != (protocol.PresenceJoined{Name: "bob"}) {
		t.Errorf("Poll() = %v, want [join bob]", events)
	}
	if events := s.Poll(); len(events) != 0 {
		t.Errorf("second Poll() = %v, want empty", events)
	}
}

func TestSession_UndecodableFirstLine(t *testing.T) {
	s, p := openPiped(t, aliceConfig())
	p.readLine(t)

	p.send(t, "bogus\n")
	waitDone(t, s)

	if got := s.State(); got != client.Failed {
		t.Errorf("State() = %v, want FAILED", got)
	}
	if !errors.Is(s.Err(), protocol.ErrDecode) {
		t.Errorf("Err() = %v, want decode error", s.Err())
	}
}

func TestSession_UndecodableLineAfterConnected(t *testing.T) {
	s, p := openPiped(t, aliceConfig())
	p.readLine(t)

	p.send(t, "c bob\nx y\nc carol\n")
	waitDone(t, s)

	if got := s.State(); got != client.Disconnected {
		t.Errorf("State() = %v, want DISCONNECTED", got)
	}
	if !errors.Is(s.Err(), protocol.ErrDecode) {
		t.Errorf("Err() = %v, want decode error", s.Err())
	}
	events := s.Poll()
	if len(events) != 1 {
		t.Errorf("Poll() = %v, want only events before the bad line", events)
	}
}

func TestSession_WriteErrorKeepsState(t *testing.T) {
	writeErr := errors.New("broken pipe")
	conn := newBrokenWriteConn(writeErr)
	d := client.DialerFunc(func(ctx context.Context, ep client.Endpoint) (chat.Conn, error) {
		return conn, nil
	})

	s := client.Open(aliceConfig(), client.WithDialer(d))
	defer s.Close()

	conn.lines <- "c bob"
	waitState(t, s, client.Connected)

	// The handshake write fails and ends the writer only.
	deadline := time.Now().Add(testTimeout)
	for !errors.Is(s.Send("hello"), client.ErrSessionClosed) {
		if time.Now().After(deadline) {
			t.Fatal("Send() kept accepting text after the write failure")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if got := s.State(); got != client.Connected {
		t.Errorf("State() after write failure = %v, want CONNECTED", got)
	}
	var ioErr *client.IOError
	if !errors.As(s.Err(), &ioErr) || ioErr.Op != "write" {
		t.Fatalf("Err() = %v, want write *IOError", s.Err())
	}
	if !errors.Is(s.Err(), writeErr) {
		t.Errorf("Err() does not wrap the write error: %v", s.Err())
	}

	conn.lines <- "c carol"
	var events []protocol.Event
	for len(events) < 2 {
		events = append(events, waitEvents(t, s.Poll, 1)...)
	}
	if events[len(events)-1] != (protocol.PresenceJoined{Name: "carol"}) {
		t.Errorf("Poll() after write failure = %v, want join carol last", events)
	}
	if got := s.State(); got != client.Connected {
		t.Errorf("State() = %v, want CONNECTED", got)
	}
}

func TestSession_ConnectFailure(t *testing.T) {
	dialErr := errors.New("connection refused")
	d := client.DialerFunc(func(ctx context.Context, ep client.Endpoint) (chat.Conn, error) {
		return nil, dialErr
	})

	s := client.Open(aliceConfig(), client.WithDialer(d))
	defer s.Close()
	waitDone(t, s)

	if got := s.State(); got != client.Failed {
		t.Errorf("State() = %v, want FAILED", got)
	}
	var connErr *client.ConnectError
	if !errors.As(s.Err(), &connErr) {
		t.Fatalf("Err() = %v, want *ConnectError", s.Err())
	}
	if connErr.Addr != "tcp://127.0.0.1:6078" {
		t.Errorf("Addr = %q", connErr.Addr)
	}
	if !errors.Is(s.Err(), dialErr) {
		t.Errorf("Err() does not wrap the dial error: %v", s.Err())
	}
	if err := s.Send("late"); !errors.Is(err, client.ErrSessionClosed) {
		t.Errorf("Send() after failure = %v, want ErrSessionClosed", err)
	}
}

func TestSession_ConnectRefusedOverNetwork(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	s := client.Open(client.ConnectionConfig{Server: addr, Name: "alice"})
	defer s.Close()
	waitDone(t, s)

	if got := s.State(); got != client.Failed {
		t.Errorf("State() = %v, want FAILED", got)
	}
	var connErr *client.ConnectError
	if !errors.As(s.Err(), &connErr) {
		t.Errorf("Err() = %v, want *ConnectError", s.Err())
	}
}

func TestSession_InvalidAddress(t *testing.T) {
	s := client.Open(client.ConnectionConfig{Server: "wss://example.com", Name: "alice"})
	defer s.Close()
	waitDone(t, s)

	if got := s.State(); got != client.Failed {
		t.Errorf("State() = %v, want FAILED", got)
	}
	if !errors.Is(s.Err(), client.ErrUnsupportedScheme) {
		t.Errorf("Err() = %v, want ErrUnsupportedScheme", s.Err())
	}
}

func TestSession_SendQueueFull(t *testing.T) {
	s := client.Open(aliceConfig(), client.WithDialer(blockingDialer()))
	defer s.Close()

	for i := 0; i < client.DefaultOutboundQueueSize; i++ {
		if err := s.Send("x"); err != nil {
			t.Fatalf("Send() %d error: %v", i, err)
		}
	}
	if err := s.Send("overflow"); !errors.Is(err, client.ErrQueueFull) {
		t.Errorf("Send() on full queue = %v, want ErrQueueFull", err)
	}
}

func TestSession_SendContext(t *testing.T) {
	s := client.Open(aliceConfig(),
		client.WithDialer(blockingDialer()),
		client.WithQueueSizes(1, 0),
	)
	defer s.Close()

	if err := s.SendContext(context.Background(), "first"); err != nil {
		t.Fatalf("SendContext() error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := s.SendContext(ctx, "second"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("SendContext() on full queue = %v, want deadline exceeded", err)
	}

	s.Close()
	if err := s.SendContext(context.Background(), "third"); !errors.Is(err, client.ErrSessionClosed) {
		t.Errorf("SendContext() after Close = %v, want ErrSessionClosed", err)
	}
}

func TestSession_Close(t *testing.T) {
	s, p := openPiped(t, aliceConfig())
	p.readLine(t)
	p.send(t, "c bob\n")
	waitState(t, s, client.Connected)

	s.Close()
	s.Close()
	waitDone(t, s)

	if got := s.State(); got != client.Disconnected {
		t.Errorf("State() = %v, want DISCONNECTED", got)
	}
	if err := s.Err(); err != nil {
		t.Errorf("Err() = %v, want nil after Close", err)
	}
	if err := s.Send("after"); !errors.Is(err, client.ErrSessionClosed) {
		t.Errorf("Send() after Close = %v, want ErrSessionClosed", err)
	}
}

func TestSession_CloseWhileDialing(t *testing.T) {
	s := client.Open(aliceConfig(), client.WithDialer(blockingDialer()))
	s.Close()
	waitDone(t, s)

	if got := s.State(); got != client.Failed {
		t.Errorf("State() = %v, want FAILED", got)
	}
}

func TestSession_Notify(t *testing.T) {
	var counter notifyCounter
	s, p := openPiped(t, aliceConfig(), client.WithNotify(counter.notify))
	p.readLine(t)

	p.send(t, "c bob\nm bob hi\n")
	waitState(t, s, client.Connected)
	p.conn.Close()
	waitDone(t, s)

	// One call per event plus one for the terminal transition.
	if got := counter.count(); got != 3 {
		t.Errorf("notify called %d times, want 3", got)
	}
}

func TestSession_InboundQueueFullBlocksReader(t *testing.T) {
	s, p := openPiped(t, aliceConfig(), client.WithQueueSizes(0, 2))
	p.readLine(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.conn.SetWriteDeadline(time.Now().Add(testTimeout))
		p.conn.Write([]byte("c a\nc b\nc c\n"))
	}()

	waitState(t, s, client.Connected)
	events := waitEvents(t, s.Poll, 3)
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	if events[2] != (protocol.PresenceJoined{Name: "c"}) {
		t.Errorf("last event = %#v", events[2])
	}
	<-done
}
