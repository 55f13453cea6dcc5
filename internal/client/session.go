package client

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/omochice/linechat/internal/chat"
	"github.com/omochice/linechat/pkg/protocol"
)

// Session owns one server connection and its reader and writer goroutines.
// All methods are safe to call from the UI goroutine and never block on
// network I/O.
type Session struct {
	cfg  ConnectionConfig
	opts options
	log  zerolog.Logger

	outbound chan string
	inbound  chan protocol.Event

	state atomic.Int32

	errMu sync.Mutex
	err   error

	ctx    context.Context
	cancel context.CancelFunc

	connMu    sync.Mutex
	conn      chat.Conn
	closeOnce sync.Once

	writerDone chan struct{}
	done       chan struct{}
}

// Open starts a session for cfg and returns immediately in the Loading
// state. Connecting happens in the background; a failure surfaces as the
// Failed state with a *ConnectError from Err.
func Open(cfg ConnectionConfig, opts ...Option) *Session {
	o := newOptions(opts)
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		cfg:        cfg,
		opts:       o,
		log:        o.log.With().Str("server", cfg.Server).Str("name", cfg.Name).Logger(),
		outbound:   make(chan string, o.outboundSize),
		inbound:    make(chan protocol.Event, o.inboundSize),
		ctx:        ctx,
		cancel:     cancel,
		writerDone: make(chan struct{}),
		done:       make(chan struct{}),
	}
	s.state.Store(int32(Loading))

	go s.run()

	return s
}

// Config returns the configuration the session was built from.
func (s *Session) Config() ConnectionConfig {
	return s.cfg
}

// State returns the current connection state.
func (s *Session) State() ConnectionState {
	return ConnectionState(s.state.Load())
}

// Err returns the error that ended the session, if any. A server closing
// a connection that had reached Connected is not an error.
func (s *Session) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Done is closed once both session goroutines have returned.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Send queues text for the writer without blocking. It returns
// ErrQueueFull when the outbound queue is at capacity and
// ErrSessionClosed once the session can no longer write.
func (s *Session) Send(text string) error {
	select {
	case <-s.ctx.Done():
		return ErrSessionClosed
	case <-s.writerDone:
		return ErrSessionClosed
	default:
	}

	select {
	case s.outbound <- text:
		return nil
	default:
		return ErrQueueFull
	}
}

// SendContext queues text, waiting for queue space until ctx is done.
func (s *Session) SendContext(ctx context.Context, text string) error {
	select {
	case <-s.ctx.Done():
		return ErrSessionClosed
	case <-s.writerDone:
		return ErrSessionClosed
	default:
	}

	select {
	case s.outbound <- text:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return ErrSessionClosed
	case <-s.writerDone:
		return ErrSessionClosed
	}
}

// Poll drains every queued event without blocking.
func (s *Session) Poll() []protocol.Event {
	var events []protocol.Event
	for {
		select {
		case ev, ok := <-s.inbound:
			if !ok {
				return events
			}
			events = append(events, ev)
		default:
			return events
		}
	}
}

// Close stops the writer and closes the connection so the reader ends.
// It is safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.connMu.Lock()
		s.cancel()
		conn := s.conn
		s.connMu.Unlock()

		if conn != nil {
			conn.Close()
		}
	})
}

func (s *Session) run() {
	defer close(s.done)

	conn, err := s.dial()
	if err != nil {
		s.end(err)
		return
	}

	s.log.Info().Str("remote", conn.RemoteAddr()).Msg("connected")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.writeLoop(conn)
	}()

	s.readLoop(conn)

	s.cancel()
	conn.Close()
	wg.Wait()
}

func (s *Session) dial() (chat.Conn, error) {
	ep, err := ResolveAddress(s.cfg.Server)
	if err != nil {
		return nil, &ConnectError{Addr: s.cfg.Server, Err: err}
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.opts.dialTimeout)
	defer cancel()

	conn, err := s.opts.dialer.Dial(ctx, ep)
	if err != nil {
		return nil, &ConnectError{Addr: ep.String(), Err: err}
	}

	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.ctx.Err() != nil {
		conn.Close()
		return nil, &ConnectError{Addr: ep.String(), Err: ErrSessionClosed}
	}
	s.conn = conn
	return conn, nil
}

func (s *Session) writeLoop(conn chat.Conn) {
	defer close(s.writerDone)

	if err := conn.WriteLine(s.ctx, protocol.EncodeHandshake(s.cfg.Name)); err != nil {
		s.writeFailed(err)
		return
	}

	for {
		select {
		case <-s.ctx.Done():
			return
		case text := <-s.outbound:
			if err := conn.WriteLine(s.ctx, protocol.EncodeOutbound(text)); err != nil {
				s.writeFailed(err)
				return
			}
		}
	}
}

func (s *Session) writeFailed(err error) {
	if s.ctx.Err() != nil {
		return
	}
	s.log.Warn().Err(err).Msg("write failed")
	s.setErr(&IOError{Op: "write", Err: err})
}

func (s *Session) readLoop(conn chat.Conn) {
	for {
		line, err := conn.ReadLine(s.ctx)
		if err != nil {
			s.end(s.readErr(err))
			return
		}

		ev, err := protocol.Decode(line)
		if err != nil {
			s.end(err)
			return
		}

		if s.state.CompareAndSwap(int32(Loading), int32(Connected)) {
			s.log.Debug().Msg("first line decoded")
		}

		select {
		case s.inbound <- ev:
		case <-s.ctx.Done():
			s.end(nil)
			return
		}
		s.opts.notify()
	}
}

func (s *Session) readErr(err error) error {
	if s.ctx.Err() != nil {
		return nil
	}
	if errors.Is(err, io.EOF) {
		if s.State() == Connected {
			return nil
		}
		return &IOError{Op: "read", Err: io.ErrUnexpectedEOF}
	}
	return &IOError{Op: "read", Err: err}
}

// end moves the session into its terminal state. It runs exactly once,
// from the goroutine that owns the inbound queue.
func (s *Session) end(err error) {
	prev := s.State()
	next := prev.ended()
	s.state.Store(int32(next))
	s.cancel()

	if err != nil {
		s.setErr(err)
	}

	ev := s.log.Info()
	if err != nil {
		ev = s.log.Warn().Err(err)
	}
	ev.Stringer("state", next).Msg("session ended")

	close(s.inbound)
	s.opts.notify()
}

func (s *Session) setErr(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}
