// Package mux serves raw TCP line clients and WebSocket clients on one
// listening port by sniffing the first bytes of each connection.
package mux

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/omochice/linechat/internal/chat"
	"github.com/omochice/linechat/internal/transport/tcp"
	"github.com/omochice/linechat/internal/transport/ws"
)

// SniffTimeout bounds how long a new connection may stay silent before
// its protocol is known.
const SniffTimeout = 10 * time.Second

var httpMethods = [][]byte{
	[]byte("GET "),
	[]byte("POST "),
	[]byte("PUT "),
	[]byte("HEAD "),
	[]byte("OPTIONS "),
	[]byte("PATCH "),
	[]byte("DELETE "),
	[]byte("CONNECT "),
}

var httpVersion = []byte(" HTTP/1.")

// Server accepts both protocols on one address and hands each connection
// to the TCP or WebSocket server sharing the hub.
type Server struct {
	address  string
	listener net.Listener
	log      zerolog.Logger
	tcp      *tcp.Server
	ws       *ws.Server
	ctx      context.Context
	cancel   context.CancelFunc
	mu       sync.Mutex
	pending  map[net.Conn]struct{}
	wg       sync.WaitGroup
}

// New creates a single-port server that uses the provided Hub.
func New(address string, hub *chat.Hub, log zerolog.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		address: address,
		log:     log,
		tcp:     tcp.New("", hub, log),
		ws:      ws.New("", hub, log),
		ctx:     ctx,
		cancel:  cancel,
		pending: make(map[net.Conn]struct{}),
	}
}

// Listen binds the listening socket without accepting connections yet.
func (s *Server) Listen() error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	s.listener = listener
	s.log.Info().Str("addr", listener.Addr().String()).Msg("server started (TCP and WebSocket)")
	return nil
}

// Start accepts connections, listening first if needed. It returns nil
// once the server is stopped.
func (s *Server) Start() error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return nil
			default:
				s.log.Warn().Err(err).Msg("failed to accept connection")
				continue
			}
		}

		s.mu.Lock()
		if s.ctx.Err() != nil {
			s.mu.Unlock()
			conn.Close()
			return nil
		}
		s.pending[conn] = struct{}{}
		s.wg.Add(1)
		s.mu.Unlock()

		go s.handleConnection(conn)
	}
}

// Stop stops accepting, closes connections still being sniffed and stops
// both protocol servers.
func (s *Server) Stop() {
	s.mu.Lock()
	s.cancel()
	for conn := range s.pending {
		conn.Close()
	}
	s.mu.Unlock()
	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()

	s.tcp.Stop()
	s.ws.Stop()
}

// Addr returns the listening address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// handleConnection determines whether the connection is HTTP (WebSocket) or TCP
func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()

	reader := bufio.NewReader(conn)
	isHTTP, err := sniff(conn, reader)

	s.mu.Lock()
	delete(s.pending, conn)
	stopped := s.ctx.Err() != nil
	s.mu.Unlock()

	if err != nil || stopped {
		if err != nil && !stopped {
			s.log.Debug().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("failed to peek connection")
		}
		conn.Close()
		return
	}

	if isHTTP {
		conn.SetDeadline(time.Now().Add(SniffTimeout))
		if err := s.ws.ServeConn(conn, reader); err != nil {
			s.log.Debug().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("failed to accept WebSocket connection")
			return
		}
		conn.SetDeadline(time.Time{})
		return
	}
	s.tcp.ServeConn(tcp.NewBufferedConn(conn, reader))
}

// sniff peeks at the first line without consuming it. A line client's
// first line is its display name, which may itself start like a method,
// so only a full request line counts as HTTP.
func sniff(conn net.Conn, reader *bufio.Reader) (bool, error) {
	conn.SetReadDeadline(time.Now().Add(SniffTimeout))
	defer conn.SetReadDeadline(time.Time{})

	if _, err := reader.Peek(1); err != nil {
		return false, err
	}
	// A line client may send fewer bytes than a method name in its first
	// packet, so the quick check only looks at what has arrived.
	prefix, _ := reader.Peek(reader.Buffered())
	if !hasMethodPrefix(prefix) {
		return false, nil
	}

	for {
		buf, _ := reader.Peek(reader.Buffered())
		if i := bytes.IndexByte(buf, '\n'); i >= 0 {
			return isRequestLine(buf[:i]), nil
		}
		if reader.Buffered() >= reader.Size() {
			return false, nil
		}
		if _, err := reader.Peek(reader.Buffered() + 1); err != nil {
			return false, err
		}
	}
}

// hasMethodPrefix reports whether b could be the start of a request line.
func hasMethodPrefix(b []byte) bool {
	for _, method := range httpMethods {
		n := min(len(b), len(method))
		if bytes.Equal(b[:n], method[:n]) {
			return true
		}
	}
	return false
}

func isRequestLine(line []byte) bool {
	line = bytes.TrimSuffix(line, []byte("\r"))
	for _, method := range httpMethods {
		if bytes.HasPrefix(line, method) {
			return bytes.Contains(line[len(method):], httpVersion)
		}
	}
	return false
}
