package tcp

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/rs/zerolog"

	"github.com/omochice/linechat/internal/chat"
)

// Server handles TCP connections and delegates to Hub.
type Server struct {
	address  string
	listener net.Listener
	hub      *chat.Hub
	log      zerolog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	mu       sync.Mutex
	conns    map[*Conn]struct{}
	wg       sync.WaitGroup
}

// New creates a TCP server that uses the provided Hub.
func New(address string, hub *chat.Hub, log zerolog.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		address: address,
		hub:     hub,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
		conns:   make(map[*Conn]struct{}),
	}
}

// Listen binds the listening socket without accepting connections yet.
func (s *Server) Listen() error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to start TCP server: %w", err)
	}
	s.listener = listener
	s.log.Info().Str("addr", listener.Addr().String()).Msg("TCP server started")
	return nil
}

// Start starts accepting TCP connections, listening first if needed.
// It returns nil once the server is stopped.
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
				s.log.Warn().Err(err).Msg("failed to accept TCP connection")
				continue
			}
		}

		if !s.ServeConn(NewConn(conn)) {
			return nil
		}
	}
}

// ServeConn relays c through the hub until it disconnects. It reports
// false, closing c, once the server is stopped.
func (s *Server) ServeConn(c *Conn) bool {
	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		c.Close()
		return false
	}
	s.conns[c] = struct{}{}
	s.wg.Add(2)
	s.mu.Unlock()

	client := chat.NewClient(c)
	s.hub.Register(client)

	go s.handleClient(client, c)
	go s.writeLoop(client)
	return true
}

// Stop stops the TCP server and closes every client connection.
func (s *Server) Stop() {
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()
	if s.listener != nil {
		s.listener.Close()
	}
	s.mu.Lock()
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// Addr returns the listening address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

func (s *Server) handleClient(client *chat.Client, c *Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, c)
		s.mu.Unlock()
		c.Close()
	}()
	defer close(client.Outgoing)
	s.hub.HandleClient(s.ctx, client)
}

func (s *Server) writeLoop(client *chat.Client) {
	defer s.wg.Done()
	for line := range client.Outgoing {
		if err := client.Conn.WriteLine(s.ctx, line); err != nil {
			s.log.Debug().Err(err).Str("remote", client.Conn.RemoteAddr()).Msg("failed to write to client")
			return
		}
	}
}
