package ws

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"

	"github.com/gobwas/ws"
	"github.com/rs/zerolog"

	"github.com/omochice/linechat/internal/chat"
)

// ErrServerClosed is returned by ServeConn after Stop.
var ErrServerClosed = errors.New("websocket server closed")

// Server handles WebSocket connections and delegates to Hub.
type Server struct {
	address  string
	listener net.Listener
	hub      *chat.Hub
	server   *http.Server
	log      zerolog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	mu       sync.Mutex
	conns    map[*Conn]struct{}
	wg       sync.WaitGroup
}

// New creates a WebSocket server that uses the provided Hub.
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

// Listen binds the listening socket without serving yet.
func (s *Server) Listen() error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to start WebSocket server: %w", err)
	}
	s.listener = listener
	s.log.Info().Str("addr", listener.Addr().String()).Msg("WebSocket server started")
	return nil
}

// Start starts accepting WebSocket connections, listening first if needed.
// It returns nil once the server is stopped.
func (s *Server) Start() error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleWebSocket)
	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		return nil
	}
	s.server = &http.Server{Handler: mux}
	srv := s.server
	s.mu.Unlock()

	if err := srv.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop stops the WebSocket server and closes every client connection.
func (s *Server) Stop() {
	s.mu.Lock()
	s.cancel()
	srv := s.server
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()
	if srv != nil {
		srv.Shutdown(context.Background())
	} else if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
}

// Addr returns the listening address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, rw, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		s.log.Debug().Err(err).Msg("failed to accept WebSocket connection")
		return
	}

	s.serve(NewServerConn(conn, rw.Reader, r.RemoteAddr))
}

// ServeConn performs the WebSocket handshake on a raw connection whose
// first bytes may already be buffered in r, then relays it through the hub.
func (s *Server) ServeConn(conn net.Conn, r io.Reader) error {
	rw := struct {
		io.Reader
		io.Writer
	}{r, conn}
	if _, err := ws.Upgrade(rw); err != nil {
		conn.Close()
		return fmt.Errorf("websocket upgrade: %w", err)
	}
	if !s.serve(NewServerConn(conn, r, conn.RemoteAddr().String())) {
		return ErrServerClosed
	}
	return nil
}

func (s *Server) serve(c *Conn) bool {
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
			s.log.Debug().Err(err).Str("remote", client.Conn.RemoteAddr()).Msg("failed to write to WebSocket client")
			return
		}
	}
}
