package chat

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/omochice/linechat/pkg/protocol"
)

// OutgoingQueueSize bounds the lines buffered for one client.
const OutgoingQueueSize = 32

// Client represents a connected client with transport-agnostic connection.
type Client struct {
	Conn     Conn
	Username string
	Outgoing chan []byte
}

// NewClient wraps conn with an outgoing queue.
func NewClient(conn Conn) *Client {
	return &Client{
		Conn:     conn,
		Outgoing: make(chan []byte, OutgoingQueueSize),
	}
}

// Hub manages all connected clients and relays events between them.
// Both TCP and WebSocket servers share a single Hub instance.
type Hub struct {
	clients map[*Client]bool
	mu      sync.RWMutex
	log     zerolog.Logger
}

// NewHub creates a new Hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		log:     log,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = true
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, client)
}

// ClientCount returns number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues ev for every registered client that has completed its
// handshake. Clients whose queue is full are skipped.
func (h *Hub) Broadcast(ev protocol.Event) {
	line := protocol.EncodeEvent(ev)
	if line == nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if client.Username == "" {
			continue
		}
		select {
		case client.Outgoing <- line:
		default:
			h.log.Warn().Str("remote", client.Conn.RemoteAddr()).Msg("client queue full, skipping")
		}
	}
}

// HandleClient runs the server side of the protocol for one client until
// its connection ends. The client must already be registered; it is
// unregistered before HandleClient returns.
func (h *Hub) HandleClient(ctx context.Context, client *Client) {
	defer h.Unregister(client)

	log := h.log.With().Str("remote", client.Conn.RemoteAddr()).Logger()

	name, err := client.Conn.ReadLine(ctx)
	if err != nil {
		if !errors.Is(err, io.EOF) {
			log.Debug().Err(err).Msg("handshake read failed")
		}
		return
	}
	if name == "" {
		log.Debug().Msg("empty display name, dropping client")
		return
	}

	h.setUsername(client, name)
	log.Info().Str("name", name).Msg("user joined")
	h.Broadcast(protocol.PresenceJoined{Name: name})
	defer func() {
		h.Unregister(client)
		log.Info().Str("name", h.username(client)).Msg("user left")
		h.Broadcast(protocol.PresenceLeft{Name: h.username(client)})
	}()

	for {
		line, err := client.Conn.ReadLine(ctx)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Debug().Err(err).Msg("read failed")
			}
			return
		}

		cmd := protocol.DecodeCommand(line)
		switch cmd.Kind {
		case protocol.CommandSay:
			h.Broadcast(protocol.Message{Sender: h.username(client), Body: cmd.Arg})
		case protocol.CommandRename:
			oldName := h.username(client)
			h.setUsername(client, cmd.Arg)
			log.Info().Str("old", oldName).Str("new", cmd.Arg).Msg("user renamed")
			h.Broadcast(protocol.Renamed{OldName: oldName, NewName: cmd.Arg})
		default:
			log.Debug().Str("line", cmd.Arg).Msg("ignoring unknown command")
		}
	}
}

func (h *Hub) setUsername(client *Client, name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	client.Username = name
}

func (h *Hub) username(client *Client) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return client.Username
}
