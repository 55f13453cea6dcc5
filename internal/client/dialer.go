package client

import (
	"context"
	"fmt"
	"net"

	"github.com/omochice/linechat/internal/chat"
	"github.com/omochice/linechat/internal/transport/tcp"
	"github.com/omochice/linechat/internal/transport/ws"
)

// Dialer opens a line connection to a resolved endpoint.
type Dialer interface {
	Dial(ctx context.Context, ep Endpoint) (chat.Conn, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, ep Endpoint) (chat.Conn, error)

// Dial calls f.
func (f DialerFunc) Dial(ctx context.Context, ep Endpoint) (chat.Conn, error) {
	return f(ctx, ep)
}

// NetDialer dials TCP endpoints with net.Dialer and WebSocket endpoints
// with gobwas/ws.
type NetDialer struct{}

// Dial implements Dialer.
func (NetDialer) Dial(ctx context.Context, ep Endpoint) (chat.Conn, error) {
	switch ep.Network {
	case NetworkTCP:
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", ep.Address)
		if err != nil {
			return nil, err
		}
		return tcp.NewConn(conn), nil
	case NetworkWebSocket:
		return ws.Dial(ctx, ep.Address)
	default:
		return nil, fmt.Errorf("network %q: %w", ep.Network, ErrUnsupportedScheme)
	}
}
