// Package client implements the network session core of the chat client:
// one Session per TCP (or WebSocket) connection, a Supervisor per tab that
// can replace its session, and the ordered tab list.
package client

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strings"
)

const (
	// DefaultPort is used when the server address carries no port.
	DefaultPort = "6078"
	// DefaultServer is the address of a freshly created tab.
	DefaultServer = "127.0.0.1:" + DefaultPort
	// DefaultName is the display name of a freshly created tab.
	DefaultName = "nobody"
)

var (
	ErrEmptyAddress      = errors.New("empty server address")
	ErrUnsupportedScheme = errors.New("unsupported address scheme")
)

// ConnectionConfig is the address and display name of one logical connection.
type ConnectionConfig struct {
	Server string `mapstructure:"server" yaml:"server"`
	Name   string `mapstructure:"name" yaml:"name"`
}

// DefaultConnectionConfig returns the configuration of a new tab.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{Server: DefaultServer, Name: DefaultName}
}

// Network identifies the transport of an Endpoint.
type Network string

const (
	NetworkTCP       Network = "tcp"
	NetworkWebSocket Network = "ws"
)

// Endpoint is a resolved dial target.
type Endpoint struct {
	Network Network
	// Address is host:port for TCP and the full URL for WebSocket.
	Address string
}

func (e Endpoint) String() string {
	if e.Network == NetworkWebSocket {
		return e.Address
	}
	return string(e.Network) + "://" + e.Address
}

// ResolveAddress turns a user-entered server address into a dial target,
// appending DefaultPort when no port is given.
func ResolveAddress(server string) (Endpoint, error) {
	server = strings.TrimSpace(server)
	if server == "" {
		return Endpoint{}, ErrEmptyAddress
	}

	if scheme, _, ok := strings.Cut(server, "://"); ok {
		switch strings.ToLower(scheme) {
		case "ws":
			u, err := url.Parse(server)
			if err != nil {
				return Endpoint{}, fmt.Errorf("invalid websocket address %q: %w", server, err)
			}
			if u.Host == "" {
				return Endpoint{}, fmt.Errorf("websocket address %q: %w", server, ErrEmptyAddress)
			}
			return Endpoint{Network: NetworkWebSocket, Address: server}, nil
		default:
			return Endpoint{}, fmt.Errorf("%q: %w", scheme, ErrUnsupportedScheme)
		}
	}

	if host, port, err := net.SplitHostPort(server); err == nil {
		if host == "" {
			return Endpoint{}, fmt.Errorf("address %q: %w", server, ErrEmptyAddress)
		}
		if port == "" {
			port = DefaultPort
		}
		return Endpoint{Network: NetworkTCP, Address: net.JoinHostPort(host, port)}, nil
	}

	host := server
	if strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
		host = host[1 : len(host)-1]
	}
	if strings.Contains(host, ":") {
		if _, err := netip.ParseAddr(host); err != nil {
			return Endpoint{}, fmt.Errorf("invalid address %q: %w", server, err)
		}
	}
	return Endpoint{Network: NetworkTCP, Address: net.JoinHostPort(host, DefaultPort)}, nil
}
