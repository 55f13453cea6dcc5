// Package chat provides the line-oriented connection abstraction and the
// relay hub shared by all transports.
package chat

import "context"

// Conn abstracts a bidirectional line connection for both TCP and WebSocket.
// This interface isolates transport details from protocol logic.
type Conn interface {
	// ReadLine reads a single line with its terminator stripped.
	// Returns io.EOF when the connection is closed.
	ReadLine(ctx context.Context) (string, error)

	// WriteLine writes one terminated line and flushes it.
	WriteLine(ctx context.Context, line []byte) error

	// Close closes the connection.
	Close() error

	// RemoteAddr returns the remote address for logging.
	RemoteAddr() string
}
