// Package ws provides the WebSocket line transport built on gobwas/ws.
// Each text frame carries one or more terminated lines.
package ws

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/omochice/linechat/pkg/protocol"
)

// Conn adapts a WebSocket connection to chat.Conn.
type Conn struct {
	conn       net.Conn
	rw         io.ReadWriter
	w          *lockedWriter
	state      ws.State
	pending    []byte
	remoteAddr string
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func newConn(conn net.Conn, r io.Reader, state ws.State, addr string) *Conn {
	if r == nil {
		r = conn
	}
	w := &lockedWriter{w: conn}
	return &Conn{
		conn: conn,
		rw: struct {
			io.Reader
			io.Writer
		}{r, w},
		w:          w,
		state:      state,
		remoteAddr: addr,
	}
}

// NewServerConn wraps the server side of an upgraded connection. r may be
// the buffered reader returned by the upgrade.
func NewServerConn(conn net.Conn, r io.Reader, addr string) *Conn {
	return newConn(conn, r, ws.StateServerSide, addr)
}

// NewClientConn wraps the client side of a dialed connection. br may be
// the buffered reader returned by the dialer.
func NewClientConn(conn net.Conn, br *bufio.Reader) *Conn {
	var r io.Reader
	if br != nil {
		r = br
	}
	return newConn(conn, r, ws.StateClientSide, conn.RemoteAddr().String())
}

// Dial opens a client WebSocket connection to url.
func Dial(ctx context.Context, url string) (*Conn, error) {
	conn, br, _, err := ws.Dial(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial websocket: %w", err)
	}
	return NewClientConn(conn, br), nil
}

// ReadLine implements chat.Conn.
// Reads text frames until a complete line is buffered.
func (c *Conn) ReadLine(ctx context.Context) (string, error) {
	for {
		if i := bytes.IndexByte(c.pending, protocol.Terminator); i >= 0 {
			line := string(c.pending[:i+1])
			c.pending = c.pending[i+1:]
			return protocol.TrimLine(line), nil
		}

		data, op, err := wsutil.ReadData(c.rw, c.state)
		if err != nil {
			var closed wsutil.ClosedError
			if errors.As(err, &closed) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				if len(c.pending) > 0 {
					line := string(c.pending)
					c.pending = nil
					return protocol.TrimLine(line), nil
				}
				return "", io.EOF
			}
			return "", err
		}
		if op != ws.OpText {
			continue
		}
		c.pending = append(c.pending, data...)
	}
}

// WriteLine implements chat.Conn.
// Writes the line as a single text frame.
func (c *Conn) WriteLine(ctx context.Context, line []byte) error {
	return wsutil.WriteMessage(c.w, c.state, ws.OpText, line)
}

// Close implements chat.Conn.
func (c *Conn) Close() error {
	_ = wsutil.WriteMessage(c.w, c.state, ws.OpClose, nil)
	return c.conn.Close()
}

// RemoteAddr implements chat.Conn.
func (c *Conn) RemoteAddr() string {
	return c.remoteAddr
}
