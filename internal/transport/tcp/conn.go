// Package tcp provides the TCP line transport used by both the relay
// server and client sessions.
package tcp

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/omochice/linechat/pkg/protocol"
)

// Conn adapts net.Conn to chat.Conn with newline framing.
type Conn struct {
	conn net.Conn
	r    *bufio.Reader

	wmu sync.Mutex
	w   *bufio.Writer
}

// NewConn wraps a net.Conn.
func NewConn(conn net.Conn) *Conn {
	return &Conn{
		conn: conn,
		r:    bufio.NewReader(conn),
		w:    bufio.NewWriter(conn),
	}
}

// NewBufferedConn wraps a net.Conn whose first bytes were already read
// into r.
func NewBufferedConn(conn net.Conn, r *bufio.Reader) *Conn {
	c := NewConn(conn)
	c.r = r
	return c
}

// ReadLine implements chat.Conn.
// A final line without terminator is returned before io.EOF.
func (c *Conn) ReadLine(ctx context.Context) (string, error) {
	line, err := c.r.ReadString(protocol.Terminator)
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return protocol.TrimLine(line), nil
		}
		return "", err
	}
	return protocol.TrimLine(line), nil
}

// WriteLine implements chat.Conn.
func (c *Conn) WriteLine(ctx context.Context, line []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if _, err := c.w.Write(line); err != nil {
		return err
	}
	return c.w.Flush()
}

// Close implements chat.Conn.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// RemoteAddr implements chat.Conn.
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
