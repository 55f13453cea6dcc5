package client

import (
	"context"
	"sync"

	"github.com/omochice/linechat/pkg/protocol"
)

// Supervisor owns the active Session of one tab. Reconnecting replaces the
// session as a whole; callers always reach the current one through the
// supervisor.
type Supervisor struct {
	mu      sync.RWMutex
	cfg     ConnectionConfig
	session *Session
	opts    []Option
}

// NewSupervisor opens a session for cfg.
func NewSupervisor(cfg ConnectionConfig, opts ...Option) *Supervisor {
	return &Supervisor{
		cfg:     cfg,
		session: Open(cfg, opts...),
		opts:    opts,
	}
}

// Handle returns the current session.
func (s *Supervisor) Handle() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// Config returns the tab configuration, including renames not yet
// reflected by a reconnect.
func (s *Supervisor) Config() ConnectionConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Reconnect opens a new session for cfg, swaps it in and closes the
// previous one. Events still queued on the old session are dropped.
func (s *Supervisor) Reconnect(cfg ConnectionConfig) *Session {
	next := Open(cfg, s.opts...)

	s.mu.Lock()
	old := s.session
	s.session = next
	s.cfg = cfg
	s.mu.Unlock()

	old.Close()
	return next
}

// Rename asks the server to change the display name over the current
// session. The stored name is updated even when the request cannot be
// queued, so the next reconnect uses it.
func (s *Supervisor) Rename(name string) error {
	s.mu.Lock()
	s.cfg.Name = name
	session := s.session
	s.mu.Unlock()

	return session.Send(protocol.RenameCommand(name))
}

// Edit applies an edited configuration. A changed address reconnects;
// a changed name on the same address renames in place.
func (s *Supervisor) Edit(cfg ConnectionConfig) error {
	current := s.Config()
	if cfg.Server != current.Server {
		s.Reconnect(cfg)
		return nil
	}
	if cfg.Name != current.Name {
		return s.Rename(cfg.Name)
	}
	return nil
}

// Send queues text on the current session.
func (s *Supervisor) Send(text string) error {
	return s.Handle().Send(text)
}

// SendContext queues text on the current session, waiting for queue space
// until ctx is done.
func (s *Supervisor) SendContext(ctx context.Context, text string) error {
	return s.Handle().SendContext(ctx, text)
}

// Poll drains the current session's events.
func (s *Supervisor) Poll() []protocol.Event {
	return s.Handle().Poll()
}

// State returns the current session's state.
func (s *Supervisor) State() ConnectionState {
	return s.Handle().State()
}

// Err returns the error that ended the current session, if any.
func (s *Supervisor) Err() error {
	return s.Handle().Err()
}

// Close closes the current session.
func (s *Supervisor) Close() {
	s.Handle().Close()
}
