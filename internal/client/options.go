package client

import (
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultOutboundQueueSize = 5
	DefaultInboundQueueSize  = 100
	DefaultDialTimeout       = 10 * time.Second
)

// Option configures a Session.
type Option func(*options)

type options struct {
	log          zerolog.Logger
	notify       func()
	dialer       Dialer
	outboundSize int
	inboundSize  int
	dialTimeout  time.Duration
}

func newOptions(opts []Option) options {
	o := options{
		log:          zerolog.Nop(),
		notify:       func() {},
		dialer:       NetDialer{},
		outboundSize: DefaultOutboundQueueSize,
		inboundSize:  DefaultInboundQueueSize,
		dialTimeout:  DefaultDialTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger used by the session loops.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithNotify sets a callback invoked from the reader goroutine whenever an
// event is queued and once more when the session ends. It must not block.
func WithNotify(fn func()) Option {
	return func(o *options) {
		if fn != nil {
			o.notify = fn
		}
	}
}

// WithDialer replaces the network dialer.
func WithDialer(d Dialer) Option {
	return func(o *options) {
		if d != nil {
			o.dialer = d
		}
	}
}

// WithQueueSizes sets the outbound and inbound queue capacities.
// Non-positive values keep the defaults.
func WithQueueSizes(outbound, inbound int) Option {
	return func(o *options) {
		if outbound > 0 {
			o.outboundSize = outbound
		}
		if inbound > 0 {
			o.inboundSize = inbound
		}
	}
}

// WithDialTimeout bounds connection establishment.
func WithDialTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.dialTimeout = d
		}
	}
}
