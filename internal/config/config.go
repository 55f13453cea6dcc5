// Package config loads the client configuration file.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/omochice/linechat/internal/client"
)

// Config is the client configuration.
type Config struct {
	StateDir string                  `mapstructure:"state_dir" yaml:"state_dir"`
	Logging  LoggingConfig           `mapstructure:"logging" yaml:"logging"`
	Session  SessionConfig           `mapstructure:"session" yaml:"session"`
	Default  client.ConnectionConfig `mapstructure:"default" yaml:"default"`
}

// LoggingConfig controls the zerolog output of the client.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	// File receives log output while the terminal UI owns the screen.
	File string `mapstructure:"file" yaml:"file"`
}

// SessionConfig holds per-connection limits.
type SessionConfig struct {
	DialTimeoutSeconds int `mapstructure:"dial_timeout_seconds" yaml:"dial_timeout_seconds"`
	OutboundQueue      int `mapstructure:"outbound_queue" yaml:"outbound_queue"`
	InboundQueue       int `mapstructure:"inbound_queue" yaml:"inbound_queue"`
}

// Options converts the session limits to client options.
func (c SessionConfig) Options() []client.Option {
	return []client.Option{
		client.WithDialTimeout(time.Duration(c.DialTimeoutSeconds) * time.Second),
		client.WithQueueSizes(c.OutboundQueue, c.InboundQueue),
	}
}

// Default returns the built-in configuration.
func Default() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	base := filepath.Join(home, ".linechat")
	return Config{
		StateDir: filepath.Join(base, "state"),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			File:   filepath.Join(base, "client.log"),
		},
		Session: SessionConfig{
			DialTimeoutSeconds: int(client.DefaultDialTimeout / time.Second),
			OutboundQueue:      client.DefaultOutboundQueueSize,
			InboundQueue:       client.DefaultInboundQueueSize,
		},
		Default: client.DefaultConnectionConfig(),
	}, nil
}

// DefaultPath returns the standard config path.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".linechat", "config.yaml"), nil
}
