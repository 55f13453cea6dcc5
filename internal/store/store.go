// Package store persists the ordered list of tab configurations in a
// Pebble key-value store.
package store

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/pebble/v2"
	"github.com/rs/zerolog"

	"github.com/omochice/linechat/internal/client"
)

var (
	connPrefix = []byte("conn/")
	// connEnd is the first key after every conn/ key.
	connEnd = []byte("conn0")
)

// Store holds tab configurations keyed by position.
// A nil *Store is valid and persists nothing.
type Store struct {
	db  *pebble.DB
	log zerolog.Logger
}

// Open opens the store in dir, creating it if needed. An empty dir
// disables persistence and returns a nil store.
func Open(dir string, log zerolog.Logger) (*Store, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	db, err := pebble.Open(filepath.Clean(dir), &pebble.Options{
		Logger: pebbleLogger{log: log},
	})
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

// Load returns the saved configurations in saved order.
func (s *Store) Load() ([]client.ConnectionConfig, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	it, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: connPrefix,
		UpperBound: connEnd,
	})
	if err != nil {
		return nil, err
	}
	defer func() { _ = it.Close() }()

	var cfgs []client.ConnectionConfig
	for it.First(); it.Valid(); it.Next() {
		cfg, err := unmarshalConfig(it.Value())
		if err != nil {
			s.log.Warn().Err(err).Hex("key", it.Key()).Msg("skipping unreadable connection record")
			continue
		}
		cfgs = append(cfgs, cfg)
	}
	return cfgs, it.Error()
}

// Save replaces the stored list with cfgs in one atomic batch.
func (s *Store) Save(cfgs []client.ConnectionConfig) error {
	if s == nil || s.db == nil {
		return nil
	}
	b := s.db.NewBatch()
	defer func() { _ = b.Close() }()

	if err := b.DeleteRange(connPrefix, connEnd, nil); err != nil {
		return err
	}
	for i, cfg := range cfgs {
		if err := b.Set(connKey(uint64(i)), marshalConfig(cfg), nil); err != nil {
			return err
		}
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("save connections: %w", err)
	}
	s.log.Debug().Int("count", len(cfgs)).Msg("connections saved")
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func connKey(i uint64) []byte {
	key := make([]byte, len(connPrefix)+8)
	copy(key, connPrefix)
	binary.BigEndian.PutUint64(key[len(connPrefix):], i)
	return key
}

// pebbleLogger routes Pebble's own logging through zerolog.
type pebbleLogger struct {
	log zerolog.Logger
}

func (l pebbleLogger) Infof(format string, args ...interface{}) {
	l.log.Debug().Msgf(format, args...)
}

func (l pebbleLogger) Errorf(format string, args ...interface{}) {
	l.log.Error().Msgf(format, args...)
}

func (l pebbleLogger) Fatalf(format string, args ...interface{}) {
	l.log.Fatal().Msgf(format, args...)
}
