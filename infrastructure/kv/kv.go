// Package kv is the station-local key-value store. It holds data that belongs
// to one device rather than to the shared database: custom options added at
// that station and its report recipients.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const maxConflictRetries = 3

// Store wraps a badger database.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the store under dir.
func Open(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("badger path is required")
	}
	opts := badger.DefaultOptions(dir).WithLogger(badgerLogger{log.Logger.With().Str("component", "badger").Logger()})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens a throwaway store, used by tests.
func OpenInMemory() (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open in-memory badger: %w", err)
	}
	return &Store{db: db}, nil
}

// Close flushes and closes the store.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// GetJSON decodes the value at key into dst. It reports false when the key is absent.
func (s *Store) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, dst)
		})
	})
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	return found, nil
}

// UpdateJSON runs a read-modify-write of the JSON list at key in one
// transaction. fn receives the current value (nil when absent) and returns the
// value to store.
func UpdateJSON[T any](ctx context.Context, s *Store, key string, fn func(current []T) ([]T, error)) ([]T, error) {
	var out []T
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		err = s.db.Update(func(txn *badger.Txn) error {
			var current []T
			item, err := txn.Get([]byte(key))
			switch {
			case err == nil:
				if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &current) }); err != nil {
					return err
				}
			case !errors.Is(err, badger.ErrKeyNotFound):
				return err
			}
			next, err := fn(current)
			if err != nil {
				return err
			}
			b, err := json.Marshal(next)
			if err != nil {
				return err
			}
			out = next
			return txn.Set([]byte(key), b)
		})
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", key, err)
	}
	return out, nil
}

type badgerLogger struct {
	l zerolog.Logger
}

func (b badgerLogger) Errorf(format string, args ...any) {
	b.l.Error().Msgf(strings.TrimSpace(format), args...)
}

func (b badgerLogger) Warningf(format string, args ...any) {
	b.l.Warn().Msgf(strings.TrimSpace(format), args...)
}

func (b badgerLogger) Infof(format string, args ...any) {
	b.l.Debug().Msgf(strings.TrimSpace(format), args...)
}

func (b badgerLogger) Debugf(format string, args ...any) {
	b.l.Trace().Msgf(strings.TrimSpace(format), args...)
}
