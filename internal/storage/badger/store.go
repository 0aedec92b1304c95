// Package badger provides a BadgerHold-backed blob store for collections.
package badger

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/bobmcallan/tickerwatch/internal/common"
	"github.com/timshannon/badgerhold/v4"
)

// KVEntry is one stored collection keyed by its name.
type KVEntry struct {
	Key   string `badgerhold:"key"`
	Value []byte
}

// Store wraps a BadgerHold database connection.
type Store struct {
	db     *badgerhold.Store
	logger *common.Logger
}

// NewStore opens a BadgerHold store at the given directory path.
func NewStore(logger *common.Logger, path string) (*Store, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create badger directory %s: %w", path, err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil // Disable default badger logger

	db, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	logger.Debug().Str("path", path).Msg("BadgerHold store opened")

	return &Store{db: db, logger: logger}, nil
}

// Read returns the blob for name, or nil when it has never been written.
func (s *Store) Read(_ context.Context, name string) ([]byte, error) {
	var entry KVEntry
	if err := s.db.Get(name, &entry); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get key '%s': %w", name, err)
	}
	return entry.Value, nil
}

// Write upserts the blob for name in one transaction.
func (s *Store) Write(_ context.Context, name string, data []byte) error {
	entry := KVEntry{Key: name, Value: data}
	if err := s.db.Upsert(name, &entry); err != nil {
		return fmt.Errorf("failed to set key '%s': %w", name, err)
	}
	return nil
}

// Close closes the BadgerHold database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
