package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/bobmcallan/tickerwatch/internal/common"
	"github.com/bobmcallan/tickerwatch/internal/interfaces"
)

// Collection is an ordered list of records stored as one JSON array blob.
//
// Writers inside this process are serialized by Update. Other processes
// sharing the backend are not coordinated: the last write wins.
type Collection[T any] struct {
	name   string
	blobs  interfaces.BlobStore
	logger *common.Logger
	mu     sync.Mutex
}

var _ interfaces.CollectionStore[struct{}] = (*Collection[struct{}])(nil)

// NewCollection binds a collection name to a blob backend.
func NewCollection[T any](blobs interfaces.BlobStore, name string, logger *common.Logger) *Collection[T] {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Collection[T]{name: name, blobs: blobs, logger: logger}
}

func (c *Collection[T]) Name() string { return c.name }

// Load returns the whole collection. Absent, empty or unparsable state
// loads as an empty collection; unparsable state is logged.
func (c *Collection[T]) Load(ctx context.Context) ([]T, error) {
	data, err := c.blobs.Read(ctx, c.name)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", c.name, err)
	}
	return c.decode(data), nil
}

func (c *Collection[T]) decode(data []byte) []T {
	records := []T{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return records
	}
	if err := json.Unmarshal(data, &records); err != nil {
		malformed := &common.MalformedStateError{Collection: c.name, Err: err}
		c.logger.Warn().Err(malformed).Str("collection", c.name).Int("bytes", len(data)).
			Msg("Stored collection is malformed, treating as empty")
		return []T{}
	}
	if records == nil {
		records = []T{}
	}
	return records
}

// Save replaces the whole collection.
func (c *Collection[T]) Save(ctx context.Context, records []T) error {
	if records == nil {
		records = []T{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.name, err)
	}
	data = append(data, '\n')
	if err := c.blobs.Write(ctx, c.name, data); err != nil {
		return fmt.Errorf("save %s: %w", c.name, err)
	}
	return nil
}

// Update loads the collection, applies fn and saves the result while
// holding the collection lock. If fn returns an error nothing is saved.
func (c *Collection[T]) Update(ctx context.Context, fn func([]T) ([]T, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	records, err := c.Load(ctx)
	if err != nil {
		return err
	}
	next, err := fn(records)
	if err != nil {
		return err
	}
	return c.Save(ctx, next)
}
