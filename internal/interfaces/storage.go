package interfaces

import "context"

// BlobStore persists named opaque blobs. It is the only contract the
// storage backends implement.
type BlobStore interface {
	// Read returns the blob for name, or nil with no error when absent
	Read(ctx context.Context, name string) ([]byte, error)

	// Write replaces the blob for name in a single step
	Write(ctx context.Context, name string, data []byte) error

	// Close releases backend resources
	Close() error
}

// CollectionStore loads and saves one ordered collection of records
type CollectionStore[T any] interface {
	// Load returns the whole collection. Absent or unparsable state loads as empty.
	Load(ctx context.Context) ([]T, error)

	// Save replaces the whole collection
	Save(ctx context.Context, records []T) error

	// Update runs load, fn, save while holding the collection lock
	Update(ctx context.Context, fn func([]T) ([]T, error)) error

	// Name returns the collection name
	Name() string
}
