package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bobmcallan/tickerwatch/internal/common"
	"github.com/bobmcallan/tickerwatch/internal/interfaces"
	"github.com/bobmcallan/tickerwatch/internal/storage/badger"
	"github.com/bobmcallan/tickerwatch/internal/storage/surrealdb"
)

// Backend type constants.
const (
	BackendFile      = "file"
	BackendBadger    = "badger"
	BackendSurrealDB = "surrealdb"
	BackendMemory    = "memory"
)

// NewBlobStore creates the blob backend named by config.Backend.
// Supported backends: "file" (default), "badger", "surrealdb", "memory".
func NewBlobStore(ctx context.Context, logger *common.Logger, config *common.StorageConfig) (interfaces.BlobStore, error) {
	backend := strings.ToLower(config.Backend)
	if backend == "" {
		backend = BackendFile
	}

	switch backend {
	case BackendFile:
		return NewFileStore(logger, config.Path, config.Versions)

	case BackendBadger:
		return badger.NewStore(logger, filepath.Join(config.Path, "badger"))

	case BackendSurrealDB:
		return surrealdb.NewStore(ctx, logger, surrealdb.Config{
			Address:   config.Address,
			Namespace: config.Namespace,
			Database:  config.Database,
			Username:  config.Username,
			Password:  config.Password,
		})

	case BackendMemory:
		return NewMemoryStore(), nil

	default:
		return nil, fmt.Errorf("unknown storage backend: %s (supported: file, badger, surrealdb, memory)", backend)
	}
}
