// Package surrealdb provides a SurrealDB-backed blob store for collections.
package surrealdb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bobmcallan/tickerwatch/internal/common"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

const table = "collection"

// Config holds connection settings
type Config struct {
	Address   string
	Namespace string
	Database  string
	Username  string
	Password  string
}

// collectionRecord is one collection blob. Data holds the JSON text.
type collectionRecord struct {
	Name      string    `json:"name"`
	Data      string    `json:"data"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store implements interfaces.BlobStore on a SurrealDB table.
type Store struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewStore connects, signs in and selects the namespace and database.
func NewStore(ctx context.Context, logger *common.Logger, config Config) (*Store, error) {
	if config.Address == "" {
		return nil, fmt.Errorf("surrealdb address is required")
	}

	db, err := surrealdb.New(config.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if config.Username != "" {
		if _, err := db.SignIn(ctx, map[string]interface{}{
			"user": config.Username,
			"pass": config.Password,
		}); err != nil {
			db.Close(ctx)
			return nil, fmt.Errorf("failed to sign in to SurrealDB: %w", err)
		}
	}

	if err := db.Use(ctx, config.Namespace, config.Database); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to select namespace/database: %w", err)
	}

	// SurrealDB v3 errors on querying non-existent tables
	sql := fmt.Sprintf("DEFINE TABLE IF NOT EXISTS %s SCHEMALESS", table)
	if _, err := surrealdb.Query[any](ctx, db, sql, nil); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to define table %s: %w", table, err)
	}

	logger.Debug().Str("address", config.Address).Str("namespace", config.Namespace).
		Str("database", config.Database).Msg("SurrealDB store opened")

	return NewStoreWithDB(db, logger), nil
}

// NewStoreWithDB wraps an already connected database.
func NewStoreWithDB(db *surrealdb.DB, logger *common.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Read returns the blob for name, or nil when no record exists.
func (s *Store) Read(ctx context.Context, name string) ([]byte, error) {
	record, err := surrealdb.Select[collectionRecord](ctx, s.db, surrealmodels.NewRecordID(table, name))
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to select collection %s: %w", name, err)
	}
	if record == nil {
		return nil, nil
	}
	return []byte(record.Data), nil
}

// Write upserts the blob for name, retrying transient failures.
func (s *Store) Write(ctx context.Context, name string, data []byte) error {
	record := collectionRecord{Name: name, Data: string(data), UpdatedAt: time.Now().UTC()}
	sql := "UPSERT $rid CONTENT $record"
	vars := map[string]any{"rid": surrealmodels.NewRecordID(table, name), "record": record}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		_, err := surrealdb.Query[[]collectionRecord](ctx, s.db, sql, vars)
		if err == nil {
			return nil
		}
		lastErr = err
		s.logger.Debug().Err(err).Int("attempt", attempt).Str("collection", name).Msg("SurrealDB upsert failed")
	}
	return fmt.Errorf("failed to upsert collection %s after retries: %w", name, lastErr)
}

// Close closes the connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close(context.Background())
	}
	return nil
}

func isNotFoundError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "does not exist")
}
