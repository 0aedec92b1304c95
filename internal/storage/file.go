// Package storage provides collection persistence over pluggable blob backends.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bobmcallan/tickerwatch/internal/common"
)

// FileStore keeps one JSON file per collection under basePath with
// optional rotated backups.
type FileStore struct {
	basePath string
	versions int
	logger   *common.Logger
}

// NewFileStore creates a FileStore and ensures basePath exists.
func NewFileStore(logger *common.Logger, basePath string, versions int) (*FileStore, error) {
	if basePath == "" {
		return nil, fmt.Errorf("file store path is required")
	}
	if versions < 0 {
		versions = 0
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", basePath, err)
	}

	logger.Debug().Str("path", basePath).Int("versions", versions).Msg("FileStore opened")
	return &FileStore{basePath: basePath, versions: versions, logger: logger}, nil
}

// sanitizeKey makes a name safe for use as a filename.
// Replaces /, \, : with _ and collapses ".." to "_" to prevent path traversal.
func sanitizeKey(key string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "..", "_")
	return r.Replace(key)
}

func (fs *FileStore) filePath(name string) string {
	return filepath.Join(fs.basePath, sanitizeKey(name)+".json")
}

// Read returns the stored bytes for name, or nil when the file does not exist.
func (fs *FileStore) Read(_ context.Context, name string) ([]byte, error) {
	path := fs.filePath(name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// Write replaces the file for name atomically via temp file and rename.
func (fs *FileStore) Write(_ context.Context, name string, data []byte) error {
	target := fs.filePath(name)

	tmpFile, err := os.CreateTemp(fs.basePath, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if fs.versions > 0 {
		fs.rotateVersions(target)
	}

	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// rotateVersions shifts existing backups up and moves current to v1.
// v{N} -> deleted, v{N-1} -> v{N}, ..., v1 -> v2, current -> v1
func (fs *FileStore) rotateVersions(target string) {
	os.Remove(fmt.Sprintf("%s.v%d", target, fs.versions))

	for i := fs.versions; i > 1; i-- {
		src := fmt.Sprintf("%s.v%d", target, i-1)
		dst := fmt.Sprintf("%s.v%d", target, i)
		os.Rename(src, dst) // may not exist yet
	}

	if _, err := os.Stat(target); err == nil {
		os.Rename(target, target+".v1")
	}
}

// Close is a no-op for the file backend.
func (fs *FileStore) Close() error {
	return nil
}
