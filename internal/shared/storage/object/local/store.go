package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"pdfsearch/internal/shared/storage/object"
)

// Store implements ObjectStore over the archive's files directory.
type Store struct {
	baseDir string
}

// New creates a new local object store rooted at baseDir.
func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// Open opens a stored object for reading.
func (s *Store) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	fullPath, err := s.resolve(ctx, storageKey)
	if err != nil {
		return nil, err
	}
	return os.Open(fullPath)
}

// Localize returns the absolute on-disk path of the object; nothing is copied.
func (s *Store) Localize(ctx context.Context, storageKey string) (string, func(), error) {
	fullPath, err := s.resolve(ctx, storageKey)
	if err != nil {
		return "", nil, err
	}
	if _, err := os.Stat(fullPath); err != nil {
		return "", nil, err
	}
	return fullPath, func() {}, nil
}

func (s *Store) resolve(ctx context.Context, storageKey string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	clean := filepath.Clean(storageKey)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid storage key %q", storageKey)
	}

	fullPath, err := filepath.Abs(filepath.Join(s.baseDir, clean))
	if err != nil {
		return "", fmt.Errorf("resolve storage key: %w", err)
	}
	return fullPath, nil
}

var _ object.ObjectStore = (*Store)(nil)
