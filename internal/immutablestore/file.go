package immutablestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/twinfoundation/auditable-item-stream/internal/ids"
)

// ErrNotFound is returned by Get when no blob is stored under the
// requested id. Remove treats a missing blob as success.
var ErrNotFound = errors.New("immutablestore: not found")

// FileStore is a directory-backed Store for development and testing,
// the same role FileStore plays for audit events.
type FileStore struct {
	dir string
}

// NewFileStore returns a FileStore rooted at dir, creating it if
// necessary.
func NewFileStore(dir string) *FileStore {
	_ = os.MkdirAll(dir, 0o755)
	return &FileStore{dir: dir}
}

func (f *FileStore) path(id string) string {
	return filepath.Join(f.dir, id+".jwt")
}

// Put implements Store.
func (f *FileStore) Put(_ context.Context, blob []byte) (string, error) {
	id, err := ids.New()
	if err != nil {
		return "", fmt.Errorf("immutablestore: generate id: %w", err)
	}
	if err := os.WriteFile(f.path(id), blob, 0o644); err != nil {
		return "", fmt.Errorf("immutablestore: write blob: %w", err)
	}
	return id, nil
}

// Get implements Store.
func (f *FileStore) Get(_ context.Context, id string) ([]byte, error) {
	b, err := os.ReadFile(f.path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("immutablestore: read blob: %w", err)
	}
	return b, nil
}

// Remove implements Store.
func (f *FileStore) Remove(_ context.Context, id string) error {
	err := os.Remove(f.path(id))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("immutablestore: remove blob: %w", err)
	}
	return nil
}
