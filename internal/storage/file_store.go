package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore writes artifacts into a local directory.
type FileStore struct {
	Dir string
}

func NewFileStore(dir string) *FileStore {
	if dir == "" {
		dir = "."
	}
	return &FileStore{Dir: dir}
}

// Save writes data to {dir}/{name}, replacing any existing file, and returns the path.
func (fs *FileStore) Save(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(fs.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", fs.Dir, err)
	}
	p := filepath.Join(fs.Dir, filepath.Base(name))
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", p, err)
	}
	return p, nil
}
