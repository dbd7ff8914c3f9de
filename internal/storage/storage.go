// Package storage persists rendered reports on the local filesystem.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Store writes report files under a base directory.
type Store interface {
	// Save writes data to name atomically and returns the absolute path.
	Save(ctx context.Context, name string, data []byte) (string, error)
	// Exists checks whether a file exists under the base directory.
	Exists(ctx context.Context, name string) (bool, error)
	// Open returns a reader for a stored file.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// Local implements Store on the local filesystem.
type Local struct {
	basePath string
}

// NewLocal creates a local store rooted at basePath, creating it if needed.
func NewLocal(basePath string) (*Local, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve base path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("storage: create base directory: %w", err)
	}
	return &Local{basePath: abs}, nil
}

// BasePath returns the absolute base directory.
func (s *Local) BasePath() string { return s.basePath }

// Save writes the file via a temp file plus rename, so a crash or failed
// write never leaves a partial report behind.
func (s *Local) Save(_ context.Context, name string, data []byte) (string, error) {
	fullPath := filepath.Join(s.basePath, filepath.Clean(name))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return "", fmt.Errorf("storage: create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".report-*")
	if err != nil {
		return "", fmt.Errorf("storage: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("storage: write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("storage: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, fullPath); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("storage: finalize file: %w", err)
	}
	return fullPath, nil
}

// Exists checks whether a file exists under the base directory.
func (s *Local) Exists(_ context.Context, name string) (bool, error) {
	_, err := os.Stat(filepath.Join(s.basePath, filepath.Clean(name)))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("storage: stat file: %w", err)
	}
	return true, nil
}

// Open returns a reader for a stored file.
func (s *Local) Open(_ context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.basePath, filepath.Clean(name)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("storage: file not found: %s", name)
		}
		return nil, fmt.Errorf("storage: open file: %w", err)
	}
	return f, nil
}
