package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStorage persists objects on disk under a base directory.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir}, nil
}

// SaveStream copies from reader into the object path and returns the written size.
func (s *LocalStorage) SaveStream(key string, r io.Reader) (int64, error) {
	path, err := s.resolve(key)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("prepare object directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create object file: %w", err)
	}
	defer file.Close() //nolint:errcheck
	n, err := io.Copy(file, r)
	if err != nil {
		return n, fmt.Errorf("write object stream: %w", err)
	}
	return n, nil
}

// Open returns a read-only handle for the stored object.
func (s *LocalStorage) Open(key string) (*os.File, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open object file: %w", err)
	}
	return file, nil
}

// Delete removes a stored object if present.
func (s *LocalStorage) Delete(key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete object file: %w", err)
	}
	return nil
}

func (s *LocalStorage) resolve(key string) (string, error) {
	cleaned, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.baseDir, filepath.FromSlash(cleaned)), nil
}
