// Package local implements a filesystem-backed blob store for running
// the service without cloud credentials. A namespace maps to a
// directory under the configured base directory.
package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paperwire/arxiv-ingest/internal/storage"
)

// Config captures the parameters for the local blob store.
type Config struct {
	// BaseDir is the root directory where namespaces are created.
	BaseDir string `mapstructure:"base_dir"`
}

// BlobStore writes artifacts to the local filesystem.
type BlobStore struct {
	baseDir string
}

// New creates a filesystem-backed blob store rooted at cfg.BaseDir.
func New(cfg Config) (*BlobStore, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	if err := os.MkdirAll(cfg.BaseDir, 0o750); err != nil {
		return nil, fmt.Errorf("create base directory: %w", err)
	}
	return &BlobStore{baseDir: cfg.BaseDir}, nil
}

// Put writes data to baseDir/namespace/key, creating directories as
// needed, and returns a file:// URI.
func (s *BlobStore) Put(_ context.Context, namespace, key string, data []byte) (string, error) {
	fullPath, err := s.resolve(namespace, key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return "", fmt.Errorf("create parent directories: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o600); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return fmt.Sprintf("file://%s", fullPath), nil
}

// Get reads the object content back from disk.
func (s *BlobStore) Get(_ context.Context, namespace, key string) ([]byte, error) {
	fullPath, err := s.resolve(namespace, key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("get %s/%s: %w", namespace, key, storage.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("read file: %w", err)
	}
	return data, nil
}

func (s *BlobStore) resolve(namespace, key string) (string, error) {
	if strings.TrimSpace(namespace) == "" || strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("namespace and key are required")
	}
	fullPath := filepath.Join(s.baseDir, namespace, key)

	// Reject keys that escape the base directory.
	cleanBase := filepath.Clean(s.baseDir)
	if !strings.HasPrefix(filepath.Clean(fullPath), cleanBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected")
	}
	return fullPath, nil
}
