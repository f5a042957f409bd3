// Package gcs provides a Store backed by Google Cloud Storage, with a
// bucket per namespace.
package gcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	gstorage "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	"github.com/paperwire/arxiv-ingest/internal/storage"
)

// Config captures the parameters required to connect to GCS.
type Config struct {
	// ProjectID owns buckets created on first use.
	ProjectID string `mapstructure:"project_id"`
	// ContentType is applied to written objects.
	ContentType string `mapstructure:"content_type"`
}

// BlobStore persists artifacts in GCS buckets and returns gs:// URIs.
type BlobStore struct {
	client *gstorage.Client
	cfg    Config
}

// New creates a GCS-backed blob store.
func New(client *gstorage.Client, cfg Config) (*BlobStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("project id is required")
	}
	if cfg.ContentType == "" {
		cfg.ContentType = "application/json"
	}
	return &BlobStore{client: client, cfg: cfg}, nil
}

// Put uploads data to the namespace bucket, creating the bucket once
// if the write reports it missing, and returns a gs:// URI. Writes
// replace any existing object at the key.
func (s *BlobStore) Put(ctx context.Context, namespace, key string, data []byte) (string, error) {
	if strings.TrimSpace(namespace) == "" || strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("namespace and key are required")
	}

	err := s.write(ctx, namespace, key, data)
	if err == nil {
		return objectURI(namespace, key), nil
	}
	if !isBucketMissing(err) {
		if isUnavailable(err) {
			return "", fmt.Errorf("put %s/%s: %w: %v", namespace, key, storage.ErrStorageUnavailable, err)
		}
		return "", err
	}

	if err := s.createNamespace(ctx, namespace); err != nil {
		return "", err
	}
	// Single retry after repairing the namespace; failures past this
	// point surface to the caller.
	if err := s.write(ctx, namespace, key, data); err != nil {
		return "", err
	}
	return objectURI(namespace, key), nil
}

// Get downloads an object from the namespace bucket.
func (s *BlobStore) Get(ctx context.Context, namespace, key string) ([]byte, error) {
	r, err := s.client.Bucket(namespace).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gstorage.ErrObjectNotExist) || errors.Is(err, gstorage.ErrBucketNotExist) {
			return nil, fmt.Errorf("open object %s/%s: %w", namespace, key, storage.ErrObjectNotFound)
		}
		if isUnavailable(err) {
			return nil, fmt.Errorf("open object %s/%s: %w: %v", namespace, key, storage.ErrStorageUnavailable, err)
		}
		return nil, fmt.Errorf("open object %s/%s: %w", namespace, key, err)
	}
	defer func() { _ = r.Close() }()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read object %s/%s: %w", namespace, key, err)
	}
	return data, nil
}

func (s *BlobStore) write(ctx context.Context, namespace, key string, data []byte) error {
	w := s.client.Bucket(namespace).Object(key).NewWriter(ctx)
	w.ContentType = s.cfg.ContentType
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		closeErr := w.Close()
		if closeErr != nil {
			return fmt.Errorf("copy object %s/%s: %w (close writer: %v)", namespace, key, err, closeErr)
		}
		return fmt.Errorf("copy object %s/%s: %w", namespace, key, err)
	}
	// Close finalizes the upload; bucket-missing errors surface here.
	if err := w.Close(); err != nil {
		return fmt.Errorf("close writer %s/%s: %w", namespace, key, err)
	}
	return nil
}

func (s *BlobStore) createNamespace(ctx context.Context, namespace string) error {
	err := s.client.Bucket(namespace).Create(ctx, s.cfg.ProjectID, nil)
	if err == nil || isAlreadyExists(err) {
		// A concurrent caller creating the bucket first is fine.
		return nil
	}
	return fmt.Errorf("create namespace %q: %w: %v", namespace, storage.ErrNamespaceMissing, err)
}

func objectURI(namespace, key string) string {
	return fmt.Sprintf("gs://%s/%s", namespace, key)
}

func isBucketMissing(err error) bool {
	if errors.Is(err, gstorage.ErrBucketNotExist) {
		return true
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusNotFound
	}
	return false
}

func isAlreadyExists(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusConflict
	}
	return false
}

// isUnavailable treats 5xx responses as a backend outage so callers
// can distinguish them from request-level failures.
func isUnavailable(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code >= http.StatusInternalServerError
	}
	return false
}
