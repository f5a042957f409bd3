// Package fetcher retrieves raw RSS documents from the arXiv API.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Config controls feed retrieval.
type Config struct {
	// BaseURL is the feed root, e.g. https://rss.arxiv.org/rss.
	BaseURL string
	// UserAgent is sent with every request.
	UserAgent string
	// Timeout bounds a single fetch.
	Timeout time.Duration
}

// Fetcher performs the HTTP GET of a category feed.
type Fetcher struct {
	client *http.Client
	cfg    Config
	logger *zap.Logger
}

// New constructs a Fetcher with its own HTTP client.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Fetcher{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		logger: logger,
	}
}

// FeedURL returns the feed address for a category.
func (f *Fetcher) FeedURL(category string) string {
	return fmt.Sprintf("%s/%s", strings.TrimRight(f.cfg.BaseURL, "/"), category)
}

// Fetch downloads the raw feed text for a category. Transport errors
// and non-2xx statuses are returned to the caller; the batch never
// starts on a failed fetch.
func (f *Fetcher) Fetch(ctx context.Context, category string) (string, error) {
	url := f.FeedURL(category)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build feed request: %w", err)
	}
	if f.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.cfg.UserAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch feed %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("fetch feed %s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read feed body: %w", err)
	}
	f.logger.Debug("feed fetched",
		zap.String("url", url),
		zap.Int("bytes", len(body)),
	)
	return string(body), nil
}
