// Package uploader implements the bounded-concurrency batch upload of
// article records to the object store.
package uploader

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/paperwire/arxiv-ingest/internal/ingest"
	"github.com/paperwire/arxiv-ingest/internal/storage"
)

// Config controls Uploader behavior.
type Config struct {
	// Namespace is the object store container all records land in.
	Namespace string
	// Concurrency caps in-flight uploads when Run is called with a
	// non-positive limit.
	Concurrency int
}

// Uploader fans a batch of records out to the object store under a
// concurrency cap and collects one outcome per record.
type Uploader struct {
	store  storage.Store
	cfg    Config
	logger *zap.Logger
}

// New constructs an Uploader.
func New(store storage.Store, cfg Config, logger *zap.Logger) *Uploader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Uploader{store: store, cfg: cfg, logger: logger}
}

// ObjectKey derives the storage key for a record identifier under the
// destination prefix. The derivation is deterministic so re-running
// the same processing date overwrites rather than duplicates.
func ObjectKey(destPrefix, identifier string) string {
	return fmt.Sprintf("%s/articles/%s.json", strings.Trim(destPrefix, "/"), identifier)
}

// Run uploads every record under destPrefix with at most concurrency
// uploads in flight, and returns exactly one outcome per record plus
// the wall-clock duration of the whole fan-out. A failure on one
// record never aborts the batch: it is captured as an error outcome
// and the remaining records proceed. Output order matches input order.
func (u *Uploader) Run(
	ctx context.Context,
	records []ingest.ArticleRecord,
	destPrefix string,
	concurrency int,
) ([]ingest.UploadOutcome, time.Duration) {
	if concurrency < 1 {
		concurrency = u.cfg.Concurrency
	}

	start := time.Now()
	outcomes := make([]ingest.UploadOutcome, len(records))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, rec := range records {
		wg.Add(1)
		go func(i int, rec ingest.ArticleRecord) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			// Each goroutine owns its slot in the outcome slice, so no
			// further coordination is needed on the result collection.
			outcomes[i] = u.uploadOne(ctx, rec, destPrefix)
		}(i, rec)
	}
	wg.Wait()
	elapsed := time.Since(start)

	succeeded, failed := ingest.PartitionOutcomes(outcomes)
	if len(failed) > 0 {
		u.logger.Warn("batch upload finished with failures",
			zap.Int("succeeded", len(succeeded)),
			zap.Int("failed", len(failed)),
			zap.Duration("elapsed", elapsed),
		)
	} else {
		u.logger.Info("batch upload finished",
			zap.Int("succeeded", len(succeeded)),
			zap.Duration("elapsed", elapsed),
		)
	}
	return outcomes, elapsed
}

func (u *Uploader) uploadOne(
	ctx context.Context,
	rec ingest.ArticleRecord,
	destPrefix string,
) (outcome ingest.UploadOutcome) {
	identifier := rec.Identifier
	if identifier == "" {
		identifier = "unknown"
	}
	defer func() {
		// A defect while building or writing one record must not take
		// the batch down; it becomes that record's error outcome.
		if r := recover(); r != nil {
			u.logger.Error("upload panicked",
				zap.String("identifier", identifier),
				zap.Any("panic", r),
			)
			outcome = ingest.UploadOutcome{
				Identifier:  identifier,
				Status:      ingest.OutcomeError,
				ErrorDetail: fmt.Sprintf("panic: %v", r),
			}
		}
	}()

	data, err := ingest.EncodeRecord(rec)
	if err != nil {
		return ingest.UploadOutcome{
			Identifier:  identifier,
			Status:      ingest.OutcomeError,
			ErrorDetail: err.Error(),
		}
	}

	location, err := u.store.Put(ctx, u.cfg.Namespace, ObjectKey(destPrefix, identifier), data)
	if err != nil {
		u.logger.Error("record upload failed",
			zap.String("identifier", identifier),
			zap.Error(err),
		)
		return ingest.UploadOutcome{
			Identifier:  identifier,
			Status:      ingest.OutcomeError,
			ErrorDetail: err.Error(),
		}
	}

	u.logger.Debug("record uploaded",
		zap.String("identifier", identifier),
		zap.String("location", location),
	)
	return ingest.UploadOutcome{
		Identifier: identifier,
		Status:     ingest.OutcomeSuccess,
		Location:   location,
	}
}
