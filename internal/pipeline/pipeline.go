// Package pipeline sequences the ingestion stages: fetch the feed,
// store the raw document, normalize and batch-upload the articles,
// then compute and store the run summary. Each stage is a plain
// function of explicit inputs; durable checkpointing is left to
// whatever sequencer hosts the service.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/paperwire/arxiv-ingest/internal/ingest"
	"github.com/paperwire/arxiv-ingest/internal/metrics"
	"github.com/paperwire/arxiv-ingest/internal/runstore"
	"github.com/paperwire/arxiv-ingest/internal/storage"
)

// FeedFetcher retrieves the raw feed text for a category.
type FeedFetcher interface {
	Fetch(ctx context.Context, category string) (string, error)
	FeedURL(category string) string
}

// Normalizer maps a raw feed document to article records.
type Normalizer interface {
	Normalize(rawXML string) ([]ingest.ArticleRecord, error)
}

// BatchUploader fans records out to the object store.
type BatchUploader interface {
	Run(
		ctx context.Context,
		records []ingest.ArticleRecord,
		destPrefix string,
		concurrency int,
	) ([]ingest.UploadOutcome, time.Duration)
}

// Config controls pipeline behavior.
type Config struct {
	// Namespace is the object store container for all run artifacts.
	Namespace string
	// Concurrency is the upload fan-out cap handed to the uploader.
	Concurrency int
	// Topic, when set, receives a run-summary notification per
	// completed run.
	Topic string
}

// Pipeline wires the ingestion stages together and tracks run state.
type Pipeline struct {
	fetcher    FeedFetcher
	normalizer Normalizer
	uploader   BatchUploader
	store      storage.Store
	runs       *runstore.Store
	publisher  ingest.Publisher
	idGen      ingest.IDGenerator
	clock      ingest.Clock
	cfg        Config
	logger     *zap.Logger
}

// New constructs a Pipeline. publisher may be nil to disable
// run-completed notifications.
func New(
	fetcher FeedFetcher,
	normalizer Normalizer,
	uploader BatchUploader,
	store storage.Store,
	runs *runstore.Store,
	publisher ingest.Publisher,
	idGen ingest.IDGenerator,
	clock ingest.Clock,
	cfg Config,
	logger *zap.Logger,
) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		fetcher:    fetcher,
		normalizer: normalizer,
		uploader:   uploader,
		store:      store,
		runs:       runs,
		publisher:  publisher,
		idGen:      idGen,
		clock:      clock,
		cfg:        cfg,
		logger:     logger,
	}
}

// DestPrefix derives the per-run object key prefix.
func DestPrefix(category, processDate string) string {
	return fmt.Sprintf("%s/ProcessDate=%s", category, processDate)
}

// Runs exposes the run store for status queries.
func (p *Pipeline) Runs() *runstore.Store {
	return p.runs
}

// Start registers a run and executes it in the background, returning
// the run ID immediately. The run detaches from the caller's context:
// an in-flight batch is allowed to finish cleanly rather than being
// cut off mid-write when the triggering request ends.
func (p *Pipeline) Start(ctx context.Context, input ingest.RunInput) (string, error) {
	runID, err := p.idGen.NewID()
	if err != nil {
		return "", fmt.Errorf("generate run id: %w", err)
	}
	if err := p.runs.Create(ctx, runID, input); err != nil {
		return "", fmt.Errorf("create run: %w", err)
	}

	go p.run(context.Background(), runID, input)
	return runID, nil
}

func (p *Pipeline) run(ctx context.Context, runID string, input ingest.RunInput) {
	logger := p.logger.With(
		zap.String("run_id", runID),
		zap.String("category", input.Category),
		zap.String("process_date", input.ProcessDate),
	)
	if err := p.runs.SetPhase(ctx, runID, ingest.RunRunning); err != nil {
		logger.Error("run phase update failed", zap.Error(err))
		return
	}

	output, err := p.Execute(ctx, input)
	phase := ingest.RunSucceeded
	errText := ""
	if err != nil {
		phase = ingest.RunFailed
		errText = err.Error()
		logger.Error("run failed", zap.Error(err))
	} else {
		logger.Info("run succeeded",
			zap.Int("articles_stored", output.ArticlesStored),
			zap.Int("articles_failed", output.ArticlesFailed),
		)
	}
	metrics.ObserveRun(string(phase))

	if err := p.runs.Finish(ctx, runID, phase, output, errText); err != nil {
		logger.Error("final run status update failed", zap.Error(err))
	}
}

// Execute performs one full ingestion for the given category and
// processing date. It is idempotent for the same input: storage keys
// are derived from category, date, and article identifiers, so a
// re-run overwrites the previous artifacts.
func (p *Pipeline) Execute(ctx context.Context, input ingest.RunInput) (*ingest.RunOutput, error) {
	prefix := DestPrefix(input.Category, input.ProcessDate)

	rawXML, err := p.fetcher.Fetch(ctx, input.Category)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}

	rawLocation, err := p.store.Put(ctx, p.cfg.Namespace, prefix+"/rss_raw.xml", []byte(rawXML))
	if err != nil {
		return nil, fmt.Errorf("store raw feed: %w", err)
	}

	records, err := p.normalizer.Normalize(rawXML)
	if err != nil {
		return nil, fmt.Errorf("normalize feed: %w", err)
	}

	outcomes, elapsed := p.uploader.Run(ctx, records, prefix, p.cfg.Concurrency)
	succeeded, failed := ingest.PartitionOutcomes(outcomes)
	for _, o := range outcomes {
		metrics.ObserveUpload(string(o.Status))
	}
	metrics.ObserveBatchDuration(elapsed)

	summary := ingest.RunSummary{
		Category:      input.Category,
		ProcessDate:   input.ProcessDate,
		TotalArticles: len(succeeded),
		ProcessedAt:   p.clock.Now().UTC().Format(time.RFC3339),
		RSSSource:     p.fetcher.FeedURL(input.Category),
	}
	summaryJSON, err := ingest.EncodeSummary(summary)
	if err != nil {
		return nil, fmt.Errorf("encode summary: %w", err)
	}
	metaLocation, err := p.store.Put(ctx, p.cfg.Namespace, prefix+"/meta.json", summaryJSON)
	if err != nil {
		return nil, fmt.Errorf("store summary: %w", err)
	}

	output := &ingest.RunOutput{
		Status:         "success",
		Message:        fmt.Sprintf("processed %d articles for %s", len(succeeded), input.ProcessDate),
		ArticlesStored: len(succeeded),
		ArticlesFailed: len(failed),
		RawLocation:    rawLocation,
		MetaLocation:   metaLocation,
		ElapsedMs:      elapsed.Milliseconds(),
	}
	p.notify(ctx, summary, metaLocation)
	return output, nil
}

// notify publishes the run summary when a topic is configured.
// Notification failures never fail the run.
func (p *Pipeline) notify(ctx context.Context, summary ingest.RunSummary, metaLocation string) {
	if p.publisher == nil || p.cfg.Topic == "" {
		return
	}
	payload := map[string]any{
		"category":       summary.Category,
		"process_date":   summary.ProcessDate,
		"total_articles": summary.TotalArticles,
		"meta_location":  metaLocation,
	}
	if _, err := p.publisher.Publish(ctx, p.cfg.Topic, payload); err != nil {
		p.logger.Warn("run notification failed", zap.Error(err))
	}
}
