// Package cmd defines and implements the CLI commands for the
// arxivingest executable.
package cmd

import (
	"context"
	"fmt"
	"os"

	gpubsub "cloud.google.com/go/pubsub"
	gstorage "cloud.google.com/go/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/paperwire/arxiv-ingest/internal/clock/system"
	"github.com/paperwire/arxiv-ingest/internal/config"
	"github.com/paperwire/arxiv-ingest/internal/fetcher"
	"github.com/paperwire/arxiv-ingest/internal/id/uuid"
	"github.com/paperwire/arxiv-ingest/internal/ingest"
	"github.com/paperwire/arxiv-ingest/internal/logging"
	"github.com/paperwire/arxiv-ingest/internal/normalizer"
	"github.com/paperwire/arxiv-ingest/internal/pipeline"
	pubsubpublisher "github.com/paperwire/arxiv-ingest/internal/publisher/pubsub"
	"github.com/paperwire/arxiv-ingest/internal/runstore"
	"github.com/paperwire/arxiv-ingest/internal/simplify"
	"github.com/paperwire/arxiv-ingest/internal/storage"
	gcsstorage "github.com/paperwire/arxiv-ingest/internal/storage/gcs"
	localstorage "github.com/paperwire/arxiv-ingest/internal/storage/local"
	memorystorage "github.com/paperwire/arxiv-ingest/internal/storage/memory"
	"github.com/paperwire/arxiv-ingest/internal/uploader"
)

var cfgFile string

// app bundles the services shared by the subcommands.
type app struct {
	cfg        config.Config
	logger     *zap.Logger
	store      storage.Store
	pipeline   *pipeline.Pipeline
	simplifier ingest.Simplifier

	pubsubClient *gpubsub.Client
}

// newApp builds the application service graph from configuration. It
// is a variable so tests can replace it with a fake factory.
var newApp = buildApp

func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	zap.ReplaceGlobals(logger)

	a := &app{cfg: cfg, logger: logger}

	a.store, err = buildStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	var publisher ingest.Publisher
	if cfg.PubSub.Topic != "" && cfg.PubSub.ProjectID != "" {
		a.pubsubClient, err = gpubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("init pubsub: %w", err)
		}
		publisher, err = pubsubpublisher.New(a.pubsubClient)
		if err != nil {
			return nil, fmt.Errorf("init publisher: %w", err)
		}
		logger.Info("run notifications enabled", zap.String("topic", cfg.PubSub.Topic))
	}

	a.simplifier = simplify.Disabled{}
	if cfg.OpenAI.APIKey != "" {
		a.simplifier, err = simplify.New(simplify.Config{
			APIKey:    cfg.OpenAI.APIKey,
			Model:     cfg.OpenAI.Model,
			MaxTokens: cfg.OpenAI.MaxTokens,
			Timeout:   cfg.OpenAITimeout(),
		}, logger.Named("simplify"))
		if err != nil {
			return nil, fmt.Errorf("init simplifier: %w", err)
		}
	} else {
		logger.Warn("openai api key not set; abstract simplification disabled")
	}

	clock := system.New()
	a.pipeline = pipeline.New(
		fetcher.New(fetcher.Config{
			BaseURL:   cfg.Feed.BaseURL,
			UserAgent: cfg.Feed.UserAgent,
			Timeout:   cfg.FeedTimeout(),
		}, logger.Named("fetcher")),
		normalizer.New(logger.Named("normalizer")),
		uploader.New(a.store, uploader.Config{
			Namespace:   cfg.Storage.Namespace,
			Concurrency: cfg.Uploader.Concurrency,
		}, logger.Named("uploader")),
		a.store,
		runstore.New(clock),
		publisher,
		uuid.New(),
		clock,
		pipeline.Config{
			Namespace:   cfg.Storage.Namespace,
			Concurrency: cfg.Uploader.Concurrency,
			Topic:       cfg.PubSub.Topic,
		},
		logger.Named("pipeline"),
	)
	return a, nil
}

func (a *app) Close() {
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.logger.Warn("pubsub client close failed", zap.Error(err))
		}
	}
	if err := a.logger.Sync(); err != nil {
		fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", err)
	}
}

func buildStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	switch cfg.Storage.Provider {
	case "gcs":
		client, err := gstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create gcs client: %w", err)
		}
		return gcsstorage.New(client, gcsstorage.Config{
			ProjectID:   cfg.Storage.GCS.ProjectID,
			ContentType: cfg.Storage.ContentType,
		})
	case "local":
		return localstorage.New(localstorage.Config{BaseDir: cfg.Storage.Local.BaseDir})
	case "memory":
		return memorystorage.NewBlobStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage provider: %s", cfg.Storage.Provider)
	}
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "arxivingest",
		Short: "Daily arXiv RSS ingestion service.",
		Long: `arxivingest fetches arXiv category feeds, stores the raw documents,
and fans the parsed articles out to object storage under a bounded
concurrency cap. It runs either as an HTTP service (serve) or as a
one-shot batch (ingest).`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional; environment variables apply either way)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newIngestCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
