// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
// Components never read configuration ambiently; the relevant slice is
// passed into each constructor at startup.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Uploader UploaderConfig `mapstructure:"uploader"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// FeedConfig governs feed retrieval.
type FeedConfig struct {
	BaseURL         string `mapstructure:"base_url"`
	UserAgent       string `mapstructure:"user_agent"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
	DefaultCategory string `mapstructure:"default_category"`
}

// StorageConfig selects and parameterizes the blob store backend.
type StorageConfig struct {
	// Provider is one of gcs, local, memory.
	Provider    string      `mapstructure:"provider"`
	Namespace   string      `mapstructure:"namespace"`
	ContentType string      `mapstructure:"content_type"`
	GCS         GCSConfig   `mapstructure:"gcs"`
	Local       LocalConfig `mapstructure:"local"`
}

// GCSConfig holds Google Cloud Storage parameters.
type GCSConfig struct {
	ProjectID string `mapstructure:"project_id"`
}

// LocalConfig holds filesystem blob store parameters.
type LocalConfig struct {
	BaseDir string `mapstructure:"base_dir"`
}

// UploaderConfig bounds the batch upload fan-out.
type UploaderConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// OpenAIConfig parameterizes the abstract simplification client.
type OpenAIConfig struct {
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	MaxTokens      int    `mapstructure:"max_tokens"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// PubSubConfig holds metadata for run-completed notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ARXIV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("feed.base_url", "https://rss.arxiv.org/rss")
	v.SetDefault("feed.user_agent", "arxiv-ingest/1.0")
	v.SetDefault("feed.timeout_seconds", 30)
	v.SetDefault("feed.default_category", "cs")
	v.SetDefault("storage.provider", "memory")
	v.SetDefault("storage.namespace", "arxiv-data")
	v.SetDefault("storage.content_type", "application/json")
	v.SetDefault("storage.local.base_dir", "data/blobs")
	v.SetDefault("uploader.concurrency", 20)
	v.SetDefault("openai.model", "gpt-4")
	v.SetDefault("openai.max_tokens", 1000)
	v.SetDefault("openai.timeout_seconds", 60)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Feed.BaseURL == "" {
		return fmt.Errorf("feed.base_url must be set")
	}
	if c.Feed.TimeoutSeconds <= 0 {
		return fmt.Errorf("feed.timeout_seconds must be > 0")
	}
	if c.Feed.DefaultCategory == "" {
		return fmt.Errorf("feed.default_category must be set")
	}
	if c.Storage.Namespace == "" {
		return fmt.Errorf("storage.namespace must be set")
	}
	if c.Uploader.Concurrency <= 0 {
		return fmt.Errorf("uploader.concurrency must be > 0")
	}
	switch c.Storage.Provider {
	case "gcs":
		if c.Storage.GCS.ProjectID == "" {
			return fmt.Errorf("storage.gcs.project_id must be set when provider is gcs")
		}
	case "local":
		if c.Storage.Local.BaseDir == "" {
			return fmt.Errorf("storage.local.base_dir must be set when provider is local")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage provider: %s", c.Storage.Provider)
	}
	return nil
}

// FeedTimeout converts the feed timeout config into a duration.
func (c Config) FeedTimeout() time.Duration {
	return time.Duration(c.Feed.TimeoutSeconds) * time.Second
}

// OpenAITimeout converts the OpenAI timeout config into a duration.
func (c Config) OpenAITimeout() time.Duration {
	return time.Duration(c.OpenAI.TimeoutSeconds) * time.Second
}
