// Package simplify rewrites academic abstracts into plain language
// using the OpenAI chat completion API.
package simplify

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// systemPrompt instructs the model to simplify academic text while
// preserving findings, without any preamble in the output.
const systemPrompt = `You are an assistant that rewrites academic abstracts in simple, clear language that anyone can understand.

Guidelines:
- Use plain words instead of technical jargon
- Keep the main ideas and findings intact
- Aim for a reading level an undergraduate student would understand
- The answer contains only the rewritten text, with no greeting or preamble`

const userPromptTemplate = `Rewrite the following academic description in easy-to-understand language while preserving the key information and findings:

%s`

// Config controls the OpenAI client behavior.
type Config struct {
	// APIKey authenticates against the OpenAI API.
	APIKey string
	// BaseURL overrides the API endpoint; used by tests.
	BaseURL string
	// Model is the chat model identifier.
	Model string
	// MaxTokens bounds the response length.
	MaxTokens int
	// Timeout bounds a single completion call.
	Timeout time.Duration
}

// Client implements ingest.Simplifier against the OpenAI API.
type Client struct {
	api    *openai.Client
	cfg    Config
	logger *zap.Logger
}

// New constructs a Client.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	return &Client{
		api:    openai.NewClientWithConfig(apiCfg),
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Simplify sends the description through the chat completion API and
// returns the rewritten text. Empty model output is an error: the
// caller treats any failure here as a single 500-class response, with
// no retry.
func (c *Client) Simplify(ctx context.Context, description string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.cfg.Model,
		MaxTokens: c.cfg.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(userPromptTemplate, description)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	simplified := strings.TrimSpace(resp.Choices[0].Message.Content)
	if simplified == "" {
		return "", fmt.Errorf("chat completion returned empty content")
	}

	c.logger.Debug("description simplified",
		zap.Int("original_length", len(description)),
		zap.Int("simplified_length", len(simplified)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return simplified, nil
}
