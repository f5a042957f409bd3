package simplify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newFakeOpenAI(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/chat/completions")
		assert.Contains(t, r.Header.Get("Authorization"), "test-key")

		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
		assert.Equal(t, openai.ChatMessageRoleUser, req.Messages[1].Role)
		assert.Contains(t, req.Messages[1].Content, "quantum entanglement")

		resp := openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{
					Role:    openai.ChatMessageRoleAssistant,
					Content: content,
				}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestClient_Simplify(t *testing.T) {
	server := newFakeOpenAI(t, "  Tiny particles stay linked over distance.  ")
	defer server.Close()

	c, err := New(Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Timeout: time.Second,
	}, zap.NewNop())
	require.NoError(t, err)

	out, err := c.Simplify(context.Background(), "We study quantum entanglement in dimers.")
	require.NoError(t, err)
	assert.Equal(t, "Tiny particles stay linked over distance.", out)
}

func TestClient_Simplify_EmptyContent(t *testing.T) {
	server := newFakeOpenAI(t, "   ")
	defer server.Close()

	c, err := New(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: time.Second}, zap.NewNop())
	require.NoError(t, err)

	_, err = c.Simplify(context.Background(), "We study quantum entanglement in dimers.")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty content")
}

func TestClient_Simplify_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer server.Close()

	c, err := New(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: time.Second}, zap.NewNop())
	require.NoError(t, err)

	_, err = c.Simplify(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestClient_Simplify_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "rate limited", "type": "requests"}}`))
	}))
	defer server.Close()

	c, err := New(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: time.Second}, zap.NewNop())
	require.NoError(t, err)

	_, err = c.Simplify(context.Background(), "anything")
	require.Error(t, err)
}

func TestNew_RequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := New(Config{}, zap.NewNop())
	require.Error(t, err)
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	c, err := New(Config{APIKey: "test-key"}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, openai.GPT4, c.cfg.Model)
	assert.Equal(t, 1000, c.cfg.MaxTokens)
	assert.Equal(t, 60*time.Second, c.cfg.Timeout)
}

func TestDisabled_Simplify(t *testing.T) {
	t.Parallel()

	_, err := Disabled{}.Simplify(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}
