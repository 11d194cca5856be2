package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestChatClient_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer or_key", r.Header.Get("Authorization"))
		assert.Equal(t, "EchoVerse", r.Header.Get("X-Title"))

		var req ChatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "vendor/model:free", req.Model)
		if assert.Len(t, req.Messages, 1) {
			assert.Equal(t, "user", req.Messages[0].Role)
			assert.Equal(t, "rewrite me", req.Messages[0].Content)
		}
		if assert.NotNil(t, req.MaxTokens) {
			assert.Equal(t, 400, *req.MaxTokens)
		}
		if assert.NotNil(t, req.Temperature) {
			assert.InDelta(t, 0.3, *req.Temperature, 1e-9)
		}

		_, _ = w.Write([]byte(`{"model":"vendor/model:free","choices":[{"message":{"role":"assistant","content":"done"}}],"usage":{"total_tokens":12}}`))
	}))
	defer server.Close()

	client := NewOpenRouterClient("or_key", "https://echoverse.app", "EchoVerse", zap.NewNop())
	client.baseURL = server.URL

	resp, err := client.Generate(context.Background(), "vendor/model:free", "rewrite me", GenerationOptions{MaxTokens: 400, Temperature: 0.3})
	require.NoError(t, err)
	assert.Equal(t, "done", resp.Content)
	assert.Equal(t, "openrouter", resp.Provider)
	assert.Equal(t, 12, resp.Usage.TotalTokens)
}

func TestChatClient_GenerateErrors(t *testing.T) {
	status := http.StatusTooManyRequests
	body := `{"error":{"message":"rate limited"}}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	client := NewDeepSeekClient("ds_key", server.URL, zap.NewNop())

	_, err := client.Generate(context.Background(), "deepseek-chat", "p", GenerationOptions{})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "rate limited", apiErr.Message)
	assert.Equal(t, "deepseek", apiErr.Provider)

	status = http.StatusOK
	body = `{"choices":[]}`
	_, err = client.Generate(context.Background(), "deepseek-chat", "p", GenerationOptions{})
	assert.ErrorIs(t, err, ErrUnexpectedResponse)
}

func TestNewGenerators(t *testing.T) {
	logger := zap.NewNop()

	generators := NewGenerators(&AIConfig{HuggingFace: HuggingFaceConfig{APIKey: "hf"}}, logger)
	assert.Len(t, generators, 1)
	assert.Contains(t, generators, "huggingface")

	generators = NewGenerators(&AIConfig{
		HuggingFace: HuggingFaceConfig{APIKey: "hf"},
		OpenRouter:  OpenRouterConfig{APIKey: "or"},
		DeepSeek:    DeepSeekConfig{APIKey: "ds"},
	}, logger)
	assert.Len(t, generators, 3)
	assert.Equal(t, "openrouter", generators["openrouter"].GetName())
	assert.Equal(t, "deepseek", generators["deepseek"].GetName())
}
