package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseGeneratedText(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
		wantErr  bool
	}{
		{name: "список записей", body: `[{"generated_text":"hello"}]`, expected: "hello"},
		{name: "первая запись из нескольких", body: `[{"generated_text":"a"},{"generated_text":"b"}]`, expected: "a"},
		{name: "одна запись", body: ` {"generated_text":"single"} `, expected: "single"},
		{name: "пустой текст допустим", body: `{"generated_text":""}`, expected: ""},
		{name: "пустой список", body: `[]`, wantErr: true},
		{name: "запись без поля", body: `[{"summary_text":"x"}]`, wantErr: true},
		{name: "объект без поля", body: `{"error":"loading"}`, wantErr: true},
		{name: "строка", body: `"text"`, wantErr: true},
		{name: "пустое тело", body: ``, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := ParseGeneratedText([]byte(tt.body))
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrUnexpectedResponse))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, text)
		})
	}
}

func TestHuggingFaceClient_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/models/ibm-granite/granite-3b-instruct", r.URL.Path)
		assert.Equal(t, "Bearer hf_secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var payload map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "prompt text", payload["inputs"])
		params, ok := payload["parameters"].(map[string]any)
		assert.True(t, ok)
		assert.Equal(t, float64(400), params["max_new_tokens"])
		assert.Equal(t, 0.7, params["temperature"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"generated_text":"  rewritten  "}]`))
	}))
	defer server.Close()

	client := NewHuggingFaceClient("hf_secret", server.URL+"/models/", zap.NewNop())
	resp, err := client.Generate(context.Background(), "ibm-granite/granite-3b-instruct", "prompt text", GenerationOptions{MaxTokens: 400, Temperature: 0.7})
	require.NoError(t, err)

	assert.Equal(t, "  rewritten  ", resp.Content)
	assert.Equal(t, "ibm-granite/granite-3b-instruct", resp.Model)
	assert.Equal(t, "huggingface", resp.Provider)
}

func TestHuggingFaceClient_GenerateAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"Model is currently loading"}`))
	}))
	defer server.Close()

	client := NewHuggingFaceClient("key", server.URL, zap.NewNop())
	_, err := client.Generate(context.Background(), "some/model", "p", GenerationOptions{})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Equal(t, "Model is currently loading", apiErr.Message)
}

func TestHuggingFaceClient_GenerateTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	client := NewHuggingFaceClient("key", server.URL, zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Generate(ctx, "slow/model", "p", GenerationOptions{})
	assert.Error(t, err)
}

func TestHuggingFaceClient_TextToSpeech(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.JSONEq(t, `{"inputs":"Calm style hello"}`, string(body))
		assert.Equal(t, "/espnet/kan-bayashi_ljspeech_vits", r.URL.Path)

		w.Header().Set("Content-Type", "audio/flac")
		_, _ = w.Write([]byte("fLaC-audio"))
	}))
	defer server.Close()

	client := NewHuggingFaceClient("key", server.URL, zap.NewNop())
	audio, err := client.TextToSpeech(context.Background(), "espnet/kan-bayashi_ljspeech_vits", "Calm style hello")
	require.NoError(t, err)
	assert.Equal(t, []byte("fLaC-audio"), audio)
}

func TestHuggingFaceClient_TextToSpeechEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewHuggingFaceClient("key", server.URL, zap.NewNop())
	_, err := client.TextToSpeech(context.Background(), "m", "text")
	assert.Error(t, err)
}

func TestNewHuggingFaceClientDefaults(t *testing.T) {
	client := NewHuggingFaceClient("key", "", zap.NewNop())
	assert.Equal(t, defaultHuggingFaceURL, client.baseURL)
	assert.NotNil(t, client.httpClient)
	assert.Equal(t, "huggingface", client.GetName())
}
