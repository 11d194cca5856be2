package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ChatClient клиент для OpenAI-совместимых chat completions (OpenRouter, DeepSeek)
type ChatClient struct {
	name       string
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
	headers    map[string]string
}

// NewOpenRouterClient создает клиент OpenRouter
func NewOpenRouterClient(apiKey, siteURL, siteName string, logger *zap.Logger) *ChatClient {
	headers := map[string]string{}
	// Опциональные заголовки для рейтинга на openrouter.ai
	if siteURL != "" {
		headers["HTTP-Referer"] = siteURL
	}
	if siteName != "" {
		headers["X-Title"] = siteName
	}
	return newChatClient("openrouter", "https://openrouter.ai/api/v1", apiKey, headers, logger)
}

// NewDeepSeekClient создает клиент DeepSeek
func NewDeepSeekClient(apiKey, baseURL string, logger *zap.Logger) *ChatClient {
	if baseURL == "" {
		baseURL = "https://api.deepseek.com/v1"
	}
	return newChatClient("deepseek", baseURL, apiKey, nil, logger)
}

func newChatClient(name, baseURL, apiKey string, headers map[string]string, logger *zap.Logger) *ChatClient {
	return &ChatClient{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		headers: headers,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logger,
	}
}

type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream"`
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
	Usage   Usage        `json:"usage"`
}

type ChatChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Generate отправляет промпт как единственное сообщение пользователя
func (c *ChatClient) Generate(ctx context.Context, model, prompt string, options GenerationOptions) (*Response, error) {
	request := ChatRequest{
		Model:    model,
		Messages: []ChatMessage{{Role: "user", Content: prompt}},
		Stream:   false,
	}

	// Добавляем опциональные параметры
	if options.Temperature > 0 {
		request.Temperature = &options.Temperature
	}
	if options.MaxTokens > 0 {
		request.MaxTokens = &options.MaxTokens
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации запроса: %w", err)
	}

	c.logger.Debug("отправляем запрос к chat completions",
		zap.String("provider", c.name),
		zap.String("model", model),
		zap.Any("options", options))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("ошибка создания HTTP запроса: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка отправки запроса к %s: %w", c.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("ошибка API chat completions",
			zap.String("provider", c.name),
			zap.Int("status_code", resp.StatusCode),
			zap.String("response_body", string(body)))

		message := string(body)
		var apiErr chatError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			message = apiErr.Error.Message
		}
		return nil, &APIError{Provider: c.name, StatusCode: resp.StatusCode, Message: message}
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}

	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("%w: пустой список choices от %s", ErrUnexpectedResponse, c.name)
	}

	content := chatResp.Choices[0].Message.Content

	c.logger.Info("получен ответ chat completions",
		zap.String("provider", c.name),
		zap.String("model", chatResp.Model),
		zap.Int("total_tokens", chatResp.Usage.TotalTokens),
		zap.Duration("duration", time.Since(start)),
		zap.Int("content_length", len(content)))

	return &Response{
		Content:  content,
		Model:    model,
		Usage:    chatResp.Usage,
		Provider: c.name,
	}, nil
}

func (c *ChatClient) GetName() string {
	return c.name
}
