package ai

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnexpectedResponse возвращается, когда ответ модели не содержит сгенерированного текста
var ErrUnexpectedResponse = errors.New("неожиданный формат ответа модели")

// Response представляет ответ от модели
type Response struct {
	Content  string `json:"content"`
	Model    string `json:"model"`
	Usage    Usage  `json:"usage"`
	Provider string `json:"provider"`
}

// Usage представляет статистику использования токенов
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// GenerationOptions опции для генерации ответа
type GenerationOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

// TextGenerator интерфейс для провайдеров генерации текста
type TextGenerator interface {
	// Generate отправляет промпт указанной модели
	Generate(ctx context.Context, model, prompt string, options GenerationOptions) (*Response, error)

	// GetName возвращает название провайдера
	GetName() string
}

// APIError описывает ответ провайдера с не-2xx статусом
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ошибка API %s (статус %d): %s", e.Provider, e.StatusCode, e.Message)
}

// AIConfig содержит конфигурацию для AI клиентов
type AIConfig struct {
	HuggingFace HuggingFaceConfig
	OpenRouter  OpenRouterConfig
	DeepSeek    DeepSeekConfig
}

// HuggingFaceConfig конфигурация Hugging Face Inference API
type HuggingFaceConfig struct {
	APIKey  string
	BaseURL string
}

// OpenRouterConfig конфигурация OpenRouter
type OpenRouterConfig struct {
	APIKey   string
	SiteURL  string
	SiteName string
}

// DeepSeekConfig конфигурация DeepSeek
type DeepSeekConfig struct {
	APIKey  string
	BaseURL string
}
