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

const defaultHuggingFaceURL = "https://api-inference.huggingface.co/models"

// HuggingFaceClient клиент для Hugging Face Inference API
type HuggingFaceClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHuggingFaceClient создает новый клиент Hugging Face
func NewHuggingFaceClient(apiKey, baseURL string, logger *zap.Logger) *HuggingFaceClient {
	if baseURL == "" {
		baseURL = defaultHuggingFaceURL
	}

	return &HuggingFaceClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			// Верхняя граница, конкретные таймауты задаются контекстом вызывающего
			Timeout: 120 * time.Second,
		},
		logger: logger,
	}
}

// HuggingFaceRequest тело запроса к модели
type HuggingFaceRequest struct {
	Inputs     string                 `json:"inputs"`
	Parameters *HuggingFaceParameters `json:"parameters,omitempty"`
}

// HuggingFaceParameters параметры генерации
type HuggingFaceParameters struct {
	MaxNewTokens int      `json:"max_new_tokens,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty"`
}

// HuggingFaceGeneration одна запись ответа text-generation
type HuggingFaceGeneration struct {
	GeneratedText *string `json:"generated_text"`
}

type huggingFaceError struct {
	Error string `json:"error"`
}

// Generate отправляет промпт в text-generation модель
func (c *HuggingFaceClient) Generate(ctx context.Context, model, prompt string, options GenerationOptions) (*Response, error) {
	request := HuggingFaceRequest{Inputs: prompt}
	if options.MaxTokens > 0 || options.Temperature > 0 {
		request.Parameters = &HuggingFaceParameters{MaxNewTokens: options.MaxTokens}
		if options.Temperature > 0 {
			request.Parameters.Temperature = &options.Temperature
		}
	}

	c.logger.Debug("отправляем запрос к Hugging Face",
		zap.String("model", model),
		zap.Int("prompt_length", len(prompt)),
		zap.Int("max_new_tokens", options.MaxTokens))

	start := time.Now()
	body, err := c.post(ctx, model, request)
	if err != nil {
		return nil, err
	}

	content, err := ParseGeneratedText(body)
	if err != nil {
		return nil, fmt.Errorf("модель %s: %w", model, err)
	}

	c.logger.Info("получен ответ от Hugging Face",
		zap.String("model", model),
		zap.Duration("duration", time.Since(start)),
		zap.Int("content_length", len(content)))

	return &Response{
		Content:  content,
		Model:    model,
		Provider: c.GetName(),
	}, nil
}

// TextToSpeech озвучивает текст указанной моделью и возвращает сырые аудио байты
func (c *HuggingFaceClient) TextToSpeech(ctx context.Context, model, text string) ([]byte, error) {
	c.logger.Debug("отправляем запрос озвучки к Hugging Face",
		zap.String("model", model),
		zap.Int("text_length", len(text)))

	audio, err := c.post(ctx, model, HuggingFaceRequest{Inputs: text})
	if err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("модель %s вернула пустое аудио", model)
	}

	return audio, nil
}

// post выполняет POST {baseURL}/{model} и возвращает тело успешного ответа
func (c *HuggingFaceClient) post(ctx context.Context, model string, payload HuggingFaceRequest) ([]byte, error) {
	requestBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации запроса: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+model, bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("ошибка создания HTTP запроса: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка отправки запроса к Hugging Face: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("ошибка API Hugging Face",
			zap.String("model", model),
			zap.Int("status_code", resp.StatusCode),
			zap.String("response_body", string(body)))

		message := string(body)
		var hfErr huggingFaceError
		if json.Unmarshal(body, &hfErr) == nil && hfErr.Error != "" {
			message = hfErr.Error
		}
		return nil, &APIError{Provider: c.GetName(), StatusCode: resp.StatusCode, Message: message}
	}

	return body, nil
}

// ParseGeneratedText извлекает generated_text из ответа: список записей (берется первая) или одна запись
func ParseGeneratedText(body []byte) (string, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return "", ErrUnexpectedResponse
	}

	switch trimmed[0] {
	case '[':
		var list []HuggingFaceGeneration
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
		}
		if len(list) == 0 || list[0].GeneratedText == nil {
			return "", ErrUnexpectedResponse
		}
		return *list[0].GeneratedText, nil
	case '{':
		var single HuggingFaceGeneration
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
		}
		if single.GeneratedText == nil {
			return "", ErrUnexpectedResponse
		}
		return *single.GeneratedText, nil
	default:
		return "", ErrUnexpectedResponse
	}
}

func (c *HuggingFaceClient) GetName() string {
	return "huggingface"
}
