package tts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// PiperService озвучивает текст через локальный Piper TTS
type PiperService struct {
	logger  *zap.Logger
	baseURL string
	client  *http.Client
}

// NewPiperService создает Piper TTS сервис
func NewPiperService(logger *zap.Logger, baseURL string) *PiperService {
	return &PiperService{
		logger:  logger,
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// SynthesizeText отправляет текст полем формы text на /synthesize-raw
func (s *PiperService) SynthesizeText(ctx context.Context, text string) ([]byte, error) {
	url := s.baseURL + "/synthesize-raw"

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("text", text); err != nil {
		return nil, fmt.Errorf("ошибка формирования формы: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("ошибка формирования формы: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	s.logger.Debug("🎵 отправляем запрос к Piper TTS",
		zap.String("url", url),
		zap.Int("text_length", len(text)))

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("неожиданный статус от Piper TTS: %d, тело: %s", resp.StatusCode, respBody)
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения аудио данных: %w", err)
	}
	if len(audioData) == 0 {
		return nil, fmt.Errorf("Piper TTS вернул пустое аудио")
	}

	return audioData, nil
}
