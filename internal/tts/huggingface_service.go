package tts

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// DefaultHuggingFaceModel модель озвучки по умолчанию
const DefaultHuggingFaceModel = "espnet/kan-bayashi_ljspeech_vits"

// speechClient клиент Inference API, умеющий синтез речи
type speechClient interface {
	TextToSpeech(ctx context.Context, model, text string) ([]byte, error)
}

// HuggingFaceService озвучивает текст через Hugging Face Inference API
type HuggingFaceService struct {
	client speechClient
	model  string
	logger *zap.Logger
}

// NewHuggingFaceService создает сервис озвучки на фиксированной модели
func NewHuggingFaceService(client speechClient, model string, logger *zap.Logger) *HuggingFaceService {
	if model == "" {
		model = DefaultHuggingFaceModel
	}
	return &HuggingFaceService{
		client: client,
		model:  model,
		logger: logger,
	}
}

// SynthesizeText преобразует текст в аудио
func (s *HuggingFaceService) SynthesizeText(ctx context.Context, text string) ([]byte, error) {
	s.logger.Debug("🎵 генерируем аудио через Hugging Face",
		zap.String("model", s.model),
		zap.Int("text_length", len(text)))

	audio, err := s.client.TextToSpeech(ctx, s.model, text)
	if err != nil {
		return nil, fmt.Errorf("ошибка генерации аудио моделью %s: %w", s.model, err)
	}
	return audio, nil
}
