package tts

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"echoverse/internal/metrics"
	"echoverse/pkg/models"

	"go.uber.org/zap"
)

// BuildNarrationInput добавляет стиль озвучки перед текстом
func BuildNarrationInput(style models.NarrationStyle, text string) string {
	return fmt.Sprintf("%s style %s", style, text)
}

// Narrator озвучивает переписанный текст в выбранном стиле
type Narrator struct {
	service  TTSService
	provider string
	timeout  time.Duration
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewNarrator создает Narrator. service может быть nil, тогда озвучка отключена.
func NewNarrator(service TTSService, provider string, timeout time.Duration, m *metrics.Metrics, logger *zap.Logger) *Narrator {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Narrator{
		service:  service,
		provider: provider,
		timeout:  timeout,
		metrics:  m,
		logger:   logger,
	}
}

// Narrate возвращает аудио или nil вместе с ошибкой
func (n *Narrator) Narrate(ctx context.Context, text string, style models.NarrationStyle) (*models.Audio, error) {
	if n.service == nil {
		return nil, ErrTTSDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	start := time.Now()
	data, err := n.service.SynthesizeText(ctx, BuildNarrationInput(style, text))
	elapsed := time.Since(start)

	n.metrics.RecordTTSRequest(n.provider, err == nil, elapsed.Seconds())

	if err != nil {
		n.logger.Error("ошибка озвучки",
			zap.String("provider", n.provider),
			zap.String("style", string(style)),
			zap.Duration("duration", elapsed),
			zap.Error(err))
		return nil, fmt.Errorf("не удалось озвучить текст: %w", err)
	}

	n.logger.Info("🎵 текст озвучен",
		zap.String("provider", n.provider),
		zap.String("style", string(style)),
		zap.Int("audio_size", len(data)),
		zap.Duration("duration", elapsed))

	return &models.Audio{
		Data:        data,
		ContentType: http.DetectContentType(data),
		FileName:    models.DefaultAudioFileName,
	}, nil
}
