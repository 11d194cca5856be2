package tts

import (
	"context"
	"errors"
)

// ErrTTSDisabled возвращается, когда сервис озвучки не настроен
var ErrTTSDisabled = errors.New("озвучка не настроена")

// TTSService представляет интерфейс для Text-to-Speech сервиса
type TTSService interface {
	// SynthesizeText преобразует текст в аудио
	SynthesizeText(ctx context.Context, text string) ([]byte, error)
}
