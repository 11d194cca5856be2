package tts

import (
	"fmt"

	"echoverse/internal/config"

	"go.uber.org/zap"
)

// NewService выбирает реализацию озвучки по TTS_PROVIDER
func NewService(cfg *config.TTSConfig, hf speechClient, logger *zap.Logger) (TTSService, error) {
	switch cfg.Provider {
	case config.ProviderHuggingFace, "":
		if hf == nil {
			return nil, fmt.Errorf("клиент Hugging Face не передан")
		}
		return NewHuggingFaceService(hf, cfg.Model, logger), nil
	case config.ProviderPiper:
		return NewPiperService(logger, cfg.PiperURL), nil
	default:
		return nil, fmt.Errorf("неизвестный провайдер озвучки: %s", cfg.Provider)
	}
}
