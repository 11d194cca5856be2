package ai

import (
	"go.uber.org/zap"
)

// NewGenerators создает провайдеров генерации текста по заданным ключам.
// Hugging Face есть всегда, OpenRouter и DeepSeek только при наличии ключа.
func NewGenerators(cfg *AIConfig, logger *zap.Logger) map[string]TextGenerator {
	generators := map[string]TextGenerator{
		"huggingface": NewHuggingFaceClient(cfg.HuggingFace.APIKey, cfg.HuggingFace.BaseURL, logger),
	}

	if cfg.OpenRouter.APIKey != "" {
		generators["openrouter"] = NewOpenRouterClient(cfg.OpenRouter.APIKey, cfg.OpenRouter.SiteURL, cfg.OpenRouter.SiteName, logger)
	}
	if cfg.DeepSeek.APIKey != "" {
		generators["deepseek"] = NewDeepSeekClient(cfg.DeepSeek.APIKey, cfg.DeepSeek.BaseURL, logger)
	}

	return generators
}
