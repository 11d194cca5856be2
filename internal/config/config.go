package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Config содержит все конфигурационные параметры приложения
type Config struct {
	HuggingFace HuggingFaceConfig
	Rewrite     RewriteConfig
	OpenRouter  OpenRouterConfig
	DeepSeek    DeepSeekConfig
	TTS         TTSConfig
	Telegram    TelegramConfig
	Session     SessionConfig
	Database    DatabaseConfig
	App         AppConfig
}

// HuggingFaceConfig содержит настройки Hugging Face Inference API
type HuggingFaceConfig struct {
	APIKey  string
	BaseURL string
}

// RewriteConfig содержит настройки переписывания текста
type RewriteConfig struct {
	Models    []string // порядок важен: первая успешная модель побеждает
	MaxTokens   int
	Temperature float64 // 0 означает значение по умолчанию у провайдера
	Timeout     time.Duration
}

type OpenRouterConfig struct {
	APIKey   string
	SiteURL  string
	SiteName string
}

type DeepSeekConfig struct {
	APIKey  string
	BaseURL string
}

// TTSConfig содержит настройки озвучки
type TTSConfig struct {
	Provider string
	Model    string
	Timeout  time.Duration
	PiperURL string
}

// TelegramConfig содержит настройки Telegram бота (бот необязателен)
type TelegramConfig struct {
	BotToken string
}

// SessionConfig содержит настройки хранения сессий
type SessionConfig struct {
	Store           string
	TTL             time.Duration
	CleanupInterval time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type AppConfig struct {
	Env            string
	LogLevel       string
	Port           int
	MaxUploadBytes int
}

const (
	ProviderHuggingFace = "huggingface"
	ProviderOpenRouter  = "openrouter"
	ProviderDeepSeek    = "deepseek"
	ProviderPiper       = "piper"

	SessionStoreMemory   = "memory"
	SessionStorePostgres = "postgres"
)

// Load загружает конфигурацию из переменных окружения и .env
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	// Hugging Face
	cfg.HuggingFace.APIKey = os.Getenv("HF_API_KEY")
	cfg.HuggingFace.BaseURL = getEnvDefault("HF_BASE_URL", "https://api-inference.huggingface.co/models")

	// Rewrite
	cfg.Rewrite.Models = getEnvListDefault("REWRITE_MODELS", []string{
		"ibm-granite/granite-3.2-8b-instruct",
		"ibm-granite/granite-3b-instruct",
	})
	cfg.Rewrite.MaxTokens = getEnvIntDefault("REWRITE_MAX_TOKENS", 400)
	cfg.Rewrite.Temperature = getEnvFloatDefault("REWRITE_TEMPERATURE", 0)
	cfg.Rewrite.Timeout = getEnvDurationDefault("REWRITE_TIMEOUT", 90*time.Second)

	// Дополнительные провайдеры для списка fallback
	cfg.OpenRouter.APIKey = os.Getenv("OPENROUTER_API_KEY")
	cfg.OpenRouter.SiteURL = getEnvDefault("OPENROUTER_SITE_URL", "https://echoverse.app")
	cfg.OpenRouter.SiteName = getEnvDefault("OPENROUTER_SITE_NAME", "EchoVerse")
	cfg.DeepSeek.APIKey = os.Getenv("DEEPSEEK_API_KEY")
	cfg.DeepSeek.BaseURL = getEnvDefault("DEEPSEEK_BASE_URL", "https://api.deepseek.com/v1")

	// TTS
	cfg.TTS.Provider = getEnvDefault("TTS_PROVIDER", ProviderHuggingFace)
	cfg.TTS.Model = getEnvDefault("TTS_MODEL", "espnet/kan-bayashi_ljspeech_vits")
	cfg.TTS.Timeout = getEnvDurationDefault("TTS_TIMEOUT", 90*time.Second)
	cfg.TTS.PiperURL = getEnvDefault("PIPER_URL", "http://piper:5000")

	// Telegram
	cfg.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")

	// Sessions
	cfg.Session.Store = getEnvDefault("SESSION_STORE", SessionStoreMemory)
	cfg.Session.TTL = getEnvDurationDefault("SESSION_TTL", 24*time.Hour)
	cfg.Session.CleanupInterval = getEnvDurationDefault("SESSION_CLEANUP_INTERVAL", time.Hour)

	// Database
	cfg.Database.Host = getEnvDefault("DB_HOST", "localhost")
	cfg.Database.Port = getEnvIntDefault("DB_PORT", 5432)
	cfg.Database.User = os.Getenv("DB_USER")
	cfg.Database.Password = os.Getenv("DB_PASSWORD")
	cfg.Database.Name = os.Getenv("DB_NAME")
	cfg.Database.SSLMode = getEnvDefault("DB_SSL_MODE", "disable")

	// App
	cfg.App.Env = getEnvDefault("APP_ENV", "development")
	cfg.App.LogLevel = getEnvDefault("LOG_LEVEL", "info")
	cfg.App.Port = getEnvIntDefault("APP_PORT", 8080)
	cfg.App.MaxUploadBytes = getEnvIntDefault("MAX_UPLOAD_BYTES", 1<<20)

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("ошибка валидации конфигурации: %w", err)
	}

	return cfg, nil
}

func getEnvDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getEnvFloatDefault(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getEnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// getEnvListDefault читает список через запятую, пустые элементы отбрасываются
func getEnvListDefault(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var items []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return def
	}
	return items
}

// validateConfig проверяет корректность конфигурации
func validateConfig(config *Config) error {
	if config.HuggingFace.APIKey == "" {
		return fmt.Errorf("HF_API_KEY не установлен. Добавьте HF_API_KEY=your_key в .env и перезапустите")
	}
	if len(config.Rewrite.Models) == 0 {
		return fmt.Errorf("REWRITE_MODELS пуст")
	}
	for _, m := range config.Rewrite.Models {
		if strings.HasPrefix(m, ProviderOpenRouter+"@") && config.OpenRouter.APIKey == "" {
			return fmt.Errorf("OPENROUTER_API_KEY не установлен, а модель %s его требует", m)
		}
		if strings.HasPrefix(m, ProviderDeepSeek+"@") && config.DeepSeek.APIKey == "" {
			return fmt.Errorf("DEEPSEEK_API_KEY не установлен, а модель %s его требует", m)
		}
	}
	if config.Rewrite.MaxTokens <= 0 {
		return fmt.Errorf("REWRITE_MAX_TOKENS должен быть положительным")
	}
	if config.Rewrite.Temperature < 0 || config.Rewrite.Temperature > 2 {
		return fmt.Errorf("REWRITE_TEMPERATURE должен быть в диапазоне 0..2")
	}
	if config.Session.TTL <= 0 {
		return fmt.Errorf("SESSION_TTL должен быть положительным")
	}
	if config.Session.CleanupInterval <= 0 {
		return fmt.Errorf("SESSION_CLEANUP_INTERVAL должен быть положительным")
	}
	if config.TTS.Provider != ProviderHuggingFace && config.TTS.Provider != ProviderPiper {
		return fmt.Errorf("поддерживаются только TTS_PROVIDER: huggingface, piper")
	}
	switch config.Session.Store {
	case SessionStoreMemory:
	case SessionStorePostgres:
		if config.Database.Host == "" {
			return fmt.Errorf("DB_HOST не установлен")
		}
		if config.Database.User == "" {
			return fmt.Errorf("DB_USER не установлен")
		}
		if config.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD не установлен")
		}
		if config.Database.Name == "" {
			return fmt.Errorf("DB_NAME не установлен")
		}
	default:
		return fmt.Errorf("поддерживаются только SESSION_STORE: memory, postgres")
	}

	return nil
}

// GetDSN возвращает строку подключения к базе данных
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// GetURL возвращает строку подключения в формате URL (для database/sql)
func (c *DatabaseConfig) GetURL() string {
	return fmt.Sprintf("postgresql://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

// IsProduction проверяет, запущено ли приложение в продакшн режиме
func (c *AppConfig) IsProduction() bool {
	return c.Env == "production"
}

// GetLogLevel возвращает уровень логирования в формате zap
func (c *AppConfig) GetLogLevel() zap.AtomicLevel {
	switch c.LogLevel {
	case "debug":
		return zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		return zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		return zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		return zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		return zap.NewAtomicLevelAt(zap.InfoLevel)
	}
}

// BotEnabled проверяет, нужно ли запускать Telegram бота
func (c *TelegramConfig) BotEnabled() bool {
	return c.BotToken != ""
}
