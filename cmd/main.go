package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"echoverse/internal/ai"
	"echoverse/internal/bot"
	"echoverse/internal/config"
	"echoverse/internal/metrics"
	"echoverse/internal/migrations"
	"echoverse/internal/rewriter"
	"echoverse/internal/scheduler"
	"echoverse/internal/server"
	"echoverse/internal/store"
	"echoverse/internal/studio"
	"echoverse/internal/tts"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Ошибка загрузки конфигурации: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(&cfg.App)
	if err != nil {
		fmt.Printf("Ошибка инициализации логгера: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("запуск приложения EchoVerse", zap.String("env", cfg.App.Env))

	// Хранилище сессий
	sessionStore, err := store.NewStore(cfg, logger)
	if err != nil {
		logger.Fatal("ошибка инициализации хранилища сессий", zap.Error(err))
	}
	defer sessionStore.Close()

	if cfg.Session.Store == config.SessionStorePostgres {
		if err := migrations.RunMigrations(cfg, logger); err != nil {
			logger.Fatal("ошибка применения миграций", zap.Error(err))
		}
	}

	metricsSystem := metrics.New(logger, prometheus.DefaultRegisterer)
	metricsHandler := metrics.NewHandler(metricsSystem, metrics.HealthInfo{
		TTSProvider:   cfg.TTS.Provider,
		SessionStore:  cfg.Session.Store,
		RewriteModels: cfg.Rewrite.Models,
		BotEnabled:    cfg.Telegram.BotEnabled(),
	}, logger)

	// Модели переписывания
	generators := ai.NewGenerators(&ai.AIConfig{
		HuggingFace: ai.HuggingFaceConfig{APIKey: cfg.HuggingFace.APIKey, BaseURL: cfg.HuggingFace.BaseURL},
		OpenRouter: ai.OpenRouterConfig{
			APIKey:   cfg.OpenRouter.APIKey,
			SiteURL:  cfg.OpenRouter.SiteURL,
			SiteName: cfg.OpenRouter.SiteName,
		},
		DeepSeek: ai.DeepSeekConfig{APIKey: cfg.DeepSeek.APIKey, BaseURL: cfg.DeepSeek.BaseURL},
	}, logger)

	candidates, err := rewriter.ParseCandidates(cfg.Rewrite.Models)
	if err != nil {
		logger.Fatal("ошибка разбора REWRITE_MODELS", zap.Error(err))
	}

	textRewriter, err := rewriter.New(generators, candidates, rewriter.Options{
		MaxTokens:   cfg.Rewrite.MaxTokens,
		Temperature: cfg.Rewrite.Temperature,
		Timeout:     cfg.Rewrite.Timeout,
	}, metricsSystem, logger)
	if err != nil {
		logger.Fatal("ошибка инициализации переписывания", zap.Error(err))
	}

	logger.Info("конфигурация переписывания",
		zap.Int("models", len(candidates)),
		zap.String("primary", candidates[0].String()),
		zap.Duration("timeout", cfg.Rewrite.Timeout))

	// Озвучка
	speechClient := ai.NewHuggingFaceClient(cfg.HuggingFace.APIKey, cfg.HuggingFace.BaseURL, logger)
	ttsService, err := tts.NewService(&cfg.TTS, speechClient, logger)
	if err != nil {
		logger.Fatal("ошибка инициализации озвучки", zap.Error(err))
	}
	narrator := tts.NewNarrator(ttsService, cfg.TTS.Provider, cfg.TTS.Timeout, metricsSystem, logger)
	logger.Info("озвучка инициализирована", zap.String("provider", cfg.TTS.Provider))

	studioService := studio.NewService(textRewriter, narrator, sessionStore.Session(), metricsSystem, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Периодическая очистка сессий
	taskScheduler := scheduler.NewScheduler(logger)
	taskScheduler.AddJob(scheduler.NewSessionCleanupJob(sessionStore.Session(), cfg.Session.TTL, metricsSystem, logger))
	go taskScheduler.Start(ctx, cfg.Session.CleanupInterval)

	// HTTP API
	httpServer := server.New(server.Config{
		Port:           cfg.App.Port,
		MaxUploadBytes: cfg.App.MaxUploadBytes,
		SessionTTL:     cfg.Session.TTL,
	}, studioService, metricsHandler, logger)

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Error("ошибка HTTP сервера", zap.Error(err))
			cancel()
		}
	}()

	// Telegram бот
	var botAPI *tgbotapi.BotAPI
	if cfg.Telegram.BotEnabled() {
		botAPI, err = tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
		if err != nil {
			logger.Fatal("ошибка инициализации Telegram бота", zap.Error(err))
		}
		logger.Info("Telegram бот инициализирован",
			zap.String("username", botAPI.Self.UserName),
			zap.Int64("id", botAPI.Self.ID))

		handler := bot.NewHandler(botAPI, studioService, cfg.App.MaxUploadBytes, logger)
		go handleUpdates(ctx, botAPI, handler, logger)
	} else {
		logger.Info("TELEGRAM_BOT_TOKEN не задан, бот отключен")
	}

	logger.Info("приложение запущено и готово к работе",
		zap.String("address", fmt.Sprintf("http://localhost:%d", cfg.App.Port)))

	select {
	case <-sigChan:
		logger.Info("получен сигнал завершения, начинаем graceful shutdown")
	case <-ctx.Done():
		logger.Info("остановка после ошибки сервера")
	}
	cancel()

	if botAPI != nil {
		botAPI.StopReceivingUpdates()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("ошибка при остановке HTTP сервера", zap.Error(err))
	}

	logger.Info("приложение завершено")
}

// initLogger инициализирует логгер: JSON в продакшене, консольный вывод в остальных окружениях
func initLogger(app *config.AppConfig) (*zap.Logger, error) {
	if err := os.MkdirAll("logs", 0755); err != nil {
		return nil, fmt.Errorf("ошибка создания директории логов: %w", err)
	}
	return loggerConfig(app).Build()
}

func loggerConfig(app *config.AppConfig) zap.Config {
	cfg := zap.NewDevelopmentConfig()
	if app.IsProduction() {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = app.GetLogLevel()
	cfg.OutputPaths = []string{"stdout", "logs/app.log"}
	cfg.ErrorOutputPaths = []string{"stderr", "logs/error.log"}
	return cfg
}

// handleUpdates обрабатывает обновления от Telegram
func handleUpdates(ctx context.Context, botAPI *tgbotapi.BotAPI, handler *bot.Handler, logger *zap.Logger) {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60

	updates := botAPI.GetUpdatesChan(updateConfig)

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil && update.CallbackQuery == nil {
				continue
			}

			go func(update tgbotapi.Update) {
				if err := handler.HandleUpdate(ctx, update); err != nil {
					var chatID int64
					if update.Message != nil {
						chatID = update.Message.Chat.ID
					} else if update.CallbackQuery != nil && update.CallbackQuery.Message != nil {
						chatID = update.CallbackQuery.Message.Chat.ID
					}

					logger.Error("ошибка обработки обновления",
						zap.Int64("chat_id", chatID),
						zap.Error(err))
				}
			}(update)

		case <-ctx.Done():
			logger.Info("остановка обработки обновлений")
			return
		}
	}
}
