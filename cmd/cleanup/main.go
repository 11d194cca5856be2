package main

import (
	"context"
	"flag"
	"log"
	"time"

	"echoverse/internal/config"
	"echoverse/internal/migrations"
	"echoverse/internal/store"

	"go.uber.org/zap"
)

func main() {
	var (
		olderThan = flag.Duration("older-than", 0, "Удалить сессии, неактивные дольше указанного времени (0 = SESSION_TTL)")
		dryRun    = flag.Bool("dry-run", false, "Показать что будет удалено без фактического удаления")
		status    = flag.Bool("status", false, "Показать статус миграций и выйти")
	)
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("Ошибка инициализации логгера:", err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Ошибка загрузки конфигурации", zap.Error(err))
	}

	if *status {
		if err := migrations.GetMigrationStatus(cfg, logger); err != nil {
			logger.Fatal("Ошибка получения статуса миграций", zap.Error(err))
		}
		return
	}

	if cfg.Session.Store != config.SessionStorePostgres {
		logger.Fatal("Очистка доступна только для SESSION_STORE=postgres, сессии в памяти живут до перезапуска")
	}

	s, err := store.NewStore(cfg, logger)
	if err != nil {
		logger.Fatal("Ошибка подключения к базе данных", zap.Error(err))
	}
	defer s.Close()

	ttl := *olderThan
	if ttl <= 0 {
		ttl = cfg.Session.TTL
	}

	if err := cleanupSessions(context.Background(), s.Session(), ttl, *dryRun, logger); err != nil {
		logger.Fatal("Ошибка очистки сессий", zap.Error(err))
	}

	logger.Info("Очистка сессий завершена успешно")
}

func cleanupSessions(ctx context.Context, sessions store.SessionRepository, olderThan time.Duration, dryRun bool, logger *zap.Logger) error {
	if dryRun {
		idle, err := sessions.CountIdle(ctx, olderThan)
		if err != nil {
			return err
		}
		logger.Info("DRY RUN: будет удалено сессий",
			zap.Int("count", idle),
			zap.Duration("older_than", olderThan))
		return nil
	}

	purged, err := sessions.PurgeIdle(ctx, olderThan)
	if err != nil {
		return err
	}

	remaining, err := sessions.Count(ctx)
	if err != nil {
		return err
	}

	logger.Info("Удалены неактивные сессии",
		zap.Int("purged", purged),
		zap.Int("remaining", remaining),
		zap.Duration("older_than", olderThan))
	return nil
}
