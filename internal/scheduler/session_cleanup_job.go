package scheduler

import (
	"context"
	"fmt"
	"time"

	"echoverse/internal/metrics"
	"echoverse/internal/store"

	"go.uber.org/zap"
)

// SessionCleanupJob удаляет сессии, простаивающие дольше ttl, и обновляет gauge активных сессий
type SessionCleanupJob struct {
	sessions store.SessionRepository
	ttl      time.Duration
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewSessionCleanupJob создает задачу очистки сессий
func NewSessionCleanupJob(sessions store.SessionRepository, ttl time.Duration, m *metrics.Metrics, logger *zap.Logger) *SessionCleanupJob {
	return &SessionCleanupJob{
		sessions: sessions,
		ttl:      ttl,
		metrics:  m,
		logger:   logger,
	}
}

func (j *SessionCleanupJob) Name() string {
	return "session_cleanup"
}

// Run запускает очистку
func (j *SessionCleanupJob) Run(ctx context.Context) error {
	purged, err := j.sessions.PurgeIdle(ctx, j.ttl)
	if err != nil {
		return fmt.Errorf("ошибка очистки сессий: %w", err)
	}

	active, err := j.sessions.Count(ctx)
	if err != nil {
		return fmt.Errorf("ошибка подсчета сессий: %w", err)
	}
	j.metrics.SetActiveSessions(active)

	if purged > 0 {
		j.logger.Info("удалены неактивные сессии",
			zap.Int("purged", purged),
			zap.Int("active", active),
			zap.Duration("ttl", j.ttl))
	}
	return nil
}
