package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"echoverse/internal/config"
	"echoverse/pkg/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// postgresStore реализует Store поверх пула подключений PostgreSQL
type postgresStore struct {
	db       *pgxpool.Pool
	logger   *zap.Logger
	sessions SessionRepository
}

// NewStore создает хранилище по SESSION_STORE
func NewStore(cfg *config.Config, logger *zap.Logger) (Store, error) {
	switch cfg.Session.Store {
	case config.SessionStoreMemory, "":
		return NewMemoryStore(logger), nil
	case config.SessionStorePostgres:
		return NewPostgresStore(cfg, logger)
	default:
		return nil, fmt.Errorf("неизвестное хранилище сессий: %s", cfg.Session.Store)
	}
}

// NewPostgresStore создает новое подключение к базе данных
func NewPostgresStore(cfg *config.Config, logger *zap.Logger) (Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга DSN: %w", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	db, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к базе данных: %w", err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка проверки подключения к базе данных: %w", err)
	}

	logger.Info("успешное подключение к базе данных PostgreSQL")

	return &postgresStore{
		db:       db,
		logger:   logger,
		sessions: NewSessionRepository(db, logger),
	}, nil
}

func (s *postgresStore) Session() SessionRepository {
	return s.sessions
}

// Close закрывает подключение к базе данных
func (s *postgresStore) Close() error {
	s.logger.Info("закрытие подключения к базе данных")
	s.db.Close()
	return nil
}

// DBTX часть pgxpool.Pool, которой пользуется репозиторий
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// sessionRepository реализует SessionRepository
type sessionRepository struct {
	db     DBTX
	logger *zap.Logger
}

// NewSessionRepository создает репозиторий сессий в PostgreSQL
func NewSessionRepository(db DBTX, logger *zap.Logger) SessionRepository {
	return &sessionRepository{
		db:     db,
		logger: logger,
	}
}

// Get получает сессию по id
func (r *sessionRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	query := `
		SELECT id, tone, style, rewritten_text, model, degraded, created_at, updated_at
		FROM sessions
		WHERE id = $1`

	var s models.Session
	err := r.db.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.Tone, &s.Style, &s.RewrittenText, &s.Model, &s.Degraded, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("ошибка получения сессии: %w", err)
	}
	return &s, nil
}

// Save создает сессию или перезаписывает все ее поля, кроме created_at
func (r *sessionRepository) Save(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (id, tone, style, rewritten_text, model, degraded, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			tone = EXCLUDED.tone,
			style = EXCLUDED.style,
			rewritten_text = EXCLUDED.rewritten_text,
			model = EXCLUDED.model,
			degraded = EXCLUDED.degraded,
			updated_at = EXCLUDED.updated_at
		RETURNING created_at`

	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	err := r.db.QueryRow(ctx, query,
		session.ID, string(session.Tone), string(session.Style), session.RewrittenText,
		session.Model, session.Degraded, session.CreatedAt, session.UpdatedAt,
	).Scan(&session.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка сохранения сессии: %w", err)
	}

	r.logger.Debug("сессия сохранена",
		zap.String("session_id", session.ID),
		zap.String("tone", string(session.Tone)))
	return nil
}

// Delete удаляет сессию, отсутствие сессии не ошибка
func (r *sessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("ошибка удаления сессии: %w", err)
	}
	return nil
}

// PurgeIdle удаляет сессии, не обновлявшиеся дольше olderThan
func (r *sessionRepository) PurgeIdle(ctx context.Context, olderThan time.Duration) (int, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE updated_at < $1`, time.Now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("ошибка удаления неактивных сессий: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// CountIdle считает сессии, не обновлявшиеся дольше olderThan
func (r *sessionRepository) CountIdle(ctx context.Context, olderThan time.Duration) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM sessions WHERE updated_at < $1`, time.Now().Add(-olderThan)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчета неактивных сессий: %w", err)
	}
	return count, nil
}

// Count возвращает общее количество сессий
func (r *sessionRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчета сессий: %w", err)
	}
	return count, nil
}
