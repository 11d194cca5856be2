package store

import (
	"context"
	"errors"
	"time"

	"echoverse/pkg/models"
)

// ErrSessionNotFound возвращается, когда сессии с таким id нет
var ErrSessionNotFound = errors.New("сессия не найдена")

// Store представляет интерфейс хранилища
type Store interface {
	Session() SessionRepository
	Close() error
}

// SessionRepository интерфейс для работы с сессиями
type SessionRepository interface {
	Get(ctx context.Context, id string) (*models.Session, error)
	// Save создает или перезаписывает сессию целиком, последняя запись побеждает
	Save(ctx context.Context, session *models.Session) error
	Delete(ctx context.Context, id string) error
	// PurgeIdle удаляет сессии, не обновлявшиеся дольше olderThan, и возвращает их количество
	PurgeIdle(ctx context.Context, olderThan time.Duration) (int, error)
	CountIdle(ctx context.Context, olderThan time.Duration) (int, error)
	Count(ctx context.Context) (int, error)
}
