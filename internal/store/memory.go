package store

import (
	"context"
	"sync"
	"time"

	"echoverse/pkg/models"

	"go.uber.org/zap"
)

type memoryStore struct {
	sessions *memorySessionRepository
	logger   *zap.Logger
}

// NewMemoryStore создает хранилище сессий в памяти процесса
func NewMemoryStore(logger *zap.Logger) Store {
	return &memoryStore{
		sessions: newMemorySessionRepository(logger),
		logger:   logger,
	}
}

func (s *memoryStore) Session() SessionRepository {
	return s.sessions
}

func (s *memoryStore) Close() error {
	s.logger.Info("закрытие хранилища сессий в памяти")
	return nil
}

// memorySessionRepository хранит копии сессий под мьютексом
type memorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
	now      func() time.Time
	logger   *zap.Logger
}

// newMemorySessionRepository создает репозиторий сессий в памяти
func newMemorySessionRepository(logger *zap.Logger) *memorySessionRepository {
	return &memorySessionRepository{
		sessions: make(map[string]models.Session),
		now:      time.Now,
		logger:   logger,
	}
}

func (r *memorySessionRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &s, nil
}

func (r *memorySessionRepository) Save(ctx context.Context, session *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if existing, ok := r.sessions[session.ID]; ok {
		session.CreatedAt = existing.CreatedAt
	} else if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	r.sessions[session.ID] = *session
	return nil
}

func (r *memorySessionRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, id)
	return nil
}

func (r *memorySessionRepository) PurgeIdle(ctx context.Context, olderThan time.Duration) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-olderThan)
	purged := 0
	for id, s := range r.sessions {
		if s.UpdatedAt.Before(cutoff) {
			delete(r.sessions, id)
			purged++
		}
	}

	if purged > 0 {
		r.logger.Debug("удалены неактивные сессии", zap.Int("count", purged))
	}
	return purged, nil
}

func (r *memorySessionRepository) CountIdle(ctx context.Context, olderThan time.Duration) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cutoff := r.now().Add(-olderThan)
	idle := 0
	for _, s := range r.sessions {
		if s.UpdatedAt.Before(cutoff) {
			idle++
		}
	}
	return idle, nil
}

func (r *memorySessionRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions), nil
}
