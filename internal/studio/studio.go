// Package studio связывает переписывание, озвучку, анализ и сессии пользователя.
package studio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"echoverse/internal/analyzer"
	"echoverse/internal/metrics"
	"echoverse/internal/store"
	"echoverse/pkg/models"

	"go.uber.org/zap"
)

var (
	// ErrEmptySource исходный текст пуст
	ErrEmptySource = errors.New("введите текст или загрузите .txt файл")
	// ErrInvalidEncoding загруженный файл не UTF-8
	ErrInvalidEncoding = errors.New("файл должен быть в кодировке UTF-8")
	// ErrNothingRewritten в сессии еще нет переписанного текста
	ErrNothingRewritten = errors.New("rewrite first")
)

// ResolveSource выбирает исходный текст. Непустая загрузка побеждает и используется байт в байт.
func ResolveSource(upload []byte, pasted string) (string, error) {
	if len(upload) > 0 {
		if !utf8.Valid(upload) {
			return "", ErrInvalidEncoding
		}
		text := string(upload)
		if strings.TrimSpace(text) == "" {
			return "", ErrEmptySource
		}
		return text, nil
	}
	if strings.TrimSpace(pasted) == "" {
		return "", ErrEmptySource
	}
	return pasted, nil
}

// TextRewriter переписывает текст и никогда не возвращает ошибку
type TextRewriter interface {
	Rewrite(ctx context.Context, text string, tone models.Tone) *models.RewriteResult
}

// Narrator озвучивает текст в стиле
type Narrator interface {
	Narrate(ctx context.Context, text string, style models.NarrationStyle) (*models.Audio, error)
}

// Service хранит настройки и результат переписывания для каждой сессии
type Service struct {
	rewriter TextRewriter
	narrator Narrator
	sessions store.SessionRepository
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewService создает сервис
func NewService(rewriter TextRewriter, narrator Narrator, sessions store.SessionRepository, m *metrics.Metrics, logger *zap.Logger) *Service {
	return &Service{
		rewriter: rewriter,
		narrator: narrator,
		sessions: sessions,
		metrics:  m,
		logger:   logger,
	}
}

// Session возвращает сессию или новую с настройками по умолчанию
func (s *Service) Session(ctx context.Context, sessionID string) (*models.Session, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, store.ErrSessionNotFound) {
		return models.NewSession(sessionID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения сессии: %w", err)
	}
	return session, nil
}

// Rewrite переписывает source в тоне tone и сохраняет результат в сессии
func (s *Service) Rewrite(ctx context.Context, sessionID, source string, tone models.Tone) (*models.RewriteResult, error) {
	if strings.TrimSpace(source) == "" {
		return nil, ErrEmptySource
	}
	if !tone.IsValid() {
		return nil, fmt.Errorf("%w: %s", models.ErrInvalidTone, tone)
	}

	result := s.rewriter.Rewrite(ctx, source, tone)

	session, err := s.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	session.Tone = tone
	session.RewrittenText = result.Text
	session.Model = result.Model
	session.Degraded = result.Degraded

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("ошибка сохранения сессии: %w", err)
	}

	s.logger.Info("результат переписывания сохранен",
		zap.String("session_id", sessionID),
		zap.String("tone", string(tone)),
		zap.Bool("degraded", result.Degraded))

	return result, nil
}

// Narrate озвучивает текущий переписанный текст сессии
func (s *Service) Narrate(ctx context.Context, sessionID string, style models.NarrationStyle) (*models.Audio, error) {
	if !style.IsValid() {
		return nil, fmt.Errorf("%w: %s", models.ErrInvalidStyle, style)
	}

	session, err := s.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.HasRewrite() {
		return nil, ErrNothingRewritten
	}

	if session.Style != style {
		session.Style = style
		if err := s.sessions.Save(ctx, session); err != nil {
			s.logger.Warn("не удалось сохранить стиль озвучки", zap.Error(err))
		}
	}

	return s.narrator.Narrate(ctx, session.RewrittenText, style)
}

// Insights считает статистику текущего переписанного текста сессии
func (s *Service) Insights(ctx context.Context, sessionID string) (*models.AnalysisResult, error) {
	session, err := s.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.HasRewrite() {
		return nil, ErrNothingRewritten
	}

	result, err := analyzer.Analyze(session.RewrittenText)
	s.metrics.RecordAnalysis(errors.Is(err, analyzer.ErrEmptyText))
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SetTone запоминает тон для следующих переписываний
func (s *Service) SetTone(ctx context.Context, sessionID string, tone models.Tone) (*models.Session, error) {
	if !tone.IsValid() {
		return nil, fmt.Errorf("%w: %s", models.ErrInvalidTone, tone)
	}
	return s.update(ctx, sessionID, func(session *models.Session) { session.Tone = tone })
}

// SetStyle запоминает стиль озвучки
func (s *Service) SetStyle(ctx context.Context, sessionID string, style models.NarrationStyle) (*models.Session, error) {
	if !style.IsValid() {
		return nil, fmt.Errorf("%w: %s", models.ErrInvalidStyle, style)
	}
	return s.update(ctx, sessionID, func(session *models.Session) { session.Style = style })
}

// Reset удаляет сессию вместе с результатом
func (s *Service) Reset(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("ошибка удаления сессии: %w", err)
	}
	s.logger.Info("сессия сброшена", zap.String("session_id", sessionID))
	return nil
}

func (s *Service) update(ctx context.Context, sessionID string, apply func(*models.Session)) (*models.Session, error) {
	session, err := s.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	apply(session)
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("ошибка сохранения сессии: %w", err)
	}
	return session, nil
}
