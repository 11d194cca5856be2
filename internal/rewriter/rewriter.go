package rewriter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"echoverse/internal/ai"
	"echoverse/internal/metrics"
	"echoverse/pkg/models"

	"go.uber.org/zap"
)

var errEmptyGeneration = errors.New("модель вернула пустой текст")

// DefaultProvider провайдер для записей списка моделей без префикса
const DefaultProvider = "huggingface"

// Candidate модель из упорядоченного списка fallback
type Candidate struct {
	Provider string
	Model    string
}

func (c Candidate) String() string {
	return c.Provider + "@" + c.Model
}

// ParseCandidate разбирает запись вида [provider@]model
func ParseCandidate(entry string) (Candidate, error) {
	entry = strings.TrimSpace(entry)
	provider, model, found := strings.Cut(entry, "@")
	if !found {
		provider, model = DefaultProvider, entry
	}
	if provider == "" || model == "" {
		return Candidate{}, fmt.Errorf("некорректная запись модели: %q", entry)
	}
	return Candidate{Provider: provider, Model: model}, nil
}

// ParseCandidates разбирает список моделей с сохранением порядка
func ParseCandidates(entries []string) ([]Candidate, error) {
	candidates := make([]Candidate, 0, len(entries))
	for _, e := range entries {
		c, err := ParseCandidate(e)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// Options параметры обращения к моделям
type Options struct {
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration // на одну попытку
}

// Rewriter переписывает текст в заданном тоне, перебирая модели по порядку
type Rewriter struct {
	generators map[string]ai.TextGenerator
	candidates []Candidate
	options    Options
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// New создает Rewriter и проверяет, что у каждой модели есть провайдер
func New(generators map[string]ai.TextGenerator, candidates []Candidate, options Options, m *metrics.Metrics, logger *zap.Logger) (*Rewriter, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("список моделей для переписывания пуст")
	}
	for _, c := range candidates {
		if _, ok := generators[c.Provider]; !ok {
			return nil, fmt.Errorf("провайдер %q для модели %s не настроен", c.Provider, c.Model)
		}
	}
	if options.MaxTokens <= 0 {
		options.MaxTokens = 400
	}
	if options.Timeout <= 0 {
		options.Timeout = 90 * time.Second
	}

	return &Rewriter{
		generators: generators,
		candidates: candidates,
		options:    options,
		metrics:    m,
		logger:     logger,
	}, nil
}

// BuildPrompt строит промпт переписывания
func BuildPrompt(text string, tone models.Tone) string {
	return fmt.Sprintf("Rewrite this text in a %s tone:\n\n%s", tone, text)
}

// Rewrite возвращает текст первой успешно ответившей модели без окружающих пробелов.
// Если не ответила ни одна, возвращается исходный текст с Degraded=true. Ошибок нет.
func (r *Rewriter) Rewrite(ctx context.Context, text string, tone models.Tone) *models.RewriteResult {
	prompt := BuildPrompt(text, tone)
	result := &models.RewriteResult{
		Attempts: make([]models.RewriteAttempt, 0, len(r.candidates)),
	}

	for _, c := range r.candidates {
		if ctx.Err() != nil {
			r.logger.Warn("переписывание прервано контекстом", zap.Error(ctx.Err()))
			break
		}

		content, duration, err := r.attempt(ctx, c, prompt)
		r.metrics.RecordRewriteAttempt(c.Provider, c.Model, err == nil, duration.Seconds())

		attempt := models.RewriteAttempt{Provider: c.Provider, Model: c.Model, Duration: duration}
		if err != nil {
			attempt.Error = err.Error()
			result.Attempts = append(result.Attempts, attempt)
			r.logger.Warn("модель не ответила, пробуем следующую",
				zap.String("candidate", c.String()),
				zap.Duration("duration", duration),
				zap.Error(err))
			continue
		}
		result.Attempts = append(result.Attempts, attempt)

		result.Text = strings.TrimSpace(content)
		result.Provider = c.Provider
		result.Model = c.Model

		r.logger.Info("текст переписан",
			zap.String("candidate", c.String()),
			zap.String("tone", string(tone)),
			zap.Int("attempts", len(result.Attempts)))
		return result
	}

	r.metrics.RecordRewriteDegraded()
	r.logger.Warn("ни одна модель не ответила, возвращаем исходный текст",
		zap.String("tone", string(tone)),
		zap.Int("attempts", len(result.Attempts)))

	result.Text = text
	result.Degraded = true
	return result
}

// attempt делает одну попытку с фиксированным таймаутом
func (r *Rewriter) attempt(ctx context.Context, c Candidate, prompt string) (string, time.Duration, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, r.options.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := r.generators[c.Provider].Generate(attemptCtx, c.Model, prompt, ai.GenerationOptions{
		MaxTokens:   r.options.MaxTokens,
		Temperature: r.options.Temperature,
	})
	duration := time.Since(start)
	if err != nil {
		return "", duration, err
	}
	if strings.TrimSpace(resp.Content) == "" {
		return "", duration, errEmptyGeneration
	}
	return resp.Content, duration, nil
}

// Candidates возвращает копию упорядоченного списка моделей
func (r *Rewriter) Candidates() []Candidate {
	out := make([]Candidate, len(r.candidates))
	copy(out, r.candidates)
	return out
}
