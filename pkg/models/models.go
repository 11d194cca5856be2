package models

import (
	"time"
)

// DefaultAudioFileName имя файла, под которым отдается озвучка
const DefaultAudioFileName = "EchoVerse.mp3"

// Session представляет контекст одного пользователя между действиями
type Session struct {
	ID            string         `json:"id" db:"id"`
	Tone          Tone           `json:"tone" db:"tone"`
	Style         NarrationStyle `json:"style" db:"style"`
	RewrittenText string         `json:"rewritten_text" db:"rewritten_text"` // перезаписывается каждым переписыванием
	Model         string         `json:"model" db:"model"`                   // модель, вернувшая текст
	Degraded      bool           `json:"degraded" db:"degraded"`             // все модели недоступны, текст не изменен
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" db:"updated_at"`
}

// NewSession создает сессию с настройками по умолчанию
func NewSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		Tone:      ToneNeutral,
		Style:     StyleNarrative,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// HasRewrite проверяет, есть ли в сессии переписанный текст
func (s *Session) HasRewrite() bool {
	return s != nil && s.RewrittenText != ""
}

// RewriteAttempt описывает одну попытку обращения к модели
type RewriteAttempt struct {
	Provider string        `json:"provider"`
	Model    string        `json:"model"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// RewriteResult представляет результат переписывания текста
type RewriteResult struct {
	Text     string           `json:"text"`
	Provider string           `json:"provider,omitempty"`
	Model    string           `json:"model,omitempty"`
	Degraded bool             `json:"degraded"`
	Attempts []RewriteAttempt `json:"attempts"`
}

// AnalysisResult представляет лексическую статистику текста
type AnalysisResult struct {
	Words          int     `json:"words"`
	UniqueWords    int     `json:"unique_words"`
	AvgSentenceLen float64 `json:"avg_sentence_len"`
	Complexity     float64 `json:"complexity"`
}

// Audio представляет сгенерированную озвучку
type Audio struct {
	Data        []byte `json:"-"`
	ContentType string `json:"content_type"`
	FileName    string `json:"file_name"`
}

// Empty проверяет, что воспроизводить нечего (безопасно для nil)
func (a *Audio) Empty() bool {
	return a == nil || len(a.Data) == 0
}
