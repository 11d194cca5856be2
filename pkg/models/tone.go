package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidTone  = errors.New("неизвестный тон")
	ErrInvalidStyle = errors.New("неизвестный стиль озвучки")
)

// Tone представляет стилистический регистр переписывания
type Tone string

const (
	ToneNeutral     Tone = "Neutral"
	ToneSuspenseful Tone = "Suspenseful"
	ToneInspiring   Tone = "Inspiring"
	ToneExcited     Tone = "Excited"
)

// AllTones возвращает тона в порядке отображения
func AllTones() []Tone {
	return []Tone{ToneNeutral, ToneSuspenseful, ToneInspiring, ToneExcited}
}

// IsValid проверяет валидность тона
func (t Tone) IsValid() bool {
	switch t {
	case ToneNeutral, ToneSuspenseful, ToneInspiring, ToneExcited:
		return true
	default:
		return false
	}
}

// ParseTone разбирает тон без учета регистра
func ParseTone(s string) (Tone, error) {
	for _, t := range AllTones() {
		if strings.EqualFold(strings.TrimSpace(s), string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTone, s)
}

// NarrationStyle представляет манеру озвучки
type NarrationStyle string

const (
	StyleWiseMentor NarrationStyle = "Wise Mentor"
	StyleEnergetic  NarrationStyle = "Energetic"
	StyleCalm       NarrationStyle = "Calm"
	StyleRobotic    NarrationStyle = "Robotic"
	StyleNarrative  NarrationStyle = "Narrative"
)

// AllStyles возвращает стили озвучки в порядке отображения
func AllStyles() []NarrationStyle {
	return []NarrationStyle{StyleWiseMentor, StyleEnergetic, StyleCalm, StyleRobotic, StyleNarrative}
}

// IsValid проверяет валидность стиля
func (s NarrationStyle) IsValid() bool {
	switch s {
	case StyleWiseMentor, StyleEnergetic, StyleCalm, StyleRobotic, StyleNarrative:
		return true
	default:
		return false
	}
}

// Emoji возвращает значок стиля для интерфейса
func (s NarrationStyle) Emoji() string {
	switch s {
	case StyleWiseMentor:
		return "🧙"
	case StyleEnergetic:
		return "🤩"
	case StyleCalm:
		return "🌙"
	case StyleRobotic:
		return "🤖"
	default:
		return "📖"
	}
}

// ParseStyle разбирает стиль озвучки без учета регистра
func ParseStyle(s string) (NarrationStyle, error) {
	for _, st := range AllStyles() {
		if strings.EqualFold(strings.TrimSpace(s), string(st)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStyle, s)
}
