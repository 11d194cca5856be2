// Package analyzer считает простую лексическую статистику текста.
package analyzer

import (
	"errors"
	"math"
	"strings"

	"echoverse/pkg/models"
)

// ErrEmptyText возвращается для текста без единого слова
var ErrEmptyText = errors.New("текст не содержит слов")

// Analyze считает количество слов, уникальных слов, среднюю длину предложения и сложность.
// Слова разделяются пробельными символами с учетом регистра, предложения точкой.
func Analyze(text string) (*models.AnalysisResult, error) {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, ErrEmptyText
	}

	vocab := make(map[string]struct{}, len(words))
	for _, w := range words {
		vocab[w] = struct{}{}
	}

	sentenceWords, sentences := 0, 0
	for _, s := range strings.Split(text, ".") {
		if strings.TrimSpace(s) == "" {
			continue
		}
		sentenceWords += len(strings.Fields(s))
		sentences++
	}
	avgLen := float64(sentenceWords) / float64(max(1, sentences))

	complexity := float64(len(vocab))/float64(len(words))*100 + avgLen

	return &models.AnalysisResult{
		Words:          len(words),
		UniqueWords:    len(vocab),
		AvgSentenceLen: avgLen,
		Complexity:     round2(complexity),
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
