package analyzer

import (
	"fmt"
	"strings"

	"echoverse/pkg/models"
)

const chartWidth = 20

// Bar один столбец диаграммы
type Bar struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Ratio float64 `json:"ratio"` // доля от максимального столбца, 0..1
}

// Bars возвращает четыре метрики как столбцы диаграммы
func Bars(r *models.AnalysisResult) []Bar {
	bars := []Bar{
		{Label: "words", Value: float64(r.Words)},
		{Label: "unique_words", Value: float64(r.UniqueWords)},
		{Label: "avg_sentence_len", Value: r.AvgSentenceLen},
		{Label: "complexity", Value: r.Complexity},
	}

	var top float64
	for _, b := range bars {
		top = max(top, b.Value)
	}
	if top > 0 {
		for i := range bars {
			bars[i].Ratio = bars[i].Value / top
		}
	}
	return bars
}

// RenderChart рисует текстовую столбчатую диаграмму для чатов
func RenderChart(r *models.AnalysisResult) string {
	bars := Bars(r)

	labelWidth := 0
	for _, b := range bars {
		labelWidth = max(labelWidth, len(b.Label))
	}

	var sb strings.Builder
	for _, b := range bars {
		filled := int(b.Ratio*chartWidth + 0.5)
		fmt.Fprintf(&sb, "%-*s %s%s %s\n",
			labelWidth, b.Label,
			strings.Repeat("█", filled),
			strings.Repeat("░", chartWidth-filled),
			formatValue(b.Value))
	}
	return sb.String()
}

func formatValue(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
