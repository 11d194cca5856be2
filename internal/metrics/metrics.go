package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics содержит все метрики приложения
type Metrics struct {
	logger *zap.Logger

	// Счетчики
	rewriteRequests  *prometheus.CounterVec
	rewriteDegraded  prometheus.Counter
	ttsRequests      *prometheus.CounterVec
	analysisRequests *prometheus.CounterVec

	// Гистограммы
	aiResponseTime *prometheus.HistogramVec

	// Gauge метрики
	activeSessions prometheus.Gauge

	gatherer prometheus.Gatherer

	// Мьютекс для thread-safety
	mu sync.RWMutex
}

// New создает новый экземпляр метрик и регистрирует их в reg.
// Если reg реализует prometheus.Gatherer, Handler отдает именно его.
func New(logger *zap.Logger, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		logger: logger,

		// Попытки переписывания по каждой модели
		rewriteRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rewrite_requests_total",
				Help: "Общее количество обращений к моделям переписывания",
			},
			[]string{"provider", "model", "status"}, // status: success, failed
		),

		rewriteDegraded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rewrite_degraded_total",
				Help: "Количество переписываний, когда ни одна модель не ответила",
			},
		),

		ttsRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tts_requests_total",
				Help: "Общее количество запросов озвучки",
			},
			[]string{"provider", "status"},
		),

		analysisRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "analysis_requests_total",
				Help: "Общее количество расчетов статистики текста",
			},
			[]string{"status"}, // success, empty
		),

		// Гистограмма времени ответа внешних моделей
		aiResponseTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ai_response_time_seconds",
				Help:    "Время ответа внешних моделей в секундах",
				Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 45, 90},
			},
			[]string{"operation"}, // rewrite, tts
		),

		activeSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "active_sessions",
				Help: "Количество активных сессий",
			},
		),
	}

	// Регистрируем все метрики
	reg.MustRegister(
		m.rewriteRequests,
		m.rewriteDegraded,
		m.ttsRequests,
		m.analysisRequests,
		m.aiResponseTime,
		m.activeSessions,
	)

	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	} else {
		m.gatherer = prometheus.DefaultGatherer
	}

	return m
}

// IncrementCounter увеличивает счетчик
func (m *Metrics) IncrementCounter(name string, labels ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch name {
	case "rewrite_requests_total":
		m.rewriteRequests.WithLabelValues(labels...).Inc()
	case "rewrite_degraded_total":
		m.rewriteDegraded.Inc()
	case "tts_requests_total":
		m.ttsRequests.WithLabelValues(labels...).Inc()
	case "analysis_requests_total":
		m.analysisRequests.WithLabelValues(labels...).Inc()
	default:
		m.logger.Error("неизвестная метрика", zap.String("name", name))
		return
	}

	m.logger.Debug("метрика увеличена", zap.String("metric", name), zap.Strings("labels", labels))
}

// SetGauge устанавливает значение gauge метрики
func (m *Metrics) SetGauge(name string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch name {
	case "active_sessions":
		m.activeSessions.Set(value)
	default:
		m.logger.Error("неизвестная gauge метрика", zap.String("name", name))
		return
	}

	m.logger.Debug("метрика установлена", zap.String("metric", name), zap.Float64("value", value))
}

// ObserveHistogram добавляет наблюдение в гистограмму
func (m *Metrics) ObserveHistogram(name string, value float64, labels ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch name {
	case "ai_response_time":
		m.aiResponseTime.WithLabelValues(labels...).Observe(value)
	default:
		m.logger.Error("неизвестная гистограмма", zap.String("name", name))
		return
	}

	m.logger.Debug("гистограмма обновлена", zap.String("metric", name), zap.Float64("value", value))
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "failed"
}

// RecordRewriteAttempt записывает обращение к модели переписывания
func (m *Metrics) RecordRewriteAttempt(provider, model string, success bool, responseTime float64) {
	m.IncrementCounter("rewrite_requests_total", provider, model, status(success))
	m.ObserveHistogram("ai_response_time", responseTime, "rewrite")
}

// RecordRewriteDegraded записывает переписывание без единой успешной модели
func (m *Metrics) RecordRewriteDegraded() {
	m.IncrementCounter("rewrite_degraded_total")
}

// RecordTTSRequest записывает запрос озвучки
func (m *Metrics) RecordTTSRequest(provider string, success bool, responseTime float64) {
	m.IncrementCounter("tts_requests_total", provider, status(success))
	m.ObserveHistogram("ai_response_time", responseTime, "tts")
}

// RecordAnalysis записывает расчет статистики
func (m *Metrics) RecordAnalysis(empty bool) {
	if empty {
		m.IncrementCounter("analysis_requests_total", "empty")
		return
	}
	m.IncrementCounter("analysis_requests_total", "success")
}

// SetActiveSessions обновляет количество активных сессий
func (m *Metrics) SetActiveSessions(count int) {
	m.SetGauge("active_sessions", float64(count))
}

// Handler возвращает HTTP handler для метрик
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
