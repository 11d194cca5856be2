package metrics

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// HealthInfo описывает конфигурацию, которую отдает /health
type HealthInfo struct {
	TTSProvider   string   `json:"tts_provider"`
	SessionStore  string   `json:"session_store"`
	RewriteModels []string `json:"rewrite_models"`
	BotEnabled    bool     `json:"bot_enabled"`
}

type healthResponse struct {
	Status        string `json:"status"`
	Service       string `json:"service"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	HealthInfo
}

// Handler отдает /metrics и /health
type Handler struct {
	metrics *Metrics
	info    HealthInfo
	started time.Time
	now     func() time.Time
	logger  *zap.Logger
}

// NewHandler создает обработчик; info попадает в ответ /health как есть
func NewHandler(metrics *Metrics, info HealthInfo, logger *zap.Logger) *Handler {
	return &Handler{
		metrics: metrics,
		info:    info,
		started: time.Now(),
		now:     time.Now,
		logger:  logger,
	}
}

// MetricsHandler возвращает HTTP handler для Prometheus метрик
func (h *Handler) MetricsHandler() http.Handler {
	return h.metrics.Handler()
}

// HealthHandler возвращает статус сервиса и активные провайдеры
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:        "ok",
		Service:       "echoverse",
		UptimeSeconds: int64(h.now().Sub(h.started) / time.Second),
		HealthInfo:    h.info,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Warn("ошибка записи ответа health", zap.Error(err))
	}
}
