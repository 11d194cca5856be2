// Package server отдает HTTP API EchoVerse поверх fiber.
package server

import (
	"context"
	"fmt"
	"time"

	"echoverse/internal/metrics"
	"echoverse/internal/studio"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"go.uber.org/zap"
)

// Config параметры HTTP сервера
type Config struct {
	Port           int
	MaxUploadBytes int
	SessionTTL     time.Duration
}

// Server HTTP API поверх studio.Service
type Server struct {
	app     *fiber.App
	studio  *studio.Service
	metrics *metrics.Handler
	cfg     Config
	logger  *zap.Logger
}

// New создает сервер и регистрирует маршруты
func New(cfg Config, svc *studio.Service, metricsHandler *metrics.Handler, logger *zap.Logger) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 1 << 20
	}

	s := &Server{
		studio:  svc,
		metrics: metricsHandler,
		cfg:     cfg,
		logger:  logger,
	}

	s.app = fiber.New(fiber.Config{
		AppName: "EchoVerse",
		// значения из запроса живут дольше обработчика (сессии в памяти)
		Immutable:             true,
		BodyLimit:             cfg.MaxUploadBytes + 64<<10,
		ReadTimeout:           30 * time.Second,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/health", adaptor.HTTPHandlerFunc(s.metrics.HealthHandler))
	s.app.Get("/metrics", adaptor.HTTPHandler(s.metrics.MetricsHandler()))

	api := s.app.Group("/api", s.sessionMiddleware)
	api.Get("/options", s.handleOptions)
	api.Get("/session", s.handleSession)
	api.Post("/rewrite", s.handleRewrite)
	api.Post("/audio", s.handleAudio)
	api.Get("/insights", s.handleInsights)
	api.Delete("/session", s.handleReset)
}

// App возвращает fiber приложение
func (s *Server) App() *fiber.App {
	return s.app
}

// Start блокируется до остановки сервера
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.logger.Info("🌐 HTTP сервер запущен", zap.String("addr", addr))
	return s.app.Listen(addr)
}

// Shutdown останавливает сервер, дожидаясь активных запросов
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
