package server

import (
	"errors"

	"echoverse/internal/analyzer"
	"echoverse/internal/studio"
	"echoverse/internal/tts"
	"echoverse/pkg/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var (
	errUnsupportedFile = errors.New("поддерживаются только .txt файлы")
	errFileTooLarge    = errors.New("файл слишком большой")
	errBadRequest      = errors.New("некорректный запрос")
)

// statusFor сопоставляет ошибку с HTTP статусом
func statusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.Is(err, studio.ErrEmptySource),
		errors.Is(err, studio.ErrInvalidEncoding),
		errors.Is(err, models.ErrInvalidTone),
		errors.Is(err, models.ErrInvalidStyle),
		errors.Is(err, errUnsupportedFile),
		errors.Is(err, errBadRequest):
		return fiber.StatusBadRequest
	case errors.Is(err, errFileTooLarge):
		return fiber.StatusRequestEntityTooLarge
	case errors.Is(err, studio.ErrNothingRewritten):
		return fiber.StatusConflict
	case errors.Is(err, analyzer.ErrEmptyText):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, tts.ErrTTSDisabled):
		return fiber.StatusServiceUnavailable
	case errors.As(err, &fe):
		return fe.Code
	default:
		return fiber.StatusInternalServerError
	}
}

// handleError отдает ошибки в формате {"error": "..."}
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := statusFor(err)
	message := err.Error()

	if code >= fiber.StatusInternalServerError {
		s.logger.Error("ошибка обработки запроса",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", code),
			zap.Error(err))
		if code == fiber.StatusInternalServerError {
			message = "внутренняя ошибка сервера"
		}
	}

	return c.Status(code).JSON(fiber.Map{"error": message})
}
