package server

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"echoverse/internal/analyzer"
	"echoverse/internal/studio"
	"echoverse/pkg/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type rewriteRequest struct {
	Text string `json:"text" form:"text"`
	Tone string `json:"tone" form:"tone"`
}

type audioRequest struct {
	Style string `json:"style" form:"style"`
}

type insightsResponse struct {
	*models.AnalysisResult
	Bars []analyzer.Bar `json:"bars"`
}

func (s *Server) handleOptions(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"tones":  models.AllTones(),
		"styles": models.AllStyles(),
	})
}

func (s *Server) handleSession(c *fiber.Ctx) error {
	session, err := s.studio.Session(c.UserContext(), sessionID(c))
	if err != nil {
		return err
	}
	return c.JSON(session)
}

func (s *Server) handleRewrite(c *fiber.Ctx) error {
	var req rewriteRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fmt.Errorf("%w: %v", errBadRequest, err)
		}
	}

	upload, err := s.readUpload(c)
	if err != nil {
		return err
	}

	source, err := studio.ResolveSource(upload, req.Text)
	if err != nil {
		return err
	}

	id := sessionID(c)
	tone, err := s.resolveTone(c, id, req.Tone)
	if err != nil {
		return err
	}

	result, err := s.studio.Rewrite(c.UserContext(), id, source, tone)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// resolveTone берет тон из запроса или из сессии
func (s *Server) resolveTone(c *fiber.Ctx, id, raw string) (models.Tone, error) {
	if strings.TrimSpace(raw) != "" {
		return models.ParseTone(raw)
	}
	session, err := s.studio.Session(c.UserContext(), id)
	if err != nil {
		return "", err
	}
	return session.Tone, nil
}

// readUpload возвращает содержимое поля file или nil, если файл не передан
func (s *Server) readUpload(c *fiber.Ctx) ([]byte, error) {
	if !strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		return nil, nil
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return nil, nil
	}
	if !strings.EqualFold(filepath.Ext(fh.Filename), ".txt") {
		return nil, errUnsupportedFile
	}
	if fh.Size > int64(s.cfg.MaxUploadBytes) {
		return nil, errFileTooLarge
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия файла: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла: %w", err)
	}

	s.logger.Debug("получен файл",
		zap.String("filename", fh.Filename),
		zap.Int("size", len(data)))
	return data, nil
}

func (s *Server) handleAudio(c *fiber.Ctx) error {
	var req audioRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fmt.Errorf("%w: %v", errBadRequest, err)
		}
	}

	id := sessionID(c)
	style, err := s.resolveStyle(c, id, req.Style)
	if err != nil {
		return err
	}

	audio, err := s.studio.Narrate(c.UserContext(), id, style)
	if err != nil {
		code := statusFor(err)
		if code == fiber.StatusInternalServerError {
			// сбой внешнего сервиса озвучки
			code = fiber.StatusBadGateway
		}
		return fiber.NewError(code, err.Error())
	}
	if audio.Empty() {
		return c.SendStatus(fiber.StatusNoContent)
	}

	if c.QueryBool("download") {
		c.Attachment(audio.FileName)
	}
	c.Set(fiber.HeaderContentType, audio.ContentType)
	return c.Send(audio.Data)
}

// resolveStyle берет стиль из запроса или из сессии
func (s *Server) resolveStyle(c *fiber.Ctx, id, raw string) (models.NarrationStyle, error) {
	if strings.TrimSpace(raw) != "" {
		return models.ParseStyle(raw)
	}
	session, err := s.studio.Session(c.UserContext(), id)
	if err != nil {
		return "", err
	}
	return session.Style, nil
}

func (s *Server) handleInsights(c *fiber.Ctx) error {
	result, err := s.studio.Insights(c.UserContext(), sessionID(c))
	if err != nil {
		return err
	}
	return c.JSON(insightsResponse{
		AnalysisResult: result,
		Bars:           analyzer.Bars(result),
	})
}

func (s *Server) handleReset(c *fiber.Ctx) error {
	if err := s.studio.Reset(c.UserContext(), sessionID(c)); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
