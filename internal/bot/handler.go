package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"echoverse/internal/analyzer"
	"echoverse/internal/studio"
	"echoverse/internal/tts"
	"echoverse/pkg/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	// Telegram ограничивает сообщение 4096 символами
	MaxMessageLength = 4000

	MaxRequestsPerMinute = 30
	RateLimitWindow      = time.Minute

	callbackTone  = "tone:"
	callbackStyle = "style:"
)

// botAPI часть tgbotapi.BotAPI, которой пользуется обработчик
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Handler представляет обработчик сообщений Telegram
type Handler struct {
	bot            botAPI
	studio         *studio.Service
	httpClient     *http.Client
	rateLimiter    *RateLimiter
	maxUploadBytes int
	logger         *zap.Logger
}

// NewHandler создает новый обработчик
func NewHandler(bot botAPI, svc *studio.Service, maxUploadBytes int, logger *zap.Logger) *Handler {
	return &Handler{
		bot:    bot,
		studio: svc,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		rateLimiter:    NewRateLimiter(MaxRequestsPerMinute, RateLimitWindow),
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

func sessionID(chatID int64) string {
	return fmt.Sprintf("tg:%d", chatID)
}

// HandleUpdate обрабатывает одно обновление
func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) error {
	var chatID int64
	switch {
	case update.Message != nil:
		chatID = update.Message.Chat.ID
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		chatID = update.CallbackQuery.Message.Chat.ID
	default:
		return nil
	}

	if !h.rateLimiter.IsAllowed(chatID) {
		h.logger.Warn("rate limit exceeded", zap.Int64("chat_id", chatID))
		if update.Message != nil {
			return h.sendMessage(chatID, msgRateLimited)
		}
		return nil
	}

	if update.CallbackQuery != nil {
		return h.handleCallbackQuery(ctx, update.CallbackQuery)
	}

	message := update.Message
	h.logger.Debug("получено обновление",
		zap.Int64("chat_id", chatID),
		zap.Int("text_length", len(message.Text)))

	switch {
	case message.IsCommand():
		return h.handleCommand(ctx, message)
	case message.Document != nil:
		return h.handleDocument(ctx, message)
	default:
		return h.handleText(ctx, message.Chat.ID, message.Text)
	}
}

// handleCommand обрабатывает команды
func (h *Handler) handleCommand(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID

	switch message.Command() {
	case "start", "help":
		return h.sendHTML(chatID, msgWelcome)
	case "tone":
		return h.sendToneKeyboard(chatID)
	case "style":
		return h.sendStyleKeyboard(chatID)
	case "audio":
		return h.handleAudioCommand(ctx, chatID)
	case "insights":
		return h.handleInsightsCommand(ctx, chatID)
	case "reset":
		if err := h.studio.Reset(ctx, sessionID(chatID)); err != nil {
			h.logger.Error("ошибка сброса сессии", zap.Error(err))
			return h.sendMessage(chatID, msgInternalError)
		}
		return h.sendMessage(chatID, msgReset)
	default:
		return h.sendMessage(chatID, msgUnknownCommand)
	}
}

// handleText переписывает текст в тоне сессии
func (h *Handler) handleText(ctx context.Context, chatID int64, text string) error {
	source, err := studio.ResolveSource(nil, text)
	if err != nil {
		return h.sendMessage(chatID, userMessage(err))
	}
	return h.rewrite(ctx, chatID, source)
}

// handleDocument переписывает содержимое загруженного .txt файла
func (h *Handler) handleDocument(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	doc := message.Document

	if !isTextDocument(doc) {
		return h.sendMessage(chatID, msgUnsupportedFile)
	}
	if h.maxUploadBytes > 0 && doc.FileSize > h.maxUploadBytes {
		return h.sendMessage(chatID, msgFileTooLarge)
	}

	data, err := h.downloadFile(ctx, doc.FileID)
	if err != nil {
		h.logger.Error("ошибка скачивания файла",
			zap.Int64("chat_id", chatID),
			zap.String("file_name", doc.FileName),
			zap.Error(err))
		if errors.Is(err, errFileTooLarge) {
			return h.sendMessage(chatID, msgFileTooLarge)
		}
		return h.sendMessage(chatID, msgDownloadFailed)
	}

	source, err := studio.ResolveSource(data, message.Caption)
	if err != nil {
		return h.sendMessage(chatID, userMessage(err))
	}
	return h.rewrite(ctx, chatID, source)
}

func isTextDocument(doc *tgbotapi.Document) bool {
	return strings.EqualFold(filepath.Ext(doc.FileName), ".txt") ||
		strings.HasPrefix(doc.MimeType, "text/plain")
}

var errFileTooLarge = errors.New("файл превышает допустимый размер")

// downloadFile скачивает файл Telegram целиком в память
func (h *Handler) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	url, err := h.bot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения ссылки на файл: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка скачивания файла: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("неудачный статус скачивания: %d", resp.StatusCode)
	}

	limit := int64(h.maxUploadBytes)
	if limit <= 0 {
		limit = 1 << 20
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, errFileTooLarge
	}
	return data, nil
}

func (h *Handler) rewrite(ctx context.Context, chatID int64, source string) error {
	session, err := h.studio.Session(ctx, sessionID(chatID))
	if err != nil {
		h.logger.Error("ошибка получения сессии", zap.Error(err))
		return h.sendMessage(chatID, msgInternalError)
	}

	h.sendTyping(chatID)
	if err := h.sendMessage(chatID, msgRewriting); err != nil {
		h.logger.Warn("ошибка отправки статуса", zap.Error(err))
	}

	result, err := h.studio.Rewrite(ctx, session.ID, source, session.Tone)
	if err != nil {
		h.logger.Error("ошибка переписывания", zap.Int64("chat_id", chatID), zap.Error(err))
		return h.sendMessage(chatID, userMessage(err))
	}

	if result.Degraded {
		if err := h.sendMessage(chatID, degradedNotice()); err != nil {
			return err
		}
	}
	return h.sendLongMessage(chatID, result.Text)
}

func (h *Handler) handleAudioCommand(ctx context.Context, chatID int64) error {
	session, err := h.studio.Session(ctx, sessionID(chatID))
	if err != nil {
		h.logger.Error("ошибка получения сессии", zap.Error(err))
		return h.sendMessage(chatID, msgInternalError)
	}
	if !session.HasRewrite() {
		return h.sendMessage(chatID, msgRewriteFirst)
	}

	if err := h.sendMessage(chatID, msgNarrating); err != nil {
		h.logger.Warn("ошибка отправки статуса", zap.Error(err))
	}

	audio, err := h.studio.Narrate(ctx, session.ID, session.Style)
	if err != nil {
		if errors.Is(err, tts.ErrTTSDisabled) || errors.Is(err, studio.ErrNothingRewritten) {
			return h.sendMessage(chatID, userMessage(err))
		}
		return h.sendMessage(chatID, narrationFailed(err))
	}
	if audio.Empty() {
		// нечего воспроизводить
		return nil
	}

	msg := tgbotapi.NewAudio(chatID, tgbotapi.FileBytes{
		Name:  audio.FileName,
		Bytes: audio.Data,
	})
	msg.Caption = audioCaption(session.Style)

	if _, err := h.bot.Send(msg); err != nil {
		h.logger.Error("ошибка отправки аудио", zap.Int64("chat_id", chatID), zap.Error(err))
		return err
	}

	h.logger.Info("аудио отправлено",
		zap.Int64("chat_id", chatID),
		zap.Int("audio_size", len(audio.Data)))
	return nil
}

func (h *Handler) handleInsightsCommand(ctx context.Context, chatID int64) error {
	result, err := h.studio.Insights(ctx, sessionID(chatID))
	if err != nil {
		return h.sendMessage(chatID, userMessage(err))
	}
	return h.sendHTML(chatID, insightsText(analyzer.RenderChart(result), result))
}

// handleCallbackQuery обрабатывает inline кнопки выбора тона и стиля
func (h *Handler) handleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	chatID := callback.Message.Chat.ID
	data := callback.Data

	// Отвечаем на callback (убираем "загрузку" кнопки)
	if _, err := h.bot.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		h.logger.Error("ошибка ответа на callback", zap.Error(err))
	}

	h.logger.Info("обрабатываем callback", zap.String("data", data), zap.Int64("chat_id", chatID))

	switch {
	case strings.HasPrefix(data, callbackTone):
		tone, err := models.ParseTone(strings.TrimPrefix(data, callbackTone))
		if err != nil {
			return err
		}
		if _, err := h.studio.SetTone(ctx, sessionID(chatID), tone); err != nil {
			h.logger.Error("ошибка сохранения тона", zap.Error(err))
			return h.sendMessage(chatID, msgInternalError)
		}
		return h.sendHTML(chatID, toneSelected(tone))

	case strings.HasPrefix(data, callbackStyle):
		style, err := models.ParseStyle(strings.TrimPrefix(data, callbackStyle))
		if err != nil {
			return err
		}
		if _, err := h.studio.SetStyle(ctx, sessionID(chatID), style); err != nil {
			h.logger.Error("ошибка сохранения стиля", zap.Error(err))
			return h.sendMessage(chatID, msgInternalError)
		}
		return h.sendHTML(chatID, styleSelected(style))

	default:
		h.logger.Warn("неизвестный callback", zap.String("data", data))
		return nil
	}
}

func (h *Handler) sendToneKeyboard(chatID int64) error {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, tone := range models.AllTones() {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(string(tone), callbackTone+string(tone)),
		))
	}
	msg := tgbotapi.NewMessage(chatID, msgChooseTone)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, err := h.bot.Send(msg)
	return err
}

func (h *Handler) sendStyleKeyboard(chatID int64) error {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, style := range models.AllStyles() {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(style.Emoji()+" "+string(style), callbackStyle+string(style)),
		))
	}
	msg := tgbotapi.NewMessage(chatID, msgChooseStyle)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, err := h.bot.Send(msg)
	return err
}

// userMessage превращает ошибку в текст для пользователя
func userMessage(err error) string {
	switch {
	case errors.Is(err, studio.ErrEmptySource), errors.Is(err, analyzer.ErrEmptyText):
		return msgEmptyText
	case errors.Is(err, studio.ErrInvalidEncoding):
		return msgInvalidEncoding
	case errors.Is(err, studio.ErrNothingRewritten):
		return msgRewriteFirst
	case errors.Is(err, tts.ErrTTSDisabled):
		return msgTTSDisabled
	default:
		return msgInternalError
	}
}

// sendMessage отправляет обычный текст без разметки
func (h *Handler) sendMessage(chatID int64, text string) error {
	_, err := h.bot.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		h.logger.Error("ошибка отправки сообщения",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	}
	return err
}

// sendHTML отправляет сообщение с HTML разметкой
func (h *Handler) sendHTML(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := h.bot.Send(msg)
	if err != nil {
		h.logger.Error("ошибка отправки HTML сообщения",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	}
	return err
}

// sendLongMessage режет текст на части по MaxMessageLength символов
func (h *Handler) sendLongMessage(chatID int64, text string) error {
	for _, chunk := range splitMessage(text, MaxMessageLength) {
		if err := h.sendMessage(chatID, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) sendTyping(chatID int64) {
	if _, err := h.bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		h.logger.Debug("ошибка отправки typing", zap.Error(err))
	}
}

// splitMessage делит текст по границам рун, предпочитая переводы строк
func splitMessage(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var chunks []string
	runes := []rune(text)
	for len(runes) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}
