package bot

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"echoverse/internal/metrics"
	"echoverse/internal/store"
	"echoverse/internal/studio"
	"echoverse/pkg/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testChatID int64 = 42

type fakeBot struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	fileURL  string
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeBot) GetFileDirectURL(fileID string) (string, error) {
	if f.fileURL == "" {
		return "", errors.New("no file")
	}
	return f.fileURL + "/" + fileID, nil
}

func (f *fakeBot) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m.Text)
		}
	}
	return out
}

func (f *fakeBot) lastText() string {
	texts := f.texts()
	if len(texts) == 0 {
		return ""
	}
	return texts[len(texts)-1]
}

func (f *fakeBot) audios() []tgbotapi.AudioConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.AudioConfig
	for _, c := range f.sent {
		if a, ok := c.(tgbotapi.AudioConfig); ok {
			out = append(out, a)
		}
	}
	return out
}

type fakeRewriter struct {
	degrade bool
	last    string
}

func (f *fakeRewriter) Rewrite(ctx context.Context, text string, tone models.Tone) *models.RewriteResult {
	f.last = text
	if f.degrade {
		return &models.RewriteResult{Text: text, Degraded: true}
	}
	return &models.RewriteResult{Text: string(tone) + ": " + text, Model: "m"}
}

type fakeNarrator struct {
	audio *models.Audio
	err   error
	style models.NarrationStyle
}

func (f *fakeNarrator) Narrate(ctx context.Context, text string, style models.NarrationStyle) (*models.Audio, error) {
	f.style = style
	return f.audio, f.err
}

type testEnv struct {
	handler  *Handler
	bot      *fakeBot
	rewriter *fakeRewriter
	narrator *fakeNarrator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	rw := &fakeRewriter{}
	n := &fakeNarrator{audio: &models.Audio{Data: []byte("ID3"), ContentType: "audio/mpeg", FileName: models.DefaultAudioFileName}}
	svc := studio.NewService(rw, n, store.NewMemoryStore(logger).Session(), metrics.New(logger, prometheus.NewRegistry()), logger)
	b := &fakeBot{}
	return &testEnv{handler: NewHandler(b, svc, 1024, logger), bot: b, rewriter: rw, narrator: n}
}

func textUpdate(text string) tgbotapi.Update {
	msg := &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: testChatID}, Text: text}
	if strings.HasPrefix(text, "/") {
		cmd := strings.Fields(text)[0]
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	}
	return tgbotapi.Update{Message: msg}
}

func callbackUpdate(data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		Data:    data,
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: testChatID}},
	}}
}

func documentUpdate(name, mime string, size int, caption string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: testChatID},
		Caption:  caption,
		Document: &tgbotapi.Document{FileID: "file-1", FileName: name, MimeType: mime, FileSize: size},
	}}
}

func TestStartCommand(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.handler.HandleUpdate(context.Background(), textUpdate("/start")))
	assert.Contains(t, env.bot.lastText(), "EchoVerse")
}

func TestTextRewriteUsesSessionTone(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	require.NoError(t, env.handler.HandleUpdate(ctx, callbackUpdate("tone:Suspenseful")))
	require.NoError(t, env.handler.HandleUpdate(ctx, textUpdate("The door opened.")))

	assert.Equal(t, "Suspenseful: The door opened.", env.bot.lastText())
	assert.NotEmpty(t, env.bot.requests)
}

func TestDegradedRewriteIsFlagged(t *testing.T) {
	env := newTestEnv(t)
	env.rewriter.degrade = true

	require.NoError(t, env.handler.HandleUpdate(context.Background(), textUpdate("Original.")))

	texts := env.bot.texts()
	require.GreaterOrEqual(t, len(texts), 2)
	assert.Equal(t, degradedNotice(), texts[len(texts)-2])
	assert.Equal(t, "Original.", texts[len(texts)-1])
}

func TestToneKeyboard(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.handler.HandleUpdate(context.Background(), textUpdate("/tone")))

	require.Len(t, env.bot.sent, 1)
	msg := env.bot.sent[0].(tgbotapi.MessageConfig)
	markup := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.Len(t, markup.InlineKeyboard, 4)
	assert.Equal(t, "tone:Neutral", *markup.InlineKeyboard[0][0].CallbackData)
}

func TestInvalidCallbackTone(t *testing.T) {
	env := newTestEnv(t)
	err := env.handler.HandleUpdate(context.Background(), callbackUpdate("tone:Angry"))
	assert.ErrorIs(t, err, models.ErrInvalidTone)
}

func TestAudioCommand(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	require.NoError(t, env.handler.HandleUpdate(ctx, textUpdate("/audio")))
	assert.Equal(t, msgRewriteFirst, env.bot.lastText())
	assert.Empty(t, env.bot.audios())

	require.NoError(t, env.handler.HandleUpdate(ctx, textUpdate("Hello.")))
	require.NoError(t, env.handler.HandleUpdate(ctx, callbackUpdate("style:Calm")))
	require.NoError(t, env.handler.HandleUpdate(ctx, textUpdate("/audio")))

	audios := env.bot.audios()
	require.Len(t, audios, 1)
	file := audios[0].File.(tgbotapi.FileBytes)
	assert.Equal(t, "EchoVerse.mp3", file.Name)
	assert.Equal(t, []byte("ID3"), file.Bytes)
	assert.Equal(t, models.StyleCalm, env.narrator.style)
}

func TestAudioFailureSendsNothing(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	require.NoError(t, env.handler.HandleUpdate(ctx, textUpdate("Hello.")))

	env.narrator.audio, env.narrator.err = nil, errors.New("model loading")
	require.NoError(t, env.handler.HandleUpdate(ctx, textUpdate("/audio")))
	assert.Empty(t, env.bot.audios())
	assert.Contains(t, env.bot.lastText(), "model loading")

	env.narrator.err = nil
	require.NoError(t, env.handler.HandleUpdate(ctx, textUpdate("/audio")))
	assert.Empty(t, env.bot.audios())
}

func TestInsightsCommand(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.rewriter.degrade = true

	require.NoError(t, env.handler.HandleUpdate(ctx, textUpdate("/insights")))
	assert.Equal(t, msgRewriteFirst, env.bot.lastText())

	require.NoError(t, env.handler.HandleUpdate(ctx, textUpdate("The cat sat. The cat ran.")))
	require.NoError(t, env.handler.HandleUpdate(ctx, textUpdate("/insights")))

	last := env.bot.lastText()
	assert.Contains(t, last, "<pre>")
	assert.Contains(t, last, "complexity: 69.67")
}

func TestResetCommand(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	require.NoError(t, env.handler.HandleUpdate(ctx, textUpdate("Hello.")))
	require.NoError(t, env.handler.HandleUpdate(ctx, textUpdate("/reset")))
	assert.Equal(t, msgReset, env.bot.lastText())

	require.NoError(t, env.handler.HandleUpdate(ctx, textUpdate("/audio")))
	assert.Equal(t, msgRewriteFirst, env.bot.lastText())
}

func TestDocumentUpload(t *testing.T) {
	content := "  Uploaded story.\r\n"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/file-1", r.URL.Path)
		_, _ = w.Write([]byte(content))
	}))
	defer server.Close()

	env := newTestEnv(t)
	env.bot.fileURL = server.URL

	require.NoError(t, env.handler.HandleUpdate(context.Background(), documentUpdate("story.txt", "text/plain", len(content), "ignored caption")))
	assert.Equal(t, content, env.rewriter.last)
}

func TestDocumentRejected(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	require.NoError(t, env.handler.HandleUpdate(ctx, documentUpdate("story.pdf", "application/pdf", 10, "")))
	assert.Equal(t, msgUnsupportedFile, env.bot.lastText())

	require.NoError(t, env.handler.HandleUpdate(ctx, documentUpdate("big.txt", "text/plain", 4096, "")))
	assert.Equal(t, msgFileTooLarge, env.bot.lastText())

	require.NoError(t, env.handler.HandleUpdate(ctx, documentUpdate("story.txt", "text/plain", 10, "")))
	assert.Equal(t, msgDownloadFailed, env.bot.lastText())
	assert.Empty(t, env.rewriter.last)
}

func TestDocumentInvalidEncoding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte{0xff, 0xfe, 0x00})
	}))
	defer server.Close()

	env := newTestEnv(t)
	env.bot.fileURL = server.URL

	require.NoError(t, env.handler.HandleUpdate(context.Background(), documentUpdate("story.txt", "text/plain", 3, "")))
	assert.Equal(t, msgInvalidEncoding, env.bot.lastText())
}

func TestEmptyText(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.handler.HandleUpdate(context.Background(), textUpdate("   ")))
	assert.Equal(t, msgEmptyText, env.bot.lastText())
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.IsAllowed(1))
	assert.True(t, rl.IsAllowed(1))
	assert.False(t, rl.IsAllowed(1))
	assert.True(t, rl.IsAllowed(2))

	now = now.Add(time.Minute)
	assert.True(t, rl.IsAllowed(1))
}

func TestRateLimiterForgetsIdleChats(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for chatID := int64(1); chatID <= 100; chatID++ {
		assert.True(t, rl.IsAllowed(chatID))
	}
	assert.Len(t, rl.requests, 100)

	now = now.Add(30 * time.Second)
	assert.True(t, rl.IsAllowed(1))
	assert.Len(t, rl.requests, 100)

	now = now.Add(time.Minute)
	assert.True(t, rl.IsAllowed(500))
	assert.Len(t, rl.requests, 1)
	assert.Contains(t, rl.requests, int64(500))
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitMessage("short", 10))

	chunks := splitMessage("aaaa\nbbbbbbbb", 6)
	assert.Equal(t, []string{"aaaa\n", "bbbbbb", "bb"}, chunks)

	chunks = splitMessage(strings.Repeat("я", 9), 4)
	assert.Equal(t, []string{"яяяя", "яяяя", "я"}, chunks)
}
