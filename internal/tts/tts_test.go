package tts

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"echoverse/internal/config"
	"echoverse/internal/metrics"
	"echoverse/pkg/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func assertTTSCounter(t *testing.T, reg *prometheus.Registry, provider, status string) {
	t.Helper()
	expected := `
# HELP tts_requests_total Общее количество запросов озвучки
# TYPE tts_requests_total counter
tts_requests_total{provider="` + provider + `",status="` + status + `"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "tts_requests_total"))
}

var mp3Frame = []byte("ID3\x03\x00\x00\x00\x00\x00\x00fake-mp3-payload")

type fakeService struct {
	data  []byte
	err   error
	delay time.Duration
	input string
}

func (f *fakeService) SynthesizeText(ctx context.Context, text string) ([]byte, error) {
	f.input = text
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.data, f.err
}

type fakeSpeechClient struct {
	model string
	text  string
}

func (f *fakeSpeechClient) TextToSpeech(ctx context.Context, model, text string) ([]byte, error) {
	f.model, f.text = model, text
	return mp3Frame, nil
}

func TestBuildNarrationInput(t *testing.T) {
	assert.Equal(t, "Wise Mentor style Once upon a time.", BuildNarrationInput(models.StyleWiseMentor, "Once upon a time."))
	assert.Equal(t, "Robotic style x", BuildNarrationInput(models.StyleRobotic, "x"))
}

func TestNarrate(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(zap.NewNop(), reg)
	svc := &fakeService{data: mp3Frame}
	n := NewNarrator(svc, "huggingface", time.Second, m, zap.NewNop())

	audio, err := n.Narrate(context.Background(), "Hello there.", models.StyleCalm)
	require.NoError(t, err)
	require.NotNil(t, audio)

	assert.Equal(t, "Calm style Hello there.", svc.input)
	assert.Equal(t, mp3Frame, audio.Data)
	assert.Equal(t, "audio/mpeg", audio.ContentType)
	assert.Equal(t, "EchoVerse.mp3", audio.FileName)
	assertTTSCounter(t, reg, "huggingface", "success")
}

func TestNarrate_Failure(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(zap.NewNop(), reg)
	n := NewNarrator(&fakeService{err: errors.New("503 model loading")}, "huggingface", time.Second, m, zap.NewNop())

	audio, err := n.Narrate(context.Background(), "text", models.StyleEnergetic)
	assert.Error(t, err)
	assert.Nil(t, audio)
	assertTTSCounter(t, reg, "huggingface", "failed")
}

func TestNarrate_Timeout(t *testing.T) {
	n := NewNarrator(&fakeService{data: mp3Frame, delay: time.Second}, "piper", 10*time.Millisecond,
		metrics.New(zap.NewNop(), prometheus.NewRegistry()), zap.NewNop())

	audio, err := n.Narrate(context.Background(), "text", models.StyleNarrative)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, audio)
}

func TestNarrate_Disabled(t *testing.T) {
	n := NewNarrator(nil, "", 0, metrics.New(zap.NewNop(), prometheus.NewRegistry()), zap.NewNop())

	audio, err := n.Narrate(context.Background(), "text", models.StyleCalm)
	assert.ErrorIs(t, err, ErrTTSDisabled)
	assert.Nil(t, audio)
}

func TestHuggingFaceService(t *testing.T) {
	client := &fakeSpeechClient{}
	svc := NewHuggingFaceService(client, "", zap.NewNop())

	data, err := svc.SynthesizeText(context.Background(), "Calm style hi")
	require.NoError(t, err)
	assert.Equal(t, mp3Frame, data)
	assert.Equal(t, DefaultHuggingFaceModel, client.model)
	assert.Equal(t, "Calm style hi", client.text)
}

func TestPiperService(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/synthesize-raw", r.URL.Path)
		assert.Equal(t, "Energetic style go", r.FormValue("text"))
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write([]byte("RIFF....WAVE"))
	}))
	defer server.Close()

	svc := NewPiperService(zap.NewNop(), server.URL+"/")
	data, err := svc.SynthesizeText(context.Background(), "Energetic style go")
	require.NoError(t, err)
	assert.Equal(t, []byte("RIFF....WAVE"), data)
}

func TestPiperService_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("text") == "empty" {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	svc := NewPiperService(zap.NewNop(), server.URL)

	_, err := svc.SynthesizeText(context.Background(), "fail")
	assert.ErrorContains(t, err, "500")

	_, err = svc.SynthesizeText(context.Background(), "empty")
	assert.Error(t, err)
}

func TestNewService(t *testing.T) {
	svc, err := NewService(&config.TTSConfig{Provider: config.ProviderHuggingFace, Model: "custom/model"}, &fakeSpeechClient{}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &HuggingFaceService{}, svc)
	assert.Equal(t, "custom/model", svc.(*HuggingFaceService).model)

	svc, err = NewService(&config.TTSConfig{Provider: config.ProviderPiper, PiperURL: "http://piper:5000"}, nil, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &PiperService{}, svc)

	_, err = NewService(&config.TTSConfig{Provider: "festival"}, nil, zap.NewNop())
	assert.Error(t, err)
}
