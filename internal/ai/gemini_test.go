package ai_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumescreener/internal/ai"
	"resumescreener/internal/ai/aitest"
	"resumescreener/internal/config"
	"resumescreener/internal/errors"
)

const okReply = `{
  "candidates": [{
    "content": {"role": "model", "parts": [{"text": "{\"job_title\":\"Gemini Engineer\"}"}]},
    "finishReason": "STOP"
  }],
  "usageMetadata": {"promptTokenCount": 12, "candidatesTokenCount": 4, "totalTokenCount": 16}
}`

// fakeGemini answers generateContent calls with the scripted status codes, then okReply
type fakeGemini struct {
	mu       sync.Mutex
	statuses []int
	hits     int
	bodies   []string
}

func (f *fakeGemini) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/models/gemini-2.5-flash") {
		_, _ = io.WriteString(w, `{"name":"models/gemini-2.5-flash","displayName":"Gemini 2.5 Flash","version":"001"}`)
		return
	}
	if !strings.HasSuffix(r.URL.Path, ":generateContent") {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":{"code":404,"message":"not found","status":"NOT_FOUND"}}`)
		return
	}

	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.hits++
	f.bodies = append(f.bodies, string(body))
	status := http.StatusOK
	if len(f.statuses) > 0 {
		status, f.statuses = f.statuses[0], f.statuses[1:]
	}
	f.mu.Unlock()

	if status != http.StatusOK {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, `{"error":{"code":`+strconv.Itoa(status)+`,"message":"scripted failure","status":"UNAVAILABLE"}}`)
		return
	}
	_, _ = io.WriteString(w, okReply)
}

func (f *fakeGemini) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits
}

func operationConfig(baseURL string, retries int, useSystem bool) config.OperationAIConfig {
	timeout := 5 * time.Second
	temperature := float32(0.1)
	return config.OperationAIConfig{
		Provider:         "gemini",
		Model:            "gemini-2.5-flash",
		APIKey:           "test-key",
		BaseURL:          baseURL,
		Timeout:          &timeout,
		MaxRetries:       &retries,
		Temperature:      &temperature,
		UseSystemPrompts: &useSystem,
	}
}

func newTestBackend(t *testing.T, fake *fakeGemini, retries int, useSystem bool, observer ai.Observer) *ai.GeminiBackend {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	cfg := operationConfig(srv.URL, retries, useSystem)
	backend, err := ai.NewGeminiBackend(context.Background(), cfg, cfg, observer, errors.Discard())
	require.NoError(t, err)
	ai.SetRetryBaseDelay(backend, time.Millisecond)
	return backend
}

func jobRequest() ai.Request {
	return ai.Request{
		Operation:    ai.OpExtractJob,
		Prompt:       "Describe the job",
		SystemPrompt: "SYSTEM-INSTRUCTIONS",
		Schema:       ai.JobRequirementsSchema(),
	}
}

func TestGeminiBackendGenerate(t *testing.T) {
	fake := &fakeGemini{}
	observer := aitest.NewObserver()
	backend := newTestBackend(t, fake, 0, true, observer)

	resp, err := backend.Generate(context.Background(), jobRequest())
	require.NoError(t, err)

	text, err := ai.ResponseText(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"job_title":"Gemini Engineer"}`, text)
	assert.Equal(t, 1, observer.Calls(ai.OpExtractJob))

	require.Len(t, fake.bodies, 1)
	assert.Contains(t, fake.bodies[0], "systemInstruction")
	assert.Contains(t, fake.bodies[0], "application/json")
}

func TestGeminiBackendInlinesSystemPromptWhenDisabled(t *testing.T) {
	fake := &fakeGemini{}
	backend := newTestBackend(t, fake, 0, false, nil)

	_, err := backend.Generate(context.Background(), jobRequest())
	require.NoError(t, err)

	require.Len(t, fake.bodies, 1)
	assert.NotContains(t, fake.bodies[0], "systemInstruction")
	assert.Contains(t, fake.bodies[0], "SYSTEM-INSTRUCTIONS")
}

func TestGeminiBackendRetriesServerErrors(t *testing.T) {
	fake := &fakeGemini{statuses: []int{http.StatusServiceUnavailable}}
	backend := newTestBackend(t, fake, 2, true, nil)

	_, err := backend.Generate(context.Background(), jobRequest())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, fake.count(), 2)
}

func TestGeminiBackendDoesNotRetryClientErrors(t *testing.T) {
	fake := &fakeGemini{statuses: []int{http.StatusBadRequest, http.StatusBadRequest}}
	backend := newTestBackend(t, fake, 3, true, nil)

	_, err := backend.Generate(context.Background(), jobRequest())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeAIServiceFailed))
	assert.Equal(t, 1, fake.count())
}

func TestGeminiBackendNoRetriesByDefault(t *testing.T) {
	fake := &fakeGemini{statuses: []int{
		http.StatusServiceUnavailable, http.StatusServiceUnavailable, http.StatusServiceUnavailable,
		http.StatusServiceUnavailable, http.StatusServiceUnavailable, http.StatusServiceUnavailable,
	}}
	backend := newTestBackend(t, fake, 0, true, nil)

	_, err := backend.Generate(context.Background(), jobRequest())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeAIServiceFailed))
}

func TestGeminiBackendModelInfo(t *testing.T) {
	backend := newTestBackend(t, &fakeGemini{}, 0, true, nil)

	infos := backend.GetModelInfo(context.Background())
	require.Len(t, infos, 1)
	assert.True(t, infos[0].Available, infos[0].Error)
	assert.Equal(t, "Gemini 2.5 Flash", infos[0].DisplayName)

	stats := backend.GetCircuitBreakerStats()
	assert.Equal(t, true, stats["overall_healthy"])
}

func TestNewClientWithoutKeyIsUnavailable(t *testing.T) {
	cfg := &config.Config{AI: config.AIConfig{Provider: "gemini", Model: "gemini-2.5-flash"}}
	client := ai.NewClient(context.Background(), cfg, nil, errors.Discard())

	ready, reason := ai.Describe(client)
	assert.False(t, ready)
	assert.Contains(t, reason, "API key")

	cfg.AI.Provider = "openai"
	cfg.AI.APIKey = "k"
	_, reason = ai.Describe(ai.NewClient(context.Background(), cfg, nil, errors.Discard()))
	assert.Contains(t, reason, "unsupported AI provider")
}
