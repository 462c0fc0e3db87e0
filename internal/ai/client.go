package ai

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"resumescreener/internal/config"
	"resumescreener/internal/errors"
)

// Operation names, used for routing, spans, metrics and logs
const (
	OpExtractJob        = "extract_job"
	OpExtractResume     = "extract_resume"
	OpEvaluateCandidate = "evaluate_candidate"
)

// Request is one structured-output call to the model
type Request struct {
	Operation    string
	Prompt       string
	SystemPrompt string
	Schema       *genai.Schema
}

// Backend sends a request to a model and returns its raw reply.
// Implementations must be safe for sequential reuse; the HTTP server may also call them concurrently.
type Backend interface {
	Generate(ctx context.Context, req Request) (*genai.GenerateContentResponse, error)
}

// Client is either Ready or Unavailable. The agents switch on the variant
// instead of checking for a nil client.
type Client interface {
	isClient()
}

// Ready wraps a working backend
type Ready struct {
	Backend Backend
}

// Unavailable records why no backend could be built
type Unavailable struct {
	Reason string
}

func (Ready) isClient()       {}
func (Unavailable) isClient() {}

// NewClient builds the Gemini-backed client from configuration. It never fails:
// a missing key or a constructor error yields an Unavailable client.
func NewClient(ctx context.Context, cfg *config.Config, observer Observer, logger *errors.Logger) Client {
	if logger == nil {
		logger = errors.Discard()
	}
	if cfg.AI.Provider != "" && cfg.AI.Provider != "gemini" {
		reason := fmt.Sprintf("unsupported AI provider: %s", cfg.AI.Provider)
		logger.Warn("AI client unavailable", "reason", reason)
		return Unavailable{Reason: reason}
	}

	extractCfg := cfg.GetExtractConfig()
	evaluateCfg := cfg.GetEvaluateConfig()
	if extractCfg.APIKey == "" || evaluateCfg.APIKey == "" {
		reason := "no API key configured (set SCREENER_AI_APIKEY, GOOGLE_API_KEY or GEMINI_API_KEY)"
		logger.Warn("AI client unavailable", "reason", reason)
		return Unavailable{Reason: reason}
	}

	logger.Debug("Initializing AI client",
		"provider", "gemini",
		"extract_model", extractCfg.Model,
		"evaluate_model", evaluateCfg.Model,
		"timeout", *extractCfg.Timeout,
		"max_retries", *extractCfg.MaxRetries,
		"use_system_prompts", *extractCfg.UseSystemPrompts)

	backend, err := NewGeminiBackend(ctx, extractCfg, evaluateCfg, observer, logger)
	if err != nil {
		logger.LogError(err, "AI client unavailable")
		return Unavailable{Reason: err.Error()}
	}
	return Ready{Backend: backend}
}

// Describe returns a short human-readable status for health output
func Describe(c Client) (ready bool, reason string) {
	switch v := c.(type) {
	case Ready:
		return v.Backend != nil, ""
	case Unavailable:
		return false, v.Reason
	default:
		return false, "AI client not configured"
	}
}

// Observer receives AI call outcomes and fallback events.
// Implementations must be safe for concurrent use.
type Observer interface {
	AICall(ctx context.Context, operation string, duration time.Duration, inputTokens, outputTokens int64, err error)
	Fallback(ctx context.Context, operation, reason string)
}

// NopObserver discards all events
type NopObserver struct{}

func (NopObserver) AICall(context.Context, string, time.Duration, int64, int64, error) {}
func (NopObserver) Fallback(context.Context, string, string)                           {}

// HealthReporter is implemented by backends that can report model availability
// and breaker state
type HealthReporter interface {
	GetModelInfo(ctx context.Context) []ModelInfo
	GetCircuitBreakerStats() map[string]any
}
