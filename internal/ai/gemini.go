package ai

import (
	"context"
	"crypto/rand"
	stderrors "errors"
	"fmt"
	"math"
	"math/big"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"

	"resumescreener/internal/config"
	"resumescreener/internal/errors"
)

const (
	maxBackoff        = 30 * time.Second
	modelCheckTimeout = 10 * time.Second
)

// operationGroup holds the settings and breaker shared by one group of operations
type operationGroup struct {
	name    string
	client  *genai.Client
	cfg     config.OperationAIConfig
	breaker *AICircuitBreaker
}

// GeminiBackend implements Backend on the Gemini API. Job and resume extraction
// share the "extract" group; candidate evaluation uses the "evaluate" group.
type GeminiBackend struct {
	extract      *operationGroup
	evaluate     *operationGroup
	modelBreaker *ModelCircuitBreaker
	observer     Observer
	logger       *errors.Logger

	// baseDelay is the first retry backoff; it doubles per attempt
	baseDelay time.Duration
}

var _ Backend = (*GeminiBackend)(nil)

// NewGeminiBackend creates the Gemini backend. Both groups share one genai
// client unless they are configured with different keys or endpoints.
func NewGeminiBackend(ctx context.Context, extractCfg, evaluateCfg config.OperationAIConfig, observer Observer, logger *errors.Logger) (*GeminiBackend, error) {
	if observer == nil {
		observer = NopObserver{}
	}
	if logger == nil {
		logger = errors.Discard()
	}

	extractClient, err := newGenaiClient(ctx, extractCfg)
	if err != nil {
		return nil, err
	}
	evaluateClient := extractClient
	if evaluateCfg.APIKey != extractCfg.APIKey || evaluateCfg.BaseURL != extractCfg.BaseURL {
		if evaluateClient, err = newGenaiClient(ctx, evaluateCfg); err != nil {
			return nil, err
		}
	}

	return &GeminiBackend{
		extract: &operationGroup{
			name:    "extract",
			client:  extractClient,
			cfg:     extractCfg,
			breaker: NewAICircuitBreaker("extract", extractCfg.CircuitBreaker, logger),
		},
		evaluate: &operationGroup{
			name:    "evaluate",
			client:  evaluateClient,
			cfg:     evaluateCfg,
			breaker: NewAICircuitBreaker("evaluate", evaluateCfg.CircuitBreaker, logger),
		},
		modelBreaker: NewModelCircuitBreaker(extractCfg.CircuitBreaker, logger),
		observer:     observer,
		logger:       logger,
		baseDelay:    time.Second,
	}, nil
}

func newGenaiClient(ctx context.Context, cfg config.OperationAIConfig) (*genai.Client, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed, "Failed to create Gemini client", err)
	}
	return client, nil
}

func (g *GeminiBackend) groupFor(operation string) *operationGroup {
	if operation == OpEvaluateCandidate {
		return g.evaluate
	}
	return g.extract
}

// Generate sends one structured-output request to Gemini
func (g *GeminiBackend) Generate(ctx context.Context, req Request) (*genai.GenerateContentResponse, error) {
	group := g.groupFor(req.Operation)
	cfg := group.cfg

	tracer := otel.Tracer("resumescreener.ai.gemini")
	ctx, span := tracer.Start(ctx, "gemini."+req.Operation)
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", cfg.Model),
		attribute.String("ai.operation_group", group.name),
		attribute.Int("input.prompt_length", len(req.Prompt)),
	)

	if cfg.Timeout != nil && *cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *cfg.Timeout)
		defer cancel()
	}

	genaiConfig := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   req.Schema,
	}
	if cfg.Temperature != nil && *cfg.Temperature > 0 {
		genaiConfig.Temperature = cfg.Temperature
	}

	prompt := req.Prompt
	if req.SystemPrompt != "" {
		if cfg.UseSystemPrompts == nil || *cfg.UseSystemPrompts {
			genaiConfig.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
		} else {
			prompt = req.SystemPrompt + "\n\n" + req.Prompt
		}
	}

	start := time.Now()
	result, err := group.breaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return g.executeWithRetry(ctx, req.Operation, maxRetries(cfg), func() (*genai.GenerateContentResponse, error) {
			return group.client.Models.GenerateContent(ctx, cfg.Model, genai.Text(prompt), genaiConfig)
		})
	})
	duration := time.Since(start)

	usage := extractTokenUsage(result)
	var inputTokens, outputTokens int64
	if usage != nil {
		inputTokens, outputTokens = usage.InputTokens, usage.OutputTokens
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", usage.InputTokens),
			attribute.Int64("ai.tokens.output", usage.OutputTokens),
			attribute.Int64("ai.tokens.total", usage.TotalTokens),
		)
	}
	g.observer.AICall(ctx, req.Operation, duration, inputTokens, outputTokens, err)

	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		code := errors.ErrCodeAIServiceFailed
		if stderrors.Is(err, context.DeadlineExceeded) {
			code = errors.ErrCodeAITimeout
		}
		return nil, errors.NewAIError(code, "Failed to generate content for "+req.Operation, err)
	}

	span.SetAttributes(attribute.Bool("success", true))
	return result, nil
}

func maxRetries(cfg config.OperationAIConfig) int {
	if cfg.MaxRetries == nil || *cfg.MaxRetries < 0 {
		return 0
	}
	return *cfg.MaxRetries
}

// executeWithRetry runs fn up to retries+1 times with exponential backoff and jitter
func (g *GeminiBackend) executeWithRetry(ctx context.Context, operation string, retries int, fn func() (*genai.GenerateContentResponse, error)) (*genai.GenerateContentResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			g.logger.Warn("Retrying AI operation",
				"operation", operation,
				"attempt", attempt,
				"max_retries", retries,
				"error", lastErr.Error())

			select {
			case <-time.After(g.backoff(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		result, err := fn()
		if err == nil {
			if attempt > 0 {
				g.logger.Info("AI operation succeeded after retry",
					"operation", operation,
					"total_attempts", attempt+1)
			}
			return result, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			g.logger.Debug("Error is not retryable, stopping retry attempts",
				"operation", operation,
				"error", err.Error())
			break
		}
	}

	if retries == 0 {
		return nil, lastErr
	}
	return nil, fmt.Errorf("operation '%s' failed after %d retries: %w", operation, retries, lastErr)
}

func (g *GeminiBackend) backoff(attempt int) time.Duration {
	base := time.Duration(math.Pow(2, float64(attempt-1))) * g.baseDelay
	var jitter time.Duration
	if limit := int64(float64(base) * 0.1); limit > 0 {
		if n, err := rand.Int(rand.Reader, big.NewInt(limit)); err == nil {
			jitter = time.Duration(n.Int64())
		}
	}
	return min(base+jitter, maxBackoff)
}

// isRetryableError reports network failures and 429/5xx API responses
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return true
	}

	if code, ok := apiStatusCode(err); ok {
		switch code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
	}
	return false
}

func apiStatusCode(err error) (int, bool) {
	var genaiErr genai.APIError
	if stderrors.As(err, &genaiErr) {
		return genaiErr.Code, true
	}
	var genaiErrPtr *genai.APIError
	if stderrors.As(err, &genaiErrPtr) && genaiErrPtr != nil {
		return genaiErrPtr.Code, true
	}
	var apiErr *googleapi.Error
	if stderrors.As(err, &apiErr) {
		return apiErr.Code, true
	}
	return 0, false
}

// ModelInfo describes the configured model's availability
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}

// GetModelInfo checks that the models of both operation groups can be resolved
func (g *GeminiBackend) GetModelInfo(ctx context.Context) []ModelInfo {
	infos := []ModelInfo{g.modelInfo(ctx, g.extract)}
	if g.evaluate.cfg.Model != g.extract.cfg.Model || g.evaluate.client != g.extract.client {
		infos = append(infos, g.modelInfo(ctx, g.evaluate))
	}
	return infos
}

func (g *GeminiBackend) modelInfo(ctx context.Context, group *operationGroup) ModelInfo {
	info := ModelInfo{Name: group.cfg.Model}

	checkCtx, cancel := context.WithTimeout(ctx, modelCheckTimeout)
	defer cancel()

	model, err := g.modelBreaker.ExecuteModel(func() (*genai.Model, error) {
		return group.client.Models.Get(checkCtx, group.cfg.Model, &genai.GetModelConfig{})
	})
	if err != nil {
		info.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.logger.Warn("Model availability check failed",
			"model", group.cfg.Model,
			"error", err.Error())
		return info
	}

	info.Available = true
	info.DisplayName = model.DisplayName
	info.Version = model.Version
	g.logger.Debug("Model availability check successful",
		"model", group.cfg.Model,
		"display_name", info.DisplayName,
		"version", info.Version)
	return info
}

// GetCircuitBreakerStats returns breaker statistics for the stats endpoint
func (g *GeminiBackend) GetCircuitBreakerStats() map[string]any {
	return map[string]any{
		"extract":         g.extract.breaker.GetStats(),
		"evaluate":        g.evaluate.breaker.GetStats(),
		"model":           g.modelBreaker.GetModelStats(),
		"overall_healthy": g.extract.breaker.IsHealthy() && g.evaluate.breaker.IsHealthy() && g.modelBreaker.IsModelHealthy(),
	}
}
