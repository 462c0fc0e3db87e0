package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"resumescreener/internal/ai"
	"resumescreener/internal/config"
	"resumescreener/internal/pipeline"
)

const defaultCollectionInterval = 15 * time.Second

// Metrics holds all custom metrics. It records AI calls and fallbacks as an
// ai.Observer and batch outcomes as a pipeline.Recorder.
type Metrics struct {
	toggles config.CustomMetricsConfig

	// AI operation metrics
	AIProcessingTime metric.Float64Histogram
	AIRequestCount   metric.Int64Counter
	AIErrorCount     metric.Int64Counter
	AITokenUsage     metric.Int64Histogram
	AIFallbacks      metric.Int64Counter

	// Business metrics
	JobsParsed      metric.Int64Counter
	ResumesScreened metric.Int64Counter
	CandidateScores metric.Int64Histogram

	// Rate limiting metrics
	RateLimitHits metric.Int64Counter
}

var (
	_ ai.Observer       = (*Metrics)(nil)
	_ pipeline.Recorder = (*Metrics)(nil)
)

// NewMetrics creates every instrument on meter
func NewMetrics(meter metric.Meter, toggles config.CustomMetricsConfig) (*Metrics, error) {
	m := &Metrics{toggles: toggles}

	if err := m.createAIMetrics(meter); err != nil {
		return nil, err
	}
	if err := m.createBusinessMetrics(meter); err != nil {
		return nil, err
	}

	var err error
	m.RateLimitHits, err = meter.Int64Counter(
		"screener_rate_limit_hits_total",
		metric.WithDescription("Total number of rate limited requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit hits metric: %w", err)
	}
	return m, nil
}

// createAIMetrics creates AI-related metrics
func (m *Metrics) createAIMetrics(meter metric.Meter) error {
	var err error

	m.AIProcessingTime, err = meter.Float64Histogram(
		"screener_ai_processing_duration_seconds",
		metric.WithDescription("Time spent processing AI requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create AI processing time metric: %w", err)
	}

	m.AIRequestCount, err = meter.Int64Counter(
		"screener_ai_requests_total",
		metric.WithDescription("Total number of AI requests"),
	)
	if err != nil {
		return fmt.Errorf("failed to create AI request count metric: %w", err)
	}

	m.AIErrorCount, err = meter.Int64Counter(
		"screener_ai_errors_total",
		metric.WithDescription("Total number of AI request errors"),
	)
	if err != nil {
		return fmt.Errorf("failed to create AI error count metric: %w", err)
	}

	m.AITokenUsage, err = meter.Int64Histogram(
		"screener_ai_token_usage",
		metric.WithDescription("Token usage per AI request by token type"),
		metric.WithUnit("tokens"),
	)
	if err != nil {
		return fmt.Errorf("failed to create AI token usage metric: %w", err)
	}

	m.AIFallbacks, err = meter.Int64Counter(
		"screener_ai_fallbacks_total",
		metric.WithDescription("Extractions and evaluations that fell back to a sentinel or heuristic result"),
	)
	if err != nil {
		return fmt.Errorf("failed to create AI fallback metric: %w", err)
	}

	return nil
}

// createBusinessMetrics creates screening metrics
func (m *Metrics) createBusinessMetrics(meter metric.Meter) error {
	var err error

	m.JobsParsed, err = meter.Int64Counter(
		"screener_jobs_parsed_total",
		metric.WithDescription("Total number of job descriptions parsed"),
	)
	if err != nil {
		return fmt.Errorf("failed to create jobs parsed metric: %w", err)
	}

	m.ResumesScreened, err = meter.Int64Counter(
		"screener_resumes_screened_total",
		metric.WithDescription("Total number of resumes screened by status"),
	)
	if err != nil {
		return fmt.Errorf("failed to create resumes screened metric: %w", err)
	}

	m.CandidateScores, err = meter.Int64Histogram(
		"screener_candidate_score",
		metric.WithDescription("Distribution of candidate final scores"),
		metric.WithExplicitBucketBoundaries(10, 20, 30, 40, 50, 60, 70, 75, 80, 90, 100),
	)
	if err != nil {
		return fmt.Errorf("failed to create candidate score metric: %w", err)
	}

	return nil
}

// AICall records one model call
func (m *Metrics) AICall(ctx context.Context, operation string, duration time.Duration, inputTokens, outputTokens int64, err error) {
	if !m.toggles.AIOperations.Enabled {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.Bool("success", err == nil),
	)

	if m.toggles.AIOperations.TrackDuration {
		m.AIProcessingTime.Record(ctx, duration.Seconds(), attrs)
	}
	m.AIRequestCount.Add(ctx, 1, attrs)
	if err != nil {
		m.AIErrorCount.Add(ctx, 1, attrs)
	}

	if m.toggles.AIOperations.TrackTokenUsage && (inputTokens > 0 || outputTokens > 0) {
		tokenTypes := []struct {
			tokenType string
			value     int64
		}{
			{"input", inputTokens},
			{"output", outputTokens},
			{"total", inputTokens + outputTokens},
		}
		for _, tt := range tokenTypes {
			m.AITokenUsage.Record(ctx, tt.value, metric.WithAttributes(
				attribute.String("operation", operation),
				attribute.String("token_type", tt.tokenType),
			))
		}
	}
}

// Fallback records an extraction or evaluation that did not use a valid model reply
func (m *Metrics) Fallback(ctx context.Context, operation, reason string) {
	if !m.toggles.BusinessMetrics.Enabled || !m.toggles.BusinessMetrics.TrackFallback {
		return
	}
	m.AIFallbacks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("reason", reason),
	))
}

// JobParsed records one job description extraction
func (m *Metrics) JobParsed(ctx context.Context, sentinel bool) {
	if !m.toggles.BusinessMetrics.Enabled {
		return
	}
	m.JobsParsed.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", !sentinel)))
}

// ResumeScreened records the outcome of one resume
func (m *Metrics) ResumeScreened(ctx context.Context, status string, score int) {
	if !m.toggles.BusinessMetrics.Enabled {
		return
	}
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.ResumesScreened.Add(ctx, 1, attrs)
	if m.toggles.BusinessMetrics.TrackScores {
		m.CandidateScores.Record(ctx, int64(score), attrs)
	}
}

// RateLimitHit records a request rejected by the rate limiter
func (m *Metrics) RateLimitHit(ctx context.Context, limitedBy string) {
	if !m.toggles.Infrastructure.Enabled || !m.toggles.Infrastructure.TrackRateLimits {
		return
	}
	m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attribute.String("limited_by", limitedBy)))
}
