package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"time"

	"resumescreener/internal/ai"
	"resumescreener/internal/errors"
)

const (
	defaultServiceName        = "resumescreener"
	defaultHealthCheckTimeout = 5 * time.Second
)

// healthHandler reports AI client readiness, model availability and breaker state
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ready, reason := ai.Describe(s.client)

	aiStatus := map[string]any{"ready": ready}
	if reason != "" {
		aiStatus["reason"] = reason
	}

	healthy := ready
	if reporter, ok := s.healthReporter(); ok {
		ctx, cancel := context.WithTimeout(r.Context(), s.healthCheckTimeout())
		defer cancel()

		models := reporter.GetModelInfo(ctx)
		for _, m := range models {
			if !m.Available {
				healthy = false
			}
		}
		aiStatus["models"] = models
		aiStatus["circuit_breakers"] = reporter.GetCircuitBreakerStats()
	}

	response := map[string]any{
		"status":  "healthy",
		"service": s.serviceName(),
		"version": s.Version,
		"ai":      aiStatus,
	}

	status := http.StatusOK
	if !healthy {
		response["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

func (s *Server) healthReporter() (ai.HealthReporter, bool) {
	readyClient, ok := s.client.(ai.Ready)
	if !ok {
		return nil, false
	}
	reporter, ok := readyClient.Backend.(ai.HealthReporter)
	return reporter, ok
}

func (s *Server) healthCheckTimeout() time.Duration {
	if s.AppConfig != nil {
		if t := s.AppConfig.Observability.HealthCheck.AIModelCheckTimeout; t > 0 {
			return t
		}
		if t := s.AppConfig.Observability.HealthCheck.Timeout; t > 0 {
			return t
		}
	}
	return defaultHealthCheckTimeout
}

// statsHandler provides server statistics including rate limiting info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service": s.serviceName(),
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
			"max_file_size_bytes":    s.maxFileSize(),
		},
		"screening": map[string]any{
			"batches":          s.counters.screenings.Load(),
			"resumes_screened": s.counters.resumesScreened.Load(),
			"accepted":         s.counters.accepted.Load(),
			"failed":           s.counters.failed.Load(),
			"jobs_parsed":      s.counters.jobsParsed.Load(),
			"resumes_parsed":   s.counters.resumesParsed.Load(),
		},
	}

	if s.AppConfig != nil {
		response["screening_config"] = map[string]any{
			"threshold":            s.AppConfig.Screening.Threshold,
			"enforce_threshold":    s.AppConfig.Screening.EnforceThreshold,
			"max_resumes":          s.AppConfig.Screening.MaxResumes,
			"abort_on_job_failure": s.AppConfig.Screening.AbortOnJobFailure,
			"storage_policy":       s.AppConfig.Storage.Policy,
		}
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.Stats()
	} else {
		response["rate_limiting"] = map[string]any{"enabled": false}
	}

	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_api_key":       s.RateLimit.ByAPIKey,
		}
	}

	writeJSON(w, http.StatusOK, response)
}

func (s *Server) serviceName() string {
	if s.AppConfig != nil && s.AppConfig.Observability.ServiceName != "" {
		return s.AppConfig.Observability.ServiceName
	}
	return defaultServiceName
}

func (s *Server) maxFileSize() int64 {
	if s.AppConfig == nil {
		return 0
	}
	return s.AppConfig.App.MaxFileSize
}

func (s *Server) supportedFormats() []string {
	if s.AppConfig == nil {
		return nil
	}
	return s.AppConfig.App.SupportedFormats
}

// parseJSONRequest parses JSON request body into the provided struct
func parseJSONRequest(r *http.Request, v any) error {
	if mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mediaType != "application/json" {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "content-type must be application/json", nil)
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) {
			return errors.NewValidationError(errors.ErrCodeFileTooLarge,
				fmt.Sprintf("request body too large (limit is %d bytes)", maxBytesErr.Limit), err)
		}
		return errors.NewIOError(errors.ErrCodeInvalidRequest, "failed to read request body", err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "failed to parse JSON", err)
	}
	return nil
}

// statusFor maps an error to its HTTP status. Intake problems are the caller's
// fault; an unparseable job or resume is well-formed but unprocessable.
func statusFor(err error) int {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		return http.StatusInternalServerError
	}

	switch appErr.Code {
	case errors.ErrCodeFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case errors.ErrCodeJobParsingFailed, errors.ErrCodeEmptyText, errors.ErrCodeExtractionFailed:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeClientUnavailable:
		return http.StatusServiceUnavailable
	}

	switch appErr.Type {
	case errors.ErrorTypeValidation:
		return http.StatusBadRequest
	case errors.ErrorTypeNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeAppError writes err as an ErrorResponse with the status statusFor picks
func writeAppError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	resp := ErrorResponse{Error: http.StatusText(status), Message: err.Error()}
	if appErr, ok := errors.AsAppError(err); ok {
		resp.Message = appErr.Message
		resp.Code = appErr.Code
	}
	writeJSON(w, status, resp)
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, error, message string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{Error: error, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}
