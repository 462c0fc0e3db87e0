package server

import (
	"context"
	"io"
	"os"
	"sync/atomic"
	"time"

	"resumescreener/internal/ai"
	"resumescreener/internal/config"
	"resumescreener/internal/errors"
	"resumescreener/internal/observability"
	"resumescreener/internal/pipeline"
)

// ParseJobRequest represents the request body for the parse/job endpoint
type ParseJobRequest struct {
	JobDescription string `json:"jobDescription"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	TLSConfig config.TLSConfig

	// API Authentication
	APIKeys map[string]bool

	// Timeout configurations
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Request size limit
	MaxRequestSize int64

	// Rate limiting
	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	screener      *pipeline.Screener
	client        ai.Client
	observability *observability.Manager
	counters      counters

	// out receives the startup banner
	out io.Writer

	Logger *errors.Logger
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host           string
	Port           string
	Version        string
	TLSConfig      config.TLSConfig
	APIKeys        []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64
	RateLimit      *config.RateLimitConfig
}

// Dependencies are the screening components the handlers call into
type Dependencies struct {
	Screener      *pipeline.Screener
	Client        ai.Client
	Observability *observability.Manager
}

type counters struct {
	screenings      atomic.Int64
	resumesScreened atomic.Int64
	accepted        atomic.Int64
	failed          atomic.Int64
	jobsParsed      atomic.Int64
	resumesParsed   atomic.Int64
}

// ConfigFrom builds a ServerConfig from application configuration. The request
// limit allows a full batch of maximum-size files plus a megabyte of form overhead.
func ConfigFrom(cfg *config.Config, version string) ServerConfig {
	var maxRequest int64
	if cfg.App.MaxFileSize > 0 {
		files := int64(cfg.Screening.MaxResumes)
		if files < 1 {
			files = 1
		}
		maxRequest = cfg.App.MaxFileSize*files + 1<<20
	}

	rateLimit := cfg.Server.RateLimit
	return ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Version:        version,
		TLSConfig:      cfg.Server.TLS,
		APIKeys:        cfg.Server.APIKeys,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxRequestSize: maxRequest,
		RateLimit:      &rateLimit,
	}
}

// NewServer creates a new Server instance from a ServerConfig struct
func NewServer(appCfg *config.Config, cfg ServerConfig, deps Dependencies, logger *errors.Logger) *Server {
	if logger == nil {
		logger = errors.Discard()
	}

	apiKeyMap := make(map[string]bool)
	for _, key := range cfg.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(
			cfg.RateLimit.RequestsPerMin,
			cfg.RateLimit.BurstCapacity,
			logger,
		)
	}

	client := deps.Client
	if client == nil {
		client = ai.Unavailable{Reason: "AI client not configured"}
	}

	om := deps.Observability
	if om == nil {
		// a disabled manager never fails
		om, _ = observability.NewManager(context.Background(), observability.ObservabilityConfig{}, logger)
	}

	return &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        cfg.Version,
		AppConfig:      appCfg,
		TLSConfig:      cfg.TLSConfig,
		APIKeys:        apiKeyMap,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		RateLimit:      cfg.RateLimit,
		RateLimiter:    rateLimiter,
		screener:       deps.Screener,
		client:         client,
		observability:  om,
		out:            os.Stdout,
		Logger:         logger,
	}
}
