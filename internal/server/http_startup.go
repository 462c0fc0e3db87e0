package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"resumescreener/internal/config"
)

const shutdownTimeout = 30 * time.Second

// Handler returns the routed API wrapped in HTTP instrumentation
func (s *Server) Handler() http.Handler {
	return s.observability.HTTPMiddleware()(s.setupRoutes())
}

// Start serves the API until ctx is cancelled or SIGINT/SIGTERM arrives
func (s *Server) Start(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:         net.JoinHostPort(s.Host, s.Port),
		Handler:      s.Handler(),
		ReadTimeout:  s.ReadTimeout,
		WriteTimeout: s.WriteTimeout,
		IdleTimeout:  s.IdleTimeout,
	}

	stopWatcher, err := s.startPromptWatcher()
	if err != nil {
		return err
	}
	defer stopWatcher()

	s.displayServerInfo()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return s.serveUntilDone(ctx, httpServer)
}

// startPromptWatcher reloads prompt files on change when the server is configured to
func (s *Server) startPromptWatcher() (func(), error) {
	noop := func() {}
	if s.AppConfig == nil || !s.AppConfig.Server.WatchPrompts || s.AppConfig.Prompts == nil {
		return noop, nil
	}
	if len(s.AppConfig.Prompts.Paths()) == 0 {
		s.Logger.Info("Prompt watching enabled but no prompt files are configured")
		return noop, nil
	}

	watcher := config.NewPromptWatcher(s.AppConfig.Prompts, s.AppConfig.Server.DebounceDelay, func(err error) {
		if err != nil {
			s.Logger.LogError(err, "Prompt reload failed; keeping previous prompts")
			return
		}
		s.Logger.Info("Prompt files reloaded")
	}, s.Logger)

	if err := watcher.Start(); err != nil {
		return nil, fmt.Errorf("failed to start prompt watcher: %w", err)
	}
	return func() {
		if err := watcher.Stop(); err != nil {
			s.Logger.LogError(err, "Failed to stop prompt watcher")
		}
	}, nil
}

func (s *Server) serveUntilDone(ctx context.Context, server *http.Server) error {
	serverErrors := make(chan error, 1)

	go func() {
		s.Logger.Info("Starting HTTP server",
			"address", server.Addr,
			"tls_enabled", s.TLSConfig.Enabled())

		var err error
		if s.TLSConfig.Enabled() {
			err = server.ListenAndServeTLS(s.TLSConfig.CertFile, s.TLSConfig.KeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		s.cleanupRateLimiter()
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
		s.Logger.Info("Received shutdown signal, starting graceful shutdown")
		return s.performGracefulShutdown(server)
	}
}

func (s *Server) performGracefulShutdown(server *http.Server) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.cleanupRateLimiter()

	s.Logger.Info("Shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.Logger.LogError(err, "Failed to shutdown server gracefully, forcing close")
		return server.Close()
	}

	s.Logger.Info("Server shutdown completed successfully")
	return nil
}

func (s *Server) cleanupRateLimiter() {
	if s.RateLimiter != nil {
		s.RateLimiter.Close()
		s.Logger.Debug("Rate limiter cleaned up")
	}
}
