package observability

import (
	"fmt"
	"net"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"resumescreener/internal/errors"
)

// PrometheusConfig holds Prometheus-specific configuration
type PrometheusConfig struct {
	Enabled  bool
	Endpoint string
	Port     string // empty mounts the endpoint on the API server
}

// prometheusEndpoint pairs the OTel reader with the handler serving its registry
type prometheusEndpoint struct {
	reader  sdkmetric.Reader
	handler http.Handler
}

// newPrometheusEndpoint exports OTel metrics into a private registry that also
// carries the Go runtime and process collectors
func newPrometheusEndpoint(config PrometheusConfig) (*prometheusEndpoint, error) {
	registry := promclient.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	return &prometheusEndpoint{
		reader:  exporter,
		handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
	}, nil
}

// StartPrometheusServer serves the metrics endpoint on a dedicated port
func StartPrometheusServer(endpoint *prometheusEndpoint, port string, logger *errors.Logger) (*http.Server, error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", endpoint.handler)

	addr := ":" + port
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second, // Prevent Slowloris attacks
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.LogError(err, "Prometheus server error")
		}
	}()

	logger.Info("Prometheus metrics server started", "address", listener.Addr().String(), "path", "/metrics")
	return server, nil
}
