package observability

import (
	"resumescreener/internal/config"
)

// GetObservabilityConfig resolves observability settings from the application config
func GetObservabilityConfig(cfg *config.Config, version string) ObservabilityConfig {
	obsConfig := cfg.Observability

	// Use app version if service version not specified
	serviceVersion := obsConfig.ServiceVersion
	if serviceVersion == "" {
		serviceVersion = version
	}

	sampleRate := obsConfig.SampleRate
	if obsConfig.Tracing.SampleRate > 0 && obsConfig.Tracing.SampleRate < sampleRate {
		sampleRate = obsConfig.Tracing.SampleRate
	}

	interval := obsConfig.Metrics.CollectionInterval
	if interval <= 0 {
		interval = defaultCollectionInterval
	}

	endpoint := obsConfig.Prometheus.Endpoint
	if endpoint == "" {
		endpoint = "/metrics"
	}

	return ObservabilityConfig{
		ServiceName:        obsConfig.ServiceName,
		ServiceVersion:     serviceVersion,
		ServiceInstance:    obsConfig.ServiceInstance,
		Enabled:            obsConfig.Enabled,
		TracingEnabled:     obsConfig.Tracing.Enabled,
		ConsoleOutput:      obsConfig.ConsoleOutput,
		SampleRate:         sampleRate,
		CollectionInterval: interval,
		CustomMetrics:      obsConfig.CustomMetrics,
		Prometheus: PrometheusConfig{
			Enabled:  obsConfig.Prometheus.Enabled && obsConfig.Metrics.Enabled,
			Endpoint: endpoint,
			Port:     obsConfig.Prometheus.Port,
		},
		OTLP: obsConfig.OTLP,
	}
}
