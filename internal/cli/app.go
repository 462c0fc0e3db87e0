package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"resumescreener/internal/ai"
	"resumescreener/internal/common"
	"resumescreener/internal/config"
	"resumescreener/internal/errors"
	"resumescreener/internal/observability"
	"resumescreener/internal/pipeline"
	"resumescreener/internal/storage"
)

// app is the wired screening stack shared by every command
type app struct {
	cfg      *config.Config
	logger   *errors.Logger
	om       *observability.Manager
	usage    *common.UsageTally
	client   ai.Client
	screener *pipeline.Screener
}

// newApp builds observability, the AI client, both agents, the retention policy
// and the screener. Only serve exposes Prometheus; one-shot commands would
// otherwise bind the metrics port for a few seconds.
func newApp(ctx context.Context, cfg *config.Config, logger *errors.Logger, serving bool) (*app, error) {
	obsConfig := observability.GetObservabilityConfig(cfg, Version)
	if !serving {
		obsConfig.Prometheus.Enabled = false
	}
	om, err := observability.NewManager(ctx, obsConfig, logger)
	if err != nil {
		return nil, err
	}
	metrics := om.Metrics()

	usage := common.NewUsageTally(metrics)
	client := ai.NewClient(ctx, cfg, usage, logger)
	prompts := ai.NewPrompts(cfg)

	retainer, err := storage.New(ctx, cfg.Storage, logger)
	if err != nil {
		_ = om.Shutdown(ctx)
		return nil, err
	}

	screener := pipeline.New(
		ai.NewExtractor(client, prompts, cfg.Screening.Heuristics, usage, logger),
		ai.NewEvaluator(client, prompts, ai.ThresholdPolicyFrom(cfg.Screening), usage, logger),
		cfg.Screening,
		logger,
		pipeline.WithRetainer(retainer),
		pipeline.WithRecorder(metrics),
	)

	return &app{
		cfg:      cfg,
		logger:   logger,
		om:       om,
		usage:    usage,
		client:   client,
		screener: screener,
	}, nil
}

func appFromCommand(cmd *cobra.Command, serving bool) (*app, error) {
	return newApp(cmd.Context(), getConfigFromContext(cmd.Context()), getLoggerFromContext(cmd.Context()), serving)
}

// runner returns the file-command runner for this app
func (a *app) runner() common.Runner {
	return common.Runner{
		Logger:      a.logger,
		Usage:       a.usage,
		MaxFileSize: a.cfg.App.MaxFileSize,
	}
}

// close flushes telemetry
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.om.Shutdown(ctx); err != nil {
		a.logger.LogError(err, "Failed to shutdown observability")
	}
}

// addOutputFlags registers --output and --format on cmd
func addOutputFlags(cmd *cobra.Command, cmdConfig *common.CommandConfig) {
	cmd.Flags().StringVarP(&cmdConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&cmdConfig.OutputFormat, "format", "", "Output format: json, text, markdown or csv")

	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return cfg.App.SupportedFormats, cobra.ShellCompDirectiveNoFileComp
	})
}

// resolveOutputFormat returns a PreRunE that applies the default format and validates it
func resolveOutputFormat(cmdConfig *common.CommandConfig) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		format, err := common.ResolveOutputFormat(cmdConfig.OutputFormat, cfg.App.DefaultFormat, cfg.App.SupportedFormats)
		if err != nil {
			return err
		}
		cmdConfig.OutputFormat = format
		return nil
	}
}
