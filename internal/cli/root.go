package cli

import (
	"context"

	"github.com/spf13/cobra"

	"resumescreener/internal/config"
	"resumescreener/internal/errors"
)

// Define custom private types for context keys.
type configKeyType struct{}
type loggerKeyType struct{}

var configKey = configKeyType{}
var loggerKey = loggerKeyType{}

var rootCmd = &cobra.Command{
	Use:   "resumescreener",
	Short: "Screen resumes against a job description using AI",
	Long: `resumescreener extracts structured requirements from a job description,
builds a candidate profile from each resume (PDF, DOCX, DOC, TXT or Markdown)
and scores every candidate against the job, producing a ranked table with a
rationale per candidate. It can also serve the same pipeline over HTTP.`,
	SilenceUsage: true,
}

// Execute runs the root command with cfg and logger available to every subcommand
func Execute(ctx context.Context, cfg *config.Config, logger *errors.Logger) error {
	ctx = context.WithValue(ctx, configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, logger)
	rootCmd.SetContext(ctx)
	return rootCmd.Execute()
}

func getConfigFromContext(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok {
		return cfg
	}
	panic("config not found in context")
}

func getLoggerFromContext(ctx context.Context) *errors.Logger {
	if logger, ok := ctx.Value(loggerKey).(*errors.Logger); ok {
		return logger
	}
	panic("logger not found in context")
}

func init() {
	rootCmd.AddCommand(screenCmd)
	rootCmd.AddCommand(parseJobCmd)
	rootCmd.AddCommand(parseResumeCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
