package cli

import (
	"github.com/spf13/cobra"

	"resumescreener/internal/errors"
	"resumescreener/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the screening HTTP API",
	Long: `Start an HTTP server exposing the screening pipeline.

Available endpoints:
- POST /screen: multipart form with a 'job' field (or 'job_file') and one or more 'files'
- POST /parse/job: JSON body {"jobDescription": "..."}
- POST /parse/resume: multipart form with a single 'file'
- GET /health: AI client and model status
- GET /stats: request counters and rate limiting info

TLS is enabled when both --cert-file and --key-file (or server.tls.*) are set.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from config)")
	serveCmd.Flags().String("cert-file", "", "Server certificate file (PEM, overrides config)")
	serveCmd.Flags().String("key-file", "", "Server private key file (PEM, overrides config)")
	serveCmd.Flags().Bool("watch-prompts", false, "Reload prompt files when they change (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	if err := applyServeFlags(cmd); err != nil {
		return err
	}

	a, err := appFromCommand(cmd, true)
	if err != nil {
		return err
	}
	defer a.close()

	srv := server.NewServer(cfg, server.ConfigFrom(cfg, Version), server.Dependencies{
		Screener:      a.screener,
		Client:        a.client,
		Observability: a.om,
	}, a.logger)
	return srv.Start(cmd.Context())
}

// applyServeFlags copies explicitly set flags over the loaded configuration
func applyServeFlags(cmd *cobra.Command) error {
	cfg := getConfigFromContext(cmd.Context())
	flags := cmd.Flags()

	if flags.Changed("host") {
		cfg.Server.Host, _ = flags.GetString("host")
	}
	if flags.Changed("port") {
		cfg.Server.Port, _ = flags.GetString("port")
	}
	if flags.Changed("cert-file") {
		cfg.Server.TLS.CertFile, _ = flags.GetString("cert-file")
	}
	if flags.Changed("key-file") {
		cfg.Server.TLS.KeyFile, _ = flags.GetString("key-file")
	}
	if flags.Changed("watch-prompts") {
		cfg.Server.WatchPrompts, _ = flags.GetBool("watch-prompts")
	}

	if (cfg.Server.TLS.CertFile == "") != (cfg.Server.TLS.KeyFile == "") {
		return errors.NewConfigError(errors.ErrCodeInvalidConfig,
			"TLS needs both a certificate and a key file", nil)
	}
	return nil
}
