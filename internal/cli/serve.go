package cli

import (
	"context"
	"fmt"
	"time"

	"cvanalyzer/internal/config"
	"cvanalyzer/internal/errors"
	"cvanalyzer/internal/observability"
	"cvanalyzer/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP analysis server",
	Long: `Start an HTTP server that exposes CV analysis as a REST API.

Available endpoints:
- POST /analyze: Score a CV (multipart "file") against "jobDescription"
- POST /analyze/batch: Score several CVs (multipart "files")
- POST /extract: Extract a candidate profile from a CV
- POST /bullets: Render experience bullets for a stored result
- GET /models: List models available to the configured API key
- GET /health: Health check endpoint
- GET /stats: Server statistics and rate limiting info

TLS Configuration:
- Use --tls-mode to set TLS mode: disabled, server
- Use --cert-file and --key-file for TLS certificates; they are reloaded
  when the files change

With --watch, log level and rate limits follow edits to the config file.`,
	RunE: runServe,
}

var serveOpts struct {
	port     string
	host     string
	tlsMode  string
	certFile string
	keyFile  string
	watch    bool
}

func init() {
	serveCmd.Flags().StringVarP(&serveOpts.port, "port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().StringVar(&serveOpts.host, "host", "", "Host to bind to (default from config)")
	serveCmd.Flags().StringVar(&serveOpts.tlsMode, "tls-mode", "", "TLS mode: disabled, server (overrides config)")
	serveCmd.Flags().StringVar(&serveOpts.certFile, "cert-file", "", "Server certificate file (PEM, overrides config)")
	serveCmd.Flags().StringVar(&serveOpts.keyFile, "key-file", "", "Server private key file (PEM, overrides config)")
	serveCmd.Flags().BoolVar(&serveOpts.watch, "watch", false, "Reload log level and rate limits when the config file changes")
}

// applyServeOverrides copies non-empty flag values onto cfg
func applyServeOverrides(cfg *config.Config) {
	overrides := []struct {
		value  string
		target *string
	}{
		{serveOpts.port, &cfg.Server.Port},
		{serveOpts.host, &cfg.Server.Host},
		{serveOpts.tlsMode, &cfg.Server.TLS.Mode},
		{serveOpts.certFile, &cfg.Server.TLS.CertFile},
		{serveOpts.keyFile, &cfg.Server.TLS.KeyFile},
	}
	for _, o := range overrides {
		if o.value != "" {
			*o.target = o.value
		}
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return err
	}
	logger, err := getLoggerFromContext(cmd.Context())
	if err != nil {
		return err
	}

	applyServeOverrides(cfg)
	if err := cfg.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}

	obs, err := observability.NewManager(cfg, Version, observability.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := obs.Shutdown(ctx); err != nil {
			logger.LogError(err, "Observability shutdown failed")
		}
	}()

	pipeline, oracle, err := buildPipeline(cmd.Context(), cfg, obs, logger)
	if err != nil {
		return err
	}

	srv := server.NewServer(cfg, Version, server.Dependencies{
		Pipeline:      pipeline,
		Oracle:        oracle,
		Observability: obs,
		Logger:        logger,
	})

	if serveOpts.watch {
		watching := cfg.Watch(logger, func(next *config.Config) {
			if level, err := errors.ParseLevel(next.App.LogLevel); err == nil {
				logger.SetLevel(level)
			}
			srv.ApplyConfig(next)
		})
		if !watching {
			logger.Warn("--watch ignored: no config file was loaded")
		}
	}

	return srv.Start(cmd.Context())
}
