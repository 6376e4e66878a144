package cli

import (
	"context"
	"fmt"

	"cvanalyzer/internal/common"
	"cvanalyzer/internal/config"
	"cvanalyzer/internal/errors"

	"github.com/spf13/cobra"
)

// Define custom private types for context keys.
type configKeyType struct{}
type loggerKeyType struct{}

// Use variables of these types as the keys.
var configKey = configKeyType{}
var loggerKey = loggerKeyType{}

// outputConfig is shared by every command through the persistent flags
var outputConfig common.CommandConfig

var rootCmd = &cobra.Command{
	Use:   "cvanalyzer",
	Short: "Score a CV against a job description",
	Long: `cvanalyzer extracts the text of a CV (PDF, DOCX or plain text), asks an
AI model how well it fits a job description and reports a fit score with
improvement suggestions and rewritten experience bullets.

It runs locally against the configured model, or as an HTTP service with
the serve command.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return err
		}
		if outputConfig.OutputFormat == "" {
			outputConfig.OutputFormat = cfg.App.DefaultFormat
		}
		return common.ValidateOutputFormat(outputConfig.OutputFormat, cfg.App.SupportedFormats)
	},
}

func Execute(ctx context.Context, cfg *config.Config, logger *errors.Logger) error {
	// Attach the config and logger to the context, making them available to all subcommands
	ctx = context.WithValue(ctx, configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, logger)
	rootCmd.SetContext(ctx)
	return rootCmd.Execute()
}

// getConfigFromContext is a helper function to get config from context
func getConfigFromContext(ctx context.Context) (*config.Config, error) {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok {
		return cfg, nil
	}
	return nil, fmt.Errorf("config not found in context")
}

// getLoggerFromContext is a helper function to get logger from context
func getLoggerFromContext(ctx context.Context) (*errors.Logger, error) {
	if logger, ok := ctx.Value(loggerKey).(*errors.Logger); ok {
		return logger, nil
	}
	return nil, fmt.Errorf("logger not found in context")
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	rootCmd.PersistentFlags().StringVar(&outputConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")

	_ = rootCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return []string{}, cobra.ShellCompDirectiveError
		}
		return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(bulletsCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
