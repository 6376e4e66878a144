package ai

import (
	"context"
	"fmt"

	"cvanalyzer/internal/config"
	"cvanalyzer/internal/errors"
	"cvanalyzer/internal/observability"
)

// NewOracle builds the oracle named by cfg.AI.Provider and wraps it with
// telemetry when obs is non-nil
func NewOracle(ctx context.Context, cfg *config.Config, obs *observability.Manager, logger *errors.Logger, opts ...GeminiOption) (Oracle, error) {
	if logger == nil {
		logger = errors.NewNopLogger()
	}

	logger.Debug("Initializing oracle",
		"provider", cfg.AI.Provider,
		"model", cfg.AI.Model,
		"timeout", cfg.AI.Timeout,
		"max_retries", cfg.AI.MaxRetries)

	var oracle Oracle
	switch cfg.AI.Provider {
	case "gemini", "":
		provider, err := NewGeminiProvider(ctx, cfg, logger, opts...)
		if err != nil {
			return nil, err
		}
		oracle = provider
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported oracle provider: %s", cfg.AI.Provider), nil)
	}

	if obs == nil {
		return oracle, nil
	}
	return Instrument(oracle, obs), nil
}
