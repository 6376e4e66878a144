package cli

import (
	"context"
	"fmt"

	"cvanalyzer/internal/ai"
	"cvanalyzer/internal/analysis"
	"cvanalyzer/internal/assess"
	"cvanalyzer/internal/config"
	"cvanalyzer/internal/errors"
	"cvanalyzer/internal/extract"
	"cvanalyzer/internal/observability"
)

// buildPipeline wires the oracle, assessor and extractor described by cfg.
// obs may be nil.
func buildPipeline(ctx context.Context, cfg *config.Config, obs *observability.Manager, logger *errors.Logger) (*analysis.Pipeline, ai.Oracle, error) {
	oracle, err := ai.NewOracle(ctx, cfg, obs, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create oracle: %w", err)
	}

	assessor := assess.NewAssessor(oracle,
		assess.WithLogger(logger),
		assess.WithLimits(cfg.App.MaxResumeChars, cfg.App.MaxJobChars))

	pipeline := analysis.NewPipeline(newExtractor(cfg), assessor,
		analysis.WithLogger(logger),
		analysis.WithObservability(obs),
		analysis.WithBatchConcurrency(cfg.App.BatchConcurrency))

	return pipeline, oracle, nil
}

// buildExtractionPipeline returns a pipeline that can only extract text
func buildExtractionPipeline(cfg *config.Config, logger *errors.Logger) *analysis.Pipeline {
	return analysis.NewPipeline(newExtractor(cfg), nil, analysis.WithLogger(logger))
}

func newExtractor(cfg *config.Config) *extract.Extractor {
	return extract.New(extract.WithMaxSize(cfg.App.MaxFileSizeBytes()))
}
