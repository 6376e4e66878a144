// Package assess turns résumé and job-description text into a normalized fit
// assessment. The oracle's reply is treated as untrusted: missing optional
// fields are defaulted, but a reply that is not a JSON object is rejected.
package assess

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"cvanalyzer/internal/ai"
	"cvanalyzer/internal/errors"
	"cvanalyzer/internal/types"
)

const (
	DefaultMaxResumeChars = 120000
	DefaultMaxJobChars    = 60000
)

// Assessor produces AnalysisResults through a scoring oracle. It is safe for
// concurrent use when the oracle is.
type Assessor struct {
	oracle         ai.Oracle
	logger         *errors.Logger
	maxResumeChars int
	maxJobChars    int
}

// Option configures an Assessor
type Option func(*Assessor)

// WithLogger sets the assessor's logger
func WithLogger(l *errors.Logger) Option {
	return func(a *Assessor) { a.logger = l }
}

// WithLimits sets the rune limits inputs are truncated to. Non-positive
// values disable truncation for that input.
func WithLimits(maxResumeChars, maxJobChars int) Option {
	return func(a *Assessor) {
		a.maxResumeChars = maxResumeChars
		a.maxJobChars = maxJobChars
	}
}

// NewAssessor creates an Assessor backed by oracle
func NewAssessor(oracle ai.Oracle, opts ...Option) *Assessor {
	a := &Assessor{
		oracle:         oracle,
		maxResumeChars: DefaultMaxResumeChars,
		maxJobChars:    DefaultMaxJobChars,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = errors.NewNopLogger()
	}
	return a
}

// Assess scores resume against jobDescription
func (a *Assessor) Assess(ctx context.Context, resume, jobDescription string) (*types.AnalysisResult, error) {
	resume = strings.TrimSpace(resume)
	jobDescription = strings.TrimSpace(jobDescription)
	if resume == "" {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidInput, "résumé text is empty", nil)
	}
	if jobDescription == "" {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidInput, "job description is empty", nil)
	}

	req := ai.OracleRequest{
		Operation:      ai.OperationAnalyzeFit,
		ResumeText:     truncateRunes(resume, a.maxResumeChars),
		JobDescription: truncateRunes(jobDescription, a.maxJobChars),
	}

	data, err := a.call(ctx, req)
	if err != nil {
		return nil, err
	}

	result := normalizeAnalysis(data)
	a.logger.Debug("Fit assessment normalized",
		"fit_score", result.FitScore,
		"suggestions", len(result.ImprovementSuggestions),
		"oracle_bullets", len(result.ExperienceEnhancement))
	return result, nil
}

// ExtractProfile pulls structured candidate fields out of resume
func (a *Assessor) ExtractProfile(ctx context.Context, resume string) (*types.ProfileExtraction, error) {
	resume = strings.TrimSpace(resume)
	if resume == "" {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidInput, "résumé text is empty", nil)
	}

	data, err := a.call(ctx, ai.OracleRequest{
		Operation:  ai.OperationExtractProfile,
		ResumeText: truncateRunes(resume, a.maxResumeChars),
	})
	if err != nil {
		return nil, err
	}
	return normalizeProfile(data), nil
}

// call runs one oracle request and decodes its reply into a JSON object
func (a *Assessor) call(ctx context.Context, req ai.OracleRequest) (map[string]any, error) {
	start := time.Now()
	reply, err := a.oracle.Complete(ctx, req)
	if err != nil {
		a.logger.LogError(err, "Oracle call failed",
			"operation", req.Operation,
			"duration", time.Since(start).String())
		return nil, translateOracleError(err)
	}

	data, err := parseObject(reply.Text)
	if err != nil {
		a.logger.Warn("Oracle reply is not a JSON object",
			"operation", req.Operation,
			"model", reply.Model,
			"reply_prefix", preview(reply.Text, 200))
		return nil, errors.NewOracleError(errors.ErrCodeOracleMalformedResponse,
			"the scoring service returned a reply that could not be read", err)
	}

	a.logger.Debug("Oracle call completed",
		"operation", req.Operation,
		"model", reply.Model,
		"duration", time.Since(start).String())
	return data, nil
}

// translateOracleError keeps classified errors and reports anything else as
// the oracle being unavailable
func translateOracleError(err error) error {
	if _, ok := errors.As(err); ok {
		return err
	}
	return errors.NewOracleError(errors.ErrCodeOracleUnavailable, "the scoring service is unavailable", err)
}

// truncateRunes cuts s to at most n runes; n <= 0 leaves s unchanged
func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

func preview(s string, n int) string {
	return truncateRunes(strings.TrimSpace(s), n)
}
