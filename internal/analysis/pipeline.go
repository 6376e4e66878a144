// Package analysis wires text extraction to fit assessment for single
// documents, batches and a remote analysis service.
package analysis

import (
	"context"
	"strings"
	"time"

	"cvanalyzer/internal/assess"
	"cvanalyzer/internal/errors"
	"cvanalyzer/internal/extract"
	"cvanalyzer/internal/observability"
	"cvanalyzer/internal/session"
	"cvanalyzer/internal/types"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Pipeline extracts a document's text and then assesses it. Assessment never
// runs on a failed extraction.
type Pipeline struct {
	extractor *extract.Extractor
	assessor  *assess.Assessor
	obs       *observability.Manager
	logger    *errors.Logger

	batchConcurrency int
}

var _ session.Analyzer = (*Pipeline)(nil)

// Option configures a Pipeline
type Option func(*Pipeline)

// WithLogger sets the pipeline logger
func WithLogger(l *errors.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithObservability records extraction timings and analysis outcomes on m
func WithObservability(m *observability.Manager) Option {
	return func(p *Pipeline) { p.obs = m }
}

// WithBatchConcurrency bounds how many batch files are processed at once
func WithBatchConcurrency(n int) Option {
	return func(p *Pipeline) { p.batchConcurrency = n }
}

// NewPipeline creates a Pipeline
func NewPipeline(extractor *extract.Extractor, assessor *assess.Assessor, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor:        extractor,
		assessor:         assessor,
		batchConcurrency: 4,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = errors.NewNopLogger()
	}
	if p.batchConcurrency < 1 {
		p.batchConcurrency = 1
	}
	return p
}

// Analyze implements session.Analyzer
func (p *Pipeline) Analyze(ctx context.Context, doc types.UploadedDocument, jobDescription string) (*types.AnalysisResult, error) {
	ctx, span := p.obs.Tracer("cvanalyzer/analysis").Start(ctx, "analysis.analyze")
	defer span.End()
	span.SetAttributes(attribute.String("document.filename", doc.Filename))

	result, err := p.analyze(ctx, doc, jobDescription)
	p.obs.RecordAnalysis(ctx, "analyze", outcome(err))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, errors.CodeOf(err))
		return nil, err
	}
	span.SetAttributes(attribute.Int("analysis.fit_score", result.FitScore))
	return result, nil
}

func (p *Pipeline) analyze(ctx context.Context, doc types.UploadedDocument, jobDescription string) (*types.AnalysisResult, error) {
	if strings.TrimSpace(jobDescription) == "" {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidInput, "job description is required", nil)
	}

	text, err := p.Extract(ctx, doc)
	if err != nil {
		return nil, err
	}
	return p.assessor.Assess(ctx, text, jobDescription)
}

// ExtractProfile extracts doc's text and pulls structured candidate fields from it
func (p *Pipeline) ExtractProfile(ctx context.Context, doc types.UploadedDocument) (*types.ProfileExtraction, error) {
	ctx, span := p.obs.Tracer("cvanalyzer/analysis").Start(ctx, "analysis.extract_profile")
	defer span.End()

	text, err := p.Extract(ctx, doc)
	if err == nil {
		var profile *types.ProfileExtraction
		profile, err = p.assessor.ExtractProfile(ctx, text)
		if err == nil {
			p.obs.RecordAnalysis(ctx, "extract", outcome(nil))
			return profile, nil
		}
	}

	p.obs.RecordAnalysis(ctx, "extract", outcome(err))
	span.RecordError(err)
	span.SetStatus(codes.Error, errors.CodeOf(err))
	return nil, err
}

// Extract returns the plain text of doc, recording how long it took per kind
func (p *Pipeline) Extract(ctx context.Context, doc types.UploadedDocument) (string, error) {
	if len(doc.Data) == 0 {
		return "", errors.NewValidationError(errors.ErrCodeInvalidInput, "a CV file is required", nil)
	}

	kind, err := extract.KindOf(doc.Filename, doc.MediaType)
	if err != nil {
		return "", err
	}

	start := time.Now()
	text, err := p.extractor.ExtractKind(kind, doc)
	elapsed := time.Since(start)
	p.obs.RecordExtraction(ctx, string(kind), elapsed, err)

	if err != nil {
		p.logger.LogError(err, "Text extraction failed",
			"filename", doc.Filename,
			"kind", kind,
			"duration", elapsed.String())
		return "", err
	}

	p.logger.Debug("Text extracted",
		"filename", doc.Filename,
		"kind", kind,
		"chars", len(text),
		"duration", elapsed.String())
	return text, nil
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	return errors.CodeOf(err)
}
