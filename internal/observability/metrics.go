package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all custom instruments of the service
type Metrics struct {
	// Oracle calls
	OracleDuration metric.Float64Histogram
	OracleCalls    metric.Int64Counter
	OracleErrors   metric.Int64Counter
	OracleTokens   metric.Int64Histogram

	// Analysis flow
	Analyses           metric.Int64Counter
	ExtractionDuration metric.Float64Histogram
	SessionTransitions metric.Int64Counter

	RateLimitHits metric.Int64Counter
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)

	if m.OracleDuration, err = meter.Float64Histogram(
		"cvanalyzer_oracle_duration_seconds",
		metric.WithDescription("Time spent waiting for the scoring oracle"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create oracle duration metric: %w", err)
	}

	if m.OracleCalls, err = meter.Int64Counter(
		"cvanalyzer_oracle_calls_total",
		metric.WithDescription("Total number of oracle calls"),
	); err != nil {
		return nil, fmt.Errorf("failed to create oracle call metric: %w", err)
	}

	if m.OracleErrors, err = meter.Int64Counter(
		"cvanalyzer_oracle_errors_total",
		metric.WithDescription("Total number of failed oracle calls"),
	); err != nil {
		return nil, fmt.Errorf("failed to create oracle error metric: %w", err)
	}

	if m.OracleTokens, err = meter.Int64Histogram(
		"cvanalyzer_oracle_tokens",
		metric.WithDescription("Token usage per oracle call by token type"),
		metric.WithUnit("{token}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create oracle token metric: %w", err)
	}

	if m.Analyses, err = meter.Int64Counter(
		"cvanalyzer_analyses_total",
		metric.WithDescription("Total number of analyses by outcome"),
	); err != nil {
		return nil, fmt.Errorf("failed to create analyses metric: %w", err)
	}

	if m.ExtractionDuration, err = meter.Float64Histogram(
		"cvanalyzer_extraction_duration_seconds",
		metric.WithDescription("Time spent extracting document text by kind"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create extraction duration metric: %w", err)
	}

	if m.SessionTransitions, err = meter.Int64Counter(
		"cvanalyzer_session_transitions_total",
		metric.WithDescription("Total number of session phase transitions"),
	); err != nil {
		return nil, fmt.Errorf("failed to create session transition metric: %w", err)
	}

	if m.RateLimitHits, err = meter.Int64Counter(
		"cvanalyzer_rate_limit_hits_total",
		metric.WithDescription("Total number of requests rejected by the rate limiter"),
	); err != nil {
		return nil, fmt.Errorf("failed to create rate limit metric: %w", err)
	}

	return &m, nil
}

// Metrics returns the instruments, or nil when metrics are off
func (m *Manager) Metrics() *Metrics {
	if m == nil {
		return nil
	}
	return m.metrics
}

// OracleCallResult is what an instrumented oracle call reports back
type OracleCallResult struct {
	Err          error
	Model        string
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	HasUsage     bool
}

// TrackOracleCall runs fn inside an "oracle.<operation>" span and records
// duration, call and error counts and token usage
func (m *Manager) TrackOracleCall(ctx context.Context, operation string, fn func(context.Context) *OracleCallResult) error {
	ctx, span := m.Tracer("cvanalyzer/oracle").Start(ctx, "oracle."+operation)
	defer span.End()

	start := time.Now()
	result := fn(ctx)
	duration := time.Since(start).Seconds()

	if result == nil {
		result = &OracleCallResult{}
	}

	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.Bool("success", result.Err == nil),
	}
	if result.Model != "" {
		span.SetAttributes(attribute.String("oracle.model", result.Model))
	}
	span.SetAttributes(attrs...)

	if result.HasUsage {
		span.SetAttributes(
			attribute.Int64("oracle.tokens.input", result.InputTokens),
			attribute.Int64("oracle.tokens.output", result.OutputTokens),
			attribute.Int64("oracle.tokens.total", result.TotalTokens),
		)
	}
	if result.Err != nil {
		span.RecordError(result.Err)
		span.SetStatus(codes.Error, result.Err.Error())
	}

	metrics := m.Metrics()
	if metrics == nil {
		return result.Err
	}

	set := metric.WithAttributes(attrs...)
	metrics.OracleDuration.Record(ctx, duration, set)
	metrics.OracleCalls.Add(ctx, 1, set)
	if result.Err != nil {
		metrics.OracleErrors.Add(ctx, 1, set)
	}
	if result.HasUsage {
		recordTokens(ctx, metrics, operation, result)
	}

	return result.Err
}

func recordTokens(ctx context.Context, metrics *Metrics, operation string, result *OracleCallResult) {
	for _, tt := range []struct {
		tokenType string
		value     int64
	}{
		{"input", result.InputTokens},
		{"output", result.OutputTokens},
		{"total", result.TotalTokens},
	} {
		metrics.OracleTokens.Record(ctx, tt.value, metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("token_type", tt.tokenType),
		))
	}
}

// RecordAnalysis counts one finished analysis, extraction or batch item.
// outcome is "success" or an error code.
func (m *Manager) RecordAnalysis(ctx context.Context, operation, outcome string) {
	metrics := m.Metrics()
	if metrics == nil {
		return
	}
	metrics.Analyses.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

// RecordExtraction records how long text extraction took for one document kind
func (m *Manager) RecordExtraction(ctx context.Context, kind string, d time.Duration, err error) {
	metrics := m.Metrics()
	if metrics == nil {
		return
	}
	metrics.ExtractionDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.Bool("success", err == nil),
	))
}

// RecordSessionTransition counts a session moving between phases
func (m *Manager) RecordSessionTransition(ctx context.Context, from, to string) {
	metrics := m.Metrics()
	if metrics == nil {
		return
	}
	metrics.SessionTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

// RecordRateLimitHit counts a rejected request. keyType is "ip" or "api_key".
func (m *Manager) RecordRateLimitHit(ctx context.Context, keyType string) {
	metrics := m.Metrics()
	if metrics == nil {
		return
	}
	metrics.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attribute.String("key_type", keyType)))
}
