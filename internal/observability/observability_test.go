package observability

import (
	"context"
	stderrors "errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cvanalyzer/internal/config"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestManager(t *testing.T) (*Manager, *sdkmetric.ManualReader) {
	t.Helper()
	cfg := config.Default()
	cfg.Observability.Console.Enabled = false
	cfg.Observability.OTLP.Enabled = false
	cfg.Observability.Prometheus.Enabled = false

	reader := sdkmetric.NewManualReader()
	m, err := NewManager(cfg, "test", WithMetricReader(reader))
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Failed to collect metrics: %v", err)
	}
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumOf(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("Expected int64 sum for %s, got %T", m.Name, m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestTrackOracleCall(t *testing.T) {
	m, reader := newTestManager(t)
	ctx := context.Background()

	err := m.TrackOracleCall(ctx, "analyze_fit", func(context.Context) *OracleCallResult {
		return &OracleCallResult{Model: "gemini-test", InputTokens: 100, OutputTokens: 20, TotalTokens: 120, HasUsage: true}
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	failure := stderrors.New("upstream down")
	err = m.TrackOracleCall(ctx, "analyze_fit", func(context.Context) *OracleCallResult {
		return &OracleCallResult{Err: failure}
	})
	if !stderrors.Is(err, failure) {
		t.Fatalf("Expected wrapped call error, got %v", err)
	}

	metrics := collect(t, reader)
	if got := sumOf(t, metrics["cvanalyzer_oracle_calls_total"]); got != 2 {
		t.Errorf("Expected 2 oracle calls, got %d", got)
	}
	if got := sumOf(t, metrics["cvanalyzer_oracle_errors_total"]); got != 1 {
		t.Errorf("Expected 1 oracle error, got %d", got)
	}

	tokens, ok := metrics["cvanalyzer_oracle_tokens"].Data.(metricdata.Histogram[int64])
	if !ok {
		t.Fatalf("Expected token histogram, got %T", metrics["cvanalyzer_oracle_tokens"].Data)
	}
	if len(tokens.DataPoints) != 3 {
		t.Errorf("Expected one data point per token type, got %d", len(tokens.DataPoints))
	}
}

func TestRecordDomainMetrics(t *testing.T) {
	m, reader := newTestManager(t)
	ctx := context.Background()

	m.RecordAnalysis(ctx, "analyze", "success")
	m.RecordAnalysis(ctx, "analyze", "EMPTY_DOCUMENT")
	m.RecordExtraction(ctx, "pdf", 25*time.Millisecond, nil)
	m.RecordSessionTransition(ctx, "Idle", "Loading")
	m.RecordRateLimitHit(ctx, "ip")

	metrics := collect(t, reader)
	if got := sumOf(t, metrics["cvanalyzer_analyses_total"]); got != 2 {
		t.Errorf("Expected 2 analyses, got %d", got)
	}
	if got := sumOf(t, metrics["cvanalyzer_session_transitions_total"]); got != 1 {
		t.Errorf("Expected 1 transition, got %d", got)
	}
	if got := sumOf(t, metrics["cvanalyzer_rate_limit_hits_total"]); got != 1 {
		t.Errorf("Expected 1 rate limit hit, got %d", got)
	}
	if _, ok := metrics["cvanalyzer_extraction_duration_seconds"]; !ok {
		t.Error("Expected extraction duration to be recorded")
	}
}

func TestNilManagerIsNoop(t *testing.T) {
	var m *Manager
	ctx := context.Background()

	m.RecordAnalysis(ctx, "analyze", "success")
	m.RecordRateLimitHit(ctx, "ip")
	called := false
	err := m.TrackOracleCall(ctx, "extract_profile", func(context.Context) *OracleCallResult {
		called = true
		return nil
	})
	if err != nil || !called {
		t.Errorf("Expected fn to run without error, called=%v err=%v", called, err)
	}
	if m.Enabled() {
		t.Error("Expected nil manager to report disabled")
	}
	if err := m.Shutdown(ctx); err != nil {
		t.Errorf("Expected nil shutdown to succeed, got %v", err)
	}
}

func TestDisabledManager(t *testing.T) {
	cfg := config.Default()
	cfg.Observability.Enabled = false

	m, err := NewManager(cfg, "test")
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	if m.Metrics() != nil {
		t.Error("Expected no instruments when observability is disabled")
	}

	h := m.HTTPMiddleware()(nil)
	if h != nil {
		t.Error("Expected pass-through middleware when disabled")
	}
}

func TestResolveSettings(t *testing.T) {
	cfg := config.Default()
	cfg.Observability.ServiceVersion = ""
	cfg.Observability.Metrics.CollectionInterval = 0

	s := resolveSettings(cfg, "1.2.3")
	if s.ServiceVersion != "1.2.3" {
		t.Errorf("Expected app version fallback, got %q", s.ServiceVersion)
	}
	if s.Interval != 15*time.Second {
		t.Errorf("Expected default interval, got %v", s.Interval)
	}

	if s := resolveSettings(nil, "dev"); !s.ConsoleOutput || s.ServiceName != "cvanalyzer" {
		t.Errorf("Unexpected nil-config settings: %+v", s)
	}
}

func TestPrometheusExporter(t *testing.T) {
	reader, handler, err := SetupPrometheusExporter(config.PrometheusConfig{Enabled: true, Endpoint: "/metrics"})
	if err != nil {
		t.Fatalf("Failed to set up exporter: %v", err)
	}

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()
	metrics, err := newMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("Failed to create metrics: %v", err)
	}
	metrics.Analyses.Add(context.Background(), 3)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "cvanalyzer_analyses_total") {
		t.Errorf("Expected analyses counter in scrape output, got:\n%s", body)
	}
}
