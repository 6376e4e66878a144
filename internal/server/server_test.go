package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cvanalyzer/internal/ai"
	"cvanalyzer/internal/analysis"
	"cvanalyzer/internal/assess"
	"cvanalyzer/internal/config"
	"cvanalyzer/internal/errors"
	"cvanalyzer/internal/extract"
	"cvanalyzer/internal/types"
)

type stubOracle struct {
	available bool
	models    []string
}

func (o *stubOracle) Complete(_ context.Context, req ai.OracleRequest) (*ai.OracleReply, error) {
	switch {
	case req.Operation == ai.OperationExtractProfile:
		return &ai.OracleReply{Text: `{"name": "Dana Levi", "skills": ["Go", "Kafka"]}`}, nil
	case strings.Contains(req.ResumeText, "oracle-down"):
		return nil, errors.NewOracleError(errors.ErrCodeOracleUnavailable, "the scoring service is unavailable", nil)
	case strings.Contains(req.ResumeText, "oracle-garbage"):
		return &ai.OracleReply{Text: "I think this candidate is great"}, nil
	}
	return &ai.OracleReply{Text: `{"fit_score": 81.6, "fit_reason": "Solid match", "expected_salary_note": "30k", "improvement_suggestions": ["Add Kubernetes experience"]}`}, nil
}

func (o *stubOracle) Model() string { return "stub-model" }

func (o *stubOracle) ListModels(_ context.Context, limit int) ([]string, error) {
	if limit < len(o.models) {
		return o.models[:limit], nil
	}
	return o.models, nil
}

func (o *stubOracle) GetModelInfo(context.Context) *ai.ModelInfo {
	return &ai.ModelInfo{Name: "stub-model", Available: o.available}
}

func (o *stubOracle) CircuitBreakerStats() map[string]any {
	return map[string]any{"overall_healthy": o.available}
}

type serverOption func(*config.Config)

func newTestServer(t *testing.T, oracle *stubOracle, opts ...serverOption) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Server.RateLimit.Enabled = false
	cfg.Server.APIKeys = nil
	for _, opt := range opts {
		opt(cfg)
	}
	if oracle == nil {
		oracle = &stubOracle{available: true, models: []string{"models/a", "models/b", "models/c"}}
	}

	pipeline := analysis.NewPipeline(
		extract.New(extract.WithMaxSize(1024)),
		assess.NewAssessor(oracle),
	)
	s := NewServer(cfg, "test", Dependencies{Pipeline: pipeline, Oracle: oracle, Logger: errors.NewNopLogger()})
	t.Cleanup(s.cleanup)
	return s
}

type upload struct {
	field, filename string
	data            []byte
}

func multipartRequest(t *testing.T, path string, fields map[string]string, files ...upload) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.filename)
		if err != nil {
			t.Fatalf("Failed to create form file: %v", err)
		}
		_, _ = part.Write(f.data)
	}
	for k, v := range fields {
		_ = w.WriteField(k, v)
	}
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) analysis.ErrorBody {
	t.Helper()
	var body analysis.ErrorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode error body: %v", err)
	}
	return body
}

func TestAnalyzeEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	req := multipartRequest(t, "/analyze",
		map[string]string{"job_description": "Platform engineer, Kubernetes"},
		upload{"cv_file", "cv.txt", []byte("Go developer, five years")})
	rec := serve(s, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var result types.AnalysisResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode result: %v", err)
	}
	if result.FitScore != 82 || result.ExperienceEnhancement == nil {
		t.Errorf("Unexpected result %+v", result)
	}
}

func TestAnalyzeEndpointErrors(t *testing.T) {
	tests := []struct {
		name   string
		req    func(t *testing.T) *http.Request
		status int
		code   string
		class  string
	}{
		{
			name: "missing job description",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/analyze", nil, upload{"cv_file", "cv.txt", []byte("Go")})
			},
			status: http.StatusBadRequest, code: errors.ErrCodeInvalidInput, class: "client",
		},
		{
			name: "missing file",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/analyze", map[string]string{"job_description": "Backend"})
			},
			status: http.StatusBadRequest, code: errors.ErrCodeInvalidInput, class: "client",
		},
		{
			name: "unsupported format",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/analyze", map[string]string{"job_description": "Backend"},
					upload{"cv_file", "cv.pages", []byte("Go")})
			},
			status: http.StatusUnsupportedMediaType, code: errors.ErrCodeUnsupportedFormat, class: "client",
		},
		{
			name: "empty document",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/analyze", map[string]string{"job_description": "Backend"},
					upload{"cv_file", "cv.txt", []byte("  \n ")})
			},
			status: http.StatusUnprocessableEntity, code: errors.ErrCodeEmptyDocument, class: "client",
		},
		{
			name: "file too large",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/analyze", map[string]string{"job_description": "Backend"},
					upload{"cv_file", "cv.txt", bytes.Repeat([]byte("a"), 2048)})
			},
			status: http.StatusRequestEntityTooLarge, code: errors.ErrCodeFileTooLarge, class: "client",
		},
		{
			name: "oracle unavailable",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/analyze", map[string]string{"job_description": "Backend"},
					upload{"cv_file", "cv.txt", []byte("oracle-down")})
			},
			status: http.StatusBadGateway, code: errors.ErrCodeOracleUnavailable, class: "service",
		},
		{
			name: "oracle malformed reply",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/analyze", map[string]string{"job_description": "Backend"},
					upload{"cv_file", "cv.txt", []byte("oracle-garbage")})
			},
			status: http.StatusBadGateway, code: errors.ErrCodeOracleMalformedResponse, class: "service",
		},
		{
			name: "not multipart",
			req: func(t *testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(`{}`))
				req.Header.Set("Content-Type", "application/json")
				return req
			},
			status: http.StatusBadRequest, code: errors.ErrCodeInvalidInput, class: "client",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, nil)
			rec := serve(s, tt.req(t))
			if rec.Code != tt.status {
				t.Fatalf("Expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			body := decodeError(t, rec)
			if body.Error != tt.code || body.Class != tt.class || body.Message == "" {
				t.Errorf("Unexpected error body %+v", body)
			}
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	s := newTestServer(t, nil, func(c *config.Config) { c.Server.APIKeys = []string{"secret-key-123"} })

	newReq := func() *http.Request {
		return multipartRequest(t, "/analyze", map[string]string{"job_description": "Backend"},
			upload{"cv_file", "cv.txt", []byte("Go developer")})
	}

	rec := serve(s, newReq())
	if rec.Code != http.StatusUnauthorized || decodeError(t, rec).Error != errors.ErrCodeUnauthorized {
		t.Errorf("Expected 401 UNAUTHORIZED without key, got %d", rec.Code)
	}

	req := newReq()
	req.Header.Set("X-API-Key", "wrong")
	if rec := serve(s, req); rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 with wrong key, got %d", rec.Code)
	}

	req = newReq()
	req.Header.Set("X-API-Key", "secret-key-123")
	if rec := serve(s, req); rec.Code != http.StatusOK {
		t.Errorf("Expected 200 with X-API-Key, got %d: %s", rec.Code, rec.Body.String())
	}

	req = newReq()
	req.Header.Set("Authorization", "Bearer secret-key-123")
	if rec := serve(s, req); rec.Code != http.StatusOK {
		t.Errorf("Expected 200 with Bearer token, got %d", rec.Code)
	}

	if rec := serve(s, httptest.NewRequest(http.MethodGet, "/health", nil)); rec.Code != http.StatusOK {
		t.Errorf("Expected /health to skip auth, got %d", rec.Code)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	s := newTestServer(t, nil, func(c *config.Config) {
		c.Server.RateLimit = config.RateLimitConfig{
			Enabled:       true,
			MinInterval:   time.Hour,
			BurstCapacity: 1,
			ByIP:          true,
		}
	})

	models := func() *httptest.ResponseRecorder {
		return serve(s, httptest.NewRequest(http.MethodGet, "/models", nil))
	}

	if rec := models(); rec.Code != http.StatusOK {
		t.Fatalf("Expected first request to pass, got %d", rec.Code)
	}
	rec := models()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected 429, got %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Error != errors.ErrCodeRateLimited || body.Class != "client" {
		t.Errorf("Unexpected error body %+v", body)
	}

	next := config.Default()
	next.Server.RateLimit.Enabled = false
	s.ApplyConfig(next)
	if rec := models(); rec.Code != http.StatusOK {
		t.Errorf("Expected reloaded config to lift the limit, got %d", rec.Code)
	}
}

func TestLimiterManagerUpdate(t *testing.T) {
	m := NewRateLimiter(config.RateLimitConfig{MinInterval: time.Hour, BurstCapacity: 1}, nil, errors.NewNopLogger())
	defer m.Close()

	if !m.Allow("ip:1") || m.Allow("ip:1") {
		t.Fatal("Expected one request per hour")
	}
	m.Update(0, 1)
	if !m.Allow("ip:1") {
		t.Error("Expected zero interval to mean unlimited")
	}
	if stats := m.GetStats(); stats["active_limiters"] != 1 || stats["rate_per_second"] != "unlimited" {
		t.Errorf("Unexpected stats %v", stats)
	}
	m.Close()
}

func TestBatchEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	req := multipartRequest(t, "/analyze/batch",
		map[string]string{"job_description": "Backend"},
		upload{"files", "a.txt", []byte("Go developer")},
		upload{"files", "b.rtf", []byte("{\\rtf1}")})
	rec := serve(s, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var batch types.BatchResult
	if err := json.NewDecoder(rec.Body).Decode(&batch); err != nil {
		t.Fatalf("Failed to decode batch: %v", err)
	}
	if len(batch.Results) != 2 || batch.Results[0].Filename != "a.txt" || batch.Results[1].Error != errors.ErrCodeUnsupportedFormat {
		t.Errorf("Unexpected batch %+v", batch)
	}

	empty := multipartRequest(t, "/analyze/batch", map[string]string{"job_description": "Backend"})
	if rec := serve(s, empty); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a batch without files, got %d", rec.Code)
	}
}

func TestExtractEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	rec := serve(s, multipartRequest(t, "/extract", nil, upload{"cv_file", "cv.txt", []byte("Dana Levi\nGo, Kafka")}))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var profile types.ProfileExtraction
	if err := json.NewDecoder(rec.Body).Decode(&profile); err != nil {
		t.Fatalf("Failed to decode profile: %v", err)
	}
	if profile.Name == nil || *profile.Name != "Dana Levi" || len(profile.Skills) != 2 {
		t.Errorf("Unexpected profile %+v", profile)
	}
}

func TestBulletsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/bullets", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
		return serve(s, req)
	}

	rec := post(`{"result": {"fit_score": 50, "improvement_suggestions": ["add Kubernetes experience"]},
		"job_description": "Kubernetes platform", "format": "html"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp BulletsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode bullets: %v", err)
	}
	if resp.Source != "synthesized" || len(resp.Bullets) != 1 || !strings.Contains(resp.Bullets[0], "<strong>Kubernetes</strong>") {
		t.Errorf("Unexpected synthesized bullets %+v", resp)
	}

	rec = post(`{"result": {"improvement_suggestions": ["x"], "experience_enhancement": ["Led the **on-call** rotation."]}}`)
	resp = BulletsResponse{}
	_ = json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Source != "oracle" || len(resp.Bullets) != 1 || resp.Bullets[0] != "Led the **on-call** rotation." {
		t.Errorf("Expected oracle bullets passed through, got %+v", resp)
	}

	if rec := post(`{"job_description": "x"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without result, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/bullets", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "text/plain")
	if rec := serve(s, req); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for wrong content type, got %d", rec.Code)
	}
}

func TestModelsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/models?limit=2", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var resp struct {
		Count  int      `json:"count"`
		Models []string `json:"models"`
	}
	_ = json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Count != 2 || len(resp.Models) != 2 {
		t.Errorf("Expected 2 models, got %+v", resp)
	}

	if rec := serve(s, httptest.NewRequest(http.MethodGet, "/models?limit=zero", nil)); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad limit, got %d", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	tests := []struct {
		name      string
		available bool
		status    int
		want      string
	}{
		{"healthy", true, http.StatusOK, "healthy"},
		{"degraded", false, http.StatusServiceUnavailable, "degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, &stubOracle{available: tt.available})
			rec := serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))
			if rec.Code != tt.status {
				t.Fatalf("Expected %d, got %d", tt.status, rec.Code)
			}
			var body map[string]any
			_ = json.NewDecoder(rec.Body).Decode(&body)
			if body["status"] != tt.want || body["model"] != "stub-model" || body["version"] != "test" {
				t.Errorf("Unexpected health body %v", body)
			}
		})
	}
}

func TestStatsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/stats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var body map[string]any
	_ = json.NewDecoder(rec.Body).Decode(&body)
	if _, ok := body["circuit_breakers"]; !ok {
		t.Errorf("Expected circuit breaker stats, got %v", body)
	}
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, nil, func(c *config.Config) { c.Server.CORSAllowOrigins = []string{"https://app.example.com"} })

	req := httptest.NewRequest(http.MethodOptions, "/analyze", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := serve(s, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204 for preflight, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("Expected allowed origin echoed, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	if got := serve(s, req).Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Expected no CORS header for unknown origin, got %q", got)
	}
}

func TestStatusFor(t *testing.T) {
	tests := map[string]int{
		errors.ErrCodeInvalidInput:            http.StatusBadRequest,
		errors.ErrCodeUnsupportedFormat:       http.StatusUnsupportedMediaType,
		errors.ErrCodeUnsupportedEncoding:     http.StatusUnsupportedMediaType,
		errors.ErrCodeEmptyDocument:           http.StatusUnprocessableEntity,
		errors.ErrCodeFileTooLarge:            http.StatusRequestEntityTooLarge,
		errors.ErrCodeRateLimited:             http.StatusTooManyRequests,
		errors.ErrCodeUnauthorized:            http.StatusUnauthorized,
		errors.ErrCodeOracleUnavailable:       http.StatusBadGateway,
		errors.ErrCodeOracleMalformedResponse: http.StatusBadGateway,
		errors.ErrCodeInternal:                http.StatusInternalServerError,
		errors.ErrCodeInvalidConfig:           http.StatusInternalServerError,
	}
	for code, want := range tests {
		if got := statusFor(code); got != want {
			t.Errorf("statusFor(%s) = %d, want %d", code, got, want)
		}
	}
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	if ip := getClientIP(req); ip != "10.0.0.1" {
		t.Errorf("Expected RemoteAddr host, got %s", ip)
	}
	req.Header.Set("X-Forwarded-For", "not-an-ip, 203.0.113.7")
	if ip := getClientIP(req); ip != "203.0.113.7" {
		t.Errorf("Expected first valid forwarded IP, got %s", ip)
	}
}
