package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"cvanalyzer/internal/assess"
	"cvanalyzer/internal/errors"
	"cvanalyzer/internal/session"
	"cvanalyzer/internal/types"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ErrorBody is the JSON shape of a failed analyze response
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Class   string `json:"class"`
}

// RemoteAnalyzer runs analyses on a cvanalyzer server's /analyze endpoint
type RemoteAnalyzer struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

var _ session.Analyzer = (*RemoteAnalyzer)(nil)

// RemoteOption configures a RemoteAnalyzer
type RemoteOption func(*RemoteAnalyzer)

// WithAPIKey sends key in the X-API-Key header
func WithAPIKey(key string) RemoteOption {
	return func(r *RemoteAnalyzer) { r.apiKey = key }
}

// WithHTTPClient replaces the instrumented default client
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(r *RemoteAnalyzer) { r.client = c }
}

// NewRemoteAnalyzer creates a RemoteAnalyzer for the server at baseURL
func NewRemoteAnalyzer(baseURL string, opts ...RemoteOption) *RemoteAnalyzer {
	r := &RemoteAnalyzer{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   3 * time.Minute,
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Analyze implements session.Analyzer
func (r *RemoteAnalyzer) Analyze(ctx context.Context, doc types.UploadedDocument, jobDescription string) (*types.AnalysisResult, error) {
	body, contentType, err := multipartBody(doc, jobDescription)
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInternal, "failed to build request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/analyze", body)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "invalid server URL", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if r.apiKey != "" {
		req.Header.Set("X-API-Key", r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, errors.NewOracleError(errors.ErrCodeOracleUnavailable, "the analysis service is unreachable", err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewOracleError(errors.ErrCodeOracleUnavailable, "failed to read the analysis response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, decodeRemoteError(resp.StatusCode, payload)
	}

	var result types.AnalysisResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, errors.NewOracleError(errors.ErrCodeOracleMalformedResponse, "the analysis service returned an unreadable result", err)
	}
	result.FitScore = assess.ClampScore(result.FitScore)
	if result.ImprovementSuggestions == nil {
		result.ImprovementSuggestions = []string{}
	}
	if result.ExperienceEnhancement == nil {
		result.ExperienceEnhancement = []string{}
	}
	return &result, nil
}

func multipartBody(doc types.UploadedDocument, jobDescription string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("cv_file", doc.Filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(doc.Data); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("job_description", jobDescription); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// decodeRemoteError maps a server error body back to an AppError with the
// same code, so callers can tell client errors from service failures
func decodeRemoteError(status int, payload []byte) error {
	var body ErrorBody
	if err := json.Unmarshal(payload, &body); err != nil || body.Error == "" {
		return errors.NewOracleError(errors.ErrCodeOracleUnavailable,
			fmt.Sprintf("analysis service returned HTTP %d", status), nil)
	}

	message := body.Message
	if message == "" {
		message = http.StatusText(status)
	}
	var appErr *errors.AppError
	switch {
	case body.Error == errors.ErrCodeOracleUnavailable || body.Error == errors.ErrCodeOracleMalformedResponse:
		appErr = errors.NewOracleError(body.Error, message, nil)
	case body.Error == errors.ErrCodeUnsupportedFormat || body.Error == errors.ErrCodeUnsupportedEncoding:
		appErr = errors.NewFormatError(body.Error, message, nil)
	case body.Class == "client":
		appErr = errors.NewValidationError(body.Error, message, nil)
	default:
		appErr = errors.NewInternalError(body.Error, message, nil)
	}
	return appErr.WithContext("http_status", status)
}
