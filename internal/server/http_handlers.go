package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"cvanalyzer/internal/ai"
	"cvanalyzer/internal/bullets"
	"cvanalyzer/internal/errors"
	"cvanalyzer/internal/types"

	"go.opentelemetry.io/otel/attribute"
)

// multipartMemory is how much of a multipart body is held in memory before
// spilling to temp files
const multipartMemory = 32 << 20

const defaultModelsLimit = 50

// healthHandler reports service health including oracle model availability
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":  "healthy",
		"service": "cvanalyzer",
		"version": s.Version,
	}
	status := http.StatusOK

	if s.oracle != nil {
		response["model"] = s.oracle.Model()
	}

	if reporter, ok := s.oracle.(ai.HealthReporter); ok {
		ctx, cancel := context.WithTimeout(r.Context(), s.AppConfig.Observability.HealthCheck.AIModelCheckTimeout)
		defer cancel()

		info := reporter.GetModelInfo(ctx)
		response["oracle"] = info
		response["circuit_breakers"] = reporter.CircuitBreakerStats()
		if info != nil && !info.Available {
			response["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, status, response)
}

// statsHandler provides server statistics including rate limiting info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	settings, limiter := s.rateLimiting()

	response := map[string]any{
		"service": "cvanalyzer",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
			"max_file_size_bytes":    s.AppConfig.App.MaxFileSizeBytes(),
			"batch_concurrency":      s.AppConfig.App.BatchConcurrency,
			"auth_enabled":           len(s.APIKeys) > 0,
		},
		"rate_limit_config": map[string]any{
			"enabled":        settings.Enabled,
			"min_interval":   settings.MinInterval.String(),
			"burst_capacity": settings.BurstCapacity,
			"by_ip":          settings.ByIP,
			"by_api_key":     settings.ByAPIKey,
		},
	}

	if limiter != nil {
		response["rate_limiting"] = limiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{"enabled": false}
	}

	if reporter, ok := s.oracle.(ai.HealthReporter); ok {
		response["circuit_breakers"] = reporter.CircuitBreakerStats()
	}

	writeJSON(w, http.StatusOK, response)
}

// modelsHandler lists the oracle backend's models, at most ?limit= of them
func (s *Server) modelsHandler(w http.ResponseWriter, r *http.Request) {
	limit := defaultModelsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.writeError(w, r, errors.NewValidationError(errors.ErrCodeInvalidInput, "limit must be a positive integer", err))
			return
		}
		limit = n
	}

	lister, ok := s.oracle.(ai.ModelLister)
	if !ok {
		s.writeError(w, r, errors.NewOracleError(errors.ErrCodeOracleUnavailable, "the oracle cannot list models", nil))
		return
	}

	models, err := lister.ListModels(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if models == nil {
		models = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(models), "models": models})
}

// analyzeHandler scores one uploaded CV against a job description
func (s *Server) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.obs.Tracer("cvanalyzer/server").Start(r.Context(), "api.analyze")
	defer span.End()

	if err := s.parseMultipart(r); err != nil {
		span.RecordError(err)
		s.writeError(w, r, err)
		return
	}

	doc, err := formDocument(r, "cv_file")
	if err != nil {
		span.RecordError(err)
		s.writeError(w, r, err)
		return
	}
	jobDescription := r.FormValue("job_description")
	span.SetAttributes(
		attribute.String("document.filename", doc.Filename),
		attribute.Int("request.job_length", len(jobDescription)),
	)

	result, err := s.pipeline.Analyze(ctx, doc, jobDescription)
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("error.code", errors.CodeOf(err)))
		s.writeError(w, r, err)
		return
	}

	s.Logger.Info("Analysis completed",
		"filename", doc.Filename,
		"fit_score", result.FitScore,
		"suggestions", len(result.ImprovementSuggestions))
	writeJSON(w, http.StatusOK, result)
}

// batchHandler scores every uploaded CV against one job description
func (s *Server) batchHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.parseMultipart(r); err != nil {
		s.writeError(w, r, err)
		return
	}

	var docs []types.UploadedDocument
	for _, fh := range r.MultipartForm.File["files"] {
		doc, err := readUpload(fh)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		docs = append(docs, doc)
	}

	batch, err := s.pipeline.RunBatch(r.Context(), docs, r.FormValue("job_description"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

// extractHandler pulls structured candidate fields out of one uploaded CV
func (s *Server) extractHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.parseMultipart(r); err != nil {
		s.writeError(w, r, err)
		return
	}

	doc, err := formDocument(r, "cv_file")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	profile, err := s.pipeline.ExtractProfile(r.Context(), doc)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// bulletsHandler renders experience bullets for a previously returned result
func (s *Server) bulletsHandler(w http.ResponseWriter, r *http.Request) {
	var req BulletsRequest
	if err := parseJSONRequest(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Result == nil {
		s.writeError(w, r, errors.NewValidationError(errors.ErrCodeInvalidInput, "result is required", nil))
		return
	}

	format := req.Format
	if format == "" {
		format = s.AppConfig.App.BulletFormat
	}

	source := "synthesized"
	if len(req.Result.ExperienceEnhancement) > 0 {
		source = "oracle"
	}
	list := bullets.Synthesize(*req.Result, req.JobDescription)
	lines := make([]string, 0, len(list))
	render := bullets.RendererFor(format)
	for _, b := range list {
		lines = append(lines, render(b))
	}

	writeJSON(w, http.StatusOK, BulletsResponse{Bullets: lines, Source: source})
}

// parseMultipart reads the multipart form, mapping an oversized body to FILE_TOO_LARGE
func (s *Server) parseMultipart(r *http.Request) error {
	err := r.ParseMultipartForm(multipartMemory)
	if err == nil {
		return nil
	}

	var maxBytesErr *http.MaxBytesError
	if stderrors.As(err, &maxBytesErr) {
		return errors.NewValidationError(errors.ErrCodeFileTooLarge, "request body too large", err).
			WithContext("limit_bytes", maxBytesErr.Limit)
	}
	return errors.NewValidationError(errors.ErrCodeInvalidInput, "expected a multipart/form-data body", err)
}

// formDocument returns the named upload. A missing file yields an empty
// document so the pipeline can report which input is missing.
func formDocument(r *http.Request, field string) (types.UploadedDocument, error) {
	files := r.MultipartForm.File[field]
	if len(files) == 0 {
		return types.UploadedDocument{}, nil
	}
	return readUpload(files[0])
}

func readUpload(fh *multipart.FileHeader) (types.UploadedDocument, error) {
	f, err := fh.Open()
	if err != nil {
		return types.UploadedDocument{}, errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to open uploaded file", err).
			WithContext("filename", fh.Filename)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return types.UploadedDocument{}, errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to read uploaded file", err).
			WithContext("filename", fh.Filename)
	}
	return types.UploadedDocument{
		Data:      data,
		Filename:  fh.Filename,
		MediaType: fh.Header.Get("Content-Type"),
	}, nil
}

// parseJSONRequest parses JSON request body into the provided struct
func parseJSONRequest(r *http.Request, v any) error {
	mediaType, _, _ := strings.Cut(r.Header.Get("Content-Type"), ";")
	if strings.TrimSpace(mediaType) != "application/json" {
		return errors.NewValidationError(errors.ErrCodeInvalidInput, "content-type must be application/json", nil)
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) {
			return errors.NewValidationError(errors.ErrCodeFileTooLarge, "request body too large", err).
				WithContext("limit_bytes", maxBytesErr.Limit)
		}
		return errors.NewValidationError(errors.ErrCodeInvalidInput, "failed to read request body", err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidInput, "failed to parse JSON body", err)
	}
	return nil
}
