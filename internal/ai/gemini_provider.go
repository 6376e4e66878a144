package ai

import (
	"context"
	"crypto/rand"
	stderrors "errors"
	"fmt"
	"math"
	"math/big"
	"net"
	"net/http"
	"time"

	"cvanalyzer/internal/config"
	"cvanalyzer/internal/errors"
	"cvanalyzer/internal/types"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

const maxBackoff = 30 * time.Second

// GeminiProvider implements Oracle on Google Gemini. Each operation has its
// own client settings, prompts, schema and circuit breaker.
type GeminiProvider struct {
	operations   map[Operation]*geminiOperation
	primary      *geminiOperation
	modelBreaker *CircuitBreaker[*genai.Model]
	listBreaker  *CircuitBreaker[[]string]
	modelTimeout time.Duration
	backoffBase  time.Duration
	logger       *errors.Logger
}

type geminiOperation struct {
	name         Operation
	client       *genai.Client
	cfg          config.OperationAIConfig
	systemPrompt string
	userTemplate string
	schema       *genai.Schema
	breaker      *CircuitBreaker[*genai.GenerateContentResponse]
}

var (
	_ Oracle         = (*GeminiProvider)(nil)
	_ ModelLister    = (*GeminiProvider)(nil)
	_ HealthReporter = (*GeminiProvider)(nil)
)

// GeminiOption customizes a GeminiProvider
type GeminiOption func(*geminiOptions)

type geminiOptions struct {
	baseURL     string
	httpClient  *http.Client
	backoffBase time.Duration
}

// WithBaseURL points the provider at a different Gemini API endpoint
func WithBaseURL(url string) GeminiOption {
	return func(o *geminiOptions) { o.baseURL = url }
}

// WithHTTPClient replaces the instrumented default HTTP client
func WithHTTPClient(c *http.Client) GeminiOption {
	return func(o *geminiOptions) { o.httpClient = c }
}

// WithBackoffBase sets the first retry delay; later retries double it
func WithBackoffBase(d time.Duration) GeminiOption {
	return func(o *geminiOptions) { o.backoffBase = d }
}

// NewGeminiProvider creates a Gemini oracle for the analyze and extract operations
func NewGeminiProvider(ctx context.Context, cfg *config.Config, logger *errors.Logger, opts ...GeminiOption) (*GeminiProvider, error) {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	o := geminiOptions{backoffBase: time.Second}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}

	analyzeCfg := cfg.GetAnalyzeConfig()
	extractCfg := cfg.GetExtractConfig()

	analyze, err := newGeminiOperation(ctx, OperationAnalyzeFit, analyzeCfg, o, logger)
	if err != nil {
		return nil, err
	}
	analyze.systemPrompt = resolvePrompt(analyzeCfg.Loaded.SystemPrompts.AnalyzeFit,
		analyzeCfg.CustomPrompts.SystemPrompts.AnalyzeFit, DefaultSystemPrompts.AnalyzeFit)
	analyze.userTemplate = resolvePrompt(analyzeCfg.Loaded.UserPrompts.AnalyzeFit,
		analyzeCfg.CustomPrompts.UserPrompts.AnalyzeFit, DefaultUserPrompts.AnalyzeFit)
	analyze.schema = analysisSchema()

	extract, err := newGeminiOperation(ctx, OperationExtractProfile, extractCfg, o, logger)
	if err != nil {
		return nil, err
	}
	extract.systemPrompt = resolvePrompt(extractCfg.Loaded.SystemPrompts.ExtractProfile,
		extractCfg.CustomPrompts.SystemPrompts.ExtractProfile, DefaultSystemPrompts.ExtractProfile)
	extract.userTemplate = resolvePrompt(extractCfg.Loaded.UserPrompts.ExtractProfile,
		extractCfg.CustomPrompts.UserPrompts.ExtractProfile, DefaultUserPrompts.ExtractProfile)
	extract.schema = profileSchema()

	modelTimeout := cfg.Observability.HealthCheck.AIModelCheckTimeout
	if modelTimeout <= 0 {
		modelTimeout = 10 * time.Second
	}

	logger.Debug("Initialized Gemini oracle",
		"analyze_model", analyzeCfg.Model,
		"extract_model", extractCfg.Model,
		"temperature", *analyzeCfg.Temperature,
		"max_output_tokens", *analyzeCfg.MaxOutputTokens,
		"max_retries", *analyzeCfg.MaxRetries)

	return &GeminiProvider{
		operations: map[Operation]*geminiOperation{
			OperationAnalyzeFit:     analyze,
			OperationExtractProfile: extract,
		},
		primary:      analyze,
		modelBreaker: newLenientCircuitBreaker[*genai.Model]("oracle-model-info", analyzeCfg.CircuitBreaker, logger),
		listBreaker:  newLenientCircuitBreaker[[]string]("oracle-model-list", analyzeCfg.CircuitBreaker, logger),
		modelTimeout: modelTimeout,
		backoffBase:  o.backoffBase,
		logger:       logger,
	}, nil
}

func newGeminiOperation(ctx context.Context, op Operation, cfg config.OperationAIConfig, o geminiOptions, logger *errors.Logger) (*geminiOperation, error) {
	if cfg.APIKey == "" {
		return nil, errors.NewConfigError(errors.ErrCodeMissingAPIKey,
			"oracle API key is not configured (set CVANALYZER_AI_APIKEY or GEMINI_API_KEY)", nil).
			WithContext("operation", string(op))
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: o.httpClient,
	}
	if o.baseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: o.baseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, errors.NewOracleError(errors.ErrCodeOracleUnavailable, "Failed to create Gemini client", err)
	}

	return &geminiOperation{
		name:    op,
		client:  client,
		cfg:     cfg,
		breaker: NewCircuitBreaker[*genai.GenerateContentResponse]("oracle-"+string(op), cfg.CircuitBreaker, logger),
	}, nil
}

// Model returns the model used for fit analysis
func (g *GeminiProvider) Model() string {
	return g.primary.cfg.Model
}

// Complete sends one request to Gemini and returns its raw JSON text
func (g *GeminiProvider) Complete(ctx context.Context, req OracleRequest) (*OracleReply, error) {
	op, ok := g.operations[req.Operation]
	if !ok {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidInput,
			fmt.Sprintf("unsupported oracle operation: %s", req.Operation), nil)
	}

	ctx, cancel := context.WithTimeout(ctx, *op.cfg.Timeout)
	defer cancel()

	tracer := otel.Tracer("cvanalyzer.ai.gemini")
	ctx, span := tracer.Start(ctx, "gemini."+string(op.name))
	defer span.End()
	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", op.cfg.Model),
		attribute.Float64("ai.temperature", float64(*op.cfg.Temperature)),
		attribute.Int("input.resume_length", len(req.ResumeText)),
		attribute.Int("input.job_length", len(req.JobDescription)),
	)

	prompt := op.userPrompt(req)
	genCfg := op.generateConfig()

	result, err := op.breaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return g.executeWithRetry(ctx, op, func() (*genai.GenerateContentResponse, error) {
			return op.client.Models.GenerateContent(ctx, op.cfg.Model, genai.Text(prompt), genCfg)
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return nil, errors.NewOracleError(errors.ErrCodeOracleUnavailable,
			"oracle request failed for "+string(op.name), err)
	}

	usage := extractTokenUsage(result)
	if usage != nil {
		span.SetAttributes(
			attribute.Int("ai.tokens.input", usage.InputTokens),
			attribute.Int("ai.tokens.output", usage.OutputTokens),
			attribute.Int("ai.tokens.total", usage.TotalTokens),
		)
	}
	span.SetAttributes(attribute.Bool("success", true))

	return &OracleReply{Text: result.Text(), Model: op.cfg.Model, Usage: usage}, nil
}

func (op *geminiOperation) userPrompt(req OracleRequest) string {
	if op.name == OperationExtractProfile {
		return fmt.Sprintf(op.userTemplate, req.ResumeText)
	}
	return fmt.Sprintf(op.userTemplate, req.ResumeText, req.JobDescription)
}

func (op *geminiOperation) generateConfig() *genai.GenerateContentConfig {
	temperature := *op.cfg.Temperature
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   op.schema,
		Temperature:      &temperature,
		MaxOutputTokens:  *op.cfg.MaxOutputTokens,
	}
	if *op.cfg.UseSystemPrompts && op.systemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(op.systemPrompt, genai.RoleUser)
	}
	return cfg
}

// executeWithRetry retries fn on transient errors with exponential backoff and jitter
func (g *GeminiProvider) executeWithRetry(ctx context.Context, op *geminiOperation, fn func() (*genai.GenerateContentResponse, error)) (*genai.GenerateContentResponse, error) {
	maxRetries := *op.cfg.MaxRetries
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := g.backoff(attempt)
			g.logger.Warn("Retrying oracle request",
				"operation", op.name,
				"attempt", attempt,
				"max_retries", maxRetries,
				"backoff", backoff.String(),
				"error", lastErr.Error())

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		result, err := fn()
		if err == nil {
			if attempt > 0 {
				g.logger.Info("Oracle request succeeded after retry",
					"operation", op.name,
					"total_attempts", attempt+1)
			}
			return result, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			g.logger.Debug("Error is not retryable, stopping retry attempts",
				"operation", op.name,
				"error", err.Error())
			break
		}
	}

	g.logger.LogError(lastErr, "Oracle request failed", "operation", op.name)
	return nil, fmt.Errorf("operation '%s' failed: %w", op.name, lastErr)
}

// backoff returns base*2^(attempt-1) plus up to 10% jitter, capped at maxBackoff
func (g *GeminiProvider) backoff(attempt int) time.Duration {
	delay := time.Duration(float64(g.backoffBase) * math.Pow(2, float64(attempt-1)))
	if jitterMax := int64(float64(delay) * 0.1); jitterMax > 0 {
		if j, err := rand.Int(rand.Reader, big.NewInt(jitterMax)); err == nil {
			delay += time.Duration(j.Int64())
		}
	}
	return min(delay, maxBackoff)
}

// isRetryableError reports whether err is a transport failure or a transient HTTP status
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return true
	}

	var genaiErr genai.APIError
	if stderrors.As(err, &genaiErr) {
		return isRetryableStatus(genaiErr.Code)
	}

	var apiErr *googleapi.Error
	if stderrors.As(err, &apiErr) {
		return isRetryableStatus(apiErr.Code)
	}

	return false
}

func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// GetModelInfo checks the availability of the analysis model
func (g *GeminiProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	name := g.primary.cfg.Model
	info := &ModelInfo{Name: name}

	checkCtx, cancel := context.WithTimeout(ctx, g.modelTimeout)
	defer cancel()

	model, err := g.modelBreaker.Execute(func() (*genai.Model, error) {
		return g.primary.client.Models.Get(checkCtx, name, &genai.GetModelConfig{})
	})
	if err != nil {
		info.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.logger.Warn("Model availability check failed", "model", name, "error", err.Error())
		return info
	}

	info.Available = true
	info.DisplayName = model.DisplayName
	info.Version = model.Version
	return info
}

// ListModels returns up to limit model names visible to the configured API key
func (g *GeminiProvider) ListModels(ctx context.Context, limit int) ([]string, error) {
	checkCtx, cancel := context.WithTimeout(ctx, g.modelTimeout)
	defer cancel()

	names, err := g.listBreaker.Execute(func() ([]string, error) {
		page, err := g.primary.client.Models.List(checkCtx, &genai.ListModelsConfig{})
		if err != nil {
			return nil, err
		}
		out := make([]string, 0, len(page.Items))
		for _, m := range page.Items {
			out = append(out, m.Name)
		}
		return out, nil
	})
	if err != nil {
		return nil, errors.NewOracleError(errors.ErrCodeOracleUnavailable, "failed to list models", err)
	}
	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}
	return names, nil
}

// CircuitBreakerStats returns circuit breaker statistics for every operation
func (g *GeminiProvider) CircuitBreakerStats() map[string]any {
	healthy := g.modelBreaker.IsHealthy()
	stats := map[string]any{"model_operations": g.modelBreaker.Stats()}
	for name, op := range g.operations {
		stats[string(name)] = op.breaker.Stats()
		healthy = healthy && op.breaker.IsHealthy()
	}
	stats["overall_healthy"] = healthy
	return stats
}

// extractTokenUsage extracts token usage information from a Gemini response
func extractTokenUsage(result *genai.GenerateContentResponse) *types.TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}
	usage := result.UsageMetadata
	return &types.TokenUsage{
		InputTokens:  int(usage.PromptTokenCount),
		OutputTokens: int(usage.CandidatesTokenCount),
		TotalTokens:  int(usage.TotalTokenCount),
	}
}

// resolvePrompt picks a file-loaded prompt, then a configured one, then the default
func resolvePrompt(loadedFromFile, fromConfig, fromDefault string) string {
	if loadedFromFile != "" {
		return loadedFromFile
	}
	if fromConfig != "" {
		return fromConfig
	}
	return fromDefault
}
