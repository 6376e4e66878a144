package server

import (
	"sync"
	"time"

	"cvanalyzer/internal/ai"
	"cvanalyzer/internal/analysis"
	"cvanalyzer/internal/config"
	"cvanalyzer/internal/errors"
	"cvanalyzer/internal/observability"
	"cvanalyzer/internal/types"
)

// BulletsRequest represents the request body for the bullets endpoint
type BulletsRequest struct {
	Result         *types.AnalysisResult `json:"result"`
	JobDescription string                `json:"job_description"`
	Format         string                `json:"format,omitempty"`
}

// BulletsResponse lists rendered bullets. Source is "oracle" when the result
// carried its own bullets and "synthesized" otherwise.
type BulletsResponse struct {
	Bullets []string `json:"bullets"`
	Source  string   `json:"source"`
}

// Dependencies are the components a Server serves requests with
type Dependencies struct {
	Pipeline      *analysis.Pipeline
	Oracle        ai.Oracle
	Observability *observability.Manager
	Logger        *errors.Logger
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	TLSConfig config.TLSConfig
	certs     *certReloader

	// API Authentication
	APIKeys map[string]bool

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Upper bound on a whole request body
	MaxRequestSize int64

	corsOrigins []string

	rateMu      sync.RWMutex
	RateLimit   config.RateLimitConfig
	RateLimiter *LimiterManager

	pipeline *analysis.Pipeline
	oracle   ai.Oracle
	obs      *observability.Manager
	Logger   *errors.Logger
}

// NewServer creates a new Server instance from the application config
func NewServer(appCfg *config.Config, version string, deps Dependencies) *Server {
	apiKeyMap := make(map[string]bool)
	for _, key := range appCfg.Server.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	logger := deps.Logger
	if logger == nil {
		logger = errors.NewNopLogger()
	}

	s := &Server{
		Host:           appCfg.Server.Host,
		Port:           appCfg.Server.Port,
		Version:        version,
		AppConfig:      appCfg,
		TLSConfig:      appCfg.Server.TLS,
		APIKeys:        apiKeyMap,
		ReadTimeout:    appCfg.Server.ReadTimeout,
		WriteTimeout:   appCfg.Server.WriteTimeout,
		IdleTimeout:    appCfg.Server.IdleTimeout,
		MaxRequestSize: appCfg.Server.MaxRequestSize,
		corsOrigins:    appCfg.Server.CORSAllowOrigins,
		RateLimit:      appCfg.Server.RateLimit,
		pipeline:       deps.Pipeline,
		oracle:         deps.Oracle,
		obs:            deps.Observability,
		Logger:         logger,
	}
	if s.RateLimit.Enabled {
		s.RateLimiter = NewRateLimiter(s.RateLimit, deps.Observability, logger)
	}
	return s
}

// ApplyConfig takes over the hot-reloadable parts of cfg: the rate limit
// settings. Everything else needs a restart.
func (s *Server) ApplyConfig(cfg *config.Config) {
	next := cfg.Server.RateLimit

	s.rateMu.Lock()
	defer s.rateMu.Unlock()

	switch {
	case next.Enabled && s.RateLimiter != nil:
		s.RateLimiter.Update(next.MinInterval, next.BurstCapacity)
	case next.Enabled:
		s.RateLimiter = NewRateLimiter(next, s.obs, s.Logger)
	case s.RateLimiter != nil:
		s.RateLimiter.Close()
		s.RateLimiter = nil
	}
	s.RateLimit = next

	s.Logger.Info("Rate limit configuration reloaded",
		"enabled", next.Enabled,
		"min_interval", next.MinInterval.String(),
		"burst", next.BurstCapacity)
}

// rateLimiting returns the current rate limit settings and limiter
func (s *Server) rateLimiting() (config.RateLimitConfig, *LimiterManager) {
	s.rateMu.RLock()
	defer s.rateMu.RUnlock()
	return s.RateLimit, s.RateLimiter
}
