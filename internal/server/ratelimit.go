package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"cvanalyzer/internal/config"
	"cvanalyzer/internal/errors"
	"cvanalyzer/internal/observability"

	"golang.org/x/time/rate"
)

// LimiterManager manages a collection of rate limiters for different keys (IPs, API keys).
type LimiterManager struct {
	mu           sync.Mutex
	limiters     map[string]*rate.Limiter
	lastSeen     map[string]time.Time
	rate         rate.Limit
	burst        int
	cleanupAfter time.Duration
	done         chan struct{}
	closeOnce    sync.Once
	obs          *observability.Manager
	logger       *errors.Logger
}

// NewRateLimiter creates a manager that admits one request per MinInterval
// per key, with BurstCapacity requests of slack.
func NewRateLimiter(cfg config.RateLimitConfig, obs *observability.Manager, logger *errors.Logger) *LimiterManager {
	cleanupAfter := cfg.CleanupAfter
	if cleanupAfter <= 0 {
		cleanupAfter = 10 * time.Minute
	}

	m := &LimiterManager{
		limiters:     make(map[string]*rate.Limiter),
		lastSeen:     make(map[string]time.Time),
		rate:         limitFor(cfg.MinInterval),
		burst:        max(cfg.BurstCapacity, 1),
		cleanupAfter: cleanupAfter,
		done:         make(chan struct{}),
		obs:          obs,
		logger:       logger,
	}

	go m.cleanupRoutine(cleanupAfter)
	return m
}

func limitFor(minInterval time.Duration) rate.Limit {
	if minInterval <= 0 {
		return rate.Inf
	}
	return rate.Every(minInterval)
}

// GetLimiter retrieves or creates a limiter for a given key.
func (m *LimiterManager) GetLimiter(key string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	limiter, exists := m.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(m.rate, m.burst)
		m.limiters[key] = limiter
	}
	m.lastSeen[key] = time.Now()

	return limiter
}

// Allow checks if a request should be allowed for the given key
func (m *LimiterManager) Allow(key string) bool {
	return m.GetLimiter(key).Allow()
}

// Update changes the rate of every existing and future limiter
func (m *LimiterManager) Update(minInterval time.Duration, burst int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rate = limitFor(minInterval)
	m.burst = max(burst, 1)
	for _, limiter := range m.limiters {
		limiter.SetLimit(m.rate)
		limiter.SetBurst(m.burst)
	}
}

// GetStats returns current rate limiter statistics
func (m *LimiterManager) GetStats() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := map[string]any{
		"active_limiters": len(m.limiters),
		"burst_capacity":  m.burst,
	}
	if m.rate == rate.Inf {
		stats["rate_per_second"] = "unlimited"
	} else {
		stats["rate_per_second"] = float64(m.rate)
		stats["min_interval"] = time.Duration(float64(time.Second) / float64(m.rate)).String()
	}
	return stats
}

// cleanupRoutine periodically removes inactive limiters
func (m *LimiterManager) cleanupRoutine(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanup(m.cleanupAfter)
		case <-m.done:
			return
		}
	}
}

// cleanup removes limiters that haven't been used for the specified duration
func (m *LimiterManager) cleanup(evictionAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for key, lastSeen := range m.lastSeen {
		if now.Sub(lastSeen) > evictionAge {
			delete(m.limiters, key)
			delete(m.lastSeen, key)
		}
	}

	m.logger.Debug("Rate limiter cleanup completed",
		"remaining_limiters", len(m.limiters))
}

// Close stops the cleanup goroutine. Safe to call more than once.
func (m *LimiterManager) Close() {
	m.closeOnce.Do(func() { close(m.done) })
}

// rateLimitMiddleware rejects requests over the per-key rate with RATE_LIMITED
func (s *Server) rateLimitMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		settings, limiter := s.rateLimiting()
		if limiter == nil {
			next(w, r)
			return
		}

		rateLimitKey := getRateLimitKey(r, settings.ByAPIKey, settings.ByIP)
		if rateLimitKey == "" {
			next(w, r)
			return
		}

		if !limiter.Allow(rateLimitKey) {
			keyType, _, _ := strings.Cut(rateLimitKey, ":")
			s.obs.RecordRateLimitHit(r.Context(), keyType)
			s.Logger.Info("Rate limit exceeded",
				"key_type", keyType,
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r))
			s.writeError(w, r, errors.NewValidationError(errors.ErrCodeRateLimited,
				"too many requests, please wait before retrying", nil))
			return
		}

		next(w, r)
	}
}

// getRateLimitKey picks the API key when keyed limiting is on and one was
// sent, the client IP otherwise
func getRateLimitKey(r *http.Request, byAPIKey, byIP bool) string {
	if byAPIKey {
		if apiKey := requestAPIKey(r); apiKey != "" {
			return "api:" + apiKey
		}
	}

	if byIP {
		return "ip:" + getClientIP(r)
	}

	return ""
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := parseFirstIP(xff); ip != "" {
			return ip
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if ip := net.ParseIP(xri); ip != nil {
			return xri
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// parseFirstIP parses the first valid IP from a comma-separated list
func parseFirstIP(ips string) string {
	for ip := range strings.SplitSeq(ips, ",") {
		ip = strings.TrimSpace(ip)
		if parsed := net.ParseIP(ip); parsed != nil {
			return ip
		}
	}
	return ""
}
