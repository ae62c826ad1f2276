package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/shanki-dipak/portfolio-twin/internal/config"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// RateLimiter interface for rate limiting
type RateLimiter interface {
	Allow(key string) bool
	Reset(key string)
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyRateLimiter implements per-client rate limiting
type KeyRateLimiter struct {
	enabled         bool
	visitors        map[string]*visitor
	mu              sync.RWMutex
	rpm             int
	burst           int
	logger          *logrus.Logger
	cleanupInterval time.Duration
	stop            chan struct{}
	stopOnce        sync.Once
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(cfg *config.RateLimitConfig, logger *logrus.Logger) *KeyRateLimiter {
	if !cfg.Enabled {
		return &KeyRateLimiter{enabled: false}
	}

	rl := &KeyRateLimiter{
		enabled:         true,
		visitors:        make(map[string]*visitor),
		rpm:             cfg.RequestsPerMinute,
		burst:           cfg.Burst,
		logger:          logger,
		cleanupInterval: 10 * time.Minute,
		stop:            make(chan struct{}),
	}

	// Start cleanup goroutine
	go rl.cleanup()

	return rl
}

// Allow checks if a client is allowed to make a request
func (r *KeyRateLimiter) Allow(key string) bool {
	if !r.enabled {
		return true
	}

	allowed := r.getLimiter(key).Allow()
	if !allowed {
		r.logger.WithField("client", key).Warn("Rate limit exceeded")
	}
	return allowed
}

// Reset resets the rate limiter for a client
func (r *KeyRateLimiter) Reset(key string) {
	if !r.enabled {
		return
	}

	r.mu.Lock()
	delete(r.visitors, key)
	r.mu.Unlock()
}

// Stop ends the cleanup goroutine
func (r *KeyRateLimiter) Stop() {
	if !r.enabled {
		return
	}
	r.stopOnce.Do(func() { close(r.stop) })
}

// getLimiter gets or creates a rate limiter for a client
func (r *KeyRateLimiter) getLimiter(key string) *rate.Limiter {
	now := time.Now()

	r.mu.RLock()
	v, exists := r.visitors[key]
	r.mu.RUnlock()

	if exists {
		r.mu.Lock()
		v.lastSeen = now
		r.mu.Unlock()
		return v.limiter
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if v, exists := r.visitors[key]; exists {
		v.lastSeen = now
		return v.limiter
	}

	// Rate per second = RPM / 60
	rps := float64(r.rpm) / 60.0
	limiter := rate.NewLimiter(rate.Limit(rps), r.burst)
	r.visitors[key] = &visitor{limiter: limiter, lastSeen: now}

	return limiter
}

// cleanup removes limiters idle for longer than the cleanup interval
func (r *KeyRateLimiter) cleanup() {
	ticker := time.NewTicker(r.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case now := <-ticker.C:
			r.mu.Lock()
			for key, v := range r.visitors {
				if now.Sub(v.lastSeen) > r.cleanupInterval {
					delete(r.visitors, key)
				}
			}
			r.mu.Unlock()
		}
	}
}

// ClientIP returns the peer address of the request. Forwarded headers are
// only honored once TrustProxy has rewritten RemoteAddr from them.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimit rejects requests over the per-client limit with the reject
// handler. The metrics recorder may be nil.
func RateLimit(limiter RateLimiter, route string, metrics *Metrics, reject http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(route + "|" + ClientIP(r)) {
				if metrics != nil {
					metrics.RecordRateLimitExceeded(route)
				}
				reject.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
