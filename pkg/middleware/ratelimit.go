package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/auditfix/auditfix-gateway/internal/metrics"
	"github.com/auditfix/auditfix-gateway/pkg/config"
)

// RateLimiter keeps one token bucket per client key
type RateLimiter struct {
	config config.RateLimitConfig
	logger *zap.Logger

	mu      sync.Mutex
	clients map[string]*clientLimiter

	idleTTL         time.Duration
	cleanupInterval time.Duration
	lastCleanup     time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(cfg config.RateLimitConfig, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{
		config:          cfg,
		logger:          logger.Named("ratelimit"),
		clients:         make(map[string]*clientLimiter),
		idleTTL:         30 * time.Minute,
		cleanupInterval: 10 * time.Minute,
		lastCleanup:     time.Now(),
	}
}

func (r *RateLimiter) getLimiter(key string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if time.Since(r.lastCleanup) > r.cleanupInterval {
		r.cleanup()
	}

	if cl, ok := r.clients[key]; ok {
		cl.lastSeen = time.Now()
		return cl.limiter
	}

	burst := r.config.Burst
	if burst < 1 {
		burst = 1
	}
	cl := &clientLimiter{
		limiter:  rate.NewLimiter(rate.Limit(float64(r.config.RequestsPerMinute)/60.0), burst),
		lastSeen: time.Now(),
	}
	r.clients[key] = cl
	return cl.limiter
}

// cleanup drops limiters that have been idle; caller holds mu
func (r *RateLimiter) cleanup() {
	cutoff := time.Now().Add(-r.idleTTL)
	for key, cl := range r.clients {
		if cl.lastSeen.Before(cutoff) {
			delete(r.clients, key)
		}
	}
	r.lastCleanup = time.Now()
}

// Allow reports whether a request for key may proceed
func (r *RateLimiter) Allow(key string) bool {
	if !r.config.Enabled {
		return true
	}
	return r.getLimiter(key).Allow()
}

// Clients returns the number of tracked clients
func (r *RateLimiter) Clients() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// RateLimitMiddleware rejects requests over the per-client budget with the
// standard error envelope. Preflight requests are never limited.
func RateLimitMiddleware(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.config.Enabled || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		if !rl.Allow(c.ClientIP()) {
			metrics.RateLimited.Inc()
			rl.logger.Debug("Rate limit exceeded", zap.String("client_ip", c.ClientIP()))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error":   "Too many requests. Please try again later.",
			})
			return
		}

		c.Next()
	}
}
