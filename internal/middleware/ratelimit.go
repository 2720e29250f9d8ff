package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/medichain/medichain/internal/config"
	"github.com/medichain/medichain/pkg/metrics"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LoginRateLimiter throttles login attempts per client IP. Each IP gets a
// token bucket sized to the configured attempt budget that refills over the
// configured window, independent of the per-account lockout counter.
type LoginRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	ttl      time.Duration
	metrics  *metrics.Collector

	stopOnce sync.Once
	stop     chan struct{}
}

func NewLoginRateLimiter(cfg config.RateLimitConfig, m *metrics.Collector) *LoginRateLimiter {
	l := &LoginRateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(cfg.LoginWindow / time.Duration(cfg.LoginAttempts)),
		burst:    cfg.LoginAttempts,
		ttl:      3 * cfg.LoginWindow,
		metrics:  m,
		stop:     make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// Stop terminates the background eviction loop. Safe to call more than once.
func (l *LoginRateLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Handler is the Gin middleware for the login route.
func (l *LoginRateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.allow(c.ClientIP()) {
			l.metrics.ThrottledTotal.Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many login attempts, please try again later.",
			})
			return
		}
		c.Next()
	}
}

func (l *LoginRateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	return v.limiter.Allow()
}

func (l *LoginRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(l.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-l.ttl)
			l.mu.Lock()
			for ip, v := range l.visitors {
				if v.lastSeen.Before(cutoff) {
					delete(l.visitors, ip)
				}
			}
			l.mu.Unlock()
		}
	}
}
