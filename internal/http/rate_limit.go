package http

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	limiterSweepInterval = 5 * time.Minute
	limiterIdleTimeout   = time.Hour
)

// ipRateLimiter holds one token bucket per client IP and drops idle buckets in the
// background until Close.
type ipRateLimiter struct {
	limiters sync.Map // client IP -> *limiterEntry
	rps      float64
	burst    int
	logger   *slog.Logger
	now      func() time.Time

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

type limiterEntry struct {
	limiter    *rate.Limiter
	mu         sync.Mutex
	lastAccess time.Time
}

func newIPRateLimiter(rps float64, burst int, logger *slog.Logger) *ipRateLimiter {
	l := &ipRateLimiter{
		rps:    rps,
		burst:  burst,
		logger: logger,
		now:    time.Now,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go l.sweepLoop(limiterSweepInterval)
	return l
}

// Middleware answers 429 with a Retry-After header once a client IP exhausts its bucket.
// c.ClientIP honours X-Forwarded-For and X-Real-IP per the engine's trusted proxies.
func (l *ipRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		limiter := l.limiterFor(clientIP)

		if limiter.Allow() {
			c.Next()
			return
		}

		reservation := limiter.Reserve()
		retryAfter := int(math.Ceil(reservation.Delay().Seconds()))
		reservation.Cancel()
		if retryAfter < 1 {
			retryAfter = 1
		}

		l.logger.Debug("rate limit exceeded",
			slog.String("client_ip", clientIP),
			slog.Int("retry_after", retryAfter))

		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":   "rate_limit_exceeded",
			"message": "Too many requests from this IP. Please retry after the specified delay.",
		})
	}
}

func (l *ipRateLimiter) limiterFor(ip string) *rate.Limiter {
	now := l.now()
	if val, ok := l.limiters.Load(ip); ok {
		entry := val.(*limiterEntry)
		entry.mu.Lock()
		entry.lastAccess = now
		entry.mu.Unlock()
		return entry.limiter
	}

	entry := &limiterEntry{
		limiter:    rate.NewLimiter(rate.Limit(l.rps), l.burst),
		lastAccess: now,
	}
	actual, _ := l.limiters.LoadOrStore(ip, entry)
	return actual.(*limiterEntry).limiter
}

// sweep removes buckets idle for longer than limiterIdleTimeout and returns how many.
func (l *ipRateLimiter) sweep() int {
	threshold := l.now().Add(-limiterIdleTimeout)
	removed := 0
	l.limiters.Range(func(key, value any) bool {
		entry := value.(*limiterEntry)
		entry.mu.Lock()
		idle := entry.lastAccess.Before(threshold)
		entry.mu.Unlock()

		if idle {
			l.limiters.Delete(key)
			removed++
		}
		return true
	})
	return removed
}

func (l *ipRateLimiter) sweepLoop(interval time.Duration) {
	defer close(l.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

// Close stops the sweeper. It is safe to call more than once.
func (l *ipRateLimiter) Close() {
	l.closeOnce.Do(func() {
		close(l.stop)
		<-l.done
	})
}
