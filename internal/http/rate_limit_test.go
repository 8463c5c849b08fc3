package http

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newLimitedRouter(t *testing.T, rps float64, burst int) (*gin.Engine, *ipRateLimiter) {
	t.Helper()

	limiter := newIPRateLimiter(rps, burst, discardLogger())
	t.Cleanup(limiter.Close)

	router := gin.New()
	router.Use(limiter.Middleware())
	router.GET("/v1/login-policy", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router, limiter
}

func requestFrom(router *gin.Engine, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/v1/login-policy", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimit_BurstThenReject(t *testing.T) {
	router, _ := newLimitedRouter(t, 1, 3)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, requestFrom(router, "10.0.0.1:4000").Code, "request %d", i)
	}

	w := requestFrom(router, "10.0.0.1:4000")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	retryAfter, err := strconv.Atoi(w.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, retryAfter, 1)
	assert.Contains(t, w.Body.String(), "rate_limit_exceeded")
}

func TestRateLimit_IndependentPerIP(t *testing.T) {
	router, _ := newLimitedRouter(t, 0.01, 1)

	assert.Equal(t, http.StatusOK, requestFrom(router, "10.0.0.1:4000").Code)
	assert.Equal(t, http.StatusTooManyRequests, requestFrom(router, "10.0.0.1:4001").Code)
	assert.Equal(t, http.StatusOK, requestFrom(router, "10.0.0.2:4000").Code)
}

func TestRateLimit_ConcurrentSameIP(t *testing.T) {
	router, _ := newLimitedRouter(t, 0.01, 5)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if requestFrom(router, "10.0.0.9:5000").Code == http.StatusOK {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, accepted)
}

func TestRateLimit_SweepDropsIdleBuckets(t *testing.T) {
	_, limiter := newLimitedRouter(t, 1, 1)

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	limiter.limiterFor("10.0.0.1")
	now = now.Add(30 * time.Minute)
	limiter.limiterFor("10.0.0.2")

	now = now.Add(45 * time.Minute)
	assert.Equal(t, 1, limiter.sweep())

	_, stale := limiter.limiters.Load("10.0.0.1")
	_, fresh := limiter.limiters.Load("10.0.0.2")
	assert.False(t, stale)
	assert.True(t, fresh)
}

func TestRateLimit_CloseStopsSweeper(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	limiter := newIPRateLimiter(1, 1, discardLogger())
	limiter.Close()
	limiter.Close()
}
