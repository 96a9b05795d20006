package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiterFixedWindow(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewMemoryLimiter()
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow(ctx, "k", 3, time.Minute), "request %d", i+1)
	}
	assert.False(t, limiter.Allow(ctx, "k", 3, time.Minute))
	assert.True(t, limiter.Allow(ctx, "other", 3, time.Minute))

	now = now.Add(time.Minute + time.Second)
	assert.True(t, limiter.Allow(ctx, "k", 3, time.Minute))
}

func TestNilRedisLimiterAllows(t *testing.T) {
	limiter := NewRedisLimiter(nil)
	assert.Nil(t, limiter)
	assert.True(t, limiter.Allow(context.Background(), "k", 1, time.Minute))
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/confirm", RateLimit(NewMemoryLimiter(), "confirm", 1, time.Minute), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/confirm", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimitWithoutLimiterPassesThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/confirm", RateLimit(nil, "confirm", 1, time.Minute), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/confirm", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestMemoryLimiterSweepsExpiredBuckets(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewMemoryLimiter()
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		limiter.Allow(ctx, fmt.Sprintf("client-%d", i), 2, time.Minute)
	}
	assert.Len(t, limiter.buckets, 50)

	now = now.Add(2 * time.Minute)
	assert.True(t, limiter.Allow(ctx, "client-0", 2, time.Minute))
	assert.Len(t, limiter.buckets, 1)
}

func TestRateLimitIgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := NewMemoryLimiter()
	router := gin.New()
	require.NoError(t, router.SetTrustedProxies(nil))
	router.GET("/confirm", RateLimit(limiter, "confirm", 2, time.Minute), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	passed := 0
	for i := 0; i < 50; i++ {
		req := httptest.NewRequest(http.MethodGet, "/confirm", nil)
		req.RemoteAddr = "198.51.100.7:4321"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code == http.StatusOK {
			passed++
		}
	}
	assert.Equal(t, 2, passed)
	assert.Len(t, limiter.buckets, 1)
}

func TestRateLimitHonoursForwardedForFromTrustedProxy(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := NewMemoryLimiter()
	router := gin.New()
	require.NoError(t, router.SetTrustedProxies([]string{"10.0.0.0/8"}))
	router.GET("/confirm", RateLimit(limiter, "confirm", 1, time.Minute), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for _, client := range []string{"203.0.113.1", "203.0.113.2"} {
		req := httptest.NewRequest(http.MethodGet, "/confirm", nil)
		req.RemoteAddr = "10.1.2.3:8080"
		req.Header.Set("X-Forwarded-For", client)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, client)
	}
	assert.Contains(t, limiter.buckets, "ratelimit:confirm:203.0.113.2")
}
