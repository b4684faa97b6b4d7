package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newRateLimitedRouter(rps float64, burst int) *gin.Engine {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	router := gin.New()
	router.Use(RateLimitMiddleware(newIPRateLimiter(rps, burst), logger))
	router.POST("/v1/carts", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"id": 1})
	})
	return router
}

func TestRateLimitMiddleware_AllowsRequestsWithinLimit(t *testing.T) {
	router := newRateLimitedRouter(10.0, 20)

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/carts", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
	}
}

func TestRateLimitMiddleware_BlocksRequestsExceedingLimit(t *testing.T) {
	router := newRateLimitedRouter(1.0, 2)

	// Send requests up to burst capacity (should succeed)
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/carts", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusCreated, w.Code)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/carts", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate_limit_exceeded")
}

func TestRateLimitMiddleware_IndependentLimitsPerIP(t *testing.T) {
	router := newRateLimitedRouter(1.0, 1)

	for _, ip := range []string{"192.168.1.1", "192.168.1.2"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/carts", nil)
		req.Header.Set("X-Forwarded-For", ip)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code, ip)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/carts", nil)
	req.Header.Set("X-Forwarded-For", "192.168.1.1")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestIPRateLimiter_RemoveIdleSince(t *testing.T) {
	store := newIPRateLimiter(1.0, 1)
	store.getLimiter("10.0.0.1")
	store.getLimiter("10.0.0.2")

	store.removeIdleSince(time.Now().Add(time.Minute))

	count := 0
	store.limiters.Range(func(_, _ interface{}) bool {
		count++
		return true
	})
	assert.Zero(t, count)
}

func TestIPRateLimiter_CleanupStopsOnCancel(t *testing.T) {
	store := newIPRateLimiter(1.0, 1)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		store.cleanupStale(ctx, time.Hour)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup did not stop after cancel")
	}
}
