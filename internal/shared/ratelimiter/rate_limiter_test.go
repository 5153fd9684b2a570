package ratelimiter

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestRateLimiter_Allow(t *testing.T) {
	t.Run("allows up to the limit", func(t *testing.T) {
		rl := NewRateLimiter(3, time.Minute)

		for i := 0; i < 3; i++ {
			if !rl.Allow() {
				t.Fatalf("call %d should be allowed", i+1)
			}
		}
		if rl.Allow() {
			t.Error("call over the limit should be denied")
		}
	})

	t.Run("resets after the interval", func(t *testing.T) {
		rl := NewRateLimiter(1, 10*time.Millisecond)

		if !rl.Allow() {
			t.Fatal("first call should be allowed")
		}
		if rl.Allow() {
			t.Fatal("second call should be denied")
		}

		time.Sleep(15 * time.Millisecond)

		if !rl.Allow() {
			t.Error("call after reset should be allowed")
		}
	})
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rl := NewRateLimiter(1, time.Minute)

	router := gin.New()
	router.GET("/limited", Middleware(rl), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/limited", nil))
	if first.Code != http.StatusOK {
		t.Errorf("first request: expected 200, got %d", first.Code)
	}

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/limited", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Errorf("second request: expected 429, got %d", second.Code)
	}
}
