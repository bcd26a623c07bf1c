package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func limitedRouter(rl *RateLimiter) *gin.Engine {
	r := newMWRouter(rl.Handler())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func get(r *gin.Engine, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.RemoteAddr = ip + ":1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_BurstThen429(t *testing.T) {
	rl := NewRateLimiter(0, 2, KeyByUserOrIP()) // no refill, burst of 2
	r := limitedRouter(rl)

	if w := get(r, "10.0.0.1"); w.Code != http.StatusOK {
		t.Fatalf("first request = %d", w.Code)
	}
	if w := get(r, "10.0.0.1"); w.Code != http.StatusOK {
		t.Fatalf("second request = %d", w.Code)
	}
	w := get(r, "10.0.0.1")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("third request = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatal("Retry-After missing on 429")
	}
}

func TestRateLimiter_BucketsAreIndependentPerIP(t *testing.T) {
	rl := NewRateLimiter(0, 1, KeyByUserOrIP())
	r := limitedRouter(rl)

	if w := get(r, "10.0.0.1"); w.Code != http.StatusOK {
		t.Fatalf("ip1 first = %d", w.Code)
	}
	if w := get(r, "10.0.0.1"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("ip1 second = %d", w.Code)
	}
	if w := get(r, "10.0.0.2"); w.Code != http.StatusOK {
		t.Fatalf("ip2 must have its own bucket, got %d", w.Code)
	}
}

func TestKeyByUserOrIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	keyFn := KeyByUserOrIP()

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)
	c.Request.RemoteAddr = "10.0.0.9:1234"
	if k := keyFn(c); k != "ip:10.0.0.9" {
		t.Fatalf("ip key = %q", k)
	}

	c.Set("userID", "u42")
	if k := keyFn(c); k != "user:u42" {
		t.Fatalf("user key = %q", k)
	}

	// Empty user ID falls back to IP.
	c.Set("userID", "")
	if k := keyFn(c); k != "ip:10.0.0.9" {
		t.Fatalf("fallback key = %q", k)
	}
}

func TestRateLimiter_IdleBucketGC(t *testing.T) {
	rl := NewRateLimiter(0, 1, KeyByUserOrIP())
	rl.ttl = time.Millisecond

	rl.getVisitor("ip:10.0.0.1")
	time.Sleep(5 * time.Millisecond)

	// Force the periodic sweep.
	rl.cleanupN = 4999
	rl.getVisitor("ip:10.0.0.2")

	rl.mu.Lock()
	_, stale := rl.visitors["ip:10.0.0.1"]
	_, fresh := rl.visitors["ip:10.0.0.2"]
	rl.mu.Unlock()
	if stale {
		t.Fatal("idle bucket survived GC")
	}
	if !fresh {
		t.Fatal("fresh bucket missing")
	}
}
