package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/visit-counter/internal/config"
)

func limiterCfg() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            5 * time.Hour,
		KeyStrategy:    "ip",
		Prefix:         "rl",
	}
}

// newLimited returns an echo instance whose GET / counts how often it runs.
func newLimited(cfg config.RateLimitConfig, rdb redis.Scripter) (*echo.Echo, *int) {
	hits := 0
	e := echo.New()
	e.GET("/", func(c echo.Context) error {
		hits++
		return c.String(http.StatusOK, "ok")
	}, NewTokenBucket(cfg, rdb))
	return e, &hits
}

func serve(e *echo.Echo) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	return rec
}

func TestTokenBucketBlocksWhenEmpty(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	e, hits := newLimited(limiterCfg(), rdb)

	for i := 1; i >= 0; i-- {
		rec := serve(e)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, strconv.Itoa(i), rec.Header().Get("X-RateLimit-Remaining"))
	}

	rec := serve(e)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	retry, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.Greater(t, retry, 0)
	assert.Equal(t, 2, *hits)
	assert.True(t, mr.Exists("rl:ip:192.0.2.1"))
}

func TestTokenBucketDisabled(t *testing.T) {
	cfg := limiterCfg()
	cfg.Enabled = false
	e, hits := newLimited(cfg, nil)

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, serve(e).Code)
	}
	assert.Equal(t, 5, *hits)
}

func TestTokenBucketFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	mr.Close()
	e, hits := newLimited(limiterCfg(), rdb)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(e).Code)
	}
	assert.Equal(t, 3, *hits)
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetPath("/")

	cfg := limiterCfg()
	for strategy, want := range map[string]string{
		"ip":       "rl:ip:192.0.2.1",
		"route":    "rl:route:GET /",
		"ip_route": "rl:ip:192.0.2.1:route:GET /",
		"bogus":    "rl:ip:192.0.2.1",
	} {
		cfg.KeyStrategy = strategy
		assert.Equal(t, want, buildRateKey(cfg, c), strategy)
	}
}

func TestTokenBucketIgnoresSpoofedForwardedFor(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	e, hits := newLimited(limiterCfg(), rdb)
	e.IPExtractor = IPExtractor(false)

	codes := make([]int, 0, 3)
	for _, xff := range []string{"203.0.113.1", "203.0.113.2", "203.0.113.3"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderXForwardedFor, xff)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, 2, *hits)
}

func TestIPExtractorTrustProxy(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.5:4321"
	req.Header.Set(echo.HeaderXForwardedFor, "203.0.113.7")

	assert.Equal(t, "203.0.113.7", IPExtractor(true)(req))
	assert.Equal(t, "10.0.0.5", IPExtractor(false)(req))

	req.RemoteAddr = "198.51.100.9:4321"
	assert.Equal(t, "198.51.100.9", IPExtractor(true)(req), "untrusted peer cannot set the client IP")
}
