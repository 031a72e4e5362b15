package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/VitaminP8/blogexpress/internal/auth"
	"github.com/VitaminP8/blogexpress/internal/config"
	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func newServer(cfg config.RateLimitConfig, rdb *redis.Client) *echo.Echo {
	e := echo.New()
	e.Use(Middleware(cfg, rdb, zap.NewNop()))
	e.POST("/query", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	return e
}

func doRequest(e *echo.Echo, ctx context.Context) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/query", nil).WithContext(ctx)
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func testConfig() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillInterval: time.Hour,
		TTL:            time.Minute,
		Prefix:         "rl",
	}
}

func TestMiddleware(t *testing.T) {
	t.Run("Requests over capacity are rejected", func(t *testing.T) {
		_, rdb := setupRedis(t)
		e := newServer(testConfig(), rdb)

		rec := doRequest(e, context.Background())
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))

		rec = doRequest(e, context.Background())
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = doRequest(e, context.Background())
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	})

	t.Run("Users get separate buckets", func(t *testing.T) {
		_, rdb := setupRedis(t)
		e := newServer(testConfig(), rdb)

		alice := auth.WithIdentity(context.Background(), auth.Identity{IsAuth: true, UserID: "alice"})
		bob := auth.WithIdentity(context.Background(), auth.Identity{IsAuth: true, UserID: "bob"})

		for i := 0; i < 2; i++ {
			require.Equal(t, http.StatusOK, doRequest(e, alice).Code)
		}
		assert.Equal(t, http.StatusTooManyRequests, doRequest(e, alice).Code)
		assert.Equal(t, http.StatusOK, doRequest(e, bob).Code)
	})

	t.Run("Bucket key expires", func(t *testing.T) {
		mr, rdb := setupRedis(t)
		e := newServer(testConfig(), rdb)

		doRequest(e, context.Background())
		key := "rl:ip:10.0.0.1:user:anon"
		require.True(t, mr.Exists(key))
		assert.Equal(t, time.Minute, mr.TTL(key))
	})

	t.Run("Disabled limiter passes everything", func(t *testing.T) {
		cfg := testConfig()
		cfg.Enabled = false
		e := newServer(cfg, nil)

		for i := 0; i < 5; i++ {
			rec := doRequest(e, context.Background())
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
		}
	})

	t.Run("Redis failure does not block requests", func(t *testing.T) {
		mr, rdb := setupRedis(t)
		e := newServer(testConfig(), rdb)
		mr.Close()

		assert.Equal(t, http.StatusOK, doRequest(e, context.Background()).Code)
	})
}
