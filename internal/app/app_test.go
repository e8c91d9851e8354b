package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/BnB-Initivatives/stox-prod-test/internal/observability"
	_ "github.com/BnB-Initivatives/stox-prod-test/testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test,http://b.test")
	t.Setenv("INVENTORY_SPLIT_PHASES", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSAllowedOrigins)
	require.True(t, cfg.InventorySplitPhases)
	require.Equal(t, 10, cfg.BcryptCost)
	require.Equal(t, 2*time.Minute, cfg.IdempotencyClaimTTL)
	require.Equal(t, 168*time.Hour, cfg.IdempotencyRetention)
	require.False(t, cfg.IsProduction())
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{PGDSN: "postgres://x", RateLimitPerMinute: 10, LowStockCacheTTL: 1}
	require.NoError(t, cfg.Validate())

	cfg.AppEnv = "production"
	cfg.CORSAllowedOrigins = []string{"*"}
	require.Error(t, cfg.Validate())

	cfg = Config{PGDSN: " ", RateLimitPerMinute: 10, LowStockCacheTTL: 1}
	require.Error(t, cfg.Validate())

	cfg = Config{PGDSN: "postgres://x", RateLimitPerMinute: 10, LowStockCacheTTL: 1,
		AppRequestTimeout: 30 * time.Second, IdempotencyClaimTTL: 30 * time.Second}
	require.EqualError(t, cfg.Validate(), "IDEMPOTENCY_CLAIM_TTL must exceed APP_REQUEST_TIMEOUT")

	cfg.IdempotencyClaimTTL = time.Minute
	cfg.IdempotencyRetention = 30 * time.Second
	require.EqualError(t, cfg.Validate(), "IDEMPOTENCY_RETENTION must not be shorter than IDEMPOTENCY_CLAIM_TTL")

	cfg.IdempotencyRetention = 0
	require.NoError(t, cfg.Validate())
}

func TestInTestMode(t *testing.T) {
	require.True(t, InTestMode())
	t.Setenv(testModeEnv, "0")
	RefreshTestMode()
	require.False(t, InTestMode())
	t.Setenv(testModeEnv, "1")
	RefreshTestMode()
	require.True(t, InTestMode())
}

func TestNewLoggerHonoursFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{LogFormat: "json", LogLevel: "warn", AppEnv: "staging"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "shown", line["msg"])
	require.Equal(t, "staging", line["env"])
}

func TestRouterHealthAndProblems(t *testing.T) {
	metrics := observability.NewMetrics()
	down := PingFunc(func(context.Context) error { return errors.New("connection refused") })
	up := PingFunc(func(context.Context) error { return nil })

	router := NewRouter(RouterParams{
		Config:  &Config{RateLimitPerMinute: 100},
		Metrics: metrics,
		Checks:  map[string]Pinger{"postgres": up},
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/nowhere", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "stox_http_requests_total")

	degraded := NewRouter(RouterParams{Checks: map[string]Pinger{"redis": down}})
	rr = httptest.NewRecorder()
	degraded.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	require.Contains(t, rr.Body.String(), "connection refused")
}

func TestRateLimitReturnsProblem(t *testing.T) {
	router := NewRouter(RouterParams{Config: &Config{RateLimitPerMinute: 1}})

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestCORSPreflight(t *testing.T) {
	router := NewRouter(RouterParams{Config: &Config{CORSAllowedOrigins: []string{"http://spa.test"}}})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/transactions/", nil)
	req.Header.Set("Origin", "http://spa.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Idempotency-Key")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, "http://spa.test", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestBuildServicesWiresCache(t *testing.T) {
	svcs := BuildServices(ServiceParams{Config: &Config{BcryptCost: 4}})
	require.NotNil(t, svcs.Catalog)
	require.NotNil(t, svcs.Inventory)
	require.NotNil(t, svcs.RBAC)
	require.NotNil(t, svcs.Idempotency)
	require.Nil(t, svcs.StockCache)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svcs = BuildServices(ServiceParams{Config: &Config{LowStockCacheTTL: time.Minute}, Redis: client})
	require.NotNil(t, svcs.StockCache)
	require.NoError(t, svcs.StockCache.Invalidate(context.Background()))
	require.True(t, mr.Exists(lowStockNamespace+":version"))
}
