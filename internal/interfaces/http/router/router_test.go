package router

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/erp/ledger/internal/interfaces/http/handler"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubPinger struct{ err error }

func (p stubPinger) Ping() error { return p.err }

func serve(engine *gin.Engine, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestRouter(t *testing.T) {
	t.Run("defaults to v1", func(t *testing.T) {
		r := NewRouter(gin.New())
		assert.Equal(t, "v1", r.apiVersion)
		assert.Empty(t, r.registrars)
	})

	t.Run("mounts registrars under the version prefix", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("ledger", "/ledger").
			GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
		NewRouter(engine, WithAPIVersion("v2")).Register(g).Setup()

		w := serve(engine, http.MethodGet, "/api/v2/ledger/ping", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "pong", w.Body.String())
	})
}

func TestDomainGroup(t *testing.T) {
	ok := func(body string) gin.HandlerFunc {
		return func(c *gin.Context) { c.String(http.StatusOK, body) }
	}

	t.Run("registers every method", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("periods", "/periods").
			GET("/:id", ok("get")).
			POST("", ok("post")).
			PUT("/:id", ok("put")).
			DELETE("/:id", ok("delete"))
		g.RegisterRoutes(engine.Group("/api/v1"))

		tests := []struct {
			method, path, body string
		}{
			{http.MethodGet, "/api/v1/periods/1", "get"},
			{http.MethodPost, "/api/v1/periods", "post"},
			{http.MethodPut, "/api/v1/periods/1", "put"},
			{http.MethodDelete, "/api/v1/periods/1", "delete"},
		}
		for _, tt := range tests {
			w := serve(engine, tt.method, tt.path, nil)
			assert.Equal(t, http.StatusOK, w.Code, "%s %s", tt.method, tt.path)
			assert.Equal(t, tt.body, w.Body.String())
		}
	})

	t.Run("applies group middleware to subgroups", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("ledger", "/ledger").Use(func(c *gin.Context) {
			c.Header("X-Group", "ledger")
			c.Next()
		})
		g.Group("accounts", "/accounts").GET("", ok("accounts"))
		g.RegisterRoutes(engine.Group("/api/v1"))

		w := serve(engine, http.MethodGet, "/api/v1/ledger/accounts", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ledger", w.Header().Get("X-Group"))
	})

	t.Run("lists routes with full paths", func(t *testing.T) {
		g := NewDomainGroup("ledger", "/ledger")
		g.Group("periods", "/periods").POST("/:id/close", ok(""))

		assert.Equal(t, []Route{{Method: http.MethodPost, Path: "/ledger/periods/:id/close"}}, g.Routes())
		assert.Equal(t, "ledger", g.Name())
		assert.Equal(t, "/ledger", g.Prefix())
	})
}

func TestLedgerRoutes(t *testing.T) {
	routes := LedgerRoutes(Handlers{}).Routes()

	expected := []Route{
		{http.MethodPost, "/ledger/accounts"},
		{http.MethodGet, "/ledger/accounts/tree"},
		{http.MethodGet, "/ledger/accounts/:id/balances"},
		{http.MethodPut, "/ledger/accounts/:id/names/:lang"},
		{http.MethodPost, "/ledger/transactions/:id/complete"},
		{http.MethodPost, "/ledger/transactions/:id/reverse"},
		{http.MethodDelete, "/ledger/transactions/:id/entries/:seq"},
		{http.MethodGet, "/ledger/periods/last-closed"},
		{http.MethodPost, "/ledger/periods/:id/close"},
		{http.MethodGet, "/ledger/reports/balance-sheet"},
	}
	for _, r := range expected {
		assert.Contains(t, routes, r)
	}
	assert.Len(t, routes, 28)
}

func newTestEngine(t *testing.T, cfg EngineConfig, pingErr error) *gin.Engine {
	t.Helper()
	engine, err := New(cfg, Handlers{System: handler.NewSystemHandler(stubPinger{err: pingErr}, "test")})
	require.NoError(t, err)
	return engine
}

func TestNew(t *testing.T) {
	t.Run("health reports database status", func(t *testing.T) {
		w := serve(newTestEngine(t, EngineConfig{}, nil), http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
		assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))

		w = serve(newTestEngine(t, EngineConfig{}, errors.New("down")), http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("system info needs no tenant", func(t *testing.T) {
		w := serve(newTestEngine(t, EngineConfig{}, nil), http.MethodGet, "/api/v1/system/info", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("ledger routes require a tenant", func(t *testing.T) {
		w := serve(newTestEngine(t, EngineConfig{}, nil), http.MethodGet, "/api/v1/ledger/accounts", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, false, body["success"])
	})

	t.Run("unknown routes answer JSON 404", func(t *testing.T) {
		w := serve(newTestEngine(t, EngineConfig{}, nil), http.MethodGet, "/nope", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_ROUTE_NOT_FOUND")
	})

	t.Run("wrong method answers 405", func(t *testing.T) {
		w := serve(newTestEngine(t, EngineConfig{}, nil), http.MethodDelete, "/health", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})

	t.Run("rate limiter rejects over burst", func(t *testing.T) {
		limiter := middleware.NewRateLimiter(0.001, 1, time.Minute)
		engine := newTestEngine(t, EngineConfig{RateLimiter: limiter}, nil)
		header := map[string]string{middleware.HeaderTenantID: uuid.NewString()}

		assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/health", header).Code)
		assert.Equal(t, http.StatusTooManyRequests, serve(engine, http.MethodGet, "/health", header).Code)
	})
}
