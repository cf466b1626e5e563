package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestRouter(l *zap.Logger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		ctx := WithScope(c.Request.Context(), RequestScope{RequestID: "req-42", TenantID: "t-1"})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})
	r.Use(Recovery(l), GinMiddleware(l))
	return r
}

func findEntry(t *testing.T, recorded *observer.ObservedLogs, msg string) observer.LoggedEntry {
	t.Helper()
	entries := recorded.FilterMessage(msg).All()
	require.NotEmpty(t, entries, "no %q entry", msg)
	return entries[0]
}

func TestGinMiddleware(t *testing.T) {
	t.Run("logs the request with scope and route", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		r := newTestRouter(zap.New(core))
		r.GET("/api/v1/ledger/transactions/:id", func(c *gin.Context) {
			FromContext(c.Request.Context()).Debug("inside handler")
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ledger/transactions/abc?x=1", nil))
		assert.Equal(t, http.StatusOK, w.Code)

		entry := findEntry(t, recorded, "HTTP Request")
		assert.Equal(t, zapcore.InfoLevel, entry.Level)
		fields := entry.ContextMap()
		assert.Equal(t, "req-42", fields["request_id"])
		assert.Equal(t, "t-1", fields["tenant_id"])
		assert.Equal(t, "/api/v1/ledger/transactions/:id", fields["route"])
		assert.Equal(t, "x=1", fields["query"])

		inner := findEntry(t, recorded, "inside handler")
		assert.Equal(t, "req-42", inner.ContextMap()["request_id"])
	})

	t.Run("level follows the status code", func(t *testing.T) {
		core, recorded := observer.New(zapcore.InfoLevel)
		r := newTestRouter(zap.New(core))
		r.GET("/conflict", func(c *gin.Context) { c.Status(http.StatusConflict) })
		r.GET("/down", func(c *gin.Context) { c.Status(http.StatusServiceUnavailable) })

		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/conflict", nil))
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/down", nil))

		entries := recorded.FilterMessage("HTTP Request").All()
		require.Len(t, entries, 2)
		assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
		assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	})
}

func TestRecovery(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	r := newTestRouter(zap.New(core))
	r.GET("/panic", func(c *gin.Context) { panic("unbalanced") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"request_id":"req-42"`)
	assert.Contains(t, w.Body.String(), `"INTERNAL_ERROR"`)

	entry := findEntry(t, recorded, "Panic recovered")
	assert.Equal(t, "unbalanced", entry.ContextMap()["error"])
}
