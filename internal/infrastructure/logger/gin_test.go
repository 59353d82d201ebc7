package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("logs completed request", func(t *testing.T) {
		core, logs := observer.New(zap.DebugLevel)
		router := gin.New()
		router.Use(func(c *gin.Context) { c.Set("request_id", "req-7") })
		router.Use(GinMiddleware(zap.New(core)))
		router.GET("/invoices/:id", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/invoices/abc?full=1", nil))

		require.Equal(t, 1, logs.Len())
		entry := logs.All()[0]
		assert.Equal(t, zap.InfoLevel, entry.Level)
		assert.Equal(t, "request completed", entry.Message)
		fields := entry.ContextMap()
		assert.Equal(t, "req-7", fields["request_id"])
		assert.Equal(t, "GET", fields["method"])
		assert.Equal(t, "/invoices/abc", fields["path"])
		assert.Equal(t, int64(http.StatusOK), fields["status"])
		assert.Equal(t, "full=1", fields["query"])
	})

	t.Run("warns on client errors and errors on server errors", func(t *testing.T) {
		core, logs := observer.New(zap.DebugLevel)
		router := gin.New()
		router.Use(GinMiddleware(zap.New(core)))
		router.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
		router.GET("/broken", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/missing", nil))
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/broken", nil))

		require.Equal(t, 2, logs.Len())
		assert.Equal(t, zap.WarnLevel, logs.All()[0].Level)
		assert.Equal(t, zap.ErrorLevel, logs.All()[1].Level)
	})

	t.Run("propagates request ID to the request context", func(t *testing.T) {
		core, _ := observer.New(zap.DebugLevel)
		router := gin.New()
		router.Use(func(c *gin.Context) { c.Set("request_id", "req-9") })
		router.Use(GinMiddleware(zap.New(core)))

		var seen string
		router.GET("/test", func(c *gin.Context) {
			seen = RequestIDFrom(c.Request.Context())
			c.Status(http.StatusOK)
		})

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/test", nil))

		assert.Equal(t, "req-9", seen)
	})
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, logs := observer.New(zap.DebugLevel)
	router := gin.New()
	router.Use(Recovery(zap.New(core)))
	router.GET("/panic", func(c *gin.Context) {
		panic("matching blew up")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "panic recovered", entry.Message)
	assert.Equal(t, "matching blew up", entry.ContextMap()["panic"])
}

func TestGetGinLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("returns the request-scoped logger", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		log := zap.NewExample()
		c.Set(ginLoggerKey, log)

		assert.Same(t, log, GetGinLogger(c))
	})

	t.Run("falls back to a no-op logger", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())

		assert.NotNil(t, GetGinLogger(c))
	})
}
