package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/craftbits/executive-portal/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	// Set Gin to test mode to reduce noise in tests
	gin.SetMode(gin.TestMode)
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// logLines decodes the JSON log lines written by a production logger.
func logLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	var lines []map[string]interface{}
	for _, raw := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if raw == "" {
			continue
		}
		var line map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(raw), &line))
		lines = append(lines, line)
	}
	return lines
}

func TestRequestID(t *testing.T) {
	newRouter := func() *gin.Engine {
		router := gin.New()
		router.Use(RequestID())
		router.GET("/test", func(c *gin.Context) {
			c.String(http.StatusOK, GetRequestID(c))
		})
		return router
	}

	t.Run("generates new request ID", func(t *testing.T) {
		w := serve(newRouter(), httptest.NewRequest(http.MethodGet, "/test", nil))

		headerID := w.Header().Get(RequestIDHeader)
		assert.Len(t, headerID, 36)
		assert.Equal(t, headerID, w.Body.String())
	})

	t.Run("uses existing request ID from header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(RequestIDHeader, "upstream-id-123")

		w := serve(newRouter(), req)
		assert.Equal(t, "upstream-id-123", w.Body.String())
	})

	t.Run("replaces unusable upstream IDs", func(t *testing.T) {
		for _, id := range []string{strings.Repeat("x", 200), "has space", "tab\tid"} {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.Header.Set(RequestIDHeader, id)

			w := serve(newRouter(), req)
			assert.NotEqual(t, id, w.Body.String())
			assert.Len(t, w.Body.String(), 36)
		}
	})

	t.Run("GetRequestID returns empty string if not set", func(t *testing.T) {
		assert.Empty(t, GetRequestID(&gin.Context{}))
	})
}

func TestCORS(t *testing.T) {
	allowedOrigins := []string{"http://localhost:3000", "http://localhost:3001"}
	newRouter := func() *gin.Engine {
		router := gin.New()
		router.Use(CORS(allowedOrigins))
		router.GET("/test", func(c *gin.Context) { c.String(http.StatusOK, "OK") })
		router.OPTIONS("/test", func(c *gin.Context) { c.String(http.StatusOK, "OK") })
		return router
	}

	t.Run("allows request from allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Origin", "http://localhost:3000")

		w := serve(newRouter(), req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
		assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), DataSourceHeader)
	})

	t.Run("does not set CORS headers for disallowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Origin", "http://evil.com")

		w := serve(newRouter(), req)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("handles OPTIONS preflight for allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/test", nil)
		req.Header.Set("Origin", "http://localhost:3000")

		w := serve(newRouter(), req)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("rejects OPTIONS preflight for disallowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/test", nil)
		req.Header.Set("Origin", "http://evil.com")

		w := serve(newRouter(), req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestLogger(t *testing.T) {
	t.Run("logs request with level by status", func(t *testing.T) {
		var buf bytes.Buffer
		router := gin.New()
		router.Use(RequestID(), Logger(logger.NewWithWriter("production", &buf)))
		router.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "OK") })
		router.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
		router.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

		serve(router, httptest.NewRequest(http.MethodGet, "/ok?period=2024-01", nil))
		serve(router, httptest.NewRequest(http.MethodGet, "/missing", nil))
		serve(router, httptest.NewRequest(http.MethodGet, "/boom", nil))

		lines := logLines(t, &buf)
		require.Len(t, lines, 3)
		assert.Equal(t, "info", lines[0]["level"])
		assert.Equal(t, "period=2024-01", lines[0]["query"])
		assert.NotEmpty(t, lines[0]["request_id"])
		assert.Equal(t, "warn", lines[1]["level"])
		assert.Equal(t, "error", lines[2]["level"])
	})

	t.Run("tags dataset routes and records provenance", func(t *testing.T) {
		var buf bytes.Buffer
		router := gin.New()
		router.Use(RequestID(), Logger(logger.NewWithWriter("production", &buf)))
		router.GET("/datasets/:name", func(c *gin.Context) {
			c.Header(DataSourceHeader, "synthetic")
			c.String(http.StatusOK, "OK")
		})

		serve(router, httptest.NewRequest(http.MethodGet, "/datasets/gl_transactions", nil))

		lines := logLines(t, &buf)
		require.Len(t, lines, 1)
		assert.Equal(t, "gl_transactions", lines[0]["dataset"])
		assert.Equal(t, "synthetic", lines[0]["source"])
		assert.Equal(t, "/datasets/:name", lines[0]["route"])
	})

	t.Run("GetLogger retrieves logger from context", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestID(), Logger(logger.Nop()))
		var found *logger.Logger
		router.GET("/test", func(c *gin.Context) {
			found = GetLogger(c)
			c.String(http.StatusOK, "OK")
		})

		serve(router, httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.NotNil(t, found)
	})

	t.Run("GetLogger returns nil if not set", func(t *testing.T) {
		assert.Nil(t, GetLogger(&gin.Context{}))
	})
}

func TestRecovery(t *testing.T) {
	t.Run("recovers from panic and returns 500", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestID(), Recovery(logger.Nop()))
		router.GET("/panic", func(c *gin.Context) {
			panic("test panic")
		})

		w := serve(router, httptest.NewRequest(http.MethodGet, "/panic", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "INTERNAL_SERVER_ERROR")
		assert.Contains(t, w.Body.String(), w.Header().Get(RequestIDHeader))
		assert.NotContains(t, w.Body.String(), "test panic")
	})

	t.Run("does not interfere with normal requests", func(t *testing.T) {
		router := gin.New()
		router.Use(Recovery(logger.Nop()))
		router.GET("/normal", func(c *gin.Context) {
			c.String(http.StatusOK, "OK")
		})

		w := serve(router, httptest.NewRequest(http.MethodGet, "/normal", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "OK", w.Body.String())
	})
}

func TestMiddlewareStack(t *testing.T) {
	router := gin.New()
	router.Use(RequestID(), Logger(logger.Nop()), Recovery(logger.Nop()), CORS([]string{"http://localhost:3000"}))
	router.GET("/test", func(c *gin.Context) {
		assert.NotEmpty(t, GetRequestID(c))
		assert.NotNil(t, GetLogger(c))
		c.String(http.StatusOK, "OK")
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := serve(router, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}
