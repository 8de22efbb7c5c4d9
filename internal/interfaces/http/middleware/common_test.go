package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/salescrm/backend/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCORSWithConfig(t *testing.T) {
	newRouter := func(cfg CORSConfig) *gin.Engine {
		r := gin.New()
		r.Use(CORSWithConfig(cfg))
		r.GET("/test", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
		return r
	}

	t.Run("default config sets no headers", func(t *testing.T) {
		w := serve(newRouter(DefaultCORSConfig()), "GET", "/test", map[string]string{"Origin": "http://evil.example"})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("allows listed origin with credentials", func(t *testing.T) {
		cfg := DefaultCORSConfig()
		cfg.AllowOrigins = []string{"http://app.local"}

		w := serve(newRouter(cfg), "GET", "/test", map[string]string{"Origin": "http://app.local"})

		assert.Equal(t, "http://app.local", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-Country")
		assert.Equal(t, "43200", w.Header().Get("Access-Control-Max-Age"))
	})

	t.Run("wildcard never allows credentials", func(t *testing.T) {
		cfg := DefaultCORSConfig()
		cfg.AllowOrigins = []string{"*"}

		w := serve(newRouter(cfg), "GET", "/test", map[string]string{"Origin": "http://any.local"})

		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("preflight is answered without reaching routes", func(t *testing.T) {
		cfg := DefaultCORSConfig()
		cfg.AllowOrigins = []string{"http://app.local"}
		cfg.MaxAge = 30 * time.Second

		w := serve(newRouter(cfg), "OPTIONS", "/test", map[string]string{"Origin": "http://app.local"})

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "30", w.Header().Get("Access-Control-Max-Age"))
	})
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(RequestIDKey)+"|"+logger.RequestID(c.Request.Context()))
	})

	t.Run("generates request ID", func(t *testing.T) {
		w := serve(r, "GET", "/test", nil)

		id := w.Header().Get(RequestIDHeader)
		assert.Len(t, id, 32)
		assert.Equal(t, id+"|"+id, w.Body.String())
	})

	t.Run("keeps provided request ID", func(t *testing.T) {
		w := serve(r, "GET", "/test", map[string]string{RequestIDHeader: "req-123"})

		assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
		assert.Equal(t, "req-123|req-123", w.Body.String())
	})

	t.Run("replaces oversized request ID", func(t *testing.T) {
		w := serve(r, "GET", "/test", map[string]string{RequestIDHeader: strings.Repeat("x", 300)})

		assert.Len(t, w.Header().Get(RequestIDHeader), 32)
	})
}

func TestSecureWithConfig(t *testing.T) {
	newRouter := func(cfg SecurityConfig) *gin.Engine {
		r := gin.New()
		r.Use(SecureWithConfig(cfg))
		r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })
		return r
	}

	w := serve(newRouter(DefaultSecurityConfig()), "GET", "/test", nil)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))

	cfg := DefaultSecurityConfig()
	cfg.HSTSEnabled = true
	w = serve(newRouter(cfg), "GET", "/test", nil)
	assert.Equal(t, "max-age=31536000; includeSubDomains", w.Header().Get("Strict-Transport-Security"))
}
