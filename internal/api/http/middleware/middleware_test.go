package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestIDGenerated(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) {
		assert.NotEmpty(t, GetRequestID(c.Request.Context()))
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestRequestIDEchoed(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) {
		assert.Equal(t, "req-123", GetRequestID(c.Request.Context()))
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Header().Get("X-Request-Id"))
}

func TestGetRequestIDMissing(t *testing.T) {
	assert.Empty(t, GetRequestID(httptest.NewRequest(http.MethodGet, "/", nil).Context()))
}

func TestAPIKey(t *testing.T) {
	newRouter := func(expected string) *gin.Engine {
		r := gin.New()
		r.Use(APIKey(expected))
		r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
		return r
	}

	do := func(r *gin.Engine, key string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if key != "" {
			req.Header.Set("X-API-Key", key)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	t.Run("accepts the configured key", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, do(newRouter("secret"), "secret"))
	})

	t.Run("rejects a wrong key", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, do(newRouter("secret"), "guess"))
	})

	t.Run("rejects a missing key", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, do(newRouter("secret"), ""))
	})

	t.Run("unconfigured key closes the routes", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, do(newRouter(""), ""))
		assert.Equal(t, http.StatusUnauthorized, do(newRouter(""), "anything"))
	})
}
