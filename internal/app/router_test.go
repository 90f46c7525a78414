package app_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"student-manager/internal/app"
	"student-manager/internal/config"
	"student-manager/testing/testhttp"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return app.NewRouter(config.ServerConfig{RequestTimeout: 5, CORSOrigins: []string{"http://localhost:3000"}}, app.Dependencies{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestRouter(t *testing.T) {
	router := newRouter()

	t.Run("UnknownRoute_PageNotFound", func(t *testing.T) {
		resp := testhttp.Do(t, router, http.MethodGet, "/does/not/exist", nil)

		assert.Equal(t, http.StatusNotFound, resp.Code)
		assert.Equal(t, "Page Not Found", resp.Message)
		assert.True(t, resp.IsNull())
	})

	t.Run("UnknownMethod_PageNotFound", func(t *testing.T) {
		resp := testhttp.Do(t, router, http.MethodPut, "/users", "{}")

		assert.Equal(t, http.StatusNotFound, resp.Code)
		assert.Equal(t, "Page Not Found", resp.Message)
	})

	t.Run("Health", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	})

	t.Run("Metrics", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "student_manager_http_requests_total")
	})

	t.Run("RequestID_Header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("CORS_Preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/users", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")
	})

	t.Run("InvalidID_RejectedBeforeStore", func(t *testing.T) {
		resp := testhttp.Do(t, router, http.MethodGet, "/users/not-a-uuid", nil)

		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Equal(t, "User Id Invalid", resp.Message)
	})
}
