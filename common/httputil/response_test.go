package httputil_test

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"student-manager/common/apperr"
	"student-manager/common/httputil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(report httputil.Reporter) *gin.Engine {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	router := gin.New()
	router.NoRoute(httputil.NotFound)
	router.GET("/ok", func(c *gin.Context) {
		httputil.RespondWithJSON(c, http.StatusOK, "Get One User Success", gin.H{"id": "1"})
	})
	router.GET("/conflict", func(c *gin.Context) {
		httputil.RespondWithAppError(c, logger, report, apperr.Conflict("Email Already Exists"))
	})
	router.GET("/boom", func(c *gin.Context) {
		httputil.RespondWithAppError(c, logger, report, errors.New("relation \"users\" does not exist"))
	})
	return router
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var reported []error
	router := newRouter(func(err error) { reported = append(reported, err) })

	t.Run("Success", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Equal(t, "Get One User Success", body["message"])
		assert.Equal(t, map[string]any{"id": "1"}, body["data"])
	})

	t.Run("Conflict", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/conflict", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		body := decode(t, w)
		assert.Equal(t, "Email Already Exists", body["message"])
		assert.Nil(t, body["data"])
		assert.Empty(t, reported)
	})

	t.Run("InternalIsHiddenAndReported", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		body := decode(t, w)
		assert.Equal(t, "Internal Server Error", body["message"])
		assert.Len(t, reported, 1)
	})

	t.Run("PageNotFound", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		body := decode(t, w)
		assert.Equal(t, "Page Not Found", body["message"])
		assert.Contains(t, body, "data")
		assert.Nil(t, body["data"])
	})
}
