// Package testapp boots the full HTTP router against the shared PostgreSQL
// container and creates fixtures through the public routes.
package testapp

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"student-manager/internal/app"
	"student-manager/internal/config"
	"student-manager/internal/schema"
	"student-manager/testing/testdb"
	"student-manager/testing/testhttp"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type Env struct {
	Router *gin.Engine
	PG     *testdb.PostgresContainer
}

func New(t *testing.T) *Env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	pg := testdb.SetupSharedPostgres(t)
	pg.Migrate(t, schema.Migrate)

	router := app.NewRouter(config.ServerConfig{RequestTimeout: 5}, app.Dependencies{
		DB:     pg.DB,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	return &Env{Router: router, PG: pg}
}

func (e *Env) Cleanup(t *testing.T) {
	e.PG.Cleanup(t)
}

// Reset empties every table.
func (e *Env) Reset(t *testing.T) {
	t.Helper()
	testdb.CleanupTables(t, e.PG.DB, schema.Tables...)
}

func (e *Env) Do(t *testing.T, method, path string, body any) testhttp.Response {
	t.Helper()
	return testhttp.Do(t, e.Router, method, path, body)
}

type created struct {
	ID string `json:"id"`
}

func (e *Env) create(t *testing.T, path string, body any) string {
	t.Helper()
	resp := e.Do(t, http.MethodPost, path, body)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Message)

	var c created
	resp.Decode(t, &c)
	require.NotEmpty(t, c.ID)
	return c.ID
}

// UserPayload is a valid create-user body for role.
func UserPayload(role string) map[string]any {
	return map[string]any{
		"username":    "user-" + role,
		"email":       uuid.NewString()[:8] + "@example.com",
		"password":    "secret123",
		"role":        role,
		"dateOfBirth": "2001-04-12",
		"address":     "12 Nguyen Trai",
		"phoneNumber": "0912345678",
	}
}

func (e *Env) CreateUser(t *testing.T, role string) string {
	t.Helper()
	return e.create(t, "/users", UserPayload(role))
}

func (e *Env) CreateClass(t *testing.T, name string) string {
	t.Helper()
	return e.create(t, "/classes", map[string]any{"name": name})
}

func (e *Env) CreateSession(t *testing.T, classID string, index int) string {
	t.Helper()
	return e.create(t, "/sessions/"+classID, map[string]any{
		"sessionIndex": index,
		"sessionDate":  fmt.Sprintf("2024-09-%02d", index),
		"shift":        "morning",
	})
}

func (e *Env) CreatePoint(t *testing.T, sessionID, studentID string, attendance float64) string {
	t.Helper()
	return e.create(t, "/points", map[string]any{
		"sessionId":       sessionID,
		"studentId":       studentID,
		"attendancePoint": attendance,
	})
}
