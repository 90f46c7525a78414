package health

import (
	"context"
	"net/http"
	"time"

	"student-manager/common/metrics"

	"github.com/gin-gonic/gin"
)

// Pinger is satisfied by *bun.DB and *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	db      Pinger
	metrics *metrics.Metrics
}

func NewHandler(db Pinger, m *metrics.Metrics) *Handler {
	return &Handler{db: db, metrics: m}
}

func (h *Handler) RegisterRoutes(router gin.IRouter) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
}

type HealthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (h *Handler) Ready(c *gin.Context) {
	if err := Check(c.Request.Context(), h.db, h.metrics); err != nil {
		c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Error: "database unreachable"})
		return
	}
	c.JSON(http.StatusOK, HealthResponse{Status: "ready"})
}

// Check pings PostgreSQL and records the result.
func Check(ctx context.Context, db Pinger, m *metrics.Metrics) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	err := db.PingContext(ctx)
	if m != nil {
		m.Health.RecordDependencyCheck(ctx, "postgres", time.Since(start), err)
	}
	return err
}
