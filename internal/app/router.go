package app

import (
	"log/slog"
	"net/http"

	"student-manager/common/httputil"
	commonmetrics "student-manager/common/metrics"
	"student-manager/internal/class"
	"student-manager/internal/config"
	"student-manager/internal/events"
	"student-manager/internal/health"
	"student-manager/internal/metrics"
	"student-manager/internal/middleware"
	"student-manager/internal/point"
	"student-manager/internal/relation"
	"student-manager/internal/session"
	"student-manager/internal/user"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Dependencies are the shared collaborators of every handler. Nil Metrics and
// Publisher fall back to no-op implementations.
type Dependencies struct {
	DB        *bun.DB
	Metrics   *commonmetrics.Metrics
	Domain    *metrics.Metrics
	Publisher events.Publisher
	Logger    *slog.Logger
}

// NewRouter wires repositories, services and handlers onto a gin engine.
func NewRouter(cfg config.ServerConfig, deps Dependencies) *gin.Engine {
	if deps.Metrics == nil {
		deps.Metrics = commonmetrics.NewMock()
	}
	if deps.Publisher == nil {
		deps.Publisher = events.Nop()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	logger := deps.Logger

	router := gin.New()
	router.Use(
		gin.CustomRecovery(func(c *gin.Context, recovered any) {
			logger.ErrorContext(c.Request.Context(), "panic recovered", "panic", recovered, "path", c.Request.URL.Path)
			httputil.RespondWithError(c, http.StatusInternalServerError, "Internal Server Error")
		}),
		requestid.New(),
		otelgin.Middleware(ServiceName),
		middleware.RequestLogger(logger),
		metrics.HTTPMiddleware(),
		middleware.CORS(cfg.CORSOrigins),
		middleware.Timeout(cfg.RequestTimeoutDuration()),
	)
	router.NoRoute(httputil.NotFound)

	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	health.NewHandler(deps.DB, deps.Metrics).RegisterRoutes(router)

	userRepo := user.NewRepository(deps.DB, deps.Metrics)
	classRepo := class.NewRepository(deps.DB, deps.Metrics)
	sessionRepo := session.NewRepository(deps.DB, deps.Metrics)
	pointRepo := point.NewRepository(deps.DB, deps.Metrics)

	relations := relation.NewMaintainer(deps.DB, userRepo, classRepo, sessionRepo, pointRepo, deps.Metrics, deps.Domain, deps.Publisher, logger)

	userService := user.NewService(userRepo, deps.Publisher, logger)
	user.NewHandler(userService, relations, logger, deps.Domain).RegisterRoutes(router)

	classService := class.NewService(deps.DB, classRepo, userRepo, deps.Metrics, deps.Publisher, logger)
	class.NewHandler(classService, relations, logger, deps.Domain).RegisterRoutes(router)

	sessionService := session.NewService(deps.DB, sessionRepo, classRepo, deps.Metrics, deps.Publisher, logger)
	session.NewHandler(sessionService, relations, logger, deps.Domain).RegisterRoutes(router)

	pointService := point.NewService(deps.DB, pointRepo, sessionRepo, userRepo, deps.Metrics, deps.Publisher, logger)
	point.NewHandler(pointService, logger, deps.Domain).RegisterRoutes(router)

	return router
}
