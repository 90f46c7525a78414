package point

import (
	"log/slog"
	"net/http"

	"student-manager/common/httputil"
	"student-manager/internal/metrics"
	"student-manager/internal/observability"
	"student-manager/internal/validate"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	service  Service
	validate *validator.Validate
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewHandler(service Service, logger *slog.Logger, metrics *metrics.Metrics) *Handler {
	return &Handler{
		service:  service,
		validate: validate.New(),
		logger:   logger,
		metrics:  metrics,
	}
}

func (h *Handler) RegisterRoutes(router gin.IRouter) {
	router.POST("/points", h.CreatePoint)
	router.GET("/points", h.GetAllPoints)
	router.PATCH("/points/:pointId", h.UpdatePoint)
	router.DELETE("/points/:pointId", h.DeletePoint)
}

func (h *Handler) CreatePoint(c *gin.Context) {
	var req CreatePointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleServiceError(c, validate.ErrBadRequest)
		return
	}
	if err := validate.Struct(h.validate, &req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	point, err := h.service.CreatePoint(c.Request.Context(), req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.metrics.RecordPointRecorded(c.Request.Context())
	httputil.RespondWithJSON(c, http.StatusCreated, "Create Point Success", point)
}

func (h *Handler) GetAllPoints(c *gin.Context) {
	points, err := h.service.GetAllPoints(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	httputil.RespondWithJSON(c, http.StatusOK, "Get All Points Success", points)
}

func (h *Handler) UpdatePoint(c *gin.Context) {
	var req UpdatePointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleServiceError(c, validate.ErrBadRequest)
		return
	}

	point, err := h.service.UpdatePoint(c.Request.Context(), c.Param("pointId"), req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	httputil.RespondWithJSON(c, http.StatusOK, "Update Point Success", point)
}

func (h *Handler) DeletePoint(c *gin.Context) {
	point, err := h.service.DeletePoint(c.Request.Context(), c.Param("pointId"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.metrics.RecordPointDeleted(c.Request.Context())
	httputil.RespondWithJSON(c, http.StatusOK, "Delete Point Success", point)
}

func (h *Handler) handleServiceError(c *gin.Context, err error) {
	httputil.RespondWithAppError(c, h.logger, observability.CaptureErr, err)
}
