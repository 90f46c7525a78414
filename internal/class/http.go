package class

import (
	"context"
	"log/slog"
	"net/http"

	"student-manager/common/httputil"
	"student-manager/internal/metrics"
	"student-manager/internal/observability"
	"student-manager/internal/validate"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Relations is the part of the relationship maintainer reachable from the
// class-centric routes.
type Relations interface {
	LinkUserToClass(ctx context.Context, classID, userID string) (*Class, error)
	UnlinkUserFromClass(ctx context.Context, classID, userID string) (*Class, error)
}

type Handler struct {
	service   Service
	relations Relations
	validate  *validator.Validate
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func NewHandler(service Service, relations Relations, logger *slog.Logger, metrics *metrics.Metrics) *Handler {
	return &Handler{
		service:   service,
		relations: relations,
		validate:  validate.New(),
		logger:    logger,
		metrics:   metrics,
	}
}

func (h *Handler) RegisterRoutes(router gin.IRouter) {
	router.POST("/classes", h.CreateClass)
	router.GET("/classes", h.GetAllClasses)
	router.GET("/classes/:classId", h.GetClass)
	router.PATCH("/classes/:classId", h.UpdateClass)
	router.DELETE("/classes/:classId", h.DeleteClass)
	router.POST("/classes/:classId/user/:userId", h.AddUser)
	router.DELETE("/classes/:classId/user/:userId", h.RemoveUser)
}

func (h *Handler) CreateClass(c *gin.Context) {
	var req CreateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleServiceError(c, validate.ErrBadRequest)
		return
	}
	if err := validate.Struct(h.validate, &req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	class, err := h.service.CreateClass(c.Request.Context(), req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.metrics.RecordClassCreated(c.Request.Context())
	httputil.RespondWithJSON(c, http.StatusCreated, "Created Class", class)
}

func (h *Handler) GetAllClasses(c *gin.Context) {
	classes, err := h.service.GetAllClasses(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	httputil.RespondWithJSON(c, http.StatusOK, "Get All Classes Success", classes)
}

func (h *Handler) GetClass(c *gin.Context) {
	class, err := h.service.GetClassByID(c.Request.Context(), c.Param("classId"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	httputil.RespondWithJSON(c, http.StatusOK, "Get One Class Success", class)
}

func (h *Handler) UpdateClass(c *gin.Context) {
	var req UpdateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleServiceError(c, validate.ErrBadRequest)
		return
	}
	if err := validate.Struct(h.validate, &req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	class, err := h.service.UpdateClass(c.Request.Context(), c.Param("classId"), req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	httputil.RespondWithJSON(c, http.StatusOK, "Updated Class", class)
}

func (h *Handler) DeleteClass(c *gin.Context) {
	class, err := h.service.DeleteClass(c.Request.Context(), c.Param("classId"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.metrics.RecordClassDeleted(c.Request.Context())
	httputil.RespondWithJSON(c, http.StatusOK, "Deleted Class", class)
}

func (h *Handler) AddUser(c *gin.Context) {
	class, err := h.relations.LinkUserToClass(c.Request.Context(), c.Param("classId"), c.Param("userId"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	httputil.RespondWithJSON(c, http.StatusOK, "Added User For Class", class)
}

func (h *Handler) RemoveUser(c *gin.Context) {
	class, err := h.relations.UnlinkUserFromClass(c.Request.Context(), c.Param("classId"), c.Param("userId"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	httputil.RespondWithJSON(c, http.StatusOK, "Removed User From Class", class)
}

func (h *Handler) handleServiceError(c *gin.Context, err error) {
	httputil.RespondWithAppError(c, h.logger, observability.CaptureErr, err)
}
