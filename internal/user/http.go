package user

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
// user-centric routes.
type Relations interface {
	LinkClassToUser(ctx context.Context, userID, classID string) (*User, error)
	UnlinkClassFromUser(ctx context.Context, userID, classID string) (*User, error)
	DeleteUser(ctx context.Context, userID string) (*User, error)
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
	router.POST("/users", h.CreateUser)
	router.GET("/users", h.GetAllUsers)
	router.GET("/users/:userId", h.GetUser)
	router.PATCH("/users/:userId", h.UpdateUser)
	router.DELETE("/users/:userId", h.DeleteUser)
	router.POST("/users/:userId/class/:classId", h.AddClass)
	router.DELETE("/users/:userId/class/:classId", h.RemoveClass)
}

func (h *Handler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleServiceError(c, validate.ErrBadRequest)
		return
	}
	if err := validate.Struct(h.validate, &req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.logger.InfoContext(c.Request.Context(), "creating user", "email", req.Email, "role", req.Role)
	user, err := h.service.CreateUser(c.Request.Context(), req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.metrics.RecordUserCreated(c.Request.Context(), string(user.Role))
	httputil.RespondWithJSON(c, http.StatusCreated, "Created User", user)
}

func (h *Handler) GetAllUsers(c *gin.Context) {
	users, err := h.service.GetAllUsers(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	httputil.RespondWithJSON(c, http.StatusOK, "Get All Users Success", users)
}

func (h *Handler) GetUser(c *gin.Context) {
	user, err := h.service.GetUserByID(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	httputil.RespondWithJSON(c, http.StatusOK, "Get One User Success", user)
}

func (h *Handler) UpdateUser(c *gin.Context) {
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleServiceError(c, validate.ErrBadRequest)
		return
	}
	if err := validate.Struct(h.validate, &req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	user, err := h.service.UpdateUser(c.Request.Context(), c.Param("userId"), req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	httputil.RespondWithJSON(c, http.StatusOK, "Updated User", user)
}

func (h *Handler) DeleteUser(c *gin.Context) {
	h.logger.InfoContext(c.Request.Context(), "deleting user", "user_id", c.Param("userId"))
	user, err := h.relations.DeleteUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.metrics.RecordUserDeleted(c.Request.Context())
	httputil.RespondWithJSON(c, http.StatusOK, "Deleted User", user)
}

func (h *Handler) AddClass(c *gin.Context) {
	user, err := h.relations.LinkClassToUser(c.Request.Context(), c.Param("userId"), c.Param("classId"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	httputil.RespondWithJSON(c, http.StatusOK, "Added Class For User", user)
}

func (h *Handler) RemoveClass(c *gin.Context) {
	user, err := h.relations.UnlinkClassFromUser(c.Request.Context(), c.Param("userId"), c.Param("classId"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	httputil.RespondWithJSON(c, http.StatusOK, "Removed Class For User", user)
}

func (h *Handler) handleServiceError(c *gin.Context, err error) {
	httputil.RespondWithAppError(c, h.logger, observability.CaptureErr, err)
}
