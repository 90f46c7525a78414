package session

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

// Relations deletes a session together with its references.
type Relations interface {
	DeleteSession(ctx context.Context, sessionID string) (*Session, error)
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

// RegisterRoutes mounts the session routes. gin allows one wildcard name per
// segment, so POST /sessions/:sessionId carries the owning class id.
func (h *Handler) RegisterRoutes(router gin.IRouter) {
	router.POST("/sessions/:sessionId", h.CreateSession)
	router.GET("/sessions", h.GetAllSessions)
	router.GET("/sessions/:sessionId", h.GetSession)
	router.PATCH("/sessions/:sessionId", h.UpdateSession)
	router.DELETE("/sessions/:sessionId", h.DeleteSession)
	router.GET("/sessions/class/:classId", h.GetClassSessions)
}

func (h *Handler) CreateSession(c *gin.Context) {
	classID := c.Param("sessionId")

	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleServiceError(c, validate.ErrBadRequest)
		return
	}
	if err := validate.Struct(h.validate, &req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	session, err := h.service.CreateSession(c.Request.Context(), classID, req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.metrics.RecordSessionCreated(c.Request.Context())
	httputil.RespondWithJSON(c, http.StatusCreated, "Created Session", session)
}

func (h *Handler) GetAllSessions(c *gin.Context) {
	sessions, err := h.service.GetAllSessions(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	httputil.RespondWithJSON(c, http.StatusOK, "Get All Sessions Success", sessions)
}

func (h *Handler) GetSession(c *gin.Context) {
	session, err := h.service.GetSessionByID(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	httputil.RespondWithJSON(c, http.StatusOK, "Get One Session Success", session)
}

func (h *Handler) GetClassSessions(c *gin.Context) {
	sessions, err := h.service.GetSessionsByClassID(c.Request.Context(), c.Param("classId"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	httputil.RespondWithJSON(c, http.StatusOK, "Get All Sessions Of A Class By Class Id Success", sessions)
}

func (h *Handler) UpdateSession(c *gin.Context) {
	var req UpdateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleServiceError(c, validate.ErrBadRequest)
		return
	}
	if err := validate.Struct(h.validate, &req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	session, err := h.service.UpdateSession(c.Request.Context(), c.Param("sessionId"), req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	httputil.RespondWithJSON(c, http.StatusOK, "Updated Session", session)
}

func (h *Handler) DeleteSession(c *gin.Context) {
	session, err := h.relations.DeleteSession(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.metrics.RecordSessionDeleted(c.Request.Context())
	httputil.RespondWithJSON(c, http.StatusOK, "Deleted Session", session)
}

func (h *Handler) handleServiceError(c *gin.Context, err error) {
	httputil.RespondWithAppError(c, h.logger, observability.CaptureErr, err)
}
