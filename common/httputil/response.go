package httputil

import (
	"log/slog"
	"net/http"

	"student-manager/common/apperr"

	"github.com/gin-gonic/gin"
)

// Envelope is the body of every response.
type Envelope struct {
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// Reporter is called with every 5xx error before the response is written.
type Reporter func(err error)

// RespondWithJSON writes a success envelope
func RespondWithJSON(c *gin.Context, code int, message string, data any) {
	c.JSON(code, Envelope{Message: message, Data: data})
}

// RespondWithError writes an error envelope with a null payload
func RespondWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, Envelope{Message: message})
}

// RespondWithAppError maps err through the apperr taxonomy. Internal errors are
// logged and reported, clients only see a generic message.
func RespondWithAppError(c *gin.Context, logger *slog.Logger, report Reporter, err error) {
	kind := apperr.KindOf(err)
	ctx := c.Request.Context()

	if kind == apperr.KindInternal || kind == apperr.KindUnavailable {
		logger.ErrorContext(ctx, "request failed", "error", err, "kind", kind.String(), "path", c.FullPath())
		if report != nil && kind == apperr.KindInternal {
			report(err)
		}
	} else {
		logger.InfoContext(ctx, "request rejected", "error", err.Error(), "kind", kind.String())
	}

	RespondWithError(c, kind.Status(), apperr.Message(err))
}

// NotFound is the catch-all handler for unmatched routes.
func NotFound(c *gin.Context) {
	RespondWithError(c, http.StatusNotFound, "Page Not Found")
}
