// Package handlers implements the session API on top of the workflow
// orchestrator.
//
// Every failure is written as an ErrorResponse carrying a stable code from
// errors.go; successful intents answer with the session snapshot.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-content-studio/internal/http/middleware"
)

// ErrorResponse is the error envelope of every endpoint.
type ErrorResponse struct {
	// Echo of X-Request-ID
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable machine-readable code
	Code string `json:"code" example:"precondition_failed"`
	// Human-readable message
	Message string `json:"message" example:"seo: caption required"`
}

// fail aborts with an ErrorResponse. Server errors are logged at error level
// and client errors at debug, both through the request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	var ev *zerolog.Event
	lg := middleware.LoggerFrom(c)
	if status >= http.StatusInternalServerError {
		ev = lg.Error()
	} else {
		ev = lg.Debug()
	}
	ev.Int("status", status).Str("code", code).Str("message", msg).Msg("api error")

	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

// Fail lets the router write the same envelope from its fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
