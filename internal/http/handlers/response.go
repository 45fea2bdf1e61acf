// Package handlers provides the HTTP handlers of the intake API.
//
// Response conventions:
//   - Request errors (bad body, unknown session) use ErrorResponse with a
//     stable `code`, written by fail().
//   - Turn and phone endpoints always answer with their result body, even on
//     5xx, because the body carries the Portuguese message shown to the user.
//     turnStatus and submissionStatus pick the HTTP status for those bodies.
//
// Example error response:
//
//	HTTP/1.1 404 Not Found
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "not_found",
//	  "message": "session not found"
//	}
//
// Example turn response:
//
//	HTTP/1.1 200 OK
//	{ "response_type": "ai_intelligent", "session_id": "web_abc123", "response": "Olá!" }
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-intake-bot/internal/http/middleware"
	"github.com/tbourn/go-intake-bot/internal/services"
)

// ErrorResponse is the error envelope for request-level failures.
type ErrorResponse struct {
	// Echo of X-Request-ID
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message
	Message string `json:"message" example:"session not found"`
}

// fail aborts with an ErrorResponse. 5xx are logged with the request-scoped
// logger, tagged with the session id when the route has one.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		ev := middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg)
		if sid := c.Param("id"); sid != "" {
			ev = ev.Str("session_id", sid)
		}
		ev.Msg("api error")
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

// Fail is the exported variant of fail() for router-level middleware.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// turnStatus maps a turn outcome to an HTTP status. The body is the
// TurnResult either way so the widget can always display Response.
func turnStatus(res services.TurnResult) int {
	if res.ResponseType == services.ResponseError {
		return http.StatusInternalServerError
	}
	return http.StatusOK
}

func submissionStatus(out services.PhoneSubmission) int {
	switch out.Status {
	case services.SubmissionSuccess:
		return http.StatusOK
	case services.SubmissionInvalid:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
