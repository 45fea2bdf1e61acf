// Intake HTTP handlers.
//
// This file exposes the web chat endpoints:
//   - POST /sessions/{id}/messages   (run one conversation turn)
//   - POST /sessions/{id}/phone      (submit the WhatsApp number directly)
//   - GET  /sessions/{id}            (read the session state)
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a stored result exists
// for (session, key), the stored TurnResult is returned verbatim with
// `Idempotency-Replayed: true` and the session is not advanced again.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-intake-bot/internal/domain"
	"github.com/tbourn/go-intake-bot/internal/http/middleware"
	"github.com/tbourn/go-intake-bot/internal/services"
)

// HeaderIdempotencyReplayed marks responses served from a stored result.
const HeaderIdempotencyReplayed = "Idempotency-Replayed"

const (
	maxSessionIDLen  = 128
	maxMessageRunes  = 2000
	replayedHeaderOn = "true"
)

//
// DTOs
//

// PostMessageRequest is the JSON payload for one chat turn.
type PostMessageRequest struct {
	// Message is the user's text. It must contain a non-space character.
	Message string `json:"message" example:"Olá, preciso de ajuda com um processo trabalhista"`
	// PhoneNumber is an optional phone known to the widget; it is stored on
	// session creation only.
	PhoneNumber string `json:"phone_number,omitempty" example:"11987654321"`
	// Platform defaults to "web".
	Platform string `json:"platform,omitempty" example:"web" enums:"web,whatsapp"`
}

// SubmitPhoneRequest is the JSON payload for a direct phone submission.
type SubmitPhoneRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required" example:"(11) 98765-4321"`
}

//
// Helpers
//

var (
	crlfRE       = regexp.MustCompile(`\r\n?`)
	manyBlankRE  = regexp.MustCompile(`\n{3,}`)
	sessionIDRE  = regexp.MustCompile(`^[A-Za-z0-9._:\-]+$`)
	errBadSessID = errors.New("session id must be 1-128 chars of [A-Za-z0-9._:-]")
	errEmptyMsg  = errors.New("message is empty")
)

// sanitizeMessage normalizes line endings, collapses runs of blank lines and
// trims surrounding whitespace.
func sanitizeMessage(s string) string {
	s = crlfRE.ReplaceAllString(s, "\n")
	s = manyBlankRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

func sessionParam(c *gin.Context) (string, error) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" || len(id) > maxSessionIDLen || !sessionIDRE.MatchString(id) {
		return "", errBadSessID
	}
	return id, nil
}

// replayTurn serves a stored result for (sessionID, key) when one exists.
func (h *Handlers) replayTurn(c *gin.Context, sessionID, key string) bool {
	if h.idem == nil || key == "" {
		return false
	}
	rec, err := h.idem.Get(c.Request.Context(), sessionID, key, time.Now().UTC())
	if err != nil || rec == nil {
		return false
	}
	var prev services.TurnResult
	if err := json.Unmarshal([]byte(rec.Response), &prev); err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).Str("session_id", sessionID).Msg("stored turn result unreadable")
		return false
	}
	c.Header(HeaderIdempotencyReplayed, replayedHeaderOn)
	ok(c, rec.Status, prev)
	return true
}

// rememberTurn stores a successful turn result. Failures are logged and
// otherwise ignored; error results are never stored so a retry runs again.
func (h *Handlers) rememberTurn(c *gin.Context, sessionID, key string, res services.TurnResult) {
	if h.idem == nil || key == "" || res.ResponseType == services.ResponseError {
		return
	}
	body, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := h.idem.Create(c.Request.Context(), sessionID, key, string(body), http.StatusOK, h.IdempotencyTTL); err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).Str("session_id", sessionID).Msg("store idempotency record failed")
	}
}

//
// Handlers
//

// PostMessage godoc
// @ID          postMessage
// @Summary     Run one conversation turn
// @Description Processes a user message: AI reply when the AI backend is healthy, scripted fallback otherwise.
// @Description Once the fallback flow is complete, a phone-shaped message hands the lead off to the team.
// @Description Supports idempotency via the Idempotency-Key header (same key → same result).
// @Tags        Sessions
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       id               path    string  true  "Session ID"  example(web_1712345678)
// @Param       body             body    handlers.PostMessageRequest  true  "User message payload"
//
// @Success     200  {object}  services.TurnResult     "Turn result"
// @Header      200  {string}  Idempotency-Replayed    "true when the stored result was replayed"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  services.TurnResult     "Turn failed; response carries the user-facing apology"
// @Router      /sessions/{id}/messages [post]
func (h *Handlers) PostMessage(c *gin.Context) {
	sessionID, err := sessionParam(c)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	msg := sanitizeMessage(req.Message)
	if msg == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, errEmptyMsg.Error())
		return
	}
	if utf8.RuneCountInString(msg) > maxMessageRunes {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message too long")
		return
	}

	key, _ := middleware.GetIdempotencyKey(c)
	if h.replayTurn(c, sessionID, key) {
		return
	}

	res := h.intake.ProcessMessage(c.Request.Context(), services.Inbound{
		Message:     msg,
		SessionID:   sessionID,
		PhoneNumber: req.PhoneNumber,
		Platform:    domain.ParsePlatform(req.Platform),
	})
	if res.Error != nil {
		_ = c.Error(res.Error)
	}

	h.rememberTurn(c, sessionID, key, res)
	ok(c, turnStatus(res), res)
}

// SubmitPhone godoc
// @ID          submitPhone
// @Summary     Submit the WhatsApp number
// @Description Validates and normalizes the phone number, stores the lead and notifies the team.
// @Description Re-submitting after success returns the confirmation without notifying again.
// @Tags        Sessions
// @Accept      json
// @Produce     json
//
// @Param       id    path  string  true  "Session ID"  example(web_1712345678)
// @Param       body  body  handlers.SubmitPhoneRequest  true  "Phone payload"
//
// @Success     200  {object}  services.PhoneSubmission  "Phone accepted"
// @Failure     400  {object}  handlers.ErrorResponse    "Bad request"
// @Failure     422  {object}  services.PhoneSubmission  "Phone rejected (status=invalid)"
// @Failure     500  {object}  services.PhoneSubmission  "Submission failed (status=error)"
// @Router      /sessions/{id}/phone [post]
func (h *Handlers) SubmitPhone(c *gin.Context) {
	sessionID, err := sessionParam(c)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	var req SubmitPhoneRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.PhoneNumber) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "phone_number required")
		return
	}

	out := h.intake.HandlePhoneSubmission(c.Request.Context(), req.PhoneNumber, sessionID)
	if out.Error != nil {
		_ = c.Error(out.Error)
	}
	ok(c, submissionStatus(out), out)
}

// GetSession godoc
// @ID          getSession
// @Summary     Read a session
// @Description Returns the stored state of a conversation: flow progress, collected answers and AI health.
// @Tags        Sessions
// @Produce     json
//
// @Param       id  path  string  true  "Session ID"  example(web_1712345678)
//
// @Success     200  {object}  services.SessionView
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Session not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /sessions/{id} [get]
func (h *Handlers) GetSession(c *gin.Context) {
	sessionID, err := sessionParam(c)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	view, err := h.intake.SessionContext(c.Request.Context(), sessionID)
	switch {
	case errors.Is(err, services.ErrSessionNotFound) || (err == nil && !view.Exists):
		fail(c, http.StatusNotFound, ErrCodeNotFound, services.ErrSessionNotFound.Error())
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeLookupFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, view)
}
