package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/twilio/twilio-go/twiml"

	"github.com/tbourn/go-intake-bot/internal/domain"
	"github.com/tbourn/go-intake-bot/internal/http/middleware"
	"github.com/tbourn/go-intake-bot/internal/services"
	"github.com/tbourn/go-intake-bot/internal/whatsapp"
)

// WhatsAppWebhook godoc
// @ID          whatsappWebhook
// @Summary     Twilio WhatsApp webhook
// @Description Runs one turn for an inbound WhatsApp message. The reply is sent through the
// @Description messaging API; when that is unavailable it is returned inline as TwiML.
// @Description Redeliveries of the same MessageSid are acknowledged without running the turn again.
// @Tags        Webhooks
// @Accept      x-www-form-urlencoded
// @Produce     xml
//
// @Param       X-Twilio-Signature  header    string  false "Request signature (required when validation is on)"
// @Param       From                formData  string  true  "Sender address"  example(whatsapp:+5511987654321)
// @Param       Body                formData  string  false "Message text"
// @Param       WaId                formData  string  false "Sender WhatsApp id"
// @Param       MessageSid          formData  string  false "Twilio message SID"
//
// @Success     200  {string}  string  "TwiML response"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {string}  string  "Invalid signature"
// @Router      /webhooks/whatsapp [post]
func (h *Handlers) WhatsAppWebhook(c *gin.Context) {
	var in whatsapp.InboundMessage
	if err := c.ShouldBind(&in); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid form body")
		return
	}
	sessionID := in.SessionID()
	if sessionID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "sender required")
		return
	}

	body := sanitizeMessage(in.Body)
	if body == "" {
		// Media-only or empty messages carry nothing to answer.
		twimlReply(c, "")
		return
	}

	ctx := c.Request.Context()
	if h.idem != nil && in.MessageSID != "" {
		if rec, err := h.idem.Get(ctx, sessionID, in.MessageSID, time.Now().UTC()); err == nil && rec != nil {
			c.Header(HeaderIdempotencyReplayed, replayedHeaderOn)
			twimlReply(c, "")
			return
		}
	}

	res := h.intake.ProcessMessage(ctx, services.Inbound{
		Message:     body,
		SessionID:   sessionID,
		PhoneNumber: in.SenderDigits(),
		Platform:    domain.PlatformWhatsApp,
	})
	if res.Error != nil {
		_ = c.Error(res.Error)
	}
	h.rememberTurn(c, sessionID, in.MessageSID, res)

	inline := res.Response
	if h.transport != nil {
		if err := h.transport.Send(ctx, in.SenderDigits(), res.Response); err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Str("session_id", sessionID).Msg("whatsapp reply failed, answering inline")
		} else {
			inline = ""
		}
	}
	twimlReply(c, inline)
}

// twimlReply writes a TwiML document, with a single message when text is set.
func twimlReply(c *gin.Context, text string) {
	var verbs []twiml.Element
	if text != "" {
		verbs = append(verbs, &twiml.MessagingMessage{Body: text})
	}
	doc, err := twiml.Messages(verbs)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "render twiml")
		return
	}
	c.Data(http.StatusOK, "text/xml; charset=utf-8", []byte(doc))
}
