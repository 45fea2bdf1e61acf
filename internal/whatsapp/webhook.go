package whatsapp

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/twilio/twilio-go/client"
)

// HeaderSignature carries Twilio's request signature.
const HeaderSignature = "X-Twilio-Signature"

// InboundMessage is the subset of Twilio's WhatsApp webhook form we use.
type InboundMessage struct {
	From        string `form:"From"`
	To          string `form:"To"`
	Body        string `form:"Body"`
	WaID        string `form:"WaId"`
	ProfileName string `form:"ProfileName"`
	MessageSID  string `form:"MessageSid"`
}

// SenderDigits returns the sender's phone digits, preferring WaId.
func (m InboundMessage) SenderDigits() string {
	if d := Digits(m.WaID); d != "" {
		return d
	}
	return Digits(m.From)
}

// SessionID derives a stable session id for the sender.
func (m InboundMessage) SessionID() string {
	d := m.SenderDigits()
	if d == "" {
		return ""
	}
	return "whatsapp_" + d
}

// SignatureOptions configures VerifySignature.
type SignatureOptions struct {
	// AuthToken is the Twilio auth token used to sign requests.
	AuthToken string
	// PublicBaseURL is the externally visible scheme://host Twilio posts to.
	// When empty the URL is rebuilt from the request.
	PublicBaseURL string
	// OnReject is invoked for rejected requests; defaults to a bare 403.
	OnReject func(c *gin.Context, reason string)
}

// VerifySignature returns a Gin middleware that rejects webhook requests
// whose X-Twilio-Signature does not match the form body.
func VerifySignature(opts SignatureOptions, log zerolog.Logger) gin.HandlerFunc {
	validator := client.NewRequestValidator(opts.AuthToken)
	reject := opts.OnReject
	if reject == nil {
		reject = func(c *gin.Context, _ string) { c.AbortWithStatus(http.StatusForbidden) }
	}

	return func(c *gin.Context) {
		sig := c.GetHeader(HeaderSignature)
		if sig == "" {
			log.Warn().Msg("twilio webhook without signature")
			reject(c, "missing signature")
			return
		}
		if err := c.Request.ParseForm(); err != nil {
			reject(c, "malformed form")
			return
		}
		params := make(map[string]string, len(c.Request.PostForm))
		for k, v := range c.Request.PostForm {
			if len(v) > 0 {
				params[k] = v[0]
			}
		}
		if !validator.Validate(requestURL(c, opts.PublicBaseURL), params, sig) {
			log.Warn().Msg("twilio webhook signature mismatch")
			reject(c, "invalid signature")
			return
		}
		c.Next()
	}
}

func requestURL(c *gin.Context, base string) string {
	if base != "" {
		return base + c.Request.URL.RequestURI()
	}
	scheme := "https"
	if c.Request.TLS == nil && c.GetHeader("X-Forwarded-Proto") != "https" {
		scheme = "http"
	}
	return scheme + "://" + c.Request.Host + c.Request.URL.RequestURI()
}
