// Package whatsapp delivers outbound WhatsApp messages through Twilio and
// authenticates inbound Twilio webhooks.
package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const channelPrefix = "whatsapp:"

// ErrNoRecipient is returned when Send is called with an empty address.
var ErrNoRecipient = errors.New("whatsapp: empty recipient")

// messageCreator is the subset of the Twilio REST API used here.
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// Twilio implements services.Transport over the Twilio Messages API.
type Twilio struct {
	api  messageCreator
	from string
	log  zerolog.Logger
}

// NewTwilio returns a transport sending from the given WhatsApp sender
// ("+14155238886" or "whatsapp:+14155238886").
func NewTwilio(accountSID, authToken, from string, log zerolog.Logger) *Twilio {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return newTwilio(client.Api, from, log)
}

func newTwilio(api messageCreator, from string, log zerolog.Logger) *Twilio {
	return &Twilio{api: api, from: Address(from), log: log}
}

// Send delivers text to a normalized phone handle (digits with country code).
// The Twilio client has no context support; ctx only scopes the trace span
// and short-circuits when already cancelled.
func (t *Twilio) Send(ctx context.Context, address, text string) error {
	_, span := otel.Tracer("whatsapp/Twilio").Start(ctx, "Send",
		trace.WithAttributes(attribute.Int("message.length", len(text))),
	)
	defer span.End()

	if err := ctx.Err(); err != nil {
		return err
	}
	to := Address(address)
	if to == "" {
		return ErrNoRecipient
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.from)
	params.SetTo(to)
	params.SetBody(text)

	resp, err := t.api.CreateMessage(params)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("whatsapp: send: %w", err)
	}
	ev := t.log.Info()
	if resp != nil && resp.Sid != nil {
		ev = ev.Str("sid", *resp.Sid)
	}
	ev.Msg("whatsapp message sent")
	return nil
}

// Address converts a handle ("5511987654321", "+55 11 98765-4321" or an
// already prefixed "whatsapp:+5511987654321") into Twilio's WhatsApp address
// form. It returns "" when no digits are present.
func Address(handle string) string {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), channelPrefix)
	digits := Digits(handle)
	if digits == "" {
		return ""
	}
	return channelPrefix + "+" + digits
}

// Digits strips everything but ASCII digits.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
