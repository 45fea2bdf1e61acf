package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tbourn/go-intake-bot/internal/domain"
)

// PhoneSubmission is the outcome of a phone number posted by the web widget.
type PhoneSubmission struct {
	Status         string `json:"status"`
	Message        string `json:"message"`
	PhoneSubmitted bool   `json:"phone_submitted"`

	Error error `json:"-"`
}

const (
	SubmissionSuccess = "success"
	SubmissionInvalid = "invalid"
	SubmissionError   = "error"

	submissionErrorReply = "Erro ao processar número de WhatsApp"
)

// HandlePhoneSubmission accepts a phone number outside of the chat turn. The
// session is created when it does not exist yet and is saved only after a
// successful capture. The turn counter is left alone: this is not a
// conversation message. Faults are contained like a chat turn's.
func (o *Orchestrator) HandlePhoneSubmission(ctx context.Context, phone, sessionID string) (out PhoneSubmission) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			o.log.Error().Err(err).Str("session_id", sessionID).Msg("phone submission failed")
			out = PhoneSubmission{Status: SubmissionError, Message: submissionErrorReply, Error: err}
		}
	}()
	if strings.TrimSpace(sessionID) == "" {
		return PhoneSubmission{Status: SubmissionError, Message: submissionErrorReply, Error: ErrSessionIDRequired}
	}
	s, err := o.loadOrCreate(ctx, sessionID, domain.PlatformWeb, "")
	if err != nil {
		o.log.Error().Err(err).Str("session_id", sessionID).Msg("phone submission failed")
		return PhoneSubmission{Status: SubmissionError, Message: submissionErrorReply, Error: err}
	}

	already := s.PhoneSubmitted
	reply := o.HandlePhoneCollection(ctx, phone, s)
	if !s.PhoneSubmitted {
		return PhoneSubmission{Status: SubmissionInvalid, Message: reply}
	}
	if !already {
		if err := o.sessions.SaveSession(ctx, s); err != nil {
			o.log.Error().Err(err).Str("session_id", sessionID).Msg("save session after phone submission failed")
			return PhoneSubmission{Status: SubmissionError, Message: submissionErrorReply, Error: err}
		}
	}
	return PhoneSubmission{Status: SubmissionSuccess, Message: reply, PhoneSubmitted: true}
}

// SessionView is a read-only projection of a stored session.
type SessionView struct {
	Exists            bool            `json:"exists"`
	SessionID         string          `json:"session_id,omitempty"`
	Platform          domain.Platform `json:"platform,omitempty"`
	FallbackStep      *int            `json:"fallback_step,omitempty"`
	FallbackCompleted bool            `json:"fallback_completed"`
	PhoneSubmitted    bool            `json:"phone_submitted"`
	GeminiAvailable   bool            `json:"gemini_available"`
	LastGeminiCheck   *time.Time      `json:"last_gemini_check,omitempty"`
	LeadData          domain.LeadData `json:"lead_data,omitempty"`
	MessageCount      int             `json:"message_count"`
	CreatedAt         *time.Time      `json:"created_at,omitempty"`
	LastUpdated       *time.Time      `json:"last_updated,omitempty"`
}

// SessionContext returns the current state of a session. When there is none
// it returns a view with Exists=false together with ErrSessionNotFound.
func (o *Orchestrator) SessionContext(ctx context.Context, sessionID string) (SessionView, error) {
	if strings.TrimSpace(sessionID) == "" {
		return SessionView{}, ErrSessionIDRequired
	}
	s, err := o.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return SessionView{}, fmt.Errorf("load session: %w", err)
	}
	if s == nil {
		return SessionView{Exists: false}, ErrSessionNotFound
	}
	created, updated := s.CreatedAt, s.UpdatedAt
	return SessionView{
		Exists:            true,
		SessionID:         s.ID,
		Platform:          s.Platform,
		FallbackStep:      s.FallbackStep,
		FallbackCompleted: s.FallbackCompleted,
		PhoneSubmitted:    s.PhoneSubmitted,
		GeminiAvailable:   s.GeminiAvailable,
		LastGeminiCheck:   s.LastGeminiCheck,
		LeadData:          s.LeadData,
		MessageCount:      s.MessageCount,
		CreatedAt:         &created,
		LastUpdated:       &updated,
	}, nil
}
