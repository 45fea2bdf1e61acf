// Package domain defines the persistence models for intake sessions, the
// scripted fallback flow, and captured leads. These types are mapped with
// GORM and form the core data layer of the intake service.
package domain

import (
	"time"
)

// Platform identifies the channel a conversation arrived on.
type Platform string

const (
	PlatformWeb      Platform = "web"
	PlatformWhatsApp Platform = "whatsapp"
)

// ParsePlatform maps free-form input to a known Platform, defaulting to web.
func ParsePlatform(s string) Platform {
	if Platform(s) == PlatformWhatsApp {
		return PlatformWhatsApp
	}
	return PlatformWeb
}

// LeadData maps a step key (step_<n>, or a field name such as "phone") to the
// normalized answer collected for it.
type LeadData map[string]string

// Session is the per-conversation state owned by the session store. The
// orchestrator mutates a working copy each turn and persists it at the end.
//
// Fields:
//   - ID: opaque session identifier, immutable once created.
//   - Platform: web or whatsapp.
//   - MessageCount: monotonically increasing turn counter.
//   - LeadData: append-only answers until the flow is reset.
//   - FallbackStep: current scripted step id, nil before fallback activation.
//   - FallbackCompleted / PhoneSubmitted: set once, never cleared.
//   - GeminiAvailable / LastGeminiCheck: AI health as observed by this session.
type Session struct {
	ID                string     `json:"session_id"          gorm:"type:varchar(128);primaryKey"`
	Platform          Platform   `json:"platform"            gorm:"type:varchar(16);not null"`
	MessageCount      int        `json:"message_count"       gorm:"not null"`
	LeadData          LeadData   `json:"lead_data"           gorm:"type:text;serializer:json"`
	FallbackStep      *int       `json:"fallback_step"`
	FallbackCompleted bool       `json:"fallback_completed"  gorm:"not null"`
	PhoneSubmitted    bool       `json:"phone_submitted"     gorm:"not null"`
	PhoneNumber       string     `json:"phone_number,omitempty"    gorm:"type:varchar(32)"`
	PhoneFormatted    string     `json:"phone_formatted,omitempty" gorm:"type:varchar(32)"`
	GeminiAvailable   bool       `json:"gemini_available"    gorm:"not null"`
	LastGeminiCheck   *time.Time `json:"last_gemini_check"`
	LastMessage       string     `json:"last_message,omitempty"  gorm:"type:text"`
	LastResponse      string     `json:"last_response,omitempty" gorm:"type:text"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"last_updated"        gorm:"index"`
}

// TableName returns the database table name for Session.
func (Session) TableName() string { return "sessions" }

// NewSession returns a fresh session with empty lead data and the AI assumed
// available until proven otherwise.
func NewSession(id string, p Platform, now time.Time) *Session {
	now = now.UTC()
	return &Session{
		ID:              id,
		Platform:        p,
		LeadData:        LeadData{},
		GeminiAvailable: true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// FlowStep is one question of the scripted fallback questionnaire. Traversal
// order is ascending ID, never storage order.
type FlowStep struct {
	ID       int    `json:"id"       gorm:"primaryKey;autoIncrement:false"`
	Question string `json:"question" gorm:"type:text;not null"`
}

// TableName returns the database table name for FlowStep.
func (FlowStep) TableName() string { return "flow_steps" }

// FlowSettings holds flow-wide values. A single row (ID 1) is expected.
type FlowSettings struct {
	ID                uint      `gorm:"primaryKey"`
	CompletionMessage string    `gorm:"type:text;not null"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the database table name for FlowSettings.
func (FlowSettings) TableName() string { return "flow_settings" }

// Flow is the scripted questionnaire as served by the flow store.
type Flow struct {
	Steps             []FlowStep `json:"steps"`
	CompletionMessage string     `json:"completion_message"`
}

// LeadAnswer is one entry of a lead record.
type LeadAnswer struct {
	ID     int    `json:"id"`
	Answer string `json:"answer"`
}

// Lead is the write-once record of a prospective client's answers, created
// when the flow is complete and a valid phone was captured. At most one lead
// exists per session (unique index on SessionID).
type Lead struct {
	ID        string       `json:"id"         gorm:"type:char(36);primaryKey"`
	SessionID string       `json:"session_id" gorm:"type:varchar(128);not null;uniqueIndex:ux_leads_session"`
	Answers   []LeadAnswer `json:"answers"    gorm:"type:text;serializer:json"`
	CreatedAt time.Time    `json:"created_at" gorm:"index"`
}

// TableName returns the database table name for Lead.
func (Lead) TableName() string { return "leads" }
