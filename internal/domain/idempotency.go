package domain

import "time"

// Idempotency stores the serialized TurnResult of a processed turn, keyed by
// (session_id, key). Key is the web client's Idempotency-Key header or, for
// WhatsApp deliveries, the Twilio MessageSid. Rows past ExpiresAt are never
// replayed and are purged by repo.PurgeExpiredIdempotency.
type Idempotency struct {
	ID        string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	SessionID string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_session_key,priority:1"`
	Key       string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_session_key,priority:2"`
	Response  string    `gorm:"type:TEXT NOT NULL"` // JSON TurnResult
	Status    int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
