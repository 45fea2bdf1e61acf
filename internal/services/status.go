package services

import (
	"context"
	"time"
)

// Overall service states reported by ServiceStatus.
const (
	StatusActive   = "active"
	StatusDegraded = "degraded"
	StatusError    = "error"
)

// StatusReport summarizes the health of the intake service.
type StatusReport struct {
	OverallStatus string          `json:"overall_status"`
	Store         string          `json:"store"`
	AI            string          `json:"ai"`
	AIHealth      HealthSnapshot  `json:"ai_health"`
	Features      map[string]bool `json:"features"`
	CheckedAt     time.Time       `json:"checked_at"`
}

// ServiceStatus reports store reachability and AI health. It does not call
// the AI backend; the tracker's belief is reported as-is.
func (o *Orchestrator) ServiceStatus(ctx context.Context) StatusReport {
	storeUp := true
	if p, ok := o.sessions.(Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			o.log.Warn().Err(err).Msg("store ping failed")
			storeUp = false
		}
	}

	snap := o.tracker.Snapshot()
	ai := "online"
	switch {
	case o.ai == nil:
		ai = "disabled"
	case !snap.Available:
		ai = "degraded"
	}

	overall := StatusActive
	switch {
	case !storeUp:
		overall = StatusError
	case ai != "online":
		overall = StatusDegraded
	}

	store := "online"
	if !storeUp {
		store = "offline"
	}

	return StatusReport{
		OverallStatus: overall,
		Store:         store,
		AI:            ai,
		AIHealth:      snap,
		Features: map[string]bool{
			"conversation_flow":    true,
			"ai_responses":         ai == "online",
			"fallback_mode":        true,
			"whatsapp_integration": o.transport != nil,
			"lead_collection":      storeUp,
		},
		CheckedAt: o.now(),
	}
}
