package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// FailureKind classifies an AI backend failure.
type FailureKind string

const (
	FailureQuota   FailureKind = "quota"
	FailureTimeout FailureKind = "timeout"
	FailureOther   FailureKind = "other"
)

// QuotaIndicators are matched case-insensitively as substrings of an error
// (or of a suspicious AI reply). False positives are accepted.
var QuotaIndicators = []string{
	"429",
	"quota",
	"rate limit",
	"exceeded",
	"resourceexhausted",
	"billing",
	"plan",
	"free tier",
	"requests per day",
}

// HealthSnapshot is a point-in-time copy of the tracker state.
type HealthSnapshot struct {
	Available   bool        `json:"available"`
	LastCheck   *time.Time  `json:"last_check,omitempty"`
	LastFailure FailureKind `json:"last_failure,omitempty"`
}

// AIHealthTracker is the process-wide belief about whether the AI backend is
// usable. It is safe for concurrent use.
//
// After a failure ShouldAttempt returns false until RetryAfter has elapsed,
// then lets a single probe through and restarts the window. A success
// restores availability. RetryAfter of
// zero disables probing: only RecordSuccess can restore availability.
type AIHealthTracker struct {
	RetryAfter time.Duration
	Indicators []string

	mu          sync.Mutex
	available   bool
	lastCheck   *time.Time
	lastFailure FailureKind
	now         func() time.Time
}

// NewAIHealthTracker returns a tracker that starts out available.
func NewAIHealthTracker(retryAfter time.Duration) *AIHealthTracker {
	return &AIHealthTracker{
		RetryAfter: retryAfter,
		Indicators: QuotaIndicators,
		available:  true,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// ShouldAttempt reports whether the next turn may call the AI backend.
func (t *AIHealthTracker) ShouldAttempt() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.available {
		return true
	}
	if t.RetryAfter <= 0 || t.lastCheck == nil {
		return false
	}
	now := t.now()
	if now.Sub(*t.lastCheck) < t.RetryAfter {
		return false
	}
	// The granted probe owns the next window; concurrent turns keep falling back.
	t.lastCheck = &now
	return true
}

// ClassifyFailure maps an AI error onto a FailureKind. Deadline errors are
// timeouts; quota indicators in the text mean quota; anything else is other.
func (t *AIHealthTracker) ClassifyFailure(err error) FailureKind {
	if err == nil {
		return FailureOther
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	if t.LooksLikeQuota(err.Error()) {
		return FailureQuota
	}
	return FailureOther
}

// LooksLikeQuota reports whether s contains any quota indicator.
func (t *AIHealthTracker) LooksLikeQuota(s string) bool {
	low := strings.ToLower(s)
	for _, ind := range t.Indicators {
		if strings.Contains(low, strings.ToLower(ind)) {
			return true
		}
	}
	return false
}

// RecordFailure marks the backend unavailable.
func (t *AIHealthTracker) RecordFailure(kind FailureKind) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	t.available = false
	t.lastCheck = &now
	t.lastFailure = kind
}

// RecordSuccess marks the backend available. The check timestamp only moves
// on a transition.
func (t *AIHealthTracker) RecordSuccess() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.available {
		return
	}
	now := t.now()
	t.available = true
	t.lastCheck = &now
	t.lastFailure = ""
}

// Snapshot returns a copy of the current state.
func (t *AIHealthTracker) Snapshot() HealthSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := HealthSnapshot{Available: t.available, LastFailure: t.lastFailure}
	if t.lastCheck != nil {
		c := *t.lastCheck
		s.LastCheck = &c
	}
	return s
}
