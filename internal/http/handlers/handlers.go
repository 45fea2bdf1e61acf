// Package handlers provides HTTP handler implementations for the public API.
//
// Handlers are transport-thin: they bind and validate input, delegate to the
// intake orchestrator or the lead directory, and render the result. Turn
// outcomes (including the error path) are always rendered as a TurnResult so
// the chat widget never needs to special-case failures.
package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-intake-bot/internal/domain"
	"github.com/tbourn/go-intake-bot/internal/services"
	"github.com/tbourn/go-intake-bot/internal/utils"
)

// IntakeService is the conversation surface implemented by *services.Orchestrator.
type IntakeService interface {
	ProcessMessage(ctx context.Context, in services.Inbound) services.TurnResult
	HandlePhoneSubmission(ctx context.Context, phone, sessionID string) services.PhoneSubmission
	SessionContext(ctx context.Context, sessionID string) (services.SessionView, error)
	ServiceStatus(ctx context.Context) services.StatusReport
}

// LeadService is the operator read side implemented by *services.LeadService.
type LeadService interface {
	ListPage(ctx context.Context, page, pageSize int) ([]domain.Lead, int64, error)
	Stats(ctx context.Context) (int64, *time.Time, error)
}

// IdempotencyStore persists turn results keyed by (session, Idempotency-Key).
// Get returns an error when no live record exists.
type IdempotencyStore interface {
	Get(ctx context.Context, sessionID, key string, now time.Time) (*domain.Idempotency, error)
	Create(ctx context.Context, sessionID, key, response string, status int, ttl time.Duration) error
}

// Handlers groups the HTTP endpoints and their collaborators.
type Handlers struct {
	intake    IntakeService
	leads     LeadService
	idem      IdempotencyStore
	transport services.Transport

	// IdempotencyTTL bounds how long a stored turn result can be replayed.
	IdempotencyTTL time.Duration
}

// New constructs a Handlers instance. idem and transport may be nil: without
// a store Idempotency-Key is ignored, without a transport the WhatsApp
// webhook still processes the turn but cannot reply.
func New(intake IntakeService, leads LeadService, idem IdempotencyStore, transport services.Transport) *Handlers {
	return &Handlers{
		intake:         intake,
		leads:          leads,
		idem:           idem,
		transport:      transport,
		IdempotencyTTL: 24 * time.Hour,
	}
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func newPagination(page, pageSize int, total int64) Pagination {
	totalPages := utils.TotalPages(total, pageSize)
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	return utils.ParsePage(c.Query("page"), c.Query("page_size"))
}
