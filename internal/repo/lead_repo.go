// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the write-once lead store and the
// paginated read side used by the operator API.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-intake-bot/internal/domain"
)

// ErrDuplicate indicates that a unique record (lead per session, idempotency
// key per session) already exists.
var ErrDuplicate = errors.New("duplicate")

// CreateLead inserts a lead for sessionID. A second lead for the same session
// is rejected with ErrDuplicate.
func CreateLead(ctx context.Context, db *gorm.DB, sessionID string, answers []domain.LeadAnswer) (*domain.Lead, error) {
	l := &domain.Lead{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Answers:   answers,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(l).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return l, nil
}

// CountLeads returns the total number of leads for pagination.
func CountLeads(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Lead{}).Count(&total).Error
	return total, err
}

// ListLeadsPage returns leads newest first.
func ListLeadsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Lead, error) {
	var out []domain.Lead
	err := db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// isUniqueViolation normalizes driver-specific unique constraint errors.
func isUniqueViolation(err error) bool {
	// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
	low := strings.ToLower(err.Error())
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}
