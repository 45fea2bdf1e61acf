package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-intake-bot/internal/domain"
	"github.com/tbourn/go-intake-bot/internal/utils"
)

// LeadRepo is the persistence contract the lead directory relies on. The
// router adapts the repo package's free functions to it.
type LeadRepo interface {
	// CountLeads returns the total number of captured leads.
	CountLeads(ctx context.Context, db *gorm.DB) (int64, error)

	// ListLeadsPage returns a page of leads, newest first.
	ListLeadsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Lead, error)

	// LeadsStats returns the count and newest CreatedAt for conditional GETs.
	LeadsStats(ctx context.Context, db *gorm.DB) (int64, *time.Time, error)
}

// LeadService is the read side over captured leads used by operators.
type LeadService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the lead repository used by this service.
	Repo LeadRepo
}

// NewLeadService returns a LeadService bound to db and r.
func NewLeadService(db *gorm.DB, r LeadRepo) *LeadService {
	return &LeadService{DB: db, Repo: r}
}

// ListPage returns the requested page of leads plus the overall total.
// page is 1-based; out-of-range values are coerced to defaults.
func (s *LeadService) ListPage(ctx context.Context, page, pageSize int) ([]domain.Lead, int64, error) {
	page, pageSize = utils.ClampPage(page, pageSize)
	offset := utils.Offset(page, pageSize)

	total, err := s.Repo.CountLeads(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Lead{}, 0, nil
	}

	items, err := s.Repo.ListLeadsPage(ctx, s.DB, offset, pageSize)
	return items, total, err
}

// Stats reports the lead count and the newest creation time.
func (s *LeadService) Stats(ctx context.Context) (int64, *time.Time, error) {
	return s.Repo.LeadsStats(ctx, s.DB)
}
