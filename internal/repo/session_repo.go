// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the session store.
//
// Sessions are read and written whole: the orchestrator loads a working copy,
// mutates it for one turn and saves it back. Writes are last-writer-wins;
// concurrent turns on the same session are expected to be serialized by the
// caller.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-intake-bot/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// GetSession returns the session with the given id, or (nil, nil) when no
// such session exists yet.
func GetSession(ctx context.Context, db *gorm.DB, id string) (*domain.Session, error) {
	var s domain.Session
	err := db.WithContext(ctx).Where("id = ?", id).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if s.LeadData == nil {
		s.LeadData = domain.LeadData{}
	}
	return &s, nil
}

// SaveSession upserts the full session row. UpdatedAt is stamped in UTC.
func SaveSession(ctx context.Context, db *gorm.DB, s *domain.Session) error {
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	return db.WithContext(ctx).Save(s).Error
}
