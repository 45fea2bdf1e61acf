// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the flow definition store used by the
// scripted fallback questionnaire.
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/go-intake-bot/internal/domain"
)

// GetFlow loads every flow step ordered by id plus the completion message.
// An empty step list is returned as-is; callers decide how to degrade.
func GetFlow(ctx context.Context, db *gorm.DB) (domain.Flow, error) {
	var steps []domain.FlowStep
	if err := db.WithContext(ctx).Order("id ASC").Find(&steps).Error; err != nil {
		return domain.Flow{}, err
	}

	var settings domain.FlowSettings
	err := db.WithContext(ctx).Order("id ASC").First(&settings).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Flow{}, err
	}
	return domain.Flow{Steps: steps, CompletionMessage: settings.CompletionMessage}, nil
}

// SeedFlow inserts the given flow when the flow_steps table is empty. It
// reports whether anything was written.
func SeedFlow(ctx context.Context, db *gorm.DB, flow domain.Flow) (bool, error) {
	var n int64
	if err := db.WithContext(ctx).Model(&domain.FlowStep{}).Count(&n).Error; err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(flow.Steps) > 0 {
			if err := tx.Create(&flow.Steps).Error; err != nil {
				return err
			}
		}
		return tx.Save(&domain.FlowSettings{ID: 1, CompletionMessage: flow.CompletionMessage}).Error
	})
	return err == nil, err
}

// Ping verifies the underlying connection is usable.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
