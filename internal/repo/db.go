// Package repo implements persistence for sessions, the scripted flow, leads
// and idempotency records on top of GORM. This file opens the SQLite database
// and migrates the schema.
package repo

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-intake-bot/internal/domain"
)

// sqlitePragmas favour concurrent readers (status, lead listing) while turns
// write session state.
var sqlitePragmas = []string{
	"PRAGMA journal_mode=WAL;",
	"PRAGMA synchronous=NORMAL;",
	"PRAGMA foreign_keys=ON;",
	"PRAGMA busy_timeout=5000;",
}

// OpenSQLite opens (or creates) the database at path. path may also be
// ":memory:" or a "file:" URI. Queries are traced through the OpenTelemetry
// GORM plugin.
func OpenSQLite(path string) (*gorm.DB, error) {
	if isFilePath(path) {
		// Fail early on a missing parent dir instead of sqlite's "out of memory (14)".
		if dir := filepath.Dir(path); dir != "." {
			if _, err := os.Stat(dir); err != nil {
				return nil, err
			}
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}
	// Best effort: journal_mode=WAL is refused on some filesystems.
	for _, p := range sqlitePragmas {
		db.Exec(p)
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(8)
		sqlDB.SetMaxIdleConns(4)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
	return db, nil
}

func isFilePath(path string) bool {
	return path != ":memory:" && !strings.HasPrefix(path, "file:")
}

// AutoMigrate creates or updates every table the service owns.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Session{},
		&domain.FlowStep{},
		&domain.FlowSettings{},
		&domain.Lead{},
		&domain.Idempotency{},
	)
}
