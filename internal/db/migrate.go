package db

import (
	"fmt"
	"time"

	"github.com/zulandar/switchboard/internal/models"
	"gorm.io/gorm"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.Session{},
		&models.SlotEvent{},
		&models.SessionLog{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// PruneResult reports how many rows a retention sweep removed.
type PruneResult struct {
	Sessions   int64
	SlotEvents int64
	Logs       int64
}

// Prune deletes sessions, slot events, and session logs older than cutoff.
// Running sessions are never pruned regardless of age.
func Prune(db *gorm.DB, cutoff time.Time) (*PruneResult, error) {
	var res PruneResult

	r := db.Where("started_at < ? AND status != ?", cutoff, models.SessionRunning).
		Delete(&models.Session{})
	if r.Error != nil {
		return nil, fmt.Errorf("db: prune sessions: %w", r.Error)
	}
	res.Sessions = r.RowsAffected

	r = db.Where("created_at < ?", cutoff).Delete(&models.SlotEvent{})
	if r.Error != nil {
		return nil, fmt.Errorf("db: prune slot events: %w", r.Error)
	}
	res.SlotEvents = r.RowsAffected

	r = db.Where("created_at < ?", cutoff).Delete(&models.SessionLog{})
	if r.Error != nil {
		return nil, fmt.Errorf("db: prune session logs: %w", r.Error)
	}
	res.Logs = r.RowsAffected

	return &res, nil
}
