package models

import "time"

// SessionLog captures chunked worker stdout/stderr for debugging.
type SessionLog struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	SessionID string `gorm:"size:64;index"`
	SlotID    int
	Direction string `gorm:"size:4"` // "out" or "err"
	Content   string `gorm:"type:mediumtext"`
	CreatedAt time.Time
}
