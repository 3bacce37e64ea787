package models

import "time"

// SlotEvent records a worker-slot state transition for the operator feed.
type SlotEvent struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	SlotID    int    `gorm:"index"`
	SessionID string `gorm:"size:64;index"`
	FromState string `gorm:"size:16"`
	ToState   string `gorm:"size:16;index"`
	Reason    string `gorm:"size:256"`
	CreatedAt time.Time
}
