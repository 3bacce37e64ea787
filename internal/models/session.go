package models

import "time"

// Session records one end-to-end conversation, from assignment to teardown.
type Session struct {
	ID        string `gorm:"primaryKey;size:64"`
	SlotID    int    `gorm:"index"`
	Transport string `gorm:"size:16;index"`
	Status    string `gorm:"size:16;index"` // running, completed, crashed, timed_out, cancelled
	PID       int
	RoomURL   string `gorm:"size:512"`
	Detail    string `gorm:"type:text"`
	ExitCode  int
	StartedAt time.Time
	EndedAt   *time.Time
}

// Session status constants.
const (
	SessionRunning   = "running"
	SessionCompleted = "completed"
	SessionCrashed   = "crashed"
	SessionTimedOut  = "timed_out"
	SessionCancelled = "cancelled"
)
