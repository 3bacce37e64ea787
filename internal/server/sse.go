package server

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/switchboard/internal/models"
	"github.com/zulandar/switchboard/internal/pool"
)

// slotFailureEvent holds data for a slot-failure SSE event.
type slotFailureEvent struct {
	ID        uint   `json:"id"`
	SlotID    int    `json:"slot_id"`
	SessionID string `json:"session_id,omitempty"`
	Reason    string `json:"reason"`
	Failed    int64  `json:"failed_slots_total"`
}

// handleSSE streams slot-failure events to operator dashboards, polling
// the slot_events table for new terminal failures.
func (s *Server) handleSSE(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	writeSSE(c.Writer, "connected", map[string]string{"type": "connected"})
	c.Writer.Flush()

	// Without a store there is nothing to poll.
	if s.db == nil {
		return
	}

	// Only alert on failures that happen after the client connects.
	var lastSeenID uint
	var maxEvt models.SlotEvent
	if err := s.db.Where("to_state = ?", string(pool.SlotFailed)).
		Order("id DESC").Limit(1).First(&maxEvt).Error; err == nil {
		lastSeenID = maxEvt.ID
	}

	ctx := c.Request.Context()
	ticker := time.NewTicker(3 * time.Second)
	heartbeat := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			writeSSE(c.Writer, "heartbeat", map[string]string{
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			})
			c.Writer.Flush()
		case <-ticker.C:
			var newEvts []models.SlotEvent
			s.db.Where("to_state = ? AND id > ?", string(pool.SlotFailed), lastSeenID).
				Order("id ASC").
				Find(&newEvts)

			if len(newEvts) == 0 {
				continue
			}
			lastSeenID = newEvts[len(newEvts)-1].ID

			var failedTotal int64
			s.db.Model(&models.SlotEvent{}).
				Where("to_state = ?", string(pool.SlotFailed)).
				Count(&failedTotal)

			for _, evt := range newEvts {
				writeSSE(c.Writer, "slot-failed", slotFailureEvent{
					ID:        evt.ID,
					SlotID:    evt.SlotID,
					SessionID: evt.SessionID,
					Reason:    evt.Reason,
					Failed:    failedTotal,
				})
			}
			c.Writer.Flush()
		}
	}
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, string(jsonData))
}
