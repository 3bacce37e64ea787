package pool

// Health status values reported by /health.
const (
	StatusHealthy     = "healthy"
	StatusDegraded    = "degraded"
	StatusUnavailable = "unavailable"
)

// HealthStatus is the point-in-time liveness signal. It is recomputed on
// every probe from counters the supervisor updates on slot transitions,
// so reading it never contends with routing or any worker's run loop.
type HealthStatus struct {
	Status         string `json:"status"`
	Transport      string `json:"transport"`
	ActiveSessions int    `json:"active_sessions"`
	FailedSlots    int    `json:"failed_slots"`
	TotalSlots     int    `json:"total_slots"`
}

// Health computes the current health snapshot.
//
// healthy: no failed slots and at least one idle slot.
// degraded: routable slots remain, but some have failed or all are busy.
// unavailable: every slot is permanently failed.
func (s *Supervisor) Health() HealthStatus {
	idle := s.idleCount.Load()
	active := s.activeCount.Load()
	failed := s.failedCount.Load()
	total := len(s.slots)

	status := StatusHealthy
	switch {
	case failed >= int64(total):
		status = StatusUnavailable
	case failed > 0 || idle == 0:
		status = StatusDegraded
	}

	return HealthStatus{
		Status:         status,
		Transport:      s.transport,
		ActiveSessions: int(active),
		FailedSlots:    int(failed),
		TotalSlots:     total,
	}
}
