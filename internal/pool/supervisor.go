package pool

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zulandar/switchboard/internal/config"
	"github.com/zulandar/switchboard/internal/models"
	"github.com/zulandar/switchboard/internal/notify"
	"gorm.io/gorm"
)

// Supervisor owns the worker-slot table. It is the only component that
// mutates slot state; all mutations happen under one mutex so a slot can
// never be double-assigned. The front door and workers interact with it
// exclusively through Route, Session handles, and the Health snapshot.
//
// Routing policy: lowest-numbered idle slot first. The deployment docs
// this replaces never specified an algorithm; first-idle is deterministic
// and keeps restart accounting per-slot meaningful. Overflow behavior is
// configurable: "reject" answers immediately, "queue" waits (bounded
// depth, bounded time) for a slot to free up.
type Supervisor struct {
	cfg       config.PoolConfig
	transport string
	launcher  Launcher
	db        *gorm.DB
	notifier  notify.Notifier
	out       io.Writer

	mu       sync.Mutex
	slots    []*slot
	draining bool
	waiters  int
	idleCh   chan struct{}
	wg       sync.WaitGroup

	// Health counters, updated on slot transitions and read by /health
	// without touching the mutex.
	idleCount   atomic.Int64
	activeCount atomic.Int64
	failedCount atomic.Int64
}

// Opts holds parameters for creating a Supervisor.
type Opts struct {
	Config    config.PoolConfig
	Transport string
	Launcher  Launcher
	DB        *gorm.DB        // optional: session/event records
	Notifier  notify.Notifier // optional: operator notifications
	Out       io.Writer       // optional: human-readable event log
}

// New creates a Supervisor with cfg.Workers idle slots.
func New(opts Opts) (*Supervisor, error) {
	if opts.Launcher == nil {
		return nil, fmt.Errorf("pool: launcher is required")
	}
	if opts.Config.Workers < 1 {
		return nil, fmt.Errorf("pool: at least one worker slot is required")
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Noop{}
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}

	s := &Supervisor{
		cfg:       opts.Config,
		transport: opts.Transport,
		launcher:  opts.Launcher,
		db:        opts.DB,
		notifier:  opts.Notifier,
		out:       opts.Out,
		idleCh:    make(chan struct{}, 1),
	}
	for i := 0; i < opts.Config.Workers; i++ {
		s.slots = append(s.slots, &slot{id: i, state: SlotIdle})
		fmt.Fprintf(s.out, "Slot %d ready\n", i)
	}
	s.idleCount.Store(int64(opts.Config.Workers))
	return s, nil
}

// Session is the handle the front door holds for one routed request.
type Session struct {
	ID        string
	SlotID    int
	PID       int
	done      chan Result
	cancel    context.CancelCauseFunc
}

// Result describes how a session ended.
type Result struct {
	Status   string // models.Session* status constants
	ExitCode int
	Err      error
}

// Done returns a channel that receives the session result exactly once.
func (s *Session) Done() <-chan Result {
	return s.done
}

// Cancel tears the session down promptly, e.g. on client disconnect. The
// slot is released once the worker exits (bounded by the teardown delay).
func (s *Session) Cancel() {
	s.cancel(errClientGone)
}

// Route assigns the request to an idle slot and spawns a worker process
// for it. Returns ErrPoolExhausted or ErrDraining when no slot can serve.
func (s *Supervisor) Route(req Request) (*Session, error) {
	sl, err := s.assign()
	if err != nil {
		return nil, err
	}

	sessionID, err := GenerateSessionID()
	if err != nil {
		s.releaseUnlaunched(sl, "session ID generation failed")
		return nil, err
	}

	ctx, cancel := context.WithCancelCause(context.Background())

	s.mu.Lock()
	sl.sessionID = sessionID
	sl.cancel = cancel
	s.recordEventLocked(sl, SlotIdle, SlotAssigned, "session "+sessionID)
	s.mu.Unlock()

	proc, err := s.launcher.Launch(ctx, sessionID, req)
	if err != nil {
		cancel(nil)
		// A worker that cannot even start counts against the crash
		// threshold, so a broken bot binary fails the slot instead of
		// bouncing forever.
		s.finishSession(sl, sessionID, models.SessionCrashed, -1, fmt.Sprintf("launch failed: %v", err), SlotAssigned)
		return nil, fmt.Errorf("pool: launch worker for %s: %w", sessionID, err)
	}

	now := time.Now()
	s.mu.Lock()
	sl.state = SlotRunning
	sl.pid = proc.PID()
	sl.startedAt = now
	s.recordEventLocked(sl, SlotAssigned, SlotRunning, fmt.Sprintf("pid %d", proc.PID()))
	s.mu.Unlock()
	s.activeCount.Add(1)

	if s.db != nil {
		rec := models.Session{
			ID:        sessionID,
			SlotID:    sl.id,
			Transport: req.Transport.String(),
			Status:    models.SessionRunning,
			PID:       proc.PID(),
			RoomURL:   req.RoomURL,
			StartedAt: now,
		}
		if err := s.db.Create(&rec).Error; err != nil {
			log.Printf("pool: record session %s: %v", sessionID, err)
		}
	}
	fmt.Fprintf(s.out, "Slot %d: spawned worker pid %d for %s\n", sl.id, proc.PID(), sessionID)

	sess := &Session{
		ID:     sessionID,
		SlotID: sl.id,
		PID:    proc.PID(),
		done:   make(chan Result, 1),
		cancel: cancel,
	}

	s.wg.Add(1)
	go s.watch(ctx, cancel, sl, sess, proc)

	return sess, nil
}

// assign finds an idle slot, honoring the overflow policy.
func (s *Supervisor) assign() (*slot, error) {
	deadline := time.Now().Add(s.cfg.QueueTimeout())
	queued := false

	for {
		s.mu.Lock()
		if s.draining {
			if queued {
				s.waiters--
			}
			s.mu.Unlock()
			return nil, ErrDraining
		}
		for _, sl := range s.slots {
			if sl.state == SlotIdle {
				sl.state = SlotAssigned
				if queued {
					s.waiters--
				}
				s.mu.Unlock()
				s.idleCount.Add(-1)
				return sl, nil
			}
		}

		if s.cfg.QueuePolicy != "queue" {
			s.mu.Unlock()
			return nil, ErrPoolExhausted
		}
		if !queued {
			if s.waiters >= s.cfg.QueueDepth {
				s.mu.Unlock()
				return nil, ErrPoolExhausted
			}
			s.waiters++
			queued = true
		}
		s.mu.Unlock()

		wait := time.Until(deadline)
		if wait <= 0 {
			s.dropWaiter()
			return nil, ErrPoolExhausted
		}
		timer := time.NewTimer(wait)
		select {
		case <-s.idleCh:
			timer.Stop()
		case <-timer.C:
			s.dropWaiter()
			return nil, ErrPoolExhausted
		}
	}
}

func (s *Supervisor) dropWaiter() {
	s.mu.Lock()
	s.waiters--
	s.mu.Unlock()
}

// watch waits for the worker to exit (or the session to time out) and
// releases the slot.
func (s *Supervisor) watch(ctx context.Context, cancel context.CancelCauseFunc, sl *slot, sess *Session, proc Proc) {
	defer s.wg.Done()

	timer := time.NewTimer(s.cfg.SessionTimeout())
	defer timer.Stop()

	var exitErr error
	select {
	case exitErr = <-proc.Done():
	case <-timer.C:
		cancel(errSessionTimeout)
		exitErr = <-proc.Done()
	}

	status, exitCode, detail := classifyExit(ctx, exitErr)
	s.activeCount.Add(-1)
	s.finishSession(sl, sess.ID, status, exitCode, detail, SlotRunning)

	sess.done <- Result{Status: status, ExitCode: exitCode, Err: exitErr}
}

// classifyExit maps a worker exit to a session status. Cancellation causes
// take precedence over the raw exit error: a SIGTERM'd worker reports a
// non-zero exit even when the teardown was deliberate.
func classifyExit(ctx context.Context, exitErr error) (status string, exitCode int, detail string) {
	exitCode = 0
	if ee := (*exec.ExitError)(nil); errors.As(exitErr, &ee) {
		exitCode = ee.ExitCode()
	} else if exitErr != nil {
		exitCode = -1
	}

	switch cause := context.Cause(ctx); {
	case errors.Is(cause, errClientGone):
		return models.SessionCancelled, exitCode, "client disconnected"
	case errors.Is(cause, errSessionTimeout):
		return models.SessionTimedOut, exitCode, "session timeout exceeded"
	case errors.Is(cause, errDrainTeardown):
		return models.SessionCancelled, exitCode, "shutdown drain"
	}

	if exitErr == nil {
		return models.SessionCompleted, 0, ""
	}
	return models.SessionCrashed, exitCode, exitErr.Error()
}

// releaseUnlaunched returns an assigned slot to idle before any worker was
// started (bookkeeping failures, not worker crashes).
func (s *Supervisor) releaseUnlaunched(sl *slot, reason string) {
	s.mu.Lock()
	sl.state = SlotIdle
	s.recordEventLocked(sl, SlotAssigned, SlotIdle, reason)
	sl.sessionID = ""
	sl.cancel = nil
	s.mu.Unlock()
	s.idleCount.Add(1)
	s.signalIdle()
}

// finishSession runs the failure/restart policy and releases the slot.
// A crash appends to the slot's crash window; exceeding cfg.MaxCrashes
// non-zero exits within cfg.CrashWindow() marks the slot permanently
// failed and excludes it from routing.
func (s *Supervisor) finishSession(sl *slot, sessionID, status string, exitCode int, detail string, from SlotState) {
	now := time.Now()

	s.mu.Lock()
	failed := false
	switch status {
	case models.SessionCrashed:
		s.recordEventLocked(sl, from, SlotCrashed, fmt.Sprintf("exit code %d", exitCode))
		sl.crashes = append(sl.crashes, now)
		sl.crashes = trimWindow(sl.crashes, now.Add(-s.cfg.CrashWindow()))
		if len(sl.crashes) > s.cfg.MaxCrashes {
			failed = true
			sl.state = SlotFailed
			s.recordEventLocked(sl, SlotCrashed, SlotFailed,
				fmt.Sprintf("%d crashes within %s", len(sl.crashes), s.cfg.CrashWindow()))
		} else {
			sl.state = SlotIdle
			s.recordEventLocked(sl, SlotCrashed, SlotRestarting, "restart policy")
			s.recordEventLocked(sl, SlotRestarting, SlotIdle, "slot reclaimed")
		}
	default:
		sl.state = SlotIdle
		s.recordEventLocked(sl, from, SlotIdle, detail)
	}
	sl.sessionID = ""
	sl.pid = 0
	sl.cancel = nil
	s.mu.Unlock()

	if failed {
		s.failedCount.Add(1)
		fmt.Fprintf(s.out, "Slot %d permanently failed (exceeded %d crashes in %s)\n",
			sl.id, s.cfg.MaxCrashes, s.cfg.CrashWindow())
		s.notifySlotFailed(sl.id, sessionID)
	} else {
		s.idleCount.Add(1)
		s.signalIdle()
		fmt.Fprintf(s.out, "Slot %d: session %s %s (exit code %d)\n", sl.id, sessionID, status, exitCode)
	}

	if s.db != nil && sessionID != "" {
		updates := map[string]interface{}{
			"status":    status,
			"exit_code": exitCode,
			"detail":    detail,
			"ended_at":  now,
		}
		if err := s.db.Model(&models.Session{}).Where("id = ?", sessionID).Updates(updates).Error; err != nil {
			log.Printf("pool: finish session %s: %v", sessionID, err)
		}
	}
}

// trimWindow drops crash timestamps older than cutoff.
func trimWindow(crashes []time.Time, cutoff time.Time) []time.Time {
	kept := crashes[:0]
	for _, t := range crashes {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}

func (s *Supervisor) signalIdle() {
	select {
	case s.idleCh <- struct{}{}:
	default:
	}
}

// notifySlotFailed alerts the operator that a slot left the pool for good.
func (s *Supervisor) notifySlotFailed(slotID int, sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.notifier.Notify(ctx, notify.Event{
		Title:    fmt.Sprintf("Worker slot %d permanently failed", slotID),
		Body:     "The slot exceeded its crash threshold and has been excluded from routing. Operator intervention required.",
		Severity: notify.SeverityError,
		Fields: []notify.Field{
			{Name: "slot", Value: fmt.Sprintf("%d", slotID)},
			{Name: "last session", Value: sessionID},
			{Name: "transport", Value: s.transport},
		},
	})
}

// recordEventLocked appends a SlotEvent row. Caller holds s.mu.
func (s *Supervisor) recordEventLocked(sl *slot, from, to SlotState, reason string) {
	if s.db == nil {
		return
	}
	evt := models.SlotEvent{
		SlotID:    sl.id,
		SessionID: sl.sessionID,
		FromState: string(from),
		ToState:   string(to),
		Reason:    reason,
		CreatedAt: time.Now(),
	}
	if err := s.db.Create(&evt).Error; err != nil {
		log.Printf("pool: record slot event: %v", err)
	}
}

// SlotInfo is a point-in-time copy of one slot's state for status APIs.
type SlotInfo struct {
	ID        int       `json:"id"`
	State     SlotState `json:"state"`
	SessionID string    `json:"session_id,omitempty"`
	PID       int       `json:"pid,omitempty"`
	StartedAt time.Time `json:"started_at,omitempty"`
	Crashes   int       `json:"recent_crashes"`
}

// Slots returns a snapshot of the slot table.
func (s *Supervisor) Slots() []SlotInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]SlotInfo, 0, len(s.slots))
	for _, sl := range s.slots {
		out = append(out, SlotInfo{
			ID:        sl.id,
			State:     sl.state,
			SessionID: sl.sessionID,
			PID:       sl.pid,
			StartedAt: sl.startedAt,
			Crashes:   len(sl.crashes),
		})
	}
	return out
}

// Shutdown stops accepting new sessions and waits for active ones to
// drain. When ctx expires first, remaining workers are torn down and the
// wait resumes (bounded by the workers' kill delay).
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.draining = true
	s.mu.Unlock()
	fmt.Fprintf(s.out, "Draining: waiting for active sessions to finish\n")

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.mu.Lock()
		for _, sl := range s.slots {
			if sl.cancel != nil {
				sl.cancel(errDrainTeardown)
			}
		}
		s.mu.Unlock()
		<-done
	}

	fmt.Fprintf(s.out, "All sessions drained\n")
	return nil
}
