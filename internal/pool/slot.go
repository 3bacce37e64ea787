// Package pool implements the supervisor: a fixed table of worker slots,
// session routing, crash/restart policy, and the health snapshot.
package pool

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/zulandar/switchboard/internal/transport"
)

// SlotState values form the per-slot state machine:
// idle -> assigned -> running -> idle on the normal path, with
// running -> crashed -> restarting -> idle on worker crash and a terminal
// failed state once the crash threshold is exceeded.
type SlotState string

const (
	SlotIdle       SlotState = "idle"
	SlotAssigned   SlotState = "assigned"
	SlotRunning    SlotState = "running"
	SlotCrashed    SlotState = "crashed"
	SlotRestarting SlotState = "restarting"
	SlotFailed     SlotState = "failed"
)

// Sentinel errors surfaced to the front door.
var (
	// ErrPoolExhausted means no idle slot was available (and, under the
	// queue policy, none freed up within the queue timeout).
	ErrPoolExhausted = errors.New("pool: no idle worker slot available")

	// ErrDraining means the supervisor is shutting down and not accepting
	// new sessions.
	ErrDraining = errors.New("pool: supervisor is draining")
)

// Cancellation causes distinguish why a session context was cancelled.
var (
	errClientGone     = errors.New("pool: client disconnected")
	errSessionTimeout = errors.New("pool: session timeout exceeded")
	errDrainTeardown  = errors.New("pool: teardown for shutdown")
)

// Request is an incoming connection that needs a worker.
type Request struct {
	Transport transport.Kind
	Payload   []byte // SDP offer or webhook body, passed to the worker
	RoomURL   string // Daily room URL, when applicable
	Token     string // Daily meeting token for the bot participant
}

// Proc is a handle to one running worker process.
type Proc interface {
	// PID returns the OS process ID.
	PID() int
	// Done returns a channel that receives the process exit result once.
	Done() <-chan error
}

// Launcher spawns one worker process per session. The process must exit
// when ctx is cancelled. The worker package provides the real
// implementation; tests inject fakes.
type Launcher interface {
	Launch(ctx context.Context, sessionID string, req Request) (Proc, error)
}

// slot is the supervisor's bookkeeping record for one worker's
// availability. All fields are guarded by the supervisor mutex.
type slot struct {
	id        int
	state     SlotState
	sessionID string
	pid       int
	startedAt time.Time
	cancel    context.CancelCauseFunc // non-nil while a session is bound
	crashes   []time.Time             // non-zero exits inside the crash window
}

// GenerateSessionID creates a unique session ID in sess-xxxxxxxx format
// (8-char hex).
func GenerateSessionID() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("pool: generate session ID: %w", err)
	}
	return "sess-" + hex.EncodeToString(b), nil
}
