// Package worker spawns one bot process per conversation session. The
// process boundary is the isolation boundary: workers share nothing with
// each other and talk to the supervisor only through their exit status.
package worker

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"syscall"
	"time"

	"github.com/zulandar/switchboard/internal/config"
	"github.com/zulandar/switchboard/internal/pool"
	"gorm.io/gorm"
)

// DefaultTeardownDelay bounds how long a SIGTERM'd worker may linger
// before it is killed.
const DefaultTeardownDelay = 10 * time.Second

// Launcher implements pool.Launcher by spawning the configured bot binary.
type Launcher struct {
	cfg      config.BotConfig
	teardown time.Duration
	db       *gorm.DB // optional: session log capture
}

// NewLauncher creates a Launcher. teardown <= 0 selects the default delay.
func NewLauncher(cfg config.BotConfig, teardown time.Duration, db *gorm.DB) *Launcher {
	if teardown <= 0 {
		teardown = DefaultTeardownDelay
	}
	return &Launcher{cfg: cfg, teardown: teardown, db: db}
}

// Launch starts a bot process for the session. The request payload is
// written to the worker's stdin and stdin is closed; stdout/stderr are
// captured into session logs. Cancelling ctx SIGTERMs the whole process
// group, with a hard kill after the teardown delay.
func (l *Launcher) Launch(ctx context.Context, sessionID string, req pool.Request) (pool.Proc, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("worker: sessionID is required")
	}

	cmd := l.buildCommand(ctx, sessionID, req)

	stdoutWriter := newLogWriter(l.db, sessionID, "out")
	stderrWriter := newLogWriter(l.db, sessionID, "err")
	cmd.Stdout = stdoutWriter
	cmd.Stderr = stderrWriter

	var stdin io.WriteCloser
	if len(req.Payload) > 0 {
		pipe, err := cmd.StdinPipe()
		if err != nil {
			return nil, fmt.Errorf("worker: stdin pipe: %w", err)
		}
		stdin = pipe
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("worker: start %s: %w", l.cfg.Binary, err)
	}

	if stdin != nil {
		// One-shot handoff: the worker reads its payload to EOF.
		if _, err := stdin.Write(req.Payload); err != nil {
			stdin.Close()
			return nil, fmt.Errorf("worker: write payload: %w", err)
		}
		stdin.Close()
	}

	waitCh := make(chan error, 1)
	flushCtx, flushCancel := context.WithCancel(context.Background())
	startFlusher(flushCtx, stdoutWriter, DefaultFlushInterval)
	startFlusher(flushCtx, stderrWriter, DefaultFlushInterval)

	go func() {
		waitErr := cmd.Wait()
		flushCancel()
		stdoutWriter.Close()
		stderrWriter.Close()
		waitCh <- waitErr
	}()

	return &process{pid: cmd.Process.Pid, waitCh: waitCh}, nil
}

// buildCommand constructs the exec.Cmd for the bot binary.
func (l *Launcher) buildCommand(ctx context.Context, sessionID string, req pool.Request) *exec.Cmd {
	args := append([]string{}, l.cfg.Args...)
	args = append(args,
		"--session-id", sessionID,
		"--transport", req.Transport.String(),
	)
	if req.RoomURL != "" {
		args = append(args, "--room-url", req.RoomURL)
	}
	if req.Token != "" {
		args = append(args, "--token", req.Token)
	}

	cmd := exec.CommandContext(ctx, l.cfg.Binary, args...)
	if l.cfg.WorkDir != "" {
		cmd.Dir = l.cfg.WorkDir
	}

	// Process group so SIGTERM reaches the worker's own children too.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
	}
	cmd.WaitDelay = l.teardown

	return cmd
}

// process implements pool.Proc.
type process struct {
	pid    int
	waitCh chan error
}

func (p *process) PID() int { return p.pid }

func (p *process) Done() <-chan error { return p.waitCh }
