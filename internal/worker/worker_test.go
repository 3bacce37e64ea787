package worker

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/zulandar/switchboard/internal/config"
	"github.com/zulandar/switchboard/internal/models"
	"github.com/zulandar/switchboard/internal/pool"
	"github.com/zulandar/switchboard/internal/transport"
)

func TestBuildCommand_Args(t *testing.T) {
	l := NewLauncher(config.BotConfig{
		Binary:  "/opt/bots/voicebot",
		WorkDir: "/opt/bots",
		Args:    []string{"--profile", "prod"},
	}, 0, nil)

	cmd := l.buildCommand(context.Background(), "sess-ab12cd34", pool.Request{
		Transport: transport.Daily,
		RoomURL:   "https://demo.daily.co/standup",
		Token:     "tok-1",
	})

	want := []string{
		"/opt/bots/voicebot",
		"--profile", "prod",
		"--session-id", "sess-ab12cd34",
		"--transport", "daily",
		"--room-url", "https://demo.daily.co/standup",
		"--token", "tok-1",
	}
	if len(cmd.Args) != len(want) {
		t.Fatalf("Args = %v, want %v", cmd.Args, want)
	}
	for i := range want {
		if cmd.Args[i] != want[i] {
			t.Errorf("Args[%d] = %q, want %q", i, cmd.Args[i], want[i])
		}
	}
	if cmd.Dir != "/opt/bots" {
		t.Errorf("Dir = %q, want /opt/bots", cmd.Dir)
	}
	if cmd.SysProcAttr == nil || !cmd.SysProcAttr.Setpgid {
		t.Error("Setpgid not set; SIGTERM would miss the worker's children")
	}
	if cmd.WaitDelay != DefaultTeardownDelay {
		t.Errorf("WaitDelay = %v, want %v", cmd.WaitDelay, DefaultTeardownDelay)
	}
}

func TestBuildCommand_OmitsEmptyOptionals(t *testing.T) {
	l := NewLauncher(config.BotConfig{Binary: "bot"}, 5*time.Second, nil)

	cmd := l.buildCommand(context.Background(), "sess-00000000", pool.Request{
		Transport: transport.WebRTC,
	})

	joined := strings.Join(cmd.Args, " ")
	if strings.Contains(joined, "--room-url") {
		t.Errorf("Args %v include --room-url for a request without one", cmd.Args)
	}
	if strings.Contains(joined, "--token") {
		t.Errorf("Args %v include --token for a request without one", cmd.Args)
	}
	if cmd.WaitDelay != 5*time.Second {
		t.Errorf("WaitDelay = %v, want 5s", cmd.WaitDelay)
	}
}

func TestLaunch_RequiresSessionID(t *testing.T) {
	l := NewLauncher(config.BotConfig{Binary: "bot"}, 0, nil)
	if _, err := l.Launch(context.Background(), "", pool.Request{}); err == nil {
		t.Fatal("expected error for empty session ID")
	}
}

func TestLogWriter_FlushWritesBufferedOutput(t *testing.T) {
	var got []models.SessionLog
	w := &logWriter{
		sessionID: "sess-ab12cd34",
		direction: "out",
		writeFn: func(entry models.SessionLog) error {
			got = append(got, entry)
			return nil
		},
	}

	w.Write([]byte("hello "))
	w.Write([]byte("world\n"))
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("flushed %d entries, want 1", len(got))
	}
	if got[0].Content != "hello world\n" {
		t.Errorf("Content = %q, want %q", got[0].Content, "hello world\n")
	}
	if got[0].SessionID != "sess-ab12cd34" || got[0].Direction != "out" {
		t.Errorf("entry = %+v, wrong session/direction", got[0])
	}
}

func TestLogWriter_FlushEmptyIsNoop(t *testing.T) {
	calls := 0
	w := &logWriter{
		writeFn: func(models.SessionLog) error {
			calls++
			return nil
		},
	}

	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if calls != 0 {
		t.Errorf("writeFn called %d times for empty buffer, want 0", calls)
	}
}

func TestLogWriter_FlushResetsBuffer(t *testing.T) {
	var got []models.SessionLog
	w := &logWriter{
		writeFn: func(entry models.SessionLog) error {
			got = append(got, entry)
			return nil
		},
	}

	w.Write([]byte("first"))
	w.Flush()
	w.Write([]byte("second"))
	w.Close()

	if len(got) != 2 {
		t.Fatalf("flushed %d entries, want 2", len(got))
	}
	if got[1].Content != "second" {
		t.Errorf("second flush content = %q, want %q", got[1].Content, "second")
	}
}

func TestLogWriter_NilDBDiscards(t *testing.T) {
	w := newLogWriter(nil, "sess-00000000", "err")
	w.Write([]byte("dropped"))
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush with nil db: %v", err)
	}
}

func TestStartFlusher_PeriodicFlush(t *testing.T) {
	flushed := make(chan models.SessionLog, 1)
	w := &logWriter{
		writeFn: func(entry models.SessionLog) error {
			select {
			case flushed <- entry:
			default:
			}
			return nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Write([]byte("tick"))
	startFlusher(ctx, w, 10*time.Millisecond)

	select {
	case entry := <-flushed:
		if entry.Content != "tick" {
			t.Errorf("flushed content = %q, want tick", entry.Content)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("flusher never flushed")
	}
}
