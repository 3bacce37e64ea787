package worker

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/zulandar/switchboard/internal/models"
	"gorm.io/gorm"
)

// DefaultFlushInterval is the interval between periodic log flushes.
const DefaultFlushInterval = 5 * time.Second

// logWriter implements io.Writer, buffering worker output and periodically
// flushing it to session_logs via an injected writeFn.
type logWriter struct {
	sessionID string
	direction string // "out" or "err"

	mu      sync.Mutex
	buf     bytes.Buffer
	writeFn func(models.SessionLog) error
}

// newLogWriter creates a logWriter that flushes to the DB. A nil db makes
// the writer a buffered sink that discards on flush.
func newLogWriter(db *gorm.DB, sessionID, direction string) *logWriter {
	w := &logWriter{
		sessionID: sessionID,
		direction: direction,
	}
	if db != nil {
		w.writeFn = func(entry models.SessionLog) error {
			return db.Create(&entry).Error
		}
	}
	return w
}

// Write appends bytes to the internal buffer (implements io.Writer).
func (w *logWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

// Flush writes accumulated buffer contents to session_logs and resets the
// buffer.
func (w *logWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.buf.Len() == 0 {
		return nil
	}

	content := w.buf.String()
	w.buf.Reset()

	if w.writeFn == nil {
		return nil
	}
	return w.writeFn(models.SessionLog{
		SessionID: w.sessionID,
		Direction: w.direction,
		Content:   content,
		CreatedAt: time.Now(),
	})
}

// Close performs a final flush.
func (w *logWriter) Close() error {
	return w.Flush()
}

// startFlusher launches a goroutine that periodically flushes the logWriter.
func startFlusher(ctx context.Context, w *logWriter, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.Flush()
			}
		}
	}()
}
