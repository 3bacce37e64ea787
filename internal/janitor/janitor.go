// Package janitor runs the scheduled retention sweep over the session
// store.
package janitor

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/zulandar/switchboard/internal/config"
	"github.com/zulandar/switchboard/internal/db"
	"gorm.io/gorm"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom,
// month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Opts configures the janitor.
type Opts struct {
	Config config.RetentionConfig
	DB     *gorm.DB
	Out    io.Writer
}

// Run blocks, sweeping expired sessions, slot events, and session logs on
// the configured cron schedule until ctx is cancelled.
func Run(ctx context.Context, opts Opts) error {
	if opts.DB == nil {
		return fmt.Errorf("janitor: db is required")
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}

	sched, err := cronParser.Parse(opts.Config.Schedule)
	if err != nil {
		return fmt.Errorf("janitor: parse schedule %q: %w", opts.Config.Schedule, err)
	}

	fmt.Fprintf(opts.Out, "Janitor scheduled (%s, retention %dd)\n",
		opts.Config.Schedule, opts.Config.MaxAgeDays)

	for {
		next := sched.Next(time.Now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		cutoff := time.Now().Add(-opts.Config.MaxAge())
		res, err := db.Prune(opts.DB, cutoff)
		if err != nil {
			log.Printf("janitor: sweep: %v", err)
			continue
		}
		fmt.Fprintf(opts.Out, "Janitor swept %d sessions, %d events, %d log chunks\n",
			res.Sessions, res.SlotEvents, res.Logs)
	}
}
