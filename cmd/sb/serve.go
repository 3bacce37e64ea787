package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/zulandar/switchboard/internal/config"
	"github.com/zulandar/switchboard/internal/db"
	"github.com/zulandar/switchboard/internal/janitor"
	"github.com/zulandar/switchboard/internal/notify"
	"github.com/zulandar/switchboard/internal/pool"
	"github.com/zulandar/switchboard/internal/server"
	"github.com/zulandar/switchboard/internal/worker"
)

const defaultConfigPath = "switchboard.yaml"

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the front door and worker-pool supervisor",
		Long:  "Starts the HTTP front door, the worker-pool supervisor, and the retention janitor. Drains active sessions on SIGINT/SIGTERM.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Switchboard config file")
	return cmd
}

// loadConfig reads the config file, or falls back to defaults plus
// environment overrides when the default file simply doesn't exist.
// Container platforms commonly configure everything via env.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil && path == defaultConfigPath && errors.Is(err, fs.ErrNotExist) {
		return config.Default()
	}
	return cfg, err
}

func runServe(cmd *cobra.Command, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	out := cmd.OutOrStdout()

	// Startup failures below are fatal: no partial-degraded startup.
	gormDB, err := db.Connect(cfg.Store)
	if err != nil {
		return fmt.Errorf("connect store: %w", err)
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}

	notifier, err := notify.FromConfig(cfg.Notify)
	if err != nil {
		return fmt.Errorf("configure notifications: %w", err)
	}

	launcher := worker.NewLauncher(cfg.Bot, cfg.Pool.TeardownTimeout(), gormDB)
	sup, err := pool.New(pool.Opts{
		Config:    cfg.Pool,
		Transport: cfg.Transport,
		Launcher:  launcher,
		DB:        gormDB,
		Notifier:  notifier,
		Out:       out,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notifier.Notify(ctx, notify.Event{
		Title:    "Switchboard starting",
		Body:     fmt.Sprintf("%d worker slots, transport %s, port %d", cfg.Pool.Workers, cfg.Transport, cfg.Server.Port),
		Severity: notify.SeverityInfo,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(gctx, server.StartOpts{
			Config:     cfg,
			Supervisor: sup,
			DB:         gormDB,
			Out:        out,
		})
	})
	g.Go(func() error {
		return janitor.Run(gctx, janitor.Opts{
			Config: cfg.Retention,
			DB:     gormDB,
			Out:    out,
		})
	})

	err = g.Wait()

	// The listener is down; give active sessions a bounded drain.
	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.Pool.SessionTimeout())
	defer cancel()
	sup.Shutdown(drainCtx)

	notifier.Notify(context.Background(), notify.Event{
		Title:    "Switchboard stopped",
		Body:     "All sessions drained.",
		Severity: notify.SeverityInfo,
	})

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	fmt.Fprintln(out, "Switchboard stopped.")
	return nil
}
