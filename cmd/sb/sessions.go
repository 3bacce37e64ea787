package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/zulandar/switchboard/internal/db"
	"github.com/zulandar/switchboard/internal/models"
)

func newSessionsCmd() *cobra.Command {
	var (
		configPath string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recent sessions from the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessions(cmd, configPath, limit)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Switchboard config file")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum sessions to list")
	return cmd
}

func runSessions(cmd *cobra.Command, configPath string, limit int) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Connect(cfg.Store)
	if err != nil {
		return fmt.Errorf("connect store: %w", err)
	}

	var sessions []models.Session
	if err := gormDB.Order("started_at DESC").Limit(limit).Find(&sessions).Error; err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-14s %-5s %-8s %-10s %-20s %s\n",
		"SESSION", "SLOT", "TRANSPORT", "STATUS", "STARTED", "DURATION")
	for _, s := range sessions {
		duration := "-"
		if s.EndedAt != nil {
			duration = formatDuration(s.EndedAt.Sub(s.StartedAt))
		}
		fmt.Fprintf(out, "%-14s %-5d %-8s %-10s %-20s %s\n",
			s.ID, s.SlotID, s.Transport, s.Status,
			s.StartedAt.Format("2006-01-02 15:04:05"), duration)
	}
	if len(sessions) == 0 {
		fmt.Fprintln(out, "  (no sessions recorded)")
	}
	return nil
}

// formatDuration formats a duration as "Xh Ym" or "Ym Zs".
func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm %ds", m, s)
}
