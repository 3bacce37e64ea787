package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	var (
		configPath string
		url        string
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Probe a running Switchboard's health endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, configPath, url)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Switchboard config file")
	cmd.Flags().StringVar(&url, "url", "", "health URL (default: http://localhost:<port>/health)")
	return cmd
}

func runStatus(cmd *cobra.Command, configPath, url string) error {
	if url == "" {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		url = fmt.Sprintf("http://localhost:%d/health", cfg.Server.Port)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health probe %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read health response: %w", err)
	}

	var health struct {
		Status         string `json:"status"`
		Transport      string `json:"transport"`
		ActiveSessions int    `json:"active_sessions"`
		FailedSlots    int    `json:"failed_slots"`
		TotalSlots     int    `json:"total_slots"`
	}
	if err := json.Unmarshal(body, &health); err != nil {
		return fmt.Errorf("decode health response: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Status:    %s (HTTP %d)\n", health.Status, resp.StatusCode)
	fmt.Fprintf(out, "Transport: %s\n", health.Transport)
	fmt.Fprintf(out, "Sessions:  %d active\n", health.ActiveSessions)
	fmt.Fprintf(out, "Slots:     %d total, %d failed\n", health.TotalSlots, health.FailedSlots)

	if health.Status != "healthy" {
		return fmt.Errorf("switchboard is %s", health.Status)
	}
	return nil
}
