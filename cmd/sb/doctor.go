package main

import (
	"fmt"
	"io"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/zulandar/switchboard/internal/config"
	"github.com/zulandar/switchboard/internal/db"
	"github.com/zulandar/switchboard/internal/transport"
)

func newDoctorCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check deployment prerequisites and configuration",
		Long:  "Runs diagnostic checks on Switchboard prerequisites: config, bot binary, session store, schema, transport credentials, and notifications.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Switchboard config file")
	return cmd
}

type checkResult struct {
	name   string
	status string // "PASS", "FAIL", "WARN"
	detail string
}

func runDoctor(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Switchboard Doctor")
	fmt.Fprintln(out, "==================")

	var results []checkResult

	// 1. Config
	cfg, cfgResult := checkConfig(configPath)
	results = append(results, cfgResult)

	// 2. Bot binary
	if cfg != nil {
		results = append(results, checkBotBinary(cfg))
	} else {
		results = append(results, checkResult{"Bot binary", "FAIL", "skipped (no config)"})
	}

	// 3. Session store
	if cfg != nil {
		results = append(results, checkStore(cfg))
		results = append(results, checkSchema(cfg))
	} else {
		results = append(results, checkResult{"Session store", "FAIL", "skipped (no config)"})
		results = append(results, checkResult{"Schema", "FAIL", "skipped (no config)"})
	}

	// 4. Transport credentials
	if cfg != nil {
		results = append(results, checkTransport(cfg))
	} else {
		results = append(results, checkResult{"Transport", "FAIL", "skipped (no config)"})
	}

	// 5. Notifications
	if cfg != nil {
		results = append(results, checkNotify(cfg))
	}

	passed, failed, warned := 0, 0, 0
	for _, r := range results {
		printCheckResult(out, r)
		switch r.status {
		case "PASS":
			passed++
		case "FAIL":
			failed++
		case "WARN":
			warned++
		}
	}

	fmt.Fprintf(out, "\n%d passed, %d failed, %d warning\n", passed, failed, warned)

	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	return nil
}

func printCheckResult(out io.Writer, r checkResult) {
	fmt.Fprintf(out, "[%s] %s: %s\n", r.status, r.name, r.detail)
}

func checkConfig(path string) (*config.Config, checkResult) {
	cfg, err := loadConfig(path)
	if err != nil {
		return nil, checkResult{"Config file", "FAIL", fmt.Sprintf("%s: %v", path, err)}
	}
	return cfg, checkResult{"Config file", "PASS", path}
}

func checkBotBinary(cfg *config.Config) checkResult {
	path, err := exec.LookPath(cfg.Bot.Binary)
	if err != nil {
		return checkResult{"Bot binary", "FAIL", fmt.Sprintf("%q not found in PATH", cfg.Bot.Binary)}
	}
	return checkResult{"Bot binary", "PASS", path}
}

func checkStore(cfg *config.Config) checkResult {
	gormDB, err := db.Connect(cfg.Store)
	if err != nil {
		return checkResult{"Session store", "FAIL", fmt.Sprintf("%s: %v", cfg.Store.Driver, err)}
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return checkResult{"Session store", "FAIL", fmt.Sprintf("get sql.DB: %v", err)}
	}
	if err := sqlDB.Ping(); err != nil {
		return checkResult{"Session store", "FAIL", fmt.Sprintf("%s ping failed: %v", cfg.Store.Driver, err)}
	}
	return checkResult{"Session store", "PASS", fmt.Sprintf("%s reachable", cfg.Store.Driver)}
}

func checkSchema(cfg *config.Config) checkResult {
	gormDB, err := db.Connect(cfg.Store)
	if err != nil {
		return checkResult{"Schema", "FAIL", fmt.Sprintf("connect: %v", err)}
	}

	expected := len(db.AllModels())
	migrated := 0
	for _, m := range db.AllModels() {
		if gormDB.Migrator().HasTable(m) {
			migrated++
		}
	}
	if migrated >= expected {
		return checkResult{"Schema", "PASS", fmt.Sprintf("%d/%d tables migrated", migrated, expected)}
	}
	return checkResult{"Schema", "WARN", fmt.Sprintf("%d/%d tables migrated (run serve to migrate)", migrated, expected)}
}

func checkTransport(cfg *config.Config) checkResult {
	kind, err := transport.Parse(cfg.Transport)
	if err != nil {
		return checkResult{"Transport", "FAIL", err.Error()}
	}
	if err := transport.ValidateCredentials(kind, cfg); err != nil {
		return checkResult{"Transport", "FAIL", err.Error()}
	}
	return checkResult{"Transport", "PASS", fmt.Sprintf("%s credentials present", kind)}
}

func checkNotify(cfg *config.Config) checkResult {
	slack := cfg.Notify.Slack.BotToken != "" && cfg.Notify.Slack.ChannelID != ""
	discord := cfg.Notify.Discord.BotToken != "" && cfg.Notify.Discord.ChannelID != ""
	switch {
	case slack && discord:
		return checkResult{"Notifications", "PASS", "slack and discord configured"}
	case slack:
		return checkResult{"Notifications", "PASS", "slack configured"}
	case discord:
		return checkResult{"Notifications", "PASS", "discord configured"}
	default:
		return checkResult{"Notifications", "WARN", "none configured (slot failures will only be logged)"}
	}
}
