package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zulandar/switchboard/internal/config"
)

func TestDoctorCmd_Help(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"doctor", "--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("doctor --help failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "diagnostic checks") {
		t.Errorf("expected help to mention 'diagnostic checks', got: %s", out)
	}
	if !strings.Contains(out, "--config") {
		t.Errorf("expected --config flag in help, got: %s", out)
	}
}

func TestNewDoctorCmd(t *testing.T) {
	cmd := newDoctorCmd()
	if cmd.Use != "doctor" {
		t.Errorf("Use = %q, want %q", cmd.Use, "doctor")
	}

	cfgFlag := cmd.Flags().Lookup("config")
	if cfgFlag == nil {
		t.Fatal("expected --config flag")
	}
	if cfgFlag.DefValue != "switchboard.yaml" {
		t.Errorf("--config default = %q, want %q", cfgFlag.DefValue, "switchboard.yaml")
	}
}

func TestCheckConfig_Valid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "switchboard.yaml")
	if err := os.WriteFile(path, []byte("transport: webrtc\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, result := checkConfig(path)
	if result.status != "PASS" {
		t.Fatalf("status = %s: %s", result.status, result.detail)
	}
	if cfg == nil || cfg.Transport != "webrtc" {
		t.Errorf("cfg not loaded: %+v", cfg)
	}
}

func TestCheckConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "switchboard.yaml")
	if err := os.WriteFile(path, []byte("transport: morse\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, result := checkConfig(path)
	if result.status != "FAIL" {
		t.Errorf("status = %s, want FAIL for invalid transport", result.status)
	}
	if cfg != nil {
		t.Errorf("cfg = %+v, want nil on failure", cfg)
	}
}

func TestCheckBotBinary_Missing(t *testing.T) {
	cfg := &config.Config{Bot: config.BotConfig{Binary: "nonexistent-bot-xyz-12345"}}
	result := checkBotBinary(cfg)
	if result.status != "FAIL" {
		t.Errorf("status = %s, want FAIL for missing binary", result.status)
	}
	if !strings.Contains(result.detail, "not found") {
		t.Errorf("detail = %q, want 'not found'", result.detail)
	}
}

func TestCheckBotBinary_Found(t *testing.T) {
	// sh is on PATH everywhere the tests run.
	cfg := &config.Config{Bot: config.BotConfig{Binary: "sh"}}
	result := checkBotBinary(cfg)
	if result.status != "PASS" {
		t.Errorf("status = %s: %s", result.status, result.detail)
	}
}

func TestCheckTransport(t *testing.T) {
	cfg, err := config.Parse([]byte("transport: telnyx\n"))
	if err != nil {
		t.Fatal(err)
	}

	result := checkTransport(cfg)
	if result.status != "FAIL" {
		t.Errorf("status = %s, want FAIL without TELNYX_API_KEY", result.status)
	}

	cfg.Telnyx.APIKey = "key"
	result = checkTransport(cfg)
	if result.status != "PASS" {
		t.Errorf("status = %s: %s", result.status, result.detail)
	}
}

func TestCheckNotify(t *testing.T) {
	cfg := &config.Config{}
	if r := checkNotify(cfg); r.status != "WARN" {
		t.Errorf("status = %s, want WARN with nothing configured", r.status)
	}

	cfg.Notify.Slack = config.SlackNotifyConfig{BotToken: "xoxb-1", ChannelID: "C1"}
	if r := checkNotify(cfg); r.status != "PASS" || !strings.Contains(r.detail, "slack") {
		t.Errorf("result = %+v, want slack PASS", r)
	}

	cfg.Notify.Discord = config.DiscordNotifyConfig{BotToken: "d1", ChannelID: "9"}
	if r := checkNotify(cfg); !strings.Contains(r.detail, "slack and discord") {
		t.Errorf("result = %+v, want both platforms", r)
	}
}

func TestPrintCheckResult(t *testing.T) {
	var buf bytes.Buffer
	printCheckResult(&buf, checkResult{"Config file", "PASS", "switchboard.yaml"})
	want := "[PASS] Config file: switchboard.yaml\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}
