// Package config provides YAML-based configuration loading for Switchboard.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Switchboard configuration, loaded from
// switchboard.yaml and overridable via environment variables.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Pool      PoolConfig      `yaml:"pool"`
	Bot       BotConfig       `yaml:"bot"`
	Store     StoreConfig     `yaml:"store"`
	Transport string          `yaml:"transport"`
	Daily     DailyConfig     `yaml:"daily"`
	Twilio    TwilioConfig    `yaml:"twilio"`
	Telnyx    TelnyxConfig    `yaml:"telnyx"`
	Plivo     PlivoConfig     `yaml:"plivo"`
	Notify    NotifyConfig    `yaml:"notify"`
	Retention RetentionConfig `yaml:"retention"`
}

// ServerConfig holds front-door listener settings.
type ServerConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	KeepaliveSec int    `yaml:"keepalive"`
}

// PoolConfig holds worker-pool sizing and routing policy.
type PoolConfig struct {
	Workers            int    `yaml:"workers"`
	QueuePolicy        string `yaml:"queue_policy"` // "reject" or "queue"
	QueueDepth         int    `yaml:"queue_depth"`
	QueueTimeoutSec    int    `yaml:"queue_timeout"`
	SessionTimeoutSec  int    `yaml:"session_timeout"`
	TeardownTimeoutSec int    `yaml:"teardown_timeout"`
	MaxCrashes         int    `yaml:"max_crashes"`
	CrashWindowSec     int    `yaml:"crash_window"`
}

// BotConfig describes the worker process launched per session.
type BotConfig struct {
	Binary  string   `yaml:"binary"`
	WorkDir string   `yaml:"workdir"`
	Args    []string `yaml:"args"`
}

// StoreConfig selects and configures the session store backend.
type StoreConfig struct {
	Driver   string `yaml:"driver"` // "sqlite" or "mysql"
	Path     string `yaml:"path"`   // sqlite file path
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// DailyConfig holds Daily REST API credentials and room defaults.
type DailyConfig struct {
	APIKey          string `yaml:"api_key"`
	APIURL          string `yaml:"api_url"`
	SampleRoomURL   string `yaml:"sample_room_url"`
	EnableRecording string `yaml:"enable_recording"`
}

// TwilioConfig holds Twilio webhook credentials.
type TwilioConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
}

// TelnyxConfig holds Telnyx webhook credentials.
type TelnyxConfig struct {
	APIKey string `yaml:"api_key"`
}

// PlivoConfig holds Plivo webhook credentials.
type PlivoConfig struct {
	AuthID    string `yaml:"auth_id"`
	AuthToken string `yaml:"auth_token"`
}

// NotifyConfig holds operator notification settings.
type NotifyConfig struct {
	Slack   SlackNotifyConfig   `yaml:"slack"`
	Discord DiscordNotifyConfig `yaml:"discord"`
}

// SlackNotifyConfig configures the Slack notifier.
type SlackNotifyConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// DiscordNotifyConfig configures the Discord notifier.
type DiscordNotifyConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// RetentionConfig controls the janitor sweep.
type RetentionConfig struct {
	Schedule   string `yaml:"schedule"` // 5-field cron expression
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Load reads a YAML config file from path, applies environment overrides,
// and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config. Environment
// variables override file values so container platforms can inject
// PORT, WORKERS, and credentials without touching the file.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a config built from defaults and environment overrides
// only, for running without a config file.
func Default() (*Config, error) {
	return Parse([]byte("{}"))
}

// applyEnv overlays recognized environment variables onto the config.
// Credentials are only ever read here; they are never logged or echoed.
func (c *Config) applyEnv() {
	if v := os.Getenv("HOST"); v != "" {
		c.Server.Host = v
	}
	if n, ok := envInt("PORT"); ok {
		c.Server.Port = n
	}
	if n, ok := envInt("WORKERS"); ok {
		c.Pool.Workers = n
	}
	if n, ok := envInt("SESSION_TIMEOUT"); ok {
		c.Pool.SessionTimeoutSec = n
	}
	if n, ok := envInt("KEEPALIVE"); ok {
		c.Server.KeepaliveSec = n
	}
	if v := os.Getenv("TRANSPORT"); v != "" {
		c.Transport = v
	}
	if v := os.Getenv("DAILY_API_KEY"); v != "" {
		c.Daily.APIKey = v
	}
	if v := os.Getenv("TWILIO_ACCOUNT_SID"); v != "" {
		c.Twilio.AccountSID = v
	}
	if v := os.Getenv("TWILIO_AUTH_TOKEN"); v != "" {
		c.Twilio.AuthToken = v
	}
	if v := os.Getenv("TELNYX_API_KEY"); v != "" {
		c.Telnyx.APIKey = v
	}
	if v := os.Getenv("PLIVO_AUTH_ID"); v != "" {
		c.Plivo.AuthID = v
	}
	if v := os.Getenv("PLIVO_AUTH_TOKEN"); v != "" {
		c.Plivo.AuthToken = v
	}
}

func envInt(name string) (int, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.KeepaliveSec == 0 {
		c.Server.KeepaliveSec = 30
	}
	if c.Pool.Workers == 0 {
		c.Pool.Workers = 2
	}
	if c.Pool.QueuePolicy == "" {
		c.Pool.QueuePolicy = "reject"
	}
	if c.Pool.QueueDepth == 0 {
		c.Pool.QueueDepth = 8
	}
	if c.Pool.QueueTimeoutSec == 0 {
		c.Pool.QueueTimeoutSec = 10
	}
	if c.Pool.SessionTimeoutSec == 0 {
		c.Pool.SessionTimeoutSec = 300
	}
	if c.Pool.TeardownTimeoutSec == 0 {
		c.Pool.TeardownTimeoutSec = 10
	}
	if c.Pool.MaxCrashes == 0 {
		c.Pool.MaxCrashes = 3
	}
	if c.Pool.CrashWindowSec == 0 {
		c.Pool.CrashWindowSec = 300
	}
	if c.Bot.Binary == "" {
		c.Bot.Binary = "bot"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "sqlite"
	}
	if c.Store.Driver == "sqlite" && c.Store.Path == "" {
		c.Store.Path = "switchboard.db"
	}
	if c.Store.Driver == "mysql" {
		if c.Store.Host == "" {
			c.Store.Host = "127.0.0.1"
		}
		if c.Store.Port == 0 {
			c.Store.Port = 3306
		}
		if c.Store.User == "" {
			c.Store.User = "root"
		}
	}
	if c.Transport == "" {
		c.Transport = "daily"
	}
	if c.Daily.APIURL == "" {
		c.Daily.APIURL = "https://api.daily.co/v1"
	}
	if c.Retention.Schedule == "" {
		c.Retention.Schedule = "0 3 * * *"
	}
	if c.Retention.MaxAgeDays == 0 {
		c.Retention.MaxAgeDays = 14
	}
}

// validTransports lists the transports this deployment can select.
var validTransports = map[string]bool{
	"webrtc": true,
	"daily":  true,
	"twilio": true,
	"telnyx": true,
	"plivo":  true,
}

// validate checks that all required fields are present and consistent.
// Credential presence is deliberately NOT validated here: credentials are
// transport-specific and checked at request time, so a deployment can
// start with only the credentials for the transports it actually serves.
func (c *Config) validate() error {
	var errs []string
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if c.Pool.Workers < 1 {
		errs = append(errs, "pool.workers must be at least 1")
	}
	if c.Pool.QueuePolicy != "reject" && c.Pool.QueuePolicy != "queue" {
		errs = append(errs, fmt.Sprintf("pool.queue_policy %q must be reject or queue", c.Pool.QueuePolicy))
	}
	if !validTransports[c.Transport] {
		errs = append(errs, fmt.Sprintf("transport %q must be one of webrtc, daily, twilio, telnyx, plivo", c.Transport))
	}
	if c.Store.Driver != "sqlite" && c.Store.Driver != "mysql" {
		errs = append(errs, fmt.Sprintf("store.driver %q must be sqlite or mysql", c.Store.Driver))
	}
	if c.Store.Driver == "mysql" && c.Store.Database == "" {
		errs = append(errs, "store.database is required for mysql")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Duration accessors. The YAML keeps plain integer seconds for readability.

// SessionTimeout is the maximum duration of one session.
func (c *PoolConfig) SessionTimeout() time.Duration {
	return time.Duration(c.SessionTimeoutSec) * time.Second
}

// TeardownTimeout bounds how long a cancelled worker may take to exit.
func (c *PoolConfig) TeardownTimeout() time.Duration {
	return time.Duration(c.TeardownTimeoutSec) * time.Second
}

// QueueTimeout bounds how long a queued request waits for a slot.
func (c *PoolConfig) QueueTimeout() time.Duration {
	return time.Duration(c.QueueTimeoutSec) * time.Second
}

// CrashWindow is the sliding window for the restart threshold.
func (c *PoolConfig) CrashWindow() time.Duration {
	return time.Duration(c.CrashWindowSec) * time.Second
}

// Keepalive is the HTTP keep-alive idle timeout.
func (c *ServerConfig) Keepalive() time.Duration {
	return time.Duration(c.KeepaliveSec) * time.Second
}

// MaxAge converts the retention setting to a duration.
func (c *RetentionConfig) MaxAge() time.Duration {
	return time.Duration(c.MaxAgeDays) * 24 * time.Hour
}
