// Package config provides YAML-based configuration loading for fieldlink.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level fieldlink configuration, loaded from fieldlink.yaml.
// Token-bearing fields support ${VAR} expansion; a .env file next to the
// config is loaded first so secrets stay out of the YAML.
type Config struct {
	WorkerID string         `yaml:"worker_id"`
	API      APIConfig      `yaml:"api"`
	Realtime RealtimeConfig `yaml:"realtime"`
	DB       DBConfig       `yaml:"db"`
	Observe  ObserveConfig  `yaml:"observe"`
	Notifier NotifierConfig `yaml:"notifier"`
	Alert    AlertConfig    `yaml:"alert"`
	Digest   DigestConfig   `yaml:"digest"`
}

// APIConfig holds settings for the dispatch REST API.
type APIConfig struct {
	BaseURL    string `yaml:"base_url"`
	Token      string `yaml:"token"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// RealtimeConfig holds settings for the dispatch websocket gateway.
type RealtimeConfig struct {
	URL            string `yaml:"url"`
	HeartbeatMS    int    `yaml:"heartbeat_ms"`
	AuthRetryMS    int    `yaml:"auth_retry_ms"`
	CloseRetryMS   int    `yaml:"close_retry_ms"`
	DialTimeoutSec int    `yaml:"dial_timeout_sec"`
}

// HeartbeatInterval returns the location-beacon interval.
func (r RealtimeConfig) HeartbeatInterval() time.Duration {
	return time.Duration(r.HeartbeatMS) * time.Millisecond
}

// AuthRetryDelay returns the retry delay after a token or handshake failure.
func (r RealtimeConfig) AuthRetryDelay() time.Duration {
	return time.Duration(r.AuthRetryMS) * time.Millisecond
}

// CloseRetryDelay returns the retry delay after a mid-session transport close.
func (r RealtimeConfig) CloseRetryDelay() time.Duration {
	return time.Duration(r.CloseRetryMS) * time.Millisecond
}

// DBConfig selects the snapshot/history database. Driver is "sqlite"
// (default, local file) or "mysql".
type DBConfig struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"` // sqlite only
	Host     string `yaml:"host"` // mysql only
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// ObserveConfig holds settings for the local observe API.
type ObserveConfig struct {
	Port int `yaml:"port"`
}

// NotifierConfig selects the chat platform used for worker notifications.
// An empty platform disables notifications (the agent degrades to no-op).
type NotifierConfig struct {
	Platform string        `yaml:"platform"` // "", "discord" or "slack"
	Channel  string        `yaml:"channel"`
	Discord  DiscordConfig `yaml:"discord"`
	Slack    SlackConfig   `yaml:"slack"`
}

// DiscordConfig holds Discord bot credentials.
type DiscordConfig struct {
	BotToken string `yaml:"bot_token"`
}

// SlackConfig holds Slack bot credentials.
type SlackConfig struct {
	BotToken string `yaml:"bot_token"`
}

// AlertConfig configures the local alert-sound player. Command is spawned
// on each incoming offer and killed on stop; empty disables the player.
type AlertConfig struct {
	Command string `yaml:"command"`
}

// DigestConfig configures the daily job digest pushed through the notifier.
type DigestConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"` // 5-field cron expression
}

// Load reads a YAML config file from path and returns a validated Config.
// A .env file in the same directory, if present, is loaded into the
// environment before token expansion.
func Load(path string) (*Config, error) {
	godotenv.Load(filepath.Join(filepath.Dir(path), ".env"))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.expandSecrets()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// expandSecrets applies environment expansion to credential fields.
func (c *Config) expandSecrets() {
	c.API.Token = os.ExpandEnv(c.API.Token)
	c.Notifier.Discord.BotToken = os.ExpandEnv(c.Notifier.Discord.BotToken)
	c.Notifier.Slack.BotToken = os.ExpandEnv(c.Notifier.Slack.BotToken)
	c.DB.Password = os.ExpandEnv(c.DB.Password)
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.API.TimeoutSec == 0 {
		c.API.TimeoutSec = 12
	}
	if c.Realtime.HeartbeatMS == 0 {
		c.Realtime.HeartbeatMS = 2500
	}
	if c.Realtime.AuthRetryMS == 0 {
		c.Realtime.AuthRetryMS = 5000
	}
	if c.Realtime.CloseRetryMS == 0 {
		c.Realtime.CloseRetryMS = 3000
	}
	if c.Realtime.DialTimeoutSec == 0 {
		c.Realtime.DialTimeoutSec = 15
	}
	if c.DB.Driver == "" {
		c.DB.Driver = "sqlite"
	}
	if c.DB.Driver == "sqlite" && c.DB.Path == "" {
		c.DB.Path = "fieldlink.db"
	}
	if c.DB.Driver == "mysql" {
		if c.DB.Host == "" {
			c.DB.Host = "127.0.0.1"
		}
		if c.DB.Port == 0 {
			c.DB.Port = 3306
		}
		if c.DB.Database == "" && c.WorkerID != "" {
			c.DB.Database = "fieldlink_" + c.WorkerID
		}
	}
	if c.Observe.Port == 0 {
		c.Observe.Port = 7643
	}
	if c.Digest.Enabled && c.Digest.Cron == "" {
		c.Digest.Cron = "0 20 * * *"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.WorkerID == "" {
		errs = append(errs, "worker_id is required")
	}
	if c.API.BaseURL == "" {
		errs = append(errs, "api.base_url is required")
	}
	if c.Realtime.URL == "" {
		errs = append(errs, "realtime.url is required")
	}
	switch c.DB.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("db.driver %q is not supported (sqlite, mysql)", c.DB.Driver))
	}
	switch c.Notifier.Platform {
	case "":
	case "discord":
		if c.Notifier.Discord.BotToken == "" {
			errs = append(errs, "notifier.discord.bot_token is required for platform discord")
		}
	case "slack":
		if c.Notifier.Slack.BotToken == "" {
			errs = append(errs, "notifier.slack.bot_token is required for platform slack")
		}
	default:
		errs = append(errs, fmt.Sprintf("notifier.platform %q is not supported (discord, slack)", c.Notifier.Platform))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
