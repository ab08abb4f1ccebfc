package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const fullYAML = `
worker_id: m-117

api:
  base_url: https://dispatch.example.com/api
  token: ${FL_API_TOKEN}
  timeout_sec: 10

realtime:
  url: wss://dispatch.example.com/rt
  heartbeat_ms: 2000
  auth_retry_ms: 4000
  close_retry_ms: 2500

db:
  driver: mysql
  host: 10.0.0.5
  port: 3307
  user: fieldlink
  database: fieldlink_m117

observe:
  port: 9090

notifier:
  platform: slack
  channel: C0123456
  slack:
    bot_token: xoxb-test

alert:
  command: "paplay /usr/share/sounds/offer.wav"

digest:
  enabled: true
  cron: "30 19 * * *"
`

const minimalYAML = `
worker_id: m-9
api:
  base_url: https://dispatch.example.com/api
realtime:
  url: wss://dispatch.example.com/rt
`

func TestParse_FullConfig(t *testing.T) {
	os.Setenv("FL_API_TOKEN", "tok-abc")
	defer os.Unsetenv("FL_API_TOKEN")

	cfg, err := Parse([]byte(fullYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.WorkerID != "m-117" {
		t.Errorf("WorkerID = %q, want %q", cfg.WorkerID, "m-117")
	}
	if cfg.API.Token != "tok-abc" {
		t.Errorf("API.Token = %q, want expanded %q", cfg.API.Token, "tok-abc")
	}
	if cfg.API.TimeoutSec != 10 {
		t.Errorf("API.TimeoutSec = %d, want 10", cfg.API.TimeoutSec)
	}
	if cfg.Realtime.HeartbeatMS != 2000 {
		t.Errorf("Realtime.HeartbeatMS = %d, want 2000", cfg.Realtime.HeartbeatMS)
	}
	if cfg.Realtime.AuthRetryMS != 4000 {
		t.Errorf("Realtime.AuthRetryMS = %d, want 4000", cfg.Realtime.AuthRetryMS)
	}
	if cfg.DB.Driver != "mysql" {
		t.Errorf("DB.Driver = %q, want mysql", cfg.DB.Driver)
	}
	if cfg.DB.Host != "10.0.0.5" {
		t.Errorf("DB.Host = %q, want 10.0.0.5", cfg.DB.Host)
	}
	if cfg.Observe.Port != 9090 {
		t.Errorf("Observe.Port = %d, want 9090", cfg.Observe.Port)
	}
	if cfg.Notifier.Platform != "slack" {
		t.Errorf("Notifier.Platform = %q, want slack", cfg.Notifier.Platform)
	}
	if cfg.Digest.Cron != "30 19 * * *" {
		t.Errorf("Digest.Cron = %q, want %q", cfg.Digest.Cron, "30 19 * * *")
	}
}

func TestParse_MinimalDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.API.TimeoutSec != 12 {
		t.Errorf("API.TimeoutSec = %d, want default 12", cfg.API.TimeoutSec)
	}
	if cfg.Realtime.HeartbeatMS != 2500 {
		t.Errorf("Realtime.HeartbeatMS = %d, want default 2500", cfg.Realtime.HeartbeatMS)
	}
	if cfg.Realtime.AuthRetryMS != 5000 {
		t.Errorf("Realtime.AuthRetryMS = %d, want default 5000", cfg.Realtime.AuthRetryMS)
	}
	if cfg.Realtime.CloseRetryMS != 3000 {
		t.Errorf("Realtime.CloseRetryMS = %d, want default 3000", cfg.Realtime.CloseRetryMS)
	}
	if cfg.DB.Driver != "sqlite" {
		t.Errorf("DB.Driver = %q, want default sqlite", cfg.DB.Driver)
	}
	if cfg.DB.Path != "fieldlink.db" {
		t.Errorf("DB.Path = %q, want default fieldlink.db", cfg.DB.Path)
	}
	if cfg.Observe.Port != 7643 {
		t.Errorf("Observe.Port = %d, want default 7643", cfg.Observe.Port)
	}
	if cfg.Notifier.Platform != "" {
		t.Errorf("Notifier.Platform = %q, want empty", cfg.Notifier.Platform)
	}
}

func TestParse_MissingRequired(t *testing.T) {
	_, err := Parse([]byte("observe:\n  port: 1234\n"))
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	for _, want := range []string{"worker_id is required", "api.base_url is required", "realtime.url is required"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestParse_BadNotifierPlatform(t *testing.T) {
	yaml := minimalYAML + "\nnotifier:\n  platform: carrier-pigeon\n"
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	if !strings.Contains(err.Error(), "notifier.platform") {
		t.Errorf("error %q does not mention notifier.platform", err)
	}
}

func TestParse_NotifierTokenRequired(t *testing.T) {
	yaml := minimalYAML + "\nnotifier:\n  platform: discord\n"
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	if !strings.Contains(err.Error(), "notifier.discord.bot_token") {
		t.Errorf("error %q does not mention notifier.discord.bot_token", err)
	}
}

func TestLoad_FileAndDotenv(t *testing.T) {
	dir := t.TempDir()

	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("FL_FILE_TOKEN=tok-from-env\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	cfgPath := filepath.Join(dir, "fieldlink.yaml")
	yaml := strings.Replace(minimalYAML, "base_url: https://dispatch.example.com/api",
		"base_url: https://dispatch.example.com/api\n  token: ${FL_FILE_TOKEN}", 1)
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.API.Token != "tok-from-env" {
		t.Errorf("API.Token = %q, want tok-from-env (loaded via .env)", cfg.API.Token)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}
