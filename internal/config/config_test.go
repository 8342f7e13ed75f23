package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	t.Setenv("ZAPDESK_CONFIG", filepath.Join(t.TempDir(), "missing.json"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Arbiter.SweepInterval != time.Minute {
		t.Errorf("SweepInterval = %v, want 1m", cfg.Arbiter.SweepInterval)
	}
	if cfg.Arbiter.InactivityThreshold != 30*time.Minute {
		t.Errorf("InactivityThreshold = %v, want 30m", cfg.Arbiter.InactivityThreshold)
	}
	if cfg.Gateway.Port != 8793 {
		t.Errorf("Port = %d, want 8793", cfg.Gateway.Port)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{
		"gateway": {"host": "0.0.0.0", "port": 9000, "authToken": "secret"},
		"channels": {"whatsapp": {"enabled": true, "agentId": "clinic-1"}},
		"arbiter": {"inactivityThreshold": 600000000000}
	}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ZAPDESK_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Gateway.Host != "0.0.0.0" || cfg.Gateway.Port != 9000 {
		t.Errorf("gateway = %s:%d, want 0.0.0.0:9000", cfg.Gateway.Host, cfg.Gateway.Port)
	}
	if !cfg.Channels.WhatsApp.Enabled || cfg.Channels.WhatsApp.AgentID != "clinic-1" {
		t.Errorf("whatsapp config not loaded: %+v", cfg.Channels.WhatsApp)
	}
	if cfg.Arbiter.InactivityThreshold != 10*time.Minute {
		t.Errorf("InactivityThreshold = %v, want 10m", cfg.Arbiter.InactivityThreshold)
	}
	// Untouched groups keep defaults.
	if cfg.Arbiter.SweepInterval != time.Minute {
		t.Errorf("SweepInterval = %v, want default 1m", cfg.Arbiter.SweepInterval)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("ZAPDESK_CONFIG", filepath.Join(t.TempDir(), "missing.json"))
	t.Setenv("ZAPDESK_GATEWAY_PORT", "7001")
	t.Setenv("ZAPDESK_CHANNELS_WHATSAPP_AGENT_ID", "env-agent")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Gateway.Port != 7001 {
		t.Errorf("Port = %d, want 7001 from env", cfg.Gateway.Port)
	}
	if cfg.Channels.WhatsApp.AgentID != "env-agent" {
		t.Errorf("AgentID = %q, want env-agent", cfg.Channels.WhatsApp.AgentID)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	t.Setenv("ZAPDESK_CONFIG", path)

	cfg := DefaultConfig()
	cfg.Gateway.AuthToken = "tok"
	if err := Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Gateway.AuthToken != "tok" {
		t.Errorf("AuthToken = %q, want tok", loaded.Gateway.AuthToken)
	}
}
