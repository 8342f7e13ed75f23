package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	// ConfigDir is the default config directory name.
	ConfigDir = ".zapdesk"
	// ConfigFile is the default config file name.
	ConfigFile = "config.json"
)

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	if explicit := strings.TrimSpace(os.Getenv("ZAPDESK_CONFIG")); explicit != "" {
		if strings.HasPrefix(explicit, "~") {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			return filepath.Join(home, explicit[1:]), nil
		}
		return explicit, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigDir, ConfigFile), nil
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Paths: PathsConfig{
			DataDir: filepath.Join(home, ConfigDir),
		},
		Gateway: GatewayConfig{
			Host: "127.0.0.1",
			Port: 8793,
		},
		Channels: ChannelsConfig{
			WhatsApp: WhatsAppConfig{
				Enabled: false,
				AgentID: "default",
			},
		},
		Arbiter: ArbiterConfig{
			SweepInterval:       time.Minute,
			InactivityThreshold: 30 * time.Minute,
			MaxCandidates:       500,
		},
		Providers: ProvidersConfig{
			OpenAI: OpenAIConfig{
				Model: "gpt-4o-mini",
			},
		},
		Events: EventsConfig{
			UsageTopic:     "zapdesk.faq.usage",
			OwnershipTopic: "zapdesk.ownership",
		},
	}
}

// LoadEnvFiles loads process env vars from .env files (best-effort).
// Checked in order: ./.env, then ~/.zapdesk/env. Existing vars win.
func LoadEnvFiles() {
	_ = godotenv.Load()
	if home, err := os.UserHomeDir(); err == nil {
		_ = godotenv.Load(filepath.Join(home, ConfigDir, "env"))
	}
}

// Load reads the config file and applies env var overrides.
// A missing config file is not an error; defaults are used.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	LoadEnvFiles()

	path, err := ConfigPath()
	if err != nil {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	// Override with environment variables for each group.
	envconfig.Process("ZAPDESK_PATHS", &cfg.Paths)
	envconfig.Process("ZAPDESK_GATEWAY", &cfg.Gateway)
	envconfig.Process("ZAPDESK_CHANNELS", &cfg.Channels.WhatsApp)
	envconfig.Process("ZAPDESK_ARBITER", &cfg.Arbiter)
	envconfig.Process("ZAPDESK_PROVIDERS", &cfg.Providers.OpenAI)
	envconfig.Process("ZAPDESK_EVENTS", &cfg.Events)
	envconfig.Process("ZAPDESK_NOTIFY", &cfg.Notify)

	// Fallback for API key from the conventional env var.
	if cfg.Providers.OpenAI.APIKey == "" {
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			cfg.Providers.OpenAI.APIKey = key
		}
	}

	// Expand ~ in paths
	if strings.HasPrefix(cfg.Paths.DataDir, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.Paths.DataDir = filepath.Join(home, cfg.Paths.DataDir[1:])
		}
	}

	// Guardrails for zero/negative durations.
	if cfg.Arbiter.SweepInterval <= 0 {
		cfg.Arbiter.SweepInterval = time.Minute
	}
	if cfg.Arbiter.InactivityThreshold <= 0 {
		cfg.Arbiter.InactivityThreshold = 30 * time.Minute
	}
	if cfg.Arbiter.MaxCandidates <= 0 {
		cfg.Arbiter.MaxCandidates = 500
	}

	return cfg, nil
}

// Save writes the config back to disk with 0600 permissions.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// DatabasePath returns the SQLite database location under the data dir.
func DatabasePath(cfg *Config) string {
	return filepath.Join(cfg.Paths.DataDir, "zapdesk.db")
}
