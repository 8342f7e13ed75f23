// Package config provides configuration types and loading for zapdesk.
package config

import "time"

// Config is the root configuration struct.
// Top-level groups: Paths, Gateway, Channels, Arbiter, Providers, Events, Notify.
type Config struct {
	Paths     PathsConfig     `json:"paths"`
	Gateway   GatewayConfig   `json:"gateway"`
	Channels  ChannelsConfig  `json:"channels"`
	Arbiter   ArbiterConfig   `json:"arbiter"`
	Providers ProvidersConfig `json:"providers"`
	Events    EventsConfig    `json:"events"`
	Notify    NotifyConfig    `json:"notify"`
}

// ---------------------------------------------------------------------------
// Paths – filesystem locations
// ---------------------------------------------------------------------------

// PathsConfig groups all filesystem path settings.
type PathsConfig struct {
	DataDir string `json:"dataDir" envconfig:"DATA_DIR"`
}

// ---------------------------------------------------------------------------
// Gateway – HTTP server networking
// ---------------------------------------------------------------------------

// GatewayConfig contains gateway server settings.
type GatewayConfig struct {
	Host      string `json:"host" envconfig:"HOST"`
	Port      int    `json:"port" envconfig:"PORT"`
	AuthToken string `json:"authToken" envconfig:"AUTH_TOKEN"`
}

// ---------------------------------------------------------------------------
// Channels – messaging integrations
// ---------------------------------------------------------------------------

// ChannelsConfig contains all channel configurations.
type ChannelsConfig struct {
	WhatsApp WhatsAppConfig `json:"whatsapp"`
}

// WhatsAppConfig configures the native WhatsApp channel. The linked device
// serves exactly one agent, identified by AgentID.
type WhatsAppConfig struct {
	Enabled bool   `json:"enabled" envconfig:"WHATSAPP_ENABLED"`
	AgentID string `json:"agentId" envconfig:"WHATSAPP_AGENT_ID"`
}

// ---------------------------------------------------------------------------
// Arbiter – ownership arbitration and FAQ matching
// ---------------------------------------------------------------------------

// ArbiterConfig contains ownership arbitration and FAQ matching settings.
type ArbiterConfig struct {
	SweepInterval       time.Duration `json:"sweepInterval" envconfig:"SWEEP_INTERVAL"`
	InactivityThreshold time.Duration `json:"inactivityThreshold" envconfig:"INACTIVITY_THRESHOLD"`
	MaxCandidates       int           `json:"maxCandidates" envconfig:"MAX_CANDIDATES"`
}

// ---------------------------------------------------------------------------
// Providers – LLM API keys & endpoints
// ---------------------------------------------------------------------------

// ProvidersConfig contains LLM provider configurations.
type ProvidersConfig struct {
	OpenAI OpenAIConfig `json:"openai"`
}

// OpenAIConfig contains settings for the generative fallback provider.
type OpenAIConfig struct {
	APIKey       string `json:"apiKey" envconfig:"OPENAI_API_KEY"`
	APIBase      string `json:"apiBase,omitempty" envconfig:"OPENAI_API_BASE"`
	Model        string `json:"model" envconfig:"OPENAI_MODEL"`
	SystemPrompt string `json:"systemPrompt,omitempty" envconfig:"OPENAI_SYSTEM_PROMPT"`
}

// ---------------------------------------------------------------------------
// Events – Kafka analytics stream
// ---------------------------------------------------------------------------

// EventsConfig contains the Kafka event stream settings. Empty brokers
// disables publishing.
type EventsConfig struct {
	KafkaBrokers   string `json:"kafkaBrokers" envconfig:"KAFKA_BROKERS"`
	UsageTopic     string `json:"usageTopic" envconfig:"KAFKA_USAGE_TOPIC"`
	OwnershipTopic string `json:"ownershipTopic" envconfig:"KAFKA_OWNERSHIP_TOPIC"`
}

// ---------------------------------------------------------------------------
// Notify – operator alerting
// ---------------------------------------------------------------------------

// NotifyConfig contains Slack alerting settings. Empty token disables alerts.
type NotifyConfig struct {
	SlackToken   string `json:"slackToken" envconfig:"SLACK_TOKEN"`
	SlackChannel string `json:"slackChannel" envconfig:"SLACK_CHANNEL"`
}
