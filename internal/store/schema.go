package store

import (
	"time"
)

// Ownership states for a conversation. Absence of a row means automated.
const (
	OwnershipAutomated = "automated"
	OwnershipHuman     = "human"
)

// Message log directions and decisions.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"

	DecisionFAQReply        = "faq_reply"
	DecisionGenerativeReply = "generative_reply"
	DecisionSuppressed      = "suppressed_human_held"
	DecisionHumanSend       = "human_send"
	DecisionPaused          = "suppressed_paused"
	DecisionFailed          = "reply_failed"
)

// Conversation is the ownership record for one (agent, phone) pair.
// TakenOverAt is non-nil iff Ownership is human.
type Conversation struct {
	AgentID     string     `json:"agent_id"`
	PhoneNumber string     `json:"phone_number"`
	Ownership   string     `json:"ownership"`
	TakenOverAt *time.Time `json:"taken_over_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// FAQEntry is a curated canned answer belonging to one agent.
type FAQEntry struct {
	ID         int64     `json:"id"`
	AgentID    string    `json:"agent_id"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	Keywords   []string  `json:"keywords"`
	UsageCount int64     `json:"usage_count"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// UsageLogEntry is an immutable append-only record of one FAQ hit.
type UsageLogEntry struct {
	ID        int64     `json:"id"`
	UsageID   string    `json:"usage_id"`
	FAQID     int64     `json:"faq_id"`
	AgentID   string    `json:"agent_id"`
	SessionID string    `json:"session_id,omitempty"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// MessageLogEntry records one inbound or outbound message event for
// operator visibility, including suppressed ones.
type MessageLogEntry struct {
	ID          int64     `json:"id"`
	EventID     string    `json:"event_id"`
	AgentID     string    `json:"agent_id"`
	PhoneNumber string    `json:"phone_number"`
	Direction   string    `json:"direction"`
	Content     string    `json:"content"`
	Decision    string    `json:"decision"`
	CreatedAt   time.Time `json:"created_at"`
}

// FAQUsageStat is a row of the top-N usage projection.
type FAQUsageStat struct {
	FAQID      int64  `json:"faq_id"`
	Question   string `json:"question"`
	UsageCount int64  `json:"usage_count"`
}

// UsageBucket is one day of aggregated FAQ usage.
type UsageBucket struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}

// Schema is the base database schema. Later columns are added via
// best-effort migrations in NewStore.
const Schema = `
CREATE TABLE IF NOT EXISTS conversations (
	agent_id TEXT NOT NULL,
	phone_number TEXT NOT NULL,
	ownership TEXT NOT NULL DEFAULT 'automated',
	taken_over_at DATETIME,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (agent_id, phone_number)
);

CREATE INDEX IF NOT EXISTS idx_conversations_ownership ON conversations(ownership);

CREATE TABLE IF NOT EXISTS faq_entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	agent_id TEXT NOT NULL,
	question TEXT NOT NULL,
	answer TEXT NOT NULL,
	keywords TEXT NOT NULL DEFAULT '[]',
	usage_count INTEGER NOT NULL DEFAULT 0,
	active BOOLEAN NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_faq_agent_active ON faq_entries(agent_id, active);

CREATE TABLE IF NOT EXISTS faq_usage_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	usage_id TEXT UNIQUE NOT NULL,
	faq_id INTEGER NOT NULL,
	agent_id TEXT NOT NULL,
	session_id TEXT DEFAULT '',
	source TEXT NOT NULL DEFAULT 'whatsapp',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_usage_log_faq ON faq_usage_log(faq_id);
CREATE INDEX IF NOT EXISTS idx_usage_log_agent ON faq_usage_log(agent_id, created_at);

CREATE TABLE IF NOT EXISTS message_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_id TEXT NOT NULL,
	agent_id TEXT NOT NULL,
	phone_number TEXT NOT NULL,
	direction TEXT NOT NULL,
	content TEXT NOT NULL DEFAULT '',
	decision TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_message_log_conversation ON message_log(agent_id, phone_number, created_at);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
