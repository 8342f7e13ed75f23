package faq

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/zapdesk/zapdesk/internal/store"
)

// UsagePublisher receives FAQ usage events. Implementations must tolerate
// being called off the reply path.
type UsagePublisher interface {
	PublishFAQUsage(ctx context.Context, usageID string, faqID int64, agentID, sessionID string)
}

// Ledger records FAQ usage: a blind counter increment plus an append-only
// log row per hit. Recording is best-effort; a failed write never blocks or
// fails the reply that triggered it.
type Ledger struct {
	store  *store.Store
	events UsagePublisher
}

// NewLedger creates a Ledger. events may be nil.
func NewLedger(s *store.Store, events UsagePublisher) *Ledger {
	return &Ledger{store: s, events: events}
}

// RecordUsage accounts one FAQ hit. Each effect is attempted independently,
// so a failed log append does not lose the counter bump and vice versa.
func (l *Ledger) RecordUsage(ctx context.Context, faqID int64, agentID, sessionID, source string) {
	usageID := uuid.New().String()

	if _, err := l.store.IncrementFAQUsage(faqID); err != nil {
		slog.Warn("FAQ usage increment failed", "faq_id", faqID, "error", err)
	}
	if err := l.store.AddUsageLog(&store.UsageLogEntry{
		UsageID:   usageID,
		FAQID:     faqID,
		AgentID:   agentID,
		SessionID: sessionID,
		Source:    source,
	}); err != nil {
		slog.Warn("FAQ usage log append failed", "faq_id", faqID, "usage_id", usageID, "error", err)
	}

	if l.events != nil {
		l.events.PublishFAQUsage(ctx, usageID, faqID, agentID, sessionID)
	}
}

// TopFAQs returns the n most used entries for an agent.
func (l *Ledger) TopFAQs(agentID string, n int) ([]store.FAQUsageStat, error) {
	return l.store.TopFAQs(agentID, n)
}

// UsageByDay returns per-day usage counts for the trailing window.
func (l *Ledger) UsageByDay(agentID string, days int) ([]store.UsageBucket, error) {
	return l.store.UsageBuckets(agentID, days)
}
