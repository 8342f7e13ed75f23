// Package events streams FAQ usage and ownership transitions to Kafka for
// downstream analytics. Publishing is fire-and-forget.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// Config holds Kafka settings. Empty Brokers disables publishing.
type Config struct {
	Brokers        []string
	UsageTopic     string
	OwnershipTopic string
}

// UsageEvent is the wire payload for one FAQ hit.
type UsageEvent struct {
	UsageID   string    `json:"usage_id"`
	FAQID     int64     `json:"faq_id"`
	AgentID   string    `json:"agent_id"`
	SessionID string    `json:"session_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// OwnershipEvent is the wire payload for one ownership transition.
type OwnershipEvent struct {
	AgentID     string    `json:"agent_id"`
	PhoneNumber string    `json:"phone_number"`
	Ownership   string    `json:"ownership"`
	Reason      string    `json:"reason"`
	Timestamp   time.Time `json:"timestamp"`
}

// Publisher writes platform events to Kafka. A nil Publisher is valid and
// drops everything, so callers never need to branch on configuration.
type Publisher struct {
	usage     *kafka.Writer
	ownership *kafka.Writer
}

// NewPublisher creates a Publisher, or nil when no brokers are configured.
func NewPublisher(cfg Config) *Publisher {
	if len(cfg.Brokers) == 0 {
		return nil
	}
	newWriter := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			Async:        false,
		}
	}
	return &Publisher{
		usage:     newWriter(cfg.UsageTopic),
		ownership: newWriter(cfg.OwnershipTopic),
	}
}

// Close flushes and closes the underlying writers.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	err := p.usage.Close()
	if cerr := p.ownership.Close(); err == nil {
		err = cerr
	}
	return err
}

// PublishFAQUsage emits one usage event. Failures are logged and dropped so
// the reply path is never blocked on the broker.
func (p *Publisher) PublishFAQUsage(ctx context.Context, usageID string, faqID int64, agentID, sessionID string) {
	if p == nil {
		return
	}
	p.publish(ctx, p.usage, agentID, UsageEvent{
		UsageID:   usageID,
		FAQID:     faqID,
		AgentID:   agentID,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
	})
}

// PublishOwnershipChange emits one ownership transition event.
func (p *Publisher) PublishOwnershipChange(ctx context.Context, agentID, phoneNumber, ownership, reason string) {
	if p == nil {
		return
	}
	p.publish(ctx, p.ownership, agentID+":"+phoneNumber, OwnershipEvent{
		AgentID:     agentID,
		PhoneNumber: phoneNumber,
		Ownership:   ownership,
		Reason:      reason,
		Timestamp:   time.Now().UTC(),
	})
}

func (p *Publisher) publish(ctx context.Context, w *kafka.Writer, key string, payload any) {
	value, err := json.Marshal(payload)
	if err != nil {
		slog.Warn("Event marshal failed", "topic", w.Topic, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  time.Now(),
	}); err != nil {
		slog.Warn("Event publish failed", "topic", w.Topic, "error", err)
	}
}
