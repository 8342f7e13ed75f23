package events

import (
	"context"
	"testing"
)

func TestNewPublisherDisabledWithoutBrokers(t *testing.T) {
	if p := NewPublisher(Config{}); p != nil {
		t.Error("no brokers should yield a nil publisher")
	}
}

func TestNilPublisherIsSafe(t *testing.T) {
	var p *Publisher
	ctx := context.Background()

	// Must not panic.
	p.PublishFAQUsage(ctx, "u-1", 1, "agent-1", "")
	p.PublishOwnershipChange(ctx, "agent-1", "5511999990000", "automated", "inactivity_sweep")
	if err := p.Close(); err != nil {
		t.Errorf("Close on nil publisher: %v", err)
	}
}

func TestNewPublisherConfiguresTopics(t *testing.T) {
	p := NewPublisher(Config{
		Brokers:        []string{"localhost:9092"},
		UsageTopic:     "zapdesk.faq.usage",
		OwnershipTopic: "zapdesk.ownership",
	})
	if p == nil {
		t.Fatal("expected publisher")
	}
	defer p.Close()

	if p.usage.Topic != "zapdesk.faq.usage" {
		t.Errorf("usage topic = %q", p.usage.Topic)
	}
	if p.ownership.Topic != "zapdesk.ownership" {
		t.Errorf("ownership topic = %q", p.ownership.Topic)
	}
}
