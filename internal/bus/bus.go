// Package bus provides the async message bus between channels and the arbiter.
package bus

import (
	"context"
	"sync"
	"time"
)

// Reply sources recorded on outbound messages.
const (
	SourceFAQ        = "faq"
	SourceGenerative = "generative"
	SourceManual     = "manual"
)

// InboundMessage represents a message event arriving from a channel.
// FromMe marks an operator-initiated send observed on the linked device,
// which the arbiter treats as a human takeover signal.
type InboundMessage struct {
	Channel     string    `json:"channel"`
	AgentID     string    `json:"agent_id"`
	PhoneNumber string    `json:"phone_number"`
	SessionID   string    `json:"session_id,omitempty"`
	EventID     string    `json:"event_id,omitempty"`
	Content     string    `json:"content"`
	FromMe      bool      `json:"from_me"`
	Timestamp   time.Time `json:"timestamp"`
}

// OutboundMessage represents a reply from the arbiter to a channel.
type OutboundMessage struct {
	Channel     string `json:"channel"`
	AgentID     string `json:"agent_id"`
	PhoneNumber string `json:"phone_number"`
	Content     string `json:"content"`
	Source      string `json:"source"`
	FAQID       int64  `json:"faq_id,omitempty"`
}

// MessageBus decouples channels from the arbiter core.
type MessageBus struct {
	inbound  chan *InboundMessage
	outbound chan *OutboundMessage
	subs     map[string][]func(*OutboundMessage)
	mu       sync.RWMutex
}

// NewMessageBus creates a new message bus.
func NewMessageBus() *MessageBus {
	return &MessageBus{
		inbound:  make(chan *InboundMessage, 100),
		outbound: make(chan *OutboundMessage, 100),
		subs:     make(map[string][]func(*OutboundMessage)),
	}
}

// PublishInbound sends a message event from a channel to the arbiter.
func (b *MessageBus) PublishInbound(msg *InboundMessage) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	b.inbound <- msg
}

// ConsumeInbound blocks until a message is available or context is cancelled.
func (b *MessageBus) ConsumeInbound(ctx context.Context) (*InboundMessage, error) {
	select {
	case msg := <-b.inbound:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// PublishOutbound sends a reply from the arbiter to channels.
func (b *MessageBus) PublishOutbound(msg *OutboundMessage) {
	b.outbound <- msg
}

// Subscribe registers a callback for outbound messages to a specific channel.
func (b *MessageBus) Subscribe(channel string, callback func(*OutboundMessage)) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subs[channel] = append(b.subs[channel], callback)
}

// DispatchOutbound runs the outbound message dispatcher.
// This should be run as a goroutine.
func (b *MessageBus) DispatchOutbound(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-b.outbound:
			b.mu.RLock()
			callbacks := b.subs[msg.Channel]
			b.mu.RUnlock()

			for _, cb := range callbacks {
				cb(msg)
			}
		}
	}
}

// InboundSize returns the number of pending inbound messages.
func (b *MessageBus) InboundSize() int {
	return len(b.inbound)
}

// OutboundSize returns the number of pending outbound messages.
func (b *MessageBus) OutboundSize() int {
	return len(b.outbound)
}
