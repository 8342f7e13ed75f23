// Package arbiter decides, for every inbound message, whether the automated
// agent replies (FAQ short-circuit or generative fallback) or stays silent
// because a human operator owns the conversation.
package arbiter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/zapdesk/zapdesk/internal/bus"
	"github.com/zapdesk/zapdesk/internal/faq"
	"github.com/zapdesk/zapdesk/internal/ownership"
	"github.com/zapdesk/zapdesk/internal/provider"
	"github.com/zapdesk/zapdesk/internal/store"
)

// ErrSendFailed wraps delivery failures of operator-authored messages. The
// takeover recorded before the send attempt stands either way.
var ErrSendFailed = errors.New("send failed")

// Notifier receives operator alerts. All methods must be nil-receiver safe.
type Notifier interface {
	HumanTakeover(ctx context.Context, agentID, phoneNumber string)
	ConversationResumed(ctx context.Context, agentID, phoneNumber, reason string)
	ReplyFailed(ctx context.Context, agentID, phoneNumber string, err error)
}

// Sender delivers one outbound message synchronously, returning the delivery
// error to the caller. Channels that can report delivery failures register
// one per channel name.
type Sender interface {
	Send(ctx context.Context, msg *bus.OutboundMessage) error
}

// Arbiter consumes the inbound bus and routes each message through the
// ownership check, the FAQ matcher, and the generative fallback.
type Arbiter struct {
	bus       *bus.MessageBus
	store     *store.Store
	registry  *ownership.Registry
	matcher   *faq.Matcher
	ledger    *faq.Ledger
	responder provider.Responder
	events    ownership.ChangePublisher
	notifier  Notifier
	senders   map[string]Sender
}

// New creates an Arbiter. responder, events, and notifier may be nil.
func New(b *bus.MessageBus, s *store.Store, reg *ownership.Registry, m *faq.Matcher, l *faq.Ledger, r provider.Responder, ev ownership.ChangePublisher, n Notifier) *Arbiter {
	return &Arbiter{
		bus:       b,
		store:     s,
		registry:  reg,
		matcher:   m,
		ledger:    l,
		responder: r,
		events:    ev,
		notifier:  n,
		senders:   make(map[string]Sender),
	}
}

// RegisterSender wires a channel for synchronous manual delivery. Must be
// called before Run.
func (a *Arbiter) RegisterSender(channel string, s Sender) {
	a.senders[channel] = s
}

// Run consumes inbound messages until the context is cancelled. Each message
// is handled in its own goroutine; per-conversation safety comes from the
// storage layer's conditional writes, not from serialization here.
func (a *Arbiter) Run(ctx context.Context) error {
	slog.Info("Arbiter started")
	for {
		msg, err := a.bus.ConsumeInbound(ctx)
		if err != nil {
			slog.Info("Arbiter stopped")
			return err
		}
		go a.HandleInbound(ctx, msg)
	}
}

// HandleInbound routes one message event. Operator messages observed on the
// linked device (FromMe) are takeover signals; customer messages flow
// through arbitration.
func (a *Arbiter) HandleInbound(ctx context.Context, msg *bus.InboundMessage) {
	if msg.FromMe {
		a.handleOperatorSend(ctx, msg)
		return
	}
	a.handleCustomerMessage(ctx, msg)
}

// handleOperatorSend records a human takeover for a message the operator
// sent directly from the linked device. The message itself is already
// delivered; only ownership changes.
func (a *Arbiter) handleOperatorSend(ctx context.Context, msg *bus.InboundMessage) {
	at := msg.Timestamp
	if at.IsZero() {
		at = time.Now()
	}
	wasAutomated, err := a.registry.IsAutomatedControl(msg.AgentID, msg.PhoneNumber)
	if err != nil {
		wasAutomated = false
	}
	if err := a.registry.MarkHumanTakeover(msg.AgentID, msg.PhoneNumber, at); err != nil {
		slog.Error("Takeover persist failed", "agent", msg.AgentID, "phone", msg.PhoneNumber, "error", err)
		return
	}
	a.logMessage(msg.EventID, msg.AgentID, msg.PhoneNumber, store.DirectionOutbound, msg.Content, store.DecisionHumanSend)

	if wasAutomated {
		slog.Info("Human takeover", "agent", msg.AgentID, "phone", msg.PhoneNumber)
		if a.events != nil {
			a.events.PublishOwnershipChange(ctx, msg.AgentID, msg.PhoneNumber, store.OwnershipHuman, "manual_send")
		}
		if a.notifier != nil {
			a.notifier.HumanTakeover(ctx, msg.AgentID, msg.PhoneNumber)
		}
	}
}

func (a *Arbiter) handleCustomerMessage(ctx context.Context, msg *bus.InboundMessage) {
	automated, err := a.registry.IsAutomatedControl(msg.AgentID, msg.PhoneNumber)
	if err != nil {
		// Registry down: assume an operator may own the conversation and
		// stay silent rather than risk a duplicate or conflicting reply.
		slog.Warn("Registry unavailable, suppressing reply", "agent", msg.AgentID, "phone", msg.PhoneNumber, "error", err)
		a.logMessage(msg.EventID, msg.AgentID, msg.PhoneNumber, store.DirectionInbound, msg.Content, store.DecisionSuppressed)
		return
	}
	if !automated {
		slog.Debug("Conversation human-held, suppressing reply", "agent", msg.AgentID, "phone", msg.PhoneNumber)
		a.logMessage(msg.EventID, msg.AgentID, msg.PhoneNumber, store.DirectionInbound, msg.Content, store.DecisionSuppressed)
		return
	}
	if a.store.IsAutoReplyPaused() {
		a.logMessage(msg.EventID, msg.AgentID, msg.PhoneNumber, store.DirectionInbound, msg.Content, store.DecisionPaused)
		return
	}

	match, err := a.matcher.BestMatch(msg.AgentID, msg.Content)
	if err != nil {
		// Lookup failure fails open: fall through to the responder.
		slog.Warn("FAQ lookup failed, falling back", "agent", msg.AgentID, "error", err)
		match = nil
	}

	if match != nil {
		a.logMessage(msg.EventID, msg.AgentID, msg.PhoneNumber, store.DirectionInbound, msg.Content, store.DecisionFAQReply)
		a.bus.PublishOutbound(&bus.OutboundMessage{
			Channel:     msg.Channel,
			AgentID:     msg.AgentID,
			PhoneNumber: msg.PhoneNumber,
			Content:     match.Entry.Answer,
			Source:      bus.SourceFAQ,
			FAQID:       match.Entry.ID,
		})
		// Accounting happens off the reply path.
		faqID := match.Entry.ID
		go a.ledger.RecordUsage(context.WithoutCancel(ctx), faqID, msg.AgentID, msg.SessionID, msg.Channel)
		return
	}

	if a.responder == nil {
		slog.Warn("No responder configured, message unanswered", "agent", msg.AgentID, "phone", msg.PhoneNumber)
		a.logMessage(msg.EventID, msg.AgentID, msg.PhoneNumber, store.DirectionInbound, msg.Content, store.DecisionFailed)
		return
	}

	reply, err := a.responder.Respond(ctx, msg.AgentID, msg.PhoneNumber, msg.Content)
	if err != nil {
		slog.Error("Generative reply failed", "agent", msg.AgentID, "phone", msg.PhoneNumber, "error", err)
		a.logMessage(msg.EventID, msg.AgentID, msg.PhoneNumber, store.DirectionInbound, msg.Content, store.DecisionFailed)
		if a.notifier != nil {
			a.notifier.ReplyFailed(ctx, msg.AgentID, msg.PhoneNumber, err)
		}
		return
	}

	a.logMessage(msg.EventID, msg.AgentID, msg.PhoneNumber, store.DirectionInbound, msg.Content, store.DecisionGenerativeReply)
	a.bus.PublishOutbound(&bus.OutboundMessage{
		Channel:     msg.Channel,
		AgentID:     msg.AgentID,
		PhoneNumber: msg.PhoneNumber,
		Content:     reply,
		Source:      bus.SourceGenerative,
	})
}

// SendManual delivers an operator-authored reply and takes the conversation
// over. Ownership is persisted before the send is dispatched, so a failed
// delivery still leaves the conversation human-held. When the channel has a
// registered Sender the delivery runs synchronously and its failure is
// returned wrapped in ErrSendFailed; otherwise the message goes out through
// the bus.
func (a *Arbiter) SendManual(ctx context.Context, channel, agentID, phoneNumber, content string) error {
	if err := a.registry.MarkHumanTakeover(agentID, phoneNumber, time.Now()); err != nil {
		return err
	}
	a.logMessage("", agentID, phoneNumber, store.DirectionOutbound, content, store.DecisionHumanSend)
	if a.events != nil {
		a.events.PublishOwnershipChange(ctx, agentID, phoneNumber, store.OwnershipHuman, "manual_send")
	}
	if a.notifier != nil {
		a.notifier.HumanTakeover(ctx, agentID, phoneNumber)
	}

	msg := &bus.OutboundMessage{
		Channel:     channel,
		AgentID:     agentID,
		PhoneNumber: phoneNumber,
		Content:     content,
		Source:      bus.SourceManual,
	}
	if sender, ok := a.senders[channel]; ok {
		if err := sender.Send(ctx, msg); err != nil {
			slog.Error("Manual send failed", "agent", agentID, "phone", phoneNumber, "error", err)
			return fmt.Errorf("%w: %v", ErrSendFailed, err)
		}
		return nil
	}
	a.bus.PublishOutbound(msg)
	return nil
}

// Resume returns a conversation to automated control immediately, without
// waiting for the inactivity sweep.
func (a *Arbiter) Resume(ctx context.Context, agentID, phoneNumber string) error {
	if err := a.registry.ReleaseToAutomated(agentID, phoneNumber); err != nil {
		return err
	}
	slog.Info("Conversation resumed", "agent", agentID, "phone", phoneNumber)
	if a.events != nil {
		a.events.PublishOwnershipChange(ctx, agentID, phoneNumber, store.OwnershipAutomated, "manual_resume")
	}
	if a.notifier != nil {
		a.notifier.ConversationResumed(ctx, agentID, phoneNumber, "manual_resume")
	}
	return nil
}

func (a *Arbiter) logMessage(eventID, agentID, phoneNumber, direction, content, decision string) {
	if a.store == nil {
		return
	}
	if err := a.store.AddMessageLog(&store.MessageLogEntry{
		EventID:     eventID,
		AgentID:     agentID,
		PhoneNumber: phoneNumber,
		Direction:   direction,
		Content:     content,
		Decision:    decision,
	}); err != nil {
		slog.Warn("Message log append failed", "agent", agentID, "error", err)
	}
}
