// Package notify alerts operators on Slack about noteworthy arbitration
// events. Notifications are best-effort.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/slack-go/slack"
)

// Config holds Slack settings. An empty token disables notifications.
type Config struct {
	Token   string
	Channel string
}

// Notifier posts operator alerts to a Slack channel. A nil Notifier is valid
// and drops everything.
type Notifier struct {
	client  *slack.Client
	channel string
}

// NewNotifier creates a Notifier, or nil when no token is configured.
func NewNotifier(cfg Config) *Notifier {
	if cfg.Token == "" || cfg.Channel == "" {
		return nil
	}
	return &Notifier{client: slack.New(cfg.Token), channel: cfg.Channel}
}

// HumanTakeover announces that an operator took over a conversation.
func (n *Notifier) HumanTakeover(ctx context.Context, agentID, phoneNumber string) {
	n.post(ctx, fmt.Sprintf(":raised_hand: Operator took over conversation %s on agent %s. Auto-replies suspended.", phoneNumber, agentID))
}

// ConversationResumed announces that a conversation returned to automated control.
func (n *Notifier) ConversationResumed(ctx context.Context, agentID, phoneNumber, reason string) {
	n.post(ctx, fmt.Sprintf(":robot_face: Conversation %s on agent %s back under automated control (%s).", phoneNumber, agentID, reason))
}

// ReplyFailed announces that neither a FAQ nor the generative responder
// produced a reply for an inbound message.
func (n *Notifier) ReplyFailed(ctx context.Context, agentID, phoneNumber string, err error) {
	n.post(ctx, fmt.Sprintf(":warning: Reply failed for %s on agent %s: %v. Customer is waiting.", phoneNumber, agentID, err))
}

func (n *Notifier) post(ctx context.Context, text string) {
	if n == nil {
		return
	}
	_, _, err := n.client.PostMessageContext(ctx, n.channel, slack.MsgOptionText(text, false))
	if err != nil {
		slog.Warn("Slack notification failed", "error", err)
	}
}
