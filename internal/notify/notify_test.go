package notify

import (
	"context"
	"errors"
	"testing"
)

func TestNewNotifierDisabledWithoutToken(t *testing.T) {
	if n := NewNotifier(Config{Channel: "#support"}); n != nil {
		t.Error("missing token should yield a nil notifier")
	}
	if n := NewNotifier(Config{Token: "xoxb-test"}); n != nil {
		t.Error("missing channel should yield a nil notifier")
	}
}

func TestNilNotifierIsSafe(t *testing.T) {
	var n *Notifier
	ctx := context.Background()

	// Must not panic.
	n.HumanTakeover(ctx, "agent-1", "5511999990000")
	n.ConversationResumed(ctx, "agent-1", "5511999990000", "inactivity_sweep")
	n.ReplyFailed(ctx, "agent-1", "5511999990000", errors.New("provider timeout"))
}
