// Package provider supplies generative fallback replies for messages that no
// FAQ entry short-circuits.
package provider

import "context"

// Responder produces a reply to a customer message. The agent and phone
// number identify the conversation for implementations that personalize or
// rate-limit per conversation. Implementations must respect the context
// deadline.
type Responder interface {
	Respond(ctx context.Context, agentID, phoneNumber, message string) (string, error)
}
