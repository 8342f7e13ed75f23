// Package ownership arbitrates who answers a conversation: the automated
// agent or a human operator.
package ownership

import (
	"errors"
	"fmt"
	"time"

	"github.com/zapdesk/zapdesk/internal/store"
)

// ErrRegistryUnavailable wraps storage failures during ownership lookups.
// Callers must treat an unavailable registry as human-held and stay silent.
var ErrRegistryUnavailable = errors.New("ownership registry unavailable")

// Registry is the authoritative view of conversation ownership. Every write
// goes through a single conditional SQL statement, so concurrent takeovers,
// sweeps, and resumes never need application-level locks.
type Registry struct {
	store *store.Store
}

// NewRegistry creates a Registry backed by the shared store.
func NewRegistry(s *store.Store) *Registry {
	return &Registry{store: s}
}

// MarkHumanTakeover records that a human operator replied to a conversation
// at the given time. Repeated takeovers refresh the timestamp; a concurrent
// older writer cannot roll a newer takeover back.
func (r *Registry) MarkHumanTakeover(agentID, phoneNumber string, at time.Time) error {
	if err := r.store.UpsertHumanTakeover(agentID, phoneNumber, at); err != nil {
		return fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}
	return nil
}

// IsAutomatedControl reports whether the automated agent may reply to the
// conversation. A conversation with no registry row is automated. On storage
// failure it returns false and ErrRegistryUnavailable so the caller fails
// safe and suppresses the reply.
func (r *Registry) IsAutomatedControl(agentID, phoneNumber string) (bool, error) {
	c, err := r.store.GetConversation(agentID, phoneNumber)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}
	if c == nil {
		return true, nil
	}
	return c.Ownership == store.OwnershipAutomated, nil
}

// Get returns the raw conversation record, or nil if the conversation has
// never been taken over.
func (r *Registry) Get(agentID, phoneNumber string) (*store.Conversation, error) {
	c, err := r.store.GetConversation(agentID, phoneNumber)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}
	return c, nil
}

// ReleaseToAutomated unconditionally returns a conversation to automated
// control. This is the explicit resume operation, not the inactivity sweep.
func (r *Registry) ReleaseToAutomated(agentID, phoneNumber string) error {
	if err := r.store.ReleaseConversation(agentID, phoneNumber); err != nil {
		return fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}
	return nil
}

// ReleaseIfStale returns the conversation to automated control only if its
// takeover timestamp is still older than cutoff. Reports whether the release
// happened.
func (r *Registry) ReleaseIfStale(agentID, phoneNumber string, cutoff time.Time) (bool, error) {
	released, err := r.store.ReleaseIfTakenBefore(agentID, phoneNumber, cutoff)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}
	return released, nil
}

// StaleHumanHeld lists human-held conversations taken over before cutoff.
func (r *Registry) StaleHumanHeld(cutoff time.Time) ([]store.Conversation, error) {
	list, err := r.store.ListStaleHumanHeld(cutoff)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}
	return list, nil
}
