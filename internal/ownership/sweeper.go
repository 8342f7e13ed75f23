package ownership

import (
	"context"
	"log/slog"
	"time"
)

// ChangePublisher receives ownership transition events. Implementations must
// tolerate being called from the sweeper goroutine.
type ChangePublisher interface {
	PublishOwnershipChange(ctx context.Context, agentID, phoneNumber, ownership, reason string)
}

// SweeperConfig holds inactivity sweep settings.
type SweeperConfig struct {
	Interval  time.Duration
	Threshold time.Duration
}

// Sweeper periodically returns conversations to automated control after the
// operator has been inactive for longer than the threshold.
type Sweeper struct {
	cfg      SweeperConfig
	registry *Registry
	events   ChangePublisher
}

// NewSweeper creates a Sweeper. events may be nil.
func NewSweeper(cfg SweeperConfig, reg *Registry, events ChangePublisher) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = 30 * time.Minute
	}
	return &Sweeper{cfg: cfg, registry: reg, events: events}
}

// Run starts the sweep loop. Blocks until context is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	slog.Info("Ownership sweeper started", "interval", s.cfg.Interval, "threshold", s.cfg.Threshold)
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Ownership sweeper stopped")
			return ctx.Err()
		case t := <-ticker.C:
			s.Sweep(ctx, t)
		}
	}
}

// Sweep runs one pass: snapshot the stale conversations, then release each
// one with a conditional update. A manual send that lands between the
// snapshot and the release refreshes taken_over_at and makes the release a
// no-op, so a fresh takeover is never clobbered.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) {
	cutoff := now.UTC().Add(-s.cfg.Threshold)

	stale, err := s.registry.StaleHumanHeld(cutoff)
	if err != nil {
		slog.Warn("Sweep skipped: registry unavailable", "error", err)
		return
	}

	for _, c := range stale {
		released, err := s.registry.ReleaseIfStale(c.AgentID, c.PhoneNumber, cutoff)
		if err != nil {
			slog.Warn("Sweep release failed", "agent", c.AgentID, "phone", c.PhoneNumber, "error", err)
			continue
		}
		if !released {
			continue
		}
		slog.Info("Conversation returned to automated control", "agent", c.AgentID, "phone", c.PhoneNumber)
		if s.events != nil {
			s.events.PublishOwnershipChange(ctx, c.AgentID, c.PhoneNumber, "automated", "inactivity_sweep")
		}
	}
}
