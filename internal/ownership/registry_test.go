package ownership

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/zapdesk/zapdesk/internal/store"
)

func newTestRegistry(t *testing.T) (*Registry, *store.Store) {
	t.Helper()
	s, err := store.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return NewRegistry(s), s
}

func TestAutomatedByDefault(t *testing.T) {
	reg, _ := newTestRegistry(t)

	ok, err := reg.IsAutomatedControl("a", "5511999990000")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("unknown conversation should be under automated control")
	}
}

func TestTakeoverAndResume(t *testing.T) {
	reg, _ := newTestRegistry(t)
	now := time.Now().UTC()

	if err := reg.MarkHumanTakeover("a", "p", now); err != nil {
		t.Fatal(err)
	}
	ok, err := reg.IsAutomatedControl("a", "p")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("conversation should be human-held after takeover")
	}

	if err := reg.ReleaseToAutomated("a", "p"); err != nil {
		t.Fatal(err)
	}
	ok, _ = reg.IsAutomatedControl("a", "p")
	if !ok {
		t.Error("conversation should be automated after resume")
	}
}

func TestRegistryUnavailableFailsSafe(t *testing.T) {
	reg, s := newTestRegistry(t)
	s.Close()

	ok, err := reg.IsAutomatedControl("a", "p")
	if err == nil {
		t.Fatal("expected error from closed store")
	}
	if !errors.Is(err, ErrRegistryUnavailable) {
		t.Errorf("error = %v, want ErrRegistryUnavailable", err)
	}
	if ok {
		t.Error("unavailable registry must not report automated control")
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) PublishOwnershipChange(ctx context.Context, agentID, phoneNumber, ownership, reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, phoneNumber+":"+ownership+":"+reason)
}

func (p *recordingPublisher) all() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

func TestSweepReleasesOnlyStale(t *testing.T) {
	reg, _ := newTestRegistry(t)
	now := time.Now().UTC()

	if err := reg.MarkHumanTakeover("a", "stale", now.Add(-45*time.Minute)); err != nil {
		t.Fatal(err)
	}
	if err := reg.MarkHumanTakeover("a", "fresh", now.Add(-5*time.Minute)); err != nil {
		t.Fatal(err)
	}

	pub := &recordingPublisher{}
	sw := NewSweeper(SweeperConfig{Interval: time.Minute, Threshold: 30 * time.Minute}, reg, pub)
	sw.Sweep(context.Background(), now)

	ok, _ := reg.IsAutomatedControl("a", "stale")
	if !ok {
		t.Error("stale conversation should be released")
	}
	ok, _ = reg.IsAutomatedControl("a", "fresh")
	if ok {
		t.Error("fresh conversation must stay human-held")
	}

	events := pub.all()
	if len(events) != 1 || events[0] != "stale:automated:inactivity_sweep" {
		t.Errorf("events = %v", events)
	}
}

func TestSweepLosesRaceToNewTakeover(t *testing.T) {
	reg, _ := newTestRegistry(t)
	now := time.Now().UTC()

	if err := reg.MarkHumanTakeover("a", "p", now.Add(-45*time.Minute)); err != nil {
		t.Fatal(err)
	}
	// Operator replies again after the sweeper's snapshot would be taken.
	if err := reg.MarkHumanTakeover("a", "p", now); err != nil {
		t.Fatal(err)
	}

	released, err := reg.ReleaseIfStale("a", "p", now.Add(-30*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if released {
		t.Error("release must be a no-op once the takeover was refreshed")
	}
	ok, _ := reg.IsAutomatedControl("a", "p")
	if ok {
		t.Error("refreshed takeover must survive the sweep")
	}
}

func TestSweeperRunStopsOnCancel(t *testing.T) {
	reg, _ := newTestRegistry(t)
	sw := NewSweeper(SweeperConfig{Interval: 10 * time.Millisecond, Threshold: time.Minute}, reg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sw.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}
