package store

import (
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestTakeoverUpsertAndInvariant(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()

	if err := s.UpsertHumanTakeover("agent-1", "5511999990000", now); err != nil {
		t.Fatalf("UpsertHumanTakeover: %v", err)
	}

	c, err := s.GetConversation("agent-1", "5511999990000")
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if c == nil {
		t.Fatal("conversation should exist")
	}
	if c.Ownership != OwnershipHuman {
		t.Errorf("ownership = %q, want human", c.Ownership)
	}
	if c.TakenOverAt == nil {
		t.Fatal("taken_over_at must be set while human-held")
	}

	if err := s.ReleaseConversation("agent-1", "5511999990000"); err != nil {
		t.Fatalf("ReleaseConversation: %v", err)
	}
	c, _ = s.GetConversation("agent-1", "5511999990000")
	if c.Ownership != OwnershipAutomated || c.TakenOverAt != nil {
		t.Errorf("after release: ownership=%q takenOverAt=%v, want automated/nil", c.Ownership, c.TakenOverAt)
	}
}

func TestTakeoverLaterTimestampWins(t *testing.T) {
	s := newTestStore(t)
	earlier := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	later := earlier.Add(5 * time.Second)

	if err := s.UpsertHumanTakeover("a", "p", later); err != nil {
		t.Fatal(err)
	}
	// A delayed writer with an older timestamp must not roll the takeover back.
	if err := s.UpsertHumanTakeover("a", "p", earlier); err != nil {
		t.Fatal(err)
	}

	c, _ := s.GetConversation("a", "p")
	if c.TakenOverAt == nil || !c.TakenOverAt.Equal(later) {
		t.Errorf("taken_over_at = %v, want %v", c.TakenOverAt, later)
	}
}

func TestConcurrentTakeoversNoLostUpdate(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.UpsertHumanTakeover("a", "p", base.Add(time.Duration(i)*time.Second))
		}(i)
	}
	wg.Wait()

	c, err := s.GetConversation("a", "p")
	if err != nil || c == nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if c.Ownership != OwnershipHuman {
		t.Errorf("ownership = %q, want human", c.Ownership)
	}
	want := base.Add(9 * time.Second)
	if c.TakenOverAt == nil || !c.TakenOverAt.Equal(want) {
		t.Errorf("taken_over_at = %v, want latest %v", c.TakenOverAt, want)
	}
}

func TestReleaseIfTakenBefore(t *testing.T) {
	s := newTestStore(t)
	takenAt := time.Now().UTC().Add(-31 * time.Minute)
	if err := s.UpsertHumanTakeover("a", "p", takenAt); err != nil {
		t.Fatal(err)
	}

	// Cutoff before the takeover: no-op.
	released, err := s.ReleaseIfTakenBefore("a", "p", takenAt.Add(-time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if released {
		t.Error("should not release a conversation newer than cutoff")
	}

	// Cutoff after the takeover: released.
	released, err = s.ReleaseIfTakenBefore("a", "p", time.Now().UTC().Add(-30*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if !released {
		t.Error("expected release for stale takeover")
	}
	c, _ := s.GetConversation("a", "p")
	if c.Ownership != OwnershipAutomated || c.TakenOverAt != nil {
		t.Errorf("after stale release: %+v", c)
	}
}

func TestListStaleHumanHeld(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()
	_ = s.UpsertHumanTakeover("a", "old", now.Add(-45*time.Minute))
	_ = s.UpsertHumanTakeover("a", "fresh", now.Add(-5*time.Minute))

	stale, err := s.ListStaleHumanHeld(now.Add(-30 * time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if len(stale) != 1 || stale[0].PhoneNumber != "old" {
		t.Errorf("stale = %+v, want only 'old'", stale)
	}
}

func TestFAQCRUDAndUsageCounter(t *testing.T) {
	s := newTestStore(t)

	entry, err := s.CreateFAQ(&FAQEntry{
		AgentID:  "agent-1",
		Question: "Qual o horário de funcionamento?",
		Answer:   "Atendemos de 9h às 18h.",
		Keywords: []string{"horario", "funcionamento"},
	})
	if err != nil {
		t.Fatalf("CreateFAQ: %v", err)
	}
	if entry.ID == 0 || !entry.Active {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if len(entry.Keywords) != 2 {
		t.Errorf("keywords = %v", entry.Keywords)
	}

	for i := 0; i < 3; i++ {
		if ok, err := s.IncrementFAQUsage(entry.ID); err != nil || !ok {
			t.Fatalf("IncrementFAQUsage: ok=%v err=%v", ok, err)
		}
	}
	got, _ := s.GetFAQ(entry.ID)
	if got.UsageCount != 3 {
		t.Errorf("usage_count = %d, want 3", got.UsageCount)
	}

	// Deactivate freezes the counter; reactivate preserves it.
	if err := s.SetFAQActive(entry.ID, false); err != nil {
		t.Fatal(err)
	}
	if ok, _ := s.IncrementFAQUsage(entry.ID); ok {
		t.Error("inactive entry counter must be frozen")
	}
	if err := s.SetFAQActive(entry.ID, true); err != nil {
		t.Fatal(err)
	}
	got, _ = s.GetFAQ(entry.ID)
	if got.UsageCount != 3 {
		t.Errorf("usage_count after reactivate = %d, want 3", got.UsageCount)
	}
}

func TestConcurrentUsageIncrements(t *testing.T) {
	s := newTestStore(t)
	entry, err := s.CreateFAQ(&FAQEntry{AgentID: "a", Question: "q", Answer: "r", Keywords: []string{"q"}})
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.IncrementFAQUsage(entry.ID)
		}()
	}
	wg.Wait()

	got, _ := s.GetFAQ(entry.ID)
	if got.UsageCount != 20 {
		t.Errorf("usage_count = %d, want 20 (no lost increments)", got.UsageCount)
	}
}

func TestActiveFAQsStableOrderAndFiltering(t *testing.T) {
	s := newTestStore(t)
	first, _ := s.CreateFAQ(&FAQEntry{AgentID: "a", Question: "q1", Answer: "r1"})
	second, _ := s.CreateFAQ(&FAQEntry{AgentID: "a", Question: "q2", Answer: "r2"})
	_, _ = s.CreateFAQ(&FAQEntry{AgentID: "other", Question: "q3", Answer: "r3"})
	_ = s.SetFAQActive(second.ID, false)

	active, err := s.ActiveFAQs("a", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 || active[0].ID != first.ID {
		t.Errorf("active = %+v, want only first entry", active)
	}

	all, _ := s.ListFAQs("a", true)
	if len(all) != 2 {
		t.Errorf("ListFAQs includeInactive = %d entries, want 2", len(all))
	}
}

func TestUsageLogAndProjections(t *testing.T) {
	s := newTestStore(t)
	e1, _ := s.CreateFAQ(&FAQEntry{AgentID: "a", Question: "horário", Answer: "9-18"})
	e2, _ := s.CreateFAQ(&FAQEntry{AgentID: "a", Question: "endereço", Answer: "rua x"})

	for i := 0; i < 5; i++ {
		_, _ = s.IncrementFAQUsage(e1.ID)
		_ = s.AddUsageLog(&UsageLogEntry{UsageID: newUsageID(t, i), FAQID: e1.ID, AgentID: "a", Source: "whatsapp"})
	}
	_, _ = s.IncrementFAQUsage(e2.ID)
	_ = s.AddUsageLog(&UsageLogEntry{UsageID: "u-final", FAQID: e2.ID, AgentID: "a", Source: "whatsapp"})

	top, err := s.TopFAQs("a", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != 2 || top[0].FAQID != e1.ID || top[0].UsageCount != 5 {
		t.Errorf("top = %+v", top)
	}

	buckets, err := s.UsageBuckets("a", 7)
	if err != nil {
		t.Fatal(err)
	}
	var total int64
	for _, b := range buckets {
		total += b.Count
	}
	if total != 6 {
		t.Errorf("bucket total = %d, want 6", total)
	}

	n, _ := s.CountUsageLogs(e1.ID)
	if n != 5 {
		t.Errorf("usage logs for e1 = %d, want 5", n)
	}
}

func newUsageID(t *testing.T, i int) string {
	t.Helper()
	return "u-" + t.Name() + "-" + string(rune('a'+i))
}

func TestMessageLog(t *testing.T) {
	s := newTestStore(t)
	_ = s.AddMessageLog(&MessageLogEntry{EventID: "e1", AgentID: "a", PhoneNumber: "p", Direction: DirectionInbound, Content: "oi", Decision: DecisionGenerativeReply})
	_ = s.AddMessageLog(&MessageLogEntry{EventID: "e2", AgentID: "a", PhoneNumber: "p", Direction: DirectionOutbound, Content: "olá", Decision: DecisionHumanSend})
	_ = s.AddMessageLog(&MessageLogEntry{EventID: "e3", AgentID: "a", PhoneNumber: "q", Direction: DirectionInbound, Content: "oi", Decision: DecisionSuppressed})

	msgs, err := s.ListMessageLog("a", "p", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Errorf("messages for p = %d, want 2", len(msgs))
	}

	all, _ := s.ListMessageLog("a", "", 0, 0)
	if len(all) != 3 {
		t.Errorf("messages for agent = %d, want 3", len(all))
	}
}

func TestSettings(t *testing.T) {
	s := newTestStore(t)
	if s.IsAutoReplyPaused() {
		t.Error("auto-reply should default to not paused")
	}
	if err := s.SetSetting("auto_reply_paused", "true"); err != nil {
		t.Fatal(err)
	}
	if !s.IsAutoReplyPaused() {
		t.Error("auto-reply should be paused after setting")
	}
	_ = s.SetSetting("auto_reply_paused", "false")
	if s.IsAutoReplyPaused() {
		t.Error("auto-reply should resume")
	}
}
