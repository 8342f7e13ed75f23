package faq

import (
	"context"
	"sync"
	"testing"
)

type recordingUsagePublisher struct {
	mu    sync.Mutex
	calls []int64
}

func (p *recordingUsagePublisher) PublishFAQUsage(ctx context.Context, usageID string, faqID int64, agentID, sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, faqID)
}

func TestRecordUsage(t *testing.T) {
	s := newTestStore(t)
	entry := mustCreateFAQ(t, s, "Qual o horário?", "9h-18h", []string{"horario"})

	pub := &recordingUsagePublisher{}
	l := NewLedger(s, pub)
	for i := 0; i < 3; i++ {
		l.RecordUsage(context.Background(), entry.ID, "agent-1", "session-1", "whatsapp")
	}

	got, _ := s.GetFAQ(entry.ID)
	if got.UsageCount != 3 {
		t.Errorf("usage_count = %d, want 3", got.UsageCount)
	}
	n, _ := s.CountUsageLogs(entry.ID)
	if n != 3 {
		t.Errorf("usage logs = %d, want 3", n)
	}
	pub.mu.Lock()
	calls := len(pub.calls)
	pub.mu.Unlock()
	if calls != 3 {
		t.Errorf("published events = %d, want 3", calls)
	}
}

func TestRecordUsageSurvivesFrozenEntry(t *testing.T) {
	s := newTestStore(t)
	entry := mustCreateFAQ(t, s, "Qual o horário?", "9h-18h", []string{"horario"})
	if err := s.SetFAQActive(entry.ID, false); err != nil {
		t.Fatal(err)
	}

	// A usage racing a deactivation keeps its log row even though the
	// counter stays frozen.
	l := NewLedger(s, nil)
	l.RecordUsage(context.Background(), entry.ID, "agent-1", "", "whatsapp")

	got, _ := s.GetFAQ(entry.ID)
	if got.UsageCount != 0 {
		t.Errorf("usage_count = %d, want 0", got.UsageCount)
	}
	n, _ := s.CountUsageLogs(entry.ID)
	if n != 1 {
		t.Errorf("usage logs = %d, want 1", n)
	}
}

func TestTopFAQsAndBuckets(t *testing.T) {
	s := newTestStore(t)
	e1 := mustCreateFAQ(t, s, "Horário", "9h-18h", []string{"horario"})
	e2 := mustCreateFAQ(t, s, "Endereço", "Rua X", []string{"endereco"})

	l := NewLedger(s, nil)
	for i := 0; i < 4; i++ {
		l.RecordUsage(context.Background(), e1.ID, "agent-1", "", "whatsapp")
	}
	l.RecordUsage(context.Background(), e2.ID, "agent-1", "", "whatsapp")

	top, err := l.TopFAQs("agent-1", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != 2 || top[0].FAQID != e1.ID || top[0].UsageCount != 4 {
		t.Errorf("top = %+v", top)
	}

	buckets, err := l.UsageByDay("agent-1", 7)
	if err != nil {
		t.Fatal(err)
	}
	var total int64
	for _, b := range buckets {
		total += b.Count
	}
	if total != 5 {
		t.Errorf("bucket total = %d, want 5", total)
	}
}
