package faq

import (
	"errors"
	"fmt"

	"github.com/zapdesk/zapdesk/internal/store"
)

// ErrLookupFailed wraps storage failures during candidate loading. Callers
// fail open: treat the lookup as no-match and fall through to the
// generative responder.
var ErrLookupFailed = errors.New("faq lookup failed")

// Match is a successful short-circuit decision.
type Match struct {
	Entry *store.FAQEntry
	Score int
}

// Matcher scores inbound messages against an agent's active FAQ entries.
type Matcher struct {
	store         *store.Store
	maxCandidates int
}

// NewMatcher creates a Matcher. maxCandidates bounds the per-message
// candidate set; zero or negative applies the store default.
func NewMatcher(s *store.Store, maxCandidates int) *Matcher {
	return &Matcher{store: s, maxCandidates: maxCandidates}
}

// BestMatch returns the best-scoring active FAQ entry for the message, or
// nil when no entry clears the threshold. Scoring is deterministic: a
// curated keyword hit counts double a question-text hit, the threshold
// scales with the message's keyword count, and ties go to the oldest entry.
func (m *Matcher) BestMatch(agentID, message string) (*Match, error) {
	userKeywords := Normalize(message)
	if len(userKeywords) == 0 {
		return nil, nil
	}

	candidates, err := m.store.ActiveFAQs(agentID, m.maxCandidates)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}

	threshold := minScore(len(userKeywords))
	var best *Match
	for i := range candidates {
		score := scoreEntry(&candidates[i], userKeywords)
		if score < threshold {
			continue
		}
		// Candidates arrive in ascending id order, so a strict comparison
		// gives ties to the lowest id.
		if best == nil || score > best.Score {
			best = &Match{Entry: &candidates[i], Score: score}
		}
	}
	return best, nil
}

// scoreEntry computes 2 points per curated keyword hit plus 1 point per
// question-text hit. The two counts are independent, so a user keyword
// that is both a curated keyword and a question word contributes 3.
func scoreEntry(entry *store.FAQEntry, userKeywords []string) int {
	entryKeywords := make(map[string]bool, len(entry.Keywords))
	for _, kw := range entry.Keywords {
		for _, w := range Normalize(kw) {
			entryKeywords[w] = true
		}
	}
	questionWords := make(map[string]bool)
	for _, w := range Normalize(entry.Question) {
		questionWords[w] = true
	}

	score := 0
	for _, kw := range userKeywords {
		if entryKeywords[kw] {
			score += 2
		}
		if questionWords[kw] {
			score++
		}
	}
	return score
}

// minScore is the match threshold for a message with n keywords: at least
// half the keywords must hit, and never fewer than one double-weight hit.
func minScore(n int) int {
	t := n / 2
	if t < 2 {
		t = 2
	}
	return t
}
