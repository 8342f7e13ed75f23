package faq

import (
	"fmt"
	"strings"

	"github.com/zapdesk/zapdesk/internal/store"
)

// Admin manages the curated FAQ catalog.
type Admin struct {
	store *store.Store
}

// NewAdmin creates an Admin backed by the shared store.
func NewAdmin(s *store.Store) *Admin {
	return &Admin{store: s}
}

// Create adds a FAQ entry. When no keywords are given they are extracted
// from the question text with the same normalization the matcher uses.
func (a *Admin) Create(agentID, question, answer string, keywords []string) (*store.FAQEntry, error) {
	question = strings.TrimSpace(question)
	answer = strings.TrimSpace(answer)
	if question == "" || answer == "" {
		return nil, fmt.Errorf("question and answer are required")
	}
	if len(keywords) == 0 {
		keywords = Normalize(question)
	}
	if len(keywords) == 0 {
		return nil, fmt.Errorf("no usable keywords in question %q", question)
	}
	return a.store.CreateFAQ(&store.FAQEntry{
		AgentID:  agentID,
		Question: question,
		Answer:   answer,
		Keywords: keywords,
	})
}

// Update replaces question, answer, and keywords of an entry. Empty keywords
// are re-extracted from the new question.
func (a *Admin) Update(id int64, question, answer string, keywords []string) error {
	question = strings.TrimSpace(question)
	answer = strings.TrimSpace(answer)
	if question == "" || answer == "" {
		return fmt.Errorf("question and answer are required")
	}
	if len(keywords) == 0 {
		keywords = Normalize(question)
	}
	return a.store.UpdateFAQ(id, question, answer, keywords)
}

// Deactivate removes an entry from matching while keeping its history.
func (a *Admin) Deactivate(id int64) error {
	return a.store.SetFAQActive(id, false)
}

// Activate returns a deactivated entry to matching.
func (a *Admin) Activate(id int64) error {
	return a.store.SetFAQActive(id, true)
}

// Get returns one entry by id.
func (a *Admin) Get(id int64) (*store.FAQEntry, error) {
	return a.store.GetFAQ(id)
}

// List returns an agent's entries, optionally including inactive ones.
func (a *Admin) List(agentID string, includeInactive bool) ([]store.FAQEntry, error) {
	return a.store.ListFAQs(agentID, includeInactive)
}
