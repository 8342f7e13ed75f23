// Package store provides SQLite persistence for conversations, FAQ entries,
// usage accounting, and the message log.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps the shared SQLite database.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the database at dbPath and applies the schema.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	// Best-effort migration for dbs created before the decision column existed.
	_, _ = db.Exec(`ALTER TABLE message_log ADD COLUMN decision TEXT NOT NULL DEFAULT ''`)

	return &Store{db: db}, nil
}

// DB returns the underlying *sql.DB for shared access.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error {
	return s.db.Close()
}

// --- Conversations ---

// UpsertHumanTakeover marks a conversation as human-held, creating the row if
// needed. The refresh is conditional on the stored taken_over_at so that out
// of two concurrent manual sends the later timestamp wins and a stale writer
// cannot roll the takeover back.
func (s *Store) UpsertHumanTakeover(agentID, phoneNumber string, now time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO conversations (agent_id, phone_number, ownership, taken_over_at, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(agent_id, phone_number) DO UPDATE SET
			ownership = ?,
			taken_over_at = excluded.taken_over_at,
			updated_at = CURRENT_TIMESTAMP
		WHERE conversations.taken_over_at IS NULL
			OR excluded.taken_over_at >= conversations.taken_over_at
	`, agentID, phoneNumber, OwnershipHuman, now.UTC(), OwnershipHuman)
	if err != nil {
		return fmt.Errorf("upsert takeover: %w", err)
	}
	return nil
}

// GetConversation returns the conversation row, or (nil, nil) if none exists.
func (s *Store) GetConversation(agentID, phoneNumber string) (*Conversation, error) {
	var c Conversation
	var takenOverAt sql.NullTime
	err := s.db.QueryRow(`
		SELECT agent_id, phone_number, ownership, taken_over_at, created_at, updated_at
		FROM conversations WHERE agent_id = ? AND phone_number = ?
	`, agentID, phoneNumber).Scan(&c.AgentID, &c.PhoneNumber, &c.Ownership, &takenOverAt, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if takenOverAt.Valid {
		c.TakenOverAt = &takenOverAt.Time
	}
	return &c, nil
}

// ReleaseConversation unconditionally returns a conversation to automated
// control. Used by the explicit resume-AI operation.
func (s *Store) ReleaseConversation(agentID, phoneNumber string) error {
	_, err := s.db.Exec(`
		UPDATE conversations
		SET ownership = ?, taken_over_at = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE agent_id = ? AND phone_number = ?
	`, OwnershipAutomated, agentID, phoneNumber)
	if err != nil {
		return fmt.Errorf("release conversation: %w", err)
	}
	return nil
}

// ReleaseIfTakenBefore returns a conversation to automated control only if it
// is still human-held with a takeover timestamp older than cutoff. The WHERE
// predicate is the compare-and-set: a manual send that refreshed
// taken_over_at after the sweeper's snapshot makes this a no-op.
func (s *Store) ReleaseIfTakenBefore(agentID, phoneNumber string, cutoff time.Time) (bool, error) {
	res, err := s.db.Exec(`
		UPDATE conversations
		SET ownership = ?, taken_over_at = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE agent_id = ? AND phone_number = ?
			AND ownership = ? AND taken_over_at IS NOT NULL AND taken_over_at < ?
	`, OwnershipAutomated, agentID, phoneNumber, OwnershipHuman, cutoff.UTC())
	if err != nil {
		return false, fmt.Errorf("conditional release: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ListStaleHumanHeld returns human-held conversations whose takeover
// timestamp is older than cutoff.
func (s *Store) ListStaleHumanHeld(cutoff time.Time) ([]Conversation, error) {
	rows, err := s.db.Query(`
		SELECT agent_id, phone_number, ownership, taken_over_at, created_at, updated_at
		FROM conversations
		WHERE ownership = ? AND taken_over_at IS NOT NULL AND taken_over_at < ?
		ORDER BY taken_over_at ASC
	`, OwnershipHuman, cutoff.UTC())
	if err != nil {
		return nil, fmt.Errorf("list stale conversations: %w", err)
	}
	defer rows.Close()
	return scanConversations(rows)
}

// ListConversations returns conversations for an agent, most recent first.
// Empty agentID returns all agents.
func (s *Store) ListConversations(agentID string, limit, offset int) ([]Conversation, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT agent_id, phone_number, ownership, taken_over_at, created_at, updated_at
		FROM conversations WHERE 1=1`
	args := []any{}
	if agentID != "" {
		query += " AND agent_id = ?"
		args = append(args, agentID)
	}
	query += " ORDER BY updated_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()
	return scanConversations(rows)
}

func scanConversations(rows *sql.Rows) ([]Conversation, error) {
	var out []Conversation
	for rows.Next() {
		var c Conversation
		var takenOverAt sql.NullTime
		if err := rows.Scan(&c.AgentID, &c.PhoneNumber, &c.Ownership, &takenOverAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		if takenOverAt.Valid {
			c.TakenOverAt = &takenOverAt.Time
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// --- FAQ entries ---

// CreateFAQ inserts a new FAQ entry and returns it with its assigned id.
func (s *Store) CreateFAQ(entry *FAQEntry) (*FAQEntry, error) {
	if entry.AgentID == "" {
		return nil, fmt.Errorf("agent_id is required")
	}
	keywords, err := json.Marshal(entry.Keywords)
	if err != nil {
		return nil, fmt.Errorf("marshal keywords: %w", err)
	}
	res, err := s.db.Exec(`
		INSERT INTO faq_entries (agent_id, question, answer, keywords, active)
		VALUES (?, ?, ?, ?, 1)
	`, entry.AgentID, entry.Question, entry.Answer, string(keywords))
	if err != nil {
		return nil, fmt.Errorf("create faq: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetFAQ(id)
}

// UpdateFAQ updates question, answer, and keywords of an entry.
func (s *Store) UpdateFAQ(id int64, question, answer string, keywords []string) error {
	kw, err := json.Marshal(keywords)
	if err != nil {
		return fmt.Errorf("marshal keywords: %w", err)
	}
	res, err := s.db.Exec(`
		UPDATE faq_entries
		SET question = ?, answer = ?, keywords = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, question, answer, string(kw), id)
	if err != nil {
		return fmt.Errorf("update faq: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("faq not found: %d", id)
	}
	return nil
}

// SetFAQActive activates or deactivates an entry. usage_count is untouched,
// so deactivate/reactivate preserves accumulated usage.
func (s *Store) SetFAQActive(id int64, active bool) error {
	res, err := s.db.Exec(`
		UPDATE faq_entries SET active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, active, id)
	if err != nil {
		return fmt.Errorf("set faq active: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("faq not found: %d", id)
	}
	return nil
}

// GetFAQ returns an entry by id.
func (s *Store) GetFAQ(id int64) (*FAQEntry, error) {
	var e FAQEntry
	var keywords string
	err := s.db.QueryRow(`
		SELECT id, agent_id, question, answer, COALESCE(keywords,'[]'), usage_count, active, created_at, updated_at
		FROM faq_entries WHERE id = ?
	`, id).Scan(&e.ID, &e.AgentID, &e.Question, &e.Answer, &keywords, &e.UsageCount, &e.Active, &e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("faq not found: %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get faq: %w", err)
	}
	if err := json.Unmarshal([]byte(keywords), &e.Keywords); err != nil {
		e.Keywords = nil
	}
	return &e, nil
}

// ActiveFAQs returns the active entries for an agent in stable id order.
// The candidate set is bounded by limit so matching stays cheap.
func (s *Store) ActiveFAQs(agentID string, limit int) ([]FAQEntry, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.db.Query(`
		SELECT id, agent_id, question, answer, COALESCE(keywords,'[]'), usage_count, active, created_at, updated_at
		FROM faq_entries WHERE agent_id = ? AND active = 1
		ORDER BY id ASC LIMIT ?
	`, agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("list active faqs: %w", err)
	}
	defer rows.Close()
	return scanFAQs(rows)
}

// ListFAQs returns all entries for an agent, newest first.
func (s *Store) ListFAQs(agentID string, includeInactive bool) ([]FAQEntry, error) {
	query := `
		SELECT id, agent_id, question, answer, COALESCE(keywords,'[]'), usage_count, active, created_at, updated_at
		FROM faq_entries WHERE agent_id = ?`
	if !includeInactive {
		query += " AND active = 1"
	}
	query += " ORDER BY id DESC"

	rows, err := s.db.Query(query, agentID)
	if err != nil {
		return nil, fmt.Errorf("list faqs: %w", err)
	}
	defer rows.Close()
	return scanFAQs(rows)
}

func scanFAQs(rows *sql.Rows) ([]FAQEntry, error) {
	var out []FAQEntry
	for rows.Next() {
		var e FAQEntry
		var keywords string
		if err := rows.Scan(&e.ID, &e.AgentID, &e.Question, &e.Answer, &keywords, &e.UsageCount, &e.Active, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(keywords), &e.Keywords); err != nil {
			e.Keywords = nil
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// --- Usage accounting ---

// IncrementFAQUsage bumps usage_count by one with a blind in-database
// increment, so concurrent matches never lose updates. Inactive entries are
// not touched (their counters are frozen). Returns whether a row changed.
func (s *Store) IncrementFAQUsage(id int64) (bool, error) {
	res, err := s.db.Exec(`
		UPDATE faq_entries
		SET usage_count = usage_count + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND active = 1
	`, id)
	if err != nil {
		return false, fmt.Errorf("increment usage: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// AddUsageLog appends one immutable usage record.
func (s *Store) AddUsageLog(entry *UsageLogEntry) error {
	_, err := s.db.Exec(`
		INSERT INTO faq_usage_log (usage_id, faq_id, agent_id, session_id, source)
		VALUES (?, ?, ?, ?, ?)
	`, entry.UsageID, entry.FAQID, entry.AgentID, entry.SessionID, entry.Source)
	if err != nil {
		return fmt.Errorf("add usage log: %w", err)
	}
	return nil
}

// TopFAQs returns the n most used entries for an agent. Inactive entries are
// included: their history still matters for analytics.
func (s *Store) TopFAQs(agentID string, n int) ([]FAQUsageStat, error) {
	if n <= 0 {
		n = 10
	}
	rows, err := s.db.Query(`
		SELECT id, question, usage_count
		FROM faq_entries WHERE agent_id = ?
		ORDER BY usage_count DESC, id ASC LIMIT ?
	`, agentID, n)
	if err != nil {
		return nil, fmt.Errorf("top faqs: %w", err)
	}
	defer rows.Close()

	var out []FAQUsageStat
	for rows.Next() {
		var st FAQUsageStat
		if err := rows.Scan(&st.FAQID, &st.Question, &st.UsageCount); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// UsageBuckets returns per-day usage counts for the last `days` days.
func (s *Store) UsageBuckets(agentID string, days int) ([]UsageBucket, error) {
	if days <= 0 {
		days = 7
	}
	modifier := fmt.Sprintf("-%d days", days)
	rows, err := s.db.Query(`
		SELECT strftime('%Y-%m-%d', created_at) AS day, COUNT(*)
		FROM faq_usage_log
		WHERE agent_id = ? AND created_at >= datetime('now', ?)
		GROUP BY day ORDER BY day ASC
	`, agentID, modifier)
	if err != nil {
		return nil, fmt.Errorf("usage buckets: %w", err)
	}
	defer rows.Close()

	var out []UsageBucket
	for rows.Next() {
		var b UsageBucket
		if err := rows.Scan(&b.Day, &b.Count); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// CountUsageLogs returns the number of usage records for a FAQ entry.
func (s *Store) CountUsageLogs(faqID int64) (int64, error) {
	var n int64
	err := s.db.QueryRow(`SELECT COUNT(*) FROM faq_usage_log WHERE faq_id = ?`, faqID).Scan(&n)
	return n, err
}

// --- Message log ---

// AddMessageLog appends one message event for operator visibility.
func (s *Store) AddMessageLog(entry *MessageLogEntry) error {
	_, err := s.db.Exec(`
		INSERT INTO message_log (event_id, agent_id, phone_number, direction, content, decision)
		VALUES (?, ?, ?, ?, ?, ?)
	`, entry.EventID, entry.AgentID, entry.PhoneNumber, entry.Direction, entry.Content, entry.Decision)
	if err != nil {
		return fmt.Errorf("add message log: %w", err)
	}
	return nil
}

// ListMessageLog returns message events for a conversation, newest first.
func (s *Store) ListMessageLog(agentID, phoneNumber string, limit, offset int) ([]MessageLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, event_id, agent_id, phone_number, direction, content, COALESCE(decision,''), created_at
		FROM message_log WHERE agent_id = ?`
	args := []any{agentID}
	if phoneNumber != "" {
		query += " AND phone_number = ?"
		args = append(args, phoneNumber)
	}
	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list message log: %w", err)
	}
	defer rows.Close()

	var out []MessageLogEntry
	for rows.Next() {
		var e MessageLogEntry
		if err := rows.Scan(&e.ID, &e.EventID, &e.AgentID, &e.PhoneNumber, &e.Direction, &e.Content, &e.Decision, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// --- Settings ---

// GetSetting returns a setting value by key.
func (s *Store) GetSetting(key string) (string, error) {
	var val string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&val)
	if err != nil {
		return "", err
	}
	return val, nil
}

// SetSetting persists a setting value.
func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, datetime('now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value)
	return err
}

// IsAutoReplyPaused reports whether the platform-wide auto-reply kill switch
// is on. Defaults to false (auto replies enabled).
func (s *Store) IsAutoReplyPaused() bool {
	val, err := s.GetSetting("auto_reply_paused")
	if err != nil {
		return false
	}
	return val == "true"
}
