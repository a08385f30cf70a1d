// Package logbook records every check evaluation the engine makes.
// The log is append-only: entries are never rewritten in place, and
// the only permitted state change is a reviewer resolving a flagged
// entry, which appends a superseding line.
package logbook

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

// Decision is the outcome recorded for one check evaluation.
type Decision string

// Decision values.
const (
	DecisionAutoFixed Decision = "auto_fixed"
	DecisionFlagged   Decision = "flagged"
	DecisionSkipped   Decision = "skipped"
	DecisionNoIssue   Decision = "no_issue"
	DecisionApproved  Decision = "approved"
	DecisionRejected  Decision = "rejected"
	DecisionDeferred  Decision = "deferred"
)

// IsValid checks if the decision is a known value.
func (d Decision) IsValid() bool {
	switch d {
	case DecisionAutoFixed, DecisionFlagged, DecisionSkipped,
		DecisionNoIssue, DecisionApproved, DecisionRejected, DecisionDeferred:
		return true
	}
	return false
}

// Action is what kind of work the entry records.
type Action string

// Action values.
const (
	ActionCheck       Action = "check"
	ActionFixApplied  Action = "fix_applied"
	ActionFixProposed Action = "fix_proposed"
	ActionResearch    Action = "research"
	ActionContext     Action = "context"
)

// Entry is one logbook line.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`

	EntityType  string `json:"entity_type"`
	EntityID    string `json:"entity_id"`
	EntityName  string `json:"entity_name,omitempty"`
	EntityBrand string `json:"entity_brand,omitempty"`

	CheckID   string `json:"check_id"`
	CheckName string `json:"check_name,omitempty"`
	Priority  int    `json:"priority,omitempty"`

	Decision Decision `json:"decision"`
	Action   Action   `json:"action"`

	Reasoning  string   `json:"reasoning"`
	Confidence float64  `json:"confidence"`
	Evidence   []string `json:"evidence,omitempty"`

	FixType  string `json:"fix_type,omitempty"`
	Field    string `json:"field,omitempty"`
	OldValue any    `json:"old_value,omitempty"`
	NewValue any    `json:"new_value,omitempty"`

	ReviewedBy  string     `json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
	ReviewNotes string     `json:"review_notes,omitempty"`
}

// ErrEntryNotFound is returned by MarkReviewed for unknown ids.
var ErrEntryNotFound = errors.New("logbook entry not found")

// Logbook is the decision log. All entries live in memory; when a
// path is configured every append also lands in the JSONL file,
// guarded by an advisory lock so concurrent invocations interleave
// whole lines.
type Logbook struct {
	mu      sync.RWMutex
	entries []Entry
	byID    map[string]int // id -> index of latest entry version

	path        string
	lock        *flock.Flock
	writeErrors int
	sessionID   string
}

// Open creates a logbook. With a non-empty path it replays every
// existing line first; a later line with an id seen before supersedes
// the earlier one (that is how reviews persist without rewrites).
func Open(path string) (*Logbook, error) {
	lb := &Logbook{
		byID:      make(map[string]int),
		path:      path,
		sessionID: uuid.NewString()[:8],
	}
	if path == "" {
		return lb, nil
	}
	lb.lock = flock.New(path + ".lock")

	f, err := os.Open(path) // #nosec G304 - controlled path from config
	if os.IsNotExist(err) {
		return lb, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening logbook: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("parsing logbook line %d: %w", lineNo, err)
		}
		lb.replay(e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading logbook: %w", err)
	}
	return lb, nil
}

func (lb *Logbook) replay(e Entry) {
	if idx, ok := lb.byID[e.ID]; ok {
		lb.entries[idx] = e
		return
	}
	lb.byID[e.ID] = len(lb.entries)
	lb.entries = append(lb.entries, e)
}

// SessionID identifies this logbook session in exports.
func (lb *Logbook) SessionID() string {
	return lb.sessionID
}

// Append records a new entry. Missing id/timestamp/action fields are
// filled in. A persistence failure is counted and returned, but the
// entry is always kept in memory: losing the audit line is an error
// worth surfacing, not a reason to halt the run.
func (lb *Logbook) Append(e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if e.CheckName == "" {
		e.CheckName = e.CheckID
	}
	if e.Action == "" {
		switch e.Decision {
		case DecisionAutoFixed:
			e.Action = ActionFixApplied
		case DecisionFlagged:
			e.Action = ActionFixProposed
		default:
			e.Action = ActionCheck
		}
	}

	lb.mu.Lock()
	defer lb.mu.Unlock()
	lb.replay(e)
	if err := lb.persist(e); err != nil {
		lb.writeErrors++
		return e, fmt.Errorf("persisting logbook entry: %w", err)
	}
	return e, nil
}

func (lb *Logbook) persist(e Entry) error {
	if lb.path == "" {
		return nil
	}
	if err := lb.lock.Lock(); err != nil {
		return err
	}
	defer lb.lock.Unlock()

	f, err := os.OpenFile(lb.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) // #nosec G304
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = f.Write(append(data, '\n'))
	return err
}

// WriteErrors returns how many appends failed to persist.
func (lb *Logbook) WriteErrors() int {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	return lb.writeErrors
}

// Entries returns a snapshot of all entries in replay order.
func (lb *Logbook) Entries() []Entry {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	out := make([]Entry, len(lb.entries))
	copy(out, lb.entries)
	return out
}

// ForEntity returns all entries for one entity.
func (lb *Logbook) ForEntity(entityID string) []Entry {
	return lb.filter(func(e Entry) bool { return e.EntityID == entityID })
}

// ByDecision returns all entries with the given decision.
func (lb *Logbook) ByDecision(d Decision) []Entry {
	return lb.filter(func(e Entry) bool { return e.Decision == d })
}

// ByCheck returns all entries for one check id.
func (lb *Logbook) ByCheck(checkID string) []Entry {
	return lb.filter(func(e Entry) bool { return e.CheckID == checkID })
}

// PendingReviews returns flagged entries nobody has resolved yet.
func (lb *Logbook) PendingReviews() []Entry {
	return lb.filter(func(e Entry) bool {
		return e.Decision == DecisionFlagged && e.ReviewedAt == nil
	})
}

// AutoFixed returns all auto-fix entries.
func (lb *Logbook) AutoFixed() []Entry {
	return lb.filter(func(e Entry) bool { return e.Decision == DecisionAutoFixed })
}

func (lb *Logbook) filter(keep func(Entry) bool) []Entry {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	var out []Entry
	for _, e := range lb.entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// MarkReviewed resolves a flagged entry. This is the only permitted
// state change: the entry moves to approved or rejected, stamped with
// the reviewer's identity, and the superseding version is appended to
// the file.
func (lb *Logbook) MarkReviewed(entryID, reviewer string, approved bool, notes string) (Entry, error) {
	if reviewer == "" {
		return Entry{}, errors.New("reviewer identity is required")
	}

	lb.mu.Lock()
	defer lb.mu.Unlock()

	idx, ok := lb.byID[entryID]
	if !ok {
		return Entry{}, ErrEntryNotFound
	}
	e := lb.entries[idx]
	if e.Decision != DecisionFlagged {
		return Entry{}, fmt.Errorf("entry %s is %s, only flagged entries can be reviewed", entryID, e.Decision)
	}

	now := time.Now()
	e.ReviewedBy = reviewer
	e.ReviewedAt = &now
	e.ReviewNotes = notes
	if approved {
		e.Decision = DecisionApproved
	} else {
		e.Decision = DecisionRejected
	}

	lb.entries[idx] = e
	if err := lb.persist(e); err != nil {
		lb.writeErrors++
		return e, fmt.Errorf("persisting review: %w", err)
	}
	return e, nil
}

// Statistics summarizes the log.
type Statistics struct {
	SessionID      string         `json:"session_id"`
	TotalEntries   int            `json:"total_entries"`
	ByDecision     map[string]int `json:"by_decision"`
	ByCheck        map[string]int `json:"by_check"`
	ByPriority     map[int]int    `json:"by_priority"`
	PendingReviews int            `json:"pending_reviews"`
	AutoFixed      int            `json:"auto_fixed"`
	WriteErrors    int            `json:"write_errors,omitempty"`
}

// Stats computes summary statistics over all entries.
func (lb *Logbook) Stats() Statistics {
	lb.mu.RLock()
	defer lb.mu.RUnlock()

	s := Statistics{
		SessionID:    lb.sessionID,
		TotalEntries: len(lb.entries),
		ByDecision:   make(map[string]int),
		ByCheck:      make(map[string]int),
		ByPriority:   make(map[int]int),
		WriteErrors:  lb.writeErrors,
	}
	for _, e := range lb.entries {
		s.ByDecision[string(e.Decision)]++
		s.ByCheck[e.CheckID]++
		s.ByPriority[e.Priority]++
		if e.Decision == DecisionFlagged && e.ReviewedAt == nil {
			s.PendingReviews++
		}
		if e.Decision == DecisionAutoFixed {
			s.AutoFixed++
		}
	}
	return s
}
