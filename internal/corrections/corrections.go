// Package corrections accumulates the outcome of every applied or
// reviewed fix so recurring mistakes can be recognized. Aggregated
// patterns are informational today; feeding them back into detector
// thresholds is a deliberate extension point.
package corrections

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/schmelli/gearkeeper/internal/types"
)

// Record captures one concrete correction and how it was received.
type Record struct {
	ID               string          `json:"id"`
	IssueType        types.IssueType `json:"issue_type"`
	OriginalValue    string          `json:"original_value"`
	CorrectedValue   string          `json:"corrected_value"`
	WasApproved      bool            `json:"was_approved"`
	WasAutoFixed     bool            `json:"was_auto_fixed"`
	ConfidenceAtTime float64         `json:"confidence_at_time"`
	SourceChannel    string          `json:"source_channel,omitempty"`
	EntityType       string          `json:"entity_type,omitempty"`
	FieldName        string          `json:"field_name,omitempty"`
	Timestamp        time.Time       `json:"timestamp"`
}

// Pattern is an aggregated view of one original→corrected pair.
type Pattern struct {
	ID            string          `json:"id"`
	SourcePattern string          `json:"source_pattern"`
	TargetPattern string          `json:"target_pattern"`
	IssueType     types.IssueType `json:"issue_type"`
	SourceChannel string          `json:"source_channel,omitempty"`
	Occurrences   int             `json:"occurrences"`
	SuccessRate   float64         `json:"success_rate"`
	CreatedAt     time.Time       `json:"created_at"`
	LastUsedAt    time.Time       `json:"last_used_at,omitempty"`

	approvals int
}

// Recorder keeps correction history and per-pattern aggregates.
// Safe for concurrent use.
type Recorder struct {
	mu       sync.RWMutex
	records  []Record
	patterns map[string]*Pattern // keyed by source|target|type
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{patterns: make(map[string]*Pattern)}
}

// Record stores one correction outcome and folds it into its pattern.
func (r *Recorder) Record(rec Record) Record {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)

	key := rec.OriginalValue + "|" + rec.CorrectedValue + "|" + string(rec.IssueType)
	p, ok := r.patterns[key]
	if !ok {
		p = &Pattern{
			ID:            uuid.NewString(),
			SourcePattern: rec.OriginalValue,
			TargetPattern: rec.CorrectedValue,
			IssueType:     rec.IssueType,
			SourceChannel: rec.SourceChannel,
			CreatedAt:     rec.Timestamp,
		}
		r.patterns[key] = p
	}
	p.Occurrences++
	if rec.WasApproved || rec.WasAutoFixed {
		p.approvals++
	}
	p.SuccessRate = float64(p.approvals) / float64(p.Occurrences)
	p.LastUsedAt = rec.Timestamp

	return rec
}

// RecordFromIssue derives a correction record from an applied issue.
func (r *Recorder) RecordFromIssue(issue *types.Issue, autoFixed bool) Record {
	fix := issue.SuggestedFix
	return r.Record(Record{
		IssueType:        issue.IssueType,
		OriginalValue:    stringify(fix.OldValue),
		CorrectedValue:   stringify(fix.NewValue),
		WasApproved:      !autoFixed,
		WasAutoFixed:     autoFixed,
		ConfidenceAtTime: issue.Confidence,
		SourceChannel:    issue.SourceChannel,
		EntityType:       issue.EntityType,
		FieldName:        fix.TargetField,
	})
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// Records returns a snapshot of all correction records, oldest first.
func (r *Recorder) Records() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

// Patterns returns aggregates with at least minOccurrences hits,
// most frequent first.
func (r *Recorder) Patterns(minOccurrences int) []Pattern {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Pattern
	for _, p := range r.patterns {
		if p.Occurrences >= minOccurrences {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Occurrences != out[j].Occurrences {
			return out[i].Occurrences > out[j].Occurrences
		}
		return out[i].SourcePattern < out[j].SourcePattern
	})
	return out
}
