package queue

import (
	"strings"

	"github.com/schmelli/gearkeeper/internal/checklist"
	"github.com/schmelli/gearkeeper/internal/dict"
	"github.com/schmelli/gearkeeper/internal/store"
)

// TriageResult reports where one entity landed during bulk triage.
type TriageResult struct {
	Item      *Item
	Score     float64
	Penalties []string
}

// BulkTriage scores a set of entities and enqueues each at the tier
// its score earns. Already-queued entities keep their existing item.
func (q *Queue) BulkTriage(entities []store.Entity, d *dict.Dictionaries) []TriageResult {
	q.mu.Lock()
	defer q.mu.Unlock()

	results := make([]TriageResult, 0, len(entities))
	for _, e := range entities {
		score, penalties := InitialScore(e, d)
		item := q.addLocked(e, tierForScore(score), score)
		results = append(results, TriageResult{Item: item, Score: score, Penalties: penalties})
	}
	return results
}

// tierForScore maps a hygiene score to a starting priority: the worse
// the data, the sooner and cheaper the work starts.
func tierForScore(score float64) checklist.Priority {
	switch {
	case score < 0.3:
		return checklist.P2Quick
	case score < 0.6:
		return checklist.P3Context
	case score < 0.8:
		return checklist.P4Research
	default:
		return checklist.P5Deep
	}
}

// InitialScore estimates cleanliness from the entity alone, without
// any store or oracle calls. Penalties are additive; the result is
// clamped to [0,1]. Higher means cleaner.
func InitialScore(e store.Entity, d *dict.Dictionaries) (float64, []string) {
	score := 1.0
	var penalties []string

	penalize := func(amount float64, reason string) {
		score -= amount
		penalties = append(penalties, reason)
	}

	if e.Name != strings.TrimSpace(e.Name) || strings.Contains(e.Name, "  ") {
		penalize(0.1, "whitespace")
	}
	if e.Brand == "" {
		penalize(0.2, "no_brand")
	}
	if d.IsGenericTerm(e.Brand) {
		penalize(0.3, "generic_brand")
	}
	// Brand word inside the name: light penalty, a handler decides
	// later whether it is actually redundant.
	if e.Brand != "" && strings.Contains(strings.ToLower(e.Name), strings.ToLower(e.Brand)) {
		penalize(0.05, "brand_in_name_candidate")
	}
	if e.WeightGrams == 0 {
		penalize(0.1, "no_weight")
	}
	if e.Description == "" {
		penalize(0.1, "no_description")
	}
	if e.Category == "" {
		penalize(0.05, "no_category")
	}
	if e.HasRelationships() {
		score += 0.1
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score, penalties
}
