// Package queue schedules entities for hygiene processing. Dirtier
// and cheaper-to-fix items come out first: the heap key combines the
// priority tier with the entity's hygiene score.
package queue

import (
	"container/heap"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/schmelli/gearkeeper/internal/checklist"
	"github.com/schmelli/gearkeeper/internal/store"
)

// ItemStatus tracks a queue item's lifecycle.
type ItemStatus string

// Item statuses.
const (
	StatusPending    ItemStatus = "pending"
	StatusInProgress ItemStatus = "in_progress"
	StatusCompleted  ItemStatus = "completed"
	StatusDeferred   ItemStatus = "deferred"
	StatusFailed     ItemStatus = "failed"
)

// Item is one entity scheduled for processing.
type Item struct {
	ID         string       `json:"id"`
	EntityType string       `json:"entity_type"`
	EntityID   string       `json:"entity_id"`
	Entity     store.Entity `json:"entity"`

	Priority        checklist.Priority `json:"priority"`
	ChecksToRun     []string           `json:"checks_to_run"`
	ChecksCompleted []string           `json:"checks_completed"`

	Status      ItemStatus `json:"status"`
	AddedAt     time.Time  `json:"added_at"`
	StartedAt   time.Time  `json:"started_at,omitempty"`
	CompletedAt time.Time  `json:"completed_at,omitempty"`

	IssuesFound  []string `json:"issues_found,omitempty"`
	FixesApplied []string `json:"fixes_applied,omitempty"`

	// HygieneScore estimates cleanliness: 1.0 is clean, 0.0 is a mess.
	HygieneScore float64 `json:"hygiene_score"`

	// sortKey freezes the heap position at push time. Re-prioritizing
	// pushes a fresh reference instead of re-keying in place; stale
	// heap entries are skipped on pop.
	sortKey int
}

func sortKey(p checklist.Priority, score float64) int {
	return int(p)*1000 + int(score*100+0.5)
}

// itemHeap orders by sortKey ascending, insertion order breaking ties.
type itemHeap []*heapEntry

type heapEntry struct {
	item *Item
	key  int
	seq  int
}

func (h itemHeap) Len() int { return len(h) }
func (h itemHeap) Less(i, j int) bool {
	if h[i].key != h[j].key {
		return h[i].key < h[j].key
	}
	return h[i].seq < h[j].seq
}
func (h itemHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *itemHeap) Push(x any)        { *h = append(*h, x.(*heapEntry)) }
func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// Queue is the priority-ordered work queue. Safe for concurrent use.
type Queue struct {
	mu          sync.Mutex
	heap        itemHeap
	itemsByID   map[string]*Item
	entityIndex map[string]string // entity id -> queue item id
	seq         int
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{
		itemsByID:   make(map[string]*Item),
		entityIndex: make(map[string]string),
	}
}

// Add schedules an entity at the given priority. Adding an entity
// that is already queued is a no-op returning the existing item.
// ChecksToRun covers every tier up to and including the priority.
func (q *Queue) Add(e store.Entity, priority checklist.Priority, score float64) *Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.addLocked(e, priority, score)
}

func (q *Queue) addLocked(e store.Entity, priority checklist.Priority, score float64) *Item {
	if existingID, ok := q.entityIndex[e.ID]; ok {
		return q.itemsByID[existingID]
	}

	var checks []string
	for _, c := range checklist.All() {
		if c.Priority <= priority {
			checks = append(checks, c.ID)
		}
	}

	kind := e.Kind
	if kind == "" {
		kind = "GearItem"
	}
	item := &Item{
		ID:           uuid.NewString(),
		EntityType:   kind,
		EntityID:     e.ID,
		Entity:       e,
		Priority:     priority,
		ChecksToRun:  checks,
		Status:       StatusPending,
		AddedAt:      time.Now(),
		HygieneScore: score,
		sortKey:      sortKey(priority, score),
	}

	q.pushLocked(item)
	q.itemsByID[item.ID] = item
	q.entityIndex[e.ID] = item.ID
	return item
}

func (q *Queue) pushLocked(item *Item) {
	q.seq++
	heap.Push(&q.heap, &heapEntry{item: item, key: item.sortKey, seq: q.seq})
}

// Next pops the highest-priority pending item and marks it in
// progress. Entries whose item has moved on (completed, failed, or
// re-queued under a different key) are discarded as they surface.
// Returns nil when nothing is pending.
func (q *Queue) Next() *Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.heap.Len() > 0 {
		e := heap.Pop(&q.heap).(*heapEntry)
		item := e.item
		if item.Status != StatusPending {
			continue
		}
		if e.key != item.sortKey {
			// Stale entry from before a re-prioritization.
			continue
		}
		item.Status = StatusInProgress
		item.StartedAt = time.Now()
		return item
	}
	return nil
}

// NextBatch pops up to n items.
func (q *Queue) NextBatch(n int) []*Item {
	var items []*Item
	for len(items) < n {
		item := q.Next()
		if item == nil {
			break
		}
		items = append(items, item)
	}
	return items
}

// TakeByPriority claims up to n pending items at exactly the given
// tier, cleanest-scored last. Claimed items are marked in progress.
func (q *Queue) TakeByPriority(p checklist.Priority, n int) []*Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	var matched []*Item
	for _, item := range q.itemsByID {
		if item.Status == StatusPending && item.Priority == p {
			matched = append(matched, item)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].HygieneScore != matched[j].HygieneScore {
			return matched[i].HygieneScore < matched[j].HygieneScore
		}
		return matched[i].AddedAt.Before(matched[j].AddedAt)
	})
	if len(matched) > n {
		matched = matched[:n]
	}
	for _, item := range matched {
		item.Status = StatusInProgress
		item.StartedAt = time.Now()
	}
	return matched
}

// ByEntityID returns the queue item for an entity, or nil.
func (q *Queue) ByEntityID(entityID string) *Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	if id, ok := q.entityIndex[entityID]; ok {
		return q.itemsByID[id]
	}
	return nil
}

// MarkCompleted finalizes an item, recording what was found and fixed.
// Unknown ids are ignored.
func (q *Queue) MarkCompleted(itemID string, issues, fixes []string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	item, ok := q.itemsByID[itemID]
	if !ok {
		return
	}
	item.Status = StatusCompleted
	item.CompletedAt = time.Now()
	if len(issues) > 0 {
		item.IssuesFound = issues
	}
	if len(fixes) > 0 {
		item.FixesApplied = fixes
	}
}

// MarkFailed marks an item failed. Unknown ids are ignored.
func (q *Queue) MarkFailed(itemID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if item, ok := q.itemsByID[itemID]; ok {
		item.Status = StatusFailed
	}
}

// Release returns an in-progress item to pending at its current tier.
// Unknown ids are ignored.
func (q *Queue) Release(itemID string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	item, ok := q.itemsByID[itemID]
	if !ok || item.Status != StatusInProgress {
		return
	}
	item.Status = StatusPending
	q.pushLocked(item)
}

// Defer pushes an item back at a cheaper (higher-numbered) tier.
func (q *Queue) Defer(itemID string, to checklist.Priority) {
	q.mu.Lock()
	defer q.mu.Unlock()

	item, ok := q.itemsByID[itemID]
	if !ok {
		return
	}
	item.Status = StatusPending
	item.Priority = to
	item.sortKey = sortKey(to, item.HygieneScore)
	q.pushLocked(item)
}

// Escalate moves an item to a more urgent tier and extends its check
// set with that tier's checks.
func (q *Queue) Escalate(itemID string, to checklist.Priority) {
	q.mu.Lock()
	defer q.mu.Unlock()

	item, ok := q.itemsByID[itemID]
	if !ok {
		return
	}

	have := make(map[string]bool, len(item.ChecksToRun))
	for _, id := range item.ChecksToRun {
		have[id] = true
	}
	for _, id := range checklist.IDsForPriority(to) {
		if !have[id] {
			item.ChecksToRun = append(item.ChecksToRun, id)
		}
	}

	item.Priority = to
	item.sortKey = sortKey(to, item.HygieneScore)
	item.Status = StatusPending
	q.pushLocked(item)
}

// Statistics summarizes queue state for status output.
type Statistics struct {
	TotalItems   int            `json:"total_items"`
	Pending      int            `json:"pending"`
	ByStatus     map[string]int `json:"by_status"`
	ByPriority   map[string]int `json:"by_priority"`
	IssuesFound  int            `json:"total_issues_found"`
	FixesApplied int            `json:"total_fixes_applied"`
}

// Stats computes current queue statistics.
func (q *Queue) Stats() Statistics {
	q.mu.Lock()
	defer q.mu.Unlock()

	s := Statistics{
		TotalItems: len(q.itemsByID),
		ByStatus:   make(map[string]int),
		ByPriority: make(map[string]int),
	}
	for _, item := range q.itemsByID {
		s.ByStatus[string(item.Status)]++
		s.ByPriority[fmt.Sprintf("P%d", int(item.Priority))]++
		if item.Status == StatusPending {
			s.Pending++
		}
		s.IssuesFound += len(item.IssuesFound)
		s.FixesApplied += len(item.FixesApplied)
	}
	return s
}
