// Package engine drives the hygiene pipeline: triage entities into the
// priority queue, work through each item's checklist via the
// dispatcher, and keep running counters for status output.
package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/schmelli/gearkeeper/internal/checklist"
	"github.com/schmelli/gearkeeper/internal/dict"
	"github.com/schmelli/gearkeeper/internal/dispatch"
	"github.com/schmelli/gearkeeper/internal/logbook"
	"github.com/schmelli/gearkeeper/internal/metrics"
	"github.com/schmelli/gearkeeper/internal/queue"
	"github.com/schmelli/gearkeeper/internal/store"
)

// Status is the engine's current activity.
type Status string

// Engine statuses.
const (
	StatusIdle       Status = "idle"
	StatusTriaging   Status = "triaging"
	StatusProcessing Status = "processing"
	StatusPaused     Status = "paused"
	StatusError      Status = "error"
)

// DefaultTriageLimit bounds how many entities one triage pass loads.
const DefaultTriageLimit = 100

// Engine owns the processing loop. Safe for concurrent status reads
// while a batch runs; batches themselves run one at a time.
type Engine struct {
	catalog    *store.Catalog
	dicts      *dict.Dictionaries
	queue      *queue.Queue
	dispatcher *dispatch.Dispatcher
	log        *logbook.Logbook
	metrics    *metrics.Collector

	mu             sync.Mutex
	status         Status
	currentItem    string
	lastError      string
	itemsProcessed int
	issuesFound    int
	fixesApplied   int
	paused         bool
}

// New wires an engine. metrics may be nil.
func New(
	catalog *store.Catalog,
	dicts *dict.Dictionaries,
	q *queue.Queue,
	dispatcher *dispatch.Dispatcher,
	log *logbook.Logbook,
	collector *metrics.Collector,
) *Engine {
	return &Engine{
		catalog:    catalog,
		dicts:      dicts,
		queue:      q,
		dispatcher: dispatcher,
		log:        log,
		metrics:    collector,
		status:     StatusIdle,
	}
}

// StatusReport merges engine, queue and logbook state.
type StatusReport struct {
	Status         Status             `json:"status"`
	CurrentItem    string             `json:"current_item,omitempty"`
	LastError      string             `json:"last_error,omitempty"`
	ItemsProcessed int                `json:"items_processed"`
	IssuesFound    int                `json:"issues_found"`
	FixesApplied   int                `json:"fixes_applied"`
	Queue          queue.Statistics   `json:"queue"`
	Logbook        logbook.Statistics `json:"logbook"`
	Metrics        *metrics.Summary   `json:"metrics,omitempty"`
}

// Status returns the engine's current state and counters.
func (e *Engine) Status() StatusReport {
	e.mu.Lock()
	r := StatusReport{
		Status:         e.status,
		CurrentItem:    e.currentItem,
		LastError:      e.lastError,
		ItemsProcessed: e.itemsProcessed,
		IssuesFound:    e.issuesFound,
		FixesApplied:   e.fixesApplied,
	}
	e.mu.Unlock()

	r.Queue = e.queue.Stats()
	r.Logbook = e.log.Stats()
	if e.metrics != nil {
		s := e.metrics.Summarize()
		r.Metrics = &s
	}
	return r
}

// Pause stops batch processing after the current item.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = true
	e.status = StatusPaused
}

// Resume clears a pause.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = false
	if e.status == StatusPaused {
		e.status = StatusIdle
	}
}

func (e *Engine) setStatus(s Status) {
	e.mu.Lock()
	e.status = s
	e.mu.Unlock()
}

func (e *Engine) fail(err error) {
	e.mu.Lock()
	e.status = StatusError
	e.lastError = err.Error()
	e.mu.Unlock()
}

// TriageSummary reports one triage pass.
type TriageSummary struct {
	Total      int            `json:"total"`
	Triaged    int            `json:"triaged"`
	ByPriority map[string]int `json:"by_priority,omitempty"`
}

// TriageAll loads up to limit entities from the catalog and enqueues
// each at the tier its hygiene score earns. Already-queued entities
// keep their place.
func (e *Engine) TriageAll(ctx context.Context, limit int) (TriageSummary, error) {
	if limit <= 0 {
		limit = DefaultTriageLimit
	}
	e.setStatus(StatusTriaging)

	if err := ctx.Err(); err != nil {
		e.fail(err)
		return TriageSummary{}, err
	}

	entities := e.catalog.ListEntities(ctx, "GearItem")
	if len(entities) > limit {
		entities = entities[:limit]
	}
	if len(entities) == 0 {
		e.setStatus(StatusIdle)
		return TriageSummary{}, nil
	}

	results := e.queue.BulkTriage(entities, e.dicts)
	e.setStatus(StatusIdle)
	return TriageSummary{
		Total:      len(entities),
		Triaged:    len(results),
		ByPriority: e.queue.Stats().ByPriority,
	}, nil
}

// ItemResult is the outcome of working through one queue item.
type ItemResult struct {
	EntityID     string             `json:"entity_id"`
	Name         string             `json:"name"`
	Brand        string             `json:"brand"`
	ChecksRun    []string           `json:"checks_run"`
	IssuesFound  []dispatch.Outcome `json:"issues_found,omitempty"`
	FixesApplied []string           `json:"fixes_applied,omitempty"`
}

// ProcessItem runs every remaining check on one queue item and marks
// it completed. The entity is re-read first so later checks see
// earlier fixes.
func (e *Engine) ProcessItem(ctx context.Context, item *queue.Item) ItemResult {
	result := ItemResult{
		EntityID: item.EntityID,
		Name:     item.Entity.Name,
		Brand:    item.Entity.Brand,
	}

	e.mu.Lock()
	e.currentItem = displayName(item.Entity)
	e.mu.Unlock()

	completed := make(map[string]bool, len(item.ChecksCompleted))
	for _, id := range item.ChecksCompleted {
		completed[id] = true
	}

	var issueIDs []string
	for _, checkID := range item.ChecksToRun {
		if completed[checkID] {
			continue
		}
		entity := item.Entity
		if fresh, ok := e.catalog.GetEntity(ctx, item.EntityID); ok {
			entity = fresh
		}

		out := e.dispatcher.RunCheck(ctx, checkID, entity)
		result.ChecksRun = append(result.ChecksRun, checkID)
		item.ChecksCompleted = append(item.ChecksCompleted, checkID)

		if out.IssueFound {
			result.IssuesFound = append(result.IssuesFound, out)
			issueIDs = append(issueIDs, checkID)
		}
		if out.FixApplied {
			result.FixesApplied = append(result.FixesApplied, checkID)
		}
	}

	e.queue.MarkCompleted(item.ID, issueIDs, result.FixesApplied)

	e.mu.Lock()
	e.currentItem = ""
	e.itemsProcessed++
	e.issuesFound += len(result.IssuesFound)
	e.fixesApplied += len(result.FixesApplied)
	e.mu.Unlock()

	return result
}

// ProcessPriorityLevel claims up to batchSize pending items at one
// tier and processes each.
func (e *Engine) ProcessPriorityLevel(ctx context.Context, p checklist.Priority, batchSize int) ([]ItemResult, error) {
	if !p.IsValid() {
		return nil, fmt.Errorf("invalid priority: %d", int(p))
	}
	e.setStatus(StatusProcessing)
	defer e.setStatus(StatusIdle)

	var results []ItemResult
	for _, item := range e.queue.TakeByPriority(p, batchSize) {
		if err := ctx.Err(); err != nil {
			e.fail(err)
			return results, err
		}
		results = append(results, e.ProcessItem(ctx, item))
	}
	return results, nil
}

// Event is one progress update from a streaming batch run.
type Event struct {
	Kind   string      `json:"event"`
	Detail string      `json:"detail"`
	Result *ItemResult `json:"result,omitempty"`
}

// Batch event kinds.
const (
	EventStarted      = "started"
	EventProgress     = "progress"
	EventProcessing   = "processing"
	EventItemComplete = "item_complete"
	EventCompleted    = "completed"
)

// ProcessBatch pulls the next batchSize items off the queue and
// processes each, emitting progress events to onEvent (which may be
// nil). An empty queue is triaged first. Stops early on pause or
// context cancellation.
func (e *Engine) ProcessBatch(ctx context.Context, batchSize int, onEvent func(Event)) ([]ItemResult, error) {
	emit := func(ev Event) {
		if onEvent != nil {
			onEvent(ev)
		}
	}

	e.setStatus(StatusProcessing)
	defer e.setStatus(StatusIdle)

	emit(Event{Kind: EventStarted, Detail: "Loading items"})

	if e.queue.Stats().Pending == 0 {
		emit(Event{Kind: EventProgress, Detail: "Triaging items"})
		if _, err := e.TriageAll(ctx, batchSize*2); err != nil {
			return nil, err
		}
		e.setStatus(StatusProcessing)
	}

	batch := e.queue.NextBatch(batchSize)
	var results []ItemResult
	for i, item := range batch {
		if err := ctx.Err(); err != nil {
			e.fail(err)
			return results, err
		}
		if e.isPaused() {
			for _, rest := range batch[i:] {
				e.queue.Release(rest.ID)
			}
			break
		}

		emit(Event{
			Kind:   EventProcessing,
			Detail: fmt.Sprintf("[%d/%d] %s", i+1, len(batch), displayName(item.Entity)),
		})

		result := e.ProcessItem(ctx, item)
		results = append(results, result)

		emit(Event{
			Kind:   EventItemComplete,
			Detail: "Completed: " + result.Name,
			Result: &result,
		})
	}

	emit(Event{Kind: EventCompleted, Detail: fmt.Sprintf("Processed %d items", len(results))})
	return results, nil
}

func (e *Engine) isPaused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

func displayName(e store.Entity) string {
	if e.Brand != "" {
		return e.Brand + " " + e.Name
	}
	return e.Name
}
