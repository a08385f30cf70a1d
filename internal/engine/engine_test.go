package engine

import (
	"context"
	"testing"

	"github.com/schmelli/gearkeeper/internal/checklist"
	"github.com/schmelli/gearkeeper/internal/corrections"
	"github.com/schmelli/gearkeeper/internal/dict"
	"github.com/schmelli/gearkeeper/internal/dispatch"
	"github.com/schmelli/gearkeeper/internal/fixer"
	"github.com/schmelli/gearkeeper/internal/logbook"
	"github.com/schmelli/gearkeeper/internal/metrics"
	"github.com/schmelli/gearkeeper/internal/oracle"
	"github.com/schmelli/gearkeeper/internal/queue"
	"github.com/schmelli/gearkeeper/internal/scanner"
	"github.com/schmelli/gearkeeper/internal/store"
	"github.com/schmelli/gearkeeper/internal/store/sqlite"
)

type stubResearch struct{}

func (stubResearch) VerifyBrand(context.Context, string) (oracle.BrandVerification, error) {
	return oracle.BrandVerification{Verified: true, Result: "valid", Confidence: 0.9}, nil
}

func (stubResearch) ResearchWeight(context.Context, string, string) (oracle.WeightResult, error) {
	return oracle.WeightResult{Message: "Weight not found in search results"}, nil
}

func (stubResearch) ResearchPrice(context.Context, string, string) (oracle.PriceResult, error) {
	return oracle.PriceResult{Message: "Price not found in search results"}, nil
}

type testRig struct {
	engine  *Engine
	catalog *store.Catalog
	queue   *queue.Queue
	log     *logbook.Logbook
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()
	s, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	catalog := store.NewCatalog(s)
	dicts := dict.Default()
	lb, err := logbook.Open("")
	if err != nil {
		t.Fatal(err)
	}
	q := queue.New()
	d := dispatch.New(
		catalog,
		dicts,
		scanner.New(catalog, dicts),
		oracle.NewRuleJudge(catalog, dicts),
		stubResearch{},
		fixer.New(catalog, corrections.NewRecorder()),
		lb,
	)
	eng := New(catalog, dicts, q, d, lb, metrics.NewCollector())
	return &testRig{engine: eng, catalog: catalog, queue: q, log: lb}
}

func (r *testRig) seed(t *testing.T, e store.Entity) store.Entity {
	t.Helper()
	if e.Kind == "" {
		e.Kind = "GearItem"
	}
	if err := r.catalog.CreateEntity(context.Background(), e); err != nil {
		t.Fatal(err)
	}
	return e
}

func TestTriageAll(t *testing.T) {
	r := newTestRig(t)
	ctx := context.Background()
	r.seed(t, store.Entity{ID: "1", Name: "Arc Haul", Brand: "Zpacks"})
	r.seed(t, store.Entity{ID: "2", Name: " messy  tent ", Brand: "tent"})

	sum, err := r.engine.TriageAll(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Total != 2 || sum.Triaged != 2 {
		t.Errorf("summary = %+v", sum)
	}
	if stats := r.queue.Stats(); stats.Pending != 2 {
		t.Errorf("pending = %d", stats.Pending)
	}

	// Re-triage keeps existing queue items.
	sum, err = r.engine.TriageAll(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if stats := r.queue.Stats(); stats.TotalItems != 2 {
		t.Errorf("items after re-triage = %d", stats.TotalItems)
	}
	if got := r.engine.Status().Status; got != StatusIdle {
		t.Errorf("status = %s", got)
	}
}

func TestTriageAllLimit(t *testing.T) {
	r := newTestRig(t)
	for _, id := range []string{"1", "2", "3"} {
		r.seed(t, store.Entity{ID: id, Name: "Item " + id, Brand: "Zpacks"})
	}
	sum, err := r.engine.TriageAll(context.Background(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Total != 2 {
		t.Errorf("total = %d, want limit applied", sum.Total)
	}
}

func TestProcessItem(t *testing.T) {
	r := newTestRig(t)
	ctx := context.Background()
	r.seed(t, store.Entity{ID: "1", Name: " Arc  Haul ", Brand: "zpacks"})

	if _, err := r.engine.TriageAll(ctx, 0); err != nil {
		t.Fatal(err)
	}
	item := r.queue.Next()
	if item == nil {
		t.Fatal("queue empty after triage")
	}

	result := r.engine.ProcessItem(ctx, item)
	if len(result.ChecksRun) != len(item.ChecksToRun) {
		t.Errorf("checks run = %v, want all of %v", result.ChecksRun, item.ChecksToRun)
	}
	if len(result.FixesApplied) == 0 {
		t.Error("expected whitespace and case fixes to apply")
	}
	if item.Status != queue.StatusCompleted {
		t.Errorf("item status = %s", item.Status)
	}

	e, ok := r.catalog.GetEntity(ctx, "1")
	if !ok || e.Name != "Arc Haul" || e.Brand != "Zpacks" {
		t.Errorf("entity after processing = %+v", e)
	}

	report := r.engine.Status()
	if report.ItemsProcessed != 1 {
		t.Errorf("items processed = %d", report.ItemsProcessed)
	}
	if report.FixesApplied != len(result.FixesApplied) {
		t.Errorf("fixes applied = %d", report.FixesApplied)
	}
	if report.Logbook.TotalEntries == 0 {
		t.Error("no logbook entries written")
	}
}

func TestProcessItemSkipsCompletedChecks(t *testing.T) {
	r := newTestRig(t)
	ctx := context.Background()
	r.seed(t, store.Entity{ID: "1", Name: "Arc Haul", Brand: "Zpacks"})

	if _, err := r.engine.TriageAll(ctx, 0); err != nil {
		t.Fatal(err)
	}
	item := r.queue.Next()
	item.ChecksCompleted = append([]string{}, item.ChecksToRun...)

	result := r.engine.ProcessItem(ctx, item)
	if len(result.ChecksRun) != 0 {
		t.Errorf("checks run = %v, want none", result.ChecksRun)
	}
}

func TestProcessPriorityLevel(t *testing.T) {
	r := newTestRig(t)
	ctx := context.Background()
	// Generic brand and messy name score poorly enough for P2.
	r.seed(t, store.Entity{ID: "1", Name: " tent  shelter ", Brand: "tent"})

	if _, err := r.engine.TriageAll(ctx, 0); err != nil {
		t.Fatal(err)
	}
	item := r.queue.ByEntityID("1")
	if item == nil {
		t.Fatal("entity not queued")
	}

	results, err := r.engine.ProcessPriorityLevel(ctx, item.Priority, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d", len(results))
	}

	if _, err := r.engine.ProcessPriorityLevel(ctx, checklist.Priority(9), 10); err == nil {
		t.Error("invalid priority accepted")
	}
}

func TestProcessBatchTriagesEmptyQueue(t *testing.T) {
	r := newTestRig(t)
	ctx := context.Background()
	r.seed(t, store.Entity{ID: "1", Name: "Arc Haul", Brand: "Zpacks"})

	var kinds []string
	results, err := r.engine.ProcessBatch(ctx, 5, func(ev Event) {
		kinds = append(kinds, ev.Kind)
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d", len(results))
	}

	if kinds[0] != EventStarted || kinds[len(kinds)-1] != EventCompleted {
		t.Errorf("event sequence = %v", kinds)
	}
	var sawProcessing, sawItemComplete bool
	for _, k := range kinds {
		switch k {
		case EventProcessing:
			sawProcessing = true
		case EventItemComplete:
			sawItemComplete = true
		}
	}
	if !sawProcessing || !sawItemComplete {
		t.Errorf("event sequence = %v", kinds)
	}
}

func TestPauseStopsBatch(t *testing.T) {
	r := newTestRig(t)
	ctx := context.Background()
	r.seed(t, store.Entity{ID: "1", Name: "Arc Haul", Brand: "Zpacks"})
	if _, err := r.engine.TriageAll(ctx, 0); err != nil {
		t.Fatal(err)
	}

	r.engine.Pause()
	results, err := r.engine.ProcessBatch(ctx, 5, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("paused engine processed %d items", len(results))
	}

	r.engine.Resume()
	results, err = r.engine.ProcessBatch(ctx, 5, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Errorf("resumed engine processed %d items", len(results))
	}
}

func TestCancelledContext(t *testing.T) {
	r := newTestRig(t)
	r.seed(t, store.Entity{ID: "1", Name: "Arc Haul", Brand: "Zpacks"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.engine.TriageAll(ctx, 0); err == nil {
		t.Error("cancelled triage succeeded")
	}
	report := r.engine.Status()
	if report.Status != StatusError {
		t.Errorf("status = %s", report.Status)
	}
	if report.LastError == "" {
		t.Error("last error not recorded")
	}
}
