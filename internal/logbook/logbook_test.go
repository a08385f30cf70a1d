package logbook

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testEntry(entityID, checkID string, d Decision) Entry {
	return Entry{
		EntityType: "GearItem",
		EntityID:   entityID,
		EntityName: "Arc Haul",
		CheckID:    checkID,
		Decision:   d,
		Reasoning:  "test reasoning",
		Confidence: 0.9,
	}
}

func TestAppendFillsDefaults(t *testing.T) {
	lb, err := Open("")
	if err != nil {
		t.Fatal(err)
	}

	e, err := lb.Append(testEntry("1", "whitespace_check", DecisionAutoFixed))
	if err != nil {
		t.Fatal(err)
	}
	if e.ID == "" || e.Timestamp.IsZero() {
		t.Errorf("entry = %+v", e)
	}
	if e.Action != ActionFixApplied {
		t.Errorf("action = %s, want fix_applied", e.Action)
	}
	if e.CheckName != "whitespace_check" {
		t.Errorf("check name = %q", e.CheckName)
	}

	e, _ = lb.Append(testEntry("1", "brand_in_name", DecisionFlagged))
	if e.Action != ActionFixProposed {
		t.Errorf("flagged action = %s", e.Action)
	}
	e, _ = lb.Append(testEntry("1", "case_check", DecisionNoIssue))
	if e.Action != ActionCheck {
		t.Errorf("no-issue action = %s", e.Action)
	}
}

func TestPersistAndReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logbook.jsonl")

	lb, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := lb.Append(testEntry("1", "whitespace_check", DecisionAutoFixed)); err != nil {
		t.Fatal(err)
	}
	flagged, err := lb.Append(testEntry("2", "brand_in_name", DecisionFlagged))
	if err != nil {
		t.Fatal(err)
	}

	// Reopen and verify replay.
	lb2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := len(lb2.Entries()); got != 2 {
		t.Fatalf("replayed %d entries, want 2", got)
	}
	if got := lb2.ForEntity("2"); len(got) != 1 || got[0].ID != flagged.ID {
		t.Errorf("ForEntity(2) = %+v", got)
	}
}

func TestMarkReviewed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logbook.jsonl")
	lb, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}

	flagged, _ := lb.Append(testEntry("1", "brand_in_name", DecisionFlagged))
	fixed, _ := lb.Append(testEntry("2", "whitespace_check", DecisionAutoFixed))

	if got := lb.PendingReviews(); len(got) != 1 {
		t.Fatalf("pending = %d, want 1", len(got))
	}

	reviewed, err := lb.MarkReviewed(flagged.ID, "alex", true, "looks right")
	if err != nil {
		t.Fatal(err)
	}
	if reviewed.Decision != DecisionApproved || reviewed.ReviewedBy != "alex" || reviewed.ReviewedAt == nil {
		t.Errorf("reviewed = %+v", reviewed)
	}
	if got := lb.PendingReviews(); len(got) != 0 {
		t.Errorf("pending after review = %d", len(got))
	}

	// Only flagged entries are reviewable.
	if _, err := lb.MarkReviewed(fixed.ID, "alex", false, ""); err == nil {
		t.Error("reviewing an auto-fixed entry succeeded")
	}
	if _, err := lb.MarkReviewed("nope", "alex", true, ""); err != ErrEntryNotFound {
		t.Errorf("unknown id err = %v", err)
	}
	if _, err := lb.MarkReviewed(flagged.ID, "", true, ""); err == nil {
		t.Error("review without reviewer identity succeeded")
	}

	// The review survives a reopen: the superseding line wins.
	lb2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := len(lb2.Entries()); got != 2 {
		t.Fatalf("reopened entries = %d, want 2 (superseded, not duplicated)", got)
	}
	replayed := lb2.ForEntity("1")[0]
	if replayed.Decision != DecisionApproved || replayed.ReviewedBy != "alex" {
		t.Errorf("replayed review = %+v", replayed)
	}
}

func TestRejectReview(t *testing.T) {
	lb, _ := Open("")
	flagged, _ := lb.Append(testEntry("1", "invalid_brand", DecisionFlagged))

	reviewed, err := lb.MarkReviewed(flagged.ID, "sam", false, "this brand is real")
	if err != nil {
		t.Fatal(err)
	}
	if reviewed.Decision != DecisionRejected || reviewed.ReviewNotes != "this brand is real" {
		t.Errorf("reviewed = %+v", reviewed)
	}
	// A resolved entry cannot be re-reviewed.
	if _, err := lb.MarkReviewed(flagged.ID, "sam", true, ""); err == nil {
		t.Error("double review succeeded")
	}
}

func TestWriteErrorsSurfaced(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logbook.jsonl")
	lb, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}

	// Replace the file path's directory with a dead end.
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}

	if _, err := lb.Append(testEntry("1", "case_check", DecisionNoIssue)); err == nil {
		t.Fatal("append into a missing directory succeeded")
	}
	if lb.WriteErrors() != 1 {
		t.Errorf("write errors = %d, want 1", lb.WriteErrors())
	}
	// The entry is still queryable in memory.
	if len(lb.ForEntity("1")) != 1 {
		t.Error("entry lost after persistence failure")
	}
}

func TestQueriesAndStats(t *testing.T) {
	lb, _ := Open("")
	lb.Append(testEntry("1", "whitespace_check", DecisionAutoFixed))
	lb.Append(testEntry("1", "case_check", DecisionNoIssue))
	lb.Append(testEntry("2", "brand_in_name", DecisionFlagged))
	lb.Append(testEntry("3", "brand_in_name", DecisionFlagged))

	if got := lb.ForEntity("1"); len(got) != 2 {
		t.Errorf("ForEntity(1) = %d entries", len(got))
	}
	if got := lb.ByDecision(DecisionFlagged); len(got) != 2 {
		t.Errorf("ByDecision(flagged) = %d", len(got))
	}
	if got := lb.ByCheck("brand_in_name"); len(got) != 2 {
		t.Errorf("ByCheck = %d", len(got))
	}
	if got := lb.AutoFixed(); len(got) != 1 {
		t.Errorf("AutoFixed = %d", len(got))
	}

	s := lb.Stats()
	if s.TotalEntries != 4 || s.PendingReviews != 2 || s.AutoFixed != 1 {
		t.Errorf("stats = %+v", s)
	}
	if s.ByDecision["flagged"] != 2 || s.ByCheck["case_check"] != 1 {
		t.Errorf("stats maps = %+v", s)
	}
}

func TestExports(t *testing.T) {
	lb, _ := Open("")
	e := testEntry("1", "whitespace_check", DecisionAutoFixed)
	e.EntityBrand = "Zpacks"
	e.FixType = "update_field"
	e.OldValue = " Arc Haul"
	e.NewValue = "Arc Haul"
	lb.Append(e)

	out, err := lb.ExportJSON()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"whitespace_check"`) {
		t.Errorf("JSON export missing entry: %s", out)
	}

	md := lb.ExportMarkdown()
	for _, want := range []string{"# Hygiene Decision Log", "## Arc Haul (Zpacks)", "auto_fixed", "` -> `"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown export missing %q:\n%s", want, md)
		}
	}
}
