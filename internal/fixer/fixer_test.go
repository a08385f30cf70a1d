package fixer

import (
	"context"
	"strings"
	"testing"

	"github.com/schmelli/gearkeeper/internal/corrections"
	"github.com/schmelli/gearkeeper/internal/store"
	"github.com/schmelli/gearkeeper/internal/store/sqlite"
	"github.com/schmelli/gearkeeper/internal/types"
)

func newTestFixer(t *testing.T) (*Fixer, *store.Catalog, *corrections.Recorder) {
	t.Helper()
	s, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	catalog := store.NewCatalog(s)
	recorder := corrections.NewRecorder()
	return New(catalog, recorder), catalog, recorder
}

func seed(t *testing.T, c *store.Catalog, e store.Entity) {
	t.Helper()
	if e.Kind == "" {
		e.Kind = "GearItem"
	}
	if err := c.CreateEntity(context.Background(), e); err != nil {
		t.Fatal(err)
	}
}

func whitespaceIssue(entityID, oldName, newName string) *types.Issue {
	return types.NewIssue(types.IssueWhitespace, "GearItem", entityID,
		"whitespace in name", types.Fix{
			FixType:          types.FixUpdateField,
			TargetEntityType: "GearItem",
			TargetEntityID:   entityID,
			TargetField:      "name",
			OldValue:         oldName,
			NewValue:         newName,
		}, 0.99)
}

func TestCanAutoFixGate(t *testing.T) {
	f, _, _ := newTestFixer(t)

	if !f.CanAutoFix(whitespaceIssue("1", " Arc Haul", "Arc Haul")) {
		t.Error("clean whitespace fix rejected")
	}

	// Low confidence escalates risk and closes the gate.
	low := whitespaceIssue("1", " Arc Haul", "Arc Haul")
	low.Confidence = 0.5
	if f.CanAutoFix(low) {
		t.Error("low-confidence fix passed the gate")
	}

	// Destructive fixes never auto-apply.
	merge := types.NewIssue(types.IssueDuplicateMerge, "GearItem", "42",
		"duplicate", types.Fix{
			FixType:          types.FixMergeEntities,
			TargetEntityType: "GearItem",
			TargetEntityID:   "42",
			MergeTargetID:    "17",
		}, 0.99)
	if f.CanAutoFix(merge) {
		t.Error("merge passed the auto-fix gate")
	}

	// Only plain field updates are automatable, even at low risk.
	rel := whitespaceIssue("1", "", "")
	rel.SuggestedFix.FixType = types.FixCreateRelationship
	if f.CanAutoFix(rel) {
		t.Error("non-field-update fix passed the gate")
	}
}

func TestApplyFixRefusedWithoutForce(t *testing.T) {
	f, c, _ := newTestFixer(t)
	seed(t, c, store.Entity{ID: "1", Name: " Arc Haul"})

	issue := whitespaceIssue("1", " Arc Haul", "Arc Haul")
	issue.Confidence = 0.5

	result := f.ApplyFix(context.Background(), issue, false)
	if result.Success {
		t.Fatal("gated fix applied")
	}
	if !strings.HasPrefix(result.Message, "Cannot auto-fix") {
		t.Errorf("message = %q", result.Message)
	}
	if issue.Status == types.StatusApproved {
		t.Error("refused fix approved the issue")
	}

	// The same fix applies when forced by an approval.
	if result := f.ApplyFix(context.Background(), issue, true); !result.Success {
		t.Errorf("forced apply failed: %s", result.Message)
	}
}

func TestApplyFieldUpdate(t *testing.T) {
	f, c, rec := newTestFixer(t)
	ctx := context.Background()
	seed(t, c, store.Entity{ID: "1", Name: " Arc Haul", Brand: "Zpacks"})

	issue := whitespaceIssue("1", " Arc Haul", "Arc Haul")
	result := f.ApplyFix(ctx, issue, false)

	if !result.Success || !result.WasAutoFixed || result.AppliedAt == nil {
		t.Fatalf("result = %+v", result)
	}
	if !strings.Contains(result.Message, "Updated name for 'Arc Haul' (Zpacks)") {
		t.Errorf("message = %q", result.Message)
	}
	if e, _ := c.GetEntity(ctx, "1"); e.Name != "Arc Haul" {
		t.Errorf("stored name = %q", e.Name)
	}
	if issue.Status != types.StatusApproved {
		t.Errorf("issue status = %s", issue.Status)
	}
	records := rec.Records()
	if len(records) != 1 || !records[0].WasAutoFixed {
		t.Errorf("correction records = %+v", records)
	}
}

func TestApplyFieldUpdateEntityMissing(t *testing.T) {
	f, _, _ := newTestFixer(t)

	result := f.ApplyFix(context.Background(), whitespaceIssue("404", " x", "x"), false)
	if result.Success || !strings.Contains(result.Message, "Entity not found") {
		t.Errorf("result = %+v", result)
	}
}

func TestApplyBrandStandardization(t *testing.T) {
	f, c, _ := newTestFixer(t)
	ctx := context.Background()
	seed(t, c, store.Entity{ID: "1", Name: "Arc Haul", Brand: "zpacks"})
	seed(t, c, store.Entity{ID: "2", Name: "Duplex", Brand: "zpacks"})
	seed(t, c, store.Entity{ID: "3", Name: "Atmos", Brand: "Osprey"})

	issue := types.NewIssue(types.IssueBrandStandardization, "GearItem", "brand:zpacks",
		"non-canonical brand", types.Fix{
			FixType:          types.FixUpdateField,
			TargetEntityType: "GearItem",
			TargetEntityID:   "brand:zpacks",
			TargetField:      "brand",
			OldValue:         "zpacks",
			NewValue:         "Zpacks",
		}, 0.95)

	result := f.ApplyFix(ctx, issue, true)
	if !result.Success {
		t.Fatalf("result = %+v", result)
	}
	if !strings.Contains(result.Message, "'zpacks' -> 'Zpacks' for 2 items") {
		t.Errorf("message = %q", result.Message)
	}
	for _, id := range []string{"1", "2"} {
		if e, _ := c.GetEntity(ctx, id); e.Brand != "Zpacks" {
			t.Errorf("entity %s brand = %q", id, e.Brand)
		}
	}
	if e, _ := c.GetEntity(ctx, "3"); e.Brand != "Osprey" {
		t.Errorf("unrelated brand touched: %q", e.Brand)
	}

	// A second pass finds nothing left to standardize.
	if result := f.ApplyFix(ctx, issue, true); result.Success ||
		result.Message != "No items found with this brand" {
		t.Errorf("repeat result = %+v", result)
	}
}

func mergeIssue(sourceID, targetID string) *types.Issue {
	return types.NewIssue(types.IssueDuplicateMerge, "GearItem", sourceID,
		"duplicate", types.Fix{
			FixType:          types.FixMergeEntities,
			TargetEntityType: "GearItem",
			TargetEntityID:   sourceID,
			MergeTargetID:    targetID,
		}, 0.90)
}

func TestApplyMerge(t *testing.T) {
	f, c, _ := newTestFixer(t)
	ctx := context.Background()

	seed(t, c, store.Entity{ID: "17", Name: "Duplex Tent", Brand: "Zpacks",
		WeightGrams: 539, PriceUSD: 699})
	seed(t, c, store.Entity{ID: "42", Name: "Duplex  Tent", Brand: "Zpacks"})
	seed(t, c, store.Entity{ID: "v1", Kind: "VideoSource", Name: "review video"})
	if err := c.CreateRelationship(ctx, "42", "EXTRACTED_FROM", "v1"); err != nil {
		t.Fatal(err)
	}

	result := f.ApplyFix(ctx, mergeIssue("42", "17"), true)
	if !result.Success {
		t.Fatalf("merge failed: %s", result.Message)
	}
	if result.WasAutoFixed {
		t.Error("merge reported as auto-fixed")
	}
	if !strings.Contains(result.Message, "Merged 'Duplex  Tent' (Zpacks) into target (id=17)") {
		t.Errorf("message = %q", result.Message)
	}

	if _, ok := c.GetEntity(ctx, "42"); ok {
		t.Error("merge source still exists")
	}
	if count, _, _ := c.RelationshipInfo(ctx, "17"); count != 1 {
		t.Errorf("target relationship count = %d, want 1 (transferred)", count)
	}
}

func TestApplyMergeTargetValidation(t *testing.T) {
	f, c, _ := newTestFixer(t)
	ctx := context.Background()
	seed(t, c, store.Entity{ID: "42", Name: "Duplex  Tent", Brand: "Zpacks"})

	issue := mergeIssue("42", "")
	if result := f.ApplyFix(ctx, issue, true); result.Success ||
		result.Message != "No merge target specified" {
		t.Errorf("result = %+v", result)
	}

	if result := f.ApplyFix(ctx, mergeIssue("42", "404"), true); result.Success ||
		!strings.Contains(result.Message, "Merge target not found") {
		t.Errorf("result = %+v", result)
	}

	// Nothing was deleted by the failed attempts.
	if _, ok := c.GetEntity(ctx, "42"); !ok {
		t.Error("source deleted by failed merge")
	}
}

// brokenDeleteQuerier passes everything through to a real store but
// refuses deletes, simulating a failure between the merge's two steps.
type brokenDeleteQuerier struct {
	store.Querier
}

func (q brokenDeleteQuerier) Exec(ctx context.Context, op store.Op, args map[string]any) bool {
	if op == store.OpDeleteEntity {
		return false
	}
	return q.Querier.Exec(ctx, op, args)
}

// The merge is two steps with no rollback: when the delete fails after
// the transfer, the source survives, its transferable relationships
// already live on the target, and the issue stays retryable.
func TestApplyMergePartialFailure(t *testing.T) {
	s, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	c := store.NewCatalog(brokenDeleteQuerier{s})
	f := New(c, corrections.NewRecorder())
	ctx := context.Background()

	seed(t, c, store.Entity{ID: "17", Name: "Duplex Tent", Brand: "Zpacks",
		WeightGrams: 539, PriceUSD: 699})
	seed(t, c, store.Entity{ID: "42", Name: "Duplex  Tent", Brand: "Zpacks"})
	seed(t, c, store.Entity{ID: "v1", Kind: "VideoSource", Name: "review video"})
	if err := c.CreateRelationship(ctx, "42", "EXTRACTED_FROM", "v1"); err != nil {
		t.Fatal(err)
	}

	issue := mergeIssue("42", "17")
	result := f.ApplyFix(ctx, issue, true)
	if result.Success {
		t.Fatal("merge reported success with a failing delete")
	}
	if !strings.Contains(result.Message, "Merge failed after transferring 1 relationships") {
		t.Errorf("message = %q", result.Message)
	}
	if issue.Status != types.StatusPending {
		t.Errorf("issue status = %s, want pending (retryable)", issue.Status)
	}

	if _, ok := c.GetEntity(ctx, "42"); !ok {
		t.Error("source deleted despite failed merge step")
	}
	if count, _, _ := c.RelationshipInfo(ctx, "17"); count != 1 {
		t.Errorf("target relationship count = %d, want 1 (already transferred)", count)
	}
}

func TestApplyDelete(t *testing.T) {
	f, c, _ := newTestFixer(t)
	ctx := context.Background()
	seed(t, c, store.Entity{ID: "b1", Kind: "OutdoorBrand", Name: "Ghost Brand"})

	issue := types.NewIssue(types.IssueOrphanedNode, "OutdoorBrand", "b1",
		"orphaned brand node", types.Fix{
			FixType:          types.FixDeleteEntity,
			TargetEntityType: "OutdoorBrand",
			TargetEntityID:   "b1",
		}, 0.90)

	result := f.ApplyFix(ctx, issue, true)
	if !result.Success || result.WasAutoFixed {
		t.Fatalf("result = %+v", result)
	}
	if !strings.Contains(result.Message, "Deleted OutdoorBrand 'Ghost Brand' (id=b1)") {
		t.Errorf("message = %q", result.Message)
	}
	if _, ok := c.GetEntity(ctx, "b1"); ok {
		t.Error("entity still exists after delete")
	}
}

func TestUnsupportedFixType(t *testing.T) {
	f, _, _ := newTestFixer(t)

	issue := types.NewIssue(types.IssueCopyrightRewrite, "GearItem", "1",
		"verbatim description", types.Fix{
			FixType:          types.FixRewriteContent,
			TargetEntityType: "GearItem",
			TargetEntityID:   "1",
		}, 0.90)

	result := f.ApplyFix(context.Background(), issue, true)
	if result.Success || result.Message != "Unsupported fix type: rewrite_content" {
		t.Errorf("result = %+v", result)
	}
}

func TestClearInvalidBrand(t *testing.T) {
	f, c, rec := newTestFixer(t)
	ctx := context.Background()
	seed(t, c, store.Entity{ID: "1", Name: "Trail Tent", Brand: "tent"})

	issue := types.NewIssue(types.IssueSpellingVariant, "GearItem", "1",
		"generic brand", types.Fix{
			FixType:          types.FixUpdateField,
			TargetEntityType: "GearItem",
			TargetEntityID:   "1",
			TargetField:      "brand",
			OldValue:         "tent",
			NewValue:         "",
		}, 0.95)

	result := f.ClearInvalidBrand(ctx, issue)
	if !result.Success {
		t.Fatalf("result = %+v", result)
	}
	if !strings.Contains(result.Message, "Cleared invalid brand 'tent' from 'Trail Tent'") {
		t.Errorf("message = %q", result.Message)
	}
	if e, _ := c.GetEntity(ctx, "1"); e.Brand != "" {
		t.Errorf("brand = %q after clear", e.Brand)
	}
	if len(rec.Records()) != 1 {
		t.Errorf("corrections = %d", len(rec.Records()))
	}
}

func TestApplyAutoFixesAndSummary(t *testing.T) {
	f, c, _ := newTestFixer(t)
	ctx := context.Background()
	seed(t, c, store.Entity{ID: "1", Name: " Arc Haul", Brand: "Zpacks"})
	seed(t, c, store.Entity{ID: "2", Name: "Duplex", Brand: "Zpacks"})

	gated := whitespaceIssue("2", "Duplex", "Duplex Tent")
	gated.Confidence = 0.5

	results := f.ApplyAutoFixes(ctx, []*types.Issue{
		whitespaceIssue("1", " Arc Haul", "Arc Haul"),
		gated,
	})
	if len(results) != 1 {
		t.Fatalf("applied %d fixes, want 1", len(results))
	}
	if e, _ := c.GetEntity(ctx, "2"); e.Name != "Duplex" {
		t.Error("gated issue was applied")
	}

	s := f.GetSummary()
	if s.TotalApplied != 1 || s.Successful != 1 || s.AutoFixed != 1 || s.CorrectionsRecorded != 1 {
		t.Errorf("summary = %+v", s)
	}

	// A failed apply lands in the summary too.
	f.ApplyFix(ctx, whitespaceIssue("404", " x", "x"), false)
	s = f.GetSummary()
	if s.TotalApplied != 2 || s.Failed != 1 {
		t.Errorf("summary after failure = %+v", s)
	}
}
