// Package fixer applies remediations for hygiene issues. Low-risk
// field updates can be applied automatically; everything else needs
// an approval upstream and is applied with force.
package fixer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/schmelli/gearkeeper/internal/corrections"
	"github.com/schmelli/gearkeeper/internal/store"
	"github.com/schmelli/gearkeeper/internal/types"
)

// brandPrefix marks synthetic entity ids that address every item of
// one brand rather than a single node.
const brandPrefix = "brand:"

// Result is the outcome of one fix application.
type Result struct {
	Success      bool         `json:"success"`
	Issue        *types.Issue `json:"-"`
	IssueID      string       `json:"issue_id"`
	IssueType    string       `json:"issue_type"`
	Message      string       `json:"message"`
	WasAutoFixed bool         `json:"was_auto_fixed"`
	AppliedAt    *time.Time   `json:"applied_at,omitempty"`
}

// Fixer applies fixes against the catalog and records every applied
// correction for the learning loop.
type Fixer struct {
	catalog  *store.Catalog
	recorder *corrections.Recorder

	mu      sync.Mutex
	history []Result
}

// New creates a fixer. recorder may be nil when correction history is
// not wanted.
func New(catalog *store.Catalog, recorder *corrections.Recorder) *Fixer {
	return &Fixer{catalog: catalog, recorder: recorder}
}

// CanAutoFix reports whether an issue may be applied without human
// approval: low risk, above its confidence threshold, and a plain
// field update.
func (f *Fixer) CanAutoFix(issue *types.Issue) bool {
	if issue.RiskLevel() != types.RiskLow {
		return false
	}
	if !issue.CanAutoFix() {
		return false
	}
	return issue.SuggestedFix.FixType == types.FixUpdateField
}

// ApplyFix applies the suggested fix for an issue. The auto-fix gate
// is re-checked at apply time; force bypasses it for fixes a reviewer
// has approved. On success the correction is recorded and the issue
// moves to approved.
func (f *Fixer) ApplyFix(ctx context.Context, issue *types.Issue, force bool) Result {
	if !force && !f.CanAutoFix(issue) {
		return f.remember(failure(issue, fmt.Sprintf(
			"Cannot auto-fix: risk level is %s, confidence is %.0f%%",
			issue.RiskLevel(), issue.Confidence*100)))
	}

	var result Result
	switch issue.SuggestedFix.FixType {
	case types.FixUpdateField:
		result = f.applyFieldUpdate(ctx, issue)
	case types.FixMergeEntities:
		result = f.applyMerge(ctx, issue)
	case types.FixDeleteEntity:
		result = f.applyDelete(ctx, issue)
	default:
		result = failure(issue, fmt.Sprintf("Unsupported fix type: %s", issue.SuggestedFix.FixType))
	}

	if result.Success {
		if f.recorder != nil {
			f.recorder.RecordFromIssue(issue, result.WasAutoFixed)
		}
		issue.Status = types.StatusApproved
	}
	return f.remember(result)
}

func (f *Fixer) applyFieldUpdate(ctx context.Context, issue *types.Issue) Result {
	fix := issue.SuggestedFix

	if strings.HasPrefix(fix.TargetEntityID, brandPrefix) {
		oldBrand := strings.TrimPrefix(fix.TargetEntityID, brandPrefix)
		newBrand, _ := fix.NewValue.(string)
		return f.applyBrandStandardization(ctx, issue, oldBrand, newBrand)
	}

	if err := f.catalog.UpdateField(ctx, fix.TargetEntityID, fix.TargetField, fix.NewValue); err != nil {
		if errors.Is(err, store.ErrEntityNotFound) {
			return failure(issue, fmt.Sprintf("Entity not found: %s id=%s",
				fix.TargetEntityType, fix.TargetEntityID))
		}
		return failure(issue, fmt.Sprintf("Store error: %v", err))
	}

	name, brand := fix.TargetEntityID, ""
	if e, ok := f.catalog.GetEntity(ctx, fix.TargetEntityID); ok {
		name, brand = e.Name, e.Brand
	}
	return success(issue, fmt.Sprintf("Updated %s for '%s' (%s): '%v' -> '%v'",
		fix.TargetField, name, brand, fix.OldValue, fix.NewValue), issue.CanAutoFix())
}

func (f *Fixer) applyBrandStandardization(ctx context.Context, issue *types.Issue, oldBrand, newBrand string) Result {
	count, err := f.catalog.StandardizeBrand(ctx, oldBrand, newBrand)
	if err != nil {
		return failure(issue, fmt.Sprintf("Store error: %v", err))
	}
	if count == 0 {
		return failure(issue, "No items found with this brand")
	}
	return success(issue, fmt.Sprintf("Standardized brand '%s' -> '%s' for %d items",
		oldBrand, newBrand, count), true)
}

// applyMerge folds a duplicate into its canonical entity: transfer
// the transferable relationships, then delete the source. The two
// steps are not atomic; a crash in between leaves the source without
// transferred relationships, which the next orphan scan surfaces.
func (f *Fixer) applyMerge(ctx context.Context, issue *types.Issue) Result {
	fix := issue.SuggestedFix
	if fix.MergeTargetID == "" {
		return failure(issue, "No merge target specified")
	}
	if _, ok := f.catalog.GetEntity(ctx, fix.MergeTargetID); !ok {
		return failure(issue, fmt.Sprintf("Merge target not found: id=%s", fix.MergeTargetID))
	}

	transferred := f.catalog.TransferRelationships(ctx, fix.TargetEntityID, fix.MergeTargetID)

	name, brand := "Unknown", ""
	if e, ok := f.catalog.GetEntity(ctx, fix.TargetEntityID); ok {
		name, brand = e.Name, e.Brand
	}
	if err := f.catalog.DeleteEntity(ctx, fix.TargetEntityID); err != nil {
		return failure(issue, fmt.Sprintf("Merge failed after transferring %d relationships: %v",
			transferred, err))
	}

	// Merges are never auto-fixed.
	return success(issue, fmt.Sprintf("Merged '%s' (%s) into target (id=%s)",
		name, brand, fix.MergeTargetID), false)
}

func (f *Fixer) applyDelete(ctx context.Context, issue *types.Issue) Result {
	fix := issue.SuggestedFix

	name := "Unknown"
	if e, ok := f.catalog.GetEntity(ctx, fix.TargetEntityID); ok {
		name = e.Name
	}
	if err := f.catalog.DeleteEntity(ctx, fix.TargetEntityID); err != nil {
		return failure(issue, fmt.Sprintf("Delete failed: %v", err))
	}

	// Deletes are never auto-fixed.
	return success(issue, fmt.Sprintf("Deleted %s '%s' (id=%s)",
		fix.TargetEntityType, name, fix.TargetEntityID), false)
}

// ClearInvalidBrand blanks a generic or bogus brand value on one
// entity. A narrow fix the dispatcher applies on a clear_brand
// judgment.
func (f *Fixer) ClearInvalidBrand(ctx context.Context, issue *types.Issue) Result {
	name, err := f.catalog.ClearBrand(ctx, issue.SuggestedFix.TargetEntityID)
	if err != nil {
		if errors.Is(err, store.ErrEntityNotFound) {
			return f.remember(failure(issue, fmt.Sprintf("Entity not found: id=%s",
				issue.SuggestedFix.TargetEntityID)))
		}
		return f.remember(failure(issue, fmt.Sprintf("Store error: %v", err)))
	}

	result := success(issue, fmt.Sprintf("Cleared invalid brand '%v' from '%s'",
		issue.SuggestedFix.OldValue, name), true)
	if f.recorder != nil {
		f.recorder.RecordFromIssue(issue, true)
	}
	issue.Status = types.StatusApproved
	return f.remember(result)
}

// ApplyAutoFixes applies every issue in the list that passes the
// auto-fix gate, in order.
func (f *Fixer) ApplyAutoFixes(ctx context.Context, issues []*types.Issue) []Result {
	var results []Result
	for _, issue := range issues {
		if f.CanAutoFix(issue) {
			results = append(results, f.ApplyFix(ctx, issue, false))
		}
	}
	return results
}

// Summary aggregates fix history.
type Summary struct {
	TotalApplied        int `json:"total_applied"`
	Successful          int `json:"successful"`
	Failed              int `json:"failed"`
	AutoFixed           int `json:"auto_fixed"`
	CorrectionsRecorded int `json:"corrections_recorded"`
}

// GetSummary summarizes everything applied through this fixer.
func (f *Fixer) GetSummary() Summary {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := Summary{TotalApplied: len(f.history)}
	for _, r := range f.history {
		if r.Success {
			s.Successful++
			if r.WasAutoFixed {
				s.AutoFixed++
			}
		} else {
			s.Failed++
		}
	}
	if f.recorder != nil {
		s.CorrectionsRecorded = len(f.recorder.Records())
	}
	return s
}

// History returns a snapshot of all fix results, oldest first.
func (f *Fixer) History() []Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Result, len(f.history))
	copy(out, f.history)
	return out
}

func (f *Fixer) remember(r Result) Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = append(f.history, r)
	return r
}

func failure(issue *types.Issue, message string) Result {
	return Result{
		Issue:     issue,
		IssueID:   issue.ID,
		IssueType: string(issue.IssueType),
		Message:   message,
	}
}

func success(issue *types.Issue, message string, autoFixed bool) Result {
	now := time.Now()
	return Result{
		Success:      true,
		Issue:        issue,
		IssueID:      issue.ID,
		IssueType:    string(issue.IssueType),
		Message:      message,
		WasAutoFixed: autoFixed,
		AppliedAt:    &now,
	}
}
