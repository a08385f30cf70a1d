// Package types defines the core data structures for the gearkeeper
// hygiene engine: detected issues, proposed fixes, and the risk policy
// that decides which fixes may be applied without human approval.
package types

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// IssueType categorizes a detected data-quality defect.
type IssueType string

// Issue type constants, grouped by default risk tier.
const (
	// Low risk - auto-fixable
	IssueTypo               IssueType = "typo"
	IssueFormatting         IssueType = "formatting"
	IssueCaseNormalization  IssueType = "case_normalization"
	IssueWhitespace         IssueType = "whitespace"
	IssueSpecialCharCleanup IssueType = "special_char_cleanup"

	// Medium risk - auto-fix with logging
	IssueSpellingVariant      IssueType = "spelling_variant"
	IssueBrandStandardization IssueType = "brand_standardization"
	IssueCategoryInference    IssueType = "category_inference"
	IssueMissingProvenance    IssueType = "missing_provenance"
	IssueIncompleteData       IssueType = "incomplete_data"

	// High risk - requires approval
	IssueDuplicateMerge         IssueType = "duplicate_merge"
	IssueDataDeletion           IssueType = "data_deletion"
	IssueMajorPropertyChange    IssueType = "major_property_change"
	IssueHallucinationDetection IssueType = "hallucination_detection"
	IssueCopyrightRewrite       IssueType = "copyright_rewrite"
	IssueOrphanedNode           IssueType = "orphaned_node"
)

// IsValid checks if the issue type is one of the known variants.
func (t IssueType) IsValid() bool {
	_, ok := defaultRiskLevels[t]
	return ok
}

// RiskLevel classifies whether a fix may be applied automatically.
type RiskLevel string

// Risk level constants.
const (
	RiskLow    RiskLevel = "low"    // Auto-fix silently
	RiskMedium RiskLevel = "medium" // Auto-fix with logging
	RiskHigh   RiskLevel = "high"   // Requires human approval
)

// rank orders risk levels for sorting. Unknown levels sort last.
func (r RiskLevel) rank() int {
	switch r {
	case RiskHigh:
		return 0
	case RiskMedium:
		return 1
	case RiskLow:
		return 2
	}
	return 3
}

// MoreSevereThan reports whether r outranks other.
func (r RiskLevel) MoreSevereThan(other RiskLevel) bool {
	return r.rank() < other.rank()
}

// FixType tags the kind of remediation a Fix describes.
type FixType string

// Fix type constants.
const (
	FixUpdateField        FixType = "update_field"
	FixMergeEntities      FixType = "merge_entities"
	FixDeleteEntity       FixType = "delete_entity"
	FixCreateRelationship FixType = "create_relationship"
	FixDeleteRelationship FixType = "delete_relationship"
	FixRewriteContent     FixType = "rewrite_content"
)

// IsValid checks if the fix type is one of the known variants.
func (f FixType) IsValid() bool {
	switch f {
	case FixUpdateField, FixMergeEntities, FixDeleteEntity,
		FixCreateRelationship, FixDeleteRelationship, FixRewriteContent:
		return true
	}
	return false
}

// IsDestructive reports whether the fix removes or collapses entities.
// Destructive fixes are always HIGH risk regardless of issue type.
func (f FixType) IsDestructive() bool {
	return f == FixDeleteEntity || f == FixMergeEntities
}

// ApprovalStatus tracks the lifecycle of an issue.
type ApprovalStatus string

// Approval status constants.
const (
	StatusPending  ApprovalStatus = "pending"
	StatusApproved ApprovalStatus = "approved"
	StatusRejected ApprovalStatus = "rejected"
	StatusModified ApprovalStatus = "modified" // Approved with modifications
	StatusIgnored  ApprovalStatus = "ignored"  // User chose to ignore
)

// IsValid checks if the approval status is a known value.
func (s ApprovalStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusModified, StatusIgnored:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed from s.
func (s ApprovalStatus) IsTerminal() bool {
	return s != StatusPending
}

// defaultRiskLevels maps each issue type to its base risk tier.
var defaultRiskLevels = map[IssueType]RiskLevel{
	IssueTypo:               RiskLow,
	IssueFormatting:         RiskLow,
	IssueCaseNormalization:  RiskLow,
	IssueWhitespace:         RiskLow,
	IssueSpecialCharCleanup: RiskLow,

	IssueSpellingVariant:      RiskMedium,
	IssueBrandStandardization: RiskMedium,
	IssueCategoryInference:    RiskMedium,
	IssueMissingProvenance:    RiskLow,
	IssueIncompleteData:       RiskLow,

	IssueDuplicateMerge:         RiskHigh,
	IssueDataDeletion:           RiskHigh,
	IssueMajorPropertyChange:    RiskHigh,
	IssueHallucinationDetection: RiskHigh,
	IssueCopyrightRewrite:       RiskHigh,
	IssueOrphanedNode:           RiskHigh,
}

// defaultThresholds holds the per-type confidence bar for auto-fixing.
var defaultThresholds = map[IssueType]float64{
	IssueTypo:               0.90,
	IssueFormatting:         0.95,
	IssueCaseNormalization:  0.95,
	IssueWhitespace:         0.99,
	IssueSpecialCharCleanup: 0.95,

	IssueSpellingVariant:      0.90,
	IssueBrandStandardization: 0.85,
	IssueCategoryInference:    0.80,
	IssueMissingProvenance:    0.95,
	IssueIncompleteData:       0.95,

	IssueDuplicateMerge:         0.95,
	IssueDataDeletion:           0.99,
	IssueMajorPropertyChange:    0.90,
	IssueHallucinationDetection: 0.90,
	IssueCopyrightRewrite:       0.85,
	IssueOrphanedNode:           0.95,
}

// confidenceEscalationFloor is the confidence below which an issue's
// risk escalates one tier (LOW becomes MEDIUM, everything else HIGH).
const confidenceEscalationFloor = 0.80

// DefaultRiskLevel returns the base risk tier for an issue type.
// Unknown types default to HIGH.
func DefaultRiskLevel(t IssueType) RiskLevel {
	if r, ok := defaultRiskLevels[t]; ok {
		return r
	}
	return RiskHigh
}

// AutoFixThreshold returns the confidence bar an issue of the given
// type must clear before it may be applied automatically.
func AutoFixThreshold(t IssueType) float64 {
	if v, ok := defaultThresholds[t]; ok {
		return v
	}
	return 0.95
}

// Fix is a proposed remediation for a hygiene issue. Which fields are
// meaningful depends on FixType: UpdateField uses TargetField/OldValue/
// NewValue, MergeEntities uses MergeTargetID, the rest only address
// TargetEntityID. A Fix is immutable once attached to an Issue.
type Fix struct {
	FixType          FixType `json:"fix_type"`
	TargetEntityType string  `json:"target_entity_type"`
	TargetEntityID   string  `json:"target_entity_id"`
	TargetField      string  `json:"target_field,omitempty"`
	OldValue         any     `json:"old_value,omitempty"`
	NewValue         any     `json:"new_value,omitempty"`
	MergeTargetID    string  `json:"merge_target_id,omitempty"`
	Confidence       float64 `json:"confidence"`
	Reasoning        string  `json:"reasoning,omitempty"`
}

// Issue is a detected data-quality defect with its proposed fix.
// RiskLevel and CanAutoFix are computed, never stored: recomputing
// them at every decision point closes the window between detection
// and application.
type Issue struct {
	ID            string         `json:"id"`
	IssueType     IssueType      `json:"issue_type"`
	EntityType    string         `json:"entity_type"`
	EntityID      string         `json:"entity_id"`
	Description   string         `json:"description"`
	SuggestedFix  Fix            `json:"suggested_fix"`
	Confidence    float64        `json:"confidence"`
	SourceChannel string         `json:"source_channel,omitempty"`
	DetectedAt    time.Time      `json:"detected_at"`
	Status        ApprovalStatus `json:"status"`
}

// NewIssue creates a pending issue with a fresh id and timestamp.
func NewIssue(t IssueType, entityType, entityID, description string, fix Fix, confidence float64) *Issue {
	return &Issue{
		ID:           uuid.NewString(),
		IssueType:    t,
		EntityType:   entityType,
		EntityID:     entityID,
		Description:  description,
		SuggestedFix: fix,
		Confidence:   confidence,
		DetectedAt:   time.Now(),
		Status:       StatusPending,
	}
}

// RiskLevel computes the effective risk tier for this issue.
//
// The tier starts from the issue type's default, escalates when
// confidence drops below 0.80, and is forced to HIGH for destructive
// fix types. The result is never lower than the base tier.
func (i *Issue) RiskLevel() RiskLevel {
	// Destructive operations are always HIGH, whatever the
	// confidence says.
	if i.SuggestedFix.FixType.IsDestructive() {
		return RiskHigh
	}

	base := DefaultRiskLevel(i.IssueType)

	// Low confidence always escalates at least one tier.
	if i.Confidence < confidenceEscalationFloor {
		if base == RiskLow {
			return RiskMedium
		}
		return RiskHigh
	}

	return base
}

// CanAutoFix reports whether this issue may be applied without human
// approval: the risk tier must be LOW and the confidence must clear
// the per-type threshold. This is the single policy gate for all
// automatic writes.
func (i *Issue) CanAutoFix() bool {
	return i.RiskLevel() == RiskLow && i.Confidence >= AutoFixThreshold(i.IssueType)
}

// Transition moves the issue to a new approval status. Only pending
// issues may transition; every other status is terminal.
func (i *Issue) Transition(to ApprovalStatus) error {
	if !to.IsValid() {
		return fmt.Errorf("invalid approval status: %s", to)
	}
	if i.Status.IsTerminal() {
		return fmt.Errorf("issue %s is already %s", i.ID, i.Status)
	}
	if to == StatusPending {
		return fmt.Errorf("cannot transition back to pending")
	}
	i.Status = to
	return nil
}

// Validate checks that the issue has usable field values.
func (i *Issue) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("id is required")
	}
	if !i.IssueType.IsValid() {
		return fmt.Errorf("invalid issue type: %s", i.IssueType)
	}
	if i.EntityID == "" {
		return fmt.Errorf("entity_id is required")
	}
	if i.Confidence < 0 || i.Confidence > 1 {
		return fmt.Errorf("confidence must be in [0,1] (got %g)", i.Confidence)
	}
	if !i.SuggestedFix.FixType.IsValid() {
		return fmt.Errorf("invalid fix type: %s", i.SuggestedFix.FixType)
	}
	if i.SuggestedFix.FixType == FixMergeEntities && i.SuggestedFix.MergeTargetID == "" {
		return fmt.Errorf("merge fixes require merge_target_id")
	}
	if i.Status != "" && !i.Status.IsValid() {
		return fmt.Errorf("invalid status: %s", i.Status)
	}
	return nil
}

// SortIssues orders issues for review: highest risk first, and within
// a risk tier the least certain findings first.
func SortIssues(issues []*Issue) {
	sort.SliceStable(issues, func(a, b int) bool {
		ra, rb := issues[a].RiskLevel().rank(), issues[b].RiskLevel().rank()
		if ra != rb {
			return ra < rb
		}
		return issues[a].Confidence < issues[b].Confidence
	})
}
