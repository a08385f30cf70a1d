// Package metrics aggregates counters for the hygiene system: issue
// counts from scans, fix and review rates, learned-pattern activity
// and catalog-wide data-quality gauges.
package metrics

import (
	"sync"
	"time"

	"github.com/schmelli/gearkeeper/internal/fixer"
	"github.com/schmelli/gearkeeper/internal/types"
)

// Snapshot is a point-in-time copy of every tracked metric.
type Snapshot struct {
	// Issue counts from the most recent scan.
	TotalIssuesDetected int            `json:"total_issues_detected"`
	IssuesByType        map[string]int `json:"issues_by_type"`
	IssuesByRisk        map[string]int `json:"issues_by_risk"`

	// Fix rates.
	AutoFixedCount       int `json:"auto_fixed_count"`
	PendingApprovalCount int `json:"pending_approval_count"`
	ApprovedCount        int `json:"approved_count"`
	RejectedCount        int `json:"rejected_count"`

	// Learning activity.
	PatternsLearned      int `json:"patterns_learned"`
	PatternMatches       int `json:"pattern_matches"`
	ThresholdAdjustments int `json:"threshold_adjustments"`

	// Data quality gauges.
	AvgCompletenessScore float64 `json:"avg_completeness_score"`
	ProvenanceCoverage   float64 `json:"provenance_coverage"`
	DuplicateEstimate    int     `json:"duplicate_estimate"`
	OrphanCount          int     `json:"orphan_count"`

	// Copyright handling.
	FlaggedDescriptions int `json:"flagged_descriptions"`
	RewrittenCount      int `json:"rewritten_count"`

	LastScanAt *time.Time `json:"last_scan_at,omitempty"`
	LastFixAt  *time.Time `json:"last_fix_at,omitempty"`
}

// DataQuality is the gauge block of a summary.
type DataQuality struct {
	AvgCompleteness     float64 `json:"avg_completeness"`
	ProvenanceCoverage  float64 `json:"provenance_coverage"`
	EstimatedDuplicates int     `json:"estimated_duplicates"`
	OrphanedNodes       int     `json:"orphaned_nodes"`
}

// Summary is the condensed report shown by the status command.
type Summary struct {
	TotalIssues       int            `json:"total_issues"`
	IssuesByRisk      map[string]int `json:"issues_by_risk"`
	PendingApproval   int            `json:"pending_approval"`
	TotalFixesApplied int            `json:"total_fixes_applied"`
	AutoFixRate       float64        `json:"auto_fix_rate"`
	ApprovalRate      float64        `json:"approval_rate"`
	RejectionRate     float64        `json:"rejection_rate"`
	PatternsLearned   int            `json:"patterns_learned"`
	DataQuality       DataQuality    `json:"data_quality"`
	CopyrightFlagged  int            `json:"copyright_flagged"`
	CopyrightRewrites int            `json:"copyright_rewrites"`
}

// Collector accumulates metrics. Safe for concurrent use.
type Collector struct {
	mu sync.Mutex
	m  Snapshot
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{m: Snapshot{
		IssuesByType: map[string]int{},
		IssuesByRisk: map[string]int{},
	}}
}

// RecordScan replaces the issue-count gauges with the findings of a
// fresh scan. Counts are absolute, not cumulative: each scan reflects
// the catalog as it stands.
func (c *Collector) RecordScan(issues []*types.Issue) {
	byType := map[string]int{}
	byRisk := map[string]int{"low": 0, "medium": 0, "high": 0}
	pending := 0
	for _, issue := range issues {
		byType[string(issue.IssueType)]++
		byRisk[string(issue.RiskLevel())]++
		if !issue.CanAutoFix() {
			pending++
		}
	}

	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m.TotalIssuesDetected = len(issues)
	c.m.IssuesByType = byType
	c.m.IssuesByRisk = byRisk
	c.m.PendingApprovalCount = pending
	c.m.LastScanAt = &now
}

// RecordFix counts a successful fix as auto-fixed or approved; failed
// fixes are not counted.
func (c *Collector) RecordFix(r fixer.Result) {
	if !r.Success {
		return
	}
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if r.WasAutoFixed {
		c.m.AutoFixedCount++
	} else {
		c.m.ApprovedCount++
	}
	c.m.LastFixAt = &now
}

// RecordRejection counts a reviewer declining a fix.
func (c *Collector) RecordRejection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m.RejectedCount++
}

// RecordPatternLearned counts a newly learned correction pattern.
func (c *Collector) RecordPatternLearned() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m.PatternsLearned++
}

// RecordPatternMatch counts a correction pattern firing.
func (c *Collector) RecordPatternMatch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m.PatternMatches++
}

// RecordThresholdAdjustment counts a confidence threshold change.
func (c *Collector) RecordThresholdAdjustment() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m.ThresholdAdjustments++
}

// SetDataQuality replaces the catalog-wide quality gauges.
func (c *Collector) SetDataQuality(avgCompleteness, provenanceCoverage float64, duplicateEstimate, orphanCount int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m.AvgCompletenessScore = avgCompleteness
	c.m.ProvenanceCoverage = provenanceCoverage
	c.m.DuplicateEstimate = duplicateEstimate
	c.m.OrphanCount = orphanCount
}

// SetCopyright replaces the copyright gauges.
func (c *Collector) SetCopyright(flagged, rewritten int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m.FlaggedDescriptions = flagged
	c.m.RewrittenCount = rewritten
}

// Metrics returns a copy of the current metrics. The maps in the copy
// are the caller's own.
func (c *Collector) Metrics() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.m
	out.IssuesByType = copyMap(c.m.IssuesByType)
	out.IssuesByRisk = copyMap(c.m.IssuesByRisk)
	return out
}

// Summarize condenses the metrics into review-centric rates. The
// approval and rejection rates are fractions of all reviewed
// decisions; the auto-fix rate is the fraction of applied fixes that
// needed no reviewer.
func (c *Collector) Summarize() Summary {
	m := c.Metrics()

	totalFixes := m.AutoFixedCount + m.ApprovedCount
	totalDecisions := totalFixes + m.RejectedCount

	s := Summary{
		TotalIssues:       m.TotalIssuesDetected,
		IssuesByRisk:      m.IssuesByRisk,
		PendingApproval:   m.PendingApprovalCount,
		TotalFixesApplied: totalFixes,
		PatternsLearned:   m.PatternsLearned,
		DataQuality: DataQuality{
			AvgCompleteness:     m.AvgCompletenessScore,
			ProvenanceCoverage:  m.ProvenanceCoverage,
			EstimatedDuplicates: m.DuplicateEstimate,
			OrphanedNodes:       m.OrphanCount,
		},
		CopyrightFlagged:  m.FlaggedDescriptions,
		CopyrightRewrites: m.RewrittenCount,
	}
	if totalFixes > 0 {
		s.AutoFixRate = float64(m.AutoFixedCount) / float64(totalFixes)
	}
	if totalDecisions > 0 {
		s.ApprovalRate = float64(m.ApprovedCount) / float64(totalDecisions)
		s.RejectionRate = float64(m.RejectedCount) / float64(totalDecisions)
	}
	return s
}

func copyMap(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
