// Package dispatch routes checklist checks to their handlers and
// applies the per-tier decision policy: instant checks auto-apply,
// judgment checks follow the oracle's recommendation, context and
// deep checks flag for review, research checks act only on found
// evidence. Every evaluation lands in the logbook.
package dispatch

import (
	"context"
	"fmt"

	"github.com/schmelli/gearkeeper/internal/checklist"
	"github.com/schmelli/gearkeeper/internal/dict"
	"github.com/schmelli/gearkeeper/internal/fixer"
	"github.com/schmelli/gearkeeper/internal/logbook"
	"github.com/schmelli/gearkeeper/internal/oracle"
	"github.com/schmelli/gearkeeper/internal/scanner"
	"github.com/schmelli/gearkeeper/internal/store"
	"github.com/schmelli/gearkeeper/internal/types"
)

// Outcome is the result of running one check against one entity.
type Outcome struct {
	CheckID     string         `json:"check_id"`
	IssueFound  bool           `json:"issue_found"`
	FixApplied  bool           `json:"fix_applied"`
	NeedsReview bool           `json:"needs_review"`
	Confidence  float64        `json:"confidence,omitempty"`
	Reasoning   string         `json:"reasoning,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	Error       string         `json:"error,omitempty"`
}

type handlerFunc func(context.Context, store.Entity) Outcome

// Dispatcher owns the closed check-id to handler table. Adding a
// check means registering it here; unknown ids are an error, never a
// silent skip.
type Dispatcher struct {
	catalog  *store.Catalog
	dicts    *dict.Dictionaries
	scan     *scanner.Scanner
	judge    oracle.JudgmentOracle
	research oracle.ResearchOracle
	fix      *fixer.Fixer
	log      *logbook.Logbook

	handlers map[string]handlerFunc
}

// New wires a dispatcher. judge and research may be nil; their checks
// then record skipped decisions.
func New(
	catalog *store.Catalog,
	dicts *dict.Dictionaries,
	scan *scanner.Scanner,
	judge oracle.JudgmentOracle,
	research oracle.ResearchOracle,
	fix *fixer.Fixer,
	log *logbook.Logbook,
) *Dispatcher {
	d := &Dispatcher{
		catalog:  catalog,
		dicts:    dicts,
		scan:     scan,
		judge:    judge,
		research: research,
		fix:      fix,
		log:      log,
	}
	d.handlers = map[string]handlerFunc{
		// P1 instant
		"whitespace_check": d.runWhitespace,
		"case_check":       d.runCaseNormalization,
		// P2 judgment
		"brand_in_name": d.runNameRedundancy,
		"invalid_brand": d.runBrandValidity,
		// P3 context
		"brand_exists":        d.runBrandExists,
		"potential_duplicate": d.runDuplicateCheck,
		"transcription_error": d.runTranscription,
		// P4 research
		"verify_brand":   d.runVerifyBrand,
		"missing_weight": d.runMissingWeight,
		"missing_price":  d.runMissingPrice,
		// P5 deep
		"orphaned_node":      d.runOrphanedNode,
		"missing_provenance": d.runProvenance,
		"data_completeness":  d.runCompleteness,
		"copyright_concern":  d.runCopyright,
	}
	return d
}

// RunCheck executes one check against an entity. Handler failures are
// reported in the outcome; only an unknown check id is an error here.
func (d *Dispatcher) RunCheck(ctx context.Context, checkID string, e store.Entity) Outcome {
	h, ok := d.handlers[checkID]
	if !ok {
		return Outcome{
			CheckID: checkID,
			Error:   fmt.Sprintf("unknown check: %s", checkID),
		}
	}
	return h(ctx, e)
}

// HasHandler reports whether a check id is registered.
func (d *Dispatcher) HasHandler(checkID string) bool {
	_, ok := d.handlers[checkID]
	return ok
}

func (d *Dispatcher) logDecision(e store.Entity, checkID string, dec logbook.Decision, reasoning string, conf float64, fx *types.Fix) {
	entry := logbook.Entry{
		EntityType:  e.Kind,
		EntityID:    e.ID,
		EntityName:  e.Name,
		EntityBrand: e.Brand,
		CheckID:     checkID,
		Decision:    dec,
		Reasoning:   reasoning,
		Confidence:  conf,
	}
	if item, ok := checklist.ByID(checkID); ok {
		entry.CheckName = item.Name
		entry.Priority = int(item.Priority)
	}
	if fx != nil {
		entry.FixType = string(fx.FixType)
		entry.Field = fx.TargetField
		entry.OldValue = fx.OldValue
		entry.NewValue = fx.NewValue
	}
	// Persistence failures are counted by the logbook itself.
	d.log.Append(entry) //nolint:errcheck
}

func noIssue(checkID, reasoning string, conf float64) Outcome {
	return Outcome{CheckID: checkID, Reasoning: reasoning, Confidence: conf}
}

func flagged(checkID, reasoning string, conf float64) Outcome {
	return Outcome{
		CheckID:     checkID,
		IssueFound:  true,
		NeedsReview: true,
		Reasoning:   reasoning,
		Confidence:  conf,
	}
}

func skipped(checkID, reasoning string) Outcome {
	return Outcome{CheckID: checkID, Reasoning: reasoning}
}
