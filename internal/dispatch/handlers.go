package dispatch

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/schmelli/gearkeeper/internal/logbook"
	"github.com/schmelli/gearkeeper/internal/oracle"
	"github.com/schmelli/gearkeeper/internal/scanner"
	"github.com/schmelli/gearkeeper/internal/store"
	"github.com/schmelli/gearkeeper/internal/types"
)

// fieldFix is one proposed field rewrite from an instant check.
type fieldFix struct {
	Field string
	Old   string
	New   string
}

// applyInstant runs the P1 policy: apply every proposed fix through
// the auto-fix gate, logging each application or refusal.
func (d *Dispatcher) applyInstant(ctx context.Context, e store.Entity, checkID string, issueType types.IssueType, conf float64, fixes []fieldFix) Outcome {
	if len(fixes) == 0 {
		d.logDecision(e, checkID, logbook.DecisionNoIssue, "No issues found", 1.0, nil)
		return noIssue(checkID, "No issues found", 1.0)
	}

	out := Outcome{CheckID: checkID, IssueFound: true, Confidence: conf}
	for _, fx := range fixes {
		issue := types.NewIssue(issueType, e.Kind, e.ID,
			fmt.Sprintf("%s: '%s' -> '%s'", fx.Field, fx.Old, fx.New),
			types.Fix{
				FixType:          types.FixUpdateField,
				TargetEntityType: e.Kind,
				TargetEntityID:   e.ID,
				TargetField:      fx.Field,
				OldValue:         fx.Old,
				NewValue:         fx.New,
				Confidence:       conf,
			}, conf)

		result := d.fix.ApplyFix(ctx, issue, false)
		if result.Success {
			out.FixApplied = true
			out.Reasoning = result.Message
			d.logDecision(e, checkID, logbook.DecisionAutoFixed, result.Message, conf, &issue.SuggestedFix)
		} else {
			out.NeedsReview = true
			out.Reasoning = result.Message
			d.logDecision(e, checkID, logbook.DecisionFlagged, result.Message, conf, &issue.SuggestedFix)
		}
	}
	return out
}

func (d *Dispatcher) runWhitespace(ctx context.Context, e store.Entity) Outcome {
	var fixes []fieldFix
	for _, f := range []fieldFix{
		{Field: "name", Old: e.Name},
		{Field: "brand", Old: e.Brand},
	} {
		cleaned := strings.Join(strings.Fields(f.Old), " ")
		if cleaned != f.Old && cleaned != "" {
			f.New = cleaned
			fixes = append(fixes, f)
		}
	}
	return d.applyInstant(ctx, e, "whitespace_check", types.IssueWhitespace, 1.0, fixes)
}

func (d *Dispatcher) runCaseNormalization(ctx context.Context, e store.Entity) Outcome {
	var fixes []fieldFix
	if isShouting(e.Name) && len(e.Name) > 4 {
		fixes = append(fixes, fieldFix{Field: "name", Old: e.Name, New: titleCase(e.Name)})
	}
	if canonical, ok := d.dicts.CanonicalBrand(e.Brand); ok && canonical != e.Brand {
		fixes = append(fixes, fieldFix{Field: "brand", Old: e.Brand, New: canonical})
	}
	return d.applyInstant(ctx, e, "case_check", types.IssueCaseNormalization, 0.95, fixes)
}

// isShouting reports whether a string is all caps and contains at
// least one letter.
func isShouting(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			if unicode.IsLower(r) {
				return false
			}
		}
	}
	return hasLetter
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// runTranscription applies the instant policy to known transcription
// errors: a single finding auto-applies, several findings on one item
// all go to review.
func (d *Dispatcher) runTranscription(ctx context.Context, e store.Entity) Outcome {
	const checkID = "transcription_error"

	var issues []*types.Issue
	if issue := d.scan.TranscriptionIssue(e.Name, "name", e.ID); issue != nil {
		issues = append(issues, issue)
	}
	if issue := d.scan.TranscriptionIssue(e.Brand, "brand", e.ID); issue != nil {
		issues = append(issues, issue)
	}

	if len(issues) == 0 {
		d.logDecision(e, checkID, logbook.DecisionNoIssue, "No known transcription errors", 1.0, nil)
		return noIssue(checkID, "No known transcription errors", 1.0)
	}

	out := Outcome{CheckID: checkID, IssueFound: true}
	for _, issue := range issues {
		out.Confidence = issue.Confidence
		// Only a lone finding is trusted enough to auto-apply.
		if len(issues) == 1 {
			result := d.fix.ApplyFix(ctx, issue, false)
			if result.Success {
				out.FixApplied = true
				out.Reasoning = result.Message
				d.logDecision(e, checkID, logbook.DecisionAutoFixed, result.Message, issue.Confidence, &issue.SuggestedFix)
				continue
			}
		}
		out.NeedsReview = true
		out.Reasoning = issue.Description
		d.logDecision(e, checkID, logbook.DecisionFlagged, issue.Description, issue.Confidence, &issue.SuggestedFix)
	}
	return out
}

func (d *Dispatcher) runBrandValidity(ctx context.Context, e store.Entity) Outcome {
	const checkID = "invalid_brand"
	if d.judge == nil {
		d.logDecision(e, checkID, logbook.DecisionSkipped, "No judgment oracle configured", 0, nil)
		return skipped(checkID, "No judgment oracle configured")
	}

	j, err := d.judge.EvaluateBrandValidity(ctx, e.Brand, e.Name, e.ID)
	if err != nil {
		d.logDecision(e, checkID, logbook.DecisionSkipped, err.Error(), 0, nil)
		return Outcome{CheckID: checkID, Error: err.Error()}
	}

	switch j.Recommendation {
	case oracle.RecommendNoAction, oracle.RecommendKeep:
		d.logDecision(e, checkID, logbook.DecisionNoIssue, j.Reasoning, 0.8, nil)
		return noIssue(checkID, j.Reasoning, 0.8)

	case oracle.RecommendClearBrand:
		issue := types.NewIssue(types.IssueSpellingVariant, e.Kind, e.ID, j.Reasoning,
			types.Fix{
				FixType:          types.FixUpdateField,
				TargetEntityType: e.Kind,
				TargetEntityID:   e.ID,
				TargetField:      "brand",
				OldValue:         e.Brand,
				NewValue:         "",
				Confidence:       0.95,
				Reasoning:        j.Reasoning,
			}, 0.95)
		if result := d.fix.ClearInvalidBrand(ctx, issue); result.Success {
			d.logDecision(e, checkID, logbook.DecisionAutoFixed, result.Message, 0.95, &issue.SuggestedFix)
			return Outcome{CheckID: checkID, IssueFound: true, FixApplied: true,
				Confidence: 0.95, Reasoning: result.Message}
		}
	}

	d.logDecision(e, checkID, logbook.DecisionFlagged, j.Reasoning, 0.5, nil)
	out := flagged(checkID, j.Reasoning, 0.5)
	out.Details = map[string]any{"recommendation": string(j.Recommendation)}
	return out
}

func (d *Dispatcher) runNameRedundancy(ctx context.Context, e store.Entity) Outcome {
	const checkID = "brand_in_name"
	if d.judge == nil {
		d.logDecision(e, checkID, logbook.DecisionSkipped, "No judgment oracle configured", 0, nil)
		return skipped(checkID, "No judgment oracle configured")
	}

	j, err := d.judge.EvaluateNameRedundancy(ctx, e.Brand, e.Name, e.ID)
	if err != nil {
		d.logDecision(e, checkID, logbook.DecisionSkipped, err.Error(), 0, nil)
		return Outcome{CheckID: checkID, Error: err.Error()}
	}

	if j.Recommendation == oracle.RecommendNoAction || j.Recommendation == oracle.RecommendKeep {
		d.logDecision(e, checkID, logbook.DecisionNoIssue, j.Reasoning, 0.8, nil)
		return noIssue(checkID, j.Reasoning, 0.8)
	}

	d.logDecision(e, checkID, logbook.DecisionFlagged, j.Reasoning, 0.5, nil)
	out := flagged(checkID, j.Reasoning, 0.5)
	out.Details = map[string]any{
		"recommendation":     string(j.Recommendation),
		"potential_new_name": j.PotentialNewName,
	}
	return out
}

func (d *Dispatcher) runBrandExists(ctx context.Context, e store.Entity) Outcome {
	const checkID = "brand_exists"
	if e.Brand == "" {
		d.logDecision(e, checkID, logbook.DecisionNoIssue, "No brand to check", 1.0, nil)
		return noIssue(checkID, "No brand to check", 1.0)
	}

	info := d.catalog.BrandContext(ctx, e.Brand)
	if info.Exists {
		conf := 0.8
		if info.ItemCount > 5 {
			conf = 1.0
		}
		reasoning := fmt.Sprintf("Brand '%s' has %d items in graph", e.Brand, info.ItemCount)
		d.logDecision(e, checkID, logbook.DecisionNoIssue, reasoning, conf, nil)
		return noIssue(checkID, reasoning, conf)
	}

	conf := 0.8
	reasoning := fmt.Sprintf("Brand '%s' not found in graph", e.Brand)
	if len(info.SimilarBrands) > 0 {
		conf = 0.7
		reasoning = fmt.Sprintf("Brand '%s' not found, similar brands exist: %v",
			e.Brand, info.SimilarBrands)
	}
	d.logDecision(e, checkID, logbook.DecisionFlagged, reasoning, conf, nil)
	out := flagged(checkID, reasoning, conf)
	out.Details = map[string]any{"similar_brands": info.SimilarBrands}
	return out
}

// Duplicate thresholds: candidates at or above similarityFloor are
// reported; highConfidenceFloor marks near-certain pairs.
const (
	similarityFloor     = 0.75
	highConfidenceFloor = 0.90
)

type duplicateCandidate struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Similarity float64 `json:"similarity"`
}

func (d *Dispatcher) runDuplicateCheck(ctx context.Context, e store.Entity) Outcome {
	const checkID = "potential_duplicate"

	var dups []duplicateCandidate
	highConf := 0
	for _, other := range d.catalog.ListEntities(ctx, "GearItem") {
		if other.ID == e.ID || !strings.EqualFold(other.Brand, e.Brand) {
			continue
		}
		sim := scanner.NameSimilarity(e.Name, other.Name)
		if sim < similarityFloor {
			continue
		}
		dups = append(dups, duplicateCandidate{ID: other.ID, Name: other.Name, Similarity: sim})
		if sim >= highConfidenceFloor {
			highConf++
		}
	}

	if len(dups) == 0 {
		d.logDecision(e, checkID, logbook.DecisionNoIssue, "No duplicates found", 1.0, nil)
		return noIssue(checkID, "No duplicates found", 1.0)
	}

	reasoning := fmt.Sprintf("Found %d potential duplicates (%d high confidence)",
		len(dups), highConf)
	d.logDecision(e, checkID, logbook.DecisionFlagged, reasoning, 0.8, nil)
	out := flagged(checkID, reasoning, 0.8)
	sample := dups
	if len(sample) > 3 {
		sample = sample[:3]
	}
	out.Details = map[string]any{
		"duplicate_count":       len(dups),
		"high_confidence_count": highConf,
		"duplicates":            sample,
	}
	return out
}

func (d *Dispatcher) runVerifyBrand(ctx context.Context, e store.Entity) Outcome {
	const checkID = "verify_brand"
	if e.Brand == "" {
		d.logDecision(e, checkID, logbook.DecisionNoIssue, "No brand to verify", 1.0, nil)
		return noIssue(checkID, "No brand to verify", 1.0)
	}
	if d.research == nil {
		d.logDecision(e, checkID, logbook.DecisionSkipped, "No research oracle configured", 0, nil)
		return skipped(checkID, "No research oracle configured")
	}

	v, err := d.research.VerifyBrand(ctx, e.Brand)
	if err != nil {
		d.logDecision(e, checkID, logbook.DecisionSkipped, err.Error(), 0, nil)
		return Outcome{CheckID: checkID, Error: err.Error()}
	}

	if v.Verified {
		d.logDecision(e, checkID, logbook.DecisionNoIssue, v.Reasoning, v.Confidence, nil)
		return noIssue(checkID, v.Reasoning, v.Confidence)
	}

	conf := v.Confidence
	if conf == 0 {
		conf = 0.5
	}
	d.logDecision(e, checkID, logbook.DecisionFlagged, v.Reasoning, conf, nil)
	out := flagged(checkID, v.Reasoning, conf)
	out.Details = map[string]any{"suggested_correction": v.SuggestedCorrection}
	return out
}

func (d *Dispatcher) runMissingWeight(ctx context.Context, e store.Entity) Outcome {
	const checkID = "missing_weight"
	if e.WeightGrams > 0 {
		d.logDecision(e, checkID, logbook.DecisionNoIssue, "Weight already present", 1.0, nil)
		return noIssue(checkID, "Weight already present", 1.0)
	}
	if d.research == nil {
		d.logDecision(e, checkID, logbook.DecisionSkipped, "No research oracle configured", 0, nil)
		return skipped(checkID, "No research oracle configured")
	}

	res, err := d.research.ResearchWeight(ctx, e.Name, e.Brand)
	if err != nil {
		d.logDecision(e, checkID, logbook.DecisionSkipped, err.Error(), 0, nil)
		return Outcome{CheckID: checkID, Error: err.Error()}
	}
	if !res.Found {
		reasoning := res.Message
		if reasoning == "" {
			reasoning = "Weight not found"
		}
		d.logDecision(e, checkID, logbook.DecisionNoIssue, reasoning, 0.5, nil)
		return noIssue(checkID, reasoning, 0.5)
	}

	// Researched evidence is applied directly; the confidence here is
	// about the sources, not the write.
	issue := types.NewIssue(types.IssueIncompleteData, e.Kind, e.ID,
		fmt.Sprintf("Found weight: %dg", res.WeightGrams),
		types.Fix{
			FixType:          types.FixUpdateField,
			TargetEntityType: e.Kind,
			TargetEntityID:   e.ID,
			TargetField:      "weight_grams",
			OldValue:         nil,
			NewValue:         res.WeightGrams,
			Confidence:       res.Confidence,
			Reasoning:        fmt.Sprintf("Weight found in %d sources", len(res.Sources)),
		}, res.Confidence)

	result := d.fix.ApplyFix(ctx, issue, true)
	if !result.Success {
		d.logDecision(e, checkID, logbook.DecisionFlagged, result.Message, res.Confidence, &issue.SuggestedFix)
		return flagged(checkID, result.Message, res.Confidence)
	}
	reasoning := fmt.Sprintf("Found weight: %dg", res.WeightGrams)
	d.logDecision(e, checkID, logbook.DecisionAutoFixed, reasoning, res.Confidence, &issue.SuggestedFix)
	return Outcome{CheckID: checkID, IssueFound: true, FixApplied: true,
		Confidence: res.Confidence, Reasoning: reasoning,
		Details: map[string]any{"weight_grams": res.WeightGrams}}
}

// runMissingPrice proposes researched prices but never applies them;
// prices drift too much to write without review.
func (d *Dispatcher) runMissingPrice(ctx context.Context, e store.Entity) Outcome {
	const checkID = "missing_price"
	if e.PriceUSD > 0 {
		d.logDecision(e, checkID, logbook.DecisionNoIssue, "Price already present", 1.0, nil)
		return noIssue(checkID, "Price already present", 1.0)
	}
	if d.research == nil {
		d.logDecision(e, checkID, logbook.DecisionSkipped, "No research oracle configured", 0, nil)
		return skipped(checkID, "No research oracle configured")
	}

	res, err := d.research.ResearchPrice(ctx, e.Name, e.Brand)
	if err != nil {
		d.logDecision(e, checkID, logbook.DecisionSkipped, err.Error(), 0, nil)
		return Outcome{CheckID: checkID, Error: err.Error()}
	}
	if !res.Found {
		reasoning := res.Message
		if reasoning == "" {
			reasoning = "Price not found"
		}
		d.logDecision(e, checkID, logbook.DecisionNoIssue, reasoning, 0.5, nil)
		return noIssue(checkID, reasoning, 0.5)
	}

	reasoning := fmt.Sprintf("Found price: $%.2f (range $%.2f-$%.2f)",
		res.PriceUSD, res.PriceRange[0], res.PriceRange[1])
	d.logDecision(e, checkID, logbook.DecisionFlagged, reasoning, res.Confidence, nil)
	out := flagged(checkID, reasoning, res.Confidence)
	out.Details = map[string]any{"price_usd": res.PriceUSD, "sources": res.Sources}
	return out
}

func (d *Dispatcher) runOrphanedNode(ctx context.Context, e store.Entity) Outcome {
	const checkID = "orphaned_node"

	count, _, found := d.catalog.RelationshipInfo(ctx, e.ID)
	if !found {
		d.logDecision(e, checkID, logbook.DecisionSkipped, "Relationship lookup failed", 0, nil)
		return skipped(checkID, "Relationship lookup failed")
	}
	if count > 0 {
		reasoning := fmt.Sprintf("Node has %d relationships", count)
		d.logDecision(e, checkID, logbook.DecisionNoIssue, reasoning, 1.0, nil)
		return noIssue(checkID, reasoning, 1.0)
	}

	reasoning := fmt.Sprintf("%s '%s' has no relationships", e.Kind, e.Name)
	d.logDecision(e, checkID, logbook.DecisionFlagged, reasoning, 0.8, nil)
	return flagged(checkID, reasoning, 0.8)
}

func (d *Dispatcher) runProvenance(ctx context.Context, e store.Entity) Outcome {
	const checkID = "missing_provenance"

	p, ok := d.catalog.Provenance(ctx, e.ID)
	if !ok {
		d.logDecision(e, checkID, logbook.DecisionSkipped, "Provenance lookup failed", 0, nil)
		return skipped(checkID, "Provenance lookup failed")
	}
	if p.HasAny() {
		d.logDecision(e, checkID, logbook.DecisionNoIssue, "Provenance tracked", 1.0, nil)
		return noIssue(checkID, "Provenance tracked", 1.0)
	}

	reasoning := fmt.Sprintf("'%s' has no source URL or extraction sources", e.Name)
	d.logDecision(e, checkID, logbook.DecisionFlagged, reasoning, 0.9, nil)
	return flagged(checkID, reasoning, 0.9)
}

func (d *Dispatcher) runCompleteness(ctx context.Context, e store.Entity) Outcome {
	const checkID = "data_completeness"

	missing := scanner.MissingFields(e)
	if len(missing) == 0 {
		d.logDecision(e, checkID, logbook.DecisionNoIssue, "All tracked fields present", 1.0, nil)
		return noIssue(checkID, "All tracked fields present", 1.0)
	}

	score := scanner.WeightedCompleteness(e)
	reasoning := fmt.Sprintf("Completeness %.0f%%, missing: %s",
		score*100, strings.Join(missing, ", "))
	d.logDecision(e, checkID, logbook.DecisionFlagged, reasoning, 0.9, nil)
	out := flagged(checkID, reasoning, 0.9)
	out.Details = map[string]any{"missing_fields": missing, "completeness": score}
	return out
}

func (d *Dispatcher) runCopyright(_ context.Context, e store.Entity) Outcome {
	const checkID = "copyright_concern"
	reasoning := "Copyright evaluation requires a content oracle"
	d.logDecision(e, checkID, logbook.DecisionSkipped, reasoning, 0, nil)
	return skipped(checkID, reasoning)
}
