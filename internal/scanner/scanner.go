// Package scanner runs batch detectors over the catalog and emits
// hygiene issues. Detectors only read; nothing here mutates data.
package scanner

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/schmelli/gearkeeper/internal/dict"
	"github.com/schmelli/gearkeeper/internal/store"
	"github.com/schmelli/gearkeeper/internal/types"
)

// Defaults for detector thresholds.
const (
	DefaultSimilarityThreshold   = 0.85
	DefaultCompletenessThreshold = 0.3
)

// Scanner detects data-quality issues across the whole catalog.
type Scanner struct {
	catalog *store.Catalog
	dicts   *dict.Dictionaries

	// SimilarityThreshold is the minimum blended fuzzy score for a
	// pair of names to count as potential duplicates.
	SimilarityThreshold float64

	// CompletenessThreshold flags items whose weighted completeness
	// falls below it.
	CompletenessThreshold float64
}

// New creates a scanner over a catalog with the given dictionaries.
func New(catalog *store.Catalog, dicts *dict.Dictionaries) *Scanner {
	return &Scanner{
		catalog:               catalog,
		dicts:                 dicts,
		SimilarityThreshold:   DefaultSimilarityThreshold,
		CompletenessThreshold: DefaultCompletenessThreshold,
	}
}

// FullScan runs every detector and returns all issues ordered for
// review: highest risk first, least certain first within a tier.
// Scanning never mutates the catalog, so rerunning on unchanged data
// yields the same findings.
func (s *Scanner) FullScan(ctx context.Context) []*types.Issue {
	var issues []*types.Issue
	issues = append(issues, s.ScanTranscriptionErrors(ctx)...)
	issues = append(issues, s.ScanDuplicates(ctx)...)
	issues = append(issues, s.ScanIncompleteData(ctx)...)
	issues = append(issues, s.ScanOrphanedNodes(ctx)...)
	issues = append(issues, s.ScanBrandStandardization(ctx)...)
	types.SortIssues(issues)
	return issues
}

// ScanTranscriptionErrors flags names and brands containing known
// speech-to-text miswritings. One issue per field at most: the first
// matching dictionary entry wins.
func (s *Scanner) ScanTranscriptionErrors(ctx context.Context) []*types.Issue {
	var issues []*types.Issue
	for _, e := range s.catalog.ListEntities(ctx, "GearItem") {
		if issue := s.checkTranscription(e.Name, "name", e.ID); issue != nil {
			issues = append(issues, issue)
		}
		if issue := s.checkTranscription(e.Brand, "brand", e.ID); issue != nil {
			issues = append(issues, issue)
		}
	}
	return issues
}

// TranscriptionIssue evaluates one field value against the known
// transcription errors. Used by the per-item dispatcher as well as
// the batch scan above.
func (s *Scanner) TranscriptionIssue(value, field, entityID string) *types.Issue {
	return s.checkTranscription(value, field, entityID)
}

func (s *Scanner) checkTranscription(value, field, entityID string) *types.Issue {
	if value == "" {
		return nil
	}
	valueLower := strings.ToLower(value)

	errs := s.dicts.TranscriptionErrors()
	patterns := make([]string, 0, len(errs))
	for p := range errs {
		patterns = append(patterns, p)
	}
	sort.Strings(patterns) // deterministic iteration

	for _, pattern := range patterns {
		correct := errs[pattern]
		patternLower := strings.ToLower(pattern)
		correctLower := strings.ToLower(correct)

		// Already fixed, or the pattern is absent.
		if strings.Contains(valueLower, correctLower) {
			continue
		}
		if !strings.Contains(valueLower, patternLower) {
			continue
		}

		// Word-boundary match avoids mangling longer words that
		// merely contain the pattern.
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(pattern) + `\b`)
		if err != nil || !re.MatchString(value) {
			continue
		}

		corrected := replaceFirst(re, value, correct)
		if !validCorrection(value, corrected, correct) {
			continue
		}

		confidence := 0.90 // word-boundary match
		if patternLower == valueLower {
			confidence = 0.95 // entire field is the error
		}

		return types.NewIssue(types.IssueTypo, "GearItem", entityID,
			fmt.Sprintf("Possible transcription error in %s: '%s' -> '%s'", field, value, corrected),
			types.Fix{
				FixType:          types.FixUpdateField,
				TargetEntityType: "GearItem",
				TargetEntityID:   entityID,
				TargetField:      field,
				OldValue:         value,
				NewValue:         corrected,
				Confidence:       confidence,
				Reasoning:        fmt.Sprintf("Known transcription error: '%s' -> '%s'", pattern, correct),
			}, confidence)
	}
	return nil
}

// replaceFirst replaces only the first match of re in s.
func replaceFirst(re *regexp.Regexp, s, replacement string) string {
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + replacement + s[loc[1]:]
}

// validCorrection rejects replacements that change nothing or stamp
// the correction in twice.
func validCorrection(original, corrected, correct string) bool {
	if original == corrected {
		return false
	}
	correctLower := strings.ToLower(correct)
	if strings.Contains(strings.ToLower(original), correctLower) {
		return false
	}
	if strings.Count(strings.ToLower(corrected), correctLower) > 1 {
		return false
	}
	return true
}

// ScanDuplicates compares item names within each brand bucket using a
// blend of four fuzzy metrics and proposes merging near-matches into
// the more complete item.
func (s *Scanner) ScanDuplicates(ctx context.Context) []*types.Issue {
	var issues []*types.Issue

	byBrand := make(map[string][]store.Entity)
	for _, e := range s.catalog.ListEntities(ctx, "GearItem") {
		key := strings.ToLower(e.Brand)
		if key == "" {
			key = "unknown"
		}
		byBrand[key] = append(byBrand[key], e)
	}

	brands := make([]string, 0, len(byBrand))
	for b := range byBrand {
		brands = append(brands, b)
	}
	sort.Strings(brands)

	seen := make(map[string]bool)
	for _, brand := range brands {
		items := byBrand[brand]
		for i, a := range items {
			for _, b := range items[i+1:] {
				lo, hi := a.ID, b.ID
				if hi < lo {
					lo, hi = hi, lo
				}
				pairKey := lo + "|" + hi
				if seen[pairKey] {
					continue
				}
				seen[pairKey] = true

				similarity := NameSimilarity(a.Name, b.Name)
				if similarity < s.SimilarityThreshold {
					continue
				}

				canonical, duplicate := a, b
				if b.Completeness() > a.Completeness() {
					canonical, duplicate = b, a
				}

				issues = append(issues, types.NewIssue(
					types.IssueDuplicateMerge, "GearItem", duplicate.ID,
					fmt.Sprintf("Possible duplicate: '%s' (%s) similar to '%s' (%s) [similarity: %.0f%%]",
						duplicate.Name, duplicate.Brand, canonical.Name, canonical.Brand, similarity*100),
					types.Fix{
						FixType:          types.FixMergeEntities,
						TargetEntityType: "GearItem",
						TargetEntityID:   duplicate.ID,
						MergeTargetID:    canonical.ID,
						Confidence:       similarity,
						Reasoning: fmt.Sprintf("Names are %.0f%% similar. Canonical item has completeness %.0f%% vs %.0f%%",
							similarity*100, canonical.Completeness()*100, duplicate.Completeness()*100),
					}, similarity))
			}
		}
	}
	return issues
}

// NameSimilarity blends four fuzzy-match metrics into one [0,1] score.
func NameSimilarity(a, b string) float64 {
	al, bl := strings.ToLower(a), strings.ToLower(b)
	ratio := float64(fuzzy.Ratio(al, bl)) / 100
	partial := float64(fuzzy.PartialRatio(al, bl)) / 100
	tokenSort := float64(fuzzy.TokenSortRatio(al, bl)) / 100
	tokenSet := float64(fuzzy.TokenSetRatio(al, bl)) / 100
	return ratio*0.3 + partial*0.2 + tokenSort*0.25 + tokenSet*0.25
}

// ScanIncompleteData flags items whose weighted completeness falls
// below the threshold. Weight and description count double; price,
// category and source URL count single.
func (s *Scanner) ScanIncompleteData(ctx context.Context) []*types.Issue {
	var issues []*types.Issue
	for _, e := range s.catalog.ListEntities(ctx, "GearItem") {
		score := WeightedCompleteness(e)
		if score >= s.CompletenessThreshold {
			continue
		}
		missing := MissingFields(e)
		issues = append(issues, types.NewIssue(
			types.IssueIncompleteData, "GearItem", e.ID,
			fmt.Sprintf("Low completeness (%.0f%%): '%s' by %s. Missing: %s",
				score*100, e.Name, e.Brand, strings.Join(missing, ", ")),
			types.Fix{
				FixType:          types.FixUpdateField,
				TargetEntityType: "GearItem",
				TargetEntityID:   e.ID,
				TargetField:      "multiple",
				Confidence:       0.99,
				Reasoning: fmt.Sprintf("Item has %.0f%% completeness. Missing fields: %s",
					score*100, strings.Join(missing, ", ")),
			}, 0.99))
	}
	return issues
}

// WeightedCompleteness scores how filled-in an item is. Weight and
// description count double; price, category and source URL single.
func WeightedCompleteness(e store.Entity) float64 {
	const totalWeight = 2*2 + 3*1
	score := 0
	if e.WeightGrams > 0 {
		score += 2
	}
	if e.Description != "" {
		score += 2
	}
	if e.PriceUSD > 0 {
		score++
	}
	if e.Category != "" {
		score++
	}
	if e.SourceURL != "" {
		score++
	}
	return float64(score) / totalWeight
}

// MissingFields lists the tracked fields an item lacks.
func MissingFields(e store.Entity) []string {
	var missing []string
	if e.WeightGrams == 0 {
		missing = append(missing, "weight_grams")
	}
	if e.PriceUSD == 0 {
		missing = append(missing, "price_usd")
	}
	if e.Description == "" {
		missing = append(missing, "description")
	}
	if e.Category == "" {
		missing = append(missing, "category")
	}
	if e.SourceURL == "" {
		missing = append(missing, "source_url")
	}
	return missing
}

// ScanBrandStandardization finds brand values with a known canonical
// form and proposes one brand-wide rewrite each, addressed to the
// synthetic "brand:<value>" entity id.
func (s *Scanner) ScanBrandStandardization(ctx context.Context) []*types.Issue {
	counts := make(map[string]int)
	for _, e := range s.catalog.ListEntities(ctx, "GearItem") {
		if e.Brand != "" {
			counts[e.Brand]++
		}
	}

	brands := make([]string, 0, len(counts))
	for b := range counts {
		brands = append(brands, b)
	}
	sort.Strings(brands)

	var issues []*types.Issue
	for _, brand := range brands {
		canonical, ok := s.dicts.CanonicalBrand(brand)
		if !ok || brand == canonical {
			continue
		}
		brandID := "brand:" + brand
		issues = append(issues, types.NewIssue(
			types.IssueBrandStandardization, "GearItem", brandID,
			fmt.Sprintf("Non-standard brand name: '%s' -> '%s' (affects %d items)",
				brand, canonical, counts[brand]),
			types.Fix{
				FixType:          types.FixUpdateField,
				TargetEntityType: "GearItem",
				TargetEntityID:   brandID,
				TargetField:      "brand",
				OldValue:         brand,
				NewValue:         canonical,
				Confidence:       0.95,
				Reasoning:        fmt.Sprintf("Standardizing brand name to canonical form: '%s'", canonical),
			}, 0.95))
	}
	return issues
}
