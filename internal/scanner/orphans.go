package scanner

import (
	"context"
	"fmt"
	"strings"

	"github.com/schmelli/gearkeeper/internal/store"
	"github.com/schmelli/gearkeeper/internal/types"
)

// categoryPatterns maps gear categories to keywords that identify
// them in free text. Checked in a fixed order, first hit wins.
var categoryPatterns = []struct {
	category string
	keywords []string
}{
	{"stove", []string{"stove", "burner", "canister", "fuel", "cooking system", "alcohol stove", "isobutane"}},
	{"tent", []string{"tent", "shelter", "tarp", "bivy", "vestibule", "footprint", "guylines", "freestanding"}},
	{"sleeping_bag", []string{"sleeping bag", "quilt", "down bag", "mummy bag", "temperature rating", "fill power", "footbox"}},
	{"sleeping_pad", []string{"sleeping pad", "mattress", "inflatable pad", "foam pad", "r-value"}},
	{"backpack", []string{"backpack", "rucksack", "daypack", "frameless", "hip belt", "pack volume", "ultralight pack"}},
	{"water_filter", []string{"water filter", "filtration", "purification", "squeeze", "gravity filter", "water treatment"}},
	{"clothing", []string{"jacket", "pants", "base layer", "rain gear", "windshirt", "puffy", "fleece", "merino"}},
	{"footwear", []string{"shoes", "boots", "trail runner", "sandals", "gaiters", "insoles"}},
	{"cookware", []string{"pot", "pan", "mug", "spork", "cook kit", "windscreen"}},
	{"lighting", []string{"headlamp", "flashlight", "lantern", "lumens"}},
	{"navigation", []string{"compass", "gps", "navigation"}},
	{"trekking_poles", []string{"trekking pole", "hiking pole", "pole tip"}},
	{"electronics", []string{"battery", "power bank", "solar panel", "charger", "satellite communicator"}},
}

// CategoryFromText guesses a gear category from free text, or "".
func CategoryFromText(text string) string {
	if text == "" {
		return ""
	}
	lower := strings.ToLower(text)
	for _, cp := range categoryPatterns {
		for _, kw := range cp.keywords {
			if strings.Contains(lower, kw) {
				return cp.category
			}
		}
	}
	return ""
}

// ScanOrphanedNodes finds disconnected entities. Brands without
// products and product families without variants get delete
// proposals; insights get relink proposals, to a detected category
// when the text gives one away.
func (s *Scanner) ScanOrphanedNodes(ctx context.Context) []*types.Issue {
	var issues []*types.Issue

	for _, e := range s.catalog.ListEntities(ctx, "OutdoorBrand") {
		if e.HasRelationships() {
			continue
		}
		issues = append(issues, types.NewIssue(
			types.IssueOrphanedNode, "OutdoorBrand", e.ID,
			fmt.Sprintf("Orphaned brand with no products: '%s'", e.Name),
			types.Fix{
				FixType:          types.FixDeleteEntity,
				TargetEntityType: "OutdoorBrand",
				TargetEntityID:   e.ID,
				Confidence:       0.90,
				Reasoning:        "Brand has no associated gear items",
			}, 0.90))
	}

	for _, e := range s.catalog.ListEntities(ctx, "Insight") {
		if e.HasRelationships() {
			continue
		}
		issues = append(issues, s.orphanedInsightIssue(e))
	}

	for _, e := range s.catalog.ListEntities(ctx, "ProductFamily") {
		if e.HasRelationships() {
			continue
		}
		issues = append(issues, types.NewIssue(
			types.IssueOrphanedNode, "ProductFamily", e.ID,
			fmt.Sprintf("Orphaned product family with no variants: '%s'", e.Name),
			types.Fix{
				FixType:          types.FixDeleteEntity,
				TargetEntityType: "ProductFamily",
				TargetEntityID:   e.ID,
				Confidence:       0.85,
				Reasoning:        "Product family has no associated gear variants",
			}, 0.85))
	}

	return issues
}

func (s *Scanner) orphanedInsightIssue(e store.Entity) *types.Issue {
	summary := e.Name
	if len(summary) > 50 {
		summary = summary[:50]
	}
	text := e.Description
	if text == "" {
		text = e.Name
	}

	if category := CategoryFromText(text); category != "" {
		return types.NewIssue(
			types.IssueOrphanedNode, "Insight", e.ID,
			fmt.Sprintf("Orphaned insight about %s: '%s...'", category, summary),
			types.Fix{
				FixType:          types.FixCreateRelationship,
				TargetEntityType: "Insight",
				TargetEntityID:   e.ID,
				TargetField:      category,
				Confidence:       0.80,
				Reasoning:        fmt.Sprintf("Link this insight to all %s items", category),
			}, 0.80)
	}
	return types.NewIssue(
		types.IssueOrphanedNode, "Insight", e.ID,
		fmt.Sprintf("Orphaned insight (needs categorization): '%s...'", summary),
		types.Fix{
			FixType:          types.FixCreateRelationship,
			TargetEntityType: "Insight",
			TargetEntityID:   e.ID,
			Confidence:       0.50,
			Reasoning:        "Manual review needed - could not detect gear category",
		}, 0.50)
}
