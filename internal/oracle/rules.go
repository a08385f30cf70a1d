package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/schmelli/gearkeeper/internal/dict"
	"github.com/schmelli/gearkeeper/internal/store"
)

// RuleJudge is the default JudgmentOracle: deterministic rules over
// graph context and the generic-term dictionary. It is conservative
// on purpose, leaning toward review recommendations.
type RuleJudge struct {
	catalog *store.Catalog
	dicts   *dict.Dictionaries
}

// NewRuleJudge creates a rule-based judge.
func NewRuleJudge(catalog *store.Catalog, dicts *dict.Dictionaries) *RuleJudge {
	return &RuleJudge{catalog: catalog, dicts: dicts}
}

// EvaluateBrandValidity decides whether a brand value names a real
// brand. Generic terms are cleared; brands with several items are
// kept; near-misses of known brands go to review; the rest need web
// verification.
func (j *RuleJudge) EvaluateBrandValidity(ctx context.Context, brand, name, entityID string) (BrandJudgment, error) {
	info := j.catalog.BrandContext(ctx, brand)

	result := BrandJudgment{
		EntityID:      entityID,
		Brand:         brand,
		Name:          name,
		IsGeneric:     j.dicts.IsGenericTerm(brand),
		ExistsInGraph: info.Exists,
		ItemCount:     info.ItemCount,
		SimilarBrands: info.SimilarBrands,
	}

	switch {
	case result.IsGeneric:
		result.Recommendation = RecommendClearBrand
		result.Reasoning = fmt.Sprintf("'%s' is a generic term, not a brand name", brand)
	case result.ItemCount >= 3:
		result.Recommendation = RecommendKeep
		result.Reasoning = fmt.Sprintf("Brand has %d items, likely valid", result.ItemCount)
	case len(result.SimilarBrands) > 0:
		result.Recommendation = RecommendReview
		result.Reasoning = fmt.Sprintf("Brand not found, similar: %v", result.SimilarBrands)
	default:
		result.Recommendation = RecommendVerifyWeb
		result.Reasoning = "Brand has few items, may need verification"
	}
	return result, nil
}

// EvaluateNameRedundancy decides whether a product name redundantly
// starts with its brand. A brand word elsewhere in the name is
// usually a product-line name and left alone.
func (j *RuleJudge) EvaluateNameRedundancy(_ context.Context, brand, name, entityID string) (NameJudgment, error) {
	result := NameJudgment{
		EntityID: entityID,
		Brand:    brand,
		Name:     name,
	}
	if brand != "" {
		result.ContainsBrand = strings.Contains(strings.ToLower(name), strings.ToLower(brand))
	}

	if !result.ContainsBrand {
		result.Reasoning = "Brand not found in name"
		result.Recommendation = RecommendNoAction
		return result, nil
	}

	if strings.HasPrefix(strings.ToLower(name), strings.ToLower(brand)) {
		trimmed := strings.TrimSpace(name[len(brand):])
		trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "-"))

		result.PotentialNewName = trimmed
		result.NeedsJudgment = true
		result.Reasoning = fmt.Sprintf(
			"Brand '%s' appears at start of name. Potential simplified name: '%s'. "+
				"Needs judgment to determine if redundant or part of model name.",
			brand, trimmed)
		result.Recommendation = RecommendNeedsReview
		return result, nil
	}

	result.Reasoning = fmt.Sprintf(
		"Brand '%s' appears in name but not at start. "+
			"Usually valid (product line name contains brand word).", brand)
	result.Recommendation = RecommendNoAction
	return result, nil
}
