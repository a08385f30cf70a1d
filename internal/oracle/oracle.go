// Package oracle defines the judgment and research boundaries the
// dispatcher consults for checks that cannot be decided from graph
// data alone. A deterministic rule-based judge ships as the default;
// research needs an external search provider and fails soft without
// one.
package oracle

import (
	"context"
	"errors"
)

// Oracle failure modes. Both are recoverable: callers flag the item
// for manual review instead of guessing.
var (
	ErrUnavailable = errors.New("oracle unavailable")
	ErrTimeout     = errors.New("oracle timed out")
)

// Recommendation is the judgment outcome for a P2 check.
type Recommendation string

// Recommendation values.
const (
	RecommendNoAction    Recommendation = "no_action"
	RecommendKeep        Recommendation = "keep"
	RecommendClearBrand  Recommendation = "clear_brand"
	RecommendReview      Recommendation = "review"
	RecommendVerifyWeb   Recommendation = "verify_web"
	RecommendNeedsReview Recommendation = "needs_review"
)

// BrandJudgment is the outcome of evaluating whether a brand value is
// a real brand or a generic term.
type BrandJudgment struct {
	EntityID       string         `json:"entity_id"`
	Brand          string         `json:"brand"`
	Name           string         `json:"name"`
	IsGeneric      bool           `json:"is_generic"`
	ExistsInGraph  bool           `json:"exists_in_graph"`
	ItemCount      int            `json:"item_count"`
	SimilarBrands  []string       `json:"similar_brands,omitempty"`
	Recommendation Recommendation `json:"recommendation"`
	Reasoning      string         `json:"reasoning"`
}

// NameJudgment is the outcome of evaluating whether a product name
// redundantly repeats its brand.
type NameJudgment struct {
	EntityID         string         `json:"entity_id"`
	Brand            string         `json:"brand"`
	Name             string         `json:"name"`
	ContainsBrand    bool           `json:"contains_brand"`
	IsRedundant      bool           `json:"is_redundant"`
	NeedsJudgment    bool           `json:"needs_judgment"`
	PotentialNewName string         `json:"potential_new_name,omitempty"`
	Recommendation   Recommendation `json:"recommendation"`
	Reasoning        string         `json:"reasoning"`
}

// JudgmentOracle answers the contextual P2 checks.
type JudgmentOracle interface {
	EvaluateBrandValidity(ctx context.Context, brand, name, entityID string) (BrandJudgment, error)
	EvaluateNameRedundancy(ctx context.Context, brand, name, entityID string) (NameJudgment, error)
}

// BrandVerification is the outcome of verifying a brand against
// external sources.
type BrandVerification struct {
	Verified            bool    `json:"verified"`
	Result              string  `json:"result"` // valid, invalid, uncertain, corrected
	Confidence          float64 `json:"confidence"`
	Source              string  `json:"source"`
	Reasoning           string  `json:"reasoning"`
	SuggestedCorrection string  `json:"suggested_correction,omitempty"`
}

// WeightResult is the outcome of researching a missing weight.
type WeightResult struct {
	Found       bool     `json:"found"`
	WeightGrams int      `json:"weight_grams,omitempty"`
	Confidence  float64  `json:"confidence,omitempty"`
	Sources     []string `json:"sources,omitempty"`
	Message     string   `json:"message,omitempty"`
}

// PriceResult is the outcome of researching a current price.
type PriceResult struct {
	Found      bool       `json:"found"`
	PriceUSD   float64    `json:"price_usd,omitempty"`
	Confidence float64    `json:"confidence,omitempty"`
	Sources    []string   `json:"sources,omitempty"`
	PriceRange [2]float64 `json:"price_range,omitempty"`
	Message    string     `json:"message,omitempty"`
}

// ResearchOracle answers the P4 checks that need outside evidence.
type ResearchOracle interface {
	VerifyBrand(ctx context.Context, brand string) (BrandVerification, error)
	ResearchWeight(ctx context.Context, name, brand string) (WeightResult, error)
	ResearchPrice(ctx context.Context, name, brand string) (PriceResult, error)
}
