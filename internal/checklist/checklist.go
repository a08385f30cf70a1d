// Package checklist holds the fixed registry of hygiene checks the
// engine runs against catalog entities, organized into priority tiers
// that determine processing order and cost.
package checklist

// Category groups checks by the aspect of data quality they cover.
type Category string

// Check categories.
const (
	CategoryBrandValidity    Category = "brand_validity"
	CategoryNameQuality      Category = "name_quality"
	CategoryDataCompleteness Category = "data_completeness"
	CategoryNodeRichness     Category = "node_richness"
	CategoryPricing          Category = "pricing"
	CategoryProvenance       Category = "provenance"
	CategoryRelationships    Category = "relationships"
)

// IsValid checks if the category is a known value.
func (c Category) IsValid() bool {
	switch c {
	case CategoryBrandValidity, CategoryNameQuality, CategoryDataCompleteness,
		CategoryNodeRichness, CategoryPricing, CategoryProvenance, CategoryRelationships:
		return true
	}
	return false
}

// Priority orders checks by processing cost. Lower numbers run first.
type Priority int

// Priority tiers. P1 checks are deterministic string fixes, P2 needs a
// quick judgment call, P3 needs graph context, P4 needs external
// research, P5 is deep analysis.
const (
	P1Instant  Priority = 1
	P2Quick    Priority = 2
	P3Context  Priority = 3
	P4Research Priority = 4
	P5Deep     Priority = 5
)

// IsValid checks if the priority is in the P1..P5 range.
func (p Priority) IsValid() bool {
	return p >= P1Instant && p <= P5Deep
}

func (p Priority) String() string {
	switch p {
	case P1Instant:
		return "P1-instant"
	case P2Quick:
		return "P2-quick"
	case P3Context:
		return "P3-context"
	case P4Research:
		return "P4-research"
	case P5Deep:
		return "P5-deep"
	}
	return "unknown"
}

// Item is a single registered hygiene check.
type Item struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	Priority    Priority `json:"priority"`

	// Prompt template for judgment-based checks; empty for
	// deterministic ones.
	EvaluationPrompt string `json:"evaluation_prompt,omitempty"`

	RequiresJudgment   bool `json:"requires_judgment"`
	RequiresGraphQuery bool `json:"requires_graph_query"`
	RequiresResearch   bool `json:"requires_research"`

	CanAutoFix       bool    `json:"can_auto_fix"`
	AutoFixThreshold float64 `json:"auto_fix_threshold"`
}

// Result is the outcome of running one check against one entity.
type Result struct {
	CheckID      string         `json:"check_id"`
	Passed       bool           `json:"passed"`
	IssueFound   bool           `json:"issue_found"`
	Confidence   float64        `json:"confidence"`
	Details      string         `json:"details,omitempty"`
	Reasoning    string         `json:"reasoning,omitempty"`
	SuggestedFix map[string]any `json:"suggested_fix,omitempty"`
	Evidence     []string       `json:"evidence,omitempty"`
	AutoFixable  bool           `json:"auto_fixable"`
}

// Pass returns a clean result for a check that found nothing.
func Pass(checkID string) Result {
	return Result{CheckID: checkID, Passed: true, Confidence: 1.0}
}

// registry is the full ordered checklist. Order within a tier is the
// order checks run for an entity.
var registry = []Item{
	// P1: deterministic string fixes, applied immediately.
	{
		ID:               "whitespace_check",
		Name:             "Whitespace Normalization",
		Description:      "Leading/trailing whitespace or repeated spaces in the name",
		Category:         CategoryNameQuality,
		Priority:         P1Instant,
		CanAutoFix:       true,
		AutoFixThreshold: 0.99,
	},
	{
		ID:               "case_check",
		Name:             "Case Normalization",
		Description:      "Improper casing (all caps or all lowercase name)",
		Category:         CategoryNameQuality,
		Priority:         P1Instant,
		CanAutoFix:       true,
		AutoFixThreshold: 0.95,
	},

	// P2: quick judgment calls.
	{
		ID:          "brand_in_name",
		Name:        "Redundant Brand in Name",
		Description: "Brand name appears redundantly inside the product name",
		Category:    CategoryNameQuality,
		Priority:    P2Quick,
		EvaluationPrompt: "The product is '{name}' by brand '{brand}'. " +
			"Is the brand name redundantly included in the product name? " +
			"Note: Some products legitimately include brand words " +
			"(like 'Big Agnes Big House' where 'Big House' is the product name). " +
			"Only flag if truly redundant (e.g., 'Osprey Osprey Pack').",
		RequiresJudgment: true,
	},
	{
		ID:          "invalid_brand",
		Name:        "Invalid/Generic Brand",
		Description: "Brand field holds a generic term rather than an actual brand",
		Category:    CategoryBrandValidity,
		Priority:    P2Quick,
		EvaluationPrompt: "Is '{brand}' a legitimate outdoor gear brand name, or is it a " +
			"generic term (like 'sleeping bag', 'ultralight', 'backpack', " +
			"'down jacket')? Generic terms should not be used as brand names.",
		RequiresJudgment: true,
	},

	// P3: graph-context checks.
	{
		ID:                 "brand_exists",
		Name:               "Brand Exists in Graph",
		Description:        "Whether the brand has multiple entries in the catalog",
		Category:           CategoryBrandValidity,
		Priority:           P3Context,
		RequiresGraphQuery: true,
	},
	{
		ID:                 "potential_duplicate",
		Name:               "Potential Duplicate",
		Description:        "Similar items that might be duplicates of this one",
		Category:           CategoryRelationships,
		Priority:           P3Context,
		RequiresGraphQuery: true,
	},
	{
		ID:                 "transcription_error",
		Name:               "Transcription Error",
		Description:        "Known speech-to-text transcription errors in the name or brand",
		Category:           CategoryNameQuality,
		Priority:           P3Context,
		RequiresGraphQuery: true,
		CanAutoFix:         true,
		AutoFixThreshold:   0.90,
	},

	// P4: external research.
	{
		ID:               "verify_brand",
		Name:             "Verify Brand Exists",
		Description:      "Verify the brand is a real outdoor gear company",
		Category:         CategoryBrandValidity,
		Priority:         P4Research,
		RequiresResearch: true,
	},
	{
		ID:               "missing_weight",
		Name:             "Missing Weight",
		Description:      "Item lacks weight data; research to find it",
		Category:         CategoryDataCompleteness,
		Priority:         P4Research,
		RequiresResearch: true,
	},
	{
		ID:               "missing_price",
		Name:             "Missing/Outdated Price",
		Description:      "Item lacks a price or the price is outdated",
		Category:         CategoryPricing,
		Priority:         P4Research,
		RequiresResearch: true,
	},

	// P5: deep analysis, never auto-fixed.
	{
		ID:                 "orphaned_node",
		Name:               "Orphaned Node",
		Description:        "Entity has no relationships to other entities",
		Category:           CategoryNodeRichness,
		Priority:           P5Deep,
		RequiresGraphQuery: true,
	},
	{
		ID:                 "missing_provenance",
		Name:               "Missing Provenance",
		Description:        "Data lacks source attribution",
		Category:           CategoryProvenance,
		Priority:           P5Deep,
		RequiresGraphQuery: true,
	},
	{
		ID:          "data_completeness",
		Name:        "Data Completeness",
		Description: "Overall data completeness score of the entity",
		Category:    CategoryDataCompleteness,
		Priority:    P5Deep,
	},
	{
		ID:          "copyright_concern",
		Name:        "Copyright Concern",
		Description: "Description may contain copyrighted marketing content",
		Category:    CategoryDataCompleteness,
		Priority:    P5Deep,
		EvaluationPrompt: "Does this description appear to be directly copied from a " +
			"manufacturer or retailer website (marketing language, " +
			"superlatives, promotional tone)? Description: '{description}'",
		RequiresJudgment: true,
	},
}

// All returns the full checklist in registry order. The returned slice
// is a copy; callers may not mutate the registry.
func All() []Item {
	out := make([]Item, len(registry))
	copy(out, registry)
	return out
}

// ByID returns the check with the given id, or false if unregistered.
func ByID(id string) (Item, bool) {
	for _, c := range registry {
		if c.ID == id {
			return c, true
		}
	}
	return Item{}, false
}

// ByPriority returns all checks at a tier, in registry order.
func ByPriority(p Priority) []Item {
	var out []Item
	for _, c := range registry {
		if c.Priority == p {
			out = append(out, c)
		}
	}
	return out
}

// ByCategory returns all checks in a category, in registry order.
func ByCategory(cat Category) []Item {
	var out []Item
	for _, c := range registry {
		if c.Category == cat {
			out = append(out, c)
		}
	}
	return out
}

// AutoFixable returns the checks that may apply fixes without review.
func AutoFixable() []Item {
	var out []Item
	for _, c := range registry {
		if c.CanAutoFix {
			out = append(out, c)
		}
	}
	return out
}

// JudgmentChecks returns the checks that need an oracle evaluation.
func JudgmentChecks() []Item {
	var out []Item
	for _, c := range registry {
		if c.RequiresJudgment {
			out = append(out, c)
		}
	}
	return out
}

// IDsForPriority returns just the check ids at a tier. The scheduler
// stores these on queue items.
func IDsForPriority(p Priority) []string {
	var out []string
	for _, c := range registry {
		if c.Priority == p {
			out = append(out, c.ID)
		}
	}
	return out
}
