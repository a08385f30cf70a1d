package oracle

import (
	"context"
	"errors"
	"testing"

	"github.com/schmelli/gearkeeper/internal/dict"
	"github.com/schmelli/gearkeeper/internal/store"
	"github.com/schmelli/gearkeeper/internal/store/sqlite"
)

func newTestCatalog(t *testing.T) *store.Catalog {
	t.Helper()
	s, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return store.NewCatalog(s)
}

func seed(t *testing.T, c *store.Catalog, e store.Entity) {
	t.Helper()
	if e.Kind == "" {
		e.Kind = "GearItem"
	}
	if err := c.CreateEntity(context.Background(), e); err != nil {
		t.Fatal(err)
	}
}

func TestEvaluateBrandValidity(t *testing.T) {
	c := newTestCatalog(t)
	j := NewRuleJudge(c, dict.Default())
	ctx := context.Background()

	seed(t, c, store.Entity{ID: "1", Name: "Arc Haul", Brand: "Zpacks"})
	seed(t, c, store.Entity{ID: "2", Name: "Duplex", Brand: "Zpacks"})
	seed(t, c, store.Entity{ID: "3", Name: "Altaplex", Brand: "Zpacks"})

	tests := []struct {
		brand string
		want  Recommendation
	}{
		{"tent", RecommendClearBrand},
		{"Zpacks", RecommendKeep},
		{"Zpack", RecommendReview}, // near-miss of a known brand
		{"Frobnicate", RecommendVerifyWeb},
	}
	for _, tt := range tests {
		got, err := j.EvaluateBrandValidity(ctx, tt.brand, "Some Item", "x")
		if err != nil {
			t.Fatalf("EvaluateBrandValidity(%q): %v", tt.brand, err)
		}
		if got.Recommendation != tt.want {
			t.Errorf("brand %q: recommendation = %s, want %s (%s)",
				tt.brand, got.Recommendation, tt.want, got.Reasoning)
		}
	}

	got, _ := j.EvaluateBrandValidity(ctx, "tent", "Some Tent", "x")
	if !got.IsGeneric {
		t.Error("generic term not marked generic")
	}
}

func TestEvaluateNameRedundancy(t *testing.T) {
	j := NewRuleJudge(newTestCatalog(t), dict.Default())
	ctx := context.Background()

	tests := []struct {
		name     string
		brand    string
		itemName string
		want     Recommendation
		newName  string
	}{
		{"no brand in name", "Zpacks", "Arc Haul", RecommendNoAction, ""},
		{"brand prefix", "Zpacks", "Zpacks Arc Haul", RecommendNeedsReview, "Arc Haul"},
		{"brand prefix with dash", "Zpacks", "Zpacks - Arc Haul", RecommendNeedsReview, "Arc Haul"},
		{"brand mid-name", "Agnes", "Big Agnes Copper Spur", RecommendNoAction, ""},
		{"empty brand", "", "Arc Haul", RecommendNoAction, ""},
	}
	for _, tt := range tests {
		got, err := j.EvaluateNameRedundancy(ctx, tt.brand, tt.itemName, "x")
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if got.Recommendation != tt.want {
			t.Errorf("%s: recommendation = %s, want %s", tt.name, got.Recommendation, tt.want)
		}
		if got.PotentialNewName != tt.newName {
			t.Errorf("%s: potential name = %q, want %q", tt.name, got.PotentialNewName, tt.newName)
		}
		if tt.want == RecommendNeedsReview && !got.NeedsJudgment {
			t.Errorf("%s: needs-judgment flag not set", tt.name)
		}
	}
}

type stubProvider struct {
	results  []SearchResult
	failures int // fail this many calls before succeeding
	err      error
	calls    int
}

func (s *stubProvider) Search(_ context.Context, _ string, _ int) ([]SearchResult, error) {
	s.calls++
	if s.failures > 0 {
		s.failures--
		return nil, errors.New("transient search failure")
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

func TestVerifyBrandTiers(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	seed(t, c, store.Entity{ID: "1", Name: "Arc Haul", Brand: "Zpacks"})

	w := NewWebResearcher(c, nil)

	// Empty brand is invalid without any lookup.
	v, err := w.VerifyBrand(ctx, "  ")
	if err != nil || v.Result != "invalid" {
		t.Errorf("empty brand: %+v, err %v", v, err)
	}

	// Known brand resolves from the database tier.
	v, err = w.VerifyBrand(ctx, "Zpacks")
	if err != nil || !v.Verified || v.Source != "database" || v.Confidence != 0.98 {
		t.Errorf("known brand: %+v, err %v", v, err)
	}

	// Near-miss resolves from the fuzzy tier with a correction.
	v, err = w.VerifyBrand(ctx, "Zpack")
	if err != nil {
		t.Fatal(err)
	}
	if v.Result != "corrected" || v.SuggestedCorrection != "Zpacks" {
		t.Errorf("near-miss: %+v", v)
	}

	// Unknown brand without a provider fails soft.
	if _, err := w.VerifyBrand(ctx, "Frobnicate"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("no provider err = %v, want ErrUnavailable", err)
	}
}

func TestVerifyBrandViaWeb(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	// Official-looking results: brand in title, slug in URL, gear context.
	provider := &stubProvider{results: []SearchResult{
		{Title: "Durston Gear", URL: "https://durstongear.com", Snippet: "ultralight outdoor gear and tents"},
		{Title: "Durston X-Mid review", URL: "https://example.com/review", Snippet: "trekking pole tent gear review"},
	}}
	w := NewWebResearcher(c, provider)

	v, err := w.VerifyBrand(ctx, "Durston")
	if err != nil {
		t.Fatal(err)
	}
	if !v.Verified || v.Result != "valid" || v.Source != "web_search" {
		t.Errorf("verification = %+v", v)
	}

	// No meaningful hits: the brand is judged invalid.
	w = NewWebResearcher(c, &stubProvider{results: []SearchResult{
		{Title: "unrelated", URL: "https://example.com", Snippet: "nothing relevant"},
	}})
	v, err = w.VerifyBrand(ctx, "Frobnicate")
	if err != nil {
		t.Fatal(err)
	}
	if v.Verified || v.Result != "invalid" {
		t.Errorf("bogus brand verification = %+v", v)
	}
}

func TestSearchRetries(t *testing.T) {
	c := newTestCatalog(t)
	provider := &stubProvider{
		failures: 1,
		results:  []SearchResult{{URL: "https://example.com", Snippet: "weighs 850 g"}},
	}
	w := NewWebResearcher(c, provider)

	res, err := w.ResearchWeight(context.Background(), "Arc Haul", "Zpacks")
	if err != nil {
		t.Fatalf("retry did not recover: %v", err)
	}
	if !res.Found || provider.calls != 2 {
		t.Errorf("found = %v, calls = %d", res.Found, provider.calls)
	}
}

func TestResearchWeight(t *testing.T) {
	c := newTestCatalog(t)
	provider := &stubProvider{results: []SearchResult{
		{URL: "https://a.example", Snippet: "The pack weighs 850 g in size medium"},
		{URL: "https://b.example", Snippet: "Listed at 30 oz on the spec sheet"},
		{URL: "https://c.example", Snippet: "no figures here"},
	}}
	w := NewWebResearcher(c, provider)

	res, err := w.ResearchWeight(context.Background(), "Arc Haul", "Zpacks")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Found {
		t.Fatalf("result = %+v", res)
	}
	// 850 g and 30 oz -> 850.5 g average to 850.
	if res.WeightGrams != 850 {
		t.Errorf("weight = %d, want 850", res.WeightGrams)
	}
	if res.Confidence != 0.4 {
		t.Errorf("confidence = %v, want 0.4 (two hits)", res.Confidence)
	}
	if len(res.Sources) != 2 {
		t.Errorf("sources = %v", res.Sources)
	}

	w = NewWebResearcher(c, &stubProvider{results: []SearchResult{
		{URL: "https://a.example", Snippet: "no figures"},
	}})
	res, err = w.ResearchWeight(context.Background(), "Arc Haul", "Zpacks")
	if err != nil || res.Found {
		t.Errorf("weightless result = %+v, err %v", res, err)
	}
}

func TestResearchPrice(t *testing.T) {
	c := newTestCatalog(t)
	provider := &stubProvider{results: []SearchResult{
		{URL: "https://a.example", Snippet: "On sale for $300.00 today"},
		{URL: "https://b.example", Snippet: "MSRP $200.00 at most retailers"},
		{URL: "https://c.example", Snippet: "Collector set listed at $2500"}, // outside window
	}}
	w := NewWebResearcher(c, provider)

	res, err := w.ResearchPrice(context.Background(), "Arc Haul", "Zpacks")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Found || res.PriceUSD != 250 {
		t.Errorf("price = %+v, want 250", res)
	}
	if res.PriceRange != [2]float64{200, 300} {
		t.Errorf("range = %v", res.PriceRange)
	}
	if res.Confidence != 0.3 {
		t.Errorf("confidence = %v, want 0.3", res.Confidence)
	}
}
