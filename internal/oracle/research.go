package oracle

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/schmelli/gearkeeper/internal/store"
)

const gramsPerOunce = 28.35

// SearchResult is one hit from an external search provider.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// SearchProvider is the external search boundary. Implementations
// wrap whatever web-search backend is available.
type SearchProvider interface {
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

// WebResearcher implements ResearchOracle over a search provider,
// with the graph as a first tier for brand verification. Provider
// calls are bounded by a timeout and retried with backoff.
type WebResearcher struct {
	catalog  *store.Catalog
	provider SearchProvider

	Timeout    time.Duration
	MaxRetries uint64
}

// NewWebResearcher creates a researcher. provider may be nil, in
// which case every web-dependent answer is ErrUnavailable.
func NewWebResearcher(catalog *store.Catalog, provider SearchProvider) *WebResearcher {
	return &WebResearcher{
		catalog:    catalog,
		provider:   provider,
		Timeout:    30 * time.Second,
		MaxRetries: 1,
	}
}

func (w *WebResearcher) search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if w.provider == nil {
		return nil, ErrUnavailable
	}
	ctx, cancel := context.WithTimeout(ctx, w.Timeout)
	defer cancel()

	var results []SearchResult
	op := func() error {
		var err error
		results, err = w.provider.Search(ctx, query, limit)
		return err
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), w.MaxRetries), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: %s", ErrTimeout, query)
		}
		return nil, fmt.Errorf("search failed: %w", err)
	}
	return results, nil
}

// VerifyBrand checks a brand against the graph first, then the web.
func (w *WebResearcher) VerifyBrand(ctx context.Context, brand string) (BrandVerification, error) {
	if strings.TrimSpace(brand) == "" {
		return BrandVerification{
			Result:    "invalid",
			Reasoning: "Brand is empty",
		}, nil
	}
	brand = strings.TrimSpace(brand)

	info := w.catalog.BrandContext(ctx, brand)
	if info.Exists {
		return BrandVerification{
			Verified:   true,
			Result:     "valid",
			Confidence: 0.98,
			Source:     "database",
			Reasoning:  fmt.Sprintf("Brand '%s' exists in database", brand),
		}, nil
	}

	// Near-miss of a known brand beats a web round trip.
	if v, ok := fuzzyBrandMatch(brand, info.SimilarBrands); ok {
		return v, nil
	}

	return w.verifyBrandViaWeb(ctx, brand)
}

func fuzzyBrandMatch(brand string, candidates []string) (BrandVerification, bool) {
	best, bestScore := "", 0
	for _, c := range candidates {
		if score := fuzzy.WRatio(strings.ToLower(brand), strings.ToLower(c)); score > bestScore {
			best, bestScore = c, score
		}
	}
	switch {
	case bestScore >= 90:
		return BrandVerification{
			Result:              "corrected",
			Confidence:          float64(bestScore) / 100,
			Source:              "database_fuzzy",
			Reasoning:           fmt.Sprintf("Fuzzy match to known brand '%s' (%d%% similar)", best, bestScore),
			SuggestedCorrection: best,
		}, true
	case bestScore >= 75:
		return BrandVerification{
			Result:              "uncertain",
			Confidence:          float64(bestScore) / 100,
			Source:              "database_fuzzy",
			Reasoning:           fmt.Sprintf("Possible match to '%s' (%d%% similar) - needs verification", best, bestScore),
			SuggestedCorrection: best,
		}, true
	}
	return BrandVerification{}, false
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]`)

func (w *WebResearcher) verifyBrandViaWeb(ctx context.Context, brand string) (BrandVerification, error) {
	results, err := w.search(ctx, fmt.Sprintf(`"%s" outdoor gear company`, brand), 5)
	if err != nil {
		return BrandVerification{}, err
	}
	if len(results) == 0 {
		return BrandVerification{
			Result:     "uncertain",
			Confidence: 0.3,
			Source:     "web_search",
			Reasoning:  "No web results found for brand",
		}, nil
	}

	brandLower := strings.ToLower(brand)
	brandSlug := nonAlnum.ReplaceAllString(brandLower, "")
	confidence := 0.0
	for _, r := range results {
		title, snippet, url := strings.ToLower(r.Title), strings.ToLower(r.Snippet), strings.ToLower(r.URL)
		if strings.Contains(title, brandLower) || strings.Contains(snippet, brandLower) {
			confidence += 0.15
		}
		if strings.Contains(url, brandSlug) {
			confidence += 0.2
		}
		for _, term := range []string{"gear", "equipment", "outdoor", "hiking", "backpacking"} {
			if strings.Contains(snippet, term) {
				confidence += 0.1
				break
			}
		}
	}
	confidence = math.Min(confidence, 0.95)

	switch {
	case confidence >= 0.7:
		return BrandVerification{
			Verified:   true,
			Result:     "valid",
			Confidence: confidence,
			Source:     "web_search",
			Reasoning:  fmt.Sprintf("Brand '%s' appears legitimate based on web search", brand),
		}, nil
	case confidence >= 0.4:
		return BrandVerification{
			Result:     "uncertain",
			Confidence: confidence,
			Source:     "web_search",
			Reasoning:  fmt.Sprintf("Brand '%s' found online but uncertain if legitimate outdoor brand", brand),
		}, nil
	default:
		return BrandVerification{
			Result:     "invalid",
			Confidence: 1 - confidence,
			Source:     "web_search",
			Reasoning:  fmt.Sprintf("Brand '%s' does not appear to be a legitimate outdoor gear brand", brand),
		}, nil
	}
}

var (
	gramsPattern  = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:g|grams)\b`)
	ouncesPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:oz|ounces?)\b`)
)

// ResearchWeight searches for a product's weight in grams. Ounce
// figures are converted; several agreeing hits raise confidence.
func (w *WebResearcher) ResearchWeight(ctx context.Context, name, brand string) (WeightResult, error) {
	query := fmt.Sprintf(`"%s" "%s" weight grams oz specifications`, brand, name)
	results, err := w.search(ctx, query, 5)
	if err != nil {
		return WeightResult{}, err
	}
	if len(results) == 0 {
		return WeightResult{Message: "No search results"}, nil
	}

	var weights []float64
	var sources []string
	for _, r := range results {
		snippet := strings.ToLower(r.Snippet)
		for _, m := range gramsPattern.FindAllStringSubmatch(snippet, -1) {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				weights = append(weights, v)
				sources = append(sources, r.URL)
			}
		}
		for _, m := range ouncesPattern.FindAllStringSubmatch(snippet, -1) {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				weights = append(weights, v*gramsPerOunce)
				sources = append(sources, r.URL)
			}
		}
	}
	if len(weights) == 0 {
		return WeightResult{Message: "Weight not found in search results"}, nil
	}

	sum := 0.0
	for _, v := range weights {
		sum += v
	}
	return WeightResult{
		Found:       true,
		WeightGrams: int(sum / float64(len(weights))),
		Confidence:  math.Min(0.8, float64(len(weights))*0.2),
		Sources:     capSources(sources, 3),
	}, nil
}

var pricePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\$(\d+(?:\.\d{2})?)`),
	regexp.MustCompile(`USD\s*(\d+(?:\.\d{2})?)`),
	regexp.MustCompile(`(\d+(?:\.\d{2})?)\s*(?:USD|dollars)`),
}

// ResearchPrice searches for a plausible current price in USD.
// Figures outside the 5..2000 window are discarded as noise.
func (w *WebResearcher) ResearchPrice(ctx context.Context, name, brand string) (PriceResult, error) {
	query := fmt.Sprintf(`"%s" "%s" price USD buy`, brand, name)
	results, err := w.search(ctx, query, 5)
	if err != nil {
		return PriceResult{}, err
	}
	if len(results) == 0 {
		return PriceResult{Message: "No search results"}, nil
	}

	var prices []float64
	var sources []string
	for _, r := range results {
		for _, pat := range pricePatterns {
			for _, m := range pat.FindAllStringSubmatch(r.Snippet, -1) {
				if v, err := strconv.ParseFloat(m[1], 64); err == nil && v > 5 && v < 2000 {
					prices = append(prices, v)
					sources = append(sources, r.URL)
				}
			}
		}
	}
	if len(prices) == 0 {
		return PriceResult{Message: "Price not found in search results"}, nil
	}

	sum, lo, hi := 0.0, prices[0], prices[0]
	for _, v := range prices {
		sum += v
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return PriceResult{
		Found:      true,
		PriceUSD:   math.Round(sum/float64(len(prices))*100) / 100,
		Confidence: math.Min(0.7, float64(len(prices))*0.15),
		Sources:    capSources(sources, 3),
		PriceRange: [2]float64{lo, hi},
	}, nil
}

func capSources(sources []string, n int) []string {
	if len(sources) > n {
		return sources[:n]
	}
	return sources
}
