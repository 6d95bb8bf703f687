package scraper

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"sjsage522/productfinder/logger"
)

// DefaultSearchLimit applies when Search is called with a non-positive limit
const DefaultSearchLimit = 10

// ProductSummary is the projection of a ProductRecord returned by Search
type ProductSummary struct {
	Title          string  `json:"title"`
	ItemID         string  `json:"asin"`
	URL            string  `json:"url"`
	Price          float64 `json:"price"`
	Currency       string  `json:"currency"`
	Rating         float64 `json:"rating"`
	TotalReviews   int     `json:"total_reviews"`
	RelevanceScore float64 `json:"score"`
}

// Summarize projects a record to a summary
func Summarize(record ProductRecord) ProductSummary {
	return ProductSummary{
		Title:          record.Title,
		ItemID:         record.ItemID,
		URL:            record.URL,
		Price:          record.Price.Current,
		Currency:       record.Price.Currency,
		Rating:         record.Reviews.Rating,
		TotalReviews:   record.Reviews.Total,
		RelevanceScore: record.RelevanceScore,
	}
}

// Searcher is the best-effort keyword search used by callers that cannot
// handle errors. Search never fails; problems are logged and yield no results.
type Searcher struct {
	scraper  *Scraper
	template ScrapeRequest
	cache    *expirable.LRU[string, []ProductSummary]
}

// NewSearcher creates a searcher. template supplies every request field other
// than the keyword and target count. A cacheSize of 0 disables result caching.
func NewSearcher(scraper *Scraper, template ScrapeRequest, cacheSize int, ttl time.Duration) *Searcher {
	s := &Searcher{scraper: scraper, template: template.withDefaults()}
	if cacheSize > 0 {
		s.cache = expirable.NewLRU[string, []ProductSummary](cacheSize, nil, ttl)
	}
	return s
}

// Search returns up to limit summaries for keyword
func (s *Searcher) Search(ctx context.Context, keyword string, limit int) []ProductSummary {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	keyword = strings.TrimSpace(keyword)
	key := fmt.Sprintf("%s|%s|%d", s.template.Geo.Code, strings.ToLower(keyword), limit)

	if s.cache != nil {
		// Callers own what they get back; the cached slice is never handed out
		if cached, ok := s.cache.Get(key); ok {
			return slices.Clone(cached)
		}
	}

	req := s.template
	req.Keyword = keyword
	req.TargetCount = limit

	result, err := s.scraper.Run(ctx, req)
	if err != nil {
		logger.LogError("search", err, "search for %q failed", keyword)
		return []ProductSummary{}
	}

	summaries := make([]ProductSummary, 0, len(result.Collected))
	for _, record := range result.Collected {
		summaries = append(summaries, Summarize(record))
	}

	if s.cache != nil && len(summaries) > 0 {
		s.cache.Add(key, slices.Clone(summaries))
	}
	return summaries
}

// Details fetches the product page of itemID with the searcher's marketplace
// and identity settings. Unlike Search it reports failures.
func (s *Searcher) Details(ctx context.Context, itemID string) (ProductInformation, error) {
	return s.scraper.ProductDetails(ctx, itemID, s.template)
}
