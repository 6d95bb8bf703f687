package scraper

import (
	"time"
)

// ScrapeKind selects the marketplace endpoint a request targets
type ScrapeKind string

const (
	// KindProducts is the product search results endpoint
	KindProducts ScrapeKind = "products"
)

const (
	// ListingFloor is the container count below which a page is the last one
	ListingFloor = 10
	// MaxTargetCount is the largest number of records a single run may ask for
	MaxTargetCount = 1000
	// DefaultTimeout applies when a request does not carry its own
	DefaultTimeout = 500 * time.Millisecond
	// MaxRedirects bounds redirect following in the transport
	MaxRedirects = 5
)

// IdentityPolicy controls how user agents are chosen
type IdentityPolicy struct {
	Randomized bool
	// UserAgent is used as-is when Randomized is false. Empty falls back to DefaultUserAgent.
	UserAgent string
}

// RatingRange keeps rated items whose rating lies within [Low, High]
type RatingRange struct {
	Low  float64
	High float64
}

// Contains reports whether rating lies in the range
func (r RatingRange) Contains(rating float64) bool {
	return rating >= r.Low && rating <= r.High
}

// ScrapeRequest is the immutable input of one scrape run
type ScrapeRequest struct {
	Kind           ScrapeKind
	Keyword        string
	Category       string
	TargetCount    int
	Concurrency    int
	SinglePageOnly bool
	StartPage      int
	ProxyPool      []string
	Identity       IdentityPolicy
	Referers       []string
	Cookie         string
	Timeout        time.Duration
	RatingRange    *RatingRange
	Geo            *GeoProfile
}

// Position locates a record in the result pages
type Position struct {
	Page      int    `json:"page"`
	Index     int    `json:"index"`
	GlobalKey string `json:"global_key"`
}

// Before reports whether p sorts before other
func (p Position) Before(other Position) bool {
	if p.Page != other.Page {
		return p.Page < other.Page
	}
	return p.Index < other.Index
}

// Price holds the current and strikethrough prices of a listing
type Price struct {
	Current        float64 `json:"current_price"`
	Currency       string  `json:"currency"`
	Before         float64 `json:"before_price"`
	Discounted     bool    `json:"discounted"`
	SavingsAmount  float64 `json:"savings_amount"`
	SavingsPercent float64 `json:"savings_percent"`
}

// Reviews holds the star rating and review count of a listing
type Reviews struct {
	Rating float64 `json:"rating"`
	Total  int     `json:"total_reviews"`
}

// Flags holds the badges shown on a listing
type Flags struct {
	Sponsored       bool `json:"sponsored"`
	EditorialChoice bool `json:"amazon_choice"`
	BestSeller      bool `json:"best_seller"`
	Prime           bool `json:"amazon_prime"`
}

// ProductRecord is one listing extracted from a search results page
type ProductRecord struct {
	ItemID         string   `json:"asin"`
	Position       Position `json:"position"`
	Price          Price    `json:"price"`
	Reviews        Reviews  `json:"reviews"`
	RelevanceScore float64  `json:"score"`
	URL            string   `json:"url"`
	Title          string   `json:"title"`
	Thumbnail      string   `json:"thumbnail"`
	Flags          Flags    `json:"flags"`
}

// StopReason tells why a run ended without failing
type StopReason string

const (
	StopEndOfResults StopReason = "end_of_results"
	StopSinglePage   StopReason = "single_page"
	StopPlanComplete StopReason = "page_plan_exhausted"
)

// ScrapeResult is returned by a successful run
type ScrapeResult struct {
	RunID              string
	TotalAvailableHint *int
	Category           string
	Collected          []ProductRecord
	StopReason         StopReason
	PagesFetched       int
	StartedAt          time.Time
	Elapsed            time.Duration
}
