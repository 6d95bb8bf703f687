package scraper

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"sjsage522/productfinder/pkg/errors"
)

var endpoints = map[ScrapeKind]string{
	KindProducts: "s",
}

// RequestDescriptor is everything the transport needs to issue one page request
type RequestDescriptor struct {
	URL     string
	Header  http.Header
	Route   ProxyRoute
	Timeout time.Duration
	Page    int
}

// RequestBuilder turns a scrape request and a page index into a descriptor
type RequestBuilder struct {
	rotator *Rotator
	rnd     *Random
}

// NewRequestBuilder creates a builder drawing identity material from rotator
func NewRequestBuilder(rotator *Rotator, rnd *Random) *RequestBuilder {
	if rnd == nil {
		rnd = NewRandom(nil)
	}
	return &RequestBuilder{rotator: rotator, rnd: rnd}
}

// Build constructs the descriptor for page
func (b *RequestBuilder) Build(req ScrapeRequest, page int) (RequestDescriptor, error) {
	req = req.withDefaults()

	endpoint, ok := endpoints[req.Kind]
	if !ok {
		return RequestDescriptor{}, errors.NewInvalidRequestKind("request", string(req.Kind))
	}

	query := url.Values{}
	if req.Keyword != "" {
		query.Set("k", req.Keyword)
	}
	if req.Category != "" {
		query.Set("i", req.Category)
	}
	if page > 1 {
		query.Set("page", strconv.Itoa(page))
		query.Set("ref", fmt.Sprintf("sr_pg_%d", page))
	}

	target := req.Geo.Origin() + "/" + endpoint
	if encoded := query.Encode(); encoded != "" {
		target += "?" + encoded
	}

	route, err := b.rotator.ResolveProxyRoute(req.ProxyPool)
	if err != nil {
		return RequestDescriptor{}, err
	}

	return RequestDescriptor{
		URL:     target,
		Header:  buildHeaders(b.rotator, b.rnd, req),
		Route:   route,
		Timeout: req.Timeout,
		Page:    page,
	}, nil
}

// BuildProduct constructs the descriptor for the detail page of itemID
func (b *RequestBuilder) BuildProduct(req ScrapeRequest, itemID string) (RequestDescriptor, error) {
	req = req.withDefaults()

	route, err := b.rotator.ResolveProxyRoute(req.ProxyPool)
	if err != nil {
		return RequestDescriptor{}, err
	}

	return RequestDescriptor{
		URL:     req.Geo.Origin() + "/dp/" + url.PathEscape(itemID),
		Header:  buildHeaders(b.rotator, b.rnd, req),
		Route:   route,
		Timeout: req.Timeout,
		Page:    1,
	}, nil
}

// withDefaults fills in zero values that have a sensible default
func (r ScrapeRequest) withDefaults() ScrapeRequest {
	if r.Kind == "" {
		r.Kind = KindProducts
	}
	if r.Geo == nil {
		r.Geo = GeoFor("US")
	}
	if r.StartPage < 1 {
		r.StartPage = 1
	}
	if r.Concurrency == 0 {
		r.Concurrency = 1
	}
	if r.Timeout <= 0 {
		r.Timeout = DefaultTimeout
	}
	r.Keyword = strings.TrimSpace(r.Keyword)
	r.Category = strings.TrimSpace(r.Category)
	return r
}

// Validate checks a request before any network activity
func (r ScrapeRequest) Validate() error {
	r = r.withDefaults()

	if _, ok := endpoints[r.Kind]; !ok {
		return errors.NewInvalidRequestKind("scraper", string(r.Kind))
	}
	if r.Keyword == "" && r.Category == "" {
		return errors.NewValidation("scraper", "keyword or category is required")
	}
	if r.TargetCount <= 0 || r.TargetCount > MaxTargetCount {
		return errors.NewValidation("scraper", fmt.Sprintf("target count must be between 1 and %d, got %d", MaxTargetCount, r.TargetCount))
	}
	if r.Concurrency < 1 {
		return errors.NewValidation("scraper", fmt.Sprintf("concurrency must be at least 1, got %d", r.Concurrency))
	}
	if rr := r.RatingRange; rr != nil {
		if rr.Low < 1 || rr.High > 5 || rr.Low > rr.High {
			return errors.NewValidation("scraper", fmt.Sprintf("rating range %.1f-%.1f must lie within 1-5", rr.Low, rr.High))
		}
	}
	for _, entry := range r.ProxyPool {
		if _, err := ParseProxyRoute(entry); err != nil {
			return err
		}
	}
	return nil
}

// pagePlan lists the pages a run will fetch
func (r ScrapeRequest) pagePlan() []int {
	if r.SinglePageOnly {
		return []int{r.StartPage}
	}
	count := (r.TargetCount + ListingFloor - 1) / ListingFloor
	pages := make([]int, count)
	for i := range pages {
		pages[i] = r.StartPage + i
	}
	return pages
}
