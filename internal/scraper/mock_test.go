package scraper

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"sjsage522/productfinder/services/cache"
)

// MockCacheService implements a simple in-memory cache for testing
type MockCacheService struct {
	mu    sync.Mutex
	cache map[string][]byte
}

func NewMockCacheService() *MockCacheService {
	return &MockCacheService{
		cache: make(map[string][]byte),
	}
}

func (m *MockCacheService) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if val, ok := m.cache[key]; ok {
		return val, nil
	}
	return nil, cache.ErrCacheMiss
}

func (m *MockCacheService) Set(key string, value []byte, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[key] = value
	return nil
}

func (m *MockCacheService) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, key)
	return nil
}

// stubDispatcher serves canned page bodies keyed by page index. Pages without
// a body come back empty, which reads as the end of results.
type stubDispatcher struct {
	mu     sync.Mutex
	pages  map[int]string
	errs   map[int]error
	delays map[int]time.Duration
	calls  []int
	descs  []RequestDescriptor

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func newStubDispatcher() *stubDispatcher {
	return &stubDispatcher{
		pages:  make(map[int]string),
		errs:   make(map[int]error),
		delays: make(map[int]time.Duration),
	}
}

func (d *stubDispatcher) Dispatch(ctx context.Context, desc RequestDescriptor) (*RawResponse, error) {
	n := d.inFlight.Add(1)
	defer d.inFlight.Add(-1)
	for {
		peak := d.maxInFlight.Load()
		if n <= peak || d.maxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}

	d.mu.Lock()
	d.calls = append(d.calls, desc.Page)
	d.descs = append(d.descs, desc)
	delay := d.delays[desc.Page]
	err := d.errs[desc.Page]
	body := d.pages[desc.Page]
	d.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &RawResponse{Page: desc.Page, StatusCode: 200, URL: desc.URL, Body: body}, nil
}

func (d *stubDispatcher) calledPages() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int(nil), d.calls...)
}

// listing describes one search result container
type listing struct {
	asin       string
	title      string
	price      string
	strike     string
	rating     string
	reviews    string
	sponsored  bool
	choice     bool
	bestSeller bool
	prime      bool
}

func listingHTML(index int, l listing) string {
	var b strings.Builder

	class := "s-result-item s-asin"
	if l.sponsored {
		class += " AdHolder"
	}
	fmt.Fprintf(&b, `<div data-index="%d" data-asin="%s" class="%s">`, index, l.asin, class)

	if l.title != "" {
		fmt.Fprintf(&b, `<div class="s-product-image-container"><img class="s-image" data-image-source-density="1" src="https://m.media-amazon.com/images/I/%s.jpg" alt="%s"></div>`, l.asin, l.title)
	}
	if l.choice {
		fmt.Fprintf(&b, `<span id="%s-amazons-choice" class="a-badge">Amazon's Choice</span>`, l.asin)
	}
	if l.bestSeller {
		fmt.Fprintf(&b, `<span id="%s-best-seller" class="a-badge">Best Seller</span>`, l.asin)
	}
	if l.rating != "" {
		fmt.Fprintf(&b, `<div class="a-row a-size-small"><span class="rating-wrap"><span class="a-declarative"><a class="a-popover-trigger"><i class="a-icon a-icon-star-small a-star-small-4-5"><span class="a-icon-alt">%s</span></i></a></span></span><span aria-label="%s"><a class="a-link-normal"><span class="a-size-base">%s</span></a></span></div>`, l.rating, l.reviews, l.reviews)
	}
	if l.price != "" {
		fmt.Fprintf(&b, `<span class="a-price" data-a-size="xl" data-a-color="base"><span class="a-offscreen">%s</span><span aria-hidden="true">%s</span></span>`, l.price, l.price)
	}
	if l.strike != "" {
		fmt.Fprintf(&b, `<span class="a-price a-text-price" data-a-size="b" data-a-strike="true" data-a-color="secondary"><span class="a-offscreen">%s</span><span aria-hidden="true">%s</span></span>`, l.strike, l.strike)
	}
	if l.prime {
		b.WriteString(`<i class="a-icon a-icon-prime s-prime" role="img"></i>`)
	}

	b.WriteString(`</div>`)
	return b.String()
}

func pageHTML(listings ...listing) string {
	var b strings.Builder
	b.WriteString("<!doctype html>\n<html>\n  <head><title>Amazon.com : results</title></head>\n  <body>\n    <div class=\"s-main-slot s-result-list\">\n")
	for i, l := range listings {
		b.WriteString("      ")
		b.WriteString(listingHTML(i, l))
		b.WriteString("\n")
	}
	b.WriteString("    </div>\n  </body>\n</html>")
	return b.String()
}

// fullPage returns n plain listings with ids prefixed by prefix
func fullPage(prefix string, n int) []listing {
	listings := make([]listing, n)
	for i := range listings {
		listings[i] = listing{
			asin:    fmt.Sprintf("%s%03d", prefix, i),
			title:   fmt.Sprintf("Item %s %d", prefix, i),
			price:   "$19.99",
			rating:  "4.0 out of 5 stars",
			reviews: "100",
		}
	}
	return listings
}
