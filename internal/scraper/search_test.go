package scraper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/productfinder/pkg/errors"
)

func TestSearchProjectsRecords(t *testing.T) {
	listings := fullPage("S", 10)
	listings[0] = listing{
		asin: "B0SEARCH01", title: "Silent Wireless Mouse", price: "$24.99",
		rating: "4.5 out of 5 stars", reviews: "1,234 ratings",
	}

	d := newStubDispatcher()
	d.pages[1] = pageHTML(listings...)

	searcher := NewSearcher(newTestScraper(d), ScrapeRequest{Concurrency: 2}, 0, 0)
	results := searcher.Search(context.Background(), "wireless mouse", 0)

	require.Len(t, results, DefaultSearchLimit)
	assert.Equal(t, []int{1}, d.calledPages())
	assert.Equal(t, ProductSummary{
		Title:          "Silent Wireless Mouse",
		ItemID:         "B0SEARCH01",
		URL:            "https://www.amazon.com/dp/B0SEARCH01",
		Price:          24.99,
		Currency:       "USD",
		Rating:         4.5,
		TotalReviews:   1234,
		RelevanceScore: 5553,
	}, results[0])
	assert.Contains(t, d.descs[0].URL, "k=wireless+mouse")
}

func TestSearchFailsSoft(t *testing.T) {
	d := newStubDispatcher()
	d.errs[1] = errors.NewTimeout("www.amazon.com", "request exceeded 500ms", context.DeadlineExceeded)

	searcher := NewSearcher(newTestScraper(d), ScrapeRequest{}, 16, time.Minute)

	results := searcher.Search(context.Background(), "usb hub", 20)
	assert.NotNil(t, results)
	assert.Empty(t, results)

	// Invalid input is swallowed as well
	results = searcher.Search(context.Background(), "   ", 20)
	assert.NotNil(t, results)
	assert.Empty(t, results)

	results = searcher.Search(context.Background(), "usb hub", 5000)
	assert.Empty(t, results)
}

func TestSearchCachesResults(t *testing.T) {
	d := newStubDispatcher()
	d.pages[1] = pageHTML(fullPage("C", 5)...)

	searcher := NewSearcher(newTestScraper(d), ScrapeRequest{}, 16, time.Minute)

	first := searcher.Search(context.Background(), "Desk Lamp", 10)
	second := searcher.Search(context.Background(), "desk lamp", 10)

	assert.Len(t, first, 5)
	assert.Equal(t, first, second)
	assert.Len(t, d.calledPages(), 1)

	// A different limit is a different query
	searcher.Search(context.Background(), "desk lamp", 3)
	assert.Len(t, d.calledPages(), 2)
}

func TestSearchCallerEditsDoNotLeakIntoCache(t *testing.T) {
	d := newStubDispatcher()
	d.pages[1] = pageHTML(fullPage("E", 3)...)

	searcher := NewSearcher(newTestScraper(d), ScrapeRequest{}, 16, time.Minute)

	first := searcher.Search(context.Background(), "webcam", 10)
	require.Len(t, first, 3)
	first[0].Title = "edited"
	first[1].Price = 0

	second := searcher.Search(context.Background(), "webcam", 10)
	require.Len(t, second, 3)
	assert.Equal(t, "Item E 0", second[0].Title)
	assert.Equal(t, 19.99, second[1].Price)
	second[2].ItemID = "changed"

	third := searcher.Search(context.Background(), "webcam", 10)
	assert.Equal(t, "E002", third[2].ItemID)
	assert.Len(t, d.calledPages(), 1)
}

func TestSearchUsesTemplateMarketplace(t *testing.T) {
	d := newStubDispatcher()
	d.pages[1] = pageHTML(listing{asin: "B0DE000001", price: "9,99 €"})

	searcher := NewSearcher(newTestScraper(d), ScrapeRequest{Geo: GeoFor("DE")}, 0, 0)
	results := searcher.Search(context.Background(), "maus", 10)

	require.Len(t, results, 1)
	assert.Equal(t, 9.99, results[0].Price)
	assert.Equal(t, "EUR", results[0].Currency)
	assert.Equal(t, "https://www.amazon.de/dp/B0DE000001", results[0].URL)
}

func TestSearcherDetailsUsesTemplate(t *testing.T) {
	d := newStubDispatcher()
	d.pages[1] = productPage

	searcher := NewSearcher(newTestScraper(d), ScrapeRequest{Geo: GeoFor("GB"), Cookie: "i18n-prefs=GBP"}, 0, 0)
	info, err := searcher.Details(context.Background(), "B0MOUSE001")
	require.NoError(t, err)

	assert.Equal(t, "https://www.amazon.co.uk/dp/B0MOUSE001", info.URL)
	assert.Equal(t, "i18n-prefs=GBP", d.descs[0].Header.Get("Cookie"))
	assert.Equal(t, "Logitech", info.Fields["brand"])
}
