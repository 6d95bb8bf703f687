package scraper

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/productfinder/helpers"
	"sjsage522/productfinder/logger"
)

var (
	priceSelectors = []string{
		`span[data-a-size="xl"]`,
		`span[data-a-size="l"]`,
		`span[data-a-size="m"]`,
	}
	ratingValue    = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
	firstDigitRun  = regexp.MustCompile(`\d+`)
	countSeparator = strings.NewReplacer(",", "", ".", "", " ", "", "\u00a0", "", "\u202f", "")
)

// Extractor turns a search results page into product records. It holds no
// mutable state and yields identical output for identical input.
type Extractor struct {
	geo *GeoProfile
}

// NewExtractor creates an extractor for a marketplace
func NewExtractor(geo *GeoProfile) *Extractor {
	if geo == nil {
		geo = GeoFor("US")
	}
	return &Extractor{geo: geo}
}

// Extract parses one results page. The bool is true when the page held fewer
// listing containers than ListingFloor, which marks the last page.
func (e *Extractor) Extract(rawHTML string, page int) (map[string]ProductRecord, bool) {
	records := make(map[string]ProductRecord)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(helpers.CompactMarkup(rawHTML)))
	if err != nil {
		logger.Warn("failed to parse page %d: %v", page, err)
		return records, true
	}

	containers := doc.Find("div[data-index]")
	position := 0
	containers.Each(func(i int, s *goquery.Selection) {
		id := strings.TrimSpace(s.AttrOr("data-asin", ""))
		if id == "" {
			return
		}
		// Repeats keep the first listing but still take a position
		position++
		if _, seen := records[id]; seen {
			return
		}
		if record, ok := e.extractItem(s, id, page, i, position); ok {
			records[id] = record
		}
	})

	return records, containers.Length() < ListingFloor
}

// extractItem reads one listing container. Malformed markup that trips a
// selector drops the item instead of the page.
func (e *Extractor) extractItem(s *goquery.Selection, id string, page, domIndex, position int) (record ProductRecord, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Debug("skipping listing %s on page %d: %v", id, page, r)
			ok = false
		}
	}()

	record = ProductRecord{
		ItemID: id,
		Position: Position{
			Page:      page,
			Index:     position,
			GlobalKey: fmt.Sprintf("%d%d", page, domIndex),
		},
		URL: e.geo.Origin() + "/dp/" + id,
	}

	current := 0.0
	for _, selector := range priceSelectors {
		if node := s.Find(selector).First(); node.Length() > 0 {
			current = e.geo.PriceParser(innerText(node))
			break
		}
	}

	strike := s.Find(`span[data-a-strike="true"]`).First()
	hasStrike := strike.Length() > 0
	before := 0.0
	if hasStrike {
		before = e.geo.PriceParser(innerText(strike))
	}
	record.Price = normalizePrice(current, before, hasStrike, e.geo.CurrencyCode)

	if icon := s.Find(".a-icon-star-small").First(); icon.Length() > 0 {
		record.Reviews.Rating = parseRating(icon.Children().First().Text())
		label := icon.Parent().Parent().Parent().Next().AttrOr("aria-label", "")
		record.Reviews.Total = parseCount(label)
	}
	record.RelevanceScore = helpers.Round2(record.Reviews.Rating * float64(record.Reviews.Total))

	if img := s.Find(`[data-image-source-density="1"]`).First(); img.Length() > 0 {
		record.Title = strings.TrimSpace(img.AttrOr("alt", ""))
		record.Thumbnail = img.AttrOr("src", "")
	}

	record.Flags = Flags{
		Sponsored:       s.HasClass("AdHolder") || s.Find(".puis-sponsored-label-text, .s-sponsored-label-text").Length() > 0,
		EditorialChoice: s.Find(`span[id="`+id+`-amazons-choice"]`).Length() > 0,
		BestSeller:      s.Find(`span[id="`+id+`-best-seller"]`).Length() > 0,
		Prime:           s.Find(".s-prime").Length() > 0,
	}

	return record, true
}

// normalizePrice applies the discount rule: a listing only counts as
// discounted when its strikethrough price is above the current one.
func normalizePrice(current, before float64, hasStrike bool, currency string) Price {
	price := Price{Current: current, Currency: currency}
	if !hasStrike {
		return price
	}

	savings := helpers.Round2(before - current)
	if savings <= 0 {
		return price
	}

	price.Before = before
	price.Discounted = true
	price.SavingsAmount = savings
	price.SavingsPercent = helpers.Round2(100 * savings / before)
	return price
}

// innerText prefers the first child, which carries the screen-reader price
func innerText(s *goquery.Selection) string {
	if child := s.Children().First(); child.Length() > 0 {
		return child.Text()
	}
	return s.Text()
}

func parseRating(text string) float64 {
	m := ratingValue.FindString(text)
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.Replace(m, ",", ".", 1), 64)
	if err != nil {
		return 0
	}
	return v
}

func parseCount(label string) int {
	m := firstDigitRun.FindString(countSeparator.Replace(label))
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}
