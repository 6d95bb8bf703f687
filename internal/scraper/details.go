package scraper

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"sjsage522/productfinder/helpers"
	"sjsage522/productfinder/logger"
	"sjsage522/productfinder/pkg/errors"
)

var itemIDPattern = regexp.MustCompile(`^[A-Z0-9]{10}$`)

// ProductInformation holds the labelled facts of a product detail page,
// keyed by the marketplace's ProductFieldMap.
type ProductInformation struct {
	ItemID      string            `json:"asin,omitempty"`
	URL         string            `json:"url,omitempty"`
	Fields      map[string]string `json:"fields"`
	BestSeller  *BestSeller       `json:"best_seller,omitempty"`
	ReviewDates []string          `json:"review_dates,omitempty"`
}

// ProductDetails fetches the detail page of itemID and reads its product
// information. req supplies the marketplace, identity and proxy settings;
// its search fields are ignored.
func (s *Scraper) ProductDetails(ctx context.Context, itemID string, req ScrapeRequest) (ProductInformation, error) {
	req = req.withDefaults()
	itemID = strings.ToUpper(strings.TrimSpace(itemID))
	if !itemIDPattern.MatchString(itemID) {
		err := errors.NewValidation("scraper", fmt.Sprintf("invalid item id %q", itemID))
		s.metrics.IncError(err)
		return ProductInformation{}, err
	}

	builder := NewRequestBuilder(NewRotator(req.Identity, s.rnd), s.rnd)
	desc, err := builder.BuildProduct(req, itemID)
	if err != nil {
		s.metrics.IncError(err)
		return ProductInformation{}, err
	}

	resp, err := s.dispatcher.Dispatch(ctx, desc)
	if err != nil {
		s.metrics.IncError(err)
		logger.ForScraper(uuid.NewString()).Warn().Err(err).Str("item", itemID).Msg("product page failed")
		return ProductInformation{}, err
	}

	info := NewExtractor(req.Geo).ProductInformation(resp.Body)
	info.ItemID = itemID
	info.URL = desc.URL
	return info, nil
}

const labelTrim = " :\t\u200e\u200f\u00a0"

// ProductInformation reads the technical details table or bullet list of a
// product page.
func (e *Extractor) ProductInformation(rawHTML string) ProductInformation {
	info := ProductInformation{Fields: make(map[string]string)}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(helpers.CompactMarkup(rawHTML)))
	if err != nil {
		return info
	}

	add := func(label, value string) {
		field, ok := e.geo.ProductFieldMap[strings.Trim(label, labelTrim)]
		if !ok {
			return
		}
		value = strings.Trim(value, labelTrim)
		if field.Rank {
			if rank := e.geo.BestSellerParser(value); rank != nil {
				if i := strings.Index(rank.Category, " ("); i >= 0 {
					rank.Category = rank.Category[:i]
				}
				info.BestSeller = rank
			}
		}
		if _, exists := info.Fields[field.Key]; !exists && value != "" {
			info.Fields[field.Key] = value
		}
	}

	for _, selector := range e.geo.ProductInfoSelectors {
		section := doc.Find(selector)
		section.Find("tr").Each(func(_ int, row *goquery.Selection) {
			add(row.Find("th").First().Text(), row.Find("td").First().Text())
		})
		section.Find("li").Each(func(_ int, item *goquery.Selection) {
			label := item.Find("span.a-text-bold").First()
			if label.Length() == 0 {
				return
			}
			add(label.Text(), label.Next().Text())
		})
	}

	doc.Find(`[data-hook="review-date"]`).Each(func(_ int, node *goquery.Selection) {
		if date := e.geo.DateParser(strings.TrimSpace(node.Text())); date != "" {
			info.ReviewDates = append(info.ReviewDates, date)
		}
	})

	return info
}
