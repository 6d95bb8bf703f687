package scraper

import (
	"regexp"
	"strconv"
	"strings"
)

// BestSeller is a parsed best sellers rank line
type BestSeller struct {
	Rank     int    `json:"rank"`
	Category string `json:"category"`
}

// ProductField maps a product information label to a normalized key
type ProductField struct {
	Key  string
	Rank bool
}

// GeoProfile describes one marketplace. Profiles are never mutated after
// construction and their parsers hold no state, so they can be shared freely.
type GeoProfile struct {
	Code           string
	Hostname       string
	Scheme         string
	CurrencySymbol string
	CurrencyCode   string
	AcceptLanguage string

	PriceParser      func(string) float64
	DateParser       func(string) string
	BestSellerParser func(string) *BestSeller

	ProductFieldMap      map[string]ProductField
	ProductInfoSelectors []string
}

// Origin returns scheme://host
func (g *GeoProfile) Origin() string {
	scheme := g.Scheme
	if scheme == "" {
		scheme = "https"
	}
	return scheme + "://" + g.Hostname
}

// WithOrigin returns a copy of the profile that targets a different scheme and host
func (g *GeoProfile) WithOrigin(scheme, host string) *GeoProfile {
	clone := *g
	clone.Scheme = scheme
	clone.Hostname = host
	return &clone
}

var (
	nonPriceChars = regexp.MustCompile(`[^\d,.]`)
	leadingNumber = regexp.MustCompile(`^\d*\.?\d+`)
)

// dotDecimalPrice parses "$1,234.56" style prices
func dotDecimalPrice(text string) float64 {
	cleaned := nonPriceChars.ReplaceAllString(text, "")
	return parseLeading(strings.ReplaceAll(cleaned, ",", ""))
}

// commaDecimalPrice parses "1.234,56 €" style prices
func commaDecimalPrice(text string) float64 {
	cleaned := nonPriceChars.ReplaceAllString(text, "")
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	return parseLeading(strings.ReplaceAll(cleaned, ",", "."))
}

func parseLeading(s string) float64 {
	m := leadingNumber.FindString(s)
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return v
}

func dateAfter(pattern string) func(string) string {
	re := regexp.MustCompile(pattern)
	return func(text string) string {
		m := re.FindStringSubmatch(text)
		if m == nil {
			return ""
		}
		return strings.TrimSpace(m[1])
	}
}

func bestSellerParser(pattern, thousands string) func(string) *BestSeller {
	re := regexp.MustCompile(pattern)
	return func(text string) *BestSeller {
		m := re.FindStringSubmatch(text)
		if m == nil {
			return nil
		}
		rank, err := strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(m[1]), thousands, ""))
		if err != nil {
			return nil
		}
		return &BestSeller{Rank: rank, Category: strings.TrimSpace(m[2])}
	}
}

var productInfoSelectors = []string{
	"#productDetails_techSpec_section_1",
	"#productDetails_detailBullets_sections1",
	"#detailBulletsWrapper_feature_div > ul:nth-child(5)",
	"#detailBullets_feature_div > ul",
}

var englishFields = map[string]ProductField{
	"Manufacturer":         {Key: "manufacturer"},
	"Brand":                {Key: "brand"},
	"Weight":               {Key: "weight"},
	"Item Weight":          {Key: "weight"},
	"Dimensions":           {Key: "dimensions"},
	"Product Dimensions":   {Key: "dimensions"},
	"Item model number":    {Key: "model_number"},
	"Department":           {Key: "department"},
	"Date First Available": {Key: "available_from"},
	"Best Sellers Rank":    {Key: "rank", Rank: true},
}

var germanFields = map[string]ProductField{
	"Hersteller":                     {Key: "manufacturer"},
	"Marke":                          {Key: "brand"},
	"Artikelgewicht":                 {Key: "weight"},
	"Produktabmessungen":             {Key: "dimensions"},
	"Modellnummer":                   {Key: "model_number"},
	"Im Angebot von Amazon.de seit":  {Key: "available_from"},
	"Amazon Bestseller-Rang":         {Key: "rank", Rank: true},
}

var frenchFields = map[string]ProductField{
	"Fabricant":                        {Key: "manufacturer"},
	"Marque":                           {Key: "brand"},
	"Poids de l'article":               {Key: "weight"},
	"Dimensions du produit":            {Key: "dimensions"},
	"Numéro du modèle de l'article":    {Key: "model_number"},
	"Date de mise en ligne sur Amazon.fr": {Key: "available_from"},
	"Classement des meilleures ventes d'Amazon": {Key: "rank", Rank: true},
}

var italianFields = map[string]ProductField{
	"Produttore":                        {Key: "manufacturer"},
	"Marca":                             {Key: "brand"},
	"Peso articolo":                     {Key: "weight"},
	"Dimensioni prodotto":               {Key: "dimensions"},
	"Numero modello articolo":           {Key: "model_number"},
	"Disponibile su Amazon.it a partire dal": {Key: "available_from"},
	"Posizione nella classifica Bestseller di Amazon": {Key: "rank", Rank: true},
}

var spanishFields = map[string]ProductField{
	"Fabricante":                      {Key: "manufacturer"},
	"Marca":                           {Key: "brand"},
	"Peso del producto":               {Key: "weight"},
	"Dimensiones del producto":        {Key: "dimensions"},
	"Número de modelo del producto":   {Key: "model_number"},
	"Producto en Amazon.es desde":     {Key: "available_from"},
	"Clasificación en los más vendidos de Amazon": {Key: "rank", Rank: true},
}

var japaneseFields = map[string]ProductField{
	"メーカー":        {Key: "manufacturer"},
	"ブランド":        {Key: "brand"},
	"商品の重量":       {Key: "weight"},
	"梱包サイズ":       {Key: "dimensions"},
	"型番":          {Key: "model_number"},
	"Amazon.co.jp での取り扱い開始日": {Key: "available_from"},
	"Amazon 売れ筋ランキング":        {Key: "rank", Rank: true},
}

func dotDecimalProfile(code, host, symbol, currency string) *GeoProfile {
	return &GeoProfile{
		Code:                 code,
		Hostname:             host,
		Scheme:               "https",
		CurrencySymbol:       symbol,
		CurrencyCode:         currency,
		AcceptLanguage:       "en-US,en;q=0.9,ru;q=0.8",
		PriceParser:          dotDecimalPrice,
		DateParser:           dateAfter(`on\s(.*)$`),
		BestSellerParser:     bestSellerParser(`#([0-9,]+)\sin\s(.*)$`, ","),
		ProductFieldMap:      englishFields,
		ProductInfoSelectors: productInfoSelectors,
	}
}

var geoProfiles = map[string]*GeoProfile{
	"US": dotDecimalProfile("US", "www.amazon.com", "$", "USD"),
	"GB": dotDecimalProfile("GB", "www.amazon.co.uk", "£", "GBP"),
	"CA": dotDecimalProfile("CA", "www.amazon.ca", "$", "CAD"),
	"IN": dotDecimalProfile("IN", "www.amazon.in", "₹", "INR"),
	"JP": {
		Code:                 "JP",
		Hostname:             "www.amazon.co.jp",
		Scheme:               "https",
		CurrencySymbol:       "￥",
		CurrencyCode:         "JPY",
		AcceptLanguage:       "ja-JP,ja;q=0.9,en;q=0.8",
		PriceParser:          dotDecimalPrice,
		DateParser:           dateAfter(`(\d{4}年\d{1,2}月\d{1,2}日)`),
		BestSellerParser:     bestSellerParser(`-\s*([0-9,]+)位\s*(.*)$`, ","),
		ProductFieldMap:      japaneseFields,
		ProductInfoSelectors: productInfoSelectors,
	},
	"DE": {
		Code:                 "DE",
		Hostname:             "www.amazon.de",
		Scheme:               "https",
		CurrencySymbol:       "€",
		CurrencyCode:         "EUR",
		AcceptLanguage:       "de-DE,de;q=0.9,en;q=0.8",
		PriceParser:          commaDecimalPrice,
		DateParser:           dateAfter(`vom\s(.*)$`),
		BestSellerParser:     bestSellerParser(`Nr\.\s*([0-9.]+)\sin\s(.*)$`, "."),
		ProductFieldMap:      germanFields,
		ProductInfoSelectors: productInfoSelectors,
	},
	"FR": {
		Code:                 "FR",
		Hostname:             "www.amazon.fr",
		Scheme:               "https",
		CurrencySymbol:       "€",
		CurrencyCode:         "EUR",
		AcceptLanguage:       "fr-FR,fr;q=0.9,en;q=0.8",
		PriceParser:          commaDecimalPrice,
		DateParser:           dateAfter(`le\s(.*)$`),
		BestSellerParser:     bestSellerParser(`([0-9.]+)\sen\s(.*)$`, "."),
		ProductFieldMap:      frenchFields,
		ProductInfoSelectors: productInfoSelectors,
	},
	"IT": {
		Code:                 "IT",
		Hostname:             "www.amazon.it",
		Scheme:               "https",
		CurrencySymbol:       "€",
		CurrencyCode:         "EUR",
		AcceptLanguage:       "it-IT,it;q=0.9,en;q=0.8",
		PriceParser:          commaDecimalPrice,
		DateParser:           dateAfter(`il\s(.*)$`),
		BestSellerParser:     bestSellerParser(`n\.\s*([0-9.]+)\sin\s(.*)$`, "."),
		ProductFieldMap:      italianFields,
		ProductInfoSelectors: productInfoSelectors,
	},
	"ES": {
		Code:                 "ES",
		Hostname:             "www.amazon.es",
		Scheme:               "https",
		CurrencySymbol:       "€",
		CurrencyCode:         "EUR",
		AcceptLanguage:       "es-ES,es;q=0.9,en;q=0.8",
		PriceParser:          commaDecimalPrice,
		DateParser:           dateAfter(`el\s(.*)$`),
		BestSellerParser:     bestSellerParser(`nº\s*([0-9.]+)\sen\s(.*)$`, "."),
		ProductFieldMap:      spanishFields,
		ProductInfoSelectors: productInfoSelectors,
	},
}

var geoAliases = map[string]string{
	"UK": "GB",
}

// GeoFor returns the profile for an ISO country code. Unknown codes fall back to US.
func GeoFor(code string) *GeoProfile {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if canonical, ok := geoAliases[normalized]; ok {
		normalized = canonical
	}
	if geo, ok := geoProfiles[normalized]; ok {
		return geo
	}
	return geoProfiles["US"]
}

// Marketplaces lists the supported marketplace codes
func Marketplaces() []string {
	codes := make([]string, 0, len(geoProfiles))
	for code := range geoProfiles {
		codes = append(codes, code)
	}
	return codes
}
