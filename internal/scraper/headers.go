package scraper

import (
	"net/http"
	"strconv"
)

const acceptHeader = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.9"

// telemetryHeader is a browser hint sent on only some requests so the header
// shape varies between calls.
type telemetryHeader struct {
	name        string
	value       func(*Random) string
	probability float64
}

func intBetween(lo, hi int) func(*Random) string {
	return func(r *Random) string {
		return strconv.Itoa(r.Between(lo, hi))
	}
}

func constant(v string) func(*Random) string {
	return func(*Random) string { return v }
}

var telemetryHeaders = []telemetryHeader{
	{name: "Downlink", value: intBetween(10, 40), probability: 0.5},
	{name: "Rtt", value: intBetween(50, 150), probability: 0.5},
	{name: "Pragma", value: constant("no-cache"), probability: 0.5},
	{name: "Ect", value: constant("4g"), probability: 0.5},
	{name: "Dnt", value: constant("1"), probability: 0.5},
	{name: "Device-Memory", value: intBetween(8, 24), probability: 0.5},
	{name: "Viewport-Width", value: intBetween(1200, 3300), probability: 0.5},
}

// buildHeaders assembles the header bundle for one request
func buildHeaders(rotator *Rotator, rnd *Random, req ScrapeRequest) http.Header {
	h := make(http.Header)
	h.Set("Accept", acceptHeader)
	h.Set("Accept-Language", req.Geo.AcceptLanguage)
	h.Set("User-Agent", rotator.NextUserAgent())

	if referer := rotator.NextReferer(req.Referers); referer != "" {
		h.Set("Referer", referer)
	}
	if req.Cookie != "" {
		h.Set("Cookie", req.Cookie)
	}

	for _, th := range telemetryHeaders {
		if rnd.Float64() < th.probability {
			h.Set(th.name, th.value(rnd))
		}
	}
	return h
}
