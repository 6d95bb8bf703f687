package scraper

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"sjsage522/productfinder/pkg/errors"
)

// DefaultUserAgent is sent when randomization is off and no agent is configured
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/102.0.5005.61 Safari/537.36"

var platformTokens = []string{
	"Macintosh; Intel Mac OS X 10_15_7",
	"Macintosh; Intel Mac OS X 10_15_5",
	"Macintosh; Intel Mac OS X 10_11_6",
	"Macintosh; Intel Mac OS X 10_6_6",
	"Macintosh; Intel Mac OS X 10_9_5",
	"Macintosh; Intel Mac OS X 10_10_5",
	"Macintosh; Intel Mac OS X 10_7_5",
	"Macintosh; Intel Mac OS X 10_11_3",
	"Macintosh; Intel Mac OS X 10_10_3",
	"Macintosh; Intel Mac OS X 10_6_8",
	"Macintosh; Intel Mac OS X 10_10_2",
	"Macintosh; Intel Mac OS X 10_11_5",
	"Windows NT 10.0; Win64; x64",
	"Windows NT 10.0; WOW64",
	"Windows NT 10.0",
}

// RouteKind is how a request reaches the marketplace
type RouteKind int

const (
	RouteDirect RouteKind = iota
	RouteHTTP
	RouteSOCKS
)

// ProxyRoute is a resolved proxy pool entry
type ProxyRoute struct {
	Kind RouteKind
	URL  *url.URL
}

// DirectRoute means no proxy
var DirectRoute = ProxyRoute{Kind: RouteDirect}

// String returns the route URL, or "direct"
func (r ProxyRoute) String() string {
	if r.Kind == RouteDirect || r.URL == nil {
		return "direct"
	}
	return r.URL.String()
}

// ParseProxyRoute turns a pool entry into a route. Bare host:port entries are
// treated as plain HTTP proxies.
func ParseProxyRoute(entry string) (ProxyRoute, error) {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return DirectRoute, nil
	}
	if !strings.Contains(entry, "://") {
		entry = "http://" + entry
	}

	u, err := url.Parse(entry)
	if err != nil {
		return ProxyRoute{}, errors.NewValidation("proxy", fmt.Sprintf("invalid proxy entry %q: %v", entry, err))
	}
	if _, port, err := net.SplitHostPort(u.Host); err != nil || port == "" || u.Hostname() == "" {
		return ProxyRoute{}, errors.NewValidation("proxy", fmt.Sprintf("proxy entry %q needs host:port", entry))
	}

	switch strings.ToLower(u.Scheme) {
	case "socks4", "socks4a", "socks5", "socks5h":
		return ProxyRoute{Kind: RouteSOCKS, URL: u}, nil
	case "http", "https":
		return ProxyRoute{Kind: RouteHTTP, URL: u}, nil
	default:
		return ProxyRoute{}, errors.NewValidation("proxy", fmt.Sprintf("unsupported proxy scheme %q", u.Scheme))
	}
}

// Rotator produces per-request identity material. Every call draws fresh
// randomness; nothing is cached between calls.
type Rotator struct {
	policy IdentityPolicy
	rnd    *Random
}

// NewRotator creates a rotator for the given policy
func NewRotator(policy IdentityPolicy, rnd *Random) *Rotator {
	if rnd == nil {
		rnd = NewRandom(nil)
	}
	return &Rotator{policy: policy, rnd: rnd}
}

// NextUserAgent returns a synthesized Chrome user agent in randomized mode
// and the configured agent otherwise.
func (r *Rotator) NextUserAgent() string {
	if !r.policy.Randomized {
		if r.policy.UserAgent != "" {
			return r.policy.UserAgent
		}
		return DefaultUserAgent
	}

	platform := platformTokens[r.rnd.IntN(len(platformTokens))]
	return fmt.Sprintf(
		"Mozilla/5.0 (%s) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%d.0.%d.%d Safari/537.36",
		platform,
		r.rnd.Between(100, 104),
		r.rnd.Between(4100, 4290),
		r.rnd.Between(140, 190),
	)
}

// NextReferer picks one candidate uniformly, or "" when there are none
func (r *Rotator) NextReferer(candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	return candidates[r.rnd.IntN(len(candidates))]
}

// ResolveProxyRoute picks one pool entry uniformly and resolves it
func (r *Rotator) ResolveProxyRoute(pool []string) (ProxyRoute, error) {
	if len(pool) == 0 {
		return DirectRoute, nil
	}
	return ParseProxyRoute(pool[r.rnd.IntN(len(pool))])
}
