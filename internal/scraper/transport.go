package scraper

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/net/proxy"
	"golang.org/x/time/rate"

	"sjsage522/productfinder/helpers"
	"sjsage522/productfinder/logger"
	"sjsage522/productfinder/pkg/errors"
	"sjsage522/productfinder/services/cache"
)

// RawResponse is the decoded body of one page request
type RawResponse struct {
	Page       int
	StatusCode int
	URL        string
	Body       string
}

// Dispatcher executes one page request
type Dispatcher interface {
	Dispatch(ctx context.Context, desc RequestDescriptor) (*RawResponse, error)
}

// DefaultRouteCacheSize bounds how many per-route round trippers a Transport keeps
const DefaultRouteCacheSize = 64

// RoundTripperFactory builds the round tripper used for a proxy route
type RoundTripperFactory func(route ProxyRoute) (http.RoundTripper, error)

// Transport dispatches page requests over HTTP. It never retries.
type Transport struct {
	cache     cache.CacheService
	blockTime time.Duration
	limiter   *rate.Limiter
	metrics   *Metrics
	factory   RoundTripperFactory
	routeCap  int

	trippers *lru.Cache[string, http.RoundTripper]
}

// TransportOption configures a Transport
type TransportOption func(*Transport)

// WithBlockGuard marks a host as blocked in c for blockTime after it answers 429 or 503
func WithBlockGuard(c cache.CacheService, blockTime time.Duration) TransportOption {
	return func(t *Transport) {
		t.cache = c
		t.blockTime = blockTime
	}
}

// WithRateLimiter makes every dispatch wait on l first
func WithRateLimiter(l *rate.Limiter) TransportOption {
	return func(t *Transport) { t.limiter = l }
}

// WithTransportMetrics records request outcomes in m
func WithTransportMetrics(m *Metrics) TransportOption {
	return func(t *Transport) { t.metrics = m }
}

// WithRoundTripperFactory replaces the default proxy-aware round tripper
func WithRoundTripperFactory(f RoundTripperFactory) TransportOption {
	return func(t *Transport) { t.factory = f }
}

// WithRouteCacheSize caps the number of proxy routes with a live round tripper.
// The least recently used route has its idle connections closed on eviction.
func WithRouteCacheSize(n int) TransportOption {
	return func(t *Transport) { t.routeCap = n }
}

// NewTransport creates a transport
func NewTransport(opts ...TransportOption) *Transport {
	t := &Transport{factory: NewRoundTripper, routeCap: DefaultRouteCacheSize}
	for _, opt := range opts {
		opt(t)
	}
	if t.routeCap <= 0 {
		t.routeCap = DefaultRouteCacheSize
	}
	// Only fails for a non-positive size
	t.trippers, _ = lru.NewWithEvict(t.routeCap, closeIdle)
	return t
}

func closeIdle(route string, rt http.RoundTripper) {
	if c, ok := rt.(interface{ CloseIdleConnections() }); ok {
		c.CloseIdleConnections()
	}
	logger.ForTransport().Debug().Str("route", route).Msg("route evicted")
}

// NewRoundTripper returns an http.Transport that dials through route
func NewRoundTripper(route ProxyRoute) (http.RoundTripper, error) {
	dialer := &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}
	base := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	switch route.Kind {
	case RouteHTTP:
		base.Proxy = http.ProxyURL(route.URL)
	case RouteSOCKS:
		socks, err := proxy.FromURL(route.URL, dialer)
		if err != nil {
			return nil, errors.NewValidation("proxy", fmt.Sprintf("cannot dial through %s: %v", route, err))
		}
		if cd, ok := socks.(proxy.ContextDialer); ok {
			base.DialContext = cd.DialContext
		} else {
			base.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return socks.Dial(network, addr)
			}
		}
	}
	return base, nil
}

func (t *Transport) roundTripper(route ProxyRoute) (http.RoundTripper, error) {
	key := route.String()
	if rt, ok := t.trippers.Get(key); ok {
		return rt, nil
	}
	rt, err := t.factory(route)
	if err != nil {
		return nil, err
	}
	if prev, ok, _ := t.trippers.PeekOrAdd(key, rt); ok {
		return prev, nil
	}
	return rt, nil
}

func blockKey(host string) string {
	return "block:" + host
}

// Dispatch waits for the limiter and the pre-dispatch delay, then issues the request
func (t *Transport) Dispatch(ctx context.Context, desc RequestDescriptor) (*RawResponse, error) {
	target, err := url.Parse(desc.URL)
	if err != nil {
		return nil, errors.NewValidation("transport", fmt.Sprintf("invalid url %q", desc.URL))
	}
	host := target.Host
	log := logger.ForTransport().WithField("host", host)

	if t.isBlocked(host) {
		t.metrics.IncRequest("blocked")
		return nil, errors.NewRateLimit(host, t.blockTime)
	}

	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, contextError(host, "rate limiter wait", err)
		}
	}

	timeout := desc.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	delay := time.NewTimer(timeout)
	select {
	case <-ctx.Done():
		delay.Stop()
		return nil, contextError(host, "cancelled before dispatch", ctx.Err())
	case <-delay.C:
	}

	rt, err := t.roundTripper(desc.Route)
	if err != nil {
		return nil, err
	}

	client := &http.Client{
		Transport: rt,
		Timeout:   timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > MaxRedirects {
				return fmt.Errorf("stopped after %d redirects", MaxRedirects)
			}
			return nil
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, desc.URL, nil)
	if err != nil {
		return nil, errors.NewNetwork(host, "failed to create request", err)
	}
	req.Header = desc.Header.Clone()
	if req.Header == nil {
		req.Header = make(http.Header)
	}

	start := time.Now()
	resp, err := client.Do(req)
	elapsed := time.Since(start)
	t.metrics.ObserveDuration(elapsed)
	if err != nil {
		t.metrics.IncRequest("error")
		if isTimeout(err) {
			return nil, errors.NewTimeout(host, fmt.Sprintf("request exceeded %v", timeout), err)
		}
		return nil, errors.NewNetwork(host, "request failed", err)
	}
	defer resp.Body.Close()

	log.Debug().
		Int("page", desc.Page).
		Int("status", resp.StatusCode).
		Str("route", desc.Route.String()).
		Dur("elapsed", elapsed).
		Msg("page response")

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		t.markBlocked(host)
		t.metrics.IncRequest("rate_limited")
		return nil, errors.NewRateLimit(host, t.blockTime)
	case resp.StatusCode == http.StatusServiceUnavailable:
		t.markBlocked(host)
		t.metrics.IncRequest("rate_limited")
		return nil, errors.NewHTTPStatus(host, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		t.metrics.IncRequest("http_error")
		return nil, errors.NewHTTPStatus(host, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.metrics.IncRequest("error")
		if isTimeout(err) {
			return nil, errors.NewTimeout(host, "reading body", err)
		}
		return nil, errors.NewNetwork(host, "failed to read body", err)
	}

	utf8Body, err := helpers.ToUTF8(body, resp.Header.Get("Content-Type"))
	if err != nil {
		t.metrics.IncRequest("error")
		return nil, errors.NewParsing(host, "failed to decode body", err)
	}

	finalURL := desc.URL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	t.metrics.IncRequest("ok")
	return &RawResponse{
		Page:       desc.Page,
		StatusCode: resp.StatusCode,
		URL:        finalURL,
		Body:       utf8Body,
	}, nil
}

func (t *Transport) isBlocked(host string) bool {
	if t.cache == nil {
		return false
	}
	_, err := t.cache.Get(blockKey(host))
	return err == nil
}

func (t *Transport) markBlocked(host string) {
	if t.cache == nil || t.blockTime <= 0 {
		return
	}
	value := []byte(fmt.Sprintf("%d", int(t.blockTime/time.Second)))
	if err := t.cache.Set(blockKey(host), value, t.blockTime); err != nil {
		logger.ForTransport().WithField("host", host).Warn().Err(err).Msg("failed to record block")
		return
	}
	logger.ForTransport().WithField("host", host).Warn().Dur("block_time", t.blockTime).Msg("marketplace is throttling, pausing requests")
}

func isTimeout(err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return stderrors.As(err, &netErr) && netErr.Timeout()
}

func contextError(host, message string, err error) error {
	if isTimeout(err) {
		return errors.NewTimeout(host, message, err)
	}
	return errors.NewNetwork(host, message, err)
}
