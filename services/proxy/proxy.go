package proxy

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"sjsage522/productfinder/logger"
	apperrors "sjsage522/productfinder/pkg/errors"
)

// Loader fetches proxy pool entries from a plain-text list
type Loader struct {
	client *http.Client
	url    string
	scheme string
}

// Option configures a Loader
type Option func(*Loader)

// WithHTTPClient overrides the client used to fetch the list
func WithHTTPClient(client *http.Client) Option {
	return func(l *Loader) {
		l.client = client
	}
}

// WithScheme sets the scheme prepended to every parsed entry (default socks5)
func WithScheme(scheme string) Option {
	return func(l *Loader) {
		l.scheme = scheme
	}
}

// NewLoader creates a loader for the list published at url
func NewLoader(url string, opts ...Option) *Loader {
	l := &Loader{
		client: &http.Client{Timeout: 30 * time.Second},
		url:    url,
		scheme: "socks5",
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load downloads the list and returns route strings such as "socks5://1.2.3.4:1080"
func (l *Loader) Load(ctx context.Context) ([]string, error) {
	log := logger.ForProxy().WithField("url", l.url)
	log.Debug().Msg("Fetching proxy list")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, apperrors.NewConfiguration("invalid PROXY_LIST_URL", err)
	}
	req.Header.Set("Accept", "text/plain,text/html,*/*")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, apperrors.NewNetwork("proxy", "failed to fetch proxy list", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewHTTPStatus("proxy", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewNetwork("proxy", "failed to read proxy list", err)
	}

	text := string(body)
	// An HTML body is an error page, not a list
	if strings.Contains(text, "<!DOCTYPE") || strings.Contains(text, "<html") {
		return nil, apperrors.NewParsing("proxy", "proxy list looks like HTML", nil)
	}

	entries := ParseList(text, l.scheme)
	if len(entries) == 0 {
		return nil, fmt.Errorf("no usable proxies in list from %s", l.url)
	}

	log.Info().Int("count", len(entries)).Msg("Loaded proxy list")
	return entries, nil
}

// badPorts are ports that belong to other services and are never proxies
var badPorts = map[int]bool{
	22:   true, // SSH
	23:   true, // Telnet
	25:   true, // SMTP
	53:   true, // DNS
	110:  true, // POP3
	143:  true, // IMAP
	443:  true, // HTTPS
	993:  true, // IMAPS
	995:  true, // POP3S
	3306: true, // MySQL
	3389: true, // RDP
	5432: true, // PostgreSQL
}

// ParseList extracts "ip:port" entries from text and renders them as
// "<scheme>://ip:port". Lines may carry trailing annotations (country codes,
// anonymity flags); every whitespace separated field is tried. Duplicates are
// dropped and input order is kept.
func ParseList(text, scheme string) []string {
	var entries []string
	seen := make(map[string]bool)
	skipped := 0

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || len(line) < 7 { // minimum "1.1.1.1:1"
			skipped++
			continue
		}

		for _, field := range strings.Fields(line) {
			hostPort, ok := parseHostPort(field)
			if !ok || seen[hostPort] {
				continue
			}
			seen[hostPort] = true
			entries = append(entries, scheme+"://"+hostPort)
		}
	}

	logger.ForProxy().Debug().
		Int("parsed", len(entries)).
		Int("skipped_lines", skipped).
		Msg("Parsed proxy list")

	return entries
}

// parseHostPort validates a single "ip:port" token
func parseHostPort(field string) (string, bool) {
	parts := strings.Split(field, ":")
	if len(parts) != 2 {
		return "", false
	}

	host := strings.TrimSpace(parts[0])
	ip := net.ParseIP(host)
	if ip == nil || !isValidPublicIP(ip) {
		return "", false
	}

	port, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || badPorts[port] {
		return "", false
	}
	if port < 80 || port > 65000 {
		return "", false
	}

	return net.JoinHostPort(host, strconv.Itoa(port)), true
}

// isValidPublicIP reports whether ip is a routable IPv4 address
func isValidPublicIP(ip net.IP) bool {
	ipv4 := ip.To4()
	if ipv4 == nil {
		return false
	}

	if ipv4[0] == 0 || // 0.0.0.0/8
		ipv4[0] == 127 || // loopback
		ipv4[0] == 10 || // 10.0.0.0/8
		(ipv4[0] == 172 && ipv4[1] >= 16 && ipv4[1] <= 31) || // 172.16.0.0/12
		(ipv4[0] == 192 && ipv4[1] == 168) || // 192.168.0.0/16
		(ipv4[0] == 169 && ipv4[1] == 254) || // link-local
		(ipv4[0] >= 224) { // multicast and reserved
		return false
	}

	// network and broadcast addresses
	if ipv4[3] == 0 || ipv4[3] == 255 {
		return false
	}

	return true
}
