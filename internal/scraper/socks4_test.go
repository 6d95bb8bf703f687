package scraper

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// socks4Server is a minimal SOCKS4/4a proxy that records the destinations it
// was asked to connect to.
type socks4Server struct {
	listener net.Listener
	mu       sync.Mutex
	targets  []string
	userIDs  []string
	reject   bool
}

func startSOCKS4Server(t *testing.T) *socks4Server {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &socks4Server{listener: l}
	go s.serve()
	t.Cleanup(func() { l.Close() })
	return s
}

func (s *socks4Server) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *socks4Server) handle(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)

	header := make([]byte, 8)
	if _, err := io.ReadFull(r, header); err != nil {
		return
	}
	userID, err := r.ReadString(0)
	if err != nil {
		return
	}
	port := binary.BigEndian.Uint16(header[2:4])
	host := net.IP(header[4:8]).String()
	if header[4] == 0 && header[5] == 0 && header[6] == 0 && header[7] != 0 {
		name, err := r.ReadString(0)
		if err != nil {
			return
		}
		host = strings.TrimSuffix(name, "\x00")
		if host == "localhost" {
			host = "127.0.0.1"
		}
	}
	target := net.JoinHostPort(host, fmt.Sprint(port))

	s.mu.Lock()
	s.targets = append(s.targets, target)
	s.userIDs = append(s.userIDs, strings.TrimSuffix(userID, "\x00"))
	reject := s.reject
	s.mu.Unlock()

	if reject {
		conn.Write([]byte{0, 0x5b, 0, 0, 0, 0, 0, 0})
		return
	}

	upstream, err := net.Dial("tcp", target)
	if err != nil {
		conn.Write([]byte{0, 0x5b, 0, 0, 0, 0, 0, 0})
		return
	}
	defer upstream.Close()
	conn.Write([]byte{0, socks4Granted, 0, 0, 0, 0, 0, 0})

	go io.Copy(upstream, r)
	io.Copy(conn, upstream)
}

func (s *socks4Server) url(user string) string {
	if user != "" {
		return "socks4://" + user + "@" + s.listener.Addr().String()
	}
	return "socks4://" + s.listener.Addr().String()
}

func TestDispatchThroughSOCKS4(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("tunnelled " + r.URL.Query().Get("k")))
	}))
	defer upstream.Close()
	_, port, _ := net.SplitHostPort(strings.TrimPrefix(upstream.URL, "http://"))

	tests := []struct {
		name   string
		target string
		user   string
	}{
		{"ipv4 destination", "http://127.0.0.1:" + port + "/s?k=mouse", ""},
		{"hostname destination", "http://localhost:" + port + "/s?k=mouse", "scraper"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proxyServer := startSOCKS4Server(t)

			route, err := ParseProxyRoute(proxyServer.url(tt.user))
			require.NoError(t, err)
			require.Equal(t, RouteSOCKS, route.Kind)

			desc := descriptorFor(t, tt.target)
			desc.Route = route
			desc.Timeout = time.Second

			resp, err := NewTransport().Dispatch(context.Background(), desc)
			require.NoError(t, err)
			assert.Equal(t, "tunnelled mouse", resp.Body)

			proxyServer.mu.Lock()
			defer proxyServer.mu.Unlock()
			require.Len(t, proxyServer.targets, 1)
			assert.Equal(t, "127.0.0.1:"+port, proxyServer.targets[0])
			assert.Equal(t, tt.user, proxyServer.userIDs[0])
		})
	}
}

func TestSOCKS4Rejected(t *testing.T) {
	proxyServer := startSOCKS4Server(t)
	proxyServer.mu.Lock()
	proxyServer.reject = true
	proxyServer.mu.Unlock()

	route, err := ParseProxyRoute(proxyServer.url(""))
	require.NoError(t, err)

	desc := descriptorFor(t, "http://127.0.0.1:9/s")
	desc.Route = route
	desc.Timeout = time.Second

	_, err = NewTransport().Dispatch(context.Background(), desc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected")
}
