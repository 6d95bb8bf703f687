package scraper

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
)

func init() {
	proxy.RegisterDialerType("socks4", newSOCKS4Dialer)
	proxy.RegisterDialerType("socks4a", newSOCKS4Dialer)
}

const (
	socks4Version   = 0x04
	socks4Connect   = 0x01
	socks4Granted   = 0x5a
	socks4Handshake = 10 * time.Second
)

// socks4Dialer tunnels TCP connections through a SOCKS4 server. Hostnames
// that are not IPv4 literals are sent using the 4a extension.
type socks4Dialer struct {
	proxyAddr string
	userID    string
	forward   proxy.Dialer
}

func newSOCKS4Dialer(u *url.URL, forward proxy.Dialer) (proxy.Dialer, error) {
	d := &socks4Dialer{proxyAddr: u.Host, forward: forward}
	if u.User != nil {
		d.userID = u.User.Username()
	}
	return d, nil
}

func (d *socks4Dialer) Dial(network, addr string) (net.Conn, error) {
	return d.DialContext(context.Background(), network, addr)
}

func (d *socks4Dialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	if network != "tcp" && network != "tcp4" {
		return nil, fmt.Errorf("socks4: network %s not supported", network)
	}

	var conn net.Conn
	var err error
	if cd, ok := d.forward.(proxy.ContextDialer); ok {
		conn, err = cd.DialContext(ctx, "tcp", d.proxyAddr)
	} else {
		conn, err = d.forward.Dial("tcp", d.proxyAddr)
	}
	if err != nil {
		return nil, fmt.Errorf("socks4: dial proxy %s: %w", d.proxyAddr, err)
	}

	deadline := time.Now().Add(socks4Handshake)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	conn.SetDeadline(deadline)

	if err := d.handshake(conn, addr); err != nil {
		conn.Close()
		return nil, err
	}

	conn.SetDeadline(time.Time{})
	return conn, nil
}

func (d *socks4Dialer) handshake(conn net.Conn, addr string) error {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("socks4: bad address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("socks4: bad port %q", portStr)
	}

	req := []byte{socks4Version, socks4Connect, 0, 0}
	binary.BigEndian.PutUint16(req[2:], uint16(port))

	ip := net.ParseIP(host).To4()
	if ip != nil {
		req = append(req, ip...)
		req = append(req, d.userID...)
		req = append(req, 0)
	} else {
		// 0.0.0.x with x != 0 asks the proxy to resolve the hostname
		req = append(req, 0, 0, 0, 1)
		req = append(req, d.userID...)
		req = append(req, 0)
		req = append(req, host...)
		req = append(req, 0)
	}

	if _, err := conn.Write(req); err != nil {
		return fmt.Errorf("socks4: write request: %w", err)
	}

	reply := make([]byte, 8)
	if _, err := io.ReadFull(conn, reply); err != nil {
		return fmt.Errorf("socks4: read reply: %w", err)
	}
	if reply[1] != socks4Granted {
		return fmt.Errorf("socks4: request rejected with code 0x%02x", reply[1])
	}
	return nil
}
