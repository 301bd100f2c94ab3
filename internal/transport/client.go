package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

const (
	// DefaultTimeout bounds a single dial and a single HTTP request.
	DefaultTimeout = 10 * time.Second

	// checkProxyTimeout bounds the SOCKS5 handshake done by CheckConnection.
	checkProxyTimeout = 2 * time.Second

	// onionSuffix marks Tor hidden service hosts.
	onionSuffix = ".onion"
)

// Client dials target hosts for workers. It is safe for concurrent use.
type Client struct {
	proxyAddress string
	dialer       proxy.ContextDialer
	timeout      time.Duration
	userAgent    string
}

// Option configures a Client.
type Option func(*Client)

// WithProxy routes every connection through the SOCKS5 proxy at address.
// An empty address keeps direct connections.
func WithProxy(address string) Option {
	return func(c *Client) {
		c.proxyAddress = address
	}
}

// WithTimeout sets the dial and HTTP request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header of HTTP requests.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates a Client. The proxy address is validated but not
// contacted; call CheckConnection to verify it.
func NewClient(opts ...Option) (*Client, error) {
	c := &Client{
		timeout:   DefaultTimeout,
		userAgent: "reconscan",
	}
	for _, opt := range opts {
		opt(c)
	}

	direct := &net.Dialer{Timeout: c.timeout}
	if c.proxyAddress == "" {
		c.dialer = direct
		return c, nil
	}

	if !isValidProxyAddress(c.proxyAddress) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProxyAddress, c.proxyAddress)
	}
	d, err := proxy.SOCKS5("tcp", c.proxyAddress, nil, direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}
	cd, ok := d.(proxy.ContextDialer)
	if !ok {
		cd = contextDialer{d}
	}
	c.dialer = cd
	return c, nil
}

// isValidProxyAddress reports whether address is host:port with a port in
// 1-65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}

// contextDialer adds context support to a proxy.Dialer. A cancelled dial
// may keep running in the background until the dialer gives up.
type contextDialer struct {
	proxy.Dialer
}

func (d contextDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	type result struct {
		conn net.Conn
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		conn, err := d.Dial(network, address)
		ch <- result{conn, err}
	}()
	select {
	case r := <-ch:
		return r.conn, r.err
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.conn != nil {
				_ = r.conn.Close() //nolint:errcheck // abandoned dial
			}
		}()
		return nil, ctx.Err()
	}
}

// ProxyAddress returns the proxy address, empty for direct connections.
func (c *Client) ProxyAddress() string {
	return c.proxyAddress
}

// Proxied reports whether connections go through a proxy.
func (c *Client) Proxied() bool {
	return c.proxyAddress != ""
}

// Timeout returns the dial and request timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// IsOnion reports whether host is a Tor hidden service name.
func IsOnion(host string) bool {
	return strings.HasSuffix(strings.TrimSuffix(strings.ToLower(host), "."), onionSuffix)
}

// DialContext connects to address. Hidden service hosts are refused unless
// a proxy is configured.
func (c *Client) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if !c.Proxied() {
		if host, _, err := net.SplitHostPort(address); err == nil && IsOnion(host) {
			return nil, fmt.Errorf("%w: %s", ErrOnionNeedsProxy, host)
		}
	}
	return c.dialer.DialContext(ctx, network, address)
}

// DialTLS connects to address and completes a TLS handshake using
// serverName for SNI. Certificates are not verified: the caller wants to
// see whatever the server presents.
func (c *Client) DialTLS(ctx context.Context, address, serverName string) (*tls.Conn, error) {
	conn, err := c.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}

	cfg := &tls.Config{
		ServerName:         serverName,
		InsecureSkipVerify: true, //nolint:gosec // certificates are collected, not trusted
	}
	tlsConn := tls.Client(conn, cfg)

	hctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := tlsConn.HandshakeContext(hctx); err != nil {
		_ = conn.Close() //nolint:errcheck // handshake already failed
		return nil, fmt.Errorf("%w with %s: %w", ErrTLSHandshake, address, err)
	}
	return tlsConn, nil
}

// HTTPClient returns an HTTP client that dials through the Client. It does
// not follow redirects so that every response can be recorded as is.
func (c *Client) HTTPClient() *http.Client {
	transport := &http.Transport{
		DialContext: c.DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: true, //nolint:gosec // targets often use self-signed certificates
		},
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,
		DisableCompression:  true,
	}
	return &http.Client{
		Transport: &userAgentTransport{base: transport, userAgent: c.userAgent},
		Timeout:   c.timeout,
		CheckRedirect: func(_ *http.Request, _ []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// userAgentTransport sets the User-Agent of requests that have none.
type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

// RoundTrip implements http.RoundTripper.
func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.userAgent == "" || req.Header.Get("User-Agent") != "" {
		return t.base.RoundTrip(req)
	}
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(clone)
}

// SOCKS5 protocol constants.
const (
	socks5Version      = 0x05
	socks5AuthNone     = 0x00
	socks5CmdConnect   = 0x01
	socks5AddrTypeName = 0x03

	// socks5TestHost is a reserved name that never resolves; only the
	// proxy's answer to the CONNECT request matters.
	socks5TestHost = "reconscan-check.invalid"
)

// CheckConnection performs a SOCKS5 handshake and a CONNECT request against
// the proxy. Direct clients always report ProxyStatusOK.
func (c *Client) CheckConnection(ctx context.Context) ProxyStatus {
	if !c.Proxied() {
		return ProxyStatusOK
	}

	ctx, cancel := context.WithTimeout(ctx, checkProxyTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.proxyAddress)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ProxyStatusTimeout
		}
		return ProxyStatusCannotConnect
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(checkProxyTimeout)); err != nil {
		return ProxyStatusCannotConnect
	}

	if _, err := conn.Write([]byte{socks5Version, 0x01, socks5AuthNone}); err != nil {
		return ProxyStatusCannotConnect
	}
	auth := make([]byte, 2)
	if _, err := io.ReadFull(conn, auth); err != nil {
		return readFailure(err)
	}
	if auth[0] != socks5Version || auth[1] != socks5AuthNone {
		return ProxyStatusWrongType
	}

	req := []byte{socks5Version, socks5CmdConnect, 0x00, socks5AddrTypeName, byte(len(socks5TestHost))}
	req = append(req, socks5TestHost...)
	req = append(req, 0x00, 80)
	if _, err := conn.Write(req); err != nil {
		return ProxyStatusCannotConnect
	}

	// Any reply code counts; the proxy processed the request.
	resp := make([]byte, 4)
	if _, err := io.ReadFull(conn, resp); err != nil {
		return readFailure(err)
	}
	if resp[0] != socks5Version {
		return ProxyStatusWrongType
	}
	return ProxyStatusOK
}

func readFailure(err error) ProxyStatus {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ProxyStatusTimeout
	}
	return ProxyStatusWrongType
}
