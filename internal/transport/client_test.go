package transport

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"
)

// TestNewClient tests the Client constructor.
func TestNewClient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		proxy   string
		wantErr bool
	}{
		{name: "direct", proxy: ""},
		{name: "ip and port", proxy: "127.0.0.1:9050"},
		{name: "hostname and port", proxy: "localhost:9050"},
		{name: "ipv6", proxy: "[::1]:9050"},
		{name: "missing port", proxy: "127.0.0.1", wantErr: true},
		{name: "port zero", proxy: "127.0.0.1:0", wantErr: true},
		{name: "port too large", proxy: "127.0.0.1:70000", wantErr: true},
		{name: "non numeric port", proxy: "127.0.0.1:tor", wantErr: true},
		{name: "empty host", proxy: ":9050", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, err := NewClient(WithProxy(tt.proxy), WithTimeout(5*time.Second))
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidProxyAddress) {
					t.Errorf("expected ErrInvalidProxyAddress, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c.ProxyAddress() != tt.proxy {
				t.Errorf("ProxyAddress() = %q, want %q", c.ProxyAddress(), tt.proxy)
			}
			if c.Proxied() != (tt.proxy != "") {
				t.Errorf("Proxied() = %v", c.Proxied())
			}
			if c.Timeout() != 5*time.Second {
				t.Errorf("Timeout() = %v", c.Timeout())
			}
		})
	}
}

// TestIsOnion tests hidden service detection.
func TestIsOnion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		host string
		want bool
	}{
		{"example.onion", true},
		{"EXAMPLE.ONION.", true},
		{"onion.example.com", false},
		{"example.com", false},
	}
	for _, tt := range tests {
		if got := IsOnion(tt.host); got != tt.want {
			t.Errorf("IsOnion(%q) = %v, want %v", tt.host, got, tt.want)
		}
	}
}

// TestDialContextDirect tests direct dialing.
func TestDialContextDirect(t *testing.T) {
	t.Parallel()

	t.Run("refuses onion without proxy", func(t *testing.T) {
		t.Parallel()
		c, err := NewClient()
		if err != nil {
			t.Fatalf("NewClient() error: %v", err)
		}
		_, err = c.DialContext(context.Background(), "tcp", "example.onion:80")
		if !errors.Is(err, ErrOnionNeedsProxy) {
			t.Errorf("expected ErrOnionNeedsProxy, got %v", err)
		}
	})

	t.Run("connects to listener", func(t *testing.T) {
		t.Parallel()
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("listen: %v", err)
		}
		defer ln.Close()
		go func() {
			conn, err := ln.Accept()
			if err == nil {
				_ = conn.Close()
			}
		}()

		c, err := NewClient()
		if err != nil {
			t.Fatalf("NewClient() error: %v", err)
		}
		conn, err := c.DialContext(context.Background(), "tcp", ln.Addr().String())
		if err != nil {
			t.Fatalf("DialContext() error: %v", err)
		}
		_ = conn.Close()
	})
}

// TestDialTLS tests fetching a self-signed certificate.
func TestDialTLS(t *testing.T) {
	t.Parallel()

	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := NewClient(WithTimeout(5 * time.Second))
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	conn, err := c.DialTLS(context.Background(), srv.Listener.Addr().String(), "example.com")
	if err != nil {
		t.Fatalf("DialTLS() error: %v", err)
	}
	defer conn.Close()

	certs := conn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		t.Fatal("expected a peer certificate")
	}
	if !certs[0].Equal(srv.Certificate()) {
		t.Error("expected the server certificate")
	}
}

// TestHTTPClient tests redirect handling and the user agent.
func TestHTTPClient(t *testing.T) {
	t.Parallel()

	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		http.Redirect(w, r, "/elsewhere", http.StatusMovedPermanently)
	}))
	defer srv.Close()

	c, err := NewClient(WithUserAgent("probe/1.0"))
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	resp, err := c.HTTPClient().Get(srv.URL)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMovedPermanently {
		t.Errorf("expected the redirect itself, got %d", resp.StatusCode)
	}
	if gotUA != "probe/1.0" {
		t.Errorf("User-Agent = %q", gotUA)
	}
}

// socksServer is a minimal SOCKS5 proxy for tests. It supports CONNECT to
// IPv4 and domain addresses without authentication.
type socksServer struct {
	ln       net.Listener
	wg       sync.WaitGroup
	mu       sync.Mutex
	requests []string
}

func newSOCKSServer(t *testing.T) *socksServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &socksServer{ln: ln}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.serve(conn)
			}()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		s.wg.Wait()
	})
	return s
}

func (s *socksServer) addr() string { return s.ln.Addr().String() }

func (s *socksServer) serve(conn net.Conn) {
	defer conn.Close()

	head := make([]byte, 2)
	if _, err := io.ReadFull(conn, head); err != nil {
		return
	}
	methods := make([]byte, head[1])
	if _, err := io.ReadFull(conn, methods); err != nil {
		return
	}
	if _, err := conn.Write([]byte{0x05, 0x00}); err != nil {
		return
	}

	req := make([]byte, 4)
	if _, err := io.ReadFull(conn, req); err != nil {
		return
	}
	var host string
	switch req[3] {
	case 0x01:
		ip := make([]byte, 4)
		if _, err := io.ReadFull(conn, ip); err != nil {
			return
		}
		host = net.IP(ip).String()
	case 0x03:
		n := make([]byte, 1)
		if _, err := io.ReadFull(conn, n); err != nil {
			return
		}
		name := make([]byte, n[0])
		if _, err := io.ReadFull(conn, name); err != nil {
			return
		}
		host = string(name)
	default:
		return
	}
	portBuf := make([]byte, 2)
	if _, err := io.ReadFull(conn, portBuf); err != nil {
		return
	}
	target := net.JoinHostPort(host, strconv.Itoa(int(binary.BigEndian.Uint16(portBuf))))

	s.mu.Lock()
	s.requests = append(s.requests, target)
	s.mu.Unlock()

	upstream, err := net.DialTimeout("tcp", target, time.Second)
	if err != nil {
		_, _ = conn.Write([]byte{0x05, 0x04, 0x00, 0x01, 0, 0, 0, 0, 0, 0})
		return
	}
	defer upstream.Close()
	if _, err := conn.Write([]byte{0x05, 0x00, 0x00, 0x01, 0, 0, 0, 0, 0, 0}); err != nil {
		return
	}

	done := make(chan struct{})
	go func() {
		_, _ = io.Copy(upstream, conn)
		_ = upstream.Close()
		close(done)
	}()
	_, _ = io.Copy(conn, upstream)
	_ = conn.Close()
	<-done
}

func (s *socksServer) seen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// TestCheckConnection tests the SOCKS5 proxy check.
func TestCheckConnection(t *testing.T) {
	t.Parallel()

	t.Run("direct client is always OK", func(t *testing.T) {
		t.Parallel()
		c, _ := NewClient()
		if status := c.CheckConnection(context.Background()); status != ProxyStatusOK {
			t.Errorf("expected OK, got %s", status)
		}
	})

	t.Run("socks5 proxy is OK", func(t *testing.T) {
		t.Parallel()
		proxy := newSOCKSServer(t)
		c, err := NewClient(WithProxy(proxy.addr()))
		if err != nil {
			t.Fatalf("NewClient() error: %v", err)
		}
		status := c.CheckConnection(context.Background())
		if status != ProxyStatusOK {
			t.Errorf("expected OK, got %s", status)
		}
		if status.Err() != nil {
			t.Errorf("expected nil error, got %v", status.Err())
		}
	})

	t.Run("http speaker is wrong type", func(t *testing.T) {
		t.Parallel()
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("listen: %v", err)
		}
		defer ln.Close()
		go func() {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			_, _ = conn.Write([]byte("HTTP/1.1 400 Bad Request\r\n\r\n"))
			_ = conn.Close()
		}()
		c, err := NewClient(WithProxy(ln.Addr().String()))
		if err != nil {
			t.Fatalf("NewClient() error: %v", err)
		}
		status := c.CheckConnection(context.Background())
		if status != ProxyStatusWrongType {
			t.Errorf("expected wrong type, got %s", status)
		}
		if !errors.Is(status.Err(), ErrProxyNotSOCKS5) {
			t.Errorf("unexpected error %v", status.Err())
		}
	})

	t.Run("closed port cannot connect", func(t *testing.T) {
		t.Parallel()
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("listen: %v", err)
		}
		addr := ln.Addr().String()
		_ = ln.Close()

		c, err := NewClient(WithProxy(addr))
		if err != nil {
			t.Fatalf("NewClient() error: %v", err)
		}
		if status := c.CheckConnection(context.Background()); status != ProxyStatusCannotConnect {
			t.Errorf("expected cannot connect, got %s", status)
		}
	})
}

// TestProxiedHTTP tests that HTTP requests travel through the proxy.
func TestProxiedHTTP(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()
	proxy := newSOCKSServer(t)

	c, err := NewClient(WithProxy(proxy.addr()), WithTimeout(5*time.Second))
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	client := c.HTTPClient()
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	client.CloseIdleConnections()

	if string(body) != "hello" {
		t.Errorf("unexpected body %q", body)
	}
	seen := proxy.seen()
	if len(seen) != 1 || seen[0] != srv.Listener.Addr().String() {
		t.Errorf("proxy saw %v", seen)
	}
}

// TestProxyStatusString tests status names.
func TestProxyStatusString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status ProxyStatus
		want   string
	}{
		{ProxyStatusOK, "OK"},
		{ProxyStatusWrongType, "wrong type (not SOCKS5)"},
		{ProxyStatusCannotConnect, "cannot connect"},
		{ProxyStatusTimeout, "timeout"},
		{ProxyStatus(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
