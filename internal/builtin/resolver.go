package builtin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/miekg/dns"
)

// DefaultDNSServers are used when no server is configured and the system
// resolver configuration cannot be read.
var DefaultDNSServers = []string{"1.1.1.1:53", "8.8.8.8:53"}

// ErrNoDNSServers is returned when a Resolver has nothing to query.
var ErrNoDNSServers = errors.New("no DNS servers configured")

// Resolver queries DNS servers in rotation, retrying transient failures
// with exponential backoff. NXDOMAIN is not an error: it yields no records.
type Resolver struct {
	servers      []string
	udp          *dns.Client
	tcp          *dns.Client
	queryTimeout time.Duration
	maxTries     uint
	maxElapsed   time.Duration
	logger       *slog.Logger
	next         atomic.Uint32
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithQueryTimeout bounds a single exchange with one server.
func WithQueryTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		if d > 0 {
			r.queryTimeout = d
		}
	}
}

// WithMaxTries limits the number of exchanges per lookup.
func WithMaxTries(n uint) ResolverOption {
	return func(r *Resolver) {
		if n > 0 {
			r.maxTries = n
		}
	}
}

// WithResolverLogger sets the logger.
func WithResolverLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// NewResolver creates a resolver for servers given as "host" or "host:port".
// With no servers, the system resolv.conf is used, then DefaultDNSServers.
func NewResolver(servers []string, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		udp:          &dns.Client{Net: "udp"},
		tcp:          &dns.Client{Net: "tcp"},
		queryTimeout: 3 * time.Second,
		maxTries:     4,
		maxElapsed:   30 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}

	if len(servers) == 0 {
		servers = systemServers()
	}
	for _, s := range servers {
		if s = strings.TrimSpace(s); s != "" {
			r.servers = append(r.servers, serverAddress(s))
		}
	}
	return r
}

// Servers returns the server addresses in rotation order.
func (r *Resolver) Servers() []string {
	return append([]string(nil), r.servers...)
}

func systemServers() []string {
	cfg, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil || len(cfg.Servers) == 0 {
		return DefaultDNSServers
	}
	servers := make([]string, 0, len(cfg.Servers))
	for _, s := range cfg.Servers {
		servers = append(servers, net.JoinHostPort(s, cfg.Port))
	}
	return servers
}

// serverAddress adds the default port to a bare host or IP.
func serverAddress(s string) string {
	if _, _, err := net.SplitHostPort(s); err == nil {
		return s
	}
	return net.JoinHostPort(strings.Trim(s, "[]"), "53")
}

// Query returns the answer section for name and qtype.
func (r *Resolver) Query(ctx context.Context, name string, qtype uint16) ([]dns.RR, error) {
	if len(r.servers) == 0 {
		return nil, ErrNoDNSServers
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 500 * time.Millisecond

	operation := func() ([]dns.RR, error) {
		i := r.next.Add(1) - 1
		server := r.servers[int(i)%len(r.servers)]

		answer, err := r.exchange(ctx, server, name, qtype)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}
			r.logger.Debug("dns query failed",
				"server", server,
				"name", name,
				"type", dns.TypeToString[qtype],
				"error", err,
			)
		}
		return answer, err
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(r.maxTries),
		backoff.WithMaxElapsedTime(r.maxElapsed),
	)
}

// exchange sends one query to one server, falling back to TCP when the UDP
// answer is truncated.
func (r *Resolver) exchange(ctx context.Context, server, name string, qtype uint16) ([]dns.RR, error) {
	qctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), qtype)
	msg.RecursionDesired = true

	resp, _, err := r.udp.ExchangeContext(qctx, msg, server)
	if err == nil && resp.Truncated {
		resp, _, err = r.tcp.ExchangeContext(qctx, msg, server)
	}
	if err != nil {
		return nil, err
	}

	switch resp.Rcode {
	case dns.RcodeSuccess:
		return resp.Answer, nil
	case dns.RcodeNameError:
		return nil, nil
	case dns.RcodeServerFailure, dns.RcodeRefused:
		return nil, fmt.Errorf("%s answered %s", server, dns.RcodeToString[resp.Rcode])
	default:
		return nil, backoff.Permanent(fmt.Errorf("%s answered %s", server, dns.RcodeToString[resp.Rcode]))
	}
}

// LookupIP returns the A and AAAA addresses of name.
func (r *Resolver) LookupIP(ctx context.Context, name string) ([]netip.Addr, error) {
	var addrs []netip.Addr
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		answer, err := r.Query(ctx, name, qtype)
		if err != nil {
			return addrs, err
		}
		for _, rr := range answer {
			var ip net.IP
			switch rec := rr.(type) {
			case *dns.A:
				ip = rec.A
			case *dns.AAAA:
				ip = rec.AAAA
			default:
				continue
			}
			if addr, ok := netip.AddrFromSlice(ip); ok {
				addrs = append(addrs, addr.Unmap())
			}
		}
	}
	return addrs, nil
}

// LookupPTR returns the names an address points back to.
func (r *Resolver) LookupPTR(ctx context.Context, address string) ([]string, error) {
	arpa, err := dns.ReverseAddr(address)
	if err != nil {
		return nil, err
	}
	answer, err := r.Query(ctx, arpa, dns.TypePTR)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, rr := range answer {
		if ptr, ok := rr.(*dns.PTR); ok {
			names = append(names, trimDot(ptr.Ptr))
		}
	}
	return names, nil
}

// LookupMX returns the mail exchangers of name.
func (r *Resolver) LookupMX(ctx context.Context, name string) ([]string, error) {
	answer, err := r.Query(ctx, name, dns.TypeMX)
	if err != nil {
		return nil, err
	}
	var hosts []string
	for _, rr := range answer {
		if mx, ok := rr.(*dns.MX); ok && mx.Mx != "." {
			hosts = append(hosts, trimDot(mx.Mx))
		}
	}
	return hosts, nil
}

// LookupNS returns the authoritative nameservers of name.
func (r *Resolver) LookupNS(ctx context.Context, name string) ([]string, error) {
	answer, err := r.Query(ctx, name, dns.TypeNS)
	if err != nil {
		return nil, err
	}
	var hosts []string
	for _, rr := range answer {
		if ns, ok := rr.(*dns.NS); ok {
			hosts = append(hosts, trimDot(ns.Ns))
		}
	}
	return hosts, nil
}

func trimDot(name string) string {
	return strings.TrimSuffix(name, ".")
}
