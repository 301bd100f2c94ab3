package value

import (
	"net"
	"strconv"
	"strings"
)

// IP is an IPv4 or IPv6 address. Host optionally records the name the
// address was resolved from; it does not take part in identity.
type IP struct {
	Address string
	Host    string
}

// NewIP returns an IP with a canonical address and normalized host.
func NewIP(address, host string) IP {
	ip := IP{Address: normalizeAddress(address)}
	if host != "" {
		ip.Host = NormalizeHost(host)
	}
	return ip
}

// Kind implements Value.
func (ip IP) Kind() Kind { return KindIP }

// Key implements Value.
func (ip IP) Key() string { return key(KindIP, normalizeAddress(ip.Address)) }

// String implements Value.
func (ip IP) String() string { return normalizeAddress(ip.Address) }

// Protocols understood by OpenPort.
const (
	ProtocolTCP = "tcp"
	ProtocolUDP = "udp"
)

// OpenPort is a listening port on a host or address.
type OpenPort struct {
	Address  string
	Host     string
	Number   int
	Protocol string
	Service  string
	SSL      bool
}

// protocol returns the protocol, defaulting to tcp.
func (p OpenPort) protocol() string {
	if p.Protocol == "" {
		return ProtocolTCP
	}
	return strings.ToLower(p.Protocol)
}

// Kind implements Value.
func (p OpenPort) Kind() Kind { return KindOpenPort }

// Key implements Value.
func (p OpenPort) Key() string {
	return key(KindOpenPort,
		normalizeAddress(p.Address),
		NormalizeHost(p.Host),
		p.protocol(),
		strconv.Itoa(p.Number),
	)
}

// String implements Value.
func (p OpenPort) String() string {
	return net.JoinHostPort(p.Target(), strconv.Itoa(p.Number))
}

// Target returns the address to connect to, preferring the IP address over
// the hostname.
func (p OpenPort) Target() string {
	if p.Address != "" {
		return normalizeAddress(p.Address)
	}
	return NormalizeHost(p.Host)
}
