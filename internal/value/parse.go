package value

import (
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strconv"
	"strings"
)

// ParseTarget infers a root value from command line text: an IP literal
// becomes an IP, text with a scheme becomes a Website and anything else a
// Domain.
func ParseTarget(s string) (Value, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty target", ErrInvalidValue)
	}
	if addr, err := netip.ParseAddr(s); err == nil {
		return NewIP(addr.String(), ""), nil
	}
	if strings.Contains(s, "://") {
		return parseWebsite(s)
	}
	if strings.ContainsAny(s, "/@ ") {
		return nil, fmt.Errorf("%w: target %q is not a domain, IP or website", ErrInvalidValue, s)
	}
	return NewDomain(s), nil
}

// ParseText builds a value of the given kind from a single line of text.
func ParseText(kind Kind, s string) (Value, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty %s", ErrInvalidValue, kind)
	}

	switch kind {
	case KindDomain:
		return NewDomain(s), nil
	case KindHost:
		return NewHost(s), nil
	case KindNameserver:
		return NewNameserver(s), nil
	case KindMailserver:
		return NewMailserver(s), nil
	case KindIP:
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return nil, fmt.Errorf("%w: ip %q", ErrInvalidValue, s)
		}
		return NewIP(addr.String(), ""), nil
	case KindEmailAddress:
		if i := strings.IndexByte(s, '@'); i <= 0 || i == len(s)-1 {
			return nil, fmt.Errorf("%w: email_address %q", ErrInvalidValue, s)
		}
		return NewEmailAddress(s), nil
	case KindWebsite:
		return parseWebsite(s)
	case KindURL:
		u, err := url.Parse(s)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("%w: url %q", ErrInvalidValue, s)
		}
		return URL{URI: u.String()}, nil
	case KindOpenPort:
		return parseOpenPort(s)
	case KindCert:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedText, kind)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, kind)
	}
}

func parseWebsite(s string) (Value, error) {
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: website %q", ErrInvalidValue, s)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("%w: website scheme %q", ErrInvalidValue, u.Scheme)
	}
	port := 0
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil || port <= 0 || port > 65535 {
			return nil, fmt.Errorf("%w: website port %q", ErrInvalidValue, p)
		}
	}
	return NewWebsite(scheme, u.Hostname(), port), nil
}

// parseOpenPort accepts "host:port" or "address:port", optionally followed
// by "/udp" or "/tcp".
func parseOpenPort(s string) (Value, error) {
	protocol := ProtocolTCP
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		protocol = strings.ToLower(s[i+1:])
		s = s[:i]
		if protocol != ProtocolTCP && protocol != ProtocolUDP {
			return nil, fmt.Errorf("%w: open_port protocol %q", ErrInvalidValue, protocol)
		}
	}
	host, portText, err := net.SplitHostPort(s)
	if err != nil {
		return nil, fmt.Errorf("%w: open_port %q: %w", ErrInvalidValue, s, err)
	}
	number, err := strconv.Atoi(portText)
	if err != nil || number <= 0 || number > 65535 {
		return nil, fmt.Errorf("%w: open_port number %q", ErrInvalidValue, portText)
	}
	port := OpenPort{Number: number, Protocol: protocol}
	if addr, err := netip.ParseAddr(host); err == nil {
		port.Address = addr.String()
	} else {
		port.Host = NormalizeHost(host)
	}
	return port, nil
}
