package value

import (
	"net/netip"
	"strings"

	"golang.org/x/net/idna"
)

// NormalizeHost lower-cases a hostname, strips trailing dots and converts
// internationalized labels to their ASCII (punycode) form. IP literals are
// returned in canonical form.
func NormalizeHost(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimSuffix(strings.TrimPrefix(name, "["), "]")
	name = strings.TrimRight(name, ".")
	if addr, err := netip.ParseAddr(name); err == nil {
		return addr.Unmap().String()
	}
	name = strings.ToLower(name)
	if ascii, err := idna.Punycode.ToASCII(name); err == nil {
		return ascii
	}
	return name
}

// normalizeAddress returns the canonical text of an IP address, or the
// trimmed input when it is not one.
func normalizeAddress(s string) string {
	s = strings.TrimSpace(s)
	if addr, err := netip.ParseAddr(s); err == nil {
		return addr.Unmap().String()
	}
	return strings.ToLower(s)
}

// withinDomain reports whether host equals domain or is one of its
// subdomains. Both arguments must already be normalized.
func withinDomain(host, domain string) bool {
	if host == "" || domain == "" {
		return false
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// emailDomain returns the normalized domain part of an email address.
func emailDomain(address string) string {
	i := strings.LastIndexByte(address, '@')
	if i < 0 || i == len(address)-1 {
		return ""
	}
	return NormalizeHost(address[i+1:])
}
