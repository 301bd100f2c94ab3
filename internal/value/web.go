package value

import (
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Website is the root of a web server identified by scheme, host and port.
type Website struct {
	Scheme string
	Host   string
	Port   int
}

// NewWebsite returns a Website with normalized fields. A zero port becomes
// the scheme's default port.
func NewWebsite(scheme, host string, port int) Website {
	scheme = strings.ToLower(scheme)
	if port == 0 {
		port = DefaultPort(scheme)
	}
	return Website{Scheme: scheme, Host: NormalizeHost(host), Port: port}
}

// DefaultPort returns the well-known port of an http or https scheme, or 0.
func DefaultPort(scheme string) int {
	switch strings.ToLower(scheme) {
	case "http":
		return 80
	case "https":
		return 443
	default:
		return 0
	}
}

// Kind implements Value.
func (w Website) Kind() Kind { return KindWebsite }

// Key implements Value.
func (w Website) Key() string {
	return key(KindWebsite, strings.ToLower(w.Scheme), NormalizeHost(w.Host), strconv.Itoa(w.Port))
}

// String returns the site URL, omitting the port when it is the default.
func (w Website) String() string {
	return w.URL().String()
}

// URL returns the root URL of the website.
func (w Website) URL() *url.URL {
	scheme := strings.ToLower(w.Scheme)
	host := NormalizeHost(w.Host)
	switch {
	case w.Port != 0 && w.Port != DefaultPort(scheme):
		host = net.JoinHostPort(host, strconv.Itoa(w.Port))
	case strings.Contains(host, ":"):
		host = "[" + host + "]"
	}
	return &url.URL{Scheme: scheme, Host: host}
}

// URL is a single web resource. Status, Headers and Body are optional
// observations and do not take part in identity.
type URL struct {
	URI     string
	Status  int
	Headers http.Header
	Body    string
}

// Kind implements Value.
func (u URL) Kind() Kind { return KindURL }

// Key implements Value. Scheme and host are normalized, a default port is
// dropped, an empty path is "/" and the fragment is ignored. A URI that does
// not parse as an absolute URL is used as is.
func (u URL) Key() string {
	parsed := u.Parsed()
	if parsed == nil || parsed.Scheme == "" || parsed.Host == "" {
		return key(KindURL, u.URI)
	}
	scheme := strings.ToLower(parsed.Scheme)
	port := parsed.Port()
	if port == strconv.Itoa(DefaultPort(scheme)) {
		port = ""
	}
	p := parsed.EscapedPath()
	if p == "" {
		p = "/"
	}
	if parsed.RawQuery != "" || parsed.ForceQuery {
		p += "?" + parsed.RawQuery
	}
	return key(KindURL, scheme, NormalizeHost(parsed.Hostname()), port, p)
}

// String implements Value.
func (u URL) String() string { return u.URI }

// Parsed returns the parsed URI, or nil when it does not parse.
func (u URL) Parsed() *url.URL {
	parsed, err := url.Parse(u.URI)
	if err != nil {
		return nil
	}
	return parsed
}

// Hostname returns the normalized host part of the URI.
func (u URL) Hostname() string {
	parsed := u.Parsed()
	if parsed == nil {
		return ""
	}
	return NormalizeHost(parsed.Hostname())
}

// port returns the explicit or scheme default port of the URI.
func (u URL) port() int {
	parsed := u.Parsed()
	if parsed == nil {
		return 0
	}
	if p := parsed.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0
		}
		return n
	}
	return DefaultPort(parsed.Scheme)
}
