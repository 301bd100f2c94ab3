package value

import "strings"

// matchFunc decides whether container subsumes candidate. Implementations
// must not panic on unexpected concrete types.
type matchFunc func(container, candidate Value) bool

type kindPair struct {
	container Kind
	candidate Kind
}

// matchTable holds every relational rule. Pairs without an entry never match.
var matchTable = map[kindPair]matchFunc{
	{KindDomain, KindDomain}:       domainEqual,
	{KindDomain, KindHost}:         domainCoversHost,
	{KindDomain, KindNameserver}:   domainCoversHost,
	{KindDomain, KindMailserver}:   domainCoversHost,
	{KindDomain, KindIP}:           domainCoversHost,
	{KindDomain, KindOpenPort}:     domainCoversHost,
	{KindDomain, KindWebsite}:      domainCoversHost,
	{KindDomain, KindURL}:          domainCoversHost,
	{KindDomain, KindEmailAddress}: domainCoversEmail,
	{KindDomain, KindCert}:         domainCoversCert,

	{KindHost, KindHost}:         hostEqual,
	{KindHost, KindNameserver}:   hostEqual,
	{KindHost, KindMailserver}:   hostEqual,
	{KindHost, KindIP}:           hostEqual,
	{KindHost, KindOpenPort}:     hostEqual,
	{KindHost, KindWebsite}:      hostEqual,
	{KindHost, KindURL}:          hostEqual,
	{KindHost, KindEmailAddress}: hostCoversEmail,

	{KindIP, KindIP}:       addressEqual,
	{KindIP, KindOpenPort}: addressEqual,
	{KindIP, KindWebsite}:  addressEqual,
	{KindIP, KindURL}:      addressEqual,

	{KindWebsite, KindWebsite}: Equal,
	{KindWebsite, KindURL}:     websiteCoversURL,

	{KindURL, KindURL}: Equal,
}

// Subsumes reports whether the scope of container covers candidate. It is
// total: nil values and kind pairs without a rule return false.
func Subsumes(container, candidate Value) bool {
	if container == nil || candidate == nil {
		return false
	}
	match, ok := matchTable[kindPair{container.Kind(), candidate.Kind()}]
	if !ok {
		return false
	}
	return match(container, candidate)
}

// hostOf returns the normalized hostname carried by a value.
func hostOf(v Value) string {
	switch x := v.(type) {
	case Domain:
		return NormalizeHost(x.Name)
	case Host:
		return NormalizeHost(x.Name)
	case Nameserver:
		return NormalizeHost(x.Host)
	case Mailserver:
		return NormalizeHost(x.Host)
	case IP:
		return NormalizeHost(x.Host)
	case OpenPort:
		return NormalizeHost(x.Host)
	case Website:
		return NormalizeHost(x.Host)
	case URL:
		return x.Hostname()
	default:
		return ""
	}
}

// addressOf returns the canonical IP address carried by a value. Websites
// and URLs carry one when their host is an IP literal.
func addressOf(v Value) string {
	switch x := v.(type) {
	case IP:
		return normalizeAddress(x.Address)
	case OpenPort:
		return normalizeAddress(x.Address)
	case Website:
		return NormalizeHost(x.Host)
	case URL:
		return x.Hostname()
	default:
		return ""
	}
}

func domainEqual(container, candidate Value) bool {
	return hostOf(container) != "" && hostOf(container) == hostOf(candidate)
}

func domainCoversHost(container, candidate Value) bool {
	return withinDomain(hostOf(candidate), hostOf(container))
}

func domainCoversEmail(container, candidate Value) bool {
	email, ok := candidate.(EmailAddress)
	if !ok {
		return false
	}
	return withinDomain(email.Domain(), hostOf(container))
}

func domainCoversCert(container, candidate Value) bool {
	cert, ok := candidate.(Cert)
	if !ok {
		return false
	}
	domain := hostOf(container)
	for _, name := range cert.Names() {
		if withinDomain(name, domain) {
			return true
		}
	}
	return false
}

func hostEqual(container, candidate Value) bool {
	host := hostOf(container)
	return host != "" && host == hostOf(candidate)
}

func hostCoversEmail(container, candidate Value) bool {
	email, ok := candidate.(EmailAddress)
	if !ok {
		return false
	}
	host := hostOf(container)
	return host != "" && host == email.Domain()
}

func addressEqual(container, candidate Value) bool {
	addr := addressOf(container)
	return addr != "" && addr == addressOf(candidate)
}

func websiteCoversURL(container, candidate Value) bool {
	site, ok := container.(Website)
	if !ok {
		return false
	}
	u, ok := candidate.(URL)
	if !ok {
		return false
	}
	parsed := u.Parsed()
	if parsed == nil {
		return false
	}
	return strings.EqualFold(parsed.Scheme, site.Scheme) &&
		u.Hostname() == NormalizeHost(site.Host) &&
		u.port() == site.Port
}
