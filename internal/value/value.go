package value

import (
	"fmt"
	"slices"
)

// Kind is the variant tag of a Value. It is also the "type" field of the
// serialized record.
type Kind string

// Known value kinds.
const (
	KindDomain       Kind = "domain"
	KindHost         Kind = "host"
	KindIP           Kind = "ip"
	KindOpenPort     Kind = "open_port"
	KindWebsite      Kind = "website"
	KindURL          Kind = "url"
	KindNameserver   Kind = "nameserver"
	KindMailserver   Kind = "mailserver"
	KindCert         Kind = "cert"
	KindEmailAddress Kind = "email_address"
)

var allKinds = []Kind{
	KindDomain,
	KindHost,
	KindIP,
	KindOpenPort,
	KindWebsite,
	KindURL,
	KindNameserver,
	KindMailserver,
	KindCert,
	KindEmailAddress,
}

// Kinds returns every known kind in a stable order.
func Kinds() []Kind {
	return slices.Clone(allKinds)
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return slices.Contains(allKinds, k)
}

// String returns the tag as written in serialized records.
func (k Kind) String() string {
	return string(k)
}

// ParseKind converts a tag such as "open_port" into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
	return k, nil
}

// Value is an immutable discovery record.
type Value interface {
	// Kind returns the variant tag.
	Kind() Kind

	// Key returns the strict identity key. It is prefixed with the kind, so
	// keys of different kinds never collide.
	Key() string

	// String returns the human readable form of the value.
	String() string
}

// Equal reports whether a and b are strictly the same value.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Kind() == b.Kind() && a.Key() == b.Key()
}

// key joins the kind and identity parts with '|', which cannot occur in a
// normalized host, address or tag. IPv6 addresses contain ':'.
func key(k Kind, parts ...string) string {
	n := len(k)
	for _, p := range parts {
		n += len(p) + 1
	}
	b := make([]byte, 0, n)
	b = append(b, k...)
	for _, p := range parts {
		b = append(b, '|')
		b = append(b, p...)
	}
	return string(b)
}
