package value

// Domain is a registered domain name, typically a scan root.
type Domain struct {
	Name string
}

// NewDomain returns a Domain with a normalized name.
func NewDomain(name string) Domain {
	return Domain{Name: NormalizeHost(name)}
}

// Kind implements Value.
func (d Domain) Kind() Kind { return KindDomain }

// Key implements Value.
func (d Domain) Key() string { return key(KindDomain, NormalizeHost(d.Name)) }

// String implements Value.
func (d Domain) String() string { return NormalizeHost(d.Name) }

// Host is a fully qualified hostname.
type Host struct {
	Name string
}

// NewHost returns a Host with a normalized name.
func NewHost(name string) Host {
	return Host{Name: NormalizeHost(name)}
}

// Kind implements Value.
func (h Host) Kind() Kind { return KindHost }

// Key implements Value.
func (h Host) Key() string { return key(KindHost, NormalizeHost(h.Name)) }

// String implements Value.
func (h Host) String() string { return NormalizeHost(h.Name) }

// Nameserver is a host serving DNS for a domain.
type Nameserver struct {
	Host string
}

// NewNameserver returns a Nameserver with a normalized host.
func NewNameserver(host string) Nameserver {
	return Nameserver{Host: NormalizeHost(host)}
}

// Kind implements Value.
func (n Nameserver) Kind() Kind { return KindNameserver }

// Key implements Value.
func (n Nameserver) Key() string { return key(KindNameserver, NormalizeHost(n.Host)) }

// String implements Value.
func (n Nameserver) String() string { return NormalizeHost(n.Host) }

// Mailserver is a host accepting mail for a domain.
type Mailserver struct {
	Host string
}

// NewMailserver returns a Mailserver with a normalized host.
func NewMailserver(host string) Mailserver {
	return Mailserver{Host: NormalizeHost(host)}
}

// Kind implements Value.
func (m Mailserver) Kind() Kind { return KindMailserver }

// Key implements Value.
func (m Mailserver) Key() string { return key(KindMailserver, NormalizeHost(m.Host)) }

// String implements Value.
func (m Mailserver) String() string { return NormalizeHost(m.Host) }
