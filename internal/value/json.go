package value

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type nameRecord struct {
	Type Kind   `json:"type"`
	Name string `json:"name"`
}

type hostRecord struct {
	Type Kind   `json:"type"`
	Host string `json:"host"`
}

type ipRecord struct {
	Type    Kind   `json:"type"`
	Address string `json:"address"`
	Host    string `json:"host,omitempty"`
}

type openPortRecord struct {
	Type     Kind   `json:"type"`
	Address  string `json:"address,omitempty"`
	Host     string `json:"host,omitempty"`
	Number   int    `json:"number"`
	Protocol string `json:"protocol"`
	Service  string `json:"service,omitempty"`
	SSL      bool   `json:"ssl,omitempty"`
}

type websiteRecord struct {
	Type   Kind   `json:"type"`
	Scheme string `json:"scheme"`
	Host   string `json:"host"`
	Port   int    `json:"port"`
}

type urlRecord struct {
	Type    Kind        `json:"type"`
	URL     string      `json:"url"`
	Status  int         `json:"status,omitempty"`
	Headers http.Header `json:"headers,omitempty"`
	Body    string      `json:"body,omitempty"`
}

type certRecord struct {
	Type        Kind       `json:"type"`
	Fingerprint string     `json:"fingerprint"`
	Subject     string     `json:"subject,omitempty"`
	Issuer      string     `json:"issuer,omitempty"`
	Serial      string     `json:"serial,omitempty"`
	NotBefore   *time.Time `json:"not_before,omitempty"`
	NotAfter    *time.Time `json:"not_after,omitempty"`
	DNSNames    []string   `json:"dns_names,omitempty"`
	PEM         string     `json:"pem"`
}

type emailRecord struct {
	Type    Kind   `json:"type"`
	Address string `json:"address"`
}

// record converts a value into its wire struct.
func record(v Value) (any, error) {
	switch x := v.(type) {
	case Domain:
		return nameRecord{Type: KindDomain, Name: x.String()}, nil
	case Host:
		return nameRecord{Type: KindHost, Name: x.String()}, nil
	case Nameserver:
		return hostRecord{Type: KindNameserver, Host: x.String()}, nil
	case Mailserver:
		return hostRecord{Type: KindMailserver, Host: x.String()}, nil
	case IP:
		return ipRecord{Type: KindIP, Address: x.String(), Host: NormalizeHost(x.Host)}, nil
	case OpenPort:
		return openPortRecord{
			Type:     KindOpenPort,
			Address:  normalizeAddress(x.Address),
			Host:     NormalizeHost(x.Host),
			Number:   x.Number,
			Protocol: x.protocol(),
			Service:  x.Service,
			SSL:      x.SSL,
		}, nil
	case Website:
		return websiteRecord{
			Type:   KindWebsite,
			Scheme: strings.ToLower(x.Scheme),
			Host:   NormalizeHost(x.Host),
			Port:   x.Port,
		}, nil
	case URL:
		return urlRecord{Type: KindURL, URL: x.URI, Status: x.Status, Headers: x.Headers, Body: x.Body}, nil
	case Cert:
		rec := certRecord{Type: KindCert, Fingerprint: x.Fingerprint(), PEM: x.PEM()}
		if c := x.Certificate(); c != nil {
			notBefore, notAfter := c.NotBefore.UTC(), c.NotAfter.UTC()
			rec.Subject = c.Subject.String()
			rec.Issuer = c.Issuer.String()
			rec.Serial = c.SerialNumber.String()
			rec.NotBefore = &notBefore
			rec.NotAfter = &notAfter
			rec.DNSNames = c.DNSNames
		}
		return rec, nil
	case EmailAddress:
		return emailRecord{Type: KindEmailAddress, Address: x.String()}, nil
	case nil:
		return nil, fmt.Errorf("%w: nil value", ErrInvalidValue)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownType, v)
	}
}

// Marshal encodes v as its canonical JSON record.
func Marshal(v Value) ([]byte, error) {
	rec, err := record(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(rec)
}

// MarshalJSON implements json.Marshaler.
func (d Domain) MarshalJSON() ([]byte, error) { return Marshal(d) }

// MarshalJSON implements json.Marshaler.
func (h Host) MarshalJSON() ([]byte, error) { return Marshal(h) }

// MarshalJSON implements json.Marshaler.
func (n Nameserver) MarshalJSON() ([]byte, error) { return Marshal(n) }

// MarshalJSON implements json.Marshaler.
func (m Mailserver) MarshalJSON() ([]byte, error) { return Marshal(m) }

// MarshalJSON implements json.Marshaler.
func (ip IP) MarshalJSON() ([]byte, error) { return Marshal(ip) }

// MarshalJSON implements json.Marshaler.
func (p OpenPort) MarshalJSON() ([]byte, error) { return Marshal(p) }

// MarshalJSON implements json.Marshaler.
func (w Website) MarshalJSON() ([]byte, error) { return Marshal(w) }

// MarshalJSON implements json.Marshaler.
func (u URL) MarshalJSON() ([]byte, error) { return Marshal(u) }

// MarshalJSON implements json.Marshaler.
func (c Cert) MarshalJSON() ([]byte, error) { return Marshal(c) }

// MarshalJSON implements json.Marshaler.
func (e EmailAddress) MarshalJSON() ([]byte, error) { return Marshal(e) }

// Unmarshal decodes a canonical JSON record into a Value.
func Unmarshal(data []byte) (Value, error) {
	var header struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidValue, err)
	}
	if header.Type == "" {
		return nil, fmt.Errorf("%w: record has no type", ErrInvalidValue)
	}
	kind, err := ParseKind(header.Type)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindDomain, KindHost:
		var rec nameRecord
		if err := decode(data, &rec); err != nil {
			return nil, err
		}
		if rec.Name == "" {
			return nil, missingField(kind, "name")
		}
		if kind == KindDomain {
			return NewDomain(rec.Name), nil
		}
		return NewHost(rec.Name), nil
	case KindNameserver, KindMailserver:
		var rec hostRecord
		if err := decode(data, &rec); err != nil {
			return nil, err
		}
		if rec.Host == "" {
			return nil, missingField(kind, "host")
		}
		if kind == KindNameserver {
			return NewNameserver(rec.Host), nil
		}
		return NewMailserver(rec.Host), nil
	case KindIP:
		var rec ipRecord
		if err := decode(data, &rec); err != nil {
			return nil, err
		}
		if rec.Address == "" {
			return nil, missingField(kind, "address")
		}
		return NewIP(rec.Address, rec.Host), nil
	case KindOpenPort:
		var rec openPortRecord
		if err := decode(data, &rec); err != nil {
			return nil, err
		}
		if rec.Address == "" && rec.Host == "" {
			return nil, missingField(kind, "address or host")
		}
		if rec.Number <= 0 || rec.Number > 65535 {
			return nil, fmt.Errorf("%w: open_port number %d out of range", ErrInvalidValue, rec.Number)
		}
		return OpenPort{
			Address:  normalizeAddress(rec.Address),
			Host:     NormalizeHost(rec.Host),
			Number:   rec.Number,
			Protocol: rec.Protocol,
			Service:  rec.Service,
			SSL:      rec.SSL,
		}, nil
	case KindWebsite:
		var rec websiteRecord
		if err := decode(data, &rec); err != nil {
			return nil, err
		}
		if rec.Scheme == "" || rec.Host == "" {
			return nil, missingField(kind, "scheme and host")
		}
		return NewWebsite(rec.Scheme, rec.Host, rec.Port), nil
	case KindURL:
		var rec urlRecord
		if err := decode(data, &rec); err != nil {
			return nil, err
		}
		if rec.URL == "" {
			return nil, missingField(kind, "url")
		}
		return URL{URI: rec.URL, Status: rec.Status, Headers: rec.Headers, Body: rec.Body}, nil
	case KindCert:
		var rec certRecord
		if err := decode(data, &rec); err != nil {
			return nil, err
		}
		if rec.PEM == "" {
			return nil, missingField(kind, "pem")
		}
		return ParsePEM([]byte(rec.PEM))
	case KindEmailAddress:
		var rec emailRecord
		if err := decode(data, &rec); err != nil {
			return nil, err
		}
		if !strings.Contains(rec.Address, "@") {
			return nil, fmt.Errorf("%w: email_address %q", ErrInvalidValue, rec.Address)
		}
		return NewEmailAddress(rec.Address), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, kind)
	}
}

// FromRecord converts a generic record, such as one decoded from YAML, into
// a Value.
func FromRecord(rec map[string]any) (Value, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidValue, err)
	}
	return Unmarshal(data)
}

func decode(data []byte, dst any) error {
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidValue, err)
	}
	return nil
}

func missingField(kind Kind, field string) error {
	return fmt.Errorf("%w: %s record requires %s", ErrInvalidValue, kind, field)
}
