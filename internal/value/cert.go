package value

import (
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Cert is an X.509 certificate observed on a TLS endpoint. Identity is the
// SHA3-256 fingerprint of the DER encoding.
type Cert struct {
	Raw []byte

	parsed *x509.Certificate
}

// NewCert parses a DER encoded certificate.
func NewCert(der []byte) (Cert, error) {
	parsed, err := x509.ParseCertificate(der)
	if err != nil {
		return Cert{}, fmt.Errorf("%w: certificate: %w", ErrInvalidValue, err)
	}
	return Cert{Raw: parsed.Raw, parsed: parsed}, nil
}

// NewCertFromX509 wraps an already parsed certificate.
func NewCertFromX509(c *x509.Certificate) Cert {
	return Cert{Raw: c.Raw, parsed: c}
}

// ParsePEM decodes the first CERTIFICATE block of a PEM document.
func ParsePEM(data []byte) (Cert, error) {
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			return Cert{}, fmt.Errorf("%w: no certificate PEM block", ErrInvalidValue)
		}
		if block.Type == "CERTIFICATE" {
			return NewCert(block.Bytes)
		}
	}
}

// Kind implements Value.
func (c Cert) Kind() Kind { return KindCert }

// Key implements Value.
func (c Cert) Key() string { return key(KindCert, c.Fingerprint()) }

// String returns the subject and fingerprint.
func (c Cert) String() string {
	if x := c.Certificate(); x != nil {
		return x.Subject.String() + " (" + c.Fingerprint() + ")"
	}
	return c.Fingerprint()
}

// Fingerprint returns the hex SHA3-256 digest of the DER bytes.
func (c Cert) Fingerprint() string {
	sum := sha3.Sum256(c.Raw)
	return hex.EncodeToString(sum[:])
}

// Certificate returns the parsed certificate, or nil when Raw does not parse.
func (c Cert) Certificate() *x509.Certificate {
	if c.parsed != nil {
		return c.parsed
	}
	parsed, err := x509.ParseCertificate(c.Raw)
	if err != nil {
		return nil
	}
	return parsed
}

// PEM returns the PEM encoding of the certificate.
func (c Cert) PEM() string {
	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: c.Raw}))
}

// Names returns the normalized DNS names and common name the certificate
// covers, with wildcard prefixes removed.
func (c Cert) Names() []string {
	x := c.Certificate()
	if x == nil {
		return nil
	}
	seen := make(map[string]bool)
	names := make([]string, 0, len(x.DNSNames)+1)
	add := func(name string) {
		name = NormalizeHost(strings.TrimPrefix(name, "*."))
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		names = append(names, name)
	}
	for _, name := range x.DNSNames {
		add(name)
	}
	if cn := x.Subject.CommonName; cn != "" && !strings.Contains(cn, " ") {
		add(cn)
	}
	return names
}

// EmailAddresses returns the email addresses in the SAN extension.
func (c Cert) EmailAddresses() []string {
	x := c.Certificate()
	if x == nil {
		return nil
	}
	return x.EmailAddresses
}
