package value

import (
	"errors"
	"testing"
)

// TestParseTarget tests root inference from command line text.
func TestParseTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Value
		wantErr bool
	}{
		{in: "example.com", want: NewDomain("example.com")},
		{in: "Example.com.", want: NewDomain("example.com")},
		{in: "192.0.2.1", want: NewIP("192.0.2.1", "")},
		{in: "2001:db8::1", want: NewIP("2001:db8::1", "")},
		{in: "https://example.com", want: NewWebsite("https", "example.com", 443)},
		{in: "http://example.com:8080/", want: NewWebsite("http", "example.com", 8080)},
		{in: "ftp://example.com", wantErr: true},
		{in: "bob@example.com", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseTarget(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseTarget(%q) expected error, got %v", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTarget(%q) error: %v", tt.in, err)
			}
			if !Equal(got, tt.want) {
				t.Errorf("ParseTarget(%q) = %v (%s), want %v (%s)", tt.in, got, got.Kind(), tt.want, tt.want.Kind())
			}
		})
	}
}

// TestParseText tests single-line parsing per kind.
func TestParseText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind    Kind
		in      string
		want    Value
		wantErr error
	}{
		{kind: KindHost, in: "WWW.example.com", want: NewHost("www.example.com")},
		{kind: KindDomain, in: "example.org", want: NewDomain("example.org")},
		{kind: KindNameserver, in: "ns1.example.com.", want: NewNameserver("ns1.example.com")},
		{kind: KindMailserver, in: "mx.example.com", want: NewMailserver("mx.example.com")},
		{kind: KindIP, in: "192.0.2.7", want: NewIP("192.0.2.7", "")},
		{kind: KindIP, in: "not-an-ip", wantErr: ErrInvalidValue},
		{kind: KindEmailAddress, in: "Alice@Example.com", want: NewEmailAddress("alice@example.com")},
		{kind: KindEmailAddress, in: "@example.com", wantErr: ErrInvalidValue},
		{kind: KindURL, in: "https://example.com/a?b=c", want: URL{URI: "https://example.com/a?b=c"}},
		{kind: KindURL, in: "/relative", wantErr: ErrInvalidValue},
		{kind: KindWebsite, in: "https://example.com:8443", want: NewWebsite("https", "example.com", 8443)},
		{kind: KindOpenPort, in: "example.com:25", want: OpenPort{Host: "example.com", Number: 25}},
		{kind: KindOpenPort, in: "[2001:db8::1]:53/udp", want: OpenPort{Address: "2001:db8::1", Number: 53, Protocol: ProtocolUDP}},
		{kind: KindOpenPort, in: "example.com:0", wantErr: ErrInvalidValue},
		{kind: KindCert, in: "abc", wantErr: ErrUnsupportedText},
		{kind: Kind("asn"), in: "AS1", wantErr: ErrUnknownType},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind)+"/"+tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseText(tt.kind, tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ParseText(%s, %q) error = %v, want %v", tt.kind, tt.in, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseText(%s, %q) error: %v", tt.kind, tt.in, err)
			}
			if !Equal(got, tt.want) {
				t.Errorf("ParseText(%s, %q) = %v, want %v", tt.kind, tt.in, got, tt.want)
			}
		})
	}
}
