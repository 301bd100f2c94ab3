package builtin

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"io"
	"log/slog"
	"math/big"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/miekg/dns"

	"github.com/nao1215/reconscan/internal/value"
	"github.com/nao1215/reconscan/internal/worker"
)

// run processes v with w and returns the emitted values.
func run(t *testing.T, w worker.Worker, v value.Value) ([]value.Value, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var mu sync.Mutex
	var got []value.Value
	err := w.Process(ctx, v, func(out value.Value) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, out)
	})
	return got, err
}

// zone is a static DNS zone served by startDNSServer.
type zone map[string][]string

// startDNSServer serves records on a local UDP port and returns its address.
// Names missing from the zone get NXDOMAIN.
func startDNSServer(t *testing.T, records zone) string {
	t.Helper()
	return startDNSHandler(t, func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(r)
		q := r.Question[0]
		key := dns.TypeToString[q.Qtype] + " " + q.Name
		rrs, ok := records[key]
		if !ok {
			if !nameExists(records, q.Name) {
				m.SetRcode(r, dns.RcodeNameError)
			}
		}
		for _, s := range rrs {
			rr, err := dns.NewRR(s)
			if err != nil {
				t.Errorf("bad test record %q: %v", s, err)
				continue
			}
			m.Answer = append(m.Answer, rr)
		}
		_ = w.WriteMsg(m)
	})
}

func nameExists(records zone, name string) bool {
	for key := range records {
		if len(key) > len(name) && key[len(key)-len(name):] == name {
			return true
		}
	}
	return false
}

func startDNSHandler(t *testing.T, handler dns.HandlerFunc) string {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	started := make(chan struct{})
	srv := &dns.Server{
		PacketConn:        pc,
		Handler:           handler,
		NotifyStartedFunc: func() { close(started) },
	}
	go func() {
		_ = srv.ActivateAndServe()
	}()
	<-started
	t.Cleanup(func() {
		_ = srv.Shutdown()
	})
	return pc.LocalAddr().String()
}

// newTestCert returns a self-signed certificate value.
func newTestCert(t *testing.T, cn string, dnsNames, emails []string) value.Cert {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber:   big.NewInt(42),
		Subject:        pkix.Name{CommonName: cn},
		DNSNames:       dnsNames,
		EmailAddresses: emails,
		NotBefore:      time.Now().Add(-time.Hour),
		NotAfter:       time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	cert, err := value.NewCert(der)
	if err != nil {
		t.Fatalf("NewCert() error: %v", err)
	}
	return cert
}

func assertValues(t *testing.T, got, want []value.Value) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d values %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if !value.Equal(got[i], want[i]) {
			t.Errorf("value %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
