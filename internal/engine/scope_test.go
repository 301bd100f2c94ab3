package engine

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/nao1215/reconscan/internal/value"
)

// TestStoreOffer tests scope and dedup verdicts.
func TestStoreOffer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		candidate value.Value
		want      Verdict
	}{
		{name: "root itself", candidate: value.NewDomain("example.com"), want: Accepted},
		{name: "subdomain host", candidate: value.NewHost("www.example.com"), want: Accepted},
		{name: "lookalike host", candidate: value.NewHost("example.com.evil.com"), want: OutOfScope},
		{name: "email in subdomain", candidate: value.NewEmailAddress("bob@mail.example.com"), want: Accepted},
		{name: "email in lookalike", candidate: value.NewEmailAddress("bob@example.com.evil.org"), want: OutOfScope},
		{name: "ip root", candidate: value.NewIP("192.0.2.10", ""), want: Accepted},
		{name: "other ip", candidate: value.NewIP("192.0.2.11", ""), want: OutOfScope},
		{name: "nil", candidate: nil, want: OutOfScope},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := NewStore(value.NewDomain("example.com"), value.NewIP("192.0.2.10", ""))
			if got := s.Offer(tt.candidate); got != tt.want {
				t.Fatalf("Offer() = %s, want %s", got, tt.want)
			}
			if tt.want == Accepted {
				if got := s.Offer(tt.candidate); got != Duplicate {
					t.Errorf("second Offer() = %s, want %s", got, Duplicate)
				}
				if !s.Seen(tt.candidate) {
					t.Error("expected value to be seen")
				}
			}
		})
	}
}

// TestStoreURLSpellings tests that spellings of one URL are duplicates.
func TestStoreURLSpellings(t *testing.T) {
	t.Parallel()

	s := NewStore(value.NewDomain("example.com"))
	if got := s.Offer(value.URL{URI: "http://www.example.com/"}); got != Accepted {
		t.Fatalf("first Offer() = %s, want %s", got, Accepted)
	}
	for _, uri := range []string{
		"HTTP://WWW.Example.com/",
		"http://www.example.com./",
		"http://www.example.com:80/",
		"http://www.example.com",
	} {
		if got := s.Offer(value.URL{URI: uri}); got != Duplicate {
			t.Errorf("Offer(%q) = %s, want %s", uri, got, Duplicate)
		}
	}
}

// TestStoreAdmitConcurrent tests that concurrent producers of one value get
// exactly one acceptance.
func TestStoreAdmitConcurrent(t *testing.T) {
	t.Parallel()

	s := NewStore(value.NewDomain("example.com"))
	var accepted atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if s.Admit(value.NewHost("WWW.Example.com.")) {
				accepted.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if accepted.Load() != 1 {
		t.Errorf("expected exactly one acceptance, got %d", accepted.Load())
	}
	if s.Len() != 1 {
		t.Errorf("expected 1 seen value, got %d", s.Len())
	}
}

// TestStoreRoots tests that roots are copied and nil roots dropped.
func TestStoreRoots(t *testing.T) {
	t.Parallel()

	s := NewStore(value.NewDomain("example.com"), nil)
	roots := s.Roots()
	if len(roots) != 1 {
		t.Fatalf("expected 1 root, got %d", len(roots))
	}
	roots[0] = value.NewDomain("evil.com")
	if !s.InScope(value.NewHost("www.example.com")) {
		t.Error("modifying Roots() result must not change the store")
	}
}
