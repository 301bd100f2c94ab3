package builtin

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/nao1215/reconscan/internal/value"
)

// TestWebProbe tests fetching the root page.
func TestWebProbe(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Server", "nginx")
		_, _ = w.Write([]byte(`<a href="mailto:Admin@Example.com">admin</a> or sales@example.com, admin@example.com`))
	}))
	defer srv.Close()

	port := listenerPort(t, srv.Listener.Addr())
	site := value.NewWebsite("http", "127.0.0.1", port)

	got, err := run(t, NewWebProbe(directClient(t)), site)
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected a URL and 2 emails, got %v", got)
	}

	u, ok := got[0].(value.URL)
	if !ok {
		t.Fatalf("expected a URL first, got %T", got[0])
	}
	if want := "http://127.0.0.1:" + strconv.Itoa(port) + "/"; u.URI != want {
		t.Errorf("URI = %q, want %q", u.URI, want)
	}
	if u.Status != http.StatusOK {
		t.Errorf("Status = %d", u.Status)
	}
	if u.Headers.Get("Server") != "nginx" {
		t.Errorf("expected headers to be kept, got %v", u.Headers)
	}
	if !value.Subsumes(site, u) {
		t.Error("the website must subsume its URL")
	}

	assertValues(t, got[1:], []value.Value{
		value.NewEmailAddress("admin@example.com"),
		value.NewEmailAddress("sales@example.com"),
	})
}

// TestWebProbeUnreachable tests a website that cannot be reached.
func TestWebProbeUnreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	port := listenerPort(t, srv.Listener.Addr())
	srv.Close()

	if _, err := run(t, NewWebProbe(directClient(t)), value.NewWebsite("http", "127.0.0.1", port)); err == nil {
		t.Error("expected an error")
	}
}
