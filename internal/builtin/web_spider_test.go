package builtin

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nao1215/reconscan/internal/crawler"
	"github.com/nao1215/reconscan/internal/value"
)

func newSpiderSite(t *testing.T) (*httptest.Server, value.Website) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<html><head><title>Home</title></head><body>
<a href="/about">About</a>
<a href="https://Blog.Example.org/post">Blog</a>
<a href="http://cdn.example.org:8080/app.js">CDN</a>
<a href="/old">Old</a>
<a href="http://%s/">Home</a>
<p>contact: info@example.com</p>
</body></html>`, r.Host)
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<p>sales@example.com info@example.com</p>
<a href="https://blog.example.org/other">more</a>`))
	})
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/about", http.StatusFound)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv, value.NewWebsite("http", "127.0.0.1", listenerPort(t, srv.Listener.Addr()))
}

// TestWebSpider tests crawling a small website.
func TestWebSpider(t *testing.T) {
	t.Parallel()

	srv, site := newSpiderSite(t)

	got, err := run(t, NewWebSpider(directClient(t)), site)
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}

	assertValues(t, got, []value.Value{
		value.URL{URI: srv.URL + "/"},
		value.NewHost("blog.example.org"),
		value.NewWebsite("https", "blog.example.org", 443),
		value.NewHost("cdn.example.org"),
		value.NewWebsite("http", "cdn.example.org", 8080),
		value.NewEmailAddress("info@example.com"),
		value.URL{URI: srv.URL + "/about"},
		value.NewEmailAddress("sales@example.com"),
		value.URL{URI: srv.URL + "/old"},
	})

	for _, v := range got {
		u, ok := v.(value.URL)
		if !ok {
			continue
		}
		if !value.Subsumes(site, u) {
			t.Errorf("the website must subsume %s", u.URI)
		}
		want := http.StatusOK
		if u.URI == srv.URL+"/old" {
			want = http.StatusFound
		}
		if u.Status != want {
			t.Errorf("%s: Status = %d, want %d", u.URI, u.Status, want)
		}
	}
}

// TestWebSpiderOptions tests that spider options limit the crawl.
func TestWebSpiderOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		opts  []crawler.SpiderOption
		pages int
	}{
		{name: "single page", opts: []crawler.SpiderOption{crawler.WithMaxPages(1)}, pages: 1},
		{name: "start page only", opts: []crawler.SpiderOption{crawler.WithMaxDepth(0)}, pages: 1},
		{name: "ignore pattern", opts: []crawler.SpiderOption{crawler.WithIgnorePatterns([]string{"/old"})}, pages: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, site := newSpiderSite(t)
			got, err := run(t, NewWebSpider(directClient(t), tt.opts...), site)
			if err != nil {
				t.Fatalf("Process() error: %v", err)
			}
			pages := 0
			for _, v := range got {
				if v.Kind() == value.KindURL {
					pages++
				}
			}
			if pages != tt.pages {
				t.Errorf("fetched %d pages, want %d", pages, tt.pages)
			}
		})
	}
}

// TestWebSpiderUnreachable tests a website that cannot be reached.
func TestWebSpiderUnreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	port := listenerPort(t, srv.Listener.Addr())
	srv.Close()

	if _, err := run(t, NewWebSpider(directClient(t)), value.NewWebsite("http", "127.0.0.1", port)); err == nil {
		t.Error("expected an error")
	}
}
