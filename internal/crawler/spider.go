package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

// Default crawl limits.
const (
	DefaultMaxDepth    = 2
	DefaultMaxPages    = 50
	DefaultMaxBodySize = 1 << 20
)

// ErrInvalidStartURL is returned when the crawl cannot start from the given
// URL.
var ErrInvalidStartURL = errors.New("invalid start URL")

// Page is a fetched page.
type Page struct {
	URL     string
	Status  int
	Headers http.Header
	Title   string

	// Links are every link of the page, on the site or not. The Location of
	// a redirect counts as a link.
	Links []string

	Emails []string

	// Depth is the number of link hops from the start page.
	Depth int
}

// Spider crawls the pages of one website. A Spider holds no crawl state and
// can run several crawls at once.
type Spider struct {
	client         *http.Client
	maxDepth       int
	maxPages       int
	maxBodySize    int64
	delay          time.Duration
	ignorePatterns []string
	followPatterns []string
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxDepth sets the maximum number of link hops from the start page.
// 0 fetches only the start page.
func WithMaxDepth(depth int) SpiderOption {
	return func(s *Spider) {
		s.maxDepth = depth
	}
}

// WithMaxPages sets the maximum number of pages fetched by one crawl.
func WithMaxPages(maxPages int) SpiderOption {
	return func(s *Spider) {
		s.maxPages = maxPages
	}
}

// WithDelay sets the pause between two requests of a crawl.
func WithDelay(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.delay = d
	}
}

// WithMaxBodySize sets how many bytes of a response are read.
func WithMaxBodySize(size int64) SpiderOption {
	return func(s *Spider) {
		s.maxBodySize = size
	}
}

// WithIgnorePatterns skips paths matching any of the glob patterns, e.g.
// "/logout*" or "*.pdf".
func WithIgnorePatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.ignorePatterns = patterns
	}
}

// WithFollowPatterns restricts the crawl to paths matching at least one of
// the glob patterns. The start page is always fetched.
func WithFollowPatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.followPatterns = patterns
	}
}

// NewSpider creates a Spider fetching pages with client.
func NewSpider(client *http.Client, opts ...SpiderOption) *Spider {
	s := &Spider{
		client:      client,
		maxDepth:    DefaultMaxDepth,
		maxPages:    DefaultMaxPages,
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type queueItem struct {
	url   string
	depth int
}

// Crawl fetches pages breadth first from startURL, staying on its scheme,
// host and port, and calls visit for every fetched page. It returns the
// error of the start page, or ctx.Err() when cancelled. Failures of other
// pages are skipped.
func (s *Spider) Crawl(ctx context.Context, startURL string, visit func(*Page)) error {
	start, err := url.Parse(startURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidStartURL, err)
	}
	if (start.Scheme != "http" && start.Scheme != "https") || start.Host == "" {
		return fmt.Errorf("%w: %s", ErrInvalidStartURL, startURL)
	}

	visited := map[string]bool{normalizeURL(start.String()): true}
	queue := []queueItem{{url: start.String()}}
	fetched := 0

	for len(queue) > 0 && fetched < s.maxPages {
		if err := ctx.Err(); err != nil {
			return err
		}
		item := queue[0]
		queue = queue[1:]

		if fetched > 0 && s.delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.delay):
			}
		}

		page, err := s.fetchPage(ctx, item.url)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if fetched == 0 && item.depth == 0 {
				return err
			}
			continue
		}
		fetched++
		page.Depth = item.depth
		visit(page)

		if item.depth >= s.maxDepth {
			continue
		}
		for _, link := range page.Links {
			key := normalizeURL(link)
			if visited[key] || !isSameSite(start, link) || !s.shouldCrawl(link) {
				continue
			}
			visited[key] = true
			queue = append(queue, queueItem{url: link, depth: item.depth + 1})
		}
	}
	return nil
}

// fetchPage fetches one page and extracts its links and email addresses.
func (s *Spider) fetchPage(ctx context.Context, pageURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", pageURL, err)
	}

	page := &Page{
		URL:     pageURL,
		Status:  resp.StatusCode,
		Headers: resp.Header.Clone(),
	}

	parser, err := NewParser(pageURL)
	if err != nil {
		return nil, err
	}
	if loc := resp.Header.Get("Location"); loc != "" {
		if link := parser.ResolveReference(loc); link != "" {
			page.Links = append(page.Links, link)
		}
	}

	if isHTML(resp.Header.Get("Content-Type")) {
		result, err := parser.Parse(strings.NewReader(string(body)))
		if err == nil {
			page.Title = result.Title
			page.Links = append(page.Links, result.Links...)
			page.Emails = result.Emails
		}
	} else {
		page.Emails = ExtractEmails(string(body))
	}
	return page, nil
}

func isHTML(contentType string) bool {
	ct := strings.ToLower(contentType)
	return ct == "" || strings.Contains(ct, "html")
}

// normalizeURL makes equivalent URLs compare equal.
func normalizeURL(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return pageURL
	}
	u.Fragment = ""
	u.RawFragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}

// isSameSite reports whether link has the scheme, host and port of start.
func isSameSite(start *url.URL, link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, start.Scheme) && strings.EqualFold(u.Host, start.Host)
}

// shouldCrawl applies the ignore patterns, then the follow patterns.
func (s *Spider) shouldCrawl(targetURL string) bool {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false
	}
	p := u.Path
	if p == "" {
		p = "/"
	}

	for _, pattern := range s.ignorePatterns {
		if matchPattern(pattern, p) {
			return false
		}
	}
	if len(s.followPatterns) == 0 {
		return true
	}
	for _, pattern := range s.followPatterns {
		if matchPattern(pattern, p) {
			return true
		}
	}
	return false
}

// matchPattern matches a URL path against a glob pattern:
//   - "/admin/*" matches "/admin" and everything below it
//   - "*.pdf" matches the extension anywhere
//   - other patterns use path.Match, and patterns without a slash are
//     also tried against the last path element
func matchPattern(pattern, p string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		if strings.HasPrefix(p, prefix+"/") || p == prefix {
			return true
		}
	}
	if ext, ok := strings.CutPrefix(pattern, "*."); ok && !strings.ContainsAny(ext, "*?[/") {
		if strings.HasSuffix(p, "."+ext) {
			return true
		}
	}
	if matched, err := path.Match(pattern, p); err == nil && matched {
		return true
	}
	if strings.ContainsAny(pattern, "*?") && !strings.Contains(pattern, "/") {
		if matched, err := path.Match(pattern, path.Base(p)); err == nil && matched {
			return true
		}
	}
	return false
}
