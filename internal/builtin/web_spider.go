package builtin

import (
	"context"
	"net/netip"
	"net/url"
	"strconv"
	"strings"

	"github.com/nao1215/reconscan/internal/crawler"
	"github.com/nao1215/reconscan/internal/transport"
	"github.com/nao1215/reconscan/internal/value"
	"github.com/nao1215/reconscan/internal/worker"
)

// WebSpiderID is the id of the website crawler.
const WebSpiderID = "web/spider"

// NewWebSpider crawls a website and emits every fetched page as a URL, the
// hosts and websites its links point to, and the email addresses found in
// the pages.
func NewWebSpider(client *transport.Client, opts ...crawler.SpiderOption) worker.Worker {
	spider := crawler.NewSpider(client.HTTPClient(), opts...)

	return worker.New(worker.Descriptor{
		ID:          WebSpiderID,
		Summary:     "Crawls the pages of a website",
		Description: "Follows the links of a website breadth first, without leaving its scheme, host and port. Fetched pages become URLs; links to other sites become hosts and websites; addresses in the pages become email addresses.",
		Accepts:     []value.Kind{value.KindWebsite},
		Outputs:     []value.Kind{value.KindURL, value.KindHost, value.KindWebsite, value.KindEmailAddress},
		Intensity:   worker.Aggressive,
	}, func(ctx context.Context, v value.Value, emit worker.Emit) error {
		site, ok := v.(value.Website)
		if !ok {
			return nil
		}
		start := site.URL()
		start.Path = "/"

		seen := make(map[string]bool)
		once := func(out value.Value) {
			if k := out.Key(); !seen[k] {
				seen[k] = true
				emit(out)
			}
		}

		return spider.Crawl(ctx, start.String(), func(p *crawler.Page) {
			once(value.URL{URI: p.URL, Status: p.Status, Headers: p.Headers})
			for _, link := range p.Links {
				for _, out := range linkValues(site, link) {
					once(out)
				}
			}
			for _, addr := range p.Emails {
				once(value.NewEmailAddress(addr))
			}
		})
	})
}

// linkValues turns a link leaving site into the Host and Website it points
// to. Links to the site itself and to IP addresses yield nothing.
func linkValues(site value.Website, link string) []value.Value {
	u, err := url.Parse(link)
	if err != nil {
		return nil
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return nil
	}
	if _, err := netip.ParseAddr(host); err == nil {
		return nil
	}

	port := value.DefaultPort(u.Scheme)
	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil
		}
		port = n
	}
	other := value.NewWebsite(u.Scheme, host, port)
	if value.Equal(other, site) {
		return nil
	}

	var out []value.Value
	if host != value.NormalizeHost(site.Host) {
		out = append(out, value.NewHost(host))
	}
	return append(out, other)
}
