// Package crawler walks the pages of a single website.
//
// A Spider fetches pages breadth first, starting from one URL and staying
// on the same scheme, host and port. Every fetched page is handed to a
// callback together with the links and email addresses found in it, so the
// caller can turn them into values while the crawl continues.
//
// # Limits
//
//   - WithMaxDepth bounds the number of link hops from the start page
//   - WithMaxPages bounds the number of fetched pages
//   - WithMaxBodySize bounds how much of a response is read
//   - WithIgnorePatterns and WithFollowPatterns select paths by glob
//
// # Usage
//
//	spider := crawler.NewSpider(client.HTTPClient(), crawler.WithMaxDepth(2))
//	err := spider.Crawl(ctx, "https://example.com/", func(p *crawler.Page) {
//		fmt.Println(p.URL, p.Status, len(p.Links))
//	})
package crawler
