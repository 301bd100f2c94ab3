package crawler

import (
	"io"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// ParseResult holds what a single HTML document yields.
type ParseResult struct {
	// Title is the text of the <title> element.
	Title string

	// Links are the absolute http and https URLs referenced by the document,
	// without fragments, in document order and without duplicates.
	Links []string

	// Emails are the lower-cased addresses found in text, comments and
	// mailto links.
	Emails []string
}

// Parser extracts links and email addresses from HTML.
type Parser struct {
	baseURL *url.URL
}

// NewParser creates a Parser resolving relative links against baseURL.
func NewParser(baseURL string) (*Parser, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &Parser{baseURL: u}, nil
}

// linkAttrs maps elements to the attribute holding the URL they reference.
var linkAttrs = map[string]string{
	"a":      "href",
	"area":   "href",
	"link":   "href",
	"form":   "action",
	"iframe": "src",
	"frame":  "src",
	"script": "src",
}

// Parse reads an HTML document.
func (p *Parser) Parse(content io.Reader) (*ParseResult, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	result := &ParseResult{}
	seenLinks := make(map[string]bool)
	var text strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			if n.Data == "title" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				result.Title = strings.TrimSpace(n.FirstChild.Data)
			}
			if attr, ok := linkAttrs[n.Data]; ok {
				ref := strings.TrimSpace(getAttr(n, attr))
				if addr, ok := strings.CutPrefix(strings.ToLower(ref), "mailto:"); ok {
					text.WriteString(addr)
					text.WriteString(" ")
				} else if link := p.resolveURL(ref); link != "" && !seenLinks[link] {
					seenLinks[link] = true
					result.Links = append(result.Links, link)
				}
			}
		case html.TextNode, html.CommentNode:
			text.WriteString(n.Data)
			text.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	result.Emails = ExtractEmails(text.String())
	return result, nil
}

// ResolveReference resolves ref against the parser's base URL. It returns an
// empty string for references that are not http or https URLs.
func (p *Parser) ResolveReference(ref string) string {
	return p.resolveURL(strings.TrimSpace(ref))
}

func (p *Parser) resolveURL(href string) string {
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := p.baseURL.ResolveReference(u)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	if resolved.Host == "" {
		return ""
	}
	resolved.Fragment = ""
	resolved.RawFragment = ""
	return resolved.String()
}

// emailRegex is permissive on purpose; scope filtering happens downstream.
var emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

// ExtractEmails returns the email addresses in text, lower-cased, in order
// of first appearance.
func ExtractEmails(text string) []string {
	var unique []string
	seen := make(map[string]bool)
	for _, email := range emailRegex.FindAllString(text, -1) {
		lower := strings.ToLower(email)
		if !seen[lower] {
			seen[lower] = true
			unique = append(unique, lower)
		}
	}
	return unique
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
