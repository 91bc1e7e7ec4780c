package prober

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// aiLinkKeywords mark link URLs worth probing as chat endpoint candidates.
var aiLinkKeywords = []string{
	"chat", "gpt", "llm", "assistant", "playground", "demo", "spaces",
}

// DiscoverRelated fetches the domain's landing page and returns absolute
// URLs of links that look like AI chat frontends. The domain may be given
// bare ("huggingface.co") or as a full URL.
//
// Design decision: We use golang.org/x/net/html for parsing rather than
// regex because it correctly handles the malformed markup real landing
// pages serve, and the node walk gives us resolved hrefs in one pass.
func (p *HTTPProber) DiscoverRelated(ctx context.Context, domain string) ([]string, error) {
	pageURL := domain
	if !strings.Contains(pageURL, "://") {
		pageURL = "https://" + pageURL
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid discovery domain %q: %w", domain, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build discovery request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreachable, base.String(), err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("%w: %s: status %d", ErrUnreachable, base.String(), resp.StatusCode)
	}

	links, err := extractLinks(io.LimitReader(resp.Body, p.maxBodySize), base)
	if err != nil {
		return nil, fmt.Errorf("failed to parse discovery page: %w", err)
	}

	candidates := make([]string, 0)
	seen := make(map[string]bool)
	for _, link := range links {
		if !looksLikeAILink(link) || seen[link] {
			continue
		}
		seen[link] = true
		candidates = append(candidates, link)
	}
	return candidates, nil
}

// extractLinks walks the HTML document and returns every href resolved
// against the base URL. Fragment-only and non-HTTP links are dropped.
func extractLinks(content io.Reader, base *url.URL) ([]string, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	links := make([]string, 0)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if href := getAttr(n, "href"); href != "" {
				if resolved := resolveURL(base, href); resolved != "" {
					links = append(links, resolved)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return links, nil
}

// getAttr returns the value of the named attribute, or "".
func getAttr(n *html.Node, name string) string {
	for _, attr := range n.Attr {
		if attr.Key == name {
			return attr.Val
		}
	}
	return ""
}

// resolveURL resolves href against the base page URL, keeping only
// http(s) results.
func resolveURL(base *url.URL, href string) string {
	if strings.HasPrefix(href, "#") {
		return ""
	}
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(u)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	resolved.Fragment = ""
	return resolved.String()
}

// looksLikeAILink reports whether the URL is worth probing as a chat
// endpoint candidate.
func looksLikeAILink(link string) bool {
	lower := strings.ToLower(link)
	for _, keyword := range aiLinkKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
