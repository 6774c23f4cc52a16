package crawler

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/bmatcuk/doublestar/v4"
)

// Canonicalize parses an absolute http(s) URL and returns its canonical
// form. Two URLs with the same canonical form are the same crawl target.
//
// Design decision: We keep canonicalization deliberately small:
//  1. The fragment is dropped, since it never changes the fetched document
//  2. Scheme and host are lowercased, since both are case-insensitive
//  3. The scheme's default port is dropped, so https://a.example:443/ is https://a.example/
//  4. An empty path becomes "/", so http://a.example and http://a.example/ match
//
// The query string is kept verbatim and not sorted. Servers may treat
// parameter order as significant, and merging two distinct pages is worse
// than fetching one page twice.
func Canonicalize(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", raw, err)
	}
	return canonicalString(u)
}

func canonicalString(u *url.URL) (string, error) {
	c, err := canonicalURL(u)
	if err != nil {
		return "", err
	}
	return c.String(), nil
}

func canonicalURL(u *url.URL) (*url.URL, error) {
	c := *u
	c.Scheme = strings.ToLower(c.Scheme)
	if c.Scheme != "http" && c.Scheme != "https" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.String())
	}
	if c.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrRelativeURL, u.String())
	}
	c.Host = CanonicalHost(c.Scheme, c.Host)
	c.Fragment = ""
	c.RawFragment = ""
	if c.Path == "" {
		c.Path = "/"
		c.RawPath = ""
	}
	return &c, nil
}

// CanonicalHost lowercases host and drops the default port of scheme
// (80 for http, 443 for https). Other ports are kept.
func CanonicalHost(scheme, host string) string {
	host = strings.ToLower(host)
	switch strings.ToLower(scheme) {
	case "http":
		host = strings.TrimSuffix(host, ":80")
	case "https":
		host = strings.TrimSuffix(host, ":443")
	}
	return host
}

// SameDomainLinks returns the canonical absolute URLs of every anchor in
// doc whose host is exactly domain, in document order and without
// duplicates. Relative and protocol-relative hrefs are resolved against
// base. Subdomains do not match. domain is compared in canonical form, so
// it must not carry the default port of the link's scheme.
func SameDomainLinks(doc *goquery.Document, base *url.URL, domain string) []string {
	domain = strings.ToLower(domain)
	seen := make(map[string]struct{})
	links := make([]string, 0)

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		resolved, ok := resolveURL(base, href)
		if !ok {
			return
		}
		c, err := canonicalURL(resolved)
		if err != nil {
			return
		}
		if c.Host != domain {
			return
		}
		canonical := c.String()
		if _, dup := seen[canonical]; dup {
			return
		}
		seen[canonical] = struct{}{}
		links = append(links, canonical)
	})

	return links
}

// resolveURL resolves href against base. Pseudo-links that cannot be
// fetched are rejected.
func resolveURL(base *url.URL, href string) (*url.URL, bool) {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" {
		return nil, false
	}

	lower := strings.ToLower(href)
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(lower, prefix) {
			return nil, false
		}
	}

	u, err := url.Parse(href)
	if err != nil {
		return nil, false
	}
	return base.ResolveReference(u), true
}

// shouldCrawl checks a URL path against ignore and follow patterns.
//
// Logic:
//  1. If the path matches any ignore pattern, skip it
//  2. If follow patterns are set and the path matches none, skip it
//  3. Otherwise, crawl it
func shouldCrawl(rawURL string, ignorePatterns, followPatterns []string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	p := u.Path
	if p == "" {
		p = "/"
	}

	for _, pattern := range ignorePatterns {
		if matchPattern(pattern, p) {
			return false
		}
	}

	if len(followPatterns) == 0 {
		return true
	}
	for _, pattern := range followPatterns {
		if matchPattern(pattern, p) {
			return true
		}
	}
	return false
}

// matchPattern checks if a URL path matches a glob pattern.
// Patterns use doublestar syntax, so "**" crosses path segments. Two
// shorthands are also accepted:
//   - "/admin/*" matches "/admin" and everything below it
//   - a pattern without "/" such as "*.pdf" matches the last path segment
func matchPattern(pattern, urlPath string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		if urlPath == prefix || strings.HasPrefix(urlPath, prefix+"/") {
			return true
		}
	}

	if matched, err := doublestar.Match(pattern, urlPath); err == nil && matched {
		return true
	}

	if !strings.Contains(pattern, "/") {
		matched, err := doublestar.Match(pattern, path.Base(urlPath))
		if err == nil && matched {
			return true
		}
	}

	return false
}
