package crawler

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func mustDocument(t *testing.T, markup string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		t.Fatalf("failed to parse markup: %v", err)
	}
	return doc
}

func TestCanonicalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"lowercases scheme and host", "HTTP://Example.COM", "http://example.com/", nil},
		{"drops fragment", "https://example.com/a#frag", "https://example.com/a", nil},
		{"keeps query order", "https://example.com/a?b=2&a=1", "https://example.com/a?b=2&a=1", nil},
		{"keeps path case and port", "https://Example.com:8443/A", "https://example.com:8443/A", nil},
		{"drops default https port", "https://example.com:443/a", "https://example.com/a", nil},
		{"drops default http port", "http://Example.com:80", "http://example.com/", nil},
		{"keeps https port on http", "http://example.com:443/a", "http://example.com:443/a", nil},
		{"keeps escaped path", "https://example.com/a%20b", "https://example.com/a%20b", nil},
		{"trims surrounding space", "  https://example.com/x  ", "https://example.com/x", nil},
		{"rejects other schemes", "ftp://example.com/file", "", ErrUnsupportedScheme},
		{"rejects relative URLs", "/relative", "", ErrUnsupportedScheme},
		{"rejects missing host", "https:///path", "", ErrRelativeURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Canonicalize(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Canonicalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCanonicalize_Idempotent(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"HTTPS://Example.com", "https://example.com/a?x=1#y", "http://example.com:8080"} {
		once, err := Canonicalize(raw)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		twice, err := Canonicalize(once)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if once != twice {
			t.Errorf("not idempotent: %q -> %q -> %q", raw, once, twice)
		}
	}
}

func TestSameDomainLinks(t *testing.T) {
	t.Parallel()

	markup := `<html><body>
		<a href="/about">About</a>
		<a href="guide#intro">Guide</a>
		<a href="//example.com/x">Protocol relative</a>
		<a href="https://EXAMPLE.com">Home</a>
		<a href="https://sub.example.com/">Subdomain</a>
		<a href="http://other.org/">Other</a>
		<a href="mailto:info@example.com">Mail</a>
		<a href="javascript:void(0)">JS</a>
		<a href="tel:+15551234">Call</a>
		<a href="data:text/plain,hello">Data</a>
		<a href="ftp://example.com/file">FTP</a>
		<a href="/about">About again</a>
		<a href="#top">Top</a>
		<a href="#">Hash</a>
		<a href="">Empty</a>
		<a>No href</a>
		<a href="?q=1&amp;a=2">Query</a>
	</body></html>`

	base, err := url.Parse("https://Example.com/docs/page")
	if err != nil {
		t.Fatal(err)
	}

	got := SameDomainLinks(mustDocument(t, markup), base, "example.com")
	want := []string{
		"https://example.com/about",
		"https://example.com/docs/guide",
		"https://example.com/x",
		"https://example.com/",
		"https://example.com/docs/page",
		"https://example.com/docs/page?q=1&a=2",
	}

	if len(got) != len(want) {
		t.Fatalf("expected %d links, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("link %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestSameDomainLinks_PortIsPartOfDomain(t *testing.T) {
	t.Parallel()

	markup := `<a href="http://127.0.0.1:8080/a">same</a><a href="http://127.0.0.1:9090/b">other port</a>`
	base, _ := url.Parse("http://127.0.0.1:8080/")

	got := SameDomainLinks(mustDocument(t, markup), base, "127.0.0.1:8080")
	if len(got) != 1 || got[0] != "http://127.0.0.1:8080/a" {
		t.Errorf("expected only the same-port link, got %v", got)
	}
}

func TestSameDomainLinks_DefaultPort(t *testing.T) {
	t.Parallel()

	markup := `<a href="https://example.com:443/a">explicit</a><a href="https://example.com/b">bare</a>`
	base, _ := url.Parse("https://example.com/")

	got := SameDomainLinks(mustDocument(t, markup), base, "example.com")
	want := []string{"https://example.com/a", "https://example.com/b"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestCanonicalHost(t *testing.T) {
	t.Parallel()

	tests := []struct {
		scheme string
		host   string
		want   string
	}{
		{"https", "Example.com:443", "example.com"},
		{"http", "example.com:80", "example.com"},
		{"HTTP", "example.com:80", "example.com"},
		{"https", "example.com:80", "example.com:80"},
		{"http", "127.0.0.1:8080", "127.0.0.1:8080"},
		{"https", "example.com", "example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.scheme+"://"+tt.host, func(t *testing.T) {
			t.Parallel()
			if got := CanonicalHost(tt.scheme, tt.host); got != tt.want {
				t.Errorf("CanonicalHost(%q, %q) = %q, want %q", tt.scheme, tt.host, got, tt.want)
			}
		})
	}
}

func TestSameDomainLinks_NoAnchors(t *testing.T) {
	t.Parallel()

	base, _ := url.Parse("https://example.com/")
	got := SameDomainLinks(mustDocument(t, `<p>no links here</p>`), base, "example.com")
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

func TestMatchPattern(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pattern string
		path    string
		want    bool
	}{
		// Prefix patterns with /*
		{"admin prefix match", "/admin/*", "/admin/dashboard", true},
		{"admin prefix exact", "/admin/*", "/admin", true},
		{"admin prefix no match", "/admin/*", "/user/profile", false},
		{"admin prefix partial no match", "/admin/*", "/administrator", false},
		{"nested admin", "/admin/*", "/admin/users/edit", true},

		// Extension patterns
		{"pdf extension", "*.pdf", "/docs/file.pdf", true},
		{"pdf extension nested", "*.pdf", "/a/b/c/report.pdf", true},
		{"pdf extension no match", "*.pdf", "/docs/file.txt", false},

		// Exact match patterns
		{"exact match", "/logout", "/logout", true},
		{"exact no match", "/logout", "/login", false},

		// Single character wildcard
		{"wildcard middle", "/api/v?/users", "/api/v1/users", true},
		{"wildcard middle no match", "/api/v?/users", "/api/v10/users", false},

		// Double star crosses segments
		{"double star", "/blog/**", "/blog/2024/01/post", true},
		{"double star middle", "/**/print", "/docs/a/print", true},
		{"double star no match", "/blog/**", "/news/item", false},

		// Root path
		{"root path", "/", "/", true},
		{"root no match prefix", "/admin/*", "/", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := matchPattern(tt.pattern, tt.path); got != tt.want {
				t.Errorf("matchPattern(%q, %q) = %v, want %v", tt.pattern, tt.path, got, tt.want)
			}
		})
	}
}

func TestShouldCrawl(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		url    string
		ignore []string
		follow []string
		want   bool
	}{
		{"no patterns allows all", "https://example.com/any/path", nil, nil, true},
		{"ignore blocks match", "https://example.com/admin/x", []string{"/admin/*"}, nil, false},
		{"ignore passes others", "https://example.com/blog", []string{"/admin/*"}, nil, true},
		{"follow allows match", "https://example.com/docs/a", nil, []string{"/docs/**"}, true},
		{"follow blocks others", "https://example.com/blog", nil, []string{"/docs/**"}, false},
		{"ignore wins over follow", "https://example.com/docs/secret", []string{"/docs/secret"}, []string{"/docs/**"}, false},
		{"empty path is root", "https://example.com", nil, []string{"/"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := shouldCrawl(tt.url, tt.ignore, tt.follow); got != tt.want {
				t.Errorf("shouldCrawl(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestVisitedSet(t *testing.T) {
	t.Parallel()

	v := NewVisitedSet()
	if v.Has("https://example.com/") {
		t.Error("new set should be empty")
	}
	if !v.Add("https://example.com/") {
		t.Error("first Add should report insertion")
	}
	if v.Add("https://example.com/") {
		t.Error("second Add should report duplicate")
	}
	if v.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", v.Len())
	}
}
