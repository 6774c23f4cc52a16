package extract

import (
	"errors"
	"strings"
	"testing"

	"github.com/nao1215/sitecorpus/internal/model"
)

var (
	testSelectors = []string{
		"footer", "nav", "header",
		".footer", ".site-footer", ".nav-menu", ".header",
		"#footer", "#nav", "#header",
	}
	testPhrases = []string{
		"follow us", "privacy policy", "©", "do not sell my information",
		"sign up", "newsletter", "about us",
	}
)

func TestClean(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     string
		minLength int
		want      string
	}{
		{
			name:  "collapses whitespace runs",
			input: "Hello   world\t\tand\n\nmore",
			want:  "Hello world and more",
		},
		{
			name:  "breaks after sentence punctuation",
			input: "First sentence. Second sentence. Third",
			want:  "First sentence.\nSecond sentence.\nThird",
		},
		{
			name:  "newline between sentences is normalized",
			input: "One.\n\nTwo.",
			want:  "One.\nTwo.",
		},
		{
			name:  "non-breaking space counts as whitespace",
			input: "a\u00a0\u00a0b",
			want:  "a b",
		},
		{
			name:  "trims leading and trailing whitespace",
			input: "  \n padded \t ",
			want:  "padded",
		},
		{
			name:  "normalizes to NFC",
			input: "cafe\u0301",
			want:  "caf\u00e9",
		},
		{
			name:      "below minimum returns empty",
			input:     "short text",
			minLength: 100,
			want:      "",
		},
		{
			name:      "minimum counts characters not bytes",
			input:     "日本語",
			minLength: 3,
			want:      "日本語",
		},
		{
			name:  "abbreviations are split too",
			input: "Ask Dr. Smith",
			want:  "Ask Dr.\nSmith",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Clean(tt.input, tt.minLength); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestClean_Idempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"First sentence. Second sentence.   Third\n\nline.",
		"  Trailing dot. ",
		"No punctuation at all",
		"Mixed spaces. And\ttabs.",
	}

	for _, input := range inputs {
		once := Clean(input, 0)
		twice := Clean(once, 0)
		if once != twice {
			t.Errorf("Clean is not idempotent for %q: %q != %q", input, once, twice)
		}
	}
}

func TestNormalizer_VisibleText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		markup string
		want   string
	}{
		{
			name: "removes non-content elements and comments",
			markup: `<html><head><title>Title</title><meta name="x" content="y"><style>.a{}</style></head>
<body><!-- hidden note --><p>Visible</p><script>var a = 1;</script><noscript>Enable JS</noscript></body></html>`,
			want: "Visible",
		},
		{
			name:   "removes boilerplate selectors",
			markup: `<header>Menu</header><nav>Links</nav><div class="site-footer"><p>Footer</p></div><div id="nav">Nav</div><p>Keep</p><footer>Bye</footer>`,
			want:   "Keep",
		},
		{
			name:   "keeps document order",
			markup: `<p>one</p><div><span>two</span> three</div><p>four</p>`,
			want:   "one\ntwo\nthree\nfour",
		},
		{
			name:   "drops fragments with denylisted phrases case-insensitively",
			markup: `<p>Follow Us on social media</p><p>Real content</p><p>Read our PRIVACY POLICY</p><p>© 2024 Example</p>`,
			want:   "Real content",
		},
		{
			name:   "skips whitespace-only fragments",
			markup: "<div>\n   \n</div><p>  text  </p>",
			want:   "text",
		},
		{
			name:   "tolerates malformed markup",
			markup: `<div><p>unclosed <b>bold<p>next`,
			want:   "unclosed\nbold\nnext",
		},
		{
			name:   "empty document",
			markup: "",
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ExtractVisibleText([]byte(tt.markup), testSelectors, testPhrases)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestNewNormalizer_InvalidSelector(t *testing.T) {
	t.Parallel()

	if _, err := NewNormalizer([]string{"div[["}, nil); err == nil {
		t.Error("expected error for invalid selector")
	}
}

func TestExtractor_Extract(t *testing.T) {
	t.Parallel()

	extractor, err := NewExtractor(testSelectors, testPhrases)
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}

	t.Run("boilerplate stripping", func(t *testing.T) {
		t.Parallel()

		markup := `<html><body><header>Menu</header>
<p>Our services include locum tenens staffing for physicians across many specialties. Contact our team today.</p>
<footer>© 2024 Co</footer></body></html>`

		res, err := extractor.ExtractMarkup([]byte(markup))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := "Our services include locum tenens staffing for physicians across many specialties.\nContact our team today."
		if !res.OK() {
			t.Fatalf("expected content, got skip reason %q", res.Reason)
		}
		if res.Content != want {
			t.Errorf("expected %q, got %q", want, res.Content)
		}
	})

	t.Run("too short before cleaning", func(t *testing.T) {
		t.Parallel()

		res, err := extractor.ExtractMarkup([]byte(`<p>Hi there</p>`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Reason != model.SkipTooShort {
			t.Errorf("expected %q, got %q", model.SkipTooShort, res.Reason)
		}
	})

	t.Run("below minimum after cleaning", func(t *testing.T) {
		t.Parallel()

		res, err := extractor.ExtractMarkup([]byte(`<p>This page has a little text but not enough.</p>`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Reason != model.SkipBelowMinimum {
			t.Errorf("expected %q, got %q", model.SkipBelowMinimum, res.Reason)
		}
		if res.Content != "" {
			t.Errorf("expected empty content, got %q", res.Content)
		}
	})

	t.Run("phrase formed across fragments is removed", func(t *testing.T) {
		t.Parallel()

		markup := `<p>Locum tenens assignments let physicians choose where and when they work across the country. Many clinicians enjoy the variety.</p>
<p>Please follow</p><p>us everywhere you go</p>`

		res, err := extractor.ExtractMarkup([]byte(markup))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !res.OK() {
			t.Fatalf("expected content, got skip reason %q", res.Reason)
		}
		if strings.Contains(strings.ToLower(res.Content), "follow us") {
			t.Errorf("expected denylisted phrase to be removed, got %q", res.Content)
		}
		if !strings.HasPrefix(res.Content, "Locum tenens assignments") {
			t.Errorf("expected real content to be kept, got %q", res.Content)
		}
	})

	t.Run("content length meets the minimum", func(t *testing.T) {
		t.Parallel()

		markup := `<article>` + strings.Repeat("Locum physicians fill temporary roles. ", 10) + `</article>`
		res, err := extractor.ExtractMarkup([]byte(markup))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len([]rune(res.Content)) < DefaultMinContentLength {
			t.Errorf("expected at least %d characters, got %d", DefaultMinContentLength, len([]rune(res.Content)))
		}
		if Clean(res.Content, 0) != res.Content {
			t.Error("expected extracted content to be a fixed point of Clean")
		}
	})
}

func TestExtractor_Thresholds(t *testing.T) {
	t.Parallel()

	extractor, err := NewExtractor(nil, nil, WithMinRawLength(0), WithMinContentLength(5))
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}

	res, err := extractor.ExtractMarkup([]byte(`<footer>Footer text kept</footer>`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Content != "Footer text kept" {
		t.Errorf("expected footer to be kept without selectors, got %q", res.Content)
	}
}

func TestParseError(t *testing.T) {
	t.Parallel()

	cause := errors.New("read failed")
	err := error(&ParseError{Err: cause})
	if !errors.Is(err, cause) {
		t.Error("expected ParseError to unwrap to its cause")
	}
}
