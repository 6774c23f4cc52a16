package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"

	"github.com/nao1215/sitecorpus/internal/model"
)

// Default thresholds, in characters.
const (
	DefaultMinRawLength     = 30
	DefaultMinContentLength = 100
)

// Result is the outcome of extracting one document.
type Result struct {
	// Raw is the visible text before cleaning.
	Raw string

	// Content is the cleaned text, empty when the page is skipped.
	Content string

	// Reason is set when the page yields no usable content.
	Reason model.SkipReason
}

// OK reports whether the page produced content.
func (r Result) OK() bool {
	return r.Reason == "" && r.Content != ""
}

// Extractor runs normalization and cleaning with fixed thresholds.
// It holds no per-document state and may be reused across pages.
type Extractor struct {
	normalizer       *Normalizer
	minRawLength     int
	minContentLength int
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithMinRawLength sets the minimum visible text length before cleaning.
func WithMinRawLength(n int) ExtractorOption {
	return func(e *Extractor) {
		if n >= 0 {
			e.minRawLength = n
		}
	}
}

// WithMinContentLength sets the minimum cleaned text length.
func WithMinContentLength(n int) ExtractorOption {
	return func(e *Extractor) {
		if n >= 0 {
			e.minContentLength = n
		}
	}
}

// NewExtractor creates an Extractor for the given boilerplate selectors and
// phrase denylist.
func NewExtractor(selectors, phrases []string, opts ...ExtractorOption) (*Extractor, error) {
	normalizer, err := NewNormalizer(selectors, phrases)
	if err != nil {
		return nil, err
	}
	e := &Extractor{
		normalizer:       normalizer,
		minRawLength:     DefaultMinRawLength,
		minContentLength: DefaultMinContentLength,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Extract normalizes and cleans doc. Like Normalizer.VisibleText it
// modifies doc.
//
// A page whose visible text is shorter than the raw threshold is skipped
// with model.SkipTooShort. A page whose cleaned text is shorter than the
// content threshold is skipped with model.SkipBelowMinimum.
//
// Whitespace collapsing can join two harmless fragments into a line that
// contains a denylisted phrase, so cleaned lines are checked once more and
// dropped if they match.
func (e *Extractor) Extract(doc *goquery.Document) Result {
	raw := e.normalizer.VisibleText(doc)
	if utf8.RuneCountInString(raw) < e.minRawLength {
		return Result{Raw: raw, Reason: model.SkipTooShort}
	}

	content := Clean(raw, e.minContentLength)
	if content != "" {
		content = e.dropPhraseLines(content)
	}
	if content == "" || utf8.RuneCountInString(content) < e.minContentLength {
		return Result{Raw: raw, Reason: model.SkipBelowMinimum}
	}

	return Result{Raw: raw, Content: content}
}

// ExtractMarkup parses markup and extracts it. A parse failure yields an
// empty result skipped as too short, together with the *ParseError.
func (e *Extractor) ExtractMarkup(markup []byte) (Result, error) {
	doc, err := ParseDocument(markup)
	if err != nil {
		return Result{Reason: model.SkipTooShort}, err
	}
	return e.Extract(doc), nil
}

func (e *Extractor) dropPhraseLines(content string) string {
	if len(e.normalizer.phrases) == 0 {
		return content
	}
	folder := cases.Fold()
	lines := strings.Split(content, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if !e.normalizer.containsPhrase(folder.String(line)) {
			kept = append(kept, line)
		}
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
