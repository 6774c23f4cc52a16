package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/text/cases"
)

// nonContentElements never hold visible page text.
const nonContentElements = "script, style, head, title, meta, noscript, template"

// ParseDocument parses markup into a goquery document.
// Malformed markup is repaired by the HTML5 parsing algorithm, not rejected.
func ParseDocument(markup []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	return doc, nil
}

// Normalizer strips non-content markup and boilerplate from a document and
// returns its visible text.
type Normalizer struct {
	boilerplate goquery.Matcher
	phrases     []string
}

// NewNormalizer compiles the boilerplate selectors and folds the phrase
// denylist for case-insensitive matching.
func NewNormalizer(selectors, phrases []string) (*Normalizer, error) {
	var boilerplate goquery.Matcher
	if len(selectors) > 0 {
		compiled, err := cascadia.Compile(strings.Join(selectors, ", "))
		if err != nil {
			return nil, fmt.Errorf("compile boilerplate selectors: %w", err)
		}
		boilerplate = compiled
	}

	folder := cases.Fold()
	folded := make([]string, 0, len(phrases))
	for _, p := range phrases {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		folded = append(folded, folder.String(p))
	}

	return &Normalizer{boilerplate: boilerplate, phrases: folded}, nil
}

// VisibleText removes non-content elements, boilerplate regions and
// comments from doc and returns the remaining text fragments joined with
// newlines. Fragments are trimmed, empty ones are skipped, and any fragment
// containing a denylisted phrase is dropped whole.
//
// VisibleText modifies doc. Callers that need the untouched tree, for
// example to collect navigation links, must do so first.
func (n *Normalizer) VisibleText(doc *goquery.Document) string {
	doc.Find(nonContentElements).Remove()
	if n.boilerplate != nil {
		doc.FindMatcher(n.boilerplate).Remove()
	}

	// cases.Caser is stateful, so each call gets its own.
	folder := cases.Fold()

	var fragments []string
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		switch node.Type {
		case html.CommentNode, html.DoctypeNode:
			return
		case html.TextNode:
			text := strings.TrimSpace(node.Data)
			if text != "" && !n.containsPhrase(folder.String(text)) {
				fragments = append(fragments, text)
			}
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, root := range doc.Nodes {
		walk(root)
	}

	return strings.Join(fragments, "\n")
}

// containsPhrase reports whether folded text contains a denylisted phrase.
func (n *Normalizer) containsPhrase(folded string) bool {
	for _, phrase := range n.phrases {
		if strings.Contains(folded, phrase) {
			return true
		}
	}
	return false
}

// ExtractVisibleText parses markup and returns its visible text with the
// given selectors and phrases. It is a convenience for one-off use; the
// crawler builds a Normalizer once per run.
func ExtractVisibleText(markup []byte, selectors, phrases []string) (string, error) {
	n, err := NewNormalizer(selectors, phrases)
	if err != nil {
		return "", err
	}
	doc, err := ParseDocument(markup)
	if err != nil {
		return "", err
	}
	return n.VisibleText(doc), nil
}
