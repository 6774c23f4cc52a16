package model

import (
	"encoding/hex"
	"unicode/utf8"

	"golang.org/x/crypto/sha3"
)

// PageRecord is one cleaned page of the corpus.
// It is created once per successfully extracted page and never mutated
// afterwards. The JSON field names are the corpus file format consumed by
// the downstream indexer and must not change.
type PageRecord struct {
	// URL is the canonical absolute URL the content was extracted from.
	URL string `json:"url"`

	// Content is the cleaned visible text, one sentence-ish unit per line.
	Content string `json:"content"`
}

// CrawlTask is a unit of pending work for the scheduler.
// Depth is the link distance from the seed; the seed itself has depth 0.
type CrawlTask struct {
	URL   string
	Depth int
}

// Length returns the content length in characters.
// Thresholds are defined in characters, not bytes, so multi-byte text is
// not penalized.
func (p PageRecord) Length() int {
	return utf8.RuneCountInString(p.Content)
}

// ContentHash returns the hex-encoded SHA3-256 digest of the content.
// It is stored in the run history so that content changes between runs
// can be detected without keeping every corpus around.
func (p PageRecord) ContentHash() string {
	if p.Content == "" {
		return ""
	}
	sum := sha3.Sum256([]byte(p.Content))
	return hex.EncodeToString(sum[:])
}
