// Package corpus persists the records of a crawl as a JSON document.
//
// The corpus file is a JSON array of {"url", "content"} objects in
// discovery order. It is the hand-off to the downstream indexer, which
// splits content into fixed-size overlapping windows before embedding.
//
// A corpus is written once, at the end of a successful crawl, and
// atomically: readers see either the previous file or the complete new one.
// The presence of the file is what makes the crawl trigger idempotent.
package corpus
