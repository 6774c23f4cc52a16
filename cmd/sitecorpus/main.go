// Package main provides the entry point for the sitecorpus CLI.
//
// sitecorpus crawls a website from a seed URL, extracts the readable text of
// every same-domain page and writes it as a JSON corpus for a downstream
// retrieval indexer. A run is skipped when the corpus file already exists.
//
// Usage:
//
//	sitecorpus crawl https://example.com/
//	sitecorpus inspect website_content.json
//
// See --help for all available options.
package main

// main is the entry point for sitecorpus.
func main() {
	Execute()
}
