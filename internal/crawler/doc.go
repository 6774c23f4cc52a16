// Package crawler traverses a website's internal link graph.
//
// # Architecture
//
// The Scheduler owns one crawl: an explicit LIFO worklist of tasks, a
// VisitedSet of canonical URLs and the records extracted so far. Nothing is
// shared between crawls, so a Scheduler can be created per site and run
// alongside others.
//
// Each task ends in exactly one tagged outcome:
//
//   - Extracted: the page produced a record and its links are scheduled
//   - Skipped: bad status, not HTML, robots policy or too little text
//   - Failed: the fetch itself failed
//
// # Link discovery
//
// SameDomainLinks resolves every anchor against the page URL and keeps only
// canonical http(s) URLs on the exact target host. Links are collected before
// boilerplate removal by default, so a page reachable only from the footer
// is still crawled.
//
// # Usage
//
//	scheduler := crawler.NewScheduler(fetcher, extractor, crawler.WithMaxDepth(2))
//	result, err := scheduler.Crawl(ctx, "https://example.com/")
package crawler
