// Package pipeline runs a crawl for one site as a sequence of steps.
//
// A run is a model.CrawlRun that each Step receives and fills in: the crawl
// step traverses the site and collects records, the persist step writes the
// corpus file. After the run has a final status, recorder steps store it in
// the history database and in the metrics registry.
//
// The Trigger is the entry point. It is idempotent by presence: when the
// corpus file for a site already exists, a run ends as skipped_existing
// without a single request being sent.
//
// Design decision: We use a pipeline pattern instead of direct function calls
// because:
// 1. It allows recorders to be added or left out per invocation
// 2. It provides consistent error handling and logging across steps
// 3. It supports cancellation via context for long-running crawls
//
// Several sites are crawled concurrently by BatchProcessor with a limit
// enforced through errgroup. Each site still crawls sequentially.
package pipeline
