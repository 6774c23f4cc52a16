// Package model defines the core data structures used throughout sitecorpus.
//
// This package contains the following main types:
//   - PageRecord: One cleaned page of the corpus, the unit written to disk
//   - PageOutcome: The tagged result of processing a single crawl task
//   - CrawlRun: One invocation of the crawl pipeline for one site
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The crawler, corpus writer, history database and report
// writers all need these types, so centralizing them prevents import cycles.
package model
