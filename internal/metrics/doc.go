// Package metrics exposes crawl counters and timings as Prometheus metrics.
//
// Metrics are registered on a private registry rather than the global one,
// so several crawls in one process and parallel tests do not collide. A
// one-shot CLI has no scrape endpoint; the registry is written in the text
// exposition format for the node exporter's textfile collector instead.
package metrics
