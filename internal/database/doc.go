// Package database provides SQLite-based storage for the crawl history.
//
// This package implements the CrawlDB, which stores:
//   - One row per crawl run with its status and counts
//   - The outcome of every page of every run
//   - The latest known state of every page per site
//
// Content hashes make it possible to tell which pages changed between two
// runs without keeping old corpus files around.
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for our use case
// 4. WAL mode provides good concurrent read performance
package database
