package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/sitecorpus/internal/model"
)

// FileName is the name of the database file inside the database directory.
const FileName = "sitecorpus.db"

// timeLayout is how run timestamps are stored. A fixed-width UTC layout
// keeps lexical order equal to chronological order.
const timeLayout = "2006-01-02 15:04:05.000000000"

// CrawlDB provides SQLite-based storage for the history of crawl runs.
// It manages connection pooling and provides methods for CRUD operations.
//
// Design decision: We use a single database file for all sites rather than
// one per corpus. Corpus files are the hand-off to the indexer and stay
// plain JSON; the history is an operator tool and benefits from queries
// across sites.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CrawlDB in dbDir.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (run a crawl first)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Batch crawls save runs from several goroutines; one connection
	// serializes the writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Path returns the database file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CrawlDB) createTables() error {
	schema := `
	-- One row per crawl run
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		site TEXT NOT NULL,
		seed_url TEXT NOT NULL,
		domain TEXT NOT NULL,
		corpus_path TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		status TEXT NOT NULL,
		pages INTEGER DEFAULT 0,
		skipped INTEGER DEFAULT 0,
		failed INTEGER DEFAULT 0,
		characters INTEGER DEFAULT 0,
		error TEXT,
		run_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_site ON runs(site);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- Per-page outcomes of each run
	CREATE TABLE IF NOT EXISTS run_pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		depth INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		reason TEXT,
		status_code INTEGER,
		content_hash TEXT,
		length INTEGER DEFAULT 0,
		UNIQUE(run_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_run_pages_run ON run_pages(run_id);

	-- Latest known state of every URL per site
	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL,
		site TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		outcome TEXT NOT NULL,
		reason TEXT,
		status_code INTEGER,
		content_hash TEXT,
		length INTEGER DEFAULT 0,
		UNIQUE(url, site)
	);

	CREATE INDEX IF NOT EXISTS idx_pages_site ON pages(site);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// PageEntry is the stored outcome of one page.
type PageEntry struct {
	ID          int64
	URL         string
	Site        string
	Timestamp   time.Time
	Depth       int
	Outcome     model.OutcomeKind
	Reason      model.SkipReason
	StatusCode  int
	ContentHash string
	Length      int
}

// pageEntryFromOutcome converts a crawl outcome for storage.
func pageEntryFromOutcome(site string, o model.PageOutcome) PageEntry {
	entry := PageEntry{
		URL:        o.URL,
		Site:       site,
		Depth:      o.Depth,
		Outcome:    o.Kind,
		Reason:     o.Reason,
		StatusCode: o.StatusCode,
	}
	if o.Record != nil {
		entry.ContentHash = o.Record.ContentHash()
		entry.Length = o.Record.Length()
	}
	return entry
}

// SaveRun stores a finished run with all of its page outcomes in a single
// transaction, and updates the latest known state of each page.
func (cdb *CrawlDB) SaveRun(ctx context.Context, run *model.CrawlRun) (err error) {
	runJSON, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to serialize run: %w", err)
	}

	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var finishedAt sql.NullString
	if !run.FinishedAt.IsZero() {
		finishedAt = sql.NullString{String: formatTime(run.FinishedAt), Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
	INSERT INTO runs (id, site, seed_url, domain, corpus_path, started_at, finished_at,
		status, pages, skipped, failed, characters, error, run_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		finished_at = excluded.finished_at,
		status = excluded.status,
		pages = excluded.pages,
		skipped = excluded.skipped,
		failed = excluded.failed,
		characters = excluded.characters,
		error = excluded.error,
		run_json = excluded.run_json
	`,
		run.ID,
		run.Site,
		run.SeedURL,
		run.Domain,
		run.CorpusPath,
		formatTime(run.StartedAt),
		finishedAt,
		string(run.Status),
		run.Stats.Extracted,
		run.Stats.Skipped,
		run.Stats.Failed,
		run.TotalCharacters(),
		run.ErrorMessage,
		string(runJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, o := range run.Outcomes {
		entry := pageEntryFromOutcome(run.Site, o)

		_, err = tx.ExecContext(ctx, `
		INSERT INTO run_pages (run_id, url, depth, outcome, reason, status_code, content_hash, length)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, url) DO NOTHING
		`,
			run.ID,
			entry.URL,
			entry.Depth,
			entry.Outcome.String(),
			string(entry.Reason),
			entry.StatusCode,
			entry.ContentHash,
			entry.Length,
		)
		if err != nil {
			return fmt.Errorf("failed to insert run page: %w", err)
		}

		if err = upsertPage(ctx, tx, &entry); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// upsertPage inserts or updates the latest state of a page.
// Uses UPSERT to handle duplicates (same URL + site).
func upsertPage(ctx context.Context, tx *sql.Tx, entry *PageEntry) error {
	query := `
	INSERT INTO pages (url, site, outcome, reason, status_code, content_hash, length)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(url, site) DO UPDATE SET
		outcome = excluded.outcome,
		reason = excluded.reason,
		status_code = excluded.status_code,
		content_hash = excluded.content_hash,
		length = excluded.length,
		timestamp = CURRENT_TIMESTAMP
	`

	_, err := tx.ExecContext(ctx, query,
		entry.URL,
		entry.Site,
		entry.Outcome.String(),
		string(entry.Reason),
		entry.StatusCode,
		entry.ContentHash,
		entry.Length,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert page: %w", err)
	}
	return nil
}

// GetPage retrieves the latest known state of a URL for a site.
// It returns nil, nil when the page was never crawled.
func (cdb *CrawlDB) GetPage(ctx context.Context, url, site string) (*PageEntry, error) {
	query := `
	SELECT id, url, site, timestamp, outcome, reason, status_code, content_hash, length
	FROM pages
	WHERE url = ? AND site = ?
	`

	var entry PageEntry
	var timestamp, outcome string
	var reason, hash sql.NullString

	err := cdb.db.QueryRowContext(ctx, query, url, site).Scan(
		&entry.ID,
		&entry.URL,
		&entry.Site,
		&timestamp,
		&outcome,
		&reason,
		&entry.StatusCode,
		&hash,
		&entry.Length,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page: %w", err)
	}

	entry.Timestamp = parseTimestamp(timestamp)
	entry.Reason = model.SkipReason(reason.String)
	entry.ContentHash = hash.String
	if entry.Outcome, err = model.ParseOutcomeKind(outcome); err != nil {
		return nil, fmt.Errorf("failed to parse page outcome: %w", err)
	}

	return &entry, nil
}

// GetRun retrieves a run by ID. It returns nil, nil when no such run exists.
// Records are not stored, so the returned run has outcomes and stats only.
func (cdb *CrawlDB) GetRun(ctx context.Context, id string) (*model.CrawlRun, error) {
	var runJSON string
	err := cdb.db.QueryRowContext(ctx, `SELECT run_json FROM runs WHERE id = ?`, id).Scan(&runJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var run model.CrawlRun
	if err := json.Unmarshal([]byte(runJSON), &run); err != nil {
		return nil, fmt.Errorf("failed to parse run: %w", err)
	}
	return &run, nil
}

// ListSites returns every site with at least one recorded run.
func (cdb *CrawlDB) ListSites(ctx context.Context) ([]string, error) {
	rows, err := cdb.db.QueryContext(ctx, `SELECT DISTINCT site FROM runs ORDER BY site`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	defer rows.Close()

	var sites []string
	for rows.Next() {
		var site string
		if err := rows.Scan(&site); err != nil {
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}
		sites = append(sites, site)
	}

	return sites, rows.Err()
}

// RunSummary contains summary information about a run.
// This is used for displaying history without loading every outcome.
type RunSummary struct {
	ID           string          `json:"id"`
	Site         string          `json:"site"`
	SeedURL      string          `json:"seed_url"`
	CorpusPath   string          `json:"corpus_path"`
	StartedAt    time.Time       `json:"started_at"`
	FinishedAt   time.Time       `json:"finished_at,omitzero"`
	Status       model.RunStatus `json:"status"`
	Pages        int             `json:"pages"`
	Skipped      int             `json:"skipped"`
	Failed       int             `json:"failed"`
	Characters   int             `json:"characters"`
	ErrorMessage string          `json:"error,omitempty"`
}

// ListRuns returns the runs of a site, newest first.
// An empty site lists the runs of all sites.
func (cdb *CrawlDB) ListRuns(ctx context.Context, site string) ([]RunSummary, error) {
	query := `
	SELECT id, site, seed_url, corpus_path, started_at, finished_at, status,
		pages, skipped, failed, characters, error
	FROM runs
	WHERE 1=1
	`
	args := make([]any, 0, 1)
	if site != "" {
		query += " AND site = ?"
		args = append(args, site)
	}
	query += " ORDER BY started_at DESC"

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var results []RunSummary
	for rows.Next() {
		var s RunSummary
		var startedAt, status string
		var finishedAt, errMsg sql.NullString

		if err := rows.Scan(
			&s.ID,
			&s.Site,
			&s.SeedURL,
			&s.CorpusPath,
			&startedAt,
			&finishedAt,
			&status,
			&s.Pages,
			&s.Skipped,
			&s.Failed,
			&s.Characters,
			&errMsg,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		s.StartedAt = parseTimestamp(startedAt)
		if finishedAt.Valid {
			s.FinishedAt = parseTimestamp(finishedAt.String)
		}
		s.Status = model.RunStatus(status)
		s.ErrorMessage = errMsg.String
		results = append(results, s)
	}

	return results, rows.Err()
}

// LatestCompletedRuns returns up to n completed runs of a site, newest first.
func (cdb *CrawlDB) LatestCompletedRuns(ctx context.Context, site string, n int) ([]RunSummary, error) {
	all, err := cdb.ListRuns(ctx, site)
	if err != nil {
		return nil, err
	}
	completed := make([]RunSummary, 0, n)
	for _, r := range all {
		if r.Status != model.RunCompleted {
			continue
		}
		completed = append(completed, r)
		if len(completed) == n {
			break
		}
	}
	return completed, nil
}

// RunPages returns the stored page outcomes of a run in processing order.
func (cdb *CrawlDB) RunPages(ctx context.Context, runID string) ([]PageEntry, error) {
	query := `
	SELECT rp.id, rp.url, r.site, rp.depth, rp.outcome, rp.reason, rp.status_code, rp.content_hash, rp.length
	FROM run_pages rp
	JOIN runs r ON r.id = rp.run_id
	WHERE rp.run_id = ?
	ORDER BY rp.id
	`

	rows, err := cdb.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run pages: %w", err)
	}
	defer rows.Close()

	var results []PageEntry
	for rows.Next() {
		var entry PageEntry
		var outcome string
		var reason, hash sql.NullString

		if err := rows.Scan(
			&entry.ID,
			&entry.URL,
			&entry.Site,
			&entry.Depth,
			&outcome,
			&reason,
			&entry.StatusCode,
			&hash,
			&entry.Length,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run page: %w", err)
		}

		entry.Reason = model.SkipReason(reason.String)
		entry.ContentHash = hash.String
		kind, err := model.ParseOutcomeKind(outcome)
		if err != nil {
			continue // Skip rows written by an incompatible version
		}
		entry.Outcome = kind
		results = append(results, entry)
	}

	return results, rows.Err()
}

// formatTime renders t in the storage layout.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format, and timeLayout
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
