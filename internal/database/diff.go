package database

import (
	"context"
	"fmt"
	"sort"

	"github.com/nao1215/sitecorpus/internal/model"
)

// RunDiff compares the extracted pages of two runs.
type RunDiff struct {
	// OldRunID and NewRunID identify the compared runs.
	OldRunID string `json:"old_run_id"`
	NewRunID string `json:"new_run_id"`

	// Added are URLs extracted only in the new run.
	Added []string `json:"added"`

	// Removed are URLs extracted only in the old run.
	Removed []string `json:"removed"`

	// Changed are URLs extracted in both runs with different content.
	Changed []string `json:"changed"`

	// Unchanged counts URLs extracted in both runs with identical content.
	Unchanged int `json:"unchanged"`
}

// HasChanges reports whether the two runs differ.
func (d *RunDiff) HasChanges() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0 || len(d.Changed) > 0
}

// DiffRuns compares the extracted pages of two stored runs by URL and
// content hash. Output slices are sorted.
func (cdb *CrawlDB) DiffRuns(ctx context.Context, oldRunID, newRunID string) (*RunDiff, error) {
	oldPages, err := cdb.extractedHashes(ctx, oldRunID)
	if err != nil {
		return nil, err
	}
	newPages, err := cdb.extractedHashes(ctx, newRunID)
	if err != nil {
		return nil, err
	}

	diff := &RunDiff{
		OldRunID: oldRunID,
		NewRunID: newRunID,
		Added:    make([]string, 0),
		Removed:  make([]string, 0),
		Changed:  make([]string, 0),
	}

	for url, newHash := range newPages {
		oldHash, ok := oldPages[url]
		switch {
		case !ok:
			diff.Added = append(diff.Added, url)
		case oldHash != newHash:
			diff.Changed = append(diff.Changed, url)
		default:
			diff.Unchanged++
		}
	}
	for url := range oldPages {
		if _, ok := newPages[url]; !ok {
			diff.Removed = append(diff.Removed, url)
		}
	}

	sort.Strings(diff.Added)
	sort.Strings(diff.Removed)
	sort.Strings(diff.Changed)

	return diff, nil
}

// extractedHashes maps each extracted URL of a run to its content hash.
func (cdb *CrawlDB) extractedHashes(ctx context.Context, runID string) (map[string]string, error) {
	pages, err := cdb.RunPages(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}
	hashes := make(map[string]string, len(pages))
	for _, p := range pages {
		if p.Outcome == model.OutcomeExtracted {
			hashes[p.URL] = p.ContentHash
		}
	}
	return hashes, nil
}
