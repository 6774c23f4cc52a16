package corpus

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/nao1215/sitecorpus/internal/model"
)

// filePerm is the mode of a written corpus. The indexer may run as a
// different user than the crawler.
const filePerm fs.FileMode = 0o644

// Writer writes a corpus to a fixed path.
type Writer struct {
	path string
}

// NewWriter creates a Writer for path.
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// Path returns the corpus path.
func (w *Writer) Path() string {
	return w.path
}

// Exists reports whether the corpus file is already present.
func (w *Writer) Exists() (bool, error) {
	return Exists(w.path)
}

// Write replaces the corpus with records.
//
// The records are encoded to a temporary file in the same directory, synced
// and renamed over the target, so an interrupted write never leaves a
// partial corpus behind for the presence check to find. All failures are
// returned as *PersistenceError.
func (w *Writer) Write(records []model.PageRecord) error {
	if len(records) == 0 {
		return &PersistenceError{Path: w.path, Op: "validate", Err: ErrNoRecords}
	}

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return &PersistenceError{Path: w.path, Op: "create directory", Err: err}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(w.path)+".*.tmp")
	if err != nil {
		return &PersistenceError{Path: w.path, Op: "create temp file", Err: err}
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if err := Encode(tmp, records); err != nil {
		return &PersistenceError{Path: w.path, Op: "encode", Err: err}
	}
	if err := tmp.Sync(); err != nil {
		return &PersistenceError{Path: w.path, Op: "sync", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &PersistenceError{Path: w.path, Op: "close", Err: err}
	}
	if err := os.Chmod(tmpPath, filePerm); err != nil {
		return &PersistenceError{Path: w.path, Op: "chmod", Err: err}
	}
	if err := os.Rename(tmpPath, w.path); err != nil {
		return &PersistenceError{Path: w.path, Op: "rename", Err: err}
	}
	committed = true

	return nil
}

// Encode writes records as indented JSON. HTML characters are not escaped
// so the content stays readable.
func Encode(out io.Writer, records []model.PageRecord) error {
	if records == nil {
		records = []model.PageRecord{}
	}
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(records)
}

// Exists reports whether a corpus file is present at path.
// A directory at path is an error, not a corpus.
func Exists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat corpus: %w", err)
	}
	if info.IsDir() {
		return false, fmt.Errorf("corpus path %s is a directory", path)
	}
	return true, nil
}

// Load reads a corpus file.
func Load(path string) ([]model.PageRecord, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus: %w", err)
	}
	defer file.Close()

	var records []model.PageRecord
	if err := json.NewDecoder(file).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode corpus %s: %w", path, err)
	}
	return records, nil
}
