package corpus

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/sitecorpus/internal/model"
)

func sampleRecords() []model.PageRecord {
	return []model.PageRecord{
		{URL: "https://example.com/", Content: "Locum tenens staffing.\nPhysicians & nurses <welcome>."},
		{URL: "https://example.com/about", Content: "Über uns. Café team."},
	}
}

func TestWriter_Write(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "website_content.json")
	w := NewWriter(path)

	if err := w.Write(sampleRecords()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read corpus: %v", err)
	}
	text := string(data)

	if !strings.HasPrefix(text, "[\n  {\n    \"url\": \"https://example.com/\",") {
		t.Errorf("expected two-space indented array, got:\n%s", text)
	}
	if !strings.Contains(text, "Physicians & nurses <welcome>.") {
		t.Error("expected HTML characters to be written unescaped")
	}
	if !strings.Contains(text, "Über uns. Café team.") {
		t.Error("expected UTF-8 content to be written verbatim")
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 2 || loaded[1] != sampleRecords()[1] {
		t.Errorf("unexpected loaded records: %+v", loaded)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the corpus file, found %d entries", len(entries))
	}
}

func TestWriter_WriteReplacesExisting(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "corpus.json")
	if err := os.WriteFile(path, []byte("stale"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := NewWriter(path).Write(sampleRecords()[:1]); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 1 {
		t.Errorf("expected 1 record, got %d", len(loaded))
	}
}

func TestWriter_WriteErrors(t *testing.T) {
	t.Parallel()

	t.Run("empty records", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "corpus.json")
		err := NewWriter(path).Write(nil)

		var pe *PersistenceError
		if !errors.As(err, &pe) {
			t.Fatalf("expected PersistenceError, got %v", err)
		}
		if !errors.Is(err, ErrNoRecords) {
			t.Errorf("expected ErrNoRecords, got %v", err)
		}
		if ok, _ := Exists(path); ok {
			t.Error("no file must be written for an empty corpus")
		}
	})

	t.Run("unwritable directory", func(t *testing.T) {
		t.Parallel()

		blocker := filepath.Join(t.TempDir(), "blocker")
		if err := os.WriteFile(blocker, nil, 0o600); err != nil {
			t.Fatal(err)
		}

		err := NewWriter(filepath.Join(blocker, "corpus.json")).Write(sampleRecords())
		var pe *PersistenceError
		if !errors.As(err, &pe) {
			t.Fatalf("expected PersistenceError, got %v", err)
		}
		if pe.Op != "create directory" {
			t.Errorf("expected create directory failure, got %q", pe.Op)
		}
	})
}

func TestExists(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "corpus.json")
	if err := os.WriteFile(file, []byte("[]"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		want    bool
		wantErr bool
	}{
		{"existing file", file, true, false},
		{"missing file", filepath.Join(dir, "missing.json"), false, false},
		{"directory", dir, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Exists(tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if got != tt.want {
				t.Errorf("Exists(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if _, err := Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Error("expected error for malformed file")
	}
}

func TestEncode_Empty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := Encode(&buf, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("expected empty array, got %q", buf.String())
	}
}

func TestEstimateChunks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		length int
		want   int
	}{
		{0, 0},
		{1, 1},
		{500, 1},
		{501, 2},
		{950, 2},
		{951, 3},
		{1000, 3},
	}

	for _, tt := range tests {
		if got := EstimateChunks(tt.length, DefaultChunkSize, DefaultChunkOverlap); got != tt.want {
			t.Errorf("EstimateChunks(%d) = %d, want %d", tt.length, got, tt.want)
		}
	}
}

func TestComputeStats(t *testing.T) {
	t.Parallel()

	records := []model.PageRecord{
		{URL: "a", Content: strings.Repeat("x", 120)},
		{URL: "b", Content: strings.Repeat("é", 700)},
	}

	s := ComputeStats(records)
	if s.Pages != 2 || s.Characters != 820 {
		t.Errorf("unexpected totals: %+v", s)
	}
	if s.Shortest != 120 || s.Longest != 700 {
		t.Errorf("unexpected extremes: %+v", s)
	}
	if s.EstimatedChunks != 3 {
		t.Errorf("expected 3 estimated chunks, got %d", s.EstimatedChunks)
	}

	if empty := ComputeStats(nil); empty != (Stats{}) {
		t.Errorf("expected zero stats for empty corpus, got %+v", empty)
	}
}
