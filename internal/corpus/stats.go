package corpus

import "github.com/nao1215/sitecorpus/internal/model"

// Window parameters of the downstream splitter, in characters.
const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
)

// Stats summarizes a corpus.
type Stats struct {
	// Pages is the number of records.
	Pages int `json:"pages"`

	// Characters is the total content length.
	Characters int `json:"characters"`

	// Shortest and Longest are the extreme record lengths.
	Shortest int `json:"shortest"`
	Longest  int `json:"longest"`

	// EstimatedChunks is how many fixed windows the indexer would produce.
	// The real splitter prefers paragraph and sentence boundaries, so this is
	// an estimate only.
	EstimatedChunks int `json:"estimated_chunks"`
}

// ComputeStats summarizes records using the default window parameters.
func ComputeStats(records []model.PageRecord) Stats {
	var s Stats
	for i, r := range records {
		n := r.Length()
		s.Pages++
		s.Characters += n
		if i == 0 || n < s.Shortest {
			s.Shortest = n
		}
		if n > s.Longest {
			s.Longest = n
		}
		s.EstimatedChunks += EstimateChunks(n, DefaultChunkSize, DefaultChunkOverlap)
	}
	return s
}

// EstimateChunks returns the number of windows of size characters, each
// overlapping the previous one by overlap, needed to cover length
// characters.
func EstimateChunks(length, size, overlap int) int {
	if length <= 0 || size <= 0 {
		return 0
	}
	if length <= size {
		return 1
	}
	step := size - overlap
	if step <= 0 {
		step = size
	}
	return 1 + (length-size+step-1)/step
}
