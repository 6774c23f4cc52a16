package report

import (
	"github.com/nao1215/sitecorpus/internal/corpus"
	"github.com/nao1215/sitecorpus/internal/model"
)

// CorpusSummary describes a corpus file for the inspect command.
type CorpusSummary struct {
	// Path is the corpus file.
	Path string `json:"path"`

	// Stats aggregates all records.
	Stats corpus.Stats `json:"stats"`

	// ChunkSize and ChunkOverlap are the window parameters behind
	// Stats.EstimatedChunks.
	ChunkSize    int `json:"chunk_size"`
	ChunkOverlap int `json:"chunk_overlap"`

	// Pages lists every record in file order.
	Pages []CorpusPage `json:"pages"`
}

// CorpusPage is one record of a corpus summary.
type CorpusPage struct {
	URL             string `json:"url"`
	Characters      int    `json:"characters"`
	EstimatedChunks int    `json:"estimated_chunks"`
}

// NewCorpusSummary summarizes records loaded from path.
func NewCorpusSummary(path string, records []model.PageRecord) *CorpusSummary {
	s := &CorpusSummary{
		Path:         path,
		Stats:        corpus.ComputeStats(records),
		ChunkSize:    corpus.DefaultChunkSize,
		ChunkOverlap: corpus.DefaultChunkOverlap,
		Pages:        make([]CorpusPage, 0, len(records)),
	}
	for _, r := range records {
		n := r.Length()
		s.Pages = append(s.Pages, CorpusPage{
			URL:             r.URL,
			Characters:      n,
			EstimatedChunks: corpus.EstimateChunks(n, corpus.DefaultChunkSize, corpus.DefaultChunkOverlap),
		})
	}
	return s
}
