package pipeline

import "errors"

var (
	// ErrEmptyCorpus is returned when a crawl finished without extracting a
	// single page. No corpus file is written in that case.
	ErrEmptyCorpus = errors.New("crawl produced no records")

	// ErrRunDeadline is returned when the run timeout expired before the
	// crawl finished. The partial result is not persisted.
	ErrRunDeadline = errors.New("crawl run deadline exceeded")
)
