package ai

import "errors"

// External capability failure kinds. Transient failures are retried with
// bounded backoff at the orchestrator boundary, never inside the adapters.
var (
	// ErrEmbedding indicates the embedding service failed (rate limiting or
	// unavailability).
	ErrEmbedding = errors.New("embedding service failure")

	// ErrExtraction indicates the language-model extraction service failed
	// or returned unparseable output.
	ErrExtraction = errors.New("extraction service failure")

	// ErrSynthesis indicates the answer synthesis service failed.
	ErrSynthesis = errors.New("synthesis service failure")
)
