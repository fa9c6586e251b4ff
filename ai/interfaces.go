package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error wrapping ErrEmbedding if the embedding service is
	// rate limited or unavailable.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// FieldExtractor turns a generic parsed document into a structured
// extraction candidate using a language model.
//
// The returned bytes are a raw JSON candidate in the DocumentRecord shape.
// The extractor is treated as unreliable: it may omit fields and is never
// guaranteed complete, which is exactly why the qc package exists. The
// result must pass core.ValidateCandidate before any further use.
type FieldExtractor interface {
	// ExtractFields produces a candidate JSON document for the generic
	// extraction output of one source document. sourceID identifies the
	// document and is echoed into the candidate's documentId field.
	ExtractFields(ctx context.Context, genericJSON []byte, sourceID string) ([]byte, error)
}

// Synthesizer produces a natural-language answer grounded in retrieved
// context. Implementations must never be called with an empty context;
// callers short-circuit to a no-grounding answer instead.
type Synthesizer interface {
	// Synthesize answers the question using only the provided context
	// blocks. Returns an error wrapping ErrSynthesis on service failure.
	Synthesize(ctx context.Context, question string, contextBlocks []string) (string, error)
}

// Provider aggregates AI services for convenient initialization and
// lifecycle management. A provider creates and manages the external
// capability clients, ensuring they share configuration appropriately.
type Provider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// FieldExtractor returns the structured extraction service.
	FieldExtractor() FieldExtractor

	// Synthesizer returns the answer synthesis service.
	Synthesizer() Synthesizer

	// Close releases resources held by the provider and its services.
	Close() error
}
