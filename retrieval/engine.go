package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/utilidoc/ai"
	"github.com/poiesic/utilidoc/core"
	"github.com/poiesic/utilidoc/kb"
)

// DefaultTopK is the number of chunks retrieved per query when no override
// is configured.
const DefaultTopK = 15

// NoGroundingText is returned verbatim when the index yields no matches.
// The synthesis service is never called in that case.
const NoGroundingText = "I couldn't find any relevant documents to answer that."

// Answer is the result of a retrieval query: the synthesized text plus the
// chunks it was grounded on. Grounded is false when the index returned
// nothing and Text carries the fixed no-grounding message.
type Answer struct {
	Text             string
	SupportingChunks []*core.ChunkMatch
	Grounded         bool
}

// Engine answers natural-language questions over the knowledge base.
// Queries are read-only and may run concurrently with unrelated upserts.
type Engine struct {
	index       *kb.Index
	embedder    ai.Embedder
	synthesizer ai.Synthesizer
	topK        int
	logger      *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithTopK sets how many chunks are retrieved per query.
// Default is DefaultTopK.
func WithTopK(topK int) Option {
	return func(e *Engine) error {
		if topK < 1 {
			return fmt.Errorf("topK must be positive, got %d", topK)
		}
		e.topK = topK
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// NewEngine creates a retrieval engine over the given index and AI provider.
func NewEngine(index *kb.Index, provider ai.Provider, opts ...Option) (*Engine, error) {
	if index == nil {
		return nil, ErrIndexRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	e := &Engine{
		index:       index,
		embedder:    provider.Embedder(),
		synthesizer: provider.Synthesizer(),
		topK:        DefaultTopK,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// Answer embeds the query, retrieves the topK most similar chunks, and
// synthesizes a grounded answer. With zero matches it short-circuits to a
// no-grounding answer without touching the synthesis service.
func (e *Engine) Answer(ctx context.Context, query string) (*Answer, error) {
	return e.AnswerWithMonitor(ctx, query, nil)
}

// AnswerWithMonitor answers the query with monitoring. The monitor receives
// callbacks at each stage of retrieval.
func (e *Engine) AnswerWithMonitor(ctx context.Context, query string, monitor Monitor) (*Answer, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	monitor.Start(query)

	vector, err := e.embedder.EmbedText(ctx, query)
	if err != nil {
		e.logger.Error("error generating embedding for query", "err", err)
		return nil, err
	}
	monitor.AfterQueryEmbedding(len(vector))

	matches, err := e.index.Query(ctx, vector, e.topK, nil)
	if err != nil {
		e.logger.Error("error querying knowledge base", "err", err)
		return nil, err
	}
	monitor.AfterIndexQuery(matches)

	if len(matches) == 0 {
		e.logger.Debug("no grounding found for query")
		monitor.NoGrounding(query)
		answer := &Answer{
			Text:     NoGroundingText,
			Grounded: false,
		}
		monitor.Finish(answer)
		return answer, nil
	}

	blocks := make([]string, len(matches))
	for i, m := range matches {
		blocks[i] = fmt.Sprintf("[source: %s %s]\n%s",
			m.Chunk.SourceFieldPath, chunkOrigin(m.Chunk), m.Chunk.Text)
	}
	monitor.BeforeSynthesis(blocks)

	text, err := e.synthesizer.Synthesize(ctx, query, blocks)
	if err != nil {
		e.logger.Error("error synthesizing answer", "err", err)
		return nil, err
	}

	answer := &Answer{
		Text:             text,
		SupportingChunks: matches,
		Grounded:         true,
	}
	monitor.Finish(answer)
	return answer, nil
}

// chunkOrigin renders the document identity of a chunk for attribution.
func chunkOrigin(chunk *core.IndexChunk) string {
	return fmt.Sprintf("(document %d v%d)", chunk.DocumentID, chunk.CreatedVersion)
}
