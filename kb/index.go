// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package kb

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/utilidoc/ai"
	"github.com/poiesic/utilidoc/core"
	"github.com/poiesic/utilidoc/storage"
)

// Index maintains the knowledge-base view of stored documents: the chunked,
// embedded form queried by the retrieval engine.
//
// Upsert always re-reads the latest stored version at call time, so the
// index never carries chunks of a superseded version. Concurrent upserts for
// different documents do not interfere; upserts for the same document are
// serialized by the caller.
type Index struct {
	records  storage.RecordStore
	chunks   storage.ChunkIndex
	embedder ai.Embedder
	logger   *slog.Logger
}

// NewIndex creates a knowledge-base index over the given stores and embedder.
func NewIndex(records storage.RecordStore, chunks storage.ChunkIndex, embedder ai.Embedder) *Index {
	return &Index{
		records:  records,
		chunks:   chunks,
		embedder: embedder,
		logger:   slog.Default().With("component", "kb-index"),
	}
}

// Upsert rebuilds the indexed chunks for a document from its latest stored
// version. All previously indexed chunks for the document are atomically
// replaced; a concurrent query observes the old set or the new set, never a
// mixture. On success the latest version is marked indexed in the record
// store.
//
// Returns an error wrapping ai.ErrEmbedding when the embedding service
// fails; callers retry at their own boundary.
func (ix *Index) Upsert(ctx context.Context, docID core.ID) error {
	version, err := ix.records.GetLatest(ctx, docID)
	if err != nil {
		return fmt.Errorf("reading latest version: %w", err)
	}

	pending := SplitRecord(version)
	texts := make([]string, len(pending))
	for i, p := range pending {
		texts[i] = p.Text
	}

	vectors, err := ix.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding %d chunks: %w", len(pending), err)
	}
	if len(vectors) != len(pending) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(pending))
	}

	chunks := make([]*core.IndexChunk, len(pending))
	for i, p := range pending {
		chunks[i] = &core.IndexChunk{
			ChunkID:         core.ChunkIDFor(docID, version.Version, p.SourceFieldPath),
			DocumentID:      docID,
			SourceFieldPath: p.SourceFieldPath,
			Text:            p.Text,
			Vector:          vectors[i],
			CreatedVersion:  version.Version,
		}
	}

	if err := ix.chunks.Replace(ctx, docID, chunks); err != nil {
		return fmt.Errorf("replacing chunks: %w", err)
	}

	if err := ix.records.MarkIndexed(ctx, docID, version.Version); err != nil {
		return fmt.Errorf("marking indexed: %w", err)
	}

	ix.logger.Debug("upserted document chunks",
		"documentId", docID,
		"version", version.Version,
		"chunks", len(chunks))
	return nil
}

// Query returns the topK chunks most similar to the query vector, ordered
// by descending similarity with deterministic tie-breaking.
func (ix *Index) Query(ctx context.Context, vector []float32, topK int, filter func(*core.IndexChunk) bool) ([]*core.ChunkMatch, error) {
	return ix.chunks.Search(ctx, vector, topK, filter)
}

// Delete removes all indexed chunks for a document.
func (ix *Index) Delete(ctx context.Context, docID core.ID) error {
	return ix.chunks.Delete(ctx, docID)
}

// Count returns the number of chunks currently indexed for a document.
func (ix *Index) Count(ctx context.Context, docID core.ID) (int, error) {
	return ix.chunks.Count(ctx, docID)
}
