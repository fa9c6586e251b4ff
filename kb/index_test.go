package kb

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/utilidoc/ai"
	"github.com/poiesic/utilidoc/ai/mock"
	"github.com/poiesic/utilidoc/core"
	"github.com/poiesic/utilidoc/storage"
	"github.com/poiesic/utilidoc/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) (*Index, storage.RecordStore, *mock.MockEmbedder) {
	t.Helper()
	records, chunks, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() {
		chunks.Close()
		records.Close()
		backend.Close()
	})

	embedder := mock.NewMockEmbedder()
	return NewIndex(records, chunks, embedder), records, embedder
}

func TestUpsertSelfRetrieval(t *testing.T) {
	index, records, embedder := newTestIndex(t)
	ctx := context.Background()

	record := &storedBill().Record
	_, err := records.Put(ctx, record, core.QCDecision{})
	require.NoError(t, err)

	require.NoError(t, index.Upsert(ctx, record.DocumentID))

	// Query with the exact embedding of a chunk's text: that chunk wins.
	chunks := SplitRecord(storedBill())
	queryVec, err := embedder.EmbedText(ctx, chunks[2].Text)
	require.NoError(t, err)

	matches, err := index.Query(ctx, queryVec, 10, nil)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, chunks[2].SourceFieldPath, matches[0].Chunk.SourceFieldPath)
	assert.InDelta(t, 1.0, float64(matches[0].Score), 1e-5)
}

func TestUpsertReplacesSupersededVersion(t *testing.T) {
	index, records, _ := newTestIndex(t)
	ctx := context.Background()

	record := &storedBill().Record
	_, err := records.Put(ctx, record, core.QCDecision{})
	require.NoError(t, err)
	require.NoError(t, index.Upsert(ctx, record.DocumentID))

	countV1, err := index.Count(ctx, record.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, 6, countV1)

	// Reprocess with a slimmer record; the old chunk set must vanish.
	slim := &core.DocumentRecord{
		DocumentID:   record.DocumentID,
		SourceID:     record.SourceID,
		Issuer:       record.Issuer,
		CustomerName: record.CustomerName,
	}
	_, err = records.Put(ctx, slim, core.QCDecision{})
	require.NoError(t, err)
	require.NoError(t, index.Upsert(ctx, record.DocumentID))

	countV2, err := index.Count(ctx, record.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, 1, countV2)

	matches, err := index.Query(ctx, make([]float32, 384), 50, nil)
	require.NoError(t, err)
	for _, m := range matches {
		assert.Equal(t, uint32(2), m.Chunk.CreatedVersion,
			"no chunk from a superseded version may be retrievable")
	}
}

func TestUpsertAlwaysReadsLatestVersion(t *testing.T) {
	index, records, _ := newTestIndex(t)
	ctx := context.Background()

	record := &storedBill().Record
	_, err := records.Put(ctx, record, core.QCDecision{})
	require.NoError(t, err)
	_, err = records.Put(ctx, record, core.QCDecision{})
	require.NoError(t, err)

	require.NoError(t, index.Upsert(ctx, record.DocumentID))

	matches, err := index.Query(ctx, make([]float32, 384), 50, nil)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	for _, m := range matches {
		assert.Equal(t, uint32(2), m.Chunk.CreatedVersion)
	}
}

func TestUpsertMarksIndexed(t *testing.T) {
	index, records, _ := newTestIndex(t)
	ctx := context.Background()

	record := &storedBill().Record
	_, err := records.Put(ctx, record, core.QCDecision{})
	require.NoError(t, err)

	unindexed, err := records.ListUnindexed(ctx)
	require.NoError(t, err)
	require.Len(t, unindexed, 1)

	require.NoError(t, index.Upsert(ctx, record.DocumentID))

	unindexed, err = records.ListUnindexed(ctx)
	require.NoError(t, err)
	assert.Empty(t, unindexed)
}

func TestUpsertEmbeddingFailureLeavesUnindexed(t *testing.T) {
	index, records, embedder := newTestIndex(t)
	ctx := context.Background()

	record := &storedBill().Record
	_, err := records.Put(ctx, record, core.QCDecision{})
	require.NoError(t, err)

	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, ai.ErrEmbedding
	}

	err = index.Upsert(ctx, record.DocumentID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ai.ErrEmbedding))

	unindexed, err := records.ListUnindexed(ctx)
	require.NoError(t, err)
	assert.Len(t, unindexed, 1, "failed upsert must leave the document recoverable")

	count, err := index.Count(ctx, record.DocumentID)
	require.NoError(t, err)
	assert.Zero(t, count, "no chunks may appear for a failed upsert")
}

func TestUpsertUnknownDocument(t *testing.T) {
	index, _, _ := newTestIndex(t)

	err := index.Upsert(context.Background(), core.IDFromContent("never-stored"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}
