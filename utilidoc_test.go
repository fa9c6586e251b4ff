package utilidoc

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/poiesic/utilidoc/ai/mock"
	"github.com/poiesic/utilidoc/ingestion"
	"github.com/poiesic/utilidoc/retrieval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSystem(t *testing.T) *System {
	t.Helper()
	system, err := NewSystem("",
		WithInMemoryStorage(),
		WithAIProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	t.Cleanup(func() { system.Close() })
	return system
}

func TestSystemEndToEnd(t *testing.T) {
	system := newTestSystem(t)
	ctx := context.Background()

	pipeline, err := system.NewPipeline()
	require.NoError(t, err)
	defer pipeline.Release()

	result := pipeline.Process(ctx, []byte(`{
		"documentId": "bill-2024-07",
		"issuer": "City Power & Light",
		"customerName": "Acme Corp",
		"documentType": "sampleBill",
		"usageHistory": [{"periodLabel": "Jul", "usageValue": 512, "unit": "kWh"}]
	}`))
	require.NoError(t, result.Err)
	assert.Equal(t, ingestion.StateIndexed, result.State)

	engine, err := system.NewRetrievalEngine(retrieval.WithTopK(5))
	require.NoError(t, err)

	answer, err := engine.Answer(ctx, "what was the July usage?")
	require.NoError(t, err)
	assert.True(t, answer.Grounded)
	assert.NotEmpty(t, answer.SupportingChunks)
}

func TestSystemAccessors(t *testing.T) {
	system := newTestSystem(t)

	assert.NotNil(t, system.RecordStore())
	assert.NotNil(t, system.ChunkIndex())
	assert.NotNil(t, system.Index())
	assert.NotNil(t, system.Provider())
}

func TestSystemPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "utilidoc.db")
	ctx := context.Background()

	system, err := NewSystem(path, WithAIProvider(mock.NewMockProvider()))
	require.NoError(t, err)

	pipeline, err := system.NewPipeline()
	require.NoError(t, err)

	result := pipeline.Process(ctx, []byte(`{
		"documentId": "persisted-1",
		"issuer": "City Power & Light",
		"usageHistory": [{"periodLabel": "Jan", "usageValue": 100}]
	}`))
	require.NoError(t, result.Err)
	docID := result.DocumentID

	pipeline.Release()
	require.NoError(t, system.Close())

	// Reopen and verify the document and its chunks survived.
	system, err = NewSystem(path, WithAIProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	defer system.Close()

	stored, err := system.RecordStore().GetLatest(ctx, docID)
	require.NoError(t, err)
	assert.Equal(t, "persisted-1", stored.Record.SourceID)

	count, err := system.Index().Count(ctx, docID)
	require.NoError(t, err)
	assert.Positive(t, count)
}

func TestSystemClose(t *testing.T) {
	system, err := NewSystem("",
		WithInMemoryStorage(),
		WithAIProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	assert.NoError(t, system.Close())
}
