package retrieval

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/poiesic/utilidoc/ai/mock"
	"github.com/poiesic/utilidoc/core"
	"github.com/poiesic/utilidoc/kb"
	"github.com/poiesic/utilidoc/storage"
	"github.com/poiesic/utilidoc/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, opts ...Option) (*Engine, storage.RecordStore, *kb.Index, *mock.MockProvider) {
	t.Helper()
	records, chunks, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() {
		chunks.Close()
		records.Close()
		backend.Close()
	})

	provider := mock.NewMockProvider().(*mock.MockProvider)
	index := kb.NewIndex(records, chunks, provider.Embedder())

	engine, err := NewEngine(index, provider, opts...)
	require.NoError(t, err)
	return engine, records, index, provider
}

func indexedBill(t *testing.T, records storage.RecordStore, index *kb.Index) *core.DocumentRecord {
	t.Helper()
	record := &core.DocumentRecord{
		DocumentID:   core.IDFromContent("bill-2024-03"),
		SourceID:     "bill-2024-03",
		Issuer:       "City Power & Light",
		CustomerName: "Acme Corp",
		DocumentType: core.DocumentTypeSampleBill,
		Locations: []core.ServiceLocation{
			{
				AccountNumber: "ACC1",
				UsageHistory: []core.UsagePeriod{
					{PeriodLabel: "Jan", UsageValue: 450, Unit: "kWh"},
				},
			},
		},
	}
	ctx := context.Background()
	_, err := records.Put(ctx, record, core.QCDecision{})
	require.NoError(t, err)
	require.NoError(t, index.Upsert(ctx, record.DocumentID))
	return record
}

func TestNewEngine(t *testing.T) {
	_, _, index, provider := newTestEngine(t)

	t.Run("nil index", func(t *testing.T) {
		_, err := NewEngine(nil, provider)
		assert.Equal(t, ErrIndexRequired, err)
	})

	t.Run("nil provider", func(t *testing.T) {
		_, err := NewEngine(index, nil)
		assert.Equal(t, ErrAIProviderRequired, err)
	})

	t.Run("invalid topK", func(t *testing.T) {
		_, err := NewEngine(index, provider, WithTopK(0))
		assert.Error(t, err)
	})
}

func TestAnswerNoGrounding(t *testing.T) {
	engine, _, _, provider := newTestEngine(t)

	// Empty index: the answer is the fixed no-grounding text and the
	// synthesis service is never called.
	answer, err := engine.Answer(context.Background(), "what was the usage in January?")
	require.NoError(t, err)

	assert.False(t, answer.Grounded)
	assert.Equal(t, NoGroundingText, answer.Text)
	assert.Empty(t, answer.SupportingChunks)
	assert.Zero(t, provider.GetMockSynthesizer().CallCount(),
		"synthesis must not run with empty context")
}

func TestAnswerGrounded(t *testing.T) {
	engine, records, index, provider := newTestEngine(t)
	indexedBill(t, records, index)

	provider.GetMockSynthesizer().SynthesizeFunc = func(ctx context.Context, question string, contextBlocks []string) (string, error) {
		require.NotEmpty(t, contextBlocks)
		for _, block := range contextBlocks {
			require.True(t, strings.HasPrefix(block, "[source:"),
				"context blocks must carry attribution: %q", block)
		}
		return "450 kWh in January for account ACC1.", nil
	}

	answer, err := engine.Answer(context.Background(), "usage for account ACC1 in January")
	require.NoError(t, err)

	assert.True(t, answer.Grounded)
	assert.Equal(t, "450 kWh in January for account ACC1.", answer.Text)
	assert.NotEmpty(t, answer.SupportingChunks)
	assert.Equal(t, 1, provider.GetMockSynthesizer().CallCount())
}

func TestAnswerTopKLimit(t *testing.T) {
	engine, records, index, _ := newTestEngine(t, WithTopK(2))
	indexedBill(t, records, index)

	answer, err := engine.Answer(context.Background(), "tell me about this account")
	require.NoError(t, err)
	assert.True(t, answer.Grounded)
	assert.LessOrEqual(t, len(answer.SupportingChunks), 2)
}

func TestAnswerSynthesisFailure(t *testing.T) {
	engine, records, index, provider := newTestEngine(t)
	indexedBill(t, records, index)

	provider.GetMockSynthesizer().SynthesizeFunc = func(ctx context.Context, question string, contextBlocks []string) (string, error) {
		return "", fmt.Errorf("service unavailable")
	}

	_, err := engine.Answer(context.Background(), "any question")
	assert.Error(t, err)
}

func TestAnswerWithMonitor(t *testing.T) {
	engine, records, index, _ := newTestEngine(t)
	indexedBill(t, records, index)

	monitor := &recordingMonitor{}
	answer, err := engine.AnswerWithMonitor(context.Background(), "usage for ACC1", monitor)
	require.NoError(t, err)
	require.True(t, answer.Grounded)

	assert.Equal(t, []string{"start", "embedded", "queried", "synthesis", "finish"}, monitor.events)
}

type recordingMonitor struct {
	events []string
}

func (m *recordingMonitor) Start(string)                       { m.events = append(m.events, "start") }
func (m *recordingMonitor) AfterQueryEmbedding(int)            { m.events = append(m.events, "embedded") }
func (m *recordingMonitor) AfterIndexQuery([]*core.ChunkMatch) { m.events = append(m.events, "queried") }
func (m *recordingMonitor) NoGrounding(string)                 { m.events = append(m.events, "nogrounding") }
func (m *recordingMonitor) BeforeSynthesis([]string)           { m.events = append(m.events, "synthesis") }
func (m *recordingMonitor) Finish(*Answer)                     { m.events = append(m.events, "finish") }
