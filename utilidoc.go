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

package utilidoc

import (
	"log/slog"

	"github.com/poiesic/utilidoc/ai"
	"github.com/poiesic/utilidoc/ai/openai"
	"github.com/poiesic/utilidoc/ingestion"
	"github.com/poiesic/utilidoc/kb"
	"github.com/poiesic/utilidoc/retrieval"
	"github.com/poiesic/utilidoc/storage"
	"github.com/poiesic/utilidoc/storage/badger"
)

// System wires the validated document store, knowledge-base index, and AI
// provider into one handle. It is the embedding application's entry point;
// the CLI and tests build pipelines and retrieval engines from it.
type System struct {
	backend  *badger.Backend
	records  storage.RecordStore
	chunks   storage.ChunkIndex
	provider ai.Provider
	index    *kb.Index
	logger   *slog.Logger
}

// SystemOption configures a System.
type SystemOption func(*systemOptions)

type systemOptions struct {
	aiConfig *ai.Config
	provider ai.Provider
	inMemory bool
}

// WithAIConfig sets the configuration for the OpenAI-compatible provider.
// Default is ai.DefaultConfig().
func WithAIConfig(config *ai.Config) SystemOption {
	return func(o *systemOptions) {
		o.aiConfig = config
	}
}

// WithAIProvider supplies a pre-built provider instead of constructing the
// OpenAI one. Used by tests to inject mocks.
func WithAIProvider(provider ai.Provider) SystemOption {
	return func(o *systemOptions) {
		o.provider = provider
	}
}

// WithInMemoryStorage keeps all state in memory. Used by tests.
func WithInMemoryStorage() SystemOption {
	return func(o *systemOptions) {
		o.inMemory = true
	}
}

// NewSystem opens the storage backend at filePath and wires the stores,
// AI provider, and knowledge-base index.
func NewSystem(filePath string, opts ...SystemOption) (*System, error) {
	options := &systemOptions{
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	records, err := badger.NewRecordStore(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	chunks, err := badger.NewChunkIndex(backend)
	if err != nil {
		records.Close()
		backend.Close()
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			chunks.Close()
			records.Close()
			backend.Close()
			return nil, err
		}
	}

	return &System{
		backend:  backend,
		records:  records,
		chunks:   chunks,
		provider: provider,
		index:    kb.NewIndex(records, chunks, provider.Embedder()),
		logger:   slog.Default(),
	}, nil
}

// Close shuts the system down, releasing the AI provider and storage.
func (s *System) Close() error {
	if err := s.provider.Close(); err != nil {
		s.logger.Error("error closing AI provider", "err", err)
	}

	if err := s.chunks.Close(); err != nil {
		s.logger.Error("error closing chunk index", "err", err)
		return err
	}
	if err := s.records.Close(); err != nil {
		s.logger.Error("error closing record store", "err", err)
		return err
	}

	if err := s.backend.Close(); err != nil {
		s.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// RecordStore returns the versioned document record store.
func (s *System) RecordStore() storage.RecordStore {
	return s.records
}

// ChunkIndex returns the raw chunk store. Most callers want Index.
func (s *System) ChunkIndex() storage.ChunkIndex {
	return s.chunks
}

// Index returns the knowledge-base index.
func (s *System) Index() *kb.Index {
	return s.index
}

// Provider returns the AI provider.
func (s *System) Provider() ai.Provider {
	return s.provider
}

// NewPipeline builds a document processing pipeline over the system's
// stores and provider.
func (s *System) NewPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	return ingestion.NewPipeline(s.records, s.index, s.provider, opts...)
}

// NewRetrievalEngine builds a retrieval engine over the system's index and
// provider.
func (s *System) NewRetrievalEngine(opts ...retrieval.Option) (*retrieval.Engine, error) {
	return retrieval.NewEngine(s.index, s.provider, opts...)
}
