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

// Package storage provides the storage abstraction layer for utilidoc.
//
// It defines two repository interfaces that decouple persistence from the
// pipeline logic:
//
//   - RecordStore: append-only, versioned document records. "Latest" is a
//     lookup over (documentId, version) rows, never an in-place mutation,
//     which preserves an audit trail across reprocessing.
//   - ChunkIndex: retrieval chunks keyed by chunkId with a secondary index
//     on documentId, so a document's whole chunk set can be replaced as a
//     single atomic operation.
//
// # Constructor Return Type Pattern
//
// Public constructors in backend packages return these interfaces rather
// than concrete types:
//
//	store, err := badger.NewRecordStore(backend)  // returns storage.RecordStore
//
// This keeps callers decoupled from BadgerDB specifics and lets tests
// substitute other implementations without modification. Internal
// constructors may return concrete types.
//
// # Thread Safety
//
// All implementations must be safe for concurrent use. Writes for the same
// document key must be serialized; writes for different documents may
// proceed in parallel.
package storage
