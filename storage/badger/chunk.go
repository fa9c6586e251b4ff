package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/utilidoc/core"
	"github.com/poiesic/utilidoc/storage"
)

// ChunkIndex implements storage.ChunkIndex for BadgerDB.
//
// Chunks live under chunk:chunkID with a secondary index chunkdoc:docID:
// chunkID used for per-document replacement and deletion. Replacement runs
// in a single transaction, so a concurrent Search sees either the old or
// the new chunk set, never a mixture.
type ChunkIndex struct {
	backend *Backend
}

var _ storage.ChunkIndex = (*ChunkIndex)(nil)

// NewChunkIndex creates a new ChunkIndex.
//
// Returns the storage.ChunkIndex interface to enforce abstraction.
func NewChunkIndex(backend *Backend) (storage.ChunkIndex, error) {
	return &ChunkIndex{backend: backend}, nil
}

// Close releases resources. ChunkIndex has no resources to release.
func (ix *ChunkIndex) Close() error {
	return nil
}

// Replace atomically swaps all chunks stored for a document.
func (ix *ChunkIndex) Replace(ctx context.Context, docID core.ID, chunks []*core.IndexChunk) error {
	err := ix.backend.WithTx(func(tx *badger.Txn) error {
		if err := deleteDocChunks(tx, docID); err != nil {
			return err
		}
		for _, chunk := range chunks {
			if err := tx.Set(makeChunkKey(chunk.ChunkID), storage.MarshalIndexChunk(chunk)); err != nil {
				return err
			}
			docKey := makeChunkDocKey(docID, chunk.ChunkID)
			if err := tx.Set(docKey, storage.MarshalID(chunk.ChunkID)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	if errors.Is(err, badger.ErrConflict) {
		return storage.ErrConflict
	}
	return err
}

// Delete removes all chunks for a document.
func (ix *ChunkIndex) Delete(ctx context.Context, docID core.ID) error {
	err := ix.backend.WithTx(func(tx *badger.Txn) error {
		if err := deleteDocChunks(tx, docID); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	if errors.Is(err, badger.ErrConflict) {
		return storage.ErrConflict
	}
	return err
}

// Search scans all chunks and returns the topK most similar to the query
// vector, in deterministic order.
func (ix *ChunkIndex) Search(ctx context.Context, vector []float32, topK int, filter func(*core.IndexChunk) bool) ([]*core.ChunkMatch, error) {
	var results []*core.ChunkMatch

	err := ix.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var chunk *core.IndexChunk
			err := iter.Item().Value(func(val []byte) error {
				var err error
				chunk, err = storage.UnmarshalIndexChunk(val)
				return err
			})
			if err != nil {
				return err
			}
			if len(chunk.Vector) == 0 {
				continue
			}
			if filter != nil && !filter(chunk) {
				continue
			}

			results = append(results, &core.ChunkMatch{
				Chunk: chunk,
				Score: cosineSimilarity(vector, chunk.Vector),
			})
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}

	// Descending similarity; ties broken by documentId then chunkId so
	// result order is reproducible across runs.
	slices.SortFunc(results, func(a, b *core.ChunkMatch) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		if a.Chunk.DocumentID != b.Chunk.DocumentID {
			if a.Chunk.DocumentID < b.Chunk.DocumentID {
				return -1
			}
			return 1
		}
		if a.Chunk.ChunkID < b.Chunk.ChunkID {
			return -1
		}
		if a.Chunk.ChunkID > b.Chunk.ChunkID {
			return 1
		}
		return 0
	})

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Count returns the number of chunks stored for a document.
func (ix *ChunkIndex) Count(ctx context.Context, docID core.ID) (int, error) {
	count := 0
	err := ix.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialChunkDocKey(docID)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// deleteDocChunks removes a document's chunks and secondary index entries
// within an open transaction.
func deleteDocChunks(tx *badger.Txn, docID core.ID) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makePartialChunkDocKey(docID)
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)

	// Collect first: badger does not support deleting under an open iterator.
	var docKeys [][]byte
	var chunkIDs []core.ID
	for iter.Rewind(); iter.Valid(); iter.Next() {
		key := iter.Item().KeyCopy(nil)
		docKeys = append(docKeys, key)
		chunkIDs = append(chunkIDs, chunkIDFromDocKey(key))
	}
	iter.Close()

	for i, key := range docKeys {
		if err := tx.Delete(makeChunkKey(chunkIDs[i])); err != nil {
			return err
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// chunkIDFromDocKey extracts the chunk ID from a chunkdoc:docID:chunkID
// key. The chunk ID occupies the trailing 8 bytes.
func chunkIDFromDocKey(key []byte) core.ID {
	return core.ID(binary.BigEndian.Uint64(key[len(key)-8:]))
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Returns the dot product scaled by both magnitudes; zero when either
// vector has zero magnitude.
func cosineSimilarity(a, b []float32) float32 {
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < minLen; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	for _, v := range a {
		normA += float64(v) * float64(v)
	}
	for _, v := range b {
		normB += float64(v) * float64(v)
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
