package storage

import (
	"context"

	"github.com/poiesic/utilidoc/core"
)

// RecordStore persists document records as immutable, versioned rows keyed
// by (documentId, version). Implementations must be thread-safe and must
// serialize writes per document key.
type RecordStore interface {
	// Put appends a new immutable version for the record's document ID,
	// tagged with the next monotonically increasing version number. Prior
	// versions are never overwritten. Flagged decisions additionally enter
	// the review queue consumed by ListFlagged.
	Put(ctx context.Context, record *core.DocumentRecord, decision core.QCDecision) (*core.StoredVersion, error)

	// GetLatest retrieves the most recent version for a document.
	// Returns ErrNotFound if the document has never been stored.
	GetLatest(ctx context.Context, id core.ID) (*core.StoredVersion, error)

	// GetVersion retrieves a specific version for a document.
	// Returns ErrNotFound if that version does not exist.
	GetVersion(ctx context.Context, id core.ID, version uint32) (*core.StoredVersion, error)

	// ListFlagged returns the latest version of every document whose latest
	// version is flagged for manual review, ordered by document ID.
	// Documents whose latest version passed QC are excluded even when an
	// earlier version was flagged.
	ListFlagged(ctx context.Context) ([]*core.StoredVersion, error)

	// MarkIndexed records that the given version has been incorporated into
	// the knowledge-base index. The version row itself is not mutated; the
	// marker lives alongside it.
	MarkIndexed(ctx context.Context, id core.ID, version uint32) error

	// ListUnindexed returns the latest version of every document whose
	// latest version has not been marked indexed, ordered by document ID.
	// Used to resume indexing after transient embedding failures.
	ListUnindexed(ctx context.Context) ([]*core.StoredVersion, error)

	// Close releases storage resources.
	Close() error
}

// ChunkIndex persists index chunks keyed by chunk ID with a secondary
// index on document ID, supporting atomic per-document replacement.
// Implementations must be thread-safe; replacements for different document
// IDs may run concurrently, and a concurrent Search must observe either
// the pre- or post-replacement chunk set, never a partial one.
type ChunkIndex interface {
	// Replace atomically swaps all chunks stored for a document with the
	// given set. Passing an empty set is equivalent to Delete.
	Replace(ctx context.Context, docID core.ID, chunks []*core.IndexChunk) error

	// Delete removes all chunks for a document.
	Delete(ctx context.Context, docID core.ID) error

	// Search returns up to topK chunks ordered by descending cosine
	// similarity to the query vector. Ties are broken by document ID, then
	// chunk ID, so result order is deterministic. A nil filter matches all
	// chunks.
	Search(ctx context.Context, vector []float32, topK int, filter func(*core.IndexChunk) bool) ([]*core.ChunkMatch, error)

	// Count returns the number of chunks stored for a document.
	Count(ctx context.Context, docID core.ID) (int, error)

	// Close releases storage resources.
	Close() error
}
