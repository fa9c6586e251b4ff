package badger

import (
	"encoding/binary"

	"github.com/poiesic/utilidoc/core"
)

// Key prefixes for different data types
const (
	versionPrefix   = "docver"  // docver:docID:version -> StoredVersion
	latestPrefix    = "doclat"  // doclat:docID -> latest version number
	reviewPrefix    = "docrev"  // docrev:docID -> flagged latest version number
	indexedPrefix   = "docidx"  // docidx:docID -> last indexed version number
	chunkPrefix     = "chunk"   // chunk:chunkID -> IndexChunk
	chunkDocPrefix  = "chunkdoc" // chunkdoc:docID:chunkID -> chunkID
)

// makeVersionKey generates a composite key for a stored version.
// IDs and versions are written BigEndian so lexicographic iteration yields
// ascending (docID, version) order.
func makeVersionKey(id core.ID, version uint32) []byte {
	prefix := versionPrefix + ":"
	buf := make([]byte, len(prefix)+12)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	binary.BigEndian.PutUint32(buf[offset+8:], version)
	return buf
}

// makeLatestKey generates the latest-version pointer key for a document.
func makeLatestKey(id core.ID) []byte {
	return makeDocKey(latestPrefix, id)
}

// makeReviewKey generates the review-queue key for a document.
func makeReviewKey(id core.ID) []byte {
	return makeDocKey(reviewPrefix, id)
}

// makeIndexedKey generates the indexed-marker key for a document.
func makeIndexedKey(id core.ID) []byte {
	return makeDocKey(indexedPrefix, id)
}

// makeChunkKey generates a key for a chunk by ID.
func makeChunkKey(id core.ID) []byte {
	return makeDocKey(chunkPrefix, id)
}

// makeChunkDocKey generates a composite key for the chunk document index.
// Format: prefix:docID:chunkID
func makeChunkDocKey(docID, chunkID core.ID) []byte {
	prefix := chunkDocPrefix + ":"
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(docID))
	binary.BigEndian.PutUint64(buf[offset+8:], uint64(chunkID))
	return buf
}

// makePartialChunkDocKey generates the prefix covering all chunk index
// entries for a document.
func makePartialChunkDocKey(docID core.ID) []byte {
	return makeDocKey(chunkDocPrefix, docID)
}

func makeDocKey(prefix string, id core.ID) []byte {
	full := prefix + ":"
	buf := make([]byte, len(full)+8)
	offset := copy(buf, full)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// encodeVersion stores a version number as fixed-width BigEndian bytes.
func encodeVersion(version uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, version)
	return buf
}

func decodeVersion(data []byte) uint32 {
	return binary.BigEndian.Uint32(data)
}
