package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/utilidoc/core"
	"github.com/poiesic/utilidoc/storage"
)

// RecordStore implements storage.RecordStore for BadgerDB.
//
// Versions are append-only rows under docver:docID:version. A latest
// pointer per document makes "latest" a lookup instead of a scan, and a
// review-queue entry tracks documents whose latest version is flagged.
type RecordStore struct {
	backend *Backend
}

var _ storage.RecordStore = (*RecordStore)(nil)

// NewRecordStore creates a new RecordStore.
//
// Returns the storage.RecordStore interface to enforce abstraction.
func NewRecordStore(backend *Backend) (storage.RecordStore, error) {
	return &RecordStore{backend: backend}, nil
}

// Close releases resources. RecordStore has no resources to release.
func (s *RecordStore) Close() error {
	return nil
}

// Put appends a new immutable version for the record's document.
func (s *RecordStore) Put(ctx context.Context, record *core.DocumentRecord, decision core.QCDecision) (*core.StoredVersion, error) {
	var stored *core.StoredVersion
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		next := uint32(1)
		latestKey := makeLatestKey(record.DocumentID)
		item, err := tx.Get(latestKey)
		if err == nil {
			if err := item.Value(func(val []byte) error {
				next = decodeVersion(val) + 1
				return nil
			}); err != nil {
				return err
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		version := &core.StoredVersion{
			DocumentID: record.DocumentID,
			Version:    next,
			Record:     *record,
			Decision:   decision,
			StoredAt:   time.Now().UTC(),
		}

		if err := tx.Set(makeVersionKey(record.DocumentID, next), storage.MarshalStoredVersion(version)); err != nil {
			return err
		}
		if err := tx.Set(latestKey, encodeVersion(next)); err != nil {
			return err
		}

		// The review queue tracks the latest version only: a corrected
		// reprocessing clears the document from manual-review routing.
		reviewKey := makeReviewKey(record.DocumentID)
		if decision.Flag {
			if err := tx.Set(reviewKey, encodeVersion(next)); err != nil {
				return err
			}
		} else {
			if err := tx.Delete(reviewKey); err != nil {
				return err
			}
		}

		stored = version
		return tx.Commit()
	}, true)

	if errors.Is(err, badger.ErrConflict) {
		return nil, storage.ErrConflict
	}
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// GetLatest retrieves the most recent version for a document.
func (s *RecordStore) GetLatest(ctx context.Context, id core.ID) (*core.StoredVersion, error) {
	var result *core.StoredVersion
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		version, err := readLatestVersionNumber(tx, id)
		if err != nil {
			return err
		}
		result, err = readStoredVersion(tx, id, version)
		return err
	}, false)
	return result, err
}

// GetVersion retrieves a specific version for a document.
func (s *RecordStore) GetVersion(ctx context.Context, id core.ID, version uint32) (*core.StoredVersion, error) {
	var result *core.StoredVersion
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readStoredVersion(tx, id, version)
		return err
	}, false)
	return result, err
}

// ListFlagged returns the latest versions currently routed for manual review.
func (s *RecordStore) ListFlagged(ctx context.Context) ([]*core.StoredVersion, error) {
	var results []*core.StoredVersion
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(reviewPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			id := docIDFromKey(item.Key())

			var version uint32
			if err := item.Value(func(val []byte) error {
				version = decodeVersion(val)
				return nil
			}); err != nil {
				return err
			}

			stored, err := readStoredVersion(tx, id, version)
			if err != nil {
				return err
			}
			results = append(results, stored)
		}
		return nil
	}, false)
	return results, err
}

// MarkIndexed records the last indexed version for a document.
func (s *RecordStore) MarkIndexed(ctx context.Context, id core.ID, version uint32) error {
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeIndexedKey(id), encodeVersion(version)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if errors.Is(err, badger.ErrConflict) {
		return storage.ErrConflict
	}
	return err
}

// ListUnindexed returns latest versions whose chunks have not been indexed.
func (s *RecordStore) ListUnindexed(ctx context.Context) ([]*core.StoredVersion, error) {
	var results []*core.StoredVersion
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(latestPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			id := docIDFromKey(item.Key())

			var latest uint32
			if err := item.Value(func(val []byte) error {
				latest = decodeVersion(val)
				return nil
			}); err != nil {
				return err
			}

			indexed := uint32(0)
			idxItem, err := tx.Get(makeIndexedKey(id))
			if err == nil {
				if err := idxItem.Value(func(val []byte) error {
					indexed = decodeVersion(val)
					return nil
				}); err != nil {
					return err
				}
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}

			if indexed >= latest {
				continue
			}
			stored, err := readStoredVersion(tx, id, latest)
			if err != nil {
				return err
			}
			results = append(results, stored)
		}
		return nil
	}, false)
	return results, err
}

// Helper functions

func readLatestVersionNumber(tx *badger.Txn, id core.ID) (uint32, error) {
	item, err := tx.Get(makeLatestKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return 0, storage.ErrNotFound
		}
		return 0, err
	}
	var version uint32
	err = item.Value(func(val []byte) error {
		version = decodeVersion(val)
		return nil
	})
	return version, err
}

func readStoredVersion(tx *badger.Txn, id core.ID, version uint32) (*core.StoredVersion, error) {
	item, err := tx.Get(makeVersionKey(id, version))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	var stored *core.StoredVersion
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		stored, unmarshalErr = storage.UnmarshalStoredVersion(val)
		return unmarshalErr
	})
	return stored, err
}

// docIDFromKey extracts the document ID from a prefix:docID key. The ID
// occupies the trailing 8 bytes.
func docIDFromKey(key []byte) core.ID {
	return core.ID(binary.BigEndian.Uint64(key[len(key)-8:]))
}
