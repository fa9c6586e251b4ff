package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is derived from document content or source identity via hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// Identical content always produces identical IDs, so reprocessing the same
// source document maps to the same document identity across runs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// DocumentType classifies the kind of source document.
type DocumentType string

const (
	// DocumentTypeSampleBill is a utility bill with usage history.
	DocumentTypeSampleBill DocumentType = "sampleBill"
	// DocumentTypeContract is a service contract.
	DocumentTypeContract DocumentType = "contract"
)

// UsagePeriod is one entry of a usage history: a labeled period with a
// numeric usage value and an optional unit.
type UsagePeriod struct {
	PeriodLabel string
	UsageValue  float64
	Unit        string
}

// ChargeLine is a single billed line item. Rate is nil when the source
// document does not state a per-unit rate.
type ChargeLine struct {
	Label  string
	Amount float64
	Rate   *float64
}

// ServiceLocation is a service point nested under a document. All scalar
// fields are optional; the empty string means the extractor found nothing.
type ServiceLocation struct {
	AccountNumber  string
	ServiceAddress string
	MeterNumber    string
	UsageHistory   []UsagePeriod
	Charges        []ChargeLine
}

// HasIdentity reports whether the location carries at least one identifying
// field. A location without any is itself a quality-control signal.
func (l *ServiceLocation) HasIdentity() bool {
	return l.AccountNumber != "" || l.ServiceAddress != ""
}

// DocumentRecord is the canonical structured representation of one physical
// document, produced by validating an upstream extraction candidate.
//
// All scalar fields except SourceID may be empty; absence is meaningful and
// drives quality control. The document-level UsageHistory is a fallback used
// when no location-level usage data exists.
type DocumentRecord struct {
	DocumentID    ID
	SourceID      string // stable identifier from the source file, e.g. its stem
	Issuer        string
	CustomerName  string
	DocumentType  DocumentType
	StatementDate string
	TotalUsage    float64
	Unit          string
	Locations     []ServiceLocation
	UsageHistory  []UsagePeriod
	Extra         string // unrecognized candidate fields, preserved as JSON
}

// UsagePeriods returns every usage period on the record, document-level
// first, then per location in order. The returned order is deterministic.
func (r *DocumentRecord) UsagePeriods() []UsagePeriod {
	periods := make([]UsagePeriod, 0, len(r.UsageHistory))
	periods = append(periods, r.UsageHistory...)
	for _, loc := range r.Locations {
		periods = append(periods, loc.UsageHistory...)
	}
	return periods
}

// QCDecision is the quality-control outcome attached to a stored version.
// It is derived by the qc package and never supplied by the upstream
// extractor. Reason is empty when Flag is false.
type QCDecision struct {
	Flag   bool
	Reason string
}

// StoredVersion is one immutable version of a document record. Reprocessing
// a document appends a new version with the next number; prior versions are
// never overwritten.
type StoredVersion struct {
	DocumentID ID
	Version    uint32
	Record     DocumentRecord
	Decision   QCDecision
	StoredAt   time.Time
}

// IndexChunk is a retrieval unit derived from a stored version. Chunks are
// owned exclusively by the knowledge-base index and are replaced wholesale
// whenever their document is reprocessed.
type IndexChunk struct {
	ChunkID         ID
	DocumentID      ID
	SourceFieldPath string
	Text            string
	Vector          []float32
	CreatedVersion  uint32
}

// ChunkIDFor derives the deterministic chunk ID for a field path within a
// document version.
func ChunkIDFor(docID ID, version uint32, sourceFieldPath string) ID {
	buf := make([]byte, 12, 12+len(sourceFieldPath))
	binary.LittleEndian.PutUint64(buf, uint64(docID))
	binary.LittleEndian.PutUint32(buf[8:], version)
	buf = append(buf, sourceFieldPath...)
	h, _ := blake2b.New(8, nil)
	h.Write(buf)
	return ID(binary.LittleEndian.Uint64(h.Sum(nil)))
}

// ChunkMatch is an index hit: a chunk with its similarity score.
type ChunkMatch struct {
	Chunk *IndexChunk
	Score float32
}
