package badger

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/utilidoc/core"
	"github.com/poiesic/utilidoc/storage"
)

func testRecord(sourceID string) *core.DocumentRecord {
	return &core.DocumentRecord{
		DocumentID:   core.IDFromContent(sourceID),
		SourceID:     sourceID,
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
}

func TestRecordStoreVersioning(t *testing.T) {
	records, chunks, backend, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer func() { chunks.Close(); records.Close(); backend.Close() }()

	ctx := context.Background()
	record := testRecord("bill-001")

	v1, err := records.Put(ctx, record, core.QCDecision{})
	if err != nil {
		t.Fatalf("Failed to put record: %v", err)
	}
	if v1.Version != 1 {
		t.Fatalf("Expected version 1, got %d", v1.Version)
	}

	v2, err := records.Put(ctx, record, core.QCDecision{})
	if err != nil {
		t.Fatalf("Failed to put second version: %v", err)
	}
	if v2.Version != 2 {
		t.Fatalf("Expected version 2, got %d", v2.Version)
	}

	// Latest resolves to version 2
	latest, err := records.GetLatest(ctx, record.DocumentID)
	if err != nil {
		t.Fatalf("Failed to get latest: %v", err)
	}
	if latest.Version != 2 {
		t.Fatalf("Expected latest version 2, got %d", latest.Version)
	}
	if latest.Record.Issuer != "City Power & Light" {
		t.Fatalf("Record contents lost on round trip: %q", latest.Record.Issuer)
	}

	// Version 1 stays retrievable, never overwritten
	first, err := records.GetVersion(ctx, record.DocumentID, 1)
	if err != nil {
		t.Fatalf("Failed to get version 1: %v", err)
	}
	if first.Version != 1 {
		t.Fatalf("Expected version 1, got %d", first.Version)
	}
}

func TestRecordStoreNotFound(t *testing.T) {
	records, chunks, backend, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer func() { chunks.Close(); records.Close(); backend.Close() }()

	ctx := context.Background()

	_, err = records.GetLatest(ctx, core.IDFromContent("never-stored"))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}

	_, err = records.GetVersion(ctx, core.IDFromContent("never-stored"), 1)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestListFlaggedTracksLatestOnly(t *testing.T) {
	records, chunks, backend, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer func() { chunks.Close(); records.Close(); backend.Close() }()

	ctx := context.Background()
	record := testRecord("bill-002")

	// Version 1 flagged
	_, err = records.Put(ctx, record, core.QCDecision{Flag: true, Reason: "all usage values zero"})
	if err != nil {
		t.Fatalf("Failed to put flagged version: %v", err)
	}

	flagged, err := records.ListFlagged(ctx)
	if err != nil {
		t.Fatalf("Failed to list flagged: %v", err)
	}
	if len(flagged) != 1 {
		t.Fatalf("Expected 1 flagged document, got %d", len(flagged))
	}
	if flagged[0].Decision.Reason != "all usage values zero" {
		t.Fatalf("Wrong reason: %q", flagged[0].Decision.Reason)
	}

	// Version 2 passes QC; document leaves the review queue
	_, err = records.Put(ctx, record, core.QCDecision{})
	if err != nil {
		t.Fatalf("Failed to put corrected version: %v", err)
	}

	flagged, err = records.ListFlagged(ctx)
	if err != nil {
		t.Fatalf("Failed to list flagged: %v", err)
	}
	if len(flagged) != 0 {
		t.Fatalf("Expected no flagged documents after correction, got %d", len(flagged))
	}
}

func TestMarkIndexedAndListUnindexed(t *testing.T) {
	records, chunks, backend, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer func() { chunks.Close(); records.Close(); backend.Close() }()

	ctx := context.Background()
	recordA := testRecord("bill-010")
	recordB := testRecord("bill-011")

	vA, err := records.Put(ctx, recordA, core.QCDecision{})
	if err != nil {
		t.Fatalf("Failed to put record A: %v", err)
	}
	if _, err := records.Put(ctx, recordB, core.QCDecision{}); err != nil {
		t.Fatalf("Failed to put record B: %v", err)
	}

	unindexed, err := records.ListUnindexed(ctx)
	if err != nil {
		t.Fatalf("Failed to list unindexed: %v", err)
	}
	if len(unindexed) != 2 {
		t.Fatalf("Expected 2 unindexed documents, got %d", len(unindexed))
	}

	if err := records.MarkIndexed(ctx, recordA.DocumentID, vA.Version); err != nil {
		t.Fatalf("Failed to mark indexed: %v", err)
	}

	unindexed, err = records.ListUnindexed(ctx)
	if err != nil {
		t.Fatalf("Failed to list unindexed: %v", err)
	}
	if len(unindexed) != 1 {
		t.Fatalf("Expected 1 unindexed document, got %d", len(unindexed))
	}
	if unindexed[0].DocumentID != recordB.DocumentID {
		t.Fatalf("Wrong document left unindexed")
	}

	// A new version re-enters the unindexed set until marked again
	if _, err := records.Put(ctx, recordA, core.QCDecision{}); err != nil {
		t.Fatalf("Failed to put new version of A: %v", err)
	}
	unindexed, err = records.ListUnindexed(ctx)
	if err != nil {
		t.Fatalf("Failed to list unindexed: %v", err)
	}
	if len(unindexed) != 2 {
		t.Fatalf("Expected 2 unindexed documents after reprocessing, got %d", len(unindexed))
	}
}

func TestRecordStorePersistence(t *testing.T) {
	dir := t.TempDir()

	backend, err := OpenBackend(dir, false)
	if err != nil {
		t.Fatalf("Failed to open backend: %v", err)
	}
	records, err := NewRecordStore(backend)
	if err != nil {
		t.Fatalf("Failed to create record store: %v", err)
	}

	ctx := context.Background()
	record := testRecord("bill-durable")
	if _, err := records.Put(ctx, record, core.QCDecision{}); err != nil {
		t.Fatalf("Failed to put record: %v", err)
	}

	records.Close()
	if err := backend.Close(); err != nil {
		t.Fatalf("Failed to close backend: %v", err)
	}

	// Reopen and read back
	backend, err = OpenBackend(dir, false)
	if err != nil {
		t.Fatalf("Failed to reopen backend: %v", err)
	}
	defer backend.Close()
	records, err = NewRecordStore(backend)
	if err != nil {
		t.Fatalf("Failed to recreate record store: %v", err)
	}
	defer records.Close()

	latest, err := records.GetLatest(ctx, record.DocumentID)
	if err != nil {
		t.Fatalf("Failed to get latest after reopen: %v", err)
	}
	if latest.Record.SourceID != "bill-durable" {
		t.Fatalf("Wrong record after reopen: %q", latest.Record.SourceID)
	}
}
