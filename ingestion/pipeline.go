package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/utilidoc/ai"
	"github.com/poiesic/utilidoc/core"
	"github.com/poiesic/utilidoc/kb"
	"github.com/poiesic/utilidoc/qc"
	"github.com/poiesic/utilidoc/storage"
)

// Pipeline orchestrates document processing: schema validation, quality
// control, versioned storage, and knowledge-base indexing. Each document
// runs an independent state machine; batch processing fans documents out
// over a worker pool and collects per-document results.
type Pipeline struct {
	records   storage.RecordStore
	index     *kb.Index
	extractor ai.FieldExtractor
	pool      *ants.Pool

	// docLocks serializes reprocessing per document ID, so at most one
	// in-flight upsert exists per document. Entries are refcounted and
	// removed once idle, so the table stays bounded by the number of
	// in-flight documents rather than every ID ever seen.
	locksMu  sync.Mutex
	docLocks map[core.ID]*docLock

	retryAttempts  int
	retryBaseDelay time.Duration
	logger         *slog.Logger
}

// Result is the terminal outcome of one document's pipeline run.
type Result struct {
	SourceID   string
	DocumentID core.ID
	State      State
	Version    uint32
	Decision   core.QCDecision
	Err        error
}

// BatchReport aggregates per-document results of one batch run.
type BatchReport struct {
	RunID   string
	Results []*Result
}

// Failed returns the results that ended in an error.
func (r *BatchReport) Failed() []*Result {
	var failed []*Result
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// Flagged returns the results whose stored version carries a QC flag.
func (r *BatchReport) Flagged() []*Result {
	var flagged []*Result
	for _, res := range r.Results {
		if res.Err == nil && res.Decision.Flag {
			flagged = append(flagged, res)
		}
	}
	return flagged
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for batch processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithRetryPolicy sets the attempt count and base delay for retrying
// transient embedding failures during indexing.
// Default is 3 attempts with a 500ms base delay.
func WithRetryPolicy(maxAttempts int, baseDelay time.Duration) Option {
	return func(p *Pipeline) error {
		if maxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		p.retryAttempts = maxAttempts
		p.retryBaseDelay = baseDelay
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new document processing pipeline.
func NewPipeline(
	records storage.RecordStore,
	index *kb.Index,
	provider ai.Provider,
	opts ...Option,
) (*Pipeline, error) {
	if records == nil {
		return nil, ErrRecordStoreRequired
	}
	if index == nil {
		return nil, ErrIndexRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		records:        records,
		index:          index,
		extractor:      provider.FieldExtractor(),
		pool:           pool,
		docLocks:       make(map[core.ID]*docLock),
		retryAttempts:  3,
		retryBaseDelay: 500 * time.Millisecond,
		logger:         slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// Process runs one candidate document through the full state machine.
//
// Schema failure ends in StateRejected with the schema error recorded.
// Embedding failure after retries ends in StateStored; the stored version
// is recovered by the next Reindex run. The returned Result always
// reflects the document's final observable state, so no document is lost
// silently.
func (p *Pipeline) Process(ctx context.Context, candidateJSON []byte) *Result {
	result := &Result{State: StateReceived}

	record, err := core.ValidateCandidate(candidateJSON)
	if err != nil {
		p.logger.Warn("candidate rejected", "err", err)
		result.State = StateRejected
		result.Err = err
		return result
	}
	result.SourceID = record.SourceID
	result.DocumentID = record.DocumentID
	result.State = StateValidated

	decision := qc.Evaluate(record)
	result.Decision = decision
	result.State = StateQCChecked
	if decision.Flag {
		p.logger.Info("document flagged for review",
			"sourceId", record.SourceID,
			"reason", decision.Reason)
	}

	// Serialize storage and indexing per document so concurrent
	// reprocessing of the same document cannot interleave.
	unlock := p.lockDocument(record.DocumentID)
	defer unlock()

	version, err := p.records.Put(ctx, record, decision)
	if err != nil {
		p.logger.Error("error storing document version",
			"sourceId", record.SourceID, "err", err)
		result.Err = err
		return result
	}
	result.Version = version.Version
	result.State = StateStored

	err = RetryWithBackoff(ctx, func() error {
		return p.index.Upsert(ctx, record.DocumentID)
	}, p.retryAttempts, p.retryBaseDelay)
	if err != nil {
		// Left in StateStored; Reindex picks it up on the next run.
		p.logger.Error("error indexing document, will be retried by reindex",
			"sourceId", record.SourceID,
			"version", version.Version,
			"err", err)
		result.Err = err
		return result
	}
	result.State = StateIndexed

	p.logger.Debug("document processed",
		"sourceId", record.SourceID,
		"documentId", record.DocumentID,
		"version", version.Version,
		"flagged", decision.Flag)
	return result
}

// ProcessExtracted extracts structured fields from generic parsed JSON via
// the language model, then runs the candidate through Process. Used when
// the input is raw parser output rather than a pre-extracted candidate.
func (p *Pipeline) ProcessExtracted(ctx context.Context, genericJSON []byte, sourceID string) *Result {
	candidate, err := p.extractor.ExtractFields(ctx, genericJSON, sourceID)
	if err != nil {
		p.logger.Error("field extraction failed", "sourceId", sourceID, "err", err)
		return &Result{
			SourceID: sourceID,
			State:    StateReceived,
			Err:      err,
		}
	}
	return p.Process(ctx, candidate)
}

// ProcessBatch runs a batch of candidate documents concurrently over the
// worker pool. Each document's pipeline is independent; one document's
// failure never aborts its siblings. Results are collected per document
// and returned in submission order under a fresh run ID.
func (p *Pipeline) ProcessBatch(ctx context.Context, candidates [][]byte) *BatchReport {
	report := &BatchReport{
		RunID:   uuid.NewString(),
		Results: make([]*Result, len(candidates)),
	}

	var wg sync.WaitGroup
	for i, candidate := range candidates {
		wg.Add(1)
		i, candidate := i, candidate
		err := p.pool.Submit(func() {
			defer wg.Done()
			report.Results[i] = p.Process(ctx, candidate)
		})
		if err != nil {
			// Pool rejected the task (released or overloaded); record
			// the failure in place so the slot is never nil.
			report.Results[i] = &Result{State: StateReceived, Err: err}
			wg.Done()
		}
	}
	wg.Wait()

	p.logger.Info("batch processed",
		"runId", report.RunID,
		"documents", len(candidates),
		"failed", len(report.Failed()),
		"flagged", len(report.Flagged()))
	return report
}

// Reindex indexes every document whose latest stored version has not been
// marked indexed. This recovers documents left in StateStored by earlier
// embedding failures. Returns the number of documents indexed and the
// first error encountered per document, collected without aborting.
func (p *Pipeline) Reindex(ctx context.Context) (int, []error) {
	unindexed, err := p.records.ListUnindexed(ctx)
	if err != nil {
		return 0, []error{err}
	}

	indexed := 0
	var errs []error
	for _, version := range unindexed {
		unlock := p.lockDocument(version.DocumentID)
		err := RetryWithBackoff(ctx, func() error {
			return p.index.Upsert(ctx, version.DocumentID)
		}, p.retryAttempts, p.retryBaseDelay)
		unlock()

		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				errs = append(errs, err)
				break
			}
			p.logger.Error("error reindexing document",
				"documentId", version.DocumentID, "err", err)
			errs = append(errs, err)
			continue
		}
		indexed++
	}

	p.logger.Info("reindex complete", "indexed", indexed, "failed", len(errs))
	return indexed, errs
}

// docLock is one document's mutex plus the number of goroutines holding or
// waiting on it.
type docLock struct {
	mu   sync.Mutex
	refs int
}

// lockDocument acquires the per-document mutex and returns its unlock
// function. The lock entry is dropped from the table when the last holder
// releases it.
func (p *Pipeline) lockDocument(id core.ID) func() {
	p.locksMu.Lock()
	l := p.docLocks[id]
	if l == nil {
		l = &docLock{}
		p.docLocks[id] = l
	}
	l.refs++
	p.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		p.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.docLocks, id)
		}
		p.locksMu.Unlock()
	}
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
