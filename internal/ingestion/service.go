package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors for ingestion service construction and execution.
var (
	ErrNilStore  = errors.New("store cannot be nil")
	ErrNilParser = errors.New("parser cannot be nil")

	// ErrBatchStoreFailed is returned when the transactional bulk insert +
	// ledger append could not be committed. Nothing is visible in that case.
	ErrBatchStoreFailed = errors.New("batch storage failed")
)

type (
	// Store is the write interface the ingestion engine needs from storage.
	//
	// StoreBatch must treat the bulk insert of records and the ledger append
	// for the batch as a single unit: both succeed, or on storage failure
	// neither is visible.
	Store interface {
		StoreBatch(ctx context.Context, batch IngestionBatch, records []CoverageRecord) error
	}

	// Service runs the ingestion pipeline: parse, validate, bulk-load, ledger.
	Service struct {
		store  Store
		parser *Parser
		logger *slog.Logger
	}
)

// NewService creates an ingestion Service.
// Returns an error if store or parser is nil.
func NewService(store Store, parser *Parser, logger *slog.Logger) (*Service, error) {
	if store == nil {
		return nil, ErrNilStore
	}

	if parser == nil {
		return nil, ErrNilParser
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Service{store: store, parser: parser, logger: logger}, nil
}

// Ingest validates and bulk-loads one uploaded file.
//
// Row-level validation failures are recovered locally: invalid rows are
// skipped and counted, valid rows are committed, and the outcome reflects
// the split (success / partial / failed). Every attempt - including a fully
// failed one - appends exactly one ledger entry so failed uploads remain
// auditable.
//
// The returned error is non-nil only for storage failures; a failed outcome
// with a nil error means the file itself was rejected.
func (s *Service) Ingest(ctx context.Context, data []byte, filename string) (*BatchResult, error) {
	startTime := time.Now()

	batch := IngestionBatch{
		ID:         uuid.NewString(),
		Filename:   filename,
		UploadedAt: time.Now().UTC(),
	}

	parsed, parseErr := s.parser.Parse(data)
	if parseErr != nil {
		// File-level rejection: no rows attempted, ledger entry still recorded.
		batch.Status = OutcomeFailed

		if err := s.store.StoreBatch(ctx, batch, nil); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBatchStoreFailed, err)
		}

		s.logger.Warn("Upload rejected before row validation",
			slog.String("batch_id", batch.ID),
			slog.String("filename", filename),
			slog.String("reason", parseErr.Error()),
		)

		return resultFor(batch), nil
	}

	batch.RowsAttempted = parsed.RowsAttempted
	batch.RowsAccepted = len(parsed.Records)
	batch.Status = DetermineOutcome(parsed.RowsAttempted, len(parsed.Records))

	records := parsed.Records
	if batch.Status == OutcomeFailed {
		// Degenerate case: zero valid rows, nothing is written to the dataset.
		records = nil
	}

	for i := range records {
		records[i].Filename = filename
	}

	if err := s.store.StoreBatch(ctx, batch, records); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBatchStoreFailed, err)
	}

	for _, rowErr := range parsed.RowErrors {
		s.logger.Debug("Row rejected during ingestion",
			slog.String("batch_id", batch.ID),
			slog.Int("line", rowErr.Line),
			slog.String("reason", rowErr.Err.Error()),
		)
	}

	s.logger.Info("Upload processed",
		slog.String("batch_id", batch.ID),
		slog.String("filename", filename),
		slog.Int("rows_attempted", batch.RowsAttempted),
		slog.Int("rows_accepted", batch.RowsAccepted),
		slog.String("status", string(batch.Status)),
		slog.Duration("duration", time.Since(startTime)),
	)

	return resultFor(batch), nil
}

func resultFor(batch IngestionBatch) *BatchResult {
	return &BatchResult{
		BatchID:       batch.ID,
		Filename:      batch.Filename,
		RowsAttempted: batch.RowsAttempted,
		RowsAccepted:  batch.RowsAccepted,
		Status:        batch.Status,
	}
}
