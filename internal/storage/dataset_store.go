package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/vaxtrack-io/vaxtrack/internal/ingestion"
	"github.com/vaxtrack-io/vaxtrack/internal/reporting"
)

// Sentinel errors for coverage dataset storage operations.
var (
	// ErrDatasetStoreFailed is returned when a dataset storage operation fails.
	ErrDatasetStoreFailed = errors.New("dataset storage failed")

	// ErrInvalidBatchStatus is returned when a batch carries an unknown outcome.
	ErrInvalidBatchStatus = errors.New("invalid batch status")

	// Compile-time interface assertions so interface drift is a compile error.

	// DatasetStore implements ingestion.Store (transactional batch writes).
	_ ingestion.Store = (*DatasetStore)(nil)

	// DatasetStore implements reporting.Store (scoped read queries).
	_ reporting.Store = (*DatasetStore)(nil)
)

// DatasetStore persists coverage records and the ingestion batch ledger in
// PostgreSQL.
type DatasetStore struct {
	conn   *Connection
	logger *slog.Logger
}

// NewDatasetStore creates a PostgreSQL-backed dataset store.
// Returns ErrNoDatabaseConnection if conn is nil.
func NewDatasetStore(conn *Connection, logger *slog.Logger) (*DatasetStore, error) {
	if conn == nil {
		return nil, ErrNoDatabaseConnection
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &DatasetStore{conn: conn, logger: logger}, nil
}

// StoreBatch commits the accepted records and the ledger entry for one
// ingestion attempt in a single transaction.
//
// The bulk insert uses COPY (pq.CopyIn); the ledger append rides the same
// transaction, so on storage failure neither the records nor the ledger
// entry become visible. Filename is deliberately not unique: two batches may
// share one, and ledger entries are differentiated by id.
func (s *DatasetStore) StoreBatch(
	ctx context.Context,
	batch ingestion.IngestionBatch,
	records []ingestion.CoverageRecord,
) error {
	startTime := time.Now()

	if !batch.Status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidBatchStatus, batch.Status)
	}

	tx, err := s.conn.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %w", ErrDatasetStoreFailed, err)
	}

	defer func() {
		_ = tx.Rollback() // no-op after commit
	}()

	if len(records) > 0 {
		if err := bulkInsertRecords(ctx, tx, records); err != nil {
			return fmt.Errorf("%w: %w", ErrDatasetStoreFailed, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ingestion_batches (id, filename, uploaded_at, rows_attempted, rows_accepted, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, batch.ID, batch.Filename, batch.UploadedAt, batch.RowsAttempted, batch.RowsAccepted, string(batch.Status))
	if err != nil {
		return fmt.Errorf("%w: ledger append: %w", ErrDatasetStoreFailed, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrDatasetStoreFailed, err)
	}

	s.logger.Info("Batch stored",
		slog.String("batch_id", batch.ID),
		slog.String("filename", batch.Filename),
		slog.Int("rows_accepted", batch.RowsAccepted),
		slog.String("status", string(batch.Status)),
		slog.Duration("duration", time.Since(startTime)),
	)

	return nil
}

// bulkInsertRecords streams records into coverage_records via COPY.
func bulkInsertRecords(ctx context.Context, tx *sql.Tx, records []ingestion.CoverageRecord) error {
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("coverage_records",
		"country", "location", "vaccine_type", "age_group", "gender",
		"coverage_rate", "observation_date", "filename",
	))
	if err != nil {
		return fmt.Errorf("prepare bulk insert: %w", err)
	}

	for _, record := range records {
		_, err = stmt.ExecContext(ctx,
			record.Country,
			record.Location,
			record.VaccineType,
			record.AgeGroup,
			nullableString(record.Gender),
			record.CoverageRate,
			record.ObservationDate,
			record.Filename,
		)
		if err != nil {
			_ = stmt.Close()

			return fmt.Errorf("bulk insert row: %w", err)
		}
	}

	// Flush the COPY buffer.
	if _, err = stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()

		return fmt.Errorf("flush bulk insert: %w", err)
	}

	return stmt.Close()
}

// ListRecords returns coverage records visible under the filter, newest first.
func (s *DatasetStore) ListRecords(
	ctx context.Context,
	filter reporting.ScopeFilter,
) ([]ingestion.CoverageRecord, error) {
	query := `
		SELECT id, country, location, vaccine_type, age_group,
		       COALESCE(gender, ''), coverage_rate, observation_date, filename
		FROM coverage_records
		WHERE ($1 = '' OR country = $1)
		ORDER BY id DESC
	`

	rows, err := s.conn.DB.QueryContext(ctx, query, filter.Country)
	if err != nil {
		return nil, fmt.Errorf("%w: list records: %w", ErrDatasetStoreFailed, err)
	}

	defer func() {
		_ = rows.Close()
	}()

	records := make([]ingestion.CoverageRecord, 0)

	for rows.Next() {
		var record ingestion.CoverageRecord

		err := rows.Scan(
			&record.ID,
			&record.Country,
			&record.Location,
			&record.VaccineType,
			&record.AgeGroup,
			&record.Gender,
			&record.CoverageRate,
			&record.ObservationDate,
			&record.Filename,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: scan record: %w", ErrDatasetStoreFailed, err)
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate records: %w", ErrDatasetStoreFailed, err)
	}

	return records, nil
}

// ListHistory returns the batch ledger newest first, with the distinct
// country and vaccine aggregates computed from the coverage records sharing
// each batch's filename - restricted to the filter's country when scoped.
//
// Read-only: never mutates batches or records. An empty dataset yields
// entries with empty aggregates, not an error.
func (s *DatasetStore) ListHistory(
	ctx context.Context,
	filter reporting.ScopeFilter,
) ([]reporting.HistoryEntry, error) {
	query := `
		SELECT b.id, b.filename, b.uploaded_at, b.rows_attempted, b.rows_accepted, b.status,
		       COALESCE((
		           SELECT string_agg(DISTINCT r.country, ', ')
		           FROM coverage_records r
		           WHERE r.filename = b.filename AND ($1 = '' OR r.country = $1)
		       ), ''),
		       COALESCE((
		           SELECT string_agg(DISTINCT r.vaccine_type, ', ')
		           FROM coverage_records r
		           WHERE r.filename = b.filename AND ($1 = '' OR r.country = $1)
		       ), '')
		FROM ingestion_batches b
		ORDER BY b.uploaded_at DESC, b.id
	`

	rows, err := s.conn.DB.QueryContext(ctx, query, filter.Country)
	if err != nil {
		return nil, fmt.Errorf("%w: list history: %w", ErrDatasetStoreFailed, err)
	}

	defer func() {
		_ = rows.Close()
	}()

	entries := make([]reporting.HistoryEntry, 0)

	for rows.Next() {
		var (
			entry  reporting.HistoryEntry
			status string
		)

		err := rows.Scan(
			&entry.BatchID,
			&entry.Filename,
			&entry.UploadedAt,
			&entry.RowsAttempted,
			&entry.RowsAccepted,
			&status,
			&entry.Countries,
			&entry.Vaccines,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: scan history entry: %w", ErrDatasetStoreFailed, err)
		}

		entry.Status = ingestion.Outcome(status)
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate history: %w", ErrDatasetStoreFailed, err)
	}

	return entries, nil
}

// nullableString converts an empty string to NULL for optional columns.
func nullableString(value string) interface{} {
	if value == "" {
		return nil
	}

	return value
}
