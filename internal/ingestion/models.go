// Package ingestion provides the coverage dataset domain model and the CSV ingestion pipeline.
package ingestion

import (
	"time"
)

type (
	// CoverageRecord represents one immutable vaccination-coverage observation.
	//
	// Records are owned by the ingestion batch that created them (many-to-one
	// via Filename) and are never updated in place after insertion.
	CoverageRecord struct {
		// ID is assigned by storage on insert. Zero until persisted.
		ID int64

		// Country is the reporting country (e.g. "Benin").
		Country string

		// Location is the sub-national reporting unit (district, region, city).
		Location string

		// VaccineType identifies the vaccine (e.g. "BCG", "DTP3").
		VaccineType string

		// AgeGroup is the observed cohort (e.g. "0-5 years").
		AgeGroup string

		// Gender is optional; empty when the dataset family does not report it.
		Gender string

		// CoverageRate is the observed coverage percentage in [0, 100].
		CoverageRate float64

		// ObservationDate is the calendar date the observation refers to.
		ObservationDate time.Time

		// Filename labels the batch this record arrived in. It is a label,
		// not a unique key: two batches may share a filename.
		Filename string
	}

	// Outcome represents the result of one ingestion attempt.
	Outcome string

	// IngestionBatch is the append-only ledger entry for one upload attempt.
	// Created exactly once per attempt and never mutated afterward.
	IngestionBatch struct {
		// ID is a server-generated UUID. Ledger entries are differentiated
		// by ID, never by filename.
		ID string

		Filename      string
		UploadedAt    time.Time
		RowsAttempted int
		RowsAccepted  int
		Status        Outcome
	}

	// BatchResult summarizes an ingestion attempt for the caller.
	BatchResult struct {
		BatchID       string  `json:"batch_id"`
		Filename      string  `json:"filename"`
		RowsAttempted int     `json:"rows_attempted"`
		RowsAccepted  int     `json:"rows_imported"`
		Status        Outcome `json:"status"`
	}
)

// Batch outcomes. Partial means some rows were rejected by row-level
// validation while the rest were committed; failed means nothing was written.
const (
	OutcomeSuccess Outcome = "success"
	OutcomePartial Outcome = "partial"
	OutcomeFailed  Outcome = "failed"
)

// IsValid reports whether the outcome is one of the known batch outcomes.
func (o Outcome) IsValid() bool {
	switch o {
	case OutcomeSuccess, OutcomePartial, OutcomeFailed:
		return true
	default:
		return false
	}
}

// DetermineOutcome derives a batch outcome from attempted and accepted row counts.
//
// Policy:
//   - accepted == 0 → failed (nothing committed, degenerate all-or-nothing case)
//   - accepted < attempted → partial (valid rows committed, invalid rows counted)
//   - accepted == attempted → success
func DetermineOutcome(attempted, accepted int) Outcome {
	switch {
	case accepted == 0:
		return OutcomeFailed
	case accepted < attempted:
		return OutcomePartial
	default:
		return OutcomeSuccess
	}
}
