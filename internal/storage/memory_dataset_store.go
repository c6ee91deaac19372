package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/vaxtrack-io/vaxtrack/internal/ingestion"
	"github.com/vaxtrack-io/vaxtrack/internal/reporting"
)

// MemoryDatasetStore provides thread-safe in-memory storage for coverage
// records and the batch ledger. It mirrors DatasetStore semantics (atomic
// batch commit, scoped queries, newest-first ordering) for unit tests and
// local development without PostgreSQL.
type MemoryDatasetStore struct {
	// records holds every committed coverage record in insertion order
	records []ingestion.CoverageRecord
	// batches holds every ledger entry in append order
	batches []ingestion.IngestionBatch
	// nextID assigns record ids the way a serial column would
	nextID int64
	// mutex protects concurrent access to all fields
	mutex sync.RWMutex
}

var (
	_ ingestion.Store = (*MemoryDatasetStore)(nil)
	_ reporting.Store = (*MemoryDatasetStore)(nil)
)

// NewMemoryDatasetStore creates an empty in-memory dataset store.
func NewMemoryDatasetStore() *MemoryDatasetStore {
	return &MemoryDatasetStore{}
}

// StoreBatch commits records and the ledger entry under one lock, so a
// concurrent reader sees either both or neither.
func (s *MemoryDatasetStore) StoreBatch(
	_ context.Context,
	batch ingestion.IngestionBatch,
	records []ingestion.CoverageRecord,
) error {
	if !batch.Status.IsValid() {
		return ErrInvalidBatchStatus
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, record := range records {
		s.nextID++
		record.ID = s.nextID
		s.records = append(s.records, record)
	}

	s.batches = append(s.batches, batch)

	return nil
}

// ListRecords returns records passing the filter, newest first.
func (s *MemoryDatasetStore) ListRecords(
	_ context.Context,
	filter reporting.ScopeFilter,
) ([]ingestion.CoverageRecord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	result := make([]ingestion.CoverageRecord, 0)

	for i := len(s.records) - 1; i >= 0; i-- {
		if filter.Allows(s.records[i].Country) {
			result = append(result, s.records[i])
		}
	}

	return result, nil
}

// ListHistory returns the ledger newest first with aggregates computed under
// the filter.
func (s *MemoryDatasetStore) ListHistory(
	_ context.Context,
	filter reporting.ScopeFilter,
) ([]reporting.HistoryEntry, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	entries := make([]reporting.HistoryEntry, 0, len(s.batches))

	ordered := make([]ingestion.IngestionBatch, len(s.batches))
	copy(ordered, s.batches)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].UploadedAt.After(ordered[j].UploadedAt)
	})

	for _, batch := range ordered {
		countries := make([]string, 0)
		vaccines := make([]string, 0)
		seenCountry := make(map[string]bool)
		seenVaccine := make(map[string]bool)

		for _, record := range s.records {
			if record.Filename != batch.Filename || !filter.Allows(record.Country) {
				continue
			}

			if !seenCountry[record.Country] {
				seenCountry[record.Country] = true

				countries = append(countries, record.Country)
			}

			if !seenVaccine[record.VaccineType] {
				seenVaccine[record.VaccineType] = true

				vaccines = append(vaccines, record.VaccineType)
			}
		}

		entries = append(entries, reporting.HistoryEntry{
			BatchID:       batch.ID,
			Filename:      batch.Filename,
			UploadedAt:    batch.UploadedAt,
			RowsAttempted: batch.RowsAttempted,
			RowsAccepted:  batch.RowsAccepted,
			Status:        batch.Status,
			Countries:     strings.Join(countries, ", "),
			Vaccines:      strings.Join(vaccines, ", "),
		})
	}

	return entries, nil
}
