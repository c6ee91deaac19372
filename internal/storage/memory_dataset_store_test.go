package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaxtrack-io/vaxtrack/internal/ingestion"
	"github.com/vaxtrack-io/vaxtrack/internal/reporting"
	"github.com/vaxtrack-io/vaxtrack/internal/storage"
)

func coverageRecord(country, vaccine, filename string) ingestion.CoverageRecord {
	return ingestion.CoverageRecord{
		Country:         country,
		Location:        "Central District",
		VaccineType:     vaccine,
		AgeGroup:        "0-5 years",
		CoverageRate:    81.5,
		ObservationDate: time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
		Filename:        filename,
	}
}

func ledgerEntry(filename string, attempted, accepted int, uploadedAt time.Time) ingestion.IngestionBatch {
	status := ingestion.OutcomeSuccess
	if accepted == 0 {
		status = ingestion.OutcomeFailed
	} else if accepted < attempted {
		status = ingestion.OutcomePartial
	}

	return ingestion.IngestionBatch{
		ID:            uuid.New().String(),
		Filename:      filename,
		UploadedAt:    uploadedAt,
		RowsAttempted: attempted,
		RowsAccepted:  accepted,
		Status:        status,
	}
}

func TestMemoryDatasetStore_StoreBatch_CommitsRecordsAndLedger(t *testing.T) {
	store := storage.NewMemoryDatasetStore()
	ctx := context.Background()

	batch := ledgerEntry("benin_2023.csv", 2, 2, time.Now())
	records := []ingestion.CoverageRecord{
		coverageRecord("Benin", "BCG", "benin_2023.csv"),
		coverageRecord("Benin", "DTP3", "benin_2023.csv"),
	}

	require.NoError(t, store.StoreBatch(ctx, batch, records))

	got, err := store.ListRecords(ctx, reporting.ScopeFilter{})
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Newest first: the second inserted record comes back first.
	assert.Equal(t, "DTP3", got[0].VaccineType)
	assert.Equal(t, "BCG", got[1].VaccineType)
	assert.Equal(t, int64(2), got[0].ID)
	assert.Equal(t, int64(1), got[1].ID)

	history, err := store.ListHistory(ctx, reporting.ScopeFilter{})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, batch.ID, history[0].BatchID)
}

func TestMemoryDatasetStore_StoreBatch_RejectsUnknownStatus(t *testing.T) {
	store := storage.NewMemoryDatasetStore()

	batch := ledgerEntry("bad.csv", 1, 1, time.Now())
	batch.Status = ingestion.Outcome("bogus")

	err := store.StoreBatch(context.Background(), batch, nil)
	require.ErrorIs(t, err, storage.ErrInvalidBatchStatus)
}

func TestMemoryDatasetStore_StoreBatch_FailedBatchIsLedgeredWithoutRecords(t *testing.T) {
	store := storage.NewMemoryDatasetStore()
	ctx := context.Background()

	batch := ledgerEntry("garbage.csv", 3, 0, time.Now())
	require.NoError(t, store.StoreBatch(ctx, batch, nil))

	records, err := store.ListRecords(ctx, reporting.ScopeFilter{})
	require.NoError(t, err)
	assert.Empty(t, records)

	history, err := store.ListHistory(ctx, reporting.ScopeFilter{})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, ingestion.OutcomeFailed, history[0].Status)
	assert.Equal(t, 3, history[0].RowsAttempted)
	assert.Equal(t, 0, history[0].RowsAccepted)
	assert.Empty(t, history[0].Countries)
	assert.Empty(t, history[0].Vaccines)
}

func TestMemoryDatasetStore_ListRecords_FilterByCountry(t *testing.T) {
	store := storage.NewMemoryDatasetStore()
	ctx := context.Background()

	batch := ledgerEntry("mixed.csv", 3, 3, time.Now())
	require.NoError(t, store.StoreBatch(ctx, batch, []ingestion.CoverageRecord{
		coverageRecord("Benin", "BCG", "mixed.csv"),
		coverageRecord("Togo", "BCG", "mixed.csv"),
		coverageRecord("Benin", "DTP3", "mixed.csv"),
	}))

	got, err := store.ListRecords(ctx, reporting.ScopeFilter{Country: "Benin"})
	require.NoError(t, err)
	require.Len(t, got, 2)

	for _, record := range got {
		assert.Equal(t, "Benin", record.Country)
	}
}

func TestMemoryDatasetStore_ListHistory_NewestFirstWithAggregates(t *testing.T) {
	store := storage.NewMemoryDatasetStore()
	ctx := context.Background()

	older := ledgerEntry("first.csv", 2, 2, time.Now().Add(-time.Hour))
	require.NoError(t, store.StoreBatch(ctx, older, []ingestion.CoverageRecord{
		coverageRecord("Benin", "BCG", "first.csv"),
		coverageRecord("Benin", "BCG", "first.csv"),
	}))

	newer := ledgerEntry("second.csv", 2, 2, time.Now())
	require.NoError(t, store.StoreBatch(ctx, newer, []ingestion.CoverageRecord{
		coverageRecord("Benin", "BCG", "second.csv"),
		coverageRecord("Togo", "DTP3", "second.csv"),
	}))

	history, err := store.ListHistory(ctx, reporting.ScopeFilter{})
	require.NoError(t, err)
	require.Len(t, history, 2)

	assert.Equal(t, newer.ID, history[0].BatchID)
	assert.Equal(t, older.ID, history[1].BatchID)

	assert.Equal(t, "Benin, Togo", history[0].Countries)
	assert.Equal(t, "BCG, DTP3", history[0].Vaccines)

	// Duplicate countries and vaccines collapse in the aggregate.
	assert.Equal(t, "Benin", history[1].Countries)
	assert.Equal(t, "BCG", history[1].Vaccines)
}

func TestMemoryDatasetStore_ListHistory_ScopedAggregatesKeepLedgerCounters(t *testing.T) {
	store := storage.NewMemoryDatasetStore()
	ctx := context.Background()

	batch := ledgerEntry("regional.csv", 3, 3, time.Now())
	require.NoError(t, store.StoreBatch(ctx, batch, []ingestion.CoverageRecord{
		coverageRecord("Benin", "BCG", "regional.csv"),
		coverageRecord("Togo", "DTP3", "regional.csv"),
		coverageRecord("Benin", "DTP3", "regional.csv"),
	}))

	history, err := store.ListHistory(ctx, reporting.ScopeFilter{Country: "Benin"})
	require.NoError(t, err)
	require.Len(t, history, 1)

	// Aggregates shrink to the visible slice; the ledger counters do not.
	assert.Equal(t, "Benin", history[0].Countries)
	assert.Equal(t, "BCG, DTP3", history[0].Vaccines)
	assert.Equal(t, 3, history[0].RowsAttempted)
	assert.Equal(t, 3, history[0].RowsAccepted)
}

func TestMemoryDatasetStore_ReuploadedFilenameProducesSeparateEntries(t *testing.T) {
	store := storage.NewMemoryDatasetStore()
	ctx := context.Background()

	first := ledgerEntry("weekly.csv", 1, 1, time.Now().Add(-time.Minute))
	second := ledgerEntry("weekly.csv", 1, 1, time.Now())

	require.NoError(t, store.StoreBatch(ctx, first, []ingestion.CoverageRecord{
		coverageRecord("Benin", "BCG", "weekly.csv"),
	}))
	require.NoError(t, store.StoreBatch(ctx, second, []ingestion.CoverageRecord{
		coverageRecord("Benin", "BCG", "weekly.csv"),
	}))

	history, err := store.ListHistory(ctx, reporting.ScopeFilter{})
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.NotEqual(t, history[0].BatchID, history[1].BatchID)
}
