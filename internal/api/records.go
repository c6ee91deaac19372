package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/vaxtrack-io/vaxtrack/internal/api/middleware"
	"github.com/vaxtrack-io/vaxtrack/internal/ingestion"
	"github.com/vaxtrack-io/vaxtrack/internal/reporting"
)

type (
	// RecordView is the API representation of one coverage record.
	// Separate from the domain model (ingestion.CoverageRecord) to decouple
	// the API contract from internal domain types.
	RecordView struct {
		ID              int64   `json:"id"`
		Country         string  `json:"country"`
		Location        string  `json:"location"`
		VaccineType     string  `json:"vaccine_type"`
		AgeGroup        string  `json:"age_group"`
		Gender          string  `json:"gender,omitempty"`
		CoverageRate    float64 `json:"coverage_rate"`
		ObservationDate string  `json:"observation_date"`
		Filename        string  `json:"filename"`
	}

	// RecordsResponse wraps the scoped record list.
	RecordsResponse struct {
		Records []RecordView `json:"records"`
		Count   int          `json:"count"`
	}
)

// observationDateLayout renders observation dates as calendar dates.
const observationDateLayout = "2006-01-02"

// handleRecords returns the coverage records visible to the caller.
// GET /api/v1/records - Scoped record listing
//
// The caller identity travels in the X-Operator-Email header. An absent,
// unknown, or non-active caller is denied; there is no anonymous read path.
//
// Response codes:
//   - 200 OK: Records within the caller's scope (possibly empty)
//   - 401 Unauthorized: Caller could not be resolved to an active operator
func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	correlationID := middleware.GetCorrelationID(r.Context())
	caller := middleware.GetCaller(r.Context())

	records, err := s.reports.QueryRecords(r.Context(), caller)
	if err != nil {
		if errors.Is(err, reporting.ErrUnauthorized) {
			WriteErrorResponse(w, r, s.logger, Unauthorized("Caller is not an active operator"))

			return
		}

		s.logger.Error("Record query failed",
			slog.String("correlation_id", correlationID),
			slog.String("error", err.Error()),
		)
		WriteErrorResponse(w, r, s.logger, InternalServerError("Failed to query records"))

		return
	}

	views := make([]RecordView, 0, len(records))
	for i := range records {
		views = append(views, recordView(&records[i]))
	}

	s.writeJSON(w, r, http.StatusOK, RecordsResponse{
		Records: views,
		Count:   len(views),
	})
}

// recordView maps a domain record to its API representation.
func recordView(rec *ingestion.CoverageRecord) RecordView {
	return RecordView{
		ID:              rec.ID,
		Country:         rec.Country,
		Location:        rec.Location,
		VaccineType:     rec.VaccineType,
		AgeGroup:        rec.AgeGroup,
		Gender:          rec.Gender,
		CoverageRate:    rec.CoverageRate,
		ObservationDate: rec.ObservationDate.Format(observationDateLayout),
		Filename:        rec.Filename,
	}
}
