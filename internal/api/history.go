package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/vaxtrack-io/vaxtrack/internal/api/middleware"
	"github.com/vaxtrack-io/vaxtrack/internal/reporting"
)

// HistoryResponse wraps the scoped batch ledger view.
type HistoryResponse struct {
	Batches []reporting.HistoryEntry `json:"batches"`
	Count   int                      `json:"count"`
}

// handleHistory returns the ingestion batch ledger with per-batch aggregates
// recomputed under the caller's scope.
// GET /api/v1/history - Scoped upload history
//
// The caller identity travels in the X-Operator-Email header. A batch that
// spans multiple countries shows a country-scoped caller only the aggregates
// of the rows within their scope; the ledger counters (rows_attempted,
// rows_imported, status) describe the upload itself and are never rescoped.
//
// Response codes:
//   - 200 OK: Ledger entries, newest first (possibly empty)
//   - 401 Unauthorized: Caller could not be resolved to an active operator
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	correlationID := middleware.GetCorrelationID(r.Context())
	caller := middleware.GetCaller(r.Context())

	entries, err := s.reports.QueryHistory(r.Context(), caller)
	if err != nil {
		if errors.Is(err, reporting.ErrUnauthorized) {
			WriteErrorResponse(w, r, s.logger, Unauthorized("Caller is not an active operator"))

			return
		}

		s.logger.Error("History query failed",
			slog.String("correlation_id", correlationID),
			slog.String("error", err.Error()),
		)
		WriteErrorResponse(w, r, s.logger, InternalServerError("Failed to query history"))

		return
	}

	if entries == nil {
		entries = []reporting.HistoryEntry{}
	}

	s.writeJSON(w, r, http.StatusOK, HistoryResponse{
		Batches: entries,
		Count:   len(entries),
	})
}
