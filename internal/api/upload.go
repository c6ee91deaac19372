package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vaxtrack-io/vaxtrack/internal/api/middleware"
	"github.com/vaxtrack-io/vaxtrack/internal/ingestion"
)

// handleUpload handles coverage dataset uploads.
// POST /api/v1/upload - Ingest one CSV file as a single batch
//
// The file travels as the multipart form field "file". The filename is
// recorded as a batch label exactly as sent; it is never used as a key and
// re-uploading the same name creates a new batch.
//
// Request validation (returns 4xx):
//   - 400 Bad Request: Not multipart, or no "file" part attached
//   - 413 Payload Too Large: File exceeds MaxUploadSize
//
// Success response:
//   - 200 OK: Batch result {batch_id, filename, rows_attempted,
//     rows_imported, status} - returned for success, partial, and failed
//     outcomes alike; a failed parse is an answered request, not an HTTP
//     error
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	correlationID := middleware.GetCorrelationID(r.Context())

	if r.ContentLength > 0 && r.ContentLength > s.config.MaxUploadSize {
		WriteErrorResponse(w, r, s.logger, PayloadTooLarge(
			fmt.Sprintf("Upload exceeds maximum size of %d bytes", s.config.MaxUploadSize),
		))

		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadSize)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			WriteErrorResponse(w, r, s.logger, PayloadTooLarge(
				fmt.Sprintf("Upload exceeds maximum size of %d bytes", s.config.MaxUploadSize),
			))

			return
		}

		WriteErrorResponse(w, r, s.logger, BadRequest("No file attached: expected multipart form field \"file\""))

		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.logger.Error("Failed to read uploaded file",
			slog.String("correlation_id", correlationID),
			slog.String("filename", header.Filename),
			slog.String("error", err.Error()),
		)
		WriteErrorResponse(w, r, s.logger, InternalServerError("Failed to read uploaded file"))

		return
	}

	result, err := s.ingestor.Ingest(r.Context(), data, header.Filename)
	if err != nil {
		if errors.Is(err, ingestion.ErrBatchStoreFailed) {
			s.logger.Error("Batch storage failed",
				slog.String("correlation_id", correlationID),
				slog.String("filename", header.Filename),
				slog.String("error", err.Error()),
			)
			WriteErrorResponse(w, r, s.logger, InternalServerError("Failed to store batch"))

			return
		}

		s.logger.Error("Ingestion failed",
			slog.String("correlation_id", correlationID),
			slog.String("filename", header.Filename),
			slog.String("error", err.Error()),
		)
		WriteErrorResponse(w, r, s.logger, InternalServerError("Failed to process upload"))

		return
	}

	s.writeJSON(w, r, http.StatusOK, result)
}
