package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/vaxtrack-io/vaxtrack/internal/api/middleware"
	"github.com/vaxtrack-io/vaxtrack/internal/operator"
)

type (
	// ApproveOperatorRequest is the payload of POST /api/v1/admin/approve-operator.
	ApproveOperatorRequest struct {
		OperatorID string `json:"operator_id"`
		Scope      string `json:"scope"`
	}

	// RejectOperatorRequest is the payload of POST /api/v1/admin/reject-operator.
	RejectOperatorRequest struct {
		OperatorID string `json:"operator_id"`
	}

	// PendingOperatorsResponse wraps the pending operator list.
	PendingOperatorsResponse struct {
		Operators []operator.Profile `json:"operators"`
		Count     int                `json:"count"`
	}
)

// handlePendingOperators lists operators awaiting an approval decision.
// GET /api/v1/admin/pending-operators
//
// Success response:
//   - 200 OK: All provisional operators (empty list when none are waiting)
func (s *Server) handlePendingOperators(w http.ResponseWriter, r *http.Request) {
	correlationID := middleware.GetCorrelationID(r.Context())

	profiles, err := s.operators.ListPending(r.Context())
	if err != nil {
		s.logger.Error("Failed to list pending operators",
			slog.String("correlation_id", correlationID),
			slog.String("error", err.Error()),
		)
		WriteErrorResponse(w, r, s.logger, InternalServerError("Failed to list pending operators"))

		return
	}

	s.writeJSON(w, r, http.StatusOK, PendingOperatorsResponse{
		Operators: profiles,
		Count:     len(profiles),
	})
}

// handleApproveOperator transitions a provisional operator to active/admin.
// POST /api/v1/admin/approve-operator
//
// Request validation (returns 4xx):
//   - 415 Unsupported Media Type: Content-Type must be application/json
//   - 400 Bad Request: Empty body, invalid JSON, or empty scope
//   - 404 Not Found: Unknown operator id (including already-rejected ids)
//
// Success response:
//   - 200 OK: Updated profile with role=admin, status=active, final scope
func (s *Server) handleApproveOperator(w http.ResponseWriter, r *http.Request) {
	correlationID := middleware.GetCorrelationID(r.Context())

	req, problem := decodeAdminRequest[ApproveOperatorRequest](r)
	if problem != nil {
		WriteErrorResponse(w, r, s.logger, problem)

		return
	}

	profile, err := s.operators.Approve(r.Context(), req.OperatorID, req.Scope)
	if err != nil {
		switch {
		case errors.Is(err, operator.ErrEmptyScope):
			WriteErrorResponse(w, r, s.logger, BadRequest("Scope cannot be empty"))
		case errors.Is(err, operator.ErrNotFound):
			WriteErrorResponse(w, r, s.logger, NotFound("Operator not found"))
		default:
			s.logger.Error("Approval failed",
				slog.String("correlation_id", correlationID),
				slog.String("operator_id", req.OperatorID),
				slog.String("error", err.Error()),
			)
			WriteErrorResponse(w, r, s.logger, InternalServerError("Failed to approve operator"))
		}

		return
	}

	s.writeJSON(w, r, http.StatusOK, profile)
}

// handleRejectOperator permanently deletes a provisional operator.
// POST /api/v1/admin/reject-operator
//
// Request validation (returns 4xx):
//   - 415 Unsupported Media Type: Content-Type must be application/json
//   - 400 Bad Request: Empty body or invalid JSON
//   - 404 Not Found: Unknown operator id
//
// Success response:
//   - 200 OK: {"status": "rejected"} - the record is gone, the email may
//     register again
func (s *Server) handleRejectOperator(w http.ResponseWriter, r *http.Request) {
	correlationID := middleware.GetCorrelationID(r.Context())

	req, problem := decodeAdminRequest[RejectOperatorRequest](r)
	if problem != nil {
		WriteErrorResponse(w, r, s.logger, problem)

		return
	}

	if err := s.operators.Reject(r.Context(), req.OperatorID); err != nil {
		if errors.Is(err, operator.ErrNotFound) {
			WriteErrorResponse(w, r, s.logger, NotFound("Operator not found"))

			return
		}

		s.logger.Error("Rejection failed",
			slog.String("correlation_id", correlationID),
			slog.String("operator_id", req.OperatorID),
			slog.String("error", err.Error()),
		)
		WriteErrorResponse(w, r, s.logger, InternalServerError("Failed to reject operator"))

		return
	}

	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "rejected"})
}

// decodeAdminRequest parses a JSON admin request body with the shared
// content-type and size guards.
func decodeAdminRequest[T any](r *http.Request) (T, *ProblemDetail) {
	var req T

	if !hasJSONContentType(r.Header.Get("Content-Type")) {
		return req, UnsupportedMediaType("Content-Type must be application/json")
	}

	if r.ContentLength == 0 {
		return req, BadRequest("Request body cannot be empty")
	}

	decoder := json.NewDecoder(io.LimitReader(r.Body, maxJSONBodySize))
	if err := decoder.Decode(&req); err != nil {
		return req, BadRequest("Invalid JSON: " + err.Error())
	}

	return req, nil
}
