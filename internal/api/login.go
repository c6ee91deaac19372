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

// LoginRequest is the payload of POST /api/v1/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleLogin handles credential verification.
// POST /api/v1/login - Verify credentials and return the operator profile
//
// Request validation (returns 4xx):
//   - 415 Unsupported Media Type: Content-Type must be application/json
//   - 400 Bad Request: Empty body or invalid JSON
//   - 401 Unauthorized: Unknown email or wrong password (indistinguishable)
//
// Success response:
//   - 200 OK: Public profile including current role, status, and scope
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	correlationID := middleware.GetCorrelationID(r.Context())

	if !hasJSONContentType(r.Header.Get("Content-Type")) {
		WriteErrorResponse(w, r, s.logger, UnsupportedMediaType("Content-Type must be application/json"))

		return
	}

	if r.ContentLength == 0 {
		WriteErrorResponse(w, r, s.logger, BadRequest("Request body cannot be empty"))

		return
	}

	var req LoginRequest

	decoder := json.NewDecoder(io.LimitReader(r.Body, maxJSONBodySize))
	if err := decoder.Decode(&req); err != nil {
		WriteErrorResponse(w, r, s.logger, BadRequest("Invalid JSON: "+err.Error()))

		return
	}

	profile, err := s.operators.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, operator.ErrInvalidCredentials) {
			WriteErrorResponse(w, r, s.logger, Unauthorized("Invalid credentials"))

			return
		}

		s.logger.Error("Login failed",
			slog.String("correlation_id", correlationID),
			slog.String("error", err.Error()),
		)
		WriteErrorResponse(w, r, s.logger, InternalServerError("Failed to verify credentials"))

		return
	}

	s.logger.Info("Operator authenticated",
		slog.String("correlation_id", correlationID),
		slog.String("operator_id", profile.ID),
	)

	s.writeJSON(w, r, http.StatusOK, profile)
}
