package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vaxtrack-io/vaxtrack/internal/api/middleware"
	"github.com/vaxtrack-io/vaxtrack/internal/operator"
)

// maxJSONBodySize bounds JSON request bodies on operator endpoints.
// Uploads have their own, larger limit (ServerConfig.MaxUploadSize).
const maxJSONBodySize int64 = 65536

// RegisterRequest is the payload of POST /api/v1/register.
// This is separate from the domain model (operator.Registration) to decouple
// the API contract from internal domain types.
type RegisterRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Gender   string `json:"gender,omitempty"`
	Country  string `json:"country,omitempty"`
	Company  string `json:"company,omitempty"`
	JobTitle string `json:"job_title,omitempty"`
}

// handleRegister handles operator registration.
// POST /api/v1/register - Create a provisional operator account
//
// Request validation (returns 4xx):
//   - 415 Unsupported Media Type: Content-Type must be application/json
//   - 400 Bad Request: Empty body, invalid JSON, or missing required fields
//   - 409 Conflict: Email already registered
//
// Success response:
//   - 201 Created: Public profile of the provisional operator
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	correlationID := middleware.GetCorrelationID(r.Context())

	if !hasJSONContentType(r.Header.Get("Content-Type")) {
		WriteErrorResponse(w, r, s.logger, UnsupportedMediaType("Content-Type must be application/json"))

		return
	}

	if r.ContentLength == 0 {
		WriteErrorResponse(w, r, s.logger, BadRequest("Request body cannot be empty"))

		return
	}

	var req RegisterRequest

	decoder := json.NewDecoder(io.LimitReader(r.Body, maxJSONBodySize))
	if err := decoder.Decode(&req); err != nil {
		WriteErrorResponse(w, r, s.logger, BadRequest("Invalid JSON: "+err.Error()))

		return
	}

	profile, err := s.operators.Register(r.Context(), operator.Registration{
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
		Gender:   req.Gender,
		Country:  req.Country,
		Company:  req.Company,
		JobTitle: req.JobTitle,
	})
	if err != nil {
		switch {
		case errors.Is(err, operator.ErrMissingField):
			WriteErrorResponse(w, r, s.logger, BadRequest(err.Error()))
		case errors.Is(err, operator.ErrDuplicateIdentity):
			WriteErrorResponse(w, r, s.logger, Conflict(fmt.Sprintf("Email %q is already registered", req.Email)))
		default:
			s.logger.Error("Registration failed",
				slog.String("correlation_id", correlationID),
				slog.String("error", err.Error()),
			)
			WriteErrorResponse(w, r, s.logger, InternalServerError("Failed to register operator"))
		}

		return
	}

	s.logger.Info("Operator registration accepted",
		slog.String("correlation_id", correlationID),
		slog.String("operator_id", profile.ID),
	)

	s.writeJSON(w, r, http.StatusCreated, profile)
}
