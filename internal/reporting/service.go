package reporting

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/vaxtrack-io/vaxtrack/internal/ingestion"
	"github.com/vaxtrack-io/vaxtrack/internal/operator"
)

var (
	ErrNilReportStore       = errors.New("report store cannot be nil")
	ErrNilOperatorDirectory = errors.New("operator directory cannot be nil")
)

type (
	// HistoryEntry is one batch ledger row joined with aggregates derived
	// from the coverage records sharing the batch filename. Countries and
	// Vaccines are deduplicated, comma-joined labels; ordering within a
	// label is discovery order and carries no meaning for comparison.
	HistoryEntry struct {
		BatchID       string            `json:"batch_id"`
		Filename      string            `json:"filename"`
		UploadedAt    time.Time         `json:"uploaded_at"`
		RowsAttempted int               `json:"rows_attempted"`
		RowsAccepted  int               `json:"rows_imported"`
		Status        ingestion.Outcome `json:"status"`
		Countries     string            `json:"countries"`
		Vaccines      string            `json:"vaccines"`
	}

	// Store is the read interface reporting needs from storage. Both queries
	// are read-only and must apply the given ScopeFilter: ListHistory
	// recomputes the per-batch aggregates under the filter, not just the
	// raw rows.
	Store interface {
		ListRecords(ctx context.Context, filter ScopeFilter) ([]ingestion.CoverageRecord, error)
		ListHistory(ctx context.Context, filter ScopeFilter) ([]HistoryEntry, error)
	}

	// OperatorDirectory resolves caller identities to operator accounts.
	// Satisfied by operator.Store.
	OperatorDirectory interface {
		FindByEmail(ctx context.Context, email string) (*operator.Operator, error)
	}

	// Service resolves the caller's ScopeFilter and answers scoped queries.
	Service struct {
		store     Store
		operators OperatorDirectory
		logger    *slog.Logger
	}
)

// NewService creates a reporting Service.
func NewService(store Store, operators OperatorDirectory, logger *slog.Logger) (*Service, error) {
	if store == nil {
		return nil, ErrNilReportStore
	}

	if operators == nil {
		return nil, ErrNilOperatorDirectory
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Service{store: store, operators: operators, logger: logger}, nil
}

// QueryRecords returns the coverage records visible to the caller.
// Returns ErrUnauthorized when the caller cannot be resolved to an active
// operator.
func (s *Service) QueryRecords(ctx context.Context, callerEmail string) ([]ingestion.CoverageRecord, error) {
	filter, err := s.ResolveScope(ctx, callerEmail)
	if err != nil {
		return nil, err
	}

	return s.store.ListRecords(ctx, filter)
}

// QueryHistory returns the batch ledger with aggregates recomputed under the
// caller's scope. An unscoped caller and a country-scoped caller never see
// identical aggregates for a batch spanning multiple countries.
func (s *Service) QueryHistory(ctx context.Context, callerEmail string) ([]HistoryEntry, error) {
	filter, err := s.ResolveScope(ctx, callerEmail)
	if err != nil {
		return nil, err
	}

	return s.store.ListHistory(ctx, filter)
}

// ResolveScope derives exactly one ScopeFilter for the caller.
// Empty identity, unknown email, and non-active status all deny.
func (s *Service) ResolveScope(ctx context.Context, callerEmail string) (ScopeFilter, error) {
	email := strings.ToLower(strings.TrimSpace(callerEmail))
	if email == "" {
		return ScopeFilter{}, ErrUnauthorized
	}

	op, err := s.operators.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, operator.ErrNotFound) {
			return ScopeFilter{}, ErrUnauthorized
		}

		return ScopeFilter{}, err
	}

	if op.Status != operator.StatusActive {
		s.logger.Debug("Scope denied for non-active operator",
			slog.String("operator_id", op.ID),
			slog.String("status", string(op.Status)),
		)

		return ScopeFilter{}, ErrUnauthorized
	}

	return scopeFilterFor(op), nil
}
