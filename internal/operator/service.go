package operator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors forming the stable lifecycle taxonomy surfaced to callers.
var (
	// ErrDuplicateIdentity is returned when registering an email that is
	// already present.
	ErrDuplicateIdentity = errors.New("email is already registered")

	// ErrInvalidCredentials is returned when the email is unknown or the
	// password does not match the stored digest. The two cases are
	// deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNotFound is returned when operating on an unknown operator id.
	ErrNotFound = errors.New("operator not found")

	// ErrMissingField is returned when a required registration field is empty.
	ErrMissingField = errors.New("missing required field")

	// ErrEmptyScope is returned when Approve is called without a final scope.
	ErrEmptyScope = errors.New("scope cannot be empty")

	ErrNilOperatorStore = errors.New("operator store cannot be nil")
)

// dummyDigest is compared against when the email is unknown, so Authenticate
// costs one bcrypt comparison on both paths.
var dummyDigest, _ = HashPassword("vaxtrack-timing-equalizer")

type (
	// Store is the persistence interface for operator accounts.
	//
	// Activate and Delete must be atomic row operations: a Delete followed by
	// a concurrent Activate on the same id must surface ErrNotFound, never
	// resurrect the deleted row.
	Store interface {
		// Create inserts a new operator. Returns ErrDuplicateIdentity if the
		// email is already present.
		Create(ctx context.Context, op *Operator) error

		// FindByEmail retrieves an operator by email. Returns ErrNotFound if
		// the email is unknown.
		FindByEmail(ctx context.Context, email string) (*Operator, error)

		// Activate atomically sets status=active, role=admin, and the final
		// scope in one visible update. Returns the updated operator, or
		// ErrNotFound if the id is unknown.
		Activate(ctx context.Context, id, scope string) (*Operator, error)

		// Delete permanently removes the operator row. Returns ErrNotFound
		// if the id is unknown.
		Delete(ctx context.Context, id string) error

		// ListPending returns all operators with status=provisional.
		ListPending(ctx context.Context) ([]*Operator, error)
	}

	// Notifier is the fire-and-forget capability the lifecycle calls after a
	// successful approval. Implementations own delivery; the lifecycle logs
	// failures and never propagates them.
	Notifier interface {
		NotifyApproved(ctx context.Context, op Operator) error
	}

	// Registration carries the fields of a registration request.
	Registration struct {
		FullName string
		Email    string
		Password string
		Gender   string
		Country  string
		Company  string
		JobTitle string
	}

	// Service implements the operator lifecycle state machine.
	Service struct {
		store    Store
		notifier Notifier
		logger   *slog.Logger
	}
)

// NewService creates an operator lifecycle Service.
// notifier may be nil to disable approval notifications.
func NewService(store Store, notifier Notifier, logger *slog.Logger) (*Service, error) {
	if store == nil {
		return nil, ErrNilOperatorStore
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Service{store: store, notifier: notifier, logger: logger}, nil
}

// Register creates a new provisional operator.
//
// A newly registered operator always starts role=user, status=provisional,
// scope=<home country>. Only Approve may change that. The password is hashed
// before it reaches storage; the clear form is never retained.
func (s *Service) Register(ctx context.Context, reg Registration) (Profile, error) {
	for _, required := range []struct {
		name  string
		value string
	}{
		{"full_name", reg.FullName},
		{"email", reg.Email},
		{"password", reg.Password},
	} {
		if strings.TrimSpace(required.value) == "" {
			return Profile{}, fmt.Errorf("%w: %s", ErrMissingField, required.name)
		}
	}

	digest, err := HashPassword(reg.Password)
	if err != nil {
		return Profile{}, err
	}

	op := &Operator{
		ID:               uuid.NewString(),
		FullName:         strings.TrimSpace(reg.FullName),
		Email:            normalizeEmail(reg.Email),
		CredentialDigest: digest,
		Role:             RoleUser,
		Status:           StatusProvisional,
		Scope:            reg.Country,
		Gender:           reg.Gender,
		Country:          reg.Country,
		Company:          reg.Company,
		JobTitle:         reg.JobTitle,
		CreatedAt:        time.Now().UTC(),
	}

	if err := s.store.Create(ctx, op); err != nil {
		return Profile{}, err
	}

	s.logger.Info("Operator registered",
		slog.String("operator_id", op.ID),
		slog.String("email", op.Email),
	)

	return op.Profile(), nil
}

// Authenticate verifies credentials and returns the operator's public profile.
// Unknown email and digest mismatch both yield ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Profile, error) {
	op, err := s.store.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Equalize timing with the known-email path.
			VerifyPassword(dummyDigest, password)

			return Profile{}, ErrInvalidCredentials
		}

		return Profile{}, err
	}

	if !VerifyPassword(op.CredentialDigest, password) {
		return Profile{}, ErrInvalidCredentials
	}

	return op.Profile(), nil
}

// Approve transitions a provisional operator to active/admin with the final
// visibility scope in one atomic update. This is the only path that grants
// administrative capability and it is irreversible.
//
// Side effect: best-effort notification to the operator. Notification failure
// is logged and never fails the approval itself.
func (s *Service) Approve(ctx context.Context, id, scope string) (Profile, error) {
	if strings.TrimSpace(scope) == "" {
		return Profile{}, ErrEmptyScope
	}

	op, err := s.store.Activate(ctx, id, scope)
	if err != nil {
		return Profile{}, err
	}

	s.logger.Info("Operator approved",
		slog.String("operator_id", op.ID),
		slog.String("scope", op.Scope),
	)

	if s.notifier != nil {
		if err := s.notifier.NotifyApproved(ctx, *op); err != nil {
			s.logger.Warn("Approval notification failed",
				slog.String("operator_id", op.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	return op.Profile(), nil
}

// Reject permanently deletes the operator record. Irreversible: no undo, no
// retention, so a rejected email may re-register.
func (s *Service) Reject(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Operator rejected", slog.String("operator_id", id))

	return nil
}

// ListPending returns the public profiles of all provisional operators.
func (s *Service) ListPending(ctx context.Context) ([]Profile, error) {
	ops, err := s.store.ListPending(ctx)
	if err != nil {
		return nil, err
	}

	profiles := make([]Profile, 0, len(ops))
	for _, op := range ops {
		profiles = append(profiles, op.Profile())
	}

	return profiles, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
