package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/vaxtrack-io/vaxtrack/internal/operator"
)

// ErrOperatorStoreFailed is returned when an operator storage operation fails.
var ErrOperatorStoreFailed = errors.New("operator storage failed")

// pqUniqueViolation is the PostgreSQL error code for unique constraint violations.
const pqUniqueViolation = "23505"

// OperatorStore implements operator.Store with a PostgreSQL backend.
//
// Lifecycle transitions are single-statement row operations, so concurrent
// Approve/Reject on the same id serialize at the row level: a Reject followed
// by a concurrent Approve surfaces operator.ErrNotFound and never resurrects
// the deleted row.
type OperatorStore struct {
	conn   *Connection
	logger *slog.Logger
}

var _ operator.Store = (*OperatorStore)(nil)

const operatorColumns = `
	id, full_name, email, credential_digest, role, status, scope,
	COALESCE(gender, ''), COALESCE(country, ''), COALESCE(company, ''), COALESCE(job_title, ''), created_at
`

// NewOperatorStore creates a PostgreSQL-backed operator store.
// Returns ErrNoDatabaseConnection if conn is nil.
func NewOperatorStore(conn *Connection, logger *slog.Logger) (*OperatorStore, error) {
	if conn == nil {
		return nil, ErrNoDatabaseConnection
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &OperatorStore{conn: conn, logger: logger}, nil
}

// Create inserts a new operator row.
// A unique violation on email maps to operator.ErrDuplicateIdentity.
func (s *OperatorStore) Create(ctx context.Context, op *operator.Operator) error {
	_, err := s.conn.DB.ExecContext(ctx, `
		INSERT INTO operators (
			id, full_name, email, credential_digest, role, status, scope,
			gender, country, company, job_title, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		op.ID, op.FullName, op.Email, op.CredentialDigest,
		string(op.Role), string(op.Status), op.Scope,
		nullableString(op.Gender), nullableString(op.Country),
		nullableString(op.Company), nullableString(op.JobTitle),
		op.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			s.logger.Warn("Duplicate registration rejected",
				slog.String("email", op.Email),
			)

			return operator.ErrDuplicateIdentity
		}

		return fmt.Errorf("%w: create: %w", ErrOperatorStoreFailed, err)
	}

	return nil
}

// FindByEmail retrieves an operator by email.
func (s *OperatorStore) FindByEmail(ctx context.Context, email string) (*operator.Operator, error) {
	row := s.conn.DB.QueryRowContext(ctx,
		`SELECT `+operatorColumns+` FROM operators WHERE email = $1`, email)

	return scanOperator(row)
}

// Activate transitions the operator to active/admin and rewrites its scope in
// one atomic UPDATE. An unknown id yields operator.ErrNotFound; a concurrent
// reader never observes a partial transition.
func (s *OperatorStore) Activate(ctx context.Context, id, scope string) (*operator.Operator, error) {
	row := s.conn.DB.QueryRowContext(ctx, `
		UPDATE operators
		SET status = $1, role = $2, scope = $3
		WHERE id = $4
		RETURNING `+operatorColumns,
		string(operator.StatusActive), string(operator.RoleAdmin), scope, id)

	return scanOperator(row)
}

// Delete permanently removes the operator row.
func (s *OperatorStore) Delete(ctx context.Context, id string) error {
	result, err := s.conn.DB.ExecContext(ctx, `DELETE FROM operators WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: delete: %w", ErrOperatorStoreFailed, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: delete rows affected: %w", ErrOperatorStoreFailed, err)
	}

	if affected == 0 {
		return operator.ErrNotFound
	}

	return nil
}

// ListPending returns all provisional operators in insertion order.
func (s *OperatorStore) ListPending(ctx context.Context) ([]*operator.Operator, error) {
	rows, err := s.conn.DB.QueryContext(ctx,
		`SELECT `+operatorColumns+` FROM operators WHERE status = $1 ORDER BY created_at`,
		string(operator.StatusProvisional))
	if err != nil {
		return nil, fmt.Errorf("%w: list pending: %w", ErrOperatorStoreFailed, err)
	}

	defer func() {
		_ = rows.Close()
	}()

	ops := make([]*operator.Operator, 0)

	for rows.Next() {
		op, err := scanOperatorRow(rows)
		if err != nil {
			return nil, err
		}

		ops = append(ops, op)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate pending: %w", ErrOperatorStoreFailed, err)
	}

	return ops, nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOperator(row *sql.Row) (*operator.Operator, error) {
	op, err := scanOperatorRow(row)
	if err != nil {
		return nil, err
	}

	return op, nil
}

func scanOperatorRow(scanner rowScanner) (*operator.Operator, error) {
	var (
		op     operator.Operator
		role   string
		status string
	)

	err := scanner.Scan(
		&op.ID, &op.FullName, &op.Email, &op.CredentialDigest,
		&role, &status, &op.Scope,
		&op.Gender, &op.Country, &op.Company, &op.JobTitle,
		&op.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, operator.ErrNotFound
		}

		return nil, fmt.Errorf("%w: scan operator: %w", ErrOperatorStoreFailed, err)
	}

	op.Role = operator.Role(role)
	op.Status = operator.Status(status)

	return &op, nil
}
