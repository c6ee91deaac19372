package storage

import (
	"context"
	"sync"

	"github.com/vaxtrack-io/vaxtrack/internal/operator"
)

// MemoryOperatorStore provides thread-safe in-memory storage for operator
// accounts. Lifecycle transitions run under one lock, matching the row-level
// atomicity of the PostgreSQL store.
type MemoryOperatorStore struct {
	// byID maps operator ids to accounts
	byID map[string]*operator.Operator
	// byEmail maps emails to accounts for identity lookups
	byEmail map[string]*operator.Operator
	// order preserves insertion order for ListPending
	order []string
	// mutex protects concurrent access to all maps
	mutex sync.RWMutex
}

var _ operator.Store = (*MemoryOperatorStore)(nil)

// NewMemoryOperatorStore creates an empty in-memory operator store.
func NewMemoryOperatorStore() *MemoryOperatorStore {
	return &MemoryOperatorStore{
		byID:    make(map[string]*operator.Operator),
		byEmail: make(map[string]*operator.Operator),
	}
}

// Create inserts a new operator. Returns operator.ErrDuplicateIdentity if the
// email is already present.
func (s *MemoryOperatorStore) Create(_ context.Context, op *operator.Operator) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.byEmail[op.Email]; exists {
		return operator.ErrDuplicateIdentity
	}

	// Store a copy to prevent external modification.
	opCopy := *op
	s.byID[opCopy.ID] = &opCopy
	s.byEmail[opCopy.Email] = &opCopy
	s.order = append(s.order, opCopy.ID)

	return nil
}

// FindByEmail retrieves an operator by email.
func (s *MemoryOperatorStore) FindByEmail(_ context.Context, email string) (*operator.Operator, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	op, exists := s.byEmail[email]
	if !exists {
		return nil, operator.ErrNotFound
	}

	opCopy := *op

	return &opCopy, nil
}

// Activate atomically sets status=active, role=admin, and the final scope.
func (s *MemoryOperatorStore) Activate(_ context.Context, id, scope string) (*operator.Operator, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	op, exists := s.byID[id]
	if !exists {
		return nil, operator.ErrNotFound
	}

	op.Status = operator.StatusActive
	op.Role = operator.RoleAdmin
	op.Scope = scope

	opCopy := *op

	return &opCopy, nil
}

// Delete permanently removes the operator. A deleted id can never be
// activated afterwards.
func (s *MemoryOperatorStore) Delete(_ context.Context, id string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	op, exists := s.byID[id]
	if !exists {
		return operator.ErrNotFound
	}

	delete(s.byID, id)
	delete(s.byEmail, op.Email)

	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)

			break
		}
	}

	return nil
}

// ListPending returns all provisional operators in insertion order.
func (s *MemoryOperatorStore) ListPending(_ context.Context) ([]*operator.Operator, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	pending := make([]*operator.Operator, 0)

	for _, id := range s.order {
		op, exists := s.byID[id]
		if !exists || op.Status != operator.StatusProvisional {
			continue
		}

		opCopy := *op
		pending = append(pending, &opCopy)
	}

	return pending, nil
}
