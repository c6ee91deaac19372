package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaxtrack-io/vaxtrack/internal/operator"
	"github.com/vaxtrack-io/vaxtrack/internal/storage"
)

func provisionalOperator(email string) *operator.Operator {
	return &operator.Operator{
		ID:               uuid.New().String(),
		FullName:         "Ama Mensah",
		Email:            email,
		CredentialDigest: "$2a$10$notarealdigest",
		Role:             operator.RoleUser,
		Status:           operator.StatusProvisional,
		Scope:            "Ghana",
		Country:          "Ghana",
		CreatedAt:        time.Now().UTC(),
	}
}

func TestMemoryOperatorStore_CreateAndFindByEmail(t *testing.T) {
	store := storage.NewMemoryOperatorStore()
	ctx := context.Background()

	op := provisionalOperator("ama@example.org")
	require.NoError(t, store.Create(ctx, op))

	found, err := store.FindByEmail(ctx, "ama@example.org")
	require.NoError(t, err)
	assert.Equal(t, op.ID, found.ID)
	assert.Equal(t, operator.StatusProvisional, found.Status)
	assert.Equal(t, operator.RoleUser, found.Role)
}

func TestMemoryOperatorStore_Create_DuplicateEmail(t *testing.T) {
	store := storage.NewMemoryOperatorStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, provisionalOperator("ama@example.org")))

	err := store.Create(ctx, provisionalOperator("ama@example.org"))
	require.ErrorIs(t, err, operator.ErrDuplicateIdentity)
}

func TestMemoryOperatorStore_FindByEmail_Unknown(t *testing.T) {
	store := storage.NewMemoryOperatorStore()

	_, err := store.FindByEmail(context.Background(), "nobody@example.org")
	require.ErrorIs(t, err, operator.ErrNotFound)
}

func TestMemoryOperatorStore_Activate_PromotesToActiveAdmin(t *testing.T) {
	store := storage.NewMemoryOperatorStore()
	ctx := context.Background()

	op := provisionalOperator("ama@example.org")
	require.NoError(t, store.Create(ctx, op))

	activated, err := store.Activate(ctx, op.ID, operator.ScopeAll)
	require.NoError(t, err)
	assert.Equal(t, operator.StatusActive, activated.Status)
	assert.Equal(t, operator.RoleAdmin, activated.Role)
	assert.Equal(t, operator.ScopeAll, activated.Scope)

	// The transition is visible to subsequent lookups.
	found, err := store.FindByEmail(ctx, "ama@example.org")
	require.NoError(t, err)
	assert.Equal(t, operator.StatusActive, found.Status)
}

func TestMemoryOperatorStore_Activate_UnknownID(t *testing.T) {
	store := storage.NewMemoryOperatorStore()

	_, err := store.Activate(context.Background(), uuid.New().String(), "Benin")
	require.ErrorIs(t, err, operator.ErrNotFound)
}

func TestMemoryOperatorStore_Delete_IsPermanent(t *testing.T) {
	store := storage.NewMemoryOperatorStore()
	ctx := context.Background()

	op := provisionalOperator("ama@example.org")
	require.NoError(t, store.Create(ctx, op))
	require.NoError(t, store.Delete(ctx, op.ID))

	_, err := store.FindByEmail(ctx, "ama@example.org")
	require.ErrorIs(t, err, operator.ErrNotFound)

	require.ErrorIs(t, store.Delete(ctx, op.ID), operator.ErrNotFound)

	// A deleted id can never be activated afterwards.
	_, err = store.Activate(ctx, op.ID, operator.ScopeAll)
	require.ErrorIs(t, err, operator.ErrNotFound)
}

func TestMemoryOperatorStore_ListPending_InsertionOrderProvisionalOnly(t *testing.T) {
	store := storage.NewMemoryOperatorStore()
	ctx := context.Background()

	first := provisionalOperator("first@example.org")
	second := provisionalOperator("second@example.org")
	third := provisionalOperator("third@example.org")

	require.NoError(t, store.Create(ctx, first))
	require.NoError(t, store.Create(ctx, second))
	require.NoError(t, store.Create(ctx, third))

	_, err := store.Activate(ctx, second.ID, operator.ScopeAll)
	require.NoError(t, err)

	pending, err := store.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID)
	assert.Equal(t, third.ID, pending[1].ID)
}

func TestMemoryOperatorStore_StoresCopies(t *testing.T) {
	store := storage.NewMemoryOperatorStore()
	ctx := context.Background()

	op := provisionalOperator("ama@example.org")
	require.NoError(t, store.Create(ctx, op))

	// Mutating the caller's struct must not leak into the store.
	op.FullName = "Changed"

	found, err := store.FindByEmail(ctx, "ama@example.org")
	require.NoError(t, err)
	assert.Equal(t, "Ama Mensah", found.FullName)
}
