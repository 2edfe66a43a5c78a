package memory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracker/internal/adapters/out/memory"
	"tracker/internal/core/domain/model/agent"
	"tracker/internal/pkg/errs"
)

func TestAccountDirectory(t *testing.T) {
	ctx := t.Context()
	alice, err := agent.NewAccount("c1", "Alice", agent.RoleCourier)
	require.NoError(t, err)
	dir := memory.NewAccountDirectory(alice)

	got, err := dir.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Same(t, alice, got)

	_, err = dir.Get(ctx, "c2")
	require.ErrorIs(t, err, errs.ErrObjectNotFound)

	bob, err := agent.NewAccount("c2", "Bob", agent.RoleCustomer)
	require.NoError(t, err)
	require.NoError(t, dir.Put(bob))
	assert.Equal(t, 2, dir.Len())

	require.Error(t, dir.Put(&agent.Account{}))
}

func TestUnitOfWork(t *testing.T) {
	ctx := t.Context()
	dir := memory.NewAccountDirectory()
	repo := memory.NewPositionRepository()
	uow := memory.NewUnitOfWorkFactory(dir, repo).Create()

	require.ErrorIs(t, uow.Commit(ctx), memory.ErrNoTransaction)
	require.NoError(t, uow.Begin(ctx))
	assert.Same(t, dir, uow.AccountDirectory())
	assert.Same(t, repo, uow.PositionRepository())
	require.NoError(t, uow.Commit(ctx))
	require.ErrorIs(t, uow.Rollback(ctx), memory.ErrNoTransaction)
}
