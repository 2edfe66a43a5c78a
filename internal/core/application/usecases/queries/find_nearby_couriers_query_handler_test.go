package queries_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tracker/internal/core/application/usecases/queries"
	"tracker/internal/core/domain/model/agent"
	"tracker/internal/core/domain/model/kernel"
	"tracker/internal/pkg/errs"
)

type MockPositionRepository struct {
	mock.Mock
}

func (m *MockPositionRepository) Upsert(ctx context.Context, position *agent.Position) error {
	return m.Called(ctx, position).Error(0)
}

func (m *MockPositionRepository) Get(ctx context.Context, agentID kernel.AgentID) (*agent.Position, error) {
	args := m.Called(ctx, agentID)
	pos, _ := args.Get(0).(*agent.Position)
	return pos, args.Error(1)
}

func (m *MockPositionRepository) FindNearby(
	ctx context.Context,
	center kernel.Location,
	radiusMeters float64,
	role agent.Role,
) ([]*agent.Position, error) {
	args := m.Called(ctx, center, radiusMeters, role)
	positions, _ := args.Get(0).([]*agent.Position)
	return positions, args.Error(1)
}

type MockAccountDirectory struct {
	mock.Mock
}

func (m *MockAccountDirectory) Get(ctx context.Context, agentID kernel.AgentID) (*agent.Account, error) {
	args := m.Called(ctx, agentID)
	account, _ := args.Get(0).(*agent.Account)
	return account, args.Error(1)
}

func position(t *testing.T, id string, lon, lat float64) *agent.Position {
	t.Helper()
	pos, err := agent.NewPosition(kernel.AgentID(id), agent.RoleCourier, kernel.MustNewLocation(lon, lat), time.Now())
	require.NoError(t, err)
	return pos
}

func account(t *testing.T, id, name string) *agent.Account {
	t.Helper()
	acc, err := agent.NewAccount(kernel.AgentID(id), name, agent.RoleCourier)
	require.NoError(t, err)
	return acc
}

func TestFindNearbyCouriersQueryHandler_Handle(t *testing.T) {
	// Arrange
	ctx := t.Context()
	center := kernel.MustNewLocation(10, 50)
	near := position(t, "c1", 10.0005, 50.0005)
	far := position(t, "c2", 10.005, 50)

	repo := new(MockPositionRepository)
	accounts := new(MockAccountDirectory)
	repo.On("FindNearby", ctx, center, 1000.0, agent.RoleCourier).Return([]*agent.Position{near, far}, nil).Once()
	accounts.On("Get", ctx, kernel.AgentID("c1")).Return(account(t, "c1", "Alice"), nil).Once()
	accounts.On("Get", ctx, kernel.AgentID("c2")).Return(nil, errs.NewObjectNotFoundError("agentId", "c2")).Once()

	handler := queries.NewFindNearbyCouriersQueryHandler(repo, accounts, slog.New(slog.DiscardHandler))
	query, err := queries.NewFindNearbyCouriersQuery(center, 1000)
	require.NoError(t, err)

	// Act
	result, err := handler.Handle(ctx, query)

	// Assert
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, kernel.AgentID("c1"), result[0].AgentID)
	assert.Equal(t, "Alice", result[0].Name)
	assert.InDelta(t, 66.09, result[0].DistanceMeters, 0.05)
	assert.Equal(t, near.UpdatedAt(), result[0].UpdatedAt)
	assert.Equal(t, kernel.AgentID("c2"), result[1].AgentID)
	assert.Empty(t, result[1].Name)
	repo.AssertExpectations(t)
	accounts.AssertExpectations(t)
}

func TestFindNearbyCouriersQueryHandler_Handle_EmptyResultIsNotNil(t *testing.T) {
	ctx := t.Context()
	center := kernel.MustNewLocation(10, 50)
	repo := new(MockPositionRepository)
	repo.On("FindNearby", ctx, center, 10.0, agent.RoleCourier).Return([]*agent.Position{}, nil).Once()

	handler := queries.NewFindNearbyCouriersQueryHandler(repo, nil, slog.New(slog.DiscardHandler))
	query, err := queries.NewFindNearbyCouriersQuery(center, 10)
	require.NoError(t, err)

	result, err := handler.Handle(ctx, query)

	require.NoError(t, err)
	assert.NotNil(t, result)
	assert.Empty(t, result)
}

func TestFindNearbyCouriersQueryHandler_Handle_StoreError(t *testing.T) {
	ctx := t.Context()
	center := kernel.MustNewLocation(10, 50)
	storeErr := errs.NewUnavailableErrorWithCause("postgres", errors.New("connection reset"))
	repo := new(MockPositionRepository)
	repo.On("FindNearby", ctx, center, 10.0, agent.RoleCourier).Return(nil, storeErr).Once()

	handler := queries.NewFindNearbyCouriersQueryHandler(repo, nil, slog.New(slog.DiscardHandler))
	query, err := queries.NewFindNearbyCouriersQuery(center, 10)
	require.NoError(t, err)

	_, err = handler.Handle(ctx, query)

	require.ErrorIs(t, err, errs.ErrUnavailable)
}

func TestFindNearbyCouriersQueryHandler_Handle_InvalidQuery(t *testing.T) {
	repo := new(MockPositionRepository)
	handler := queries.NewFindNearbyCouriersQueryHandler(repo, nil, slog.New(slog.DiscardHandler))

	_, err := handler.Handle(t.Context(), queries.FindNearbyCouriersQuery{})

	require.ErrorIs(t, err, queries.ErrFindNearbyCouriersQueryIsNotConstructed)
	repo.AssertNotCalled(t, "FindNearby", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
