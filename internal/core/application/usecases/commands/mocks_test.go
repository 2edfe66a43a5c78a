package commands_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"tracker/internal/core/application/usecases/commands"
	"tracker/internal/core/domain/model/agent"
	"tracker/internal/core/domain/model/kernel"
	"tracker/internal/core/ports"
)

type MockPositionRepository struct {
	mock.Mock
}

func (m *MockPositionRepository) Upsert(ctx context.Context, position *agent.Position) error {
	args := m.Called(ctx, position)
	return args.Error(0)
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

type MockTrackingUoW struct {
	mock.Mock
}

func (m *MockTrackingUoW) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTrackingUoW) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTrackingUoW) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTrackingUoW) AccountDirectory() ports.AccountDirectory {
	args := m.Called()
	return args.Get(0).(ports.AccountDirectory)
}

func (m *MockTrackingUoW) PositionRepository() ports.PositionRepository {
	args := m.Called()
	return args.Get(0).(ports.PositionRepository)
}

type MockTrackingUoWFactory struct {
	mock.Mock
}

func (m *MockTrackingUoWFactory) Create() commands.TrackingUoW {
	args := m.Called()
	return args.Get(0).(commands.TrackingUoW)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event agent.PositionUpdated) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type MockGeocoder struct {
	mock.Mock
}

func (m *MockGeocoder) Geocode(ctx context.Context, address string) (kernel.Location, error) {
	args := m.Called(ctx, address)
	return args.Get(0).(kernel.Location), args.Error(1)
}
