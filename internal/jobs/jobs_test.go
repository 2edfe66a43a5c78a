package jobs_test

import (
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tracker/internal/core/application/registry"
	"tracker/internal/core/domain/model/agent"
	"tracker/internal/core/domain/model/kernel"
	"tracker/internal/jobs"
)

type fakeChannel struct {
	id       kernel.UUID
	lastSeen time.Time
	closed   atomic.Bool
}

func newFakeChannel(lastSeen time.Time) *fakeChannel {
	return &fakeChannel{id: kernel.NewUUID(), lastSeen: lastSeen}
}

func (c *fakeChannel) ID() kernel.UUID                     { return c.id }
func (c *fakeChannel) Deliver(agent.PositionUpdated) error { return nil }
func (c *fakeChannel) Close()                              { c.closed.Store(true) }
func (c *fakeChannel) LastActivity() time.Time             { return c.lastSeen }

type MockGaugeSink struct {
	mock.Mock
}

func (m *MockGaugeSink) SetRegistryCounts(connected, identified int) {
	m.Called(connected, identified)
}

func TestStaleChannelSweepJob_Sweep(t *testing.T) {
	// Arrange
	reg := registry.New()
	stale := newFakeChannel(time.Now().Add(-time.Hour))
	fresh := newFakeChannel(time.Now())
	reg.Attach(stale)
	reg.Attach(fresh)
	reg.Register("courier-1", stale)
	job := jobs.NewStaleChannelSweepJob(reg, time.Minute, slog.New(slog.DiscardHandler))

	// Act
	swept := job.Sweep(t.Context())

	// Assert
	assert.Equal(t, 1, swept)
	assert.True(t, stale.closed.Load())
	assert.False(t, fresh.closed.Load())
	assert.Equal(t, 1, reg.Len())
	_, ok := reg.Lookup("courier-1")
	assert.False(t, ok)
}

func TestStaleChannelSweepJob_NothingToSweep(t *testing.T) {
	reg := registry.New()
	reg.Attach(newFakeChannel(time.Now()))
	job := jobs.NewStaleChannelSweepJob(reg, time.Minute, slog.New(slog.DiscardHandler))

	assert.Zero(t, job.Sweep(t.Context()))
	assert.Equal(t, 1, reg.Len())
}

func TestRegistryGaugeJob_Export(t *testing.T) {
	// Arrange
	reg := registry.New()
	identified := newFakeChannel(time.Now())
	reg.Attach(identified)
	reg.Attach(newFakeChannel(time.Now()))
	reg.Register("courier-1", identified)

	sink := &MockGaugeSink{}
	sink.On("SetRegistryCounts", 2, 1).Once()
	job := jobs.NewRegistryGaugeJob(reg, sink, slog.New(slog.DiscardHandler))

	// Act
	job.Export()

	// Assert
	sink.AssertExpectations(t)
}

func TestJobManager_StartAndStop(t *testing.T) {
	sink := &MockGaugeSink{}
	sink.On("SetRegistryCounts", mock.Anything, mock.Anything).Maybe()
	manager := jobs.NewJobManager(registry.New(), time.Minute, sink, slog.New(slog.DiscardHandler))

	require.NoError(t, manager.StartAll())
	manager.StopAll()
}
