package jobs

import (
	"fmt"
	"log/slog"
	"time"

	"tracker/internal/core/application/registry"
)

// JobManager coordinates all scheduled jobs in the application.
// Provides a unified interface to start and stop all background jobs.
type JobManager struct {
	staleChannelSweepJob *StaleChannelSweepJob
	registryGaugeJob     *RegistryGaugeJob
}

// NewJobManager creates a new job manager with all required jobs.
func NewJobManager(
	reg *registry.Registry,
	idleTimeout time.Duration,
	gauges GaugeSink,
	logger *slog.Logger,
) *JobManager {
	return &JobManager{
		staleChannelSweepJob: NewStaleChannelSweepJob(reg, idleTimeout, logger),
		registryGaugeJob:     NewRegistryGaugeJob(reg, gauges, logger),
	}
}

// StartAll starts all scheduled jobs.
// Returns an error if any job fails to start.
func (jm *JobManager) StartAll() error {
	if err := jm.staleChannelSweepJob.Start(); err != nil {
		return fmt.Errorf("failed to start stale channel sweep job: %w", err)
	}

	if err := jm.registryGaugeJob.Start(); err != nil {
		// Stop already started jobs if this one fails
		jm.staleChannelSweepJob.Stop()
		return fmt.Errorf("failed to start registry gauge job: %w", err)
	}

	return nil
}

// StopAll stops all scheduled jobs gracefully.
func (jm *JobManager) StopAll() {
	jm.registryGaugeJob.Stop()
	jm.staleChannelSweepJob.Stop()
}
