package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"tracker/internal/core/application/registry"
)

// StaleChannelSweepSchedule runs the sweep every ten seconds.
const StaleChannelSweepSchedule = "*/10 * * * * *"

// StaleChannelSweepJob closes live channels that have been silent for longer
// than the idle timeout. The websocket read deadline normally catches them
// first; the sweep also covers transports without one.
type StaleChannelSweepJob struct {
	registry *registry.Registry
	idle     time.Duration
	now      func() time.Time
	cron     *cron.Cron
	logger   *slog.Logger
}

// NewStaleChannelSweepJob creates the sweep job.
func NewStaleChannelSweepJob(reg *registry.Registry, idle time.Duration, logger *slog.Logger) *StaleChannelSweepJob {
	return &StaleChannelSweepJob{
		registry: reg,
		idle:     idle,
		now:      time.Now,
		cron:     cron.New(cron.WithSeconds()),
		logger:   logger.With("component", "stale_channel_sweep_job"),
	}
}

// Start schedules the sweep.
func (j *StaleChannelSweepJob) Start() error {
	if _, err := j.cron.AddFunc(StaleChannelSweepSchedule, func() {
		j.Sweep(context.Background())
	}); err != nil {
		return err
	}

	j.cron.Start()
	j.logger.InfoContext(context.Background(), "Stale channel sweep job started", "idle_timeout", j.idle.String())
	return nil
}

// Sweep runs one pass and returns the number of closed channels.
func (j *StaleChannelSweepJob) Sweep(ctx context.Context) int {
	swept := j.registry.SweepIdle(j.now(), j.idle)
	for _, ch := range swept {
		j.logger.InfoContext(ctx, "closed idle channel",
			"channel_id", ch.ID().String(),
			"last_activity", ch.LastActivity())
	}
	return len(swept)
}

// Stop stops the schedule and waits for a running sweep to finish.
func (j *StaleChannelSweepJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.InfoContext(context.Background(), "Stale channel sweep job stopped")
}
