package jobs

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"tracker/internal/core/application/registry"
)

// RegistryGaugeSchedule exports registry sizes every five seconds.
const RegistryGaugeSchedule = "*/5 * * * * *"

// GaugeSink receives registry sizes.
type GaugeSink interface {
	SetRegistryCounts(connected, identified int)
}

// RegistryGaugeJob periodically exports the number of connected channels and
// identified agents.
type RegistryGaugeJob struct {
	registry *registry.Registry
	sink     GaugeSink
	cron     *cron.Cron
	logger   *slog.Logger
}

// NewRegistryGaugeJob creates the gauge job.
func NewRegistryGaugeJob(reg *registry.Registry, sink GaugeSink, logger *slog.Logger) *RegistryGaugeJob {
	return &RegistryGaugeJob{
		registry: reg,
		sink:     sink,
		cron:     cron.New(cron.WithSeconds()),
		logger:   logger.With("component", "registry_gauge_job"),
	}
}

// Start schedules the export.
func (j *RegistryGaugeJob) Start() error {
	if _, err := j.cron.AddFunc(RegistryGaugeSchedule, j.Export); err != nil {
		return err
	}

	j.cron.Start()
	j.logger.InfoContext(context.Background(), "Registry gauge job started")
	return nil
}

// Export pushes the current sizes to the sink.
func (j *RegistryGaugeJob) Export() {
	j.sink.SetRegistryCounts(j.registry.Len(), j.registry.Identified())
}

// Stop stops the schedule.
func (j *RegistryGaugeJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.InfoContext(context.Background(), "Registry gauge job stopped")
}
