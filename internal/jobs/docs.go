// Package jobs provides scheduled background tasks for the tracker.
//
// Jobs are built on github.com/robfig/cron/v3 with second-level schedules.
//
// # Available Jobs
//
// 1. StaleChannelSweepJob - every 10 seconds closes live channels idle longer than the idle timeout
// 2. RegistryGaugeJob - every 5 seconds exports connected channel and identified agent counts
//
// # Usage
//
//	jobManager := jobs.NewJobManager(registry, idleTimeout, collector, logger)
//	if err := jobManager.StartAll(); err != nil {
//		log.Fatal("Failed to start jobs:", err)
//	}
//	defer jobManager.StopAll()
//
// # Error Handling
//
// Failed job starts stop any already running jobs.
package jobs
