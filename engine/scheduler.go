package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// InitializeSchedules starts the background scratch sweep. The sweep is
// the backstop for files leaked by a crash mid-request; per-request
// cleanup is handled by ScratchScope. Interval and retention come from
// the server config so tests can exercise Sweep directly.
func (serverHandler *ServerHandler) InitializeSchedules() *cron.Cron {
	retention := time.Duration(serverHandler.ServerConfig.ScratchRetentionMinutes) * time.Minute

	// Run a sweep immediately at startup to clear leftovers from a
	// previous crash
	go func() {
		removed := serverHandler.Scratch.Sweep(time.Now(), retention)
		if removed > 0 {
			Logger.Info("Startup sweep removed stale scratch files", "count", removed)
		}
	}()

	c := cron.New()
	var sweepJob cron.Job
	sweepJob = cron.FuncJob(func() {
		serverHandler.Scratch.Sweep(time.Now(), retention)
	})
	sweepJob = cron.NewChain(cron.SkipIfStillRunning(cron.DefaultLogger)).Then(sweepJob) //ensure we don't kick off another if old one is still running
	c.AddJob(fmt.Sprintf("@every %dm", serverHandler.ServerConfig.SweepIntervalMinutes), sweepJob)
	Logger.Info("Adding scratch sweep scheduler",
		"interval_minutes", serverHandler.ServerConfig.SweepIntervalMinutes,
		"retention_minutes", serverHandler.ServerConfig.ScratchRetentionMinutes)
	c.Start()
	return c
}
