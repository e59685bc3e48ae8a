package agenda

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/harperreed/weekcal/config"
)

// Interval is the effective refresh period, never below the configured minimum.
func Interval(s config.Settings) time.Duration {
	seconds := s.RefreshIntervalSeconds
	if seconds < config.MinRefreshIntervalSeconds {
		seconds = config.MinRefreshIntervalSeconds
	}
	return time.Duration(seconds) * time.Second
}

// StartScheduler refreshes every Interval, replacing any running schedule.
// A run that is still going when the next tick fires causes that tick to be skipped.
func (a *Aggregator) StartScheduler() {
	a.schedMu.Lock()
	defer a.schedMu.Unlock()
	a.stopLocked()

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	c.Schedule(cron.Every(Interval(a.settings.Settings())), cron.FuncJob(func() {
		if res := a.Refresh(context.Background()); !res.Success {
			a.logger.Debug("scheduled refresh failed", slog.String("err", res.Error))
		}
	}))
	c.Start()
	a.cron = c
}

// StopScheduler cancels the schedule. It does not wait for a running refresh.
func (a *Aggregator) StopScheduler() {
	a.schedMu.Lock()
	defer a.schedMu.Unlock()
	a.stopLocked()
}

// SchedulerRunning reports whether a schedule is active.
func (a *Aggregator) SchedulerRunning() bool {
	a.schedMu.Lock()
	defer a.schedMu.Unlock()
	return a.cron != nil
}

func (a *Aggregator) stopLocked() {
	if a.cron != nil {
		a.cron.Stop()
		a.cron = nil
	}
}
