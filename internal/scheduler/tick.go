package scheduler

import (
	"context"
	"time"

	"github.com/rapo-engine/rapo/internal/calendar"
	"github.com/rapo-engine/rapo/internal/metrics"
)

// tickLoop anchors a wall-clock moment and sleeps until the next whole
// second, per §4.7: "anchor a wall-clock moment, sleep until next whole
// second... If the sleep delta is negative (clock skew), resynchronize."
func (s *Scheduler) tickLoop(ctx context.Context) {
	lastRefresh := time.Now()
	lastMaintenance := time.Now()
	lastReport := time.Now()

	moment := time.Now()
	for {
		next := moment.Truncate(time.Second).Add(time.Second)
		delta := time.Until(next)
		if delta < 0 {
			s.logger.Warn("scheduler: clock skew detected, resynchronizing", "delta", delta)
			moment = time.Now()
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delta):
		}
		moment = next
		metrics.TicksTotal.Inc()

		if time.Since(lastRefresh) >= time.Duration(s.cfg.RefreshIntervalSec)*time.Second {
			entries, err := s.loadSchedule(ctx)
			if err != nil {
				s.logger.Error("scheduler: schedule refresh failed", "error", err)
			} else {
				s.setSchedule(entries)
				metrics.ScheduleRefreshTotal.Inc()
			}
			lastRefresh = moment
		}

		s.enqueueMatches(moment)

		if time.Since(lastMaintenance) >= time.Duration(s.cfg.MaintenanceIntervalSec)*time.Second {
			select {
			case s.maintenance <- struct{}{}:
			default:
			}
			lastMaintenance = moment
		}

		if time.Since(lastReport) >= time.Duration(s.cfg.DatabaseReportIntervalSec)*time.Second {
			stats := s.gw.Stats()
			s.logger.Info("scheduler: pool status",
				"open_connections", stats.OpenConnections, "in_use", stats.InUse, "idle", stats.Idle)
			metrics.GatewayPoolInUse.Set(float64(stats.InUse))
			lastReport = moment
		}

		metrics.DispatchQueueDepth.Set(float64(len(s.queue)))
	}
}

// enqueueMatches walks the current schedule snapshot and puts every
// control whose calendar fires at moment onto the dispatch queue. A full
// queue drops the tick for that control rather than blocking the loop,
// logging loudly since a dropped tick means a missed run.
func (s *Scheduler) enqueueMatches(moment time.Time) {
	tick := calendar.TickFromTime(moment.Day(), int(moment.Weekday()), moment.Hour(), moment.Minute(), moment.Second())

	for _, e := range s.snapshotSchedule() {
		if !e.schedule.Fires(tick) {
			continue
		}
		select {
		case s.queue <- workItem{cfg: e, trigger: moment}:
		default:
			s.logger.Error("scheduler: dispatch queue full, dropping tick",
				"control_name", e.cfg.ControlName, "moment", moment)
		}
	}
}
