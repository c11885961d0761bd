package scheduler

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rapo-engine/rapo/internal/calendar"
	"github.com/rapo-engine/rapo/internal/domain"
)

// entry pairs a control's configuration with its parsed calendar tick
// expression, the unit of the in-memory schedule the tick loop walks.
type entry struct {
	cfg      domain.ControlConfig
	schedule calendar.Schedule
}

// scheduleFields is the shape of ControlConfig.ScheduleConfig (§4.1): the
// five calendar field expressions, keyed by name.
type scheduleFields struct {
	MDay string `json:"mday"`
	WDay string `json:"wday"`
	Hour string `json:"hour"`
	Min  string `json:"min"`
	Sec  string `json:"sec"`
}

// parseSchedule decodes a control's schedule_config JSON into a
// calendar.Schedule. A nil or empty schedule_config never fires.
func parseSchedule(cfg domain.ControlConfig) (calendar.Schedule, error) {
	sched := calendar.Schedule{Status: calendar.Flag(cfg.Status.Bool())}
	if cfg.ScheduleConfig == nil || *cfg.ScheduleConfig == "" {
		sched.Status = false
		return sched, nil
	}
	var fields scheduleFields
	if err := json.Unmarshal([]byte(*cfg.ScheduleConfig), &fields); err != nil {
		return calendar.Schedule{}, fmt.Errorf("parse schedule_config for %q: %w", cfg.ControlName, err)
	}
	sched.MDay, sched.WDay, sched.Hour, sched.Min, sched.Sec = fields.MDay, fields.WDay, fields.Hour, fields.Min, fields.Sec
	return sched, nil
}

// loadSchedule reads every enabled control and parses its schedule,
// building the coherent per-tick snapshot the main loop walks (§5
// "schedule walks use a coherent snapshot of the Schedule map per tick").
// A control whose schedule_config fails to parse is logged and skipped
// rather than aborting the refresh for every other control.
func (s *Scheduler) loadSchedule(ctx context.Context) ([]entry, error) {
	configs, err := s.store.ListConfigs(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("load schedule: %w", err)
	}

	entries := make([]entry, 0, len(configs))
	for _, cfg := range configs {
		if !cfg.Status.Bool() {
			continue
		}
		sched, err := parseSchedule(cfg)
		if err != nil {
			s.logger.Warn("scheduler: invalid schedule_config, skipping control",
				"control_name", cfg.ControlName, "error", err)
			continue
		}
		entries = append(entries, entry{cfg: cfg, schedule: sched})
	}
	return entries, nil
}
