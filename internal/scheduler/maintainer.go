package scheduler

import (
	"context"
	"time"

	"github.com/rapo-engine/rapo/internal/control/parser"
	"github.com/rapo-engine/rapo/internal/domain"
)

// runMaintainer waits on the maintenance-requested event set by the tick
// loop at maintenance_interval cadence and, on each firing, cleans
// outdated results for every configured control plus the checkpoint
// sweep over orphaned scratch tables (§4.7 "maintainer thread... invoking
// control clean for each configured control").
func (s *Scheduler) runMaintainer(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.maintenance:
			s.maintain(ctx)
		}
	}
}

func (s *Scheduler) maintain(ctx context.Context) {
	s.logger.Info("scheduler: maintenance event fired")

	configs, err := s.store.ListConfigs(ctx, "")
	if err != nil {
		s.logger.Error("scheduler: maintenance: list configs failed", "error", err)
	} else {
		for _, cfg := range configs {
			s.cleanControl(ctx, &cfg)
		}
	}

	if _, err := s.gw.Cleanup(ctx, 24*time.Hour); err != nil {
		s.logger.Error("scheduler: maintenance: checkpoint sweep failed", "error", err)
	}
}

// cleanControl deletes output rows older than days_retention for one
// control, across every output table it may have (§4.5).
func (s *Scheduler) cleanControl(ctx context.Context, cfg *domain.ControlConfig) {
	tables := []string{cfg.OutputTableName()}
	if cfg.ControlType == domain.ControlReconciliation {
		tables = []string{cfg.OutputTableNameA(), cfg.OutputTableNameB()}
	}

	for _, table := range tables {
		exists, err := s.gw.Exists(ctx, table)
		if err != nil || !exists {
			continue
		}
		ids, err := parser.OutdatedProcessIDs(ctx, s.gw, cfg, table, time.Now())
		if err != nil {
			s.logger.Warn("scheduler: maintenance: outdated lookup failed",
				"control_name", cfg.ControlName, "table", table, "error", err)
			continue
		}
		for _, pid := range ids {
			run, err := s.store.GetRun(ctx, pid)
			if err != nil {
				s.logger.Warn("scheduler: maintenance: load outdated run failed",
					"control_name", cfg.ControlName, "process_id", pid, "error", err)
				continue
			}
			if err := s.lifecycle.Revoke(ctx, cfg, run); err != nil {
				s.logger.Warn("scheduler: maintenance: revoke outdated run failed",
					"control_name", cfg.ControlName, "process_id", pid, "error", err)
			}
		}
	}
}
