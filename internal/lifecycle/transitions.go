package lifecycle

import (
	"context"
	"time"

	"github.com/rapo-engine/rapo/internal/control/executor"
	"github.com/rapo-engine/rapo/internal/domain"
	"github.com/rapo-engine/rapo/internal/log"
	"github.com/rapo-engine/rapo/internal/metrics"
)

func contextWithControl(ctx context.Context, name string, processID int64) context.Context {
	ctx = log.WithControlName(ctx, name)
	return log.WithProcessID(ctx, processID)
}

// transitionDone finalizes a successful run: status D, counters copied
// from outcome, end_date set.
func (c *Control) transitionDone(ctx context.Context, cfg *domain.ControlConfig, run *domain.ControlRun, outcome *executor.Outcome) error {
	applyOutcome(cfg, run, outcome)
	now := time.Now()
	run.EndDate = &now
	if err := c.setStatus(ctx, run, domain.StatusDone); err != nil {
		return &LifecycleError{Kind: KindInvariantViolation, Err: err}
	}
	metrics.RunsTotal.WithLabelValues(string(cfg.ControlType), string(domain.StatusDone)).Inc()
	metrics.ErrorLevel.WithLabelValues(cfg.ControlName).Observe(derefFloat(run.ErrorLevelA))
	return nil
}

// transitionError records an in-flight failure: status E, text_error set,
// end_date set. Temp tables are dropped here rather than left for the
// scheduled sweep, because the caller clears this run's checkpoint right
// after Run returns regardless of outcome — once that happens the sweep
// can no longer find this process_id's rapo_temp_* tables (invariant 2).
func (c *Control) transitionError(ctx context.Context, cfg *domain.ControlConfig, run *domain.ControlRun, lerr error) error {
	twoSided := cfg.ControlType == domain.ControlReconciliation || cfg.ControlType == domain.ControlComparison
	if err := c.executor.DropTempTables(ctx, run.ProcessID, twoSided); err != nil {
		c.logger.Warn("error: drop temp tables failed", "error", err)
	}

	now := time.Now()
	run.EndDate = &now
	msg := lerr.Error()
	run.TextError = &msg
	if err := c.setStatus(ctx, run, domain.StatusError); err != nil {
		return &LifecycleError{Kind: KindInvariantViolation, Err: err}
	}
	metrics.RunsTotal.WithLabelValues(string(cfg.ControlType), string(domain.StatusError)).Inc()
	return lerr
}

// transitionCancelled handles a supervisor-forced cancel: temp tables
// dropped, output rows for this process_id deleted, status C.
func (c *Control) transitionCancelled(ctx context.Context, cfg *domain.ControlConfig, run *domain.ControlRun) error {
	twoSided := cfg.ControlType == domain.ControlReconciliation || cfg.ControlType == domain.ControlComparison
	if err := c.executor.DropTempTables(ctx, run.ProcessID, twoSided); err != nil {
		c.logger.Warn("cancel: drop temp tables failed", "error", err)
	}
	c.deleteOutputsBestEffort(ctx, cfg, run.ProcessID)

	now := time.Now()
	run.EndDate = &now
	if err := c.setStatus(ctx, run, domain.StatusCanceled); err != nil {
		return &LifecycleError{Kind: KindInvariantViolation, Err: err}
	}
	metrics.RunsTotal.WithLabelValues(string(cfg.ControlType), string(domain.StatusCanceled)).Inc()
	return &LifecycleError{Kind: KindCancellationRequested, Err: context.Canceled}
}

// transitionDeinitiated handles a prerequisite gate that did not pass:
// the row moves straight from I to null without ever reaching S, and no
// text_error is recorded since this is a deliberate skip, not a fault.
func (c *Control) transitionDeinitiated(ctx context.Context, cfg *domain.ControlConfig, run *domain.ControlRun) error {
	now := time.Now()
	run.EndDate = &now
	if err := c.setStatus(ctx, run, domain.StatusDeinitiated); err != nil {
		return &LifecycleError{Kind: KindInvariantViolation, Err: err}
	}
	metrics.RunsTotal.WithLabelValues(string(cfg.ControlType), "deinitiated").Inc()
	return nil
}

// Revoke implements the external revoke-control-run operation (§6.2):
// delete this run's output rows and mark it X. Unlike cancel, revoke
// applies to an already-terminal run, so no temp tables remain to drop.
func (c *Control) Revoke(ctx context.Context, cfg *domain.ControlConfig, run *domain.ControlRun) error {
	c.deleteOutputsBestEffort(ctx, cfg, run.ProcessID)
	now := time.Now()
	run.EndDate = &now
	return c.setStatus(ctx, run, domain.StatusRevoked)
}

func (c *Control) deleteOutputsBestEffort(ctx context.Context, cfg *domain.ControlConfig, processID int64) {
	tables := []string{cfg.OutputTableName()}
	if cfg.ControlType == domain.ControlReconciliation {
		tables = []string{cfg.OutputTableNameA(), cfg.OutputTableNameB()}
	}
	for _, t := range tables {
		exists, err := c.gw.Exists(ctx, t)
		if err != nil || !exists {
			continue
		}
		if err := c.executor.DeleteOutputRecords(ctx, cfg, t, processID); err != nil {
			c.logger.Warn("delete output records failed", "table", t, "error", err)
		}
	}
}

func derefFloat(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
