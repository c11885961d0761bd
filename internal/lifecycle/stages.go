package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/rapo-engine/rapo/internal/control/executor"
	"github.com/rapo-engine/rapo/internal/control/parser"
	"github.com/rapo-engine/rapo/internal/domain"
)

// progress walks a run from I through F, returning the accumulated
// Outcome on success. It follows the diagram's three pre-Started gates in
// order — _prepare, _prerequisite, _prerun_hook — and the two post-
// Finishing gates — _complete, _postrun_hook — each optional and, for
// the two PL/SQL hook gates, controlled by its need_* flag.
func (c *Control) progress(ctx context.Context, cfg *domain.ControlConfig, run *domain.ControlRun, trigger time.Time, colsA, colsB []string, windowOverride *Window) (*executor.Outcome, error) {
	var from, to time.Time
	if windowOverride != nil {
		from, to = windowOverride.From, windowOverride.To
	} else {
		from, to = parser.Window(trigger, cfg)
	}
	run.DateFrom, run.DateTo = from, to

	if err := c.runHook(ctx, cfg.PreparationSQL); err != nil {
		return nil, &LifecycleError{Kind: KindConfigError, Err: fmt.Errorf("prepare: %w", err)}
	}

	pass, err := c.runPrerequisite(ctx, cfg, run)
	if err != nil {
		return nil, &LifecycleError{Kind: KindConfigError, Err: fmt.Errorf("prerequisite: %w", err)}
	}
	if !pass {
		return nil, &LifecycleError{Kind: KindCancellationRequested, Err: errGateRejected}
	}

	if cfg.NeedPrerunHook.Bool() {
		result, err := c.gw.CallControlHook(ctx, "rapo_prerun_control_hook", cfg.ControlName, run.ProcessID)
		if err != nil {
			return nil, &LifecycleError{Kind: KindConfigError, Err: fmt.Errorf("prerun_hook: %w", err)}
		}
		if result != "OK" {
			msg := "prerun_hook: " + result
			run.TextMessage = &msg
			return nil, &LifecycleError{Kind: KindCancellationRequested, Err: errGateRejected}
		}
	}

	if err := c.setStatus(ctx, run, domain.StatusStarted); err != nil {
		return nil, &LifecycleError{Kind: KindInvariantViolation, Err: err}
	}
	if err := c.setStatus(ctx, run, domain.StatusInProgress); err != nil {
		return nil, &LifecycleError{Kind: KindInvariantViolation, Err: err}
	}

	outcome, err := c.execute(ctx, cfg, run, colsA, colsB, from, to)
	if err != nil {
		return nil, &LifecycleError{Kind: KindExecutionError, Err: err}
	}

	if err := c.saveOutcome(ctx, cfg, run, outcome); err != nil {
		return nil, &LifecycleError{Kind: KindExecutionError, Err: err}
	}

	if err := c.setStatus(ctx, run, domain.StatusFinishing); err != nil {
		return nil, &LifecycleError{Kind: KindInvariantViolation, Err: err}
	}

	if err := c.runHook(ctx, cfg.CompletionSQL); err != nil {
		return nil, &LifecycleError{Kind: KindPlanError, Err: fmt.Errorf("complete: %w", err)}
	}
	if cfg.NeedPostrunHook.Bool() {
		// postrun is advisory (§7): its result never fails an otherwise
		// successful run, so any failure here is logged and swallowed.
		if result, err := c.gw.CallControlHook(ctx, "rapo_postrun_control_hook", cfg.ControlName, run.ProcessID); err != nil {
			c.logger.Warn("postrun_hook failed", "error", err)
		} else if result != "OK" {
			c.logger.Warn("postrun_hook returned non-OK diagnostic", "result", result)
		}
	}

	twoSided := cfg.ControlType == domain.ControlReconciliation || cfg.ControlType == domain.ControlComparison
	if err := c.executor.DropTempTables(ctx, run.ProcessID, twoSided); err != nil {
		c.logger.Warn("drop temp tables failed", "error", err)
	}

	return outcome, nil
}

// errGateRejected marks either pre-Started gate (_prerequisite,
// _prerun_hook) declining to let the run proceed: a deliberate skip, not
// a fault, so it routes to the deinitiated state rather than E.
var errGateRejected = fmt.Errorf("gate did not pass")

// runPrerequisite evaluates prerequisite_sql as a scalar condition and
// records its raw value on the run. A missing or empty statement always
// passes; a statement whose result is empty, "0", "false", or "N" does
// not.
func (c *Control) runPrerequisite(ctx context.Context, cfg *domain.ControlConfig, run *domain.ControlRun) (bool, error) {
	if cfg.PrerequisiteSQL == nil || *cfg.PrerequisiteSQL == "" {
		return true, nil
	}
	value, err := c.gw.QueryScalar(ctx, *cfg.PrerequisiteSQL)
	if err != nil {
		return false, err
	}
	run.PrerequisiteValue = &value
	switch value {
	case "", "0", "false", "N":
		return false, nil
	default:
		return true, nil
	}
}

func (c *Control) runHook(ctx context.Context, sql *string) error {
	if sql == nil || *sql == "" {
		return nil
	}
	_, err := c.gw.Execute(ctx, *sql)
	return err
}

// execute dispatches to the control-type-specific executor operation.
func (c *Control) execute(ctx context.Context, cfg *domain.ControlConfig, run *domain.ControlRun, colsA, colsB []string, from, to time.Time) (*executor.Outcome, error) {
	switch cfg.ControlType {
	case domain.ControlAnalysis:
		return c.executor.RunAnalysis(ctx, cfg, run.ProcessID, colsA, from, to)
	case domain.ControlReport:
		return c.executor.RunReport(ctx, cfg, run.ProcessID, colsA, from, to)
	case domain.ControlComparison:
		return c.executor.RunComparison(ctx, cfg, run.ProcessID, colsA, colsB, from, to)
	case domain.ControlReconciliation:
		return c.executor.RunReconciliation(ctx, cfg, run.ProcessID, colsA, colsB, from, to)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidControlType, cfg.ControlType)
	}
}

// saveOutcome persists the executor's result table(s) into the control's
// output table(s), preparing them first if absent. A side with zero
// errors is never saved: the output table exists to hold exceptions, so
// a clean run must neither create it nor append an empty batch to it
// (§9 Open Question #1).
func (c *Control) saveOutcome(ctx context.Context, cfg *domain.ControlConfig, run *domain.ControlRun, outcome *executor.Outcome) error {
	switch cfg.ControlType {
	case domain.ControlReconciliation:
		outA, outB := cfg.OutputTableNameA(), cfg.OutputTableNameB()
		if outcome.ErrorA > 0 {
			if err := c.executor.PrepareOutputTable(ctx, cfg, outA, outcome.ErrorTableA); err != nil {
				return err
			}
			if err := c.executor.SaveRows(ctx, outcome.ErrorTableA, outA, run.ProcessID); err != nil {
				return err
			}
		}
		if outcome.ErrorB > 0 {
			if err := c.executor.PrepareOutputTable(ctx, cfg, outB, outcome.ErrorTableB); err != nil {
				return err
			}
			if err := c.executor.SaveRows(ctx, outcome.ErrorTableB, outB, run.ProcessID); err != nil {
				return err
			}
		}
		return nil
	default:
		if outcome.ErrorA == 0 {
			return nil
		}
		out := cfg.OutputTableName()
		if err := c.executor.PrepareOutputTable(ctx, cfg, out, outcome.ErrorTableA); err != nil {
			return err
		}
		return c.executor.SaveRows(ctx, outcome.ErrorTableA, out, run.ProcessID)
	}
}

func applyOutcome(cfg *domain.ControlConfig, run *domain.ControlRun, o *executor.Outcome) {
	run.FetchedNumberA = &o.FetchedA
	run.SuccessNumberA = &o.SuccessA
	run.ErrorNumberA = &o.ErrorA
	run.ErrorLevelA = &o.ErrorLevelA

	twoSided := cfg.ControlType == domain.ControlReconciliation || cfg.ControlType == domain.ControlComparison
	if twoSided {
		run.FetchedNumberB = &o.FetchedB
		run.SuccessNumberB = &o.SuccessB
		run.ErrorNumberB = &o.ErrorB
		run.ErrorLevelB = &o.ErrorLevelB
	}
}
