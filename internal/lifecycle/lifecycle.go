// Package lifecycle drives the control state machine (C6): initiate →
// prepare → prerequisite → prerun-hook → start → progress (fetch/execute/
// save) → finish → complete → done/error/cancel/revoke (§4.3). It owns
// the supervisor goroutine that watches a run for an external cancel or
// a timeout and forces it into the cancelled state.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"log/slog"

	"github.com/rapo-engine/rapo/internal/control/executor"
	"github.com/rapo-engine/rapo/internal/control/parser"
	"github.com/rapo-engine/rapo/internal/domain"
	"github.com/rapo-engine/rapo/internal/gateway"
	"github.com/rapo-engine/rapo/internal/metrics"
	"github.com/rapo-engine/rapo/internal/store"
)

// ErrorKind tags why a run failed to reach D, distinguishing invariant
// violations (a bug in the engine) from ordinary operational failures.
type ErrorKind string

const (
	KindConfigError           ErrorKind = "config"
	KindPlanError             ErrorKind = "plan"
	KindExecutionError        ErrorKind = "execution"
	KindCancellationRequested ErrorKind = "cancelled"
	KindInvariantViolation    ErrorKind = "invariant"
)

// LifecycleError tags an error with its ErrorKind, so callers and the log
// line can distinguish a cancellation from a genuine failure.
type LifecycleError struct {
	Kind ErrorKind
	Err  error
}

func (e *LifecycleError) Error() string { return fmt.Sprintf("%s: %v", e.Kind, e.Err) }
func (e *LifecycleError) Unwrap() error { return e.Err }

// Control runs a single control through its full lifecycle.
type Control struct {
	store    *store.Store
	gw       *gateway.Gateway
	executor *executor.Executor
	logger   *slog.Logger

	supervisorCadence time.Duration
}

func New(st *store.Store, gw *gateway.Gateway, logger *slog.Logger) *Control {
	return &Control{
		store:             st,
		gw:                gw,
		executor:          executor.New(gw),
		logger:            logger.With("component", "lifecycle"),
		supervisorCadence: 5 * time.Second,
	}
}

// Window overrides the date_from/date_to the engine would otherwise
// derive from cfg's period_back/period_number/period_type (§6.2
// run-control's date_from/date_to query parameters).
type Window struct {
	From, To time.Time
}

// Run executes cfg once, end to end, writing every status transition to
// rapo_log. A control failure is recorded as status E and its error is
// also returned; a cancellation is recorded as C and returned as a
// cancelled LifecycleError; a gate that does not pass leaves the run
// deinitiated and returns nil, as does a run that ends D. windowOverride
// is nil for the scheduler's normal dispatch, where the window is always
// derived from trigger.
func (c *Control) Run(ctx context.Context, cfg *domain.ControlConfig, processID int64, trigger time.Time, sourceColumnsA, sourceColumnsB []string, windowOverride *Window) error {
	log := c.logger.With("control_name", cfg.ControlName, "process_id", processID)
	ctx = contextWithControl(ctx, cfg.ControlName, processID)

	run := &domain.ControlRun{
		ProcessID: processID,
		ControlID: cfg.ControlID,
		Added:     time.Now(),
		Status:    domain.StatusInitiated,
		Updated:   time.Now(),
	}
	if err := c.store.InsertRun(ctx, run); err != nil {
		return &LifecycleError{Kind: KindInvariantViolation, Err: err}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	supervisorDone := make(chan struct{})
	cancelled := make(chan struct{})
	go c.supervise(runCtx, cfg, run, cancel, cancelled, supervisorDone)
	defer func() {
		cancel()
		<-supervisorDone
	}()

	type progressResult struct {
		outcome *executor.Outcome
		err     error
	}
	progressDone := make(chan progressResult, 1)
	start := time.Now()
	go func() {
		outcome, lerr := c.progress(runCtx, cfg, run, trigger, sourceColumnsA, sourceColumnsB, windowOverride)
		progressDone <- progressResult{outcome, lerr}
	}()

	var outcome *executor.Outcome
	var lerr error
	select {
	case <-cancelled:
		// runCtx is already cancelled, so progress is unwinding; wait for
		// it to actually return before transitioning the run so no worker
		// strand is left touching run after Run returns.
		<-progressDone
		log.Warn("run preempted by supervisor")
		metrics.RunDuration.WithLabelValues(string(cfg.ControlType), string(run.Status)).Observe(time.Since(start).Seconds())
		return c.transitionCancelled(ctx, cfg, run)
	case res := <-progressDone:
		select {
		case <-cancelled:
			metrics.RunDuration.WithLabelValues(string(cfg.ControlType), string(run.Status)).Observe(time.Since(start).Seconds())
			return c.transitionCancelled(ctx, cfg, run)
		default:
		}
		outcome, lerr = res.outcome, res.err
	}
	metrics.RunDuration.WithLabelValues(string(cfg.ControlType), string(run.Status)).Observe(time.Since(start).Seconds())

	if lerr != nil {
		if errors.Is(lerr, errGateRejected) {
			return c.transitionDeinitiated(ctx, cfg, run)
		}
		return c.transitionError(ctx, cfg, run, lerr)
	}
	return c.transitionDone(ctx, cfg, run, outcome)
}

func (c *Control) setStatus(ctx context.Context, run *domain.ControlRun, status domain.RunStatus) error {
	run.Status = status
	run.Updated = time.Now()
	if status == domain.StatusStarted && run.StartDate == nil {
		now := time.Now()
		run.StartDate = &now
	}
	return c.store.UpdateRun(ctx, run)
}
