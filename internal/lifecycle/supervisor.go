package lifecycle

import (
	"context"
	"time"

	"github.com/rapo-engine/rapo/internal/domain"
	"github.com/rapo-engine/rapo/internal/metrics"
)

// supervise re-reads run's own log row at supervisorCadence (§5): if an
// external cancel-control call has cleared its status to null, or the
// run has exceeded its configured timeout, it calls cancel to abort
// runCtx — unblocking any in-flight context-aware statement — and closes
// cancelled so Run stops waiting on progress's normal completion path.
func (c *Control) supervise(ctx context.Context, cfg *domain.ControlConfig, run *domain.ControlRun, cancel context.CancelFunc, cancelled chan<- struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.supervisorCadence)
	defer ticker.Stop()

	timeout := time.Duration(cfg.TimeoutSec) * time.Second

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			current, err := c.store.GetRun(ctx, run.ProcessID)
			if err != nil {
				c.logger.Warn("supervisor: re-read log row failed", "error", err)
				continue
			}

			cause := ""
			switch {
			case current.Status == domain.StatusDeinitiated:
				cause = "external_cancel"
			case timeout > 0 && run.StartDate != nil && time.Since(*run.StartDate) > timeout:
				cause = "timeout"
			}
			if cause == "" {
				continue
			}

			metrics.SupervisorCancelsTotal.WithLabelValues(cause).Inc()
			cancel()
			close(cancelled)
			return
		}
	}
}
