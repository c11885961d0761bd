package scheduler

import (
	"context"

	"github.com/rapo-engine/rapo/internal/domain"
	"github.com/rapo-engine/rapo/internal/metrics"
	"github.com/rapo-engine/rapo/internal/processid"
)

// runWorker consumes the dispatch queue until ctx is cancelled. Each
// worker runs the dispatched control through the scheduler's shared
// lifecycle.Control to a terminal status; a failure
// is caught and logged, never propagated to the tick loop (§4.7: "each
// worker... catches exceptions into the log").
func (s *Scheduler) runWorker(ctx context.Context, workerID int) {
	for {
		select {
		case <-ctx.Done():
			return
		case item := <-s.queue:
			s.runOne(ctx, workerID, item)
		}
	}
}

func (s *Scheduler) runOne(ctx context.Context, workerID int, item workItem) {
	cfg := item.cfg.cfg
	processID := processid.Next()

	metrics.RunsInFlight.Inc()
	defer metrics.RunsInFlight.Dec()

	colsA, colsB := s.sourceColumns(ctx, &cfg)

	if err := s.store.SaveCheckpoint(ctx, cfg.ControlID, processID); err != nil {
		s.logger.Error("scheduler: save checkpoint failed", "control_name", cfg.ControlName, "error", err)
	}

	if err := s.lifecycle.Run(ctx, &cfg, processID, item.trigger, colsA, colsB, nil); err != nil {
		s.logger.Error("scheduler: control run failed",
			"worker", workerID, "control_name", cfg.ControlName, "process_id", processID, "error", err)
	}

	if err := s.store.ClearCheckpoint(ctx, cfg.ControlID, processID); err != nil {
		s.logger.Warn("scheduler: clear checkpoint failed", "control_name", cfg.ControlName, "error", err)
	}
}

// sourceColumns reflects the A/B source tables' columns, best-effort: a
// reflection failure is logged and the side proceeds with an empty
// column list, which fetch_records treats as "select *".
func (s *Scheduler) sourceColumns(ctx context.Context, cfg *domain.ControlConfig) (colsA, colsB []string) {
	if cfg.SourceName != nil {
		colsA = s.columnNames(ctx, *cfg.SourceName)
	} else if cfg.SourceNameA != nil {
		colsA = s.columnNames(ctx, *cfg.SourceNameA)
	}
	if cfg.SourceNameB != nil {
		colsB = s.columnNames(ctx, *cfg.SourceNameB)
	}
	return colsA, colsB
}

func (s *Scheduler) columnNames(ctx context.Context, table string) []string {
	cols, err := s.gw.Columns(ctx, table)
	if err != nil {
		s.logger.Warn("scheduler: reflect source columns failed", "table", table, "error", err)
		return nil
	}
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}
