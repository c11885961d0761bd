// Package executor is the Control Executor (C5): it issues the
// DB-level operations the lifecycle drives — fetch into a temp table,
// analyze/match/mismatch/reconsolidate, count, save, prepare the output
// table, and drop temps. Every control kind (ANL/CMP/REC/REP) is built
// from these shared primitives plus its own analyze/match stage.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/rapo-engine/rapo/internal/control/parser"
	"github.com/rapo-engine/rapo/internal/domain"
	"github.com/rapo-engine/rapo/internal/gateway"
)

type Executor struct {
	gw *gateway.Gateway
}

func New(gw *gateway.Gateway) *Executor {
	return &Executor{gw: gw}
}

// Outcome is the set of counters and table bindings a run accumulates,
// mirrored straight into ControlRun's _a/_b fields by the lifecycle.
type Outcome struct {
	FetchedA, FetchedB int64
	SuccessA, SuccessB int64
	ErrorA, ErrorB     int64
	ErrorLevelA        float64
	ErrorLevelB        float64
	ErrorTableA        string
	ErrorTableB        string
	ResultTableA       string
	ResultTableB       string
}

func errorLevel(errors, fetched int64) float64 {
	if fetched == 0 {
		return 0
	}
	return float64(errors) / float64(fetched) * 100
}

// FetchSide compiles and materializes one side's selection plan into its
// fetch temp table (§4.4 fetch_records[_a/_b]).
func (e *Executor) FetchSide(ctx context.Context, cfg *domain.ControlConfig, side parser.Side, sourceColumns []string, from, to time.Time, shiftFromSec, shiftToSec int, processID int64) (int64, error) {
	plan, err := parser.BuildPlan(cfg, side, sourceColumns, from, to, shiftFromSec, shiftToSec)
	if err != nil {
		return 0, fmt.Errorf("fetch side %q: build plan: %w", side, err)
	}
	target := parser.FetchTable(processID, side)
	if err := e.gw.CTAS(ctx, target, plan.SQL()); err != nil {
		return 0, fmt.Errorf("fetch side %q: %w", side, err)
	}
	return e.CountRows(ctx, target)
}

// CountRows implements count_fetched/_errors/_matched/_mismatched.
func (e *Executor) CountRows(ctx context.Context, table string) (int64, error) {
	var n int64
	err := e.gw.DB.GetContext(ctx, &n, fmt.Sprintf("SELECT COUNT(*) FROM %s", e.gw.QuoteIdent(table)))
	if err != nil {
		return 0, fmt.Errorf("count rows %s: %w", table, err)
	}
	return n, nil
}

// DropTempTables purges every temp table the parser enumerates for this
// run's process_id, regardless of how far execution got.
func (e *Executor) DropTempTables(ctx context.Context, processID int64, twoSided bool) error {
	for _, t := range parser.TempTablesFor(processID, twoSided) {
		if err := e.gw.Purge(ctx, t); err != nil {
			return fmt.Errorf("drop temp table %s: %w", t, err)
		}
	}
	return nil
}
