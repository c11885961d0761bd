package gateway

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rapo-engine/rapo/internal/metrics"
)

// Gateway is the executor-facing surface of the database layer: a Pool
// plus the statement-execution helpers every control kind drives through.
// Statements sent through Execute, ExecuteMany and QueryScalar pick up
// timing and, on failure, logging of the Document() form; callers that
// query the embedded *sqlx.DB directly (row counts, outdated-run lookup)
// get neither.
type Gateway struct {
	*Pool
	fmt *Formatter
}

func New(pool *Pool) *Gateway {
	return &Gateway{Pool: pool, fmt: NewFormatter(pool.Vendor)}
}

// QuoteIdent quotes a table/column identifier for the gateway's vendor.
func (g *Gateway) QuoteIdent(ident string) string {
	return g.fmt.QuoteIdent(ident)
}

// Document pretty-prints a statement for a log field.
func (g *Gateway) Document(query string) string {
	return g.fmt.Document(query)
}

// Rebind converts a query written with "?" placeholders into the active
// vendor's bind syntax (sqlite keeps "?"; oracle becomes ":arg1",
// ":arg2", ...). Every hand-written statement in internal/store carries
// "?" placeholders and must pass through this before execution — godror
// does not accept "?" at all.
func (g *Gateway) Rebind(query string) string {
	return g.DB.Rebind(query)
}

// LimitClause returns the active vendor's row-limiting suffix for a
// literal row count (sqlite: "LIMIT n", oracle: "FETCH FIRST n ROWS
// ONLY"), since Oracle has no LIMIT keyword.
func (g *Gateway) LimitClause(n int) string {
	return g.fmt.LimitClause(n)
}

// Execute runs a single statement, timing it under the "execute" operation
// label and logging the formatted statement on error. query may be
// written with "?" placeholders regardless of vendor; it is rebound to
// the active driver's bind syntax before running.
func (g *Gateway) Execute(ctx context.Context, query string, args ...any) (sql.Result, error) {
	timer := observeStart("execute")
	defer timer()

	query = g.DB.Rebind(query)
	res, err := g.DB.ExecContext(ctx, query, args...)
	if err != nil {
		g.logger.Error("gateway: statement failed",
			"error", err, "statement", g.fmt.Document(query))
		return nil, fmt.Errorf("execute: %w", err)
	}
	return res, nil
}

// ExecuteMany runs a sequence of statements in order on a single
// transaction, stopping and rolling back at the first failure. This
// backs the reconciliation combination stage and the creation of empty
// error tables when duplicates are allowed.
func (g *Gateway) ExecuteMany(ctx context.Context, queries ...string) error {
	timer := observeStart("execute_many")
	defer timer()

	tx, err := g.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("execute_many: begin: %w", err)
	}
	defer tx.Rollback()

	for i, q := range queries {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			g.logger.Error("gateway: statement failed in batch",
				"error", err, "index", i, "statement", g.fmt.Document(q))
			return fmt.Errorf("execute_many: statement %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("execute_many: commit: %w", err)
	}
	return nil
}

// Task is one side of a Parallelize fan-out: Key identifies the side
// (e.g. "a", "b") for tagging its result, Run performs the work.
type Task struct {
	Key string
	Run func(ctx context.Context) error
}

// Result tags a Task's outcome by key. Parallelize never shares a mutable
// error field across goroutines: each task reports through its own
// channel send, tagged with its own key, so a slow or panicking side can
// never clobber another side's result.
type Result struct {
	Key string
	Err error
}

// Parallelize runs every task concurrently and returns one Result per
// task, tagged by key. This is the primitive behind every A/B fan-out in
// the executor package (fetch A/B, match/mismatch, duplicate-prepare A/B,
// reconsolidation A/B).
func (g *Gateway) Parallelize(ctx context.Context, tasks ...Task) []Result {
	results := make(chan Result, len(tasks))

	for _, task := range tasks {
		task := task
		go func() {
			defer func() {
				if r := recover(); r != nil {
					results <- Result{Key: task.Key, Err: fmt.Errorf("panic: %v", r)}
				}
			}()
			results <- Result{Key: task.Key, Err: task.Run(ctx)}
		}()
	}

	out := make([]Result, 0, len(tasks))
	for range tasks {
		out = append(out, <-results)
	}
	return out
}

// QueryScalar runs query and returns its first column as a string,
// trimmed. Used by _prerequisite to evaluate a pass/fail condition.
func (g *Gateway) QueryScalar(ctx context.Context, query string) (string, error) {
	timer := observeStart("query_scalar")
	defer timer()

	var value sql.NullString
	if err := g.DB.QueryRowContext(ctx, g.DB.Rebind(query)).Scan(&value); err != nil {
		return "", fmt.Errorf("query_scalar: %w", err)
	}
	return strings.TrimSpace(value.String), nil
}

// CallControlHook invokes the vendor's control hook procedure (the
// rapo_prerun_control_hook/rapo_postrun_control_hook PL/SQL calls), used
// by controls with need_prerun_hook/need_postrun_hook set, and returns
// its diagnostic result (§6.3: "returns 'OK' or a diagnostic code"). Only
// the oracle vendor exposes these; on sqlite the call is a documented
// no-op that always reports "OK", since sqlite has no stored-procedure
// facility.
func (g *Gateway) CallControlHook(ctx context.Context, procedure, controlName string, processID int64) (string, error) {
	if g.Vendor != "oracle" {
		g.logger.Debug("gateway: control hook skipped, vendor has no procedures",
			"vendor", g.Vendor, "procedure", procedure)
		return "OK", nil
	}

	timer := observeStart("call_control_hook")
	defer timer()

	var result string
	_, err := g.DB.ExecContext(ctx,
		fmt.Sprintf("BEGIN :result := %s(:control_name, :process_id); END;", procedure),
		sql.Named("result", sql.Out{Dest: &result}),
		sql.Named("control_name", controlName),
		sql.Named("process_id", processID))
	if err != nil {
		return "", fmt.Errorf("call_control_hook %s: %w", procedure, err)
	}
	return result, nil
}

func observeStart(operation string) func() {
	start := time.Now()
	return func() {
		metrics.GatewayStatementDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}
