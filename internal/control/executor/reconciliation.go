package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rapo-engine/rapo/internal/control/parser"
	"github.com/rapo-engine/rapo/internal/domain"
	"github.com/rapo-engine/rapo/internal/gateway"
)

// RunReconciliation implements REC (§4.4): fetch both sides, then run the
// reconciliation stages — combination, duplicate-prepare (A/B parallel;
// skipped when allow_duplicates is set, in which case both error tables
// are created empty), reconsolidation (A/B parallel) — and bind the
// rapo_temp_err/res_[a|b]_<pid> tables as this run's error/result tables
// per side. There is no separate stage after duplicate-prepare that
// finishes the duplicate tables.
func (e *Executor) RunReconciliation(ctx context.Context, cfg *domain.ControlConfig, processID int64, columnsA, columnsB []string, from, to time.Time) (*Outcome, error) {
	rule, err := parser.ParseReconciliationRule(cfg.RuleConfig)
	if err != nil {
		return nil, fmt.Errorf("run reconciliation: %w", err)
	}
	shiftFrom, shiftTo := 0, 0
	if rule.TimeShiftFrom != nil {
		shiftFrom = *rule.TimeShiftFrom
	}
	if rule.TimeShiftTo != nil {
		shiftTo = *rule.TimeShiftTo
	}

	fetchResults := e.gw.Parallelize(ctx,
		gateway.Task{Key: "a", Run: func(ctx context.Context) error {
			_, err := e.FetchSide(ctx, cfg, parser.SideA, columnsA, from, to, shiftFrom, shiftTo, processID)
			return err
		}},
		gateway.Task{Key: "b", Run: func(ctx context.Context) error {
			_, err := e.FetchSide(ctx, cfg, parser.SideB, columnsB, from, to, shiftFrom, shiftTo, processID)
			return err
		}},
	)
	if err := firstError(fetchResults); err != nil {
		return nil, fmt.Errorf("run reconciliation: fetch: %w", err)
	}

	fetchA := parser.FetchTable(processID, parser.SideA)
	fetchB := parser.FetchTable(processID, parser.SideB)

	combined := parser.CombinedTable(processID)
	join := joinPredicate(rule.CorrelationKeysA, rule.CorrelationKeysB)
	if err := e.gw.ExecuteMany(ctx, fmt.Sprintf(
		"CREATE TABLE %s AS SELECT a.*, b.* FROM %s a JOIN %s b ON %s",
		e.gw.QuoteIdent(combined), e.gw.QuoteIdent(fetchA), e.gw.QuoteIdent(fetchB), join),
	); err != nil {
		return nil, fmt.Errorf("run reconciliation: combination: %w", err)
	}

	errA := parser.ErrorTable(processID, parser.SideA)
	errB := parser.ErrorTable(processID, parser.SideB)
	if !rule.AllowDuplicates {
		dupResults := e.gw.Parallelize(ctx,
			gateway.Task{Key: "a", Run: func(ctx context.Context) error {
				return e.gw.CTAS(ctx, errA, duplicateQuery(combined, rule.CorrelationKeysA, e.gw))
			}},
			gateway.Task{Key: "b", Run: func(ctx context.Context) error {
				return e.gw.CTAS(ctx, errB, duplicateQuery(combined, rule.CorrelationKeysB, e.gw))
			}},
		)
		if err := firstError(dupResults); err != nil {
			return nil, fmt.Errorf("run reconciliation: duplicate-prepare: %w", err)
		}
	} else {
		if err := e.gw.ExecuteMany(ctx,
			fmt.Sprintf("CREATE TABLE %s AS SELECT * FROM %s WHERE 1 = 0", e.gw.QuoteIdent(errA), e.gw.QuoteIdent(combined)),
			fmt.Sprintf("CREATE TABLE %s AS SELECT * FROM %s WHERE 1 = 0", e.gw.QuoteIdent(errB), e.gw.QuoteIdent(combined)),
		); err != nil {
			return nil, fmt.Errorf("run reconciliation: duplicate-finish: %w", err)
		}
	}

	resA := parser.ResultTable(processID, parser.SideA)
	resB := parser.ResultTable(processID, parser.SideB)
	discrepancyExpr := discrepancyExpression(rule.Discrepancies)
	reconResults := e.gw.Parallelize(ctx,
		gateway.Task{Key: "a", Run: func(ctx context.Context) error {
			if !rule.NeedReconsA {
				return e.gw.CTAS(ctx, resA, fmt.Sprintf("SELECT * FROM %s WHERE 1 = 0", e.gw.QuoteIdent(combined)))
			}
			return e.gw.CTAS(ctx, resA, fmt.Sprintf("SELECT * FROM %s WHERE %s", e.gw.QuoteIdent(combined), discrepancyExpr))
		}},
		gateway.Task{Key: "b", Run: func(ctx context.Context) error {
			if !rule.NeedReconsB {
				return e.gw.CTAS(ctx, resB, fmt.Sprintf("SELECT * FROM %s WHERE 1 = 0", e.gw.QuoteIdent(combined)))
			}
			return e.gw.CTAS(ctx, resB, fmt.Sprintf("SELECT * FROM %s WHERE %s", e.gw.QuoteIdent(combined), discrepancyExpr))
		}},
	)
	if err := firstError(reconResults); err != nil {
		return nil, fmt.Errorf("run reconciliation: reconsolidation: %w", err)
	}

	fetchedA, err := e.CountRows(ctx, fetchA)
	if err != nil {
		return nil, err
	}
	fetchedB, err := e.CountRows(ctx, fetchB)
	if err != nil {
		return nil, err
	}
	errorA, err := e.CountRows(ctx, errA)
	if err != nil {
		return nil, err
	}
	errorB, err := e.CountRows(ctx, errB)
	if err != nil {
		return nil, err
	}

	return &Outcome{
		FetchedA:     fetchedA,
		FetchedB:     fetchedB,
		ErrorA:       errorA,
		ErrorB:       errorB,
		SuccessA:     fetchedA - errorA,
		SuccessB:     fetchedB - errorB,
		ErrorLevelA:  errorLevel(errorA, fetchedA),
		ErrorLevelB:  errorLevel(errorB, fetchedB),
		ErrorTableA:  errA,
		ErrorTableB:  errB,
		ResultTableA: resA,
		ResultTableB: resB,
	}, nil
}

func duplicateQuery(combined string, keys []string, gw *gateway.Gateway) string {
	if len(keys) == 0 {
		return fmt.Sprintf("SELECT * FROM %s WHERE 1 = 0", gw.QuoteIdent(combined))
	}
	return fmt.Sprintf(
		"SELECT t.* FROM %s t JOIN (SELECT %s FROM %s GROUP BY %s HAVING COUNT(*) > 1) d ON %s",
		gw.QuoteIdent(combined), strings.Join(keys, ", "), gw.QuoteIdent(combined), strings.Join(keys, ", "),
		strings.Join(dupJoinConditions(keys), " AND "))
}

func dupJoinConditions(keys []string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = fmt.Sprintf("t.%s = d.%s", k, k)
	}
	return out
}

// discrepancyExpression builds an OR of per-field rules: a non-zero
// formula result, or a direct field comparison when no formula is given.
func discrepancyExpression(rules []domain.DiscrepancyRule) string {
	if len(rules) == 0 {
		return "1 = 0"
	}
	parts := make([]string, 0, len(rules))
	for _, r := range rules {
		if r.Formula != nil && *r.Formula != "" {
			parts = append(parts, "("+*r.Formula+")")
			continue
		}
		parts = append(parts, fmt.Sprintf("(%s %s)", r.Field, r.Rule))
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}
