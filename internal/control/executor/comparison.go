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

// RunComparison implements CMP (method MA, §4.4): fetch both sides, then
// run match and mismatch in parallel strands, each an inner join on the
// rule's correlation keys filtered by the comparison columns named in
// error_definition (equality for match, inequality for mismatch).
func (e *Executor) RunComparison(ctx context.Context, cfg *domain.ControlConfig, processID int64, columnsA, columnsB []string, from, to time.Time) (*Outcome, error) {
	rule, err := parser.ParseReconciliationRule(cfg.RuleConfig)
	if err != nil {
		return nil, fmt.Errorf("run comparison: %w", err)
	}

	fetchResults := e.gw.Parallelize(ctx,
		gateway.Task{Key: "a", Run: func(ctx context.Context) error {
			_, err := e.FetchSide(ctx, cfg, parser.SideA, columnsA, from, to, 0, 0, processID)
			return err
		}},
		gateway.Task{Key: "b", Run: func(ctx context.Context) error {
			_, err := e.FetchSide(ctx, cfg, parser.SideB, columnsB, from, to, 0, 0, processID)
			return err
		}},
	)
	if err := firstError(fetchResults); err != nil {
		return nil, fmt.Errorf("run comparison: fetch: %w", err)
	}

	fetchA := parser.FetchTable(processID, parser.SideA)
	fetchB := parser.FetchTable(processID, parser.SideB)

	fetchedA, err := e.CountRows(ctx, fetchA)
	if err != nil {
		return nil, err
	}
	fetchedB, err := e.CountRows(ctx, fetchB)
	if err != nil {
		return nil, err
	}

	join := joinPredicate(rule.CorrelationKeysA, rule.CorrelationKeysB)
	conds, _ := parser.ParseErrorDefinition(cfg.ErrorDefinition)
	matchExpr, mismatchExpr := comparisonExpressions(conds)

	matchTable := parser.ErrorTable(processID, parser.SideA) // reused as the success/match set
	mismatchTable := parser.ErrorTable(processID, parser.SideB)

	stageResults := e.gw.Parallelize(ctx,
		gateway.Task{Key: "match", Run: func(ctx context.Context) error {
			return e.gw.CTAS(ctx, matchTable, fmt.Sprintf(
				"SELECT a.* FROM %s a JOIN %s b ON %s WHERE %s",
				e.gw.QuoteIdent(fetchA), e.gw.QuoteIdent(fetchB), join, matchExpr))
		}},
		gateway.Task{Key: "mismatch", Run: func(ctx context.Context) error {
			return e.gw.CTAS(ctx, mismatchTable, fmt.Sprintf(
				"SELECT a.* FROM %s a JOIN %s b ON %s WHERE %s",
				e.gw.QuoteIdent(fetchA), e.gw.QuoteIdent(fetchB), join, mismatchExpr))
		}},
	)
	if err := firstError(stageResults); err != nil {
		return nil, fmt.Errorf("run comparison: match/mismatch: %w", err)
	}

	success, err := e.CountRows(ctx, matchTable)
	if err != nil {
		return nil, err
	}
	errs, err := e.CountRows(ctx, mismatchTable)
	if err != nil {
		return nil, err
	}

	return &Outcome{
		FetchedA:    fetchedA,
		FetchedB:    fetchedB,
		SuccessA:    success,
		ErrorA:      errs,
		ErrorLevelA: errorLevel(errs, success+errs),
		ErrorTableA: mismatchTable,
		ResultTableA: matchTable,
	}, nil
}

func joinPredicate(keysA, keysB []string) string {
	if len(keysA) == 0 || len(keysA) != len(keysB) {
		return "1 = 1"
	}
	parts := make([]string, len(keysA))
	for i := range keysA {
		parts[i] = fmt.Sprintf("a.%s = b.%s", keysA[i], keysB[i])
	}
	return strings.Join(parts, " AND ")
}

// comparisonExpressions builds the match (all comparison columns equal)
// and mismatch (any comparison column differs) predicates from
// error_definition conditions shaped {column: a-side col, value: b-side
// col, is_column: true}.
func comparisonExpressions(conds []domain.ErrorCondition) (match, mismatch string) {
	if len(conds) == 0 {
		return "1 = 1", "1 = 0"
	}
	eq := make([]string, 0, len(conds))
	neq := make([]string, 0, len(conds))
	for _, c := range conds {
		bCol := fmt.Sprintf("%v", c.Value)
		eq = append(eq, fmt.Sprintf("a.%s = b.%s", c.Column, bCol))
		neq = append(neq, fmt.Sprintf("a.%s != b.%s", c.Column, bCol))
	}
	return "(" + strings.Join(eq, " AND ") + ")", "(" + strings.Join(neq, " OR ") + ")"
}

func firstError(results []gateway.Result) error {
	for _, r := range results {
		if r.Err != nil {
			return fmt.Errorf("%s: %w", r.Key, r.Err)
		}
	}
	return nil
}
