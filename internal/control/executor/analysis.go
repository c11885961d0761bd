package executor

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rapo-engine/rapo/internal/control/parser"
	"github.com/rapo-engine/rapo/internal/domain"
)

// RunAnalysis implements ANL (§4.4): fetch one side, classify rows
// against error_definition, materialize the failing subset into
// rapo_temp_err_<pid>, and derive success/error counters.
func (e *Executor) RunAnalysis(ctx context.Context, cfg *domain.ControlConfig, processID int64, sourceColumns []string, from, to time.Time) (*Outcome, error) {
	fetched, err := e.FetchSide(ctx, cfg, parser.SideNone, sourceColumns, from, to, 0, 0, processID)
	if err != nil {
		return nil, err
	}
	fetchTable := parser.FetchTable(processID, parser.SideNone)
	errTable := parser.ErrorTable(processID, parser.SideNone)

	expr, err := errorExpression(cfg)
	if err != nil {
		return nil, fmt.Errorf("run analysis: %w", err)
	}
	if err := e.gw.CTAS(ctx, errTable, fmt.Sprintf("SELECT * FROM %s WHERE %s", e.gw.QuoteIdent(fetchTable), expr)); err != nil {
		return nil, fmt.Errorf("run analysis: materialize errors: %w", err)
	}

	errCount, err := e.CountRows(ctx, errTable)
	if err != nil {
		return nil, err
	}

	return &Outcome{
		FetchedA:    fetched,
		ErrorA:      errCount,
		SuccessA:    fetched - errCount,
		ErrorLevelA: errorLevel(errCount, fetched),
		ErrorTableA: errTable,
	}, nil
}

// RunReport implements REP: the same shape as ANL, but every fetched row
// is considered a finding — the error set is the whole fetch table.
func (e *Executor) RunReport(ctx context.Context, cfg *domain.ControlConfig, processID int64, sourceColumns []string, from, to time.Time) (*Outcome, error) {
	fetched, err := e.FetchSide(ctx, cfg, parser.SideNone, sourceColumns, from, to, 0, 0, processID)
	if err != nil {
		return nil, err
	}
	fetchTable := parser.FetchTable(processID, parser.SideNone)
	errTable := parser.ErrorTable(processID, parser.SideNone)

	if err := e.gw.CTAS(ctx, errTable, fmt.Sprintf("SELECT * FROM %s", e.gw.QuoteIdent(fetchTable))); err != nil {
		return nil, fmt.Errorf("run report: materialize findings: %w", err)
	}

	return &Outcome{
		FetchedA:    fetched,
		ErrorA:      fetched,
		SuccessA:    0,
		ErrorLevelA: 100,
		ErrorTableA: errTable,
	}, nil
}

// errorExpression compiles error_definition into a SQL boolean
// expression: verbatim if it fails to parse as the JSON condition list,
// OR-combined across conditions otherwise (any single failing condition
// marks the row as an error), and falling back to the configured case
// types when no error_definition is present at all.
func errorExpression(cfg *domain.ControlConfig) (string, error) {
	if conds, ok := parser.ParseErrorDefinition(cfg.ErrorDefinition); ok {
		if len(conds) == 0 {
			return "1 = 0", nil
		}
		parts := make([]string, 0, len(conds))
		for _, c := range conds {
			parts = append(parts, conditionSQL(c))
		}
		return "(" + strings.Join(parts, " OR ") + ")", nil
	}
	if cfg.ErrorDefinition != nil && *cfg.ErrorDefinition != "" {
		return "(" + *cfg.ErrorDefinition + ")", nil
	}
	return "(rapo_result_type IN ('Info','Error','Warning','Incident','Discrepancy') OR rapo_result_type IS NULL)", nil
}

func conditionSQL(c domain.ErrorCondition) string {
	if c.IsColumn {
		return fmt.Sprintf("%s %s %v", c.Column, c.Relation, c.Value)
	}
	return fmt.Sprintf("%s %s %s", c.Column, c.Relation, literalSQL(c.Value))
}

func literalSQL(v any) string {
	switch val := v.(type) {
	case string:
		return "'" + strings.ReplaceAll(val, "'", "''") + "'"
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", val)
	}
}
