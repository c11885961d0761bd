package parser

import (
	"fmt"
	"strings"
	"time"

	"github.com/rapo-engine/rapo/internal/domain"
)

const dateLayout = "2006-01-02 15:04:05"

// SelectPlan is the compiled shape of fetch_records[_a/_b]: source table,
// source columns plus the synthesized rapo_result_* columns, an optional
// free-text filter, and a between-clause on the date field.
type SelectPlan struct {
	Source     string
	Columns    []string
	Filter     string
	DateField  string
	DateFrom   time.Time
	DateTo     time.Time
	Parallelism *int
}

// SQL renders the plan to a SELECT statement. Date bounds are formatted
// with to_date(...) on both sides per §4.5, matching the source dialect's
// literal-date idiom rather than driver-level bind parameters, since the
// statement is staged into a CTAS and logged verbatim for audit.
func (p SelectPlan) SQL() string {
	var b strings.Builder
	b.WriteString("SELECT ")
	if p.Parallelism != nil && *p.Parallelism > 0 {
		fmt.Fprintf(&b, "/*+ PARALLEL(%d) */ ", *p.Parallelism)
	}
	b.WriteString(strings.Join(p.Columns, ", "))
	fmt.Fprintf(&b, " FROM %s WHERE %s BETWEEN to_date('%s','YYYY-MM-DD HH24:MI:SS') AND to_date('%s','YYYY-MM-DD HH24:MI:SS')",
		p.Source, p.DateField, p.DateFrom.Format(dateLayout), p.DateTo.Format(dateLayout))
	if p.Filter != "" {
		fmt.Fprintf(&b, " AND (%s)", p.Filter)
	}
	return b.String()
}

// BuildPlan compiles one side of a control's fetch into a SelectPlan. For
// REC controls, timeShift nudges the bounds per the reconciliation rule's
// time_shift_from/to (seconds); pass 0 for controls without a shift.
func BuildPlan(cfg *domain.ControlConfig, side Side, sourceColumns []string, from, to time.Time, timeShiftFromSec, timeShiftToSec int) (SelectPlan, error) {
	cases, err := ParseCaseConfig(cfg.CaseConfig)
	if err != nil {
		return SelectPlan{}, err
	}
	result := BuildResultColumns(cfg.CaseDefinition, cases)
	columns := append([]string{}, sourceColumns...)
	columns = append(columns, result.Key, result.Value, result.Type)

	source, dateField, filter := cfg.SourceName, cfg.SourceDateField, cfg.SourceFilter
	switch side {
	case SideA:
		source, dateField, filter = cfg.SourceNameA, cfg.SourceDateFieldA, cfg.SourceFilterA
	case SideB:
		source, dateField, filter = cfg.SourceNameB, cfg.SourceDateFieldB, cfg.SourceFilterB
	}
	if len(sourceColumns) == 0 {
		columns = append([]string{deref(source) + ".*"}, columns...)
	}

	plan := SelectPlan{
		Source:      deref(source),
		Columns:     columns,
		DateField:   deref(dateField),
		DateFrom:    from.Add(time.Duration(timeShiftFromSec) * time.Second),
		DateTo:      to.Add(time.Duration(timeShiftToSec) * time.Second),
		Parallelism: cfg.Parallelism,
	}
	if filter != nil {
		plan.Filter = *filter
	}
	return plan, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
