package parser_test

import (
	"strings"
	"testing"
	"time"

	"github.com/rapo-engine/rapo/internal/control/parser"
	"github.com/rapo-engine/rapo/internal/domain"
)

func strPtr(s string) *string { return &s }

func TestBuildPlan_RendersBetweenClauseAndFilter(t *testing.T) {
	cfg := &domain.ControlConfig{
		ControlName:     "daily_amount_check",
		SourceName:      strPtr("fct_transactions"),
		SourceDateField: strPtr("txn_date"),
		SourceFilter:    strPtr("status = 'POSTED'"),
	}
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 1, 23, 59, 59, 0, time.UTC)

	plan, err := parser.BuildPlan(cfg, parser.SideNone, []string{"id", "amount"}, from, to, 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sql := plan.SQL()

	if !strings.Contains(sql, "FROM fct_transactions") {
		t.Fatalf("missing source table: %s", sql)
	}
	if !strings.Contains(sql, "txn_date BETWEEN to_date('2024-03-01 00:00:00'") {
		t.Fatalf("missing between clause: %s", sql)
	}
	if !strings.Contains(sql, "AND (status = 'POSTED')") {
		t.Fatalf("missing filter: %s", sql)
	}
}

func TestBuildPlan_SideSelectsMirrorFields(t *testing.T) {
	cfg := &domain.ControlConfig{
		ControlName:      "recon",
		SourceNameA:      strPtr("ledger_a"),
		SourceDateFieldA: strPtr("posted_at"),
	}
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 1, 23, 59, 59, 0, time.UTC)

	plan, err := parser.BuildPlan(cfg, parser.SideA, []string{"id"}, from, to, 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Source != "ledger_a" {
		t.Fatalf("expected side A source, got %q", plan.Source)
	}
}
