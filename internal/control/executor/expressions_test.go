package executor

import (
	"strings"
	"testing"

	"github.com/rapo-engine/rapo/internal/domain"
)

func TestErrorExpression_JSONConditionsOred(t *testing.T) {
	def := `[{"column":"amount","relation":">","value":1000,"is_column":false},{"column":"qty","relation":"<","value":0,"is_column":false}]`
	cfg := &domain.ControlConfig{ErrorDefinition: &def}

	expr, err := errorExpression(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(expr, "amount > 1000") || !strings.Contains(expr, "qty < 0") || !strings.Contains(expr, " OR ") {
		t.Fatalf("unexpected expression: %s", expr)
	}
}

func TestErrorExpression_VerbatimSQLFallback(t *testing.T) {
	def := "amount > 1000 AND status = 'FAILED'"
	cfg := &domain.ControlConfig{ErrorDefinition: &def}

	expr, err := errorExpression(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(expr, def) {
		t.Fatalf("expected verbatim SQL, got %s", expr)
	}
}

func TestErrorExpression_NoDefinitionUsesCaseTypes(t *testing.T) {
	cfg := &domain.ControlConfig{}
	expr, err := errorExpression(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(expr, "rapo_result_type") {
		t.Fatalf("expected case-type fallback, got %s", expr)
	}
}

func TestJoinPredicate_ZipsCorrelationKeys(t *testing.T) {
	got := joinPredicate([]string{"id", "currency"}, []string{"ext_id", "ccy"})
	want := "a.id = b.ext_id AND a.currency = b.ccy"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestJoinPredicate_MismatchedKeysFallsBackToAlwaysTrue(t *testing.T) {
	if got := joinPredicate([]string{"id"}, nil); got != "1 = 1" {
		t.Fatalf("got %q", got)
	}
}

func TestDiscrepancyExpression_PrefersFormulaOverFieldRule(t *testing.T) {
	formula := "ABS(a.amount - b.amount) > 0.01"
	rules := []domain.DiscrepancyRule{{Field: "amount", Rule: "!= b.amount", Formula: &formula}}

	expr := discrepancyExpression(rules)
	if !strings.Contains(expr, formula) {
		t.Fatalf("expected formula to be used, got %s", expr)
	}
}

func TestDiscrepancyExpression_FieldRuleWithoutFormula(t *testing.T) {
	rules := []domain.DiscrepancyRule{{Field: "amount", Rule: "!= b.amount"}}
	expr := discrepancyExpression(rules)
	if !strings.Contains(expr, "amount != b.amount") {
		t.Fatalf("got %s", expr)
	}
}

func TestErrorLevel_ZeroFetchedIsZero(t *testing.T) {
	if got := errorLevel(5, 0); got != 0 {
		t.Fatalf("got %v", got)
	}
}

func TestErrorLevel_Percentage(t *testing.T) {
	if got := errorLevel(3, 12); got != 25 {
		t.Fatalf("got %v, want 25", got)
	}
}
