package parser_test

import (
	"strings"
	"testing"

	"github.com/rapo-engine/rapo/internal/control/parser"
	"github.com/rapo-engine/rapo/internal/domain"
)

func TestBuildResultColumns_NoDefinitionYieldsTypedNulls(t *testing.T) {
	cols := parser.BuildResultColumns(nil, nil)
	if !strings.Contains(cols.Key, "NULL") || !strings.Contains(cols.Value, "NULL") || !strings.Contains(cols.Type, "NULL") {
		t.Fatalf("expected typed nulls, got %+v", cols)
	}
}

func TestBuildResultColumns_SubstitutesCaseLiterals(t *testing.T) {
	def := "CASE WHEN amount > 1000 THEN 1 WHEN amount < 0 THEN 2 ELSE 0 END"
	cases := []domain.CaseEntry{
		{CaseID: 1, CaseValue: "over_limit", CaseType: domain.CaseError},
		{CaseID: 2, CaseValue: "negative", CaseType: domain.CaseWarning},
		{CaseID: 0, CaseValue: "ok", CaseType: domain.CaseNormal},
	}

	cols := parser.BuildResultColumns(&def, cases)

	if !strings.Contains(cols.Key, "THEN 1") {
		t.Fatalf("key column should keep numeric case ids: %s", cols.Key)
	}
	if !strings.Contains(cols.Value, "THEN 'over_limit'") || !strings.Contains(cols.Value, "ELSE 'ok'") {
		t.Fatalf("value column missing substitutions: %s", cols.Value)
	}
	if !strings.Contains(cols.Type, "THEN 'Error'") || !strings.Contains(cols.Type, "WHEN amount < 0 THEN 'Warning'") {
		t.Fatalf("type column missing substitutions: %s", cols.Type)
	}
}
