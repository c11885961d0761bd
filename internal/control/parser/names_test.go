package parser_test

import (
	"testing"

	"github.com/rapo-engine/rapo/internal/control/parser"
)

func TestFetchTable_SingleSided(t *testing.T) {
	if got := parser.FetchTable(42, parser.SideNone); got != "rapo_temp_fd_42" {
		t.Fatalf("got %q", got)
	}
}

func TestFetchTable_TwoSided(t *testing.T) {
	if got := parser.FetchTable(42, parser.SideA); got != "rapo_temp_fd_a_42" {
		t.Fatalf("got %q", got)
	}
	if got := parser.FetchTable(42, parser.SideB); got != "rapo_temp_fd_b_42" {
		t.Fatalf("got %q", got)
	}
}

func TestTempTablesFor_TwoSidedEnumeratesSeven(t *testing.T) {
	tables := parser.TempTablesFor(7, true)
	if len(tables) != 7 {
		t.Fatalf("expected 7 temp tables, got %d: %v", len(tables), tables)
	}
}

func TestTempTablesFor_SingleSidedEnumeratesTwo(t *testing.T) {
	tables := parser.TempTablesFor(7, false)
	if len(tables) != 2 {
		t.Fatalf("expected 2 temp tables, got %d: %v", len(tables), tables)
	}
}
