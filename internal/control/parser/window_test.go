package parser_test

import (
	"testing"
	"time"

	"github.com/rapo-engine/rapo/internal/control/parser"
	"github.com/rapo-engine/rapo/internal/domain"
)

// S2. period_back=1, period_number=1, period_type="M", trigger 2024-03-10
// -> date_from = 2024-02-01 00:00:00, date_to = 2024-02-29 23:59:59.
func TestWindow_S2_MonthArithmetic(t *testing.T) {
	cfg := &domain.ControlConfig{PeriodBack: 1, PeriodNumber: 1, PeriodType: domain.PeriodMonth}
	anchor := time.Date(2024, time.March, 10, 14, 0, 0, 0, time.UTC)

	from, to := parser.Window(anchor, cfg)

	wantFrom := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)
	wantTo := time.Date(2024, time.February, 29, 23, 59, 59, 0, time.UTC)
	if !from.Equal(wantFrom) {
		t.Fatalf("date_from = %v, want %v", from, wantFrom)
	}
	if !to.Equal(wantTo) {
		t.Fatalf("date_to = %v, want %v", to, wantTo)
	}
}

func TestWindow_Day(t *testing.T) {
	cfg := &domain.ControlConfig{PeriodBack: 0, PeriodNumber: 1, PeriodType: domain.PeriodDay}
	anchor := time.Date(2024, time.March, 10, 14, 30, 0, 0, time.UTC)

	from, to := parser.Window(anchor, cfg)

	wantFrom := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)
	wantTo := time.Date(2024, time.March, 10, 23, 59, 59, 0, time.UTC)
	if !from.Equal(wantFrom) || !to.Equal(wantTo) {
		t.Fatalf("got [%v, %v], want [%v, %v]", from, to, wantFrom, wantTo)
	}
}

func TestWindow_Week(t *testing.T) {
	cfg := &domain.ControlConfig{PeriodBack: 1, PeriodNumber: 1, PeriodType: domain.PeriodWeek}
	anchor := time.Date(2024, time.March, 13, 0, 0, 0, 0, time.UTC) // Wednesday

	from, to := parser.Window(anchor, cfg)

	wantFrom := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC) // Monday, prior week
	wantTo := time.Date(2024, time.March, 10, 23, 59, 59, 0, time.UTC)
	if !from.Equal(wantFrom) || !to.Equal(wantTo) {
		t.Fatalf("got [%v, %v], want [%v, %v]", from, to, wantFrom, wantTo)
	}
}
