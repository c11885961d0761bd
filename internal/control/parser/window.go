// Package parser is the Control Parser (C4): it turns a declarative
// ControlConfig row into the typed artifacts the executor drives —
// the date window, the select plan, case/result columns, and the
// deterministic temp/output table names.
package parser

import (
	"time"

	"github.com/rapo-engine/rapo/internal/domain"
)

// Window computes [DateFrom, DateTo] for a run: DateFrom is midnight of
// the target day/week/month (period_back periods before anchor), DateTo
// is the last instant of the period_number-period span starting there.
// Month arithmetic goes through firstOfMonth so short months (Feb) never
// bleed into the next period (§4.5, scenario S2).
func Window(anchor time.Time, cfg *domain.ControlConfig) (from, to time.Time) {
	return window(anchor, cfg.PeriodBack, cfg.PeriodNumber, cfg.PeriodType)
}

func window(anchor time.Time, periodBack, periodNumber int, periodType domain.PeriodType) (from, to time.Time) {
	switch periodType {
	case domain.PeriodWeek:
		base := mondayOf(anchor)
		from = base.AddDate(0, 0, -7*periodBack)
		to = from.AddDate(0, 0, 7*periodNumber).Add(-time.Second)
	case domain.PeriodMonth:
		from = firstOfMonth(anchor).AddDate(0, -periodBack, 0)
		lastMonth := from.AddDate(0, periodNumber-1, 0)
		to = lastOfMonth(lastMonth).Add(23*time.Hour + 59*time.Minute + 59*time.Second)
	default: // domain.PeriodDay and unset
		base := midnight(anchor).AddDate(0, 0, -periodBack)
		from = base
		to = base.AddDate(0, 0, periodNumber).Add(-time.Second)
	}
	return from, to
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// lastOfMonth returns the last calendar day of t's month at midnight.
func lastOfMonth(t time.Time) time.Time {
	return firstOfMonth(t).AddDate(0, 1, 0).Add(-24 * time.Hour)
}

// mondayOf returns midnight of the Monday starting t's ISO week.
func mondayOf(t time.Time) time.Time {
	wd := int(t.Weekday())
	if wd == 0 {
		wd = 7
	}
	return midnight(t).AddDate(0, 0, -(wd - 1))
}
