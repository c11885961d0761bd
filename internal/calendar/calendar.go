// Package calendar implements the engine's cron-like field grammar (§4.1):
// a schedule fires when all five independent fields — day of month,
// weekday, hour, minute, second — match the current tick. This is a
// bespoke grammar, not standard five-field cron, so it is implemented
// directly against the grammar table rather than through a cron library.
package calendar

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	reDigits = regexp.MustCompile(`^\d+$`)
	reCycle  = regexp.MustCompile(`^/(\d+)$`)
	reRange  = regexp.MustCompile(`^(\d+)-(\d+)$`)
	reList   = regexp.MustCompile(`^\d+(\s*,\s*\d+)+$`)
)

// Match reports whether a single field expression matches now, per the
// grammar table in §4.1.
func Match(field string, now int) bool {
	field = strings.TrimSpace(field)
	switch {
	case field == "" || field == "*":
		return true
	case reDigits.MatchString(field):
		n, _ := strconv.Atoi(field)
		return now == n
	case reCycle.MatchString(field):
		m := reCycle.FindStringSubmatch(field)
		n, _ := strconv.Atoi(m[1])
		if n == 0 {
			return false
		}
		return now%n == 0
	case reRange.MatchString(field):
		m := reRange.FindStringSubmatch(field)
		lo, _ := strconv.Atoi(m[1])
		hi, _ := strconv.Atoi(m[2])
		return now >= lo && now <= hi
	case reList.MatchString(field):
		for _, part := range strings.Split(field, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err == nil && n == now {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Schedule is the five-field tick expression of one control (§3 Schedule).
type Schedule struct {
	Status Flag
	MDay   string
	WDay   string
	Hour   string
	Min    string
	Sec    string
}

// Flag mirrors domain.Flag without importing domain, keeping this package
// dependency-free so it can be unit tested in isolation.
type Flag bool

// Tick is the five integer components of a wall-clock moment the matcher
// compares a Schedule against. WDay uses 1=Monday … 7=Sunday.
type Tick struct {
	MDay, WDay, Hour, Min, Sec int
}

// Fires reports whether every field of s matches t, and the control is
// enabled (§8 invariant 5).
func (s Schedule) Fires(t Tick) bool {
	if !bool(s.Status) {
		return false
	}
	return Match(s.MDay, t.MDay) &&
		Match(s.WDay, t.WDay) &&
		Match(s.Hour, t.Hour) &&
		Match(s.Min, t.Min) &&
		Match(s.Sec, t.Sec)
}

// TickFromTime converts a standard library weekday (0=Sunday) into the
// engine's 1=Monday…7=Sunday convention and builds a Tick.
func TickFromTime(mday, weekdaySunday0, hour, min, sec int) Tick {
	wday := weekdaySunday0
	if wday == 0 {
		wday = 7
	}
	return Tick{MDay: mday, WDay: wday, Hour: hour, Min: min, Sec: sec}
}
