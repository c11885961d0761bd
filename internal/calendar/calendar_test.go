package calendar_test

import (
	"testing"
	"time"

	"github.com/rapo-engine/rapo/internal/calendar"
)

func TestMatch(t *testing.T) {
	cases := []struct {
		field string
		now   int
		want  bool
	}{
		{"", 5, true},
		{"*", 5, true},
		{"7", 7, true},
		{"7", 8, false},
		{"/2", 4, true},
		{"/2", 3, false},
		{"/0", 0, false},
		{"1-5", 3, true},
		{"1-5", 6, false},
		{"0,30", 30, true},
		{"0,30", 15, false},
		{"garbage", 1, false},
	}
	for _, c := range cases {
		if got := calendar.Match(c.field, c.now); got != c.want {
			t.Errorf("Match(%q, %d) = %v, want %v", c.field, c.now, got, c.want)
		}
	}
}

// S1. mday="*", wday="1-5", hour="/2", min="0,30", sec="0"
func TestSchedule_Fires_S1(t *testing.T) {
	s := calendar.Schedule{Status: true, MDay: "*", WDay: "1-5", Hour: "/2", Min: "0,30", Sec: "0"}

	tue1030 := calendar.TickFromTime(1, int(time.Tuesday), 10, 30, 0)
	if !s.Fires(tue1030) {
		t.Fatal("expected Tue 10:30:00 to match")
	}

	sat1030 := calendar.TickFromTime(1, int(time.Saturday), 10, 30, 0)
	if s.Fires(sat1030) {
		t.Fatal("expected Sat 10:30:00 not to match (wday)")
	}

	tue1130 := calendar.TickFromTime(1, int(time.Tuesday), 11, 30, 0)
	if s.Fires(tue1130) {
		t.Fatal("expected Tue 11:30:00 not to match (hour /2)")
	}
}

func TestSchedule_Fires_DisabledStatus(t *testing.T) {
	s := calendar.Schedule{Status: false, MDay: "*", WDay: "*", Hour: "*", Min: "*", Sec: "*"}
	if s.Fires(calendar.TickFromTime(1, 1, 0, 0, 0)) {
		t.Fatal("disabled schedule must never fire")
	}
}

func TestTickFromTime_SundayConvention(t *testing.T) {
	tick := calendar.TickFromTime(10, int(time.Sunday), 0, 0, 0)
	if tick.WDay != 7 {
		t.Fatalf("expected Sunday to map to wday 7, got %d", tick.WDay)
	}
	tick = calendar.TickFromTime(10, int(time.Monday), 0, 0, 0)
	if tick.WDay != 1 {
		t.Fatalf("expected Monday to map to wday 1, got %d", tick.WDay)
	}
}
