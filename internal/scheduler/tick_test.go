package scheduler

import (
	"log/slog"
	"testing"
	"time"

	"github.com/rapo-engine/rapo/internal/calendar"
	"github.com/rapo-engine/rapo/internal/domain"
)

func TestEnqueueMatches_FiresOnlyMatchingEntries(t *testing.T) {
	s := &Scheduler{
		logger: slog.Default(),
		queue:  make(chan workItem, 10),
	}
	s.setSchedule([]entry{
		{cfg: domain.ControlConfig{ControlName: "every_tick"}, schedule: calendar.Schedule{Status: true}},
		{cfg: domain.ControlConfig{ControlName: "never"}, schedule: calendar.Schedule{Status: false}},
		{cfg: domain.ControlConfig{ControlName: "specific_second"}, schedule: calendar.Schedule{Status: true, Sec: "30"}},
	})

	moment := time.Date(2026, 7, 31, 10, 0, 5, 0, time.UTC)
	s.enqueueMatches(moment)

	if len(s.queue) != 1 {
		t.Fatalf("expected 1 queued item, got %d", len(s.queue))
	}
	item := <-s.queue
	if item.cfg.cfg.ControlName != "every_tick" {
		t.Fatalf("unexpected control dispatched: %s", item.cfg.cfg.ControlName)
	}
}

func TestEnqueueMatches_FullQueueDropsWithoutBlocking(t *testing.T) {
	s := &Scheduler{
		logger: slog.Default(),
		queue:  make(chan workItem, 1),
	}
	s.setSchedule([]entry{
		{cfg: domain.ControlConfig{ControlName: "a"}, schedule: calendar.Schedule{Status: true}},
		{cfg: domain.ControlConfig{ControlName: "b"}, schedule: calendar.Schedule{Status: true}},
	})

	done := make(chan struct{})
	go func() {
		s.enqueueMatches(time.Now())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("enqueueMatches blocked on a full queue")
	}
}
