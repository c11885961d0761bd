package scheduler

import (
	"testing"

	"github.com/rapo-engine/rapo/internal/domain"
	"github.com/rapo-engine/rapo/internal/processid"
)

func TestParseSchedule_ValidJSON(t *testing.T) {
	raw := `{"mday":"*","wday":"*","hour":"/1","min":"0","sec":"0"}`
	cfg := domain.ControlConfig{ControlName: "c1", Status: domain.FlagYes, ScheduleConfig: &raw}

	sched, err := parseSchedule(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sched.Hour != "/1" || sched.Min != "0" || sched.Sec != "0" {
		t.Fatalf("unexpected schedule: %+v", sched)
	}
	if !bool(sched.Status) {
		t.Fatal("expected status true for an enabled control")
	}
}

func TestParseSchedule_NilConfigNeverFires(t *testing.T) {
	cfg := domain.ControlConfig{ControlName: "c1", Status: domain.FlagYes}

	sched, err := parseSchedule(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bool(sched.Status) {
		t.Fatal("expected status false when schedule_config is absent")
	}
}

func TestParseSchedule_InvalidJSONErrors(t *testing.T) {
	raw := `not json`
	cfg := domain.ControlConfig{ControlName: "c1", ScheduleConfig: &raw}

	if _, err := parseSchedule(cfg); err == nil {
		t.Fatal("expected an error for malformed schedule_config")
	}
}

func TestNextProcessID_Unique(t *testing.T) {
	seen := make(map[int64]bool)
	for i := 0; i < 1000; i++ {
		id := processid.Next()
		if seen[id] {
			t.Fatalf("duplicate process_id %d at iteration %d", id, i)
		}
		seen[id] = true
	}
}
