package lifecycle

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/rapo-engine/rapo/internal/domain"
	"github.com/rapo-engine/rapo/internal/gateway"
	"github.com/rapo-engine/rapo/internal/store"
)

func newTestControl(t *testing.T) (*Control, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	gw := gateway.NewForTest(sqlx.NewDb(db, "sqlmock"), "sqlite")
	st := store.New(gw)
	return New(st, gw, slog.Default()), mock
}

// A prerequisite that evaluates falsy must stop the run before Started
// is ever reached, leaving it in the null (deinitiated) state (§4.3).
func TestRun_PrerequisiteFailTransitionsToDeinitiated(t *testing.T) {
	c, mock := newTestControl(t)

	mock.ExpectExec("INSERT INTO rapo_log").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT 0").
		WillReturnRows(sqlmock.NewRows([]string{"col"}).AddRow("0"))
	mock.ExpectExec("UPDATE rapo_log SET").WillReturnResult(sqlmock.NewResult(0, 1))

	prereq := "SELECT 0"
	cfg := &domain.ControlConfig{
		ControlID:       7,
		ControlName:     "sample_control",
		ControlType:     domain.ControlAnalysis,
		PrerequisiteSQL: &prereq,
	}

	if err := c.Run(context.Background(), cfg, 101, time.Now(), nil, nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

// The supervisor must detect an externally-cleared status within one
// tick and signal cancellation without being told by the worker strand.
func TestSupervise_ExternalCancelClosesCancelledChannel(t *testing.T) {
	c, mock := newTestControl(t)
	c.supervisorCadence = 5 * time.Millisecond

	mock.ExpectQuery("SELECT \\* FROM rapo_log WHERE process_id").
		WillReturnRows(sqlmock.NewRows([]string{"process_id", "control_id", "status"}).
			AddRow(202, 7, ""))

	cfg := &domain.ControlConfig{ControlID: 7, ControlType: domain.ControlAnalysis}
	run := &domain.ControlRun{ProcessID: 202, ControlID: 7, Status: domain.StatusInProgress}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	cancelled := make(chan struct{})
	done := make(chan struct{})
	go c.supervise(ctx, cfg, run, cancel, cancelled, done)

	select {
	case <-cancelled:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("supervise did not signal cancellation")
	}
	<-done
}

// A timed-out run must also be force-cancelled, independent of status.
func TestSupervise_TimeoutClosesCancelledChannel(t *testing.T) {
	c, mock := newTestControl(t)
	c.supervisorCadence = 5 * time.Millisecond

	started := time.Now().Add(-time.Hour)
	mock.ExpectQuery("SELECT \\* FROM rapo_log WHERE process_id").
		WillReturnRows(sqlmock.NewRows([]string{"process_id", "control_id", "status", "start_date"}).
			AddRow(303, 7, "P", started))

	cfg := &domain.ControlConfig{ControlID: 7, ControlType: domain.ControlAnalysis, TimeoutSec: 60}
	run := &domain.ControlRun{ProcessID: 303, ControlID: 7, Status: domain.StatusInProgress, StartDate: &started}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	cancelled := make(chan struct{})
	done := make(chan struct{})
	go c.supervise(ctx, cfg, run, cancel, cancelled, done)

	select {
	case <-cancelled:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("supervise did not signal timeout cancellation")
	}
	<-done
}
