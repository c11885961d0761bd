package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/rapo-engine/rapo/internal/domain"
	"github.com/rapo-engine/rapo/internal/gateway"
	"github.com/rapo-engine/rapo/internal/store"
)

func newTestStore(t *testing.T) (*store.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	gw := gateway.NewForTest(sqlx.NewDb(db, "sqlmock"), "sqlite")
	return store.New(gw), mock
}

func TestGetConfig_NotFound(t *testing.T) {
	s, mock := newTestStore(t)
	mock.ExpectQuery("SELECT \\* FROM rapo_config").WillReturnRows(sqlmock.NewRows(nil))

	_, err := s.GetConfig(context.Background(), "missing")
	if !errors.Is(err, domain.ErrControlNotFound) {
		t.Fatalf("expected ErrControlNotFound, got %v", err)
	}
}

func TestAcquireScheduler_FailsWhenLiveOwnerHoldsIt(t *testing.T) {
	s, mock := newTestStore(t)

	rows := sqlmock.NewRows([]string{"id", "server", "username", "pid", "start_date", "stop_date", "status"}).
		AddRow(1, "host-a", "svc", 1, time.Now(), nil, "Y")
	mock.ExpectQuery("SELECT \\* FROM rapo_scheduler").WillReturnRows(rows)

	err := s.AcquireScheduler(context.Background(), "host-b", "svc", 99999)
	if !errors.Is(err, domain.ErrSchedulerRunning) {
		t.Fatalf("expected ErrSchedulerRunning, got %v", err)
	}
}

func TestAcquireScheduler_NoExistingOwnerInserts(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectQuery("SELECT \\* FROM rapo_scheduler").WillReturnRows(sqlmock.NewRows(nil))
	mock.ExpectExec("INSERT INTO rapo_scheduler").WillReturnResult(sqlmock.NewResult(1, 1))

	if err := s.AcquireScheduler(context.Background(), "host-a", "svc", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSaveCheckpoint(t *testing.T) {
	s, mock := newTestStore(t)
	mock.ExpectExec("INSERT INTO rapo_checkpoint").WillReturnResult(sqlmock.NewResult(1, 1))

	if err := s.SaveCheckpoint(context.Background(), 10, 20); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
