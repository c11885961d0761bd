package executor_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/rapo-engine/rapo/internal/control/executor"
	"github.com/rapo-engine/rapo/internal/domain"
	"github.com/rapo-engine/rapo/internal/gateway"
)

func newTestExecutor(t *testing.T) (*executor.Executor, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	gw := gateway.NewForTest(sqlx.NewDb(db, "sqlmock"), "sqlite")
	return executor.New(gw), mock
}

func TestCountRows(t *testing.T) {
	e, mock := newTestExecutor(t)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	n, err := e.CountRows(context.Background(), "rapo_temp_fd_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 42 {
		t.Fatalf("got %d, want 42", n)
	}
}

func TestPrepareOutputTable_CreatesWhenAbsent(t *testing.T) {
	e, mock := newTestExecutor(t)
	cfg := &domain.ControlConfig{}

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM sqlite_master").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	// CTAS checks for the target itself before creating it.
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM sqlite_master").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX").WillReturnResult(sqlmock.NewResult(0, 0))

	if err := e.PrepareOutputTable(context.Background(), cfg, "rapo_rest_foo", "rapo_temp_fd_1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPrepareOutputTable_TruncatesWhenWithDeletion(t *testing.T) {
	e, mock := newTestExecutor(t)
	cfg := &domain.ControlConfig{WithDeletion: domain.FlagYes}

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM sqlite_master").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec("DELETE FROM").WillReturnResult(sqlmock.NewResult(0, 5))

	if err := e.PrepareOutputTable(context.Background(), cfg, "rapo_rest_foo", "rapo_temp_fd_1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSaveRows(t *testing.T) {
	e, mock := newTestExecutor(t)
	mock.ExpectExec("INSERT INTO").WillReturnResult(sqlmock.NewResult(0, 3))

	if err := e.SaveRows(context.Background(), "rapo_temp_err_1", "rapo_rest_foo", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestDeleteOutputRecords_DeletesByProcessID(t *testing.T) {
	e, mock := newTestExecutor(t)
	cfg := &domain.ControlConfig{}
	mock.ExpectExec("DELETE FROM .* WHERE rapo_process_id").WillReturnResult(sqlmock.NewResult(0, 1))

	if err := e.DeleteOutputRecords(context.Background(), cfg, "rapo_rest_foo", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestDropTempTables_SingleSidedPurgesTwoTables(t *testing.T) {
	e, mock := newTestExecutor(t)
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM sqlite_master").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec("DROP TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM sqlite_master").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	if err := e.DropTempTables(context.Background(), 1, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
