package parser_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/rapo-engine/rapo/internal/control/parser"
	"github.com/rapo-engine/rapo/internal/domain"
	"github.com/rapo-engine/rapo/internal/gateway"
)

func TestOutdatedProcessIDs(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	gw := gateway.NewForTest(sqlx.NewDb(db, "sqlmock"), "sqlite")
	cfg := &domain.ControlConfig{ControlID: 5, DaysRetention: 30}

	mock.ExpectQuery("SELECT DISTINCT l.process_id").
		WillReturnRows(sqlmock.NewRows([]string{"process_id"}).AddRow(101).AddRow(102))

	ids, err := parser.OutdatedProcessIDs(context.Background(), gw, cfg, "rapo_rest_daily_amount_check", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 ids, got %v", ids)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
