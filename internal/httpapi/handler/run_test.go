package handler_test

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/rapo-engine/rapo/internal/gateway"
	"github.com/rapo-engine/rapo/internal/httpapi/handler"
	"github.com/rapo-engine/rapo/internal/lifecycle"
	"github.com/rapo-engine/rapo/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRunHandler(t *testing.T) (*handler.RunHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	gw := gateway.NewForTest(sqlx.NewDb(db, "sqlmock"), "sqlite")
	st := store.New(gw)
	lc := lifecycle.New(st, gw, slog.Default())
	return handler.NewRunHandler(st, gw, lc, slog.Default()), mock
}

func TestGetRun_NotFound_Returns404(t *testing.T) {
	h, mock := newTestRunHandler(t)
	mock.ExpectQuery("SELECT \\* FROM rapo_log WHERE process_id").WillReturnRows(sqlmock.NewRows(nil))

	r := gin.New()
	r.GET("/api/get-control-run", h.GetRun)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/get-control-run?process_id=1", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestGetRun_MissingParam_Returns400(t *testing.T) {
	h, _ := newTestRunHandler(t)

	r := gin.New()
	r.GET("/api/get-control-run", h.GetRun)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/get-control-run", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestCancel_TerminalRun_Returns409(t *testing.T) {
	h, mock := newTestRunHandler(t)

	rows := sqlmock.NewRows([]string{"process_id", "control_id", "status", "added", "updated", "date_from", "date_to"}).
		AddRow(7, 1, "D", time.Now(), time.Now(), time.Now(), time.Now())
	mock.ExpectQuery("SELECT \\* FROM rapo_log WHERE process_id").WillReturnRows(rows)

	r := gin.New()
	r.POST("/api/cancel-control", h.Cancel)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/cancel-control?id=7", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
}

func TestCancel_InProgressRun_ClearsStatus(t *testing.T) {
	h, mock := newTestRunHandler(t)

	rows := sqlmock.NewRows([]string{"process_id", "control_id", "status", "added", "updated", "date_from", "date_to"}).
		AddRow(8, 1, "P", time.Now(), time.Now(), time.Now(), time.Now())
	mock.ExpectQuery("SELECT \\* FROM rapo_log WHERE process_id").WillReturnRows(rows)
	mock.ExpectExec("UPDATE rapo_log SET").WillReturnResult(sqlmock.NewResult(0, 1))

	r := gin.New()
	r.POST("/api/cancel-control", h.Cancel)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/cancel-control?id=8", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", w.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
