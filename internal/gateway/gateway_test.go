package gateway

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func newMockGateway(t *testing.T) (*Gateway, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	pool := &Pool{
		DB:     sqlx.NewDb(db, "sqlmock"),
		Vendor: "sqlite",
		logger: slog.Default(),
	}
	return New(pool), mock
}

func TestExecute_Success(t *testing.T) {
	g, mock := newMockGateway(t)
	mock.ExpectExec("DELETE FROM rapo_checkpoint").WillReturnResult(sqlmock.NewResult(0, 1))

	if _, err := g.Execute(context.Background(), "DELETE FROM rapo_checkpoint WHERE control_id = ?", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestExecute_Failure(t *testing.T) {
	g, mock := newMockGateway(t)
	mock.ExpectExec("SELECT").WillReturnError(errors.New("boom"))

	if _, err := g.Execute(context.Background(), "SELECT 1"); err == nil {
		t.Fatal("expected error")
	}
	_ = mock
}

func TestExecuteMany_RollsBackOnFailure(t *testing.T) {
	g, mock := newMockGateway(t)
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE a").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE b").WillReturnError(errors.New("duplicate"))
	mock.ExpectRollback()

	err := g.ExecuteMany(context.Background(), "CREATE TABLE a", "CREATE TABLE b")
	if err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestExecuteMany_CommitsOnSuccess(t *testing.T) {
	g, mock := newMockGateway(t)
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE a").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE b").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := g.ExecuteMany(context.Background(), "CREATE TABLE a", "CREATE TABLE b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestParallelize_TagsEachResultIndependently(t *testing.T) {
	g, _ := newMockGateway(t)

	results := g.Parallelize(context.Background(),
		Task{Key: "a", Run: func(ctx context.Context) error { return nil }},
		Task{Key: "b", Run: func(ctx context.Context) error { return errors.New("failed") }},
	)

	byKey := map[string]error{}
	for _, r := range results {
		byKey[r.Key] = r.Err
	}
	if byKey["a"] != nil {
		t.Fatalf("expected side a to succeed, got %v", byKey["a"])
	}
	if byKey["b"] == nil {
		t.Fatal("expected side b to fail")
	}
}

func TestParallelize_RecoversPanic(t *testing.T) {
	g, _ := newMockGateway(t)

	results := g.Parallelize(context.Background(),
		Task{Key: "panics", Run: func(ctx context.Context) error { panic("boom") }},
	)
	if results[0].Err == nil {
		t.Fatal("expected panic to be converted to an error result")
	}
}

func TestFormatter_Document_CollapsesBlankLines(t *testing.T) {
	f := NewFormatter("sqlite")
	doc := f.Document("SELECT 1\n\n\nFROM dual   \n")
	want := "SELECT 1\nFROM dual"
	if doc != want {
		t.Fatalf("got %q, want %q", doc, want)
	}
}

func TestFormatter_QuoteIdent_UppercasesForOracle(t *testing.T) {
	f := NewFormatter("oracle")
	if got := f.QuoteIdent("rapo_rest_foo"); got != `"RAPO_REST_FOO"` {
		t.Fatalf("got %q", got)
	}
}
