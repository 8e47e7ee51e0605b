package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/skylarklabs/reportloom/pkg/models"
)

// setupMockStore wires a postgresStore against a sqlmock connection.
func setupMockStore(t *testing.T) (*postgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &postgresStore{db: db}, mock
}

func TestPostgresStore_StoreRun(t *testing.T) {
	store, mock := setupMockStore(t)

	mock.ExpectExec(`INSERT INTO prompt_executions`).
		WithArgs(sqlmock.AnyArg(), 7, sqlmock.AnyArg(), "<p>report</p>", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	id, err := store.StoreRun(context.Background(), 7, "<p>report</p>", []models.Issue{{Key: "PROJ-1"}}, map[string]any{"iterations": 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == "" {
		t.Fatal("expected a non-empty execution id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresStore_StoreRun_DatabaseError(t *testing.T) {
	store, mock := setupMockStore(t)

	mock.ExpectExec(`INSERT INTO prompt_executions`).
		WillReturnError(errors.New("connection refused"))

	_, err := store.StoreRun(context.Background(), 7, "<p>report</p>", nil, nil)
	if err == nil {
		t.Fatal("expected an error from a failing insert")
	}
}

func TestPostgresStore_LatestFor_NotFound(t *testing.T) {
	store, mock := setupMockStore(t)

	mock.ExpectQuery(`SELECT id, prompt_id, executed_at, artifact, issues, metadata`).
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows([]string{"id", "prompt_id", "executed_at", "artifact", "issues", "metadata"}))

	_, err := store.LatestFor(context.Background(), 42)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgresStore_LatestFor_Found(t *testing.T) {
	store, mock := setupMockStore(t)

	now := time.Now().UTC().Truncate(time.Second)
	rows := sqlmock.NewRows([]string{"id", "prompt_id", "executed_at", "artifact", "issues", "metadata"}).
		AddRow("exec-1", 42, now, "<p>hi</p>", []byte(`[{"key":"PROJ-1"}]`), []byte(`{"iterations":3}`))

	mock.ExpectQuery(`SELECT id, prompt_id, executed_at, artifact, issues, metadata`).
		WithArgs(42).
		WillReturnRows(rows)

	exec, err := store.LatestFor(context.Background(), 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exec.ID != "exec-1" || exec.PromptID != 42 {
		t.Fatalf("unexpected execution: %+v", exec)
	}
	if len(exec.Issues) != 1 || exec.Issues[0].Key != "PROJ-1" {
		t.Fatalf("expected issues to be decoded, got %+v", exec.Issues)
	}
	if exec.Metadata["iterations"] != float64(3) {
		t.Fatalf("expected metadata to be decoded, got %+v", exec.Metadata)
	}
}

func TestPostgresStore_Delete(t *testing.T) {
	store, mock := setupMockStore(t)

	mock.ExpectExec(`DELETE FROM prompt_executions WHERE id = \$1`).
		WithArgs("exec-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := store.Delete(context.Background(), "exec-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected Delete to report a row was removed")
	}
}

func TestPostgresStore_Delete_NotFound(t *testing.T) {
	store, mock := setupMockStore(t)

	mock.ExpectExec(`DELETE FROM prompt_executions WHERE id = \$1`).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := store.Delete(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected Delete to report no row was removed")
	}
}

func TestPostgresStore_PruneOlderThan(t *testing.T) {
	store, mock := setupMockStore(t)

	mock.ExpectExec(`DELETE FROM prompt_executions WHERE executed_at < \$1`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := store.PruneOlderThan(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 pruned rows, got %d", n)
	}
}
