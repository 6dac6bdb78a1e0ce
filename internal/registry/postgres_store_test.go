package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func TestPostgresStoreInsertCreated(t *testing.T) {
	mock := newMockPool(t)
	ts := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO callers").
		WithArgs("u1", "a@example.com", "Ada", ts).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	store := NewPostgresStore(mock)
	created, err := store.Insert(context.Background(), &Caller{UID: "u1", Email: "a@example.com", Name: "Ada", RegisteredAt: ts})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if !created {
		t.Fatalf("expected row to be created")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresStoreInsertConflictIsNoop(t *testing.T) {
	mock := newMockPool(t)
	ts := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("ON CONFLICT \\(uid\\) DO NOTHING").
		WithArgs("u1", "b@example.com", "Bob", ts).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	store := NewPostgresStore(mock)
	created, err := store.Insert(context.Background(), &Caller{UID: "u1", Email: "b@example.com", Name: "Bob", RegisteredAt: ts})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if created {
		t.Fatalf("expected conflicting insert to report false")
	}
}

func TestPostgresStoreInsertError(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectExec("INSERT INTO callers").WillReturnError(errors.New("connection reset"))

	store := NewPostgresStore(mock)
	if _, err := store.Insert(context.Background(), &Caller{UID: "u1", Email: "a@example.com"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestPostgresStoreExistsAndCount(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectQuery("SELECT EXISTS").WithArgs("u1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(7))

	store := NewPostgresStore(mock)
	ok, err := store.Exists(context.Background(), "u1")
	if err != nil || !ok {
		t.Fatalf("expected exists, got %v %v", ok, err)
	}
	n, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 7 {
		t.Fatalf("expected 7 callers, got %d", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresStoreGet(t *testing.T) {
	mock := newMockPool(t)
	ts := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT uid, email, name, registered_at").WithArgs("u1").
		WillReturnRows(pgxmock.NewRows([]string{"uid", "email", "name", "registered_at"}).
			AddRow("u1", "a@example.com", "Ada", ts))
	mock.ExpectQuery("SELECT uid, email, name, registered_at").WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	store := NewPostgresStore(mock)
	caller, err := store.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if caller.Email != "a@example.com" || !caller.RegisteredAt.Equal(ts) {
		t.Fatalf("unexpected caller %+v", caller)
	}
	if _, err := store.Get(context.Background(), "ghost"); !errors.Is(err, ErrCallerNotFound) {
		t.Fatalf("expected ErrCallerNotFound, got %v", err)
	}
}
