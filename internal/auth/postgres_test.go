package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestPGTokenStoreCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	store := NewPGTokenStore(db)
	accountID := int64(42)
	rec := &RefreshTokenRecord{
		ID:        "rec-1",
		TokenHash: HashTokenID("tid-1"),
		AccountID: &accountID,
		ExpiresAt: time.Now().Add(time.Hour),
	}

	mock.ExpectExec("insert into refresh_tokens").
		WithArgs(rec.ID, rec.TokenHash, rec.AccountID, rec.ExpiresAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := store.Create(context.Background(), rec); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// A duplicate hash surfaces as ErrConflict via the unique constraint.
	mock.ExpectExec("insert into refresh_tokens").
		WithArgs(rec.ID, rec.TokenHash, rec.AccountID, rec.ExpiresAt).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	if err := store.Create(context.Background(), rec); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGTokenStoreFindByHash(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	store := NewPGTokenStore(db)
	hash := HashTokenID("tid-police")
	now := time.Now().UTC()

	// Police row: NULL account_id scans into a nil pointer.
	rows := sqlmock.NewRows([]string{"id", "token_hash", "account_id", "expires_at", "created_at"}).
		AddRow("rec-2", hash, nil, now.Add(time.Hour), now)
	mock.ExpectQuery("select id, token_hash, account_id, expires_at, created_at from refresh_tokens").
		WithArgs(hash).
		WillReturnRows(rows)

	rec, err := store.FindByHash(context.Background(), hash)
	if err != nil {
		t.Fatalf("FindByHash: %v", err)
	}
	if rec.AccountID != nil {
		t.Fatalf("expected nil account id, got %v", *rec.AccountID)
	}

	mock.ExpectQuery("select id, token_hash, account_id, expires_at, created_at from refresh_tokens").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "token_hash", "account_id", "expires_at", "created_at"}))
	if _, err := store.FindByHash(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGTokenStoreDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	store := NewPGTokenStore(db)

	mock.ExpectExec("delete from refresh_tokens where token_hash").
		WithArgs("h1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := store.DeleteByHash(context.Background(), "h1"); err != nil {
		t.Fatalf("DeleteByHash: %v", err)
	}

	mock.ExpectExec("delete from refresh_tokens where token_hash").
		WithArgs("h1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := store.DeleteByHash(context.Background(), "h1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	mock.ExpectExec("delete from refresh_tokens where expires_at").
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 7))
	n, err := store.DeleteExpired(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("DeleteExpired: %v", err)
	}
	if n != 7 {
		t.Fatalf("expected 7 deleted, got %d", n)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
