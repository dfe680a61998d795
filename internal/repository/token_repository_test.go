package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

var refreshRows = []string{"id", "user_id", "token_hash", "expires_at", "revoked_at", "created_at"}

func TestValidateRefreshLiveToken(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	repo := NewTokenRepo(db)

	now := time.Now().UTC()
	mock.ExpectQuery(`FROM refresh_tokens WHERE token_hash = \?`).
		WithArgs("abc123").
		WillReturnRows(sqlmock.NewRows(refreshRows).
			AddRow(uint64(1), uint64(7), "abc123", now.Add(time.Hour), nil, now))

	userID, err := repo.ValidateRefresh(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("ValidateRefresh: %v", err)
	}
	if userID != 7 {
		t.Errorf("userID = %d, want 7", userID)
	}
}

func TestValidateRefreshRevokedToken(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	repo := NewTokenRepo(db)

	now := time.Now().UTC()
	mock.ExpectQuery(`FROM refresh_tokens WHERE token_hash = \?`).
		WithArgs("abc123").
		WillReturnRows(sqlmock.NewRows(refreshRows).
			AddRow(uint64(1), uint64(7), "abc123", now.Add(time.Hour), now.Add(-time.Minute), now))

	if _, err := repo.ValidateRefresh(context.Background(), "abc123"); err != sql.ErrNoRows {
		t.Errorf("err = %v, want sql.ErrNoRows for revoked session", err)
	}
}

func TestValidateRefreshExpiredToken(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	repo := NewTokenRepo(db)

	now := time.Now().UTC()
	mock.ExpectQuery(`FROM refresh_tokens WHERE token_hash = \?`).
		WithArgs("abc123").
		WillReturnRows(sqlmock.NewRows(refreshRows).
			AddRow(uint64(1), uint64(7), "abc123", now.Add(-time.Hour), nil, now.Add(-2*time.Hour)))

	if _, err := repo.ValidateRefresh(context.Background(), "abc123"); err != sql.ErrNoRows {
		t.Errorf("err = %v, want sql.ErrNoRows for expired session", err)
	}
}

func TestStoreRefreshDuplicateHash(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	repo := NewTokenRepo(db)

	mock.ExpectExec(`INSERT INTO refresh_tokens`).
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry"))

	err = repo.StoreRefresh(context.Background(), 7, "abc123", time.Now().UTC().Add(time.Hour))
	if err != ErrConflict {
		t.Errorf("err = %v, want ErrConflict", err)
	}
}
