package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lodgein/stay-booking/internal/model"
)

// TokenRepo persists refresh token sessions.  Only SHA-256 hashes of
// raw tokens are stored; revocation is a soft timestamp so a session's
// history stays on record.
type TokenRepo struct {
	db *sql.DB
}

// NewTokenRepo returns a new TokenRepo bound to the given database.
func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{db: db} }

const refreshColumns = `id, user_id, token_hash, expires_at, revoked_at, created_at`

func scanRefresh(scan func(dest ...any) error) (*model.RefreshToken, error) {
	var t model.RefreshToken
	var revoked sql.NullTime
	err := scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &revoked, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	if revoked.Valid {
		at := revoked.Time
		t.RevokedAt = &at
	}
	return &t, nil
}

// StoreRefresh inserts a session row for the hashed token.  The hash
// column is unique; a duplicate insert is translated to ErrConflict.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	const q = `INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, userID, tokenHash, exp)
	if isDupKey(err) {
		return ErrConflict
	}
	return err
}

// GetByHash loads the session stored for a token hash.
func (r *TokenRepo) GetByHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	q := `SELECT ` + refreshColumns + ` FROM refresh_tokens WHERE token_hash = ? LIMIT 1`
	return scanRefresh(r.db.QueryRowContext(ctx, q, tokenHash).Scan)
}

// ValidateRefresh returns the owning user's ID when the hash belongs to
// a live session.  Revoked or expired sessions report sql.ErrNoRows,
// indistinguishable from a hash that was never issued.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	t, err := r.GetByHash(ctx, tokenHash)
	if err != nil {
		return 0, err
	}
	if t.RevokedAt != nil || time.Now().UTC().After(t.ExpiresAt) {
		return 0, sql.ErrNoRows
	}
	return t.UserID, nil
}

// RevokeByHash ends the session stored for a token hash.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	const q = `UPDATE refresh_tokens SET revoked_at = CURRENT_TIMESTAMP
               WHERE token_hash = ? AND revoked_at IS NULL`
	_, err := r.db.ExecContext(ctx, q, tokenHash)
	return err
}

// RevokeAllForUser ends every live session of a user, used by logout
// with "all": true.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	const q = `UPDATE refresh_tokens SET revoked_at = CURRENT_TIMESTAMP
               WHERE user_id = ? AND revoked_at IS NULL`
	_, err := r.db.ExecContext(ctx, q, userID)
	return err
}
