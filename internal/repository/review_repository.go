package repository

import (
	"context"
	"database/sql"

	"github.com/lodgein/stay-booking/internal/model"
)

// ReviewRepo manages the reviews collection owned by listings.  The
// listing's rating column is a derived aggregate over its reviews and
// is recomputed with an explicit statement after every mutation rather
// than maintained incrementally.
type ReviewRepo struct {
	db *sql.DB
}

// NewReviewRepo returns a new ReviewRepo bound to the given database.
func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{db: db} }

// Create appends a review to a listing and recomputes the listing's
// average rating in the same transaction, so readers never observe a
// review without its effect on the aggregate.
func (r *ReviewRepo) Create(ctx context.Context, rev *model.Review) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const ins = `INSERT INTO reviews (listing_id, user_id, rating, comment) VALUES (?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, ins, rev.ListingID, rev.UserID, rev.Rating, rev.Comment)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rev.ID = uint64(id)
	if err := tx.QueryRowContext(ctx,
		`SELECT created_at FROM reviews WHERE id = ?`, rev.ID).Scan(&rev.CreatedAt); err != nil {
		return err
	}

	if err := recomputeRatingTx(ctx, tx, rev.ListingID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// recomputeRatingTx rewrites the listing's rating from its reviews,
// rounded to one decimal place.  Listings with no reviews get NULL.
func recomputeRatingTx(ctx context.Context, tx *sql.Tx, listingID uint64) error {
	const q = `UPDATE listings
               SET rating = (SELECT ROUND(AVG(rating), 1) FROM reviews WHERE listing_id = ?)
               WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, listingID, listingID)
	return err
}

// ListByListing returns all reviews for a listing, newest first.
func (r *ReviewRepo) ListByListing(ctx context.Context, listingID uint64) ([]model.Review, error) {
	const q = `SELECT id, listing_id, user_id, rating, comment, created_at
               FROM reviews WHERE listing_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, listingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Review, 0)
	for rows.Next() {
		var rev model.Review
		if err := rows.Scan(&rev.ID, &rev.ListingID, &rev.UserID, &rev.Rating, &rev.Comment, &rev.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
