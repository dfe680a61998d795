package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/lodgein/stay-booking/internal/model"
)

// ListingRepo manages persistence for listings.  Listings are owned by
// hosts; the nightly price and guest capacity feed the booking engine's
// derived-field computation and validation.
type ListingRepo struct {
	db *sql.DB
}

// NewListingRepo constructs a ListingRepo with the given DB handle.
func NewListingRepo(db *sql.DB) *ListingRepo { return &ListingRepo{db: db} }

// DB exposes the underlying sql.DB for callers that need to begin
// transactions spanning multiple repositories.
func (r *ListingRepo) DB() *sql.DB { return r.db }

const listingColumns = `id, host_id, title, description, price_cents, city, country, address,
       max_guests, rating, status, created_at, updated_at`

func scanListing(scan func(dest ...any) error) (*model.Listing, error) {
	var l model.Listing
	var rating sql.NullFloat64
	err := scan(
		&l.ID, &l.HostID, &l.Title, &l.Description, &l.PriceCents, &l.City, &l.Country, &l.Address,
		&l.MaxGuests, &rating, &l.Status, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if rating.Valid {
		l.Rating = rating.Float64
	}
	return &l, nil
}

// Create inserts a new listing and assigns the generated ID plus
// DB-default fields back to the struct.
func (r *ListingRepo) Create(ctx context.Context, l *model.Listing) error {
	const q = `INSERT INTO listings
               (host_id, title, description, price_cents, city, country, address, max_guests)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		l.HostID, l.Title, l.Description, l.PriceCents, l.City, l.Country, l.Address, l.MaxGuests)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)
	sel := `SELECT ` + listingColumns + ` FROM listings WHERE id = ?`
	fresh, err := scanListing(r.db.QueryRowContext(ctx, sel, l.ID).Scan)
	if err != nil {
		return err
	}
	*l = *fresh
	return nil
}

// GetByID retrieves a listing by its ID.  It returns ErrListingNotFound
// when no matching row exists.
func (r *ListingRepo) GetByID(ctx context.Context, id uint64) (*model.Listing, error) {
	q := `SELECT ` + listingColumns + ` FROM listings WHERE id = ?`
	l, err := scanListing(r.db.QueryRowContext(ctx, q, id).Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrListingNotFound
		}
		return nil, err
	}
	return l, nil
}

// LockTx loads a listing inside the caller's transaction with FOR
// UPDATE.  The row lock serializes concurrent booking writes for the
// same listing: a second writer blocks here until the first commits,
// so the overlap check that follows always sees committed state.
// Returns ErrListingNotFound when the listing does not exist.
func (r *ListingRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Listing, error) {
	q := `SELECT ` + listingColumns + ` FROM listings WHERE id = ? FOR UPDATE`
	l, err := scanListing(tx.QueryRowContext(ctx, q, id).Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrListingNotFound
		}
		return nil, err
	}
	return l, nil
}

// ListingFilter narrows List results.  Zero values mean "no filter";
// Page is 1-based and Limit falls back to 10 when unset.
type ListingFilter struct {
	City  string
	Page  int
	Limit int
}

// List returns active listings matching the filter, newest first, plus
// the total count for pagination.
func (r *ListingRepo) List(ctx context.Context, f ListingFilter) ([]model.Listing, int, error) {
	where := []string{"status = 'ACTIVE'"}
	args := []any{}
	if strings.TrimSpace(f.City) != "" {
		where = append(where, "city = ?")
		args = append(args, strings.TrimSpace(f.City))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM listings WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 10
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}
	q := `SELECT ` + listingColumns + ` FROM listings WHERE ` + cond +
		` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, (page-1)*limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]model.Listing, 0)
	for rows.Next() {
		l, err := scanListing(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// UpdateByIDAndHost updates a listing's mutable attributes when it
// belongs to the given host.  It returns ErrListingNotFound when the
// row is missing, ErrForbidden when it belongs to someone else and
// ErrNoChange when every field already holds the requested value.
func (r *ListingRepo) UpdateByIDAndHost(ctx context.Context, l *model.Listing, hostID uint64) error {
	const q = `UPDATE listings
               SET title = ?, description = ?, price_cents = ?, city = ?, country = ?,
                   address = ?, max_guests = ?, status = ?, updated_at = CURRENT_TIMESTAMP
               WHERE id = ? AND host_id = ?
                 AND (title <> ? OR description <> ? OR price_cents <> ? OR city <> ? OR country <> ?
                      OR address <> ? OR max_guests <> ? OR status <> ?)`
	res, err := r.db.ExecContext(ctx, q,
		l.Title, l.Description, l.PriceCents, l.City, l.Country, l.Address, l.MaxGuests, string(l.Status),
		l.ID, hostID,
		l.Title, l.Description, l.PriceCents, l.City, l.Country, l.Address, l.MaxGuests, string(l.Status),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish "not yours / missing" from "nothing to change".
		var owner uint64
		err := r.db.QueryRowContext(ctx, `SELECT host_id FROM listings WHERE id = ?`, l.ID).Scan(&owner)
		if err != nil {
			return ErrListingNotFound
		}
		if owner != hostID {
			return ErrForbidden
		}
		return ErrNoChange
	}
	return nil
}

// DeleteByIDAndHost removes a listing owned by the host.  Deletion is
// refused with ErrConflict while active bookings exist against the
// listing; cancelled or completed bookings do not block it.
func (r *ListingRepo) DeleteByIDAndHost(ctx context.Context, id, hostID uint64) error {
	var owner uint64
	err := r.db.QueryRowContext(ctx, `SELECT host_id FROM listings WHERE id = ?`, id).Scan(&owner)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrListingNotFound
		}
		return err
	}
	if owner != hostID {
		return ErrForbidden
	}
	var active int
	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE listing_id = ? AND status IN ('PENDING','CONFIRMED')`,
		id).Scan(&active)
	if err != nil {
		return err
	}
	if active > 0 {
		return ErrConflict
	}
	_, err = r.db.ExecContext(ctx, `DELETE FROM listings WHERE id = ?`, id)
	return err
}
