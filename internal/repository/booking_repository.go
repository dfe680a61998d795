// Package repository contains data access logic for the booking domain.
// This file implements persistence and the availability overlap queries
// for bookings. Two bookings conflict when they target the same listing,
// both carry an active status (PENDING or CONFIRMED) and their half-open
// [check_in, check_out) intervals intersect. Boundary-touching ranges do
// not conflict: checkout and check-in on the same day is valid.
package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/lodgein/stay-booking/internal/model"
)

// BookingRepo provides CRUD operations and overlap queries for bookings.
// Dates are stored in DATE columns and handled as midnight-anchored UTC
// time.Time values.  All writes that depend on an availability check
// must run through the ...Tx variants inside a transaction that has
// locked the listing row; see ListingRepo.LockTx.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// DB exposes the underlying sql.DB.  It allows callers to begin
// transactions spanning multiple repositories.
func (r *BookingRepo) DB() *sql.DB { return r.db }

const bookingColumns = `id, user_id, listing_id, check_in, check_out, number_of_guests,
       total_price_cents, status, payment_status, special_requests, created_at, updated_at`

// scanBooking reads one bookings row into a model.Booking.  The scanner
// may be an *sql.Row or *sql.Rows positioned on a row.
func scanBooking(scan func(dest ...any) error) (*model.Booking, error) {
	var b model.Booking
	var special sql.NullString
	err := scan(
		&b.ID, &b.UserID, &b.ListingID, &b.CheckIn, &b.CheckOut, &b.NumberOfGuests,
		&b.TotalPriceCents, &b.Status, &b.PaymentStatus, &special, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if special.Valid {
		b.SpecialRequests = special.String
	}
	return &b, nil
}

// isDupKey reports whether err is a MySQL duplicate-key violation
// (error 1062).  The bookings table carries a unique index over
// (listing_id, check_in, check_out, active) where `active` is a
// generated column that is NULL for cancelled/completed rows; a racing
// insert for the identical active range trips it at commit time even
// when the advisory overlap check passed.
func isDupKey(err error) bool {
	return err != nil && strings.Contains(err.Error(), "1062")
}

// nullableText converts an optional free-text field for insertion.
func nullableText(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

// CreateTx inserts a new booking within the scope of an existing
// transaction and populates the generated ID plus DB-default fields
// (status, payment_status, timestamps) on the provided model.  The
// caller must commit or roll back.  A duplicate-key violation from the
// active-range unique index is translated to ErrConflict so callers see
// the same error regardless of which layer detected the clash.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `INSERT INTO bookings
               (user_id, listing_id, check_in, check_out, number_of_guests, total_price_cents, special_requests)
               VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		b.UserID, b.ListingID,
		b.CheckIn.Format(model.DateLayout), b.CheckOut.Format(model.DateLayout),
		b.NumberOfGuests, b.TotalPriceCents, nullableText(b.SpecialRequests),
	)
	if err != nil {
		if isDupKey(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	// Query back the full row to populate defaults
	sel := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	fresh, err := scanBooking(tx.QueryRowContext(ctx, sel, b.ID).Scan)
	if err != nil {
		return err
	}
	*b = *fresh
	return nil
}

// GetByID retrieves a booking by its ID.  It returns ErrBookingNotFound
// when no matching row exists.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	b, err := scanBooking(r.db.QueryRowContext(ctx, q, id).Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return b, nil
}

// ListActive returns all PENDING or CONFIRMED bookings for the listing.
// Read-only; the public availability check applies model.Overlaps to
// the result instead of pushing the interval predicate into SQL.
func (r *BookingRepo) ListActive(ctx context.Context, listingID uint64) ([]model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings
          WHERE listing_id = ? AND status IN ('PENDING','CONFIRMED')`
	return r.queryBookings(ctx, r.db, q, listingID)
}

// FindOverlappingTx returns active bookings intersecting the half-open
// range [checkIn, checkOut), for use inside booking writes.  Two
// half-open intervals [a,b) and [c,d) intersect iff a < d AND c < b, so
// a row conflicts unless it ends on or before the candidate start or
// begins on or after the candidate end.  FOR UPDATE keeps matched rows
// locked until the caller commits, making the check-then-insert
// sequence atomic per listing.  excludeID, when non-zero, removes the
// booking being updated from the check so it cannot conflict with
// itself.
func (r *BookingRepo) FindOverlappingTx(ctx context.Context, tx *sql.Tx, listingID, excludeID uint64, checkIn, checkOut time.Time) ([]model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings
          WHERE listing_id = ? AND status IN ('PENDING','CONFIRMED')
            AND NOT (check_out <= ? OR check_in >= ?)`
	args := []any{listingID, checkIn.Format(model.DateLayout), checkOut.Format(model.DateLayout)}
	if excludeID != 0 {
		q += ` AND id <> ?`
		args = append(args, excludeID)
	}
	q += ` FOR UPDATE`
	return r.queryBookings(ctx, tx, q, args...)
}

// querier abstracts *sql.DB and *sql.Tx for read helpers.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (r *BookingRepo) queryBookings(ctx context.Context, qr querier, q string, args ...any) ([]model.Booking, error) {
	rows, err := qr.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateStayTx persists a patched booking's mutable fields within the
// caller's transaction: dates, guest count, derived price and special
// requests.  Immutable fields (user_id, listing_id) are never touched.
// A duplicate-key violation from the active-range index is translated
// to ErrConflict.
func (r *BookingRepo) UpdateStayTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `UPDATE bookings
               SET check_in = ?, check_out = ?, number_of_guests = ?,
                   total_price_cents = ?, special_requests = ?, updated_at = CURRENT_TIMESTAMP
               WHERE id = ?`
	_, err := tx.ExecContext(ctx, q,
		b.CheckIn.Format(model.DateLayout), b.CheckOut.Format(model.DateLayout),
		b.NumberOfGuests, b.TotalPriceCents, nullableText(b.SpecialRequests), b.ID,
	)
	if isDupKey(err) {
		return ErrConflict
	}
	return err
}

// UpdateSpecialRequests updates only the free-text field.  It is used
// for patches that touch neither dates nor guests, which by design do
// not re-check availability or recompute the price.
func (r *BookingRepo) UpdateSpecialRequests(ctx context.Context, id uint64, text string) error {
	const q = `UPDATE bookings SET special_requests = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, nullableText(text), id)
	return err
}

// UpdateStatus moves a booking to the given lifecycle status.  The
// transition itself must have been validated against the state machine
// by the caller.  Cancellation is a soft state change: the row is never
// deleted, and once the status leaves the active set the generated
// `active` column goes NULL and the row stops blocking availability.
func (r *BookingRepo) UpdateStatus(ctx context.Context, id uint64, status model.BookingStatus) error {
	const q = `UPDATE bookings SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, string(status), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// BookingDetail is a booking joined with its listing for display.  It
// is returned by the list endpoints so clients do not need a second
// round trip for the listing title.
type BookingDetail struct {
	ID              uint64 `json:"id"`
	UserID          uint64 `json:"user_id"`
	ListingID       uint64 `json:"listing_id"`
	ListingTitle    string `json:"listing_title"`
	City            string `json:"city"`
	CheckIn         string `json:"check_in"`
	CheckOut        string `json:"check_out"`
	NumberOfGuests  uint32 `json:"number_of_guests"`
	TotalPriceCents uint32 `json:"total_price_cents"`
	Status          string `json:"status"`
	PaymentStatus   string `json:"payment_status"`
	CreatedAt       string `json:"created_at"`
}

const detailQuery = `SELECT b.id, b.user_id, b.listing_id, l.title, l.city,
                            b.check_in, b.check_out, b.number_of_guests,
                            b.total_price_cents, b.status, b.payment_status, b.created_at
                     FROM bookings b
                     JOIN listings l ON l.id = b.listing_id`

// ListByUser returns all bookings created by the given user, newest
// first.  When none exist an empty slice is returned.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]BookingDetail, error) {
	q := detailQuery + ` WHERE b.user_id = ? ORDER BY b.created_at DESC`
	return r.queryDetails(ctx, q, userID)
}

// ListByListing returns all bookings against one listing, newest first.
// Callers must have verified that the requester hosts the listing or
// holds the admin role.
func (r *BookingRepo) ListByListing(ctx context.Context, listingID uint64) ([]BookingDetail, error) {
	q := detailQuery + ` WHERE b.listing_id = ? ORDER BY b.created_at DESC`
	return r.queryDetails(ctx, q, listingID)
}

func (r *BookingRepo) queryDetails(ctx context.Context, q string, args ...any) ([]BookingDetail, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]BookingDetail, 0)
	for rows.Next() {
		var d BookingDetail
		var in, out, created time.Time
		if err := rows.Scan(
			&d.ID, &d.UserID, &d.ListingID, &d.ListingTitle, &d.City,
			&in, &out, &d.NumberOfGuests,
			&d.TotalPriceCents, &d.Status, &d.PaymentStatus, &created,
		); err != nil {
			return nil, err
		}
		d.CheckIn = in.Format(model.DateLayout)
		d.CheckOut = out.Format(model.DateLayout)
		d.CreatedAt = created.UTC().Format(time.RFC3339)
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}
