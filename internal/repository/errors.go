package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a write cannot proceed because of
// conflicting state: a date-range overlap with an active booking,
// or deleting a listing that still has active bookings. Handlers
// should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrListingNotFound indicates that a listing was not located in the DB.
var ErrListingNotFound = errors.New("listing not found")

// ErrBookingNotFound indicates that a booking was not located in the DB.
var ErrBookingNotFound = errors.New("booking not found")

// ErrEmailExists is returned on registration when the email is taken.
var ErrEmailExists = errors.New("email already exists")

// ErrNoChange indicates an UPDATE attempted to set fields equal to
// current values.
var ErrNoChange = errors.New("no change")
