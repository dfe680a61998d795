package model

import (
	"errors"
	"fmt"
	"time"
)

// BookingStatus enumerates the lifecycle states of a booking.  Only the
// transition into CANCELLED is driven by this server; CONFIRMED and
// COMPLETED are entered on behalf of external triggers (host approval,
// payment capture) through the explicit transition table below.
type BookingStatus string

const (
	StatusPending   BookingStatus = "PENDING"
	StatusConfirmed BookingStatus = "CONFIRMED"
	StatusCancelled BookingStatus = "CANCELLED"
	StatusCompleted BookingStatus = "COMPLETED"
)

// PaymentStatus tracks the payment state of a booking.  It is recorded
// and surfaced in responses but never advanced by this server; an
// external payment collaborator owns it.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
)

// transitions is the full state machine for BookingStatus.  CANCELLED and
// COMPLETED are terminal.
var transitions = map[BookingStatus][]BookingStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCancelled, StatusCompleted},
}

// CanTransition reports whether moving from s to next is a legal
// lifecycle transition.
func (s BookingStatus) CanTransition(next BookingStatus) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Active reports whether a booking in this status blocks the listing's
// availability for its date range.
func (s BookingStatus) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

// DateLayout is the wire and storage format for check-in/check-out dates.
// Booking dates are calendar dates with no time or zone component.
const DateLayout = "2006-01-02"

// MaxSpecialRequests bounds the free-text special_requests field.
const MaxSpecialRequests = 500

// Booking is the domain representation of a reservation of a listing for
// a contiguous date range.  ID, UserID and ListingID are immutable after
// creation.  TotalPriceCents is derived: Nights(CheckIn, CheckOut) times
// the listing's nightly price.
type Booking struct {
	ID              uint64
	UserID          uint64
	ListingID       uint64
	CheckIn         time.Time
	CheckOut        time.Time
	NumberOfGuests  uint32
	TotalPriceCents uint32
	Status          BookingStatus
	PaymentStatus   PaymentStatus
	SpecialRequests string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Nights returns the number of whole calendar days between check-in and
// check-out.  Both arguments are treated as midnight-anchored dates.
func Nights(checkIn, checkOut time.Time) int {
	return int(checkOut.Sub(checkIn).Hours() / 24)
}

// Overlaps reports whether the half-open intervals [aIn, aOut) and
// [bIn, bOut) intersect.  Boundary touching (aOut == bIn) is not an
// overlap: checkout and check-in on the same day is valid.
func Overlaps(aIn, aOut, bIn, bOut time.Time) bool {
	return aIn.Before(bOut) && bIn.Before(aOut)
}

// ValidateStay enforces the date invariants for a booking's range: both
// dates must be strictly in the future relative to now, and check-out
// must be after check-in.  The returned error messages name the field at
// fault so handlers can surface them directly.
func ValidateStay(checkIn, checkOut, now time.Time) error {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if !checkIn.After(today) {
		return errors.New("check_in must be in the future")
	}
	if !checkOut.After(today) {
		return errors.New("check_out must be in the future")
	}
	if !checkOut.After(checkIn) {
		return errors.New("check_out must be after check_in")
	}
	return nil
}

// ValidateGuests checks the guest count against the listing's capacity.
func ValidateGuests(guests, maxGuests uint32) error {
	if guests == 0 {
		return errors.New("number_of_guests must be positive")
	}
	if maxGuests > 0 && guests > maxGuests {
		return fmt.Errorf("number_of_guests exceeds listing capacity of %d", maxGuests)
	}
	return nil
}

// TotalPriceCents computes the derived booking price from a nightly rate.
func TotalPriceCents(checkIn, checkOut time.Time, nightlyCents uint32) uint32 {
	n := Nights(checkIn, checkOut)
	if n <= 0 {
		return 0
	}
	return uint32(n) * nightlyCents
}
