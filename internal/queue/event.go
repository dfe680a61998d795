// Package queue defines message payloads exchanged over the message broker.
package queue

// Event types carried on the booking.events queue.
const (
	EventBookingCreated   = "booking.created"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
)

// BookingEvent is published after a booking mutation commits.  It
// carries enough information for downstream consumers to log, notify or
// feed analytics without querying the primary database.
type BookingEvent struct {
	Type            string `json:"type"`
	BookingID       uint64 `json:"booking_id"`
	UserID          uint64 `json:"user_id"`
	ListingID       uint64 `json:"listing_id"`
	ListingTitle    string `json:"listing_title"`
	CheckIn         string `json:"check_in"`
	CheckOut        string `json:"check_out"`
	NumberOfGuests  uint32 `json:"number_of_guests"`
	TotalPriceCents uint32 `json:"total_price_cents"`
	Status          string `json:"status"`
	OccurredAt      string `json:"occurred_at"`
}
