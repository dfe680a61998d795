package model

import "time"

// ListingStatus enumerates the publication states of a listing.
type ListingStatus string

const (
	ListingActive   ListingStatus = "ACTIVE"
	ListingInactive ListingStatus = "INACTIVE"
	ListingPending  ListingStatus = "PENDING"
)

// Listing represents a rentable property owned by a host.  PriceCents is
// the nightly rate used when deriving a booking's total price.  Rating is
// a derived aggregate over the listing's reviews and is recomputed by the
// repository after every review mutation.
type Listing struct {
	ID          uint64
	HostID      uint64
	Title       string
	Description string
	PriceCents  uint32
	City        string
	Country     string
	Address     string
	MaxGuests   uint32
	Rating      float64
	Status      ListingStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Review is one user's rating of a listing.  Reviews form an owned
// collection under the listing; the listing's Rating field aggregates
// them.
type Review struct {
	ID        uint64
	ListingID uint64
	UserID    uint64
	Rating    uint8 // 1..5
	Comment   string
	CreatedAt time.Time
}
