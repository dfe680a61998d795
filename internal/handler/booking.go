package handler

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/lodgein/stay-booking/internal/model"
	"github.com/lodgein/stay-booking/internal/queue"
	"github.com/lodgein/stay-booking/internal/repository"
	queue_publisher "github.com/lodgein/stay-booking/internal/service"
)

// BookingHandler carries the booking lifecycle endpoints.
type BookingHandler struct {
	Bookings *repository.BookingRepo
	Listings *repository.ListingRepo
}

func NewBookingHandler(b *repository.BookingRepo, l *repository.ListingRepo) *BookingHandler {
	return &BookingHandler{Bookings: b, Listings: l}
}

// ----- DTOs -----

type createBookingReq struct {
	CheckIn         string `json:"check_in"`
	CheckOut        string `json:"check_out"`
	NumberOfGuests  uint32 `json:"number_of_guests"`
	SpecialRequests string `json:"special_requests"`
}

// updateBookingReq uses pointers so absent fields are distinguishable
// from zero values: a PATCH only touches what the client sent.
type updateBookingReq struct {
	CheckIn         *string `json:"check_in"`
	CheckOut        *string `json:"check_out"`
	NumberOfGuests  *uint32 `json:"number_of_guests"`
	SpecialRequests *string `json:"special_requests"`
}

type bookingResp struct {
	ID              uint64 `json:"id"`
	UserID          uint64 `json:"user_id"`
	ListingID       uint64 `json:"listing_id"`
	CheckIn         string `json:"check_in"`
	CheckOut        string `json:"check_out"`
	NumberOfGuests  uint32 `json:"number_of_guests"`
	TotalPriceCents uint32 `json:"total_price_cents"`
	Status          string `json:"status"`
	PaymentStatus   string `json:"payment_status"`
	SpecialRequests string `json:"special_requests,omitempty"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

func toBookingResp(b *model.Booking) bookingResp {
	return bookingResp{
		ID:              b.ID,
		UserID:          b.UserID,
		ListingID:       b.ListingID,
		CheckIn:         b.CheckIn.Format(model.DateLayout),
		CheckOut:        b.CheckOut.Format(model.DateLayout),
		NumberOfGuests:  b.NumberOfGuests,
		TotalPriceCents: b.TotalPriceCents,
		Status:          string(b.Status),
		PaymentStatus:   string(b.PaymentStatus),
		SpecialRequests: b.SpecialRequests,
		CreatedAt:       b.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       b.UpdatedAt.Format(time.RFC3339),
	}
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(model.DateLayout, strings.TrimSpace(s))
}

// conflictBody builds the 409 payload for a date clash, naming the
// first conflicting range when one is known.  Clashes detected by the
// storage-level unique index carry no range.
func conflictBody(overlapping []model.Booking) echo.Map {
	body := echo.Map{"error": "listing is not available for those dates"}
	if len(overlapping) > 0 {
		body["conflicting_range"] = echo.Map{
			"check_in":  overlapping[0].CheckIn.Format(model.DateLayout),
			"check_out": overlapping[0].CheckOut.Format(model.DateLayout),
		}
	}
	return body
}

func publishEvent(eventType string, b *model.Booking, listingTitle string) {
	ev := queue.BookingEvent{
		Type:            eventType,
		BookingID:       b.ID,
		UserID:          b.UserID,
		ListingID:       b.ListingID,
		ListingTitle:    listingTitle,
		CheckIn:         b.CheckIn.Format(model.DateLayout),
		CheckOut:        b.CheckOut.Format(model.DateLayout),
		NumberOfGuests:  b.NumberOfGuests,
		TotalPriceCents: b.TotalPriceCents,
		Status:          string(b.Status),
		OccurredAt:      time.Now().UTC().Format(time.RFC3339),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := queue_publisher.PublishBookingEvent(ctx, ev); err != nil {
		log.Printf("publish %s for booking %d failed: %v", eventType, b.ID, err)
	}
}

// CreateBooking: POST /v1/listings/:id/bookings.
//
// The overlap check and the insert run inside one transaction that first
// locks the listing row, so two racing requests for the same listing are
// serialized: the loser re-reads after the winner commits and sees the
// conflict.  The unique index on (listing_id, check_in, check_out,
// active) backstops the same guarantee at the storage layer.
func (h *BookingHandler) CreateBooking(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	listingID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid listing id"})
	}

	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	checkIn, err := parseDate(req.CheckIn)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "check_in must be YYYY-MM-DD"})
	}
	checkOut, err := parseDate(req.CheckOut)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "check_out must be YYYY-MM-DD"})
	}
	if err := model.ValidateStay(checkIn, checkOut, time.Now().UTC()); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if len(req.SpecialRequests) > model.MaxSpecialRequests {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "special_requests too long"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tx, err := h.Bookings.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "begin tx failed"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	listing, err := h.Listings.LockTx(ctx, tx, listingID)
	if err != nil {
		if err == repository.ErrListingNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lock listing failed"})
	}
	if listing.Status != model.ListingActive {
		return c.JSON(http.StatusConflict, echo.Map{"error": "listing is not accepting bookings"})
	}
	if err := model.ValidateGuests(req.NumberOfGuests, listing.MaxGuests); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	overlapping, err := h.Bookings.FindOverlappingTx(ctx, tx, listingID, 0, checkIn, checkOut)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "availability check failed"})
	}
	if len(overlapping) > 0 {
		return c.JSON(http.StatusConflict, conflictBody(overlapping))
	}

	b := &model.Booking{
		UserID:          uid,
		ListingID:       listingID,
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		NumberOfGuests:  req.NumberOfGuests,
		TotalPriceCents: model.TotalPriceCents(checkIn, checkOut, listing.PriceCents),
		Status:          model.StatusPending,
		PaymentStatus:   model.PaymentPending,
		SpecialRequests: req.SpecialRequests,
	}
	if err := h.Bookings.CreateTx(ctx, tx, b); err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, conflictBody(nil))
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create booking failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true

	go publishEvent(queue.EventBookingCreated, b, listing.Title)

	return c.JSON(http.StatusCreated, toBookingResp(b))
}

// canView reports whether uid may read booking b.  Owners always can,
// admins always can, and the host of the booked listing can.
func (h *BookingHandler) canView(ctx context.Context, c echo.Context, b *model.Booking, uid uint64) (bool, error) {
	if b.UserID == uid || isAdmin(c) {
		return true, nil
	}
	listing, err := h.Listings.GetByID(ctx, b.ListingID)
	if err != nil {
		return false, err
	}
	return listing.HostID == uid, nil
}

// GetBooking: GET /v1/bookings/:id.
func (h *BookingHandler) GetBooking(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	b, err := h.Bookings.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrBookingNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	ok, err := h.canView(ctx, c, b, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	return c.JSON(http.StatusOK, toBookingResp(b))
}

// ListMyBookings: GET /v1/my-bookings.
func (h *BookingHandler) ListMyBookings(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Bookings.ListByUser(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": items})
}

// UpdateBooking: PATCH /v1/bookings/:id.
//
// Only the booking owner (or an admin) may modify it, and only while
// the booking is active; CANCELLED and COMPLETED rows are immutable.  A
// date change repeats the availability check with the booking itself
// excluded, so a stay can be shifted into a range it already occupies;
// date and guest changes both recompute the total price.  A
// special_requests-only patch touches neither.
func (h *BookingHandler) UpdateBooking(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	var req updateBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.CheckIn == nil && req.CheckOut == nil && req.NumberOfGuests == nil && req.SpecialRequests == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no fields to update"})
	}
	if req.SpecialRequests != nil && len(*req.SpecialRequests) > model.MaxSpecialRequests {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "special_requests too long"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	b, err := h.Bookings.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrBookingNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if b.UserID != uid && !isAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	if !b.Status.Active() {
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking cannot be modified in status " + string(b.Status)})
	}

	// Free-text only: no date, guest, availability or price concerns.
	if req.CheckIn == nil && req.CheckOut == nil && req.NumberOfGuests == nil {
		if err := h.Bookings.UpdateSpecialRequests(ctx, id, *req.SpecialRequests); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
		}
		b.SpecialRequests = *req.SpecialRequests
		return c.JSON(http.StatusOK, toBookingResp(b))
	}

	checkIn, checkOut := b.CheckIn, b.CheckOut
	datesChanged := false
	if req.CheckIn != nil {
		if checkIn, err = parseDate(*req.CheckIn); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "check_in must be YYYY-MM-DD"})
		}
		datesChanged = true
	}
	if req.CheckOut != nil {
		if checkOut, err = parseDate(*req.CheckOut); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "check_out must be YYYY-MM-DD"})
		}
		datesChanged = true
	}
	if datesChanged {
		if err := model.ValidateStay(checkIn, checkOut, time.Now().UTC()); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
	}

	tx, err := h.Bookings.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "begin tx failed"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	listing, err := h.Listings.LockTx(ctx, tx, b.ListingID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lock listing failed"})
	}
	if req.NumberOfGuests != nil {
		if err := model.ValidateGuests(*req.NumberOfGuests, listing.MaxGuests); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		b.NumberOfGuests = *req.NumberOfGuests
	}
	if datesChanged {
		overlapping, err := h.Bookings.FindOverlappingTx(ctx, tx, b.ListingID, b.ID, checkIn, checkOut)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "availability check failed"})
		}
		if len(overlapping) > 0 {
			return c.JSON(http.StatusConflict, conflictBody(overlapping))
		}
		b.CheckIn, b.CheckOut = checkIn, checkOut
	}
	b.TotalPriceCents = model.TotalPriceCents(b.CheckIn, b.CheckOut, listing.PriceCents)
	if req.SpecialRequests != nil {
		b.SpecialRequests = *req.SpecialRequests
	}

	if err := h.Bookings.UpdateStayTx(ctx, tx, b); err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, conflictBody(nil))
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true

	return c.JSON(http.StatusOK, toBookingResp(b))
}

// CancelBooking: DELETE /v1/bookings/:id.
//
// Cancellation is a status transition, never a row delete, so the
// booking stays on record while its date range is freed.
func (h *BookingHandler) CancelBooking(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	b, err := h.Bookings.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrBookingNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if b.UserID != uid && !isAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	if !b.Status.CanTransition(model.StatusCancelled) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking cannot be cancelled in status " + string(b.Status)})
	}

	if err := h.Bookings.UpdateStatus(ctx, id, model.StatusCancelled); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed"})
	}
	b.Status = model.StatusCancelled

	go publishEvent(queue.EventBookingCancelled, b, "")

	return c.JSON(http.StatusOK, toBookingResp(b))
}

// ConfirmBooking: POST /v1/bookings/:id/confirm (host of the listing or
// admin).  Moves a PENDING booking to CONFIRMED.
func (h *BookingHandler) ConfirmBooking(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	b, err := h.Bookings.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrBookingNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	listing, err := h.Listings.GetByID(ctx, b.ListingID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if listing.HostID != uid && !isAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	if !b.Status.CanTransition(model.StatusConfirmed) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking cannot be confirmed in status " + string(b.Status)})
	}

	if err := h.Bookings.UpdateStatus(ctx, id, model.StatusConfirmed); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "confirm failed"})
	}
	b.Status = model.StatusConfirmed

	go publishEvent(queue.EventBookingConfirmed, b, listing.Title)

	return c.JSON(http.StatusOK, toBookingResp(b))
}
