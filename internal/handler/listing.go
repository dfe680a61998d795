package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/lodgein/stay-booking/internal/model"
	"github.com/lodgein/stay-booking/internal/repository"
)

// ListingHandler serves the public catalog plus host-side management.
type ListingHandler struct {
	Listings *repository.ListingRepo
	Bookings *repository.BookingRepo
}

func NewListingHandler(l *repository.ListingRepo, b *repository.BookingRepo) *ListingHandler {
	return &ListingHandler{Listings: l, Bookings: b}
}

type listingReq struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	PriceCents  uint32 `json:"price_cents"`
	City        string `json:"city"`
	Country     string `json:"country"`
	Address     string `json:"address"`
	MaxGuests   uint32 `json:"max_guests"`
	Status      string `json:"status"`
}

type listingResp struct {
	ID          uint64  `json:"id"`
	HostID      uint64  `json:"host_id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	PriceCents  uint32  `json:"price_cents"`
	City        string  `json:"city"`
	Country     string  `json:"country"`
	Address     string  `json:"address,omitempty"`
	MaxGuests   uint32  `json:"max_guests"`
	Rating      float64 `json:"rating"`
	Status      string  `json:"status"`
}

func toListingResp(l *model.Listing) listingResp {
	return listingResp{
		ID:          l.ID,
		HostID:      l.HostID,
		Title:       l.Title,
		Description: l.Description,
		PriceCents:  l.PriceCents,
		City:        l.City,
		Country:     l.Country,
		Address:     l.Address,
		MaxGuests:   l.MaxGuests,
		Rating:      l.Rating,
		Status:      string(l.Status),
	}
}

func (r listingReq) validate() string {
	if strings.TrimSpace(r.Title) == "" {
		return "title required"
	}
	if r.PriceCents == 0 {
		return "price_cents must be positive"
	}
	if r.MaxGuests == 0 {
		return "max_guests must be positive"
	}
	return ""
}

// CreateListing: POST /v1/listings (HOST or ADMIN).
func (h *ListingHandler) CreateListing(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req listingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	status := model.ListingStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if status != model.ListingInactive && status != model.ListingPending {
		status = model.ListingActive
	}

	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	l := &model.Listing{
		HostID:      uid,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		PriceCents:  req.PriceCents,
		City:        strings.TrimSpace(req.City),
		Country:     strings.TrimSpace(req.Country),
		Address:     strings.TrimSpace(req.Address),
		MaxGuests:   req.MaxGuests,
		Status:      status,
	}
	if err := h.Listings.Create(ctx, l); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create listing failed"})
	}
	return c.JSON(http.StatusCreated, toListingResp(l))
}

// ListListings: GET /v1/listings?city=&page=&limit= (public, cached).
func (h *ListingHandler) ListListings(c echo.Context) error {
	f := repository.ListingFilter{
		City:  strings.TrimSpace(c.QueryParam("city")),
		Page:  1,
		Limit: 20,
	}
	if v, err := strconv.Atoi(c.QueryParam("page")); err == nil && v > 0 {
		f.Page = v
	}
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 && v <= 100 {
		f.Limit = v
	}

	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	items, total, err := h.Listings.List(ctx, f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]listingResp, 0, len(items))
	for i := range items {
		out = append(out, toListingResp(&items[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"listings": out,
		"total":    total,
		"page":     f.Page,
		"limit":    f.Limit,
	})
}

// GetListing: GET /v1/listings/:id (public).
func (h *ListingHandler) GetListing(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid listing id"})
	}

	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	l, err := h.Listings.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrListingNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toListingResp(l))
}

// CheckAvailability: GET /v1/listings/:id/availability?check_in=&check_out=
// (public).  A read-only check; its answer can be stale by the time a
// booking is attempted, which is why CreateBooking re-checks inside its
// transaction.
func (h *ListingHandler) CheckAvailability(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid listing id"})
	}
	checkIn, err := parseDate(c.QueryParam("check_in"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "check_in must be YYYY-MM-DD"})
	}
	checkOut, err := parseDate(c.QueryParam("check_out"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "check_out must be YYYY-MM-DD"})
	}
	if !checkOut.After(checkIn) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "check_out must be after check_in"})
	}

	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	if _, err := h.Listings.GetByID(ctx, id); err != nil {
		if err == repository.ErrListingNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	active, err := h.Bookings.ListActive(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "availability check failed"})
	}
	available := true
	for _, b := range active {
		if model.Overlaps(b.CheckIn, b.CheckOut, checkIn, checkOut) {
			available = false
			break
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"listing_id": id,
		"check_in":   checkIn.Format(model.DateLayout),
		"check_out":  checkOut.Format(model.DateLayout),
		"available":  available,
	})
}

// UpdateListing: PUT /v1/listings/:id (owning host; admin bypasses the
// ownership filter by passing the listing's real host).
func (h *ListingHandler) UpdateListing(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid listing id"})
	}
	var req listingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	status := model.ListingStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if status != model.ListingActive && status != model.ListingInactive && status != model.ListingPending {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}

	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	owner := uid
	if isAdmin(c) {
		existing, err := h.Listings.GetByID(ctx, id)
		if err != nil {
			if err == repository.ErrListingNotFound {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		owner = existing.HostID
	}

	l := &model.Listing{
		ID:          id,
		HostID:      owner,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		PriceCents:  req.PriceCents,
		City:        strings.TrimSpace(req.City),
		Country:     strings.TrimSpace(req.Country),
		Address:     strings.TrimSpace(req.Address),
		MaxGuests:   req.MaxGuests,
		Status:      status,
	}
	switch err := h.Listings.UpdateByIDAndHost(ctx, l, owner); err {
	case nil, repository.ErrNoChange:
		return c.JSON(http.StatusOK, toListingResp(l))
	case repository.ErrForbidden:
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case repository.ErrListingNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
}

// DeleteListing: DELETE /v1/listings/:id.  Refused while the listing
// still has active bookings.
func (h *ListingHandler) DeleteListing(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid listing id"})
	}

	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	owner := uid
	if isAdmin(c) {
		existing, err := h.Listings.GetByID(ctx, id)
		if err != nil {
			if err == repository.ErrListingNotFound {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		owner = existing.HostID
	}

	switch err := h.Listings.DeleteByIDAndHost(ctx, id, owner); err {
	case nil:
		return c.NoContent(http.StatusNoContent)
	case repository.ErrConflict:
		return c.JSON(http.StatusConflict, echo.Map{"error": "listing has active bookings"})
	case repository.ErrListingNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
}

// ListListingBookings: GET /v1/listings/:id/bookings (owning host or
// admin).
func (h *ListingHandler) ListListingBookings(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid listing id"})
	}

	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	l, err := h.Listings.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrListingNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if l.HostID != uid && !isAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	items, err := h.Bookings.ListByListing(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": items})
}
