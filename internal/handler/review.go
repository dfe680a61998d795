package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/lodgein/stay-booking/internal/model"
	"github.com/lodgein/stay-booking/internal/repository"
)

type ReviewHandler struct {
	Reviews  *repository.ReviewRepo
	Listings *repository.ListingRepo
}

func NewReviewHandler(r *repository.ReviewRepo, l *repository.ListingRepo) *ReviewHandler {
	return &ReviewHandler{Reviews: r, Listings: l}
}

type reviewReq struct {
	Rating  uint8  `json:"rating"`
	Comment string `json:"comment"`
}

type reviewResp struct {
	ID        uint64 `json:"id"`
	ListingID uint64 `json:"listing_id"`
	UserID    uint64 `json:"user_id"`
	Rating    uint8  `json:"rating"`
	Comment   string `json:"comment,omitempty"`
	CreatedAt string `json:"created_at"`
}

// AddReview: POST /v1/listings/:id/reviews.  Recomputes the listing's
// aggregate rating in the same transaction as the insert.
func (h *ReviewHandler) AddReview(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	listingID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid listing id"})
	}

	var req reviewReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Rating < 1 || req.Rating > 5 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "rating must be 1..5"})
	}

	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	if _, err := h.Listings.GetByID(ctx, listingID); err != nil {
		if err == repository.ErrListingNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	rev := &model.Review{
		ListingID: listingID,
		UserID:    uid,
		Rating:    req.Rating,
		Comment:   strings.TrimSpace(req.Comment),
	}
	if err := h.Reviews.Create(ctx, rev); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create review failed"})
	}
	return c.JSON(http.StatusCreated, reviewResp{
		ID:        rev.ID,
		ListingID: rev.ListingID,
		UserID:    rev.UserID,
		Rating:    rev.Rating,
		Comment:   rev.Comment,
		CreatedAt: rev.CreatedAt.Format(time.RFC3339),
	})
}

// ListReviews: GET /v1/listings/:id/reviews (public).
func (h *ReviewHandler) ListReviews(c echo.Context) error {
	listingID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid listing id"})
	}

	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	items, err := h.Reviews.ListByListing(ctx, listingID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]reviewResp, 0, len(items))
	for _, r := range items {
		out = append(out, reviewResp{
			ID:        r.ID,
			ListingID: r.ListingID,
			UserID:    r.UserID,
			Rating:    r.Rating,
			Comment:   r.Comment,
			CreatedAt: r.CreatedAt.Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"reviews": out})
}
