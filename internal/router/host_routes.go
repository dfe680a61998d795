package router

import (
	"github.com/labstack/echo/v4"

	"github.com/lodgein/stay-booking/internal/handler"
	"github.com/lodgein/stay-booking/internal/middleware"
	"github.com/lodgein/stay-booking/internal/model"
)

// RegisterHost registers host-scoped endpoints under /v1.  All routes
// require a valid JWT and the HOST or ADMIN role.  Hosts manage their
// own listings, see the bookings made against them and confirm pending
// ones; admins pass the same routes with ownership checks relaxed in
// the handlers.
func RegisterHost(e *echo.Echo, l *handler.ListingHandler, b *handler.BookingHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleHost, model.RoleAdmin),
	)
	g.POST("/listings", l.CreateListing)
	g.PUT("/listings/:id", l.UpdateListing)
	g.DELETE("/listings/:id", l.DeleteListing)
	g.GET("/listings/:id/bookings", l.ListListingBookings)
	g.POST("/bookings/:id/confirm", b.ConfirmBooking)
}
