package router

import (
	"github.com/labstack/echo/v4"

	"github.com/lodgein/stay-booking/internal/handler"
	"github.com/lodgein/stay-booking/internal/middleware"
	"github.com/lodgein/stay-booking/internal/model"
)

// RegisterUser registers guest-scoped endpoints under /v1.  All routes
// require a valid JWT; any authenticated role can book a stay or leave a
// review.  Ownership of individual bookings is enforced in the handlers.
func RegisterUser(e *echo.Echo, b *handler.BookingHandler, rv *handler.ReviewHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleUser, model.RoleHost, model.RoleAdmin),
	)
	g.POST("/listings/:id/bookings", b.CreateBooking)
	g.GET("/my-bookings", b.ListMyBookings)
	g.GET("/bookings/:id", b.GetBooking)
	g.PATCH("/bookings/:id", b.UpdateBooking)
	g.DELETE("/bookings/:id", b.CancelBooking)

	g.POST("/listings/:id/reviews", rv.AddReview)
}
