package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/lodgein/stay-booking/internal/config"
	"github.com/lodgein/stay-booking/internal/handler"
	"github.com/lodgein/stay-booking/internal/middleware"
)

// RegisterPublic registers unauthenticated browse endpoints.  These are
// the hot read paths, so they carry the Redis response cache and the
// token-bucket rate limiter when Redis is available; with a nil client
// both middlewares pass requests straight through.
func RegisterPublic(e *echo.Echo, l *handler.ListingHandler, rv *handler.ReviewHandler, rdb *redis.Client) {
	cacheCfg := config.LoadCacheConfig()
	rateCfg := config.LoadRateLimitConfig()

	g := e.Group(
		"/v1",
		middleware.NewTokenBucket(rateCfg, rdb),
		middleware.NewRedisCache(cacheCfg, rdb),
	)
	g.GET("/listings", l.ListListings)
	g.GET("/listings/:id", l.GetListing)
	g.GET("/listings/:id/reviews", rv.ListReviews)

	// The availability endpoint is rate limited but never cached: a stale
	// "available" answer would contradict the conflict check done at
	// booking time.
	e.GET("/v1/listings/:id/availability", l.CheckAvailability, middleware.NewTokenBucket(rateCfg, rdb))
}
