package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/lodgein/stay-booking/internal/config"
	"github.com/lodgein/stay-booking/internal/database"
	"github.com/lodgein/stay-booking/internal/handler"
	"github.com/lodgein/stay-booking/internal/queue"
	"github.com/lodgein/stay-booking/internal/repository"
	"github.com/lodgein/stay-booking/internal/router"
)

func main() {
	// .env is optional; real deployments inject env vars directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient() // nil when Redis is unreachable; middleware degrades

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	listings := repository.NewListingRepo(db)
	bookings := repository.NewBookingRepo(db)
	reviews := repository.NewReviewRepo(db)

	authH := handler.NewAuthHandler(cfg, users, tokens)
	listingH := handler.NewListingHandler(listings, bookings)
	bookingH := handler.NewBookingHandler(bookings, listings)
	reviewH := handler.NewReviewHandler(reviews, listings)

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterPublic(e, listingH, reviewH, rdb)
	router.RegisterUser(e, bookingH, reviewH, cfg.JWTSecret)
	router.RegisterHost(e, listingH, bookingH, cfg.JWTSecret)

	// Background consumer draining booking events off the broker.  It
	// reconnects with backoff on broker failure and never takes the API
	// down with it.
	go func() {
		if err := queue.StartBookingConsumer(); err != nil {
			log.Printf("booking consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
