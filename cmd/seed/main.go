package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"busline/internal/config"
	"busline/internal/database"
	"busline/internal/logger"
	"busline/internal/middleware"
	"busline/internal/models"
	"busline/internal/repository"
)

var (
	tripCount  = flag.Int("trips", 5, "Number of demo trips to create")
	seatCount  = flag.Int("seats", 40, "Seats per demo trip")
	priceCents = flag.Int64("price", 15000, "Price per seat in cents")
	clear      = flag.Bool("clear", false, "Delete existing bookings and trips first")
	dryRun     = flag.Bool("dry-run", false, "Show what would be created without writing")
	tokenTTL   = flag.Duration("token-ttl", 24*time.Hour, "Lifetime of the printed access tokens")
)

var routes = [][2]string{
	{"Cairo", "Alexandria"},
	{"Cairo", "Luxor"},
	{"Alexandria", "Marsa Matruh"},
	{"Cairo", "Hurghada"},
	{"Luxor", "Aswan"},
}

func main() {
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logger.Get()

	if *dryRun {
		log.Info("Dry run", "trips", *tripCount, "seats", *seatCount, "price_cents", *priceCents)
		return
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	ctx := context.Background()

	if *clear {
		for _, table := range []string{"bookings", "trips"} {
			if _, err := db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				logger.Fatal("Failed to clear table", "error", err, "table", table)
			}
		}
		log.Info("Cleared existing bookings and trips")
	}

	users := seedUsers(ctx, db)
	seedTrips(ctx, repository.NewTripRepository(db))

	for _, u := range users {
		token, err := middleware.SignToken(cfg.JWTSecret, u.ID, u.Role, *tokenTTL)
		if err != nil {
			logger.Fatal("Failed to sign token", "error", err)
		}
		fmt.Printf("%s (%s): %s\n", u.Name, u.Role, token)
	}
}

func seedUsers(ctx context.Context, db *database.DB) []models.User {
	users := []models.User{
		{Name: "Demo Admin", Email: "admin@busline.test", Phone: "01000000001", Role: models.RoleAdmin},
		{Name: "Demo Passenger", Email: "passenger@busline.test", Phone: "01000000002", Role: models.RolePassenger},
	}

	for i := range users {
		err := db.QueryRowContext(ctx, `
			INSERT INTO users (name, email, phone, role)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name
			RETURNING id`,
			users[i].Name, users[i].Email, users[i].Phone, users[i].Role,
		).Scan(&users[i].ID)
		if err != nil {
			logger.Fatal("Failed to seed user", "error", err, "email", users[i].Email)
		}
	}

	logger.Get().Info("Seeded users", "count", len(users))
	return users
}

func seedTrips(ctx context.Context, trips *repository.TripRepository) {
	for i := 0; i < *tripCount; i++ {
		route := routes[i%len(routes)]
		departure := time.Now().Add(time.Duration(i+1) * 24 * time.Hour).Truncate(time.Hour)

		trip := &models.Trip{
			BusType:     "STANDARD",
			Origin:      route[0],
			Destination: route[1],
			DepartureAt: departure,
			ArrivalAt:   departure.Add(4 * time.Hour),
			TotalSeats:  *seatCount,
			PriceCents:  *priceCents,
		}
		if err := trips.Create(ctx, trip); err != nil {
			logger.Fatal("Failed to seed trip", "error", err)
		}
		logger.Get().Info("Seeded trip",
			"trip_id", trip.ID, "origin", trip.Origin, "destination", trip.Destination,
			"departure_at", trip.DepartureAt)
	}
}
