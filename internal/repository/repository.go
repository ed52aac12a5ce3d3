package repository

import (
	"busline/internal/database"
)

type Repositories struct {
	Trips    *TripRepository
	Bookings *BookingRepository
	Users    *UserRepository
}

func NewRepositories(db *database.DB) *Repositories {
	trips := NewTripRepository(db)
	return &Repositories{
		Trips:    trips,
		Bookings: NewBookingRepository(db, trips),
		Users:    NewUserRepository(db),
	}
}
