package database

import (
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations() error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createUsersTable,
		createTripsTable,
		createBookingsTable,
		createBookingsExpiryIndex,
		createBookingsOrderIndex,
	}

	for i, migration := range migrations {
		slog.Info("Running migration", "step", i+1)
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
    id SERIAL PRIMARY KEY,
    name VARCHAR(100) NOT NULL,
    email VARCHAR(255) UNIQUE NOT NULL,
    phone VARCHAR(11) NOT NULL,
    role VARCHAR(20) NOT NULL DEFAULT 'passenger',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CHECK (role IN ('passenger', 'admin'))
);`

const createTripsTable = `
CREATE TABLE IF NOT EXISTS trips (
    id SERIAL PRIMARY KEY,
    bus_type VARCHAR(20) NOT NULL DEFAULT 'STANDARD',
    origin VARCHAR(100) NOT NULL,
    destination VARCHAR(100) NOT NULL,
    departure_at TIMESTAMPTZ NOT NULL,
    arrival_at TIMESTAMPTZ NOT NULL,
    total_seats INTEGER NOT NULL,
    available_seats INTEGER NOT NULL,
    seats JSONB NOT NULL,
    price_cents BIGINT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CHECK (available_seats >= 0),
    CHECK (available_seats <= total_seats),
    CHECK (bus_type IN ('STANDARD', 'DELUXE', 'VIP', 'MINI'))
);`

const createBookingsTable = `
CREATE TABLE IF NOT EXISTS bookings (
    id SERIAL PRIMARY KEY,
    trip_id INTEGER NOT NULL REFERENCES trips(id),
    user_id INTEGER NOT NULL REFERENCES users(id),
    customer_name VARCHAR(100) NOT NULL,
    customer_phone VARCHAR(11) NOT NULL,
    seats JSONB NOT NULL,
    seats_booked INTEGER NOT NULL,
    total_price_cents BIGINT NOT NULL,
    payment_type VARCHAR(10) NOT NULL DEFAULT 'ONLINE',
    payment_status VARCHAR(10) NOT NULL DEFAULT 'PENDING',
    status VARCHAR(10) NOT NULL DEFAULT 'PENDING',
    payment_order_id VARCHAR(100) UNIQUE,
    payment_reference VARCHAR(100),
    deadline TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CHECK (payment_type IN ('CASH', 'ONLINE', 'WALLET')),
    CHECK (payment_status IN ('PENDING', 'PAID', 'FAILED')),
    CHECK (status IN ('PENDING', 'CONFIRMED', 'CANCELLED'))
);`

const createBookingsExpiryIndex = `
CREATE INDEX IF NOT EXISTS bookings_status_deadline_idx
ON bookings (status, deadline);`

const createBookingsOrderIndex = `
CREATE INDEX IF NOT EXISTS bookings_payment_order_idx
ON bookings (payment_order_id);`
