package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"busline/internal/cache"
	apperrors "busline/internal/errors"
	"busline/internal/external"
	"busline/internal/hold"
	"busline/internal/models"
)

// fakeStore is an in-memory TripStore + BookingStore with the same commit and
// release semantics as the SQL repositories.
type fakeStore struct {
	mu            sync.Mutex
	trips         map[int64]*models.Trip
	bookings      map[int64]*models.Booking
	nextTripID    int64
	nextBookingID int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		trips:    make(map[int64]*models.Trip),
		bookings: make(map[int64]*models.Booking),
	}
}

func (f *fakeStore) addTrip(totalSeats int, priceCents int64) *models.Trip {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextTripID++
	trip := &models.Trip{
		ID:             f.nextTripID,
		BusType:        "STANDARD",
		Origin:         "Cairo",
		Destination:    "Alexandria",
		DepartureAt:    time.Now().Add(24 * time.Hour),
		ArrivalAt:      time.Now().Add(27 * time.Hour),
		TotalSeats:     totalSeats,
		AvailableSeats: totalSeats,
		Seats:          models.NewSeatMap(totalSeats),
		PriceCents:     priceCents,
	}
	f.trips[trip.ID] = trip
	return trip
}

func (f *fakeStore) Create(ctx context.Context, trip *models.Trip) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextTripID++
	trip.ID = f.nextTripID
	trip.AvailableSeats = trip.TotalSeats
	trip.Seats = models.NewSeatMap(trip.TotalSeats)
	f.trips[trip.ID] = trip
	return nil
}

func (f *fakeStore) GetByID(ctx context.Context, id int64) (*models.Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	trip, ok := f.trips[id]
	if !ok {
		return nil, apperrors.NotFoundf("trip %d does not exist", id)
	}
	copied := *trip
	copied.Seats = make(models.SeatMap, len(trip.Seats))
	for seat, state := range trip.Seats {
		copied.Seats[seat] = state
	}
	return &copied, nil
}

func (f *fakeStore) ReleaseSeats(ctx context.Context, tripID int64, seats []int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.releaseLocked(tripID, seats)
}

func (f *fakeStore) releaseLocked(tripID int64, seats []int) (int, error) {
	trip, ok := f.trips[tripID]
	if !ok {
		return 0, apperrors.NotFoundf("trip %d does not exist", tripID)
	}

	released := 0
	for _, seat := range seats {
		if trip.Seats[seat] == models.SeatBooked {
			trip.Seats[seat] = models.SeatAvailable
			released++
		}
	}
	trip.AvailableSeats += released
	return released, nil
}

func (f *fakeStore) CreateBooking(ctx context.Context, booking *models.Booking, deadline time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	trip, ok := f.trips[booking.TripID]
	if !ok {
		return apperrors.NotFoundf("trip %d does not exist", booking.TripID)
	}

	var taken []int
	seen := make(map[int]bool, len(booking.Seats))
	for _, seat := range booking.Seats {
		if seen[seat] {
			return apperrors.Validationf("seat %d selected more than once", seat)
		}
		seen[seat] = true
		if trip.Seats[seat] != models.SeatAvailable {
			taken = append(taken, seat)
		}
	}
	if len(taken) > 0 {
		return apperrors.NewSeatConflict(booking.TripID, taken)
	}

	for _, seat := range booking.Seats {
		trip.Seats[seat] = models.SeatBooked
	}
	trip.AvailableSeats -= len(booking.Seats)

	f.nextBookingID++
	booking.ID = f.nextBookingID
	booking.TotalPriceCents = trip.PriceCents * int64(booking.SeatsBooked)
	booking.Status = models.BookingPending
	booking.PaymentStatus = models.PaymentPending
	booking.Deadline = deadline
	booking.CreatedAt = time.Now()

	stored := *booking
	f.bookings[booking.ID] = &stored
	return nil
}

func (f *fakeStore) GetBookingByID(ctx context.Context, id int64) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, ok := f.bookings[id]
	if !ok {
		return nil, apperrors.NotFoundf("booking %d does not exist", id)
	}
	copied := *b
	return &copied, nil
}

func (f *fakeStore) GetByOrderID(ctx context.Context, orderID string) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, b := range f.bookings {
		if b.PaymentOrderID != nil && *b.PaymentOrderID == orderID {
			copied := *b
			return &copied, nil
		}
	}
	return nil, apperrors.NotFoundf("booking with order %s does not exist", orderID)
}

func (f *fakeStore) SetOrderID(ctx context.Context, id int64, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, ok := f.bookings[id]
	if !ok {
		return apperrors.NotFoundf("booking %d does not exist", id)
	}
	b.PaymentOrderID = &orderID
	return nil
}

func (f *fakeStore) DeleteWithRelease(ctx context.Context, booking *models.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, err := f.releaseLocked(booking.TripID, booking.Seats); err != nil {
		return err
	}
	delete(f.bookings, booking.ID)
	return nil
}

func (f *fakeStore) ConfirmCash(ctx context.Context, id int64) (*models.Booking, bool, error) {
	cash := models.PayCash
	return f.finalize(id, models.BookingConfirmed, models.PaymentPaid, &cash, nil, false)
}

func (f *fakeStore) ApplyPaymentResult(ctx context.Context, id int64, success bool, transactionRef string) (*models.Booking, bool, error) {
	var ref *string
	if transactionRef != "" {
		ref = &transactionRef
	}
	if success {
		return f.finalize(id, models.BookingConfirmed, models.PaymentPaid, nil, ref, false)
	}
	return f.finalize(id, models.BookingCancelled, models.PaymentFailed, nil, ref, true)
}

func (f *fakeStore) Cancel(ctx context.Context, id int64) (*models.Booking, bool, error) {
	return f.finalize(id, models.BookingCancelled, models.PaymentFailed, nil, nil, true)
}

func (f *fakeStore) finalize(id int64, status, paymentStatus string, paymentType, ref *string, releaseSeats bool) (*models.Booking, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, ok := f.bookings[id]
	if !ok {
		return nil, false, apperrors.NotFoundf("booking %d does not exist", id)
	}
	if b.Terminal() {
		copied := *b
		return &copied, false, nil
	}

	if releaseSeats {
		if _, err := f.releaseLocked(b.TripID, b.Seats); err != nil {
			return nil, false, err
		}
	}

	b.Status = status
	b.PaymentStatus = paymentStatus
	if paymentType != nil {
		b.PaymentType = *paymentType
	}
	if ref != nil {
		b.PaymentRef = ref
	}
	copied := *b
	return &copied, true, nil
}

func (f *fakeStore) GetExpired(ctx context.Context, now time.Time) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.Booking
	for _, b := range f.bookings {
		if b.Status == models.BookingPending && b.Deadline.Before(now) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeStore) LiveSeats(ctx context.Context, tripID int64) (map[int]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	live := make(map[int]bool)
	for _, b := range f.bookings {
		if b.TripID != tripID || b.Status == models.BookingCancelled {
			continue
		}
		for _, seat := range b.Seats {
			live[seat] = true
		}
	}
	return live, nil
}

func (f *fakeStore) TripIDsWithBookedSeats(ctx context.Context) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var ids []int64
	for id, trip := range f.trips {
		if trip.AvailableSeats < trip.TotalSeats {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// bookingStoreAdapter renames the methods that clash between the two store
// interfaces implemented by fakeStore.
type bookingStoreAdapter struct {
	*fakeStore
}

func (a bookingStoreAdapter) Create(ctx context.Context, booking *models.Booking, deadline time.Time) error {
	return a.CreateBooking(ctx, booking, deadline)
}

func (a bookingStoreAdapter) GetByID(ctx context.Context, id int64) (*models.Booking, error) {
	return a.GetBookingByID(ctx, id)
}

// fakeGateway is a scriptable PaymentGateway.
type fakeGateway struct {
	mu         sync.Mutex
	orders     int
	keys       int
	orderErr   error
	keyErr     error
	lastAmount int64
}

func (g *fakeGateway) CreateOrder(ctx context.Context, amountCents int64, itemName, description string, quantity int) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.orderErr != nil {
		return "", g.orderErr
	}
	g.orders++
	g.lastAmount = amountCents
	return "order-" + strconv.Itoa(g.orders), nil
}

func (g *fakeGateway) PaymentKey(ctx context.Context, orderID string, amountCents int64, billing external.BillingData) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.keyErr != nil {
		return "", g.keyErr
	}
	g.keys++
	return "key-for-" + orderID, nil
}

// fakePublisher records published subjects.
type fakePublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (p *fakePublisher) Publish(subject string, data interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	return nil
}

func (p *fakePublisher) published(subject string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for _, s := range p.subjects {
		if s == subject {
			n++
		}
	}
	return n
}

type testEnv struct {
	store     *fakeStore
	holdStore *hold.Store
	gateway   *fakeGateway
	pub       *fakePublisher

	trips    *TripService
	holds    *HoldService
	bookings *BookingService
	payments *PaymentService
	sweeper  *SweeperService

	passenger *models.User
	other     *models.User
	admin     *models.User
}

func newEnv() *testEnv {
	store := newFakeStore()
	bookingStore := bookingStoreAdapter{store}
	holdStore := hold.NewStore(cache.NewMemory(), 10*time.Minute)
	gateway := &fakeGateway{}
	pub := &fakePublisher{}

	trips := NewTripService(store, cache.NewMemory(), 5*time.Minute)
	holds := NewHoldService(store, holdStore)
	bookings := NewBookingService(bookingStore, store, holdStore, gateway, pub, trips, 2*time.Minute)
	payments := NewPaymentService(bookingStore, pub, trips)
	sweeper := NewSweeperService(bookingStore, store, pub, trips)

	return &testEnv{
		store:     store,
		holdStore: holdStore,
		gateway:   gateway,
		pub:       pub,
		trips:     trips,
		holds:     holds,
		bookings:  bookings,
		payments:  payments,
		sweeper:   sweeper,
		passenger: &models.User{ID: 1, Name: "Jane Doe", Email: "jane@example.com", Phone: "+201000000001", Role: models.RolePassenger},
		other:     &models.User{ID: 2, Name: "John Roe", Email: "john@example.com", Phone: "+201000000002", Role: models.RolePassenger},
		admin:     &models.User{ID: 9, Name: "Op Admin", Email: "ops@example.com", Phone: "+201000000009", Role: models.RoleAdmin},
	}
}

// holdFor creates a hold for the given seats and returns its token.
func (e *testEnv) holdFor(ctx context.Context, user *models.User, tripID int64, paymentType string, seats ...int) (string, error) {
	resp, err := e.holds.Create(ctx, tripID, user, &models.CreateHoldRequest{
		Seats:       seats,
		PaymentType: paymentType,
	})
	if err != nil {
		return "", err
	}
	return resp.HoldToken, nil
}
