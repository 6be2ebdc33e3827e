package application

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	availdomain "github.com/stayware/booking-platform/internal/availability/domain"
	"github.com/stayware/booking-platform/internal/booking/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeRepo struct {
	bookings map[int64]domain.Booking
	nextID   int64

	created       []domain.Booking
	createErr     error
	createErrOnce error

	cancelled []int64
	cancelErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{bookings: map[int64]domain.Booking{}, nextID: 1}
}

func (f *fakeRepo) CreateWithOutbox(_ context.Context, b domain.Booking, _ int64) (domain.Booking, error) {
	if f.createErrOnce != nil {
		err := f.createErrOnce
		f.createErrOnce = nil
		return domain.Booking{}, err
	}
	if f.createErr != nil {
		return domain.Booking{}, f.createErr
	}
	b.ID = f.nextID
	f.nextID++
	f.bookings[b.ID] = b
	f.created = append(f.created, b)
	return b, nil
}

func (f *fakeRepo) CancelWithOutbox(_ context.Context, bookingID int64, reason string, cancelledAt time.Time, _ []byte) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	b, ok := f.bookings[bookingID]
	if !ok {
		return domain.ErrBookingNotFound
	}
	b.Status = domain.StatusCancelled
	b.CancelledAt = &cancelledAt
	b.CancellationReason = reason
	f.bookings[bookingID] = b
	f.cancelled = append(f.cancelled, bookingID)
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id int64) (domain.Booking, error) {
	b, ok := f.bookings[id]
	if !ok {
		return domain.Booking{}, domain.ErrBookingNotFound
	}
	return b, nil
}

func (f *fakeRepo) GetByReference(_ context.Context, ref string) (domain.Booking, error) {
	for _, b := range f.bookings {
		if b.BookingReference == ref {
			return b, nil
		}
	}
	return domain.Booking{}, domain.ErrBookingNotFound
}

func (f *fakeRepo) ListByUser(_ context.Context, userID int64) ([]domain.Booking, error) {
	var res []domain.Booking
	for _, b := range f.bookings {
		if b.UserID != nil && *b.UserID == userID {
			res = append(res, b)
		}
	}
	return res, nil
}

func (f *fakeRepo) ListByHotel(_ context.Context, hotelID int64, _, _ *time.Time) ([]domain.Booking, error) {
	var res []domain.Booking
	for _, b := range f.bookings {
		if b.HotelID == hotelID {
			res = append(res, b)
		}
	}
	return res, nil
}

type fakeCatalog struct {
	hotels map[int64]domain.Hotel
	rooms  map[int64]domain.Room
}

func (f *fakeCatalog) GetHotel(_ context.Context, id int64) (domain.Hotel, error) {
	h, ok := f.hotels[id]
	if !ok {
		return domain.Hotel{}, domain.ErrHotelNotFound
	}
	return h, nil
}

func (f *fakeCatalog) GetRoom(_ context.Context, hotelID, roomID int64) (domain.Room, error) {
	r, ok := f.rooms[roomID]
	if !ok || r.HotelID != hotelID {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	return r, nil
}

type fakeLedger struct {
	window availdomain.Window
	err    error
}

func (f *fakeLedger) FindCoveringWindow(_ context.Context, _, _ int64, _, _ time.Time) (availdomain.Window, error) {
	if f.err != nil {
		return availdomain.Window{}, f.err
	}
	return f.window, nil
}

func day(offset int) time.Time {
	t := time.Now().UTC().AddDate(0, 0, offset)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func testFixture(available int) (*fakeRepo, *fakeCatalog, *fakeLedger) {
	repo := newFakeRepo()
	catalog := &fakeCatalog{
		hotels: map[int64]domain.Hotel{1: {ID: 1, Name: "Grand Plaza Hotel", Location: "New York", AdminEmail: "admin@grandplaza.example"}},
		rooms:  map[int64]domain.Room{10: {ID: 10, HotelID: 1, RoomType: "Deluxe Suite", MaxOccupancy: 2}},
	}
	ledger := &fakeLedger{window: availdomain.Window{
		ID:                 100,
		HotelID:            1,
		RoomID:             10,
		StartDate:          day(0),
		EndDate:            day(90),
		AvailableRooms:     available,
		PeakRooms:          available,
		PricePerNightCents: 15000,
	}}
	return repo, catalog, ledger
}

func validRequest() domain.CreateRequest {
	return domain.CreateRequest{
		HotelID:        1,
		RoomID:         10,
		CheckIn:        day(7),
		CheckOut:       day(9),
		NumberOfRooms:  2,
		NumberOfGuests: 2,
		GuestName:      "Alice Smith",
		GuestEmail:     "alice@example.com",
	}
}

func TestCreateBooking_PricesTotalFromNightsAndRooms(t *testing.T) {
	repo, catalog, ledger := testFixture(5)
	svc := NewService(testLogger(), repo, catalog, ledger)

	b, err := svc.CreateBooking(context.Background(), validRequest(), nil)

	require.NoError(t, err)
	// 2 nights * 2 rooms * $150/night
	assert.Equal(t, int64(60000), b.TotalPriceCents)
	assert.Equal(t, domain.StatusConfirmed, b.Status)
	assert.Equal(t, "Grand Plaza Hotel", b.HotelName)
	assert.Equal(t, "Deluxe Suite", b.RoomType)
	assert.Regexp(t, `^BK\d{14}[0-9A-F]{8}$`, b.BookingReference)
	require.Len(t, repo.created, 1)
}

func TestCreateBooking_InsufficientCapacity(t *testing.T) {
	repo, catalog, ledger := testFixture(1)
	svc := NewService(testLogger(), repo, catalog, ledger)

	_, err := svc.CreateBooking(context.Background(), validRequest(), nil)

	assert.ErrorIs(t, err, domain.ErrNoAvailability)
	assert.Empty(t, repo.created)
}

func TestCreateBooking_NoCoveringWindow(t *testing.T) {
	repo, catalog, ledger := testFixture(5)
	ledger.err = availdomain.ErrWindowNotFound
	svc := NewService(testLogger(), repo, catalog, ledger)

	_, err := svc.CreateBooking(context.Background(), validRequest(), nil)

	assert.ErrorIs(t, err, domain.ErrNoAvailability)
	assert.Empty(t, repo.created)
}

func TestCreateBooking_DateValidation(t *testing.T) {
	repo, catalog, ledger := testFixture(5)
	svc := NewService(testLogger(), repo, catalog, ledger)

	cases := []struct {
		name     string
		checkIn  time.Time
		checkOut time.Time
	}{
		{"past check-in", day(-1), day(2)},
		{"check-out before check-in", day(5), day(3)},
		{"zero nights", day(5), day(5)},
		{"stay too long", day(1), day(1 + domain.MaxStayNights + 1)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			req.CheckIn = tc.checkIn
			req.CheckOut = tc.checkOut
			_, err := svc.CreateBooking(context.Background(), req, nil)
			assert.ErrorIs(t, err, domain.ErrInvalidDateRange)
		})
	}
	assert.Empty(t, repo.created)
}

func TestCreateBooking_RejectsOverOccupancy(t *testing.T) {
	repo, catalog, ledger := testFixture(5)
	svc := NewService(testLogger(), repo, catalog, ledger)

	req := validRequest()
	req.NumberOfGuests = 3

	_, err := svc.CreateBooking(context.Background(), req, nil)

	assert.ErrorIs(t, err, domain.ErrInvalidOccupancy)
	assert.Empty(t, repo.created)
}

func TestCreateBooking_RejectsZeroRooms(t *testing.T) {
	repo, catalog, ledger := testFixture(5)
	svc := NewService(testLogger(), repo, catalog, ledger)

	req := validRequest()
	req.NumberOfRooms = 0

	_, err := svc.CreateBooking(context.Background(), req, nil)

	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestCreateBooking_UnknownHotelAndRoom(t *testing.T) {
	repo, catalog, ledger := testFixture(5)
	svc := NewService(testLogger(), repo, catalog, ledger)

	req := validRequest()
	req.HotelID = 99
	_, err := svc.CreateBooking(context.Background(), req, nil)
	assert.ErrorIs(t, err, domain.ErrHotelNotFound)

	req = validRequest()
	req.RoomID = 99
	_, err = svc.CreateBooking(context.Background(), req, nil)
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)

	assert.Empty(t, repo.created)
}

func TestCreateBooking_RetriesOnDuplicateReference(t *testing.T) {
	repo, catalog, ledger := testFixture(5)
	repo.createErrOnce = domain.ErrDuplicateReference
	svc := NewService(testLogger(), repo, catalog, ledger)

	b, err := svc.CreateBooking(context.Background(), validRequest(), nil)

	require.NoError(t, err)
	assert.NotEmpty(t, b.BookingReference)
	require.Len(t, repo.created, 1)
}

func TestCancelBooking_ReleasesRooms(t *testing.T) {
	repo, catalog, ledger := testFixture(5)
	svc := NewService(testLogger(), repo, catalog, ledger)

	req := validRequest()
	req.CheckIn = day(2) // 48h out, comfortably past the cutoff
	req.CheckOut = day(4)
	created, err := svc.CreateBooking(context.Background(), req, nil)
	require.NoError(t, err)

	cancelled, err := svc.CancelBooking(context.Background(), created.ID, "change of plans")

	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)
	assert.Equal(t, "change of plans", cancelled.CancellationReason)
	require.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, []int64{created.ID}, repo.cancelled)
}

func TestCancelBooking_CutoffClosed(t *testing.T) {
	repo, catalog, ledger := testFixture(5)
	svc := NewService(testLogger(), repo, catalog, ledger)

	req := validRequest()
	req.CheckIn = day(1)
	req.CheckOut = day(3)
	created, err := svc.CreateBooking(context.Background(), req, nil)
	require.NoError(t, err)

	// 23 hours before check-in: inside the 24h cutoff.
	svc.now = func() time.Time { return created.CheckIn.Add(-23 * time.Hour) }

	_, err = svc.CancelBooking(context.Background(), created.ID, "too late")

	assert.ErrorIs(t, err, domain.ErrCancellationWindowClosed)
	assert.Empty(t, repo.cancelled)
}

func TestCancelBooking_AlreadyCancelled(t *testing.T) {
	repo, catalog, ledger := testFixture(5)
	svc := NewService(testLogger(), repo, catalog, ledger)

	req := validRequest()
	req.CheckIn = day(5)
	req.CheckOut = day(7)
	created, err := svc.CreateBooking(context.Background(), req, nil)
	require.NoError(t, err)

	_, err = svc.CancelBooking(context.Background(), created.ID, "first")
	require.NoError(t, err)

	_, err = svc.CancelBooking(context.Background(), created.ID, "second")
	assert.ErrorIs(t, err, domain.ErrAlreadyCancelled)
}

func TestCancelBooking_CompletedStay(t *testing.T) {
	repo, catalog, ledger := testFixture(5)
	svc := NewService(testLogger(), repo, catalog, ledger)

	repo.bookings[42] = domain.Booking{ID: 42, Status: domain.StatusCheckedOut, CheckIn: day(-10)}

	_, err := svc.CancelBooking(context.Background(), 42, "")
	assert.ErrorIs(t, err, domain.ErrAlreadyCompleted)
}

func TestCancelBooking_NotFound(t *testing.T) {
	repo, catalog, ledger := testFixture(5)
	svc := NewService(testLogger(), repo, catalog, ledger)

	_, err := svc.CancelBooking(context.Background(), 9999, "")
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)
}

func TestCheckAvailability(t *testing.T) {
	repo, catalog, ledger := testFixture(3)
	svc := NewService(testLogger(), repo, catalog, ledger)

	ok, err := svc.CheckAvailability(context.Background(), 1, 10, day(7), day(9), 3)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.CheckAvailability(context.Background(), 1, 10, day(7), day(9), 4)
	require.NoError(t, err)
	assert.False(t, ok)

	ledger.err = availdomain.ErrWindowNotFound
	ok, err = svc.CheckAvailability(context.Background(), 1, 10, day(7), day(9), 1)
	require.NoError(t, err)
	assert.False(t, ok)
}
