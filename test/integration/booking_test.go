package integration

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	availdomain "github.com/stayware/booking-platform/internal/availability/domain"
	availpg "github.com/stayware/booking-platform/internal/availability/infrastructure/postgres"
	"github.com/stayware/booking-platform/internal/booking/domain"
	bookingpg "github.com/stayware/booking-platform/internal/booking/infrastructure/postgres"
)

func testBooking(w availdomain.Window, rooms int) domain.Booking {
	now := time.Now().UTC()
	nights := 3
	return domain.Booking{
		BookingReference:   domain.NewBookingReference(now),
		HotelID:            w.HotelID,
		RoomID:             w.RoomID,
		CheckIn:            w.StartDate.AddDate(0, 0, 2),
		CheckOut:           w.StartDate.AddDate(0, 0, 2+nights),
		NumberOfRooms:      rooms,
		NumberOfGuests:     rooms,
		PricePerNightCents: w.PricePerNightCents,
		TotalPriceCents:    w.PricePerNightCents * int64(nights) * int64(rooms),
		Status:             domain.StatusConfirmed,
		GuestName:          "Alice Example",
		GuestEmail:         "alice@example.com",
		BookedAt:           now,
		UpdatedAt:          now,
	}
}

func TestCreateWithOutbox_ReservesAndRecordsEvent(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	availRepo := availpg.NewRepository(log, pool)
	repo := bookingpg.NewRepository(log, pool)
	w := seedWindow(t, availRepo, 5)

	created, err := repo.CreateWithOutbox(ctx, testBooking(w, 2), w.ID)
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	got, err := availRepo.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.AvailableRooms, "reservation decrements the window")

	stored, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.BookingReference, stored.BookingReference)
	assert.Equal(t, domain.StatusConfirmed, stored.Status)

	var payload []byte
	err = pool.QueryRow(ctx, `
		SELECT payload FROM outbox WHERE type=$1 AND aggregate_id=$2`,
		domain.EventBookingConfirmed, "1").Scan(&payload)
	require.NoError(t, err, "confirmation event lands in the outbox in the same transaction")

	var ev domain.BookingConfirmed
	require.NoError(t, json.Unmarshal(payload, &ev))
	assert.Equal(t, created.ID, ev.BookingID)
	assert.Equal(t, created.BookingReference, ev.BookingReference)
	assert.Equal(t, created.TotalPriceCents, ev.TotalPriceCents)
}

func TestCreateWithOutbox_InsufficientCapacityWritesNothing(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	availRepo := availpg.NewRepository(log, pool)
	repo := bookingpg.NewRepository(log, pool)
	w := seedWindow(t, availRepo, 1)

	b := testBooking(w, 2)
	_, err := repo.CreateWithOutbox(ctx, b, w.ID)
	require.ErrorIs(t, err, availdomain.ErrInsufficientCapacity)

	got, err := availRepo.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.AvailableRooms, "failed transaction leaves capacity untouched")

	_, err = repo.GetByReference(ctx, b.BookingReference)
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)

	var n int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT count(*) FROM outbox WHERE type=$1`, domain.EventBookingConfirmed).Scan(&n))
	assert.Zero(t, n, "no event without a booking")
}

func TestCancelWithOutbox_ReleasesAndRecordsEvent(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	availRepo := availpg.NewRepository(log, pool)
	repo := bookingpg.NewRepository(log, pool)
	w := seedWindow(t, availRepo, 5)

	created, err := repo.CreateWithOutbox(ctx, testBooking(w, 2), w.ID)
	require.NoError(t, err)

	cancelledAt := time.Now().UTC()
	payload, err := json.Marshal(domain.NewBookingCancelled(created, cancelledAt, "change of plans"))
	require.NoError(t, err)
	require.NoError(t, repo.CancelWithOutbox(ctx, created.ID, "change of plans", cancelledAt, payload))

	got, err := availRepo.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.AvailableRooms, "cancellation releases the rooms")

	stored, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, stored.Status)
	assert.Equal(t, "change of plans", stored.CancellationReason)
	require.NotNil(t, stored.CancelledAt)

	var n int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT count(*) FROM outbox WHERE type=$1`, domain.EventBookingCancelled).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestCancelWithOutbox_Conflicts(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	availRepo := availpg.NewRepository(log, pool)
	repo := bookingpg.NewRepository(log, pool)
	w := seedWindow(t, availRepo, 5)

	created, err := repo.CreateWithOutbox(ctx, testBooking(w, 1), w.ID)
	require.NoError(t, err)

	cancelledAt := time.Now().UTC()
	payload, err := json.Marshal(domain.NewBookingCancelled(created, cancelledAt, "first"))
	require.NoError(t, err)
	require.NoError(t, repo.CancelWithOutbox(ctx, created.ID, "first", cancelledAt, payload))

	err = repo.CancelWithOutbox(ctx, created.ID, "second", cancelledAt, payload)
	assert.ErrorIs(t, err, domain.ErrAlreadyCancelled)

	got, err := availRepo.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.AvailableRooms, "a rejected cancel must not release twice")

	err = repo.CancelWithOutbox(ctx, 999999, "missing", cancelledAt, payload)
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)
}
