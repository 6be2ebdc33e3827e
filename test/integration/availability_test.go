package integration

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stayware/booking-platform/internal/availability/domain"
	availpg "github.com/stayware/booking-platform/internal/availability/infrastructure/postgres"
)

func seedWindow(t *testing.T, repo *availpg.Repository, rooms int) domain.Window {
	t.Helper()
	start := time.Now().UTC().AddDate(0, 0, 100)
	w, err := repo.Add(context.Background(), domain.Window{
		HotelID:            1,
		RoomID:             1,
		StartDate:          start,
		EndDate:            start.AddDate(0, 0, 30),
		AvailableRooms:     rooms,
		PeakRooms:          rooms,
		PricePerNightCents: 10000,
	})
	require.NoError(t, err)
	return w
}

func TestReserve_ExactlyOneWinnerForLastUnit(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	repo := availpg.NewRepository(log, pool)
	w := seedWindow(t, repo, 1)

	const contenders = 8
	results := make([]error, contenders)
	var wg sync.WaitGroup
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = repo.Reserve(ctx, w.ID, 1)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, domain.ErrInsufficientCapacity)
		}
	}
	assert.Equal(t, 1, wins, "exactly one reservation may claim the last room")

	got, err := repo.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.AvailableRooms, "capacity never goes negative")
}

func TestReserveRelease_RoundTripRestoresCapacity(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	repo := availpg.NewRepository(log, pool)
	w := seedWindow(t, repo, 5)

	require.NoError(t, repo.Reserve(ctx, w.ID, 3))
	require.NoError(t, repo.Release(ctx, w.ID, 3))

	got, err := repo.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.AvailableRooms)
	assert.Equal(t, 5, got.PeakRooms)
}

func TestAddWindow_OverlapRejectedByDatabase(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	repo := availpg.NewRepository(log, pool)
	w := seedWindow(t, repo, 5)

	_, err := repo.Add(ctx, domain.Window{
		HotelID:            w.HotelID,
		RoomID:             w.RoomID,
		StartDate:          w.StartDate.AddDate(0, 0, 5),
		EndDate:            w.EndDate.AddDate(0, 0, 5),
		AvailableRooms:     3,
		PeakRooms:          3,
		PricePerNightCents: 10000,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrOverlappingWindow))
}
