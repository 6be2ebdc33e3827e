package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stayware/booking-platform/internal/monitor"
	monitorpg "github.com/stayware/booking-platform/internal/monitor/postgres"
)

func TestListLowCapacity_WindowSelection(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()

	// Direct inserts sidestep the repository's no-past-dates and overlap
	// validation so in-progress and expired windows can be staged.
	seed := func(hotelID, roomID int64, startOffset, endOffset, available, peak int) {
		t.Helper()
		_, err := pool.Exec(ctx, `
			INSERT INTO room_availability (hotel_id, room_id, start_date, end_date,
				available_rooms, peak_rooms, price_per_night_cents)
			VALUES ($1, $2, CURRENT_DATE + $3::int, CURRENT_DATE + $4::int, $5, $6, 10000)`,
			hotelID, roomID, startOffset, endOffset, available, peak)
		require.NoError(t, err)
	}

	seed(1, 1, -5, 5, 1, 10)    // in progress, nearly sold out
	seed(1, 2, 10, 20, 2, 10)   // upcoming within horizon, nearly sold out
	seed(2, 3, -30, -20, 1, 10) // already over
	seed(1, 1, 60, 70, 1, 10)   // beyond the horizon
	seed(1, 2, 25, 35, 8, 10)   // healthy

	src := monitorpg.NewSource(pool)
	horizon := time.Now().UTC().AddDate(0, 0, 30)
	alerts, err := src.ListLowCapacity(ctx, horizon, monitor.AlertThreshold)
	require.NoError(t, err)
	require.Len(t, alerts, 2)

	today := time.Now().UTC()
	assert.Equal(t, today.AddDate(0, 0, -5).Format("2006-01-02"), alerts[0].StartDate.Format("2006-01-02"),
		"a window already in progress still alerts")
	assert.Equal(t, today.AddDate(0, 0, 10).Format("2006-01-02"), alerts[1].StartDate.Format("2006-01-02"))
	for _, a := range alerts {
		assert.Equal(t, int64(1), a.HotelID)
		assert.NotEmpty(t, a.AdminEmail, "alerts carry the admin address from the hotel row")
		assert.LessOrEqual(t, a.Ratio(), monitor.AlertThreshold)
	}
}
