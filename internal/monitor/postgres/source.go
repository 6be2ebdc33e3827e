package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stayware/booking-platform/internal/notification/domain"
)

type Source struct {
	pool *pgxpool.Pool
}

func NewSource(pool *pgxpool.Pool) *Source {
	return &Source{pool: pool}
}

// ListLowCapacity finds windows still open for stays (in progress or starting
// before the horizon) whose remaining capacity has dropped to the threshold
// share of the observed peak. Windows that never had capacity (peak 0) are
// skipped.
func (s *Source) ListLowCapacity(ctx context.Context, horizon time.Time, threshold float64) ([]domain.LowCapacityAlert, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT h.id, h.name, r.id, r.room_type, h.admin_email,
			a.start_date, a.available_rooms, a.peak_rooms
		FROM room_availability a
		JOIN rooms r ON r.id = a.room_id
		JOIN hotels h ON h.id = a.hotel_id
		WHERE a.end_date > CURRENT_DATE
		  AND a.start_date <= $1
		  AND a.peak_rooms > 0
		  AND a.available_rooms::float / a.peak_rooms <= $2
		ORDER BY h.id, a.start_date`,
		horizon, threshold)
	if err != nil {
		return nil, fmt.Errorf("scan low capacity windows: %w", err)
	}
	defer rows.Close()

	var alerts []domain.LowCapacityAlert
	for rows.Next() {
		var a domain.LowCapacityAlert
		if err := rows.Scan(&a.HotelID, &a.HotelName, &a.RoomID, &a.RoomType, &a.AdminEmail,
			&a.StartDate, &a.AvailableRooms, &a.PeakRooms); err != nil {
			return nil, fmt.Errorf("scan alert row: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}
