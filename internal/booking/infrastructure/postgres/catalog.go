package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stayware/booking-platform/internal/booking/domain"
)

// Catalog reads the hotel and room reference data bookings are validated
// against.
type Catalog struct {
	pool *pgxpool.Pool
}

func NewCatalog(pool *pgxpool.Pool) *Catalog {
	return &Catalog{pool: pool}
}

func (c *Catalog) GetHotel(ctx context.Context, hotelID int64) (domain.Hotel, error) {
	var h domain.Hotel
	err := c.pool.QueryRow(ctx,
		`SELECT id, name, location, admin_email FROM hotels WHERE id=$1`, hotelID,
	).Scan(&h.ID, &h.Name, &h.Location, &h.AdminEmail)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Hotel{}, domain.ErrHotelNotFound
		}
		return domain.Hotel{}, fmt.Errorf("get hotel: %w", err)
	}
	return h, nil
}

// GetRoom resolves a room and verifies it belongs to the hotel.
func (c *Catalog) GetRoom(ctx context.Context, hotelID, roomID int64) (domain.Room, error) {
	var r domain.Room
	err := c.pool.QueryRow(ctx,
		`SELECT id, hotel_id, room_type, max_occupancy FROM rooms WHERE id=$1 AND hotel_id=$2`,
		roomID, hotelID,
	).Scan(&r.ID, &r.HotelID, &r.RoomType, &r.MaxOccupancy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Room{}, domain.ErrRoomNotFound
		}
		return domain.Room{}, fmt.Errorf("get room: %w", err)
	}
	return r, nil
}
