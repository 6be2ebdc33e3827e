package application

import (
	"context"
	"time"

	availdomain "github.com/stayware/booking-platform/internal/availability/domain"
	"github.com/stayware/booking-platform/internal/booking/domain"
)

type BookingRepository interface {
	// CreateWithOutbox reserves capacity on the window, inserts the booking,
	// and writes the BookingConfirmed outbox row, all in one transaction.
	CreateWithOutbox(ctx context.Context, b domain.Booking, windowID int64) (domain.Booking, error)
	// CancelWithOutbox flips a Confirmed booking to Cancelled, releases the
	// covering window's capacity, and writes the BookingCancelled outbox row,
	// all in one transaction.
	CancelWithOutbox(ctx context.Context, bookingID int64, reason string, cancelledAt time.Time, payload []byte) error
	GetByID(ctx context.Context, id int64) (domain.Booking, error)
	GetByReference(ctx context.Context, reference string) (domain.Booking, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Booking, error)
	ListByHotel(ctx context.Context, hotelID int64, from, to *time.Time) ([]domain.Booking, error)
}

type Catalog interface {
	GetHotel(ctx context.Context, hotelID int64) (domain.Hotel, error)
	GetRoom(ctx context.Context, hotelID, roomID int64) (domain.Room, error)
}

// Ledger is the slice of the availability service the booking engine uses.
type Ledger interface {
	FindCoveringWindow(ctx context.Context, hotelID, roomID int64, checkIn, checkOut time.Time) (availdomain.Window, error)
}
