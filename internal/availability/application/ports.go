package application

import (
	"context"
	"time"

	"github.com/stayware/booking-platform/internal/availability/domain"
)

type WindowRepository interface {
	Get(ctx context.Context, id int64) (domain.Window, error)
	// FindCovering returns the window fully containing [checkIn, checkOut)
	// with the most remaining capacity, or ErrWindowNotFound.
	FindCovering(ctx context.Context, hotelID, roomID int64, checkIn, checkOut time.Time) (domain.Window, error)
	Add(ctx context.Context, w domain.Window) (domain.Window, error)
	Update(ctx context.Context, id int64, patch domain.WindowPatch) (domain.Window, error)
	Delete(ctx context.Context, id int64) error
	ListByHotel(ctx context.Context, hotelID int64) ([]domain.Window, error)
	Reserve(ctx context.Context, windowID int64, count int) error
	Release(ctx context.Context, windowID int64, count int) error
}
