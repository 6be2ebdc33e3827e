package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/stayware/booking-platform/internal/availability/domain"
)

// Service is the availability ledger: it owns the time-ranged capacity
// records and validates admin mutations. Capacity arithmetic itself happens
// in the repository so the read-check-write stays atomic per window.
type Service struct {
	log  *slog.Logger
	repo WindowRepository
}

func NewService(log *slog.Logger, repo WindowRepository) *Service {
	return &Service{log: log, repo: repo}
}

func (s *Service) AddWindow(ctx context.Context, w domain.Window) (domain.Window, error) {
	w.StartDate = truncateToDay(w.StartDate)
	w.EndDate = truncateToDay(w.EndDate)

	if err := validateRange(w.StartDate, w.EndDate); err != nil {
		return domain.Window{}, err
	}
	if w.AvailableRooms < 0 {
		return domain.Window{}, fmt.Errorf("%w: available rooms must not be negative", domain.ErrInvalidRange)
	}
	if w.PricePerNightCents < 0 {
		return domain.Window{}, fmt.Errorf("%w: price must not be negative", domain.ErrInvalidRange)
	}
	w.PeakRooms = w.AvailableRooms

	created, err := s.repo.Add(ctx, w)
	if err != nil {
		return domain.Window{}, fmt.Errorf("add window: %w", err)
	}

	s.log.Info("availability window added",
		"window_id", created.ID,
		"hotel_id", created.HotelID,
		"room_id", created.RoomID,
		"rooms", created.AvailableRooms,
	)
	return created, nil
}

func (s *Service) UpdateWindow(ctx context.Context, id int64, patch domain.WindowPatch) (domain.Window, error) {
	if patch.StartDate != nil {
		d := truncateToDay(*patch.StartDate)
		patch.StartDate = &d
	}
	if patch.EndDate != nil {
		d := truncateToDay(*patch.EndDate)
		patch.EndDate = &d
	}
	if patch.AvailableRooms != nil && *patch.AvailableRooms < 0 {
		return domain.Window{}, fmt.Errorf("%w: available rooms must not be negative", domain.ErrInvalidRange)
	}
	if patch.PricePerNightCents != nil && *patch.PricePerNightCents < 0 {
		return domain.Window{}, fmt.Errorf("%w: price must not be negative", domain.ErrInvalidRange)
	}

	updated, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return domain.Window{}, fmt.Errorf("update window: %w", err)
	}
	return updated, nil
}

func (s *Service) DeleteWindow(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete window: %w", err)
	}
	s.log.Info("availability window deleted", "window_id", id)
	return nil
}

func (s *Service) GetWindow(ctx context.Context, id int64) (domain.Window, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ListWindowsByHotel(ctx context.Context, hotelID int64) ([]domain.Window, error) {
	return s.repo.ListByHotel(ctx, hotelID)
}

// FindCoveringWindow resolves the window for a stay. Ties between overlapping
// windows go to the one with the most remaining capacity.
func (s *Service) FindCoveringWindow(ctx context.Context, hotelID, roomID int64, checkIn, checkOut time.Time) (domain.Window, error) {
	return s.repo.FindCovering(ctx, hotelID, roomID, truncateToDay(checkIn), truncateToDay(checkOut))
}

// Reserve atomically decrements capacity; fails with ErrInsufficientCapacity
// when fewer than count rooms remain.
func (s *Service) Reserve(ctx context.Context, windowID int64, count int) error {
	if count < 1 {
		return domain.ErrInvalidCount
	}
	return s.repo.Reserve(ctx, windowID, count)
}

// Release atomically increments capacity. It is deliberately not capped at
// the original capacity; see the ledger notes in DESIGN.md.
func (s *Service) Release(ctx context.Context, windowID int64, count int) error {
	if count < 1 {
		return domain.ErrInvalidCount
	}
	return s.repo.Release(ctx, windowID, count)
}

func validateRange(start, end time.Time) error {
	if !start.Before(end) {
		return fmt.Errorf("%w: start date must be before end date", domain.ErrInvalidRange)
	}
	if start.Before(truncateToDay(time.Now().UTC())) {
		return fmt.Errorf("%w: start date must not be in the past", domain.ErrInvalidRange)
	}
	return nil
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
