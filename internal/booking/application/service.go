package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	availdomain "github.com/stayware/booking-platform/internal/availability/domain"
	"github.com/stayware/booking-platform/internal/booking/domain"
)

// Service implements the booking engine. All capacity accounting happens in
// the repository transaction; the service validates, prices, and shapes the
// domain event that eventually becomes a guest notification.
type Service struct {
	log     *slog.Logger
	repo    BookingRepository
	catalog Catalog
	ledger  Ledger
	now     func() time.Time
}

func NewService(log *slog.Logger, repo BookingRepository, catalog Catalog, ledger Ledger) *Service {
	return &Service{
		log:     log,
		repo:    repo,
		catalog: catalog,
		ledger:  ledger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) CreateBooking(ctx context.Context, req domain.CreateRequest, userID *int64) (domain.Booking, error) {
	req.CheckIn = truncateToDay(req.CheckIn)
	req.CheckOut = truncateToDay(req.CheckOut)

	if err := s.validateDates(req.CheckIn, req.CheckOut); err != nil {
		return domain.Booking{}, err
	}
	if req.NumberOfRooms < 1 {
		return domain.Booking{}, fmt.Errorf("%w: number of rooms must be at least 1", domain.ErrInvalidRequest)
	}
	if req.NumberOfGuests < 1 {
		return domain.Booking{}, fmt.Errorf("%w: number of guests must be at least 1", domain.ErrInvalidRequest)
	}

	hotel, err := s.catalog.GetHotel(ctx, req.HotelID)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("resolve hotel: %w", err)
	}
	room, err := s.catalog.GetRoom(ctx, req.HotelID, req.RoomID)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("resolve room: %w", err)
	}
	if req.NumberOfGuests > room.MaxOccupancy {
		return domain.Booking{}, fmt.Errorf("%w: room sleeps %d, requested %d",
			domain.ErrInvalidOccupancy, room.MaxOccupancy, req.NumberOfGuests)
	}

	window, err := s.ledger.FindCoveringWindow(ctx, req.HotelID, req.RoomID, req.CheckIn, req.CheckOut)
	if err != nil {
		if errors.Is(err, availdomain.ErrWindowNotFound) {
			return domain.Booking{}, domain.ErrNoAvailability
		}
		return domain.Booking{}, fmt.Errorf("find covering window: %w", err)
	}
	if window.AvailableRooms < req.NumberOfRooms {
		return domain.Booking{}, fmt.Errorf("%w: %d room(s) available, %d requested",
			domain.ErrNoAvailability, window.AvailableRooms, req.NumberOfRooms)
	}

	now := s.now()
	nights := int(req.CheckOut.Sub(req.CheckIn) / (24 * time.Hour))
	b := domain.Booking{
		BookingReference:   domain.NewBookingReference(now),
		UserID:             userID,
		HotelID:            req.HotelID,
		RoomID:             req.RoomID,
		CheckIn:            req.CheckIn,
		CheckOut:           req.CheckOut,
		NumberOfRooms:      req.NumberOfRooms,
		NumberOfGuests:     req.NumberOfGuests,
		PricePerNightCents: window.PricePerNightCents,
		TotalPriceCents:    window.PricePerNightCents * int64(nights) * int64(req.NumberOfRooms),
		Status:             domain.StatusConfirmed,
		GuestName:          req.GuestName,
		GuestEmail:         req.GuestEmail,
		GuestPhone:         req.GuestPhone,
		SpecialRequests:    req.SpecialRequests,
		BookedAt:           now,
		UpdatedAt:          now,
		HotelName:          hotel.Name,
		RoomType:           room.RoomType,
	}

	created, err := s.repo.CreateWithOutbox(ctx, b, window.ID)
	if errors.Is(err, domain.ErrDuplicateReference) {
		// Reference collision is rare but possible; one retry with fresh
		// randomness is enough given the unique constraint.
		b.BookingReference = domain.NewBookingReference(s.now())
		created, err = s.repo.CreateWithOutbox(ctx, b, window.ID)
	}
	if err != nil {
		return domain.Booking{}, fmt.Errorf("create booking: %w", err)
	}

	s.log.Info("booking created",
		"booking_id", created.ID,
		"reference", created.BookingReference,
		"hotel_id", created.HotelID,
		"room_id", created.RoomID,
		"rooms", created.NumberOfRooms,
		"total_cents", created.TotalPriceCents,
	)
	return created, nil
}

func (s *Service) CancelBooking(ctx context.Context, bookingID int64, reason string) (domain.Booking, error) {
	b, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("get booking: %w", err)
	}

	switch b.Status {
	case domain.StatusConfirmed:
	case domain.StatusCancelled:
		return domain.Booking{}, domain.ErrAlreadyCancelled
	default:
		return domain.Booking{}, domain.ErrAlreadyCompleted
	}

	now := s.now()
	if !b.CheckIn.After(now.Add(domain.CancellationCutoff)) {
		return domain.Booking{}, domain.ErrCancellationWindowClosed
	}

	payload, err := json.Marshal(domain.NewBookingCancelled(b, now, reason))
	if err != nil {
		return domain.Booking{}, fmt.Errorf("marshal cancellation event: %w", err)
	}

	if err := s.repo.CancelWithOutbox(ctx, b.ID, reason, now, payload); err != nil {
		return domain.Booking{}, fmt.Errorf("cancel booking: %w", err)
	}

	b.Status = domain.StatusCancelled
	b.CancelledAt = &now
	b.CancellationReason = reason
	b.UpdatedAt = now

	s.log.Info("booking cancelled",
		"booking_id", b.ID,
		"reference", b.BookingReference,
		"rooms_released", b.NumberOfRooms,
	)
	return b, nil
}

// CheckAvailability is a pure read: same date validation as creation, no side
// effects.
func (s *Service) CheckAvailability(ctx context.Context, hotelID, roomID int64, checkIn, checkOut time.Time, numberOfRooms int) (bool, error) {
	checkIn = truncateToDay(checkIn)
	checkOut = truncateToDay(checkOut)
	if err := s.validateDates(checkIn, checkOut); err != nil {
		return false, err
	}

	window, err := s.ledger.FindCoveringWindow(ctx, hotelID, roomID, checkIn, checkOut)
	if err != nil {
		if errors.Is(err, availdomain.ErrWindowNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("find covering window: %w", err)
	}
	return window.AvailableRooms >= numberOfRooms, nil
}

func (s *Service) GetBooking(ctx context.Context, id int64) (domain.Booking, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetBookingByReference(ctx context.Context, reference string) (domain.Booking, error) {
	return s.repo.GetByReference(ctx, reference)
}

func (s *Service) ListUserBookings(ctx context.Context, userID int64) ([]domain.Booking, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) ListHotelBookings(ctx context.Context, hotelID int64, from, to *time.Time) ([]domain.Booking, error) {
	return s.repo.ListByHotel(ctx, hotelID, from, to)
}

func (s *Service) validateDates(checkIn, checkOut time.Time) error {
	today := truncateToDay(s.now())
	if checkIn.Before(today) {
		return fmt.Errorf("%w: check-in date cannot be in the past", domain.ErrInvalidDateRange)
	}
	if !checkOut.After(checkIn) {
		return fmt.Errorf("%w: check-out date must be after check-in date", domain.ErrInvalidDateRange)
	}
	if checkOut.Sub(checkIn) > domain.MaxStayNights*24*time.Hour {
		return fmt.Errorf("%w: maximum stay is %d nights", domain.ErrInvalidDateRange, domain.MaxStayNights)
	}
	return nil
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
