package domain

import "errors"

var (
	ErrInvalidDateRange         = errors.New("invalid booking date range")
	ErrInvalidOccupancy         = errors.New("number of guests exceeds room occupancy")
	ErrInvalidRequest           = errors.New("invalid booking request")
	ErrHotelNotFound            = errors.New("hotel not found")
	ErrRoomNotFound             = errors.New("room not found")
	ErrBookingNotFound          = errors.New("booking not found")
	ErrNoAvailability           = errors.New("no availability for the selected dates")
	ErrAlreadyCancelled         = errors.New("booking is already cancelled")
	ErrAlreadyCompleted         = errors.New("booking is already completed")
	ErrCancellationWindowClosed = errors.New("cancellation must be at least 24 hours before check-in")
	ErrDuplicateReference       = errors.New("booking reference already exists")
)
