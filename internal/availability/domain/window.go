package domain

import "time"

// Window is a per-room capacity record over the half-open date interval
// [StartDate, EndDate). Windows for the same (hotel, room) never overlap;
// the repository enforces that on create and update.
type Window struct {
	ID             int64     `json:"id"`
	HotelID        int64     `json:"hotel_id"`
	RoomID         int64     `json:"room_id"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	AvailableRooms int       `json:"available_rooms"`
	// PeakRooms is the highest available_rooms value ever observed for the
	// window. It approximates original capacity for the low-capacity sweep;
	// it is not an invariant.
	PeakRooms          int   `json:"peak_rooms"`
	PricePerNightCents int64 `json:"price_per_night_cents"`
}

// Covers reports whether the window fully contains the stay [checkIn, checkOut).
func (w Window) Covers(checkIn, checkOut time.Time) bool {
	return !w.StartDate.After(checkIn) && !w.EndDate.Before(checkOut)
}

// WindowPatch carries the mutable fields of an update; nil means unchanged.
type WindowPatch struct {
	StartDate          *time.Time
	EndDate            *time.Time
	AvailableRooms     *int
	PricePerNightCents *int64
}
