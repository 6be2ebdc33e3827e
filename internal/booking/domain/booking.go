package domain

import "time"

type Status string

const (
	StatusConfirmed  Status = "Confirmed"
	StatusCancelled  Status = "Cancelled"
	StatusCheckedIn  Status = "CheckedIn"
	StatusCheckedOut Status = "CheckedOut"
	StatusNoShow     Status = "NoShow"
)

// MaxStayNights bounds the length of a single booking.
const MaxStayNights = 30

// CancellationCutoff is the minimum lead time before check-in for a
// cancellation to be accepted.
const CancellationCutoff = 24 * time.Hour

type Booking struct {
	ID                 int64      `json:"id"`
	BookingReference   string     `json:"booking_reference"`
	UserID             *int64     `json:"user_id,omitempty"`
	HotelID            int64      `json:"hotel_id"`
	RoomID             int64      `json:"room_id"`
	CheckIn            time.Time  `json:"check_in"`
	CheckOut           time.Time  `json:"check_out"`
	NumberOfRooms      int        `json:"number_of_rooms"`
	NumberOfGuests     int        `json:"number_of_guests"`
	PricePerNightCents int64      `json:"price_per_night_cents"`
	TotalPriceCents    int64      `json:"total_price_cents"`
	Status             Status     `json:"status"`
	GuestName          string     `json:"guest_name"`
	GuestEmail         string     `json:"guest_email"`
	GuestPhone         string     `json:"guest_phone"`
	SpecialRequests    string     `json:"special_requests,omitempty"`
	BookedAt           time.Time  `json:"booked_at"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`
	UpdatedAt          time.Time  `json:"updated_at"`

	// Denormalized for responses and events, filled from the catalog on
	// create and via joins on reads. Not stored on the bookings row.
	HotelName string `json:"hotel_name"`
	RoomType  string `json:"room_type"`
}

// Nights is the stay length in whole nights; dates are day-truncated UTC.
func (b Booking) Nights() int {
	return int(b.CheckOut.Sub(b.CheckIn) / (24 * time.Hour))
}

type Hotel struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Location   string `json:"location"`
	AdminEmail string `json:"admin_email"`
}

type Room struct {
	ID           int64  `json:"id"`
	HotelID      int64  `json:"hotel_id"`
	RoomType     string `json:"room_type"`
	MaxOccupancy int    `json:"max_occupancy"`
}

// CreateRequest is the inbound contract of the booking engine.
type CreateRequest struct {
	HotelID         int64     `json:"hotel_id"`
	RoomID          int64     `json:"room_id"`
	CheckIn         time.Time `json:"check_in"`
	CheckOut        time.Time `json:"check_out"`
	NumberOfRooms   int       `json:"number_of_rooms"`
	NumberOfGuests  int       `json:"number_of_guests"`
	GuestName       string    `json:"guest_name"`
	GuestEmail      string    `json:"guest_email"`
	GuestPhone      string    `json:"guest_phone"`
	SpecialRequests string    `json:"special_requests,omitempty"`
}
