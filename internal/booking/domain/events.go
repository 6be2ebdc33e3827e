package domain

import "time"

const (
	EventBookingConfirmed = "BookingConfirmed"
	EventBookingCancelled = "BookingCancelled"
)

// BookingConfirmed carries everything the notification side needs to render a
// confirmation message without querying the booking store.
type BookingConfirmed struct {
	BookingID          int64     `json:"booking_id"`
	BookingReference   string    `json:"booking_reference"`
	HotelID            int64     `json:"hotel_id"`
	HotelName          string    `json:"hotel_name"`
	RoomID             int64     `json:"room_id"`
	RoomType           string    `json:"room_type"`
	GuestName          string    `json:"guest_name"`
	GuestEmail         string    `json:"guest_email"`
	GuestPhone         string    `json:"guest_phone"`
	CheckIn            time.Time `json:"check_in"`
	CheckOut           time.Time `json:"check_out"`
	Nights             int       `json:"nights"`
	NumberOfRooms      int       `json:"number_of_rooms"`
	NumberOfGuests     int       `json:"number_of_guests"`
	PricePerNightCents int64     `json:"price_per_night_cents"`
	TotalPriceCents    int64     `json:"total_price_cents"`
	SpecialRequests    string    `json:"special_requests,omitempty"`
}

type BookingCancelled struct {
	BookingID        int64     `json:"booking_id"`
	BookingReference string    `json:"booking_reference"`
	HotelID          int64     `json:"hotel_id"`
	HotelName        string    `json:"hotel_name"`
	RoomID           int64     `json:"room_id"`
	GuestName        string    `json:"guest_name"`
	GuestEmail       string    `json:"guest_email"`
	CheckIn          time.Time `json:"check_in"`
	CheckOut         time.Time `json:"check_out"`
	NumberOfRooms    int       `json:"number_of_rooms"`
	CancelledAt      time.Time `json:"cancelled_at"`
	Reason           string    `json:"reason,omitempty"`
}

func NewBookingConfirmed(b Booking) BookingConfirmed {
	return BookingConfirmed{
		BookingID:          b.ID,
		BookingReference:   b.BookingReference,
		HotelID:            b.HotelID,
		HotelName:          b.HotelName,
		RoomID:             b.RoomID,
		RoomType:           b.RoomType,
		GuestName:          b.GuestName,
		GuestEmail:         b.GuestEmail,
		GuestPhone:         b.GuestPhone,
		CheckIn:            b.CheckIn,
		CheckOut:           b.CheckOut,
		Nights:             b.Nights(),
		NumberOfRooms:      b.NumberOfRooms,
		NumberOfGuests:     b.NumberOfGuests,
		PricePerNightCents: b.PricePerNightCents,
		TotalPriceCents:    b.TotalPriceCents,
		SpecialRequests:    b.SpecialRequests,
	}
}

func NewBookingCancelled(b Booking, cancelledAt time.Time, reason string) BookingCancelled {
	return BookingCancelled{
		BookingID:        b.ID,
		BookingReference: b.BookingReference,
		HotelID:          b.HotelID,
		HotelName:        b.HotelName,
		RoomID:           b.RoomID,
		GuestName:        b.GuestName,
		GuestEmail:       b.GuestEmail,
		CheckIn:          b.CheckIn,
		CheckOut:         b.CheckOut,
		NumberOfRooms:    b.NumberOfRooms,
		CancelledAt:      cancelledAt,
		Reason:           reason,
	}
}
