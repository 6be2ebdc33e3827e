package domain

import "time"

type Type string

const (
	TypeBookingConfirmation Type = "BookingConfirmation"
	TypeBookingCancellation Type = "BookingCancellation"
	TypeLowCapacityAlert    Type = "LowCapacityAlert"
)

type Status string

const (
	StatusPending  Status = "Pending"
	StatusSent     Status = "Sent"
	StatusRetrying Status = "Retrying"
	StatusFailed   Status = "Failed"
)

// Priority attributed to a queued message; alerts outrank guest mail.
func (t Type) Priority() string {
	if t == TypeLowCapacityAlert {
		return "High"
	}
	return "Normal"
}

// Message is one unit of outbound communication. The row is the single
// authority for retry accounting; the queue only redelivers.
type Message struct {
	ID               int64      `json:"id"`
	Type             Type       `json:"type"`
	RecipientEmail   string     `json:"recipient_email"`
	Subject          string     `json:"subject"`
	Body             string     `json:"body"`
	Status           Status     `json:"status"`
	RetryCount       int        `json:"retry_count"`
	RelatedBookingID *int64     `json:"related_booking_id,omitempty"`
	RelatedHotelID   *int64     `json:"related_hotel_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	SentAt           *time.Time `json:"sent_at,omitempty"`
}

// WireMessage is the queue payload contract.
type WireMessage struct {
	ID               int64  `json:"id"`
	Type             Type   `json:"type"`
	RecipientEmail   string `json:"recipientEmail"`
	Subject          string `json:"subject"`
	Body             string `json:"body"`
	RelatedBookingID *int64 `json:"relatedBookingId,omitempty"`
	RelatedHotelID   *int64 `json:"relatedHotelId,omitempty"`
}

// LeasedMessage is a wire message under a visibility lease. Receipt is what
// the consumer hands back to acknowledge it.
type LeasedMessage struct {
	Receipt    int64
	GroupKey   string
	Attributes map[string]string
	Message    WireMessage
}

// LowCapacityAlert is a transient snapshot produced by the capacity sweep; it
// is converted straight into a Message, never persisted on its own.
type LowCapacityAlert struct {
	HotelID        int64
	HotelName      string
	RoomID         int64
	RoomType       string
	AdminEmail     string
	StartDate      time.Time
	AvailableRooms int
	PeakRooms      int
}

// Ratio is remaining capacity over the observed peak.
func (a LowCapacityAlert) Ratio() float64 {
	if a.PeakRooms == 0 {
		return 0
	}
	return float64(a.AvailableRooms) / float64(a.PeakRooms)
}
