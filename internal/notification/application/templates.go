package application

import (
	"fmt"

	bookingdomain "github.com/stayware/booking-platform/internal/booking/domain"
	"github.com/stayware/booking-platform/internal/notification/domain"
)

const displayDate = "Monday, 02 Jan 2006"

func renderBookingConfirmation(ev bookingdomain.BookingConfirmed) (subject, body string) {
	subject = "Booking Confirmation"
	body = fmt.Sprintf(
		"Dear %s,\n\n"+
			"Your booking at %s is confirmed.\n\n"+
			"Booking reference: %s\n"+
			"Room: %s\n"+
			"Check-in: %s\n"+
			"Check-out: %s\n"+
			"Rooms: %d, Guests: %d\n"+
			"Price per night: %s\n"+
			"Total (%d night(s)): %s\n",
		ev.GuestName,
		ev.HotelName,
		ev.BookingReference,
		ev.RoomType,
		ev.CheckIn.Format(displayDate),
		ev.CheckOut.Format(displayDate),
		ev.NumberOfRooms, ev.NumberOfGuests,
		formatCents(ev.PricePerNightCents),
		ev.Nights,
		formatCents(ev.TotalPriceCents),
	)
	if ev.SpecialRequests != "" {
		body += fmt.Sprintf("\nSpecial requests: %s\n", ev.SpecialRequests)
	}
	body += "\nWe look forward to welcoming you.\n"
	return subject, body
}

func renderBookingCancellation(ev bookingdomain.BookingCancelled) (subject, body string) {
	subject = "Booking Cancellation Confirmation"
	body = fmt.Sprintf(
		"Dear %s,\n\n"+
			"Your booking %s at %s has been cancelled.\n\n"+
			"Original stay: %s to %s\n"+
			"Rooms released: %d\n"+
			"Cancelled at: %s\n",
		ev.GuestName,
		ev.BookingReference,
		ev.HotelName,
		ev.CheckIn.Format(displayDate),
		ev.CheckOut.Format(displayDate),
		ev.NumberOfRooms,
		ev.CancelledAt.Format("02 Jan 2006 15:04 UTC"),
	)
	if ev.Reason != "" {
		body += fmt.Sprintf("Reason: %s\n", ev.Reason)
	}
	return subject, body
}

func renderLowCapacityAlert(a domain.LowCapacityAlert) (subject, body string) {
	subject = fmt.Sprintf("Low Capacity Alert - %s", a.HotelName)
	body = fmt.Sprintf(
		"Low remaining capacity detected.\n\n"+
			"Hotel: %s\n"+
			"Room type: %s\n"+
			"Window starting: %s\n"+
			"Available rooms: %d of %d (%.0f%%)\n\n"+
			"Consider adding capacity or adjusting rates.\n",
		a.HotelName,
		a.RoomType,
		a.StartDate.Format(displayDate),
		a.AvailableRooms, a.PeakRooms, a.Ratio()*100,
	)
	return subject, body
}

func formatCents(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}
