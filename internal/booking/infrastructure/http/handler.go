package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	availapp "github.com/stayware/booking-platform/internal/availability/application"
	availdomain "github.com/stayware/booking-platform/internal/availability/domain"
	bookingapp "github.com/stayware/booking-platform/internal/booking/application"
	"github.com/stayware/booking-platform/internal/booking/domain"
)

const dateLayout = "2006-01-02"

type Handler struct {
	log      *slog.Logger
	bookings *bookingapp.Service
	ledger   *availapp.Service
	tracer   trace.Tracer
}

func NewHandler(log *slog.Logger, bookings *bookingapp.Service, ledger *availapp.Service) *Handler {
	return &Handler{
		log:      log,
		bookings: bookings,
		ledger:   ledger,
		tracer:   otel.Tracer("booking-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Post("/bookings", h.createBooking)
	r.Get("/bookings/{id}", h.getBooking)
	r.Delete("/bookings/{id}", h.cancelBooking)
	r.Get("/bookings/ref/{reference}", h.getBookingByReference)
	r.Get("/availability/check", h.checkAvailability)
	r.Get("/users/{id}/bookings", h.listUserBookings)
	r.Get("/hotels/{id}/bookings", h.listHotelBookings)
	r.Get("/hotels/{id}/availability", h.listHotelAvailability)

	r.Route("/admin/availability", func(r chi.Router) {
		r.Post("/", h.addWindow)
		r.Patch("/{id}", h.updateWindow)
		r.Delete("/{id}", h.deleteWindow)
	})

	return r
}

type createBookingReq struct {
	HotelID         int64  `json:"hotel_id"`
	RoomID          int64  `json:"room_id"`
	CheckIn         string `json:"check_in"`
	CheckOut        string `json:"check_out"`
	NumberOfRooms   int    `json:"number_of_rooms"`
	NumberOfGuests  int    `json:"number_of_guests"`
	GuestName       string `json:"guest_name"`
	GuestEmail      string `json:"guest_email"`
	GuestPhone      string `json:"guest_phone"`
	SpecialRequests string `json:"special_requests"`
	UserID          *int64 `json:"user_id"`
}

func (h *Handler) createBooking(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateBooking")
	defer span.End()

	var req createBookingReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	checkIn, err := time.Parse(dateLayout, req.CheckIn)
	if err != nil {
		http.Error(w, "invalid check_in date", http.StatusBadRequest)
		return
	}
	checkOut, err := time.Parse(dateLayout, req.CheckOut)
	if err != nil {
		http.Error(w, "invalid check_out date", http.StatusBadRequest)
		return
	}

	b, err := h.bookings.CreateBooking(ctx, domain.CreateRequest{
		HotelID:         req.HotelID,
		RoomID:          req.RoomID,
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		NumberOfRooms:   req.NumberOfRooms,
		NumberOfGuests:  req.NumberOfGuests,
		GuestName:       req.GuestName,
		GuestEmail:      req.GuestEmail,
		GuestPhone:      req.GuestPhone,
		SpecialRequests: req.SpecialRequests,
	}, req.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, b)
}

func (h *Handler) getBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid booking id", http.StatusBadRequest)
		return
	}
	b, err := h.bookings.GetBooking(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, b)
}

func (h *Handler) getBookingByReference(w http.ResponseWriter, r *http.Request) {
	b, err := h.bookings.GetBookingByReference(r.Context(), chi.URLParam(r, "reference"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, b)
}

type cancelBookingReq struct {
	Reason string `json:"reason"`
}

func (h *Handler) cancelBooking(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CancelBooking")
	defer span.End()

	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid booking id", http.StatusBadRequest)
		return
	}

	var req cancelBookingReq
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req) // reason is optional
	}

	b, err := h.bookings.CancelBooking(ctx, id, req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, b)
}

func (h *Handler) checkAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	hotelID, err1 := strconv.ParseInt(q.Get("hotel_id"), 10, 64)
	roomID, err2 := strconv.ParseInt(q.Get("room_id"), 10, 64)
	rooms, err3 := strconv.Atoi(q.Get("rooms"))
	checkIn, err4 := time.Parse(dateLayout, q.Get("check_in"))
	checkOut, err5 := time.Parse(dateLayout, q.Get("check_out"))
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
		http.Error(w, "invalid query parameters", http.StatusBadRequest)
		return
	}

	available, err := h.bookings.CheckAvailability(r.Context(), hotelID, roomID, checkIn, checkOut, rooms)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"available": available})
}

func (h *Handler) listUserBookings(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}
	res, err := h.bookings.ListUserBookings(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

func (h *Handler) listHotelBookings(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid hotel id", http.StatusBadRequest)
		return
	}
	from, to, err := dateRangeParams(r)
	if err != nil {
		http.Error(w, "invalid date filter", http.StatusBadRequest)
		return
	}
	res, err := h.bookings.ListHotelBookings(r.Context(), id, from, to)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

func (h *Handler) listHotelAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid hotel id", http.StatusBadRequest)
		return
	}
	res, err := h.ledger.ListWindowsByHotel(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

type windowReq struct {
	HotelID            int64  `json:"hotel_id"`
	RoomID             int64  `json:"room_id"`
	StartDate          string `json:"start_date"`
	EndDate            string `json:"end_date"`
	AvailableRooms     int    `json:"available_rooms"`
	PricePerNightCents int64  `json:"price_per_night_cents"`
}

func (h *Handler) addWindow(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "AddAvailabilityWindow")
	defer span.End()

	var req windowReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		http.Error(w, "invalid start_date", http.StatusBadRequest)
		return
	}
	end, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		http.Error(w, "invalid end_date", http.StatusBadRequest)
		return
	}

	created, err := h.ledger.AddWindow(ctx, availdomain.Window{
		HotelID:            req.HotelID,
		RoomID:             req.RoomID,
		StartDate:          start,
		EndDate:            end,
		AvailableRooms:     req.AvailableRooms,
		PricePerNightCents: req.PricePerNightCents,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

type windowPatchReq struct {
	StartDate          *string `json:"start_date"`
	EndDate            *string `json:"end_date"`
	AvailableRooms     *int    `json:"available_rooms"`
	PricePerNightCents *int64  `json:"price_per_night_cents"`
}

func (h *Handler) updateWindow(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid window id", http.StatusBadRequest)
		return
	}

	var req windowPatchReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	var patch availdomain.WindowPatch
	if req.StartDate != nil {
		d, err := time.Parse(dateLayout, *req.StartDate)
		if err != nil {
			http.Error(w, "invalid start_date", http.StatusBadRequest)
			return
		}
		patch.StartDate = &d
	}
	if req.EndDate != nil {
		d, err := time.Parse(dateLayout, *req.EndDate)
		if err != nil {
			http.Error(w, "invalid end_date", http.StatusBadRequest)
			return
		}
		patch.EndDate = &d
	}
	patch.AvailableRooms = req.AvailableRooms
	patch.PricePerNightCents = req.PricePerNightCents

	updated, err := h.ledger.UpdateWindow(r.Context(), id, patch)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteWindow(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid window id", http.StatusBadRequest)
		return
	}
	if err := h.ledger.DeleteWindow(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("write response failed", "err", err)
	}
}

// writeError maps domain sentinels onto distinguishable HTTP statuses so
// callers can tell a validation problem from a capacity race.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, domain.ErrBookingNotFound),
		errors.Is(err, domain.ErrHotelNotFound),
		errors.Is(err, domain.ErrRoomNotFound),
		errors.Is(err, availdomain.ErrWindowNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidDateRange),
		errors.Is(err, domain.ErrInvalidOccupancy),
		errors.Is(err, domain.ErrInvalidRequest),
		errors.Is(err, availdomain.ErrInvalidRange),
		errors.Is(err, availdomain.ErrInvalidCount):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNoAvailability),
		errors.Is(err, availdomain.ErrInsufficientCapacity),
		errors.Is(err, domain.ErrAlreadyCancelled),
		errors.Is(err, domain.ErrAlreadyCompleted),
		errors.Is(err, domain.ErrCancellationWindowClosed),
		errors.Is(err, availdomain.ErrOverlappingWindow),
		errors.Is(err, availdomain.ErrWindowInUse):
		status = http.StatusConflict
	default:
		h.log.Error("request failed", "err", err)
		status = http.StatusInternalServerError
	}
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

func dateRangeParams(r *http.Request) (*time.Time, *time.Time, error) {
	var from, to *time.Time
	if v := r.URL.Query().Get("from"); v != "" {
		d, err := time.Parse(dateLayout, v)
		if err != nil {
			return nil, nil, err
		}
		from = &d
	}
	if v := r.URL.Query().Get("to"); v != "" {
		d, err := time.Parse(dateLayout, v)
		if err != nil {
			return nil, nil, err
		}
		to = &d
	}
	return from, to, nil
}
