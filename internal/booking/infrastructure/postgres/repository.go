package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	availpg "github.com/stayware/booking-platform/internal/availability/infrastructure/postgres"
	"github.com/stayware/booking-platform/internal/booking/domain"
	"github.com/stayware/booking-platform/pkg/tracing"
)

const bookingColumns = `b.id, b.booking_reference, b.user_id, b.hotel_id, b.room_id,
	b.check_in, b.check_out, b.number_of_rooms, b.number_of_guests,
	b.price_per_night_cents, b.total_price_cents, b.status,
	b.guest_name, b.guest_email, b.guest_phone, b.special_requests,
	b.booked_at, b.cancelled_at, b.cancellation_reason, b.updated_at,
	h.name, r.room_type`

const bookingJoins = `FROM bookings b
	JOIN hotels h ON h.id = b.hotel_id
	JOIN rooms r ON r.id = b.room_id`

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) CreateWithOutbox(ctx context.Context, b domain.Booking, windowID int64) (domain.Booking, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Booking{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	// Reserve first: the conditional decrement serializes competing bookings
	// on the same window. A failure anywhere below rolls the decrement back.
	if err := availpg.ReserveInTx(ctx, tx, windowID, b.NumberOfRooms); err != nil {
		return domain.Booking{}, err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO bookings (booking_reference, user_id, hotel_id, room_id,
			check_in, check_out, number_of_rooms, number_of_guests,
			price_per_night_cents, total_price_cents, status,
			guest_name, guest_email, guest_phone, special_requests,
			booked_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		RETURNING id`,
		b.BookingReference, b.UserID, b.HotelID, b.RoomID,
		b.CheckIn, b.CheckOut, b.NumberOfRooms, b.NumberOfGuests,
		b.PricePerNightCents, b.TotalPriceCents, b.Status,
		b.GuestName, b.GuestEmail, b.GuestPhone, b.SpecialRequests,
		b.BookedAt, b.UpdatedAt,
	).Scan(&b.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.Booking{}, domain.ErrDuplicateReference
		}
		return domain.Booking{}, fmt.Errorf("insert booking: %w", err)
	}

	payload, err := json.Marshal(domain.NewBookingConfirmed(b))
	if err != nil {
		return domain.Booking{}, fmt.Errorf("marshal confirmation event: %w", err)
	}
	if err := insertOutbox(ctx, tx, b.HotelID, domain.EventBookingConfirmed, payload, tracing.Traceparent(ctx)); err != nil {
		return domain.Booking{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Booking{}, err
	}
	return b, nil
}

func (r *Repository) CancelWithOutbox(ctx context.Context, bookingID int64, reason string, cancelledAt time.Time, payload []byte) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var (
		hotelID, roomID   int64
		checkIn, checkOut time.Time
		numberOfRooms     int
	)
	err = tx.QueryRow(ctx, `
		UPDATE bookings
		SET status=$2, cancelled_at=$3, cancellation_reason=$4, updated_at=$3
		WHERE id=$1 AND status=$5
		RETURNING hotel_id, room_id, check_in, check_out, number_of_rooms`,
		bookingID, domain.StatusCancelled, cancelledAt, reason, domain.StatusConfirmed,
	).Scan(&hotelID, &roomID, &checkIn, &checkOut, &numberOfRooms)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.diagnoseCancelConflict(ctx, tx, bookingID)
		}
		return fmt.Errorf("cancel booking: %w", err)
	}

	// Re-resolve the covering window by room and dates; the window the
	// booking was made against may have been edited since.
	var windowID int64
	err = tx.QueryRow(ctx, `
		SELECT id FROM room_availability
		WHERE hotel_id=$1 AND room_id=$2 AND start_date <= $3 AND end_date >= $4
		ORDER BY available_rooms DESC
		LIMIT 1
		FOR UPDATE`,
		hotelID, roomID, checkIn, checkOut).Scan(&windowID)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// Capacity has nowhere to go back to. The cancellation still stands.
		r.log.Warn("no covering window to release capacity into",
			"booking_id", bookingID, "hotel_id", hotelID, "room_id", roomID)
	case err != nil:
		return fmt.Errorf("resolve covering window: %w", err)
	default:
		if err := availpg.ReleaseInTx(ctx, tx, windowID, numberOfRooms); err != nil {
			return err
		}
	}

	if err := insertOutbox(ctx, tx, hotelID, domain.EventBookingCancelled, payload, tracing.Traceparent(ctx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// diagnoseCancelConflict explains why the guarded UPDATE matched no row.
func (r *Repository) diagnoseCancelConflict(ctx context.Context, tx pgx.Tx, bookingID int64) error {
	var status domain.Status
	err := tx.QueryRow(ctx, `SELECT status FROM bookings WHERE id=$1`, bookingID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrBookingNotFound
		}
		return fmt.Errorf("check booking status: %w", err)
	}
	if status == domain.StatusCancelled {
		return domain.ErrAlreadyCancelled
	}
	return domain.ErrAlreadyCompleted
}

func (r *Repository) GetByID(ctx context.Context, id int64) (domain.Booking, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` `+bookingJoins+` WHERE b.id=$1`, id)
	return scanBooking(row)
}

func (r *Repository) GetByReference(ctx context.Context, reference string) (domain.Booking, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` `+bookingJoins+` WHERE upper(b.booking_reference)=upper($1)`, reference)
	return scanBooking(row)
}

func (r *Repository) ListByUser(ctx context.Context, userID int64) ([]domain.Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+` `+bookingJoins+`
		WHERE b.user_id=$1
		ORDER BY b.booked_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBookings(rows)
}

func (r *Repository) ListByHotel(ctx context.Context, hotelID int64, from, to *time.Time) ([]domain.Booking, error) {
	q := `SELECT ` + bookingColumns + ` ` + bookingJoins + ` WHERE b.hotel_id=$1`
	args := []any{hotelID}
	if from != nil {
		args = append(args, *from)
		q += fmt.Sprintf(" AND b.check_in >= $%d", len(args))
	}
	if to != nil {
		args = append(args, *to)
		q += fmt.Sprintf(" AND b.check_out <= $%d", len(args))
	}
	q += " ORDER BY b.booked_at DESC"

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBookings(rows)
}

func insertOutbox(ctx context.Context, tx pgx.Tx, hotelID int64, eventType string, payload []byte, traceparent string) error {
	headers := map[string]string{"source": "booking-service"}
	_, err := tx.Exec(ctx, `
		INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, headers, traceparent, status)
		VALUES ($1,$2,$3,$4,$5,$6,'pending')`,
		"booking", strconv.FormatInt(hotelID, 10), eventType, payload, headers, traceparent)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

func scanBooking(row pgx.Row) (domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(&b.ID, &b.BookingReference, &b.UserID, &b.HotelID, &b.RoomID,
		&b.CheckIn, &b.CheckOut, &b.NumberOfRooms, &b.NumberOfGuests,
		&b.PricePerNightCents, &b.TotalPriceCents, &b.Status,
		&b.GuestName, &b.GuestEmail, &b.GuestPhone, &b.SpecialRequests,
		&b.BookedAt, &b.CancelledAt, &b.CancellationReason, &b.UpdatedAt,
		&b.HotelName, &b.RoomType)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Booking{}, domain.ErrBookingNotFound
		}
		return domain.Booking{}, fmt.Errorf("scan booking: %w", err)
	}
	return b, nil
}

func collectBookings(rows pgx.Rows) ([]domain.Booking, error) {
	var res []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, b)
	}
	return res, rows.Err()
}
