package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stayware/booking-platform/internal/availability/domain"
)

const windowColumns = `id, hotel_id, room_id, start_date, end_date, available_rooms, peak_rooms, price_per_night_cents`

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) Get(ctx context.Context, id int64) (domain.Window, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+windowColumns+` FROM room_availability WHERE id=$1`, id)
	return scanWindow(row)
}

func (r *Repository) FindCovering(ctx context.Context, hotelID, roomID int64, checkIn, checkOut time.Time) (domain.Window, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+windowColumns+`
		FROM room_availability
		WHERE hotel_id=$1 AND room_id=$2 AND start_date <= $3 AND end_date >= $4
		ORDER BY available_rooms DESC
		LIMIT 1`,
		hotelID, roomID, checkIn, checkOut)
	return scanWindow(row)
}

func (r *Repository) Add(ctx context.Context, w domain.Window) (domain.Window, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Window{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	overlap, err := hasOverlap(ctx, tx, w.HotelID, w.RoomID, w.StartDate, w.EndDate, 0)
	if err != nil {
		return domain.Window{}, err
	}
	if overlap {
		return domain.Window{}, domain.ErrOverlappingWindow
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO room_availability (hotel_id, room_id, start_date, end_date, available_rooms, peak_rooms, price_per_night_cents)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id`,
		w.HotelID, w.RoomID, w.StartDate, w.EndDate, w.AvailableRooms, w.PeakRooms, w.PricePerNightCents,
	).Scan(&w.ID)
	if err != nil {
		return domain.Window{}, fmt.Errorf("insert window: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Window{}, err
	}
	return w, nil
}

func (r *Repository) Update(ctx context.Context, id int64, patch domain.WindowPatch) (domain.Window, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Window{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	row := tx.QueryRow(ctx, `SELECT `+windowColumns+` FROM room_availability WHERE id=$1 FOR UPDATE`, id)
	w, err := scanWindow(row)
	if err != nil {
		return domain.Window{}, err
	}

	if patch.StartDate != nil {
		w.StartDate = *patch.StartDate
	}
	if patch.EndDate != nil {
		w.EndDate = *patch.EndDate
	}
	if patch.AvailableRooms != nil {
		w.AvailableRooms = *patch.AvailableRooms
	}
	if patch.PricePerNightCents != nil {
		w.PricePerNightCents = *patch.PricePerNightCents
	}
	if !w.StartDate.Before(w.EndDate) {
		return domain.Window{}, fmt.Errorf("%w: start date must be before end date", domain.ErrInvalidRange)
	}
	if w.AvailableRooms > w.PeakRooms {
		w.PeakRooms = w.AvailableRooms
	}

	// Re-validate overlap against every other window for the same room.
	overlap, err := hasOverlap(ctx, tx, w.HotelID, w.RoomID, w.StartDate, w.EndDate, w.ID)
	if err != nil {
		return domain.Window{}, err
	}
	if overlap {
		return domain.Window{}, domain.ErrOverlappingWindow
	}

	_, err = tx.Exec(ctx, `
		UPDATE room_availability
		SET start_date=$2, end_date=$3, available_rooms=$4, peak_rooms=$5, price_per_night_cents=$6
		WHERE id=$1`,
		w.ID, w.StartDate, w.EndDate, w.AvailableRooms, w.PeakRooms, w.PricePerNightCents)
	if err != nil {
		return domain.Window{}, fmt.Errorf("update window: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Window{}, err
	}
	return w, nil
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	row := tx.QueryRow(ctx, `SELECT `+windowColumns+` FROM room_availability WHERE id=$1 FOR UPDATE`, id)
	w, err := scanWindow(row)
	if err != nil {
		return err
	}

	var referenced bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE hotel_id=$1 AND room_id=$2
			  AND status IN ('Confirmed','CheckedIn')
			  AND check_in < $4 AND check_out > $3
		)`,
		w.HotelID, w.RoomID, w.StartDate, w.EndDate,
	).Scan(&referenced)
	if err != nil {
		return fmt.Errorf("check window references: %w", err)
	}
	if referenced {
		return domain.ErrWindowInUse
	}

	if _, err := tx.Exec(ctx, `DELETE FROM room_availability WHERE id=$1`, id); err != nil {
		return fmt.Errorf("delete window: %w", err)
	}
	return tx.Commit(ctx)
}

func (r *Repository) ListByHotel(ctx context.Context, hotelID int64) ([]domain.Window, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+windowColumns+`
		FROM room_availability
		WHERE hotel_id=$1
		ORDER BY room_id, start_date`, hotelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Window
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, w)
	}
	return res, rows.Err()
}

func (r *Repository) Reserve(ctx context.Context, windowID int64, count int) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := ReserveInTx(ctx, tx, windowID, count); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) Release(ctx context.Context, windowID int64, count int) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := ReleaseInTx(ctx, tx, windowID, count); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ReserveInTx decrements capacity inside the caller's transaction. The guard
// in the WHERE clause makes the check-and-decrement a single atomic statement,
// so two competing reservations for the last unit resolve to one winner.
func ReserveInTx(ctx context.Context, tx pgx.Tx, windowID int64, count int) error {
	ct, err := tx.Exec(ctx, `
		UPDATE room_availability
		SET available_rooms = available_rooms - $2
		WHERE id=$1 AND available_rooms >= $2`,
		windowID, count)
	if err != nil {
		return fmt.Errorf("reserve capacity: %w", err)
	}
	if ct.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM room_availability WHERE id=$1)`, windowID).Scan(&exists); err != nil {
			return fmt.Errorf("reserve capacity: %w", err)
		}
		if !exists {
			return domain.ErrWindowNotFound
		}
		return domain.ErrInsufficientCapacity
	}
	return nil
}

// ReleaseInTx increments capacity inside the caller's transaction and keeps
// the observed-peak column current.
func ReleaseInTx(ctx context.Context, tx pgx.Tx, windowID int64, count int) error {
	ct, err := tx.Exec(ctx, `
		UPDATE room_availability
		SET available_rooms = available_rooms + $2,
		    peak_rooms = GREATEST(peak_rooms, available_rooms + $2)
		WHERE id=$1`,
		windowID, count)
	if err != nil {
		return fmt.Errorf("release capacity: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrWindowNotFound
	}
	return nil
}

func hasOverlap(ctx context.Context, tx pgx.Tx, hotelID, roomID int64, start, end time.Time, excludeID int64) (bool, error) {
	var overlap bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM room_availability
			WHERE hotel_id=$1 AND room_id=$2 AND id <> $5
			  AND start_date < $4 AND end_date > $3
		)`,
		hotelID, roomID, start, end, excludeID).Scan(&overlap)
	if err != nil {
		return false, fmt.Errorf("check overlap: %w", err)
	}
	return overlap, nil
}

func scanWindow(row pgx.Row) (domain.Window, error) {
	var w domain.Window
	err := row.Scan(&w.ID, &w.HotelID, &w.RoomID, &w.StartDate, &w.EndDate, &w.AvailableRooms, &w.PeakRooms, &w.PricePerNightCents)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Window{}, domain.ErrWindowNotFound
		}
		return domain.Window{}, fmt.Errorf("scan window: %w", err)
	}
	return w, nil
}
