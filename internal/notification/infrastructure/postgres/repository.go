package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stayware/booking-platform/internal/notification/domain"
)

const messageColumns = `id, notification_type, recipient_email, subject, body, status,
	retry_count, related_booking_id, related_hotel_id, created_at, sent_at`

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, m domain.Message) (domain.Message, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO notifications (notification_type, recipient_email, subject, body, status,
			retry_count, related_booking_id, related_hotel_id, created_at)
		VALUES ($1,$2,$3,$4,$5,0,$6,$7,$8)
		RETURNING id`,
		m.Type, m.RecipientEmail, m.Subject, m.Body, m.Status,
		m.RelatedBookingID, m.RelatedHotelID, m.CreatedAt,
	).Scan(&m.ID)
	if err != nil {
		return domain.Message{}, fmt.Errorf("insert notification: %w", err)
	}
	return m, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (domain.Message, error) {
	var m domain.Message
	err := r.pool.QueryRow(ctx, `
		SELECT `+messageColumns+`
		FROM notifications
		WHERE id=$1`, id,
	).Scan(&m.ID, &m.Type, &m.RecipientEmail, &m.Subject, &m.Body, &m.Status,
		&m.RetryCount, &m.RelatedBookingID, &m.RelatedHotelID, &m.CreatedAt, &m.SentAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Message{}, domain.ErrMessageNotFound
		}
		return domain.Message{}, fmt.Errorf("get notification: %w", err)
	}
	return m, nil
}

func (r *Repository) MarkSent(ctx context.Context, id int64, at time.Time) error {
	ct, err := r.pool.Exec(ctx, `
		UPDATE notifications SET status=$2, sent_at=$3 WHERE id=$1`,
		id, domain.StatusSent, at)
	if err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrMessageNotFound
	}
	return nil
}

func (r *Repository) MarkRetrying(ctx context.Context, id int64) (int, error) {
	var attempts int
	err := r.pool.QueryRow(ctx, `
		UPDATE notifications
		SET status=$2, retry_count=retry_count+1
		WHERE id=$1
		RETURNING retry_count`,
		id, domain.StatusRetrying).Scan(&attempts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrMessageNotFound
		}
		return 0, fmt.Errorf("mark retrying: %w", err)
	}
	return attempts, nil
}

func (r *Repository) MarkFailed(ctx context.Context, id int64) error {
	ct, err := r.pool.Exec(ctx, `
		UPDATE notifications SET status=$2 WHERE id=$1`,
		id, domain.StatusFailed)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrMessageNotFound
	}
	return nil
}

func (r *Repository) ListByHotel(ctx context.Context, hotelID int64) ([]domain.Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+messageColumns+`
		FROM notifications
		WHERE related_hotel_id=$1
		ORDER BY created_at DESC`, hotelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMessages(rows)
}

func (r *Repository) ListPending(ctx context.Context) ([]domain.Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+messageColumns+`
		FROM notifications
		WHERE status = ANY($1)
		ORDER BY created_at`,
		[]string{string(domain.StatusPending), string(domain.StatusRetrying)})
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMessages(rows)
}

func (r *Repository) ListUnqueuedPending(ctx context.Context, olderThan time.Time) ([]domain.Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+messageColumns+`
		FROM notifications n
		WHERE n.status=$1 AND n.created_at < $2
		  AND NOT EXISTS (SELECT 1 FROM notification_queue q WHERE q.notification_id = n.id)
		ORDER BY n.created_at`,
		domain.StatusPending, olderThan)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMessages(rows)
}

func collectMessages(rows pgx.Rows) ([]domain.Message, error) {
	var res []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.Type, &m.RecipientEmail, &m.Subject, &m.Body, &m.Status,
			&m.RetryCount, &m.RelatedBookingID, &m.RelatedHotelID, &m.CreatedAt, &m.SentAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		res = append(res, m)
	}
	return res, rows.Err()
}
