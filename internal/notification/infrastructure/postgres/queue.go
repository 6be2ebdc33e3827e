package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stayware/booking-platform/internal/notification/domain"
)

// Queue is a Postgres-backed delivery queue. Leasing uses FOR UPDATE SKIP
// LOCKED so concurrent consumers never double-claim; a claimed row becomes
// visible again when its lease expires. Rows are deleted on acknowledge.
type Queue struct {
	pool *pgxpool.Pool
}

func NewQueue(pool *pgxpool.Pool) *Queue {
	return &Queue{pool: pool}
}

func (q *Queue) Enqueue(ctx context.Context, msg domain.WireMessage, groupKey, dedupKey string, attributes map[string]string) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal queue payload: %w", err)
	}
	attrs, err := json.Marshal(attributes)
	if err != nil {
		return fmt.Errorf("marshal queue attributes: %w", err)
	}
	_, err = q.pool.Exec(ctx, `
		INSERT INTO notification_queue (notification_id, group_key, dedup_key, payload, attributes, enqueued_at)
		VALUES ($1,$2,$3,$4,$5,now())
		ON CONFLICT (dedup_key) DO NOTHING`,
		msg.ID, groupKey, dedupKey, payload, attrs)
	if err != nil {
		return fmt.Errorf("enqueue notification %d: %w", msg.ID, err)
	}
	return nil
}

func (q *Queue) Lease(ctx context.Context, consumerID string, max int, visibility time.Duration) ([]domain.LeasedMessage, error) {
	tx, err := q.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT id, group_key, payload, attributes
		FROM notification_queue
		WHERE lease_until IS NULL OR lease_until < now()
		ORDER BY group_key, id
		FOR UPDATE SKIP LOCKED
		LIMIT $1`, max)
	if err != nil {
		return nil, err
	}

	var leased []domain.LeasedMessage
	var ids []int64
	for rows.Next() {
		var (
			lm       domain.LeasedMessage
			payload  []byte
			attrsRaw []byte
		)
		if err := rows.Scan(&lm.Receipt, &lm.GroupKey, &payload, &attrsRaw); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan queue row: %w", err)
		}
		if err := json.Unmarshal(payload, &lm.Message); err != nil {
			rows.Close()
			return nil, fmt.Errorf("decode queue payload %d: %w", lm.Receipt, err)
		}
		if len(attrsRaw) > 0 {
			if err := json.Unmarshal(attrsRaw, &lm.Attributes); err != nil {
				rows.Close()
				return nil, fmt.Errorf("decode queue attributes %d: %w", lm.Receipt, err)
			}
		}
		leased = append(leased, lm)
		ids = append(ids, lm.Receipt)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, tx.Commit(ctx)
	}

	_, err = tx.Exec(ctx, `
		UPDATE notification_queue
		SET consumer_id=$1, lease_until=now() + $2::interval, delivery_count=delivery_count+1
		WHERE id = ANY($3)`,
		consumerID, fmt.Sprintf("%d milliseconds", visibility.Milliseconds()), ids)
	if err != nil {
		return nil, fmt.Errorf("lease queue rows: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return leased, nil
}

func (q *Queue) Ack(ctx context.Context, receipt int64) error {
	ct, err := q.pool.Exec(ctx, `DELETE FROM notification_queue WHERE id=$1`, receipt)
	if err != nil {
		return fmt.Errorf("ack queue row %d: %w", receipt, err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrMessageNotFound
	}
	return nil
}

func (q *Queue) ApproximateCount(ctx context.Context) (int, error) {
	var n int
	err := q.pool.QueryRow(ctx, `SELECT count(*) FROM notification_queue`).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}
