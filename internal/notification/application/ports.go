package application

import (
	"context"
	"time"

	"github.com/stayware/booking-platform/internal/notification/domain"
)

type MessageStore interface {
	Create(ctx context.Context, m domain.Message) (domain.Message, error)
	Get(ctx context.Context, id int64) (domain.Message, error)
	MarkSent(ctx context.Context, id int64, at time.Time) error
	// MarkRetrying increments the attempt counter and returns its new value.
	MarkRetrying(ctx context.Context, id int64) (int, error)
	MarkFailed(ctx context.Context, id int64) error
	ListByHotel(ctx context.Context, hotelID int64) ([]domain.Message, error)
	ListPending(ctx context.Context) ([]domain.Message, error)
	// ListUnqueuedPending finds Pending rows older than the cutoff that have
	// no queue entry, i.e. messages whose enqueue was lost.
	ListUnqueuedPending(ctx context.Context, olderThan time.Time) ([]domain.Message, error)
}

// Queue is the delivery queue contract: enqueue, lease with a visibility
// timeout, acknowledge, and an approximate depth for logging.
type Queue interface {
	Enqueue(ctx context.Context, msg domain.WireMessage, groupKey, dedupKey string, attributes map[string]string) error
	Lease(ctx context.Context, consumerID string, max int, visibility time.Duration) ([]domain.LeasedMessage, error)
	Ack(ctx context.Context, receipt int64) error
	ApproximateCount(ctx context.Context) (int, error)
}

// Transport actually sends a rendered message. The reference implementation
// logs and succeeds; production plugs an email/SMS gateway in here.
type Transport interface {
	Deliver(ctx context.Context, recipientEmail, subject, body string) error
}
