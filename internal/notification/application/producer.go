package application

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	bookingdomain "github.com/stayware/booking-platform/internal/booking/domain"
	"github.com/stayware/booking-platform/internal/notification/domain"
)

// defaultGroupKey buckets hotel-less messages so grouped ordering still has a
// stream to attach to.
const defaultGroupKey = "default"

// Producer turns domain events into renderable notification records and
// pushes them onto the delivery queue. A failed enqueue is logged, not
// propagated: the row stays Pending and SweepPending re-enqueues it later, so
// the booking path never blocks on the queue.
type Producer struct {
	log   *slog.Logger
	store MessageStore
	queue Queue
}

func NewProducer(log *slog.Logger, store MessageStore, queue Queue) *Producer {
	return &Producer{log: log, store: store, queue: queue}
}

func (p *Producer) BookingConfirmation(ctx context.Context, ev bookingdomain.BookingConfirmed) (domain.Message, error) {
	subject, body := renderBookingConfirmation(ev)
	return p.publish(ctx, domain.Message{
		Type:             domain.TypeBookingConfirmation,
		RecipientEmail:   ev.GuestEmail,
		Subject:          subject,
		Body:             body,
		RelatedBookingID: &ev.BookingID,
		RelatedHotelID:   &ev.HotelID,
	})
}

func (p *Producer) BookingCancellation(ctx context.Context, ev bookingdomain.BookingCancelled) (domain.Message, error) {
	subject, body := renderBookingCancellation(ev)
	return p.publish(ctx, domain.Message{
		Type:             domain.TypeBookingCancellation,
		RecipientEmail:   ev.GuestEmail,
		Subject:          subject,
		Body:             body,
		RelatedBookingID: &ev.BookingID,
		RelatedHotelID:   &ev.HotelID,
	})
}

func (p *Producer) LowCapacityAlert(ctx context.Context, alert domain.LowCapacityAlert) (domain.Message, error) {
	subject, body := renderLowCapacityAlert(alert)
	return p.publish(ctx, domain.Message{
		Type:           domain.TypeLowCapacityAlert,
		RecipientEmail: alert.AdminEmail,
		Subject:        subject,
		Body:           body,
		RelatedHotelID: &alert.HotelID,
	})
}

func (p *Producer) publish(ctx context.Context, m domain.Message) (domain.Message, error) {
	m.Status = domain.StatusPending
	m.CreatedAt = time.Now().UTC()

	created, err := p.store.Create(ctx, m)
	if err != nil {
		return domain.Message{}, fmt.Errorf("persist notification: %w", err)
	}

	if err := p.enqueue(ctx, created); err != nil {
		p.log.Warn("enqueue failed, notification left pending",
			"notification_id", created.ID, "type", created.Type, "err", err)
		return created, nil
	}

	p.log.Info("notification queued",
		"notification_id", created.ID,
		"type", created.Type,
		"recipient", created.RecipientEmail,
	)
	return created, nil
}

// SweepPending re-enqueues Pending messages whose original enqueue was lost
// (queue outage, crash between persist and push). Runs on a timer in main.
func (p *Producer) SweepPending(ctx context.Context, olderThan time.Duration) (int, error) {
	stale, err := p.store.ListUnqueuedPending(ctx, time.Now().UTC().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("list unqueued pending: %w", err)
	}

	requeued := 0
	for _, m := range stale {
		if err := p.enqueue(ctx, m); err != nil {
			p.log.Warn("re-enqueue failed", "notification_id", m.ID, "err", err)
			continue
		}
		requeued++
	}
	if requeued > 0 {
		p.log.Info("pending notifications re-enqueued", "count", requeued)
	}
	return requeued, nil
}

func (p *Producer) enqueue(ctx context.Context, m domain.Message) error {
	groupKey := defaultGroupKey
	hotelID := "0"
	if m.RelatedHotelID != nil {
		groupKey = strconv.FormatInt(*m.RelatedHotelID, 10)
		hotelID = groupKey
	}

	wire := domain.WireMessage{
		ID:               m.ID,
		Type:             m.Type,
		RecipientEmail:   m.RecipientEmail,
		Subject:          m.Subject,
		Body:             m.Body,
		RelatedBookingID: m.RelatedBookingID,
		RelatedHotelID:   m.RelatedHotelID,
	}
	attributes := map[string]string{
		"NotificationType": string(m.Type),
		"NotificationId":   strconv.FormatInt(m.ID, 10),
		"HotelId":          hotelID,
		"Priority":         m.Type.Priority(),
	}
	// The random component keeps legitimately distinct messages from being
	// collapsed by the queue's dedup constraint.
	dedupKey := fmt.Sprintf("%d-%s", m.ID, uuid.NewString())

	return p.queue.Enqueue(ctx, wire, groupKey, dedupKey, attributes)
}
