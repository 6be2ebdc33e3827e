package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	bookingdomain "github.com/stayware/booking-platform/internal/booking/domain"
	"github.com/stayware/booking-platform/internal/notification/application"
	"github.com/stayware/booking-platform/pkg/idempotency"
	"github.com/stayware/booking-platform/pkg/tracing"
)

// Consumer reads booking events and fans them out as notifications. Messages
// are keyed by hotel, so events for one hotel arrive in publish order.
type Consumer struct {
	log      *slog.Logger
	reader   *kafka.Reader
	producer *application.Producer
	idem     *idempotency.Store
	tracer   trace.Tracer
}

func NewConsumer(log *slog.Logger, brokers []string, topic, group string, producer *application.Producer, idem *idempotency.Store) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: group,
	})
	return &Consumer{
		log:      log,
		reader:   r,
		producer: producer,
		idem:     idem,
		tracer:   otel.Tracer("notification-consumer"),
	}
}

func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			return err
		}
		key := c.idem.Key(msg.Topic, msg.Partition, msg.Offset)
		seen, err := c.idem.Seen(ctx, key)
		if err != nil {
			c.log.Error("idempotency check failed", "err", err)
			continue
		}
		if seen {
			c.log.Info("duplicate message skipped", "key", key)
			_ = c.reader.CommitMessages(ctx, msg)
			continue
		}

		if err := c.handle(ctx, msg); err != nil {
			// Leave the offset uncommitted and the key unmarked; the
			// group redelivers the message after restart or rebalance.
			c.log.Error("event handling failed, offset not committed", "offset", msg.Offset, "err", err)
			continue
		}
		if err := c.idem.Mark(ctx, key); err != nil {
			c.log.Warn("idempotency mark failed", "key", key, "err", err)
		}
		_ = c.reader.CommitMessages(ctx, msg)
	}
}

// handle persists the notification for a booking event. A nil return means
// the offset is safe to commit; malformed payloads and unknown event types
// are skipped because a redelivery cannot fix them.
func (c *Consumer) handle(ctx context.Context, msg kafka.Message) error {
	msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
	eventType := tracing.HeaderValue(msg.Headers, "event_type")
	msgCtx, span := c.tracer.Start(msgCtx, "Consume"+eventType)
	defer span.End()

	switch eventType {
	case bookingdomain.EventBookingConfirmed:
		var ev bookingdomain.BookingConfirmed
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			c.log.Error("unmarshal booking confirmed failed", "err", err)
			return nil
		}
		if _, err := c.producer.BookingConfirmation(msgCtx, ev); err != nil {
			return fmt.Errorf("confirmation notification for booking %d: %w", ev.BookingID, err)
		}
		c.log.Info("confirmation notification produced", "booking_id", ev.BookingID, "hotel_id", ev.HotelID)

	case bookingdomain.EventBookingCancelled:
		var ev bookingdomain.BookingCancelled
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			c.log.Error("unmarshal booking cancelled failed", "err", err)
			return nil
		}
		if _, err := c.producer.BookingCancellation(msgCtx, ev); err != nil {
			return fmt.Errorf("cancellation notification for booking %d: %w", ev.BookingID, err)
		}
		c.log.Info("cancellation notification produced", "booking_id", ev.BookingID, "hotel_id", ev.HotelID)

	default:
		c.log.Warn("unknown event type skipped", "event_type", eventType, "offset", msg.Offset)
	}
	return nil
}
