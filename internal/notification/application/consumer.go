package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/stayware/booking-platform/internal/notification/domain"
)

// Consumer is the delivery poller. Each tick it leases a batch from the
// queue, attempts delivery, and acknowledges terminal outcomes. A message
// that fails with attempts left is simply left under its lease; when the
// lease expires the queue redelivers it. The notifications row holds the
// retry count, so redelivery after a crash never resets the budget.
type Consumer struct {
	log        *slog.Logger
	queue      Queue
	store      MessageStore
	transport  Transport
	consumerID string

	Interval       time.Duration
	Visibility     time.Duration
	AttemptTimeout time.Duration
	BatchSize      int
	MaxRetries     int
}

func NewConsumer(log *slog.Logger, queue Queue, store MessageStore, transport Transport, consumerID string) *Consumer {
	return &Consumer{
		log:            log,
		queue:          queue,
		store:          store,
		transport:      transport,
		consumerID:     consumerID,
		Interval:       10 * time.Second,
		Visibility:     30 * time.Second,
		AttemptTimeout: 5 * time.Second,
		BatchSize:      10,
		MaxRetries:     3,
	}
}

func (c *Consumer) Run(ctx context.Context) error {
	t := time.NewTicker(c.Interval)
	defer t.Stop()

	c.log.Info("delivery poller started",
		"consumer_id", c.consumerID,
		"interval", c.Interval.String(),
		"max_retries", c.MaxRetries,
	)

	for {
		select {
		case <-ctx.Done():
			c.log.Info("delivery poller stopping", "consumer_id", c.consumerID)
			return nil
		case <-t.C:
			c.Tick(ctx)
		}
	}
}

// Tick processes one lease batch. Exported so tests and the sweep can drive
// the poller without the ticker.
func (c *Consumer) Tick(ctx context.Context) {
	if depth, err := c.queue.ApproximateCount(ctx); err == nil && depth > 0 {
		c.log.Debug("delivery queue depth", "approx", depth)
	}

	leased, err := c.queue.Lease(ctx, c.consumerID, c.BatchSize, c.Visibility)
	if err != nil {
		c.log.Error("lease batch failed", "err", err)
		return
	}

	for _, lm := range leased {
		c.process(ctx, lm)
	}
}

func (c *Consumer) process(ctx context.Context, lm domain.LeasedMessage) {
	m := lm.Message

	// The row is the retry authority. A queue entry can outlive a terminal
	// mark when the ack after MarkSent/MarkFailed is lost; drop such stale
	// entries without another delivery attempt.
	rec, err := c.store.Get(ctx, m.ID)
	switch {
	case errors.Is(err, domain.ErrMessageNotFound):
		_ = c.queue.Ack(ctx, lm.Receipt)
		return
	case err != nil:
		c.log.Error("load notification failed", "notification_id", m.ID, "err", err)
		return
	}
	if rec.Status == domain.StatusSent || rec.Status == domain.StatusFailed {
		if err := c.queue.Ack(ctx, lm.Receipt); err != nil {
			c.log.Error("ack of stale message failed", "notification_id", m.ID, "err", err)
		}
		return
	}
	if rec.RetryCount >= c.MaxRetries {
		if err := c.store.MarkFailed(ctx, m.ID); err != nil {
			c.log.Error("mark failed failed", "notification_id", m.ID, "err", err)
			return
		}
		if err := c.queue.Ack(ctx, lm.Receipt); err != nil {
			c.log.Error("ack of failed message failed", "notification_id", m.ID, "err", err)
		}
		return
	}

	dctx, cancel := context.WithTimeout(ctx, c.AttemptTimeout)
	err = c.transport.Deliver(dctx, m.RecipientEmail, m.Subject, m.Body)
	cancel()

	if err == nil {
		// Acknowledge only after the status is durable; a crash in between
		// means one redundant redelivery, never a lost message.
		if err := c.store.MarkSent(ctx, m.ID, time.Now().UTC()); err != nil {
			c.log.Error("mark sent failed", "notification_id", m.ID, "err", err)
			return
		}
		if err := c.queue.Ack(ctx, lm.Receipt); err != nil {
			c.log.Error("ack failed", "notification_id", m.ID, "err", err)
			return
		}
		c.log.Info("notification delivered",
			"notification_id", m.ID, "type", m.Type, "recipient", m.RecipientEmail)
		return
	}

	attempts, serr := c.store.MarkRetrying(ctx, m.ID)
	if serr != nil {
		c.log.Error("mark retrying failed", "notification_id", m.ID, "err", serr)
		return
	}

	if attempts >= c.MaxRetries {
		if err := c.store.MarkFailed(ctx, m.ID); err != nil {
			c.log.Error("mark failed failed", "notification_id", m.ID, "err", err)
			return
		}
		if err := c.queue.Ack(ctx, lm.Receipt); err != nil {
			c.log.Error("ack of failed message failed", "notification_id", m.ID, "err", err)
			return
		}
		c.log.Warn("notification permanently failed",
			"notification_id", m.ID, "attempts", attempts, "err", err)
		return
	}

	// Leave the message leased; redelivery happens when the lease expires.
	c.log.Warn("delivery attempt failed, will retry",
		"notification_id", m.ID, "attempt", attempts, "max", c.MaxRetries, "err", err)
}
