// Package monitor periodically scans upcoming availability and raises
// low-capacity alerts for hotel admins.
package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/stayware/booking-platform/internal/notification/domain"
)

// AlertThreshold is the remaining/peak ratio at or below which a window is
// considered nearly sold out.
const AlertThreshold = 0.2

type AlertSource interface {
	ListLowCapacity(ctx context.Context, horizon time.Time, threshold float64) ([]domain.LowCapacityAlert, error)
}

type Publisher interface {
	LowCapacityAlert(ctx context.Context, alert domain.LowCapacityAlert) (domain.Message, error)
}

type Monitor struct {
	log       *slog.Logger
	source    AlertSource
	publisher Publisher
	interval  time.Duration
	horizon   time.Duration
}

func New(log *slog.Logger, source AlertSource, publisher Publisher, interval, horizon time.Duration) *Monitor {
	return &Monitor{
		log:       log,
		source:    source,
		publisher: publisher,
		interval:  interval,
		horizon:   horizon,
	}
}

func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.log.Info("capacity monitor started", "interval", m.interval, "horizon", m.horizon)

	for {
		select {
		case <-ctx.Done():
			m.log.Info("capacity monitor stopped")
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

// Sweep runs one scan. An alert failure does not stop the rest of the batch.
func (m *Monitor) Sweep(ctx context.Context) int {
	horizon := time.Now().UTC().Add(m.horizon)
	alerts, err := m.source.ListLowCapacity(ctx, horizon, AlertThreshold)
	if err != nil {
		m.log.Error("low capacity scan failed", "err", err)
		return 0
	}

	raised := 0
	for _, a := range alerts {
		if _, err := m.publisher.LowCapacityAlert(ctx, a); err != nil {
			m.log.Error("low capacity alert failed",
				"hotel_id", a.HotelID, "room_id", a.RoomID, "err", err)
			continue
		}
		raised++
		m.log.Info("low capacity alert raised",
			"hotel_id", a.HotelID,
			"room_id", a.RoomID,
			"available", a.AvailableRooms,
			"peak", a.PeakRooms,
		)
	}
	return raised
}
