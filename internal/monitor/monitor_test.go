package monitor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/stayware/booking-platform/internal/notification/domain"
)

type stubSource struct {
	alerts  []domain.LowCapacityAlert
	err     error
	horizon time.Time
}

func (s *stubSource) ListLowCapacity(_ context.Context, horizon time.Time, _ float64) ([]domain.LowCapacityAlert, error) {
	s.horizon = horizon
	return s.alerts, s.err
}

type stubPublisher struct {
	published []domain.LowCapacityAlert
	err       error
}

func (p *stubPublisher) LowCapacityAlert(_ context.Context, a domain.LowCapacityAlert) (domain.Message, error) {
	if p.err != nil {
		return domain.Message{}, p.err
	}
	p.published = append(p.published, a)
	return domain.Message{ID: int64(len(p.published))}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSweep_PublishesEveryAlert(t *testing.T) {
	source := &stubSource{alerts: []domain.LowCapacityAlert{
		{HotelID: 1, RoomID: 1, AvailableRooms: 1, PeakRooms: 10},
		{HotelID: 2, RoomID: 3, AvailableRooms: 0, PeakRooms: 8},
	}}
	publisher := &stubPublisher{}
	m := New(testLogger(), source, publisher, time.Hour, 30*24*time.Hour)

	raised := m.Sweep(context.Background())

	assert.Equal(t, 2, raised)
	assert.Len(t, publisher.published, 2)
	assert.WithinDuration(t, time.Now().UTC().Add(30*24*time.Hour), source.horizon, time.Minute)
}

func TestSweep_ScanErrorPublishesNothing(t *testing.T) {
	source := &stubSource{err: errors.New("db down")}
	publisher := &stubPublisher{}
	m := New(testLogger(), source, publisher, time.Hour, time.Hour)

	assert.Equal(t, 0, m.Sweep(context.Background()))
	assert.Empty(t, publisher.published)
}

func TestSweep_PublishFailureDoesNotStopBatch(t *testing.T) {
	source := &stubSource{alerts: []domain.LowCapacityAlert{{HotelID: 1}, {HotelID: 2}}}
	publisher := &stubPublisher{err: errors.New("queue down")}
	m := New(testLogger(), source, publisher, time.Hour, time.Hour)

	assert.Equal(t, 0, m.Sweep(context.Background()))
}

func TestAlertRatio(t *testing.T) {
	a := domain.LowCapacityAlert{AvailableRooms: 1, PeakRooms: 5}
	assert.InDelta(t, 0.2, a.Ratio(), 1e-9)

	zero := domain.LowCapacityAlert{AvailableRooms: 3, PeakRooms: 0}
	assert.Zero(t, zero.Ratio())
}
