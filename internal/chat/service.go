package chat

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/notexe/companion/internal/clock"
	"github.com/notexe/companion/internal/device"
	"github.com/notexe/companion/internal/metrics"
)

const (
	defaultRecentLimit = 100
	maxRecentLimit     = 1000
)

// Devices is the part of the device registry chat ingestion needs.
type Devices interface {
	GetByMAC(ctx context.Context, mac string) (*device.Device, error)
	Touch(ctx context.Context, id int64, now time.Time) error
	Count(ctx context.Context) (int, error)
}

type Service struct {
	store   *Store
	devices Devices
	clock   clock.Clock
	log     *logrus.Logger
	metrics *metrics.Metrics
}

func NewService(store *Store, devices Devices, clk clock.Clock, log *logrus.Logger, m *metrics.Metrics) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{store: store, devices: devices, clock: clk, log: log, metrics: m}
}

// BatchCreate stores an upload from the device with the given MAC. All
// entries share one server timestamp, and the device is marked online.
func (s *Service) BatchCreate(ctx context.Context, mac string, msgs []Incoming) (*BatchResult, error) {
	dev, err := s.devices.GetByMAC(ctx, mac)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	created, err := s.store.InsertBatch(ctx, dev.ID, msgs, now.UnixMilli(), now)
	if err != nil {
		return nil, err
	}

	if err := s.devices.Touch(ctx, dev.ID, now); err != nil {
		s.log.WithError(err).WithField("device_id", dev.ID).Warn("failed to update device online time")
	}

	s.metrics.ChatIngested(created)
	s.log.WithFields(logrus.Fields{
		"device_id": dev.ID,
		"received":  len(msgs),
		"created":   created,
	}).Info("chat batch stored")

	return &BatchResult{CreatedCount: created, DeviceID: dev.ID}, nil
}

// lookup resolves mac, treating an unknown or malformed MAC as a device
// with no messages.
func (s *Service) lookup(ctx context.Context, mac string) (*device.Device, bool, error) {
	dev, err := s.devices.GetByMAC(ctx, mac)
	if errors.Is(err, device.ErrDeviceNotFound) || errors.Is(err, device.ErrInvalidMAC) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return dev, true, nil
}

// dayBounds is [midnight, next midnight) of day in milliseconds.
func dayBounds(day time.Time) (int64, int64) {
	start := clock.Midnight(day)
	return start.UnixMilli(), start.AddDate(0, 0, 1).UnixMilli()
}

// Daily returns the device's messages on date (YYYY-MM-DD, server time
// zone), oldest first.
func (s *Service) Daily(ctx context.Context, mac, date string) ([]Message, error) {
	day, err := ParseDate(date, s.clock.Now().Location())
	if err != nil {
		return nil, err
	}

	dev, ok, err := s.lookup(ctx, mac)
	if err != nil || !ok {
		return []Message{}, err
	}
	return s.ForDay(ctx, dev.ID, day)
}

// ForDay returns a device's messages on day's calendar date.
func (s *Service) ForDay(ctx context.Context, deviceID int64, day time.Time) ([]Message, error) {
	from, to := dayBounds(day)
	return s.store.Between(ctx, deviceID, from, to)
}

// Recent returns the device's messages newest first.
func (s *Service) Recent(ctx context.Context, mac string, limit, offset int) ([]Message, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	limit = min(limit, maxRecentLimit)
	offset = max(offset, 0)

	dev, ok, err := s.lookup(ctx, mac)
	if err != nil || !ok {
		return []Message{}, err
	}
	return s.store.Recent(ctx, dev.ID, limit, offset)
}

// Stats counts all messages, messages on date (if given), and devices.
func (s *Service) Stats(ctx context.Context, date string) (*Stats, error) {
	var st Stats
	var err error

	if st.Total, err = s.store.Count(ctx, 0, 0); err != nil {
		return nil, err
	}
	if date != "" {
		day, err := ParseDate(date, s.clock.Now().Location())
		if err != nil {
			return nil, err
		}
		from, to := dayBounds(day)
		if st.Today, err = s.store.Count(ctx, from, to); err != nil {
			return nil, err
		}
	}
	if st.Devices, err = s.devices.Count(ctx); err != nil {
		return nil, err
	}
	return &st, nil
}
