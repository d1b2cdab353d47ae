package reminder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/notexe/companion/internal/clock"
	"github.com/notexe/companion/internal/device"
	"github.com/notexe/companion/internal/metrics"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Devices resolves the device a reminder belongs to.
type Devices interface {
	Get(ctx context.Context, id int64) (*device.Device, error)
	GetByMAC(ctx context.Context, mac string) (*device.Device, error)
}

// Holidays looks up the holiday on a date.
type Holidays interface {
	Lookup(t time.Time) (string, bool)
}

// Service implements the reminder operations on top of Store. Every decision
// that depends on the current time reads it from the injected clock.
type Service struct {
	store    *Store
	devices  Devices
	holidays Holidays
	clock    clock.Clock
	log      *logrus.Logger
	metrics  *metrics.Metrics
}

// NewService creates a reminder service. holidays and m may be nil.
func NewService(store *Store, devices Devices, holidays Holidays, clk clock.Clock, log *logrus.Logger, m *metrics.Metrics) *Service {
	if clk == nil {
		clk = clock.NewSystem(nil)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		store:    store,
		devices:  devices,
		holidays: holidays,
		clock:    clk,
		log:      log,
		metrics:  m,
	}
}

func (s *Service) resolveDevice(ctx context.Context, id int64, mac string) (*device.Device, error) {
	if id > 0 {
		return s.devices.Get(ctx, id)
	}
	if strings.TrimSpace(mac) == "" {
		return nil, ErrDeviceRequired
	}
	return s.devices.GetByMAC(ctx, mac)
}

// Create validates p and stores a new active reminder.
func (s *Service) Create(ctx context.Context, p CreateParams) (*CreateResult, error) {
	if p.DeviceID <= 0 && strings.TrimSpace(p.DeviceMAC) == "" {
		return nil, ErrDeviceRequired
	}

	content := strings.TrimSpace(p.Content)
	if content == "" {
		return nil, ErrContentRequired
	}
	if p.Type == "" {
		p.Type = TypeOnce
	}
	if !p.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidType, p.Type)
	}
	tod, err := ParseTimeOfDay(p.ScheduledTime)
	if err != nil {
		return nil, err
	}

	dev, err := s.resolveDevice(ctx, p.DeviceID, p.DeviceMAC)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	ts := p.ScheduledTimestamp
	if ts != nil && *ts <= 0 {
		ts = nil
	}
	if ts == nil {
		var derr error
		ts, derr = computeInitial(tod.String(), p.Type, now)
		if derr != nil {
			s.log.WithFields(logrus.Fields{
				"device_id":      dev.ID,
				"scheduled_time": p.ScheduledTime,
				"error":          derr,
			}).Warn("falling back to one hour from now for reminder due time")
		}
	}

	r := Reminder{
		DeviceID:           dev.ID,
		RemoteID:           p.RemoteID,
		Content:            content,
		Type:               p.Type,
		ScheduledTimestamp: ts,
		ScheduledTime:      tod.String(),
		SkipHolidays:       p.SkipHolidays,
		Status:             StatusActive,
		CreatedAt:          now,
	}
	id, err := s.store.Insert(ctx, r)
	if err != nil {
		return nil, err
	}

	s.metrics.ReminderCreated(string(p.Type))
	s.log.WithFields(logrus.Fields{
		"reminder_id": id,
		"device_id":   dev.ID,
		"type":        p.Type,
		"scheduled":   r.ScheduledTime,
	}).Info("reminder created")

	res := &CreateResult{ReminderID: id}
	if p.Type == TypeOnce {
		res.NextTriggerAt = ts
	}
	if p.SkipHolidays {
		res.HolidayName, res.FallsOnHoliday = s.holidayOn(s.nextTrigger(r, tod, now))
	}
	return res, nil
}

// nextTrigger is the instant the reminder will first fire.
func (s *Service) nextTrigger(r Reminder, tod TimeOfDay, now time.Time) time.Time {
	if r.ScheduledTimestamp != nil {
		return time.Unix(*r.ScheduledTimestamp, 0).In(now.Location())
	}
	ts, err := initialTimestamp(tod.String(), now)
	if err != nil {
		return now
	}
	return time.Unix(ts, 0).In(now.Location())
}

func (s *Service) holidayOn(t time.Time) (string, bool) {
	if s.holidays == nil {
		return "", false
	}
	return s.holidays.Lookup(t)
}

// List returns a page of reminders. Overdue one-shot reminders found on the
// page are moved to completed before the page is returned, and the counts
// reflect that.
func (s *Service) List(ctx context.Context, f ListFilter) (*ListResult, error) {
	var deviceID int64
	if f.DeviceID > 0 || strings.TrimSpace(f.DeviceMAC) != "" {
		dev, err := s.resolveDevice(ctx, f.DeviceID, f.DeviceMAC)
		if err != nil {
			return nil, err
		}
		deviceID = dev.ID
	}

	status := f.Status
	if status == "" {
		status = string(StatusActive)
	}
	if status != statusAll && !Status(status).Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)
	offset := max(f.Offset, 0)

	rows, err := s.store.List(ctx, deviceID, status, limit, offset)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	kept, expired := ExpireDue(rows, now)
	if len(expired) > 0 {
		n, err := s.store.Expire(ctx, expired, now)
		if err != nil {
			return nil, err
		}
		s.metrics.RemindersExpired(metrics.PathList, n)
		s.log.WithFields(logrus.Fields{
			"device_id": deviceID,
			"expired":   n,
		}).Info("expired overdue reminders")
	}

	total, err := s.store.Count(ctx, deviceID, status)
	if err != nil {
		return nil, err
	}
	active, err := s.store.Count(ctx, deviceID, string(StatusActive))
	if err != nil {
		return nil, err
	}

	return &ListResult{
		Reminders:   kept,
		TotalCount:  total,
		ActiveCount: active,
		Limit:       limit,
		Offset:      offset,
	}, nil
}

// Get returns a reminder with its device name and MAC address.
func (s *Service) Get(ctx context.Context, id int64) (*Detail, error) {
	return s.store.GetDetail(ctx, id)
}

// Update applies a partial update. A new scheduled_time recomputes the due
// instant for today's date without rolling over.
func (s *Service) Update(ctx context.Context, id int64, f UpdateFields) (*Reminder, error) {
	if f.empty() {
		return nil, ErrNoFieldsToUpdate
	}

	if f.Content != nil {
		c := strings.TrimSpace(*f.Content)
		if c == "" {
			return nil, ErrContentRequired
		}
		f.Content = &c
	}
	if f.Status != nil && !f.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, *f.Status)
	}

	now := s.clock.Now()
	upd := storedUpdate{UpdateFields: f}
	if f.ScheduledTime != nil {
		tod, err := ParseTimeOfDay(*f.ScheduledTime)
		if err != nil {
			return nil, err
		}
		ts, err := UpdatedTimestamp(tod.String(), now)
		if err != nil {
			return nil, err
		}
		normalized := tod.String()
		upd.ScheduledTime = &normalized
		upd.ScheduledTimestamp = &ts
	}

	current, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if f.Status != nil {
		switch {
		case *f.Status == current.Status:
			upd.Status = nil
		case current.Status.Terminal() || !f.Status.Terminal():
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, *f.Status)
		default:
			upd.CompletedAt = &now
		}
	}

	if err := s.store.Update(ctx, id, upd, now); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, id)
}

// Complete marks an active reminder completed, optionally recording notes.
func (s *Service) Complete(ctx context.Context, id int64, notes *string) error {
	return s.finish(ctx, id, StatusCompleted, notes)
}

// Cancel marks an active reminder cancelled.
func (s *Service) Cancel(ctx context.Context, id int64) error {
	return s.finish(ctx, id, StatusCancelled, nil)
}

func (s *Service) finish(ctx context.Context, id int64, status Status, notes *string) error {
	ok, err := s.store.Finish(ctx, id, status, notes, s.clock.Now())
	if err != nil {
		return err
	}
	if ok {
		s.log.WithFields(logrus.Fields{"reminder_id": id, "status": status}).Info("reminder finished")
		return nil
	}

	// Nothing changed: either the reminder is gone or it already left active.
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: reminder %d is %s", ErrInvalidTransition, id, r.Status)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.log.WithField("reminder_id", id).Info("reminder deleted")
	return nil
}

// Stats counts active reminders and those completed since local midnight.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	active, err := s.store.Count(ctx, 0, string(StatusActive))
	if err != nil {
		return nil, err
	}
	done, err := s.store.CountCompletedSince(ctx, clock.Midnight(s.clock.Now()))
	if err != nil {
		return nil, err
	}
	return &Stats{Active: active, CompletedToday: done}, nil
}

// SweepExpired completes every overdue one-shot reminder across all devices.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.store.ExpireElapsed(ctx, s.clock.Now())
	if err != nil {
		return 0, err
	}
	s.metrics.RemindersExpired(metrics.PathSweep, n)
	if n > 0 {
		s.log.WithField("expired", n).Info("swept overdue reminders")
	}
	return n, nil
}

// IsNotFound reports whether err means the reminder or its device is missing.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrReminderNotFound) || errors.Is(err, device.ErrDeviceNotFound)
}
