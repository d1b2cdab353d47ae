package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/notexe/companion/internal/cache"
	"github.com/notexe/companion/internal/chat"
	"github.com/notexe/companion/internal/clock"
	"github.com/notexe/companion/internal/device"
	"github.com/notexe/companion/internal/metrics"
)

var (
	ErrReportNotFound   = errors.New("report not found")
	ErrNoConversations  = errors.New("no conversations found")
	ErrGenerationFailed = errors.New("report generation failed")
)

const (
	defaultListLimit = 30
	maxListLimit     = 365
)

// Devices is the part of the device registry reports need.
type Devices interface {
	GetByMAC(ctx context.Context, mac string) (*device.Device, error)
	ListActive(ctx context.Context, since time.Time) ([]device.Device, error)
}

// Chats supplies a device's conversations for one day.
type Chats interface {
	ForDay(ctx context.Context, deviceID int64, day time.Time) ([]chat.Message, error)
}

// GenerateResult describes a Generate call.
type GenerateResult struct {
	ReportID         int64  `json:"report_id"`
	ChatCount        int    `json:"chat_count"`
	GenerationStatus string `json:"generation_status"`
	AlreadyGenerated bool   `json:"already_generated,omitempty"`
}

type Service struct {
	store     *Store
	devices   Devices
	chats     Chats
	generator *Generator
	cache     cache.Cache
	clock     clock.Clock
	log       *logrus.Logger
	metrics   *metrics.Metrics
	maxChats  int
}

// Options are the optional collaborators of Service.
type Options struct {
	Cache    cache.Cache
	Metrics  *metrics.Metrics
	Logger   *logrus.Logger
	MaxChats int // most recent exchanges included in a prompt; 0 means all
}

func NewService(store *Store, devices Devices, chats Chats, generator *Generator, clk clock.Clock, opts Options) *Service {
	if opts.Cache == nil {
		opts.Cache = cache.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Service{
		store:     store,
		devices:   devices,
		chats:     chats,
		generator: generator,
		cache:     opts.Cache,
		clock:     clk,
		log:       opts.Logger,
		metrics:   opts.Metrics,
		maxChats:  opts.MaxChats,
	}
}

func cacheKey(deviceID int64, date string) string {
	return fmt.Sprintf("report:%d:%s", deviceID, date)
}

// Generate builds the report of the device with mac for date (YYYY-MM-DD).
// A successful report already stored is not regenerated; a failed one is.
// When the provider fails the error page is stored, the result is returned,
// and the error wraps ErrGenerationFailed.
func (s *Service) Generate(ctx context.Context, mac, date string) (*GenerateResult, error) {
	dev, err := s.devices.GetByMAC(ctx, mac)
	if err != nil {
		return nil, err
	}
	return s.generateFor(ctx, dev, date)
}

func (s *Service) generateFor(ctx context.Context, dev *device.Device, date string) (*GenerateResult, error) {
	day, err := chat.ParseDate(date, s.clock.Now().Location())
	if err != nil {
		return nil, err
	}

	existing, err := s.store.Get(ctx, dev.ID, date)
	switch {
	case err == nil && existing.GenerationStatus == StatusSuccess:
		return &GenerateResult{
			ReportID:         existing.ID,
			ChatCount:        existing.ChatCount,
			GenerationStatus: existing.GenerationStatus,
			AlreadyGenerated: true,
		}, nil
	case err != nil && !errors.Is(err, ErrReportNotFound):
		return nil, err
	}

	msgs, err := s.chats.ForDay(ctx, dev.ID, day)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, ErrNoConversations
	}
	if s.maxChats > 0 && len(msgs) > s.maxChats {
		msgs = msgs[len(msgs)-s.maxChats:]
	}

	res := s.generator.Generate(ctx, msgs, date, dev.Name)
	id, err := s.store.Save(ctx, Report{
		DeviceID:         dev.ID,
		ReportDate:       date,
		HTMLContent:      res.HTML,
		ChatCount:        len(msgs),
		GenerationStatus: res.Status,
	}, s.clock.Now())
	if err != nil {
		return nil, err
	}

	if err := s.cache.Delete(ctx, cacheKey(dev.ID, date)); err != nil {
		s.log.WithError(err).Warn("failed to invalidate cached report")
	}
	s.metrics.ReportGenerated(res.Status)

	out := &GenerateResult{ReportID: id, ChatCount: len(msgs), GenerationStatus: res.Status}
	if res.Err != nil {
		return out, fmt.Errorf("%w: %v", ErrGenerationFailed, res.Err)
	}

	s.log.WithFields(logrus.Fields{
		"device_id": dev.ID,
		"date":      date,
		"chats":     len(msgs),
	}).Info("report generated")
	return out, nil
}

// Get returns the stored report of the device with mac on date.
func (s *Service) Get(ctx context.Context, mac, date string) (*Report, error) {
	dev, err := s.devices.GetByMAC(ctx, mac)
	if err != nil {
		return nil, err
	}

	key := cacheKey(dev.ID, date)
	if raw, ok, err := s.cache.Get(ctx, key); err != nil {
		s.log.WithError(err).Warn("report cache lookup failed")
	} else if ok {
		var r Report
		if json.Unmarshal([]byte(raw), &r) == nil {
			return &r, nil
		}
	}

	r, err := s.store.Get(ctx, dev.ID, date)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(r); err == nil {
		if err := s.cache.Set(ctx, key, string(raw)); err != nil {
			s.log.WithError(err).Warn("failed to cache report")
		}
	}
	return r, nil
}

// List returns report summaries, for one device when mac is set.
func (s *Service) List(ctx context.Context, mac string, limit int) ([]Report, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)

	var deviceID int64
	if mac != "" {
		dev, err := s.devices.GetByMAC(ctx, mac)
		if err != nil {
			return nil, err
		}
		deviceID = dev.ID
	}
	return s.store.List(ctx, deviceID, limit)
}

// BatchResult summarises GenerateActive.
type BatchResult struct {
	Devices   int `json:"devices"`
	Generated int `json:"generated"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// GenerateActive generates today's report for every device online within
// window. Per-device failures are logged and counted.
func (s *Service) GenerateActive(ctx context.Context, window time.Duration) (*BatchResult, error) {
	now := s.clock.Now()
	devices, err := s.devices.ListActive(ctx, now.Add(-window))
	if err != nil {
		return nil, err
	}

	date := now.Format(time.DateOnly)
	out := &BatchResult{Devices: len(devices)}
	for i := range devices {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		dev := &devices[i]
		res, err := s.generateFor(ctx, dev, date)
		switch {
		case errors.Is(err, ErrNoConversations):
			out.Skipped++
		case err != nil:
			out.Failed++
			s.log.WithError(err).WithFields(logrus.Fields{
				"device_id": dev.ID,
				"date":      date,
			}).Warn("nightly report failed")
		case res.AlreadyGenerated:
			out.Skipped++
		default:
			out.Generated++
		}
	}

	s.log.WithFields(logrus.Fields{
		"date":      date,
		"devices":   out.Devices,
		"generated": out.Generated,
		"skipped":   out.Skipped,
		"failed":    out.Failed,
	}).Info("nightly reports finished")
	return out, nil
}
