package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/notexe/companion/internal/api"
	"github.com/notexe/companion/internal/auth"
	"github.com/notexe/companion/internal/cache"
	"github.com/notexe/companion/internal/chat"
	"github.com/notexe/companion/internal/clock"
	"github.com/notexe/companion/internal/config"
	"github.com/notexe/companion/internal/database"
	"github.com/notexe/companion/internal/device"
	"github.com/notexe/companion/internal/holiday"
	"github.com/notexe/companion/internal/logger"
	"github.com/notexe/companion/internal/metrics"
	"github.com/notexe/companion/internal/reminder"
	"github.com/notexe/companion/internal/report"
)

// app holds the wired services shared by every subcommand.
type app struct {
	cfg      *config.Config
	log      *logrus.Logger
	db       *sql.DB
	clock    clock.Clock
	metrics  *metrics.Metrics
	cache    cache.Cache
	provider api.Provider

	users     *auth.Store
	devices   *device.Store
	holidays  *holiday.Calendar
	reminders *reminder.Service
	chats     *chat.Service
	reports   *report.Service
}

func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log := logger.Init(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	clk := clock.NewSystem(loc)

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, db: db, clock: clk}
	if err := a.wire(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	var err error
	if a.metrics, err = metrics.New(); err != nil {
		return fmt.Errorf("creating metrics: %w", err)
	}

	if a.cache, err = cache.New(ctx, a.cfg.Cache); err != nil {
		a.log.WithError(err).Warn("report cache unavailable, continuing without it")
		a.cache = cache.Nop{}
	}

	a.provider, err = api.NewProvider(a.cfg.GetProviderConfig())
	if err != nil {
		a.log.WithError(err).WithField("provider", a.cfg.Provider).Warn("LLM provider disabled, reports will fail")
		a.provider = api.Disabled{Reason: err}
	}

	a.holidays = holiday.New()
	for date, name := range a.cfg.Holidays {
		if err := a.holidays.Add(date, name); err != nil {
			return err
		}
	}

	a.users = auth.NewStore(a.db)
	a.devices = device.NewStore(a.db)
	a.reminders = reminder.NewService(reminder.NewStore(a.db), a.devices, a.holidays, a.clock, a.log, a.metrics)
	a.chats = chat.NewService(chat.NewStore(a.db), a.devices, a.clock, a.log, a.metrics)

	gen := report.NewGenerator(
		a.provider,
		a.cfg.GetProviderConfig().Model,
		report.NewLimiter(a.cfg.Report.RatePerMinute, a.cfg.Report.Burst),
		a.log,
	)
	a.reports = report.NewService(report.NewStore(a.db), a.devices, a.chats, gen, a.clock, report.Options{
		Cache:    a.cache,
		Metrics:  a.metrics,
		Logger:   a.log,
		MaxChats: a.cfg.Report.MaxChats,
	})
	return nil
}

func (a *app) close() {
	if a.provider != nil {
		a.provider.Close()
	}
	if a.cache != nil {
		a.cache.Close()
	}
	if err := a.db.Close(); err != nil {
		a.log.WithError(err).Warn("failed to close database")
	}
}
