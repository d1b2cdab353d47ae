package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/notexe/companion/internal/httpapi"
	"github.com/notexe/companion/internal/scheduler"
)

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the periodic jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, *configPath)
		},
	}
}

func serve(ctx context.Context, configPath string) error {
	a, err := newApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.close()

	gin.SetMode(a.cfg.Server.Mode)
	router := httpapi.NewRouter(httpapi.Deps{
		Reminders:   a.reminders,
		Devices:     a.devices,
		Users:       a.users,
		Chats:       a.chats,
		Reports:     a.reports,
		Holidays:    a.holidays,
		Metrics:     a.metrics,
		Clock:       a.clock,
		Logger:      a.log,
		CORSOrigins: a.cfg.Server.CORSOrigins,
	})
	srv := httpapi.NewServer(a.cfg.Server, router, a.log)

	var sched *scheduler.Scheduler
	if a.cfg.Scheduler.Enabled {
		loc, _ := a.cfg.Location()
		if sched, err = scheduler.New(a.cfg.Scheduler, loc, a.reminders, a.reports, a.log); err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(ctx) })
	if sched != nil {
		g.Go(func() error { return sched.Run(ctx) })
	}
	return g.Wait()
}
