package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func newReportCommand(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Daily report tools",
	}
	cmd.AddCommand(newReportGenerateCommand(configPath))
	return cmd
}

func newReportGenerateCommand(configPath *string) *cobra.Command {
	var mac, date string
	var active bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a daily report for one device, or for every active device",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.close()

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")

			if active {
				days := max(a.cfg.Scheduler.ActiveDays, 1)
				res, err := a.reports.GenerateActive(ctx, time.Duration(days)*24*time.Hour)
				if err != nil {
					return err
				}
				return enc.Encode(res)
			}

			if date == "" {
				date = a.clock.Now().Format(time.DateOnly)
			}
			res, err := a.reports.Generate(ctx, mac, date)
			if res != nil {
				if encErr := enc.Encode(res); encErr != nil {
					return encErr
				}
			}
			return err
		},
	}
	cmd.Flags().StringVar(&mac, "mac", "", "Device MAC address")
	cmd.Flags().StringVar(&date, "date", "", "Report date (YYYY-MM-DD, default today)")
	cmd.Flags().BoolVar(&active, "active", false, "Generate today's report for every recently active device")
	cmd.MarkFlagsMutuallyExclusive("mac", "active")
	cmd.MarkFlagsOneRequired("mac", "active")
	return cmd
}
