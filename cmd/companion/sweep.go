package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSweepCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Complete one-shot reminders whose time has passed",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.close()

			n, err := a.reminders.SweepExpired(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Expired %d reminder(s)\n", n)
			return nil
		},
	}
}
