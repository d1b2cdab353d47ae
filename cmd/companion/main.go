// Command companion runs the companion device backend: the HTTP API, the
// periodic jobs, and a few admin subcommands.
//
// Usage:
//
//	companion serve                               # HTTP API + scheduler
//	companion report generate --mac M --date D    # build one daily report
//	companion user add --name alice               # create a user and print its token
//	companion sweep                               # expire elapsed reminders once
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/notexe/companion/internal/config"
)

func main() {
	// A missing .env is fine; real deployments use the environment.
	_ = godotenv.Load()

	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "companion",
		Short:         "Companion device backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.GetDefaultConfigPath(), "Path to configuration file")

	cmd.AddCommand(newServeCommand(&configPath))
	cmd.AddCommand(newReportCommand(&configPath))
	cmd.AddCommand(newUserCommand(&configPath))
	cmd.AddCommand(newSweepCommand(&configPath))
	return cmd
}
