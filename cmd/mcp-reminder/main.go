// Command mcp-reminder provides an MCP server that lets a device agent manage
// its reminders in the companion database.
//
// Usage:
//
//	./mcp-reminder                     # Start MCP server (stdio)
//	./mcp-reminder --config file.yaml  # Use a specific configuration file
//	./mcp-reminder --help              # Show help
//
// Environment:
//
//	REMINDER_DB_PATH  Path to SQLite database (default: database.path from config)
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"

	"github.com/notexe/companion/internal/clock"
	"github.com/notexe/companion/internal/config"
	"github.com/notexe/companion/internal/database"
	"github.com/notexe/companion/internal/device"
	"github.com/notexe/companion/internal/holiday"
	"github.com/notexe/companion/internal/logger"
	"github.com/notexe/companion/internal/reminder"
)

func main() {
	configPath := flag.String("config", config.GetDefaultConfigPath(), "Path to configuration file")
	flag.Usage = printHelp
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	dbPath := os.Getenv("REMINDER_DB_PATH")
	if dbPath == "" {
		dbPath = cfg.Database.Path
	}

	loc, err := cfg.Location()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid timezone: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the MCP protocol, so logs go to stderr.
	log := logger.Init(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: os.Stderr})

	db, err := database.Open(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	holidays := holiday.New()
	for date, name := range cfg.Holidays {
		if err := holidays.Add(date, name); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid holiday: %v\n", err)
			os.Exit(1)
		}
	}

	svc := reminder.NewService(reminder.NewStore(db), device.NewStore(db), holidays, clock.NewSystem(loc), log, nil)
	s := reminder.NewServer(svc)

	if err := server.ServeStdio(s.MCPServer()); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println(`MCP Reminder Server - Reminder management via MCP protocol

USAGE:
    mcp-reminder                     Start MCP server (communicates via stdio)
    mcp-reminder --config FILE       Read database path and timezone from FILE
    mcp-reminder --help              Show this help

ENVIRONMENT:
    REMINDER_DB_PATH  Path to SQLite database file
                      Default: database.path from the configuration

TOOLS:
    add_reminder       Add a reminder for a device (device_mac, content, scheduled_time, reminder_type, skip_holidays)
    list_reminders     List a device's reminders (device_mac, status, limit)
    get_reminder       Show one reminder
    update_reminder    Update content, scheduled_time or skip_holidays
    complete_reminder  Mark an active reminder completed
    cancel_reminder    Cancel an active reminder
    delete_reminder    Delete a reminder permanently`)
}
