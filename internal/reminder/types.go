package reminder

import (
	"errors"
	"time"
)

// Type distinguishes one-shot reminders from ones that repeat every day.
type Type string

const (
	TypeOnce  Type = "once"
	TypeDaily Type = "daily"
)

func (t Type) Valid() bool {
	return t == TypeOnce || t == TypeDaily
}

// Status values for reminders. Completed and cancelled are terminal.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

var (
	ErrInvalidTimeOfDay  = errors.New("scheduled_time must be in HH:MM format")
	ErrInvalidType       = errors.New(`reminder_type must be "once" or "daily"`)
	ErrInvalidStatus     = errors.New(`status must be "active", "completed", or "cancelled"`)
	ErrContentRequired   = errors.New("content is required")
	ErrDeviceRequired    = errors.New("device_mac or device_id is required")
	ErrNoFieldsToUpdate  = errors.New("no valid fields to update")
	ErrReminderNotFound  = errors.New("reminder not found")
	ErrInvalidTransition = errors.New("reminder is already completed or cancelled")
)

// Reminder is a stored reminder row.
type Reminder struct {
	ID                 int64      `json:"id"`
	DeviceID           int64      `json:"device_id"`
	RemoteID           *string    `json:"remote_id,omitempty"`
	Content            string     `json:"content"`
	Type               Type       `json:"reminder_type"`
	ScheduledTimestamp *int64     `json:"scheduled_timestamp"`
	ScheduledTime      string     `json:"scheduled_time"`
	SkipHolidays       bool       `json:"skip_holidays"`
	Status             Status     `json:"status"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	Notes              *string    `json:"notes,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          *time.Time `json:"updated_at"`
}

// Detail is a reminder together with its owning device.
type Detail struct {
	Reminder
	DeviceName string `json:"device_name,omitempty"`
	DeviceMAC  string `json:"device_mac,omitempty"`
}

// CreateParams is the input of Service.Create. DeviceID wins over DeviceMAC.
type CreateParams struct {
	DeviceID           int64
	DeviceMAC          string
	RemoteID           *string
	Content            string
	Type               Type
	ScheduledTime      string
	ScheduledTimestamp *int64
	SkipHolidays       bool
}

// CreateResult reports what Service.Create stored.
type CreateResult struct {
	ReminderID     int64  `json:"reminder_id"`
	NextTriggerAt  *int64 `json:"next_trigger_at"`
	FallsOnHoliday bool   `json:"falls_on_holiday"`
	HolidayName    string `json:"holiday_name,omitempty"`
}

// UpdateFields holds optional fields for a partial update.
type UpdateFields struct {
	Content       *string
	ScheduledTime *string
	SkipHolidays  *bool
	Status        *Status
}

func (f UpdateFields) empty() bool {
	return f.Content == nil && f.ScheduledTime == nil && f.SkipHolidays == nil && f.Status == nil
}

// ListFilter selects reminders for Service.List. An empty Status means
// active; "all" disables status filtering.
type ListFilter struct {
	DeviceID  int64
	DeviceMAC string
	Status    string
	Limit     int
	Offset    int
}

const statusAll = "all"

// ListResult is a page of reminders with expired one-shot reminders removed.
type ListResult struct {
	Reminders   []Reminder `json:"reminders"`
	TotalCount  int        `json:"total_count"`
	ActiveCount int        `json:"active_count"`
	Limit       int        `json:"limit"`
	Offset      int        `json:"offset"`
}

// Stats summarises reminder activity across all devices.
type Stats struct {
	Active         int `json:"active"`
	CompletedToday int `json:"completed_today"`
}
