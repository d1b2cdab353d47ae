// Package chat stores the conversation transcripts devices upload and serves
// them back by day or recency.
package chat

import (
	"errors"
	"time"
)

var (
	ErrNoMessages  = errors.New("messages must be a non-empty array")
	ErrInvalidDate = errors.New("date must be in YYYY-MM-DD format")
)

// Message is one stored exchange between the user and the device.
type Message struct {
	ID              int64     `json:"id"`
	DeviceID        int64     `json:"device_id"`
	UserText        string    `json:"user_text"`
	AIText          string    `json:"ai_text"`
	ServerTimestamp int64     `json:"server_timestamp"` // milliseconds
	CreatedAt       time.Time `json:"created_at"`
}

// Incoming is an uploaded exchange. Entries missing either side are dropped.
type Incoming struct {
	UserText *string `json:"user_text"`
	AIText   *string `json:"ai_text"`
}

func (in Incoming) complete() bool {
	return in.UserText != nil && in.AIText != nil
}

// BatchResult reports what BatchCreate stored.
type BatchResult struct {
	CreatedCount int   `json:"created_count"`
	DeviceID     int64 `json:"device_id"`
}

// Stats summarises stored transcripts.
type Stats struct {
	Total   int `json:"total"`
	Today   int `json:"today"`
	Devices int `json:"devices"`
}

// ParseDate parses a YYYY-MM-DD date as midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(time.DateOnly, s, loc)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}
