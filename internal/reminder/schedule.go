package reminder

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/notexe/companion/internal/clock"
)

const (
	secondsPerDay   = 24 * 60 * 60
	fallbackDelay   = 60 * 60
	maxHourOfDay    = 23
	maxMinuteOfHour = 59
)

// TimeOfDay is a wall-clock time without date or zone.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses a 24-hour "HH:MM" value. A single-digit hour or
// minute is accepted, matching what devices send for early times ("8:05").
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || !isDigits(hh, 1, 2) || !isDigits(mm, 1, 2) {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}

	h, _ := strconv.Atoi(hh)
	m, _ := strconv.Atoi(mm)
	if h > maxHourOfDay || m > maxMinuteOfHour {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}

	return TimeOfDay{Hour: h, Minute: m}, nil
}

func isDigits(s string, minLen, maxLen int) bool {
	if len(s) < minLen || len(s) > maxLen {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Seconds is the offset from midnight.
func (t TimeOfDay) Seconds() int64 {
	return int64(t.Hour)*3600 + int64(t.Minute)*60
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ValidateTimeOfDay reports whether s is an acceptable scheduled_time.
func ValidateTimeOfDay(s string) error {
	_, err := ParseTimeOfDay(s)
	return err
}

// todayAt returns midnight(now) + tod as epoch seconds.
func todayAt(tod TimeOfDay, now time.Time) (int64, error) {
	midnight := clock.Midnight(now).Unix()
	offset := tod.Seconds()
	if midnight > math.MaxInt64-offset-secondsPerDay {
		return 0, fmt.Errorf("timestamp overflow for %s on %s", tod, now.Format(time.DateOnly))
	}
	return midnight + offset, nil
}

// ComputeInitialTimestamp derives the due instant of a new reminder from its
// time of day. Daily reminders have no single due instant and get nil.
//
// A time of day that has already passed today rolls over to tomorrow, so the
// result is never before now. If derivation fails the reminder is due one
// hour from now instead; callers validate scheduledTime beforehand, so the
// fallback only covers inputs that slipped past validation.
func ComputeInitialTimestamp(scheduledTime string, typ Type, now time.Time) *int64 {
	ts, _ := computeInitial(scheduledTime, typ, now)
	return ts
}

// computeInitial is ComputeInitialTimestamp that also reports the derivation
// error which caused the fallback.
func computeInitial(scheduledTime string, typ Type, now time.Time) (*int64, error) {
	if typ != TypeOnce {
		return nil, nil
	}

	ts, err := initialTimestamp(scheduledTime, now)
	if err != nil {
		fallback := FallbackTimestamp(now)
		return &fallback, err
	}
	return &ts, nil
}

func initialTimestamp(scheduledTime string, now time.Time) (int64, error) {
	tod, err := ParseTimeOfDay(scheduledTime)
	if err != nil {
		return 0, err
	}

	ts, err := todayAt(tod, now)
	if err != nil {
		return 0, err
	}
	if ts < now.Unix() {
		ts += secondsPerDay
	}
	return ts, nil
}

// FallbackTimestamp is the due instant used when derivation fails.
func FallbackTimestamp(now time.Time) int64 {
	return now.Unix() + fallbackDelay
}

// UpdatedTimestamp recomputes the due instant after scheduled_time changes:
// today's date at the new time of day. Unlike creation there is no rollover,
// so a time that has already passed today yields an instant in the past.
func UpdatedTimestamp(newScheduledTime string, now time.Time) (int64, error) {
	tod, err := ParseTimeOfDay(newScheduledTime)
	if err != nil {
		return 0, err
	}
	return todayAt(tod, now)
}

// IsExpired reports whether r is an active one-shot reminder whose due
// instant is before now.
func IsExpired(r Reminder, now time.Time) bool {
	return r.Status == StatusActive &&
		r.Type == TypeOnce &&
		r.ScheduledTimestamp != nil &&
		*r.ScheduledTimestamp < now.Unix()
}

// ExpireDue splits reminders into those still pending and the ids of active
// one-shot reminders that are overdue. Input order is preserved in kept.
func ExpireDue(reminders []Reminder, now time.Time) (kept []Reminder, expired []int64) {
	kept = make([]Reminder, 0, len(reminders))
	for _, r := range reminders {
		if IsExpired(r, now) {
			expired = append(expired, r.ID)
			continue
		}
		kept = append(kept, r)
	}
	return kept, expired
}
