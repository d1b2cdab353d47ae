package reminder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/notexe/companion/internal/database"
)

// Store provides SQLite-backed storage for reminders.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const reminderColumns = `id, device_id, remote_id, content, reminder_type, scheduled_timestamp,
	scheduled_time, skip_holidays, status, completed_at, notes, created_at, updated_at`

// Insert stores r and returns its assigned ID.
func (s *Store) Insert(ctx context.Context, r Reminder) (int64, error) {
	if r.Status == "" {
		r.Status = StatusActive
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO reminders
			(device_id, remote_id, content, reminder_type, scheduled_timestamp,
			 scheduled_time, skip_holidays, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.DeviceID, r.RemoteID, r.Content, string(r.Type), r.ScheduledTimestamp,
		r.ScheduledTime, r.SkipHolidays, string(r.Status), database.FormatTime(r.CreatedAt))
	if err != nil {
		return 0, fmt.Errorf("failed to insert reminder: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get inserted ID: %w", err)
	}
	return id, nil
}

// whereClause builds the shared device/status filter. deviceID 0 and status
// "all" (or empty) disable the respective condition.
func whereClause(deviceID int64, status string) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if deviceID > 0 {
		clauses = append(clauses, "device_id = ?")
		args = append(args, deviceID)
	}
	if status != "" && status != statusAll {
		clauses = append(clauses, "status = ?")
		args = append(args, status)
	}
	return strings.Join(clauses, " AND "), args
}

// List returns reminders newest first.
func (s *Store) List(ctx context.Context, deviceID int64, status string, limit, offset int) ([]Reminder, error) {
	where, args := whereClause(deviceID, status)
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+reminderColumns+`
		FROM reminders WHERE `+where+`
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	defer rows.Close()

	var reminders []Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, *r)
	}
	return reminders, rows.Err()
}

// Count returns the number of reminders matching the filter.
func (s *Store) Count(ctx context.Context, deviceID int64, status string) (int, error) {
	where, args := whereClause(deviceID, status)

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reminders WHERE `+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count reminders: %w", err)
	}
	return n, nil
}

// Get returns a single reminder by ID.
func (s *Store) Get(ctx context.Context, id int64) (*Reminder, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+reminderColumns+` FROM reminders WHERE id = ?`, id)

	r, err := scanReminder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("reminder %d: %w", id, ErrReminderNotFound)
		}
		return nil, fmt.Errorf("failed to get reminder: %w", err)
	}
	return r, nil
}

// GetDetail returns a reminder joined with its device's name and MAC.
func (s *Store) GetDetail(ctx context.Context, id int64) (*Detail, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	d := &Detail{Reminder: *r}
	var name, mac sql.NullString
	err = s.db.QueryRowContext(ctx, `SELECT device_name, mac_address FROM devices WHERE id = ?`, r.DeviceID).Scan(&name, &mac)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get reminder device: %w", err)
	}
	d.DeviceName = name.String
	d.DeviceMAC = mac.String
	return d, nil
}

// storedUpdate is UpdateFields after the service has derived the timestamp.
type storedUpdate struct {
	UpdateFields
	ScheduledTimestamp *int64
	CompletedAt        *time.Time
}

// Update applies partial updates to a reminder. A status change only
// applies while the reminder is still active.
func (s *Store) Update(ctx context.Context, id int64, fields storedUpdate, now time.Time) error {
	setClauses := []string{}
	args := []any{}

	if fields.Content != nil {
		setClauses = append(setClauses, "content = ?")
		args = append(args, *fields.Content)
	}
	if fields.ScheduledTime != nil {
		setClauses = append(setClauses, "scheduled_time = ?")
		args = append(args, *fields.ScheduledTime)
	}
	if fields.ScheduledTimestamp != nil {
		setClauses = append(setClauses, "scheduled_timestamp = ?")
		args = append(args, *fields.ScheduledTimestamp)
	}
	if fields.SkipHolidays != nil {
		setClauses = append(setClauses, "skip_holidays = ?")
		args = append(args, *fields.SkipHolidays)
	}
	if fields.Status != nil {
		setClauses = append(setClauses, "status = ?")
		args = append(args, string(*fields.Status))
	}
	if fields.CompletedAt != nil {
		setClauses = append(setClauses, "completed_at = ?")
		args = append(args, database.FormatTime(*fields.CompletedAt))
	}

	if len(setClauses) == 0 {
		return nil
	}

	setClauses = append(setClauses, "updated_at = ?")
	args = append(args, database.FormatTime(now), id)

	where := " WHERE id = ?"
	if fields.Status != nil {
		where += " AND status = ?"
		args = append(args, string(StatusActive))
	}

	result, err := s.db.ExecContext(ctx, "UPDATE reminders SET "+strings.Join(setClauses, ", ")+where, args...)
	if err != nil {
		return fmt.Errorf("failed to update reminder: %w", err)
	}

	n, _ := result.RowsAffected()
	if n > 0 {
		return nil
	}
	if fields.Status == nil {
		return fmt.Errorf("reminder %d: %w", id, ErrReminderNotFound)
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: reminder %d is %s", ErrInvalidTransition, id, current.Status)
}

// Finish moves an active reminder to a terminal status. It reports false when
// the reminder was not active.
func (s *Store) Finish(ctx context.Context, id int64, status Status, notes *string, now time.Time) (bool, error) {
	ts := database.FormatTime(now)

	result, err := s.db.ExecContext(ctx, `
		UPDATE reminders
		SET status = ?, completed_at = ?, updated_at = ?, notes = COALESCE(?, notes)
		WHERE id = ? AND status = ?
	`, string(status), ts, ts, notes, id, string(StatusActive))
	if err != nil {
		return false, fmt.Errorf("failed to %s reminder: %w", status, err)
	}

	n, _ := result.RowsAffected()
	return n > 0, nil
}

// Expire marks the given reminders completed if they are still active, and
// returns how many rows changed. Rows already moved on are left untouched.
func (s *Store) Expire(ctx context.Context, ids []int64, now time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	ts := database.FormatTime(now)
	var total int64
	for _, id := range ids {
		result, err := s.db.ExecContext(ctx, `
			UPDATE reminders SET status = ?, completed_at = ?
			WHERE id = ? AND status = ?
		`, string(StatusCompleted), ts, id, string(StatusActive))
		if err != nil {
			return total, fmt.Errorf("failed to expire reminder %d: %w", id, err)
		}
		n, _ := result.RowsAffected()
		total += n
	}
	return total, nil
}

// ExpireElapsed completes every active one-shot reminder due before now.
func (s *Store) ExpireElapsed(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE reminders SET status = ?, completed_at = ?
		WHERE status = ? AND reminder_type = ?
		  AND scheduled_timestamp IS NOT NULL AND scheduled_timestamp < ?
	`, string(StatusCompleted), database.FormatTime(now), string(StatusActive), string(TypeOnce), now.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to expire elapsed reminders: %w", err)
	}
	return result.RowsAffected()
}

// Delete removes a reminder by ID.
func (s *Store) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM reminders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete reminder: %w", err)
	}

	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("reminder %d: %w", id, ErrReminderNotFound)
	}
	return nil
}

// CountCompletedSince counts completed reminders with completed_at >= since.
func (s *Store) CountCompletedSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM reminders
		WHERE status = ? AND completed_at IS NOT NULL AND completed_at >= ?
	`, string(StatusCompleted), database.FormatTime(since)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count completed reminders: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReminder(row rowScanner) (*Reminder, error) {
	var (
		r                      Reminder
		remoteID, notes        sql.NullString
		completedAt, updatedAt sql.NullString
		scheduledTS            sql.NullInt64
		typ, status, createdAt string
	)

	if err := row.Scan(&r.ID, &r.DeviceID, &remoteID, &r.Content, &typ, &scheduledTS,
		&r.ScheduledTime, &r.SkipHolidays, &status, &completedAt, &notes,
		&createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan reminder: %w", err)
	}

	r.Type = Type(typ)
	r.Status = Status(status)
	if remoteID.Valid {
		r.RemoteID = &remoteID.String
	}
	if notes.Valid {
		r.Notes = &notes.String
	}
	if scheduledTS.Valid {
		ts := scheduledTS.Int64
		r.ScheduledTimestamp = &ts
	}
	r.CompletedAt = database.NullTime(completedAt)
	r.UpdatedAt = database.NullTime(updatedAt)
	r.CreatedAt = database.ParseTime(createdAt)

	return &r, nil
}
