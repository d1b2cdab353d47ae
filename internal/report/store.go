package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/notexe/companion/internal/database"
)

// Report is a stored daily report.
type Report struct {
	ID               int64     `json:"id"`
	DeviceID         int64     `json:"device_id"`
	ReportDate       string    `json:"report_date"`
	HTMLContent      string    `json:"html_content,omitempty"`
	ChatCount        int       `json:"chat_count"`
	GenerationStatus string    `json:"generation_status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Store provides SQLite-backed storage for reports.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Get returns the report of deviceID on date.
func (s *Store) Get(ctx context.Context, deviceID int64, date string) (*Report, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, device_id, report_date, html_content, chat_count, generation_status, created_at, updated_at
		FROM ai_reports WHERE device_id = ? AND report_date = ?
	`, deviceID, date)

	var (
		r                    Report
		createdAt, updatedAt string
	)
	err := row.Scan(&r.ID, &r.DeviceID, &r.ReportDate, &r.HTMLContent, &r.ChatCount, &r.GenerationStatus, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	r.CreatedAt = database.ParseTime(createdAt)
	r.UpdatedAt = database.ParseTime(updatedAt)
	return &r, nil
}

// Save inserts the report or replaces the one already stored for the same
// device and date, and returns its ID.
func (s *Store) Save(ctx context.Context, r Report, now time.Time) (int64, error) {
	ts := database.FormatTime(now)
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO ai_reports (device_id, report_date, html_content, chat_count, generation_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (device_id, report_date) DO UPDATE SET
			html_content = excluded.html_content,
			chat_count = excluded.chat_count,
			generation_status = excluded.generation_status,
			updated_at = excluded.updated_at
		RETURNING id
	`, r.DeviceID, r.ReportDate, r.HTMLContent, r.ChatCount, r.GenerationStatus, ts, ts).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to save report: %w", err)
	}
	return id, nil
}

// List returns report summaries without HTML, newest date first. deviceID 0
// lists every device.
func (s *Store) List(ctx context.Context, deviceID int64, limit int) ([]Report, error) {
	q := `SELECT id, device_id, report_date, chat_count, generation_status, created_at, updated_at FROM ai_reports`
	args := []any{}
	if deviceID > 0 {
		q += ` WHERE device_id = ?`
		args = append(args, deviceID)
	}
	q += ` ORDER BY report_date DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	reports := []Report{}
	for rows.Next() {
		var (
			r                    Report
			createdAt, updatedAt string
		)
		if err := rows.Scan(&r.ID, &r.DeviceID, &r.ReportDate, &r.ChatCount, &r.GenerationStatus, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		r.CreatedAt = database.ParseTime(createdAt)
		r.UpdatedAt = database.ParseTime(updatedAt)
		reports = append(reports, r)
	}
	return reports, rows.Err()
}
