// Package device keeps the registry of companion devices and their binding
// to user accounts.
package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/notexe/companion/internal/database"
)

// Store provides SQLite-backed storage for devices and user bindings.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const deviceColumns = `id, mac_address, device_name, owner_id, is_online, last_online_at, created_at`

// Get returns a device by ID.
func (s *Store) Get(ctx context.Context, id int64) (*Device, error) {
	return s.getBy(ctx, "id = ?", id)
}

// GetByMAC returns a device by MAC address in any accepted notation.
func (s *Store) GetByMAC(ctx context.Context, mac string) (*Device, error) {
	normalized, err := NormalizeMAC(mac)
	if err != nil {
		return nil, err
	}
	return s.getBy(ctx, "mac_address = ?", normalized)
}

func (s *Store) getBy(ctx context.Context, cond string, arg any) (*Device, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+deviceColumns+` FROM devices WHERE `+cond, arg)
	d, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("failed to get device: %w", err)
	}
	return d, nil
}

// Add binds a new device to userID. A MAC address or name that is already
// registered is not rebound; the existing device is returned instead.
func (s *Store) Add(ctx context.Context, userID int64, name, mac string, now time.Time) (*AddResult, error) {
	name = strings.TrimSpace(name)
	mac = strings.TrimSpace(mac)
	if name == "" || mac == "" {
		return nil, ErrNameRequired
	}

	normalized, err := NormalizeMAC(mac)
	if err != nil {
		return nil, err
	}

	if existing, err := s.getBy(ctx, "mac_address = ?", normalized); err == nil {
		return &AddResult{
			Device:  *existing,
			IsOwned: ownedBy(existing, userID),
			Message: fmt.Sprintf("MAC address already registered (device name: %s)", existing.Name),
		}, nil
	} else if !errors.Is(err, ErrDeviceNotFound) {
		return nil, err
	}

	if existing, err := s.getBy(ctx, "device_name = ?", name); err == nil {
		return &AddResult{
			Device:  *existing,
			IsOwned: ownedBy(existing, userID),
			Message: fmt.Sprintf("device name already registered (MAC address: %s)", existing.MACAddress),
		}, nil
	} else if !errors.Is(err, ErrDeviceNotFound) {
		return nil, err
	}

	ts := database.FormatTime(now)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO devices (mac_address, device_name, owner_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, normalized, name, userID, ts, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to insert device: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get inserted ID: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO user_devices (user_id, device_id, device_name, created_at)
		VALUES (?, ?, ?, ?)
	`, userID, id, name, ts); err != nil {
		return nil, fmt.Errorf("failed to link device: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit device: %w", err)
	}

	owner := userID
	return &AddResult{
		Device: Device{
			ID:         id,
			MACAddress: normalized,
			Name:       name,
			OwnerID:    &owner,
			CreatedAt:  database.ParseTime(ts),
		},
		IsOwned: true,
		Created: true,
		Message: "device added",
	}, nil
}

func ownedBy(d *Device, userID int64) bool {
	return d.OwnerID != nil && *d.OwnerID == userID
}

// Unbind deletes a device owned by userID together with its links and
// reminders. It returns the deleted device's name.
func (s *Store) Unbind(ctx context.Context, userID, deviceID int64) (string, error) {
	d, err := s.Get(ctx, deviceID)
	if err != nil {
		return "", err
	}
	if !ownedBy(d, userID) {
		return "", ErrNotOwner
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM user_devices WHERE device_id = ?`,
		`DELETE FROM reminders WHERE device_id = ?`,
		`DELETE FROM devices WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, deviceID); err != nil {
			return "", fmt.Errorf("failed to unbind device: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit unbind: %w", err)
	}
	return d.Name, nil
}

// ListOwned returns the devices owned by userID.
func (s *Store) ListOwned(ctx context.Context, userID int64) ([]Owned, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.mac_address, COALESCE(d.device_name, ''), COALESCE(ud.is_primary, 0)
		FROM devices d
		LEFT JOIN user_devices ud ON d.id = ud.device_id AND ud.user_id = ?
		WHERE d.owner_id = ?
		ORDER BY d.id
	`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	defer rows.Close()

	devices := []Owned{}
	for rows.Next() {
		o := Owned{IsOwned: true}
		if err := rows.Scan(&o.ID, &o.MACAddress, &o.Name, &o.IsPrimary); err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, o)
	}
	return devices, rows.Err()
}

// SetPrimary makes deviceID the user's only primary device.
func (s *Store) SetPrimary(ctx context.Context, userID, deviceID int64) error {
	var linkID int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM user_devices WHERE user_id = ? AND device_id = ?`, userID, deviceID).Scan(&linkID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotLinked
		}
		return fmt.Errorf("failed to look up device link: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE user_devices SET is_primary = 0 WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to clear primary device: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE user_devices SET is_primary = 1 WHERE id = ?`, linkID); err != nil {
		return fmt.Errorf("failed to set primary device: %w", err)
	}
	return tx.Commit()
}

// ListAll returns every device with its number of active reminders, most
// recently online first.
func (s *Store) ListAll(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.mac_address, COALESCE(d.device_name, ''), d.is_online, d.last_online_at,
		       (SELECT COUNT(*) FROM reminders r WHERE r.device_id = d.id AND r.status = 'active')
		FROM devices d
		ORDER BY d.last_online_at DESC, d.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	defer rows.Close()

	devices := []Summary{}
	for rows.Next() {
		var (
			sm         Summary
			lastOnline sql.NullString
		)
		if err := rows.Scan(&sm.ID, &sm.MACAddress, &sm.Name, &sm.IsOnline, &lastOnline, &sm.ReminderCount); err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		if sm.Name == "" {
			sm.Name = fmt.Sprintf("device %d", sm.ID)
		}
		sm.LastOnlineAt = database.NullTime(lastOnline)
		devices = append(devices, sm)
	}
	return devices, rows.Err()
}

// Touch records that the device was just seen.
func (s *Store) Touch(ctx context.Context, id int64, now time.Time) error {
	ts := database.FormatTime(now)
	_, err := s.db.ExecContext(ctx, `UPDATE devices SET last_online_at = ?, is_online = 1, updated_at = ? WHERE id = ?`, ts, ts, id)
	if err != nil {
		return fmt.Errorf("failed to touch device: %w", err)
	}
	return nil
}

// ListActive returns online devices seen at or after since.
func (s *Store) ListActive(ctx context.Context, since time.Time) ([]Device, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+deviceColumns+` FROM devices
		WHERE is_online = 1 AND last_online_at >= ?
		ORDER BY id
	`, database.FormatTime(since))
	if err != nil {
		return nil, fmt.Errorf("failed to list active devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, *d)
	}
	return devices, rows.Err()
}

// Count returns the number of registered devices.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM devices`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count devices: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (*Device, error) {
	var (
		d          Device
		name       sql.NullString
		ownerID    sql.NullInt64
		lastOnline sql.NullString
		createdAt  string
	)
	if err := row.Scan(&d.ID, &d.MACAddress, &name, &ownerID, &d.IsOnline, &lastOnline, &createdAt); err != nil {
		return nil, err
	}

	d.Name = name.String
	if ownerID.Valid {
		id := ownerID.Int64
		d.OwnerID = &id
	}
	d.LastOnlineAt = database.NullTime(lastOnline)
	d.CreatedAt = database.ParseTime(createdAt)
	return &d, nil
}
