package device

import (
	"errors"
	"time"
)

var (
	ErrDeviceNotFound   = errors.New("device not found")
	ErrInvalidMAC       = errors.New("MAC address must look like AA:BB:CC:DD:EE:FF")
	ErrNameRequired     = errors.New("device name and MAC address are required")
	ErrDeviceIDRequired = errors.New("device_id is required")
	ErrNotOwner         = errors.New("device does not belong to this user")
	ErrNotLinked        = errors.New("device is not linked to this user")
)

// Device is a registered companion device.
type Device struct {
	ID           int64      `json:"id"`
	MACAddress   string     `json:"mac_address"`
	Name         string     `json:"device_name"`
	OwnerID      *int64     `json:"owner_id,omitempty"`
	IsOnline     bool       `json:"is_online"`
	LastOnlineAt *time.Time `json:"last_online_at"`
	CreatedAt    time.Time  `json:"created_at"`
}

// AddResult describes the outcome of binding a device to a user. When the
// MAC or name is already registered Created is false and Device is the
// existing record.
type AddResult struct {
	Device  Device `json:"device"`
	IsOwned bool   `json:"is_owned"`
	Created bool   `json:"created"`
	Message string `json:"message"`
}

// Owned is a device as listed for its owner.
type Owned struct {
	ID         int64  `json:"id"`
	MACAddress string `json:"mac_address"`
	Name       string `json:"device_name"`
	IsPrimary  bool   `json:"is_primary"`
	IsOwned    bool   `json:"is_owned"`
}

// Summary is a device row for the management overview.
type Summary struct {
	ID            int64      `json:"id"`
	MACAddress    string     `json:"mac_address"`
	Name          string     `json:"device_name"`
	IsOnline      bool       `json:"is_online"`
	LastOnlineAt  *time.Time `json:"last_online_at"`
	ReminderCount int        `json:"reminder_count"`
}
