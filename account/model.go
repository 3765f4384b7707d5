package account

import (
	"strings"
	"time"
)

// Identity carries the externally owned identity fields mirrored onto the
// account record at login.
type Identity struct {
	AccountID   string   `json:"account_id"`
	DisplayName string   `json:"display_name"`
	Roles       []string `json:"roles,omitempty"`
}

// DeviceSnapshot is the coarse device fingerprint captured when a session is
// created. It is informational only and never used for enforcement.
type DeviceSnapshot struct {
	Platform  string `json:"platform,omitempty"`
	Browser   string `json:"browser,omitempty"`
	CreatedAt int64  `json:"created_at,omitempty"`
}

// Record is the single shared mutable record the subsystem owns per account.
//
// SessionID, Token and the device snapshot form the session dimension; TabID
// and TabRegisteredAt form the tab dimension. Either dimension may be empty.
type Record struct {
	Identity

	SessionID        string         `json:"session_id,omitempty"`
	Token            string         `json:"token,omitempty"`
	SessionCreatedAt int64          `json:"session_created_at,omitempty"`
	Device           DeviceSnapshot `json:"device,omitzero"`

	TabID           string `json:"tab_id,omitempty"`
	TabRegisteredAt int64  `json:"tab_registered_at,omitempty"`

	LastActivityAt int64 `json:"last_activity_at,omitempty"`
}

// HasSession reports whether the session pointer is set.
func (r *Record) HasSession() bool {
	return r != nil && r.SessionID != ""
}

// SessionAge returns the age of the current session at the given instant.
func (r *Record) SessionAge(now time.Time) time.Duration {
	if !r.HasSession() || r.SessionCreatedAt == 0 {
		return 0
	}
	return now.Sub(time.Unix(r.SessionCreatedAt, 0))
}

// Event is the payload published on an account's watch channel after every
// record mutation. Absent marks a deleted account.
type Event struct {
	Absent bool    `json:"absent,omitempty"`
	Record *Record `json:"record,omitempty"`
}

// SnapshotDevice derives a [DeviceSnapshot] from raw client hints. Browser
// detection is deliberately coarse; the snapshot is display metadata, not a
// binding key.
func SnapshotDevice(platform, userAgent string, now time.Time) DeviceSnapshot {
	return DeviceSnapshot{
		Platform:  platform,
		Browser:   browserName(userAgent),
		CreatedAt: now.Unix(),
	}
}

func browserName(userAgent string) string {
	ua := strings.ToLower(userAgent)
	switch {
	case ua == "":
		return ""
	case strings.Contains(ua, "edg/"):
		return "edge"
	case strings.Contains(ua, "opr/"), strings.Contains(ua, "opera"):
		return "opera"
	case strings.Contains(ua, "firefox/"):
		return "firefox"
	case strings.Contains(ua, "chrome/"):
		return "chrome"
	case strings.Contains(ua, "safari/"):
		return "safari"
	default:
		return "other"
	}
}
