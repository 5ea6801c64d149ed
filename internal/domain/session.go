package domain

import (
	"encoding/json"
	"time"
)

// SessionMaxAge is how long a session stays usable after its last validation.
const SessionMaxAge = 30 * 24 * time.Hour

// Credentials are the account secrets used for a full login.
type Credentials struct {
	Username string
	Password string
}

// DeviceFingerprint is the client identity presented to the platform. It
// must stay stable for an account across restarts.
type DeviceFingerprint struct {
	DeviceID      string `json:"device_id"`
	PhoneID       string `json:"phone_id"`
	UUID          string `json:"uuid"`
	AdvertisingID string `json:"advertising_id"`
	Model         string `json:"model"`
	UserAgent     string `json:"user_agent"`
}

// Session is the persisted authenticated state for one account.
type Session struct {
	Account         string            `json:"account"`
	State           json.RawMessage   `json:"state"`
	Device          DeviceFingerprint `json:"device"`
	CreatedAt       time.Time         `json:"created_at"`
	LastValidatedAt time.Time         `json:"last_validated_at"`
}

// Expired reports whether the session is too old to reuse.
func (s Session) Expired(now time.Time) bool {
	if s.LastValidatedAt.IsZero() {
		return true
	}
	return now.Sub(s.LastValidatedAt) > SessionMaxAge
}
