package domain

import "time"

type Status string

const (
	StatusActive Status = "ACTIVE"
	StatusClosed Status = "CLOSED"
)

const (
	MinTTLMinutes     = 15
	MaxTTLMinutes     = 480
	DefaultTTLMinutes = 120
)

// Session is a time-boxed ordering context opened by scanning a space's QR
// code. Sessions are never deleted; a closed or expired one is superseded by
// opening a new session.
type Session struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	SpaceID     string    `json:"space_id"`
	UserID      *string   `json:"user_id,omitempty"`
	GuestName   *string   `json:"guest_name,omitempty"`
	ChairNumber *int      `json:"chair_number,omitempty"`
	Status      Status    `json:"status"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Usable reports whether orders may still be created against the session.
func (s Session) Usable(now time.Time) bool {
	return s.Status == StatusActive && s.ExpiresAt.After(now)
}

// OwnedBy reports whether the session belongs to the given user. Sessions
// without an owner may be closed by anyone holding the session id.
func (s Session) OwnedBy(userID string) bool {
	return s.UserID == nil || *s.UserID == userID
}

// Routing is the minimal field set cached for fast lookups on the order path.
type Routing struct {
	SessionID string  `json:"session_id"`
	TenantID  string  `json:"tenant_id"`
	SpaceID   string  `json:"space_id"`
	UserID    *string `json:"user_id,omitempty"`
}

// ClampTTL bounds the requested session lifetime; zero selects the default.
func ClampTTL(minutes int) int {
	switch {
	case minutes == 0:
		return DefaultTTLMinutes
	case minutes < MinTTLMinutes:
		return MinTTLMinutes
	case minutes > MaxTTLMinutes:
		return MaxTTLMinutes
	}
	return minutes
}
