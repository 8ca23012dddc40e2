package models

import "time"

// Session end reasons, carried in the call_ended event.
const (
	EndReasonHangup     = "hangup"
	EndReasonDisconnect = "disconnect"
	EndReasonBlocked    = "blocked"
)

// CallSession represents an active 1-on-1 pairing between two participants.
// It lives in memory for its duration; closed sessions are persisted as
// CallRecord rows for history and moderation context.
type CallSession struct {
	// ID is the unique session identifier (UUID).
	ID string
	// UserAID and UserBID are the two paired participants.
	UserAID string
	UserBID string
	// StartedAt is when the pairing was created.
	StartedAt time.Time
	// EndedAt is set once the session is torn down.
	EndedAt time.Time
	// IsActive is false once the session has ended. Teardown is idempotent.
	IsActive bool
}

// Peer returns the other member of the session, or "" if id is not a member.
func (s *CallSession) Peer(id string) string {
	switch id {
	case s.UserAID:
		return s.UserBID
	case s.UserBID:
		return s.UserAID
	}
	return ""
}

// Has reports whether id is one of the two session members.
func (s *CallSession) Has(id string) bool {
	return id == s.UserAID || id == s.UserBID
}

// CallRecord is the persisted trace of a call session (PostgreSQL).
// It mirrors how closed chat rooms are kept for history: the live state is
// in memory, the row is the durable audit trail.
type CallRecord struct {
	SessionID string `gorm:"primaryKey"`
	UserAID   string
	UserBID   string
	IsActive  bool
	StartedAt time.Time
	EndedAt   time.Time
	EndReason string
}
