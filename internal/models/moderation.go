package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Moderation record kinds.
const (
	ModerationBlock  = "block"
	ModerationReport = "report"
)

// ModerationRecord is an append-only block/report fact (PostgreSQL).
// A block excludes all future pairing between the two ids regardless of
// direction; a report carries a reason for admin review. Records persist
// across sessions and process restarts.
type ModerationRecord struct {
	ID string `gorm:"primaryKey"`
	// Kind is "block" or "report".
	Kind string `gorm:"index"`
	// ActorID issued the action, TargetID received it.
	ActorID  string `gorm:"index"`
	TargetID string `gorm:"index"`
	// SessionID is the originating call session, if any.
	SessionID string
	// Reason and Description are set on reports only.
	Reason      string
	Description string
	// Severity groups report reasons for admin triage ("Low", "Medium", "Critical").
	Severity  string
	Status    string // "new", "confirmed", "dismissed"
	CreatedAt time.Time
}

// BeforeCreate generates the record id if the caller did not set one.
func (r *ModerationRecord) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return
}
