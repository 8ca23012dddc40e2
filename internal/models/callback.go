package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CallbackStatus is the lifecycle state of a callback request.
type CallbackStatus string

const (
	CallbackPending  CallbackStatus = "pending"
	CallbackAccepted CallbackStatus = "accepted"
	CallbackDeclined CallbackStatus = "declined"
	CallbackExpired  CallbackStatus = "expired"
)

// CallSnapshot preserves display details of the original call so the target
// can decide on the request after the session itself is gone.
type CallSnapshot struct {
	SessionID string    `json:"session_id"`
	CalledAt  time.Time `json:"called_at"`
	Country   string    `json:"country,omitempty"`
}

// CallbackRequest is a deferred, consent-gated offer to re-pair two
// previously paired participants. Resolved by the target's accept/decline
// or by timeout; acceptance pairs the two directly, bypassing the queue.
type CallbackRequest struct {
	ID          string         `gorm:"primaryKey" json:"id"`
	RequesterID string         `gorm:"index" json:"requester_id"`
	TargetID    string         `gorm:"index" json:"target_id"`
	Status      CallbackStatus `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	ResolvedAt  time.Time      `json:"resolved_at,omitempty"`

	// Snapshot of the original call, flattened for persistence.
	SnapshotSessionID string    `json:"-"`
	SnapshotCalledAt  time.Time `json:"-"`
	SnapshotCountry   string    `json:"-"`
}

// Snapshot reassembles the original-call snapshot.
func (r *CallbackRequest) Snapshot() CallSnapshot {
	return CallSnapshot{
		SessionID: r.SnapshotSessionID,
		CalledAt:  r.SnapshotCalledAt,
		Country:   r.SnapshotCountry,
	}
}

// BeforeCreate generates the request id if the caller did not set one.
func (r *CallbackRequest) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return
}
