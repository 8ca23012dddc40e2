package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Ban is an admin-issued suspension (PostgreSQL). Banned participants are
// refused at the websocket upgrade. The active-ban flag is mirrored into
// Redis for the fast path; the row is the source of truth.
type Ban struct {
	ID     string `gorm:"primaryKey"`
	UserID string `gorm:"index"`
	// Reasons collects the report reasons that led to the ban.
	Reasons   pq.StringArray `gorm:"type:text[]"`
	CreatedAt time.Time
	// ExpiresAt zero means permanent.
	ExpiresAt time.Time
}

// BeforeCreate generates the ban id if the caller did not set one.
func (b *Ban) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return
}

// Active reports whether the ban is still in force at t.
func (b *Ban) Active(t time.Time) bool {
	return b.ExpiresAt.IsZero() || t.Before(b.ExpiresAt)
}
