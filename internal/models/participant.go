package models

import "time"

// PairingState describes where a participant currently is in the
// matchmaking/call lifecycle.
type PairingState string

const (
	StateIdle   PairingState = "idle"
	StateQueued PairingState = "queued"
	StatePaired PairingState = "paired"
	StateInCall PairingState = "in_call"
)

// Participant represents one connected anonymous user.
// Identity is an ephemeral connection-scoped UUID; nothing here survives
// a disconnect.
type Participant struct {
	// ID is the anonymous connection identifier (UUID).
	ID string
	// Age is derived from the birth year the client submitted. Zero means unknown.
	Age int
	// Country is the two-letter country code derived from the network origin.
	// Empty means unknown.
	Country string
	// State is the current pairing state, owned by the identity registry.
	State PairingState
	// ConnectedAt is when the participant registered.
	ConnectedAt time.Time
}

// PartnerInfo is the attribute snapshot shared with the other side of a
// pairing. It deliberately excludes the connection id lifecycle details.
type PartnerInfo struct {
	ID      string `json:"id"`
	Age     int    `json:"age,omitempty"`
	Country string `json:"country,omitempty"`
}

// Info returns the attribute snapshot for this participant.
func (p *Participant) Info() PartnerInfo {
	return PartnerInfo{ID: p.ID, Age: p.Age, Country: p.Country}
}
