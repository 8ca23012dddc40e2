package models

import "encoding/json"

// SignalType tags a WebRTC signaling message. The payload is opaque to the
// relay; only the two endpoints' media layer interprets it.
type SignalType string

const (
	SignalOffer     SignalType = "offer"
	SignalAnswer    SignalType = "answer"
	SignalCandidate SignalType = "ice-candidate"
)

// SignalMessage is a handshake or connectivity message relayed verbatim
// between the two members of an active call session.
type SignalMessage struct {
	Type SignalType `json:"type"`
	From string     `json:"from"`
	To   string     `json:"to"`
	// Payload carries the SDP or ICE candidate as-is.
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Valid reports whether the message carries a known signal tag.
func (m SignalMessage) Valid() bool {
	switch m.Type {
	case SignalOffer, SignalAnswer, SignalCandidate:
		return true
	}
	return false
}
