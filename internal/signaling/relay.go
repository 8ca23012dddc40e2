// Package signaling forwards opaque WebRTC handshake messages between the
// two members of an active call session. The relay never inspects payloads
// and keeps no message history; ordering within one sender is preserved by
// the per-client send queue it forwards into.
package signaling

import (
	"errors"

	"callgogo/backend/internal/models"
)

var (
	// ErrNotInSession rejects signaling from a participant with no active session.
	ErrNotInSession = errors.New("signaling: sender not in an active session")
	// ErrWrongPartner rejects a target id that is not the session peer.
	ErrWrongPartner = errors.New("signaling: target is not the session partner")
	// ErrBadSignal rejects a message without a known signal tag.
	ErrBadSignal = errors.New("signaling: unknown signal type")
)

// SessionSource resolves the active session a participant belongs to.
// Implemented by the session manager.
type SessionSource interface {
	SessionFor(participantID string) (*models.CallSession, bool)
}

// Sender delivers an event to a participant's transport.
// Implemented by the hub.
type Sender interface {
	Notify(userID string, env models.Envelope)
}

// Relay validates session membership and forwards signals verbatim.
type Relay struct {
	Sessions SessionSource
	Out      Sender
}

// NewRelay creates a relay over the given session source and sender.
func NewRelay(sessions SessionSource, out Sender) *Relay {
	return &Relay{Sessions: sessions, Out: out}
}

// Forward relays msg to its target. The sender must be in an active session
// and the target must be the other member; the payload passes through
// untouched.
func (r *Relay) Forward(msg models.SignalMessage) error {
	if !msg.Valid() {
		return ErrBadSignal
	}
	sess, ok := r.Sessions.SessionFor(msg.From)
	if !ok {
		return ErrNotInSession
	}
	if sess.Peer(msg.From) != msg.To {
		return ErrWrongPartner
	}
	r.Out.Notify(msg.To, models.NewEnvelope(models.EvSignal, msg))
	return nil
}
