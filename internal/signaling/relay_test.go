package signaling_test

import (
	"encoding/json"
	"testing"

	"callgogo/backend/internal/models"
	"callgogo/backend/internal/registry"
	"callgogo/backend/internal/session"
	"callgogo/backend/internal/signaling"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sink records forwarded envelopes per recipient.
type sink struct {
	events []struct {
		to  string
		env models.Envelope
	}
}

func (s *sink) Notify(userID string, env models.Envelope) {
	s.events = append(s.events, struct {
		to  string
		env models.Envelope
	}{userID, env})
}

func newRelay(t *testing.T) (*signaling.Relay, *session.Manager, *sink) {
	t.Helper()
	reg := registry.NewService()
	reg.Add("a", 25, "UA")
	reg.Add("b", 25, "UA")
	reg.Add("c", 25, "UA")
	sessions := session.NewManager(reg, nil)
	out := &sink{}
	return signaling.NewRelay(sessions, out), sessions, out
}

func TestForwardDeliversVerbatim(t *testing.T) {
	relay, sessions, out := newRelay(t)
	_, err := sessions.CreateSession("a", "b")
	require.NoError(t, err)

	sdp := json.RawMessage(`{"sdp":"v=0 o=- 42","type":"offer"}`)
	msg := models.SignalMessage{Type: models.SignalOffer, From: "a", To: "b", Payload: sdp}
	require.NoError(t, relay.Forward(msg))

	require.Len(t, out.events, 1)
	assert.Equal(t, "b", out.events[0].to)
	assert.Equal(t, models.EvSignal, out.events[0].env.Type)

	var got models.SignalMessage
	require.NoError(t, json.Unmarshal(out.events[0].env.Payload, &got))
	assert.Equal(t, models.SignalOffer, got.Type)
	assert.Equal(t, "a", got.From)
	assert.JSONEq(t, string(sdp), string(got.Payload))
}

func TestForwardBothDirections(t *testing.T) {
	relay, sessions, out := newRelay(t)
	_, err := sessions.CreateSession("a", "b")
	require.NoError(t, err)

	require.NoError(t, relay.Forward(models.SignalMessage{Type: models.SignalOffer, From: "a", To: "b"}))
	require.NoError(t, relay.Forward(models.SignalMessage{Type: models.SignalAnswer, From: "b", To: "a"}))
	require.NoError(t, relay.Forward(models.SignalMessage{Type: models.SignalCandidate, From: "a", To: "b"}))

	require.Len(t, out.events, 3)
	assert.Equal(t, "b", out.events[0].to)
	assert.Equal(t, "a", out.events[1].to)
	assert.Equal(t, "b", out.events[2].to)
}

func TestForwardRejectsOutsiders(t *testing.T) {
	relay, sessions, out := newRelay(t)
	_, err := sessions.CreateSession("a", "b")
	require.NoError(t, err)

	// No session at all.
	err = relay.Forward(models.SignalMessage{Type: models.SignalOffer, From: "c", To: "a"})
	assert.ErrorIs(t, err, signaling.ErrNotInSession)

	// In a session, but the target is someone else.
	err = relay.Forward(models.SignalMessage{Type: models.SignalOffer, From: "a", To: "c"})
	assert.ErrorIs(t, err, signaling.ErrWrongPartner)

	// Self-addressed.
	err = relay.Forward(models.SignalMessage{Type: models.SignalOffer, From: "a", To: "a"})
	assert.ErrorIs(t, err, signaling.ErrWrongPartner)

	assert.Empty(t, out.events)
}

func TestForwardRejectsAfterTeardown(t *testing.T) {
	relay, sessions, out := newRelay(t)
	sess, err := sessions.CreateSession("a", "b")
	require.NoError(t, err)
	require.NoError(t, sessions.EndSession(sess.ID, models.EndReasonHangup))

	err = relay.Forward(models.SignalMessage{Type: models.SignalCandidate, From: "a", To: "b"})
	assert.ErrorIs(t, err, signaling.ErrNotInSession)
	assert.Empty(t, out.events)
}

func TestForwardRejectsUnknownSignalType(t *testing.T) {
	relay, sessions, out := newRelay(t)
	_, err := sessions.CreateSession("a", "b")
	require.NoError(t, err)

	err = relay.Forward(models.SignalMessage{Type: "renegotiate", From: "a", To: "b"})
	assert.ErrorIs(t, err, signaling.ErrBadSignal)
	assert.Empty(t, out.events)
}
