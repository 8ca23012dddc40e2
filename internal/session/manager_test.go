package session_test

import (
	"encoding/json"
	"sync"
	"testing"

	"callgogo/backend/internal/game"
	"callgogo/backend/internal/models"
	"callgogo/backend/internal/registry"
	"callgogo/backend/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder captures every Notify call in order.
type recorder struct {
	mu     sync.Mutex
	events []recorded
}

type recorded struct {
	to  string
	env models.Envelope
}

func (r *recorder) Notify(userID string, env models.Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recorded{to: userID, env: env})
}

func (r *recorder) typesFor(userID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		if e.to == userID {
			out = append(out, e.env.Type)
		}
	}
	return out
}

func newManager(t *testing.T) (*session.Manager, *registry.Service, *recorder) {
	t.Helper()
	reg := registry.NewService()
	m := session.NewManager(reg, nil)
	rec := &recorder{}
	m.SetNotifier(rec)
	return m, reg, rec
}

func TestCreateSessionAnnouncesBothSides(t *testing.T) {
	m, reg, rec := newManager(t)
	reg.Add("a", 25, "UA")
	reg.Add("b", 30, "PL")

	sess, err := m.CreateSession("a", "b")
	require.NoError(t, err)
	assert.True(t, sess.IsActive)
	assert.True(t, sess.Has("a"))
	assert.True(t, sess.Has("b"))
	assert.Equal(t, "b", sess.Peer("a"))
	assert.Equal(t, 1, m.ActiveCount())

	require.Len(t, rec.events, 2)
	for _, e := range rec.events {
		assert.Equal(t, models.EvPaired, e.env.Type)
	}
	// Each side receives the partner's snapshot, not its own.
	var p models.PairedPayload
	require.NoError(t, json.Unmarshal(rec.events[0].env.Payload, &p))
	assert.Equal(t, sess.ID, p.SessionID)
	assert.Equal(t, "b", p.Partner.ID)
	assert.Equal(t, 30, p.Partner.Age)
	assert.Equal(t, "PL", p.Partner.Country)
}

func TestCreateSessionRejectsBusyAndSelf(t *testing.T) {
	m, reg, _ := newManager(t)
	reg.Add("a", 25, "UA")
	reg.Add("b", 25, "UA")
	reg.Add("c", 25, "UA")

	_, err := m.CreateSession("a", "a")
	assert.ErrorIs(t, err, session.ErrParticipantBusy)

	_, err = m.CreateSession("a", "b")
	require.NoError(t, err)

	_, err = m.CreateSession("a", "c")
	assert.ErrorIs(t, err, session.ErrParticipantBusy)
	// Failed pairing leaves the third participant untouched.
	state, _ := reg.State("c")
	assert.Equal(t, models.StateIdle, state)
}

func TestCreateSessionUnwindsOnPartnerFailure(t *testing.T) {
	m, reg, _ := newManager(t)
	reg.Add("a", 25, "UA")

	_, err := m.CreateSession("a", "ghost")
	assert.ErrorIs(t, err, registry.ErrUnknownParticipant)

	state, _ := reg.State("a")
	assert.Equal(t, models.StateIdle, state)
	_, ok := m.SessionFor("a")
	assert.False(t, ok)
}

func TestEndSessionResetsAndNotifies(t *testing.T) {
	m, reg, rec := newManager(t)
	reg.Add("a", 25, "UA")
	reg.Add("b", 25, "UA")
	sess, err := m.CreateSession("a", "b")
	require.NoError(t, err)

	require.NoError(t, m.EndSession(sess.ID, models.EndReasonHangup))

	for _, id := range []string{"a", "b"} {
		state, _ := reg.State(id)
		assert.Equal(t, models.StateIdle, state)
		_, ok := m.SessionFor(id)
		assert.False(t, ok)
	}
	assert.Equal(t, 0, m.ActiveCount())

	types := rec.typesFor("a")
	require.Len(t, types, 2)
	assert.Equal(t, models.EvPaired, types[0])
	assert.Equal(t, models.EvCallEnded, types[1])

	last := rec.events[len(rec.events)-1]
	var p models.CallEndedPayload
	require.NoError(t, json.Unmarshal(last.env.Payload, &p))
	assert.Equal(t, sess.ID, p.SessionID)
	assert.Equal(t, models.EndReasonHangup, p.Reason)
}

func TestEndSessionIsIdempotent(t *testing.T) {
	m, reg, rec := newManager(t)
	reg.Add("a", 25, "UA")
	reg.Add("b", 25, "UA")
	sess, _ := m.CreateSession("a", "b")

	require.NoError(t, m.EndSession(sess.ID, models.EndReasonHangup))
	before := len(rec.events)

	// Concurrent teardown paths may all land here; later calls do nothing.
	require.NoError(t, m.EndSession(sess.ID, models.EndReasonDisconnect))
	assert.Len(t, rec.events, before)

	assert.ErrorIs(t, m.EndSession("never-existed", "x"), session.ErrUnknownSession)
}

// TestEndSessionQuitsGameFirst verifies that an unfinished game is quit and
// announced before the call_ended event.
func TestEndSessionQuitsGameFirst(t *testing.T) {
	m, reg, rec := newManager(t)
	games := game.NewEngine()
	m.SetGameEngine(games)
	reg.Add("a", 25, "UA")
	reg.Add("b", 25, "UA")
	sess, err := m.CreateSession("a", "b")
	require.NoError(t, err)

	inv, err := games.Invite(sess.ID, "a", "b")
	require.NoError(t, err)
	g, _, err := games.Respond(inv.ID, "b", true)
	require.NoError(t, err)
	_, err = games.SetWord(g.ID, "a", "ocean", "")
	require.NoError(t, err)

	require.NoError(t, m.EndSession(sess.ID, models.EndReasonDisconnect))

	for _, id := range []string{"a", "b"} {
		types := rec.typesFor(id)
		require.Len(t, types, 3)
		assert.Equal(t, models.EvGameEnded, types[1])
		assert.Equal(t, models.EvCallEnded, types[2])
	}

	// The engine is clean afterwards.
	_, active := games.GameForSession(sess.ID)
	assert.False(t, active)
}

func TestEndSessionFor(t *testing.T) {
	m, reg, _ := newManager(t)
	reg.Add("a", 25, "UA")
	reg.Add("b", 25, "UA")
	sess, _ := m.CreateSession("a", "b")

	id, ok := m.EndSessionFor("b", models.EndReasonDisconnect)
	assert.True(t, ok)
	assert.Equal(t, sess.ID, id)

	_, ok = m.EndSessionFor("b", models.EndReasonDisconnect)
	assert.False(t, ok)
}

func TestEndSessionBetween(t *testing.T) {
	m, reg, _ := newManager(t)
	reg.Add("a", 25, "UA")
	reg.Add("b", 25, "UA")
	reg.Add("c", 25, "UA")
	reg.Add("d", 25, "UA")
	_, err := m.CreateSession("a", "b")
	require.NoError(t, err)
	_, err = m.CreateSession("c", "d")
	require.NoError(t, err)

	// Not partners: no session is touched.
	assert.False(t, m.EndSessionBetween("a", "c", models.EndReasonBlocked))
	assert.Equal(t, 2, m.ActiveCount())

	assert.True(t, m.EndSessionBetween("a", "b", models.EndReasonBlocked))
	assert.Equal(t, 1, m.ActiveCount())
}

func TestGetSessionSurvivesTeardown(t *testing.T) {
	m, reg, _ := newManager(t)
	reg.Add("a", 25, "UA")
	reg.Add("b", 25, "UA")
	sess, _ := m.CreateSession("a", "b")
	require.NoError(t, m.EndSession(sess.ID, models.EndReasonHangup))

	got, ok := m.GetSession(sess.ID)
	require.True(t, ok)
	assert.False(t, got.IsActive)
	assert.False(t, got.EndedAt.IsZero())
}
