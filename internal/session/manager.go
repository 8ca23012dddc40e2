// Package session owns the authoritative lifecycle of every call session,
// from pairing to teardown. All other components look sessions up here and
// report lifecycle events into it.
package session

import (
	"errors"
	"log"
	"sync"
	"time"

	"callgogo/backend/internal/models"
	"callgogo/backend/internal/registry"

	"github.com/google/uuid"
)

var (
	// ErrNotInSession is returned when an action requires an active session
	// the participant does not have.
	ErrNotInSession = errors.New("session: participant not in an active session")
	// ErrParticipantBusy rejects pairing a participant who is already in a
	// session or otherwise not pairable.
	ErrParticipantBusy = errors.New("session: participant already in a session")
	// ErrUnknownSession is returned for lookups of a session id that never
	// existed or has been torn down.
	ErrUnknownSession = errors.New("session: unknown session")
)

// Notifier pushes server events to a participant's transport.
// Implemented by the hub; delivery to a gone participant is a no-op.
type Notifier interface {
	Notify(userID string, env models.Envelope)
}

// GameQuitter force-terminates whatever game a session holds.
// Implemented by the game engine.
type GameQuitter interface {
	QuitBySession(sessionID string) (*models.GameOutcome, bool)
}

// Store persists the call history trail. May be nil in tests.
type Store interface {
	SaveCallRecord(rec *models.CallRecord) error
	CloseCallRecord(sessionID string, endedAt time.Time, reason string) error
}

// Manager is the call session manager.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*models.CallSession // by session id
	byUser   map[string]string              // participant id -> session id

	Registry *registry.Service
	Store    Store

	notifier Notifier
	games    GameQuitter
}

// NewManager creates a session manager.
func NewManager(reg *registry.Service, store Store) *Manager {
	return &Manager{
		sessions: make(map[string]*models.CallSession),
		byUser:   make(map[string]string),
		Registry: reg,
		Store:    store,
	}
}

// SetNotifier wires the transport-side event sink. Setter injection keeps
// the hub and the manager from depending on each other at construction.
func (m *Manager) SetNotifier(n Notifier) { m.notifier = n }

// SetGameEngine wires the game engine used to quit games on teardown.
func (m *Manager) SetGameEngine(g GameQuitter) { m.games = g }

// CreateSession pairs two participants into a new active call session,
// marks both in-call and announces the pairing to both sides. Used by the
// matchmaking queue and, for callback acceptance, directly (bypassing the
// queue). A participant can be a member of at most one active session.
func (m *Manager) CreateSession(idA, idB string) (*models.CallSession, error) {
	if idA == idB {
		return nil, ErrParticipantBusy
	}

	m.mu.Lock()
	if _, busy := m.byUser[idA]; busy {
		m.mu.Unlock()
		return nil, ErrParticipantBusy
	}
	if _, busy := m.byUser[idB]; busy {
		m.mu.Unlock()
		return nil, ErrParticipantBusy
	}

	if err := m.markInCall(idA); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	if err := m.markInCall(idB); err != nil {
		// Unwind A so a failed pairing leaves no trace.
		if rbErr := m.Registry.SetState(idA, models.StateIdle); rbErr != nil {
			log.Printf("WARNING: rollback of %s failed: %v", idA, rbErr)
		}
		m.mu.Unlock()
		return nil, err
	}

	sess := &models.CallSession{
		ID:        uuid.New().String(),
		UserAID:   idA,
		UserBID:   idB,
		StartedAt: time.Now(),
		IsActive:  true,
	}
	m.sessions[sess.ID] = sess
	m.byUser[idA] = sess.ID
	m.byUser[idB] = sess.ID
	m.mu.Unlock()

	if m.Store != nil {
		if err := m.Store.SaveCallRecord(&models.CallRecord{
			SessionID: sess.ID,
			UserAID:   idA,
			UserBID:   idB,
			IsActive:  true,
			StartedAt: sess.StartedAt,
		}); err != nil {
			log.Printf("WARNING: failed to persist call record %s: %v", sess.ID, err)
		}
	}

	m.announce(idA, idB, sess.ID)
	m.announce(idB, idA, sess.ID)

	log.Printf("Session %s created: %s <-> %s", sess.ID, idA, idB)
	cp := *sess
	return &cp, nil
}

// markInCall drives a participant from idle or paired into in-call.
// Caller holds m.mu.
func (m *Manager) markInCall(id string) error {
	state, ok := m.Registry.State(id)
	if !ok {
		return registry.ErrUnknownParticipant
	}
	switch state {
	case models.StatePaired:
	case models.StateIdle:
		if err := m.Registry.SetState(id, models.StatePaired); err != nil {
			return err
		}
	default:
		return ErrParticipantBusy
	}
	return m.Registry.SetState(id, models.StateInCall)
}

// announce sends the paired event with the partner's attribute snapshot.
func (m *Manager) announce(to, partner, sessionID string) {
	if m.notifier == nil {
		return
	}
	info, _ := m.Registry.Info(partner)
	m.notifier.Notify(to, models.NewEnvelope(models.EvPaired, models.PairedPayload{
		SessionID: sessionID,
		Partner:   info,
	}))
}

// GetSession returns a snapshot of an active or ended session by id.
func (m *Manager) GetSession(sessionID string) (*models.CallSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[sessionID]
	if !ok {
		return nil, false
	}
	cp := *sess
	return &cp, true
}

// SessionFor returns the active session the participant belongs to.
func (m *Manager) SessionFor(participantID string) (*models.CallSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byUser[participantID]
	if !ok {
		return nil, false
	}
	sess := m.sessions[id]
	cp := *sess
	return &cp, true
}

// EndSession tears a session down: quits any unfinished game (reason quit,
// announced before call_ended), returns the participants to idle, notifies
// both sides and closes the history record. Ending an already-ended session
// is a no-op; teardown may be triggered concurrently from hang-up,
// disconnect detection and block actions.
func (m *Manager) EndSession(sessionID, reason string) error {
	m.mu.Lock()
	sess, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return ErrUnknownSession
	}
	if !sess.IsActive {
		m.mu.Unlock()
		return nil
	}
	sess.IsActive = false
	sess.EndedAt = time.Now()
	delete(m.byUser, sess.UserAID)
	delete(m.byUser, sess.UserBID)
	idA, idB := sess.UserAID, sess.UserBID
	endedAt := sess.EndedAt
	m.mu.Unlock()

	// Game teardown precedes the call_ended announcement.
	if m.games != nil {
		if outcome, quit := m.games.QuitBySession(sessionID); quit && m.notifier != nil {
			env := models.NewEnvelope(models.EvGameEnded, outcome)
			m.notifier.Notify(idA, env)
			m.notifier.Notify(idB, env)
		}
	}

	for _, id := range []string{idA, idB} {
		if err := m.Registry.SetState(id, models.StateIdle); err != nil &&
			!errors.Is(err, registry.ErrUnknownParticipant) {
			log.Printf("WARNING: idle reset of %s failed: %v", id, err)
		}
	}

	if m.notifier != nil {
		env := models.NewEnvelope(models.EvCallEnded, models.CallEndedPayload{
			SessionID: sessionID,
			Reason:    reason,
		})
		m.notifier.Notify(idA, env)
		m.notifier.Notify(idB, env)
	}

	if m.Store != nil {
		if err := m.Store.CloseCallRecord(sessionID, endedAt, reason); err != nil {
			log.Printf("WARNING: failed to close call record %s: %v", sessionID, err)
		}
	}

	log.Printf("Session %s ended (%s)", sessionID, reason)
	return nil
}

// EndSessionFor ends the active session the participant is in, if any.
// Used for explicit hang-up and for disconnects.
func (m *Manager) EndSessionFor(participantID, reason string) (string, bool) {
	sess, ok := m.SessionFor(participantID)
	if !ok {
		return "", false
	}
	if err := m.EndSession(sess.ID, reason); err != nil {
		return "", false
	}
	return sess.ID, true
}

// EndSessionBetween ends the active session shared by the two participants,
// if one exists. Driven by moderation block events.
func (m *Manager) EndSessionBetween(idA, idB, reason string) bool {
	sess, ok := m.SessionFor(idA)
	if !ok || !sess.Has(idB) {
		return false
	}
	return m.EndSession(sess.ID, reason) == nil
}

// ActiveCount returns the number of active sessions.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sessions {
		if s.IsActive {
			n++
		}
	}
	return n
}
