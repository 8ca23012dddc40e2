// Package registry owns the ephemeral identity of every connected
// participant. It is the single writer for pairing-state transitions;
// all other components go through its methods.
package registry

import (
	"errors"
	"sync"
	"time"

	"callgogo/backend/internal/models"
)

var (
	// ErrUnknownParticipant is returned for operations on an id that is not
	// (or no longer) registered.
	ErrUnknownParticipant = errors.New("registry: unknown participant")
	// ErrBadTransition is returned for a pairing-state change the lifecycle
	// does not allow.
	ErrBadTransition = errors.New("registry: illegal state transition")
)

// legal pairing-state transitions. idle is both the entry and the
// post-call state; re-entering the queue is an explicit client action.
var transitions = map[models.PairingState][]models.PairingState{
	models.StateIdle:   {models.StateQueued, models.StatePaired},
	models.StateQueued: {models.StateIdle, models.StatePaired},
	models.StatePaired: {models.StateInCall, models.StateIdle},
	models.StateInCall: {models.StateIdle},
}

// Service is the identity registry. A participant exists from websocket
// registration until disconnect; nothing is persisted.
type Service struct {
	mu           sync.RWMutex
	participants map[string]*models.Participant
}

// NewService creates an empty registry.
func NewService() *Service {
	return &Service{participants: make(map[string]*models.Participant)}
}

// Add registers a new participant in state idle. Re-adding an existing id
// replaces the previous entry (a reconnect with the same anon id).
func (s *Service) Add(id string, age int, country string) *models.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &models.Participant{
		ID:          id,
		Age:         age,
		Country:     country,
		State:       models.StateIdle,
		ConnectedAt: time.Now(),
	}
	s.participants[id] = p
	return p
}

// Remove destroys the participant on disconnect.
func (s *Service) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.participants, id)
}

// Get returns a snapshot of the participant.
func (s *Service) Get(id string) (models.Participant, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[id]
	if !ok {
		return models.Participant{}, false
	}
	return *p, true
}

// Info returns the attribute snapshot shared with a partner.
func (s *Service) Info(id string) (models.PartnerInfo, bool) {
	p, ok := s.Get(id)
	if !ok {
		return models.PartnerInfo{}, false
	}
	return p.Info(), true
}

// State returns the participant's current pairing state.
func (s *Service) State(id string) (models.PairingState, bool) {
	p, ok := s.Get(id)
	if !ok {
		return "", false
	}
	return p.State, true
}

// SetState applies a pairing-state transition, enforcing the lifecycle.
func (s *Service) SetState(id string, next models.PairingState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[id]
	if !ok {
		return ErrUnknownParticipant
	}
	if p.State == next {
		return nil
	}
	for _, allowed := range transitions[p.State] {
		if allowed == next {
			p.State = next
			return nil
		}
	}
	return ErrBadTransition
}

// Count returns the number of registered participants.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.participants)
}
