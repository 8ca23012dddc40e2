// Package matchmaking holds the pool of unpaired participants and runs the
// pairing algorithm. The queue is an owned collection behind a single lock,
// exposed only through its operations; selecting two participants and
// removing them from the queue is one indivisible step.
package matchmaking

import (
	"errors"
	"log"
	"sync"
	"time"

	"callgogo/backend/internal/models"
	"callgogo/backend/internal/registry"
)

// ErrNotEligible is returned when a participant tries to join the queue
// while paired or in a call.
var ErrNotEligible = errors.New("matchmaking: participant not eligible to queue")

// BlockChecker answers whether pairing between two ids is forbidden.
// Implemented by the moderation ledger.
type BlockChecker interface {
	IsBlocked(a, b string) bool
}

// SessionCreator opens a call session for a matched pair.
// Implemented by the session manager.
type SessionCreator interface {
	CreateSession(idA, idB string) (*models.CallSession, error)
}

// QueueStore mirrors queue membership into external storage (Redis set),
// best-effort. May be nil.
type QueueStore interface {
	AddToSearchQueue(userID string) error
	RemoveFromSearchQueue(userID string) error
}

type entry struct {
	id         string
	filter     models.Filter
	enqueuedAt time.Time
}

// Service is the matchmaking queue.
type Service struct {
	mu      sync.Mutex
	entries []*entry          // arrival order, oldest first
	index   map[string]*entry // by participant id

	Registry *registry.Service
	Blocks   BlockChecker
	Sessions SessionCreator
	Store    QueueStore
}

// NewService creates an empty queue wired to its collaborators.
func NewService(reg *registry.Service, blocks BlockChecker, sessions SessionCreator, store QueueStore) *Service {
	return &Service{
		index:    make(map[string]*entry),
		Registry: reg,
		Blocks:   blocks,
		Sessions: sessions,
		Store:    store,
	}
}

// Enqueue adds a participant to the queue with the given filter, then
// attempts pairing. Resubmitting while already queued replaces the filter
// but keeps the original queue position. A filter whose feasible range is
// empty is accepted; it simply never matches.
func (s *Service) Enqueue(id string, filter models.Filter) error {
	if err := filter.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if existing, ok := s.index[id]; ok {
		existing.filter = filter
		s.mu.Unlock()
		s.TryMatch()
		return nil
	}

	state, ok := s.Registry.State(id)
	if !ok {
		s.mu.Unlock()
		return registry.ErrUnknownParticipant
	}
	if state != models.StateIdle {
		s.mu.Unlock()
		return ErrNotEligible
	}
	if err := s.Registry.SetState(id, models.StateQueued); err != nil {
		s.mu.Unlock()
		return err
	}

	e := &entry{id: id, filter: filter, enqueuedAt: time.Now()}
	s.entries = append(s.entries, e)
	s.index[id] = e
	s.mu.Unlock()

	if s.Store != nil {
		if err := s.Store.AddToSearchQueue(id); err != nil {
			log.Printf("WARNING: failed to mirror %s into search queue: %v", id, err)
		}
	}

	s.TryMatch()
	return nil
}

// Remove takes a participant out of the queue, on explicit leave or on
// disconnect. Unknown ids are a no-op.
func (s *Service) Remove(id string) {
	s.mu.Lock()
	_, ok := s.index[id]
	if ok {
		s.removeLocked(id)
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	// Back to idle unless the participant is already gone from the registry.
	if state, ok := s.Registry.State(id); ok && state == models.StateQueued {
		if err := s.Registry.SetState(id, models.StateIdle); err != nil {
			log.Printf("WARNING: dequeue state reset for %s: %v", id, err)
		}
	}
	if s.Store != nil {
		if err := s.Store.RemoveFromSearchQueue(id); err != nil {
			log.Printf("WARNING: failed to remove %s from search queue mirror: %v", id, err)
		}
	}
}

// Contains reports whether the participant is currently queued.
func (s *Service) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.index[id]
	return ok
}

// Len returns the number of queued participants.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// removeLocked drops the entry from both the slice and the index.
// Caller holds s.mu.
func (s *Service) removeLocked(id string) {
	delete(s.index, id)
	for i, e := range s.entries {
		if e.id == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return
		}
	}
}

// TryMatch repeatedly pairs the earliest mutually-eligible couple until no
// further pair exists. It runs after every membership change.
func (s *Service) TryMatch() {
	for {
		a, b, ok := s.takePair()
		if !ok {
			return
		}
		s.createSession(a, b)
	}
}

// takePair selects the first mutually-eligible pair in arrival order and
// removes both from the queue atomically, marking them paired so no third
// participant can be matched with either.
func (s *Service) takePair() (*entry, *entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := 0; i < len(s.entries); i++ {
		a := s.entries[i]
		for j := i + 1; j < len(s.entries); j++ {
			b := s.entries[j]
			if !s.eligible(a, b) {
				continue
			}
			if err := s.Registry.SetState(a.id, models.StatePaired); err != nil {
				log.Printf("WARNING: cannot mark %s paired: %v", a.id, err)
				continue
			}
			if err := s.Registry.SetState(b.id, models.StatePaired); err != nil {
				// Roll back A and keep scanning past B.
				if rbErr := s.Registry.SetState(a.id, models.StateQueued); rbErr != nil {
					log.Printf("WARNING: rollback of %s failed: %v", a.id, rbErr)
				}
				continue
			}
			s.removeLocked(a.id)
			s.removeLocked(b.id)
			return a, b, true
		}
	}
	return nil, nil, false
}

// eligible checks the symmetric filter match and the moderation exclusion.
func (s *Service) eligible(a, b *entry) bool {
	infoA, okA := s.Registry.Info(a.id)
	infoB, okB := s.Registry.Info(b.id)
	if !okA || !okB {
		return false
	}
	if !a.filter.Accepts(infoB) || !b.filter.Accepts(infoA) {
		return false
	}
	if s.Blocks != nil && s.Blocks.IsBlocked(a.id, b.id) {
		return false
	}
	return true
}

// createSession hands the pair to the session manager. If creation fails,
// survivors are returned to the queue with their original filters.
func (s *Service) createSession(a, b *entry) {
	if s.Store != nil {
		for _, id := range []string{a.id, b.id} {
			if err := s.Store.RemoveFromSearchQueue(id); err != nil {
				log.Printf("WARNING: failed to remove %s from search queue mirror: %v", id, err)
			}
		}
	}

	if _, err := s.Sessions.CreateSession(a.id, b.id); err != nil {
		log.Printf("ERROR: session creation for %s/%s failed: %v", a.id, b.id, err)
		for _, e := range []*entry{a, b} {
			if _, ok := s.Registry.Get(e.id); !ok {
				continue
			}
			if err := s.Registry.SetState(e.id, models.StateIdle); err != nil {
				log.Printf("WARNING: unwind of %s failed: %v", e.id, err)
				continue
			}
			if err := s.Enqueue(e.id, e.filter); err != nil {
				log.Printf("WARNING: requeue of %s failed: %v", e.id, err)
			}
		}
	}
}
