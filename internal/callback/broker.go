// Package callback lets a participant ask a previous partner for a
// reconnection. Requests are consent-gated, expire after a bounded window
// and, on acceptance, pair the two directly without going through the
// matchmaking queue.
package callback

import (
	"errors"
	"log"
	"sync"
	"time"

	"callgogo/backend/internal/models"

	"github.com/google/uuid"
)

var (
	// ErrBlockedPairing rejects a request between a blocked pair, checked
	// both at creation and at response time.
	ErrBlockedPairing = errors.New("callback: pairing is blocked between these participants")
	// ErrUnknownRequest is returned for responses to a request that does not exist.
	ErrUnknownRequest = errors.New("callback: unknown request")
	// ErrRequestExpired is returned when responding to a request whose
	// pending window has elapsed.
	ErrRequestExpired = errors.New("callback: request expired")
	// ErrRequestResolved is returned when responding to an already
	// accepted or declined request. Decline is terminal with no retry.
	ErrRequestResolved = errors.New("callback: request already resolved")
	// ErrNotTarget rejects a response from anyone but the request's target.
	ErrNotTarget = errors.New("callback: only the target may respond")
)

// BlockChecker answers whether pairing between two ids is forbidden.
type BlockChecker interface {
	IsBlocked(a, b string) bool
}

// PairCreator opens a call session directly, bypassing the queue.
// Implemented by the session manager.
type PairCreator interface {
	CreateSession(idA, idB string) (*models.CallSession, error)
}

// Notifier pushes callback events to participants. May be nil in tests.
type Notifier interface {
	Notify(userID string, env models.Envelope)
}

// Store persists callback rows. May be nil.
type Store interface {
	SaveCallbackRequest(req *models.CallbackRequest) error
	UpdateCallbackStatus(requestID string, status models.CallbackStatus) error
}

// Broker owns every pending callback request and its expiry timer.
type Broker struct {
	mu       sync.Mutex
	requests map[string]*models.CallbackRequest
	timers   map[string]*time.Timer

	TTL      time.Duration
	Blocks   BlockChecker
	Sessions PairCreator
	Store    Store
	notifier Notifier
}

// NewBroker creates a broker with the given pending-request lifetime.
func NewBroker(ttl time.Duration, blocks BlockChecker, sessions PairCreator, store Store) *Broker {
	return &Broker{
		requests: make(map[string]*models.CallbackRequest),
		timers:   make(map[string]*time.Timer),
		TTL:      ttl,
		Blocks:   blocks,
		Sessions: sessions,
		Store:    store,
	}
}

// SetNotifier wires the transport-side event sink.
func (b *Broker) SetNotifier(n Notifier) { b.notifier = n }

// Request creates a pending callback from fromID to toID with a snapshot of
// the original call for display. The target is notified; the request
// expires on its own after the TTL.
func (b *Broker) Request(fromID, toID string, snapshot models.CallSnapshot) (*models.CallbackRequest, error) {
	if b.Blocks != nil && b.Blocks.IsBlocked(fromID, toID) {
		return nil, ErrBlockedPairing
	}

	req := &models.CallbackRequest{
		ID:                uuid.New().String(),
		RequesterID:       fromID,
		TargetID:          toID,
		Status:            models.CallbackPending,
		CreatedAt:         time.Now(),
		SnapshotSessionID: snapshot.SessionID,
		SnapshotCalledAt:  snapshot.CalledAt,
		SnapshotCountry:   snapshot.Country,
	}

	b.mu.Lock()
	b.requests[req.ID] = req
	b.timers[req.ID] = time.AfterFunc(b.TTL, func() { b.Expire(req.ID) })
	b.mu.Unlock()

	if b.Store != nil {
		if err := b.Store.SaveCallbackRequest(req); err != nil {
			log.Printf("WARNING: failed to persist callback request %s: %v", req.ID, err)
		}
	}

	if b.notifier != nil {
		b.notifier.Notify(toID, models.NewEnvelope(models.EvCallbackRequested, models.CallbackRequestedPayload{
			RequestID: req.ID,
			FromID:    fromID,
			Snapshot:  snapshot,
		}))
	}

	cp := *req
	return &cp, nil
}

// Respond resolves a pending request. Only the target may respond; a
// blocked relationship discovered at response time rejects the response
// without mutating the request. Acceptance pairs the two participants into
// a new call session immediately.
func (b *Broker) Respond(requestID, byID string, accept bool) error {
	b.mu.Lock()
	req, ok := b.requests[requestID]
	if !ok {
		b.mu.Unlock()
		return ErrUnknownRequest
	}
	if byID != req.TargetID {
		b.mu.Unlock()
		return ErrNotTarget
	}
	switch req.Status {
	case models.CallbackPending:
	case models.CallbackExpired:
		b.mu.Unlock()
		return ErrRequestExpired
	default:
		b.mu.Unlock()
		return ErrRequestResolved
	}
	if accept && b.Blocks != nil && b.Blocks.IsBlocked(req.RequesterID, req.TargetID) {
		b.mu.Unlock()
		return ErrBlockedPairing
	}

	b.stopTimerLocked(requestID)
	status := models.CallbackDeclined
	if accept {
		status = models.CallbackAccepted
	}
	req.Status = status
	req.ResolvedAt = time.Now()
	requester, target := req.RequesterID, req.TargetID
	b.mu.Unlock()

	if accept {
		if _, err := b.Sessions.CreateSession(requester, target); err != nil {
			// One side is busy or gone; the acceptance cannot be honored.
			b.resolve(requestID, requester, models.CallbackExpired)
			return err
		}
	}

	b.resolve(requestID, requester, status)
	return nil
}

// Expire moves a still-pending request to expired. Fired by the TTL timer;
// calling it on a resolved request is a no-op.
func (b *Broker) Expire(requestID string) {
	b.mu.Lock()
	req, ok := b.requests[requestID]
	if !ok || req.Status != models.CallbackPending {
		b.mu.Unlock()
		return
	}
	req.Status = models.CallbackExpired
	req.ResolvedAt = time.Now()
	requester := req.RequesterID
	b.stopTimerLocked(requestID)
	b.mu.Unlock()

	b.resolve(requestID, requester, models.CallbackExpired)
}

// Get returns a snapshot of a request.
func (b *Broker) Get(requestID string) (*models.CallbackRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	req, ok := b.requests[requestID]
	if !ok {
		return nil, false
	}
	cp := *req
	return &cp, true
}

// resolve persists the terminal status and tells the requester.
func (b *Broker) resolve(requestID, requesterID string, status models.CallbackStatus) {
	b.mu.Lock()
	if req, ok := b.requests[requestID]; ok {
		req.Status = status
	}
	b.mu.Unlock()

	if b.Store != nil {
		if err := b.Store.UpdateCallbackStatus(requestID, status); err != nil {
			log.Printf("WARNING: failed to persist callback status %s=%s: %v", requestID, status, err)
		}
	}
	if b.notifier != nil {
		b.notifier.Notify(requesterID, models.NewEnvelope(models.EvCallbackStatus, models.CallbackStatusPayload{
			RequestID: requestID,
			Status:    status,
		}))
	}
}

// stopTimerLocked cancels the expiry timer. Caller holds b.mu.
func (b *Broker) stopTimerLocked(requestID string) {
	if t, ok := b.timers[requestID]; ok {
		t.Stop()
		delete(b.timers, requestID)
	}
}
