// Package moderation records block and report actions and enforces pairing
// exclusions. The ledger is append-only: records are persisted and never
// removed, and a block forbids all future pairing between the two ids in
// either direction.
package moderation

import (
	"errors"
	"log"
	"sync"

	"callgogo/backend/internal/config"
	"callgogo/backend/internal/models"
)

var (
	// ErrSelfAction rejects blocking or reporting oneself.
	ErrSelfAction = errors.New("moderation: cannot block or report yourself")
	// ErrEmptyReason rejects a report without a reason.
	ErrEmptyReason = errors.New("moderation: report reason is required")
)

// Store persists moderation records and the Redis block cache.
type Store interface {
	SaveModerationRecord(rec *models.ModerationRecord) error
	ListBlockRecords() ([]models.ModerationRecord, error)
	CacheBlock(blockerID, blockedID string) error
}

// Alerter forwards new reports to the admin channel. May be nil.
type Alerter interface {
	ReportAlert(rec *models.ModerationRecord)
}

// BlockEvent announces a newly recorded block so the session manager can
// end any live session between the pair.
type BlockEvent struct {
	BlockerID string
	BlockedID string
	SessionID string
}

// Ledger is the moderation ledger. Block facts are held in memory for the
// matchmaking fast path and persisted for durability across restarts.
type Ledger struct {
	mu     sync.RWMutex
	blocks map[string]map[string]bool // blocker -> set of blocked ids

	Store  Store
	Alerts Alerter

	events chan BlockEvent
}

// NewLedger creates a ledger over the given store.
func NewLedger(store Store, alerts Alerter) *Ledger {
	return &Ledger{
		blocks: make(map[string]map[string]bool),
		Store:  store,
		Alerts: alerts,
		events: make(chan BlockEvent, 64),
	}
}

// Load warms the in-memory block index from persisted records. Called once
// at startup.
func (l *Ledger) Load() error {
	if l.Store == nil {
		return nil
	}
	records, err := l.Store.ListBlockRecords()
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range records {
		l.addLocked(r.ActorID, r.TargetID)
	}
	log.Printf("Moderation ledger loaded %d block records", len(records))
	return nil
}

// Events exposes the stream of new block facts.
func (l *Ledger) Events() <-chan BlockEvent { return l.events }

// Block records that blocker never wants to meet blocked again. Blocking an
// already-blocked id is a no-op. The in-memory fact is applied before the
// write, so a persistence failure is reported to the caller for retry but
// never loses the block for this process.
func (l *Ledger) Block(blockerID, blockedID, sessionID string) error {
	if blockerID == blockedID {
		return ErrSelfAction
	}

	l.mu.Lock()
	already := l.blocks[blockerID][blockedID]
	if !already {
		l.addLocked(blockerID, blockedID)
	}
	l.mu.Unlock()
	if already {
		return nil
	}

	l.emit(BlockEvent{BlockerID: blockerID, BlockedID: blockedID, SessionID: sessionID})

	if l.Store != nil {
		if err := l.Store.CacheBlock(blockerID, blockedID); err != nil {
			log.Printf("WARNING: block cache write %s->%s failed: %v", blockerID, blockedID, err)
		}
		rec := &models.ModerationRecord{
			Kind:      models.ModerationBlock,
			ActorID:   blockerID,
			TargetID:  blockedID,
			SessionID: sessionID,
			Status:    "new",
		}
		if err := l.Store.SaveModerationRecord(rec); err != nil {
			log.Printf("ERROR: failed to persist block %s->%s: %v", blockerID, blockedID, err)
			return err
		}
	}
	return nil
}

// Report files a report against a participant. Reports do not affect
// pairing on their own; they feed the admin review queue and the alert
// channel.
func (l *Ledger) Report(reporterID, reportedID, reason, description, sessionID string) (*models.ModerationRecord, error) {
	if reporterID == reportedID {
		return nil, ErrSelfAction
	}
	if reason == "" {
		return nil, ErrEmptyReason
	}

	rec := &models.ModerationRecord{
		Kind:        models.ModerationReport,
		ActorID:     reporterID,
		TargetID:    reportedID,
		SessionID:   sessionID,
		Reason:      reason,
		Description: description,
		Severity:    config.Severity(reason),
		Status:      "new",
	}
	if l.Store != nil {
		if err := l.Store.SaveModerationRecord(rec); err != nil {
			log.Printf("ERROR: failed to persist report %s->%s: %v", reporterID, reportedID, err)
			return nil, err
		}
	}
	if l.Alerts != nil {
		l.Alerts.ReportAlert(rec)
	}
	return rec, nil
}

// BlockAndReport issues both actions. The block is applied first; if the
// report then fails, the block stays recorded and the error tells the
// caller to retry the report.
func (l *Ledger) BlockAndReport(reporterID, reportedID, reason, description, sessionID string) error {
	if err := l.Block(reporterID, reportedID, sessionID); err != nil {
		return err
	}
	_, err := l.Report(reporterID, reportedID, reason, description, sessionID)
	return err
}

// IsBlocked reports whether either participant has blocked the other.
// Used as a hard exclusion by the matchmaking queue and the callback broker.
func (l *Ledger) IsBlocked(a, b string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.blocks[a][b] || l.blocks[b][a]
}

// addLocked records a directional block fact. Caller holds l.mu.
func (l *Ledger) addLocked(blockerID, blockedID string) {
	set, ok := l.blocks[blockerID]
	if !ok {
		set = make(map[string]bool)
		l.blocks[blockerID] = set
	}
	set[blockedID] = true
}

// emit publishes a block event without ever blocking the caller.
func (l *Ledger) emit(ev BlockEvent) {
	select {
	case l.events <- ev:
	default:
		log.Printf("WARNING: block event channel full, dropping %s->%s", ev.BlockerID, ev.BlockedID)
	}
}
