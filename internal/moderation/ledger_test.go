package moderation_test

import (
	"errors"
	"testing"

	"callgogo/backend/internal/models"
	"callgogo/backend/internal/moderation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) SaveModerationRecord(rec *models.ModerationRecord) error {
	args := m.Called(rec)
	return args.Error(0)
}

func (m *mockStore) ListBlockRecords() ([]models.ModerationRecord, error) {
	args := m.Called()
	if recs := args.Get(0); recs != nil {
		return recs.([]models.ModerationRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) CacheBlock(blockerID, blockedID string) error {
	args := m.Called(blockerID, blockedID)
	return args.Error(0)
}

type mockAlerter struct {
	mock.Mock
}

func (m *mockAlerter) ReportAlert(rec *models.ModerationRecord) {
	m.Called(rec)
}

func drain(ch <-chan moderation.BlockEvent) []moderation.BlockEvent {
	var out []moderation.BlockEvent
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestBlockRecordsAndEmits(t *testing.T) {
	store := new(mockStore)
	store.On("CacheBlock", "a", "b").Return(nil)
	store.On("SaveModerationRecord", mock.MatchedBy(func(rec *models.ModerationRecord) bool {
		return rec.Kind == models.ModerationBlock && rec.ActorID == "a" && rec.TargetID == "b"
	})).Return(nil)

	l := moderation.NewLedger(store, nil)
	require.NoError(t, l.Block("a", "b", "sess1"))

	assert.True(t, l.IsBlocked("a", "b"))
	assert.True(t, l.IsBlocked("b", "a"))
	assert.False(t, l.IsBlocked("a", "c"))

	events := drain(l.Events())
	require.Len(t, events, 1)
	assert.Equal(t, "a", events[0].BlockerID)
	assert.Equal(t, "b", events[0].BlockedID)
	assert.Equal(t, "sess1", events[0].SessionID)

	store.AssertExpectations(t)
}

func TestBlockIsIdempotent(t *testing.T) {
	store := new(mockStore)
	store.On("CacheBlock", "a", "b").Return(nil).Once()
	store.On("SaveModerationRecord", mock.Anything).Return(nil).Once()

	l := moderation.NewLedger(store, nil)
	require.NoError(t, l.Block("a", "b", ""))
	require.NoError(t, l.Block("a", "b", ""))

	assert.Len(t, drain(l.Events()), 1)
	store.AssertExpectations(t)
}

func TestBlockSelf(t *testing.T) {
	l := moderation.NewLedger(nil, nil)
	assert.ErrorIs(t, l.Block("a", "a", ""), moderation.ErrSelfAction)
	assert.Empty(t, drain(l.Events()))
}

// TestBlockSurvivesPersistenceFailure checks that a failed write still leaves
// the block active in memory; the caller gets the error for retry.
func TestBlockSurvivesPersistenceFailure(t *testing.T) {
	store := new(mockStore)
	store.On("CacheBlock", "a", "b").Return(nil)
	store.On("SaveModerationRecord", mock.Anything).Return(errors.New("db down"))

	l := moderation.NewLedger(store, nil)
	err := l.Block("a", "b", "")
	assert.Error(t, err)
	assert.True(t, l.IsBlocked("a", "b"))
}

func TestReportPersistsAndAlerts(t *testing.T) {
	store := new(mockStore)
	store.On("SaveModerationRecord", mock.MatchedBy(func(rec *models.ModerationRecord) bool {
		return rec.Kind == models.ModerationReport &&
			rec.ActorID == "a" && rec.TargetID == "b" &&
			rec.Reason == "harassment" && rec.Severity == "Medium"
	})).Return(nil)
	alerts := new(mockAlerter)
	alerts.On("ReportAlert", mock.Anything).Return()

	l := moderation.NewLedger(store, alerts)
	rec, err := l.Report("a", "b", "harassment", "shouting", "sess1")
	require.NoError(t, err)
	assert.Equal(t, "new", rec.Status)
	assert.Equal(t, "shouting", rec.Description)

	// Reports alone never exclude pairing.
	assert.False(t, l.IsBlocked("a", "b"))
	assert.Empty(t, drain(l.Events()))

	store.AssertExpectations(t)
	alerts.AssertExpectations(t)
}

func TestReportValidation(t *testing.T) {
	l := moderation.NewLedger(nil, nil)

	_, err := l.Report("a", "a", "spam", "", "")
	assert.ErrorIs(t, err, moderation.ErrSelfAction)

	_, err = l.Report("a", "b", "", "", "")
	assert.ErrorIs(t, err, moderation.ErrEmptyReason)
}

// TestBlockAndReportKeepsBlockOnReportFailure verifies the ordering contract:
// the block lands first and stays even when the report write fails.
func TestBlockAndReportKeepsBlockOnReportFailure(t *testing.T) {
	store := new(mockStore)
	store.On("CacheBlock", "a", "b").Return(nil)
	store.On("SaveModerationRecord", mock.MatchedBy(func(rec *models.ModerationRecord) bool {
		return rec.Kind == models.ModerationBlock
	})).Return(nil)
	store.On("SaveModerationRecord", mock.MatchedBy(func(rec *models.ModerationRecord) bool {
		return rec.Kind == models.ModerationReport
	})).Return(errors.New("db down"))

	l := moderation.NewLedger(store, nil)
	err := l.BlockAndReport("a", "b", "spam", "", "sess1")
	assert.Error(t, err)
	assert.True(t, l.IsBlocked("a", "b"))
	assert.Len(t, drain(l.Events()), 1)
}

func TestLoadWarmsIndex(t *testing.T) {
	store := new(mockStore)
	store.On("ListBlockRecords").Return([]models.ModerationRecord{
		{Kind: models.ModerationBlock, ActorID: "a", TargetID: "b"},
		{Kind: models.ModerationBlock, ActorID: "c", TargetID: "d"},
	}, nil)

	l := moderation.NewLedger(store, nil)
	require.NoError(t, l.Load())

	assert.True(t, l.IsBlocked("b", "a"))
	assert.True(t, l.IsBlocked("c", "d"))
	assert.False(t, l.IsBlocked("a", "c"))
	// Warm-up replays history; no fresh events are emitted.
	assert.Empty(t, drain(l.Events()))
}

func TestLoadPropagatesStoreError(t *testing.T) {
	store := new(mockStore)
	store.On("ListBlockRecords").Return(nil, errors.New("db down"))

	l := moderation.NewLedger(store, nil)
	assert.Error(t, l.Load())
}
