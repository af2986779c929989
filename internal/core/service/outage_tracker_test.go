package service

import (
	"testing"
	"time"

	"deyemon/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memEventStore struct {
	events  []domain.OutageEvent
	cleared int
}

func (s *memEventStore) Load() ([]domain.OutageEvent, error) {
	return append([]domain.OutageEvent{}, s.events...), nil
}

func (s *memEventStore) Append(event domain.OutageEvent) error {
	s.events = append(s.events, event)
	return nil
}

func (s *memEventStore) Clear() error {
	s.cleared++
	s.events = nil
	return nil
}

// fakeClock advances ten seconds per call, one sampling period.
func fakeClock() func() time.Time {
	at := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	return func() time.Time {
		at = at.Add(10 * time.Second)
		return at
	}
}

func newTestTracker(store EventStore, threshold float64, debounce int) *OutageTracker {
	tracker := NewOutageTracker(store, threshold, debounce, zap.NewNop())
	tracker.now = fakeClock()
	return tracker
}

func TestInitialStateOnline(t *testing.T) {
	tracker := newTestTracker(&memEventStore{}, 1, 1)
	assert.Equal(t, domain.GridOnline, tracker.State())
	assert.Nil(t, tracker.Current())
}

func TestOutageCycleProducesOneClosedEvent(t *testing.T) {
	store := &memEventStore{}
	tracker := newTestTracker(store, 1, 1)

	tracker.Observe(500, 80)
	tracker.Observe(0, 78)
	require.Equal(t, domain.GridOffline, tracker.State())
	tracker.Observe(300, 77)
	require.Equal(t, domain.GridOnline, tracker.State())

	require.Len(t, store.events, 1)
	event := store.events[0]
	require.NotNil(t, event.End)
	assert.True(t, event.Start.Before(*event.End), "start must precede end")
	assert.Equal(t, 78, event.SOCAtStart)
	assert.Nil(t, tracker.Current())
}

func TestGridPowerSequenceSpansZeroTicks(t *testing.T) {
	store := &memEventStore{}
	tracker := newTestTracker(store, 1, 1)

	for _, power := range []float64{500, 0, 0, 300} {
		tracker.Observe(power, 75)
	}

	require.Len(t, store.events, 1)
	event := store.events[0]
	require.NotNil(t, event.End)
	// two zero ticks at 10s apart plus the closing tick
	assert.InDelta(t, 20.0, event.DurationSeconds(), 0.0001)
}

func TestRepeatedOfflineTicksIdempotent(t *testing.T) {
	store := &memEventStore{}
	tracker := newTestTracker(store, 1, 1)

	tracker.Observe(0, 70)
	first := tracker.Current()
	require.NotNil(t, first)

	for i := 0; i < 5; i++ {
		tracker.Observe(0, 60)
	}

	assert.Equal(t, domain.GridOffline, tracker.State())
	assert.Empty(t, store.events)
	current := tracker.Current()
	require.NotNil(t, current)
	assert.Equal(t, first.Start, current.Start)
	assert.Equal(t, 70, current.SOCAtStart, "soc is captured only at the transition")
}

func TestRepeatedOnlineTicksIdempotent(t *testing.T) {
	store := &memEventStore{}
	tracker := newTestTracker(store, 1, 1)

	for i := 0; i < 5; i++ {
		tracker.Observe(450, 80)
	}

	assert.Equal(t, domain.GridOnline, tracker.State())
	assert.Empty(t, store.events)
}

func TestNearZeroThreshold(t *testing.T) {
	tracker := newTestTracker(&memEventStore{}, 50, 1)

	tracker.Observe(30, 80)
	assert.Equal(t, domain.GridOffline, tracker.State())

	tracker.Observe(-30, 80)
	assert.Equal(t, domain.GridOffline, tracker.State(), "exporting below threshold is still offline")

	tracker.Observe(-200, 80)
	assert.Equal(t, domain.GridOnline, tracker.State(), "exporting means the grid is present")
}

func TestDebounceSuppressesSingleSampleBlip(t *testing.T) {
	store := &memEventStore{}
	tracker := newTestTracker(store, 1, 2)

	tracker.Observe(500, 80)
	tracker.Observe(0, 80) // blip
	assert.Equal(t, domain.GridOnline, tracker.State())

	tracker.Observe(500, 80)
	tracker.Observe(0, 80)
	assert.Equal(t, domain.GridOnline, tracker.State())
	tracker.Observe(0, 79)
	assert.Equal(t, domain.GridOffline, tracker.State())

	// one good sample does not close the outage either
	tracker.Observe(400, 79)
	assert.Equal(t, domain.GridOffline, tracker.State())
	tracker.Observe(400, 79)
	assert.Equal(t, domain.GridOnline, tracker.State())

	require.Len(t, store.events, 1)
}

func TestManualRecordAndHistory(t *testing.T) {
	store := &memEventStore{}
	tracker := newTestTracker(store, 1, 1)

	end := time.Date(2025, 1, 15, 11, 0, 0, 0, time.UTC)
	err := tracker.Record(domain.OutageEvent{
		Start:      end.Add(-time.Hour),
		End:        &end,
		SOCAtStart: 64,
	})
	require.NoError(t, err)

	history, err := tracker.History()
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.InDelta(t, 3600, history[0].DurationSeconds(), 0.0001)
}

func TestClearHistoryLeavesOpenEvent(t *testing.T) {
	store := &memEventStore{}
	tracker := newTestTracker(store, 1, 1)

	tracker.Observe(0, 70)
	tracker.Observe(500, 70)
	tracker.Observe(0, 65)
	require.Len(t, store.events, 1)
	require.NotNil(t, tracker.Current())

	require.NoError(t, tracker.ClearHistory())

	history, err := tracker.History()
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Equal(t, 1, store.cleared)
	assert.NotNil(t, tracker.Current(), "open event is unaffected by a history clear")
}
