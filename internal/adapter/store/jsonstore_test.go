package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"deyemon/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name)
}

func closedEvent(start time.Time, soc int) domain.OutageEvent {
	end := start.Add(30 * time.Minute)
	return domain.OutageEvent{Start: start, End: &end, SOCAtStart: soc}
}

func TestOutageStoreMissingFileIsEmpty(t *testing.T) {
	store := NewOutageHistoryStore(tempPath(t, "outages.json"))

	events, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestOutageStoreRoundTrip(t *testing.T) {
	store := NewOutageHistoryStore(tempPath(t, "outages.json"))
	start := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.Append(closedEvent(start, 78)))
	require.NoError(t, store.Append(closedEvent(start.Add(2*time.Hour), 64)))

	events, err := store.Load()
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.True(t, events[0].Start.Equal(start))
	assert.Equal(t, 78, events[0].SOCAtStart)
	assert.Equal(t, 64, events[1].SOCAtStart)
	require.NotNil(t, events[0].End)
	assert.InDelta(t, 1800, events[0].DurationSeconds(), 0.0001)
}

func TestOutageStoreCapsHistory(t *testing.T) {
	store := NewOutageHistoryStore(tempPath(t, "outages.json"))
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 105; i++ {
		require.NoError(t, store.Append(closedEvent(start.Add(time.Duration(i)*time.Hour), i)))
	}

	events, err := store.Load()
	require.NoError(t, err)
	require.Len(t, events, 100)
	// the five oldest were dropped
	assert.Equal(t, 5, events[0].SOCAtStart)
	assert.Equal(t, 104, events[99].SOCAtStart)
}

func TestOutageStoreClear(t *testing.T) {
	path := tempPath(t, "outages.json")
	store := NewOutageHistoryStore(path)

	require.NoError(t, store.Append(closedEvent(time.Now(), 50)))
	require.NoError(t, store.Clear())

	events, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, events)

	// cleared file still holds a valid empty array
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw []json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Empty(t, raw)
}

func TestOutageStoreCorruptFile(t *testing.T) {
	path := tempPath(t, "outages.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	store := NewOutageHistoryStore(path)

	_, err := store.Load()
	assert.Error(t, err)
}

func TestPhaseStoreMissingFileIsEmpty(t *testing.T) {
	store := NewPhaseStatsStore(tempPath(t, "phases.json"))

	stats, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, stats)
}

func TestPhaseStoreRoundTrip(t *testing.T) {
	store := NewPhaseStatsStore(tempPath(t, "phases.json"))
	stats := domain.PhaseStats{
		"2025-01-15": {L1Wh: 1234.5, L2Wh: 678.9, L3Wh: 42, Samples: 360, L1MaxW: 2100},
	}

	require.NoError(t, store.Save(stats))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Contains(t, loaded, "2025-01-15")
	day := loaded["2025-01-15"]
	assert.InDelta(t, 1234.5, day.L1Wh, 0.0001)
	assert.InDelta(t, 678.9, day.L2Wh, 0.0001)
	assert.Equal(t, 360, day.Samples)
	assert.InDelta(t, 2100, day.L1MaxW, 0.0001)
}

func TestPhaseStoreClear(t *testing.T) {
	store := NewPhaseStatsStore(tempPath(t, "phases.json"))
	require.NoError(t, store.Save(domain.PhaseStats{"2025-01-15": {Samples: 1}}))

	require.NoError(t, store.Clear())

	stats, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, stats)
}
