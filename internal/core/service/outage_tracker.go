package service

import (
	"math"
	"sync"
	"time"

	"deyemon/internal/core/domain"

	"go.uber.org/zap"
)

// EventStore is the durable, append-only outage history.
type EventStore interface {
	Load() ([]domain.OutageEvent, error)
	Append(event domain.OutageEvent) error
	Clear() error
}

// OutageTracker is a two-state machine over grid power readings. A reading
// at or below the configured threshold counts as grid-offline; transitions
// require debounce consecutive samples on the other side of the threshold,
// so a single noisy sample never toggles the state.
type OutageTracker struct {
	mu             sync.Mutex
	state          domain.OutageState
	open           *domain.OutageEvent
	offlineRun     int
	onlineRun      int
	thresholdWatts float64
	debounce       int
	store          EventStore
	logger         *zap.Logger
	now            func() time.Time
}

func NewOutageTracker(store EventStore, thresholdWatts float64, debounce int, logger *zap.Logger) *OutageTracker {
	if debounce < 1 {
		debounce = 1
	}
	return &OutageTracker{
		state:          domain.GridOnline,
		thresholdWatts: thresholdWatts,
		debounce:       debounce,
		store:          store,
		logger:         logger.With(zap.String("component", "outage_tracker")),
		now:            time.Now,
	}
}

// Observe feeds one grid power reading (W) into the state machine. soc is
// the current state of charge captured when a new outage opens. Readings
// that do not cross the threshold are idempotent no-ops.
func (t *OutageTracker) Observe(gridPowerWatts float64, soc int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if math.Abs(gridPowerWatts) <= t.thresholdWatts {
		t.offlineRun++
		t.onlineRun = 0
	} else {
		t.onlineRun++
		t.offlineRun = 0
	}

	switch t.state {
	case domain.GridOnline:
		if t.offlineRun >= t.debounce {
			t.state = domain.GridOffline
			t.open = &domain.OutageEvent{
				Start:      t.now(),
				SOCAtStart: soc,
			}
			t.logger.Warn("grid outage started",
				zap.Float64("grid_power", gridPowerWatts),
				zap.Int("soc_at_start", soc))
		}
	case domain.GridOffline:
		if t.onlineRun >= t.debounce {
			t.state = domain.GridOnline
			if t.open != nil {
				end := t.now()
				t.open.End = &end
				closed := *t.open
				t.open = nil
				if err := t.store.Append(closed); err != nil {
					t.logger.Error("persisting outage event failed", zap.Error(err))
				}
				t.logger.Info("grid outage ended",
					zap.Time("start", closed.Start),
					zap.Float64("duration_seconds", closed.DurationSeconds()))
			}
		}
	}
}

// State returns the current grid state.
func (t *OutageTracker) State() domain.OutageState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Current returns a copy of the open outage event, if any.
func (t *OutageTracker) Current() *domain.OutageEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.open == nil {
		return nil
	}
	event := *t.open
	return &event
}

// History returns the persisted closed events.
func (t *OutageTracker) History() ([]domain.OutageEvent, error) {
	return t.store.Load()
}

// Record appends a manually reported outage event to the history.
func (t *OutageTracker) Record(event domain.OutageEvent) error {
	return t.store.Append(event)
}

// ClearHistory empties the durable history. Irreversible and caller-invoked;
// never triggered by normal ticking. The open event, if any, is unaffected.
func (t *OutageTracker) ClearHistory() error {
	return t.store.Clear()
}
