package store

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"sync"

	"deyemon/internal/core/domain"
)

// maxOutageEvents caps the persisted history; appending past the cap drops
// the oldest events.
const maxOutageEvents = 100

// OutageHistoryStore persists closed outage events as a JSON array in a
// single file. A missing file reads as an empty history.
type OutageHistoryStore struct {
	mu   sync.Mutex
	path string
}

func NewOutageHistoryStore(path string) *OutageHistoryStore {
	return &OutageHistoryStore{path: path}
}

func (s *OutageHistoryStore) Load() ([]domain.OutageEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *OutageHistoryStore) load() ([]domain.OutageEvent, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.OutageEvent{}, nil
	}
	if err != nil {
		return nil, err
	}
	var events []domain.OutageEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *OutageHistoryStore) Append(event domain.OutageEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.load()
	if err != nil {
		return err
	}
	events = append(events, event)
	if len(events) > maxOutageEvents {
		events = events[len(events)-maxOutageEvents:]
	}
	return s.save(events)
}

func (s *OutageHistoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save([]domain.OutageEvent{})
}

func (s *OutageHistoryStore) save(events []domain.OutageEvent) error {
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}

// PhaseStatsStore persists the day-keyed phase statistics as a JSON object.
type PhaseStatsStore struct {
	mu   sync.Mutex
	path string
}

func NewPhaseStatsStore(path string) *PhaseStatsStore {
	return &PhaseStatsStore{path: path}
}

func (s *PhaseStatsStore) Load() (domain.PhaseStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.PhaseStats{}, nil
	}
	if err != nil {
		return nil, err
	}
	var stats domain.PhaseStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *PhaseStatsStore) Save(stats domain.PhaseStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}

func (s *PhaseStatsStore) Clear() error {
	return s.Save(domain.PhaseStats{})
}
