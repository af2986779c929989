package service

import (
	"sort"
	"sync"
	"time"

	"deyemon/internal/core/domain"

	"go.uber.org/zap"
)

// PhaseStore persists the per-day phase statistics.
type PhaseStore interface {
	Load() (domain.PhaseStats, error)
	Save(stats domain.PhaseStats) error
	Clear() error
}

const (
	phaseKeepDays    = 30
	phaseSummaryDays = 14
	// samples further apart than this are not integrated into energy
	phaseMaxGap = 6 * time.Minute
)

// PhaseRecorder accumulates per-phase load energy (Wh), peak power and
// sample counts per day, following the same cached-read pattern as the other
// stores: load, fold in the sample, rotate old days, save.
type PhaseRecorder struct {
	mu         sync.Mutex
	store      PhaseStore
	lastSample time.Time
	logger     *zap.Logger
	now        func() time.Time
}

func NewPhaseRecorder(store PhaseStore, logger *zap.Logger) *PhaseRecorder {
	return &PhaseRecorder{
		store:  store,
		logger: logger.With(zap.String("component", "phase_recorder")),
		now:    time.Now,
	}
}

// Record folds one per-phase power sample (W) into today's stats. Energy is
// only accumulated when the interval since the previous sample is plausible;
// the first sample after a gap just re-arms the clock.
func (r *PhaseRecorder) Record(l1, l2, l3 float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	today := now.Format("2006-01-02")

	stats, err := r.store.Load()
	if err != nil {
		r.logger.Warn("loading phase stats failed", zap.Error(err))
		return
	}
	if stats == nil {
		stats = domain.PhaseStats{}
	}
	day := stats[today]

	if !r.lastSample.IsZero() {
		interval := now.Sub(r.lastSample)
		if interval > 0 && interval < phaseMaxGap {
			hours := interval.Hours()
			day.L1Wh += l1 * hours
			day.L2Wh += l2 * hours
			day.L3Wh += l3 * hours
		}
	}
	day.L1MaxW = max(day.L1MaxW, l1)
	day.L2MaxW = max(day.L2MaxW, l2)
	day.L3MaxW = max(day.L3MaxW, l3)
	day.Samples++
	stats[today] = day
	r.lastSample = now

	rotateOldDays(stats, phaseKeepDays)

	if err := r.store.Save(stats); err != nil {
		r.logger.Warn("saving phase stats failed", zap.Error(err))
	}
}

// Summary returns the most recent days, newest first, with kWh totals and
// per-phase percentage split.
func (r *PhaseRecorder) Summary() ([]domain.PhaseDaySummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats, err := r.store.Load()
	if err != nil {
		return nil, err
	}

	days := make([]string, 0, len(stats))
	for day := range stats {
		days = append(days, day)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(days)))
	if len(days) > phaseSummaryDays {
		days = days[:phaseSummaryDays]
	}

	summaries := make([]domain.PhaseDaySummary, 0, len(days))
	for _, day := range days {
		s := stats[day]
		total := s.L1Wh + s.L2Wh + s.L3Wh
		summary := domain.PhaseDaySummary{
			Date:     day,
			L1KWh:    round2(s.L1Wh / 1000),
			L2KWh:    round2(s.L2Wh / 1000),
			L3KWh:    round2(s.L3Wh / 1000),
			TotalKWh: round2(total / 1000),
			L1MaxW:   s.L1MaxW,
			L2MaxW:   s.L2MaxW,
			L3MaxW:   s.L3MaxW,
		}
		if total > 0 {
			summary.L1Pct = round1(s.L1Wh / total * 100)
			summary.L2Pct = round1(s.L2Wh / total * 100)
			summary.L3Pct = round1(s.L3Wh / total * 100)
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// Clear wipes the persisted statistics. Irreversible, caller-invoked.
func (r *PhaseRecorder) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastSample = time.Time{}
	return r.store.Clear()
}

func rotateOldDays(stats domain.PhaseStats, keep int) {
	if len(stats) <= keep {
		return
	}
	days := make([]string, 0, len(stats))
	for day := range stats {
		days = append(days, day)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(days)))
	for _, day := range days[keep:] {
		delete(stats, day)
	}
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
