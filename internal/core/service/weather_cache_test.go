package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"deyemon/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type scriptedFetcher struct {
	results []func() (domain.WeatherSnapshot, error)
	calls   int
}

func (f *scriptedFetcher) Fetch(ctx context.Context) (domain.WeatherSnapshot, error) {
	if f.calls >= len(f.results) {
		return domain.WeatherSnapshot{}, errors.New("no more scripted results")
	}
	result := f.results[f.calls]
	f.calls++
	return result()
}

func ok(snap domain.WeatherSnapshot) func() (domain.WeatherSnapshot, error) {
	return func() (domain.WeatherSnapshot, error) { return snap, nil }
}

func fail() func() (domain.WeatherSnapshot, error) {
	return func() (domain.WeatherSnapshot, error) { return domain.WeatherSnapshot{}, errors.New("fetch failed") }
}

func TestGetUnavailableBeforeFirstFetch(t *testing.T) {
	cache := NewWeatherCache(&scriptedFetcher{}, zap.NewNop())

	_, _, err := cache.Get()
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}

func TestFailuresRetainLastGoodSnapshot(t *testing.T) {
	fetched := domain.WeatherSnapshot{
		Temperature: 22.5,
		WeatherCode: 3,
		UpdatedAt:   time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC),
	}
	fetcher := &scriptedFetcher{results: []func() (domain.WeatherSnapshot, error){
		ok(fetched), fail(), fail(), fail(),
	}}
	cache := NewWeatherCache(fetcher, zap.NewNop())

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		cache.Refresh(ctx)
	}

	snap, _, err := cache.Get()
	require.NoError(t, err)
	assert.Equal(t, fetched.Temperature, snap.Temperature)
	assert.Equal(t, fetched.WeatherCode, snap.WeatherCode)
	assert.Equal(t, fetched.UpdatedAt, snap.UpdatedAt, "timestamp must stay at the last successful fetch")
}

func TestSuccessReplacesSnapshotWholesale(t *testing.T) {
	first := domain.WeatherSnapshot{Temperature: 10, WeatherCode: 61, UpdatedAt: time.Now().Add(-time.Hour)}
	second := domain.WeatherSnapshot{Temperature: 15, WeatherCode: 0, UpdatedAt: time.Now()}
	fetcher := &scriptedFetcher{results: []func() (domain.WeatherSnapshot, error){ok(first), ok(second)}}
	cache := NewWeatherCache(fetcher, zap.NewNop())

	ctx := context.Background()
	cache.Refresh(ctx)
	cache.Refresh(ctx)

	snap, _, err := cache.Get()
	require.NoError(t, err)
	assert.Equal(t, second, snap)
}

func TestGetReportsAge(t *testing.T) {
	updated := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	fetcher := &scriptedFetcher{results: []func() (domain.WeatherSnapshot, error){
		ok(domain.WeatherSnapshot{Temperature: 20, UpdatedAt: updated}),
	}}
	cache := NewWeatherCache(fetcher, zap.NewNop())
	cache.now = func() time.Time { return updated.Add(40 * time.Minute) }

	cache.Refresh(context.Background())

	_, age, err := cache.Get()
	require.NoError(t, err)
	assert.Equal(t, 40*time.Minute, age)
}

func TestWeatherCodeCategories(t *testing.T) {
	cases := map[int]string{
		0:  "clear",
		1:  "clear",
		2:  "clear",
		3:  "cloudy",
		45: "fog",
		48: "fog",
		51: "rain",
		55: "rain",
		61: "rain",
		71: "snow",
		75: "snow",
		77: "snow",
		80: "rain",
		85: "snow",
		95: "storm",
		99: "storm",
	}
	for code, want := range cases {
		snap := domain.WeatherSnapshot{WeatherCode: code}
		assert.Equal(t, want, snap.Category(), "code %d", code)
	}
}
