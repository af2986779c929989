package service

import (
	"context"
	"sync"
	"time"

	"deyemon/internal/core/domain"

	"go.uber.org/zap"
)

// WeatherFetcher performs one external weather fetch with a bounded timeout.
type WeatherFetcher interface {
	Fetch(ctx context.Context) (domain.WeatherSnapshot, error)
}

// WeatherCache holds the last successful weather snapshot. Refresh replaces
// it wholesale on success and retains it unchanged on failure: the cache is
// never cleared to empty on error, even across repeated failures. It has its
// own lock since it never touches the hardware channel.
type WeatherCache struct {
	mu      sync.RWMutex
	fetcher WeatherFetcher
	snap    *domain.WeatherSnapshot
	logger  *zap.Logger
	now     func() time.Time
}

func NewWeatherCache(fetcher WeatherFetcher, logger *zap.Logger) *WeatherCache {
	return &WeatherCache{
		fetcher: fetcher,
		logger:  logger.With(zap.String("component", "weather_cache")),
		now:     time.Now,
	}
}

// Refresh performs one fetch. Failures are non-fatal: logged, previous
// snapshot retained with its original timestamp.
func (c *WeatherCache) Refresh(ctx context.Context) {
	snap, err := c.fetcher.Fetch(ctx)
	if err != nil {
		c.mu.RLock()
		var staleness time.Duration
		if c.snap != nil {
			staleness = c.now().Sub(c.snap.UpdatedAt)
		}
		c.mu.RUnlock()
		c.logger.Warn("weather fetch failed, serving stale data",
			zap.Error(err),
			zap.Duration("staleness", staleness))
		return
	}
	c.mu.Lock()
	c.snap = &snap
	c.mu.Unlock()
	c.logger.Debug("weather updated",
		zap.Float64("temperature", snap.Temperature),
		zap.Int("weather_code", snap.WeatherCode))
}

// Get is non-blocking and returns the last successful snapshot plus its age.
// ErrUnavailable before the first successful fetch; callers decide whether
// staleness is acceptable.
func (c *WeatherCache) Get() (domain.WeatherSnapshot, time.Duration, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snap == nil {
		return domain.WeatherSnapshot{}, 0, domain.ErrUnavailable
	}
	return *c.snap, c.now().Sub(c.snap.UpdatedAt), nil
}
