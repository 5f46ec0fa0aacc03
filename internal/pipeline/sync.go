package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/climate-resilience-monitor/internal/domain"
	"github.com/couchcryptid/climate-resilience-monitor/internal/observability"
	"github.com/couchcryptid/climate-resilience-monitor/internal/retry"
	"github.com/jonboulle/clockwork"
)

// FleetSync keeps current readings for every monitored city. Requests are
// issued one at a time with a pause between them to stay inside the
// provider's free-tier rate limit.
type FleetSync struct {
	provider domain.WeatherProvider
	cities   []domain.City
	pacing   time.Duration
	interval time.Duration
	clock    clockwork.Clock
	metrics  *observability.Metrics
	logger   *slog.Logger

	ready atomic.Bool
}

// NewFleetSync creates a FleetSync over cities.
func NewFleetSync(provider domain.WeatherProvider, cities []domain.City, pacing, interval time.Duration, clk clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *FleetSync {
	return &FleetSync{
		provider: provider,
		cities:   cities,
		pacing:   pacing,
		interval: interval,
		clock:    clk,
		metrics:  metrics,
		logger:   logger,
	}
}

// CheckReadiness returns nil once the first fleet sync has completed.
func (f *FleetSync) CheckReadiness(_ context.Context) error {
	if !f.ready.Load() {
		return errors.New("initial weather sync has not completed")
	}
	return nil
}

// Sync fetches current weather for each city in order, pausing between
// consecutive requests. Cities for which the provider returned nothing are
// omitted. The only error is ctx's.
func (f *FleetSync) Sync(ctx context.Context, cities []domain.City) (map[string]domain.WeatherSnapshot, error) {
	start := f.clock.Now()
	out := make(map[string]domain.WeatherSnapshot, len(cities))

	for i, city := range cities {
		if i > 0 {
			if err := retry.Sleep(ctx, f.clock, f.pacing); err != nil {
				return nil, err
			}
		}
		snap, err := f.provider.CurrentWeather(ctx, city)
		if err != nil {
			return nil, err
		}
		if snap == nil {
			f.logger.Warn("no reading for city", "city", city.Name)
			continue
		}
		out[city.ID] = *snap
	}

	f.metrics.SyncDuration.Observe(f.clock.Since(start).Seconds())
	f.metrics.CitiesSynced.Set(float64(len(out)))
	return out, nil
}

// Run syncs the fleet immediately and then on every interval tick, passing
// each completed result to onSync. It returns nil when ctx is cancelled.
func (f *FleetSync) Run(ctx context.Context, onSync func(map[string]domain.WeatherSnapshot)) error {
	f.logger.Info("fleet sync started", "cities", len(f.cities), "interval", f.interval)
	f.metrics.SyncRunning.Set(1)
	defer f.metrics.SyncRunning.Set(0)

	ticker := f.clock.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		readings, err := f.Sync(ctx, f.cities)
		if err != nil {
			f.logger.Info("fleet sync stopping", "reason", err)
			return nil
		}
		onSync(readings)
		if f.ready.CompareAndSwap(false, true) {
			f.logger.Info("initial fleet sync complete", "cities_synced", len(readings))
		}

		select {
		case <-ctx.Done():
			f.logger.Info("fleet sync stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
		}
	}
}
