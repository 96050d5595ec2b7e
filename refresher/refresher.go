// Package refresher keeps the cached forecast fresh in the background by
// refetching whenever the snapshot is missing or stale.
package refresher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tray-weather/logger"
	"tray-weather/models"

	"github.com/robfig/cron/v3"
)

// DefaultInterval is how often the snapshot's staleness is checked
const DefaultInterval = time.Minute

// ForecastService is the part of the forecast client the refresher drives
type ForecastService interface {
	FetchAndProcess(ctx context.Context, params models.RequestParameters) (*models.ViewModel, error)
	GetCachedView(ctx context.Context, timeFormat models.TimeFormat) models.CachedView
}

// SettingsSource provides the location and units to refresh with
type SettingsSource interface {
	Get() models.Settings
}

// Refresher periodically refetches stale forecasts
type Refresher struct {
	forecasts    ForecastService
	settings     SettingsSource
	interval     time.Duration
	fetchTimeout time.Duration
	logger       logger.Logger
}

// New creates a refresher checking every interval. A non-positive interval
// selects DefaultInterval.
func New(forecasts ForecastService, settings SettingsSource, interval time.Duration, log logger.Logger) *Refresher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Refresher{
		forecasts:    forecasts,
		settings:     settings,
		interval:     interval,
		fetchTimeout: 10 * time.Second,
		logger:       log.WithField("component", "refresher"),
	}
}

// SetFetchTimeout changes the timeout for a single refresh
func (r *Refresher) SetFetchTimeout(timeout time.Duration) {
	r.fetchTimeout = timeout
}

// RunOnce refetches when no fresh snapshot is cached. It reports whether a
// fetch happened. Without a saved location it does nothing.
func (r *Refresher) RunOnce(ctx context.Context) (bool, error) {
	settings := r.settings.Get()
	if !settings.HasLocation() {
		r.logger.Debug("No location set, skipping refresh")
		return false, nil
	}

	cached := r.forecasts.GetCachedView(ctx, settings.TimeFormat)
	if cached.Data != nil && !cached.IsStale {
		return false, nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
	defer cancel()

	if _, err := r.forecasts.FetchAndProcess(fetchCtx, settings.RequestParameters()); err != nil {
		return true, fmt.Errorf("failed to refresh forecast: %w", err)
	}

	r.logger.Info("Forecast refreshed")
	return true, nil
}

// Start runs an immediate refresh and then one every interval until ctx is
// done or the returned function is called. The stop function waits for a
// running refresh to finish.
func (r *Refresher) Start(ctx context.Context) func() {
	runCtx, cancel := context.WithCancel(ctx)

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	job := func() {
		if _, err := r.RunOnce(runCtx); err != nil {
			r.logger.Errorf("Refresh failed: %v", err)
		}
	}
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", r.interval), job); err != nil {
		// @every with a positive duration always parses
		r.logger.Errorf("Failed to schedule refresh: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		job()
	}()

	c.Start()
	r.logger.Infof("Refresher started with interval: %s", r.interval)

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-c.Stop().Done()
			wg.Wait()
			r.logger.Info("Refresher stopped")
		})
	}
}
