// Package forecast is the single point of access for current and upcoming
// weather: it fetches from a forecast source, keeps the latest payload in a
// snapshot cache and shapes it for display.
package forecast

import (
	"context"
	"errors"
	"sync"
	"time"

	"tray-weather/cache"
	"tray-weather/catalog"
	"tray-weather/datasource"
	"tray-weather/logger"
	"tray-weather/models"
)

const publishTimeout = 10 * time.Second

// Publisher receives every freshly fetched view
type Publisher interface {
	Publish(ctx context.Context, capturedAt time.Time, view *models.ViewModel) error
}

// Client fetches, caches and transforms forecasts
type Client struct {
	source    datasource.ForecastSource
	catalog   *catalog.Catalog
	cache     *cache.SnapshotCache
	publisher Publisher
	logger    logger.Logger

	publishing sync.WaitGroup
}

// Option configures a Client
type Option func(*Client)

// WithLogger sets the client logger
func WithLogger(log logger.Logger) Option {
	return func(c *Client) {
		c.logger = log
	}
}

// WithPublisher fans every successful fetch out to p
func WithPublisher(p Publisher) Option {
	return func(c *Client) {
		c.publisher = p
	}
}

// NewClient creates a forecast client. Staleness is measured with the
// snapshot cache's clock.
func NewClient(source datasource.ForecastSource, codes *catalog.Catalog, snapshots *cache.SnapshotCache, opts ...Option) *Client {
	c := &Client{
		source:  source,
		catalog: codes,
		cache:   snapshots,
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithField("component", "forecast")
	return c
}

// FetchAndProcess fetches a fresh forecast, replaces the cached snapshot and
// returns the view built from it. Every fetch failure, including a payload
// whose series are not index aligned, is a *datasource.ProviderError and
// leaves the cached snapshot untouched.
func (c *Client) FetchAndProcess(ctx context.Context, params models.RequestParameters) (*models.ViewModel, error) {
	c.logger.WithFields(map[string]interface{}{
		"latitude":  params.Latitude,
		"longitude": params.Longitude,
	}).Infof("Fetching forecast from %s", c.source.Name())

	payload, err := c.source.FetchForecast(ctx, params)
	if err != nil {
		c.logger.Errorf("Failed to fetch forecast: %v", err)
		var providerErr *datasource.ProviderError
		if errors.As(err, &providerErr) {
			return nil, err
		}
		return nil, &datasource.ProviderError{Provider: c.source.Name(), Err: err}
	}
	if err := payload.Validate(); err != nil {
		c.logger.Errorf("Rejected malformed forecast: %v", err)
		return nil, &datasource.ProviderError{Provider: c.source.Name(), Err: err}
	}

	capturedAt := c.cache.Clock().Now()
	snap, err := c.cache.Put(ctx, payload)
	if err != nil {
		// the fetch itself succeeded; serve it even if it could not be kept
		c.logger.Errorf("Failed to cache forecast: %v", err)
	} else {
		capturedAt = snap.CapturedAt
	}

	view := BuildView(c.catalog, payload, params.TimeFormat)
	c.publish(capturedAt, view)
	return view, nil
}

// GetCachedView builds a view from the cached snapshot without network I/O.
// Data is nil when nothing usable is cached.
func (c *Client) GetCachedView(ctx context.Context, timeFormat models.TimeFormat) models.CachedView {
	snap, ok := c.cache.Get(ctx)
	if !ok {
		return models.CachedView{}
	}
	return models.CachedView{
		Data:    BuildView(c.catalog, snap.Payload, timeFormat),
		IsStale: snap.IsStale(c.cache.Clock().Now()),
	}
}

// ClearCache empties the snapshot slot
func (c *Client) ClearCache(ctx context.Context) error {
	return c.cache.Clear(ctx)
}

// CacheStats returns snapshot cache hits and misses
func (c *Client) CacheStats() (hits, misses int) {
	return c.cache.Stats()
}

// Close waits for in-flight publishes to finish
func (c *Client) Close() {
	c.publishing.Wait()
}

func (c *Client) publish(capturedAt time.Time, view *models.ViewModel) {
	if c.publisher == nil {
		return
	}

	c.publishing.Add(1)
	go func() {
		defer c.publishing.Done()

		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		if err := c.publisher.Publish(ctx, capturedAt, view); err != nil {
			c.logger.Warnf("Failed to publish forecast: %v", err)
		}
	}()
}
