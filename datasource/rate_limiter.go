package datasource

import (
	"context"
	"fmt"

	"tray-weather/models"

	"golang.org/x/time/rate"
)

// RateLimitedForecastSource wraps a ForecastSource with rate limiting
type RateLimitedForecastSource struct {
	source  ForecastSource
	limiter *rate.Limiter
	name    string
}

// NewRateLimitedForecastSource creates a new rate limited forecast source
// rps is the maximum requests per second allowed (can be fractional)
// burst is the maximum burst size allowed
func NewRateLimitedForecastSource(source ForecastSource, rps float64, burst int) *RateLimitedForecastSource {
	return &RateLimitedForecastSource{
		source:  source,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		name:    fmt.Sprintf("%s [Rate Limited]", source.Name()),
	}
}

// FetchForecast fetches forecast data, respecting rate limits
func (r *RateLimitedForecastSource) FetchForecast(ctx context.Context, params models.RequestParameters) (models.RawForecastPayload, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return models.RawForecastPayload{}, &ProviderError{
			Provider: r.source.Name(),
			Err:      fmt.Errorf("rate limit wait canceled: %w", err),
		}
	}

	return r.source.FetchForecast(ctx, params)
}

// Name returns the source name
func (r *RateLimitedForecastSource) Name() string {
	return r.name
}

// RateLimitedLocationSource wraps a LocationSource with rate limiting.
// The free geolocation endpoint allows 45 requests per minute.
type RateLimitedLocationSource struct {
	source  LocationSource
	limiter *rate.Limiter
	name    string
}

// NewRateLimitedLocationSource creates a new rate limited location source
func NewRateLimitedLocationSource(source LocationSource, rps float64, burst int) *RateLimitedLocationSource {
	return &RateLimitedLocationSource{
		source:  source,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		name:    fmt.Sprintf("%s [Rate Limited]", source.Name()),
	}
}

// DetectLocation detects the location, respecting rate limits
func (r *RateLimitedLocationSource) DetectLocation(ctx context.Context) (models.Location, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return models.Location{}, fmt.Errorf("rate limit wait canceled: %w", err)
	}

	return r.source.DetectLocation(ctx)
}

// Name returns the source name
func (r *RateLimitedLocationSource) Name() string {
	return r.name
}

// Verify that our rate limited types implement the required interfaces
var (
	_ ForecastSource = (*RateLimitedForecastSource)(nil)
	_ LocationSource = (*RateLimitedLocationSource)(nil)
)
