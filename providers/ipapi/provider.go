// Package ipapi detects the machine's approximate location from its public
// IP address using the ip-api.com JSON endpoint.
package ipapi

import (
	"context"
	"time"

	"tray-weather/datasource"
	"tray-weather/logger"
	"tray-weather/models"

	"github.com/avast/retry-go/v4"
	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

// DefaultBaseURL is free, keyless and CORS friendly; it only speaks plain HTTP
const DefaultBaseURL = "http://ip-api.com"

type response struct {
	Status     string  `json:"status"`
	Message    string  `json:"message"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	City       string  `json:"city"`
	RegionName string  `json:"regionName"`
	Country    string  `json:"country"`
}

// LocationSource resolves a location through ip-api.com
type LocationSource struct {
	client   *resty.Client
	attempts uint
	delay    time.Duration
	logger   logger.Logger
}

var _ datasource.LocationSource = (*LocationSource)(nil)

// NewLocationSource creates a new ip-api.com location source
func NewLocationSource(baseURL string, timeout time.Duration, log logger.Logger) *LocationSource {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if log == nil {
		log = logger.Nop()
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout)

	return &LocationSource{
		client:   client,
		attempts: 3,
		delay:    500 * time.Millisecond,
		logger:   log.WithField("component", "ipapi"),
	}
}

// SetRetryPolicy configures how transport failures are retried
func (s *LocationSource) SetRetryPolicy(attempts uint, delay time.Duration) {
	s.attempts = attempts
	s.delay = delay
}

// Name returns the provider name
func (s *LocationSource) Name() string {
	return "ip-api"
}

// DetectLocation looks up the location for the caller's public IP.
// Transport errors and 5xx answers are retried; a "fail" status is not.
func (s *LocationSource) DetectLocation(ctx context.Context) (models.Location, error) {
	var out response

	err := retry.Do(
		func() error {
			resp, err := s.client.R().
				SetContext(ctx).
				SetResult(&out).
				Get("/json/")
			if err != nil {
				return errors.Wrap(err, "failed to reach geolocation service")
			}
			if resp.StatusCode() >= 500 {
				return errors.Errorf("geolocation service returned status %d", resp.StatusCode())
			}
			if resp.IsError() {
				return retry.Unrecoverable(errors.Errorf("geolocation service returned status %d: %s", resp.StatusCode(), resp.String()))
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(s.attempts),
		retry.Delay(s.delay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Warnf("Location lookup attempt %d failed: %v", n+1, err)
		}),
	)
	if err != nil {
		s.logger.Errorf("Failed to detect location: %v", err)
		return models.Location{}, err
	}

	if out.Status != "success" {
		msg := out.Message
		if msg == "" {
			msg = "unknown error"
		}
		return models.Location{}, errors.Errorf("location detection failed: %s", msg)
	}

	return models.Location{
		Latitude:  out.Lat,
		Longitude: out.Lon,
		City:      out.City,
		Region:    out.RegionName,
		Country:   out.Country,
	}, nil
}
