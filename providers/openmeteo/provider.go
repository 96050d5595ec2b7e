package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tray-weather/datasource"
	"tray-weather/logger"
	"tray-weather/models"
)

// DefaultBaseURL is the public Open-Meteo forecast endpoint
const DefaultBaseURL = "https://api.open-meteo.com/v1/forecast"

// ForecastDays covers today plus the five days shown in the daily forecast
const ForecastDays = 6

var (
	hourlyVariables  = []string{"temperature_2m", "weather_code", "is_day", "precipitation_probability"}
	dailyVariables   = []string{"temperature_2m_max", "weather_code"}
	currentVariables = []string{
		"temperature_2m",
		"weather_code",
		"relative_humidity_2m",
		"wind_speed_10m",
		"apparent_temperature",
		"is_day",
	}
)

// ForecastSource provides forecasts from Open-Meteo
type ForecastSource struct {
	baseURL string
	client  *http.Client
	logger  logger.Logger
}

// Ensure ForecastSource implements datasource.ForecastSource
var _ datasource.ForecastSource = (*ForecastSource)(nil)

// NewForecastSource creates a new Open-Meteo forecast source. An empty
// baseURL selects the public endpoint; a zero timeout leaves the transport
// without a deadline.
func NewForecastSource(baseURL string, timeout time.Duration, log logger.Logger) *ForecastSource {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ForecastSource{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: log.WithField("component", "openmeteo"),
	}
}

// Name returns the provider name
func (o *ForecastSource) Name() string {
	return "Open-Meteo"
}

// Query builds the request query for params
func Query(params models.RequestParameters) url.Values {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(params.Latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(params.Longitude, 'f', -1, 64))
	q.Set("hourly", strings.Join(hourlyVariables, ","))
	q.Set("daily", strings.Join(dailyVariables, ","))
	q.Set("current", strings.Join(currentVariables, ","))
	q.Set("timezone", "auto")
	q.Set("forecast_days", strconv.Itoa(ForecastDays))
	q.Set("temperature_unit", string(params.TemperatureUnit))
	q.Set("wind_speed_unit", datasource.WindSpeedParam(params.SpeedUnit))
	return q
}

// FetchForecast gets the raw forecast payload from Open-Meteo
func (o *ForecastSource) FetchForecast(ctx context.Context, params models.RequestParameters) (models.RawForecastPayload, error) {
	apiURL := o.baseURL + "?" + Query(params).Encode()
	o.logger.Debugf("Fetching weather from: %s", apiURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return models.RawForecastPayload{}, o.fail(0, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return models.RawForecastPayload{}, o.fail(0, fmt.Errorf("failed to send request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.RawForecastPayload{}, o.fail(resp.StatusCode, fmt.Errorf("failed to read response body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		o.logger.Errorf("API error response (status %d): %s", resp.StatusCode, string(body))
		return models.RawForecastPayload{}, &datasource.ProviderError{
			Provider:   o.Name(),
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	var payload models.RawForecastPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return models.RawForecastPayload{}, o.fail(resp.StatusCode, fmt.Errorf("failed to parse API response: %w", err))
	}
	if err := payload.Validate(); err != nil {
		return models.RawForecastPayload{}, o.fail(resp.StatusCode, fmt.Errorf("unusable API response: %w", err))
	}

	return payload, nil
}

func (o *ForecastSource) fail(status int, err error) error {
	return &datasource.ProviderError{
		Provider:   o.Name(),
		StatusCode: status,
		Err:        err,
	}
}
