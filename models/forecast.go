package models

import (
	"fmt"
)

// CurrentObservation is the single "now" observation returned by the provider
type CurrentObservation struct {
	Time                string  `json:"time"`
	Interval            int     `json:"interval"`
	Temperature         float64 `json:"temperature_2m"`
	WeatherCode         int     `json:"weather_code"`
	RelativeHumidity    float64 `json:"relative_humidity_2m"`
	WindSpeed           float64 `json:"wind_speed_10m"`
	ApparentTemperature float64 `json:"apparent_temperature"`
	IsDay               int     `json:"is_day"`
}

// HourlySeries holds parallel arrays indexed by hour
type HourlySeries struct {
	Time                     []string  `json:"time"`
	Temperature              []float64 `json:"temperature_2m"`
	WeatherCode              []int     `json:"weather_code"`
	IsDay                    []int     `json:"is_day"`
	PrecipitationProbability []int     `json:"precipitation_probability"`
}

// DailySeries holds parallel arrays indexed by day
type DailySeries struct {
	Time           []string  `json:"time"`
	MaxTemperature []float64 `json:"temperature_2m_max"`
	WeatherCode    []int     `json:"weather_code"`
}

// RawForecastPayload is the forecast provider response as received on the wire
type RawForecastPayload struct {
	Latitude             float64            `json:"latitude"`
	Longitude            float64            `json:"longitude"`
	Timezone             string             `json:"timezone"`
	TimezoneAbbreviation string             `json:"timezone_abbreviation"`
	UTCOffsetSeconds     int                `json:"utc_offset_seconds"`
	CurrentUnits         map[string]string  `json:"current_units,omitempty"`
	Current              CurrentObservation `json:"current"`
	Hourly               HourlySeries       `json:"hourly"`
	Daily                DailySeries        `json:"daily"`
}

// Validate checks that the payload can be transformed: the current
// observation carries a timestamp and every series is index aligned.
// The hourly precipitation series may be absent altogether.
func (p RawForecastPayload) Validate() error {
	if p.Current.Time == "" {
		return fmt.Errorf("current observation has no time")
	}

	n := len(p.Hourly.Time)
	if len(p.Hourly.Temperature) != n || len(p.Hourly.WeatherCode) != n || len(p.Hourly.IsDay) != n {
		return fmt.Errorf("hourly series misaligned: time=%d temperature=%d weather_code=%d is_day=%d",
			n, len(p.Hourly.Temperature), len(p.Hourly.WeatherCode), len(p.Hourly.IsDay))
	}
	if p.Hourly.PrecipitationProbability != nil && len(p.Hourly.PrecipitationProbability) != n {
		return fmt.Errorf("hourly precipitation_probability has %d entries, want %d",
			len(p.Hourly.PrecipitationProbability), n)
	}

	d := len(p.Daily.Time)
	if len(p.Daily.MaxTemperature) != d {
		return fmt.Errorf("daily series misaligned: time=%d temperature_2m_max=%d", d, len(p.Daily.MaxTemperature))
	}
	if p.Daily.WeatherCode != nil && len(p.Daily.WeatherCode) != d {
		return fmt.Errorf("daily weather_code has %d entries, want %d", len(p.Daily.WeatherCode), d)
	}

	return nil
}
