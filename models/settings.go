package models

// TemperatureUnit is the unit the provider reports temperatures in
type TemperatureUnit string

const (
	Celsius    TemperatureUnit = "celsius"
	Fahrenheit TemperatureUnit = "fahrenheit"
)

// SpeedUnit is the user-facing wind speed unit
type SpeedUnit string

const (
	KPH   SpeedUnit = "kph"
	KMH   SpeedUnit = "kmh"
	MPH   SpeedUnit = "mph"
	MPS   SpeedUnit = "ms"
	Knots SpeedUnit = "kn"
)

// TimeFormat selects how hourly forecast times are rendered
type TimeFormat string

const (
	TwelveHour     TimeFormat = "12hr"
	TwentyFourHour TimeFormat = "24hr"
)

// RequestParameters is everything needed to ask the provider for a forecast
type RequestParameters struct {
	Latitude        float64
	Longitude       float64
	TemperatureUnit TemperatureUnit
	SpeedUnit       SpeedUnit
	TimeFormat      TimeFormat
}

// Settings are the persisted user preferences. Latitude and Longitude stay
// nil until the user sets or detects a location.
type Settings struct {
	Latitude   *float64        `json:"latitude" mapstructure:"latitude"`
	Longitude  *float64        `json:"longitude" mapstructure:"longitude"`
	TempUnit   TemperatureUnit `json:"tempUnit" mapstructure:"temp_unit"`
	SpeedUnit  SpeedUnit       `json:"speedUnit" mapstructure:"speed_unit"`
	TimeFormat TimeFormat      `json:"timeFormat" mapstructure:"time_format"`
}

// HasLocation reports whether both coordinates are set
func (s Settings) HasLocation() bool {
	return s.Latitude != nil && s.Longitude != nil
}

// RequestParameters converts settings into a provider request.
// Callers must check HasLocation first.
func (s Settings) RequestParameters() RequestParameters {
	params := RequestParameters{
		TemperatureUnit: s.TempUnit,
		SpeedUnit:       s.SpeedUnit,
		TimeFormat:      s.TimeFormat,
	}
	if s.Latitude != nil {
		params.Latitude = *s.Latitude
	}
	if s.Longitude != nil {
		params.Longitude = *s.Longitude
	}
	return params
}

// SaveResult mirrors the settings bridge reply: success, or an error message
type SaveResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Location is a detected geographic position
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	City      string  `json:"city"`
	Region    string  `json:"region"`
	Country   string  `json:"country"`
}
