package models

// CurrentView is the display-ready current conditions block
type CurrentView struct {
	Time                     string  `json:"time"`
	Interval                 int     `json:"interval"`
	Temperature              string  `json:"temperature_2m"`
	WeatherCode              int     `json:"weather_code"`
	RelativeHumidity         float64 `json:"relative_humidity_2m"`
	WindSpeed                string  `json:"wind_speed_10m"`
	ApparentTemperature      string  `json:"apparent_temperature"`
	IsDay                    int     `json:"is_day"`
	Description              string  `json:"description"`
	PrecipitationProbability int     `json:"precipitation_probability"`
}

// HourlyView is one entry of the short-range hourly forecast
type HourlyView struct {
	Time          string `json:"time"`
	Temperature   string `json:"temperature"`
	WeatherCode   int    `json:"weatherCode"`
	Description   string `json:"description"`
	FormattedTime string `json:"formattedTime"`
}

// DailyView is one entry of the multi-day forecast
type DailyView struct {
	Date        string `json:"date"`
	Temperature int    `json:"temperature"`
	Day         string `json:"day"`
}

// ViewModel is what the popup renders. It is rebuilt on every read.
type ViewModel struct {
	Current       CurrentView       `json:"current"`
	Forecast      []HourlyView      `json:"forecast"`
	DailyForecast []DailyView       `json:"dailyForecast"`
	Units         map[string]string `json:"units,omitempty"`
}

// CachedView is the result of reading the snapshot cache without network I/O
type CachedView struct {
	Data    *ViewModel `json:"data"`
	IsStale bool       `json:"isStale"`
}
