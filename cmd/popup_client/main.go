// popup_client renders what the tray popup would show, reading everything
// from a running tray-weather API.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"tray-weather/models"

	"github.com/go-resty/resty/v2"
)

func main() {
	baseURL := flag.String("api", "http://127.0.0.1:8787", "Base URL of the tray-weather API")
	timeFormat := flag.String("time-format", "", "12hr or 24hr (defaults to the saved preference)")
	flag.Parse()

	client := resty.New().
		SetBaseURL(*baseURL).
		SetTimeout(15 * time.Second)

	view, err := loadView(client, *timeFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	render(os.Stdout, view)
}

// loadView serves the cached view and refreshes it first when it is
// missing or stale, the same decision the popup makes when it opens.
func loadView(client *resty.Client, timeFormat string) (*models.ViewModel, error) {
	var cached models.CachedView
	req := client.R().SetResult(&cached)
	if timeFormat != "" {
		req.SetQueryParam("timeFormat", timeFormat)
	}
	resp, err := req.Get("/api/weather")
	if err != nil {
		return nil, fmt.Errorf("failed to reach weather service: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("weather service returned %d: %s", resp.StatusCode(), resp.String())
	}

	if cached.Data != nil && !cached.IsStale {
		return cached.Data, nil
	}

	var fresh models.ViewModel
	req = client.R().SetResult(&fresh)
	if timeFormat != "" {
		req.SetQueryParam("timeFormat", timeFormat)
	}
	resp, err = req.Post("/api/weather/refresh")
	if err != nil {
		return nil, fmt.Errorf("failed to refresh weather: %w", err)
	}
	if resp.IsError() {
		// a stale view beats no view
		if cached.Data != nil {
			return cached.Data, nil
		}
		return nil, fmt.Errorf("refresh failed with %d: %s", resp.StatusCode(), resp.String())
	}
	return &fresh, nil
}

func render(w io.Writer, view *models.ViewModel) {
	temperatureUnit := view.Units["temperature_2m"]
	speedUnit := view.Units["wind_speed_10m"]

	c := view.Current
	fmt.Fprintf(w, "%s%s  %s\n", c.Temperature, temperatureUnit, c.Description)
	fmt.Fprintf(w, "feels like %s%s, wind %s %s, humidity %.0f%%, precipitation %d%%\n",
		c.ApparentTemperature, temperatureUnit, c.WindSpeed, speedUnit, c.RelativeHumidity, c.PrecipitationProbability)

	if len(view.Forecast) > 0 {
		fmt.Fprintln(w)
		for _, h := range view.Forecast {
			fmt.Fprintf(w, "%-6s %4s%s  %s\n", h.FormattedTime, h.Temperature, temperatureUnit, h.Description)
		}
	}

	if len(view.DailyForecast) > 0 {
		fmt.Fprintln(w)
		days := make([]string, 0, len(view.DailyForecast))
		for _, d := range view.DailyForecast {
			days = append(days, fmt.Sprintf("%s %d%s", d.Day, d.Temperature, temperatureUnit))
		}
		fmt.Fprintln(w, strings.Join(days, "  "))
	}
}
