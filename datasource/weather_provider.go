package datasource

import (
	"context"

	"tray-weather/models"
)

// ForecastSource is an interface for services that can fetch raw forecasts
type ForecastSource interface {
	// FetchForecast fetches the raw forecast payload for the requested point
	FetchForecast(ctx context.Context, params models.RequestParameters) (models.RawForecastPayload, error)

	// Name returns the source's name
	Name() string
}

// LocationSource resolves the machine's approximate position
type LocationSource interface {
	// DetectLocation looks up the current location
	DetectLocation(ctx context.Context) (models.Location, error)

	// Name returns the source's name
	Name() string
}
