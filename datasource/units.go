package datasource

import (
	"tray-weather/models"
)

// WindSpeedParam maps the user's speed unit to the token the forecast API
// expects. Unrecognised tokens are forwarded unchanged and left for the
// provider to reject.
func WindSpeedParam(unit models.SpeedUnit) string {
	switch unit {
	case models.KPH, models.KMH:
		return "kmh"
	case models.MPH:
		return "mph"
	case models.MPS:
		return "ms"
	case models.Knots:
		return "kn"
	default:
		return string(unit)
	}
}
