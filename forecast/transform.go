package forecast

import (
	"math"
	"strconv"
	"strings"
	"time"

	"tray-weather/catalog"
	"tray-weather/models"
)

const (
	timeLayout = "2006-01-02T15:04"
	dateLayout = "2006-01-02"

	hourlyEntries = 5
	hourlyStep    = 3
	dailyEntries  = 5
)

// roundHalfUp rounds to the nearest integer, .5 going up
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

func roundedString(v float64) string {
	return strconv.Itoa(roundHalfUp(v))
}

// transformer turns one raw payload into a view model
type transformer struct {
	catalog    *catalog.Catalog
	timeFormat models.TimeFormat
	location   *time.Location
}

func newTransformer(c *catalog.Catalog, payload models.RawForecastPayload, timeFormat models.TimeFormat) transformer {
	loc := time.UTC
	if payload.UTCOffsetSeconds != 0 || payload.TimezoneAbbreviation != "" {
		loc = time.FixedZone(payload.TimezoneAbbreviation, payload.UTCOffsetSeconds)
	}
	return transformer{catalog: c, timeFormat: timeFormat, location: loc}
}

// BuildView derives the display view from a raw payload
func BuildView(c *catalog.Catalog, payload models.RawForecastPayload, timeFormat models.TimeFormat) *models.ViewModel {
	t := newTransformer(c, payload, timeFormat)

	view := &models.ViewModel{
		Current:       t.current(payload.Current, payload.Hourly),
		Forecast:      t.hourly(payload.Hourly, payload.Current.Time),
		DailyForecast: t.daily(payload.Daily),
	}
	if len(payload.CurrentUnits) > 0 {
		view.Units = make(map[string]string, len(payload.CurrentUnits))
		for k, v := range payload.CurrentUnits {
			view.Units[k] = v
		}
	}
	return view
}

func (t transformer) current(obs models.CurrentObservation, hourly models.HourlySeries) models.CurrentView {
	return models.CurrentView{
		Time:                     obs.Time,
		Interval:                 obs.Interval,
		Temperature:              roundedString(obs.Temperature),
		WeatherCode:              obs.WeatherCode,
		RelativeHumidity:         obs.RelativeHumidity,
		WindSpeed:                roundedString(obs.WindSpeed),
		ApparentTemperature:      roundedString(obs.ApparentTemperature),
		IsDay:                    obs.IsDay,
		Description:              t.catalog.Describe(obs.WeatherCode, obs.IsDay == 1),
		PrecipitationProbability: precipitationAt(hourly, obs.Time),
	}
}

// precipitationAt returns the probability of the hourly slot whose time
// string equals at, or 0 without an exact match
func precipitationAt(hourly models.HourlySeries, at string) int {
	for i, ts := range hourly.Time {
		if ts == at {
			if i < len(hourly.PrecipitationProbability) {
				return hourly.PrecipitationProbability[i]
			}
			return 0
		}
	}
	return 0
}

// anchorIndex finds the first hourly slot at or after the current hour of
// day. ok is false when no slot qualifies.
func (t transformer) anchorIndex(times []string, currentTime string) (int, bool) {
	now, err := t.parseTime(currentTime)
	if err != nil {
		return 0, false
	}
	for i, ts := range times {
		slot, err := t.parseTime(ts)
		if err != nil {
			continue
		}
		if slot.Hour() >= now.Hour() {
			return i, true
		}
	}
	return 0, false
}

func (t transformer) hourly(hourly models.HourlySeries, currentTime string) []models.HourlyView {
	views := make([]models.HourlyView, 0, hourlyEntries)

	anchor, ok := t.anchorIndex(hourly.Time, currentTime)
	if !ok {
		return views
	}

	for k := 1; k <= hourlyEntries; k++ {
		i := anchor + k*hourlyStep
		if i >= len(hourly.Time) {
			break
		}
		views = append(views, models.HourlyView{
			Time:          hourly.Time[i],
			Temperature:   roundedString(hourly.Temperature[i]),
			WeatherCode:   hourly.WeatherCode[i],
			Description:   t.catalog.Describe(hourly.WeatherCode[i], hourly.IsDay[i] == 1),
			FormattedTime: t.formatTime(hourly.Time[i]),
		})
	}
	return views
}

func (t transformer) daily(daily models.DailySeries) []models.DailyView {
	views := make([]models.DailyView, 0, dailyEntries)

	for i := 1; i < len(daily.Time) && i <= dailyEntries; i++ {
		views = append(views, models.DailyView{
			Date:        daily.Time[i],
			Temperature: roundHalfUp(daily.MaxTemperature[i]),
			Day:         formatDay(daily.Time[i]),
		})
	}
	return views
}

func (t transformer) parseTime(s string) (time.Time, error) {
	return time.ParseInLocation(timeLayout, s, t.location)
}

// formatTime renders "3 pm" for 12hr and "09:00" for 24hr. Unparseable
// input is returned unchanged.
func (t transformer) formatTime(s string) string {
	ts, err := t.parseTime(s)
	if err != nil {
		return s
	}
	if t.timeFormat == models.TwentyFourHour {
		return ts.Format("15:04")
	}
	return ts.Format("3 pm")
}

// formatDay returns the lowercase three letter weekday of a calendar date
func formatDay(date string) string {
	d, err := time.Parse(dateLayout, date)
	if err != nil {
		return ""
	}
	return strings.ToLower(d.Format("Mon"))
}
