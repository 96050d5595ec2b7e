package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"tray-weather/datasource"
	"tray-weather/logger"
	"tray-weather/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeForecasts struct {
	mutex      sync.Mutex
	cached     models.CachedView
	view       *models.ViewModel
	err        error
	clearErr   error
	params     []models.RequestParameters
	timeFormat models.TimeFormat
	cleared    int
}

func (f *fakeForecasts) FetchAndProcess(_ context.Context, params models.RequestParameters) (*models.ViewModel, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.params = append(f.params, params)
	return f.view, f.err
}

func (f *fakeForecasts) GetCachedView(_ context.Context, timeFormat models.TimeFormat) models.CachedView {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.timeFormat = timeFormat
	return f.cached
}

func (f *fakeForecasts) ClearCache(context.Context) error {
	f.cleared++
	return f.clearErr
}

func (f *fakeForecasts) CacheStats() (int, int) {
	return 3, 1
}

type memorySettings struct {
	settings models.Settings
	fail     bool
}

func (m *memorySettings) Get() models.Settings {
	return m.settings
}

func (m *memorySettings) Set(s models.Settings) models.SaveResult {
	if m.fail {
		return models.SaveResult{Success: false, Error: "disk full"}
	}
	m.settings = s
	return models.SaveResult{Success: true}
}

type fakeLocations struct {
	location models.Location
	err      error
}

func (f fakeLocations) DetectLocation(context.Context) (models.Location, error) {
	return f.location, f.err
}

func (f fakeLocations) Name() string {
	return "fake"
}

func float(v float64) *float64 {
	return &v
}

func defaultSettings() *memorySettings {
	return &memorySettings{settings: models.Settings{
		TempUnit:   models.Fahrenheit,
		SpeedUnit:  models.MPH,
		TimeFormat: models.TwelveHour,
	}}
}

func locatedSettings() *memorySettings {
	s := defaultSettings()
	s.settings.Latitude = float(40.7)
	s.settings.Longitude = float(-74.0)
	return s
}

func newTestServer(forecasts *fakeForecasts, settings *memorySettings, locations datasource.LocationSource) *Server {
	return NewServer(forecasts, settings, locations, 0, nil)
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(&fakeForecasts{}, defaultSettings(), nil)

	rec := do(t, s, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status string         `json:"status"`
		Cache  map[string]int `json:"cache"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 3, body.Cache["hits"])
	assert.Equal(t, 1, body.Cache["misses"])
}

func TestGetCachedWeather(t *testing.T) {
	forecasts := &fakeForecasts{cached: models.CachedView{
		Data:    &models.ViewModel{Current: models.CurrentView{Temperature: "69"}},
		IsStale: true,
	}}
	s := newTestServer(forecasts, defaultSettings(), nil)

	rec := do(t, s, http.MethodGet, "/api/weather?timeFormat=24hr", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.TwentyFourHour, forecasts.timeFormat)

	var got models.CachedView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.IsStale)
	assert.Equal(t, "69", got.Data.Current.Temperature)
}

func TestGetCachedWeatherEmpty(t *testing.T) {
	s := newTestServer(&fakeForecasts{}, defaultSettings(), nil)

	rec := do(t, s, http.MethodGet, "/api/weather", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":null,"isStale":false}`, rec.Body.String())
}

func TestGetCachedWeatherDefaultsToSavedTimeFormat(t *testing.T) {
	forecasts := &fakeForecasts{}
	settings := defaultSettings()
	settings.settings.TimeFormat = models.TwentyFourHour
	s := newTestServer(forecasts, settings, nil)

	do(t, s, http.MethodGet, "/api/weather", "")
	assert.Equal(t, models.TwentyFourHour, forecasts.timeFormat)
}

func TestGetCachedWeatherRejectsUnknownTimeFormat(t *testing.T) {
	s := newTestServer(&fakeForecasts{}, defaultSettings(), nil)

	rec := do(t, s, http.MethodGet, "/api/weather?timeFormat=36hr", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshWeather(t *testing.T) {
	forecasts := &fakeForecasts{view: &models.ViewModel{Current: models.CurrentView{Temperature: "69"}}}
	s := newTestServer(forecasts, locatedSettings(), nil)

	rec := do(t, s, http.MethodPost, "/api/weather/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, forecasts.params, 1)
	assert.Equal(t, models.RequestParameters{
		Latitude:        40.7,
		Longitude:       -74.0,
		TemperatureUnit: models.Fahrenheit,
		SpeedUnit:       models.MPH,
		TimeFormat:      models.TwelveHour,
	}, forecasts.params[0])

	var view models.ViewModel
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "69", view.Current.Temperature)
}

func TestRefreshWeatherWithoutLocation(t *testing.T) {
	forecasts := &fakeForecasts{}
	s := newTestServer(forecasts, defaultSettings(), nil)

	rec := do(t, s, http.MethodPost, "/api/weather/refresh", "")
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
	assert.Contains(t, rec.Body.String(), ErrLocationNotSet.Error())
	assert.Empty(t, forecasts.params)
}

func TestRefreshWeatherProviderError(t *testing.T) {
	forecasts := &fakeForecasts{err: &datasource.ProviderError{
		Provider:   "Open-Meteo",
		StatusCode: 400,
		Body:       `{"error":true,"reason":"Invalid wind_speed_unit"}`,
	}}
	s := newTestServer(forecasts, locatedSettings(), nil)

	rec := do(t, s, http.MethodPost, "/api/weather/refresh", "")
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var body struct {
		Status int    `json:"status"`
		Body   string `json:"body"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 400, body.Status)
	assert.Contains(t, body.Body, "Invalid wind_speed_unit")
}

func TestRefreshWeatherUnexpectedError(t *testing.T) {
	forecasts := &fakeForecasts{err: errors.New("boom")}
	s := newTestServer(forecasts, locatedSettings(), nil)

	rec := do(t, s, http.MethodPost, "/api/weather/refresh", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestClearCache(t *testing.T) {
	forecasts := &fakeForecasts{}
	s := newTestServer(forecasts, defaultSettings(), nil)

	rec := do(t, s, http.MethodDelete, "/api/weather/cache", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, forecasts.cleared)

	forecasts.clearErr = errors.New("redis down")
	rec = do(t, s, http.MethodDelete, "/api/weather/cache", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetSettings(t *testing.T) {
	s := newTestServer(&fakeForecasts{}, defaultSettings(), nil)

	rec := do(t, s, http.MethodGet, "/api/settings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"latitude":null,"longitude":null,"tempUnit":"fahrenheit","speedUnit":"mph","timeFormat":"12hr"}`, rec.Body.String())
}

func TestSaveSettingsMergesPartialUpdates(t *testing.T) {
	settings := locatedSettings()
	s := newTestServer(&fakeForecasts{}, settings, nil)

	rec := do(t, s, http.MethodPut, "/api/settings", `{"tempUnit":"celsius","speedUnit":"kph"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	assert.Equal(t, models.Celsius, settings.settings.TempUnit)
	assert.Equal(t, models.KPH, settings.settings.SpeedUnit)
	assert.Equal(t, models.TwelveHour, settings.settings.TimeFormat)
	require.True(t, settings.settings.HasLocation())
	assert.Equal(t, 40.7, *settings.settings.Latitude)
}

func TestSaveSettingsClearsLocation(t *testing.T) {
	settings := locatedSettings()
	s := newTestServer(&fakeForecasts{}, settings, nil)

	rec := do(t, s, http.MethodPut, "/api/settings", `{"latitude":null,"longitude":null}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, settings.settings.HasLocation())
}

func TestSaveSettingsErrors(t *testing.T) {
	s := newTestServer(&fakeForecasts{}, defaultSettings(), nil)
	rec := do(t, s, http.MethodPut, "/api/settings", `{nope`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	failing := defaultSettings()
	failing.fail = true
	s = newTestServer(&fakeForecasts{}, failing, nil)
	rec = do(t, s, http.MethodPut, "/api/settings", `{"tempUnit":"celsius"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"disk full"}`, rec.Body.String())
}

func TestDetectLocation(t *testing.T) {
	settings := defaultSettings()
	locations := fakeLocations{location: models.Location{
		Latitude:  40.65,
		Longitude: -73.95,
		City:      "Brooklyn",
		Region:    "New York",
		Country:   "United States",
	}}
	s := newTestServer(&fakeForecasts{}, settings, locations)

	rec := do(t, s, http.MethodPost, "/api/location/detect", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Location
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Brooklyn", got.City)
	assert.False(t, settings.settings.HasLocation())

	rec = do(t, s, http.MethodPost, "/api/location/detect?save=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, settings.settings.HasLocation())
	assert.Equal(t, 40.65, *settings.settings.Latitude)
	assert.Equal(t, -73.95, *settings.settings.Longitude)
}

func TestDetectLocationErrors(t *testing.T) {
	s := newTestServer(&fakeForecasts{}, defaultSettings(), fakeLocations{err: errors.New("location detection failed: private range")})
	rec := do(t, s, http.MethodPost, "/api/location/detect", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "private range")

	s = newTestServer(&fakeForecasts{}, defaultSettings(), nil)
	rec = do(t, s, http.MethodPost, "/api/location/detect", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(&fakeForecasts{}, defaultSettings(), nil)

	rec := do(t, s, http.MethodGet, "/api/weather/refresh", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestWriteJSONLogsEncodeFailure(t *testing.T) {
	var buf bytes.Buffer
	s := NewServer(&fakeForecasts{}, &memorySettings{}, nil, 0, logger.NewWithWriter("debug", &buf))

	rec := httptest.NewRecorder()
	s.writeJSON(rec, http.StatusOK, map[string]float64{"temperature": math.Inf(1)})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, buf.String(), "Failed to encode response")
	assert.Contains(t, buf.String(), `"component":"api"`)
}
